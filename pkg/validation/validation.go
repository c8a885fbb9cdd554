// Package validation configures go-playground/validator with the calendar tags shared by
// the availability and booking domains, and translates its errors into field messages.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"tutorbook/pkg/logger"
	"tutorbook/pkg/slots"

	"github.com/go-playground/validator/v10"
)

const (
	TagHHMM    = "hhmm"
	TagWeekday = "weekday"
	TagISODate = "iso_date"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	messages := make([]string, 0, len(v))
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

// Details renders the errors as a field -> message map for AppError details.
func (v ValidationErrors) Details() map[string]any {
	out := make(map[string]any, len(v))
	for _, e := range v {
		out[e.Field] = e.Message
	}
	return out
}

// New returns a validator with the calendar tags registered. JSON names are reported
// as field names.
func New(log *logger.Logger) *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	custom := map[string]validator.Func{
		TagHHMM:    validateHHMM,
		TagWeekday: validateWeekday,
		TagISODate: validateISODate,
	}
	for tag, fn := range custom {
		if err := v.RegisterValidation(tag, fn); err != nil {
			log.Fatal("Failed to register validator", "tag", tag, "error", err)
		}
	}
	return v
}

func validateHHMM(fl validator.FieldLevel) bool {
	return slots.ValidTime(fl.Field().String())
}

func validateWeekday(fl validator.FieldLevel) bool {
	_, err := slots.ParseWeekday(fl.Field().String())
	return err == nil
}

func validateISODate(fl validator.FieldLevel) bool {
	_, err := slots.ParseDate(fl.Field().String())
	return err == nil
}

// Struct validates s and translates failures into ValidationErrors.
func Struct(v *validator.Validate, s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		return Translate(validationErrs)
	}
	return err
}

func Translate(errs validator.ValidationErrors) ValidationErrors {
	out := make(ValidationErrors, 0, len(errs))
	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "mongodb":
			message = fmt.Sprintf("%s must be a valid MongoDB ObjectID", err.Field())
		case "e164":
			message = fmt.Sprintf("%s must be in E.164 format (e.g., +14155552671)", err.Field())
		case "email":
			message = fmt.Sprintf("%s must be a valid email address", err.Field())
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
		case TagHHMM:
			message = fmt.Sprintf("%s must be a 24h time in HH:MM format", err.Field())
		case TagWeekday:
			message = fmt.Sprintf("%s must be a weekday name (e.g., Monday)", err.Field())
		case TagISODate:
			message = fmt.Sprintf("%s must be a date in YYYY-MM-DD format", err.Field())
		}

		out = append(out, ValidationError{Field: err.Field(), Message: message})
	}
	return out
}
