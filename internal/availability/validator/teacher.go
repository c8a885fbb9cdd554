package validator

import (
	"tutorbook/pkg/logger"
	"tutorbook/pkg/model"
	"tutorbook/pkg/validation"

	"github.com/go-playground/validator/v10"
)

type TeacherValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewTeacherValidator(log *logger.Logger) *TeacherValidator {
	v := validation.New(log)
	log.Debug("Teacher validator initialized successfully")
	return &TeacherValidator{
		validate: v,
		logger:   log,
	}
}

func (v *TeacherValidator) Validate(teacher *model.Teacher) error {
	return validation.Struct(v.validate, teacher)
}

// ValidateSlot checks tags and ordering; start must precede end.
func (v *TeacherValidator) ValidateSlot(slot model.Slot) error {
	if err := validation.Struct(v.validate, slot); err != nil {
		return err
	}
	if slot.StartTime >= slot.EndTime {
		return validation.ValidationErrors{{Field: "end_time", Message: "end_time must be after start_time"}}
	}
	return nil
}
