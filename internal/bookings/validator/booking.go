package validator

import (
	"tutorbook/pkg/logger"
	"tutorbook/pkg/model"
	"tutorbook/pkg/validation"

	"github.com/go-playground/validator/v10"
)

type BookingValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewBookingValidator(log *logger.Logger) *BookingValidator {
	v := validation.New(log)

	log.Debug("Booking validator initialized successfully")

	return &BookingValidator{
		validate: v,
		logger:   log,
	}
}

// Validate checks any of the booking payloads (request, reschedule, status update).
func (v *BookingValidator) Validate(payload any) error {
	return validation.Struct(v.validate, payload)
}

// ValidateBooking additionally enforces the date/day invariant on a stored booking.
func (v *BookingValidator) ValidateBooking(b *model.Booking) error {
	if err := validation.Struct(v.validate, b); err != nil {
		return err
	}
	if b.StartTime >= b.EndTime {
		return validation.ValidationErrors{{Field: "end_time", Message: "end_time must be after start_time"}}
	}
	return nil
}
