package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	ErrInvalidID = errors.New("invalid booking ID format")

	// ErrSlotTaken is returned when the unique slot key index rejects a write.
	ErrSlotTaken = errors.New("slot already booked for this date")

	ErrSlotLocked = errors.New("slot is being booked by another request")

	ErrCancelled = errors.New("booking is cancelled")
)
