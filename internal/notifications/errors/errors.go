package errors

import "errors"

var (
	ErrNotFound = errors.New("notification not found")

	ErrInvalidID = errors.New("invalid notification ID format")

	// ErrDuplicate means the notification for this event and recipient already exists.
	ErrDuplicate = errors.New("notification already recorded")

	ErrContactNotFound = errors.New("contact not found")
)
