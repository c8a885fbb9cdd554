package errors

import "errors"

var (
	ErrNotFound = errors.New("teacher not found")

	ErrInvalidID = errors.New("invalid teacher ID format")

	ErrSlotsAlreadyAssigned = errors.New("slots already assigned for day")

	ErrDuplicateEmail = errors.New("teacher email already registered")
)
