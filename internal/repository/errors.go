package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrConflict is returned when a conditional status update finds the
	// entity in a different status than expected.
	ErrConflict = errors.New("status conflict")
)
