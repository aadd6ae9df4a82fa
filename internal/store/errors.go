package store

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the requested row or object does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrDuplicate is returned when a write violates a uniqueness constraint.
	ErrDuplicate = errors.New("store: duplicate entry")
)

// DuplicateError names the form field whose uniqueness constraint was violated.
type DuplicateError struct {
	Field string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("store: duplicate %s", e.Field)
}

func (e *DuplicateError) Is(target error) bool {
	return target == ErrDuplicate
}
