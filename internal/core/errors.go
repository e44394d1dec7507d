package core

import (
	"errors"
	"fmt"
)

// Error kinds. Every error surfaced by the stores and services wraps exactly one
// of these so the HTTP layer can map it to a status code with errors.Is.
var (
	ErrValidation = errors.New("validation failed")
	ErrAuth       = errors.New("authentication required")
	ErrForbidden  = errors.New("invalid or expired token")
	ErrConflict   = errors.New("already exists")
	ErrNotFound   = errors.New("not found")
)

var (
	ErrEmptyUsername    = fmt.Errorf("%w: username is required", ErrValidation)
	ErrEmptyPassword    = fmt.Errorf("%w: password is required", ErrValidation)
	ErrInvalidType      = fmt.Errorf("%w: invalid transaction type", ErrValidation)
	ErrInvalidDate      = fmt.Errorf("%w: invalid date", ErrValidation)
	ErrInvalidAmount    = fmt.Errorf("%w: invalid amount", ErrValidation)
	ErrEmptyDescription = fmt.Errorf("%w: empty description", ErrValidation)
	ErrEmptyAccount     = fmt.Errorf("%w: empty account", ErrValidation)
	ErrDescriptionLong  = fmt.Errorf("%w: description too long (max 255 characters)", ErrValidation)
)

// MissingFieldsError reports required request fields that were absent.
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return fmt.Sprintf("missing required fields: %v", e.Fields)
}

func (e *MissingFieldsError) Unwrap() error { return ErrValidation }
