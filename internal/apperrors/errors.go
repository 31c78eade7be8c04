// Package apperrors holds the sentinel errors shared across studylog's layers.
package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrStorage    = errors.New("storage failure")

	ErrNotRunning        = errors.New("timer is not running")
	ErrAlreadyRunning    = errors.New("timer is already running")
	ErrNoSession         = errors.New("no session in progress")
	ErrSessionInProgress = errors.New("session already in progress")
	ErrAwaitingRating    = errors.New("session is awaiting a rating")
)

// Validation returns an error wrapping ErrValidation with a user-facing message.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFound returns an error wrapping ErrNotFound for the named entity.
func NotFound(entity, id string) error {
	return fmt.Errorf("%s %q: %w", entity, id, ErrNotFound)
}

// Storage wraps err as a storage failure, keeping the original cause in the chain.
func Storage(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}
