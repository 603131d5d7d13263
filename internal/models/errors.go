package models

import (
	"errors"
	"fmt"
)

// Error kinds shared by the store, services and handlers.
// Wrap them with fmt.Errorf("%w: ...") and test with errors.Is.
var (
	ErrValidation         = errors.New("validation failed")
	ErrAnalysisFailed     = errors.New("interaction analysis failed")
	ErrNotFound           = errors.New("not found")
	ErrPersistence        = errors.New("persistence failure")
	ErrInvalidTransition  = errors.New("invalid quest status transition")
	ErrDuplicateMilestone = errors.New("milestone quest already pending")
	ErrConflict           = errors.New("resource already exists")
	ErrUnauthorized       = errors.New("unauthorized")
)

// Validationf wraps ErrValidation with a formatted reason.
func Validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFoundf wraps ErrNotFound with a formatted reason.
func NotFoundf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// Persistence wraps a storage error so callers can match ErrPersistence
// while keeping the driver error in the chain.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrDuplicateMilestone) || errors.Is(err, ErrConflict) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}
