package model

import (
	"errors"
	"fmt"
)

var (
	ErrAccessDenied   = errors.New("access denied")
	ErrNotFound       = errors.New("not found")
	ErrValidation     = errors.New("validation failed")
	ErrHasDependents  = errors.New("dependent records exist")
	ErrConflict       = errors.New("already exists")
	ErrDeliveryFailed = errors.New("delivery failed")

	ErrNotOwner     = fmt.Errorf("%w: you do not own this account", ErrAccessDenied)
	ErrUserNotFound = fmt.Errorf("user %w", ErrNotFound)
)

func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
