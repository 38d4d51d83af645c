package model

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated is returned when the request carries no valid session.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden is returned when the actor lacks the role or ownership required.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound is returned when the target resource does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalid signals malformed input.
	ErrInvalid = errors.New("invalid argument")
	// ErrConflict signals a uniqueness violation.
	ErrConflict = errors.New("conflict")

	ErrUserNotFound     = fmt.Errorf("user %w", ErrNotFound)
	ErrCustomerNotFound = fmt.Errorf("customer %w", ErrNotFound)
	ErrMeetingNotFound  = fmt.Errorf("meeting %w", ErrNotFound)
	ErrEmailExists      = fmt.Errorf("%w: a user with this email already exists", ErrConflict)
	ErrCustomerExists   = fmt.Errorf("%w: customer with this name already exists", ErrConflict)
	ErrBadCredentials   = fmt.Errorf("%w: invalid credentials", ErrUnauthenticated)
	ErrUnknownCustomer  = fmt.Errorf("%w: unknown customer", ErrInvalid)
)

// Invalidf wraps ErrInvalid with a formatted message.
func Invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...)
}
