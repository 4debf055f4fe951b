package errors

import (
	"errors"
	"fmt"
)

// Common error types for the catalog auth gateway
var (
	// Request errors
	ErrInvalidRequest = errors.New("invalid request")
	ErrDecode         = errors.New("state decode failed")

	// Outbound call errors
	ErrRemoteCall        = errors.New("remote call failed")
	ErrRecipientNotFound = errors.New("recipient not found")
	ErrProtocolViolation = errors.New("protocol violation")

	// Session errors
	ErrInvalidSession = errors.New("invalid session")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
