package errors

import (
	"errors"
	"fmt"
)

// Common error types for the vocabulary client
var (
	// Authentication errors
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrValidation           = errors.New("validation failed")
	ErrAlreadyAuthenticated = errors.New("already authenticated")

	// Session errors
	ErrSessionExpired = errors.New("session expired")

	// Transport errors
	ErrNetwork         = errors.New("network error")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrNotFound        = errors.New("not found")
	ErrHTTP            = errors.New("http error")
	ErrInvalidResponse = errors.New("invalid response format")

	// Store errors
	ErrStoreUnavailable = errors.New("token store unavailable")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Join returns an error that wraps the given errors, nil entries are discarded
func Join(errs ...error) error {
	return errors.Join(errs...)
}
