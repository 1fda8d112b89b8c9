// Package apperror defines the error kinds shared by every layer of the service.
//
// Services return *AppError values wrapping one of the sentinel errors below.
// HTTP handlers use errors.Is on the sentinel to pick a status code and show
// AppError.Message to the user; anything else becomes a generic 500.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrUnavailable  = errors.New("unavailable")
)

type AppError struct {
	Err     error  // sentinel kind
	Message string // human-readable error message
	Field   string // optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unavailable reports that a collaborator (LLM, voice vendor) is not
// configured or not reachable right now.
func Unavailable(message string) *AppError {
	return &AppError{
		Err:     ErrUnavailable,
		Message: message,
	}
}

// === IDENTITY ERRORS ===
// Sign-up and sign-in failures collapse into these four user-facing kinds.

// InvalidCredentials is returned when the email/password pair does not match,
// or when a session token cannot be verified.
func InvalidCredentials() *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: "Invalid email or password",
	}
}

// EmailInUse is returned by sign-up when an account already owns the address.
func EmailInUse() *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: "The Email is already in use",
		Field:   "email",
	}
}

// WeakPassword is returned when a password does not meet the minimum length.
func WeakPassword(minLength int) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: fmt.Sprintf("Password must be at least %d characters", minLength),
		Field:   "password",
	}
}

// UserNotFound is returned by sign-in when no account exists for the email.
func UserNotFound() *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: "User does not exist. Create an account now",
	}
}
