// Package errors defines the sentinel error taxonomy shared by the auth
// service. Handlers classify these into HTTP status codes; services wrap them
// with fmt.Errorf("...: %w", err) to add call-site context.
package errors

import (
	"errors"
	"fmt"
)

var (
	// Generic errors.
	ErrInternal    = errors.New("internal server error")
	ErrNotFound    = errors.New("resource not found")
	ErrConflict    = errors.New("resource already exists")
	ErrForbidden   = errors.New("forbidden")
	ErrRateLimited = errors.New("too many requests")

	// Credential errors. All single-use or time-boxed credentials (magic
	// links, refresh tokens, device trust) collapse into the same external
	// error so callers cannot probe which condition failed.
	ErrInvalidOrExpiredCredential = errors.New("invalid or expired credential")
	ErrTokenExpired               = errors.New("token expired")
	ErrTokenRevoked               = errors.New("token revoked")
	ErrDeviceMismatch             = errors.New("device does not match token binding")
	ErrUnauthorized               = errors.New("unauthorized")

	// Second-factor errors.
	ErrWrongSecondFactor = errors.New("second factor code is incorrect")
	ErrAttemptsExceeded  = errors.New("too many failed attempts, start a new flow")
	ErrWrongFlow         = errors.New("session belongs to a different flow")
	ErrTwoFAAlreadySetup = errors.New("two-factor authentication already enabled")
	ErrTwoFANotEnabled   = errors.New("two-factor authentication not enabled")

	// Identity errors.
	ErrIdentityNotFound = errors.New("identity not found")
	ErrIdentityDisabled = errors.New("identity disabled")
)

// AppError carries a user-facing message and an API error code alongside the
// wrapped cause.
type AppError struct {
	Err     error
	Message string
	Code    string
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// NewAppError creates a new application error.
func NewAppError(err error, message, code string) *AppError {
	return &AppError{Err: err, Message: message, Code: code}
}

// sentinels, most specific first; Message scans them in order.
var sentinels = []error{
	ErrInvalidOrExpiredCredential,
	ErrTokenExpired,
	ErrTokenRevoked,
	ErrDeviceMismatch,
	ErrUnauthorized,
	ErrWrongSecondFactor,
	ErrAttemptsExceeded,
	ErrWrongFlow,
	ErrTwoFAAlreadySetup,
	ErrTwoFANotEnabled,
	ErrIdentityNotFound,
	ErrIdentityDisabled,
	ErrForbidden,
	ErrRateLimited,
	ErrConflict,
	ErrNotFound,
}

// Message returns the user-facing text of the sentinel err wraps. Context
// added at call sites with fmt.Errorf never reaches the caller.
func Message(err error) string {
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return ErrInternal.Error()
}

// IsNotFound reports whether err should map to a 404.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrIdentityNotFound)
}

// IsUnauthorized reports whether err should map to a 401.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrInvalidOrExpiredCredential) ||
		errors.Is(err, ErrTokenExpired) ||
		errors.Is(err, ErrTokenRevoked) ||
		errors.Is(err, ErrWrongSecondFactor) ||
		errors.Is(err, ErrDeviceMismatch)
}

// IsForbidden reports whether err should map to a 403.
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrAttemptsExceeded) ||
		errors.Is(err, ErrIdentityDisabled)
}

// IsConflict reports whether err should map to a 409.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict) || errors.Is(err, ErrTwoFAAlreadySetup)
}

// IsBadRequest reports whether err should map to a 400.
func IsBadRequest(err error) bool {
	return errors.Is(err, ErrWrongFlow) || errors.Is(err, ErrTwoFANotEnabled)
}
