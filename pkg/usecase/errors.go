package usecase

import (
	"errors"

	"github.com/m-mizutani/goerr/v2"
)

// Sentinel errors for use case layer. Every rejection wraps one of them and
// carries a human-readable reason under ReasonKey.
var (
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnavailable  = errors.New("storage unavailable")
)

// Context keys for error values
const (
	ReasonKey   = "reason"
	UserIDKey   = "user_id"
	ActionIDKey = "action_id"
	PlanIDKey   = "plan_id"
)

// reject builds a caller-facing error of the given kind
func reject(kind error, reason string, opts ...goerr.Option) error {
	return goerr.Wrap(kind, reason, append(opts, goerr.V(ReasonKey, reason))...)
}

// Invalid builds a validation error for input rejected outside the use
// cases, such as malformed request parameters.
func Invalid(reason string, opts ...goerr.Option) error {
	return reject(ErrValidation, reason, opts...)
}

// unavailable marks a storage failure so that it maps to ErrUnavailable
func unavailable(err error, msg string, opts ...goerr.Option) error {
	return goerr.Wrap(errors.Join(ErrUnavailable, err), msg, opts...)
}

// Reason returns the human-readable reason attached by a rejection, or ""
// when err carries none.
func Reason(err error) string {
	for e := err; e != nil; e = errors.Unwrap(e) {
		ge, ok := e.(*goerr.Error)
		if !ok {
			continue
		}
		if reason, ok := ge.Values()[ReasonKey].(string); ok {
			return reason
		}
	}
	return ""
}
