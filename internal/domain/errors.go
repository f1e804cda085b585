package domain

import (
	"errors"
	"net/http"
)

// Kind classifies a domain failure. Handlers map kinds to HTTP statuses and
// safe messages; services never pick status codes themselves.
type Kind int

const (
	KindAuthentication Kind = iota + 1
	KindAuthorization
	KindValidation
	KindRateLimit
	KindNotFound
	KindConflict
	KindState
	KindInternal
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func E(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Authentication(message string) *Error { return E(KindAuthentication, message) }
func Authorization(message string) *Error  { return E(KindAuthorization, message) }
func Validation(message string) *Error     { return E(KindValidation, message) }
func NotFound(message string) *Error       { return E(KindNotFound, message) }
func Conflict(message string) *Error       { return E(KindConflict, message) }
func State(message string) *Error          { return E(KindState, message) }

// KindOf returns the classification of err, or KindInternal for anything that
// is not a domain error.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// StatusCode maps a failure to its HTTP status.
func StatusCode(err error) int {
	switch KindOf(err) {
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindValidation:
		return http.StatusBadRequest
	case KindRateLimit:
		return http.StatusTooManyRequests
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindState:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// SafeMessage returns the client-facing message for err. Internal failures
// are collapsed to a generic message so implementation details never leak.
func SafeMessage(err error) string {
	var de *Error
	if errors.As(err, &de) && de.Kind != KindInternal {
		return de.Message
	}
	return "Something went wrong. Please try again later."
}
