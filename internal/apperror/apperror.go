// Package apperror defines the error kinds services return and the HTTP
// boundary translates into responses.
package apperror

import (
	"errors"
	"net/http"
)

// Kind classifies an error for the HTTP boundary.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindDomain
	KindConflict
	KindRateLimited
	KindDependency
)

// Error is a classified, user-facing error. Message is safe to return to
// clients; Err is the underlying cause and is only logged.
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

// Is matches another *Error with the same kind and message, so package level
// sentinels work with errors.Is after wrapping.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == e.Message
}

// Wrap returns a copy of e carrying cause.
func (e *Error) Wrap(cause error) *Error {
	return &Error{Kind: e.Kind, Message: e.Message, Err: cause}
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func NewValidation(message string) *Error     { return New(KindValidation, message) }
func NewAuthentication(message string) *Error { return New(KindAuthentication, message) }
func NewAuthorization(message string) *Error  { return New(KindAuthorization, message) }
func NewNotFound(message string) *Error       { return New(KindNotFound, message) }
func NewDomain(message string) *Error         { return New(KindDomain, message) }
func NewConflict(message string) *Error       { return New(KindConflict, message) }

// NewDependency classifies a failure of the database, email or media service.
func NewDependency(message string, cause error) *Error {
	return &Error{Kind: KindDependency, Message: message, Err: cause}
}

// StatusCode maps a kind to its HTTP status.
func (k Kind) StatusCode() int {
	switch k {
	case KindValidation, KindDomain, KindConflict, KindAuthorization:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// KindOf returns the kind of err, KindInternal when unclassified.
func KindOf(err error) Kind {
	if appErr, ok := As(err); ok {
		return appErr.Kind
	}
	return KindInternal
}
