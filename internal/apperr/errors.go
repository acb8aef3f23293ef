// Package apperr defines the error kinds shared by every layer of the
// service. Lower layers classify a failure once by returning an *Error;
// the HTTP boundary translates the kind into a status code.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies a failure.
type Kind int

const (
	// KindUnknown marks errors that were never classified.
	KindUnknown Kind = iota
	// KindValidation is a missing or malformed input field.
	KindValidation
	// KindAuth is a missing, malformed or invalid bearer token.
	KindAuth
	// KindOperation is a backend rejection (constraint violation, bad
	// old password, connectivity). It carries the backend message.
	KindOperation
	// KindNotFound is a record that is genuinely absent.
	KindNotFound
	// KindConfiguration is missing runtime configuration such as the
	// signing secret or connection string.
	KindConfiguration
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuth:
		return "auth"
	case KindOperation:
		return "operation"
	case KindNotFound:
		return "not_found"
	case KindConfiguration:
		return "configuration"
	default:
		return "unknown"
	}
}

// Status returns the HTTP status for the kind. Unknown errors map to 400
// because existing clients treat every uncaught failure as a bad request.
func (k Kind) Status() int {
	switch k {
	case KindAuth:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindConfiguration:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// Error is a classified failure. Message is safe to return to clients.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same kind with either no
// message or the same message, so sentinels like ErrNotFound match any
// not-found error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// Sentinels for errors.Is checks.
var (
	ErrValidation    = &Error{Kind: KindValidation}
	ErrAuth          = &Error{Kind: KindAuth}
	ErrOperation     = &Error{Kind: KindOperation}
	ErrNotFound      = &Error{Kind: KindNotFound}
	ErrConfiguration = &Error{Kind: KindConfiguration}
)

func Validation(msg string) error { return &Error{Kind: KindValidation, Message: msg} }

func Auth(msg string) error { return &Error{Kind: KindAuth, Message: msg} }

func NotFound(msg string) error { return &Error{Kind: KindNotFound, Message: msg} }

func Configuration(msg string) error { return &Error{Kind: KindConfiguration, Message: msg} }

// Operation wraps a backend failure. When msg is empty the backend
// error text becomes the client-facing message.
func Operation(msg string, err error) error {
	if msg == "" && err != nil {
		msg = err.Error()
	}
	return &Error{Kind: KindOperation, Message: msg, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
