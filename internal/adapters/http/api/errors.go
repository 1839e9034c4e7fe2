package api

import (
	"errors"
	"net/http"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
	ErrForbidden  = errors.New("forbidden")
	ErrNotFound   = errors.New("not found")
	ErrStorage    = errors.New("storage unavailable")
)

// Error carries the failing operation, its kind and the underlying cause.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Op + ": " + e.Kind.Error()
	}
	return e.Op + ": " + e.Kind.Error() + ": " + e.Err.Error()
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// WrapKind tags err with kind for operation op.
func WrapKind(op string, kind, err error) error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// NewKind creates an error of kind for operation op without a cause.
func NewKind(op string, kind error) error {
	return &Error{Op: op, Kind: kind}
}

// statusOf maps an error to its HTTP status and response code.
func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, "not_found"
	default:
		return http.StatusInternalServerError, "storage_unavailable"
	}
}

// messageOf returns the client-facing message: the cause's text for client
// errors, the status text when there is no cause. Server-side causes are not
// exposed.
func messageOf(err error, status int) string {
	if status >= http.StatusInternalServerError {
		return ErrStorage.Error()
	}
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Err != nil {
		return apiErr.Err.Error()
	}
	return http.StatusText(status)
}
