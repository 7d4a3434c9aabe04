package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind is the machine-readable tag reported to Micropub clients.
type ErrorKind string

const (
	KindUnauthorized         ErrorKind = "unauthorized"
	KindForbidden            ErrorKind = "forbidden"
	KindInvalidRequest       ErrorKind = "invalid_request"
	KindUnsupportedMediaType ErrorKind = "unsupported_media_type"
	KindInvalidURL           ErrorKind = "invalid_url"
	KindUnsupportedAction    ErrorKind = "unsupported_action"
	KindUnsupportedQuery     ErrorKind = "unsupported_query"
	KindNotFound             ErrorKind = "not_found"
	KindAlreadyDeleted       ErrorKind = "already_deleted"
	KindNotDeleted           ErrorKind = "not_deleted"
	KindStoreError           ErrorKind = "store_error"
	KindUpstreamAuthFailure  ErrorKind = "upstream_auth_failure"
)

// Status returns the HTTP status code for the error kind.
func (k ErrorKind) Status() int {
	switch k {
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindStoreError, KindUpstreamAuthFailure:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// Error is a Micropub error with a kind tag and a human-readable description.
type Error struct {
	Kind        ErrorKind
	Description string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Description)
}

// NewError builds an *Error with a formatted description.
func NewError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Description: fmt.Sprintf(format, args...)}
}

// StoreError reports a fault from the content hosting API.
type StoreError struct {
	Status  int
	Message string
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store failed with status %d: %s", e.Status, e.Message)
}

// ErrNotFound is returned by a PostStore when the requested path does not exist.
var ErrNotFound = errors.New("not found")

// AsError converts any error into an *Error suitable for a client response.
// Store faults become store_error, missing files become not_found, and
// anything unrecognised is reported as a store_error as well.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	if errors.Is(err, ErrNotFound) {
		return &Error{Kind: KindNotFound, Description: "no post matches the given URL"}
	}
	var se *StoreError
	if errors.As(err, &se) {
		return &Error{Kind: KindStoreError, Description: se.Error()}
	}
	return &Error{Kind: KindStoreError, Description: err.Error()}
}
