// Package errs defines the error kinds surfaced at the HTTP boundary.
package errs

import "fmt"

// ErrInvalidPayload matches any *InvalidPayloadError via errors.Is.
var ErrInvalidPayload = &InvalidPayloadError{}

// InvalidPayloadError is returned when a webhook body cannot be parsed as JSON.
type InvalidPayloadError struct {
	Message string
	Err     error
}

func (e *InvalidPayloadError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "invalid payload"
}

func (e *InvalidPayloadError) Unwrap() error { return e.Err }

func (e *InvalidPayloadError) Is(target error) bool {
	_, ok := target.(*InvalidPayloadError)
	return ok
}

// NewInvalidPayload creates an InvalidPayloadError with a client-facing message.
func NewInvalidPayload(message string, cause error) *InvalidPayloadError {
	return &InvalidPayloadError{Message: message, Err: cause}
}

// ErrBackendUnavailable matches any *BackendUnavailableError via errors.Is.
var ErrBackendUnavailable = &BackendUnavailableError{}

// BackendUnavailableError wraps a failure of the log store backend.
type BackendUnavailableError struct {
	Op  string
	Err error
}

func (e *BackendUnavailableError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("backend unavailable: %v", e.Err)
	}
	return fmt.Sprintf("backend unavailable: %s: %v", e.Op, e.Err)
}

func (e *BackendUnavailableError) Unwrap() error { return e.Err }

func (e *BackendUnavailableError) Is(target error) bool {
	_, ok := target.(*BackendUnavailableError)
	return ok
}

// NewBackendUnavailable wraps err as a failure of store operation op.
func NewBackendUnavailable(op string, err error) *BackendUnavailableError {
	return &BackendUnavailableError{Op: op, Err: err}
}

// ErrUpstreamQuery matches any *UpstreamQueryError via errors.Is.
var ErrUpstreamQuery = &UpstreamQueryError{}

// UpstreamQueryError wraps a failed query against an external database.
// The detail is for logs only; callers see a generic message.
type UpstreamQueryError struct {
	Query string
	Err   error
}

func (e *UpstreamQueryError) Error() string {
	return fmt.Sprintf("upstream query %q failed: %v", e.Query, e.Err)
}

func (e *UpstreamQueryError) Unwrap() error { return e.Err }

func (e *UpstreamQueryError) Is(target error) bool {
	_, ok := target.(*UpstreamQueryError)
	return ok
}

// NewUpstreamQuery wraps err as a failure of the named query.
func NewUpstreamQuery(query string, err error) *UpstreamQueryError {
	return &UpstreamQueryError{Query: query, Err: err}
}
