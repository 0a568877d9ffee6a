package services

import "fmt"

// ValidationError is a 400 with a field-specific message.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func validationErrorf(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

type NotFoundError struct{ Message string }

func (e *NotFoundError) Error() string { return e.Message }

type UnauthorizedError struct{ Message string }

func (e *UnauthorizedError) Error() string { return e.Message }

type RateLimitError struct{ Message string }

func (e *RateLimitError) Error() string { return e.Message }

// UnsupportedMediaError is returned for uploads that are neither PDF nor DOCX.
type UnsupportedMediaError struct{ MediaType string }

func (e *UnsupportedMediaError) Error() string {
	return fmt.Sprintf("unsupported media type %q", e.MediaType)
}

// UpstreamError wraps a failure from the auth provider or another external
// dependency whose message is safe to show the caller.
type UpstreamError struct {
	Service string
	Status  int
	Message string
	Err     error
}

func (e *UpstreamError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Service, e.Err)
	}
	return fmt.Sprintf("%s request failed with status %d", e.Service, e.Status)
}

func (e *UpstreamError) Unwrap() error { return e.Err }
