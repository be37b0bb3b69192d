package models

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure so callers can react without parsing messages.
type Kind string

const (
	KindInvalidInput         Kind = "invalid_input"
	KindInvalidConfiguration Kind = "invalid_configuration"
	KindNotFound             Kind = "not_found"
	KindExtraction           Kind = "extraction_error"
	KindEmptyInput           Kind = "empty_input"
	KindEmbedding            Kind = "embedding_error"
	KindUpstream             Kind = "upstream_error"
	KindNotConfigured        Kind = "not_configured"
	KindInternal             Kind = "internal_error"
)

// Sentinel errors for use with errors.Is. Any *Error of the same kind matches.
var (
	ErrInvalidInput         = &Error{Kind: KindInvalidInput, Message: "invalid input"}
	ErrInvalidConfiguration = &Error{Kind: KindInvalidConfiguration, Message: "invalid configuration"}
	ErrNotFound             = &Error{Kind: KindNotFound, Message: "not found"}
	ErrExtraction           = &Error{Kind: KindExtraction, Message: "text extraction failed"}
	ErrEmptyInput           = &Error{Kind: KindEmptyInput, Message: "empty input"}
	ErrEmbedding            = &Error{Kind: KindEmbedding, Message: "embedding failed"}
	ErrUpstream             = &Error{Kind: KindUpstream, Message: "language model request failed"}
	ErrNotConfigured        = &Error{Kind: KindNotConfigured, Message: "language model credential not configured"}
)

// Error is the typed failure returned by every core operation.
type Error struct {
	Kind    Kind
	Message string
	// Status is the HTTP status reported by an upstream provider, 0 if none.
	Status int
	// Timeout is set when the upstream call ran out of time.
	Timeout bool
	Err     error
}

// NewError creates an error of the given kind.
func NewError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError creates an error of the given kind that wraps err.
func WrapError(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// IsAuth reports whether the upstream rejected the configured credentials.
func (e *Error) IsAuth() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

// Temporary reports whether retrying the same request later may succeed.
func (e *Error) Temporary() bool {
	if e.Timeout {
		return true
	}
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// KindOf returns the kind of err, or KindInternal for untyped errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
