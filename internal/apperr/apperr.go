// Package apperr tags errors with the condition callers branch on.
package apperr

import "errors"

// Kind is the condition an error represents.
type Kind string

const (
	KindInternal        Kind = "INTERNAL"
	KindNotFound        Kind = "NOT_FOUND"
	KindInvalidArgument Kind = "INVALID_ARGUMENT"
	KindUnavailable     Kind = "UNAVAILABLE"
	KindRateLimited     Kind = "RATE_LIMITED"
)

// Error carries a kind, a message safe to show callers, identifying
// metadata and the underlying cause for logs.
type Error struct {
	Kind     Kind
	Message  string
	Metadata map[string]any
	Cause    error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches another *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func New(kind Kind, msg string, md map[string]any) *Error {
	return &Error{Kind: kind, Message: msg, Metadata: md}
}

func Wrap(kind Kind, msg string, md map[string]any, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Metadata: md, Cause: cause}
}

func NotFound(msg string, md map[string]any) *Error {
	return New(KindNotFound, msg, md)
}

func Invalid(msg string, md map[string]any) *Error {
	return New(KindInvalidArgument, msg, md)
}

func Internal(msg string, cause error) *Error {
	return Wrap(KindInternal, msg, nil, cause)
}

// KindOf returns the kind of the first *Error in err's chain, or
// KindInternal when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsPassThrough reports whether err is a caller-facing condition that
// pipelines return untouched instead of wrapping as internal.
func IsPassThrough(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	switch e.Kind {
	case KindNotFound, KindInvalidArgument, KindRateLimited, KindUnavailable:
		return true
	}
	return false
}
