package errors

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// InternalError is the concrete error type produced by this package. It
// carries a developer message, an operator-facing hint, optional structured
// details, and a sentinel mark used for classification.
type InternalError struct {
	cause   error
	hint    string
	details map[string]interface{}
	mark    error
}

func (e *InternalError) Error() string {
	return e.cause.Error()
}

// Unwrap exposes both the cause chain and the sentinel mark so errors.Is
// works against either.
func (e *InternalError) Unwrap() []error {
	if e.mark != nil {
		return []error{e.cause, e.mark}
	}
	return []error{e.cause}
}

// Hint returns the operator-facing hint, if any.
func (e *InternalError) Hint() string {
	return e.hint
}

// Details returns the reportable details attached to the error.
func (e *InternalError) Details() map[string]interface{} {
	return e.details
}

// Builder accumulates error context before the terminal Mark call.
type Builder struct {
	err *InternalError
}

// NewError starts a new error with the given message.
func NewError(message string) *Builder {
	return &Builder{err: &InternalError{cause: errors.New(message)}}
}

// NewErrorf starts a new error with a formatted message.
func NewErrorf(format string, args ...interface{}) *Builder {
	return &Builder{err: &InternalError{cause: errors.Newf(format, args...)}}
}

// WithError starts a builder wrapping an existing error.
func WithError(err error) *Builder {
	if err == nil {
		err = errors.New("unknown error")
	}
	return &Builder{err: &InternalError{cause: err}}
}

// WithHint attaches a human-readable hint describing how to resolve the
// failure.
func (b *Builder) WithHint(hint string) *Builder {
	b.err.hint = hint
	return b
}

// WithHintf attaches a formatted hint.
func (b *Builder) WithHintf(format string, args ...interface{}) *Builder {
	b.err.hint = fmt.Sprintf(format, args...)
	return b
}

// WithReportableDetails attaches structured details safe to surface to
// operators and API consumers.
func (b *Builder) WithReportableDetails(details map[string]interface{}) *Builder {
	b.err.details = details
	return b
}

// Mark classifies the error with one of the package sentinels and returns
// the finished error.
func (b *Builder) Mark(sentinel error) error {
	b.err.mark = sentinel
	return b.err
}

// Hint extracts the hint from an error produced by this package.
func Hint(err error) string {
	var ie *InternalError
	if errors.As(err, &ie) {
		return ie.Hint()
	}
	return ""
}

// Details extracts reportable details from an error produced by this
// package.
func Details(err error) map[string]interface{} {
	var ie *InternalError
	if errors.As(err, &ie) {
		return ie.Details()
	}
	return nil
}
