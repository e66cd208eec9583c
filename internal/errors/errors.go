// Package errors defines the error taxonomy of the billing backend.
//
// Every error produced by the engine, the service layer and the repositories is
// marked with one of the sentinel markers below so callers can branch with
// errors.Is regardless of how many times the error was wrapped.
package errors

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

var (
	// ErrInvalidTemplate marks malformed contractual terms. Not recoverable.
	ErrInvalidTemplate = errors.New("invalid rate template")
	// ErrInvalidTotals marks negative or otherwise corrupt hour aggregates.
	ErrInvalidTotals = errors.New("invalid hour totals")
	// ErrInvalidState marks a billing-period state machine violation.
	ErrInvalidState = errors.New("invalid state")
	// ErrConcurrentModification marks a lost optimistic-lock race. Reload and retry.
	ErrConcurrentModification = errors.New("concurrent modification")

	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrValidation    = errors.New("validation error")
	ErrDatabase      = errors.New("database error")
	ErrSystem        = errors.New("system error")
)

// Error is the builder returned by NewError and WithError.
type Error struct {
	err     error
	hint    string
	details map[string]interface{}
}

// NewError starts a new error with the given message.
func NewError(msg string) *Error {
	return &Error{err: errors.NewWithDepth(1, msg)}
}

// NewErrorf starts a new error with a formatted message.
func NewErrorf(format string, args ...interface{}) *Error {
	return &Error{err: errors.NewWithDepthf(1, format, args...)}
}

// WithError starts a builder from an existing error.
func WithError(err error) *Error {
	return &Error{err: errors.WithStackDepth(err, 1)}
}

// WithHint attaches a user facing hint.
func (e *Error) WithHint(hint string) *Error {
	e.hint = hint
	e.err = errors.WithHint(e.err, hint)
	return e
}

// WithHintf attaches a formatted user facing hint.
func (e *Error) WithHintf(format string, args ...interface{}) *Error {
	return e.WithHint(fmt.Sprintf(format, args...))
}

// WithReportableDetails attaches structured context (ids, statuses, operation).
func (e *Error) WithReportableDetails(details map[string]interface{}) *Error {
	if e.details == nil {
		e.details = make(map[string]interface{}, len(details))
	}
	for k, v := range details {
		e.details[k] = v
	}
	return e
}

// Mark finalizes the builder, tagging the error with a sentinel marker.
func (e *Error) Mark(marker error) error {
	return &detailedError{
		cause:   errors.Mark(e.err, marker),
		hint:    e.hint,
		details: e.details,
	}
}

type detailedError struct {
	cause   error
	hint    string
	details map[string]interface{}
}

func (d *detailedError) Error() string { return d.cause.Error() }
func (d *detailedError) Unwrap() error { return d.cause }

// Details returns the reportable details attached to err, if any.
func Details(err error) map[string]interface{} {
	var d *detailedError
	if errors.As(err, &d) {
		return d.details
	}
	return nil
}

// Hint returns the first hint attached to err, or an empty string.
func Hint(err error) string {
	var d *detailedError
	if errors.As(err, &d) && d.hint != "" {
		return d.hint
	}
	if hints := errors.GetAllHints(err); len(hints) > 0 {
		return hints[0]
	}
	return ""
}

// NewInvalidStateError reports an operation attempted in the wrong lifecycle state.
func NewInvalidStateError(periodID int32, operation, current string, required ...string) error {
	return NewErrorf("cannot %s billing period %d in status %s (requires %v)", operation, periodID, current, required).
		WithHintf("Billing period is %s, %s requires %s", current, operation, strings.Join(required, " or ")).
		WithReportableDetails(map[string]interface{}{
			"period_id":       periodID,
			"operation":       operation,
			"current_status":  current,
			"required_status": required,
		}).
		Mark(ErrInvalidState)
}

// NewConcurrentModificationError reports a lost compare-and-swap on a period.
func NewConcurrentModificationError(periodID int32, operation string, expectedVersion int32) error {
	return NewErrorf("billing period %d was modified concurrently during %s", periodID, operation).
		WithHint("Billing period was changed by someone else, reload and try again").
		WithReportableDetails(map[string]interface{}{
			"period_id":        periodID,
			"operation":        operation,
			"expected_version": expectedVersion,
		}).
		Mark(ErrConcurrentModification)
}

func IsInvalidTemplate(err error) bool        { return errors.Is(err, ErrInvalidTemplate) }
func IsInvalidTotals(err error) bool          { return errors.Is(err, ErrInvalidTotals) }
func IsInvalidState(err error) bool           { return errors.Is(err, ErrInvalidState) }
func IsConcurrentModification(err error) bool { return errors.Is(err, ErrConcurrentModification) }
func IsNotFound(err error) bool               { return errors.Is(err, ErrNotFound) }
func IsAlreadyExists(err error) bool          { return errors.Is(err, ErrAlreadyExists) }
func IsValidation(err error) bool             { return errors.Is(err, ErrValidation) }
