// Package matcherr defines the engine's error taxonomy: abstract kinds
// rather than exception types, per spec.md §7. Query APIs return these
// directly; the resolution pipeline logs and drops the non-fatal kinds
// (UnknownReference) to preserve at-least-some-progress for slightly
// malformed rulesets, while fatal kinds (ResolutionOverflow, Internal,
// MalformedRuleset) halt the match and mark it ended.
//
// Grounded on the teacher's StepsExceededError (internal/engine/quota.go)
// and cycle-error pattern: a typed struct implementing error plus a
// RuntimeError() string discriminator that ruleset-facing error-handling
// code can match on without reflecting over concrete types.
package matcherr

import (
	"errors"
	"fmt"
)

// Kind is the closed set of abstract error categories from spec.md §7.
type Kind string

const (
	MalformedRuleset  Kind = "MalformedRuleset"
	InvalidAction     Kind = "InvalidAction"
	InputMismatch     Kind = "InputMismatch"
	UnknownReference  Kind = "UnknownReference"
	ResolutionOverflow Kind = "ResolutionOverflow"
	Internal          Kind = "Internal"
)

// Error is the concrete error type every matcherr constructor returns.
// It wraps an optional underlying cause and reports a Kind so callers
// can branch with Is/As instead of string matching.
type Error struct {
	kind    Kind
	message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.kind, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.kind, e.message)
}

// Unwrap exposes the underlying cause for errors.Is/errors.As chains.
func (e *Error) Unwrap() error { return e.cause }

// Kind returns the error's abstract category.
func (e *Error) Kind() Kind { return e.kind }

// RuntimeError returns the kind as a bare string, for ruleset-facing
// error-handling rules that need to match on error type without a Go
// type assertion (mirrors the teacher's StepsExceededError.RuntimeError).
func (e *Error) RuntimeError() string { return string(e.kind) }

func newErr(k Kind, format string, args ...any) *Error {
	return &Error{kind: k, message: fmt.Sprintf(format, args...)}
}

func wrapErr(k Kind, cause error, format string, args ...any) *Error {
	return &Error{kind: k, message: fmt.Sprintf(format, args...), cause: cause}
}

// NewMalformedRuleset reports a schema violation detected at load time.
func NewMalformedRuleset(format string, args ...any) *Error {
	return newErr(MalformedRuleset, format, args...)
}

// NewInvalidAction reports a precondition/cost/targeting failure. No
// state mutation and no event is emitted for an invalid action.
func NewInvalidAction(format string, args ...any) *Error {
	return newErr(InvalidAction, format, args...)
}

// NewInputMismatch reports that submit_input's answers fail the pending
// input's constraints. The caller may retry with corrected answers.
func NewInputMismatch(format string, args ...any) *Error {
	return newErr(InputMismatch, format, args...)
}

// NewUnknownReference reports that an event, reaction, rule, or
// component id was not found in its registry at resolution time. The
// offending stack item is dropped; resolution continues.
func NewUnknownReference(format string, args ...any) *Error {
	return newErr(UnknownReference, format, args...)
}

// NewResolutionOverflow reports that the recursion depth or
// state-watcher iteration cap was exceeded. The match transitions to a
// failed state and accepts no further actions.
func NewResolutionOverflow(format string, args ...any) *Error {
	return newErr(ResolutionOverflow, format, args...)
}

// WrapInternal reports an invariant violation, wrapping the underlying
// cause. Fatal for the match.
func WrapInternal(cause error, format string, args ...any) *Error {
	return wrapErr(Internal, cause, format, args...)
}

// NewInternal reports an invariant violation with no underlying cause.
func NewInternal(format string, args ...any) *Error {
	return newErr(Internal, format, args...)
}

// Is reports whether err is a matcherr.Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.kind == kind
}

// Fatal reports whether a kind halts the match (MalformedRuleset,
// ResolutionOverflow, Internal) versus being recoverable per-call
// (InvalidAction, InputMismatch) or drop-and-continue (UnknownReference).
func Fatal(kind Kind) bool {
	switch kind {
	case MalformedRuleset, ResolutionOverflow, Internal:
		return true
	default:
		return false
	}
}
