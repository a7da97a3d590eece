// Package failure defines the failure taxonomy shared by the checker, the
// generator and the regression runner.
//
// Every error that ends a test case maps to exactly one Class so callers can
// tell a stale fixture apart from a genuine regression or a crashing
// processor.
package failure

import (
	"errors"
	"fmt"
)

// Class is a stable failure category.
type Class string

const (
	// Fixture covers missing answer documents or raw resources.
	Fixture Class = "fixture"
	// Assertion covers a declared fact that did not hold.
	Assertion Class = "assertion"
	// Malformed covers invalid test data such as unknown match modes.
	Malformed Class = "malformed"
	// Processor covers errors and panics raised by the processor under test.
	Processor Class = "processor"
	// Generation covers failures while producing golden answer files.
	Generation Class = "generation"
)

// Error is the structured error type for all test case failures.
type Error struct {
	Class   Class
	Test    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Test != "" {
		msg = fmt.Sprintf("%s: %s", e.Test, msg)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s failure: %s: %v", e.Class, msg, e.Cause)
	}
	return fmt.Sprintf("%s failure: %s", e.Class, msg)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates an Error with a formatted message.
func New(class Class, test, format string, args ...any) *Error {
	return &Error{Class: class, Test: test, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error wrapping an existing error.
func Wrap(class Class, test, message string, cause error) *Error {
	return &Error{Class: class, Test: test, Message: message, Cause: cause}
}

// ClassOf reports the class of err, or "" when err carries none.
func ClassOf(err error) Class {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Class
	}
	return ""
}

// Is reports whether err carries the given class.
func Is(err error, class Class) bool {
	return err != nil && ClassOf(err) == class
}
