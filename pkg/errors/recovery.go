// Package errors provides error handling utilities for glsfit.
//
// This file contains panic recovery utilities. gonum's mat package reports
// shape violations by panicking; estimation entry points convert those
// panics into structured errors instead of crashing the caller.

package errors

import (
	"fmt"
	"runtime/debug"

	"gonum.org/v1/gonum/mat"
)

// PanicError represents an error that was created from a recovered panic.
type PanicError struct {
	// PanicValue is the original value passed to panic()
	PanicValue interface{}

	// StackTrace contains the stack trace at the time of panic
	StackTrace string

	// Operation identifies where the panic was recovered
	Operation string
}

// Error implements the error interface for PanicError.
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic in %s: %v", e.Operation, e.PanicValue)
}

// String provides detailed information including stack trace.
func (e *PanicError) String() string {
	return fmt.Sprintf("panic in %s: %v\nStack trace:\n%s",
		e.Operation, e.PanicValue, e.StackTrace)
}

// NewPanicError creates a new PanicError with the given operation context and panic value.
func NewPanicError(operation string, panicValue interface{}) *PanicError {
	return &PanicError{
		PanicValue: panicValue,
		StackTrace: string(debug.Stack()),
		Operation:  operation,
	}
}

// Recover is used with defer to convert panics into errors.
//
// gonum shape panics (mat.ErrShape and friends) become a ValueError tagged
// with the operation so that callers see a regular InvalidArgument; any other
// panic becomes a PanicError carrying the stack.
//
// Usage:
//
//	func (m *Model) Fit(y mat.Vector) (res *Results, err error) {
//	    defer errors.Recover(&err, "Model.Fit")
//	    ...
//	}
func Recover(err *error, operation string) {
	r := recover()
	if r == nil {
		return
	}

	var recovered error
	switch v := r.(type) {
	case mat.Error:
		recovered = NewValueError(operation, v.Error())
	default:
		recovered = NewPanicError(operation, r)
	}

	if *err != nil {
		*err = fmt.Errorf("panic in %s: %v (original error: %w)", operation, r, *err)
		return
	}
	*err = recovered
}

// SafeExecute executes fn and converts any panic into an error.
func SafeExecute(operation string, fn func() error) (err error) {
	defer Recover(&err, operation)
	return fn()
}
