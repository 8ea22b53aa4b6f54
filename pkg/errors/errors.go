// Package errors provides structured error handling for Stratus with
// error categorization, key-value context, and stack capture. It keeps
// error handling consistent across the configuration store, the
// warehouse client, and the API layer.
//
// Errors are classified by Type so that callers can branch on the
// category rather than on message text:
//
//	cfg, err := config.New(path)
//	if errors.IsType(err, errors.TypeNotFound) {
//	    // recovery path: write a default document and retry
//	}
package errors

import (
	"errors"
	"fmt"
	"runtime"
)

// Type categorizes an error for handling strategies and API response
// mapping.
type Type string

const (
	// TypeNotFound covers a missing config file and lookups of absent
	// data sources or pipeline stages.
	TypeNotFound Type = "not_found"
	// TypeMalformed covers unparsable configuration documents.
	TypeMalformed Type = "malformed"
	// TypeSchema covers missing mandatory sections and unrecognized
	// fields in strictly mapped records.
	TypeSchema Type = "schema"
	// TypeEnvironment covers missing required environment variables.
	TypeEnvironment Type = "environment"
	// TypeConfig covers other configuration handling failures, such as
	// a failed persist after an update.
	TypeConfig Type = "config"
	// TypeConnection covers warehouse connectivity failures.
	TypeConnection Type = "connection"
	// TypeQuery covers warehouse query failures.
	TypeQuery Type = "query"
	// TypeValidation covers invalid caller input.
	TypeValidation Type = "validation"
	// TypeInternal covers everything else.
	TypeInternal Type = "internal"
)

// Error is a structured error with a category, optional cause, and
// key-value details.
type Error struct {
	Type    Type
	Message string
	Cause   error
	Details map[string]interface{}
	Stack   []Frame
}

// Frame is a single captured call-stack frame.
type Frame struct {
	Function string
	File     string
	Line     int
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause, enabling errors.Is / errors.As
// over the chain.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail attaches a key-value detail and returns the error for
// chaining.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates an error of the given type, capturing the call stack at
// the creation point.
func New(errType Type, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Stack:   captureStack(2),
	}
}

// Newf creates an error with a formatted message.
func Newf(errType Type, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
		Stack:   captureStack(2),
	}
}

// Wrap wraps an existing error with a type and message, preserving the
// original as the cause. Returns nil when err is nil. If err is already
// a structured Error its stack is kept.
func Wrap(err error, errType Type, message string) *Error {
	if err == nil {
		return nil
	}

	var existing *Error
	if errors.As(err, &existing) {
		return &Error{
			Type:    errType,
			Message: message,
			Cause:   err,
			Stack:   existing.Stack,
		}
	}

	return &Error{
		Type:    errType,
		Message: message,
		Cause:   err,
		Stack:   captureStack(2),
	}
}

// IsType reports whether err is a structured Error of the given type.
func IsType(err error, errType Type) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Type == errType
}

// TypeOf returns the type of a structured error, or TypeInternal for
// any other error.
func TypeOf(err error) Type {
	var e *Error
	if !errors.As(err, &e) {
		return TypeInternal
	}
	return e.Type
}

func captureStack(skip int) []Frame {
	const maxFrames = 16
	frames := make([]Frame, 0, maxFrames)

	for i := skip; i < maxFrames+skip; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}

		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}

		frames = append(frames, Frame{
			Function: fn.Name(),
			File:     file,
			Line:     line,
		})
	}

	return frames
}
