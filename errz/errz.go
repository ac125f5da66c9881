// Package errz defines the error type shared by the shortprog packages.
//
// Runtime rejections inside the stack machine (underflow, division by zero)
// are not errors; they are reported as an absent result. An *Error always
// means the search cannot produce a trustworthy table and must stop.
package errz

import (
	"errors"
	"fmt"
)

// ErrorKind represents the category of an error.
type ErrorKind int

const (
	// ErrConfig indicates a corrupted instruction table or program, such as
	// a symbol outside the alphabet.
	ErrConfig ErrorKind = iota
	// ErrUsage indicates invalid caller input, such as a non-positive
	// program length.
	ErrUsage
	// ErrInternal indicates a broken search invariant.
	ErrInternal
	// ErrEncoding indicates a table that cannot be serialized or decoded.
	ErrEncoding
	// ErrStore indicates a persistence failure.
	ErrStore
)

// String returns the string representation of the error kind.
func (k ErrorKind) String() string {
	switch k {
	case ErrConfig:
		return "config error"
	case ErrUsage:
		return "usage error"
	case ErrInternal:
		return "internal error"
	case ErrEncoding:
		return "encoding error"
	case ErrStore:
		return "store error"
	default:
		return "error"
	}
}

// Error is a categorized error. Offset and Program locate the failing
// instruction when the error was raised while executing a program; Offset
// is -1 otherwise.
type Error struct {
	Kind    ErrorKind
	Message string
	Program string
	Offset  int
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Offset >= 0 && e.Program != "" {
		msg = fmt.Sprintf("%s (program %q, offset %d)", msg, e.Program, e.Offset)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause of the error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates an Error with a formatted message.
func New(kind ErrorKind, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Offset:  -1,
	}
}

// Wrap creates an Error of the given kind around cause. A nil cause yields
// nil.
func Wrap(kind ErrorKind, cause error, format string, args ...any) error {
	if cause == nil {
		return nil
	}
	e := New(kind, format, args...)
	e.Cause = cause
	return e
}

// AtOffset records the program location of the error.
func (e *Error) AtOffset(program string, offset int) *Error {
	e.Program = program
	e.Offset = offset
	return e
}

// Is reports whether any error in err's chain is an *Error of the given
// kind.
func Is(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		if e.Kind == kind {
			return true
		}
		return Is(e.Cause, kind)
	}
	return false
}
