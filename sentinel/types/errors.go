package types

import (
	"errors"
	"fmt"
)

// Code classifies a failure. The categories mirror the ones surfaced at the
// compatibility boundary, so every error produced by the engine maps onto
// exactly one of them.
type Code int

const (
	// CodeInvalidArgument marks a precondition violation by the caller,
	// such as an empty collection name or a malformed filter operand.
	CodeInvalidArgument Code = iota + 1
	// CodeIO marks a persistence fault (filesystem, backend database).
	CodeIO
	// CodeRuntime marks an internal invariant breach. Only the failing
	// operation is affected; the store stays usable.
	CodeRuntime
	// CodeJSON marks malformed document data or filter operands that
	// cannot be encoded or decoded.
	CodeJSON
	// CodeNotFound marks a missing collection or document where existence
	// is required. A Get miss is not an error and never carries this code.
	CodeNotFound
	// CodeConflict marks a duplicate document id on insert.
	CodeConflict
)

// String returns the category name used in error messages and logs.
func (c Code) String() string {
	switch c {
	case CodeInvalidArgument:
		return "invalid argument"
	case CodeIO:
		return "io error"
	case CodeRuntime:
		return "runtime error"
	case CodeJSON:
		return "json error"
	case CodeNotFound:
		return "not found"
	case CodeConflict:
		return "conflict"
	}
	return "unknown"
}

// Error is the engine's error value: a category, a message and an optional
// wrapped cause. It supports errors.Is on the code via CodeOf.
type Error struct {
	Code Code
	Msg  string
	Err  error
}

// NewError builds an Error. The cause may be nil.
func NewError(code Code, msg string, err error) *Error {
	return &Error{Code: code, Msg: msg, Err: err}
}

// Errorf builds an Error with a formatted message and no cause.
func Errorf(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

// Unwrap exposes the cause for errors.Is and errors.As chains.
func (e *Error) Unwrap() error { return e.Err }

// CodeOf extracts the category from an error chain. Errors produced outside
// the engine classify as CodeRuntime, a nil error as 0.
func CodeOf(err error) Code {
	if err == nil {
		return 0
	}
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return CodeRuntime
}

// IsNotFound reports whether the error chain carries CodeNotFound.
func IsNotFound(err error) bool { return CodeOf(err) == CodeNotFound }

// IsConflict reports whether the error chain carries CodeConflict.
func IsConflict(err error) bool { return CodeOf(err) == CodeConflict }
