package errors

import (
	"fmt"
	"strings"
)

// Error codes understood by the HTTP error handler. Any code not listed in
// the transport layer's status map falls back to a 500.
const (
	EInternal     = "internal error"
	ENotFound     = "not found"
	EConflict     = "conflict"  // action cannot be performed
	EInvalid      = "invalid"   // validation failed
	EForbidden    = "forbidden" // authenticated, but not allowed
	EUnauthorized = "unauthorized"
)

// Error is the error struct of the platform.
//
// The Code targets automated handlers so that recovery can occur.
// Msg is returned to the caller; it must never leak store internals.
// Op and Err chain errors together in a logical stack trace for operators.
// Details optionally carries structured information about the failure,
// such as per-field validation messages.
type Error struct {
	Code    string
	Msg     string
	Op      string
	Err     error
	Details interface{}
}

// Error implements the error interface by writing out the recursive messages.
func (e *Error) Error() string {
	if e.Msg != "" && e.Err != nil {
		var b strings.Builder
		b.WriteString(e.Msg)
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
		return b.String()
	} else if e.Msg != "" {
		return e.Msg
	} else if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("<%s>", e.Code)
}

// Unwrap exposes the wrapped error to errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// ErrorCode returns the code of the root error, if available; otherwise returns EInternal.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}

	e, ok := err.(*Error)
	if !ok {
		return EInternal
	}

	if e == nil {
		return ""
	}

	if e.Code != "" {
		return e.Code
	}

	if e.Err != nil {
		return ErrorCode(e.Err)
	}

	return EInternal
}

// ErrorOp returns the op of the error, if available; otherwise returns an empty string.
func ErrorOp(err error) string {
	if err == nil {
		return ""
	}

	e, ok := err.(*Error)
	if !ok {
		return ""
	}

	if e == nil {
		return ""
	}

	if e.Op != "" {
		return e.Op
	}

	if e.Err != nil {
		return ErrorOp(e.Err)
	}

	return ""
}

// ErrorMessage returns the human-readable message of the error, if available.
// Otherwise returns a generic error message so that internal detail is never
// sent to a caller.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	e, ok := err.(*Error)
	if !ok {
		return "An internal error has occurred."
	}

	if e == nil {
		return ""
	}

	if e.Msg != "" {
		return e.Msg
	}

	if e.Err != nil {
		return ErrorMessage(e.Err)
	}

	return "An internal error has occurred."
}

// ErrorDetails returns the structured details of the outermost error carrying
// any, or nil.
func ErrorDetails(err error) interface{} {
	e, ok := err.(*Error)
	if !ok || e == nil {
		return nil
	}

	if e.Details != nil {
		return e.Details
	}

	if e.Err != nil {
		return ErrorDetails(e.Err)
	}

	return nil
}
