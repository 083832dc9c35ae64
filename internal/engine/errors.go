package engine

import (
	"errors"
	"fmt"
)

// ErrExhausted is returned by Advance and Successor when no positions remain.
// It is a normal terminal signal, not a failure.
var ErrExhausted = errors.New("enumeration exhausted")

// Error represents a failure detected by the enumeration engine.
//
// Engine errors include:
//   - Invalid configuration: zero-size pool, no roles, overflowing total
//   - Out of range: skip or seek past the end of the walk
//   - Corrupt state: malformed or mismatched state blob
//   - Index out of range: pool access outside [0, size)
//   - Unsupported: operation the strategy cannot perform (e.g. ranking a random draw)
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Op names the operation that failed (e.g. "skip", "restore").
	Op string

	// Message is a human-readable description.
	Message string

	// Details contains additional context.
	Details map[string]string

	// Err is the underlying cause, if any.
	Err error
}

// ErrorCode categorizes engine errors.
type ErrorCode string

const (
	// CodeInvalidConfiguration is fatal to construction; never produced mid-walk.
	CodeInvalidConfiguration ErrorCode = "INVALID_CONFIGURATION"

	// CodeOutOfRange is recoverable: the cursor is left unchanged.
	CodeOutOfRange ErrorCode = "OUT_OF_RANGE"

	// CodeCorruptState is fatal to the restore call only.
	CodeCorruptState ErrorCode = "CORRUPT_STATE"

	// CodeIndexOutOfRange indicates a pool access outside its bounds.
	CodeIndexOutOfRange ErrorCode = "INDEX_OUT_OF_RANGE"

	// CodeUnsupported indicates the strategy cannot perform the operation.
	CodeUnsupported ErrorCode = "UNSUPPORTED"
)

// Targets for errors.Is. Only the code is compared.
var (
	ErrInvalidConfiguration = &Error{Code: CodeInvalidConfiguration}
	ErrOutOfRange           = &Error{Code: CodeOutOfRange}
	ErrCorruptState         = &Error{Code: CodeCorruptState}
	ErrIndexOutOfRange      = &Error{Code: CodeIndexOutOfRange}
	ErrUnsupported          = &Error{Code: CodeUnsupported}
)

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg = msg + ": " + e.Err.Error()
		}
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Op, msg)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// IsInvalidConfiguration returns true if err is an invalid configuration error.
// Uses errors.As to handle wrapped errors.
func IsInvalidConfiguration(err error) bool {
	return hasCode(err, CodeInvalidConfiguration)
}

// IsOutOfRange returns true if err is an out-of-range error.
func IsOutOfRange(err error) bool {
	return hasCode(err, CodeOutOfRange)
}

// IsCorruptState returns true if err is a corrupt-state error.
func IsCorruptState(err error) bool {
	return hasCode(err, CodeCorruptState)
}

// IsIndexOutOfRange returns true if err is a pool access outside its bounds.
func IsIndexOutOfRange(err error) bool {
	return hasCode(err, CodeIndexOutOfRange)
}

// IsUnsupported returns true if the strategy could not perform the operation.
func IsUnsupported(err error) bool {
	return hasCode(err, CodeUnsupported)
}

func hasCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// NewInvalidConfiguration creates an Error for construction-time failures.
func NewInvalidConfiguration(op, format string, args ...any) *Error {
	return &Error{Code: CodeInvalidConfiguration, Op: op, Message: fmt.Sprintf(format, args...)}
}

// NewOutOfRange creates an Error for skips and seeks past the end of the walk.
func NewOutOfRange(op string, offset, total uint64) *Error {
	return &Error{
		Code:    CodeOutOfRange,
		Op:      op,
		Message: fmt.Sprintf("offset %d exceeds total %d", offset, total),
		Details: map[string]string{
			"offset": fmt.Sprintf("%d", offset),
			"total":  fmt.Sprintf("%d", total),
		},
	}
}

// NewCorruptState creates an Error for rejected state blobs.
func NewCorruptState(op, format string, args ...any) *Error {
	return &Error{Code: CodeCorruptState, Op: op, Message: fmt.Sprintf(format, args...)}
}

// NewIndexOutOfRange creates an Error for pool accesses outside [0, size).
func NewIndexOutOfRange(op string, index, size int) *Error {
	return &Error{
		Code:    CodeIndexOutOfRange,
		Op:      op,
		Message: fmt.Sprintf("index %d out of range [0, %d)", index, size),
	}
}

func newUnsupported(op string, kind Kind) *Error {
	return &Error{Code: CodeUnsupported, Op: op, Message: fmt.Sprintf("not supported by %s strategy", kind)}
}
