package xr

import (
	"errors"
	"fmt"
)

// Error is a failure reported across the runtime boundary.
//
// Missing pose data is not an Error: Session.LocateHead reports it through
// its boolean result and callers continue.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Op names the operation that failed (e.g. "create", "wait_frame").
	Op string

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// ErrorCode categorizes runtime errors.
type ErrorCode string

const (
	// ErrCodeInit means no runtime was reachable or the session was rejected.
	ErrCodeInit ErrorCode = "INIT_FAILED"

	// ErrCodeDisconnected means the runtime dropped an open session.
	ErrCodeDisconnected ErrorCode = "DISCONNECTED"

	// ErrCodeReleased means the context was used or released after Close.
	ErrCodeReleased ErrorCode = "RELEASED"
)

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Op != "" {
		msg = fmt.Sprintf("%s: %s (op=%s)", e.Code, e.Message, e.Op)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewInitError creates an Error for a failed context creation.
func NewInitError(message string, err error) *Error {
	return &Error{Code: ErrCodeInit, Op: "create", Message: message, Err: err}
}

// NewDisconnectedError creates an Error for a session lost during op.
func NewDisconnectedError(op string, err error) *Error {
	return &Error{Code: ErrCodeDisconnected, Op: op, Message: "runtime session lost", Err: err}
}

// ErrSessionLost is returned by sessions whose runtime went away.
var ErrSessionLost = errors.New("session lost")

// IsInitError reports whether err is, or wraps, an init error.
func IsInitError(err error) bool {
	return hasCode(err, ErrCodeInit)
}

// IsDisconnected reports whether err is, or wraps, a disconnection.
func IsDisconnected(err error) bool {
	return hasCode(err, ErrCodeDisconnected)
}

// IsReleased reports whether err is, or wraps, a use-after-release.
func IsReleased(err error) bool {
	return hasCode(err, ErrCodeReleased)
}

func hasCode(err error, code ErrorCode) bool {
	var xe *Error
	if errors.As(err, &xe) {
		return xe.Code == code
	}
	return false
}
