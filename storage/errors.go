package storage

import (
	"context"
	"errors"
	"io"
	"net"
)

// ErrorReason classifies backend failures.
type ErrorReason string

const (
	ReasonUnavailable ErrorReason = "ConnectionUnavailable"
	ReasonBackend     ErrorReason = "BackendFailure"
)

// Error is a reason-coded backend failure.
type Error struct {
	reason ErrorReason
	cause  error
}

func NewError(reason ErrorReason, cause error) *Error {
	return &Error{reason: reason, cause: cause}
}

func (e *Error) Error() string {
	if e.cause == nil {
		return string(e.reason)
	}
	return string(e.reason) + ": " + e.cause.Error()
}

func (e *Error) Unwrap() error { return e.cause }

// IsUnavailable reports whether err is a connectivity failure rather than a
// backend-reported one. Raw transport errors from clients that do not wrap
// their failures are classified here as well.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	var se *Error
	if errors.As(err, &se) {
		return se.reason == ReasonUnavailable
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	return errors.Is(err, io.EOF) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled)
}
