package store

import (
	"context"
	"errors"
	"fmt"
)

type Code string

const (
	CodeInvalidArgument    Code = "invalid-argument"
	CodeNotFound           Code = "not-found"
	CodeFailedPrecondition Code = "failed-precondition"
	CodeUnimplemented      Code = "unimplemented"
	CodeUnavailable        Code = "unavailable"
	CodeInternal           Code = "internal"
	CodeCancelled          Code = "cancelled"
	CodeUnauthenticated    Code = "unauthenticated"
)

// Error is a failure reported by the store.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func Errorf(code Code, format string, args ...any) error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// CodeOf extracts the store code of err. Errors which carry no code are internal.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var serr *Error
	if errors.As(err, &serr) {
		return serr.Code
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return CodeCancelled
	}
	return CodeInternal
}

func IsCode(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}
