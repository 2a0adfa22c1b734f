// Package apperr defines the error classes shared across layers.
// Messages on classified errors are part of the observable contract:
// the HTTP and MCP layers surface them verbatim.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalid       = errors.New("invalid input")
)

type classified struct {
	msg  string
	kind error
}

func (e *classified) Error() string        { return e.msg }
func (e *classified) Is(target error) bool { return target == e.kind }

// NotFound builds a descriptive error matching ErrNotFound under errors.Is.
func NotFound(format string, args ...any) error {
	return &classified{msg: fmt.Sprintf(format, args...), kind: ErrNotFound}
}

// Invalid builds a descriptive error matching ErrInvalid under errors.Is.
func Invalid(format string, args ...any) error {
	return &classified{msg: fmt.Sprintf(format, args...), kind: ErrInvalid}
}

// Conflict builds a descriptive error matching ErrConflict under errors.Is.
func Conflict(format string, args ...any) error {
	return &classified{msg: fmt.Sprintf(format, args...), kind: ErrConflict}
}
