package exprc

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorCode categorizes expression compiler failures.
type ErrorCode string

const (
	ErrCodeEmpty         ErrorCode = "EMPTY_EXPRESSION"
	ErrCodeNotFound      ErrorCode = "COMPILER_NOT_FOUND"
	ErrCodeTimeout       ErrorCode = "TIMEOUT"
	ErrCodeCompileFailed ErrorCode = "COMPILE_FAILED"
	ErrCodeInvalidOutput ErrorCode = "INVALID_OUTPUT"
)

// Error is returned by Compile and CompileStdin.
type Error struct {
	Code    ErrorCode
	Message string
	Path    string
	Stdout  string
	Stderr  string
	Err     error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeEmpty:
		return "empty expression"
	case ErrCodeNotFound:
		return fmt.Sprintf("expression compiler not found: %s", e.Path)
	case ErrCodeTimeout:
		return "compilation timeout (expression took too long to evaluate)"
	case ErrCodeInvalidOutput:
		return "invalid JSON output from compiler"
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// CodeOf returns the code of err if it is an *Error, else "".
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
