package service

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/roach88/objscope/internal/analysis"
	"github.com/roach88/objscope/internal/exprc"
)

// Envelope is the response of every service operation.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

// Error codes not owned by a lower package.
const (
	CodeInvalidArgument = "INVALID_ARGUMENT"
	CodeBuildFailed     = "BUILD_FAILED"
	CodeInternal        = "INTERNAL"
)

func ok(data any) Envelope {
	return Envelope{Success: true, Data: data}
}

// fail converts err into a failure envelope, keeping the code of typed
// errors.
func fail(err error) Envelope {
	env := Envelope{Error: err.Error(), Code: CodeInternal}
	var ae *analysis.Error
	if errors.As(err, &ae) {
		env.Code = string(ae.Code)
	}
	if code := exprc.CodeOf(err); code != "" {
		env.Code = string(code)
	}
	return env
}

// recoverInto turns a panic inside an operation into a failure envelope.
func recoverInto(env *Envelope) {
	if r := recover(); r != nil {
		*env = Envelope{Error: fmt.Sprintf("internal error: %v", r), Code: CodeInternal}
	}
}
