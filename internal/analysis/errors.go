package analysis

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/roach88/objscope/internal/artifact"
)

// ErrorCode categorizes analysis errors.
type ErrorCode string

const (
	// ErrCodeMissingArtifact indicates the variant's object file does not
	// exist. The caller should build first.
	ErrCodeMissingArtifact ErrorCode = "MISSING_ARTIFACT"

	// ErrCodeToolFailure indicates an introspection tool exited non-zero or
	// timed out.
	ErrCodeToolFailure ErrorCode = "TOOL_FAILURE"

	// ErrCodeParse indicates the tool output could not be read.
	ErrCodeParse ErrorCode = "PARSE_FAILURE"
)

// Error is returned by every Analyzer operation.
type Error struct {
	Code ErrorCode
	Tag  artifact.Tag

	// Path is the artifact path, for MISSING_ARTIFACT.
	Path string

	// Tool, ExitCode, Stderr and TimedOut describe a TOOL_FAILURE.
	// Stderr is kept verbatim.
	Tool     string
	ExitCode int
	Stderr   string
	TimedOut bool

	Err error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeMissingArtifact:
		return fmt.Sprintf("%s: object file not found for %s: %s", e.Code, e.Tag, e.Path)
	case ErrCodeToolFailure:
		if e.TimedOut {
			return fmt.Sprintf("%s: %s timed out (level=%s)", e.Code, e.Tool, e.Tag)
		}
		if msg := strings.TrimSpace(e.Stderr); msg != "" {
			return fmt.Sprintf("%s: %s (level=%s)", e.Code, msg, e.Tag)
		}
		return fmt.Sprintf("%s: %s exited with status %d (level=%s)", e.Code, e.Tool, e.ExitCode, e.Tag)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v (level=%s)", e.Code, e.Err, e.Tag)
	}
	return fmt.Sprintf("%s (level=%s)", e.Code, e.Tag)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsMissingArtifact returns true if err is a MISSING_ARTIFACT error.
// Uses errors.As to handle wrapped errors.
func IsMissingArtifact(err error) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code == ErrCodeMissingArtifact
	}
	return artifact.IsMissing(err)
}

// IsToolFailure returns true if err is a TOOL_FAILURE error.
func IsToolFailure(err error) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code == ErrCodeToolFailure
	}
	return false
}

// NewMissingArtifactError creates an Error for an absent artifact.
func NewMissingArtifactError(tag artifact.Tag, path string) *Error {
	return &Error{Code: ErrCodeMissingArtifact, Tag: tag, Path: path}
}

func missingFrom(err error) *Error {
	var me *artifact.MissingError
	if errors.As(err, &me) {
		return &Error{Code: ErrCodeMissingArtifact, Tag: me.Tag, Path: me.Path, Err: err}
	}
	return nil
}
