package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/objscope/internal/service"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // The operation ran and failed (build failed, artifact missing, scenario failed)
	ExitCommandError = 2 // Command error (bad flags, invalid config, unreadable paths)
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)

	// Reported is set when the failure was already written to the output,
	// so the caller should not print it again.
	Reported bool
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error. Errors that are not an
// ExitError come from flag parsing or argument validation and map to
// ExitCommandError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitCommandError
}

// IsReported reports whether err was already written to the command output.
func IsReported(err error) bool {
	var exitErr *ExitError
	return errors.As(err, &exitErr) && exitErr.Reported
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// Envelope writes a service response. JSON output is the envelope itself;
// text output calls render for the payload (when there is one) and prints
// the error line for failures. A failed envelope yields an ExitFailure
// error that is marked as reported.
func (f *OutputFormatter) Envelope(env service.Envelope, render func(*textWriter)) error {
	if f.Format == "json" {
		if err := json.NewEncoder(f.Writer).Encode(env); err != nil {
			return WrapExitError(ExitCommandError, "failed to write output", err)
		}
	} else {
		if env.Data != nil && render != nil {
			render(newTextWriter(f.Writer))
		}
		if !env.Success {
			f.Error(env.Code, env.Error)
		}
	}

	if !env.Success {
		return &ExitError{Code: ExitFailure, Message: env.Error, Reported: true}
	}
	return nil
}

// Error outputs a failure line in text format.
func (f *OutputFormatter) Error(code, message string) {
	if code == "" {
		fmt.Fprintf(f.Writer, "%s %s\n", failStyle.Sprint("Error:"), message)
		return
	}
	fmt.Fprintf(f.Writer, "%s %s\n", failStyle.Sprintf("Error [%s]:", code), message)
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
