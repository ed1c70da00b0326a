// Package exprc runs the external expression compiler and decodes its JSON
// report.
//
// The compiler takes one expression (as its only argument or on stdin) and
// prints a JSON object on stdout. On failure it exits non-zero with either a
// JSON object carrying "error" or free text on stderr.
package exprc

import (
	"context"
	"encoding/json"
	"os/exec"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/roach88/objscope/internal/toolchain"
)

// DefaultTimeout bounds one compiler run.
const DefaultTimeout = 10 * time.Second

// Token is one lexer token.
type Token struct {
	Type     string   `json:"type"`
	Value    string   `json:"value"`
	NumValue *float64 `json:"numValue,omitempty"`
}

// CalculusStep is one sample of a numeric differentiation or integration.
type CalculusStep struct {
	X           float64 `json:"x"`
	FX          float64 `json:"fx"`
	Description string  `json:"description"`
}

// Result is the compiler's report for one expression.
type Result struct {
	Success          bool            `json:"success"`
	Expression       string          `json:"expression,omitempty"`
	Tokens           []Token         `json:"tokens"`
	Postfix          []Token         `json:"postfix"`
	OperatorStack    []string        `json:"operatorStack,omitempty"`
	AST              json.RawMessage `json:"ast"`
	IntermediateCode []string        `json:"intermediateCode"`
	Result           float64         `json:"result"`
	CalculusType     string          `json:"calculusType"`
	CalculusSteps    []CalculusStep  `json:"calculusSteps"`
}

// Instructions parses every line of the intermediate code.
func (r *Result) Instructions() ([]Instruction, error) {
	out := make([]Instruction, 0, len(r.IntermediateCode))
	for i, line := range r.IntermediateCode {
		in, err := ParseIntermediate(line)
		if err != nil {
			return nil, errors.Wrapf(err, "intermediate line %d", i+1)
		}
		out = append(out, in)
	}
	return out, nil
}

// Client runs the expression compiler.
type Client struct {
	runner   toolchain.Runner
	path     string
	timeout  time.Duration
	lookPath func(string) (string, error)
	logger   *zap.Logger
}

// New creates a Client for the compiler at path. A zero timeout selects
// DefaultTimeout and a nil logger disables logging.
func New(runner toolchain.Runner, path string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		runner:   runner,
		path:     path,
		timeout:  timeout,
		lookPath: exec.LookPath,
		logger:   logger.Named("exprc"),
	}
}

// Path returns the configured compiler path.
func (c *Client) Path() string { return c.path }

// Compile passes expr to the compiler as its only argument.
func (c *Client) Compile(ctx context.Context, expr string) (*Result, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, &Error{Code: ErrCodeEmpty}
	}
	return c.run(ctx, toolchain.Command{Name: c.path, Args: []string{expr}, Timeout: c.timeout}, expr)
}

// CompileStdin writes expr to the compiler's standard input.
func (c *Client) CompileStdin(ctx context.Context, expr string) (*Result, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, &Error{Code: ErrCodeEmpty}
	}
	return c.run(ctx, toolchain.Command{Name: c.path, Stdin: expr + "\n", Timeout: c.timeout}, expr)
}

func (c *Client) run(ctx context.Context, cmd toolchain.Command, expr string) (*Result, error) {
	if c.lookPath != nil {
		if _, err := c.lookPath(c.path); err != nil {
			return nil, &Error{Code: ErrCodeNotFound, Path: c.path, Err: err}
		}
	}

	res := c.runner.Run(ctx, cmd)
	c.logger.Debug("expression compiled",
		zap.String("expression", expr),
		zap.Int("exit_code", res.ExitCode),
		zap.Bool("timed_out", res.TimedOut),
	)

	if res.TimedOut {
		return nil, &Error{Code: ErrCodeTimeout}
	}
	if !res.OK() {
		return nil, failure(res)
	}

	var out Result
	if err := json.Unmarshal([]byte(res.Stdout), &out); err != nil {
		return nil, &Error{Code: ErrCodeInvalidOutput, Stdout: res.Stdout, Stderr: res.Stderr, Err: err}
	}
	if !out.Success {
		return nil, &Error{Code: ErrCodeCompileFailed, Message: "compiler reported failure", Stdout: res.Stdout}
	}
	return &out, nil
}

// failure decodes a non-zero exit: a JSON {"error": ...} on stderr when the
// compiler produced one, else the raw stderr.
func failure(res toolchain.Result) *Error {
	e := &Error{Code: ErrCodeCompileFailed, Stdout: res.Stdout, Stderr: res.Stderr}
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(res.Stderr)), &payload); err == nil && payload.Error != "" {
		e.Message = payload.Error
		return e
	}
	e.Message = strings.TrimSpace(res.Stderr)
	if e.Message == "" {
		e.Message = "Compilation failed"
	}
	return e
}

// SetLookPath replaces the executable lookup done before each run. A nil fn
// skips the check.
func (c *Client) SetLookPath(fn func(string) (string, error)) {
	c.lookPath = fn
}
