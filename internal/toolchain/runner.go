package toolchain

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// DefaultWaitDelay bounds how long Run waits for output pipes to drain after
// the process has been killed.
const DefaultWaitDelay = 2 * time.Second

// Command describes one external process invocation.
type Command struct {
	Name    string
	Args    []string
	Dir     string
	Stdin   string        // written to the process when non-empty
	Timeout time.Duration // zero means no bound beyond ctx
}

// String renders the command line for logs and error messages.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Result is the outcome of running a Command.
// ExitCode is -1 when the process could not be started, was cancelled, or
// was killed because its timeout expired.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	TimedOut bool
	Duration time.Duration
}

// OK reports whether the tool exited with status zero.
func (r Result) OK() bool {
	return r.ExitCode == 0 && !r.TimedOut
}

// Runner executes external commands.
type Runner interface {
	Run(ctx context.Context, cmd Command) Result
}

// Failure is the error form of a failed Result.
type Failure struct {
	Tool     string
	ExitCode int
	Stderr   string
	TimedOut bool
}

func (f *Failure) Error() string {
	if f.TimedOut {
		return fmt.Sprintf("%s timed out: %s", f.Tool, strings.TrimSpace(f.Stderr))
	}
	msg := strings.TrimSpace(f.Stderr)
	if msg == "" {
		return fmt.Sprintf("%s exited with status %d", f.Tool, f.ExitCode)
	}
	return fmt.Sprintf("%s exited with status %d: %s", f.Tool, f.ExitCode, msg)
}

// Check returns a *Failure describing res if the command did not succeed.
func Check(cmd Command, res Result) error {
	if res.OK() {
		return nil
	}
	return &Failure{
		Tool:     cmd.Name,
		ExitCode: res.ExitCode,
		Stderr:   res.Stderr,
		TimedOut: res.TimedOut,
	}
}

// ExecRunner runs commands as real child processes.
type ExecRunner struct {
	logger    *zap.Logger
	env       []string
	waitDelay time.Duration
}

// NewExecRunner returns a runner that logs each invocation at debug level.
// A nil logger disables logging.
func NewExecRunner(logger *zap.Logger) *ExecRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExecRunner{
		logger:    logger.Named("toolchain"),
		env:       []string{"LC_ALL=C"},
		waitDelay: DefaultWaitDelay,
	}
}

// WithEnv returns a copy of r that appends extra KEY=VALUE pairs to the
// environment of every child.
func (r *ExecRunner) WithEnv(kv ...string) *ExecRunner {
	cp := *r
	cp.env = append(append([]string{}, r.env...), kv...)
	return &cp
}

// Run starts the command and blocks until it exits or its timeout fires.
func (r *ExecRunner) Run(ctx context.Context, c Command) Result {
	runCtx := ctx
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.Env = append(os.Environ(), r.env...)
	if c.Stdin != "" {
		cmd.Stdin = strings.NewReader(c.Stdin)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = r.waitDelay
	configureProcessGroup(cmd)

	start := time.Now()
	err := cmd.Run()
	res := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	switch {
	case err == nil:
		res.ExitCode = 0
	case errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
		res.ExitCode = -1
		res.TimedOut = true
		res.Stderr = appendLine(res.Stderr, fmt.Sprintf("command timed out after %s", c.Timeout))
	case runCtx.Err() != nil:
		res.ExitCode = -1
		res.TimedOut = errors.Is(runCtx.Err(), context.DeadlineExceeded)
		res.Stderr = appendLine(res.Stderr, runCtx.Err().Error())
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		} else {
			res.ExitCode = -1
			res.Stderr = appendLine(res.Stderr, err.Error())
		}
	}

	r.logger.Debug("tool finished",
		zap.String("tool", c.Name),
		zap.Strings("args", c.Args),
		zap.Int("exit_code", res.ExitCode),
		zap.Bool("timed_out", res.TimedOut),
		zap.Duration("duration", res.Duration),
	)
	return res
}

func appendLine(s, line string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s + line
	}
	return s + "\n" + line
}
