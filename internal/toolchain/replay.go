package toolchain

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// ExitNotRecorded is the exit status ReplayRunner reports for a command it
// has no recording for. It matches the shell's "command not found".
const ExitNotRecorded = 127

// ReplayEntry is one recorded tool run.
type ReplayEntry struct {
	// Tool must equal Command.Name.
	Tool string
	// ArgsContain, when set, must be a substring of the space-joined args.
	ArgsContain string
	Result      Result
}

func (e ReplayEntry) matches(c Command) bool {
	if e.Tool != c.Name {
		return false
	}
	if e.ArgsContain == "" {
		return true
	}
	return strings.Contains(strings.Join(c.Args, " "), e.ArgsContain)
}

// ReplayRunner answers commands from recorded output instead of running
// processes. Entries are matched in insertion order; the first match wins.
//
// Thread-safety: ReplayRunner is safe for concurrent use.
type ReplayRunner struct {
	mu      sync.Mutex
	entries []ReplayEntry
	calls   []Command
}

// NewReplayRunner creates a runner with the given recordings.
func NewReplayRunner(entries ...ReplayEntry) *ReplayRunner {
	return &ReplayRunner{entries: entries}
}

// Add records output for tool. argsContain narrows the match; see ReplayEntry.
func (r *ReplayRunner) Add(tool, argsContain string, res Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, ReplayEntry{Tool: tool, ArgsContain: argsContain, Result: res})
}

// Run returns the first matching recording.
func (r *ReplayRunner) Run(ctx context.Context, c Command) Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, c)

	if err := ctx.Err(); err != nil {
		return Result{ExitCode: -1, Stderr: err.Error()}
	}
	for _, e := range r.entries {
		if e.matches(c) {
			return e.Result
		}
	}
	return Result{
		ExitCode: ExitNotRecorded,
		Stderr:   fmt.Sprintf("no recorded output for %q", c.String()),
	}
}

// Calls returns the commands seen so far, in order.
func (r *ReplayRunner) Calls() []Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Command(nil), r.calls...)
}
