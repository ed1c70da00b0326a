package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/roach88/objscope/internal/toolchain"
)

// FakeToolchain stands in for the compiler and the partial linker.
//
// Compiling writes a small text object naming the optimization flag and the
// unit. Linking concatenates its inputs. Chosen units or levels can be made
// to fail with a given stderr.
//
// Thread-safety: FakeToolchain is safe for concurrent use via internal mutex.
type FakeToolchain struct {
	Compiler string
	Linker   string

	// Fallback answers every other tool when set.
	Fallback toolchain.Runner

	mu          sync.Mutex
	compileFail map[string]string
	linkFail    map[string]string
	calls       []toolchain.Command
}

// NewFakeToolchain answers to "g++" and "ld".
func NewFakeToolchain() *FakeToolchain {
	return &FakeToolchain{
		Compiler:    "g++",
		Linker:      "ld",
		compileFail: make(map[string]string),
		linkFail:    make(map[string]string),
	}
}

// FailCompile makes compiling unit at levelFlag (e.g. "-O2") exit 1 with
// stderr. An empty levelFlag fails every level.
func (f *FakeToolchain) FailCompile(levelFlag, unit, stderr string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.compileFail[levelFlag+"|"+unit] = stderr
}

// FailLink makes linking the objects built at levelFlag exit 1 with stderr.
func (f *FakeToolchain) FailLink(levelFlag, stderr string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.linkFail[levelFlag] = stderr
}

// Calls returns every command seen, in order.
func (f *FakeToolchain) Calls() []toolchain.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]toolchain.Command(nil), f.calls...)
}

// CallsTo returns the commands run for tool.
func (f *FakeToolchain) CallsTo(tool string) []toolchain.Command {
	var out []toolchain.Command
	for _, c := range f.Calls() {
		if c.Name == tool {
			out = append(out, c)
		}
	}
	return out
}

// Run implements toolchain.Runner.
func (f *FakeToolchain) Run(ctx context.Context, cmd toolchain.Command) toolchain.Result {
	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return toolchain.Result{ExitCode: -1, Stderr: err.Error()}
	}
	switch cmd.Name {
	case f.Compiler:
		return f.compile(cmd)
	case f.Linker:
		return f.link(cmd)
	}
	if f.Fallback != nil {
		return f.Fallback.Run(ctx, cmd)
	}
	return toolchain.Result{ExitCode: toolchain.ExitNotRecorded, Stderr: cmd.Name + ": command not found"}
}

// resolve interprets a relative path against the command's directory, as
// a real process started there would.
func resolve(cmd toolchain.Command, p string) string {
	if cmd.Dir == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(cmd.Dir, p)
}

func (f *FakeToolchain) compile(cmd toolchain.Command) toolchain.Result {
	var level, unit, out string
	for i, a := range cmd.Args {
		switch {
		case strings.HasPrefix(a, "-O"):
			level = a
		case a == "-c" && i+1 < len(cmd.Args):
			unit = filepath.Base(cmd.Args[i+1])
		case a == "-o" && i+1 < len(cmd.Args):
			out = resolve(cmd, cmd.Args[i+1])
		}
	}

	f.mu.Lock()
	stderr, fail := f.compileFail[level+"|"+unit]
	if !fail {
		stderr, fail = f.compileFail["|"+unit]
	}
	f.mu.Unlock()
	if fail {
		return toolchain.Result{ExitCode: 1, Stderr: stderr}
	}

	if err := os.WriteFile(out, []byte(fmt.Sprintf("%s %s\n", level, unit)), 0o644); err != nil {
		return toolchain.Result{ExitCode: 1, Stderr: err.Error()}
	}
	return toolchain.Result{}
}

func (f *FakeToolchain) link(cmd toolchain.Command) toolchain.Result {
	var out string
	var inputs []string
	for i := 0; i < len(cmd.Args); i++ {
		switch a := cmd.Args[i]; {
		case a == "-o" && i+1 < len(cmd.Args):
			out = resolve(cmd, cmd.Args[i+1])
			i++
		case strings.HasPrefix(a, "-"):
		default:
			inputs = append(inputs, resolve(cmd, a))
		}
	}

	var merged strings.Builder
	for _, in := range inputs {
		data, err := os.ReadFile(in)
		if err != nil {
			return toolchain.Result{ExitCode: 1, Stderr: fmt.Sprintf("ld: cannot find %s", in)}
		}
		merged.Write(data)
	}
	level, _, _ := strings.Cut(merged.String(), " ")

	f.mu.Lock()
	stderr, fail := f.linkFail[level]
	f.mu.Unlock()
	if fail {
		return toolchain.Result{ExitCode: 1, Stderr: stderr}
	}

	if err := os.WriteFile(out, []byte(merged.String()), 0o644); err != nil {
		return toolchain.Result{ExitCode: 1, Stderr: err.Error()}
	}
	return toolchain.Result{}
}

// WriteSources creates a source tree under a fresh temp dir with one trivial
// file per name and returns the directory.
func WriteSources(t testing.TB, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		body := fmt.Sprintf("// %s\nint f_%d() { return %d; }\n", name, len(name), len(name))
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write source %s: %v", name, err)
		}
	}
	return dir
}
