package toolchain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReplayRunner_FirstMatchWins(t *testing.T) {
	r := NewReplayRunner()
	r.Add("size", "-A a.o", Result{ExitCode: 1, Stderr: "unsupported"})
	r.Add("size", "a.o", Result{Stdout: "summary"})

	ctx := context.Background()
	first := r.Run(ctx, Command{Name: "size", Args: []string{"-A", "a.o"}})
	second := r.Run(ctx, Command{Name: "size", Args: []string{"a.o"}})

	assert.Equal(t, 1, first.ExitCode)
	assert.Equal(t, "summary", second.Stdout)
	assert.Len(t, r.Calls(), 2)
}

func TestReplayRunner_Unrecorded(t *testing.T) {
	r := NewReplayRunner(ReplayEntry{Tool: "nm", Result: Result{Stdout: "x"}})

	res := r.Run(context.Background(), Command{Name: "objdump", Args: []string{"-d"}})

	assert.Equal(t, ExitNotRecorded, res.ExitCode)
	assert.Contains(t, res.Stderr, "objdump -d")
}

func TestReplayRunner_CancelledContext(t *testing.T) {
	r := NewReplayRunner(ReplayEntry{Tool: "nm", Result: Result{Stdout: "x"}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := r.Run(ctx, Command{Name: "nm"})

	assert.False(t, res.OK())
}
