package service

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/roach88/objscope/internal/analysis"
	"github.com/roach88/objscope/internal/artifact"
	"github.com/roach88/objscope/internal/build"
	"github.com/roach88/objscope/internal/compare"
	"github.com/roach88/objscope/internal/config"
	"github.com/roach88/objscope/internal/store"
	"github.com/roach88/objscope/internal/testutil"
	"github.com/roach88/objscope/internal/toolchain"
)

const objdumpO0 = `0000000000000000 <add(int, int)>:
   0:	push   %rbp
   1:	mov    %rsp,%rbp
   4:	mov    %edi,-0x4(%rbp)
   7:	mov    %esi,-0x8(%rbp)
   a:	mov    -0x4(%rbp),%edx
   d:	mov    -0x8(%rbp),%eax
  10:	add    %edx,%eax
  12:	pop    %rbp
  13:	ret
`

const objdumpO2 = `0000000000000000 <add(int, int)>:
   0:	lea    (%rdi,%rsi,1),%eax
   3:	ret
`

type fixture struct {
	svc    *Service
	fake   *testutil.FakeToolchain
	replay *toolchain.ReplayRunner
	store  *store.Store
	cfg    *config.Config
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()

	cfg := config.Default()
	cfg.Artifacts.Dir = filepath.Join(dir, "artifacts")
	cfg.ExpressionCompiler = "calc"

	st, err := store.Open(filepath.Join(dir, "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	replay := toolchain.NewReplayRunner()
	replay.Add("objdump", "compiler_O0.o", toolchain.Result{Stdout: objdumpO0})
	replay.Add("objdump", "compiler_O2.o", toolchain.Result{Stdout: objdumpO2})
	replay.Add("nm", "", toolchain.Result{Stdout: "0000000000000000 0000000000000014 T add\n"})
	replay.Add("readelf", "", toolchain.Result{Stdout: "  [ 1] .text             PROGBITS         0000000000000000  00000040  0000000000000014\n"})
	replay.Add("size", "compiler_O0.o", toolchain.Result{Stdout: ".text 20 0\n.data 0 0\n"})
	replay.Add("size", "compiler_O2.o", toolchain.Result{Stdout: ".text 4 0\n.data 0 0\n"})

	fake := testutil.NewFakeToolchain()
	fake.Fallback = replay

	ids := build.NewFixedGenerator("id-1", "id-2", "id-3", "id-4", "id-5", "id-6")
	svc := New(cfg, fake, zaptest.NewLogger(t),
		WithStore(st),
		WithIDGenerator(ids),
		WithLookPath(func(name string) (string, error) { return "/usr/bin/" + name, nil }),
	)
	return &fixture{svc: svc, fake: fake, replay: replay, store: st, cfg: cfg}
}

func (f *fixture) build(t *testing.T) *build.Result {
	t.Helper()
	src := testutil.WriteSources(t, "add.cpp", "main.cpp")
	env := f.svc.Build(context.Background(), src)
	require.True(t, env.Success, env.Error)
	return env.Data.(*build.Result)
}

func TestBuildThenCompare(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res := f.build(t)
	assert.Equal(t, build.StatusSuccess, res.Status)
	assert.Equal(t, "id-1", res.ID)

	env := f.svc.Compare(ctx)
	require.True(t, env.Success)
	rep := env.Data.(*compare.Report)

	require.NotNil(t, rep.Disassembly)
	assert.Equal(t, 9, rep.Disassembly.O0)
	assert.Equal(t, 2, rep.Disassembly.O2)
	assert.Equal(t, 77.78, rep.Disassembly.ReductionPercent)

	require.NotNil(t, rep.Size)
	assert.Equal(t, int64(16), rep.Size.Reduction)
	assert.Equal(t, 80.0, rep.Size.ReductionPercent)

	require.NotNil(t, rep.Symbols)
	assert.Equal(t, compare.SymbolTotals{O0: 1, O2: 1}, *rep.Symbols)

	hist := f.svc.History(ctx, "", 0)
	require.True(t, hist.Success)
	data := hist.Data.(HistoryData)
	require.Len(t, data.Builds, 1)
	assert.Len(t, data.Builds[0].Artifacts, 2)
	require.Len(t, data.Reports, 1)
	assert.Equal(t, store.ReportComparison, data.Reports[0].Kind)
}

func TestAnalyze(t *testing.T) {
	f := newFixture(t)
	built := f.build(t)

	env := f.svc.Analyze(context.Background(), artifact.Optimized)
	require.True(t, env.Success, env.Error)
	a := env.Data.(*analysis.Analysis)

	assert.NotNil(t, a.Disassembly)
	assert.NotNil(t, a.Symbols)
	assert.NotNil(t, a.Sections)
	assert.NotNil(t, a.Size)
	assert.Equal(t, 1, a.Sections.TotalSections)

	o2, _ := built.Variant(artifact.Optimized)
	assert.Equal(t, o2.Digest, a.Digest)

	reports, err := f.store.ListReports(context.Background(), store.ReportAnalysis, 0)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, artifact.Optimized, reports[0].Tag)
	assert.Equal(t, o2.Digest, reports[0].Digest)
}

func TestAnalyze_MissingArtifactIsHardFailure(t *testing.T) {
	f := newFixture(t)

	env := f.svc.Analyze(context.Background(), artifact.Unoptimized)
	assert.False(t, env.Success)
	assert.Equal(t, string(analysis.ErrCodeMissingArtifact), env.Code)
	assert.Contains(t, env.Error, "object file not found")
	assert.Nil(t, env.Data)
}

func TestAnalyze_InvalidTag(t *testing.T) {
	f := newFixture(t)
	env := f.svc.Analyze(context.Background(), artifact.Tag("O3"))
	assert.False(t, env.Success)
	assert.Equal(t, CodeInvalidArgument, env.Code)
}

func TestDisassembly(t *testing.T) {
	f := newFixture(t)
	f.build(t)

	env := f.svc.Disassembly(context.Background(), artifact.Unoptimized)
	require.True(t, env.Success, env.Error)
	data := env.Data.(DisassemblyData)
	assert.Equal(t, 9, data.TotalInstructions)
	assert.Len(t, data.Digest, 64)

	raw, err := json.Marshal(env)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"total_instructions":9`)
}

func TestDisassembly_ToolFailure(t *testing.T) {
	f := newFixture(t)
	f.build(t)

	replay := toolchain.NewReplayRunner()
	replay.Add("objdump", "", toolchain.Result{ExitCode: 1, Stderr: "objdump: can't disassemble"})
	f.fake.Fallback = replay

	env := f.svc.Disassembly(context.Background(), artifact.Optimized)
	assert.False(t, env.Success)
	assert.Equal(t, string(analysis.ErrCodeToolFailure), env.Code)
	assert.Contains(t, env.Error, "can't disassemble")
}

func TestCompare_NothingBuilt(t *testing.T) {
	f := newFixture(t)

	env := f.svc.Compare(context.Background())
	require.True(t, env.Success)
	rep := env.Data.(*compare.Report)
	assert.Equal(t, artifact.Tags, rep.MissingArtifacts)
	assert.True(t, rep.Empty())
	assert.Empty(t, f.replay.Calls())
}

func TestBuild_NoUnits(t *testing.T) {
	f := newFixture(t)
	src := testutil.WriteSources(t, "main.cpp")

	env := f.svc.Build(context.Background(), src)
	assert.False(t, env.Success)
	assert.Equal(t, CodeBuildFailed, env.Code)
	assert.Equal(t, "No source files found", env.Error)
	res := env.Data.(*build.Result)
	assert.Equal(t, build.StatusError, res.Status)

	builds, err := f.store.ListBuilds(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, builds, 1)
	assert.Equal(t, "error", builds[0].Status)
}

func TestBuild_MissingSourceDir(t *testing.T) {
	f := newFixture(t)
	env := f.svc.Build(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.False(t, env.Success)
	assert.Equal(t, CodeInternal, env.Code)
}

func TestCompileExpression(t *testing.T) {
	f := newFixture(t)
	f.replay.Add("calc", "", toolchain.Result{Stdout: `{"success":true,"tokens":[],"postfix":[],"ast":null,"intermediateCode":["t1 = 4"],"result":4,"calculusType":"none","calculusSteps":[]}`})

	env := f.svc.CompileExpression(context.Background(), "4", false)
	require.True(t, env.Success, env.Error)

	env = f.svc.CompileExpression(context.Background(), "", true)
	assert.False(t, env.Success)
	assert.Equal(t, "EMPTY_EXPRESSION", env.Code)
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	svc := New(f.cfg, f.fake, nil, WithLookPath(func(name string) (string, error) {
		if name == "readelf" {
			return "", errors.New("executable file not found in $PATH")
		}
		return "/usr/bin/" + name, nil
	}))

	env := svc.Health(context.Background())
	require.True(t, env.Success)
	data := env.Data.(HealthData)
	assert.Equal(t, "degraded", data.Status)
	require.Len(t, data.Tools, 7)
	for _, tool := range data.Tools {
		if tool.Name == "readelf" {
			assert.False(t, tool.Found)
			assert.NotEmpty(t, tool.Problem)
		} else {
			assert.True(t, tool.Found, tool.Name)
		}
	}

	env = f.svc.Health(context.Background())
	assert.Equal(t, "healthy", env.Data.(HealthData).Status)
}

func TestHistory_NoStore(t *testing.T) {
	svc := New(config.Default(), toolchain.NewReplayRunner(), nil)
	env := svc.History(context.Background(), "", 10)
	assert.False(t, env.Success)
	assert.Equal(t, CodeInvalidArgument, env.Code)
}

func TestHistory_InvalidKind(t *testing.T) {
	f := newFixture(t)
	env := f.svc.History(context.Background(), "bogus", 10)
	assert.False(t, env.Success)
}

type panicRunner struct{}

func (panicRunner) Run(context.Context, toolchain.Command) toolchain.Result {
	panic("boom")
}

func TestOperations_RecoverPanics(t *testing.T) {
	cfg := config.Default()
	cfg.Artifacts.Dir = t.TempDir()
	svc := New(cfg, panicRunner{}, nil)

	src := testutil.WriteSources(t, "a.cpp")
	env := svc.Build(context.Background(), src)
	assert.False(t, env.Success)
	assert.Equal(t, CodeInternal, env.Code)
	assert.Contains(t, env.Error, "boom")
}
