package build

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/roach88/objscope/internal/artifact"
	"github.com/roach88/objscope/internal/testutil"
	"github.com/roach88/objscope/internal/toolchain"
)

func newTestOrchestrator(t *testing.T, r toolchain.Runner) (*Orchestrator, artifact.Descriptor) {
	t.Helper()
	desc := artifact.NewDescriptor(filepath.Join(t.TempDir(), "artifacts"), "compiler")
	o := New(r, desc, DefaultOptions(), zaptest.NewLogger(t)).
		WithIDGenerator(NewFixedGenerator("build-1", "build-2", "build-3"))
	return o, desc
}

func readArtifact(t *testing.T, desc artifact.Descriptor, tag artifact.Tag) string {
	t.Helper()
	data, err := os.ReadFile(desc.Path(tag))
	require.NoError(t, err)
	return string(data)
}

// onlyArtifacts asserts the descriptor root holds nothing but published
// artifacts: every work area has been released.
func onlyArtifacts(t *testing.T, desc artifact.Descriptor) {
	t.Helper()
	entries, err := os.ReadDir(desc.Root)
	require.NoError(t, err)
	for _, e := range entries {
		assert.True(t, strings.HasSuffix(e.Name(), ".o") && !e.IsDir(), "unexpected entry %s", e.Name())
	}
}

func TestUnits_FiltersAndSorts(t *testing.T) {
	src := testutil.WriteSources(t, "parser.cpp", "main.cpp", "lexer.cpp", "notes.txt", "ast.h")
	require.NoError(t, os.Mkdir(filepath.Join(src, "sub.cpp"), 0o755))

	o, _ := newTestOrchestrator(t, testutil.NewFakeToolchain())
	units, err := o.Units(src)
	require.NoError(t, err)
	assert.Equal(t, []string{"lexer.cpp", "parser.cpp"}, units)
}

func TestBuildVariants_Success(t *testing.T) {
	src := testutil.WriteSources(t, "parser.cpp", "lexer.cpp", "main.cpp")
	fake := testutil.NewFakeToolchain()
	o, desc := newTestOrchestrator(t, fake)

	res, err := o.BuildVariants(context.Background(), src)
	require.NoError(t, err)

	assert.Equal(t, "build-1", res.ID)
	assert.Equal(t, StatusSuccess, res.Status)
	assert.Empty(t, res.Failures)
	assert.Empty(t, res.CleanupWarning)
	assert.Equal(t, []string{"lexer.cpp", "parser.cpp"}, res.Units)
	require.Len(t, res.Built, 2)

	for i, tag := range artifact.Tags {
		b := res.Built[i]
		assert.Equal(t, tag, b.Tag)
		assert.Equal(t, desc.Path(tag), b.Path)
		assert.Len(t, b.Digest, 64)
		info, err := os.Stat(b.Path)
		require.NoError(t, err)
		assert.Equal(t, info.Size(), b.Size)
	}

	assert.Equal(t, "-O0 lexer.cpp\n-O0 parser.cpp\n", readArtifact(t, desc, artifact.Unoptimized))
	assert.Equal(t, "-O2 lexer.cpp\n-O2 parser.cpp\n", readArtifact(t, desc, artifact.Optimized))
	onlyArtifacts(t, desc)

	compiles := fake.CallsTo("g++")
	require.Len(t, compiles, 4)
	assert.Equal(t, []string{"-std=c++17", "-Wall", "-Wextra", "-O0", "-c"}, compiles[0].Args[:5])
	assert.Equal(t, filepath.Join(src, "lexer.cpp"), compiles[0].Args[5])

	links := fake.CallsTo("ld")
	require.Len(t, links, 2)
	assert.Equal(t, []string{"-r", "-o"}, links[0].Args[:2])
	for _, c := range fake.Calls() {
		assert.Equal(t, DefaultOptions().Timeout, c.Timeout)
	}
}

func TestBuildVariants_CompileFailureStopsThatTagOnly(t *testing.T) {
	src := testutil.WriteSources(t, "a.cpp", "b.cpp", "c.cpp")
	fake := testutil.NewFakeToolchain()
	fake.FailCompile("-O2", "b.cpp", "b.cpp:3:1: error: expected ';' before '}' token\n")
	o, desc := newTestOrchestrator(t, fake)

	res, err := o.BuildVariants(context.Background(), src)
	require.NoError(t, err)

	assert.Equal(t, StatusPartial, res.Status)
	require.Len(t, res.Built, 1)
	assert.Equal(t, artifact.Unoptimized, res.Built[0].Tag)

	require.Len(t, res.Failures, 1)
	f := res.Failures[0]
	assert.Equal(t, artifact.Optimized, f.Level)
	assert.Equal(t, StageCompile, f.Stage)
	assert.Equal(t, "b.cpp", f.Unit)
	assert.Equal(t, "b.cpp:3:1: error: expected ';' before '}' token\n", f.Stderr)
	assert.Contains(t, res.Message, "Compilation failed for b.cpp")

	// c.cpp is never compiled at -O2.
	for _, c := range fake.CallsTo("g++") {
		if c.Args[3] == "-O2" {
			assert.NotContains(t, c.Args, filepath.Join(src, "c.cpp"))
		}
	}
	assert.Len(t, fake.CallsTo("ld"), 1)

	_, err = os.Stat(desc.Path(artifact.Optimized))
	assert.True(t, os.IsNotExist(err))
	onlyArtifacts(t, desc)
}

func TestBuildVariants_LinkFailure(t *testing.T) {
	src := testutil.WriteSources(t, "a.cpp")
	fake := testutil.NewFakeToolchain()
	fake.FailLink("-O0", "ld: a.o: undefined reference to `g'")
	o, desc := newTestOrchestrator(t, fake)

	res, err := o.BuildVariants(context.Background(), src)
	require.NoError(t, err)

	assert.Equal(t, StatusPartial, res.Status)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, StageLink, res.Failures[0].Stage)
	assert.Equal(t, artifact.Unoptimized, res.Failures[0].Level)
	assert.Empty(t, res.Failures[0].Unit)

	_, ok := res.Variant(artifact.Optimized)
	assert.True(t, ok)
	_, ok = res.Variant(artifact.Unoptimized)
	assert.False(t, ok)
	onlyArtifacts(t, desc)
}

func TestBuildVariants_AllFail(t *testing.T) {
	src := testutil.WriteSources(t, "a.cpp")
	fake := testutil.NewFakeToolchain()
	fake.FailCompile("", "a.cpp", "a.cpp: fatal error")
	o, _ := newTestOrchestrator(t, fake)

	res, err := o.BuildVariants(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, StatusError, res.Status)
	assert.Empty(t, res.Built)
	assert.Len(t, res.Failures, 2)
}

func TestBuildVariants_NoEligibleUnits(t *testing.T) {
	src := testutil.WriteSources(t, "main.cpp", "README.md")
	fake := testutil.NewFakeToolchain()
	o, _ := newTestOrchestrator(t, fake)

	res, err := o.BuildVariants(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, StatusError, res.Status)
	assert.Equal(t, "No source files found", res.Message)
	assert.Empty(t, fake.Calls())
}

func TestBuildVariants_MissingSourceDir(t *testing.T) {
	o, _ := newTestOrchestrator(t, testutil.NewFakeToolchain())
	_, err := o.BuildVariants(context.Background(), filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read source directory")
}

func TestBuildVariants_RebuildReplacesAndFailureRemovesStale(t *testing.T) {
	src := testutil.WriteSources(t, "a.cpp")
	fake := testutil.NewFakeToolchain()
	o, desc := newTestOrchestrator(t, fake)

	first, err := o.BuildVariants(context.Background(), src)
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, first.Status)
	before := readArtifact(t, desc, artifact.Unoptimized)

	// Second build: O2 fails, O0 is rebuilt.
	require.NoError(t, os.WriteFile(filepath.Join(src, "b.cpp"), []byte("int b;"), 0o644))
	fake.FailCompile("-O2", "b.cpp", "error")

	second, err := o.BuildVariants(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, "build-2", second.ID)
	assert.Equal(t, StatusPartial, second.Status)

	after := readArtifact(t, desc, artifact.Unoptimized)
	assert.NotEqual(t, before, after)
	assert.Equal(t, "-O0 a.cpp\n-O0 b.cpp\n", after)

	_, err = os.Stat(desc.Path(artifact.Optimized))
	assert.True(t, os.IsNotExist(err), "stale O2 artifact must be removed")
}

func TestBuildVariants_TimeoutIsRecorded(t *testing.T) {
	src := testutil.WriteSources(t, "a.cpp")
	r := toolchain.NewReplayRunner()
	r.Add("g++", "", toolchain.Result{ExitCode: -1, TimedOut: true, Stderr: "command timed out after 30s"})
	o, _ := newTestOrchestrator(t, r)

	res, err := o.BuildVariants(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, StatusError, res.Status)
	require.Len(t, res.Failures, 2)
	assert.True(t, res.Failures[0].TimedOut)
}

// relativeTree lays out ./src and returns a descriptor rooted at the
// relative "artifacts" directory, the shape of the default config.
func relativeTree(t *testing.T, units ...string) artifact.Descriptor {
	t.Helper()
	t.Chdir(t.TempDir())
	require.NoError(t, os.Mkdir("src", 0o755))
	for i, unit := range units {
		body := []byte("int unit_" + string(rune('a'+i)) + "(int x) { return x * 2 + 1; }\n")
		require.NoError(t, os.WriteFile(filepath.Join("src", unit), body, 0o644))
	}
	return artifact.NewDescriptor("artifacts", "compiler")
}

func TestBuildVariants_RelativePathsReachToolchainAbsolute(t *testing.T) {
	desc := relativeTree(t, "a.cpp", "b.cpp")
	fake := testutil.NewFakeToolchain()
	o := New(fake, desc, DefaultOptions(), zaptest.NewLogger(t)).
		WithIDGenerator(NewFixedGenerator("build-1"))

	res, err := o.BuildVariants(context.Background(), "./src")
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, res.Status, "failures: %+v", res.Failures)

	for _, c := range fake.Calls() {
		assert.True(t, filepath.IsAbs(c.Dir), "dir %q", c.Dir)
		for i, a := range c.Args {
			if i > 0 && (c.Args[i-1] == "-c" || c.Args[i-1] == "-o") {
				assert.True(t, filepath.IsAbs(a), "%s argument %q", c.Name, a)
			}
		}
	}
	assert.Equal(t, "-O2 a.cpp\n-O2 b.cpp\n", readArtifact(t, desc, artifact.Optimized))
	onlyArtifacts(t, desc)
}

func TestBuildVariants_RelativePathsWithRealToolchain(t *testing.T) {
	for _, tool := range []string{"g++", "ld"} {
		if _, err := exec.LookPath(tool); err != nil {
			t.Skipf("%s not on PATH", tool)
		}
	}
	desc := relativeTree(t, "a.cpp", "b.cpp")
	o := New(toolchain.NewExecRunner(zaptest.NewLogger(t)), desc, DefaultOptions(), zaptest.NewLogger(t))

	res, err := o.BuildVariants(context.Background(), "./src")
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, res.Status, "failures: %+v", res.Failures)
	require.Len(t, res.Built, 2)

	for _, tag := range artifact.Tags {
		v, err := desc.Lookup(tag)
		require.NoError(t, err)
		assert.Positive(t, v.Size)
	}
	onlyArtifacts(t, desc)
}

func TestFixedGenerator(t *testing.T) {
	g := NewFixedGenerator("a", "b")
	assert.Equal(t, "a", g.Generate())
	assert.Equal(t, "b", g.Generate())
	assert.Panics(t, func() { g.Generate() })

	assert.Len(t, UUIDv7Generator{}.Generate(), 36)
}
