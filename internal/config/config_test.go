package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/objscope/internal/artifact"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "g++", cfg.Toolchain.Compiler)
	assert.Equal(t, []string{"-std=c++17", "-Wall", "-Wextra"}, cfg.Toolchain.CompileFlags)
	assert.Equal(t, "ld", cfg.Toolchain.Linker)
	assert.Equal(t, "objdump", cfg.Toolchain.Disassembler)
	assert.Equal(t, ".cpp", cfg.Sources.Extension)
	assert.Equal(t, "main.cpp", cfg.Sources.EntryUnit)
	assert.Equal(t, 30*time.Second, cfg.Timeouts.Build.Std())
	assert.Equal(t, 60*time.Second, cfg.Timeouts.Introspect.Std())
	assert.Equal(t, 10*time.Second, cfg.Timeouts.Expression.Std())

	desc := cfg.Descriptor()
	assert.Equal(t, filepath.Join("artifacts", "compiler_O2.o"), desc.Path(artifact.Optimized))
}

func TestLoad_Full(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "full.yaml"))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join("testdata", "full.yaml"), cfg.Path)
	assert.Equal(t, "clang++", cfg.Toolchain.Compiler)
	assert.Equal(t, []string{"-std=c++20", "-Wall"}, cfg.Toolchain.CompileFlags)
	assert.Equal(t, "llvm-size", cfg.Toolchain.Size)
	assert.Equal(t, "-O3", cfg.Levels.O2)
	assert.Equal(t, 2*time.Minute, cfg.Timeouts.Introspect.Std())
	assert.Equal(t, 500*time.Millisecond, cfg.Timeouts.Expression.Std())

	opts := cfg.BuildOptions()
	assert.Equal(t, "-O3", opts.Levels[artifact.Optimized])
	assert.Equal(t, ".cc", opts.Extension)
	assert.Equal(t, "driver.cc", opts.EntryUnit)
	assert.Equal(t, 45*time.Second, opts.Timeout)

	tools := cfg.AnalysisTools()
	assert.Equal(t, "llvm-objdump", tools.Disassembler)
	assert.Equal(t, "llvm-readelf", tools.SectionDumper)

	assert.Equal(t, "/var/tmp/objscope/calc_O0.o", cfg.Descriptor().Path(artifact.Unoptimized))
}

func TestParse_PartialKeepsDefaults(t *testing.T) {
	cfg, err := Parse("partial.yaml", []byte("toolchain:\n  compiler: clang++\n"))
	require.NoError(t, err)
	assert.Equal(t, "clang++", cfg.Toolchain.Compiler)
	assert.Equal(t, "ld", cfg.Toolchain.Linker)
	assert.Equal(t, "-O2", cfg.Levels.O2)
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse("empty.yaml", []byte("  \n"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown top-level field", "toolchains:\n  compiler: g++\n"},
		{"unknown nested field", "toolchain:\n  assembler: as\n"},
		{"bad duration", "timeouts:\n  build: soon\n"},
		{"numeric duration", "timeouts:\n  build: 30\n"},
		{"level without -O", "levels:\n  O2: fast\n"},
		{"empty compiler", "toolchain:\n  compiler: \"\"\n"},
		{"extension without dot", "sources:\n  extension: cpp\n"},
		{"base name with slash", "artifacts:\n  base_name: a/b\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("bad.yaml", []byte(tt.yaml))
			require.Error(t, err)
			assert.True(t, IsInvalid(err), "got %v", err)
			assert.Contains(t, err.Error(), "bad.yaml")
		})
	}
}

func TestLoad_MissingDefaultFileFallsBack(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_DefaultFileInWorkingDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultFile), []byte("database: h.db\n"), 0o644))
	t.Chdir(dir)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "h.db", cfg.Database)
	assert.Equal(t, DefaultFile, cfg.Path)
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.False(t, IsInvalid(err))
}
