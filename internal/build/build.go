// Package build compiles a source tree into one merged relocatable object per
// optimization level.
//
// Every build runs in its own work area inside the descriptor root. Merged
// artifacts are linked there and published with an atomic rename, so a reader
// never sees a half-written artifact.
package build

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/roach88/objscope/internal/artifact"
	"github.com/roach88/objscope/internal/toolchain"
)

// Options configures the toolchain and source discovery.
type Options struct {
	Compiler     string
	CompileFlags []string
	Linker       string

	// Levels maps each tag to its optimization flag.
	Levels map[artifact.Tag]string

	// Extension selects source units; EntryUnit is excluded.
	Extension string
	EntryUnit string

	// Timeout bounds each compile and link command.
	Timeout time.Duration
}

// DefaultOptions mirrors a plain g++/ld toolchain.
func DefaultOptions() Options {
	return Options{
		Compiler:     "g++",
		CompileFlags: []string{"-std=c++17", "-Wall", "-Wextra"},
		Linker:       "ld",
		Levels: map[artifact.Tag]string{
			artifact.Unoptimized: "-O0",
			artifact.Optimized:   "-O2",
		},
		Extension: ".cpp",
		EntryUnit: "main.cpp",
		Timeout:   30 * time.Second,
	}
}

// Orchestrator builds both variants of a source tree.
type Orchestrator struct {
	runner toolchain.Runner
	desc   artifact.Descriptor
	opts   Options
	ids    IDGenerator
	logger *zap.Logger
}

// New creates an Orchestrator publishing into desc. A nil logger disables
// logging.
func New(runner toolchain.Runner, desc artifact.Descriptor, opts Options, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		runner: runner,
		desc:   desc,
		opts:   opts,
		ids:    UUIDv7Generator{},
		logger: logger.Named("build"),
	}
}

// WithIDGenerator replaces the build ID source. Used by tests.
func (o *Orchestrator) WithIDGenerator(g IDGenerator) *Orchestrator {
	o.ids = g
	return o
}

// Units lists the eligible source units of dir in lexical order.
func (o *Orchestrator) Units(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "read source directory %s", dir)
	}
	var units []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, o.opts.Extension) || name == o.opts.EntryUnit {
			continue
		}
		units = append(units, name)
	}
	sort.Strings(units)
	return units, nil
}

// BuildVariants compiles and merges every eligible unit of sourceDir once per
// tag. Tags are independent: a failure of one never touches the other's
// artifact. A tag that fails leaves no artifact behind, not even a stale one.
//
// The returned error is reserved for problems outside the toolchain
// (unreadable source directory, no room for a work area). Compile and link
// failures are reported in the Result.
func (o *Orchestrator) BuildVariants(ctx context.Context, sourceDir string) (*Result, error) {
	units, err := o.Units(sourceDir)
	if err != nil {
		return nil, err
	}
	// The toolchain runs inside the source directory, so every path handed
	// to it must be absolute.
	absSource, err := filepath.Abs(sourceDir)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve source directory %s", sourceDir)
	}
	desc, err := o.desc.Abs()
	if err != nil {
		return nil, err
	}

	res := &Result{
		ID:        o.ids.Generate(),
		SourceDir: sourceDir,
		Units:     units,
		Built:     []Built{},
	}
	log := o.logger.With(zap.String("build_id", res.ID))

	if len(units) == 0 {
		res.Message = "No source files found"
		res.settle()
		log.Warn("no eligible source units", zap.String("source_dir", sourceDir))
		return res, nil
	}

	if err := os.MkdirAll(desc.Root, 0o755); err != nil {
		return nil, errors.Wrap(err, "create artifact directory")
	}
	work, err := os.MkdirTemp(desc.Root, ".build-"+res.ID+"-")
	if err != nil {
		return nil, errors.Wrap(err, "create build work area")
	}

	var cleanup error
	defer func() {
		multierr.AppendInto(&cleanup, errors.Wrap(os.RemoveAll(work), "remove build work area"))
		if cleanup != nil {
			res.CleanupWarning = cleanup.Error()
			log.Warn("build cleanup incomplete", zap.Error(cleanup))
		}
	}()

	for _, tag := range artifact.Tags {
		built, failure, cerr := o.buildTag(ctx, desc, absSource, units, work, tag)
		multierr.AppendInto(&cleanup, cerr)
		if failure != nil {
			res.Failures = append(res.Failures, *failure)
			// A failed tag must not leave a stale artifact behind.
			if rerr := os.Remove(desc.Path(tag)); rerr != nil && !os.IsNotExist(rerr) {
				multierr.AppendInto(&cleanup, errors.Wrapf(rerr, "remove stale %s artifact", tag))
			}
			log.Info("variant failed",
				zap.String("level", string(tag)),
				zap.String("stage", string(failure.Stage)),
				zap.String("unit", failure.Unit),
			)
			continue
		}
		res.Built = append(res.Built, built)
		log.Info("variant built",
			zap.String("level", string(tag)),
			zap.Int64("size", built.Size),
		)
	}

	res.settle()
	return res, nil
}

// buildTag compiles, links and publishes one variant. The returned error is
// a cleanup problem only; toolchain problems come back as a Failure.
func (o *Orchestrator) buildTag(ctx context.Context, desc artifact.Descriptor, sourceDir string, units []string, work string, tag artifact.Tag) (Built, *Failure, error) {
	dir := filepath.Join(work, string(tag))
	if err := os.Mkdir(dir, 0o755); err != nil {
		return Built{}, &Failure{Level: tag, Stage: StageCompile, Stderr: err.Error()}, nil
	}
	// Intermediates go regardless of outcome.
	release := func() error {
		return errors.Wrapf(os.RemoveAll(dir), "remove %s intermediates", tag)
	}

	objects := make([]string, 0, len(units))
	for _, unit := range units {
		obj := filepath.Join(dir, strings.TrimSuffix(unit, filepath.Ext(unit))+".o")
		args := append(append([]string{}, o.opts.CompileFlags...), o.opts.Levels[tag], "-c", filepath.Join(sourceDir, unit), "-o", obj)
		cmd := toolchain.Command{Name: o.opts.Compiler, Args: args, Dir: sourceDir, Timeout: o.opts.Timeout}
		res := o.runner.Run(ctx, cmd)
		if !res.OK() {
			return Built{}, &Failure{Level: tag, Stage: StageCompile, Unit: unit, Stderr: res.Stderr, TimedOut: res.TimedOut}, release()
		}
		objects = append(objects, obj)
	}

	merged := filepath.Join(dir, filepath.Base(desc.Path(tag)))
	args := append([]string{"-r", "-o", merged}, objects...)
	cmd := toolchain.Command{Name: o.opts.Linker, Args: args, Dir: sourceDir, Timeout: o.opts.Timeout}
	if res := o.runner.Run(ctx, cmd); !res.OK() {
		return Built{}, &Failure{Level: tag, Stage: StageLink, Stderr: res.Stderr, TimedOut: res.TimedOut}, release()
	}
	if _, err := os.Stat(merged); err != nil {
		return Built{}, &Failure{Level: tag, Stage: StageLink, Stderr: "linker produced no output"}, release()
	}

	target := desc.Path(tag)
	if err := os.Rename(merged, target); err != nil {
		return Built{}, &Failure{Level: tag, Stage: StagePublish, Stderr: err.Error()}, release()
	}

	v, err := desc.Lookup(tag)
	if err != nil {
		return Built{}, &Failure{Level: tag, Stage: StagePublish, Stderr: err.Error()}, release()
	}
	built := Built{Variant: v}
	if digest, err := artifact.Digest(target); err == nil {
		built.Digest = digest
	} else {
		o.logger.Warn("failed to fingerprint artifact", zap.String("level", string(tag)), zap.Error(err))
	}
	return built, nil, release()
}
