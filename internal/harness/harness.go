package harness

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/roach88/objscope/internal/analysis"
	"github.com/roach88/objscope/internal/artifact"
	"github.com/roach88/objscope/internal/compare"
	"github.com/roach88/objscope/internal/toolchain"
)

// baseName names the placeholder artifacts; recordings match on it.
const baseName = "scenario"

// Run replays the scenario and evaluates its assertions. Golden files are
// checked by the caller (see CheckGolden and RunWithGolden).
//
// Each run uses a fresh temporary artifact directory for isolation.
func Run(ctx context.Context, scenario *Scenario, logger *zap.Logger) (*Result, error) {
	dir, err := os.MkdirTemp("", "objscope-scenario-")
	if err != nil {
		return nil, fmt.Errorf("failed to create scenario work area: %w", err)
	}
	defer os.RemoveAll(dir)

	desc := artifact.NewDescriptor(dir, baseName)
	runner := toolchain.NewReplayRunner()
	for _, tag := range artifact.Tags {
		v, ok := scenario.Variants[string(tag)]
		if !ok || v.Missing {
			continue
		}
		// Placeholder bytes; tools never read them.
		if err := os.WriteFile(desc.Path(tag), []byte(scenario.Name+" "+string(tag)), 0o644); err != nil {
			return nil, fmt.Errorf("failed to write %s artifact: %w", tag, err)
		}
		record(runner, tag, v)
	}

	an := analysis.New(runner, analysis.DefaultTools, 0, logger)
	report, err := compare.Run(ctx, an, desc)
	if err != nil {
		return nil, fmt.Errorf("failed to compare: %w", err)
	}

	result := NewResult()
	result.Report = report
	for _, msg := range EvaluateAssertions(report, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// record registers the transcripts of one level, keyed on its artifact name
// so the two levels never answer for each other.
func record(r *toolchain.ReplayRunner, tag artifact.Tag, v Variant) {
	name := baseName + "_" + string(tag) + ".o"
	tools := analysis.DefaultTools
	outputs := []struct{ tool, stdout string }{
		{tools.Disassembler, v.Objdump},
		{tools.SymbolDumper, v.Nm},
		{tools.SectionDumper, v.Readelf},
		{tools.SizeReporter, v.Size},
	}
	for _, o := range outputs {
		if f, failed := v.Failures[o.tool]; failed {
			r.Add(o.tool, name, toolchain.Result{ExitCode: f.ExitCode, Stderr: f.Stderr, TimedOut: f.TimedOut})
			continue
		}
		r.Add(o.tool, name, toolchain.Result{Stdout: o.stdout})
	}
}
