// Package analysis drives the introspection tools against one build variant
// and hands their output to the parsers in internal/parse.
package analysis

import (
	"bytes"
	"context"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/roach88/objscope/internal/artifact"
	"github.com/roach88/objscope/internal/parse"
	"github.com/roach88/objscope/internal/toolchain"
)

// Facet names one kind of fact extracted from an artifact.
type Facet string

const (
	FacetDisassembly Facet = "disassembly"
	FacetSymbols     Facet = "symbols"
	FacetSections    Facet = "sections"
	FacetSize        Facet = "size"
)

// AllFacets lists every facet in report order.
var AllFacets = []Facet{FacetDisassembly, FacetSymbols, FacetSections, FacetSize}

// Tools names the introspection executables.
type Tools struct {
	Disassembler  string
	SymbolDumper  string
	SectionDumper string
	SizeReporter  string
}

// DefaultTools are the GNU binutils names.
var DefaultTools = Tools{
	Disassembler:  "objdump",
	SymbolDumper:  "nm",
	SectionDumper: "readelf",
	SizeReporter:  "size",
}

// DefaultTimeout bounds each introspection command.
const DefaultTimeout = 60 * time.Second

// Analyzer runs tools and parsers for one variant at a time.
type Analyzer struct {
	runner  toolchain.Runner
	tools   Tools
	timeout time.Duration
	logger  *zap.Logger
}

// New creates an Analyzer. A zero timeout selects DefaultTimeout and a nil
// logger disables logging.
func New(runner toolchain.Runner, tools Tools, timeout time.Duration, logger *zap.Logger) *Analyzer {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{
		runner:  runner,
		tools:   tools,
		timeout: timeout,
		logger:  logger.Named("analysis"),
	}
}

// Disassembly parses `objdump -d -C --no-show-raw-insn` of the variant.
func (a *Analyzer) Disassembly(ctx context.Context, v artifact.Variant) (*parse.DisassemblyReport, error) {
	out, err := a.run(ctx, v, a.tools.Disassembler, "-d", "-C", "--no-show-raw-insn", v.Path)
	if err != nil {
		return nil, err
	}
	rep, err := parse.Disassembly(bytes.NewReader(out))
	if err != nil {
		return nil, &Error{Code: ErrCodeParse, Tag: v.Tag, Err: err}
	}
	rep.Optimization = v.Tag
	return rep, nil
}

// Symbols parses `nm -C --size-sort` of the variant.
func (a *Analyzer) Symbols(ctx context.Context, v artifact.Variant) (*parse.SymbolReport, error) {
	out, err := a.run(ctx, v, a.tools.SymbolDumper, "-C", "--size-sort", v.Path)
	if err != nil {
		return nil, err
	}
	rep, err := parse.Symbols(bytes.NewReader(out))
	if err != nil {
		return nil, &Error{Code: ErrCodeParse, Tag: v.Tag, Err: err}
	}
	rep.Optimization = v.Tag
	return rep, nil
}

// Sections parses `readelf -S -W` of the variant.
func (a *Analyzer) Sections(ctx context.Context, v artifact.Variant) (*parse.SectionReport, error) {
	out, err := a.run(ctx, v, a.tools.SectionDumper, "-S", "-W", v.Path)
	if err != nil {
		return nil, err
	}
	rep, err := parse.Sections(bytes.NewReader(out))
	if err != nil {
		return nil, &Error{Code: ErrCodeParse, Tag: v.Tag, Err: err}
	}
	rep.Optimization = v.Tag
	return rep, nil
}

// Size parses `size -A` of the variant, retrying once with plain `size`
// if the SysV form fails.
func (a *Analyzer) Size(ctx context.Context, v artifact.Variant) (*parse.SizeReport, error) {
	format := parse.FormatSysV
	out, err := a.run(ctx, v, a.tools.SizeReporter, "-A", v.Path)
	if err != nil {
		if !IsToolFailure(err) {
			return nil, err
		}
		a.logger.Debug("size -A failed, retrying in summary mode",
			zap.String("level", string(v.Tag)), zap.Error(err))
		format = parse.FormatBerkeley
		out, err = a.run(ctx, v, a.tools.SizeReporter, v.Path)
		if err != nil {
			return nil, err
		}
	}
	rep, err := parse.Size(bytes.NewReader(out))
	if err != nil {
		return nil, &Error{Code: ErrCodeParse, Tag: v.Tag, Err: err}
	}
	rep.Optimization = v.Tag
	rep.Format = format
	return rep, nil
}

// run checks that the artifact exists, then runs tool and returns stdout.
func (a *Analyzer) run(ctx context.Context, v artifact.Variant, tool string, args ...string) ([]byte, error) {
	if info, err := os.Stat(v.Path); err != nil || info.IsDir() {
		return nil, NewMissingArtifactError(v.Tag, v.Path)
	}

	cmd := toolchain.Command{Name: tool, Args: args, Timeout: a.timeout}
	res := a.runner.Run(ctx, cmd)
	if !res.OK() {
		a.logger.Warn("tool failed",
			zap.String("tool", tool),
			zap.String("level", string(v.Tag)),
			zap.Int("exit_code", res.ExitCode),
			zap.Bool("timed_out", res.TimedOut),
		)
		return nil, &Error{
			Code:     ErrCodeToolFailure,
			Tag:      v.Tag,
			Tool:     tool,
			ExitCode: res.ExitCode,
			Stderr:   res.Stderr,
			TimedOut: res.TimedOut,
			Err:      toolchain.Check(cmd, res),
		}
	}
	return []byte(res.Stdout), nil
}
