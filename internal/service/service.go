// Package service exposes the engine's operations as request/response calls
// returning an Envelope. It never panics past its boundary: failures become
// Envelopes with Success false.
//
// When a store is attached, every build and report is recorded in the
// history database. Recording failures are logged and do not fail the
// request.
package service

import (
	"context"
	"os/exec"

	"go.uber.org/zap"

	"github.com/roach88/objscope/internal/analysis"
	"github.com/roach88/objscope/internal/artifact"
	"github.com/roach88/objscope/internal/build"
	"github.com/roach88/objscope/internal/compare"
	"github.com/roach88/objscope/internal/config"
	"github.com/roach88/objscope/internal/exprc"
	"github.com/roach88/objscope/internal/parse"
	"github.com/roach88/objscope/internal/store"
	"github.com/roach88/objscope/internal/toolchain"
)

// Service wires the build orchestrator, analyzer, comparator, expression
// compiler client and history store.
type Service struct {
	cfg      *config.Config
	desc     artifact.Descriptor
	builder  *build.Orchestrator
	analyzer *analysis.Analyzer
	compiler *exprc.Client
	store    *store.Store
	ids      build.IDGenerator
	lookPath func(string) (string, error)
	logger   *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithStore records history in st.
func WithStore(st *store.Store) Option {
	return func(s *Service) { s.store = st }
}

// WithIDGenerator replaces the build and report ID source.
func WithIDGenerator(g build.IDGenerator) Option {
	return func(s *Service) { s.ids = g }
}

// WithLookPath replaces exec.LookPath for Health and the expression compiler.
func WithLookPath(fn func(string) (string, error)) Option {
	return func(s *Service) { s.lookPath = fn }
}

// New creates a Service. Every external process goes through runner.
func New(cfg *config.Config, runner toolchain.Runner, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		cfg:      cfg,
		desc:     cfg.Descriptor(),
		ids:      build.UUIDv7Generator{},
		lookPath: exec.LookPath,
		logger:   logger.Named("service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.builder = build.New(runner, s.desc, cfg.BuildOptions(), logger).WithIDGenerator(s.ids)
	s.analyzer = analysis.New(runner, cfg.AnalysisTools(), cfg.Timeouts.Introspect.Std(), logger)
	s.compiler = exprc.New(runner, cfg.ExpressionCompiler, cfg.Timeouts.Expression.Std(), logger)
	s.compiler.SetLookPath(s.lookPath)
	return s
}

// Descriptor returns where the service publishes artifacts.
func (s *Service) Descriptor() artifact.Descriptor { return s.desc }

// Build compiles both variants of sourceDir. The envelope succeeds when at
// least one variant was built; Data is always the build.Result when the
// build ran.
func (s *Service) Build(ctx context.Context, sourceDir string) (env Envelope) {
	defer recoverInto(&env)

	res, err := s.builder.BuildVariants(ctx, sourceDir)
	if err != nil {
		return fail(err)
	}
	s.recordBuild(ctx, res)

	if res.Status == build.StatusError {
		return Envelope{Data: res, Error: res.Message, Code: CodeBuildFailed}
	}
	return ok(res)
}

// Analyze extracts all four facets of the variant for tag. A missing
// artifact fails the request; a failing tool only drops its facet.
func (s *Service) Analyze(ctx context.Context, tag artifact.Tag) (env Envelope) {
	defer recoverInto(&env)

	if !tag.Valid() {
		return Envelope{Error: "invalid optimization level " + string(tag), Code: CodeInvalidArgument}
	}
	res, err := s.analyzer.Analyze(ctx, s.desc, tag)
	if err != nil {
		return fail(err)
	}
	s.recordReport(ctx, store.ReportAnalysis, tag, res.Digest, res)
	return ok(res)
}

// Disassembly returns the disassembly report of the variant for tag.
func (s *Service) Disassembly(ctx context.Context, tag artifact.Tag) (env Envelope) {
	defer recoverInto(&env)

	if !tag.Valid() {
		return Envelope{Error: "invalid optimization level " + string(tag), Code: CodeInvalidArgument}
	}
	res, err := s.analyzer.Analyze(ctx, s.desc, tag, analysis.FacetDisassembly)
	if err != nil {
		return fail(err)
	}
	if ferr := res.Err(analysis.FacetDisassembly); ferr != nil {
		return fail(ferr)
	}
	s.recordReport(ctx, store.ReportDisassembly, tag, res.Digest, res.Disassembly)
	return ok(DisassemblyData{Digest: res.Digest, DisassemblyReport: res.Disassembly})
}

// DisassemblyData is the payload of Disassembly.
type DisassemblyData struct {
	Digest string `json:"digest,omitempty"`
	*parse.DisassemblyReport
}

// Compare analyzes both variants and returns their deltas. It always
// succeeds; missing variants and failed facets are explained in the report.
func (s *Service) Compare(ctx context.Context) (env Envelope) {
	defer recoverInto(&env)

	rep, err := compare.Run(ctx, s.analyzer, s.desc)
	if err != nil {
		return fail(err)
	}
	if len(rep.MissingArtifacts) == 0 {
		s.recordReport(ctx, store.ReportComparison, "", "", rep)
	}
	return ok(rep)
}

// CompileExpression runs the expression compiler on expr, passing it on
// stdin when viaStdin is set.
func (s *Service) CompileExpression(ctx context.Context, expr string, viaStdin bool) (env Envelope) {
	defer recoverInto(&env)

	var (
		res *exprc.Result
		err error
	)
	if viaStdin {
		res, err = s.compiler.CompileStdin(ctx, expr)
	} else {
		res, err = s.compiler.Compile(ctx, expr)
	}
	if err != nil {
		return fail(err)
	}
	return ok(res)
}

// History lists recent builds and reports. kind filters reports; an empty
// kind lists all.
func (s *Service) History(ctx context.Context, kind store.ReportKind, limit int) (env Envelope) {
	defer recoverInto(&env)

	if s.store == nil {
		return Envelope{Error: "no history database configured", Code: CodeInvalidArgument}
	}
	if _, valid := store.ParseReportKind(string(kind)); !valid {
		return Envelope{Error: "invalid report kind " + string(kind), Code: CodeInvalidArgument}
	}
	builds, err := s.store.ListBuilds(ctx, limit)
	if err != nil {
		return fail(err)
	}
	reports, err := s.store.ListReports(ctx, kind, limit)
	if err != nil {
		return fail(err)
	}
	return ok(HistoryData{Builds: builds, Reports: reports})
}

// HistoryData is the payload of History.
type HistoryData struct {
	Builds  []store.BuildRecord  `json:"builds"`
	Reports []store.ReportRecord `json:"reports"`
}

func (s *Service) recordBuild(ctx context.Context, res *build.Result) {
	if s.store == nil {
		return
	}
	rec := store.BuildRecord{ID: res.ID, SourceDir: res.SourceDir, Status: string(res.Status)}
	for _, b := range res.Built {
		rec.Artifacts = append(rec.Artifacts, store.ArtifactRecord{
			Tag:    b.Tag,
			Path:   b.Path,
			Size:   b.Size,
			Digest: b.Digest,
		})
	}
	if _, err := s.store.WriteBuild(ctx, rec, res); err != nil {
		s.logger.Warn("failed to record build", zap.String("build_id", res.ID), zap.Error(err))
	}
}

func (s *Service) recordReport(ctx context.Context, kind store.ReportKind, tag artifact.Tag, digest string, body any) {
	if s.store == nil {
		return
	}
	rec := store.ReportRecord{ID: s.ids.Generate(), Kind: kind, Tag: tag, Digest: digest}
	if _, err := s.store.WriteReport(ctx, rec, body); err != nil {
		s.logger.Warn("failed to record report", zap.String("kind", string(kind)), zap.Error(err))
	}
}
