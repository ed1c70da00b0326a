package analysis

import (
	"context"

	"go.uber.org/zap"

	"github.com/roach88/objscope/internal/artifact"
	"github.com/roach88/objscope/internal/parse"
)

// Analysis is every requested facet of one variant. A facet whose tool or
// parser failed is absent and its error is recorded in Errors.
type Analysis struct {
	Variant     artifact.Variant         `json:"variant"`
	Digest      string                   `json:"digest,omitempty"`
	Disassembly *parse.DisassemblyReport `json:"disassembly,omitempty"`
	Symbols     *parse.SymbolReport      `json:"symbols,omitempty"`
	Sections    *parse.SectionReport     `json:"sections,omitempty"`
	Size        *parse.SizeReport        `json:"size,omitempty"`
	Errors      map[Facet]string         `json:"facet_errors,omitempty"`
	failures    map[Facet]error
}

// Err returns the error recorded for facet, or nil.
func (a *Analysis) Err(f Facet) error {
	if a == nil {
		return nil
	}
	return a.failures[f]
}

func (a *Analysis) fail(f Facet, err error) {
	if a.Errors == nil {
		a.Errors = make(map[Facet]string)
		a.failures = make(map[Facet]error)
	}
	a.Errors[f] = err.Error()
	a.failures[f] = err
}

// Analyze snapshots the artifact for tag and extracts the requested facets
// from the snapshot, so all tools read the same bytes even if a rebuild
// publishes a new artifact meanwhile. With no facets given, all four are
// extracted.
//
// The only error returned is MISSING_ARTIFACT (or an I/O error taking the
// snapshot); per-facet failures are recorded on the Analysis.
func (a *Analyzer) Analyze(ctx context.Context, desc artifact.Descriptor, tag artifact.Tag, facets ...Facet) (*Analysis, error) {
	if len(facets) == 0 {
		facets = AllFacets
	}

	snap, err := desc.Snapshot(tag)
	if err != nil {
		if me := missingFrom(err); me != nil {
			return nil, me
		}
		return nil, err
	}
	defer func() {
		if cerr := snap.Close(); cerr != nil {
			a.logger.Warn("failed to release analysis work area", zap.Error(cerr))
		}
	}()

	v := snap.Variant
	result := &Analysis{
		Variant: artifact.Variant{Tag: tag, Path: desc.Path(tag), Size: v.Size},
	}
	if digest, err := artifact.Digest(v.Path); err != nil {
		a.logger.Warn("failed to fingerprint artifact", zap.String("level", string(tag)), zap.Error(err))
	} else {
		result.Digest = digest
	}

	for _, f := range facets {
		var ferr error
		switch f {
		case FacetDisassembly:
			result.Disassembly, ferr = a.Disassembly(ctx, v)
		case FacetSymbols:
			result.Symbols, ferr = a.Symbols(ctx, v)
		case FacetSections:
			result.Sections, ferr = a.Sections(ctx, v)
		case FacetSize:
			result.Size, ferr = a.Size(ctx, v)
		}
		if ferr != nil {
			result.fail(f, ferr)
		}
	}

	a.logger.Debug("analysis complete",
		zap.String("level", string(tag)),
		zap.Int("facets", len(facets)),
		zap.Int("failed", len(result.Errors)),
	)
	return result, nil
}
