// Package compare computes the deltas between the unoptimized and optimized
// variants.
//
// A Report never fails as a whole. Each facet is present only when both
// variants produced data for it; anything missing is explained in
// MissingArtifacts or FacetErrors instead.
package compare

import (
	"context"
	"math"

	"github.com/roach88/objscope/internal/analysis"
	"github.com/roach88/objscope/internal/artifact"
	"github.com/roach88/objscope/internal/parse"
)

// Facets are the compared inputs for one variant. Nil fields are absent.
type Facets struct {
	Disassembly *parse.DisassemblyReport
	Size        *parse.SizeReport
	Symbols     *parse.SymbolReport
}

// FacetsOf extracts the compared facets from an analysis.
func FacetsOf(a *analysis.Analysis) Facets {
	if a == nil {
		return Facets{}
	}
	return Facets{Disassembly: a.Disassembly, Size: a.Size, Symbols: a.Symbols}
}

// InstructionDelta compares total instruction counts.
type InstructionDelta struct {
	O0               int     `json:"O0_instructions"`
	O2               int     `json:"O2_instructions"`
	Reduction        int     `json:"reduction"`
	ReductionPercent float64 `json:"reduction_percent"`
}

// SizeDelta compares total segment sizes and carries both raw metric sets.
type SizeDelta struct {
	O0               parse.SizeMetrics `json:"O0"`
	O2               parse.SizeMetrics `json:"O2"`
	Reduction        int64             `json:"reduction"`
	ReductionPercent float64           `json:"reduction_percent"`
}

// SymbolTotals carries both symbol totals. There is no delta.
type SymbolTotals struct {
	O0 int `json:"O0_total"`
	O2 int `json:"O2_total"`
}

// FacetError explains why a facet is absent from a Report.
type FacetError struct {
	Facet analysis.Facet `json:"facet"`
	Level artifact.Tag   `json:"level"`
	Error string         `json:"error"`
}

// Report is the comparison result.
type Report struct {
	Disassembly      *InstructionDelta `json:"disassembly,omitempty"`
	Size             *SizeDelta        `json:"size,omitempty"`
	Symbols          *SymbolTotals     `json:"symbols,omitempty"`
	MissingArtifacts []artifact.Tag    `json:"missing_artifacts,omitempty"`
	FacetErrors      []FacetError      `json:"facet_errors,omitempty"`
}

// Empty reports whether no facet could be computed.
func (r *Report) Empty() bool {
	return r.Disassembly == nil && r.Size == nil && r.Symbols == nil
}

// ComparedFacets are the analysis facets a comparison needs, in report order.
var ComparedFacets = []analysis.Facet{analysis.FacetDisassembly, analysis.FacetSize, analysis.FacetSymbols}

// Compare builds a Report from the facets of the O0 and O2 variants.
func Compare(o0, o2 Facets) *Report {
	r := &Report{}

	if o0.Disassembly != nil && o2.Disassembly != nil {
		a, b := o0.Disassembly.TotalInstructions, o2.Disassembly.TotalInstructions
		r.Disassembly = &InstructionDelta{
			O0:               a,
			O2:               b,
			Reduction:        a - b,
			ReductionPercent: Percent(int64(a-b), int64(a)),
		}
	}

	if o0.Size != nil && o2.Size != nil {
		a, b := o0.Size.Metrics, o2.Size.Metrics
		reduction := int64(a.Total) - int64(b.Total)
		r.Size = &SizeDelta{
			O0:               a,
			O2:               b,
			Reduction:        reduction,
			ReductionPercent: Percent(reduction, int64(a.Total)),
		}
	}

	if o0.Symbols != nil && o2.Symbols != nil {
		r.Symbols = &SymbolTotals{
			O0: o0.Symbols.TotalSymbols,
			O2: o2.Symbols.TotalSymbols,
		}
	}

	return r
}

// Percent returns delta/base*100 rounded to two decimal places, or 0 when
// base is zero. A negative delta (growth) yields a negative percentage.
func Percent(delta, base int64) float64 {
	if base == 0 {
		return 0
	}
	return math.Round(float64(delta)/float64(base)*100*100) / 100
}

// Run analyzes both variants and compares them. If either artifact is
// missing, no tool runs and the Report lists the missing tags.
func Run(ctx context.Context, an *analysis.Analyzer, desc artifact.Descriptor) (*Report, error) {
	var missing []artifact.Tag
	for _, tag := range artifact.Tags {
		if _, err := desc.Lookup(tag); err != nil {
			if !artifact.IsMissing(err) {
				return nil, err
			}
			missing = append(missing, tag)
		}
	}
	if len(missing) > 0 {
		return &Report{MissingArtifacts: missing}, nil
	}

	results := make(map[artifact.Tag]*analysis.Analysis, len(artifact.Tags))
	for _, tag := range artifact.Tags {
		res, err := an.Analyze(ctx, desc, tag, ComparedFacets...)
		if err != nil {
			// Removed between the lookup and the snapshot.
			if analysis.IsMissingArtifact(err) {
				missing = append(missing, tag)
				continue
			}
			return nil, err
		}
		results[tag] = res
	}
	if len(missing) > 0 {
		return &Report{MissingArtifacts: missing}, nil
	}

	o0, o2 := results[artifact.Unoptimized], results[artifact.Optimized]
	report := Compare(FacetsOf(o0), FacetsOf(o2))
	for _, f := range ComparedFacets {
		for _, tag := range artifact.Tags {
			if msg, ok := results[tag].Errors[f]; ok {
				report.FacetErrors = append(report.FacetErrors, FacetError{Facet: f, Level: tag, Error: msg})
			}
		}
	}
	return report, nil
}
