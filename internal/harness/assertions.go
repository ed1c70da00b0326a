package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/objscope/internal/artifact"
	"github.com/roach88/objscope/internal/compare"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

func facetPresent(r *compare.Report, facet string) bool {
	switch facet {
	case "disassembly":
		return r.Disassembly != nil
	case "size":
		return r.Size != nil
	case "symbols":
		return r.Symbols != nil
	}
	return false
}

// explainAbsence describes why facet is missing, from the report's own
// bookkeeping.
func explainAbsence(r *compare.Report, facet string) string {
	if len(r.MissingArtifacts) > 0 {
		return fmt.Sprintf("absent (missing artifacts: %v)", r.MissingArtifacts)
	}
	var reasons []string
	for _, fe := range r.FacetErrors {
		if string(fe.Facet) == facet {
			reasons = append(reasons, fmt.Sprintf("%s: %s", fe.Level, strings.TrimSpace(fe.Error)))
		}
	}
	if len(reasons) == 0 {
		return "absent"
	}
	return "absent (" + strings.Join(reasons, "; ") + ")"
}

func assertFacetPresent(r *compare.Report, a Assertion) error {
	if facetPresent(r, a.Facet) {
		return nil
	}
	return &AssertionError{
		Type:     AssertFacetPresent,
		Expected: fmt.Sprintf("%s facet present", a.Facet),
		Actual:   explainAbsence(r, a.Facet),
	}
}

func assertFacetAbsent(r *compare.Report, a Assertion) error {
	if !facetPresent(r, a.Facet) {
		return nil
	}
	return &AssertionError{
		Type:     AssertFacetAbsent,
		Expected: fmt.Sprintf("%s facet absent", a.Facet),
		Actual:   "present",
	}
}

// checkDelta compares the optional expectations of a against a computed
// delta.
func checkDelta(kind string, a Assertion, reduction int64, percent float64) error {
	var want, got []string
	if a.Reduction != nil && *a.Reduction != reduction {
		want = append(want, fmt.Sprintf("reduction %d", *a.Reduction))
		got = append(got, fmt.Sprintf("reduction %d", reduction))
	}
	if a.Percent != nil && *a.Percent != percent {
		want = append(want, fmt.Sprintf("percent %.2f", *a.Percent))
		got = append(got, fmt.Sprintf("percent %.2f", percent))
	}
	if len(want) == 0 {
		return nil
	}
	return &AssertionError{
		Type:     kind,
		Expected: strings.Join(want, ", "),
		Actual:   strings.Join(got, ", "),
	}
}

func assertInstructionReduction(r *compare.Report, a Assertion) error {
	if r.Disassembly == nil {
		return &AssertionError{Type: a.Type, Expected: "disassembly facet", Actual: explainAbsence(r, "disassembly")}
	}
	return checkDelta(a.Type, a, int64(r.Disassembly.Reduction), r.Disassembly.ReductionPercent)
}

func assertSizeReduction(r *compare.Report, a Assertion) error {
	if r.Size == nil {
		return &AssertionError{Type: a.Type, Expected: "size facet", Actual: explainAbsence(r, "size")}
	}
	return checkDelta(a.Type, a, r.Size.Reduction, r.Size.ReductionPercent)
}

func assertMissingArtifact(r *compare.Report, a Assertion) error {
	tag, _ := artifact.ParseTag(a.Level)
	for _, m := range r.MissingArtifacts {
		if m == tag {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertMissingArtifact,
		Expected: fmt.Sprintf("%s listed as missing", tag),
		Actual:   fmt.Sprintf("missing artifacts: %v", r.MissingArtifacts),
	}
}

// EvaluateAssertions checks every assertion and returns the failure messages.
func EvaluateAssertions(r *compare.Report, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertFacetPresent:
			err = assertFacetPresent(r, a)
		case AssertFacetAbsent:
			err = assertFacetAbsent(r, a)
		case AssertInstructionReduction:
			err = assertInstructionReduction(r, a)
		case AssertSizeReduction:
			err = assertSizeReduction(r, a)
		case AssertMissingArtifact:
			err = assertMissingArtifact(r, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}
