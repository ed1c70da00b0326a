package build

import (
	"fmt"
	"strings"

	"github.com/roach88/objscope/internal/artifact"
)

// Status summarizes a build across both tags.
type Status string

const (
	StatusSuccess Status = "success" // both variants built
	StatusPartial Status = "partial" // exactly one variant built
	StatusError   Status = "error"   // nothing built
)

// Stage is the build step that failed.
type Stage string

const (
	StageCompile Stage = "compile"
	StageLink    Stage = "link"
	StagePublish Stage = "publish"
)

// Built describes a published artifact.
type Built struct {
	artifact.Variant
	Digest string `json:"digest,omitempty"`
}

// Failure describes why one tag produced no artifact.
type Failure struct {
	Level    artifact.Tag `json:"level"`
	Stage    Stage        `json:"stage"`
	Unit     string       `json:"unit,omitempty"`
	Stderr   string       `json:"stderr"`
	TimedOut bool         `json:"timed_out,omitempty"`
}

// Summary renders the failure as one line.
func (f Failure) Summary() string {
	msg := strings.TrimSpace(f.Stderr)
	switch f.Stage {
	case StageCompile:
		return fmt.Sprintf("Compilation failed for %s (%s): %s", f.Unit, f.Level, msg)
	case StageLink:
		return fmt.Sprintf("Linking failed for %s: %s", f.Level, msg)
	}
	return fmt.Sprintf("Publishing failed for %s: %s", f.Level, msg)
}

// Result is the outcome of BuildVariants.
type Result struct {
	ID             string    `json:"id"`
	Status         Status    `json:"status"`
	Message        string    `json:"message"`
	SourceDir      string    `json:"source_dir"`
	Units          []string  `json:"units"`
	Built          []Built   `json:"built"`
	Failures       []Failure `json:"failures,omitempty"`
	CleanupWarning string    `json:"cleanup_warning,omitempty"`
}

// Variant returns the built variant for tag, if any.
func (r *Result) Variant(tag artifact.Tag) (Built, bool) {
	for _, b := range r.Built {
		if b.Tag == tag {
			return b, true
		}
	}
	return Built{}, false
}

func (r *Result) settle() {
	switch len(r.Built) {
	case len(artifact.Tags):
		r.Status = StatusSuccess
		r.Message = fmt.Sprintf("Built %d variants from %d units", len(r.Built), len(r.Units))
	case 0:
		r.Status = StatusError
		if r.Message == "" {
			r.Message = "No variants built"
		}
	default:
		r.Status = StatusPartial
		r.Message = fmt.Sprintf("Built %d of %d variants", len(r.Built), len(artifact.Tags))
	}
	if len(r.Failures) > 0 && r.Status != StatusSuccess && len(r.Units) > 0 {
		r.Message += ": " + r.Failures[0].Summary()
	}
}
