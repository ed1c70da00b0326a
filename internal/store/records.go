package store

import (
	"encoding/json"

	"github.com/roach88/objscope/internal/artifact"
)

// BuildRecord is one stored build.
type BuildRecord struct {
	ID        string           `json:"id"`
	Seq       int64            `json:"seq"`
	SourceDir string           `json:"source_dir"`
	Status    string           `json:"status"`
	Result    json.RawMessage  `json:"result"`
	Artifacts []ArtifactRecord `json:"artifacts"`
}

// ArtifactRecord is a variant published by a build.
type ArtifactRecord struct {
	BuildID string       `json:"build_id"`
	Tag     artifact.Tag `json:"level"`
	Path    string       `json:"file"`
	Size    int64        `json:"size"`
	Digest  string       `json:"digest"`
}

// ReportKind classifies stored reports.
type ReportKind string

const (
	ReportAnalysis    ReportKind = "analysis"
	ReportComparison  ReportKind = "comparison"
	ReportDisassembly ReportKind = "disassembly"
)

// ParseReportKind validates s. The empty string means "any kind".
func ParseReportKind(s string) (ReportKind, bool) {
	switch k := ReportKind(s); k {
	case "", ReportAnalysis, ReportComparison, ReportDisassembly:
		return k, true
	}
	return "", false
}

// ReportRecord is one stored report. Tag is empty for comparisons; Digest
// identifies the artifact bytes the report describes, when known.
type ReportRecord struct {
	ID     string          `json:"id"`
	Seq    int64           `json:"seq"`
	Kind   ReportKind      `json:"kind"`
	Tag    artifact.Tag    `json:"level,omitempty"`
	Digest string          `json:"digest,omitempty"`
	Body   json.RawMessage `json:"body"`
}
