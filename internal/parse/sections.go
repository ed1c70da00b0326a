package parse

import (
	"io"
	"regexp"
	"strconv"

	"github.com/roach88/objscope/internal/artifact"
)

var (
	//   [ 1] .text   PROGBITS   0000000000000000 000040 000023 00  AX  0   0  1
	sectionRE      = regexp.MustCompile(`^\s*\[\s*\d+\]\s+(\S+)\s+(\S+)\s+([0-9a-f]+)\s+([0-9a-f]+)\s+([0-9a-f]+)`)
	sectionIndexRE = regexp.MustCompile(`^\s*\[\s*\d+\]`)
)

// Section is one row of the section header table.
type Section struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Address string `json:"address"`
	Offset  string `json:"offset"`
	Size    uint64 `json:"size"`
}

// SectionReport is the parsed section header table of one artifact.
type SectionReport struct {
	Optimization  artifact.Tag `json:"optimization,omitempty"`
	Sections      []Section    `json:"sections"`
	TotalSections int          `json:"total_sections"`
	Lines         LineStats    `json:"lines"`
}

// Sections parses readelf -S -W output. Rows that carry an index but not
// the full five-field shape (e.g. the two-line layout readelf uses without
// -W) are counted as malformed.
func Sections(r io.Reader) (*SectionReport, error) {
	rep := &SectionReport{Sections: []Section{}}

	err := scanLines(r, &rep.Lines, func(line string) Outcome {
		m := sectionRE.FindStringSubmatch(line)
		if m == nil {
			if sectionIndexRE.MatchString(line) {
				return Malformed
			}
			return Skipped
		}
		size, err := strconv.ParseUint(m[5], 16, 64)
		if err != nil {
			return Malformed
		}
		rep.Sections = append(rep.Sections, Section{
			Name:    m[1],
			Type:    m[2],
			Address: m[3],
			Offset:  m[4],
			Size:    size,
		})
		return Matched
	})
	if err != nil {
		return nil, err
	}

	rep.TotalSections = len(rep.Sections)
	return rep, nil
}
