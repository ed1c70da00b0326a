package parse

import (
	"io"
	"strconv"
	"strings"

	"github.com/roach88/objscope/internal/artifact"
)

// Size output formats.
const (
	FormatSysV     = "sysv"     // size -A
	FormatBerkeley = "berkeley" // plain size
)

// SizeMetrics holds the byte counts of the four tracked segments.
type SizeMetrics struct {
	Text   uint64 `json:"text"`
	Data   uint64 `json:"data"`
	BSS    uint64 `json:"bss"`
	ROData uint64 `json:"rodata"`
	Total  uint64 `json:"total"`
}

// Sum returns text + data + bss + rodata.
func (m SizeMetrics) Sum() uint64 {
	return m.Text + m.Data + m.BSS + m.ROData
}

// SizeReport is the parsed size output of one artifact.
type SizeReport struct {
	Optimization artifact.Tag `json:"optimization,omitempty"`
	Metrics      SizeMetrics  `json:"metrics"`
	Format       string       `json:"format,omitempty"`
	Lines        LineStats    `json:"lines"`
}

// Size scans size output for the first line mentioning each of
// ".text", ".data", ".bss" and ".rodata" (tested in that order, one segment
// per line, segments already filled are passed over). The second whitespace
// token of that line is the byte count if it is an unsigned decimal integer;
// otherwise the segment stays at zero and the line counts as malformed.
func Size(r io.Reader) (*SizeReport, error) {
	rep := &SizeReport{}
	m := &rep.Metrics
	segments := []struct {
		needle string
		dst    *uint64
		seen   bool
	}{
		{needle: ".text", dst: &m.Text},
		{needle: ".data", dst: &m.Data},
		{needle: ".bss", dst: &m.BSS},
		{needle: ".rodata", dst: &m.ROData},
	}

	err := scanLines(r, &rep.Lines, func(line string) Outcome {
		for i := range segments {
			seg := &segments[i]
			if !strings.Contains(line, seg.needle) {
				continue
			}
			// Later ".data.rel.local" or ".rodata.str1.1" rows mention a
			// filled segment again; the first row keeps it.
			if seg.seen {
				continue
			}
			seg.seen = true
			fields := strings.Fields(line)
			if len(fields) < 2 {
				return Malformed
			}
			n, err := strconv.ParseUint(fields[1], 10, 64)
			if err != nil {
				return Malformed
			}
			*seg.dst = n
			return Matched
		}
		return Skipped
	})
	if err != nil {
		return nil, err
	}

	m.Total = m.Sum()
	return rep, nil
}
