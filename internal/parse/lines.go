package parse

import (
	"bufio"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// maxLineSize bounds a single line of tool output. Demangled C++ template
// names can be very long.
const maxLineSize = 1 << 20

// Outcome classifies a single line of tool output.
type Outcome int

const (
	// Skipped lines are expected noise: banners, table borders, legends.
	Skipped Outcome = iota
	// Matched lines contributed a record.
	Matched
	// Malformed lines looked like records but did not fit the grammar.
	Malformed
)

func (o Outcome) String() string {
	switch o {
	case Matched:
		return "matched"
	case Malformed:
		return "malformed"
	default:
		return "skipped"
	}
}

// LineStats counts line outcomes. Blank lines are not counted.
type LineStats struct {
	Matched   int `json:"matched"`
	Skipped   int `json:"skipped"`
	Malformed int `json:"malformed"`
}

func (s *LineStats) record(o Outcome) {
	switch o {
	case Matched:
		s.Matched++
	case Malformed:
		s.Malformed++
	default:
		s.Skipped++
	}
}

// scanLines calls fn for every non-blank line of r and records its outcome.
func scanLines(r io.Reader, stats *LineStats, fn func(line string) Outcome) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for sc.Scan() {
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		stats.record(fn(line))
	}
	return errors.Wrap(sc.Err(), "read tool output")
}
