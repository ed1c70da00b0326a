package parse

import (
	"io"
	"strings"

	"github.com/roach88/objscope/internal/artifact"
)

// ZeroAddress is recorded for symbols whose address column nm omits
// (undefined symbols).
const ZeroAddress = "0"

// Category is the visibility bucket a symbol type code maps to.
type Category string

const (
	CategoryGlobal        Category = "global"
	CategoryLocal         Category = "local"
	CategoryUndefined     Category = "undefined"
	CategoryWeak          Category = "weak"
	CategoryUncategorized Category = "uncategorized"
)

// Classify maps an nm type code to its category. Matching is exact and case
// sensitive.
func Classify(code string) Category {
	switch code {
	case "T", "D", "R", "B":
		return CategoryGlobal
	case "t", "d", "r", "b":
		return CategoryLocal
	case "U":
		return CategoryUndefined
	case "W", "w", "V", "v":
		return CategoryWeak
	}
	return CategoryUncategorized
}

// Symbol is one nm entry.
type Symbol struct {
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	Address  string   `json:"address"`
	Category Category `json:"category"`
}

// ParseSymbolLine splits one nm line. The last token is the name and the
// second to last the type code; with three or more tokens the first is the
// address. Demangled names containing spaces are therefore truncated to
// their last word, as nm's column layout gives no way to tell them apart.
func ParseSymbolLine(line string) (Symbol, bool) {
	parts := strings.Fields(line)
	if len(parts) < 2 {
		return Symbol{}, false
	}
	sym := Symbol{
		Name:    parts[len(parts)-1],
		Type:    parts[len(parts)-2],
		Address: ZeroAddress,
	}
	if len(parts) >= 3 {
		sym.Address = parts[0]
	}
	sym.Category = Classify(sym.Type)
	return sym, true
}

// SymbolBuckets groups symbols by category. Uncategorized symbols are not
// kept.
type SymbolBuckets struct {
	Global    []Symbol `json:"global"`
	Local     []Symbol `json:"local"`
	Undefined []Symbol `json:"undefined"`
	Weak      []Symbol `json:"weak"`
}

// SymbolReport is the parsed symbol table of one artifact.
type SymbolReport struct {
	Optimization artifact.Tag  `json:"optimization,omitempty"`
	Symbols      SymbolBuckets `json:"symbols"`
	// TotalSymbols counts the four buckets only; uncategorized symbols are
	// excluded and counted separately in Uncategorized.
	TotalSymbols  int       `json:"total_symbols"`
	Uncategorized int       `json:"uncategorized"`
	Lines         LineStats `json:"lines"`
}

// Symbols parses nm output.
func Symbols(r io.Reader) (*SymbolReport, error) {
	rep := &SymbolReport{
		Symbols: SymbolBuckets{
			Global:    []Symbol{},
			Local:     []Symbol{},
			Undefined: []Symbol{},
			Weak:      []Symbol{},
		},
	}
	b := &rep.Symbols

	err := scanLines(r, &rep.Lines, func(line string) Outcome {
		sym, ok := ParseSymbolLine(line)
		if !ok {
			return Malformed
		}
		switch sym.Category {
		case CategoryGlobal:
			b.Global = append(b.Global, sym)
		case CategoryLocal:
			b.Local = append(b.Local, sym)
		case CategoryUndefined:
			b.Undefined = append(b.Undefined, sym)
		case CategoryWeak:
			b.Weak = append(b.Weak, sym)
		default:
			rep.Uncategorized++
		}
		return Matched
	})
	if err != nil {
		return nil, err
	}

	rep.TotalSymbols = len(b.Global) + len(b.Local) + len(b.Undefined) + len(b.Weak)
	return rep, nil
}
