package parse

import (
	"io"
	"regexp"
	"strings"

	"github.com/roach88/objscope/internal/artifact"
)

var (
	// 0000000000000000 <Parser::parse()>:
	funcHeaderRE = regexp.MustCompile(`^([0-9a-f]+)\s+<(.+)>:`)
	//    1a:	mov    %rsp,%rbp
	instructionRE = regexp.MustCompile(`^\s+([0-9a-f]+):\s+(.+)`)
	// Anything that starts like an address line but fits neither shape.
	addressLikeRE = regexp.MustCompile(`^\s*[0-9a-f]+(:|\s+<)`)
)

// Instruction is one disassembled instruction. Address is the tool's hex
// text and is never interpreted numerically.
type Instruction struct {
	Address string `json:"address"`
	Code    string `json:"code"`
}

// Mnemonic returns the first whitespace-delimited token of the instruction
// text, or "unknown" when the text is empty.
func (i Instruction) Mnemonic() string {
	fields := strings.Fields(i.Code)
	if len(fields) == 0 {
		return "unknown"
	}
	return fields[0]
}

// Function is a named run of instructions in disassembly order.
type Function struct {
	Name         string        `json:"name"`
	Address      string        `json:"address"`
	Instructions []Instruction `json:"instructions"`
}

// DisassemblyReport is the parsed disassembly of one artifact.
type DisassemblyReport struct {
	Optimization         artifact.Tag   `json:"optimization,omitempty"`
	Functions            []Function     `json:"functions"`
	TotalFunctions       int            `json:"total_functions"`
	TotalInstructions    int            `json:"total_instructions"`
	InstructionFrequency map[string]int `json:"instruction_frequency"`
	Lines                LineStats      `json:"lines"`
}

// Disassembly parses objdump output.
//
// A function header opens a new function and closes the previous one. An
// instruction line is appended to the open function. Instruction lines seen
// before the first header, and any other text, are skipped.
func Disassembly(r io.Reader) (*DisassemblyReport, error) {
	rep := &DisassemblyReport{
		Functions:            []Function{},
		InstructionFrequency: map[string]int{},
	}
	var current *Function

	closeCurrent := func() {
		if current != nil {
			rep.Functions = append(rep.Functions, *current)
			current = nil
		}
	}

	err := scanLines(r, &rep.Lines, func(line string) Outcome {
		if m := funcHeaderRE.FindStringSubmatch(line); m != nil {
			closeCurrent()
			current = &Function{
				Name:         m[2],
				Address:      m[1],
				Instructions: []Instruction{},
			}
			return Matched
		}
		if m := instructionRE.FindStringSubmatch(line); m != nil {
			if current == nil {
				return Skipped
			}
			current.Instructions = append(current.Instructions, Instruction{
				Address: m[1],
				Code:    strings.TrimSpace(m[2]),
			})
			return Matched
		}
		if addressLikeRE.MatchString(line) {
			return Malformed
		}
		return Skipped
	})
	if err != nil {
		return nil, err
	}
	closeCurrent()

	rep.TotalFunctions = len(rep.Functions)
	for _, fn := range rep.Functions {
		rep.TotalInstructions += len(fn.Instructions)
		for _, inst := range fn.Instructions {
			rep.InstructionFrequency[inst.Mnemonic()]++
		}
	}
	return rep, nil
}
