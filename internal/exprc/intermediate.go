package exprc

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// OpKind classifies the right-hand side of an intermediate instruction.
type OpKind string

const (
	OpLiteral OpKind = "literal" // t1 = 3.5
	OpName    OpKind = "name"    // t1 = x
	OpFact    OpKind = "fact"    // t2 = fact t1, or t2 = ! t1
	OpBinary  OpKind = "binary"  // t3 = t1 + t2
	OpUnary   OpKind = "unary"   // t2 = - t1
	OpCall    OpKind = "call"    // t2 = sin(t1)
)

// Operation is a decoded right-hand side.
type Operation struct {
	Kind OpKind `json:"kind"`

	// Value is the literal text (OpLiteral) or the referenced name (OpName).
	Value string `json:"value,omitempty"`

	// Operator and operands for OpBinary, OpUnary and OpFact. Left is
	// unused by the single-operand kinds.
	Operator string `json:"operator,omitempty"`
	Left     string `json:"left,omitempty"`
	Right    string `json:"right,omitempty"`

	// Function and raw argument list for OpCall.
	Function string   `json:"function,omitempty"`
	Args     []string `json:"args,omitempty"`
}

// Instruction is one "dest = operation" line.
type Instruction struct {
	Dest string    `json:"dest"`
	Op   Operation `json:"op"`
}

var (
	identRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	callRE  = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)\((.*)\)$`)
)

// ParseIntermediate splits a "temp = operation" line.
func ParseIntermediate(line string) (Instruction, error) {
	dest, rhs, ok := strings.Cut(line, " = ")
	dest, rhs = strings.TrimSpace(dest), strings.TrimSpace(rhs)
	if !ok || !identRE.MatchString(dest) || rhs == "" {
		return Instruction{}, errors.Errorf("malformed intermediate instruction %q", line)
	}

	in := Instruction{Dest: dest}
	if m := callRE.FindStringSubmatch(rhs); m != nil {
		in.Op = Operation{Kind: OpCall, Function: m[1], Args: splitArgs(m[2])}
		return in, nil
	}

	fields := strings.Fields(rhs)
	switch len(fields) {
	case 1:
		if _, err := strconv.ParseFloat(fields[0], 64); err == nil {
			in.Op = Operation{Kind: OpLiteral, Value: fields[0]}
		} else if identRE.MatchString(fields[0]) {
			in.Op = Operation{Kind: OpName, Value: fields[0]}
		} else {
			return Instruction{}, errors.Errorf("unrecognized operand %q in %q", fields[0], line)
		}
	case 2:
		kind := OpUnary
		if factorial(fields[0]) {
			kind = OpFact
		}
		in.Op = Operation{Kind: kind, Operator: fields[0], Right: fields[1]}
	case 3:
		in.Op = Operation{Kind: OpBinary, Left: fields[0], Operator: fields[1], Right: fields[2]}
	default:
		return Instruction{}, errors.Errorf("malformed intermediate instruction %q", line)
	}
	return in, nil
}

// factorial reports whether op is one of the compiler's spellings of n!.
func factorial(op string) bool {
	return op == "fact" || op == "!"
}

// splitArgs splits a call's argument list on top-level commas.
func splitArgs(s string) []string {
	var args []string
	depth, start := 0, 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				args = append(args, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	if rest := strings.TrimSpace(s[start:]); rest != "" || len(args) > 0 {
		args = append(args, rest)
	}
	return args
}
