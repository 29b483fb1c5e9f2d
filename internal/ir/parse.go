package ir

import (
	"fmt"
	"strings"
)

// ParseError reports a malformed line of the dumped IR grammar.
type ParseError struct {
	Line int
	Text string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("ir: line %d: %s", e.Line, e.Text)
}

// Parse reparses the textual IR grammar spec.md §4.8 defines, accepting
// exactly the grammar Dump produces: parse(dump(q)) == q for every
// quadruple kind, including asm blocks.
func Parse(lines []string) ([]*Quadruple, error) {
	var result []*Quadruple
	insideAsm := false
	var current *Quadruple

	for lineNo, raw := range lines {
		tokens := strings.Fields(raw)
		if len(tokens) == 0 {
			continue
		}
		inst := tokens[0]

		if insideAsm && inst != "__asmend" && inst != "__asmvend" {
			current.RawInstructions = append(current.RawInstructions, strings.TrimSpace(raw))
			continue
		}
		if (inst == "__asmbegin" || inst == "__asmvbegin") && !insideAsm {
			insideAsm = true
			tag := "asm"
			if inst == "__asmvbegin" {
				tag = "asm_volatile"
			}
			current = &Quadruple{Instruction: tag}
			if len(tokens) > 2 {
				current.InputVars = append([]string(nil), tokens[2:]...)
			}
			continue
		}
		if inst == "__asmend" || inst == "__asmvend" {
			insideAsm = false
			if len(tokens) > 2 {
				current.OutputVars = append([]string(nil), tokens[2:]...)
			}
			current.UpdateOperandKinds()
			result = append(result, current)
			current = nil
			continue
		}

		if strings.HasPrefix(inst, ":") {
			result = append(result, NewQuadruple("label", inst[1:], "", ""))
			continue
		}
		if NoArg[inst] {
			result = append(result, NewQuadruple(inst, "", "", ""))
			continue
		}
		if O1[inst] {
			if len(tokens) < 2 {
				return nil, &ParseError{lineNo + 1, raw}
			}
			result = append(result, NewQuadruple(inst, "", "", tokens[1]))
			continue
		}
		if I1[inst] {
			if len(tokens) < 2 {
				return nil, &ParseError{lineNo + 1, raw}
			}
			result = append(result, NewQuadruple(inst, tokens[1], "", ""))
			continue
		}
		if I1O1[inst] {
			if len(tokens) < 3 {
				return nil, &ParseError{lineNo + 1, raw}
			}
			result = append(result, NewQuadruple(inst, tokens[1], "", tokens[2]))
			continue
		}
		if I2O1[inst] {
			if len(tokens) < 4 {
				return nil, &ParseError{lineNo + 1, raw}
			}
			result = append(result, NewQuadruple(inst, tokens[1], tokens[2], tokens[3]))
			continue
		}
		if inst == "if" || inst == "ifnot" {
			// "if src1 relop src2 goto dest" (6 tokens) or
			// "if src1 goto dest" (4 tokens, no relop).
			if len(tokens) == 6 {
				q := NewQuadruple(inst, tokens[1], tokens[3], tokens[5])
				q.Relop = tokens[2]
				result = append(result, q)
			} else if len(tokens) == 4 {
				q := NewQuadruple(inst, tokens[1], "", tokens[3])
				result = append(result, q)
			} else {
				return nil, &ParseError{lineNo + 1, raw}
			}
			continue
		}
		return nil, &ParseError{lineNo + 1, raw}
	}
	return result, nil
}

// ParseText is a convenience wrapper splitting a full dump on newlines.
func ParseText(text string) ([]*Quadruple, error) {
	return Parse(strings.Split(text, "\n"))
}
