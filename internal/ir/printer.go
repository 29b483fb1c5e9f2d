package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// Dump renders a single quadruple in the canonical textual IR form
// (spec.md §4.8). Parse(Dump(q)) reproduces q for every instruction kind.
func (q *Quadruple) Dump() string {
	switch q.Arity() {
	case ArityI1:
		if q.Instruction == "label" {
			return ":" + q.Src1
		}
		return fmt.Sprintf("%s %s", q.Instruction, q.Src1)
	case ArityNoArg:
		return q.Instruction
	case ArityO1:
		return fmt.Sprintf("%s %s", q.Instruction, q.Dest)
	case ArityI1O1:
		return fmt.Sprintf("%s %s %s", q.Instruction, q.Src1, q.Dest)
	case ArityI2O1:
		return fmt.Sprintf("%s %s %s %s", q.Instruction, q.Src1, q.Src2, q.Dest)
	case ArityBranch:
		return fmt.Sprintf("%s %s %s %s goto %s", q.Instruction, q.Src1, q.Relop, q.Src2, q.Dest)
	case ArityAsm:
		suffix := ""
		if q.Instruction == "asm_volatile" {
			suffix = "v"
		}
		lines := make([]string, 0, len(q.RawInstructions)+2)
		begin := append([]string{fmt.Sprintf("__asm%sbegin", suffix), strconv.Itoa(len(q.InputVars))}, q.InputVars...)
		lines = append(lines, strings.Join(begin, " "))
		lines = append(lines, q.RawInstructions...)
		end := append([]string{fmt.Sprintf("__asm%send", suffix), strconv.Itoa(len(q.OutputVars))}, q.OutputVars...)
		lines = append(lines, strings.Join(end, " "))
		return strings.Join(lines, "\n")
	default:
		return q.Instruction
	}
}

// DumpProgram renders the global instruction list followed by every
// function's instructions, in the order the backend lays them out: globals,
// main, then remaining functions (pass Module.OrderedFunctions()).
func DumpProgram(globals []*Quadruple, orderedFunctions []*Function) string {
	var b strings.Builder
	for _, q := range globals {
		b.WriteString(q.Dump())
		b.WriteString("\n")
	}
	for _, fn := range orderedFunctions {
		for _, q := range fn.Instructions {
			b.WriteString(q.Dump())
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
