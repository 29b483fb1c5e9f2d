// Package ir defines the quadruple intermediate representation: the single
// IR element the rest of the compiler (lowering, block building, inlining,
// optimization, emission) operates on. Grounded on the teacher's IR data
// definitions (internal/ir/types.go) and on the original Python
// implementation's ir_quadruple.py, which this package reproduces the
// classification tables of exactly.
package ir

import (
	"regexp"
	"strconv"
)

// Arity classifies a Quadruple by how many of its operand slots are
// meaningful, so dump/emit/LCSE can dispatch without per-instruction special
// casing.
type Arity int

const (
	ArityNoArg Arity = iota
	ArityI1
	ArityO1
	ArityI1O1
	ArityI2O1
	ArityBranch
	ArityAsm
)

var supportedArithTypes = []string{"i32", "f64"}

// NoArg is the singleton zero-operand instruction.
var NoArg = map[string]bool{"noop": true}

// I1 instructions take one input and carry no destination beyond it.
var I1 = map[string]bool{
	"goto": true, "label": true, "__funcend": true, "__call": true, "__return": true,
	"print": true,
}

// O1 instructions are pure declarations.
var O1 = map[string]bool{
	"decl_i32": true, "decl_f64": true, "decl_obj": true,
}

// I1O1 instructions take one input and produce one destination.
var I1O1 = map[string]bool{
	"set_i32": true, "set_f64": true, "set_obj": true,
	"minus_i32": true, "minus_f64": true,
	"not_i32":     true,
	"cvtf64_i32":  true,
	"cvti32_f64":  true,
	"__funcbegin": true,
}

// I2O1 instructions take two inputs and produce one destination.
var I2O1 = map[string]bool{}

// coreI1O1 / coreI2O1 / coreComparison enumerate the type-parameterized
// instruction families; {add,sub,...}_{i32,f64} are generated below exactly
// as the Python original's ir_quadruple.py does.
var coreI1O1 = []string{"set", "minus"}
var coreI2O1 = []string{"add", "sub", "mul", "div", "lt", "gt", "lteq", "gteq", "eq", "ne"}
var coreComparison = []string{"lt", "lteq", "gteq", "gt", "eq", "ne"}
var i32OnlyI2O1 = []string{"and", "or", "xor", "lsh", "rsh", "rem"}
var i32OnlyI1O1 = []string{"not"}

// Comparisons is the set of I2O1 tags that are relational comparisons
// (always yield i32, per spec.md §3).
var Comparisons = map[string]bool{}

// AsmTags are the two asm instruction forms; they are a basic-block exit
// (spec.md §9 Open Questions: asm IS an exit) and are emitted specially.
var AsmTags = map[string]bool{"asm": true, "asm_volatile": true}

func init() {
	for _, t := range supportedArithTypes {
		I1O1["set_"+t] = true
		I1O1["minus_"+t] = true
	}
	for _, name := range coreI1O1 {
		for _, t := range supportedArithTypes {
			I1O1[name+"_"+t] = true
		}
	}
	for _, name := range coreI2O1 {
		for _, t := range supportedArithTypes {
			I2O1[name+"_"+t] = true
		}
	}
	for _, name := range coreComparison {
		for _, t := range supportedArithTypes {
			Comparisons[name+"_"+t] = true
		}
	}
	for _, name := range i32OnlyI2O1 {
		I2O1[name+"_i32"] = true
	}
	for _, name := range i32OnlyI1O1 {
		I1O1[name+"_i32"] = true
	}
}

// Branches are the two conditional-jump tags.
var Branches = map[string]bool{"if": true, "ifnot": true}

// OperandKind is the cached classification of a src1/src2 token.
type OperandKind string

const (
	OperandVariable        OperandKind = "variable"
	OperandImmediateInt    OperandKind = "immediate_integer"
	OperandImmediateFloat  OperandKind = "immediate_float"
	OperandInvalid         OperandKind = "invalid"
)

var variablePattern = regexp.MustCompile(`^[A-Za-z_@][_@()\[\]\w]*`)

// ClassifyOperand implements spec.md §3's operand classification: a token is
// a variable iff it begins with a letter, underscore, or '@' and matches the
// identifier pattern; otherwise base-10 integer, base-16 integer, then
// float, in that order.
func ClassifyOperand(token string) OperandKind {
	if token == "" {
		return OperandInvalid
	}
	if variablePattern.MatchString(token) {
		return OperandVariable
	}
	if _, err := strconv.ParseInt(token, 10, 64); err == nil {
		return OperandImmediateInt
	}
	if _, err := strconv.ParseInt(trimHexPrefix(token), 16, 64); err == nil {
		return OperandImmediateInt
	}
	if _, err := strconv.ParseFloat(token, 64); err == nil {
		return OperandImmediateFloat
	}
	return OperandInvalid
}

func trimHexPrefix(s string) string {
	if len(s) > 2 && (s[0:2] == "0x" || s[0:2] == "0X") {
		return s[2:]
	}
	return s
}

// Quadruple is the single IR element: spec.md §3.
type Quadruple struct {
	Instruction string
	Src1        string
	Src2        string
	Dest        string
	Relop       string

	Src1Kind OperandKind
	Src2Kind OperandKind

	InputVars       []string
	OutputVars      []string
	RawInstructions []string

	// Eliminated marks a quadruple dropped by the inliner or an
	// optimization pass; dead quadruples are filtered out before the
	// instruction list is used again, never spliced out in place (matching
	// the original implementation's inline_utils.py sentinel approach).
	Eliminated bool
}

// NewQuadruple builds a Quadruple and computes its initial operand
// classification.
func NewQuadruple(instruction, src1, src2, dest string) *Quadruple {
	q := &Quadruple{Instruction: instruction, Src1: src1, Src2: src2, Dest: dest}
	q.UpdateOperandKinds()
	return q
}

// UpdateOperandKinds recomputes Src1Kind/Src2Kind; callers must call this
// after mutating Src1 or Src2 (spec.md §3: "recomputed whenever src1/src2
// change").
func (q *Quadruple) UpdateOperandKinds() {
	q.Src1Kind = ClassifyOperand(q.Src1)
	q.Src2Kind = ClassifyOperand(q.Src2)
}

// SetSrc1 mutates Src1 and refreshes its cached classification.
func (q *Quadruple) SetSrc1(v string) {
	q.Src1 = v
	q.Src1Kind = ClassifyOperand(v)
}

// SetSrc2 mutates Src2 and refreshes its cached classification.
func (q *Quadruple) SetSrc2(v string) {
	q.Src2 = v
	q.Src2Kind = ClassifyOperand(v)
}

// Arity classifies this quadruple's instruction tag.
func (q *Quadruple) Arity() Arity {
	switch {
	case q.Instruction == "label":
		return ArityI1
	case NoArg[q.Instruction]:
		return ArityNoArg
	case O1[q.Instruction]:
		return ArityO1
	case I1[q.Instruction]:
		return ArityI1
	case I1O1[q.Instruction]:
		return ArityI1O1
	case I2O1[q.Instruction]:
		return ArityI2O1
	case Branches[q.Instruction]:
		return ArityBranch
	case AsmTags[q.Instruction]:
		return ArityAsm
	default:
		return ArityNoArg
	}
}

// IsBasicBlockEntrance reports whether this instruction begins a new basic
// block (spec.md §4.2).
func (q *Quadruple) IsBasicBlockEntrance() bool {
	return q.Instruction == "__funcbegin" || q.Instruction == "label"
}

// IsBasicBlockExit reports whether this instruction ends a basic block
// (spec.md §4.2 and §9: asm is an exit).
func (q *Quadruple) IsBasicBlockExit() bool {
	switch q.Instruction {
	case "goto", "if", "ifnot", "__return", "__call", "__funcend", "asm", "asm_volatile":
		return true
	default:
		return false
	}
}

// Clone makes a shallow copy suitable for inlining (the slices are copied so
// the callee's own instruction is never mutated by rewriting a copy).
func (q *Quadruple) Clone() *Quadruple {
	clone := *q
	clone.InputVars = append([]string(nil), q.InputVars...)
	clone.OutputVars = append([]string(nil), q.OutputVars...)
	clone.RawInstructions = append([]string(nil), q.RawInstructions...)
	return &clone
}
