// Package emit lowers the (already optimized) IR module to mlog assembly
// text, the final stage named in spec.md §5: per-instruction-tag templates,
// label resolution to numeric line indices, the inline-asm %N/%=/%%
// template expander, and the optional strict-32bit result clamp.
//
// Grounded on the original Python compiler's mlog_instructions.py template
// table and its strip_labels pass, reproduced here as a two-pass emitter
// (collect label positions while emitting placeholder-bearing lines, then
// substitute) instead of a post-hoc text-rewrite pass, since Go strings are
// immutable and a placeholder-substitution pass is the idiomatic
// equivalent.
package emit

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/UMRnInside/MlogEvo/internal/ir"
)

// Options controls code generation.
type Options struct {
	// Strict32 clamps every arithmetic result to an unsigned 32-bit range
	// with a trailing `op and dest dest 4294967295`, matching mlog's native
	// doubles otherwise carrying more precision than a 32-bit C int would.
	Strict32 bool
	// KeepLabels skips label resolution: `L:` lines stay in the output and
	// jump targets stay as the label name, instead of both being collapsed
	// to a numeric line index.
	KeepLabels bool
}

const labelOpen = "\x00L:"
const labelClose = "\x00"

func labelRef(name string) string { return labelOpen + name + labelClose }

var labelRefPattern = regexp.MustCompile(`\x00L:([^\x00]*)\x00`)

// emitter accumulates mlog lines and the label -> line-index table needed to
// resolve the placeholders emitted by Fn/branch/call templates.
type emitter struct {
	opts    Options
	lines   []string
	labels  map[string]int
	asmSeq  int
	curFunc string
}

// Emit renders mod to final mlog assembly text.
func Emit(mod *ir.Module, opts Options) (string, error) {
	e := &emitter{opts: opts, labels: make(map[string]int)}

	for _, gv := range mod.Globals {
		if gv.Init != nil {
			if err := e.quadruple(gv.Init); err != nil {
				return "", err
			}
		}
	}

	// Instruction stream layout per spec: globals, main, then every other
	// function in definition order (never reordered) — §5's ordering
	// guarantee. An unconditional jump to main's entry follows the globals;
	// since main is laid out first, it targets the very next line.
	entryLabel := e.funcEntryLabel("main")
	e.emit(fmt.Sprintf("jump %s always 0 0", labelRef(entryLabel)))

	for _, fn := range mod.OrderedFunctions() {
		if err := e.function(fn); err != nil {
			return "", err
		}
	}

	return e.resolve(), nil
}

func (e *emitter) function(fn *ir.Function) error {
	e.curFunc = fn.Name
	for _, q := range fn.Instructions {
		if q.Eliminated {
			continue
		}
		if err := e.quadruple(q); err != nil {
			return err
		}
	}
	return nil
}

func (e *emitter) emit(line string) { e.lines = append(e.lines, line) }

// defineLabel marks name as resolving to the next instruction emitted after
// it. With KeepLabels, the label itself is kept as a literal `name:` line
// (spec.md §4.8's L: pseudo-instruction) instead of being stripped.
func (e *emitter) defineLabel(name string) {
	if e.opts.KeepLabels {
		e.emit(name + ":")
		return
	}
	e.labels[name] = len(e.lines)
}

func (e *emitter) funcEntryLabel(fn string) string { return "__entry@" + fn }

func (e *emitter) retAddrVar(fn string) string { return "retaddr@" + fn }

// quadruple appends the mlog line(s) implementing one IR instruction.
func (e *emitter) quadruple(q *ir.Quadruple) error {
	switch q.Arity() {
	case ir.ArityNoArg:
		return nil
	case ir.ArityO1:
		return nil // decl_*: pure declaration, no runtime effect.
	case ir.ArityI1:
		return e.i1(q)
	case ir.ArityI1O1:
		return e.i1o1(q)
	case ir.ArityI2O1:
		return e.i2o1(q)
	case ir.ArityBranch:
		return e.branch(q)
	case ir.ArityAsm:
		return e.asm(q)
	default:
		return fmt.Errorf("emit: unhandled instruction %q", q.Instruction)
	}
}

func (e *emitter) i1(q *ir.Quadruple) error {
	switch q.Instruction {
	case "label":
		e.defineLabel(q.Src1)
		return nil
	case "goto":
		e.emit(fmt.Sprintf("jump %s always 0 0", labelRef(q.Src1)))
		return nil
	case "__funcend", "__return":
		// main is never called, so retaddr@main is never set by a caller;
		// mlog defaults an unset variable to 0, so this jumps to line 0 —
		// which is exactly the fallthrough-to-the-top behavior an explicit
		// `return;` inside main needs.
		e.emit(fmt.Sprintf("set @counter %s", e.retAddrVar(e.curFunc)))
		return nil
	case "__call":
		callee := q.Src1
		e.emit(fmt.Sprintf("op add %s @counter 1", e.retAddrVar(callee)))
		e.emit(fmt.Sprintf("jump %s always 1 1", labelRef(e.funcEntryLabel(callee))))
		return nil
	case "print":
		e.emit(fmt.Sprintf("print %s", q.Src1))
		return nil
	default:
		return fmt.Errorf("emit: unhandled I1 instruction %q", q.Instruction)
	}
}

func (e *emitter) i1o1(q *ir.Quadruple) error {
	if q.Instruction == "__funcbegin" {
		e.defineLabel(e.funcEntryLabel(q.Src1))
		return nil
	}
	switch {
	case strings.HasPrefix(q.Instruction, "set_"):
		e.emit(fmt.Sprintf("set %s %s", q.Dest, q.Src1))
	case strings.HasPrefix(q.Instruction, "minus_"):
		e.emit(fmt.Sprintf("op sub %s 0 %s", q.Dest, q.Src1))
	case q.Instruction == "not_i32":
		e.emit(fmt.Sprintf("op xor %s %s 0xFFFFFFFF", q.Dest, q.Src1))
	case q.Instruction == "cvtf64_i32":
		e.emit(fmt.Sprintf("op floor %s %s 0", q.Dest, q.Src1))
	case q.Instruction == "cvti32_f64":
		e.emit(fmt.Sprintf("set %s %s", q.Dest, q.Src1))
	default:
		return fmt.Errorf("emit: unhandled I1O1 instruction %q", q.Instruction)
	}
	if e.opts.Strict32 {
		e.emit(fmt.Sprintf("op and %s %s 4294967295", q.Dest, q.Dest))
	}
	return nil
}

var binOpNames = map[string]string{
	"add": "add", "sub": "sub", "mul": "mul", "div": "div",
	"lt": "lessThan", "gt": "greaterThan", "lteq": "lessThanEq", "gteq": "greaterThanEq",
	"eq": "equal", "ne": "notEqual",
	"and": "and", "or": "or", "xor": "xor", "lsh": "shl", "rsh": "shr", "rem": "mod",
}

func (e *emitter) i2o1(q *ir.Quadruple) error {
	name, suffix, ok := splitTag(q.Instruction)
	if !ok {
		return fmt.Errorf("emit: unhandled I2O1 instruction %q", q.Instruction)
	}
	op, ok := binOpNames[name]
	if !ok {
		return fmt.Errorf("emit: unknown binary op %q", name)
	}
	// div_i32 rounds toward zero via mlog's idiv, a deliberately preserved
	// quirk of the original compiler rather than a bug fixed here.
	if name == "div" && suffix == "i32" {
		op = "idiv"
	}
	e.emit(fmt.Sprintf("op %s %s %s %s", op, q.Dest, q.Src1, q.Src2))
	if e.opts.Strict32 {
		e.emit(fmt.Sprintf("op and %s %s 4294967295", q.Dest, q.Dest))
	}
	return nil
}

func splitTag(instr string) (name, suffix string, ok bool) {
	i := strings.LastIndex(instr, "_")
	if i < 0 {
		return "", "", false
	}
	return instr[:i], instr[i+1:], true
}

// bareRelopOps covers the branch relop spelling used by the generic
// "if cond != false"/"ifnot cond != false" fallback (a bare comparison
// symbol against a materialized 0/1 value).
var bareRelopOps = map[string]string{
	"<": "lessThan", "<=": "lessThanEq", ">": "greaterThan", ">=": "greaterThanEq",
	"==": "equal", "!=": "notEqual",
}

// tagRelopOps covers the relop spelling the fast conditional jump compactor
// leaves behind: a full comparison instruction tag (e.g. "lt_i32") merged
// directly into the branch instead of re-testing a materialized 0/1 value.
var tagRelopOps = map[string]string{
	"lt": "lessThan", "lteq": "lessThanEq", "gt": "greaterThan", "gteq": "greaterThanEq",
	"eq": "equal", "ne": "notEqual",
}

var negatedMlogOp = map[string]string{
	"lessThan": "greaterThanEq", "greaterThanEq": "lessThan",
	"lessThanEq": "greaterThan", "greaterThan": "lessThanEq",
	"equal": "notEqual", "notEqual": "equal",
}

func relopMlogOp(relop string) (string, error) {
	if op, ok := bareRelopOps[relop]; ok {
		return op, nil
	}
	if name, _, ok := splitTag(relop); ok {
		if op, ok := tagRelopOps[name]; ok {
			return op, nil
		}
	}
	return "", fmt.Errorf("emit: unknown relational operator %q", relop)
}

func (e *emitter) branch(q *ir.Quadruple) error {
	op, err := relopMlogOp(q.Relop)
	if err != nil {
		return err
	}
	if q.Instruction == "ifnot" {
		op = negatedMlogOp[op]
	}
	e.emit(fmt.Sprintf("jump %s %s %s %s", labelRef(q.Dest), op, q.Src1, q.Src2))
	return nil
}

var asmPlaceholder = regexp.MustCompile(`%(%|=|[0-9]+)`)

// asm expands an inline-asm block's raw template lines: %N substitutes the
// Nth operand of OutputVars followed by InputVars (the convention asm
// operand lists are lowered under — outputs first, then inputs), %= yields
// an integer unique to this expansion (mirroring GCC's extended-asm %=, for
// templates that need a per-expansion-unique local label), and %% is a
// literal percent.
func (e *emitter) asm(q *ir.Quadruple) error {
	operands := make([]string, 0, len(q.OutputVars)+len(q.InputVars))
	operands = append(operands, q.OutputVars...)
	operands = append(operands, q.InputVars...)
	e.asmSeq++
	seq := e.asmSeq
	for _, raw := range q.RawInstructions {
		expanded := asmPlaceholder.ReplaceAllStringFunc(raw, func(m string) string {
			switch m {
			case "%%":
				return "%"
			case "%=":
				return strconv.Itoa(seq)
			default:
				idx, err := strconv.Atoi(m[1:])
				if err != nil || idx >= len(operands) {
					return m
				}
				return operands[idx]
			}
		})
		e.emit(expanded)
	}
	return nil
}

// resolve substitutes every labelRef placeholder with its final numeric
// line index (or, under KeepLabels, with the label name verbatim) and joins
// the program into one string.
func (e *emitter) resolve() string {
	out := make([]string, len(e.lines))
	for i, line := range e.lines {
		out[i] = labelRefPattern.ReplaceAllStringFunc(line, func(m string) string {
			sub := labelRefPattern.FindStringSubmatch(m)
			if e.opts.KeepLabels {
				return sub[1]
			}
			return strconv.Itoa(e.labels[sub[1]])
		})
	}
	return strings.Join(out, "\n")
}
