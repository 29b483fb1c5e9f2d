package optimize

import (
	"sort"
	"strings"

	"github.com/UMRnInside/MlogEvo/internal/ir"
)

func init() {
	Register(&Pass{Name: "remove-unused-decls", Scope: ScopeFunction, Rank: 98, MinLevel: 0, RunFunction: removeUnusedDecls})
	Register(&Pass{Name: "remove-unused-labels", Scope: ScopeFunction, Rank: 1, MinLevel: 1, RunFunction: removeUnusedLabels})
	Register(&Pass{Name: "deduplicate-tail-return", Scope: ScopeFunction, Rank: 1, MinLevel: 1, RunFunction: deduplicateTailReturn})
	Register(&Pass{Name: "reorder-decls", Scope: ScopeFunction, Rank: 2, MinLevel: 0, RunFunction: reorderDecls})
	Register(&Pass{Name: "remove-unused-variables", Scope: ScopeFunction, Rank: 20, MinLevel: 1, RunFunction: removeUnusedVariables})
}

func isDeclInstruction(instr string) bool { return strings.HasPrefix(instr, "decl_") }

// removeUnusedDecls strips a `decl_*` whose destination is never otherwise
// referenced, without touching any instruction that writes or reads it —
// the conservative half of dead-variable elimination the original
// compiler runs unconditionally even at -O0 (mi_remove_unused_decls.py),
// distinct from the more aggressive remove-unused-variables pass this
// package also registers.
func removeUnusedDecls(fn *ir.Function) bool {
	used := referencedVariables(fn, func(q *ir.Quadruple) bool { return isDeclInstruction(q.Instruction) })
	changed := false
	for _, q := range fn.Instructions {
		if q.Eliminated || !isDeclInstruction(q.Instruction) {
			continue
		}
		if !used[q.Dest] {
			q.Eliminated = true
			delete(fn.LocalVars, q.Dest)
			changed = true
		}
	}
	return changed
}

// removeUnusedVariables additionally deletes the (side-effect-free)
// instructions that only ever wrote to a function-scoped (`@`-decorated)
// variable nothing in this function reads; globals are left alone. It excludes
// this function's own result@F slot and any name whose @-suffix names a
// function this function actually calls (result@callee/_param@callee are
// read by the call convention itself, not by ordinary IR references).
func removeUnusedVariables(fn *ir.Function) bool {
	protected := protectedVariables(fn)
	changed := false
	for {
		used := referencedVariables(fn, func(q *ir.Quadruple) bool {
			return isDeclInstruction(q.Instruction) || isPureWrite(q)
		})
		round := false
		for _, q := range fn.Instructions {
			if q.Eliminated {
				continue
			}
			if protected[q.Dest] || !strings.Contains(q.Dest, "@") {
				continue
			}
			if isDeclInstruction(q.Instruction) && !used[q.Dest] {
				q.Eliminated = true
				delete(fn.LocalVars, q.Dest)
				round = true
				continue
			}
			if isPureWrite(q) && !used[q.Dest] {
				q.Eliminated = true
				round = true
			}
		}
		if !round {
			break
		}
		changed = true
	}
	return changed
}

// protectedVariables names destinations remove-unused-variables must never
// drop: the function's own return slot, and result@callee/_param@callee for
// every function actually invoked by a __call in this function's body.
func protectedVariables(fn *ir.Function) map[string]bool {
	protected := map[string]bool{"result@" + fn.Name: true}
	for _, q := range fn.Instructions {
		if q.Eliminated || q.Instruction != "__call" {
			continue
		}
		suffix := "@" + q.Src1
		for name := range fn.LocalVars {
			if strings.HasSuffix(name, suffix) {
				protected[name] = true
			}
		}
	}
	return protected
}

// isPureWrite reports whether q's only effect is writing Dest — true for
// set/arithmetic/comparison/conversion tags, false for __funcbegin,
// branches, calls, and asm (which may have effects beyond their declared
// outputs).
func isPureWrite(q *ir.Quadruple) bool {
	if q.Instruction == "__funcbegin" {
		return false
	}
	switch q.Arity() {
	case ir.ArityI1O1, ir.ArityI2O1:
		return true
	default:
		return false
	}
}

// referencedVariables collects every variable token read (or, for
// instructions skip reports true on, also written) across fn's live
// instructions, for dead-declaration analysis.
func referencedVariables(fn *ir.Function, skipDestCheck func(*ir.Quadruple) bool) map[string]bool {
	used := make(map[string]bool)
	mark := func(tok string) {
		if tok != "" && ir.ClassifyOperand(tok) == ir.OperandVariable {
			used[tok] = true
		}
	}
	for _, q := range fn.Instructions {
		if q.Eliminated {
			continue
		}
		mark(q.Src1)
		mark(q.Src2)
		for _, v := range q.InputVars {
			mark(v)
		}
		// OutputVars (an asm instruction's declared outputs) are writes, not
		// reads — marking them here would make any variable an asm ever
		// writes permanently "referenced," even if nothing reads it back.
		if !skipDestCheck(q) {
			mark(q.Dest)
		}
	}
	return used
}

// removeUnusedLabels strips a `label` instruction nothing jumps to.
func removeUnusedLabels(fn *ir.Function) bool {
	targeted := make(map[string]bool)
	for _, q := range fn.Instructions {
		if q.Eliminated {
			continue
		}
		switch q.Instruction {
		case "goto":
			targeted[q.Src1] = true
		case "if", "ifnot":
			targeted[q.Dest] = true
		}
	}
	changed := false
	for _, q := range fn.Instructions {
		if q.Eliminated || q.Instruction != "label" {
			continue
		}
		if !targeted[q.Src1] {
			q.Eliminated = true
			changed = true
		}
	}
	return changed
}

// reorderDecls hoists every live `decl_*` to immediately after
// `__funcbegin`, sorted by instruction tag. Declarations have no side
// effect beyond reserving storage, so the move is always safe, and it
// gives block-scoped passes (LCSE in particular) a decl-free body to
// reason about.
func reorderDecls(fn *ir.Function) bool {
	var decls, rest []*ir.Quadruple
	for _, q := range fn.Instructions {
		if !q.Eliminated && isDeclInstruction(q.Instruction) {
			decls = append(decls, q)
		} else {
			rest = append(rest, q)
		}
	}
	if len(decls) == 0 {
		return false
	}
	sort.SliceStable(decls, func(i, j int) bool { return decls[i].Instruction < decls[j].Instruction })
	out := make([]*ir.Quadruple, 0, len(fn.Instructions))
	inserted := false
	for _, q := range rest {
		out = append(out, q)
		if !inserted && q.Instruction == "__funcbegin" {
			out = append(out, decls...)
			inserted = true
		}
	}
	if !inserted {
		out = append(append([]*ir.Quadruple(nil), decls...), out...)
	}
	if samePtrOrder(fn.Instructions, out) {
		return false
	}
	fn.Instructions = out
	return true
}

func samePtrOrder(a, b []*ir.Quadruple) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// deduplicateTailReturn drops redundant trailing `__return`s immediately
// preceding the function's `__funcend`: if that tail run holds more than
// one `__return`, every one but the last is eliminated, since each is a
// no-op repetition of the same "jump back to the caller" effect.
func deduplicateTailReturn(fn *ir.Function) bool {
	live := fn.Live()
	if len(live) == 0 || live[len(live)-1].Instruction != "__funcend" {
		return false
	}
	kept := false
	changed := false
	for i := len(live) - 2; i >= 0; i-- {
		q := live[i]
		if q.Instruction != "__return" {
			break
		}
		if !kept {
			kept = true
			continue
		}
		q.Eliminated = true
		changed = true
	}
	return changed
}
