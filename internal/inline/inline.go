// Package inline implements function inlining (spec.md §4.3), grounded on
// the original Python compiler's inline_utils.py: an inlineability rule,
// a redirect_variable-style renaming scheme keyed to a unique per-call-site
// suffix, and splicing the callee's body in place of its `__call` site.
package inline

import (
	"fmt"
	"strings"

	"github.com/UMRnInside/MlogEvo/internal/ir"
)

const maxTrivialInstructions = 16

// Inlineable reports whether fn is a legal inline candidate: never `main`,
// must carry the `inline` attribute, must either carry `always_inline` or
// have at most maxTrivialInstructions live instructions, and must not
// itself contain a call (a function whose own calls are spliced away by
// InlineAll becomes a candidate in a later round).
func Inlineable(fn *ir.Function) bool {
	if fn.Name == "main" {
		return false
	}
	if !fn.Attributes["inline"] {
		return false
	}
	live := fn.Live()
	for _, q := range live {
		if q.Instruction == "__call" {
			return false
		}
	}
	if fn.Attributes["always_inline"] {
		return true
	}
	return len(live) <= maxTrivialInstructions
}

// FilterInlineable returns the subset of mod's functions eligible for
// inlining.
func FilterInlineable(mod *ir.Module) []*ir.Function {
	var out []*ir.Function
	for _, fn := range mod.Functions {
		if Inlineable(fn) {
			out = append(out, fn)
		}
	}
	return out
}

// inliner tracks the monotonically increasing call-site counter that keeps
// every inlined copy's renamed locals unique.
type inliner struct {
	site int
}

// InlineAll rewrites every call to an inlineable function, in every
// function, splicing the callee's body in place of the `__call`
// instruction. It iterates to a fixed point so an inlineable function
// called from another inlineable function's (already-inlined) body is
// still expanded.
func InlineAll(mod *ir.Module) {
	in := &inliner{}
	for {
		changed := false
		candidates := make(map[string]*ir.Function)
		for _, fn := range FilterInlineable(mod) {
			candidates[fn.Name] = fn
		}
		for _, fn := range mod.Functions {
			if in.inlineOnce(fn, candidates) {
				changed = true
			}
		}
		if !changed {
			return
		}
	}
}

func (in *inliner) inlineOnce(fn *ir.Function, candidates map[string]*ir.Function) bool {
	changed := false
	instrs := fn.Instructions
	for i := 0; i < len(instrs); i++ {
		q := instrs[i]
		if q.Eliminated || q.Instruction != "__call" {
			continue
		}
		callee, ok := candidates[q.Src1]
		if !ok || callee.Name == fn.Name {
			continue
		}
		in.site++
		suffix := fmt.Sprintf("__site%d", in.site)
		stable := stableCallSlots(callee)
		body := redirectBody(callee, suffix, stable)
		for name, typ := range callee.LocalVars {
			if stable[name] {
				fn.LocalVars[name] = typ
				continue
			}
			fn.LocalVars[redirectToken(name, callee.Name, suffix)] = typ
		}
		instrs = spliceAt(instrs, i, body)
		i += len(body) - 1
		changed = true
	}
	fn.Instructions = instrs
	simplifyReturnSlots(fn)
	return changed
}

// stableCallSlots names the tokens the call convention itself reads/writes
// from the CALLER's surrounding code (the argument assignments pushed
// right before `__call` in lower/call.go, and the `set_T result@callee ""
// t` pushed right after it) — names the splice operation must leave exactly
// as callee.Live() spells them, since nothing redirects those caller-side
// instructions to match a per-call-site suffix.
func stableCallSlots(callee *ir.Function) map[string]bool {
	stable := map[string]bool{"result@" + callee.Name: true}
	for _, p := range callee.Params {
		stable["_"+p.Name+"@"+callee.Name] = true
	}
	return stable
}

func spliceAt(instrs []*ir.Quadruple, i int, replacement []*ir.Quadruple) []*ir.Quadruple {
	out := make([]*ir.Quadruple, 0, len(instrs)-1+len(replacement))
	out = append(out, instrs[:i]...)
	out = append(out, replacement...)
	out = append(out, instrs[i+1:]...)
	return out
}

// redirectBody clones callee's live instructions with every decorated name
// carrying "@calleeName" rewritten to "@calleeName__siteN" — except the
// stable param/result slots, which the caller's surrounding code addresses
// by their plain name and which must therefore keep resolving to the same
// storage the splice writes into — strips the `__funcbegin`/`__funcend`
// markers, and converts every `__return` into a jump to a freshly minted
// per-call-site exit label.
func redirectBody(callee *ir.Function, suffix string, stable map[string]bool) []*ir.Quadruple {
	exitLabel := fmt.Sprintf("__inline_exit%s@%s", suffix, callee.Name)
	redirect := func(tok string) string {
		if stable[tok] {
			return tok
		}
		return redirectToken(tok, callee.Name, suffix)
	}
	var out []*ir.Quadruple
	for _, q := range callee.Live() {
		switch q.Instruction {
		case "__funcbegin", "__funcend":
			continue
		case "__return":
			out = append(out, ir.NewQuadruple("goto", exitLabel, "", ""))
			continue
		}
		clone := q.Clone()
		clone.SetSrc1(redirect(clone.Src1))
		clone.SetSrc2(redirect(clone.Src2))
		clone.Dest = redirect(clone.Dest)
		for i, v := range clone.InputVars {
			clone.InputVars[i] = redirect(v)
		}
		for i, v := range clone.OutputVars {
			clone.OutputVars[i] = redirect(v)
		}
		out = append(out, clone)
	}
	out = append(out, ir.NewQuadruple("label", exitLabel, "", ""))
	return out
}

// redirectToken rewrites a token ending in "@calleeName" (a local, temp, or
// label of the callee — never a stable param/result slot, which callers
// handle separately) to the same name suffixed with the call site's unique
// tag, leaving anything else (globals, sensor fields, literals) untouched.
func redirectToken(token, calleeName, suffix string) string {
	if token == "" {
		return token
	}
	tag := "@" + calleeName
	if strings.HasSuffix(token, tag) {
		return strings.TrimSuffix(token, tag) + tag + suffix
	}
	return token
}

// simplifyReturnSlots collapses the common single-return inlining shape:
//
//	set_T  X  result@F
//	label  __inline_exit__siteN@F
//	set_T  result@F  temp
//
// into `set_T X temp`, when the exit label has exactly one predecessor
// (the fallthrough from the set) and the result slot is not read again —
// the peephole the original compiler's inliner applies by scanning
// backward from the call site for the instruction that produced the
// return value, rather than paying for the slot indirection at every
// call site.
func simplifyReturnSlots(fn *ir.Function) {
	instrs := fn.Instructions
	for i := 0; i+2 < len(instrs); i++ {
		set1 := instrs[i]
		label := instrs[i+1]
		set2 := instrs[i+2]
		if set1.Eliminated || label.Eliminated || set2.Eliminated {
			continue
		}
		if label.Instruction != "label" || set2.Instruction != set1.Instruction {
			continue
		}
		if !strings.HasPrefix(set1.Instruction, "set_") || set1.Dest != set2.Src1 {
			continue
		}
		if !strings.HasPrefix(set1.Dest, "result@") {
			continue
		}
		if labelHasOtherPredecessor(instrs, label.Src1, i+1) {
			continue
		}
		if resultSlotUsedElsewhere(instrs, set1.Dest, i, i+2) {
			continue
		}
		set1.Dest = set2.Dest
		set1.UpdateOperandKinds()
		label.Eliminated = true
		set2.Eliminated = true
	}
	fn.Compact()
}

func labelHasOtherPredecessor(instrs []*ir.Quadruple, name string, labelIdx int) bool {
	for i, q := range instrs {
		if q.Eliminated || i == labelIdx-1 {
			continue
		}
		if (q.Instruction == "goto" && q.Src1 == name) || ((q.Instruction == "if" || q.Instruction == "ifnot") && q.Dest == name) {
			return true
		}
	}
	return false
}

func resultSlotUsedElsewhere(instrs []*ir.Quadruple, name string, skip ...int) bool {
	skipSet := map[int]bool{}
	for _, i := range skip {
		skipSet[i] = true
	}
	for i, q := range instrs {
		if skipSet[i] || q.Eliminated {
			continue
		}
		if q.Src1 == name || q.Src2 == name || q.Dest == name {
			return true
		}
		for _, v := range q.InputVars {
			if v == name {
				return true
			}
		}
		for _, v := range q.OutputVars {
			if v == name {
				return true
			}
		}
	}
	return false
}
