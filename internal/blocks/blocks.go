// Package blocks partitions a function's flat quadruple stream into basic
// blocks (spec.md §4.2), grounded on the teacher's function-level IR
// passes (internal/ir/optimizations.go) restructured around this
// compiler's entrance/exit tag model rather than kanso's SSA blocks.
package blocks

import "github.com/UMRnInside/MlogEvo/internal/ir"

// Build partitions fn's live (non-eliminated) instructions into maximal
// single-entry, single-exit basic blocks and resolves each block's tail
// jump to the block owning its target label.
func Build(fn *ir.Function) []*ir.BasicBlock {
	instrs := fn.Live()
	var result []*ir.BasicBlock
	cur := &ir.BasicBlock{ID: 0}
	for _, q := range instrs {
		if q.IsBasicBlockEntrance() && len(cur.Instructions) > 0 {
			result = append(result, cur)
			cur = &ir.BasicBlock{ID: len(result)}
		}
		cur.Instructions = append(cur.Instructions, q)
		if q.IsBasicBlockExit() {
			result = append(result, cur)
			cur = &ir.BasicBlock{ID: len(result)}
		}
	}
	if len(cur.Instructions) > 0 {
		result = append(result, cur)
	}

	owner := make(map[string]int, len(result))
	for _, blk := range result {
		if len(blk.Instructions) > 0 && blk.Instructions[0].Instruction == "label" {
			owner[blk.Instructions[0].Src1] = blk.ID
		}
	}

	for _, blk := range result {
		if len(blk.Instructions) == 0 {
			blk.JumpDestination = -1
			blk.WillContinue = true
			continue
		}
		last := blk.Instructions[len(blk.Instructions)-1]
		switch last.Instruction {
		case "goto":
			blk.JumpDestination = labelBlock(owner, last.Src1)
			blk.WillContinue = false
		case "if", "ifnot":
			blk.JumpDestination = labelBlock(owner, last.Dest)
			blk.WillContinue = true
		case "__funcend":
			blk.JumpDestination = -1
			blk.WillContinue = false
		default:
			// __return, __call, asm/asm_volatile, or a fallthrough boundary
			// caused by the next instruction being a label/funcbegin
			// entrance. Only goto and __funcend clear WillContinue; a
			// __return tail keeps it set, even though the emitted
			// `set @counter retaddr@F` leaves the function.
			blk.JumpDestination = -1
			blk.WillContinue = true
		}
	}
	return result
}

func labelBlock(owner map[string]int, label string) int {
	if id, ok := owner[label]; ok {
		return id
	}
	return -1
}

// Flatten concatenates a (possibly rewritten) block list back into a flat
// instruction stream, the inverse of Build.
func Flatten(bs []*ir.BasicBlock) []*ir.Quadruple {
	var out []*ir.Quadruple
	for _, b := range bs {
		out = append(out, b.Instructions...)
	}
	return out
}
