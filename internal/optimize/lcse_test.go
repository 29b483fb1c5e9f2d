package optimize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UMRnInside/MlogEvo/internal/ir"
)

func destsOf(instrs []*ir.Quadruple, instr string) []string {
	var out []string
	for _, q := range instrs {
		if q.Instruction == instr {
			out = append(out, q.Dest)
		}
	}
	return out
}

func countInstr(instrs []*ir.Quadruple, instr string) int {
	n := 0
	for _, q := range instrs {
		if q.Instruction == instr {
			n++
		}
	}
	return n
}

// TestLCSECollapsesThroughAliasCopy is the maintainer's concrete failing
// case: a plain `set_t` copy must be transparent to the op-cache, so
// `w1 = y + z` and `w2 = x + z` are recognized as the same computation even
// though w2's source operand only ever reads x through y's copy.
func TestLCSECollapsesThroughAliasCopy(t *testing.T) {
	blk := &ir.BasicBlock{Instructions: []*ir.Quadruple{
		ir.NewQuadruple("set_i32", "_x@f", "", "_y@f"),
		ir.NewQuadruple("add_i32", "_y@f", "_z@f", "_w1@f"),
		ir.NewQuadruple("add_i32", "_x@f", "_z@f", "_w2@f"),
		ir.NewQuadruple("__return", "", "", ""),
	}}
	ctx := &Context{VariableTypes: map[string]string{
		"_x@f": "i32", "_y@f": "i32", "_z@f": "i32", "_w1@f": "i32", "_w2@f": "i32",
	}}

	changed, err := lcseBlock(blk, ctx)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 1, countInstr(blk.Instructions, "add_i32"), "only one real add should remain")
	assert.Equal(t, 2, countInstr(blk.Instructions, "set_i32"), "y keeps its copy of x, and w2 should become a filler copy of w1's value")
}

// TestLCSEDropsDeadIntermediateWrite checks liveness-driven dead-node
// elimination: a write to `w` that gets overwritten before the block ends,
// with nothing in between reading the first value, has no surviving path
// to the ending node or to any name's final version, and so its node (and
// its otherwise-unused operands) is dropped entirely rather than
// regenerated as dead code.
func TestLCSEDropsDeadIntermediateWrite(t *testing.T) {
	blk := &ir.BasicBlock{Instructions: []*ir.Quadruple{
		ir.NewQuadruple("add_i32", "_a@f", "_b@f", "_w@f"),
		ir.NewQuadruple("add_i32", "_c@f", "_d@f", "_w@f"),
		branch("if", "_w@f", "ne_i32", "0", "L1"),
	}}
	ctx := &Context{VariableTypes: map[string]string{
		"_a@f": "i32", "_b@f": "i32", "_c@f": "i32", "_d@f": "i32", "_w@f": "i32",
	}}

	changed, err := lcseBlock(blk, ctx)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 1, countInstr(blk.Instructions, "add_i32"), "the overwritten first add should be dropped")
	for _, q := range blk.Instructions {
		if q.Instruction == "add_i32" {
			assert.Equal(t, "_c@f", q.Src1)
			assert.Equal(t, "_d@f", q.Src2)
		}
	}
}

// TestLCSEKeepsCallSacredDestinationReal asserts the call-convention
// exception: a copy into an outgoing argument slot must still produce a
// real node, since the call reads that exact storage rather than whatever
// value it happens to equal.
func TestLCSEKeepsCallSacredDestinationReal(t *testing.T) {
	blk := &ir.BasicBlock{Instructions: []*ir.Quadruple{
		ir.NewQuadruple("set_i32", "_x@f", "", "_param@callee"),
		ir.NewQuadruple("__call", "callee", "", ""),
	}}
	ctx := &Context{VariableTypes: map[string]string{"_x@f": "i32", "_param@callee": "i32"}}

	_, err := lcseBlock(blk, ctx)
	require.NoError(t, err)
	found := false
	for _, q := range blk.Instructions {
		if q.Instruction == "set_i32" && q.Dest == "_param@callee" {
			found = true
		}
	}
	assert.True(t, found, "the call-sacred argument slot must still be assigned, not aliased away")
}

// TestLCSERecomputesAfterInterveningWrite ensures a write to an operand
// between two otherwise-identical computations prevents collapsing them:
// the second add reads a different version of _x@f and must stay distinct.
func TestLCSERecomputesAfterInterveningWrite(t *testing.T) {
	blk := &ir.BasicBlock{Instructions: []*ir.Quadruple{
		ir.NewQuadruple("add_i32", "_x@f", "_y@f", "_w1@f"),
		ir.NewQuadruple("set_i32", "9", "", "_x@f"),
		ir.NewQuadruple("add_i32", "_x@f", "_y@f", "_w2@f"),
		ir.NewQuadruple("__return", "", "", ""),
	}}
	ctx := &Context{VariableTypes: map[string]string{
		"_x@f": "i32", "_y@f": "i32", "_w1@f": "i32", "_w2@f": "i32",
	}}

	_, err := lcseBlock(blk, ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, countInstr(blk.Instructions, "add_i32"), "recomputation after a write must not be collapsed")
}

func TestLCSENoOpOnEmptyBlock(t *testing.T) {
	blk := &ir.BasicBlock{}
	changed, err := lcseBlock(blk, &Context{})
	require.NoError(t, err)
	assert.False(t, changed)
}
