package optimize

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/UMRnInside/MlogEvo/internal/ir"
)

func instrs(fn *ir.Function, qs ...*ir.Quadruple) {
	for _, q := range qs {
		fn.Push(q)
	}
}

func branch(instr, src1, relop, src2, dest string) *ir.Quadruple {
	q := ir.NewQuadruple(instr, src1, src2, dest)
	q.Relop = relop
	return q
}

func TestRemoveUnusedLabelsDropsOnlyUntargeted(t *testing.T) {
	fn := ir.NewFunction("f")
	instrs(fn,
		ir.NewQuadruple("__funcbegin", "f", "", ""),
		branch("if", "_x@f", "lt_i32", "0", "L1"),
		ir.NewQuadruple("label", "L1", "", ""),
		ir.NewQuadruple("label", "L2", "", ""),
		ir.NewQuadruple("__return", "", "", ""),
		ir.NewQuadruple("__funcend", "f", "", ""),
	)
	changed := removeUnusedLabels(fn)
	assert.True(t, changed)
	live := fn.Live()
	var labels []string
	for _, q := range live {
		if q.Instruction == "label" {
			labels = append(labels, q.Src1)
		}
	}
	assert.Equal(t, []string{"L1"}, labels)
}

func TestDeduplicateTailReturnKeepsLastOnly(t *testing.T) {
	fn := ir.NewFunction("f")
	instrs(fn,
		ir.NewQuadruple("__funcbegin", "f", "", ""),
		ir.NewQuadruple("__return", "", "", ""),
		ir.NewQuadruple("__return", "", "", ""),
		ir.NewQuadruple("__return", "", "", ""),
		ir.NewQuadruple("__funcend", "f", "", ""),
	)
	changed := deduplicateTailReturn(fn)
	assert.True(t, changed)
	live := fn.Live()
	returns := 0
	for _, q := range live {
		if q.Instruction == "__return" {
			returns++
		}
	}
	assert.Equal(t, 1, returns)
	assert.Equal(t, "__funcend", live[len(live)-1].Instruction)
}

func TestDeduplicateTailReturnNoOpWhenSingleReturn(t *testing.T) {
	fn := ir.NewFunction("f")
	instrs(fn,
		ir.NewQuadruple("__funcbegin", "f", "", ""),
		ir.NewQuadruple("__return", "", "", ""),
		ir.NewQuadruple("__funcend", "f", "", ""),
	)
	assert.False(t, deduplicateTailReturn(fn))
}

func TestReorderDeclsHoistsAfterFuncbeginSorted(t *testing.T) {
	fn := ir.NewFunction("f")
	instrs(fn,
		ir.NewQuadruple("__funcbegin", "f", "", ""),
		ir.NewQuadruple("set_i32", "1", "", "_a@f"),
		ir.NewQuadruple("decl_f64", "", "", "_b@f"),
		ir.NewQuadruple("decl_i32", "", "", "_a@f"),
		ir.NewQuadruple("__funcend", "f", "", ""),
	)
	changed := reorderDecls(fn)
	assert.True(t, changed)
	var order []string
	for _, q := range fn.Instructions {
		order = append(order, q.Instruction)
	}
	// decl_f64 sorts before decl_i32 lexicographically, both moved right
	// after __funcbegin ahead of the set_i32 that originally preceded them.
	assert.Equal(t, []string{"__funcbegin", "decl_f64", "decl_i32", "set_i32", "__funcend"}, order)
}

func TestReorderDeclsNoOpWithNoDecls(t *testing.T) {
	fn := ir.NewFunction("f")
	instrs(fn,
		ir.NewQuadruple("__funcbegin", "f", "", ""),
		ir.NewQuadruple("set_i32", "1", "", "_a@f"),
		ir.NewQuadruple("__funcend", "f", "", ""),
	)
	assert.False(t, reorderDecls(fn))
}

func TestRemoveUnusedVariablesProtectsCallResultAndParams(t *testing.T) {
	fn := ir.NewFunction("main")
	fn.LocalVars["result@callee"] = "i32"
	fn.LocalVars["_param@callee"] = "i32"
	fn.LocalVars["result@main"] = "i32"
	instrs(fn,
		ir.NewQuadruple("__funcbegin", "main", "", ""),
		ir.NewQuadruple("set_i32", "5", "", "_param@callee"),
		ir.NewQuadruple("__call", "callee", "", ""),
		// _param@callee (written above) is read only by the call convention,
		// never by an ordinary instruction here, so only its protection keeps
		// that write.
		ir.NewQuadruple("set_i32", "0", "", "result@main"),
		ir.NewQuadruple("__return", "", "", ""),
		ir.NewQuadruple("__funcend", "main", "", ""),
	)
	removeUnusedVariables(fn)
	live := fn.Live()
	for _, name := range []string{"_param@callee", "result@main"} {
		found := false
		for _, q := range live {
			if q.Dest == name {
				found = true
			}
		}
		assert.True(t, found, "expected %s to survive", name)
	}
}

func TestRemoveUnusedVariablesDropsDeadWrite(t *testing.T) {
	fn := ir.NewFunction("f")
	fn.LocalVars["result@f"] = "i32"
	instrs(fn,
		ir.NewQuadruple("__funcbegin", "f", "", ""),
		ir.NewQuadruple("decl_i32", "", "", "_dead@f"),
		ir.NewQuadruple("set_i32", "1", "", "_dead@f"),
		ir.NewQuadruple("set_i32", "0", "", "result@f"),
		ir.NewQuadruple("__return", "", "", ""),
		ir.NewQuadruple("__funcend", "f", "", ""),
	)
	changed := removeUnusedVariables(fn)
	assert.True(t, changed)
	for _, q := range fn.Live() {
		assert.NotEqual(t, "_dead@f", q.Dest)
	}
}
