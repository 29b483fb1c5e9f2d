package inline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/UMRnInside/MlogEvo/internal/ir"
)

func simpleCallee() *ir.Function {
	fn := ir.NewFunction("double")
	fn.Attributes["inline"] = true
	fn.ResultType = "i32"
	fn.Params = []ir.Param{{Name: "param", Type: "i32"}}
	fn.LocalVars["_param@double"] = "i32"
	fn.LocalVars["result@double"] = "i32"
	fn.Instructions = []*ir.Quadruple{
		ir.NewQuadruple("__funcbegin", "double", "", ""),
		ir.NewQuadruple("add_i32", "_param@double", "_param@double", "result@double"),
		ir.NewQuadruple("__return", "", "", ""),
		ir.NewQuadruple("__funcend", "double", "", ""),
	}
	return fn
}

func TestInlineableRejectsMain(t *testing.T) {
	fn := simpleCallee()
	fn.Name = "main"
	assert.False(t, Inlineable(fn))
}

func TestInlineableRequiresAttribute(t *testing.T) {
	fn := simpleCallee()
	delete(fn.Attributes, "inline")
	assert.False(t, Inlineable(fn))
}

func TestInlineableRejectsFunctionsThatCall(t *testing.T) {
	fn := simpleCallee()
	fn.Instructions = append(fn.Instructions[:1:1], ir.NewQuadruple("__call", "other", "", ""))
	assert.False(t, Inlineable(fn))
}

func TestInlineableAlwaysInlineIgnoresSizeCap(t *testing.T) {
	fn := simpleCallee()
	fn.Attributes["always_inline"] = true
	for i := 0; i < maxTrivialInstructions+5; i++ {
		fn.Instructions = append(fn.Instructions, ir.NewQuadruple("set_i32", "0", "", "_param@double"))
	}
	assert.True(t, Inlineable(fn))
}

func TestInlineableRejectsOversizedWithoutAlwaysInline(t *testing.T) {
	fn := simpleCallee()
	for i := 0; i < maxTrivialInstructions+5; i++ {
		fn.Instructions = append(fn.Instructions, ir.NewQuadruple("set_i32", "0", "", "_param@double"))
	}
	assert.False(t, Inlineable(fn))
}

func TestInlineAllSplicesCalleeBody(t *testing.T) {
	mod := ir.NewModule()
	callee := simpleCallee()

	caller := ir.NewFunction("main")
	caller.LocalVars["_param@double"] = "i32"
	caller.LocalVars["result@main"] = "i32"
	caller.Instructions = []*ir.Quadruple{
		ir.NewQuadruple("__funcbegin", "main", "", ""),
		ir.NewQuadruple("set_i32", "5", "", "_param@double"),
		ir.NewQuadruple("__call", "double", "", ""),
		ir.NewQuadruple("set_i32", "result@double", "", "result@main"),
		ir.NewQuadruple("__return", "", "", ""),
		ir.NewQuadruple("__funcend", "main", "", ""),
	}

	mod.Functions = append(mod.Functions, caller, callee)
	InlineAll(mod)

	for _, q := range caller.Instructions {
		assert.NotEqual(t, "__call", q.Instruction, "the call site should have been spliced away")
	}
	foundAdd := false
	for _, q := range caller.Instructions {
		if q.Instruction == "add_i32" {
			foundAdd = true
		}
	}
	assert.True(t, foundAdd, "callee's add_i32 body should be present in the caller")

	// The post-call consumer (`set_i32 result@double "" result@main`) reads
	// the stable, unredirected result@double slot; the spliced body must
	// still write into that exact name for the value to actually flow
	// through, rather than being orphaned by a per-site rename.
	found := false
	for _, q := range caller.Instructions {
		if q.Instruction == "set_i32" && q.Dest == "result@main" {
			found = true
			assert.Equal(t, "result@double", q.Src1)
		}
	}
	assert.True(t, found)
}

func TestInlineAllLeavesNonInlineableCallsAlone(t *testing.T) {
	mod := ir.NewModule()
	callee := simpleCallee()
	delete(callee.Attributes, "inline") // not eligible

	caller := ir.NewFunction("main")
	caller.Instructions = []*ir.Quadruple{
		ir.NewQuadruple("__funcbegin", "main", "", ""),
		ir.NewQuadruple("__call", "double", "", ""),
		ir.NewQuadruple("__return", "", "", ""),
		ir.NewQuadruple("__funcend", "main", "", ""),
	}

	mod.Functions = append(mod.Functions, caller, callee)
	InlineAll(mod)

	found := false
	for _, q := range caller.Instructions {
		if q.Instruction == "__call" {
			found = true
		}
	}
	assert.True(t, found, "a non-inlineable callee's call site must survive untouched")
}
