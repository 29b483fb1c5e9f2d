package optimize

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/UMRnInside/MlogEvo/internal/ir"
)

func TestConfigEnabledFlagOverridesLevel(t *testing.T) {
	p := &Pass{Name: "remove-unused-labels", MinLevel: 1}
	assert.False(t, Config{Level: 0}.Enabled(p))
	assert.True(t, Config{Level: 1}.Enabled(p))
	assert.True(t, Config{Level: 0, Flags: map[string]bool{"remove-unused-labels": true}}.Enabled(p))
	assert.False(t, Config{Level: 3, Flags: map[string]bool{"remove-unused-labels": false}}.Enabled(p))
}

func TestRunChainsLabelAndVariableCleanup(t *testing.T) {
	mod := ir.NewModule()
	fn := ir.NewFunction("f")
	fn.LocalVars["result@f"] = "i32"
	fn.LocalVars["_dead@f"] = "i32"
	instrs(fn,
		ir.NewQuadruple("__funcbegin", "f", "", ""),
		ir.NewQuadruple("decl_i32", "", "", "_dead@f"),
		branch("if", "0", "eq_i32", "1", "L1"),
		ir.NewQuadruple("set_i32", "1", "", "_dead@f"),
		ir.NewQuadruple("label", "L1", "", ""),
		ir.NewQuadruple("set_i32", "0", "", "result@f"),
		ir.NewQuadruple("__return", "", "", ""),
		ir.NewQuadruple("__return", "", "", ""),
		ir.NewQuadruple("__funcend", "f", "", ""),
	)
	mod.Functions = append(mod.Functions, fn)

	assert.NoError(t, Run(mod, Config{Level: 1, Flags: map[string]bool{}}))

	var tags []string
	for _, q := range fn.Instructions {
		tags = append(tags, q.Instruction)
	}
	assert.NotContains(t, tags, "decl_i32", "dead _dead@f declaration should be removed")
	assert.Contains(t, tags, "label", "L1 is targeted by the if-branch and must survive")
	returns := 0
	for _, tag := range tags {
		if tag == "__return" {
			returns++
		}
	}
	assert.Equal(t, 1, returns, "deduplicate-tail-return should collapse to one")
}
