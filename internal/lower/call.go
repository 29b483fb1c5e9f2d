package lower

import (
	"github.com/UMRnInside/MlogEvo/internal/ast"
	"github.com/UMRnInside/MlogEvo/internal/errors"
	"github.com/UMRnInside/MlogEvo/internal/ir"
	"github.com/UMRnInside/MlogEvo/internal/types"
	"github.com/iancoleman/strcase"
)

// lowerCall handles the hard-coded `print` builtin and ordinary
// user-function calls. Calls use the naming discipline's per-function
// parameter and result slots (spec.md §3: `_name@F`, `result@F`) rather
// than a real call stack — this sandboxed target has none.
func (b *builder) lowerCall(c *ast.Call) (string, types.Kind, error) {
	if c.Callee == "print" {
		return b.lowerPrint(c)
	}
	callee := b.mod.FindFunction(c.Callee)
	if callee == nil {
		return "", "", errors.New(errors.KindUndeclared, c.Pos(), "call to undeclared function %q", c.Callee)
	}
	if len(c.Args) != len(callee.Params) {
		return "", "", errors.New(errors.KindUnsupported, c.Pos(), "%q expects %d argument(s), got %d", c.Callee, len(callee.Params), len(c.Args))
	}
	for i, arg := range c.Args {
		param := callee.Params[i]
		paramSlot := "_" + param.Name + "@" + callee.Name
		if err := b.assignTo(paramSlot, param.Type, arg); err != nil {
			return "", "", err
		}
	}
	b.fn.Push(ir.NewQuadruple("__call", callee.Name, "", ""))
	if callee.ResultType == "" {
		return "", types.KindI32, nil
	}
	t := b.newTemp(callee.ResultType)
	b.fn.Push(ir.NewQuadruple("set_"+callee.ResultType, "result@"+callee.Name, "", t))
	return t, kindFromSuffix(callee.ResultType), nil
}

func (b *builder) lowerPrint(c *ast.Call) (string, types.Kind, error) {
	if len(c.Args) != 1 {
		return "", "", errors.New(errors.KindUnsupported, c.Pos(), "print takes exactly one argument")
	}
	val, _, err := b.lowerExpr(c.Args[0])
	if err != nil {
		return "", "", err
	}
	b.fn.Push(ir.NewQuadruple("print", val, "", ""))
	return "", types.KindI32, nil
}

// lowerFieldAccess reads a sensor field off a `struct MlogObject` value:
// `obj.field` synthesizes an asm block carrying the real mlog `sensor`
// instruction, since this dialect has no first-class sensor-read
// quadruple tag of its own (spec.md §4.1: "sensor/struct MlogObject field
// access via synthesized asm blocks").
func (b *builder) lowerFieldAccess(fa *ast.FieldAccess) (string, types.Kind, error) {
	obj, _, err := b.lowerExpr(fa.X)
	if err != nil {
		return "", "", err
	}
	sensorName := "@" + strcase.ToKebab(fa.Field)
	fieldType, ok := b.mod.SensorFields[sensorName]
	resultSuffix := "obj"
	if ok {
		resultSuffix = kindSuffix(types.KindForType(fieldType))
	}
	result := b.newTemp(resultSuffix)
	q := ir.NewQuadruple("asm", "", "", "")
	q.InputVars = []string{obj}
	q.OutputVars = []string{result}
	q.RawInstructions = []string{"sensor %0 %1 " + sensorName}
	b.fn.Push(q)
	return result, kindFromSuffix(resultSuffix), nil
}
