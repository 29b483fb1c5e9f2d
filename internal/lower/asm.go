package lower

import (
	"github.com/UMRnInside/MlogEvo/internal/ast"
	"github.com/UMRnInside/MlogEvo/internal/errors"
	"github.com/UMRnInside/MlogEvo/internal/ir"
	"github.com/iancoleman/strcase"
)

// lowerAsmStmt lowers a user-written `asm`/`asm volatile` statement. Operand
// expressions in this dialect are always lvalues/rvalues the frontend can
// resolve directly to a variable token — including sensor fields, which
// are themselves valid `@name` operand tokens — so no synthesized asm
// wrapper is needed here (that machinery is only for a bare `obj.field`
// appearing in ordinary expression position; see lowerFieldAccess).
func (b *builder) lowerAsmStmt(s *ast.AsmStmt) error {
	outputs := make([]string, 0, len(s.Outputs))
	for _, op := range s.Outputs {
		name, err := b.asmOperandName(op.Expr)
		if err != nil {
			return err
		}
		outputs = append(outputs, name)
	}
	inputs := make([]string, 0, len(s.Inputs))
	for _, op := range s.Inputs {
		name, err := b.asmOperandName(op.Expr)
		if err != nil {
			return err
		}
		inputs = append(inputs, name)
	}

	instr := "asm"
	if s.Volatile {
		instr = "asm_volatile"
	}
	q := ir.NewQuadruple(instr, "", "", "")
	q.InputVars = inputs
	q.OutputVars = outputs
	q.RawInstructions = append([]string(nil), s.Template...)
	b.fn.Push(q)
	return nil
}

func (b *builder) asmOperandName(e ast.Expr) (string, error) {
	switch x := e.(type) {
	case *ast.Ident:
		decorated, _, err := b.resolve(x.Name, x.Pos())
		return decorated, err
	case *ast.FieldAccess:
		id, ok := x.X.(*ast.Ident)
		if !ok {
			return "", errors.New(errors.KindUnsupported, x.Pos(), "asm sensor operand must be a plain object")
		}
		if _, _, err := b.resolve(id.Name, id.Pos()); err != nil {
			return "", err
		}
		return "@" + strcase.ToKebab(x.Field), nil
	default:
		return "", errors.New(errors.KindUnsupported, e.Pos(), "unsupported asm operand")
	}
}
