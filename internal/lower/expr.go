package lower

import (
	"strings"

	"github.com/UMRnInside/MlogEvo/internal/ast"
	"github.com/UMRnInside/MlogEvo/internal/errors"
	"github.com/UMRnInside/MlogEvo/internal/ir"
	"github.com/UMRnInside/MlogEvo/internal/types"
)

// coerce inserts an implicit conversion quadruple when valSuffix and
// destSuffix disagree. struct MlogObject (suffix "obj") is
// assignment-compatible with any arithmetic type without ever being
// promoted (spec.md §3's rank -1 rule), so either side being "obj" is a
// no-op coercion.
func (b *builder) coerce(val, valSuffix, destSuffix string) string {
	if valSuffix == destSuffix || valSuffix == "obj" || destSuffix == "obj" {
		return val
	}
	t := b.newTemp(destSuffix)
	b.fn.Push(ir.NewQuadruple("cvt"+valSuffix+"_"+destSuffix, val, "", t))
	return t
}

// assignTo lowers rhs and stores it into an already-decorated destination,
// applying the heuristic peephole: if rhs's lowering just computed into a
// fresh temp that nothing else references, redirect that instruction's
// Dest to the real destination instead of emitting a redundant `set`.
func (b *builder) assignTo(dest, destSuffix string, rhs ast.Expr) error {
	before := len(b.fn.Instructions)
	val, valKind, err := b.lowerExpr(rhs)
	if err != nil {
		return err
	}
	val = b.coerce(val, kindSuffix(valKind), destSuffix)

	if len(b.fn.Instructions) > before && strings.HasPrefix(val, "___vtmp_") {
		last := b.fn.Instructions[len(b.fn.Instructions)-1]
		if !last.Eliminated && last.Dest == val && last.Arity() != ir.ArityBranch && last.Arity() != ir.ArityAsm {
			last.Dest = dest
			return nil
		}
	}
	b.fn.Push(ir.NewQuadruple("set_"+destSuffix, val, "", dest))
	return nil
}

var compoundOp = map[string]string{
	"+=": "+", "-=": "-", "*=": "*", "/=": "/", "%=": "%",
	"&=": "&", "|=": "|", "^=": "^", "<<=": "<<", ">>=": ">>",
}

func (b *builder) lowerExpr(e ast.Expr) (string, types.Kind, error) {
	switch x := e.(type) {
	case *ast.IntLit:
		return x.Text, types.KindI32, nil
	case *ast.FloatLit:
		return x.Text, types.KindF64, nil
	case *ast.Paren:
		return b.lowerExpr(x.X)
	case *ast.Ident:
		decorated, suffix, err := b.resolve(x.Name, x.Pos())
		return decorated, kindFromSuffix(suffix), err
	case *ast.Unary:
		return b.lowerUnary(x)
	case *ast.PreIncDec:
		return b.lowerPreIncDec(x)
	case *ast.PostIncDec:
		return b.lowerPostIncDec(x)
	case *ast.Binary:
		return b.lowerBinary(x)
	case *ast.Assign:
		return b.lowerAssign(x)
	case *ast.Cast:
		val, kind, err := b.lowerExpr(x.X)
		if err != nil {
			return "", "", err
		}
		destSuffix := kindSuffix(types.KindForType(x.Type))
		return b.coerce(val, kindSuffix(kind), destSuffix), kindFromSuffix(destSuffix), nil
	case *ast.Call:
		return b.lowerCall(x)
	case *ast.FieldAccess:
		return b.lowerFieldAccess(x)
	default:
		return "", "", errors.New(errors.KindUnsupported, e.Pos(), "unsupported expression")
	}
}

func (b *builder) lowerUnary(x *ast.Unary) (string, types.Kind, error) {
	val, kind, err := b.lowerExpr(x.X)
	if err != nil {
		return "", "", err
	}
	suffix := kindSuffix(kind)
	switch x.Op {
	case "-":
		t := b.newTemp(suffix)
		b.fn.Push(ir.NewQuadruple("minus_"+suffix, val, "", t))
		return t, kind, nil
	case "!":
		// logical not: eq_t against the literal zero of the operand's own
		// type, always yielding i32 (comparisons always produce int).
		t := b.newTemp("i32")
		b.fn.Push(ir.NewQuadruple("eq_"+suffix, val, zeroLiteral(suffix), t))
		return t, types.KindI32, nil
	case "~":
		val = b.coerce(val, suffix, "i32")
		t := b.newTemp("i32")
		b.fn.Push(ir.NewQuadruple("not_i32", val, "", t))
		return t, types.KindI32, nil
	default:
		return "", "", errors.New(errors.KindUnsupported, x.Pos(), "unsupported unary operator %q", x.Op)
	}
}

func zeroLiteral(suffix string) string {
	if suffix == "f64" {
		return "0.0"
	}
	return "0"
}

func (b *builder) lvalueOperand(e ast.Expr) (string, string, error) {
	id, ok := e.(*ast.Ident)
	if !ok {
		return "", "", errors.New(errors.KindUnsupported, e.Pos(), "expected a modifiable variable")
	}
	decorated, suffix, err := b.resolve(id.Name, id.Pos())
	return decorated, suffix, err
}

func (b *builder) lowerPreIncDec(x *ast.PreIncDec) (string, types.Kind, error) {
	decorated, suffix, err := b.lvalueOperand(x.X)
	if err != nil {
		return "", "", err
	}
	tag := "add_" + suffix
	if x.Op == "--" {
		tag = "sub_" + suffix
	}
	b.fn.Push(ir.NewQuadruple(tag, decorated, "1", decorated))
	return decorated, kindFromSuffix(suffix), nil
}

func (b *builder) lowerPostIncDec(x *ast.PostIncDec) (string, types.Kind, error) {
	decorated, suffix, err := b.lvalueOperand(x.X)
	if err != nil {
		return "", "", err
	}
	saved := b.newTemp(suffix)
	b.fn.Push(ir.NewQuadruple("set_"+suffix, decorated, "", saved))
	tag := "add_" + suffix
	if x.Op == "--" {
		tag = "sub_" + suffix
	}
	b.fn.Push(ir.NewQuadruple(tag, decorated, "1", decorated))
	return saved, kindFromSuffix(suffix), nil
}

var arithTag = map[string]string{
	"+": "add", "-": "sub", "*": "mul", "/": "div",
	"%": "rem", "&": "and", "|": "or", "^": "xor", "<<": "lsh", ">>": "rsh",
}
var i32OnlyOps = map[string]bool{"%": true, "&": true, "|": true, "^": true, "<<": true, ">>": true}
var compareTag = map[string]string{"<": "lt", "<=": "lteq", ">": "gt", ">=": "gteq", "==": "eq", "!=": "ne"}

func (b *builder) lowerBinary(x *ast.Binary) (string, types.Kind, error) {
	if x.Op == "&&" || x.Op == "||" {
		return b.lowerShortCircuitValue(x)
	}
	if tag, ok := compareTag[x.Op]; ok {
		lv, lk, err := b.lowerExpr(x.L)
		if err != nil {
			return "", "", err
		}
		rv, rk, err := b.lowerExpr(x.R)
		if err != nil {
			return "", "", err
		}
		suffix := "i32"
		if lk == types.KindF64 || rk == types.KindF64 {
			suffix = "f64"
		}
		lv = b.coerce(lv, kindSuffix(lk), suffix)
		rv = b.coerce(rv, kindSuffix(rk), suffix)
		t := b.newTemp("i32")
		b.fn.Push(ir.NewQuadruple(tag+"_"+suffix, lv, rv, t))
		return t, types.KindI32, nil
	}
	tag, ok := arithTag[x.Op]
	if !ok {
		return "", "", errors.New(errors.KindUnsupported, x.Pos(), "unsupported binary operator %q", x.Op)
	}
	lv, lk, err := b.lowerExpr(x.L)
	if err != nil {
		return "", "", err
	}
	rv, rk, err := b.lowerExpr(x.R)
	if err != nil {
		return "", "", err
	}
	suffix := "i32"
	if !i32OnlyOps[x.Op] && (lk == types.KindF64 || rk == types.KindF64) {
		suffix = "f64"
	}
	lv = b.coerce(lv, kindSuffix(lk), suffix)
	rv = b.coerce(rv, kindSuffix(rk), suffix)
	t := b.newTemp(suffix)
	b.fn.Push(ir.NewQuadruple(tag+"_"+suffix, lv, rv, t))
	return t, kindFromSuffix(suffix), nil
}

func (b *builder) lowerShortCircuitValue(x *ast.Binary) (string, types.Kind, error) {
	falseLbl := b.newLabel("scfalse")
	endLbl := b.newLabel("scend")
	result := b.newTemp("i32")
	if err := b.branchIfFalse(x, falseLbl); err != nil {
		return "", "", err
	}
	b.fn.Push(ir.NewQuadruple("set_i32", "1", "", result))
	b.fn.Push(ir.NewQuadruple("goto", endLbl, "", ""))
	b.label(falseLbl)
	b.fn.Push(ir.NewQuadruple("set_i32", "0", "", result))
	b.label(endLbl)
	return result, types.KindI32, nil
}

func (b *builder) lowerAssign(x *ast.Assign) (string, types.Kind, error) {
	decorated, suffix, err := b.lvalueOperand(x.LHS)
	if err != nil {
		return "", "", err
	}
	rhs := x.RHS
	if x.Op != "=" {
		op, ok := compoundOp[x.Op]
		if !ok {
			return "", "", errors.New(errors.KindUnsupported, x.Pos(), "unsupported assignment operator %q", x.Op)
		}
		bin := &ast.Binary{Op: op, L: x.LHS, R: x.RHS}
		bin.SetPos(x.Pos())
		rhs = bin
	}
	if err := b.assignTo(decorated, suffix, rhs); err != nil {
		return "", "", err
	}
	return decorated, kindFromSuffix(suffix), nil
}
