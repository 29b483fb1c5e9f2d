package lower

import (
	"github.com/UMRnInside/MlogEvo/internal/ast"
	"github.com/UMRnInside/MlogEvo/internal/types"
)

var relops = map[string]bool{"<": true, "<=": true, ">": true, ">=": true, "==": true, "!=": true}

// branchIfFalse emits code that jumps to target when cond evaluates false,
// falling through when true. branchIfTrue is its mirror image. Together
// they implement short-circuit && / || / ! directly as branches — the
// "fast conditional jump compactor": a bare relational comparison used as
// a condition becomes one `if`/`ifnot` quadruple instead of a comparison
// quadruple followed by a zero-test.
func (b *builder) branchIfFalse(cond ast.Expr, target string) error {
	switch c := cond.(type) {
	case *ast.Paren:
		return b.branchIfFalse(c.X, target)
	case *ast.Unary:
		if c.Op == "!" {
			return b.branchIfTrue(c.X, target)
		}
	case *ast.Binary:
		switch c.Op {
		case "&&":
			if err := b.branchIfFalse(c.L, target); err != nil {
				return err
			}
			return b.branchIfFalse(c.R, target)
		case "||":
			skip := b.newLabel("orskip")
			if err := b.branchIfTrue(c.L, skip); err != nil {
				return err
			}
			if err := b.branchIfFalse(c.R, target); err != nil {
				return err
			}
			b.label(skip)
			return nil
		}
		if relops[c.Op] {
			src1, src2, tag, err := b.lowerComparands(c.L, c.R, c.Op)
			if err != nil {
				return err
			}
			b.fn.Push(newBranch("ifnot", src1, tag, src2, target))
			return nil
		}
	}
	val, _, err := b.lowerExpr(cond)
	if err != nil {
		return err
	}
	b.fn.Push(newBranch("ifnot", val, "!=", "0", target))
	return nil
}

func (b *builder) branchIfTrue(cond ast.Expr, target string) error {
	switch c := cond.(type) {
	case *ast.Paren:
		return b.branchIfTrue(c.X, target)
	case *ast.Unary:
		if c.Op == "!" {
			return b.branchIfFalse(c.X, target)
		}
	case *ast.Binary:
		switch c.Op {
		case "||":
			if err := b.branchIfTrue(c.L, target); err != nil {
				return err
			}
			return b.branchIfTrue(c.R, target)
		case "&&":
			skip := b.newLabel("andskip")
			if err := b.branchIfFalse(c.L, skip); err != nil {
				return err
			}
			if err := b.branchIfTrue(c.R, target); err != nil {
				return err
			}
			b.label(skip)
			return nil
		}
		if relops[c.Op] {
			src1, src2, tag, err := b.lowerComparands(c.L, c.R, c.Op)
			if err != nil {
				return err
			}
			b.fn.Push(newBranch("if", src1, tag, src2, target))
			return nil
		}
	}
	val, _, err := b.lowerExpr(cond)
	if err != nil {
		return err
	}
	b.fn.Push(newBranch("if", val, "!=", "0", target))
	return nil
}

// lowerComparands lowers both sides of a relational comparison used directly
// as a branch condition and returns the comparison's full instruction tag
// (e.g. "lt_i32") as the branch's relop — the form the fast conditional jump
// compactor leaves behind when it merges a comparison straight into the
// branch that tests it, rather than materializing the comparison's 0/1
// result in a temp first.
func (b *builder) lowerComparands(l, r ast.Expr, op string) (string, string, string, error) {
	lv, lk, err := b.lowerExpr(l)
	if err != nil {
		return "", "", "", err
	}
	rv, rk, err := b.lowerExpr(r)
	if err != nil {
		return "", "", "", err
	}
	suffix := "i32"
	if lk == types.KindF64 || rk == types.KindF64 {
		suffix = "f64"
	}
	lv = b.coerce(lv, kindSuffix(lk), suffix)
	rv = b.coerce(rv, kindSuffix(rk), suffix)
	return lv, rv, compareTag[op] + "_" + suffix, nil
}
