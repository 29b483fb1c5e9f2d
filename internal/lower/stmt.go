package lower

import (
	"github.com/UMRnInside/MlogEvo/internal/ast"
	"github.com/UMRnInside/MlogEvo/internal/errors"
	"github.com/UMRnInside/MlogEvo/internal/ir"
	"github.com/UMRnInside/MlogEvo/internal/types"
)

func (b *builder) lowerStmt(s ast.Stmt) error {
	if s == nil {
		return nil
	}
	switch st := s.(type) {
	case *ast.BlockStmt:
		for _, item := range st.Items {
			if err := b.lowerStmt(item); err != nil {
				return err
			}
		}
		return nil
	case *ast.DeclStmt:
		return b.lowerDecl(st)
	case *ast.ExprStmt:
		if st.X == nil {
			return nil
		}
		_, _, err := b.lowerExpr(st.X)
		return err
	case *ast.IfStmt:
		return b.lowerIf(st)
	case *ast.WhileStmt:
		return b.lowerWhile(st)
	case *ast.DoWhileStmt:
		return b.lowerDoWhile(st)
	case *ast.ForStmt:
		return b.lowerFor(st)
	case *ast.BreakStmt:
		return b.lowerBreak(st)
	case *ast.ContinueStmt:
		return b.lowerContinue(st)
	case *ast.ReturnStmt:
		return b.lowerReturn(st)
	case *ast.GotoStmt:
		b.fn.Push(ir.NewQuadruple("goto", st.Name, "", ""))
		return nil
	case *ast.LabelStmt:
		b.label(st.Name)
		return b.lowerStmt(st.Stmt)
	case *ast.AsmStmt:
		return b.lowerAsmStmt(st)
	default:
		return errors.New(errors.KindUnsupported, s.Pos(), "unsupported statement")
	}
}

func (b *builder) lowerDecl(d *ast.DeclStmt) error {
	suffix := kindSuffix(types.KindForType(d.Type))
	b.locals[d.Name] = suffix
	decorated := b.localName(d.Name)
	b.fn.Push(ir.NewQuadruple("decl_"+suffix, "", "", decorated))
	b.fn.LocalVars[decorated] = suffix
	if d.Init == nil {
		return nil
	}
	return b.assignTo(decorated, suffix, d.Init)
}

func (b *builder) lowerIf(s *ast.IfStmt) error {
	if s.Else == nil {
		end := b.newLabel("ifend")
		if err := b.branchIfFalse(s.Cond, end); err != nil {
			return err
		}
		if err := b.lowerStmt(s.Then); err != nil {
			return err
		}
		b.label(end)
		return nil
	}
	elseLbl := b.newLabel("else")
	end := b.newLabel("ifend")
	if err := b.branchIfFalse(s.Cond, elseLbl); err != nil {
		return err
	}
	if err := b.lowerStmt(s.Then); err != nil {
		return err
	}
	b.fn.Push(ir.NewQuadruple("goto", end, "", ""))
	b.label(elseLbl)
	if err := b.lowerStmt(s.Else); err != nil {
		return err
	}
	b.label(end)
	return nil
}

// lowerWhile, lowerDoWhile, and lowerFor all preserve the original
// compiler's break/continue quirk: break jumps to the loop's continue
// label, not its end label, so `break` inside a loop whose condition is
// still true re-enters the loop instead of exiting it. This is
// deliberately NOT fixed — spec.md's design notes call it out as
// behavior to preserve bit-for-bit.
func (b *builder) lowerWhile(s *ast.WhileStmt) error {
	start := b.newLabel("wstart")
	cont := b.newLabel("wcont")
	end := b.newLabel("wend")
	b.loops = append(b.loops, loopCtx{contLabel: cont, endLabel: end})
	defer b.popLoop()

	b.label(start)
	if err := b.branchIfFalse(s.Cond, end); err != nil {
		return err
	}
	if err := b.lowerStmt(s.Body); err != nil {
		return err
	}
	b.fn.Push(ir.NewQuadruple("goto", cont, "", ""))
	b.label(cont)
	b.fn.Push(ir.NewQuadruple("goto", start, "", ""))
	b.label(end)
	return nil
}

func (b *builder) lowerDoWhile(s *ast.DoWhileStmt) error {
	start := b.newLabel("dstart")
	cont := b.newLabel("dcont")
	end := b.newLabel("dend")
	b.loops = append(b.loops, loopCtx{contLabel: cont, endLabel: end})
	defer b.popLoop()

	b.label(start)
	if err := b.lowerStmt(s.Body); err != nil {
		return err
	}
	b.label(cont)
	if err := b.branchIfTrue(s.Cond, start); err != nil {
		return err
	}
	b.label(end)
	return nil
}

func (b *builder) lowerFor(s *ast.ForStmt) error {
	if err := b.lowerStmt(s.Init); err != nil {
		return err
	}
	start := b.newLabel("fstart")
	cont := b.newLabel("fcont")
	end := b.newLabel("fend")
	b.loops = append(b.loops, loopCtx{contLabel: cont, endLabel: end})
	defer b.popLoop()

	b.label(start)
	if s.Cond != nil {
		if err := b.branchIfFalse(s.Cond, end); err != nil {
			return err
		}
	}
	if err := b.lowerStmt(s.Body); err != nil {
		return err
	}
	b.label(cont)
	if s.Post != nil {
		if _, _, err := b.lowerExpr(s.Post); err != nil {
			return err
		}
	}
	b.fn.Push(ir.NewQuadruple("goto", start, "", ""))
	b.label(end)
	return nil
}

func (b *builder) popLoop() { b.loops = b.loops[:len(b.loops)-1] }

func (b *builder) lowerBreak(s *ast.BreakStmt) error {
	if len(b.loops) == 0 {
		return errors.New(errors.KindUnsupported, s.Pos(), "break outside a loop")
	}
	// Quirk: targets contLabel, not endLabel.
	b.fn.Push(ir.NewQuadruple("goto", b.loops[len(b.loops)-1].contLabel, "", ""))
	return nil
}

func (b *builder) lowerContinue(s *ast.ContinueStmt) error {
	if len(b.loops) == 0 {
		return errors.New(errors.KindUnsupported, s.Pos(), "continue outside a loop")
	}
	b.fn.Push(ir.NewQuadruple("goto", b.loops[len(b.loops)-1].contLabel, "", ""))
	return nil
}

func (b *builder) lowerReturn(s *ast.ReturnStmt) error {
	if s.X != nil {
		if err := b.assignTo("result@"+b.fn.Name, b.fn.ResultType, s.X); err != nil {
			return err
		}
	}
	b.fn.Push(ir.NewQuadruple("__return", b.fn.Name, "", ""))
	return nil
}
