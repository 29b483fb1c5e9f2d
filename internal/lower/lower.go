// Package lower is the frontend: it walks internal/ast trees and emits
// internal/ir quadruples, grounded on the teacher's stateful Builder
// pattern (internal/ir/builder.go pushes instructions onto a running
// function via instance fields rather than threading an explicit
// accumulator through every call) and on the original Python compiler's
// ir_generator.py, whose variable-naming discipline, temp allocation, and
// break/continue label quirk this package reproduces.
package lower

import (
	"fmt"

	"github.com/UMRnInside/MlogEvo/internal/ast"
	"github.com/UMRnInside/MlogEvo/internal/errors"
	"github.com/UMRnInside/MlogEvo/internal/ir"
	"github.com/UMRnInside/MlogEvo/internal/types"
	"github.com/iancoleman/strcase"
)

// Lower translates a whole translation unit into an ir.Module. Function
// signatures are registered before any body is lowered, so mutually
// recursive calls resolve regardless of declaration order.
func Lower(prog *ast.Program) (*ir.Module, error) {
	mod := ir.NewModule()

	for _, decl := range prog.Decls {
		switch d := decl.(type) {
		case *ast.StructDecl:
			for _, f := range d.Fields {
				mod.SensorFields["@"+strcase.ToKebab(f.Name)] = f.Type
			}
		case *ast.FuncDecl:
			fn := ir.NewFunction(d.Name)
			fn.ResultType = resultSuffix(d.ReturnType)
			for _, p := range d.Params {
				fn.Params = append(fn.Params, ir.Param{Name: p.Name, Type: kindSuffix(types.KindForType(p.Type))})
			}
			for _, a := range d.Attributes {
				fn.Attributes[a.Name] = true
			}
			mod.Functions = append(mod.Functions, fn)
		}
	}

	for _, decl := range prog.Decls {
		switch d := decl.(type) {
		case *ast.GlobalVarDecl:
			gv, err := lowerGlobal(d)
			if err != nil {
				return nil, err
			}
			mod.Globals = append(mod.Globals, gv)
		case *ast.FuncDecl:
			if d.Body == nil {
				continue
			}
			fn := mod.FindFunction(d.Name)
			if err := lowerFuncBody(mod, fn, d); err != nil {
				return nil, err
			}
		}
	}
	return mod, nil
}

func lowerGlobal(d *ast.GlobalVarDecl) (*ir.GlobalVar, error) {
	gv := &ir.GlobalVar{Name: d.Name, Type: d.Type}
	if d.Init == nil {
		return gv, nil
	}
	lit, ok := literalText(d.Init)
	if !ok {
		return nil, errors.New(errors.KindUnsupported, d.Pos(), "global initializer for %q must be a constant", d.Name)
	}
	suffix := kindSuffix(types.KindForType(d.Type))
	gv.Init = ir.NewQuadruple("set_"+suffix, lit, "", d.Name)
	return gv, nil
}

func literalText(e ast.Expr) (string, bool) {
	switch v := e.(type) {
	case *ast.IntLit:
		return v.Text, true
	case *ast.FloatLit:
		return v.Text, true
	case *ast.Unary:
		if v.Op == "-" {
			if t, ok := literalText(v.X); ok {
				return "-" + t, true
			}
		}
	}
	return "", false
}

// kindSuffix maps an ir Kind to the instruction-tag suffix that names it.
func kindSuffix(k types.Kind) string {
	switch k {
	case types.KindF64:
		return "f64"
	case types.KindObj:
		return "obj"
	default:
		return "i32"
	}
}

func resultSuffix(cType string) string {
	if cType == "void" {
		return ""
	}
	return kindSuffix(types.KindForType(cType))
}

func kindFromSuffix(suffix string) types.Kind {
	switch suffix {
	case "f64":
		return types.KindF64
	case "obj":
		return types.KindObj
	default:
		return types.KindI32
	}
}

// newBranch builds an "if"/"ifnot" quadruple with its Relop set.
func newBranch(instr, src1, relop, src2, dest string) *ir.Quadruple {
	q := ir.NewQuadruple(instr, src1, src2, dest)
	q.Relop = relop
	return q
}

// loopCtx records the labels a nested break/continue statement jumps to.
type loopCtx struct {
	contLabel string
	endLabel  string
}

// builder carries one function's lowering state: symbol table, counters,
// and the loop-label stack break/continue consult.
type builder struct {
	mod    *ir.Module
	fn     *ir.Function
	locals map[string]string // C name -> IR type suffix
	tempN  int
	labelN int
	loops  []loopCtx
}

func lowerFuncBody(mod *ir.Module, fn *ir.Function, decl *ast.FuncDecl) error {
	b := &builder{mod: mod, fn: fn, locals: make(map[string]string)}

	beginPos := decl.Pos()
	resultSlot := "result@" + fn.Name
	b.fn.Push(ir.NewQuadruple("__funcbegin", fn.Name, "", resultSlot))
	if fn.ResultType != "" {
		b.fn.Push(ir.NewQuadruple("decl_"+fn.ResultType, "", "", resultSlot))
		fn.LocalVars[resultSlot] = fn.ResultType
	}

	for _, p := range decl.Params {
		suffix := kindSuffix(types.KindForType(p.Type))
		b.locals[p.Name] = suffix
		decorated := b.localName(p.Name)
		b.fn.Push(ir.NewQuadruple("decl_"+suffix, "", "", decorated))
		fn.LocalVars[decorated] = suffix
	}

	if err := b.lowerStmt(decl.Body); err != nil {
		return errors.New(errors.KindUnsupported, beginPos, "%v", err)
	}

	b.fn.Push(ir.NewQuadruple("__funcend", fn.Name, "", ""))
	return nil
}

func (b *builder) newTemp(suffix string) string {
	b.tempN++
	name := fmt.Sprintf("___vtmp_%d@%s", b.tempN, b.fn.Name)
	b.fn.Push(ir.NewQuadruple("decl_"+suffix, "", "", name))
	b.fn.LocalVars[name] = suffix
	return name
}

func (b *builder) newLabel(hint string) string {
	b.labelN++
	return fmt.Sprintf("__L%s_%d@%s", hint, b.labelN, b.fn.Name)
}

func (b *builder) label(name string) {
	b.fn.Push(ir.NewQuadruple("label", name, "", ""))
}

// localName decorates a declared local/parameter name per the naming
// discipline (spec.md §3): `_name@F`.
func (b *builder) localName(name string) string {
	return "_" + name + "@" + b.fn.Name
}

// resolve looks up an identifier: a function-local first, then a global.
func (b *builder) resolve(name string, pos ast.Position) (string, string, error) {
	if suffix, ok := b.locals[name]; ok {
		return b.localName(name), suffix, nil
	}
	for _, g := range b.mod.Globals {
		if g.Name == name {
			return g.Name, kindSuffix(types.KindForType(g.Type)), nil
		}
	}
	return "", "", errors.New(errors.KindUndeclared, pos, "undeclared identifier %q", name)
}
