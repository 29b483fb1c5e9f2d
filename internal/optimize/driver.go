package optimize

import (
	"sort"

	"github.com/UMRnInside/MlogEvo/internal/blocks"
	"github.com/UMRnInside/MlogEvo/internal/ir"
	"github.com/UMRnInside/MlogEvo/internal/types"
)

// Config selects which passes run: Level is the -O level (0-3); Flags
// holds explicit -f name / -f no-name overrides, keyed by pass name.
type Config struct {
	Level int
	Flags map[string]bool
}

// Enabled reports whether p runs under cfg: an explicit -f flag always
// wins, otherwise the pass's MinLevel against cfg.Level decides.
func (cfg Config) Enabled(p *Pass) bool {
	if v, ok := cfg.Flags[p.Name]; ok {
		return v
	}
	return cfg.Level >= p.MinLevel
}

// Run applies every enabled pass, in Rank order, to every function in mod.
// Block-scope passes are run over each of the function's basic blocks in
// turn and the result is flattened back; function-scope passes see the
// whole instruction stream at once. The driver loops over the enabled
// pass list to a fixed point (bounded by the number of passes squared, so
// a pass that keeps reporting progress cannot hang the compiler) since
// later passes can re-expose opportunities earlier passes already walked
// past (e.g. removing a dead store can make a label unused).
func Run(mod *ir.Module, cfg Config) error {
	ordered := All()
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Rank < ordered[j].Rank })

	ctx := &Context{VariableTypes: variableTypes(mod)}

	for _, fn := range mod.Functions {
		maxRounds := len(ordered)*len(ordered) + 1
		for round := 0; round < maxRounds; round++ {
			changed := false
			for _, p := range ordered {
				if !cfg.Enabled(p) {
					continue
				}
				didChange, err := runPass(fn, p, ctx)
				if err != nil {
					return err
				}
				if didChange {
					changed = true
				}
			}
			if !changed {
				break
			}
		}
		fn.Compact()
	}
	return nil
}

func runPass(fn *ir.Function, p *Pass, ctx *Context) (bool, error) {
	switch p.Scope {
	case ScopeFunction:
		if p.RunFunction == nil {
			return false, nil
		}
		return p.RunFunction(fn), nil
	case ScopeBasicBlock:
		if p.RunBlock == nil {
			return false, nil
		}
		bs := blocks.Build(fn)
		changed := false
		for _, b := range bs {
			didChange, err := p.RunBlock(b, ctx)
			if err != nil {
				return false, err
			}
			if didChange {
				changed = true
			}
		}
		if changed {
			fn.Instructions = blocks.Flatten(bs)
		}
		return changed, nil
	default:
		return false, nil
	}
}

// variableTypes builds spec.md §4.5's variable_types table: every global,
// sensor field, and local/param/result slot this module declares, mapped to
// its IR-suffix type string, so a block-scope pass (LCSE's alias-filler
// emission) can type a `set_t` it needs to synthesize without re-deriving
// a type from instruction tag suffixes.
func variableTypes(mod *ir.Module) map[string]string {
	out := make(map[string]string)
	for _, g := range mod.Globals {
		out[g.Name] = string(types.KindForType(g.Type))
	}
	for name, cType := range mod.SensorFields {
		out[name] = string(types.KindForType(cType))
	}
	for _, fn := range mod.Functions {
		for name, typ := range fn.LocalVars {
			out[name] = typ
		}
	}
	return out
}
