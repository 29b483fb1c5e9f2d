// Package optimize implements the optimization pass registry/driver
// (spec.md §4.4) and the passes themselves (§4.5 LCSE, §4.6 the rest),
// grounded on the teacher's declarative pass-registration pipeline
// (internal/ir/optimizations.go: an ordered slice of named, ranked passes
// the driver walks) and on the original Python compiler's
// register_optimizer decorator, which this registry mirrors with static
// Go registration instead of a decorator.
package optimize

import "github.com/UMRnInside/MlogEvo/internal/ir"

// Scope is the granularity a Pass operates over.
type Scope string

const (
	ScopeFunction   Scope = "function"
	ScopeBasicBlock Scope = "basic_block"
)

// Context carries whole-module information a block-scope pass needs but
// can't recover from a single basic block in isolation — currently just
// the precomputed variable_types table spec.md §4.5 uses to type an
// alias-filler `set_t` it has to synthesize.
type Context struct {
	VariableTypes map[string]string
}

// Pass is one optimization, self-describing enough for the CLI's -f/-O
// flags and -print-basic-blocks diagnostics to enumerate without special
// cases.
type Pass struct {
	Name             string
	Scope            Scope
	MachineDependent bool
	Rank             int // lower runs first
	MinLevel         int // smallest -O level this pass is on by default at
	RunFunction      func(fn *ir.Function) bool
	RunBlock         func(blk *ir.BasicBlock, ctx *Context) (bool, error)
}

var registry []*Pass

// Register adds a pass to the global registry. Called from each pass
// file's init().
func Register(p *Pass) { registry = append(registry, p) }

// All returns every registered pass, in registration order (the driver
// sorts by Rank itself; callers enumerating for -f flag validation don't
// need the sort).
func All() []*Pass {
	out := make([]*Pass, len(registry))
	copy(out, registry)
	return out
}

// Find looks up a pass by name.
func Find(name string) *Pass {
	for _, p := range registry {
		if p.Name == name {
			return p
		}
	}
	return nil
}
