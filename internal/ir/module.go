package ir

// GlobalVar is one file-scope variable declaration surviving into IR.
type GlobalVar struct {
	Name string
	Type string
	Init *Quadruple // nil, or a single "set"-shaped initializer quadruple
}

// Module is the whole translation unit's IR: global declarations plus every
// function, in source order. It is what internal/lower produces and
// internal/blocks, internal/inline, internal/optimize, and internal/emit
// all operate on.
type Module struct {
	Globals      []*GlobalVar
	SensorFields map[string]string // "@kebab-name" -> declared type, from struct MlogObject
	Functions    []*Function
}

// NewModule returns an empty Module ready for lowering to populate.
func NewModule() *Module {
	return &Module{SensorFields: make(map[string]string)}
}

// FindFunction looks up a function by name, or returns nil.
func (m *Module) FindFunction(name string) *Function {
	for _, f := range m.Functions {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// OrderedFunctions returns every function with a non-empty body in the
// instruction-stream order spec.md §5 guarantees: main first, then every
// other function in definition order, never reordered past that.
func (m *Module) OrderedFunctions() []*Function {
	ordered := make([]*Function, 0, len(m.Functions))
	if main := m.FindFunction("main"); main != nil && len(main.Instructions) > 0 {
		ordered = append(ordered, main)
	}
	for _, fn := range m.Functions {
		if fn.Name == "main" || len(fn.Instructions) == 0 {
			continue
		}
		ordered = append(ordered, fn)
	}
	return ordered
}
