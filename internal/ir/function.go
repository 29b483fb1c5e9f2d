package ir

// Param is one formal parameter of a Function: its undecorated C name
// (its slot is `_name@F`) + IR type suffix ("i32", "f64", "obj").
type Param struct {
	Name string
	Type string
}

// Function is the IR form of one C function (spec.md §3).
type Function struct {
	Name       string
	ResultType string // "", "i32", "f64", or "obj"
	Params     []Param
	LocalVars  map[string]string // decorated name -> IR type
	Instructions []*Quadruple
	Attributes   map[string]bool
}

// NewFunction allocates an empty Function ready for the lowering pass to
// populate.
func NewFunction(name string) *Function {
	return &Function{
		Name:       name,
		LocalVars:  make(map[string]string),
		Attributes: make(map[string]bool),
	}
}

// Push appends a quadruple to this function's instruction stream.
func (f *Function) Push(q *Quadruple) {
	f.Instructions = append(f.Instructions, q)
}

// Peek returns the most recently pushed instruction, or nil if none.
func (f *Function) Peek() *Quadruple {
	if len(f.Instructions) == 0 {
		return nil
	}
	return f.Instructions[len(f.Instructions)-1]
}

// Live returns the non-eliminated instructions in order; call this after any
// pass that marks quadruples Eliminated instead of slicing them out
// in-place.
func (f *Function) Live() []*Quadruple {
	result := make([]*Quadruple, 0, len(f.Instructions))
	for _, q := range f.Instructions {
		if !q.Eliminated {
			result = append(result, q)
		}
	}
	return result
}

// Compact drops eliminated instructions permanently.
func (f *Function) Compact() {
	f.Instructions = f.Live()
}
