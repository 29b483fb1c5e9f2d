// Package testvm is a small in-process mlog interpreter used only by this
// module's own tests, standing in for the external emulator spec.md §6's
// test harness expectation describes ("the harness runs the emitted mlog in
// an external emulator and compares variable values"). It implements set,
// op <fn>, jump and print, the instructions internal/emit's own templates
// produce; raw inline-asm lines (such as the sensor line a field access
// expands to) are not interpreted.
//
// Grounded on the original Python compiler's mlog_instructions.py template
// table (same op names: lessThanEq/greaterThanEq without the "ual" suffix,
// idiv truncating toward zero, xor-based not) and on arch_mlog_tests'
// MlogProcessor-based harness shape (assemble, run with a step limit, read
// a variable back by name) reimplemented as a plain Go struct instead of a
// Python class, since this module has no external emulator dependency to
// shell out to.
package testvm

import (
	"fmt"
	"strconv"
	"strings"
)

// VM is a minimal mlog processor: a flat program of already
// label-resolved instructions, a variable store defaulting every unknown
// name to 0, and @counter as the live instruction pointer.
type VM struct {
	Program []string
	vars    map[string]float64
	Output  []string
}

// New parses source (one mlog instruction per line, blank lines ignored)
// into a runnable VM.
func New(source string) *VM {
	vm := &VM{vars: make(map[string]float64)}
	for _, line := range strings.Split(source, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		vm.Program = append(vm.Program, line)
	}
	return vm
}

// Get returns the current value of a variable (0 if never written).
func (vm *VM) Get(name string) float64 { return vm.vars[name] }

// Run executes up to maxSteps instructions, mirroring run_with_limit's step
// cap. mlog processors loop their program forever (a `return` in main wraps
// @counter to 0), so Run has no halting condition of its own: it returns an
// error once the budget is spent. RunToReturn stops at main's return instead.
func (vm *VM) Run(maxSteps int) error {
	if len(vm.Program) == 0 {
		return nil
	}
	for step := 0; step < maxSteps; step++ {
		pc := int(vm.vars["@counter"])
		if pc < 0 || pc >= len(vm.Program) {
			pc = 0
			vm.vars["@counter"] = 0
		}
		before := vm.vars["@counter"]
		if err := vm.step(vm.Program[pc]); err != nil {
			return fmt.Errorf("line %d (%q): %w", pc, vm.Program[pc], err)
		}
		if vm.vars["@counter"] == before {
			vm.vars["@counter"] = before + 1
		}
	}
	return fmt.Errorf("exceeded step limit %d without halting", maxSteps)
}

// RunToReturn is Run, but stops as soon as main's own `set @counter
// retaddr@main` executes — the template __return/__funcend emits, which
// for main specifically always resolves to 0 (main is never called, so
// retaddr@main is never assigned) — instead of letting execution wrap back
// to line 0 and loop forever, which is how a finite test program actually
// terminates under this model.
func (vm *VM) RunToReturn(maxSteps int) error {
	if len(vm.Program) == 0 {
		return nil
	}
	for step := 0; step < maxSteps; step++ {
		pc := int(vm.vars["@counter"])
		if pc < 0 || pc >= len(vm.Program) {
			pc = 0
			vm.vars["@counter"] = 0
		}
		line := vm.Program[pc]
		if strings.HasPrefix(line, "set @counter retaddr@main") {
			return nil
		}
		before := vm.vars["@counter"]
		if err := vm.step(line); err != nil {
			return fmt.Errorf("line %d (%q): %w", pc, line, err)
		}
		if vm.vars["@counter"] == before {
			vm.vars["@counter"] = before + 1
		}
	}
	return fmt.Errorf("exceeded step limit %d without returning", maxSteps)
}

func (vm *VM) step(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	switch fields[0] {
	case "set":
		if len(fields) != 3 {
			return fmt.Errorf("malformed set")
		}
		vm.vars[fields[1]] = vm.resolve(fields[2])
	case "print":
		if len(fields) != 2 {
			return fmt.Errorf("malformed print")
		}
		vm.Output = append(vm.Output, strconv.FormatFloat(vm.resolve(fields[1]), 'g', -1, 64))
	case "op":
		return vm.op(fields)
	case "jump":
		return vm.jump(fields)
	default:
		return fmt.Errorf("unsupported instruction %q", fields[0])
	}
	return nil
}

func (vm *VM) op(fields []string) error {
	if len(fields) != 5 {
		return fmt.Errorf("malformed op")
	}
	kind, dest, a, b := fields[1], fields[2], vm.resolve(fields[3]), vm.resolve(fields[4])
	var result float64
	switch kind {
	case "add":
		result = a + b
	case "sub":
		result = a - b
	case "mul":
		result = a * b
	case "div":
		result = a / b
	case "idiv":
		result = float64(int64(a) / int64(b))
	case "mod":
		result = float64(int64(a) % int64(b))
	case "and":
		result = float64(int64(a) & int64(b))
	case "or":
		result = float64(int64(a) | int64(b))
	case "xor":
		result = float64(int64(a) ^ int64(b))
	case "shl":
		result = float64(int64(a) << uint(int64(b)))
	case "shr":
		result = float64(int64(a) >> uint(int64(b)))
	case "floor":
		result = float64(int64(a))
	case "ceil":
		result = float64(int64(a))
		if float64(result) < a {
			result++
		}
	case "lessThan":
		result = boolFloat(a < b)
	case "lessThanEq":
		result = boolFloat(a <= b)
	case "greaterThan":
		result = boolFloat(a > b)
	case "greaterThanEq":
		result = boolFloat(a >= b)
	case "equal":
		result = boolFloat(a == b)
	case "notEqual":
		result = boolFloat(a != b)
	default:
		return fmt.Errorf("unsupported op %q", kind)
	}
	vm.vars[dest] = result
	return nil
}

func (vm *VM) jump(fields []string) error {
	if len(fields) != 5 {
		return fmt.Errorf("malformed jump")
	}
	target, cond := fields[1], fields[2]
	targetLine, err := strconv.Atoi(target)
	if err != nil {
		return fmt.Errorf("unresolved jump target %q (labels must be resolved before running)", target)
	}
	a, b := vm.resolve(fields[3]), vm.resolve(fields[4])
	var take bool
	switch cond {
	case "always":
		take = true
	case "lessThan":
		take = a < b
	case "lessThanEq":
		take = a <= b
	case "greaterThan":
		take = a > b
	case "greaterThanEq":
		take = a >= b
	case "equal":
		take = a == b
	case "notEqual":
		take = a != b
	default:
		return fmt.Errorf("unsupported jump condition %q", cond)
	}
	if take {
		vm.vars["@counter"] = float64(targetLine)
	}
	return nil
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// resolve reads an operand: a bare numeric literal (decimal, hex, or
// float) evaluates to itself; anything else is a variable lookup
// (defaulting to 0, mlog's own convention for a never-written name).
// @counter reads as the index of the next instruction, as in mlog.
func (vm *VM) resolve(token string) float64 {
	if token == "@counter" {
		return vm.vars["@counter"] + 1
	}
	if strings.HasPrefix(token, "0x") || strings.HasPrefix(token, "0X") {
		if n, err := strconv.ParseInt(token[2:], 16, 64); err == nil {
			return float64(n)
		}
	}
	if n, err := strconv.ParseFloat(token, 64); err == nil {
		return n
	}
	return vm.vars[token]
}
