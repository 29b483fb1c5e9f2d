// Package errors implements the compiler's structured diagnostics: a
// CompilerError carrying a source Position, plus two renderers — a minimal
// "coord: error: reason" form for the required CLI contract (spec.md §6/§7),
// and a colorized multi-line form for interactive use, grounded on the
// teacher's internal/errors package.
package errors

import (
	"fmt"

	"github.com/UMRnInside/MlogEvo/internal/ast"
)

// Kind distinguishes the error categories spec.md §7 names. It is
// informational only; every Kind surfaces the same way on exit.
type Kind string

const (
	KindUndeclared        Kind = "undeclared-identifier"
	KindUnsupported       Kind = "unsupported-construct"
	KindOperatorType       Kind = "operator-type"
	KindUnknownTag         Kind = "unknown-ir-tag"
	KindCycle              Kind = "cycle-detected"
	KindParse              Kind = "parse-error"
)

// CompilerError is a structured error with an optional source position.
// Lowering, parsing, and instruction selection all raise this type; nothing
// in the compiler panics on user input.
type CompilerError struct {
	Kind     Kind
	Position ast.Position
	Message  string
	Notes    []string
}

func (e *CompilerError) Error() string {
	if e.Position.Line == 0 && e.Position.Filename == "" {
		return fmt.Sprintf("error: %s", e.Message)
	}
	return fmt.Sprintf("%s: error: %s", e.Position, e.Message)
}

// New builds a CompilerError at a position.
func New(kind Kind, pos ast.Position, format string, args ...interface{}) *CompilerError {
	return &CompilerError{Kind: kind, Position: pos, Message: fmt.Sprintf(format, args...)}
}

// WithNote appends a context note and returns the same error for chaining.
func (e *CompilerError) WithNote(note string) *CompilerError {
	e.Notes = append(e.Notes, note)
	return e
}
