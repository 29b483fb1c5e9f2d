// Package asmgrammar parses the operand-constraint lists of GNU extended
// inline asm statements: comma-separated `"constraint"(operand)` entries,
// where operand is a variable name optionally followed by a sensor-field
// suffix (`obj.field`). It is deliberately narrow — this dialect's asm
// operands are never arbitrary C expressions, only lvalues/rvalues the
// frontend can feed straight into a quadruple slot — so a small
// non-recursive participle grammar covers it, grounded on the teacher's
// grammar/lexer.go + grammar/parser.go (participle.MustStateful lexer,
// participle.Build[T] parser, struct-tag grammar).
package asmgrammar

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var asmLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "String", Pattern: `"(\\.|[^"])*"`},
	{Name: "Ident", Pattern: `[A-Za-z_@][A-Za-z0-9_@]*`},
	{Name: "Punct", Pattern: `[(),.]`},
	{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
})

// Operand is one `"constraint"(name)` or `"constraint"(name.field)` entry.
type Operand struct {
	Constraint string `@String`
	Name       string `"(" @Ident`
	Field      string `( "." @Ident )? ")"`
}

// OperandList is a comma-separated sequence of Operands, possibly empty.
type OperandList struct {
	Operands []*Operand `( @@ ( "," @@ )* )?`
}

// ConstraintText strips the surrounding quotes the lexer captured verbatim.
func (o *Operand) ConstraintText() string {
	if len(o.Constraint) >= 2 {
		return o.Constraint[1 : len(o.Constraint)-1]
	}
	return o.Constraint
}

var operandListParser = participle.MustBuild[OperandList](
	participle.Lexer(asmLexer),
	participle.Elide("Whitespace"),
	participle.UseLookahead(2),
)

// ParseOperands parses one side (outputs or inputs) of an asm operand-list.
// An empty or blank string yields an empty, non-nil OperandList.
func ParseOperands(text string) (*OperandList, error) {
	return operandListParser.ParseString("", text)
}
