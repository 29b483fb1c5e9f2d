// Package lexer tokenizes the GNU C subset spec.md names, grounded on the
// teacher's hand-rolled internal/parser/scanner.go approach (a Scanner
// struct advancing byte-by-byte over the source, emitting Tokens with
// Position info) rather than its participle-based grammar/lexer.go: GNU
// asm/attribute syntax is easier to get right with explicit control flow
// than with declarative lexer rules.
package lexer

import "github.com/UMRnInside/MlogEvo/internal/ast"

// TokenType enumerates every lexical category this dialect needs.
type TokenType int

const (
	EOF TokenType = iota
	IDENTIFIER
	NUMBER
	HEX_NUMBER
	FLOAT_NUMBER
	STRING

	// keywords
	KW_INT
	KW_LONG
	KW_SHORT
	KW_CHAR
	KW_BOOL
	KW_FLOAT
	KW_DOUBLE
	KW_VOID
	KW_STRUCT
	KW_IF
	KW_ELSE
	KW_WHILE
	KW_DO
	KW_FOR
	KW_BREAK
	KW_CONTINUE
	KW_RETURN
	KW_GOTO
	KW_ASM
	KW_VOLATILE
	KW_ATTRIBUTE

	// punctuation & operators
	LEFT_PAREN
	RIGHT_PAREN
	LEFT_BRACE
	RIGHT_BRACE
	LEFT_BRACKET
	RIGHT_BRACKET
	SEMICOLON
	COLON
	COMMA
	DOT

	PLUS
	MINUS
	STAR
	SLASH
	PERCENT
	AMP
	PIPE
	CARET
	TILDE
	BANG

	PLUS_PLUS
	MINUS_MINUS
	SHL
	SHR

	ASSIGN
	PLUS_ASSIGN
	MINUS_ASSIGN
	STAR_ASSIGN
	SLASH_ASSIGN
	PERCENT_ASSIGN
	AMP_ASSIGN
	PIPE_ASSIGN
	CARET_ASSIGN
	SHL_ASSIGN
	SHR_ASSIGN

	EQ_EQ
	BANG_EQ
	LESS
	LESS_EQ
	GREATER
	GREATER_EQ
	AND_AND
	OR_OR
)

var keywords = map[string]TokenType{
	"int": KW_INT, "long": KW_LONG, "short": KW_SHORT, "char": KW_CHAR,
	"bool": KW_BOOL, "_Bool": KW_BOOL, "float": KW_FLOAT, "double": KW_DOUBLE,
	"void": KW_VOID, "struct": KW_STRUCT,
	"if": KW_IF, "else": KW_ELSE, "while": KW_WHILE, "do": KW_DO, "for": KW_FOR,
	"break": KW_BREAK, "continue": KW_CONTINUE, "return": KW_RETURN, "goto": KW_GOTO,
	"asm": KW_ASM, "__asm__": KW_ASM, "__asm": KW_ASM,
	"volatile": KW_VOLATILE, "__volatile__": KW_VOLATILE, "__volatile": KW_VOLATILE,
	"__attribute__": KW_ATTRIBUTE, "__attribute": KW_ATTRIBUTE,
}

// Token is one lexical unit with its source position.
type Token struct {
	Type   TokenType
	Lexeme string
	Pos    ast.Position
}
