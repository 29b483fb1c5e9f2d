// Package parser is a recursive-descent statement parser plus a
// precedence-climbing expression parser, consuming internal/lexer's token
// stream and producing internal/ast trees. It mirrors the teacher's
// hand-rolled descent style (internal/parser/parser_function.go,
// parser_statement.go) rather than its participle-based declarative
// grammar: GNU asm/attribute syntax and C's cast-vs-paren ambiguity are
// easier to get right with explicit lookahead than with a generated
// grammar. The narrow exception is the asm operand-constraint list, which
// is genuinely small and self-contained enough for participle — see
// internal/asmgrammar and asm.go in this package.
package parser

import (
	"github.com/UMRnInside/MlogEvo/internal/ast"
	"github.com/UMRnInside/MlogEvo/internal/errors"
	"github.com/UMRnInside/MlogEvo/internal/lexer"
)

// Parser holds the token stream and cursor for one translation unit.
type Parser struct {
	filename string
	tokens   []lexer.Token
	pos      int
}

// New builds a Parser over an already-scanned token stream.
func New(filename string, tokens []lexer.Token) *Parser {
	return &Parser{filename: filename, tokens: tokens}
}

// Parse scans source with internal/lexer and parses the resulting tokens
// into a Program. It is the usual entry point for callers that only have
// source text.
func Parse(filename, source string) (*ast.Program, error) {
	sc := lexer.NewScanner(filename, source)
	tokens := sc.ScanTokens()
	if errs := sc.Errors(); len(errs) > 0 {
		first := errs[0]
		return nil, errors.New(errors.KindParse, first.Pos, "%s", first.Message)
	}
	return New(filename, tokens).ParseProgram()
}

func (p *Parser) peek() lexer.Token { return p.tokens[p.pos] }

func (p *Parser) peekAt(n int) lexer.Token {
	i := p.pos + n
	if i >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[i]
}

func (p *Parser) atEnd() bool { return p.peek().Type == lexer.EOF }

func (p *Parser) advance() lexer.Token {
	tok := p.tokens[p.pos]
	if !p.atEnd() {
		p.pos++
	}
	return tok
}

func (p *Parser) check(t lexer.TokenType) bool { return p.peek().Type == t }

func (p *Parser) match(t lexer.TokenType) bool {
	if p.check(t) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) expect(t lexer.TokenType, what string) (lexer.Token, error) {
	if p.check(t) {
		return p.advance(), nil
	}
	return lexer.Token{}, p.errorAt(p.peek().Pos, "expected %s, found %q", what, p.peek().Lexeme)
}

func (p *Parser) errorAt(pos ast.Position, format string, args ...interface{}) error {
	return errors.New(errors.KindParse, pos, format, args...)
}

func isTypeKeyword(t lexer.TokenType) bool {
	switch t {
	case lexer.KW_VOID, lexer.KW_BOOL, lexer.KW_CHAR, lexer.KW_SHORT, lexer.KW_INT,
		lexer.KW_LONG, lexer.KW_FLOAT, lexer.KW_DOUBLE, lexer.KW_STRUCT:
		return true
	}
	return false
}

func (p *Parser) atTypeStart() bool { return isTypeKeyword(p.peek().Type) }

// ParseProgram parses the whole token stream as one translation unit.
func (p *Parser) ParseProgram() (*ast.Program, error) {
	prog := &ast.Program{}
	if len(p.tokens) > 0 {
		prog.SetPos(p.tokens[0].Pos)
	}
	for !p.atEnd() {
		decls, err := p.parseExternalDecl()
		if err != nil {
			return nil, err
		}
		prog.Decls = append(prog.Decls, decls...)
	}
	return prog, nil
}
