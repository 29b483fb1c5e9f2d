package parser

import (
	"strings"

	"github.com/UMRnInside/MlogEvo/internal/asmgrammar"
	"github.com/UMRnInside/MlogEvo/internal/ast"
	"github.com/UMRnInside/MlogEvo/internal/errors"
	"github.com/UMRnInside/MlogEvo/internal/lexer"
)

// parseAsmStmt parses a GNU extended asm statement:
//
//	asm ["volatile"] ( "template" : outputs : inputs : clobbers );
//
// The template is this dialect's only multi-line string: adjacent string
// literals concatenate, and embedded `\n` (kept as the two literal
// characters by the scanner, which does not decode escapes) splits it into
// per-line template pieces the way internal/emit's asm expander expects.
// The operand lists route through internal/asmgrammar; clobbers are a
// plain comma-separated string list, trivial enough to parse inline.
func (p *Parser) parseAsmStmt() (*ast.AsmStmt, error) {
	pos := p.peek().Pos
	if _, err := p.expect(lexer.KW_ASM, "'asm'"); err != nil {
		return nil, err
	}
	volatile := p.match(lexer.KW_VOLATILE)
	if _, err := p.expect(lexer.LEFT_PAREN, "'(' after asm"); err != nil {
		return nil, err
	}

	var rawTemplate strings.Builder
	for p.check(lexer.STRING) {
		rawTemplate.WriteString(p.advance().Lexeme)
	}
	if rawTemplate.Len() == 0 {
		return nil, p.errorAt(p.peek().Pos, "expected an asm template string")
	}
	template := splitAsmTemplate(rawTemplate.String())

	var outputs, inputs []ast.AsmOperand
	var clobbers []string
	if p.match(lexer.COLON) {
		ops, err := p.parseAsmOperandSpan()
		if err != nil {
			return nil, err
		}
		outputs = ops
		if p.match(lexer.COLON) {
			ops, err := p.parseAsmOperandSpan()
			if err != nil {
				return nil, err
			}
			inputs = ops
			if p.match(lexer.COLON) {
				cl, err := p.parseClobberList()
				if err != nil {
					return nil, err
				}
				clobbers = cl
			}
		}
	}

	if _, err := p.expect(lexer.RIGHT_PAREN, "')' to close asm statement"); err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.SEMICOLON, "';' after asm statement"); err != nil {
		return nil, err
	}

	stmt := &ast.AsmStmt{Volatile: volatile, Template: template, Outputs: outputs, Inputs: inputs, Clobbers: clobbers}
	stmt.SetPos(pos)
	return stmt, nil
}

func splitAsmTemplate(raw string) []string {
	lines := strings.Split(raw, `\n`)
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimPrefix(line, `\t`)
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}

// parseAsmOperandSpan reconstructs the raw text of one operand list (the
// tokens between two colons, or between a colon and the closing paren) and
// hands it to internal/asmgrammar, which actually parses it.
func (p *Parser) parseAsmOperandSpan() ([]ast.AsmOperand, error) {
	var parts []string
	depth := 0
	for {
		if p.atEnd() {
			return nil, p.errorAt(p.peek().Pos, "unterminated asm operand list")
		}
		tt := p.peek().Type
		if depth == 0 && (tt == lexer.COLON || tt == lexer.RIGHT_PAREN) {
			break
		}
		tok := p.advance()
		switch tok.Type {
		case lexer.LEFT_PAREN:
			depth++
		case lexer.RIGHT_PAREN:
			depth--
		}
		if tok.Type == lexer.STRING {
			parts = append(parts, `"`+tok.Lexeme+`"`)
		} else {
			parts = append(parts, tok.Lexeme)
		}
	}
	text := strings.Join(parts, " ")
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	list, err := asmgrammar.ParseOperands(text)
	if err != nil {
		return nil, errors.New(errors.KindParse, p.peek().Pos, "malformed asm operand list: %v", err)
	}
	operands := make([]ast.AsmOperand, 0, len(list.Operands))
	for _, op := range list.Operands {
		var expr ast.Expr
		if op.Field != "" {
			ident := &ast.Ident{Name: op.Name}
			fa := &ast.FieldAccess{X: ident, Field: op.Field}
			expr = fa
		} else {
			expr = &ast.Ident{Name: op.Name}
		}
		operands = append(operands, ast.AsmOperand{Constraint: op.ConstraintText(), Expr: expr})
	}
	return operands, nil
}

func (p *Parser) parseClobberList() ([]string, error) {
	if p.check(lexer.RIGHT_PAREN) {
		return nil, nil
	}
	var clobbers []string
	for {
		tok, err := p.expect(lexer.STRING, "clobber string")
		if err != nil {
			return nil, err
		}
		clobbers = append(clobbers, tok.Lexeme)
		if !p.match(lexer.COMMA) {
			break
		}
	}
	return clobbers, nil
}
