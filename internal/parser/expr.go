package parser

import (
	"github.com/UMRnInside/MlogEvo/internal/ast"
	"github.com/UMRnInside/MlogEvo/internal/lexer"
)

// parseExpr parses a full expression, including assignment.
func (p *Parser) parseExpr() (ast.Expr, error) { return p.parseAssignment() }

var compoundAssignOps = map[lexer.TokenType]string{
	lexer.ASSIGN:         "=",
	lexer.PLUS_ASSIGN:    "+=",
	lexer.MINUS_ASSIGN:   "-=",
	lexer.STAR_ASSIGN:    "*=",
	lexer.SLASH_ASSIGN:   "/=",
	lexer.PERCENT_ASSIGN: "%=",
	lexer.AMP_ASSIGN:     "&=",
	lexer.PIPE_ASSIGN:    "|=",
	lexer.CARET_ASSIGN:   "^=",
	lexer.SHL_ASSIGN:     "<<=",
	lexer.SHR_ASSIGN:     ">>=",
}

func (p *Parser) parseAssignment() (ast.Expr, error) {
	lhs, err := p.parseLogicalOr()
	if err != nil {
		return nil, err
	}
	if op, ok := compoundAssignOps[p.peek().Type]; ok {
		pos := p.peek().Pos
		p.advance()
		rhs, err := p.parseAssignment()
		if err != nil {
			return nil, err
		}
		assign := &ast.Assign{Op: op, LHS: lhs, RHS: rhs}
		assign.SetPos(pos)
		return assign, nil
	}
	return lhs, nil
}

// binaryLevel parses one left-associative binary precedence level, given
// the next-tighter level to recurse into and the token-to-operator table
// this level accepts.
func (p *Parser) binaryLevel(next func() (ast.Expr, error), ops map[lexer.TokenType]string) (ast.Expr, error) {
	left, err := next()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := ops[p.peek().Type]
		if !ok {
			break
		}
		pos := p.peek().Pos
		p.advance()
		right, err := next()
		if err != nil {
			return nil, err
		}
		bin := &ast.Binary{Op: op, L: left, R: right}
		bin.SetPos(pos)
		left = bin
	}
	return left, nil
}

func (p *Parser) parseLogicalOr() (ast.Expr, error) {
	return p.binaryLevel(p.parseLogicalAnd, map[lexer.TokenType]string{lexer.OR_OR: "||"})
}

func (p *Parser) parseLogicalAnd() (ast.Expr, error) {
	return p.binaryLevel(p.parseBitOr, map[lexer.TokenType]string{lexer.AND_AND: "&&"})
}

func (p *Parser) parseBitOr() (ast.Expr, error) {
	return p.binaryLevel(p.parseBitXor, map[lexer.TokenType]string{lexer.PIPE: "|"})
}

func (p *Parser) parseBitXor() (ast.Expr, error) {
	return p.binaryLevel(p.parseBitAnd, map[lexer.TokenType]string{lexer.CARET: "^"})
}

func (p *Parser) parseBitAnd() (ast.Expr, error) {
	return p.binaryLevel(p.parseEquality, map[lexer.TokenType]string{lexer.AMP: "&"})
}

func (p *Parser) parseEquality() (ast.Expr, error) {
	return p.binaryLevel(p.parseRelational, map[lexer.TokenType]string{
		lexer.EQ_EQ: "==", lexer.BANG_EQ: "!=",
	})
}

func (p *Parser) parseRelational() (ast.Expr, error) {
	return p.binaryLevel(p.parseShift, map[lexer.TokenType]string{
		lexer.LESS: "<", lexer.LESS_EQ: "<=", lexer.GREATER: ">", lexer.GREATER_EQ: ">=",
	})
}

func (p *Parser) parseShift() (ast.Expr, error) {
	return p.binaryLevel(p.parseAdditive, map[lexer.TokenType]string{lexer.SHL: "<<", lexer.SHR: ">>"})
}

func (p *Parser) parseAdditive() (ast.Expr, error) {
	return p.binaryLevel(p.parseMultiplicative, map[lexer.TokenType]string{lexer.PLUS: "+", lexer.MINUS: "-"})
}

func (p *Parser) parseMultiplicative() (ast.Expr, error) {
	return p.binaryLevel(p.parseUnary, map[lexer.TokenType]string{
		lexer.STAR: "*", lexer.SLASH: "/", lexer.PERCENT: "%",
	})
}

func (p *Parser) parseUnary() (ast.Expr, error) {
	tok := p.peek()
	switch tok.Type {
	case lexer.MINUS, lexer.TILDE, lexer.BANG:
		p.advance()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		u := &ast.Unary{Op: tok.Lexeme, X: x}
		u.SetPos(tok.Pos)
		return u, nil
	case lexer.PLUS:
		p.advance()
		return p.parseUnary()
	case lexer.PLUS_PLUS, lexer.MINUS_MINUS:
		p.advance()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		op := "++"
		if tok.Type == lexer.MINUS_MINUS {
			op = "--"
		}
		u := &ast.PreIncDec{Op: op, X: x}
		u.SetPos(tok.Pos)
		return u, nil
	case lexer.LEFT_PAREN:
		if isTypeKeyword(p.peekAt(1).Type) {
			p.advance() // '('
			typ, err := p.parseTypeSpec()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(lexer.RIGHT_PAREN, "')' closing cast"); err != nil {
				return nil, err
			}
			x, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			c := &ast.Cast{Type: typ, X: x}
			c.SetPos(tok.Pos)
			return c, nil
		}
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() (ast.Expr, error) {
	x, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.peek().Type {
		case lexer.PLUS_PLUS:
			pos := p.advance().Pos
			n := &ast.PostIncDec{Op: "++", X: x}
			n.SetPos(pos)
			x = n
		case lexer.MINUS_MINUS:
			pos := p.advance().Pos
			n := &ast.PostIncDec{Op: "--", X: x}
			n.SetPos(pos)
			x = n
		case lexer.DOT:
			pos := p.advance().Pos
			field, err := p.expect(lexer.IDENTIFIER, "field name after '.'")
			if err != nil {
				return nil, err
			}
			n := &ast.FieldAccess{X: x, Field: field.Lexeme}
			n.SetPos(pos)
			x = n
		default:
			return x, nil
		}
	}
}

func (p *Parser) parsePrimary() (ast.Expr, error) {
	tok := p.peek()
	switch tok.Type {
	case lexer.NUMBER, lexer.HEX_NUMBER:
		p.advance()
		n := &ast.IntLit{Text: tok.Lexeme}
		n.SetPos(tok.Pos)
		return n, nil
	case lexer.FLOAT_NUMBER:
		p.advance()
		n := &ast.FloatLit{Text: tok.Lexeme}
		n.SetPos(tok.Pos)
		return n, nil
	case lexer.IDENTIFIER:
		p.advance()
		if p.check(lexer.LEFT_PAREN) {
			return p.parseCallRest(tok)
		}
		n := &ast.Ident{Name: tok.Lexeme}
		n.SetPos(tok.Pos)
		return n, nil
	case lexer.LEFT_PAREN:
		p.advance()
		x, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RIGHT_PAREN, "')' closing parenthesized expression"); err != nil {
			return nil, err
		}
		n := &ast.Paren{X: x}
		n.SetPos(tok.Pos)
		return n, nil
	default:
		return nil, p.errorAt(tok.Pos, "expected an expression, found %q", tok.Lexeme)
	}
}

func (p *Parser) parseCallRest(callee lexer.Token) (ast.Expr, error) {
	p.advance() // '('
	var args []ast.Expr
	if !p.check(lexer.RIGHT_PAREN) {
		for {
			arg, err := p.parseAssignment()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if !p.match(lexer.COMMA) {
				break
			}
		}
	}
	if _, err := p.expect(lexer.RIGHT_PAREN, "')' closing call argument list"); err != nil {
		return nil, err
	}
	n := &ast.Call{Callee: callee.Lexeme, Args: args}
	n.SetPos(callee.Pos)
	return n, nil
}
