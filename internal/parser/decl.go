package parser

import (
	"github.com/UMRnInside/MlogEvo/internal/ast"
	"github.com/UMRnInside/MlogEvo/internal/lexer"
)

// parseAttributesAndQualifiers consumes any leading/trailing mix of GNU
// storage qualifiers (static, extern, register, const — all lexed as plain
// identifiers, since this dialect's keyword table only covers what
// lowering cares about), the bare "inline" qualifier, and
// `__attribute__((name[(args...)], ...))` groups, in any order.
func (p *Parser) parseAttributesAndQualifiers() ([]ast.Attribute, error) {
	var attrs []ast.Attribute
	for {
		if p.check(lexer.IDENTIFIER) {
			switch p.peek().Lexeme {
			case "static", "extern", "register", "const":
				p.advance()
				continue
			case "inline":
				p.advance()
				attrs = append(attrs, ast.Attribute{Name: "inline"})
				continue
			}
		}
		if p.check(lexer.KW_ATTRIBUTE) {
			p.advance()
			if _, err := p.expect(lexer.LEFT_PAREN, "'(' after __attribute__"); err != nil {
				return nil, err
			}
			if _, err := p.expect(lexer.LEFT_PAREN, "'((' after __attribute__"); err != nil {
				return nil, err
			}
			for {
				nameTok := p.advance()
				attr := ast.Attribute{Name: nameTok.Lexeme}
				if p.match(lexer.LEFT_PAREN) {
					for !p.check(lexer.RIGHT_PAREN) {
						attr.Args = append(attr.Args, p.advance().Lexeme)
						if !p.match(lexer.COMMA) {
							break
						}
					}
					if _, err := p.expect(lexer.RIGHT_PAREN, "')' closing attribute argument list"); err != nil {
						return nil, err
					}
				}
				attrs = append(attrs, attr)
				if !p.match(lexer.COMMA) {
					break
				}
			}
			if _, err := p.expect(lexer.RIGHT_PAREN, "'))' closing __attribute__"); err != nil {
				return nil, err
			}
			if _, err := p.expect(lexer.RIGHT_PAREN, "'))' closing __attribute__"); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	return attrs, nil
}

// parseTypeSpec parses one of this dialect's closed set of type spellings,
// normalized to the canonical form internal/types.Rank recognizes.
func (p *Parser) parseTypeSpec() (string, error) {
	switch p.peek().Type {
	case lexer.KW_VOID:
		p.advance()
		return "void", nil
	case lexer.KW_BOOL:
		p.advance()
		return "bool", nil
	case lexer.KW_CHAR:
		p.advance()
		return "char", nil
	case lexer.KW_FLOAT:
		p.advance()
		return "float", nil
	case lexer.KW_DOUBLE:
		p.advance()
		return "double", nil
	case lexer.KW_SHORT:
		p.advance()
		p.match(lexer.KW_INT)
		return "short", nil
	case lexer.KW_INT:
		p.advance()
		return "int", nil
	case lexer.KW_LONG:
		p.advance()
		if p.match(lexer.KW_LONG) {
			p.match(lexer.KW_INT)
			return "long long", nil
		}
		p.match(lexer.KW_INT)
		return "long", nil
	case lexer.KW_STRUCT:
		p.advance()
		name, err := p.expect(lexer.IDENTIFIER, "struct name")
		if err != nil {
			return "", err
		}
		return "struct " + name.Lexeme, nil
	default:
		return "", p.errorAt(p.peek().Pos, "expected a type, found %q", p.peek().Lexeme)
	}
}

// parseExternalDecl parses one top-level construct: a struct declaration,
// a function prototype/definition, or a (possibly multi-declarator)
// global variable declaration.
func (p *Parser) parseExternalDecl() ([]ast.ExternalDecl, error) {
	pos := p.peek().Pos
	leadingAttrs, err := p.parseAttributesAndQualifiers()
	if err != nil {
		return nil, err
	}

	if p.check(lexer.KW_STRUCT) {
		decl, err := p.parseStructDecl(pos)
		if err != nil {
			return nil, err
		}
		return []ast.ExternalDecl{decl}, nil
	}

	typ, err := p.parseTypeSpec()
	if err != nil {
		return nil, err
	}
	nameTok, err := p.expect(lexer.IDENTIFIER, "declarator name")
	if err != nil {
		return nil, err
	}

	if p.check(lexer.LEFT_PAREN) {
		fn, err := p.parseFuncDeclRest(pos, typ, nameTok.Lexeme, leadingAttrs)
		if err != nil {
			return nil, err
		}
		return []ast.ExternalDecl{fn}, nil
	}

	var decls []ast.ExternalDecl
	for {
		var init ast.Expr
		if p.match(lexer.ASSIGN) {
			init, err = p.parseAssignment()
			if err != nil {
				return nil, err
			}
		}
		gv := &ast.GlobalVarDecl{Name: nameTok.Lexeme, Type: typ, Init: init}
		gv.SetPos(nameTok.Pos)
		decls = append(decls, gv)
		if !p.match(lexer.COMMA) {
			break
		}
		nameTok, err = p.expect(lexer.IDENTIFIER, "declarator name")
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(lexer.SEMICOLON, "';' after variable declaration"); err != nil {
		return nil, err
	}
	return decls, nil
}

func (p *Parser) parseStructDecl(pos ast.Position) (*ast.StructDecl, error) {
	p.advance() // 'struct'
	nameTok, err := p.expect(lexer.IDENTIFIER, "struct name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.LEFT_BRACE, "'{' to open struct body"); err != nil {
		return nil, err
	}
	decl := &ast.StructDecl{Name: nameTok.Lexeme}
	decl.SetPos(pos)
	for !p.check(lexer.RIGHT_BRACE) && !p.atEnd() {
		fieldTyp, err := p.parseTypeSpec()
		if err != nil {
			return nil, err
		}
		fieldName, err := p.expect(lexer.IDENTIFIER, "field name")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.SEMICOLON, "';' after field declaration"); err != nil {
			return nil, err
		}
		fd := ast.FieldDecl{Name: fieldName.Lexeme, Type: fieldTyp}
		fd.SetPos(fieldName.Pos)
		decl.Fields = append(decl.Fields, fd)
	}
	if _, err := p.expect(lexer.RIGHT_BRACE, "'}' to close struct body"); err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.SEMICOLON, "';' after struct declaration"); err != nil {
		return nil, err
	}
	return decl, nil
}

func (p *Parser) parseFuncDeclRest(pos ast.Position, returnType, name string, leadingAttrs []ast.Attribute) (*ast.FuncDecl, error) {
	p.advance() // '('
	var params []ast.Param
	if p.check(lexer.KW_VOID) && p.peekAt(1).Type == lexer.RIGHT_PAREN {
		p.advance()
	} else if !p.check(lexer.RIGHT_PAREN) {
		for {
			pt, err := p.parseTypeSpec()
			if err != nil {
				return nil, err
			}
			pn, err := p.expect(lexer.IDENTIFIER, "parameter name")
			if err != nil {
				return nil, err
			}
			param := ast.Param{Name: pn.Lexeme, Type: pt}
			param.SetPos(pn.Pos)
			params = append(params, param)
			if !p.match(lexer.COMMA) {
				break
			}
		}
	}
	if _, err := p.expect(lexer.RIGHT_PAREN, "')' to close parameter list"); err != nil {
		return nil, err
	}

	trailingAttrs, err := p.parseAttributesAndQualifiers()
	if err != nil {
		return nil, err
	}
	fn := &ast.FuncDecl{Name: name, ReturnType: returnType, Params: params, Attributes: append(leadingAttrs, trailingAttrs...)}
	fn.SetPos(pos)

	if p.match(lexer.SEMICOLON) {
		return fn, nil
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	fn.Body = body
	return fn, nil
}
