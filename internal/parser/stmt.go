package parser

import (
	"github.com/UMRnInside/MlogEvo/internal/ast"
	"github.com/UMRnInside/MlogEvo/internal/lexer"
)

func (p *Parser) parseBlock() (*ast.BlockStmt, error) {
	openTok, err := p.expect(lexer.LEFT_BRACE, "'{' to open a block")
	if err != nil {
		return nil, err
	}
	block := &ast.BlockStmt{}
	block.SetPos(openTok.Pos)
	for !p.check(lexer.RIGHT_BRACE) && !p.atEnd() {
		items, err := p.parseBlockItem()
		if err != nil {
			return nil, err
		}
		block.Items = append(block.Items, items...)
	}
	if _, err := p.expect(lexer.RIGHT_BRACE, "'}' to close a block"); err != nil {
		return nil, err
	}
	return block, nil
}

// parseBlockItem returns more than one Stmt only for a multi-declarator
// local declaration (`int a = 1, b = 2;`).
func (p *Parser) parseBlockItem() ([]ast.Stmt, error) {
	if p.atTypeStart() {
		return p.parseDeclStmts()
	}
	stmt, err := p.parseStmt()
	if err != nil {
		return nil, err
	}
	return []ast.Stmt{stmt}, nil
}

func (p *Parser) parseDeclStmts() ([]ast.Stmt, error) {
	typ, err := p.parseTypeSpec()
	if err != nil {
		return nil, err
	}
	var stmts []ast.Stmt
	for {
		nameTok, err := p.expect(lexer.IDENTIFIER, "declarator name")
		if err != nil {
			return nil, err
		}
		var init ast.Expr
		if p.match(lexer.ASSIGN) {
			init, err = p.parseAssignment()
			if err != nil {
				return nil, err
			}
		}
		decl := &ast.DeclStmt{Name: nameTok.Lexeme, Type: typ, Init: init}
		decl.SetPos(nameTok.Pos)
		stmts = append(stmts, decl)
		if !p.match(lexer.COMMA) {
			break
		}
	}
	if _, err := p.expect(lexer.SEMICOLON, "';' after declaration"); err != nil {
		return nil, err
	}
	return stmts, nil
}

// parseStmt parses exactly one statement, suitable for single-statement
// contexts (an if/while/for body).
func (p *Parser) parseStmt() (ast.Stmt, error) {
	tok := p.peek()
	switch tok.Type {
	case lexer.LEFT_BRACE:
		return p.parseBlock()
	case lexer.KW_IF:
		return p.parseIf()
	case lexer.KW_WHILE:
		return p.parseWhile()
	case lexer.KW_DO:
		return p.parseDoWhile()
	case lexer.KW_FOR:
		return p.parseFor()
	case lexer.KW_BREAK:
		p.advance()
		if _, err := p.expect(lexer.SEMICOLON, "';' after break"); err != nil {
			return nil, err
		}
		s := &ast.BreakStmt{}
		s.SetPos(tok.Pos)
		return s, nil
	case lexer.KW_CONTINUE:
		p.advance()
		if _, err := p.expect(lexer.SEMICOLON, "';' after continue"); err != nil {
			return nil, err
		}
		s := &ast.ContinueStmt{}
		s.SetPos(tok.Pos)
		return s, nil
	case lexer.KW_RETURN:
		return p.parseReturn()
	case lexer.KW_GOTO:
		return p.parseGoto()
	case lexer.KW_ASM:
		return p.parseAsmStmt()
	case lexer.SEMICOLON:
		p.advance()
		s := &ast.ExprStmt{}
		s.SetPos(tok.Pos)
		return s, nil
	case lexer.IDENTIFIER:
		if p.peekAt(1).Type == lexer.COLON {
			return p.parseLabel()
		}
		return p.parseExprStmt()
	default:
		return p.parseExprStmt()
	}
}

func (p *Parser) parseIf() (ast.Stmt, error) {
	pos := p.advance().Pos // 'if'
	if _, err := p.expect(lexer.LEFT_PAREN, "'(' after if"); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RIGHT_PAREN, "')' after if condition"); err != nil {
		return nil, err
	}
	then, err := p.parseStmt()
	if err != nil {
		return nil, err
	}
	stmt := &ast.IfStmt{Cond: cond, Then: then}
	stmt.SetPos(pos)
	if p.check(lexer.KW_ELSE) {
		p.advance()
		els, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		stmt.Else = els
	}
	return stmt, nil
}

func (p *Parser) parseWhile() (ast.Stmt, error) {
	pos := p.advance().Pos // 'while'
	if _, err := p.expect(lexer.LEFT_PAREN, "'(' after while"); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RIGHT_PAREN, "')' after while condition"); err != nil {
		return nil, err
	}
	body, err := p.parseStmt()
	if err != nil {
		return nil, err
	}
	stmt := &ast.WhileStmt{Cond: cond, Body: body}
	stmt.SetPos(pos)
	return stmt, nil
}

func (p *Parser) parseDoWhile() (ast.Stmt, error) {
	pos := p.advance().Pos // 'do'
	body, err := p.parseStmt()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.KW_WHILE, "'while' after do-body"); err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.LEFT_PAREN, "'(' after while"); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RIGHT_PAREN, "')' after while condition"); err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.SEMICOLON, "';' after do-while"); err != nil {
		return nil, err
	}
	stmt := &ast.DoWhileStmt{Body: body, Cond: cond}
	stmt.SetPos(pos)
	return stmt, nil
}

func (p *Parser) parseFor() (ast.Stmt, error) {
	pos := p.advance().Pos // 'for'
	if _, err := p.expect(lexer.LEFT_PAREN, "'(' after for"); err != nil {
		return nil, err
	}
	var init ast.Stmt
	if !p.check(lexer.SEMICOLON) {
		if p.atTypeStart() {
			decls, err := p.parseDeclStmts()
			if err != nil {
				return nil, err
			}
			if len(decls) == 1 {
				init = decls[0]
			} else {
				block := &ast.BlockStmt{Items: decls}
				block.SetPos(decls[0].Pos())
				init = block
			}
		} else {
			stmt, err := p.parseExprStmt()
			if err != nil {
				return nil, err
			}
			init = stmt
		}
	} else {
		p.advance() // bare ';'
	}
	var cond ast.Expr
	if !p.check(lexer.SEMICOLON) {
		var err error
		cond, err = p.parseExpr()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(lexer.SEMICOLON, "';' after for condition"); err != nil {
		return nil, err
	}
	var post ast.Expr
	if !p.check(lexer.RIGHT_PAREN) {
		var err error
		post, err = p.parseExpr()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(lexer.RIGHT_PAREN, "')' to close for-clause"); err != nil {
		return nil, err
	}
	body, err := p.parseStmt()
	if err != nil {
		return nil, err
	}
	stmt := &ast.ForStmt{Init: init, Cond: cond, Post: post, Body: body}
	stmt.SetPos(pos)
	return stmt, nil
}

func (p *Parser) parseReturn() (ast.Stmt, error) {
	pos := p.advance().Pos // 'return'
	var x ast.Expr
	if !p.check(lexer.SEMICOLON) {
		var err error
		x, err = p.parseExpr()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(lexer.SEMICOLON, "';' after return"); err != nil {
		return nil, err
	}
	stmt := &ast.ReturnStmt{X: x}
	stmt.SetPos(pos)
	return stmt, nil
}

func (p *Parser) parseGoto() (ast.Stmt, error) {
	pos := p.advance().Pos // 'goto'
	nameTok, err := p.expect(lexer.IDENTIFIER, "label name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.SEMICOLON, "';' after goto"); err != nil {
		return nil, err
	}
	stmt := &ast.GotoStmt{Name: nameTok.Lexeme}
	stmt.SetPos(pos)
	return stmt, nil
}

func (p *Parser) parseLabel() (ast.Stmt, error) {
	nameTok := p.advance()
	p.advance() // ':'
	stmt := &ast.LabelStmt{Name: nameTok.Lexeme}
	stmt.SetPos(nameTok.Pos)
	if p.check(lexer.RIGHT_BRACE) {
		empty := &ast.ExprStmt{}
		empty.SetPos(p.peek().Pos)
		stmt.Stmt = empty
		return stmt, nil
	}
	inner, err := p.parseStmt()
	if err != nil {
		return nil, err
	}
	stmt.Stmt = inner
	return stmt, nil
}

func (p *Parser) parseExprStmt() (ast.Stmt, error) {
	pos := p.peek().Pos
	x, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.SEMICOLON, "';' after expression"); err != nil {
		return nil, err
	}
	stmt := &ast.ExprStmt{X: x}
	stmt.SetPos(pos)
	return stmt, nil
}
