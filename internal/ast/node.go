package ast

// Node is implemented by every AST node.
type Node interface {
	Pos() Position
}

// Expr is implemented by every expression node.
type Expr interface {
	Node
	exprNode()
}

// Stmt is implemented by every statement node.
type Stmt interface {
	Node
	stmtNode()
}

// Program is the root of the tree: one translation unit after preprocessing.
type Program struct {
	withPos
	Decls []ExternalDecl
}

// ExternalDecl is implemented by top-level declarations.
type ExternalDecl interface {
	Node
	externalDeclNode()
}

// Attribute is a single `__attribute__((name(args...)))` entry, or a bare
// GNU keyword like `inline`.
type Attribute struct {
	Name string
	Args []string
}

// Param is one function parameter.
type Param struct {
	withPos
	Name string
	Type string
}

// FuncDecl is a function prototype or definition. Body is nil for a
// prototype-only declaration.
type FuncDecl struct {
	withPos
	Name       string
	ReturnType string
	Params     []Param
	Body       *BlockStmt
	Attributes []Attribute
}

func (*FuncDecl) externalDeclNode() {}

// GlobalVarDecl declares a file-scope variable, with an optional initializer.
type GlobalVarDecl struct {
	withPos
	Name string
	Type string
	Init Expr
}

func (*GlobalVarDecl) externalDeclNode() {}

// FieldDecl is one member of a `struct MlogObject` declaration.
type FieldDecl struct {
	withPos
	Name string
	Type string
}

// StructDecl models `struct MlogObject { ... };`, the only struct form this
// dialect accepts: a flat list of sensor fields, no nesting.
type StructDecl struct {
	withPos
	Name   string
	Fields []FieldDecl
}

func (*StructDecl) externalDeclNode() {}
