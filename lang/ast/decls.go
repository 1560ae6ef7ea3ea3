package ast

import "github.com/mna/nenuphar/lang/token"

// VariableDecl is "let name = expression;". Per the binder's traversal
// order, the initializer is bound before the name is registered, so
// "let x = x;" refers to an outer x, never to itself.
type VariableDecl struct {
	Pos        token.Pos
	Name       string
	Expression Expr
}

// FunctionDecl is "let name(params...) = body;". The name is registered in
// the enclosing scope before the body is bound; inside the body the name
// resolves to a CurrentFunction self-reference, so the function may call
// itself recursively.
type FunctionDecl struct {
	Pos    token.Pos
	Name   string
	Params []Param
	Body   Expr
}

// Module is the root of a compilation unit: a flat sequence of top-level
// statements, each of which becomes reachable by a (module, symbol) lookup
// once bound.
type Module struct {
	ID    string
	Stmts []Stmt
}

func (n *VariableDecl) Span() (token.Pos, token.Pos) { return n.Pos, n.Pos }
func (n *FunctionDecl) Span() (token.Pos, token.Pos) { return n.Pos, n.Pos }
func (n *Module) Span() (token.Pos, token.Pos) {
	if len(n.Stmts) == 0 {
		return 0, 0
	}
	s, _ := n.Stmts[0].Span()
	_, e := n.Stmts[len(n.Stmts)-1].Span()
	return s, e
}

func (*VariableDecl) stmtNode() {}
func (*FunctionDecl) stmtNode() {}

// Expressions used at statement position (e.g. a bare call for its debug
// side effect) satisfy Stmt too; Block and Module hold them as ExprStmt.
type ExprStmt struct {
	X Expr
}

func (n *ExprStmt) Span() (token.Pos, token.Pos) { return n.X.Span() }
func (*ExprStmt) stmtNode()                      {}
