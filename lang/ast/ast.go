// Package ast defines the tree produced by the lexer and parser (external
// collaborators of this module) and consumed, read-only, by the resolver.
// Every node carries the source position tokens the binder needs for its
// diagnostics; the AST itself performs no resolution.
package ast

import "github.com/mna/nenuphar/lang/token"

// Node is implemented by every AST node. Span reports the node's source
// extent for diagnostics; it does not imply any mutation capability, the
// binder only ever borrows nodes for the lifetime of the Bound tree it
// produces from them.
type Node interface {
	Span() (start, end token.Pos)
}

// Expr is an expression node: it produces a value when evaluated.
type Expr interface {
	Node
	exprNode()
}

// Stmt is a statement node: a variable or function declaration, or any
// expression used for its side effect inside a Block.
type Stmt interface {
	Node
	stmtNode()
}

// Integer is an integer literal.
type Integer struct {
	Pos   token.Pos
	Value int64
}

// Float is a floating point literal.
type Float struct {
	Pos   token.Pos
	Value float64
}

// Identifier is a reference to a name introduced by a VariableDecl,
// FunctionDecl parameter, FunctionDecl name or module-level declaration.
type Identifier struct {
	Pos  token.Pos
	Name string
}

// BinOp is the kind of binary arithmetic operator.
type BinOp int

const (
	// BinAdd is the "+" operator.
	BinAdd BinOp = iota
	// BinSub is the "-" operator.
	BinSub
	// BinMul is the "*" operator.
	BinMul
	// BinDiv is the "/" operator.
	BinDiv
)

// Binary is a binary arithmetic expression.
type Binary struct {
	Op          BinOp
	Left, Right Expr
}

// FieldAccess reads a field (map key, by symbol name) off a target value,
// e.g. "target.field".
type FieldAccess struct {
	Target    Expr
	FieldPos  token.Pos
	FieldName string
}

// DebugCall is the "debug(arg)" built-in: it appends arg's value to the
// machine's debug trace and produces no value.
type DebugCall struct {
	Pos token.Pos
	Arg Expr
}

// Call is a function call expression, "target(args...)".
type Call struct {
	Pos    token.Pos
	Target Expr
	Args   []Expr
}

// Pipeline is "left |> right", sugar for calling right with left as its
// sole argument: "right(left)".
type Pipeline struct {
	Pos         token.Pos
	Left, Right Expr
}

// Param is a single function parameter: a name plus its declaration-site
// position (used only for diagnostics, the type itself carries no type
// annotation in this language).
type Param struct {
	Pos  token.Pos
	Name string
}

// FuncExpr is an anonymous function expression. Unlike FunctionDecl it has
// no name of its own and so can never be the target of a CurrentFunction
// self-reference, unless it is immediately bound by a VariableDecl/
// FunctionDecl that gives it one (which the parser represents as a
// FunctionDecl instead).
type FuncExpr struct {
	Pos    token.Pos
	Params []Param
	Body   Expr
}

// Block is a sequence of statements followed by a final expression whose
// value is the value of the whole block.
type Block struct {
	Pos       token.Pos
	Stmts     []Stmt
	FinalExpr Expr
}

func (n *Integer) Span() (token.Pos, token.Pos)     { return n.Pos, n.Pos }
func (n *Float) Span() (token.Pos, token.Pos)       { return n.Pos, n.Pos }
func (n *Identifier) Span() (token.Pos, token.Pos)  { return n.Pos, n.Pos }
func (n *Binary) Span() (token.Pos, token.Pos) {
	s, _ := n.Left.Span()
	_, e := n.Right.Span()
	return s, e
}
func (n *FieldAccess) Span() (token.Pos, token.Pos) {
	s, _ := n.Target.Span()
	return s, n.FieldPos
}
func (n *DebugCall) Span() (token.Pos, token.Pos) { return n.Pos, n.Pos }
func (n *Call) Span() (token.Pos, token.Pos)      { return n.Pos, n.Pos }
func (n *Pipeline) Span() (token.Pos, token.Pos)  { return n.Pos, n.Pos }
func (n *FuncExpr) Span() (token.Pos, token.Pos)  { return n.Pos, n.Pos }
func (n *Block) Span() (token.Pos, token.Pos)     { return n.Pos, n.Pos }

func (*Integer) exprNode()     {}
func (*Float) exprNode()       {}
func (*Identifier) exprNode()  {}
func (*Binary) exprNode()      {}
func (*FieldAccess) exprNode() {}
func (*DebugCall) exprNode()   {}
func (*Call) exprNode()        {}
func (*Pipeline) exprNode()    {}
func (*FuncExpr) exprNode()    {}
func (*Block) exprNode()       {}
