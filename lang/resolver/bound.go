package resolver

import "github.com/mna/nenuphar/lang/ast"

// Bound is a node in the tree the binder produces: one Bound node per Expr
// or Stmt in the original ast.Node tree, decorated with the BindingKind
// every Identifier, VariableDecl and FunctionDecl resolved to. The emitter
// walks Bound, never ast, so every name in the program has already been
// classified as an Argument, a FunctionLocal, an Upvar, a CurrentFunction
// self-reference, or a Module slot by the time it sees it.
type Bound interface {
	boundNode()
}

// BoundInteger is a bound integer literal.
type BoundInteger struct {
	AST   *ast.Integer
	Value int64
}

// BoundFloat is a bound floating point literal.
type BoundFloat struct {
	AST   *ast.Float
	Value float64
}

// BoundIdentifier is a bound name reference, classified by the scope chain
// active at the point of use.
type BoundIdentifier struct {
	AST     *ast.Identifier
	Name    string
	Binding BindingKind
}

// BoundBinary is a bound arithmetic expression.
type BoundBinary struct {
	AST         *ast.Binary
	Op          ast.BinOp
	Left, Right Bound
}

// BoundFieldAccess is a bound "target.field" expression.
type BoundFieldAccess struct {
	AST       *ast.FieldAccess
	FieldName string
	Target    Bound
}

// BoundDebugCall is a bound "debug(arg)" built-in call.
type BoundDebugCall struct {
	AST *ast.DebugCall
	Arg Bound
}

// BoundCall is a bound function call.
type BoundCall struct {
	AST    *ast.Call
	Target Bound
	Args   []Bound
}

// BoundPipeline is a bound "left |> right" expression; it is bound exactly
// like a Call with right as target and left as the sole argument, but kept
// distinct so the emitter can report accurate positions.
type BoundPipeline struct {
	AST         *ast.Pipeline
	Left, Right Bound
}

// BoundParam is a function parameter after binding: its declared position
// is always Argument(Index) by construction.
type BoundParam struct {
	Name  string
	Index uint32
}

// BoundFunction is a bound function body, shared by FunctionDecl (named,
// self-recursive) and FuncExpr (anonymous) forms. Name is empty for an
// anonymous function; such a function has no CurrentFunction slot, and
// HasName is false so the binder never matches a lookup against Name by
// accident.
type BoundFunction struct {
	Name    string
	HasName bool
	Params  []BoundParam
	Body    Bound
	// Locals are the declarations (let-bindings) made directly in the
	// function's body, in declaration order; FunctionLocal(i) indexes here.
	Locals []DeclKind
	// Upvars are the free variables captured from an enclosing scope, in
	// the order they were first referenced; Upvar(i) indexes here, and
	// Enclosing[i] records where the captured value lives in the enclosing
	// function (or module).
	Upvars    []DeclKind
	Enclosing []BindingKind
}

// BoundFunctionDecl is "let name(params) = body;": a named, self-recursive
// function bound at statement position. An anonymous FuncExpr binds to a
// BoundFunctionDecl too, with AST and Location left nil.
type BoundFunctionDecl struct {
	AST      *ast.FunctionDecl
	Function *BoundFunction
	Location BindingKind
}

// BoundVariableDecl is "let name = expression;".
type BoundVariableDecl struct {
	AST        *ast.VariableDecl
	Name       string
	Expression Bound
	Location   BindingKind
}

// BoundExprStmt is an expression evaluated at statement position for its
// side effect (its value, if any, is discarded).
type BoundExprStmt struct {
	AST *ast.ExprStmt
	X   Bound
}

// BoundBlock is a bound sequence of statements followed by a final
// expression.
type BoundBlock struct {
	AST          *ast.Block
	Statements   []Bound
	FinalExpr    Bound
}

// BoundModule is the root of a bound compilation unit.
type BoundModule struct {
	AST        *ast.Module
	ModuleID   string
	Statements []Bound
}

func (*BoundInteger) boundNode()      {}
func (*BoundFloat) boundNode()        {}
func (*BoundIdentifier) boundNode()   {}
func (*BoundBinary) boundNode()       {}
func (*BoundFieldAccess) boundNode()  {}
func (*BoundDebugCall) boundNode()    {}
func (*BoundCall) boundNode()         {}
func (*BoundPipeline) boundNode()     {}
func (*BoundFunctionDecl) boundNode() {}
func (*BoundVariableDecl) boundNode() {}
func (*BoundExprStmt) boundNode()     {}
func (*BoundBlock) boundNode()        {}
func (*BoundModule) boundNode()       {}
