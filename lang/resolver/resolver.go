// Package resolver implements the binder: it walks an ast.Node tree and
// produces a Bound tree in which every name reference has already been
// classified as an Argument, a FunctionLocal, an Upvar (captured from an
// enclosing function), a CurrentFunction self-reference, or a slot in the
// module's global table. The emitter never performs its own scope lookups;
// it trusts the BindingKind the binder attached to every BoundIdentifier,
// BoundVariableDecl and BoundFunctionDecl.
//
// The design mirrors a classic "cactus stack" of scope objects, one per
// lexical construct (module, function, block), each holding a reference to
// its parent scope. A lookup that misses in the innermost scope walks
// outward one scope at a time; a lookup that crosses a function boundary is
// recorded as an upvar capture in that function's BoundFunction so the
// emitter can lower it as a closure-over read instead of a plain local.
package resolver

import (
	"errors"
	"fmt"

	"github.com/mna/nenuphar/lang/ast"
	"github.com/mna/nenuphar/lang/token"
)

// BindingKind is the resolved location of a name: where the value lives at
// runtime, independent of the lexical position it was written at.
type BindingKind interface {
	bindingKind()
}

// Argument is the Index-th parameter of the enclosing function.
type Argument struct{ Index uint32 }

// FunctionLocal is the Index-th let-binding made directly in the enclosing
// function's body.
type FunctionLocal struct{ Index uint32 }

// Upvar is the Index-th free variable captured by the enclosing function
// from one of its ancestors.
type Upvar struct{ Index uint32 }

// CurrentFunction is a self-reference: the name used to declare the
// function currently being bound, referenced from within its own body.
type CurrentFunction struct{}

// ModuleBinding is a top-level declaration, addressed by module ID and
// name in the machine's module-global store.
type ModuleBinding struct {
	ModuleID string
	Name     string
}

func (Argument) bindingKind()        {}
func (FunctionLocal) bindingKind()   {}
func (Upvar) bindingKind()           {}
func (CurrentFunction) bindingKind() {}
func (ModuleBinding) bindingKind()   {}

// DeclKind identifies a declaration for the purpose of shadowing: two
// declarations of the same source name in nested blocks must resolve to
// different slots. A block scope renames every declaration it introduces
// to a Generated key derived from BindingState.genID, so a lookup for the
// plain source name always reaches the innermost still-visible one.
type DeclKind struct {
	// GenID is 0 for a declaration referenced by its plain source name
	// (function parameters, a function's own name, module-level
	// declarations); block-local declarations are renamed to a non-zero
	// GenID the moment they are introduced, so two lets named x in sibling
	// or nested blocks never collide as map keys.
	GenID uint64
	Name  string
}

// named builds the DeclKind used to look up a plain source-level
// identifier, before any block-local renaming is applied.
func named(name string) DeclKind { return DeclKind{Name: name} }

// BindingState carries the monotonic counter used to mint fresh DeclKind
// identities for block-local declarations, so sibling and nested blocks
// that happen to reuse a name never alias each other's slot.
type BindingState struct {
	genID uint64
}

func (s *BindingState) nextGenID() uint64 {
	s.genID++
	return s.genID
}

// ErrUnboundIdentifier is returned, wrapped with the offending name, when a
// lookup reaches the outermost scope without finding a declaration.
var ErrUnboundIdentifier = errors.New("unbound identifier")

// UnboundIdentifierError names the identifier that could not be resolved,
// along with the source position of the offending reference, so a host
// can format a diagnostic pointing at the exact line and column.
// Pos is the zero value when the error originates somewhere an AST
// back-pointer isn't available (e.g. a scope's own internal bookkeeping).
type UnboundIdentifierError struct {
	Name string
	Pos  token.Pos
}

func (e *UnboundIdentifierError) Error() string {
	if e.Pos.Unknown() {
		return fmt.Sprintf("%s: %q", ErrUnboundIdentifier, e.Name)
	}
	line, col := e.Pos.LineCol()
	return fmt.Sprintf("%d:%d: %s: %q", line, col, ErrUnboundIdentifier, e.Name)
}

func (e *UnboundIdentifierError) Unwrap() error { return ErrUnboundIdentifier }

// scope is implemented by each lexical construct that can introduce or
// resolve declarations: the module, a function body, a block, and the
// sentinel root scope every lookup eventually bottoms out at.
type scope interface {
	// addDeclaration registers a new declaration introduced in this scope
	// and returns where it lives at runtime.
	addDeclaration(sym DeclKind, bs *BindingState) (BindingKind, error)
	// lookup resolves a reference to sym, searching outward through parent
	// scopes as needed.
	lookup(sym DeclKind) (BindingKind, error)
}

// BindTop binds a complete module. It is the sole entry point external
// callers use; every other bind function in this package operates under a
// scope already pushed by BindTop or one of its helpers.
func BindTop(n ast.Node) (*BoundModule, error) {
	mod, ok := n.(*ast.Module)
	if !ok {
		return nil, fmt.Errorf("resolver: BindTop requires *ast.Module, got %T", n)
	}
	root := &buckStopsHereScope{}
	bs := &BindingState{}
	b, err := bindModule(root, bs, mod)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func bindModule(parent scope, bs *BindingState, m *ast.Module) (*BoundModule, error) {
	ms := &moduleScope{moduleID: m.ID, definitions: map[string]bool{}}
	stmts := make([]Bound, len(m.Stmts))
	for i, s := range m.Stmts {
		b, err := bindStmt(ms, bs, s)
		if err != nil {
			return nil, err
		}
		stmts[i] = b
	}
	return &BoundModule{AST: m, ModuleID: m.ID, Statements: stmts}, nil
}

func bindStmt(sc scope, bs *BindingState, s ast.Stmt) (Bound, error) {
	switch n := s.(type) {
	case *ast.VariableDecl:
		expr, err := bindExpr(sc, bs, n.Expression)
		if err != nil {
			return nil, err
		}
		loc, err := sc.addDeclaration(named(n.Name), bs)
		if err != nil {
			return nil, err
		}
		return &BoundVariableDecl{AST: n, Name: n.Name, Expression: expr, Location: loc}, nil

	case *ast.FunctionDecl:
		return bindFunctionDecl(sc, bs, n)

	case *ast.ExprStmt:
		x, err := bindExpr(sc, bs, n.X)
		if err != nil {
			return nil, err
		}
		return &BoundExprStmt{AST: n, X: x}, nil

	default:
		return nil, fmt.Errorf("resolver: unhandled statement type %T", s)
	}
}

func bindExpr(sc scope, bs *BindingState, e ast.Expr) (Bound, error) {
	switch n := e.(type) {
	case *ast.Integer:
		return &BoundInteger{AST: n, Value: n.Value}, nil

	case *ast.Float:
		return &BoundFloat{AST: n, Value: n.Value}, nil

	case *ast.Identifier:
		bk, err := sc.lookup(named(n.Name))
		if err != nil {
			var ue *UnboundIdentifierError
			if errors.As(err, &ue) {
				ue.Pos = n.Pos
			}
			return nil, err
		}
		return &BoundIdentifier{AST: n, Name: n.Name, Binding: bk}, nil

	case *ast.Binary:
		left, err := bindExpr(sc, bs, n.Left)
		if err != nil {
			return nil, err
		}
		right, err := bindExpr(sc, bs, n.Right)
		if err != nil {
			return nil, err
		}
		return &BoundBinary{AST: n, Op: n.Op, Left: left, Right: right}, nil

	case *ast.FieldAccess:
		target, err := bindExpr(sc, bs, n.Target)
		if err != nil {
			return nil, err
		}
		return &BoundFieldAccess{AST: n, FieldName: n.FieldName, Target: target}, nil

	case *ast.DebugCall:
		arg, err := bindExpr(sc, bs, n.Arg)
		if err != nil {
			return nil, err
		}
		return &BoundDebugCall{AST: n, Arg: arg}, nil

	case *ast.Call:
		target, err := bindExpr(sc, bs, n.Target)
		if err != nil {
			return nil, err
		}
		args := make([]Bound, len(n.Args))
		for i, a := range n.Args {
			ba, err := bindExpr(sc, bs, a)
			if err != nil {
				return nil, err
			}
			args[i] = ba
		}
		return &BoundCall{AST: n, Target: target, Args: args}, nil

	case *ast.Pipeline:
		left, err := bindExpr(sc, bs, n.Left)
		if err != nil {
			return nil, err
		}
		right, err := bindExpr(sc, bs, n.Right)
		if err != nil {
			return nil, err
		}
		return &BoundPipeline{AST: n, Left: left, Right: right}, nil

	case *ast.FuncExpr:
		return bindFuncExpr(sc, bs, n)

	case *ast.Block:
		return bindBlock(sc, bs, n)

	default:
		return nil, fmt.Errorf("resolver: unhandled expression type %T", e)
	}
}

func bindBlock(parent scope, bs *BindingState, n *ast.Block) (*BoundBlock, error) {
	blk := &blockScope{parent: parent, definitions: map[DeclKind]DeclKind{}}
	stmts := make([]Bound, len(n.Stmts))
	for i, s := range n.Stmts {
		b, err := bindStmt(blk, bs, s)
		if err != nil {
			return nil, err
		}
		stmts[i] = b
	}
	final, err := bindExpr(blk, bs, n.FinalExpr)
	if err != nil {
		return nil, err
	}
	return &BoundBlock{AST: n, Statements: stmts, FinalExpr: final}, nil
}

// bindFunction binds the shared machinery of a named or anonymous
// function: a fresh funcScope over params, the body bound against it, and
// the resulting locals/upvars captured onto a BoundFunction. name/hasName
// distinguish a FunctionDecl (self-recursive) from a FuncExpr (no
// CurrentFunction slot).
func bindFunction(parent scope, bs *BindingState, name string, hasName bool, params []ast.Param, body ast.Expr) (*BoundFunction, error) {
	fs := &funcScope{
		parent:  parent,
		name:    name,
		hasName: hasName,
		upvarOf: map[DeclKind]int{},
	}
	boundParams := make([]BoundParam, len(params))
	for i, p := range params {
		fs.params = append(fs.params, named(p.Name))
		boundParams[i] = BoundParam{Name: p.Name, Index: uint32(i)}
	}

	boundBody, err := bindExpr(fs, bs, body)
	if err != nil {
		return nil, err
	}

	return &BoundFunction{
		Name:      name,
		HasName:   hasName,
		Params:    boundParams,
		Body:      boundBody,
		Locals:    fs.locals,
		Upvars:    fs.upvarKeys,
		Enclosing: fs.upvarSrc,
	}, nil
}

func bindFunctionDecl(parent scope, bs *BindingState, n *ast.FunctionDecl) (*BoundFunctionDecl, error) {
	loc, err := parent.addDeclaration(named(n.Name), bs)
	if err != nil {
		return nil, err
	}
	fn, err := bindFunction(parent, bs, n.Name, true, n.Params, n.Body)
	if err != nil {
		return nil, err
	}
	return &BoundFunctionDecl{AST: n, Function: fn, Location: loc}, nil
}

func bindFuncExpr(parent scope, bs *BindingState, n *ast.FuncExpr) (*BoundFunctionDecl, error) {
	fn, err := bindFunction(parent, bs, "", false, n.Params, n.Body)
	if err != nil {
		return nil, err
	}
	// An anonymous function declares nothing in the enclosing scope; it has
	// no BindingKind location of its own, only the one the emitter pushes
	// for its BuildFunction result.
	return &BoundFunctionDecl{Function: fn}, nil
}
