package compiler_test

import (
	"bytes"
	"testing"

	"github.com/mna/nenuphar/lang/ast"
	"github.com/mna/nenuphar/lang/compiler"
	"github.com/mna/nenuphar/lang/machine"
	"github.com/mna/nenuphar/lang/resolver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mod(id string, stmts ...ast.Stmt) *ast.Module {
	return &ast.Module{ID: id, Stmts: stmts}
}

func compile(t *testing.T, m *ast.Module) *machine.Function {
	t.Helper()
	bound, err := resolver.BindTop(m)
	require.NoError(t, err)
	return compiler.EmitModule(bound)
}

func run(t *testing.T, fn *machine.Function) (machine.Value, *machine.Thread) {
	t.Helper()
	th := machine.NewThread(machine.DefaultConfig())
	v, err := th.RunFunction(fn)
	require.NoError(t, err)
	return v, th
}

// "5; Map{}" — a bare literal statement, discarded, module yields Map∅.
func TestEmitLiteralStatement(t *testing.T) {
	m := mod("m1", &ast.ExprStmt{X: &ast.Integer{Value: 5}})
	fn := compile(t, m)
	v, _ := run(t, fn)
	mv, ok := v.(*machine.MapValue)
	require.True(t, ok)
	assert.Zero(t, mv.Len())
}

// "debug(5 + 2);" — arithmetic feeding a debug trace.
func TestEmitArithmeticDebug(t *testing.T) {
	m := mod("m2", &ast.ExprStmt{X: &ast.DebugCall{Arg: &ast.Binary{
		Op:    ast.BinAdd,
		Left:  &ast.Integer{Value: 5},
		Right: &ast.Integer{Value: 2},
	}}})
	fn := compile(t, m)
	_, th := run(t, fn)
	require.Len(t, th.DebugValues(), 1)
	assert.Equal(t, machine.Int(7), th.DebugValues()[0])
}

// "let x = 5; debug(x);" — module-global round trip.
func TestEmitVariableDeclAndReference(t *testing.T) {
	m := mod("m3",
		&ast.VariableDecl{Name: "x", Expression: &ast.Integer{Value: 5}},
		&ast.ExprStmt{X: &ast.DebugCall{Arg: &ast.Identifier{Name: "x"}}},
	)
	fn := compile(t, m)
	_, th := run(t, fn)
	require.Len(t, th.DebugValues(), 1)
	assert.Equal(t, machine.Int(5), th.DebugValues()[0])
}

// "let f(a,b) = a+b; debug(f(3,4));" — the call site that forces CPS
// chunk splitting.
func TestEmitFunctionCall(t *testing.T) {
	m := mod("m4",
		&ast.FunctionDecl{Name: "f", Params: []ast.Param{{Name: "a"}, {Name: "b"}}, Body: &ast.Binary{
			Op:    ast.BinAdd,
			Left:  &ast.Identifier{Name: "a"},
			Right: &ast.Identifier{Name: "b"},
		}},
		&ast.ExprStmt{X: &ast.DebugCall{Arg: &ast.Call{
			Target: &ast.Identifier{Name: "f"},
			Args:   []ast.Expr{&ast.Integer{Value: 3}, &ast.Integer{Value: 4}},
		}}},
	)
	fn := compile(t, m)
	_, th := run(t, fn)
	require.Len(t, th.DebugValues(), 1)
	assert.Equal(t, machine.Int(7), th.DebugValues()[0])
}

// "let f() = f;" — binds and emits successfully; f itself is never
// invoked, so running the module still yields Map∅.
func TestEmitSelfReferenceWithoutInvocation(t *testing.T) {
	m := mod("m5",
		&ast.FunctionDecl{Name: "f", Body: &ast.Identifier{Name: "f"}},
	)
	fn := compile(t, m)
	v, _ := run(t, fn)
	mv, ok := v.(*machine.MapValue)
	require.True(t, ok)
	assert.Zero(t, mv.Len())
}

// A pipeline lowers to a single-argument call: "3 |> f" is "f(3)".
func TestEmitPipeline(t *testing.T) {
	m := mod("m6",
		&ast.FunctionDecl{Name: "inc", Params: []ast.Param{{Name: "x"}}, Body: &ast.Binary{
			Op:    ast.BinAdd,
			Left:  &ast.Identifier{Name: "x"},
			Right: &ast.Integer{Value: 1},
		}},
		&ast.ExprStmt{X: &ast.DebugCall{Arg: &ast.Pipeline{
			Left:  &ast.Integer{Value: 3},
			Right: &ast.Identifier{Name: "inc"},
		}}},
	)
	fn := compile(t, m)
	_, th := run(t, fn)
	require.Len(t, th.DebugValues(), 1)
	assert.Equal(t, machine.Int(4), th.DebugValues()[0])
}

// An unbound identifier is a binder error, never reaches the emitter.
func TestBindUnboundIdentifier(t *testing.T) {
	m := mod("m7", &ast.ExprStmt{X: &ast.Identifier{Name: "nope"}})
	_, err := resolver.BindTop(m)
	require.Error(t, err)
	var unbound *resolver.UnboundIdentifierError
	require.ErrorAs(t, err, &unbound)
	assert.Equal(t, "nope", unbound.Name)
}

// A nested call in another call's argument position, "add1(id(41))"; checks
// that chunk splitting composes when the call is not at the top level of
// a statement.
func TestEmitNestedCallArgument(t *testing.T) {
	m := mod("m8",
		&ast.FunctionDecl{Name: "id", Params: []ast.Param{{Name: "x"}}, Body: &ast.Identifier{Name: "x"}},
		&ast.FunctionDecl{Name: "add1", Params: []ast.Param{{Name: "x"}}, Body: &ast.Binary{
			Op:    ast.BinAdd,
			Left:  &ast.Identifier{Name: "x"},
			Right: &ast.Integer{Value: 1},
		}},
		&ast.ExprStmt{X: &ast.DebugCall{Arg: &ast.Call{
			Target: &ast.Identifier{Name: "add1"},
			Args: []ast.Expr{&ast.Call{
				Target: &ast.Identifier{Name: "id"},
				Args:   []ast.Expr{&ast.Integer{Value: 41}},
			}},
		}}},
	)
	fn := compile(t, m)
	_, th := run(t, fn)
	require.Len(t, th.DebugValues(), 1)
	assert.Equal(t, machine.Int(42), th.DebugValues()[0])
}

func TestProgramRoundTrip(t *testing.T) {
	m := mod("m9",
		&ast.FunctionDecl{Name: "f", Params: []ast.Param{{Name: "a"}}, Body: &ast.Binary{
			Op:    ast.BinAdd,
			Left:  &ast.Identifier{Name: "a"},
			Right: &ast.Integer{Value: 1},
		}},
		&ast.ExprStmt{X: &ast.DebugCall{Arg: &ast.Call{
			Target: &ast.Identifier{Name: "f"},
			Args:   []ast.Expr{&ast.Integer{Value: 1}},
		}}},
	)
	fn := compile(t, m)

	var buf bytes.Buffer
	require.NoError(t, compiler.Encode(&buf, fn))

	decoded, err := compiler.Decode(&buf)
	require.NoError(t, err)

	_, th := run(t, decoded)
	require.Len(t, th.DebugValues(), 1)
	assert.Equal(t, machine.Int(2), th.DebugValues()[0])
}
