package compiler

import (
	"github.com/mna/nenuphar/lang/ast"
	"github.com/mna/nenuphar/lang/machine"
	"github.com/mna/nenuphar/lang/resolver"
)

// item is one step of the flattened, chunk-agnostic instruction stream
// built from a Bound tree before compileBody splits it into physical
// machine.Function chunks at each call site. Get/Set carry a host slot
// rather than a resolved stack position, since which physical slot a
// given host slot lands on depends on which chunk it is compiled into.
type item interface{ isItem() }

type concreteItem struct{ instr machine.Instruction }
type getItem struct{ hostSlot uint32 }
type setItem struct{ hostSlot uint32 }

// callItem marks the point where a flattened Call/Pipeline's target and
// argument items (already emitted earlier in the same item slice) are
// followed by the Call instruction itself. Everything after a callItem in
// its slice belongs to the continuation chunk, never to the chunk the
// call site is compiled into.
type callItem struct{ arity uint32 }

func (concreteItem) isItem() {}
func (getItem) isItem()      {}
func (setItem) isItem()      {}
func (callItem) isItem()     {}

func push(v machine.Value) item { return concreteItem{machine.Push(v)} }
func simple(op machine.Op) item { return concreteItem{machine.Simple(op)} }

// flattenExpr lowers a single Bound node to a sequence of items. The
// returned bool reports whether evaluating those items leaves a value on
// the operand stack; statement-shaped nodes (a variable or function
// declaration, a debug call) report false.
func flattenExpr(b resolver.Bound, sig funcSig) ([]item, bool) {
	switch n := b.(type) {
	case *resolver.BoundInteger:
		return []item{push(machine.Int(n.Value))}, true

	case *resolver.BoundFloat:
		return []item{push(machine.Float(n.Value))}, true

	case *resolver.BoundIdentifier:
		return getterItems(n.Binding, sig), true

	case *resolver.BoundBinary:
		items, _ := flattenExpr(n.Left, sig)
		rItems, _ := flattenExpr(n.Right, sig)
		items = append(items, rItems...)
		items = append(items, simple(binOpcode(n.Op)))
		return items, true

	case *resolver.BoundFieldAccess:
		items, _ := flattenExpr(n.Target, sig)
		items = append(items, push(machine.Symbol(n.FieldName)), simple(machine.OpMapGet))
		return items, true

	case *resolver.BoundDebugCall:
		items, _ := flattenExpr(n.Arg, sig)
		items = append(items, simple(machine.OpDebug))
		return items, false

	case *resolver.BoundCall:
		items, _ := flattenExpr(n.Target, sig)
		for _, a := range n.Args {
			aItems, _ := flattenExpr(a, sig)
			items = append(items, aItems...)
		}
		items = append(items, callItem{arity: uint32(len(n.Args))})
		return items, true

	case *resolver.BoundPipeline:
		// "left |> right" is right(left): the target is right, the sole
		// argument is left.
		items, _ := flattenExpr(n.Right, sig)
		lItems, _ := flattenExpr(n.Left, sig)
		items = append(items, lItems...)
		items = append(items, callItem{arity: 1})
		return items, true

	case *resolver.BoundFunctionDecl:
		return flattenFunctionDecl(n, sig)

	case *resolver.BoundVariableDecl:
		items, _ := flattenExpr(n.Expression, sig)
		items = append(items, setterItems(n.Location, sig)...)
		return items, false

	case *resolver.BoundExprStmt:
		return flattenExpr(n.X, sig)

	case *resolver.BoundBlock:
		return flattenBlock(n, sig)

	default:
		panic("compiler: unhandled bound node in flattenExpr")
	}
}

func flattenBlock(blk *resolver.BoundBlock, sig funcSig) ([]item, bool) {
	var items []item
	for _, s := range blk.Statements {
		stmtItems, produces := flattenExpr(s, sig)
		items = append(items, stmtItems...)
		if produces {
			items = append(items, simple(machine.OpPop))
		}
	}
	finalItems, produces := flattenExpr(blk.FinalExpr, sig)
	items = append(items, finalItems...)
	if !produces {
		items = append(items, simple(machine.OpMapEmpty))
		produces = true
	}
	return items, produces
}

// flattenFunctionDecl handles both the named, statement-position form
// (n.Location set, nothing left on the stack) and the anonymous
// expression form a FuncExpr binds to (n.Location nil, the built function
// is the produced value).
func flattenFunctionDecl(n *resolver.BoundFunctionDecl, sig funcSig) ([]item, bool) {
	template := EmitFunction(n.Function)

	var items []item
	for _, enc := range n.Function.Enclosing {
		items = append(items, getterItems(enc, sig)...)
	}
	items = append(items, push(template), simple(machine.OpBuildFunction))

	if n.Location != nil {
		items = append(items, setterItems(n.Location, sig)...)
		return items, false
	}
	return items, true
}

// binOpcode maps a bound arithmetic operator to its instruction.
func binOpcode(op ast.BinOp) machine.Op {
	switch op {
	case ast.BinAdd:
		return machine.OpAdd
	case ast.BinSub:
		return machine.OpSub
	case ast.BinMul:
		return machine.OpMul
	case ast.BinDiv:
		return machine.OpDiv
	default:
		panic("compiler: unhandled binary operator")
	}
}
