// Package compiler is the emitter: it walks a *resolver.BoundModule and
// lowers it to a *machine.Function, the bytecode template a machine.Thread
// can run. The interesting part is continuation-passing lowering of calls:
// a call never "returns" in the bytecode it emits, so anything that
// happens after one is compiled into a separate physical machine.Function
// chunk (see chunk.go), reached later through the continuation chain
// rather than by falling through.
//
// The recursive, bool-returning shape of emit below (does this node leave
// a value on the stack or not) and the explicit per-function slot
// bookkeeping are carried over from the pre-CPS emitter this one
// descends from; what changed is that a call site can no longer just emit
// its target and arguments and move on, since nothing "moves on" in this
// machine.
package compiler

import (
	"github.com/mna/nenuphar/lang/machine"
	"github.com/mna/nenuphar/lang/resolver"
)

// funcSig is the fixed shape of the function currently being flattened:
// its ArgsCount/UpvarsCount, needed to turn a resolver.BindingKind into a
// host slot number. It never changes within a single EmitFunction/
// EmitModule call, regardless of how many physical chunks the body ends
// up split into.
type funcSig struct {
	argsCount, upvarsCount uint32
}

// hostSlot computes the stack position a BindingKind would occupy in the
// entry chunk of the function described by sig, i.e. before any
// call-triggered chunk splitting. Slot 0 is always the function's own
// built value (self); arguments and upvars follow in their declared
// order; FunctionLocal slots come last and grow as lets are bound.
//
// ModuleBinding has no host slot: it is read and written through
// ModuleGet/ModuleAdd directly, the same in every chunk.
func hostSlot(sig funcSig, bk resolver.BindingKind) (slot uint32, ok bool) {
	switch b := bk.(type) {
	case resolver.CurrentFunction:
		return 0, true
	case resolver.Argument:
		return 1 + b.Index, true
	case resolver.Upvar:
		return 1 + sig.argsCount + b.Index, true
	case resolver.FunctionLocal:
		return 1 + sig.argsCount + sig.upvarsCount + b.Index, true
	default:
		return 0, false
	}
}

// getterItems returns the items that read bk's value and leave it on top
// of the operand stack.
func getterItems(bk resolver.BindingKind, sig funcSig) []item {
	if mb, ok := bk.(resolver.ModuleBinding); ok {
		return []item{
			push(machine.Symbol(mb.Name)),
			push(machine.Symbol(mb.ModuleID)),
			simple(machine.OpModuleGet),
		}
	}
	slot, ok := hostSlot(sig, bk)
	if !ok {
		panic("compiler: binding kind has neither a host slot nor a module location")
	}
	return []item{getItem{hostSlot: slot}}
}

// setterItems returns the items that pop the value currently on top of
// the operand stack and bind it to bk.
func setterItems(bk resolver.BindingKind, sig funcSig) []item {
	if mb, ok := bk.(resolver.ModuleBinding); ok {
		return []item{
			push(machine.Symbol(mb.Name)),
			push(machine.Symbol(mb.ModuleID)),
			simple(machine.OpModuleAdd),
		}
	}
	slot, ok := hostSlot(sig, bk)
	if !ok {
		panic("compiler: binding kind has neither a host slot nor a module location")
	}
	return []item{setItem{hostSlot: slot}}
}

// EmitModule compiles a complete bound module to its runnable entry
// function: argsCount 0, upvarsCount 0, suitable for machine.Thread.
// RunFunction. It runs every top-level statement in order, discarding any
// produced value, then pushes the empty map and terminates, matching the
// "module root" rule in the emitter's design.
func EmitModule(bm *resolver.BoundModule) *machine.Function {
	sig := funcSig{}
	var items []item
	for _, s := range bm.Statements {
		stmtItems, produces := flattenExpr(s, sig)
		items = append(items, stmtItems...)
		if produces {
			items = append(items, simple(machine.OpPop))
		}
	}
	items = append(items, simple(machine.OpMapEmpty))

	fr := newEntryFrame(sig, "<module "+bm.ModuleID+">")
	return compileBody(items, fr, []machine.Instruction{machine.Simple(machine.OpTerminate)})
}

// EmitFunction compiles a single bound function (named or anonymous) to
// its entry chunk. Chunks spawned by call sites within its body are
// embedded inline as Push operands in the returned Function's (or one of
// its descendant chunks') instructions; they are never surfaced on their
// own.
func EmitFunction(bf *resolver.BoundFunction) *machine.Function {
	sig := funcSig{argsCount: uint32(len(bf.Params)), upvarsCount: uint32(len(bf.Upvars))}
	items, produces := flattenExpr(bf.Body, sig)
	if !produces {
		items = append(items, simple(machine.OpMapEmpty))
	}

	name := bf.Name
	if name == "" {
		name = "<anonymous>"
	}
	fr := newEntryFrame(sig, name)
	return compileBody(items, fr, []machine.Instruction{machine.Simple(machine.OpResume)})
}
