package compiler

import (
	"sort"

	"github.com/mna/nenuphar/lang/machine"
)

// frame accumulates one physical machine.Function chunk: either the entry
// chunk of a function/module, or a continuation chunk spawned at a call
// site. hostSlot maps a host slot (see hostSlot in compiler.go) to the
// physical stack position it occupies in this particular chunk; it is
// seeded differently depending on how the chunk was created (see
// newEntryFrame and spawnContinuation) and grows as lets are bound
// directly within it.
type frame struct {
	name        string
	code        []machine.Instruction
	argsCount   uint32
	upvarsCount uint32

	hostSlot map[uint32]uint32
	// base is the first physical slot available for a local declared
	// directly in this chunk; localsSoFar counts how many have been handed
	// out so far.
	base        uint32
	localsSoFar uint32
}

// newEntryFrame builds the frame for the entry chunk of a function (or
// module) with the given signature: self, arguments and upvars occupy
// exactly the slots their host numbering already implies, since the entry
// chunk's layout coincides with the host function's own layout for that
// prefix.
func newEntryFrame(sig funcSig, name string) *frame {
	fr := &frame{
		name:        name,
		argsCount:   sig.argsCount,
		upvarsCount: sig.upvarsCount,
		hostSlot:    map[uint32]uint32{},
		base:        1 + sig.argsCount + sig.upvarsCount,
	}
	for i := uint32(0); i <= sig.argsCount+sig.upvarsCount; i++ {
		fr.hostSlot[i] = i
	}
	return fr
}

// spawnContinuation builds the frame for a continuation chunk reached
// from fr at a call site, capturing every host slot currently live in fr
// (self, arguments, upvars, and any locals declared so far) as an upvar
// of the new chunk. This over-captures relative to a precise
// free-variable analysis of what the continuation's body actually
// references, but that is harmless: a few extra captured slots cost
// nothing but stack space, and over-capturing sidesteps needing to know a
// continuation's final shape before it is compiled.
//
// A continuation chunk always takes exactly one argument: the value it is
// resumed with. Slot 0 is its own built value (self), slot 1 the resumed
// value, and the captured upvars start at slot 2, in ascending host-slot
// order so the parent's capture-getter emission order matches the order
// BuildContinuation expects them popped in.
func (fr *frame) spawnContinuation() *frame {
	captured := make([]uint32, 0, len(fr.hostSlot))
	for hs := range fr.hostSlot {
		captured = append(captured, hs)
	}
	sort.Slice(captured, func(i, j int) bool { return captured[i] < captured[j] })

	child := &frame{
		name:        fr.name + ".cont",
		argsCount:   1,
		upvarsCount: uint32(len(captured)),
		hostSlot:    map[uint32]uint32{},
		base:        2 + uint32(len(captured)),
	}
	for i, hs := range captured {
		child.hostSlot[hs] = 2 + uint32(i)
	}
	// The resumed value arrives at slot 1, exactly where any other
	// argument would; fetch it onto the operand stack up front so the rest
	// of the chunk's body can treat it like any expression result.
	child.code = append(child.code, machine.GetFromStackPosition(1))
	return child
}

func (fr *frame) capturedHostSlots() []uint32 {
	captured := make([]uint32, 0, len(fr.hostSlot))
	for hs := range fr.hostSlot {
		captured = append(captured, hs)
	}
	sort.Slice(captured, func(i, j int) bool { return captured[i] < captured[j] })
	return captured
}

// resolveExisting returns the physical slot hostSlot currently occupies
// in fr; it panics if none exists, which would indicate a bug in the
// flatten/chunk split (a reference to a binding not captured and not yet
// declared in this chunk).
func (fr *frame) resolveExisting(hostSlot uint32) uint32 {
	slot, ok := fr.hostSlot[hostSlot]
	if !ok {
		panic("compiler: reference to a binding not live in this chunk")
	}
	return slot
}

// declareLocal allocates a fresh physical slot for hostSlot, the first
// time a let binds it directly within this chunk.
func (fr *frame) declareLocal(hostSlot uint32) uint32 {
	if slot, ok := fr.hostSlot[hostSlot]; ok {
		return slot
	}
	slot := fr.base + fr.localsSoFar
	fr.localsSoFar++
	fr.hostSlot[hostSlot] = slot
	return slot
}

func (fr *frame) emitResolved(it item) {
	switch v := it.(type) {
	case concreteItem:
		fr.code = append(fr.code, v.instr)
	case getItem:
		fr.code = append(fr.code, machine.GetFromStackPosition(fr.resolveExisting(v.hostSlot)))
	case setItem:
		fr.code = append(fr.code, machine.SetToStackPosition(fr.declareLocal(v.hostSlot)))
	case callItem:
		panic("compiler: callItem must be handled by compileBody, not emitResolved")
	}
}

func (fr *frame) build() *machine.Function {
	return &machine.Function{
		Name:         fr.name,
		Instructions: fr.code,
		ArgsCount:    fr.argsCount,
		UpvarsCount:  fr.upvarsCount,
		LocalsCount:  fr.localsSoFar,
	}
}

// firstCallIndex returns the position of the first callItem in items, if
// any. Since flattening proceeds in evaluation order and a call always
// terminates the chunk it occurs in, the first call found is always the
// innermost pending one: its target and argument items (everything before
// it) are guaranteed call-free.
func firstCallIndex(items []item) (idx int, arity uint32, found bool) {
	for i, it := range items {
		if c, ok := it.(callItem); ok {
			return i, c.arity, true
		}
	}
	return 0, 0, false
}

// compileBody turns items into a tree of physical machine.Function
// chunks, returning the entry chunk (fr). tail is the instruction
// sequence appended to whichever chunk turns out to be linearly last —
// []Resume for an ordinary function body, []Terminate for a module root —
// and is propagated unchanged into every continuation chunk spawned along
// the way, since a continuation is just the remainder of the same
// computation and ends the same way its host would have.
func compileBody(items []item, fr *frame, tail []machine.Instruction) *machine.Function {
	idx, arity, found := firstCallIndex(items)
	if !found {
		for _, it := range items {
			fr.emitResolved(it)
		}
		fr.code = append(fr.code, tail...)
		return fr.build()
	}

	rest := items[idx+1:]
	child := fr.spawnContinuation()
	contFn := compileBody(rest, child, tail)

	for _, hs := range child.capturedHostSlots() {
		fr.code = append(fr.code, machine.GetFromStackPosition(fr.resolveExisting(hs)))
	}
	fr.code = append(fr.code, machine.Push(contFn), machine.Simple(machine.OpBuildContinuation))

	for _, it := range items[:idx] {
		fr.emitResolved(it)
	}
	fr.code = append(fr.code, machine.Call(arity))
	return fr.build()
}
