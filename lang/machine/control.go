package machine

// splice grafts left onto the bottom of right's chain, returning the new
// head. It walks to the tail of right (the first link whose Parent is
// nil) and attaches left there. Every link of right is copied on the way
// (withParent clones), so the original right chain is untouched; left's
// links are shared, not copied. left may be nil, in which case the result
// is a copy of right; right may be nil, in which case left is returned.
//
// This is the Go shape of the original machine's join_cont_chain: grafting
// always happens at the *right* argument's tail, never the left's.
func splice(left, right *Continuation) *Continuation {
	if right == nil {
		return left
	}
	if right.Parent == nil {
		return right.withParent(left)
	}
	return right.withParent(splice(left, right.Parent))
}

// split walks chain looking for the first link (nearest the head) tagged
// with tag. If found, it returns (upper, lower, true): upper is whatever
// sat below the tagged link (its former Parent, now detached) and lower
// is the chain from the head down to and including the tagged link, its
// own Parent severed so it can be reattached elsewhere (Shift puts its
// after-shift continuation in front of lower's head). If no link carries tag, found is
// false and the other two results are nil.
func split(chain *Continuation, tag Symbol) (upper, lower *Continuation, found bool) {
	if chain == nil {
		return nil, nil, false
	}
	if chain.Tag != nil && *chain.Tag == tag {
		return chain.Parent, chain.withParent(nil), true
	}
	hi, lo, ok := split(chain.Parent, tag)
	if !ok {
		return nil, nil, false
	}
	return hi, chain.withParent(lo), true
}

// shimFunction returns a fresh one-instruction function used as the body
// of the boundary continuation Reset installs: resuming it just resumes
// whatever continuation it is itself attached to, which is how control
// flows back out of a reset block once its tag is no longer reachable by
// any pending shift.
func shimFunction() *Function {
	return &Function{
		Name:         "<reset-shim>",
		Instructions: []Instruction{Simple(OpResume)},
		ArgsCount:    1,
		Upvars:       []Value{},
	}
}
