package machine

import "fmt"

// Thread runs a single compiled Function to completion. It is not safe
// for concurrent use from multiple goroutines, matching the original
// machine's own single-use-per-run contract: there is no call stack to
// protect, but the operand stack, the instruction pointer and the active
// continuation chain are all mutable fields of the Thread itself.
//
// Modules persists across RunFunction calls on the same Thread, so a
// module that defines bindings another, later-run module depends on can
// share one Thread to do so; DebugValues accumulates across calls the
// same way.
type Thread struct {
	Modules *ModuleStore

	stackCapacityHint uint32

	debugValues []Value

	current      *Function
	ip           uint32
	stack        []Value
	continuation *Continuation
}

// NewThread returns a Thread with a fresh ModuleStore sized per cfg.
// cfg.StackCapacityHint sizes the scratch headroom setupCall reserves
// beyond each frame's own slot count, so a program whose expressions push
// deep intermediate results doesn't immediately force a reallocation of
// the operand stack on its first few calls.
func NewThread(cfg Config) *Thread {
	return &Thread{
		Modules:           NewModuleStore(cfg.ModuleCapacityHint),
		stackCapacityHint: cfg.StackCapacityHint,
	}
}

// DebugValues returns every value appended by a Debug instruction so far,
// across every RunFunction call made on this Thread.
func (th *Thread) DebugValues() []Value { return th.debugValues }

// RunFunction runs f to completion. f must be a template (ArgsCount == 0,
// UpvarsCount == 0, Upvars == nil): the toplevel entry point a compiler
// produces for a module, never a function that itself takes arguments or
// captures an environment. It clones f into a built function with an
// empty Upvars slice, installs a boundary continuation whose sole
// instruction is Terminate, and runs the fetch/decode/dispatch loop until
// a Terminate instruction executes (f's own, or the boundary
// continuation's once it is resumed into) or an error occurs.
func (th *Thread) RunFunction(f *Function) (Value, error) {
	if f.ArgsCount != 0 {
		return nil, &ArityMismatchError{Expected: 0, Actual: f.ArgsCount}
	}
	if f.UpvarsCount != 0 {
		return nil, &ArityMismatchError{Expected: 0, Actual: f.UpvarsCount}
	}
	built := f.withUpvars([]Value{})
	terminate := &Function{
		Name:         "<terminate>",
		Instructions: []Instruction{Simple(OpTerminate)},
		ArgsCount:    1,
		Upvars:       []Value{},
	}
	th.continuation = &Continuation{Function: terminate}
	if err := th.setupCall(built, nil); err != nil {
		return nil, err
	}
	return th.run()
}

func (th *Thread) run() (Value, error) {
	for {
		v, done, err := th.step()
		if err != nil {
			return nil, err
		}
		if done {
			return v, nil
		}
	}
}

// step decodes and executes the single instruction at the current
// instruction pointer. It returns (value, true, nil) once a Terminate
// instruction has produced the thread's final result.
func (th *Thread) step() (Value, bool, error) {
	if int(th.ip) >= len(th.current.Instructions) {
		return nil, false, &RanOutOfInstructionsError{}
	}
	instr := th.current.Instructions[th.ip]
	th.ip++

	switch instr.Op {
	case OpAdd:
		return nil, false, th.arith(addF, addI)
	case OpSub:
		return nil, false, th.arith(subF, subI)
	case OpMul:
		return nil, false, th.arith(mulF, mulI)
	case OpDiv:
		return nil, false, th.arith(divF, divI)

	case OpPush:
		th.push(instr.Operand)
		return nil, false, nil

	case OpGetFromStackPosition:
		v, err := th.getPos(instr.N)
		if err != nil {
			return nil, false, err
		}
		th.push(v)
		return nil, false, nil

	case OpSetToStackPosition:
		v, err := th.pop()
		if err != nil {
			return nil, false, err
		}
		if err := th.setPos(instr.N, v); err != nil {
			return nil, false, err
		}
		return nil, false, nil

	case OpPop:
		_, err := th.pop()
		return nil, false, err

	case OpDup:
		v, err := th.peek()
		if err != nil {
			return nil, false, err
		}
		th.push(v)
		return nil, false, nil

	case OpSwap:
		a, err := th.pop()
		if err != nil {
			return nil, false, err
		}
		b, err := th.pop()
		if err != nil {
			return nil, false, err
		}
		th.push(a)
		th.push(b)
		return nil, false, nil

	case OpDebug:
		v, err := th.pop()
		if err != nil {
			return nil, false, err
		}
		th.debugValues = append(th.debugValues, v)
		return nil, false, nil

	case OpBuildFunction, OpBuildContinuation:
		return nil, false, th.buildFunctionOrContinuation(instr.Op)

	case OpCall:
		return nil, false, th.call(instr.N)

	case OpTerminate:
		v, err := th.pop()
		if err != nil {
			return nil, false, err
		}
		return v, true, nil

	case OpCurrentContinuation:
		return nil, false, th.pushCurrentContinuation()

	case OpInstallContinuation:
		return nil, false, th.installContinuation()

	case OpCurrentFunction:
		th.push(th.current)
		return nil, false, nil

	case OpReset:
		return nil, false, th.reset()

	case OpShift:
		return nil, false, th.shift()

	case OpResume:
		return nil, false, th.resume()

	case OpModuleAdd:
		return nil, false, th.moduleAdd()

	case OpModuleGet:
		return nil, false, th.moduleGet()

	case OpMapEmpty:
		th.push(NewMap())
		return nil, false, nil

	case OpMapInsert:
		return nil, false, th.mapInsert()

	case OpMapGet:
		return nil, false, th.mapGet()

	default:
		return nil, false, fmt.Errorf("machine: unknown opcode %d", instr.Op)
	}
}

func addF(a, b float64) float64 { return a + b }
func subF(a, b float64) float64 { return a - b }
func mulF(a, b float64) float64 { return a * b }
func divF(a, b float64) float64 { return a / b }
func addI(a, b int64) int64     { return a + b }
func subI(a, b int64) int64     { return a - b }
func mulI(a, b int64) int64     { return a * b }
func divI(a, b int64) int64     { return a / b }

func (th *Thread) push(v Value) { th.stack = append(th.stack, v) }

func (th *Thread) pop() (Value, error) {
	if len(th.stack) == 0 {
		return nil, &StackUnderflowError{}
	}
	v := th.stack[len(th.stack)-1]
	th.stack = th.stack[:len(th.stack)-1]
	return v, nil
}

func (th *Thread) peek() (Value, error) {
	if len(th.stack) == 0 {
		return nil, &StackUnderflowError{}
	}
	return th.stack[len(th.stack)-1], nil
}

// popN pops and returns the top n values, in the order they were pushed
// (the first of the n pushed is index 0 of the result), mirroring the
// original machine's ResultVec::pop_n.
func (th *Thread) popN(n uint32) ([]Value, error) {
	if uint32(len(th.stack)) < n {
		return nil, &StackUnderflowError{}
	}
	idx := len(th.stack) - int(n)
	vs := append([]Value(nil), th.stack[idx:]...)
	th.stack = th.stack[:idx]
	return vs, nil
}

func (th *Thread) getPos(pos uint32) (Value, error) {
	if int(pos) >= len(th.stack) {
		return nil, &StackOverflowError{Position: pos}
	}
	return th.stack[pos], nil
}

func (th *Thread) setPos(pos uint32, v Value) error {
	if int(pos) >= len(th.stack) {
		return &StackOverflowError{Position: pos}
	}
	th.stack[pos] = v
	return nil
}

func (th *Thread) arith(fop func(a, b float64) float64, iop func(a, b int64) int64) error {
	r, err := th.pop()
	if err != nil {
		return err
	}
	l, err := th.pop()
	if err != nil {
		return err
	}
	v, err := arith(fop, iop, l, r)
	if err != nil {
		return err
	}
	th.push(v)
	return nil
}

// setupCall clears the operand stack down to a fresh frame for f: its own
// built value at slot 0, then args, then f.Upvars, then LocalsCount filler
// slots, matching the original machine's setup_new_function. args may be
// nil for a nullary function.
func (th *Thread) setupCall(f *Function, args []Value) error {
	if f.ArgsCount != uint32(len(args)) {
		return &ArityMismatchError{Expected: f.ArgsCount, Actual: uint32(len(args))}
	}
	frameSize := 1 + len(args) + len(f.Upvars) + int(f.LocalsCount)
	stack := make([]Value, 0, frameSize+int(th.stackCapacityHint))
	stack = append(stack, f)
	stack = append(stack, args...)
	stack = append(stack, f.Upvars...)
	for i := uint32(0); i < f.LocalsCount; i++ {
		// Never observed by a correctly emitted program: every local is Set
		// before any Get reaches it. Int(0) is an arbitrary, cheap filler.
		stack = append(stack, Int(0))
	}
	th.stack = stack
	th.current = f
	th.ip = 0
	return nil
}

// buildFunctionOrContinuation implements BuildFunction/BuildContinuation:
// pop a template, pop its declared number of upvars off the stack
// (preserving push order), and clone the template with them attached.
// BuildContinuation additionally wraps the built function as a
// Continuation parented to nothing yet; Call attaches it to the current
// chain.
func (th *Thread) buildFunctionOrContinuation(op Op) error {
	tmplV, err := th.pop()
	if err != nil {
		return err
	}
	tmpl, err := AsFunction(tmplV)
	if err != nil {
		return err
	}
	upvars, err := th.popN(tmpl.UpvarsCount)
	if err != nil {
		return err
	}
	built := tmpl.withUpvars(upvars)
	if op == OpBuildFunction {
		th.push(built)
		return nil
	}
	th.push(&Continuation{Function: built})
	return nil
}

// call implements Call(n): pop n arguments, the callee, and a
// continuation, in that order (so the operand stack reads bottom-to-top
// as [continuation, callee, arg_0..arg_{n-1}]). The popped continuation
// is parented onto whatever is currently active and becomes the new
// active continuation; the callee then replaces the running function.
func (th *Thread) call(n uint32) error {
	args, err := th.popN(n)
	if err != nil {
		return err
	}
	calleeV, err := th.pop()
	if err != nil {
		return err
	}
	callee, err := AsFunction(calleeV)
	if err != nil {
		return err
	}
	contV, err := th.pop()
	if err != nil {
		return err
	}
	cont, err := AsContinuation(contV)
	if err != nil {
		return err
	}
	th.continuation = cont.withParent(th.continuation)
	return th.setupCall(callee, args)
}

func (th *Thread) pushCurrentContinuation() error {
	if th.continuation == nil {
		return &ContinueWithoutContinuationError{}
	}
	th.push(th.continuation)
	return nil
}

// installContinuation implements InstallContinuation: pop a continuation
// and splice the currently active chain onto its bottom, making the popped
// continuation's head the new active continuation.
func (th *Thread) installContinuation() error {
	cV, err := th.pop()
	if err != nil {
		return err
	}
	c, err := AsContinuation(cV)
	if err != nil {
		return err
	}
	th.continuation = splice(th.continuation, c)
	return nil
}

// reset implements Reset: pop a tag, a body function, and an after-reset
// continuation. The active chain becomes a boundary continuation tagged
// with tag (its body a bare Resume, the "shim"), parented onto the
// after-reset continuation spliced onto whatever chain was active before,
// and the body function then runs with no arguments.
func (th *Thread) reset() error {
	tagV, err := th.pop()
	if err != nil {
		return err
	}
	tag, err := AsSymbol(tagV)
	if err != nil {
		return err
	}
	bodyV, err := th.pop()
	if err != nil {
		return err
	}
	body, err := AsFunction(bodyV)
	if err != nil {
		return err
	}
	afterResetV, err := th.pop()
	if err != nil {
		return err
	}
	afterReset, err := AsContinuation(afterResetV)
	if err != nil {
		return err
	}

	inner := splice(th.continuation, afterReset)
	shim := &Continuation{Function: shimFunction(), Tag: &tag}
	th.continuation = splice(inner, shim)
	return th.setupCall(body, nil)
}

// shift implements Shift: pop a tag, a handler function, and an
// after-shift continuation. The active chain is split at the nearest
// link tagged with tag; everything below that link becomes the new
// active continuation, everything from the head down to and including
// the tagged link (itself now severed) is handed to the handler as a
// single Continuation argument, with the after-shift continuation placed
// in front of its head so resuming it first continues exactly where the
// shift occurred.
func (th *Thread) shift() error {
	tagV, err := th.pop()
	if err != nil {
		return err
	}
	tag, err := AsSymbol(tagV)
	if err != nil {
		return err
	}
	handlerV, err := th.pop()
	if err != nil {
		return err
	}
	handler, err := AsFunction(handlerV)
	if err != nil {
		return err
	}
	afterShiftV, err := th.pop()
	if err != nil {
		return err
	}
	afterShift, err := AsContinuation(afterShiftV)
	if err != nil {
		return err
	}

	upper, lower, found := split(th.continuation, tag)
	if !found {
		return &TagNotFoundError{Tag: tag}
	}
	th.continuation = upper
	captured := afterShift.withParent(lower)
	return th.setupCall(handler, []Value{captured})
}

// resume implements Resume: pop the active continuation, making its
// Parent the new active one, then invoke its Function with the value
// currently on top of the operand stack as its sole argument.
func (th *Thread) resume() error {
	if th.continuation == nil {
		return &ContinueWithoutContinuationError{}
	}
	c := th.continuation
	th.continuation = c.Parent
	v, err := th.pop()
	if err != nil {
		return err
	}
	return th.setupCall(c.Function, []Value{v})
}

func (th *Thread) moduleAdd() error {
	moduleV, err := th.pop()
	if err != nil {
		return err
	}
	module, err := AsSymbol(moduleV)
	if err != nil {
		return err
	}
	nameV, err := th.pop()
	if err != nil {
		return err
	}
	name, err := AsSymbol(nameV)
	if err != nil {
		return err
	}
	value, err := th.pop()
	if err != nil {
		return err
	}
	th.Modules.Add(module, name, value)
	return nil
}

func (th *Thread) moduleGet() error {
	moduleV, err := th.pop()
	if err != nil {
		return err
	}
	module, err := AsSymbol(moduleV)
	if err != nil {
		return err
	}
	nameV, err := th.pop()
	if err != nil {
		return err
	}
	name, err := AsSymbol(nameV)
	if err != nil {
		return err
	}
	v, ok := th.Modules.Get(module, name)
	if !ok {
		return &NoModuleDefinitionError{Module: module, Definition: name}
	}
	th.push(v)
	return nil
}

func (th *Thread) mapInsert() error {
	mapV, err := th.pop()
	if err != nil {
		return err
	}
	m, err := AsMap(mapV)
	if err != nil {
		return err
	}
	v, err := th.pop()
	if err != nil {
		return err
	}
	k, err := th.pop()
	if err != nil {
		return err
	}
	th.push(m.Insert(k, v))
	return nil
}

func (th *Thread) mapGet() error {
	kV, err := th.pop()
	if err != nil {
		return err
	}
	mapV, err := th.pop()
	if err != nil {
		return err
	}
	m, err := AsMap(mapV)
	if err != nil {
		return err
	}
	v, ok := m.Get(kV)
	if !ok {
		return &KeyNotFoundError{Key: kV}
	}
	th.push(v)
	return nil
}
