package machine_test

import (
	"testing"

	"github.com/mna/nenuphar/lang/machine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// entry builds a zero-arg, zero-upvar module entry function running instrs,
// suitable for RunFunction.
func entry(instrs ...machine.Instruction) *machine.Function {
	return &machine.Function{Name: "<test-entry>", Instructions: instrs}
}

func TestRunLiteralReturn(t *testing.T) {
	fn := entry(
		machine.Push(machine.Int(42)),
		machine.Simple(machine.OpTerminate),
	)
	th := machine.NewThread(machine.DefaultConfig())
	v, err := th.RunFunction(fn)
	require.NoError(t, err)
	assert.Equal(t, machine.Int(42), v)
}

func TestRunArithmetic(t *testing.T) {
	fn := entry(
		machine.Push(machine.Int(5)),
		machine.Push(machine.Int(2)),
		machine.Simple(machine.OpAdd),
		machine.Simple(machine.OpTerminate),
	)
	th := machine.NewThread(machine.DefaultConfig())
	v, err := th.RunFunction(fn)
	require.NoError(t, err)
	assert.Equal(t, machine.Int(7), v)
}

func TestRunSwap(t *testing.T) {
	fn := entry(
		machine.Push(machine.Int(1)),
		machine.Push(machine.Int(2)),
		machine.Simple(machine.OpSwap),
		machine.Simple(machine.OpSub),
		machine.Simple(machine.OpTerminate),
	)
	th := machine.NewThread(machine.DefaultConfig())
	v, err := th.RunFunction(fn)
	require.NoError(t, err)
	// swap(1,2) -> stack [2,1]; sub pops top(1) as r, then 2 as l -> 2-1
	assert.Equal(t, machine.Int(1), v)
}

func TestRunArityMismatch(t *testing.T) {
	fn := &machine.Function{
		Name:        "<bad-entry>",
		ArgsCount:   1,
		Instructions: []machine.Instruction{machine.Simple(machine.OpTerminate)},
	}
	th := machine.NewThread(machine.DefaultConfig())
	_, err := th.RunFunction(fn)
	require.Error(t, err)
	var arityErr *machine.ArityMismatchError
	require.ErrorAs(t, err, &arityErr)
}

func TestRunCallAndResume(t *testing.T) {
	// Entry builds a continuation that forwards its resumed value straight
	// to Terminate, then calls a callee that adds 1 to its argument and
	// resumes into that continuation. Call's own bookkeeping parents the
	// built continuation onto the thread's current one (the boundary
	// Terminate continuation RunFunction installs), so no explicit
	// CurrentContinuation capture is needed here.
	callee := &machine.Function{
		Name:      "add1",
		ArgsCount: 1,
		Instructions: []machine.Instruction{
			machine.GetFromStackPosition(1),
			machine.Push(machine.Int(1)),
			machine.Simple(machine.OpAdd),
			machine.Simple(machine.OpResume),
		},
	}
	contTmpl := &machine.Function{
		Name:      "<after-call>",
		ArgsCount: 1,
		Instructions: []machine.Instruction{
			machine.GetFromStackPosition(1),
			machine.Simple(machine.OpResume),
		},
	}
	fn := entry(
		machine.Push(contTmpl),
		machine.Simple(machine.OpBuildContinuation),
		machine.Push(callee),
		machine.Push(machine.Int(41)),
		machine.Call(1),
	)
	th := machine.NewThread(machine.DefaultConfig())
	v, err := th.RunFunction(fn)
	require.NoError(t, err)
	assert.Equal(t, machine.Int(42), v)
}

func TestShiftAndTagNotFound(t *testing.T) {
	fn := entry(
		machine.Simple(machine.OpCurrentContinuation),
		machine.Push(&machine.Function{Name: "handler", ArgsCount: 1, Instructions: []machine.Instruction{
			machine.Simple(machine.OpResume),
		}}),
		machine.Push(machine.Symbol("missing-tag")),
		machine.Simple(machine.OpShift),
	)
	th := machine.NewThread(machine.DefaultConfig())
	_, err := th.RunFunction(fn)
	require.Error(t, err)
	var tagErr *machine.TagNotFoundError
	require.ErrorAs(t, err, &tagErr)
}

// Reset installs a tagged boundary around body. body immediately shifts
// back to that tag, handing the handler a continuation representing
// "whatever runs next in body" grafted onto the captured delimited
// segment. The handler installs that continuation as active and resumes
// it with 100, which should flow straight out through the reset boundary
// to the module's result.
func TestResetShiftResume(t *testing.T) {
	tag := machine.Symbol("my-tag")

	afterShiftTmpl := &machine.Function{
		Name:      "<after-shift>",
		ArgsCount: 1,
		Instructions: []machine.Instruction{
			machine.GetFromStackPosition(1),
			machine.Simple(machine.OpResume),
		},
	}

	// handler(k) = install k as the active continuation, then resume it
	// with 100.
	handler := &machine.Function{
		Name:      "handler",
		ArgsCount: 1,
		Instructions: []machine.Instruction{
			machine.GetFromStackPosition(1),
			machine.Simple(machine.OpInstallContinuation),
			machine.Push(machine.Int(100)),
			machine.Simple(machine.OpResume),
		},
	}

	// body() = shift(tag, handler), with an explicit "resume point"
	// continuation built fresh rather than reusing the reset boundary.
	body := &machine.Function{
		Name: "body",
		Instructions: []machine.Instruction{
			machine.Push(afterShiftTmpl),
			machine.Simple(machine.OpBuildContinuation),
			machine.Push(handler),
			machine.Push(machine.Value(tag)),
			machine.Simple(machine.OpShift),
		},
	}

	afterResetTmpl := &machine.Function{
		Name:      "<after-reset>",
		ArgsCount: 1,
		Instructions: []machine.Instruction{
			machine.GetFromStackPosition(1),
			machine.Simple(machine.OpResume),
		},
	}

	fn := entry(
		machine.Push(afterResetTmpl),
		machine.Simple(machine.OpBuildContinuation),
		machine.Push(body),
		machine.Push(machine.Value(tag)),
		machine.Simple(machine.OpReset),
	)
	th := machine.NewThread(machine.DefaultConfig())
	v, err := th.RunFunction(fn)
	require.NoError(t, err)
	assert.Equal(t, machine.Int(100), v)
}

func TestMapRoundTrip(t *testing.T) {
	// MapInsert pops, in order, the map (top), the value, then the key:
	// push key, then value, then the map last so it ends up on top.
	fn := entry(
		machine.Push(machine.Symbol("k")),
		machine.Push(machine.Int(7)),
		machine.Simple(machine.OpMapEmpty),
		machine.Simple(machine.OpMapInsert),
		machine.Push(machine.Symbol("k")),
		machine.Simple(machine.OpMapGet),
		machine.Simple(machine.OpTerminate),
	)
	th := machine.NewThread(machine.DefaultConfig())
	v, err := th.RunFunction(fn)
	require.NoError(t, err)
	assert.Equal(t, machine.Int(7), v)
}

func TestMapGetMissingKey(t *testing.T) {
	fn := entry(
		machine.Simple(machine.OpMapEmpty),
		machine.Push(machine.Symbol("missing")),
		machine.Simple(machine.OpMapGet),
		machine.Simple(machine.OpTerminate),
	)
	th := machine.NewThread(machine.DefaultConfig())
	_, err := th.RunFunction(fn)
	require.Error(t, err)
	var keyErr *machine.KeyNotFoundError
	require.ErrorAs(t, err, &keyErr)
}

func TestModuleAddGetRoundTrip(t *testing.T) {
	fn := entry(
		machine.Push(machine.Int(9)),
		machine.Push(machine.Symbol("x")),
		machine.Push(machine.Symbol("mod")),
		machine.Simple(machine.OpModuleAdd),
		machine.Push(machine.Symbol("x")),
		machine.Push(machine.Symbol("mod")),
		machine.Simple(machine.OpModuleGet),
		machine.Simple(machine.OpTerminate),
	)
	th := machine.NewThread(machine.DefaultConfig())
	v, err := th.RunFunction(fn)
	require.NoError(t, err)
	assert.Equal(t, machine.Int(9), v)
}

func TestModuleGetUndefined(t *testing.T) {
	fn := entry(
		machine.Push(machine.Symbol("x")),
		machine.Push(machine.Symbol("mod")),
		machine.Simple(machine.OpModuleGet),
		machine.Simple(machine.OpTerminate),
	)
	th := machine.NewThread(machine.DefaultConfig())
	_, err := th.RunFunction(fn)
	require.Error(t, err)
	var noDef *machine.NoModuleDefinitionError
	require.ErrorAs(t, err, &noDef)
}

func TestRanOutOfInstructions(t *testing.T) {
	fn := entry(machine.Push(machine.Int(1)))
	th := machine.NewThread(machine.DefaultConfig())
	_, err := th.RunFunction(fn)
	require.Error(t, err)
	var ranOut *machine.RanOutOfInstructionsError
	require.ErrorAs(t, err, &ranOut)
}

func TestStackUnderflow(t *testing.T) {
	fn := entry(machine.Simple(machine.OpAdd))
	th := machine.NewThread(machine.DefaultConfig())
	_, err := th.RunFunction(fn)
	require.Error(t, err)
	var underflow *machine.StackUnderflowError
	require.ErrorAs(t, err, &underflow)
}
