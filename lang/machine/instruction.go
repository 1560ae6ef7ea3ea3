package machine

// Op identifies a single bytecode instruction.
type Op int

const (
	OpAdd Op = iota
	OpSub
	OpMul
	OpDiv

	OpPush
	OpGetFromStackPosition
	OpSetToStackPosition
	OpPop
	OpDup
	OpSwap

	OpDebug

	OpBuildFunction
	OpBuildContinuation
	OpCall
	OpTerminate

	OpCurrentContinuation
	OpInstallContinuation
	OpCurrentFunction
	OpReset
	OpShift
	OpResume

	OpModuleAdd
	OpModuleGet

	OpMapEmpty
	OpMapInsert
	OpMapGet
)

var opNames = map[Op]string{
	OpAdd:                  "add",
	OpSub:                  "sub",
	OpMul:                  "mul",
	OpDiv:                  "div",
	OpPush:                 "push",
	OpGetFromStackPosition: "get_from_stack_position",
	OpSetToStackPosition:   "set_to_stack_position",
	OpPop:                  "pop",
	OpDup:                  "dup",
	OpSwap:                 "swap",
	OpDebug:                "debug",
	OpBuildFunction:        "build_function",
	OpBuildContinuation:    "build_continuation",
	OpCall:                 "call",
	OpTerminate:            "terminate",
	OpCurrentContinuation:  "current_continuation",
	OpInstallContinuation:  "install_continuation",
	OpCurrentFunction:      "current_function",
	OpReset:                "reset",
	OpShift:                "shift",
	OpResume:               "resume",
	OpModuleAdd:            "module_add",
	OpModuleGet:            "module_get",
	OpMapEmpty:             "map_empty",
	OpMapInsert:            "map_insert",
	OpMapGet:               "map_get",
}

// AllOps lists every Op, in declaration order; used by the compiler
// package to build a name-to-Op table for deserializing a persisted
// Program without depending on Op's numeric encoding.
var AllOps = []Op{
	OpAdd, OpSub, OpMul, OpDiv,
	OpPush, OpGetFromStackPosition, OpSetToStackPosition, OpPop, OpDup, OpSwap,
	OpDebug,
	OpBuildFunction, OpBuildContinuation, OpCall, OpTerminate,
	OpCurrentContinuation, OpInstallContinuation, OpCurrentFunction, OpReset, OpShift, OpResume,
	OpModuleAdd, OpModuleGet,
	OpMapEmpty, OpMapInsert, OpMapGet,
}

func (op Op) String() string {
	if s, ok := opNames[op]; ok {
		return s
	}
	return "unknown"
}

// Instruction is one bytecode instruction. Only the fields relevant to Op
// are meaningful: Operand carries the literal pushed by Push (an Int,
// Float, Symbol or a *Function template); N carries the stack position
// for GetFromStackPosition/SetToStackPosition or the argument count for
// Call.
type Instruction struct {
	Op      Op
	Operand Value
	N       uint32
}

// Push returns a Push instruction for the given literal.
func Push(v Value) Instruction { return Instruction{Op: OpPush, Operand: v} }

// GetFromStackPosition returns an instruction reading the operand stack
// slot at pos and pushing a copy of it.
func GetFromStackPosition(pos uint32) Instruction {
	return Instruction{Op: OpGetFromStackPosition, N: pos}
}

// SetToStackPosition returns an instruction popping the top of the
// operand stack into slot pos.
func SetToStackPosition(pos uint32) Instruction {
	return Instruction{Op: OpSetToStackPosition, N: pos}
}

// Call returns a Call instruction expecting argCount arguments on top of
// the callee and continuation on the operand stack.
func Call(argCount uint32) Instruction { return Instruction{Op: OpCall, N: argCount} }

// Simple returns a zero-operand instruction for op.
func Simple(op Op) Instruction { return Instruction{Op: op} }
