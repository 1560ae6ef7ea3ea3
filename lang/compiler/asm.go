package compiler

import (
	"fmt"
	"io"

	"github.com/mna/nenuphar/lang/machine"
	"gopkg.in/yaml.v3"
)

// Program is the serializable form of a compiled machine.Function: a
// pseudo-assembly encoding, in the spirit of the teacher compiler
// package's own stated purpose, that round-trips through YAML rather than
// a packed binary format. It only ever carries templates (Upvars is
// always empty): a Program is something a compiler produces and a thread
// later builds, never a closure captured mid-run.
type Program struct {
	Entry *ProgramFunction `yaml:"entry"`
}

// ProgramFunction is one machine.Function's serializable shape.
type ProgramFunction struct {
	Name         string               `yaml:"name"`
	ArgsCount    uint32               `yaml:"args_count"`
	UpvarsCount  uint32               `yaml:"upvars_count"`
	LocalsCount  uint32               `yaml:"locals_count"`
	Instructions []ProgramInstruction `yaml:"instructions"`
}

// ProgramInstruction is one machine.Instruction's serializable shape.
// Operand is a discriminated union: at most one of its fields is set, per
// the OperandKind the instruction's Op implies (Push of a function
// operand nests a ProgramFunction; every other Push operand is a literal
// scalar).
type ProgramInstruction struct {
	Op Op     `yaml:"op"`
	N  uint32 `yaml:"n,omitempty"`

	IntOperand      *int64           `yaml:"int_operand,omitempty"`
	FloatOperand    *float64         `yaml:"float_operand,omitempty"`
	SymbolOperand   *string          `yaml:"symbol_operand,omitempty"`
	FunctionOperand *ProgramFunction `yaml:"function_operand,omitempty"`
}

// Op mirrors machine.Op with its own yaml-friendly string encoding, so a
// persisted Program survives an Op renumbering in the machine package
// (declaration order there fixes the numeric values; only the name is
// serialized here).
type Op string

func (o Op) toMachine() (machine.Op, error) {
	op, ok := opByName[string(o)]
	if !ok {
		return 0, fmt.Errorf("compiler: unknown opcode %q", o)
	}
	return op, nil
}

func opToProgram(op machine.Op) Op { return Op(op.String()) }

var opByName = func() map[string]machine.Op {
	m := make(map[string]machine.Op, len(machine.AllOps))
	for _, op := range machine.AllOps {
		m[op.String()] = op
	}
	return m
}()

// Encode compiles fn into a Program and writes its YAML encoding to w.
func Encode(w io.Writer, fn *machine.Function) error {
	p := Program{Entry: toProgramFunction(fn)}
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(p)
}

// Decode reads a YAML-encoded Program from r and rebuilds its entry
// function as a machine.Function template.
func Decode(r io.Reader) (*machine.Function, error) {
	var p Program
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&p); err != nil {
		return nil, err
	}
	if p.Entry == nil {
		return nil, fmt.Errorf("compiler: program has no entry function")
	}
	return fromProgramFunction(p.Entry)
}

func toProgramFunction(fn *machine.Function) *ProgramFunction {
	pf := &ProgramFunction{
		Name:        fn.Name,
		ArgsCount:   fn.ArgsCount,
		UpvarsCount: fn.UpvarsCount,
		LocalsCount: fn.LocalsCount,
	}
	for _, instr := range fn.Instructions {
		pf.Instructions = append(pf.Instructions, toProgramInstruction(instr))
	}
	return pf
}

func toProgramInstruction(instr machine.Instruction) ProgramInstruction {
	pi := ProgramInstruction{Op: opToProgram(instr.Op), N: instr.N}
	switch v := instr.Operand.(type) {
	case nil:
	case machine.Int:
		n := int64(v)
		pi.IntOperand = &n
	case machine.Float:
		f := float64(v)
		pi.FloatOperand = &f
	case machine.Symbol:
		s := string(v)
		pi.SymbolOperand = &s
	case *machine.Function:
		pi.FunctionOperand = toProgramFunction(v)
	default:
		panic(fmt.Sprintf("compiler: cannot serialize operand of type %T", v))
	}
	return pi
}

func fromProgramFunction(pf *ProgramFunction) (*machine.Function, error) {
	fn := &machine.Function{
		Name:        pf.Name,
		ArgsCount:   pf.ArgsCount,
		UpvarsCount: pf.UpvarsCount,
		LocalsCount: pf.LocalsCount,
	}
	for _, pi := range pf.Instructions {
		instr, err := fromProgramInstruction(pi)
		if err != nil {
			return nil, err
		}
		fn.Instructions = append(fn.Instructions, instr)
	}
	return fn, nil
}

func fromProgramInstruction(pi ProgramInstruction) (machine.Instruction, error) {
	op, err := pi.Op.toMachine()
	if err != nil {
		return machine.Instruction{}, err
	}
	instr := machine.Instruction{Op: op, N: pi.N}
	switch {
	case pi.IntOperand != nil:
		instr.Operand = machine.Int(*pi.IntOperand)
	case pi.FloatOperand != nil:
		instr.Operand = machine.Float(*pi.FloatOperand)
	case pi.SymbolOperand != nil:
		instr.Operand = machine.Symbol(*pi.SymbolOperand)
	case pi.FunctionOperand != nil:
		fn, err := fromProgramFunction(pi.FunctionOperand)
		if err != nil {
			return machine.Instruction{}, err
		}
		instr.Operand = fn
	}
	return instr, nil
}
