// Package interp executes ILOC programs. It is the reference semantics the
// optimizer's passes are checked against.
//
// Registers hold int64 values and start at zero. Memory is byte addressed;
// word loads and stores move 4 bytes little endian, sign-extended on load.
// Comparisons yield 1 or 0 and cbr takes its first target on any non-zero
// value. and/or are bitwise, not is logical.
package interp

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"

	"fortio.org/safecast"

	"ilocopt/internal/iloc"
)

const (
	// DefaultMaxSteps bounds execution when Options.MaxSteps is zero.
	DefaultMaxSteps = 1 << 20
	// DefaultMemory is the memory size in bytes when Options.Memory is zero.
	DefaultMemory = 1 << 16

	wordSize = 4
)

// ErrStepLimit is returned when a program runs longer than allowed.
var ErrStepLimit = errors.New("step limit exceeded")

// Options configure a run.
type Options struct {
	Input    []int64            // consumed in order by read and cread
	Regs     map[iloc.Reg]int64 // initial register values
	MaxSteps int
	Memory   int
}

// RuntimeError reports a fault at a specific instruction.
type RuntimeError struct {
	Line int
	Op   iloc.Opcode
	Msg  string
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("line %d (%s): %s", e.Line, e.Op, e.Msg)
}

// Result is the machine state after a run.
type Result struct {
	Regs   map[iloc.Reg]int64
	Memory []byte
	Output []string
	Steps  int
}

type machine struct {
	prog   iloc.Program
	lines  map[iloc.Label]int
	regs   map[iloc.Reg]int64
	mem    []byte
	input  []int64
	output []string
}

// Run executes prog from line 0 until halt or the last line.
func Run(prog iloc.Program, opts Options) (*Result, error) {
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = DefaultMaxSteps
	}
	if opts.Memory <= 0 {
		opts.Memory = DefaultMemory
	}
	m := &machine{
		prog:  prog,
		lines: iloc.LabelLines(prog.Insts),
		regs:  make(map[iloc.Reg]int64, len(opts.Regs)),
		mem:   make([]byte, opts.Memory),
		input: opts.Input,
	}
	for r, v := range opts.Regs {
		m.regs[r] = v
	}
	if prog.Labels != nil && prog.Len() > 0 {
		m.lines[prog.Labels.Start()] = 0
	}

	pc, steps := 0, 0
	for pc < len(prog.Insts) {
		if steps == opts.MaxSteps {
			return m.result(steps), ErrStepLimit
		}
		steps++
		next, halt, err := m.step(pc)
		if err != nil {
			return m.result(steps), err
		}
		if halt {
			break
		}
		pc = next
	}
	return m.result(steps), nil
}

func (m *machine) result(steps int) *Result {
	return &Result{Regs: m.regs, Memory: m.mem, Output: m.output, Steps: steps}
}

func (m *machine) fault(pc int, format string, args ...any) error {
	return &RuntimeError{Line: pc, Op: m.prog.Insts[pc].Op.Code, Msg: fmt.Sprintf(format, args...)}
}

func (m *machine) step(pc int) (int, bool, error) {
	op := m.prog.Insts[pc].Op
	r := m.regs
	switch op.Code {
	case iloc.OpNop:
	case iloc.OpHalt:
		return pc, true, nil

	case iloc.OpAdd, iloc.OpSub, iloc.OpMult, iloc.OpDiv, iloc.OpLshift, iloc.OpRshift,
		iloc.OpAnd, iloc.OpOr:
		v, err := arith(op.Code, r[op.R0], r[op.R1])
		if err != nil {
			return 0, false, m.fault(pc, "%v", err)
		}
		r[op.R2] = v
	case iloc.OpAddI, iloc.OpSubI, iloc.OpMultI, iloc.OpDivI, iloc.OpLshiftI, iloc.OpRshiftI,
		iloc.OpAndI, iloc.OpOrI:
		v, err := arith(op.Code, r[op.R0], op.Const)
		if err != nil {
			return 0, false, m.fault(pc, "%v", err)
		}
		r[op.R2] = v
	case iloc.OpNot:
		r[op.R2] = b2i(r[op.R0] == 0)
	case iloc.OpCmpLT:
		r[op.R2] = b2i(r[op.R0] < r[op.R1])
	case iloc.OpCmpLE:
		r[op.R2] = b2i(r[op.R0] <= r[op.R1])
	case iloc.OpCmpGT:
		r[op.R2] = b2i(r[op.R0] > r[op.R1])
	case iloc.OpCmpGE:
		r[op.R2] = b2i(r[op.R0] >= r[op.R1])
	case iloc.OpCmpEQ:
		r[op.R2] = b2i(r[op.R0] == r[op.R1])
	case iloc.OpCmpNE:
		r[op.R2] = b2i(r[op.R0] != r[op.R1])

	case iloc.OpLoadI:
		r[op.R2] = op.Const
	case iloc.OpI2I, iloc.OpC2C, iloc.OpC2I:
		r[op.R2] = r[op.R0]
	case iloc.OpI2C:
		r[op.R2] = r[op.R0] & 0xff

	case iloc.OpLoad, iloc.OpLoadAI, iloc.OpLoadAO, iloc.OpCload, iloc.OpCloadAI, iloc.OpCloadAO:
		v, err := m.load(op)
		if err != nil {
			return 0, false, m.fault(pc, "%v", err)
		}
		r[op.R2] = v
	case iloc.OpStore, iloc.OpStoreAI, iloc.OpStoreAO, iloc.OpCstore, iloc.OpCstoreAI, iloc.OpCstoreAO:
		if err := m.store(op); err != nil {
			return 0, false, m.fault(pc, "%v", err)
		}

	case iloc.OpBr:
		return m.jump(pc, op.Target1)
	case iloc.OpCbr:
		if r[op.R0] != 0 {
			return m.jump(pc, op.Target1)
		}
		return m.jump(pc, op.Target2)

	case iloc.OpRead, iloc.OpCread:
		if len(m.input) == 0 {
			return 0, false, m.fault(pc, "input exhausted")
		}
		v := m.input[0]
		m.input = m.input[1:]
		if op.Code == iloc.OpCread {
			v &= 0xff
		}
		r[op.R2] = v
	case iloc.OpOutput, iloc.OpCoutput:
		wide := op.Code == iloc.OpOutput
		v, err := m.read(op.Const, wide)
		if err != nil {
			return 0, false, m.fault(pc, "%v", err)
		}
		m.emit(v, wide)
	case iloc.OpWrite:
		m.emit(r[op.R0], true)
	case iloc.OpCwrite:
		m.emit(r[op.R0]&0xff, false)

	default:
		return 0, false, m.fault(pc, "unknown opcode")
	}
	return pc + 1, false, nil
}

func (m *machine) jump(pc int, l iloc.Label) (int, bool, error) {
	line, ok := m.lines[l]
	if !ok {
		return 0, false, m.fault(pc, "branch to undefined label %s", m.prog.Labels.Name(l))
	}
	return line, false, nil
}

func (m *machine) emit(v int64, wide bool) {
	if wide {
		m.output = append(m.output, strconv.FormatInt(v, 10))
		return
	}
	m.output = append(m.output, string(rune(byte(v))))
}

func arith(code iloc.Opcode, a, b int64) (int64, error) {
	switch code {
	case iloc.OpAdd, iloc.OpAddI:
		return a + b, nil
	case iloc.OpSub, iloc.OpSubI:
		return a - b, nil
	case iloc.OpMult, iloc.OpMultI:
		return a * b, nil
	case iloc.OpDiv, iloc.OpDivI:
		if b == 0 {
			return 0, errors.New("division by zero")
		}
		return a / b, nil
	case iloc.OpLshift, iloc.OpLshiftI, iloc.OpRshift, iloc.OpRshiftI:
		if b < 0 {
			return 0, fmt.Errorf("negative shift %d", b)
		}
		if code == iloc.OpLshift || code == iloc.OpLshiftI {
			return a << uint64(b), nil
		}
		return a >> uint64(b), nil
	case iloc.OpAnd, iloc.OpAndI:
		return a & b, nil
	case iloc.OpOr, iloc.OpOrI:
		return a | b, nil
	}
	return 0, fmt.Errorf("%s is not arithmetic", code)
}

func b2i(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// address resolves the effective address of a memory operation.
func (m *machine) address(base, off int64, wide bool) (int, error) {
	a, err := safecast.Conv[int](base + off)
	if err != nil {
		return 0, fmt.Errorf("address %d: %w", base+off, err)
	}
	size := 1
	if wide {
		size = wordSize
	}
	if a < 0 || a+size > len(m.mem) {
		return 0, fmt.Errorf("address %d out of bounds", a)
	}
	return a, nil
}

func (m *machine) read(addr int64, wide bool) (int64, error) {
	a, err := m.address(addr, 0, wide)
	if err != nil {
		return 0, err
	}
	if wide {
		return int64(int32(binary.LittleEndian.Uint32(m.mem[a:]))), nil //nolint:gosec // two's complement reinterpretation
	}
	return int64(m.mem[a]), nil
}

func (m *machine) load(op iloc.Operation) (int64, error) {
	base, off := m.regs[op.R0], int64(0)
	switch op.Code {
	case iloc.OpLoadAI, iloc.OpCloadAI:
		off = op.Const
	case iloc.OpLoadAO, iloc.OpCloadAO:
		off = m.regs[op.R1]
	}
	wide := op.Code == iloc.OpLoad || op.Code == iloc.OpLoadAI || op.Code == iloc.OpLoadAO
	return m.read(base+off, wide)
}

func (m *machine) store(op iloc.Operation) error {
	base, off := m.regs[op.R1], int64(0)
	switch op.Code {
	case iloc.OpStoreAI, iloc.OpCstoreAI:
		off = op.Const
	case iloc.OpStoreAO, iloc.OpCstoreAO:
		off = m.regs[op.R2]
	}
	wide := op.Code == iloc.OpStore || op.Code == iloc.OpStoreAI || op.Code == iloc.OpStoreAO
	a, err := m.address(base, off, wide)
	if err != nil {
		return err
	}
	v := m.regs[op.R0]
	if wide {
		binary.LittleEndian.PutUint32(m.mem[a:], uint32(v)) //nolint:gosec // truncation to the word size
		return nil
	}
	m.mem[a] = byte(v)
	return nil
}
