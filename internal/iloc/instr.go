package iloc

// Reg is a virtual register number; r5 is Reg(5).
type Reg uint32

// Operation is a single computation or control transfer.
// Which fields are meaningful depends on Code (see Class).
//
//	class 0      R0, R1 => R2
//	class 1      R0, Const => R2
//	class 2, 5   R0 => R2
//	load/cload   R0 => R2;  loadAI R0, Const => R2;  loadAO R0, R1 => R2;  read => R2
//	loadI        Const => R2
//	store        R0 => R1;  storeAI R0 => R1, Const;  storeAO R0 => R1, R2
//	br           -> Target1;  cbr R0 -> Target1, Target2
//	output       Const;  write R0
type Operation struct {
	Code    Opcode
	R0      Reg
	R1      Reg
	R2      Reg
	Const   int64
	Target1 Label
	Target2 Label
}

// Nop returns the no-op operation.
func Nop() Operation { return Operation{Code: OpNop} }

// Halt returns the halt operation.
func Halt() Operation { return Operation{Code: OpHalt} }

// Binary builds a class 0 operation: a, b => dst.
func Binary(code Opcode, a, b, dst Reg) Operation {
	return Operation{Code: code, R0: a, R1: b, R2: dst}
}

// Immediate builds a class 1 operation: a, c => dst.
func Immediate(code Opcode, a Reg, c int64, dst Reg) Operation {
	return Operation{Code: code, R0: a, Const: c, R2: dst}
}

// Unary builds a reg => reg operation (conversions, not, load).
func Unary(code Opcode, a, dst Reg) Operation {
	return Operation{Code: code, R0: a, R2: dst}
}

// Copy builds i2i src => dst.
func Copy(src, dst Reg) Operation {
	return Unary(OpI2I, src, dst)
}

// LoadImm builds loadI c => dst.
func LoadImm(c int64, dst Reg) Operation {
	return Operation{Code: OpLoadI, Const: c, R2: dst}
}

// Branch builds br -> target.
func Branch(target Label) Operation {
	return Operation{Code: OpBr, Target1: target}
}

// CondBranch builds cbr cond -> taken, notTaken.
func CondBranch(cond Reg, taken, notTaken Label) Operation {
	return Operation{Code: OpCbr, R0: cond, Target1: taken, Target2: notTaken}
}

// Def returns the register written by op.
func (op Operation) Def() (Reg, bool) {
	switch op.Code.Class() {
	case ClassBinary, ClassImmediate, ClassConvert, ClassLoad, ClassLoadImm, ClassNot:
		return op.R2, true
	}
	return 0, false
}

// Uses returns the registers read by op, in operand order.
func (op Operation) Uses() []Reg {
	switch op.Code {
	case OpLoadI, OpRead, OpCread, OpNop, OpHalt, OpBr, OpOutput, OpCoutput:
		return nil
	case OpLoadAO, OpCloadAO, OpStore, OpStoreAI, OpCstore, OpCstoreAI:
		return []Reg{op.R0, op.R1}
	case OpStoreAO, OpCstoreAO:
		return []Reg{op.R0, op.R1, op.R2}
	}
	switch op.Code.Class() {
	case ClassBinary:
		return []Reg{op.R0, op.R1}
	default:
		return []Reg{op.R0}
	}
}

// Targets returns the branch targets of op.
func (op Operation) Targets() []Label {
	switch op.Code {
	case OpBr:
		return []Label{op.Target1}
	case OpCbr:
		return []Label{op.Target1, op.Target2}
	}
	return nil
}

// Retarget returns a copy of op with every branch target passed through fn.
func (op Operation) Retarget(fn func(Label) Label) Operation {
	switch op.Code {
	case OpBr:
		op.Target1 = fn(op.Target1)
	case OpCbr:
		op.Target1 = fn(op.Target1)
		op.Target2 = fn(op.Target2)
	}
	return op
}

// Instruction pairs an optional block-entry label with an operation.
// Instructions are values; assigning one copies it entirely.
type Instruction struct {
	Label Label
	Op    Operation
}

// Labeled reports whether the instruction starts with a label.
func (in Instruction) Labeled() bool {
	return in.Label != NoLabel
}

// Unlabeled returns the instruction without its label.
func (in Instruction) Unlabeled() Instruction {
	in.Label = NoLabel
	return in
}

// Program is the unit passed between passes.
type Program struct {
	Insts  []Instruction
	Labels *LabelTable
}

// NewProgram wraps insts with a label table, creating one when labels is nil.
func NewProgram(insts []Instruction, labels *LabelTable) Program {
	if labels == nil {
		labels = NewLabelTable()
	}
	return Program{Insts: insts, Labels: labels}
}

// Clone returns an independent copy of the program.
func (p Program) Clone() Program {
	insts := make([]Instruction, len(p.Insts))
	copy(insts, p.Insts)
	var labels *LabelTable
	if p.Labels != nil {
		labels = p.Labels.Clone()
	}
	return Program{Insts: insts, Labels: labels}
}

// Len returns the number of instructions.
func (p Program) Len() int {
	return len(p.Insts)
}

// MaxReg returns one past the largest register number mentioned in any slot.
func MaxReg(insts []Instruction) Reg {
	var next Reg
	for _, in := range insts {
		for _, r := range [...]Reg{in.Op.R0, in.Op.R1, in.Op.R2} {
			if r+1 > next {
				next = r + 1
			}
		}
	}
	return next
}

// LabelLines maps each label to the line it is attached to; later definitions win.
func LabelLines(insts []Instruction) map[Label]int {
	lines := make(map[Label]int)
	for i, in := range insts {
		if in.Labeled() {
			lines[in.Label] = i
		}
	}
	return lines
}
