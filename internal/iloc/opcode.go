package iloc

// Opcode identifies an ILOC operation.
type Opcode uint8

const (
	OpNop Opcode = iota
	OpAdd
	OpAddI
	OpSub
	OpSubI
	OpMult
	OpMultI
	OpDiv
	OpDivI
	OpLshift
	OpLshiftI
	OpRshift
	OpRshiftI
	OpAnd
	OpAndI
	OpOr
	OpOrI
	OpNot

	OpLoadI
	OpLoad
	OpLoadAI
	OpLoadAO
	OpCload
	OpCloadAI
	OpCloadAO
	OpStore
	OpStoreAI
	OpStoreAO
	OpCstore
	OpCstoreAI
	OpCstoreAO
	OpI2I
	OpC2C
	OpI2C
	OpC2I

	OpBr
	OpCbr
	OpCmpLT
	OpCmpLE
	OpCmpGT
	OpCmpGE
	OpCmpEQ
	OpCmpNE
	OpHalt

	OpRead
	OpCread
	OpOutput
	OpCoutput
	OpWrite
	OpCwrite

	numOpcodes
)

// Class groups opcodes by operand shape.
type Class uint8

const (
	// ClassBinary is {reg,reg}->reg arithmetic and comparison.
	ClassBinary Class = 0
	// ClassImmediate is {reg,const}->reg arithmetic.
	ClassImmediate Class = 1
	// ClassConvert is reg->reg conversion.
	ClassConvert Class = 2
	// ClassLoad is {reg[,reg|const]}->reg loads and reads.
	ClassLoad Class = 3
	// ClassLoadImm is const->reg.
	ClassLoadImm Class = 4
	// ClassNot is reg->reg logical not.
	ClassNot Class = 5
	// ClassOther covers stores, branches, IO, halt and nop.
	ClassOther Class = 9
)

var opcodeNames = [numOpcodes]string{
	"nop", "add", "addI", "sub", "subI", "mult", "multI", "div", "divI",
	"lshift", "lshiftI", "rshift", "rshiftI", "and", "andI", "or", "orI",
	"not", "loadI", "load", "loadAI", "loadAO", "cload", "cloadAI", "cloadAO",
	"store", "storeAI", "storeAO", "cstore", "cstoreAI", "cstoreAO",
	"i2i", "c2c", "i2c", "c2i", "br", "cbr", "cmp_LT", "cmp_LE", "cmp_GT",
	"cmp_GE", "cmp_EQ", "cmp_NE", "halt", "read", "cread", "output",
	"coutput", "write", "cwrite",
}

var opcodeClasses = [numOpcodes]Class{
	9, 0, 1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 1, 5, 4, 3,
	3, 3, 3, 3, 3, 9, 9, 9, 9, 9, 9, 2, 2, 2, 2, 9, 9, 0, 0, 0,
	0, 0, 0, 9, 3, 3, 9, 9, 9, 9,
}

var opcodeByName = func() map[string]Opcode {
	m := make(map[string]Opcode, numOpcodes)
	for i, name := range opcodeNames {
		m[name] = Opcode(i) //nolint:gosec // G115: bounded by numOpcodes
	}
	return m
}()

// LookupOpcode resolves a mnemonic; ok is false for unknown names.
func LookupOpcode(name string) (Opcode, bool) {
	op, ok := opcodeByName[name]
	return op, ok
}

// String returns the ILOC mnemonic.
func (op Opcode) String() string {
	if op >= numOpcodes {
		return "op?"
	}
	return opcodeNames[op]
}

// Class returns the operand-shape class of op.
func (op Opcode) Class() Class {
	if op >= numOpcodes {
		return ClassOther
	}
	return opcodeClasses[op]
}

// Numerable reports whether value numbering can assign op's result a reusable value.
func (op Opcode) Numerable() bool {
	switch op.Class() {
	case ClassBinary, ClassImmediate, ClassConvert, ClassLoadImm, ClassNot:
		return true
	}
	return false
}

// IsBranch reports whether op transfers control to a label.
func (op Opcode) IsBranch() bool {
	return op == OpBr || op == OpCbr
}

// IsCompare reports whether op is one of the cmp_* opcodes.
func (op Opcode) IsCompare() bool {
	return op >= OpCmpLT && op <= OpCmpNE
}

// IsOrderedCompare reports whether op is cmp_LT, cmp_LE, cmp_GT or cmp_GE.
func (op Opcode) IsOrderedCompare() bool {
	return op >= OpCmpLT && op <= OpCmpGE
}

// IsCommutative reports whether swapping the two register operands keeps the result.
func (op Opcode) IsCommutative() bool {
	switch op {
	case OpAdd, OpMult, OpAnd, OpOr, OpCmpEQ, OpCmpNE:
		return true
	}
	return false
}

// Mirror returns the comparison that yields the same result with swapped operands.
func (op Opcode) Mirror() (Opcode, bool) {
	switch op {
	case OpCmpLT:
		return OpCmpGT, true
	case OpCmpGT:
		return OpCmpLT, true
	case OpCmpLE:
		return OpCmpGE, true
	case OpCmpGE:
		return OpCmpLE, true
	case OpCmpEQ, OpCmpNE:
		return op, true
	}
	return op, false
}

// IsMulDiv reports whether op is a multiply or divide in register or immediate form.
func (op Opcode) IsMulDiv() bool {
	switch op {
	case OpMult, OpMultI, OpDiv, OpDivI:
		return true
	}
	return false
}

// IsStepUpdate reports whether op may serve as a loop induction update.
func (op Opcode) IsStepUpdate() bool {
	switch op {
	case OpAddI, OpSubI, OpMultI, OpDivI, OpLshiftI, OpRshiftI:
		return true
	}
	return false
}

// IsMultiplicativeStep reports whether repeated application of op compounds the step.
func (op Opcode) IsMultiplicativeStep() bool {
	return op == OpMultI || op == OpDivI
}
