// Package emit renders ILOC programs in the fixed text format the optimizer
// reads and writes.
//
// One line per instruction: "label:\t" or "\t", the mnemonic, then operands.
// Registers print as rN, constants in decimal, "=>" before destinations and
// "->" before branch targets. Every program ends with an extra "\thalt" line.
package emit

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"ilocopt/internal/iloc"
)

// Instruction renders in without the trailing newline.
func Instruction(in iloc.Instruction, labels *iloc.LabelTable) string {
	var sb strings.Builder
	writeInstruction(&sb, in, labels)
	return sb.String()
}

// Program writes every instruction of prog followed by the closing halt.
func Program(w io.Writer, prog iloc.Program) error {
	bw := bufio.NewWriter(w)
	var sb strings.Builder
	for _, in := range prog.Insts {
		sb.Reset()
		writeInstruction(&sb, in, prog.Labels)
		sb.WriteByte('\n')
		if _, err := bw.WriteString(sb.String()); err != nil {
			return err
		}
	}
	if _, err := bw.WriteString("\thalt\n"); err != nil {
		return err
	}
	return bw.Flush()
}

// String returns what Program would write.
func String(prog iloc.Program) string {
	var sb strings.Builder
	_ = Program(&sb, prog) //nolint:errcheck // strings.Builder never fails
	return sb.String()
}

func writeInstruction(sb *strings.Builder, in iloc.Instruction, labels *iloc.LabelTable) {
	if in.Labeled() {
		sb.WriteString(labels.Name(in.Label))
		sb.WriteString(":")
	}
	sb.WriteByte('\t')

	op := in.Op
	sb.WriteString(op.Code.String())
	if op.Code == iloc.OpNop || op.Code == iloc.OpHalt {
		return
	}
	sb.WriteByte(' ')

	reg := func(r iloc.Reg) {
		sb.WriteByte('r')
		sb.WriteString(strconv.FormatUint(uint64(r), 10))
	}
	num := func(c int64) {
		sb.WriteString(strconv.FormatInt(c, 10))
	}
	label := func(l iloc.Label) {
		sb.WriteString(labels.Name(l))
	}

	switch op.Code {
	case iloc.OpRead, iloc.OpCread:
		sb.WriteString("=> ")
		reg(op.R2)
	case iloc.OpLoadAI, iloc.OpCloadAI:
		reg(op.R0)
		sb.WriteString(", ")
		num(op.Const)
		sb.WriteString(" => ")
		reg(op.R2)
	case iloc.OpLoadAO, iloc.OpCloadAO:
		reg(op.R0)
		sb.WriteString(", ")
		reg(op.R1)
		sb.WriteString(" => ")
		reg(op.R2)
	case iloc.OpStore, iloc.OpCstore:
		reg(op.R0)
		sb.WriteString(" => ")
		reg(op.R1)
	case iloc.OpStoreAI, iloc.OpCstoreAI:
		reg(op.R0)
		sb.WriteString(" => ")
		reg(op.R1)
		sb.WriteString(", ")
		num(op.Const)
	case iloc.OpStoreAO, iloc.OpCstoreAO:
		reg(op.R0)
		sb.WriteString(" => ")
		reg(op.R1)
		sb.WriteString(", ")
		reg(op.R2)
	case iloc.OpBr:
		sb.WriteString("-> ")
		label(op.Target1)
	case iloc.OpCbr:
		reg(op.R0)
		sb.WriteString(" -> ")
		label(op.Target1)
		sb.WriteString(", ")
		label(op.Target2)
	case iloc.OpOutput, iloc.OpCoutput:
		num(op.Const)
	case iloc.OpWrite, iloc.OpCwrite:
		reg(op.R0)
	default:
		switch op.Code.Class() {
		case iloc.ClassBinary:
			reg(op.R0)
			sb.WriteString(", ")
			reg(op.R1)
		case iloc.ClassImmediate:
			reg(op.R0)
			sb.WriteString(", ")
			num(op.Const)
		case iloc.ClassLoadImm:
			num(op.Const)
		default: // conversions, not, load, cload
			reg(op.R0)
		}
		sb.WriteString(" => ")
		reg(op.R2)
	}
}
