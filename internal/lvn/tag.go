package lvn

import "ilocopt/internal/iloc"

// ValueID numbers a distinct value within one block. Zero means "no operand".
type ValueID uint32

// Tag is the hash key of a computed expression.
type Tag struct {
	Op    iloc.Opcode
	Lo    ValueID
	Hi    ValueID
	Const ValueID
}

// ExprTag builds the tag of op applied to register values a, b and constant
// value c. Register operands are ordered so a+b and b+a share a tag.
// Immediate forms pass b = 0, single-operand forms pass b = c = 0.
func ExprTag(op iloc.Opcode, a, b, c ValueID) Tag {
	if a > b {
		a, b = b, a
	}
	return Tag{Op: op, Lo: a, Hi: b, Const: c}
}

// strictTag is ExprTag that only swaps operands when the result is unchanged:
// commutative opcodes are sorted, ordered compares are mirrored, everything
// else keeps operand order.
func strictTag(op iloc.Opcode, a, b, c ValueID) Tag {
	if op.Class() != iloc.ClassBinary || op.IsCommutative() {
		return ExprTag(op, a, b, c)
	}
	if m, ok := op.Mirror(); ok && a > b {
		return Tag{Op: m, Lo: b, Hi: a, Const: c}
	}
	return Tag{Op: op, Lo: a, Hi: b, Const: c}
}
