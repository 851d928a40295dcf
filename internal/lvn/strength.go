package lvn

import (
	"math/bits"

	"ilocopt/internal/iloc"
)

// reduceStrength rewrites multI by zero into loadI 0 and multI by 2^k (k >= 1)
// into lshiftI k. Other operations are returned unchanged. divI is left
// alone: it truncates toward zero while rshiftI rounds toward minus infinity.
func reduceStrength(op iloc.Operation) (iloc.Operation, bool) {
	if op.Code != iloc.OpMultI {
		return op, false
	}
	c := op.Const
	switch {
	case c == 0:
		return iloc.LoadImm(0, op.R2), true
	case c > 1 && c&(c-1) == 0:
		k := int64(bits.TrailingZeros64(uint64(c)))
		return iloc.Immediate(iloc.OpLshiftI, op.R0, k, op.R2), true
	}
	return op, false
}
