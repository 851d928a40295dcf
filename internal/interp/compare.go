package interp

import (
	"bytes"
	"fmt"
	"slices"

	"ilocopt/internal/iloc"
)

// Diff compares two results: output, memory, and every register below limit.
// Registers at or above limit are scratch space a pass may introduce.
func Diff(want, got *Result, limit iloc.Reg) error {
	if !slices.Equal(want.Output, got.Output) {
		return fmt.Errorf("output differs: want %q, got %q", want.Output, got.Output)
	}
	if !bytes.Equal(want.Memory, got.Memory) {
		for i := range want.Memory {
			if i >= len(got.Memory) || want.Memory[i] != got.Memory[i] {
				return fmt.Errorf("memory differs at byte %d", i)
			}
		}
		return fmt.Errorf("memory size differs: want %d, got %d", len(want.Memory), len(got.Memory))
	}
	for r := iloc.Reg(0); r < limit; r++ {
		if want.Regs[r] != got.Regs[r] {
			return fmt.Errorf("r%d differs: want %d, got %d", r, want.Regs[r], got.Regs[r])
		}
	}
	return nil
}
