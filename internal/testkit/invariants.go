package testkit

import (
	"fmt"

	"ilocopt/internal/cfg"
	"ilocopt/internal/iloc"
	"ilocopt/internal/source"
)

// CheckPartition runs the basic block invariants on a CFG:
// 1) blocks cover every line with no gaps or overlaps, in program order
// 2) every branch target line is a leader
// 3) every leader other than line 0 is a branch target
func CheckPartition(prog iloc.Program, c *cfg.CFG) error {
	if c == nil {
		return fmt.Errorf("nil cfg")
	}
	n := len(prog.Insts)
	blocks := c.Blocks()
	if n == 0 {
		if len(blocks) != 0 {
			return fmt.Errorf("empty program has %d blocks", len(blocks))
		}
		return nil
	}

	// 1) contiguous cover
	next := 0
	for i, b := range blocks {
		if b.Leader != next {
			return fmt.Errorf("block %d starts at %d, want %d", i, b.Leader, next)
		}
		if b.Trailer < b.Leader {
			return fmt.Errorf("block %d is empty: %v", i, b)
		}
		for line := b.Leader; line <= b.Trailer; line++ {
			if c.BlockOf(line) != i {
				return fmt.Errorf("line %d maps to block %d, want %d", line, c.BlockOf(line), i)
			}
		}
		next = b.Trailer + 1
	}
	if next != n {
		return fmt.Errorf("blocks end at %d, program has %d lines", next, n)
	}

	// 2) targets are leaders, 3) leaders are targets
	leaders := make(map[int]bool, len(blocks))
	for _, b := range blocks {
		leaders[b.Leader] = true
	}
	lines := iloc.LabelLines(prog.Insts)
	targeted := map[int]bool{0: true}
	for i, in := range prog.Insts {
		for _, t := range in.Op.Targets() {
			line, ok := lines[t]
			if !ok {
				return fmt.Errorf("line %d: unresolved target", i)
			}
			if !leaders[line] {
				return fmt.Errorf("line %d: target line %d is not a leader", i, line)
			}
			targeted[line] = true
		}
	}
	for l := range leaders {
		if !targeted[l] {
			return fmt.Errorf("leader %d is not a branch target", l)
		}
	}
	return nil
}

// CheckSpans verifies that instruction spans are non-empty, inside the file and ordered.
func CheckSpans(spans []source.Span, sf *source.File) error {
	if sf == nil {
		return fmt.Errorf("nil file")
	}
	var prevEnd uint32
	for i, sp := range spans {
		if sp.File != sf.ID {
			return fmt.Errorf("span %d file mismatch: got=%d want=%d", i, sp.File, sf.ID)
		}
		if sp.End <= sp.Start {
			return fmt.Errorf("span %d is empty: %v", i, sp)
		}
		if int(sp.End) > len(sf.Content) {
			return fmt.Errorf("span %d ends beyond content: %v", i, sp)
		}
		if sp.Start < prevEnd {
			return fmt.Errorf("span %d overlaps previous: %v", i, sp)
		}
		prevEnd = sp.End
	}
	return nil
}
