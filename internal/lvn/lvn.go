// Package lvn implements local value numbering over ILOC basic blocks.
//
// Each block is numbered on its own. Values are keyed by register, constant or
// expression tag; an instruction whose destination already holds the computed
// value is removed, a recomputation of a value some register still holds becomes
// an i2i copy, and multiply/divide results are saved into a temporary when the
// defining register is overwritten before a later reuse.
package lvn

import (
	"strconv"

	"ilocopt/internal/cfg"
	"ilocopt/internal/iloc"
	"ilocopt/internal/trace"
)

// Options tune value numbering.
type Options struct {
	// StrictOperandOrder hashes non-commutative expressions with their operand
	// order kept, so sub r1,r2 and sub r2,r1 get different tags. When false every
	// class 0 opcode is treated as commutative.
	StrictOperandOrder bool
	// StrengthReduce rewrites multI by 0 or by a power of two before numbering.
	StrengthReduce bool

	Span *trace.Span // pass span the per-block events hang off
}

// Stats counts what a run changed.
type Stats struct {
	Removed         int // instructions dropped as no-ops
	Copied          int // recomputations replaced by i2i
	Memoized        int // temporaries saved for multiply/divide reuse
	Renamed         int // destinations overwritten with a different value
	StrengthReduced int
}

// Add accumulates o into s.
func (s *Stats) Add(o Stats) {
	s.Removed += o.Removed
	s.Copied += o.Copied
	s.Memoized += o.Memoized
	s.Renamed += o.Renamed
	s.StrengthReduced += o.StrengthReduced
}

// Changed reports whether the run rewrote anything.
func (s Stats) Changed() bool {
	return s.Removed+s.Copied+s.Memoized+s.StrengthReduced > 0
}

// Run numbers every block of prog and returns the rewritten program.
// c must be the CFG of prog. The input program is not modified.
func Run(prog iloc.Program, c *cfg.CFG, opts Options) (iloc.Program, Stats) {
	out := make([]iloc.Instruction, 0, len(prog.Insts))
	temps := iloc.MaxReg(prog.Insts)
	var total Stats
	for i, b := range c.Blocks() {
		insts, st := numberBlock(prog.Insts[b.Leader:b.Trailer+1], temps, opts)
		out = append(out, insts...)
		total.Add(st)
		if st.Changed() {
			opts.Span.Point(trace.ScopeBlock, "block", strconv.Itoa(i), map[string]string{
				"leader":  strconv.Itoa(b.Leader),
				"removed": strconv.Itoa(st.Removed),
				"copied":  strconv.Itoa(st.Copied),
				"memo":    strconv.Itoa(st.Memoized),
			})
		}
	}
	return iloc.Program{Insts: out, Labels: prog.Labels}, total
}
