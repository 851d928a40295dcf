// Package unroll duplicates the bodies of counted loops.
//
// A loop qualifies when its tail ends in a step update of an induction
// register, an ordered compare against a loop-invariant bound and a cbr back to
// the head, and its parent either enters through the same compare or runs
// straight into the head. The rewrite adds an unrolled copy of the loop that
// runs Factor iterations per trip while both the current and the
// Factor-steps-ahead induction values pass the compare and the step ahead does
// not wrap around int64, and falls back to the original loop for the remaining
// iterations. Loops that do not qualify are skipped without being touched.
package unroll

import (
	"strconv"

	"ilocopt/internal/cfg"
	"ilocopt/internal/graph"
	"ilocopt/internal/iloc"
	"ilocopt/internal/trace"
)

const (
	// DefaultFactor is the number of body copies per unrolled trip.
	DefaultFactor = 4
	// DefaultMaxBodyBlocks bounds the loops considered.
	DefaultMaxBodyBlocks = 20
)

// Options tune unrolling. Zero values pick the defaults.
type Options struct {
	Factor        int
	MaxBodyBlocks int

	Span *trace.Span // pass span the per-loop events hang off
}

func (o Options) normalized() Options {
	if o.Factor <= 0 {
		o.Factor = DefaultFactor
	}
	if o.MaxBodyBlocks <= 0 {
		o.MaxBodyBlocks = DefaultMaxBodyBlocks
	}
	return o
}

// Outcome records what happened to one detected loop.
type Outcome struct {
	Loop    graph.Loop
	Reason  SkipReason
	NewHead iloc.Label // head of the unrolled copy; NoLabel when skipped
}

// Unroller holds the block map and graphs while loops are rewritten.
type Unroller struct {
	opts   Options
	labels *iloc.LabelTable

	order   []iloc.Label // original blocks, program order
	blocks  map[iloc.Label][]iloc.Instruction
	next    map[iloc.Label]iloc.Label // fall-through successor in program order
	created []iloc.Label

	g   *graph.Graph
	rev *graph.Graph

	nextReg   iloc.Reg
	nextLabel int
}

// New splits prog into blocks keyed by label. The label table is cloned, so
// prog is never modified.
func New(prog iloc.Program, c *cfg.CFG, opts Options) *Unroller {
	prog = iloc.Program{Insts: prog.Insts, Labels: prog.Labels.Clone()}
	u := &Unroller{
		opts:    opts.normalized(),
		labels:  prog.Labels,
		order:   graph.BlockLabels(prog, c),
		blocks:  make(map[iloc.Label][]iloc.Instruction, c.NumBlocks()),
		next:    make(map[iloc.Label]iloc.Label, c.NumBlocks()),
		g:       graph.FromCFG(prog, c),
		nextReg: iloc.MaxReg(prog.Insts),
	}
	for i, b := range c.Blocks() {
		insts := make([]iloc.Instruction, b.Len())
		copy(insts, prog.Insts[b.Leader:b.Trailer+1])
		u.blocks[u.order[i]] = insts
		if i+1 < len(u.order) {
			u.next[u.order[i]] = u.order[i+1]
		}
	}
	u.rev = u.g.Reverse()
	return u
}

// Graph returns the current forward graph.
func (u *Unroller) Graph() *graph.Graph {
	return u.g
}

// Loops returns the loops of the current graph.
func (u *Unroller) Loops() []graph.Loop {
	return u.g.FindLoops()
}

// Program writes the blocks back: original blocks in program order, then the
// blocks created by Apply in creation order.
func (u *Unroller) Program() iloc.Program {
	var out []iloc.Instruction
	for _, v := range u.order {
		out = append(out, u.blocks[v]...)
	}
	if len(u.created) > 0 && len(out) > 0 {
		switch out[len(out)-1].Op.Code {
		case iloc.OpBr, iloc.OpCbr, iloc.OpHalt:
		default:
			// the original program ended here; keep it from running into new blocks
			out = append(out, iloc.Instruction{Op: iloc.Halt()})
		}
	}
	for _, v := range u.created {
		out = append(out, u.blocks[v]...)
	}
	return iloc.Program{Insts: out, Labels: u.labels}
}

// Run detects the loops of prog and unrolls every eligible one, in detection
// order. It returns the rewritten program and one Outcome per detected loop.
func Run(prog iloc.Program, c *cfg.CFG, opts Options) (iloc.Program, []Outcome) {
	u := New(prog, c, opts)
	loops := u.Loops()
	outcomes := make([]Outcome, 0, len(loops))
	for _, l := range loops {
		d := u.Decide(l)
		o := Outcome{Loop: l, Reason: d.Reason}
		if d.Eligible() {
			o.NewHead = u.Apply(d)
		}
		outcomes = append(outcomes, o)
		u.opts.Span.Point(trace.ScopeLoop, "loop", u.labels.Name(l.Head), map[string]string{
			"parent": u.labels.Name(l.Parent),
			"tail":   u.labels.Name(l.Tail),
			"reason": d.Reason.String(),
			"factor": strconv.Itoa(u.opts.Factor),
		})
	}
	return u.Program(), outcomes
}
