package unroll

import (
	"fmt"
	"math"
	"slices"

	"ilocopt/internal/graph"
	"ilocopt/internal/iloc"
)

// SkipReason says why a loop was left alone. Eligible means it was not.
type SkipReason uint8

const (
	Eligible SkipReason = iota
	// TailPattern: the tail does not end in step update, ordered compare, cbr to the head.
	TailPattern
	// BodyTooLarge: more blocks than Options.MaxBodyBlocks reach the tail.
	BodyTooLarge
	// StartInBody: the body reaches START without passing the head.
	StartInBody
	// ParentInBody: the parent is itself part of the body.
	ParentInBody
	// InductionWritten: the induction register has another definition in the body.
	InductionWritten
	// BoundWritten: the loop bound register is defined in the body.
	BoundWritten
	// ParentShape: the parent neither enters the head unconditionally nor ends
	// in the tail's compare and a cbr into the head.
	ParentShape
	// StepSign: a multiplicative step is not positive or a shift is negative.
	StepSign
	// StepOverflow: the scaled step does not fit.
	StepOverflow
	// LabelCollision: a generated label already names a block.
	LabelCollision
)

var reasonNames = [...]string{
	Eligible:         "eligible",
	TailPattern:      "tail-pattern",
	BodyTooLarge:     "body-too-large",
	StartInBody:      "start-in-body",
	ParentInBody:     "parent-in-body",
	InductionWritten: "induction-written",
	BoundWritten:     "bound-written",
	ParentShape:      "parent-shape",
	StepSign:         "step-sign",
	StepOverflow:     "step-overflow",
	LabelCollision:   "label-collision",
}

func (r SkipReason) String() string {
	if int(r) < len(reasonNames) {
		return reasonNames[r]
	}
	return fmt.Sprintf("SkipReason(%d)", r)
}

// Decision is the result of checking one loop. When Reason is Eligible the
// loop can be rewritten; ParCond is set for a guarded parent, Lead for an
// unguarded one.
type Decision struct {
	Loop   graph.Loop
	Reason SkipReason

	Body      []iloc.Label // vertex order, head and tail included
	Induction iloc.Reg
	Bound     iloc.Reg
	Cond      iloc.Reg // tail compare result
	ParCond   iloc.Reg // parent compare result
	Inc       iloc.Operation
	Cmp       iloc.Operation
	Exit      iloc.Label // tail cbr fall-out target
	Scaled    int64      // induction step for Factor iterations
	Lead      int64      // induction step for Factor-1 iterations
	Base      int        // first label counter value the rewrite uses

	// Unguarded is set when the parent falls through or branches into the
	// head without a compare, so the first iteration always runs.
	Unguarded bool
}

// Eligible reports whether the loop can be unrolled.
func (d Decision) Eligible() bool {
	return d.Reason == Eligible
}

func (d Decision) skip(r SkipReason) Decision {
	d.Reason = r
	return d
}

// Decide checks loop against the current blocks and graph. It never changes
// state; a skipped loop stays exactly as it was.
func (u *Unroller) Decide(loop graph.Loop) Decision {
	d := Decision{Loop: loop, Base: u.nextLabel}
	tail := u.blocks[loop.Tail]

	// step update, compare, cbr
	n := len(tail)
	if n < 3 {
		return d.skip(TailPattern)
	}
	inc, cmp, br := tail[n-3].Op, tail[n-2].Op, tail[n-1].Op
	if br.Code != iloc.OpCbr || !cmp.Code.IsOrderedCompare() || !inc.Code.IsStepUpdate() {
		return d.skip(TailPattern)
	}
	ri := inc.R2
	if inc.R0 != ri {
		return d.skip(TailPattern)
	}
	switch {
	case cmp.R0 == ri && cmp.R1 != ri:
		d.Bound = cmp.R1
	case cmp.R1 == ri && cmp.R0 != ri:
		d.Bound = cmp.R0
	default:
		return d.skip(TailPattern)
	}
	rc := cmp.R2
	if rc == ri || rc == d.Bound || br.R0 != rc || br.Target1 != loop.Head || br.Target2 == loop.Head {
		return d.skip(TailPattern)
	}
	d.Induction, d.Cond, d.Inc, d.Cmp, d.Exit = ri, rc, inc, cmp, br.Target2

	scaled, r := scaleStep(inc.Code, inc.Const, u.opts.Factor)
	if r != Eligible {
		return d.skip(r)
	}
	d.Scaled = scaled

	d.Body = graph.LoopBody(u.rev, loop.Head, loop.Tail)
	if len(d.Body) > u.opts.MaxBodyBlocks {
		return d.skip(BodyTooLarge)
	}
	if slices.Contains(d.Body, u.labels.Start()) {
		return d.skip(StartInBody)
	}
	if slices.Contains(d.Body, loop.Parent) {
		return d.skip(ParentInBody)
	}

	for _, v := range d.Body {
		for i, in := range u.blocks[v] {
			def, ok := in.Op.Def()
			if !ok {
				continue
			}
			if def == ri && (v != loop.Tail || i != n-3) {
				return d.skip(InductionWritten)
			}
			if def == d.Bound {
				return d.skip(BoundWritten)
			}
		}
	}

	par := u.blocks[loop.Parent]
	last := par[len(par)-1].Op
	switch {
	case last.Code == iloc.OpBr && last.Target1 == loop.Head,
		fallsThrough(par) && u.next[loop.Parent] == loop.Head:
		lead, r := scaleStep(inc.Code, inc.Const, u.opts.Factor-1)
		if r != Eligible {
			return d.skip(r)
		}
		d.Unguarded, d.Lead = true, lead
	case len(par) >= 2:
		pcmp, pbr := par[len(par)-2].Op, last
		if pcmp.Code != cmp.Code || pcmp.R0 != cmp.R0 || pcmp.R1 != cmp.R1 ||
			pbr.Code != iloc.OpCbr || pbr.R0 != pcmp.R2 ||
			pbr.Target1 != loop.Head || pbr.Target2 != d.Exit ||
			pcmp.R2 == ri || pcmp.R2 == d.Bound {
			return d.skip(ParentShape)
		}
		d.ParCond = pcmp.R2
	default:
		return d.skip(ParentShape)
	}

	for _, name := range u.plannedNames(d) {
		if _, taken := u.labels.Lookup(name); taken {
			return d.skip(LabelCollision)
		}
	}
	return d
}

// scaleStep returns the induction step covering factor iterations: step*factor
// for additive updates and shifts, step^factor for multiply and divide.
func scaleStep(code iloc.Opcode, step int64, factor int) (int64, SkipReason) {
	f := int64(factor)
	if f == 0 {
		if code == iloc.OpMultI || code == iloc.OpDivI {
			return 1, Eligible
		}
		return 0, Eligible
	}
	switch code {
	case iloc.OpLshiftI, iloc.OpRshiftI:
		if step < 0 {
			return 0, StepSign
		}
		if step > 62 || step*f > 62 {
			return 0, StepOverflow
		}
		return step * f, Eligible
	case iloc.OpMultI, iloc.OpDivI:
		if step <= 0 {
			return 0, StepSign
		}
		s := int64(1)
		for range factor {
			if s > math.MaxInt64/step {
				return 0, StepOverflow
			}
			s *= step
		}
		return s, Eligible
	default: // addI, subI
		if step > math.MaxInt64/f || step < math.MinInt64/f {
			return 0, StepOverflow
		}
		return step * f, Eligible
	}
}

// plannedNames lists every label the rewrite of d would create.
func (u *Unroller) plannedNames(d Decision) []string {
	l, n, f := d.Loop, d.Base, u.opts.Factor
	name := u.labels.MangledName
	names := []string{name(l.Parent, n), name(l.Head, n), name(l.Tail, n+f)}
	if l.Head == l.Tail {
		return names
	}
	for _, v := range d.Body {
		if v == l.Head || v == l.Tail {
			continue
		}
		for i := range f {
			names = append(names, name(v, n+i))
		}
	}
	for i := range f {
		names = append(names, name(l.Tail, n+i))
	}
	return names
}
