package unroll

import (
	"slices"

	"ilocopt/internal/iloc"
)

// rewrite carries the per-loop state of Apply.
type rewrite struct {
	u      *Unroller
	d      Decision
	inBody map[iloc.Label]bool
	base   int
	factor int
}

// Apply rewrites an eligible loop and returns the head of the unrolled copy.
//
// With base n and factor U, for parent P, head H and tail T:
//
//	PXn        remainder entry: cbr on the parent compare into H or the exit,
//	           or br -> H when the parent enters the head unconditionally
//	HXn        head, first generation
//	BX(n+i)    every other body block, generation i
//	TX(n+i)    tail of generation i then head of generation i+1, for i < U-1
//	TX(n+U-1)  last tail, then the guard for the next trip
//	TX(n+U)    remainder entry from the unrolled loop: the original tail cbr
//
// A single-block loop (H == T) becomes HXn holding U copies of the block and
// the guard, with HX(n+U) as remainder entry. The parent keeps its compare;
// its cbr is replaced by the guard choosing between HXn and PXn. A parent
// without a compare gets the entry guard appended instead (see entryGuard).
func (u *Unroller) Apply(d Decision) iloc.Label {
	if !d.Eligible() {
		panic("unroll: Apply on a skipped loop")
	}
	rw := &rewrite{
		u:      u,
		d:      d,
		inBody: make(map[iloc.Label]bool, len(d.Body)),
		base:   d.Base,
		factor: u.opts.Factor,
	}
	for _, v := range d.Body {
		rw.inBody[v] = true
	}
	l := d.Loop
	n, f := rw.base, rw.factor
	head := u.labels.Mangle(l.Head, n)
	exit := u.labels.Mangle(l.Tail, n+f)
	par := u.labels.Mangle(l.Parent, n)

	// remainder entry from the parent
	parent := u.blocks[l.Parent]
	if d.Unguarded {
		u.add(par, []iloc.Instruction{{Op: iloc.Branch(l.Head)}})
	} else {
		pbr := parent[len(parent)-1].Op
		u.add(par, []iloc.Instruction{{Op: iloc.CondBranch(d.ParCond, l.Head, pbr.Target2)}})
	}

	if l.Head == l.Tail {
		var body []iloc.Instruction
		for i := range f {
			body = append(body, rw.tailPart(i)...)
		}
		body = append(body, rw.guard(d.Cond, d.Scaled, head, exit)...)
		u.add(head, body)
	} else {
		hb := rw.headPart(0)
		u.add(head, hb)
		for _, v := range d.Body {
			if v == l.Head || v == l.Tail {
				continue
			}
			for i := range f {
				u.add(u.labels.Mangle(v, n+i), rw.part(v, u.blocks[v], i, true))
			}
		}
		for i := 0; i < f-1; i++ {
			link := append(rw.tailPart(i), rw.headPart(i+1)...)
			u.add(u.labels.Mangle(l.Tail, n+i), link)
		}
		last := append(rw.tailPart(f-1), rw.guard(d.Cond, d.Scaled, head, exit)...)
		u.add(u.labels.Mangle(l.Tail, n+f-1), last)
	}

	// remainder entry from the unrolled loop
	u.add(exit, []iloc.Instruction{{Op: iloc.CondBranch(d.Cond, l.Head, d.Exit)}})

	// the parent picks the unrolled loop when a whole trip is safe
	if d.Unguarded {
		keep := parent
		if !fallsThrough(parent) {
			keep = parent[:len(parent)-1] // br -> H
		}
		parent = append(slices.Clone(keep), rw.entryGuard(head, par)...)
	} else {
		parent = slices.Clone(parent[:len(parent)-1])
		parent = append(parent, rw.guard(d.ParCond, d.Scaled, head, par)...)
	}
	u.blocks[l.Parent] = parent
	u.relink(l.Parent)

	u.nextLabel += f + 1
	u.rev = u.g.Reverse()
	return head
}

// add creates block v: a labeled nop followed by body.
func (u *Unroller) add(v iloc.Label, body []iloc.Instruction) {
	insts := make([]iloc.Instruction, 0, len(body)+1)
	insts = append(insts, iloc.Instruction{Label: v, Op: iloc.Nop()})
	insts = append(insts, body...)
	u.blocks[v] = insts
	u.created = append(u.created, v)
	u.g.AddVertex(v)
	u.relink(v)
}

// relink recomputes the successors of v from its instructions.
// Every block relink sees ends in an explicit transfer.
func (u *Unroller) relink(v iloc.Label) {
	var succ []iloc.Label
	for _, in := range u.blocks[v] {
		succ = append(succ, in.Op.Targets()...)
	}
	u.g.SetSuccs(v, succ)
}

// label maps a branch target of generation gen: the head stays the original
// head, other body blocks get their generation copy, outside labels stay.
func (rw *rewrite) label(l iloc.Label, gen int) iloc.Label {
	switch {
	case l == rw.d.Loop.Head:
		return l
	case rw.inBody[l]:
		return rw.u.labels.Mangle(l, rw.base+gen)
	}
	return l
}

// part copies instructions of block v for generation gen. The block label and
// a leading nop are dropped and targets are remapped. With whole set, a block
// that would fall through gets an explicit branch to its successor's copy.
func (rw *rewrite) part(v iloc.Label, insts []iloc.Instruction, gen int, whole bool) []iloc.Instruction {
	out := make([]iloc.Instruction, 0, len(insts)+1)
	for i, in := range insts {
		in.Label = iloc.NoLabel
		if i == 0 && in.Op.Code == iloc.OpNop {
			continue
		}
		in.Op = in.Op.Retarget(func(l iloc.Label) iloc.Label { return rw.label(l, gen) })
		out = append(out, in)
	}
	if whole && fallsThrough(insts) {
		next, ok := rw.u.next[v]
		if !ok {
			return append(out, iloc.Instruction{Op: iloc.Halt()})
		}
		out = append(out, iloc.Instruction{Op: iloc.Branch(rw.label(next, gen))})
	}
	return out
}

func (rw *rewrite) headPart(gen int) []iloc.Instruction {
	h := rw.d.Loop.Head
	return rw.part(h, rw.u.blocks[h], gen, true)
}

// tailPart is the tail without its cbr: body, step update and compare.
func (rw *rewrite) tailPart(gen int) []iloc.Instruction {
	t := rw.d.Loop.Tail
	insts := rw.u.blocks[t]
	return rw.part(t, insts[:len(insts)-1], gen, false)
}

func (rw *rewrite) reg() iloc.Reg {
	r := rw.u.nextReg
	rw.u.nextReg++
	return r
}

// compare is the loop compare with the induction register replaced by r.
func (rw *rewrite) compare(r, dst iloc.Reg) iloc.Operation {
	d := rw.d
	a, b := d.Cmp.R0, d.Cmp.R1
	if a == d.Induction {
		a = r
	} else {
		b = r
	}
	return iloc.Binary(d.Cmp.Code, a, b, dst)
}

// guard advances the induction register by step into a scratch register and
// enters taken only when cond holds, the advanced value passes the loop
// compare and the advance did not wrap around.
func (rw *rewrite) guard(cond iloc.Reg, step int64, taken, notTaken iloc.Label) []iloc.Instruction {
	d := rw.d
	ahead, ok := rw.reg(), rw.reg()
	out := []iloc.Instruction{
		{Op: iloc.Immediate(d.Inc.Code, d.Induction, step, ahead)},
		{Op: rw.compare(ahead, ok)},
	}
	if check, nw := rw.noWrap(ahead, step); len(check) > 0 {
		safe := rw.reg()
		out = append(out, check...)
		out = append(out, iloc.Instruction{Op: iloc.Binary(iloc.OpAnd, ok, nw, safe)})
		ok = safe
	}
	all := rw.reg()
	return append(out,
		iloc.Instruction{Op: iloc.Binary(iloc.OpAnd, ok, cond, all)},
		iloc.Instruction{Op: iloc.CondBranch(all, taken, notTaken)},
	)
}

// noWrap checks that ahead is the induction register advanced by step without
// leaving the int64 range. divI and rshiftI move towards zero and never wrap.
func (rw *rewrite) noWrap(ahead iloc.Reg, step int64) ([]iloc.Instruction, iloc.Reg) {
	i := rw.d.Induction
	switch code := rw.d.Inc.Code; code {
	case iloc.OpAddI, iloc.OpSubI:
		if step == 0 {
			return nil, 0
		}
		nw := rw.reg()
		if (step > 0) == (code == iloc.OpAddI) {
			return []iloc.Instruction{{Op: iloc.Binary(iloc.OpCmpGT, ahead, i, nw)}}, nw
		}
		return []iloc.Instruction{{Op: iloc.Binary(iloc.OpCmpLT, ahead, i, nw)}}, nw
	case iloc.OpMultI, iloc.OpLshiftI:
		inv := iloc.OpDivI
		if code == iloc.OpLshiftI {
			inv = iloc.OpRshiftI
			if step == 0 {
				return nil, 0
			}
		} else if step == 1 {
			return nil, 0
		}
		back, nw := rw.reg(), rw.reg()
		return []iloc.Instruction{
			{Op: iloc.Immediate(inv, ahead, step, back)},
			{Op: iloc.Binary(iloc.OpCmpEQ, back, i, nw)},
		}, nw
	}
	return nil, 0
}

// entryGuard replaces an unconditional entry into the head. The original runs
// the first iteration regardless, so a trip is safe when the compares after
// the first and after the Factor-1th iteration both pass.
func (rw *rewrite) entryGuard(taken, notTaken iloc.Label) []iloc.Instruction {
	d := rw.d
	next, cont := rw.reg(), rw.reg()
	out := []iloc.Instruction{
		{Op: iloc.Immediate(d.Inc.Code, d.Induction, d.Inc.Const, next)},
		{Op: rw.compare(next, cont)},
	}
	return append(out, rw.guard(cont, d.Lead, taken, notTaken)...)
}

func fallsThrough(insts []iloc.Instruction) bool {
	if len(insts) == 0 {
		return true
	}
	switch insts[len(insts)-1].Op.Code {
	case iloc.OpBr, iloc.OpCbr, iloc.OpHalt:
		return false
	}
	return true
}
