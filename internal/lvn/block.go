package lvn

import (
	"math"
	"slices"

	"ilocopt/internal/iloc"
)

// alive marks a value whose defining register was never overwritten.
const alive = math.MaxInt

// valueInfo tracks where a computed value lives.
type valueInfo struct {
	line   int      // line that first computed the value
	reg    iloc.Reg // register that line wrote
	killed int      // last line at which reg still holds the value
}

// regKey is a register under its current name. Overwriting a register with a
// different value moves it to a new version so older value keys stay intact.
type regKey struct {
	reg iloc.Reg
	ver uint32
}

type block struct {
	opts  Options
	insts []iloc.Instruction

	next     ValueID
	version  map[iloc.Reg]uint32
	regVal   map[regKey]ValueID
	constVal map[int64]ValueID
	tagVal   map[Tag]ValueID
	info     map[ValueID]*valueInfo

	removed []bool
	copies  map[int]iloc.Reg  // line -> register still holding its value
	memo    map[ValueID][]int // multiply/divide value -> lines reusing it
	order   []ValueID         // memo keys in first-use order
	stats   Stats
}

// numberBlock rewrites one basic block. temp is the first register free for
// saved multiply/divide results.
func numberBlock(insts []iloc.Instruction, temp iloc.Reg, opts Options) ([]iloc.Instruction, Stats) {
	b := &block{
		opts:     opts,
		insts:    slices.Clone(insts),
		version:  make(map[iloc.Reg]uint32),
		regVal:   make(map[regKey]ValueID),
		constVal: make(map[int64]ValueID),
		tagVal:   make(map[Tag]ValueID),
		info:     make(map[ValueID]*valueInfo),
		removed:  make([]bool, len(insts)),
		copies:   make(map[int]iloc.Reg),
		memo:     make(map[ValueID][]int),
	}
	for i := range b.insts {
		if opts.StrengthReduce {
			if op, ok := reduceStrength(b.insts[i].Op); ok {
				b.insts[i].Op = op
				b.stats.StrengthReduced++
			}
		}
		b.number(i, b.insts[i].Op)
	}
	return b.rewrite(temp), b.stats
}

func (b *block) number(i int, op iloc.Operation) {
	switch cls := op.Code.Class(); cls {
	case iloc.ClassBinary, iloc.ClassImmediate, iloc.ClassNot:
		a := b.regValue(op.R0)
		var t Tag
		switch cls {
		case iloc.ClassBinary:
			t = b.tag(op.Code, a, b.regValue(op.R1), 0)
		case iloc.ClassImmediate:
			t = b.tag(op.Code, a, 0, b.constValue(op.Const))
		default:
			t = b.tag(op.Code, a, 0, 0)
		}
		b.expression(i, op, t)

	case iloc.ClassConvert:
		// i2i and c2c move a value; i2c and c2i change it
		if op.Code == iloc.OpI2I || op.Code == iloc.OpC2C {
			b.assign(i, op.R2, b.regValue(op.R0))
			return
		}
		b.expression(i, op, b.tag(op.Code, b.regValue(op.R0), 0, 0))

	case iloc.ClassLoadImm:
		b.assign(i, op.R2, b.constValue(op.Const))

	case iloc.ClassLoad:
		v := b.fresh()
		b.write(i, op.R2, v)
		b.info[v] = &valueInfo{line: i, reg: op.R2, killed: alive}
	}
}

func (b *block) tag(op iloc.Opcode, x, y, c ValueID) Tag {
	if b.opts.StrictOperandOrder {
		return strictTag(op, x, y, c)
	}
	return ExprTag(op, x, y, c)
}

// expression numbers a hashed computation writing op.R2.
func (b *block) expression(i int, op iloc.Operation, t Tag) {
	v, seen := b.tagVal[t]
	if !seen {
		v = b.fresh()
		b.tagVal[t] = v
		b.write(i, op.R2, v)
		b.info[v] = &valueInfo{line: i, reg: op.R2, killed: alive}
		return
	}
	if old, ok := b.lookup(op.R2); ok && old == v {
		b.remove(i)
		return
	}
	b.write(i, op.R2, v)

	inf := b.info[v]
	switch {
	case inf == nil:
	case op.Code.IsMulDiv():
		if _, ok := b.memo[v]; !ok {
			b.order = append(b.order, v)
		}
		b.memo[v] = append(b.memo[v], i)
	case inf.killed == alive:
		b.copies[i] = inf.reg
	}
	// otherwise the line recomputes the value from its own operands
}

// assign handles single-operand moves (i2i, c2c, loadI).
func (b *block) assign(i int, dst iloc.Reg, v ValueID) {
	if old, ok := b.lookup(dst); ok && old == v {
		b.remove(i)
		return
	}
	b.write(i, dst, v)
}

// write binds dst to v at line i, renaming dst when it held another value.
func (b *block) write(i int, dst iloc.Reg, v ValueID) {
	if old, ok := b.lookup(dst); ok && old != v {
		if inf := b.info[old]; inf != nil && inf.reg == dst && inf.killed == alive {
			inf.killed = i - 1
		}
		b.version[dst]++
		b.stats.Renamed++
	}
	b.regVal[regKey{dst, b.version[dst]}] = v
}

func (b *block) lookup(r iloc.Reg) (ValueID, bool) {
	v, ok := b.regVal[regKey{r, b.version[r]}]
	return v, ok
}

func (b *block) regValue(r iloc.Reg) ValueID {
	k := regKey{r, b.version[r]}
	if v, ok := b.regVal[k]; ok {
		return v
	}
	v := b.fresh()
	b.regVal[k] = v
	return v
}

func (b *block) constValue(c int64) ValueID {
	if v, ok := b.constVal[c]; ok {
		return v
	}
	v := b.fresh()
	b.constVal[c] = v
	return v
}

func (b *block) fresh() ValueID {
	b.next++
	return b.next
}

func (b *block) remove(i int) {
	b.removed[i] = true
	b.stats.Removed++
}

// rewrite emits the block. Removed lines vanish (a removed labeled line leaves
// a labeled nop), reuse lines become copies, and a copy into a temporary is
// inserted right after the last line where a reused multiply/divide result is
// still in its defining register.
func (b *block) rewrite(temp iloc.Reg) []iloc.Instruction {
	from := make(map[int]iloc.Reg, len(b.copies))
	for line, src := range b.copies {
		from[line] = src
	}
	saves := make(map[int][]iloc.Instruction)
	for _, v := range b.order {
		inf, uses := b.info[v], b.memo[v]
		saved := inf.killed < uses[len(uses)-1]
		for _, u := range uses {
			if u <= inf.killed {
				from[u] = inf.reg
			} else {
				from[u] = temp
			}
		}
		if saved {
			saves[inf.killed] = append(saves[inf.killed], iloc.Instruction{Op: iloc.Copy(inf.reg, temp)})
			temp++
			b.stats.Memoized++
		}
	}

	out := make([]iloc.Instruction, 0, len(b.insts)+len(saves))
	for i, in := range b.insts {
		switch src, copied := from[i]; {
		case b.removed[i]:
			if in.Labeled() {
				out = append(out, iloc.Instruction{Label: in.Label, Op: iloc.Nop()})
			}
		case copied:
			out = append(out, iloc.Instruction{Label: in.Label, Op: iloc.Copy(src, in.Op.R2)})
			b.stats.Copied++
		default:
			out = append(out, in)
		}
		out = append(out, saves[i]...)
	}
	return out
}
