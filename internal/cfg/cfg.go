// Package cfg partitions a flat ILOC instruction list into basic blocks and
// computes the control-flow edges between them.
//
// A leader is line 0 or the target of some br/cbr; a block runs from its
// leader to the line before the next leader. Edges are line pairs: one per
// branch target, plus (trailer, trailer+1) for blocks that do not end in a
// branch.
package cfg

import (
	"fmt"
	"slices"

	"ilocopt/internal/iloc"
)

// Block is the inclusive line range [Leader, Trailer].
type Block struct {
	Leader  int
	Trailer int
}

// Len returns the number of lines in b.
func (b Block) Len() int {
	return b.Trailer - b.Leader + 1
}

// Edge is a control transfer from line From to line To.
type Edge struct {
	From int
	To   int
}

// CFG is the result of Build.
type CFG struct {
	leaders  []int
	trailers []int
	edges    []Edge
	blockOf  []int // line -> block index
	lines    int
}

// UnresolvedLabelError reports a branch to a label that no instruction defines.
type UnresolvedLabelError struct {
	Line  int
	Label iloc.Label
	Name  string
}

func (e *UnresolvedLabelError) Error() string {
	return fmt.Sprintf("line %d: branch to undefined label %s", e.Line, e.Name)
}

// Build computes leaders, trailers and edges for prog.
// An empty program yields a CFG without blocks.
func Build(prog iloc.Program) (*CFG, error) {
	insts := prog.Insts
	n := len(insts)
	c := &CFG{lines: n}
	if n == 0 {
		return c, nil
	}

	labelLine := iloc.LabelLines(insts)
	resolve := func(line int, l iloc.Label) (int, error) {
		if dst, ok := labelLine[l]; ok {
			return dst, nil
		}
		name := ""
		if prog.Labels != nil {
			name = prog.Labels.Name(l)
		}
		return 0, &UnresolvedLabelError{Line: line, Label: l, Name: name}
	}

	leaders := []int{0}
	for i, in := range insts {
		for _, t := range in.Op.Targets() {
			dst, err := resolve(i, t)
			if err != nil {
				return nil, err
			}
			leaders = append(leaders, dst)
			c.edges = append(c.edges, Edge{From: i, To: dst})
		}
	}
	slices.Sort(leaders)
	c.leaders = slices.Compact(leaders)

	c.trailers = make([]int, len(c.leaders))
	c.blockOf = make([]int, n)
	for b, lead := range c.leaders {
		last := n - 1
		if b+1 < len(c.leaders) {
			last = c.leaders[b+1] - 1
		}
		c.trailers[b] = last
		for line := lead; line <= last; line++ {
			c.blockOf[line] = b
		}
	}

	// fall-through edges
	for _, last := range c.trailers {
		if insts[last].Op.Code.IsBranch() || last+1 >= n {
			continue
		}
		c.edges = append(c.edges, Edge{From: last, To: last + 1})
	}
	return c, nil
}

// NumBlocks returns the number of basic blocks.
func (c *CFG) NumBlocks() int {
	return len(c.leaders)
}

// NumLines returns the length of the instruction list the CFG was built from.
func (c *CFG) NumLines() int {
	return c.lines
}

// Blocks returns the blocks in program order.
func (c *CFG) Blocks() []Block {
	out := make([]Block, len(c.leaders))
	for i := range c.leaders {
		out[i] = Block{Leader: c.leaders[i], Trailer: c.trailers[i]}
	}
	return out
}

// Block returns block i.
func (c *CFG) Block(i int) Block {
	return Block{Leader: c.leaders[i], Trailer: c.trailers[i]}
}

// Leaders returns the sorted leader lines. Do not modify.
func (c *CFG) Leaders() []int {
	return c.leaders
}

// Trailers returns one trailer per leader. Do not modify.
func (c *CFG) Trailers() []int {
	return c.trailers
}

// Edges returns branch edges in scan order followed by fall-through edges. Do not modify.
func (c *CFG) Edges() []Edge {
	return c.edges
}

// BlockOf returns the index of the block containing line.
func (c *CFG) BlockOf(line int) int {
	return c.blockOf[line]
}
