package graph

import (
	"slices"

	"ilocopt/internal/iloc"
)

// Loop is a natural loop: Tail->Head is the back edge and Parent is the
// predecessor of Head the loop is entered from.
type Loop struct {
	Parent iloc.Label
	Head   iloc.Label
	Tail   iloc.Label
}

type color uint8

const (
	white color = iota // not visited
	gray               // on the DFS stack
	black              // finished
)

// BackEdges runs one depth-first traversal from START and returns, for every
// vertex that is the destination of a back edge, the sources of those edges in
// discovery order.
func (g *Graph) BackEdges() map[iloc.Label][]iloc.Label {
	tails := make(map[iloc.Label][]iloc.Label)
	start := g.labels.Start()
	if !g.HasVertex(start) {
		return tails
	}

	type frame struct {
		v    iloc.Label
		next int
	}
	marks := make(map[iloc.Label]color, len(g.order))
	stack := []frame{{v: start}}
	marks[start] = gray
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		succ := g.succ[top.v]
		if top.next == len(succ) {
			marks[top.v] = black
			stack = stack[:len(stack)-1]
			continue
		}
		w := succ[top.next]
		top.next++
		switch marks[w] {
		case gray:
			if !slices.Contains(tails[w], top.v) {
				tails[w] = append(tails[w], top.v)
			}
		case white:
			marks[w] = gray
			stack = append(stack, frame{v: w})
		}
	}
	return tails
}

// FindLoops reports the natural loops reachable from START.
//
// For each vertex in program order, the first successor edge (parent, head)
// where head has back-edge tails and parent is not one of them yields one Loop
// per tail. A parent enters at most one reported head; sibling loops sharing a
// parent are not all found.
func (g *Graph) FindLoops() []Loop {
	tails := g.BackEdges()
	if len(tails) == 0 {
		return nil
	}
	var loops []Loop
	for _, parent := range g.order {
		for _, head := range g.succ[parent] {
			ts := tails[head]
			if len(ts) == 0 || slices.Contains(ts, parent) {
				continue
			}
			for _, t := range ts {
				loops = append(loops, Loop{Parent: parent, Head: head, Tail: t})
			}
			break
		}
	}
	return loops
}

// LoopBody collects the blocks that reach tail without passing through head,
// head and tail included. rev must be the reverse graph. The result is in
// vertex order.
func LoopBody(rev *Graph, head, tail iloc.Label) []iloc.Label {
	seen := map[iloc.Label]bool{head: true, tail: true}
	queue := []iloc.Label{}
	if tail != head {
		queue = append(queue, tail)
	}
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		for _, p := range rev.succ[v] {
			if seen[p] {
				continue
			}
			seen[p] = true
			queue = append(queue, p)
		}
	}
	body := make([]iloc.Label, 0, len(seen))
	for _, v := range rev.order {
		if seen[v] {
			body = append(body, v)
		}
	}
	return body
}
