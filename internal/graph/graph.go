// Package graph is the label-indexed view of a CFG: one vertex per basic block,
// named by the block's label, with edges following the control transfers at the
// end of each block. It also finds natural loops and their bodies.
package graph

import (
	"slices"

	"ilocopt/internal/cfg"
	"ilocopt/internal/iloc"
)

// Graph is a directed graph over block labels.
// Vertices keep insertion order and successor lists keep edge insertion order,
// so every traversal is deterministic.
type Graph struct {
	labels *iloc.LabelTable
	order  []iloc.Label
	index  map[iloc.Label]int
	succ   map[iloc.Label][]iloc.Label
}

// New returns an empty graph whose vertex names resolve through labels.
func New(labels *iloc.LabelTable) *Graph {
	if labels == nil {
		labels = iloc.NewLabelTable()
	}
	return &Graph{
		labels: labels,
		index:  make(map[iloc.Label]int),
		succ:   make(map[iloc.Label][]iloc.Label),
	}
}

// BlockLabels names every block of c: block 0 is START, other blocks carry the
// label of their leader.
func BlockLabels(prog iloc.Program, c *cfg.CFG) []iloc.Label {
	out := make([]iloc.Label, c.NumBlocks())
	for i, lead := range c.Leaders() {
		if i == 0 {
			out[i] = prog.Labels.Start()
			continue
		}
		out[i] = prog.Insts[lead].Label
	}
	return out
}

// FromCFG converts line-indexed CFG edges into label-indexed ones.
// An edge leaving a line belongs to the block holding that line.
func FromCFG(prog iloc.Program, c *cfg.CFG) *Graph {
	g := New(prog.Labels)
	names := BlockLabels(prog, c)
	for _, v := range names {
		g.AddVertex(v)
	}
	for _, e := range c.Edges() {
		g.AddEdge(names[c.BlockOf(e.From)], names[c.BlockOf(e.To)])
	}
	return g
}

// Labels returns the table vertex names resolve through.
func (g *Graph) Labels() *iloc.LabelTable {
	return g.labels
}

// Name returns the text of vertex v.
func (g *Graph) Name(v iloc.Label) string {
	return g.labels.Name(v)
}

// AddVertex adds v if missing.
func (g *Graph) AddVertex(v iloc.Label) {
	if _, ok := g.index[v]; ok {
		return
	}
	g.index[v] = len(g.order)
	g.order = append(g.order, v)
}

// HasVertex reports whether v is in the graph.
func (g *Graph) HasVertex(v iloc.Label) bool {
	_, ok := g.index[v]
	return ok
}

// AddEdge adds from->to, creating both vertices as needed. Duplicate edges are ignored.
func (g *Graph) AddEdge(from, to iloc.Label) {
	g.AddVertex(from)
	g.AddVertex(to)
	if slices.Contains(g.succ[from], to) {
		return
	}
	g.succ[from] = append(g.succ[from], to)
}

// RemoveEdge deletes from->to if present.
func (g *Graph) RemoveEdge(from, to iloc.Label) {
	succ := g.succ[from]
	if i := slices.Index(succ, to); i >= 0 {
		g.succ[from] = slices.Delete(succ, i, i+1)
	}
}

// SetSuccs replaces the successor list of v.
func (g *Graph) SetSuccs(v iloc.Label, succs []iloc.Label) {
	g.AddVertex(v)
	g.succ[v] = nil
	for _, s := range succs {
		g.AddEdge(v, s)
	}
}

// HasEdge reports whether from->to exists.
func (g *Graph) HasEdge(from, to iloc.Label) bool {
	return slices.Contains(g.succ[from], to)
}

// Vertices returns the vertices in insertion order. Do not modify.
func (g *Graph) Vertices() []iloc.Label {
	return g.order
}

// Succs returns the successors of v in insertion order. Do not modify.
func (g *Graph) Succs(v iloc.Label) []iloc.Label {
	return g.succ[v]
}

// NumVertices returns the vertex count.
func (g *Graph) NumVertices() int {
	return len(g.order)
}

// NumEdges returns the edge count.
func (g *Graph) NumEdges() int {
	n := 0
	for _, s := range g.succ {
		n += len(s)
	}
	return n
}

// Reverse returns a graph with every edge inverted.
// Vertex order is kept; predecessor lists follow the forward scan order.
func (g *Graph) Reverse() *Graph {
	r := New(g.labels)
	for _, v := range g.order {
		r.AddVertex(v)
	}
	for _, from := range g.order {
		for _, to := range g.succ[from] {
			r.AddEdge(to, from)
		}
	}
	return r
}

// Clone returns an independent copy sharing the label table.
func (g *Graph) Clone() *Graph {
	c := New(g.labels)
	for _, v := range g.order {
		c.AddVertex(v)
	}
	for _, v := range g.order {
		c.succ[v] = slices.Clone(g.succ[v])
	}
	return c
}
