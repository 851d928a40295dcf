package graph_test

import (
	"slices"
	"testing"

	"ilocopt/internal/cfg"
	"ilocopt/internal/graph"
	"ilocopt/internal/iloc"
	"ilocopt/internal/parser"
)

func build(t *testing.T, src string) (iloc.Program, *graph.Graph) {
	t.Helper()
	prog, err := parser.ParseSource("graph.i", src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	c, err := cfg.Build(prog)
	if err != nil {
		t.Fatalf("cfg: %v", err)
	}
	return prog, graph.FromCFG(prog, c)
}

func names(g *graph.Graph, ls []iloc.Label) []string {
	out := make([]string, len(ls))
	for i, l := range ls {
		out[i] = g.Name(l)
	}
	return out
}

func lbl(t *testing.T, g *graph.Graph, name string) iloc.Label {
	t.Helper()
	l, ok := g.Labels().Lookup(name)
	if !ok {
		t.Fatalf("no label %s", name)
	}
	return l
}

const nestedSrc = `	loadI 0 => r1
	br -> O
O:	loadI 0 => r2
	br -> I
I:	addI r2, 1 => r2
	cmp_LT r2, r1 => r3
	cbr r3 -> I, OT
OT:	addI r1, 1 => r1
	cmp_LT r1, r9 => r4
	cbr r4 -> O, X
X:	nop
`

func TestFromCFG(t *testing.T) {
	_, g := build(t, nestedSrc)
	if got := names(g, g.Vertices()); !slices.Equal(got, []string{"START", "O", "I", "OT", "X"}) {
		t.Fatalf("vertices = %v", got)
	}
	tests := []struct {
		from string
		want []string
	}{
		{"START", []string{"O"}},
		{"O", []string{"I"}},
		{"I", []string{"I", "OT"}},
		{"OT", []string{"O", "X"}},
		{"X", []string{}},
	}
	for _, tt := range tests {
		got := names(g, g.Succs(lbl(t, g, tt.from)))
		if !slices.Equal(got, tt.want) {
			t.Errorf("succ(%s) = %v, want %v", tt.from, got, tt.want)
		}
	}
	if g.NumEdges() != 6 {
		t.Errorf("edges = %d, want 6", g.NumEdges())
	}
}

func TestFallThroughAndLabelOnFirstLine(t *testing.T) {
	_, g := build(t, `L0:	addI r1, 1 => r1
	cmp_LT r1, r2 => r3
	cbr r3 -> L0, L1
L1:	nop
	output 0
`)
	// the block on line 0 is START even though it has its own label
	start := g.Labels().Start()
	if got := names(g, g.Succs(start)); !slices.Equal(got, []string{"START", "L1"}) {
		t.Errorf("succ(START) = %v", got)
	}
}

func TestReverse(t *testing.T) {
	_, g := build(t, nestedSrc)
	r := g.Reverse()
	if r.NumEdges() != g.NumEdges() {
		t.Fatalf("reverse has %d edges, want %d", r.NumEdges(), g.NumEdges())
	}
	for _, v := range g.Vertices() {
		for _, w := range g.Succs(v) {
			if !r.HasEdge(w, v) {
				t.Errorf("reverse lacks %s->%s", g.Name(w), g.Name(v))
			}
		}
	}
	if got := names(r, r.Succs(lbl(t, r, "O"))); !slices.Equal(got, []string{"START", "OT"}) {
		t.Errorf("pred(O) = %v", got)
	}
}

func TestFindLoopsNested(t *testing.T) {
	_, g := build(t, nestedSrc)
	loops := g.FindLoops()
	want := [][3]string{{"START", "O", "OT"}, {"O", "I", "I"}}
	if len(loops) != len(want) {
		t.Fatalf("loops = %v", loops)
	}
	for i, l := range loops {
		got := [3]string{g.Name(l.Parent), g.Name(l.Head), g.Name(l.Tail)}
		if got != want[i] {
			t.Errorf("loop %d = %v, want %v", i, got, want[i])
		}
	}
}

func TestFindLoopsOnePerParent(t *testing.T) {
	_, g := build(t, `	cbr r1 -> A, B
A:	cbr r2 -> A, C
B:	cbr r3 -> B, C
C:	nop
`)
	loops := g.FindLoops()
	if len(loops) != 1 {
		t.Fatalf("loops = %v, want only the loop at A", loops)
	}
	if g.Name(loops[0].Head) != "A" {
		t.Errorf("head = %s", g.Name(loops[0].Head))
	}
	// the back edge at B is still seen
	if tails := g.BackEdges()[lbl(t, g, "B")]; len(tails) != 1 {
		t.Errorf("tails(B) = %v", tails)
	}
}

func TestFindLoopsAcyclic(t *testing.T) {
	_, g := build(t, "\tcbr r1 -> A, B\nA:\tbr -> B\nB:\tnop\n")
	if loops := g.FindLoops(); len(loops) != 0 {
		t.Errorf("loops = %v", loops)
	}
}

func TestLoopBody(t *testing.T) {
	_, g := build(t, nestedSrc)
	r := g.Reverse()
	tests := []struct {
		head, tail string
		want       []string
	}{
		{"O", "OT", []string{"O", "I", "OT"}},
		{"I", "I", []string{"I"}},
	}
	for _, tt := range tests {
		got := names(g, graph.LoopBody(r, lbl(t, g, tt.head), lbl(t, g, tt.tail)))
		if !slices.Equal(got, tt.want) {
			t.Errorf("body(%s,%s) = %v, want %v", tt.head, tt.tail, got, tt.want)
		}
	}
}

func TestEdgeMutation(t *testing.T) {
	tab := iloc.NewLabelTable()
	a, b, c := tab.Intern("A"), tab.Intern("B"), tab.Intern("C")
	g := graph.New(tab)
	g.AddEdge(a, b)
	g.AddEdge(a, b)
	g.AddEdge(a, c)
	if len(g.Succs(a)) != 2 {
		t.Fatalf("duplicate edge kept: %v", g.Succs(a))
	}
	g.RemoveEdge(a, b)
	if g.HasEdge(a, b) || !g.HasEdge(a, c) {
		t.Errorf("RemoveEdge wrong: %v", g.Succs(a))
	}
	g.SetSuccs(a, []iloc.Label{b})
	if !slices.Equal(g.Succs(a), []iloc.Label{b}) {
		t.Errorf("SetSuccs wrong: %v", g.Succs(a))
	}
	cl := g.Clone()
	cl.AddEdge(b, c)
	if g.HasEdge(b, c) {
		t.Errorf("clone shares edges")
	}
}
