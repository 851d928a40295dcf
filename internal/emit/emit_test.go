package emit_test

import (
	"strings"
	"testing"

	"ilocopt/internal/cfg"
	"ilocopt/internal/emit"
	"ilocopt/internal/graph"
	"ilocopt/internal/iloc"
	"ilocopt/internal/parser"
)

const everyShape = `	nop
	add r1, r2 => r3
	addI r1, -4 => r2
	i2c r1 => r2
	not r2 => r3
	loadI 1024 => r0
	load r0 => r1
	loadAI r0, 8 => r1
	cloadAO r0, r2 => r1
	read => r5
	store r1 => r0
	storeAI r1 => r0, 4
	cstoreAO r1 => r0, r2
	output 1024
	write r5
L1:	cmp_LE r1, r2 => r3
	cbr r3 -> L1, L2
L2:	br -> L3
L3:	halt
`

func TestProgramRoundTrip(t *testing.T) {
	prog, err := parser.ParseSource("shapes.i", everyShape)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	got := emit.String(prog)
	want := everyShape + "\thalt\n"
	if got != want {
		t.Errorf("emit mismatch\n--- got ---\n%s--- want ---\n%s", got, want)
	}

	again, err := parser.ParseSource("again.i", got)
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if again.Len() != prog.Len()+1 {
		t.Fatalf("reparsed %d instructions, want %d", again.Len(), prog.Len()+1)
	}
	for i, in := range prog.Insts {
		if a, b := emit.Instruction(in, prog.Labels), emit.Instruction(again.Insts[i], again.Labels); a != b {
			t.Errorf("line %d: %q != %q", i, a, b)
		}
	}
}

func TestInstruction(t *testing.T) {
	tab := iloc.NewLabelTable()
	l := tab.Intern("LX3")
	tests := []struct {
		in   iloc.Instruction
		want string
	}{
		{iloc.Instruction{Op: iloc.Copy(2, 3)}, "\ti2i r2 => r3"},
		{iloc.Instruction{Label: l, Op: iloc.Nop()}, "LX3:\tnop"},
		{iloc.Instruction{Op: iloc.Immediate(iloc.OpLshiftI, 1, 3, 1)}, "\tlshiftI r1, 3 => r1"},
		{iloc.Instruction{Op: iloc.CondBranch(7, l, tab.Start())}, "\tcbr r7 -> LX3, START"},
		{iloc.Instruction{Op: iloc.Halt()}, "\thalt"},
	}
	for _, tt := range tests {
		if got := emit.Instruction(tt.in, tab); got != tt.want {
			t.Errorf("got %q, want %q", got, tt.want)
		}
	}
}

func TestEmptyProgramStillHalts(t *testing.T) {
	if got := emit.String(iloc.NewProgram(nil, nil)); got != "\thalt\n" {
		t.Errorf("got %q", got)
	}
}

func TestGraphDump(t *testing.T) {
	prog, err := parser.ParseSource("loop.i", `	loadI 0 => r1
L1:	addI r1, 1 => r1
	cmp_LT r1, r2 => r3
	cbr r3 -> L1, L2
L2:	nop
`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	c, err := cfg.Build(prog)
	if err != nil {
		t.Fatalf("cfg: %v", err)
	}
	g := graph.FromCFG(prog, c)
	var sb strings.Builder
	if err := emit.Graph(&sb, prog, c, g, g.FindLoops(), emit.DumpOptions{}); err != nil {
		t.Fatalf("dump: %v", err)
	}
	want := `blocks=3 edges=3
  B0 START [0..0] -> L1
  B1 L1 [1..3] -> L1, L2
  B2 L2 [4..4] -> 
loops=1
  parent=START head=L1 tail=L1 body={L1}
`
	if sb.String() != want {
		t.Errorf("dump mismatch\n--- got ---\n%s--- want ---\n%s", sb.String(), want)
	}
}
