package interp_test

import (
	"errors"
	"slices"
	"testing"

	"ilocopt/internal/iloc"
	"ilocopt/internal/interp"
	"ilocopt/internal/parser"
)

func run(t *testing.T, src string, opts interp.Options) (*interp.Result, error) {
	t.Helper()
	prog, err := parser.ParseSource("prog.i", src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return interp.Run(prog, opts)
}

func TestSumLoop(t *testing.T) {
	res, err := run(t, `	loadI 0 => r1
	loadI 0 => r2
	loadI 10 => r3
L1:	add r2, r1 => r2
	addI r1, 1 => r1
	cmp_LT r1, r3 => r4
	cbr r4 -> L1, L2
L2:	write r2
`, interp.Options{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Regs[2] != 45 || res.Regs[1] != 10 {
		t.Errorf("r1=%d r2=%d", res.Regs[1], res.Regs[2])
	}
	if !slices.Equal(res.Output, []string{"45"}) {
		t.Errorf("output = %v", res.Output)
	}
}

func TestMemoryAndIO(t *testing.T) {
	res, err := run(t, `	loadI 1024 => r0
	read => r1
	storeAI r1 => r0, 4
	loadAI r0, 4 => r2
	loadI 72 => r3
	cstore r3 => r0
	cload r0 => r4
	output 1028
	coutput 1024
	cwrite r4
	loadI -7 => r5
	store r5 => r0
	load r0 => r6
	halt
	write r6
`, interp.Options{Input: []int64{99}})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Regs[2] != 99 || res.Regs[4] != 72 || res.Regs[6] != -7 {
		t.Errorf("regs = %v", res.Regs)
	}
	if want := []string{"99", "H", "H"}; !slices.Equal(res.Output, want) {
		t.Errorf("output = %v, want %v", res.Output, want)
	}
}

func TestFaults(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"div", "\tloadI 0 => r1\n\tdiv r2, r1 => r3\n"},
		{"bounds", "\tloadI -1 => r1\n\tload r1 => r2\n"},
		{"input", "\tread => r1\n"},
		{"shift", "\tloadI -1 => r1\n\tlshift r2, r1 => r3\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.src, interp.Options{})
			var re *interp.RuntimeError
			if !errors.As(err, &re) {
				t.Fatalf("expected RuntimeError, got %v", err)
			}
			if re.Line != 1 && tt.name != "input" {
				t.Errorf("fault at line %d", re.Line)
			}
		})
	}
}

func TestStepLimit(t *testing.T) {
	_, err := run(t, "L0:\tbr -> L0\n", interp.Options{MaxSteps: 100})
	if !errors.Is(err, interp.ErrStepLimit) {
		t.Fatalf("err = %v", err)
	}
}

func TestInitialRegistersAndDiff(t *testing.T) {
	prog, err := parser.ParseSource("p.i", "\taddI r1, 1 => r2\n")
	if err != nil {
		t.Fatal(err)
	}
	a, err := interp.Run(prog, interp.Options{Regs: map[iloc.Reg]int64{1: 41}})
	if err != nil {
		t.Fatal(err)
	}
	if a.Regs[2] != 42 {
		t.Fatalf("r2 = %d", a.Regs[2])
	}
	b, err := interp.Run(prog, interp.Options{Regs: map[iloc.Reg]int64{1: 1}})
	if err != nil {
		t.Fatal(err)
	}
	if err := interp.Diff(a, b, 3); err == nil {
		t.Errorf("expected a difference")
	}
	if err := interp.Diff(a, a, 3); err != nil {
		t.Errorf("self diff: %v", err)
	}
}
