package lexer

import (
	"testing"

	"ilocopt/internal/diag"
	"ilocopt/internal/source"
	"ilocopt/internal/token"
)

func lexAll(t *testing.T, src string) ([]token.Token, *diag.Bag) {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual("test.i", []byte(src))
	bag := diag.NewBag(16)
	lx := New(fs.Get(id), Options{Reporter: diag.BagReporter{Bag: bag}})
	var out []token.Token
	for {
		tok := lx.Next()
		out = append(out, tok)
		if tok.Kind == token.EOF {
			return out, bag
		}
		if len(out) > 1000 {
			t.Fatalf("lexer did not terminate")
		}
	}
}

func kinds(toks []token.Token) []token.Kind {
	out := make([]token.Kind, len(toks))
	for i, tok := range toks {
		out[i] = tok.Kind
	}
	return out
}

func TestLexInstructions(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []token.Kind
	}{
		{
			name: "binary op",
			src:  "\tadd r1, r2 => r3\n",
			want: []token.Kind{token.Ident, token.Register, token.Comma, token.Register, token.Assign, token.Register, token.Newline, token.EOF},
		},
		{
			name: "label and branch",
			src:  "L1: cbr r4 -> L2, L3",
			want: []token.Kind{token.Ident, token.Colon, token.Ident, token.Register, token.Arrow, token.Ident, token.Comma, token.Ident, token.EOF},
		},
		{
			name: "negative constant and comment",
			src:  "loadI -12 => r0 // comment\n\n\n  halt",
			want: []token.Kind{token.Ident, token.IntLit, token.Assign, token.Register, token.Newline, token.Ident, token.EOF},
		},
		{
			name: "label named like register prefix",
			src:  "rx: nop",
			want: []token.Kind{token.Ident, token.Colon, token.Ident, token.EOF},
		},
		{
			name: "semicolon",
			src:  "nop; nop",
			want: []token.Kind{token.Ident, token.Semicolon, token.Ident, token.EOF},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks, bag := lexAll(t, tt.src)
			got := kinds(toks)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("token %d: got %s, want %s", i, got[i], tt.want[i])
				}
			}
			if bag.Len() != 0 {
				t.Errorf("unexpected diagnostics: %v", bag.Items())
			}
		})
	}
}

func TestLexErrors(t *testing.T) {
	toks, bag := lexAll(t, "add r1 $ r2\nloadI 12ab => r1")
	if bag.Len() != 2 {
		t.Fatalf("expected 2 diagnostics, got %d", bag.Len())
	}
	if bag.Items()[0].Code != diag.LexUnknownChar {
		t.Errorf("first code = %s", bag.Items()[0].Code.ID())
	}
	if bag.Items()[1].Code != diag.LexBadNumber {
		t.Errorf("second code = %s", bag.Items()[1].Code.ID())
	}
	if toks[2].Kind != token.Invalid || toks[2].Text != "$" {
		t.Errorf("token 2 = %+v", toks[2])
	}
}

func TestPeekDoesNotConsume(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("p.i", []byte("r7"))
	lx := New(fs.Get(id), Options{})
	if lx.Peek().Kind != token.Register {
		t.Fatalf("Peek = %s", lx.Peek().Kind)
	}
	if tok := lx.Next(); tok.Text != "r7" {
		t.Errorf("Next = %q", tok.Text)
	}
	if lx.Next().Kind != token.EOF || lx.Next().Kind != token.EOF {
		t.Errorf("expected sticky EOF")
	}
}
