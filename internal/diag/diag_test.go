package diag

import (
	"testing"

	"ilocopt/internal/source"
)

func TestFormatShort(t *testing.T) {
	fs := source.NewFileSet()
	file := fs.AddVirtual("loop.i", []byte("\tadd r1 r2 => r3\n\tfoo\n"))

	diags := []Diagnostic{
		NewError(SynUnknownOpcode, source.Span{File: file, Start: 18, End: 21}, "unknown opcode foo"),
		NewError(SynExpectComma, source.Span{File: file, Start: 7, End: 9}, "expected ','\nafter r1").
			WithNote(source.Span{File: file, Start: 1, End: 4}, "operands of add"),
	}

	// notes sort by position too
	want := "note SYN2007 loop.i:1:2 operands of add\n" +
		"error SYN2007 loop.i:1:8 expected ',' after r1\n" +
		"error SYN2002 loop.i:2:2 unknown opcode foo"

	if got := FormatShort(diags, fs, true); got != want {
		t.Fatalf("unexpected diagnostics:\nwant:\n%s\n\ngot:\n%s", want, got)
	}
}

func TestBagLimitCountsDropped(t *testing.T) {
	bag := NewBag(2)
	r := NewDedupReporter(BagReporter{Bag: bag})
	for i := range 4 {
		start := uint32(i)
		ReportError(r, SynUnexpectedToken, source.Span{Start: start, End: start + 1}, "unexpected").Emit()
	}
	// duplicate is filtered before reaching the bag
	ReportError(r, SynUnexpectedToken, source.Span{Start: 0, End: 1}, "unexpected").Emit()

	if bag.Len() != 2 {
		t.Errorf("Len = %d, want 2", bag.Len())
	}
	if bag.ErrorCount() != 4 {
		t.Errorf("ErrorCount = %d, want 4", bag.ErrorCount())
	}
	if !bag.HasErrors() {
		t.Errorf("HasErrors = false")
	}
}

func TestBagSortAndDedup(t *testing.T) {
	bag := NewBag(10)
	bag.Add(NewError(SynExpectArrow, source.Span{Start: 9, End: 10}, "b"))
	bag.Add(New(SevWarning, SynInfo, source.Span{Start: 1, End: 2}, "a"))
	bag.Add(NewError(SynExpectArrow, source.Span{Start: 9, End: 10}, "b again"))
	bag.Sort()
	bag.Dedup()
	items := bag.Items()
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2", len(items))
	}
	if items[0].Message != "a" || items[1].Message != "b" {
		t.Errorf("order = %q, %q", items[0].Message, items[1].Message)
	}
}

func TestCodeID(t *testing.T) {
	if got := CfgUnresolvedLabel.ID(); got != "CFG3001" {
		t.Errorf("ID = %s", got)
	}
	if got := Code(9999).Title(); got != "Unknown error" {
		t.Errorf("Title = %s", got)
	}
}

func TestSeverityLabels(t *testing.T) {
	for sev, want := range map[Severity]string{SevInfo: "info", SevWarning: "warning", SevError: "error"} {
		if got := sev.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", sev, got, want)
		}
	}
}
