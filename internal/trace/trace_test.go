package trace

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestLevelScopes(t *testing.T) {
	tests := []struct {
		level Level
		scope Scope
		want  bool
	}{
		{LevelOff, ScopeRun, false},
		{LevelRun, ScopeRun, true},
		{LevelRun, ScopePass, false},
		{LevelPass, ScopePass, true},
		{LevelPass, ScopeLoop, false},
		{LevelLoop, ScopeLoop, true},
		{LevelLoop, ScopeBlock, false},
		{LevelBlock, ScopeBlock, true},
	}
	for _, tt := range tests {
		if got := tt.level.ShouldEmit(tt.scope); got != tt.want {
			t.Errorf("%s.ShouldEmit(%s) = %v, want %v", tt.level, tt.scope, got, tt.want)
		}
	}
	if l, err := ParseLevel("LOOP"); err != nil || l != LevelLoop {
		t.Errorf("ParseLevel(LOOP) = %v, %v", l, err)
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Errorf("ParseLevel accepted junk")
	}
	if m, err := ParseMode("Both"); err != nil || m != ModeBoth {
		t.Errorf("ParseMode(Both) = %v, %v", m, err)
	}
}

func TestPointsCarryPass(t *testing.T) {
	ring := NewRingTracer(16, LevelLoop)
	run := Begin(ring, ScopeRun, "optimize", nil)
	pass := Begin(ring, ScopePass, "unroll", run)
	pass.Point(ScopeLoop, "loop", "L1", map[string]string{"reason": "eligible"})
	pass.Point(ScopeBlock, "block", "0", nil)
	pass.WithExtra("loops", "1").End("")
	run.End("")

	events := ring.Snapshot()
	if len(events) != 5 {
		t.Fatalf("events = %d, want 5", len(events))
	}
	pt := events[2]
	if pt.Kind != KindPoint || pt.Pass != "unroll" || pt.Subject != "L1" || pt.ParentID != pass.ID() {
		t.Errorf("point = %+v", pt)
	}
	if events[1].ParentID != run.ID() || events[0].Pass != "" {
		t.Errorf("span nesting lost: %+v %+v", events[0], events[1])
	}
	if events[3].Kind != KindSpanEnd || events[3].Extra["loops"] != "1" {
		t.Errorf("pass end = %+v", events[3])
	}
	for i := 1; i < len(events); i++ {
		if events[i].Seq <= events[i-1].Seq {
			t.Errorf("sequence not increasing at %d", i)
		}
	}
	if currentPass() != "" {
		t.Errorf("pass %q still active after End", currentPass())
	}
}

func TestRingDumpGroupsByPass(t *testing.T) {
	ring := NewRingTracer(3, LevelLoop)
	run := Begin(ring, ScopeRun, "optimize", nil)
	vn := Begin(ring, ScopePass, "vn", run)
	vn.End("")
	un := Begin(ring, ScopePass, "unroll", run)
	un.Point(ScopeLoop, "loop", "L1", nil)
	un.End("")

	var buf bytes.Buffer
	if err := ring.Dump(&buf, FormatText); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 5 {
		t.Fatalf("dump:\n%s", buf.String())
	}
	if lines[0] != "== trace ring: 3 earlier events dropped ==" || lines[1] != "== unroll ==" {
		t.Errorf("headers = %q, %q", lines[0], lines[1])
	}
	if !strings.HasSuffix(lines[3], "• unroll.loop L1") {
		t.Errorf("loop line = %q", lines[3])
	}
}

func TestDisabledTracer(t *testing.T) {
	s := Begin(Nop, ScopeRun, "x", nil)
	if s != nil || s.ID() != 0 || s.End("") != 0 {
		t.Errorf("disabled span is live")
	}
	s.Point(ScopeLoop, "loop", "L1", nil)
	if FromContext(context.Background()) != Nop || SpanFrom(context.Background()) != nil {
		t.Errorf("empty context has a tracer")
	}

	ring := NewRingTracer(4, LevelPass)
	ctx := WithTracer(context.Background(), ring)
	if FromContext(ctx) != Tracer(ring) {
		t.Errorf("tracer not attached")
	}
	root := Begin(ring, ScopeRun, "optimize", nil)
	if SpanFrom(WithSpan(ctx, root)) != root {
		t.Errorf("span not attached")
	}
}

func TestFormats(t *testing.T) {
	ev := &Event{
		Seq:      7,
		Kind:     KindPoint,
		Scope:    ScopeBlock,
		ParentID: 3,
		Pass:     "vn",
		Name:     "block",
		Subject:  "L1",
		Extra:    map[string]string{"removed": "2", "copied": "0"},
	}
	text := string(FormatEvent(ev, FormatText))
	if text != "[     7]   • vn.block L1 {copied=0, removed=2}\n" {
		t.Errorf("text = %q", text)
	}

	var decoded map[string]any
	if err := json.Unmarshal(FormatEvent(ev, FormatNDJSON), &decoded); err != nil {
		t.Fatalf("ndjson: %v", err)
	}
	if decoded["pass"] != "vn" || decoded["subject"] != "L1" || decoded["scope"] != "block" {
		t.Errorf("ndjson = %v", decoded)
	}

	for in, want := range map[string]Format{"": FormatAuto, "TEXT": FormatText, "json": FormatNDJSON} {
		if got, err := ParseFormat(in); err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %v, %v", in, got, err)
		}
	}
}

func TestStreamTracerWrites(t *testing.T) {
	var buf bytes.Buffer
	tr, err := New(Config{Level: LevelPass, Mode: ModeBoth, Output: &buf, Format: FormatText})
	if err != nil {
		t.Fatal(err)
	}
	run := Begin(tr, ScopeRun, "optimize", nil)
	pass := Begin(tr, ScopePass, "vn", run)
	pass.Point(ScopeBlock, "block", "hidden", nil)
	pass.End("")
	run.End("ok")
	if err := tr.Close(); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "→ optimize") || !strings.Contains(out, "← optimize (ok)") || !strings.Contains(out, "  → vn") {
		t.Errorf("stream output = %q", out)
	}
	if strings.Contains(out, "hidden") {
		t.Errorf("block event leaked at pass level")
	}

	off, err := New(Config{Level: LevelOff})
	if err != nil || off.Enabled() {
		t.Errorf("off tracer enabled")
	}
}
