package ui

import (
	"errors"
	"strings"
	"testing"

	"ilocopt/internal/pipeline"
)

func TestProgressModelTracksFiles(t *testing.T) {
	events := make(chan pipeline.Event)
	m := NewProgressModel("optimizing", []string{"a.i", "b.i", "c.i"}, events).(*progressModel)

	m.applyEvent(pipeline.Event{File: "a.i", Stage: pipeline.StageUnroll, Status: pipeline.StatusWorking})
	if m.items[0].status != "unrolling" {
		t.Errorf("a.i status = %q", m.items[0].status)
	}
	m.applyEvent(pipeline.Event{File: "a.i", Stage: pipeline.StageEmit, Status: pipeline.StatusDone})
	m.applyEvent(pipeline.Event{File: "b.i", Stage: pipeline.StageParse, Status: pipeline.StatusError,
		Err: errors.New("Parse stopped with 2 error(s).\nmore")})
	m.applyEvent(pipeline.Event{File: "unknown.i", Status: pipeline.StatusDone})

	if got := m.counts(); got != "2/3, 1 error" {
		t.Errorf("counts = %q", got)
	}
	if m.items[1].errMsg != "Parse stopped with 2 error(s)." {
		t.Errorf("error message = %q", m.items[1].errMsg)
	}
	view := m.View()
	for _, want := range []string{"optimizing", "a.i", "Parse stopped", "queued"} {
		if !strings.Contains(view, want) {
			t.Errorf("view lacks %q:\n%s", want, view)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"short.i", 20, "short.i"},
		{"very/long/path/to/file.i", 10, "very..."},
		{"abcdef", 2, "ab"},
		{"файл.i", 0, "файл.i"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.width); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}

func TestPlainSink(t *testing.T) {
	var b strings.Builder
	s := NewPlainSink(&b)
	s.OnEvent(pipeline.Event{File: "a.i", Status: pipeline.StatusWorking})
	s.OnEvent(pipeline.Event{File: "a.i", Status: pipeline.StatusDone})
	s.OnEvent(pipeline.Event{File: "b.i", Status: pipeline.StatusError, Err: errors.New("boom")})
	want := "done       a.i\nerror      b.i: boom\n"
	if b.String() != want {
		t.Errorf("got %q, want %q", b.String(), want)
	}
}
