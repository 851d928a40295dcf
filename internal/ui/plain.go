package ui

import (
	"fmt"
	"io"
	"sync"

	"ilocopt/internal/pipeline"
)

// PlainSink prints one line per finished file. Used when stdout is not a terminal.
type PlainSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewPlainSink returns a sink writing to w.
func NewPlainSink(w io.Writer) *PlainSink {
	return &PlainSink{w: w}
}

func (s *PlainSink) OnEvent(ev pipeline.Event) {
	if ev.File == "" {
		return
	}
	var line string
	switch ev.Status {
	case pipeline.StatusDone, pipeline.StatusCached:
		line = fmt.Sprintf("%-*s %s\n", statusWidth, ev.Status, ev.File)
	case pipeline.StatusError:
		line = fmt.Sprintf("%-*s %s: %s\n", statusWidth, ev.Status, ev.File, firstLine(errText(ev.Err)))
	default:
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = io.WriteString(s.w, line)
}

func errText(err error) string {
	if err == nil {
		return "failed"
	}
	return err.Error()
}
