package trace

import (
	"fmt"
	"io"
	"sync"
)

// RingTracer keeps the last events in memory so a run can be replayed
// after the fact.
type RingTracer struct {
	mu      sync.Mutex
	events  []Event
	next    int
	full    bool
	dropped uint64
	level   Level
}

// NewRingTracer keeps up to capacity events (4096 when capacity <= 0).
func NewRingTracer(capacity int, level Level) *RingTracer {
	if capacity <= 0 {
		capacity = 4096
	}
	return &RingTracer{events: make([]Event, capacity), level: level}
}

func (t *RingTracer) Emit(ev *Event) {
	if ev.Kind != KindHeartbeat && !t.level.ShouldEmit(ev.Scope) {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.full {
		t.dropped++
	}
	t.events[t.next] = *ev
	t.next = (t.next + 1) % len(t.events)
	if t.next == 0 {
		t.full = true
	}
}

// Snapshot returns the stored events oldest first.
func (t *RingTracer) Snapshot() []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.full {
		return append([]Event(nil), t.events[:t.next]...)
	}
	out := make([]Event, 0, len(t.events))
	out = append(out, t.events[t.next:]...)
	return append(out, t.events[:t.next]...)
}

// Dropped reports how many events were overwritten.
func (t *RingTracer) Dropped() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dropped
}

// Dump writes the stored events to w. In text format the events are
// grouped under a header each time the enclosing pass changes, so loop
// and block records read as part of the pass that produced them.
func (t *RingTracer) Dump(w io.Writer, format Format) error {
	events := t.Snapshot()
	if format == FormatNDJSON {
		for i := range events {
			if _, err := w.Write(FormatEvent(&events[i], format)); err != nil {
				return err
			}
		}
		return nil
	}

	if n := t.Dropped(); n > 0 {
		if _, err := fmt.Fprintf(w, "== trace ring: %d earlier events dropped ==\n", n); err != nil {
			return err
		}
	}
	pass := ""
	for i := range events {
		ev := &events[i]
		if ev.Pass != pass {
			pass = ev.Pass
			header := "== " + pass + " =="
			if pass == "" {
				header = "== run =="
			}
			if _, err := fmt.Fprintln(w, header); err != nil {
				return err
			}
		}
		if _, err := w.Write(FormatEvent(ev, format)); err != nil {
			return err
		}
	}
	return nil
}

func (t *RingTracer) Flush() error  { return nil }
func (t *RingTracer) Close() error  { return nil }
func (t *RingTracer) Level() Level  { return t.level }
func (t *RingTracer) Enabled() bool { return t.level > LevelOff }
