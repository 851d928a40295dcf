package trace

import (
	"context"
	"sync/atomic"
	"time"
)

var (
	seq     atomic.Uint64
	spanIDs atomic.Uint64

	// последний открытый проход, его показывает heartbeat
	activePass atomic.Pointer[string]
)

// NextSeq returns a monotonically increasing sequence number.
func NextSeq() uint64 {
	return seq.Add(1)
}

func currentPass() string {
	if p := activePass.Load(); p != nil {
		return *p
	}
	return ""
}

// Span is an open run or pass. A nil *Span is valid and records nothing,
// so passes can take one without checking whether tracing is on.
type Span struct {
	tracer  Tracer
	id      uint64
	parent  uint64
	scope   Scope
	name    string
	pass    string
	started time.Time
	extra   map[string]string
}

// Begin opens a span under parent (nil for a root span). A pass span
// names the pass its points are attributed to; other spans inherit it.
func Begin(t Tracer, scope Scope, name string, parent *Span) *Span {
	if t == nil || !t.Enabled() || !t.Level().ShouldEmit(scope) {
		return nil
	}
	s := &Span{
		tracer:  t,
		id:      spanIDs.Add(1),
		parent:  parent.ID(),
		scope:   scope,
		name:    name,
		pass:    parent.Pass(),
		started: time.Now(),
	}
	if scope == ScopePass {
		s.pass = name
		activePass.Store(&s.pass)
	}
	s.emit(KindSpanBegin, s.parent, s.scope, s.name, "", "", nil)
	return s
}

func (s *Span) emit(kind Kind, parent uint64, scope Scope, name, subject, detail string, extra map[string]string) {
	s.tracer.Emit(&Event{
		Time:     time.Now(),
		Seq:      NextSeq(),
		Kind:     kind,
		Scope:    scope,
		SpanID:   s.id,
		ParentID: parent,
		Pass:     s.pass,
		Name:     name,
		Subject:  subject,
		Detail:   detail,
		Extra:    extra,
	})
}

// End closes the span and returns how long it was open.
func (s *Span) End(detail string) time.Duration {
	if s == nil {
		return 0
	}
	if s.scope == ScopePass {
		activePass.CompareAndSwap(&s.pass, nil)
	}
	s.emit(KindSpanEnd, s.parent, s.scope, s.name, "", detail, s.extra)
	return time.Since(s.started)
}

// WithExtra attaches key=value to the end event.
func (s *Span) WithExtra(key, value string) *Span {
	if s == nil {
		return nil
	}
	if s.extra == nil {
		s.extra = make(map[string]string)
	}
	s.extra[key] = value
	return s
}

// Point records an instant event about subject (a block or loop label)
// inside the span. extra may be nil.
func (s *Span) Point(scope Scope, name, subject string, extra map[string]string) {
	if s == nil || !s.tracer.Level().ShouldEmit(scope) {
		return
	}
	s.emit(KindPoint, s.id, scope, name, subject, "", extra)
}

// ID returns the span ID, 0 for nil.
func (s *Span) ID() uint64 {
	if s == nil {
		return 0
	}
	return s.id
}

// Pass returns the pass the span belongs to.
func (s *Span) Pass() string {
	if s == nil {
		return ""
	}
	return s.pass
}

type tracerKey struct{}

type spanKey struct{}

// FromContext returns the tracer attached to ctx, or Nop.
func FromContext(ctx context.Context) Tracer {
	if ctx != nil {
		if t, ok := ctx.Value(tracerKey{}).(Tracer); ok {
			return t
		}
	}
	return Nop
}

// WithTracer attaches t to ctx.
func WithTracer(ctx context.Context, t Tracer) context.Context {
	if t == nil {
		t = Nop
	}
	return context.WithValue(ctx, tracerKey{}, t)
}

// SpanFrom returns the span attached to ctx, or nil.
func SpanFrom(ctx context.Context) *Span {
	if ctx == nil {
		return nil
	}
	s, _ := ctx.Value(spanKey{}).(*Span)
	return s
}

// WithSpan attaches s to ctx so nested work can hang spans off it.
func WithSpan(ctx context.Context, s *Span) context.Context {
	return context.WithValue(ctx, spanKey{}, s)
}
