package trace

import (
	"fmt"
	"strings"
	"time"
)

// Kind is the type of a trace event.
type Kind uint8

const (
	KindSpanBegin Kind = iota + 1
	KindSpanEnd
	KindPoint
	KindHeartbeat
)

func (k Kind) String() string {
	switch k {
	case KindSpanBegin:
		return "begin"
	case KindSpanEnd:
		return "end"
	case KindPoint:
		return "point"
	case KindHeartbeat:
		return "heartbeat"
	default:
		return "unknown"
	}
}

// Scope says what an event is about. Coarser scopes have lower values.
type Scope uint8

const (
	ScopeRun   Scope = iota + 1 // one optimizer run over a file
	ScopePass                   // a pass of the chain (vn, unroll)
	ScopeLoop                   // one natural loop inside a pass
	ScopeBlock                  // one basic block inside a pass
)

func (s Scope) String() string {
	switch s {
	case ScopeRun:
		return "run"
	case ScopePass:
		return "pass"
	case ScopeLoop:
		return "loop"
	case ScopeBlock:
		return "block"
	default:
		return "unknown"
	}
}

// Level is the finest scope a tracer records.
type Level uint8

const (
	LevelOff   Level = 0
	LevelRun         = Level(ScopeRun)
	LevelPass        = Level(ScopePass)
	LevelLoop        = Level(ScopeLoop)
	LevelBlock       = Level(ScopeBlock)
)

var levelNames = [...]string{"off", "run", "pass", "loop", "block"}

func (l Level) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "unknown"
}

// ParseLevel accepts off|run|pass|loop|block in any case.
func ParseLevel(s string) (Level, error) {
	for i, name := range levelNames {
		if strings.EqualFold(s, name) {
			return Level(i), nil
		}
	}
	return LevelOff, fmt.Errorf("invalid trace level: %q (expected: %s)", s, strings.Join(levelNames[:], "|"))
}

// ShouldEmit reports whether events of scope are recorded at this level.
// Heartbeats pass every level except off.
func (l Level) ShouldEmit(scope Scope) bool {
	return l != LevelOff && Scope(l) >= scope
}

// Event is one trace record.
type Event struct {
	Time     time.Time
	Seq      uint64
	Kind     Kind
	Scope    Scope
	SpanID   uint64
	ParentID uint64
	Pass     string // enclosing pass, empty outside the pass chain
	Name     string
	Subject  string // block or loop label the event is about
	Detail   string
	Extra    map[string]string
}
