package diag

import "ilocopt/internal/source"

// DedupReporter drops a diagnostic that repeats an earlier one: same code,
// same span, same text. Parser recovery can reach a bad token twice; only
// the first report gets through.
type DedupReporter struct {
	next Reporter
	seen map[reportKey]bool
}

type reportKey struct {
	code Code
	at   source.Span
	msg  string
}

func NewDedupReporter(next Reporter) *DedupReporter {
	return &DedupReporter{next: next, seen: map[reportKey]bool{}}
}

func (r *DedupReporter) Report(code Code, sev Severity, primary source.Span, msg string, notes []Note) {
	if r == nil || r.next == nil {
		return
	}
	k := reportKey{code, primary, msg}
	if r.seen[k] {
		return
	}
	r.seen[k] = true
	r.next.Report(code, sev, primary, msg, notes)
}
