// Package observ measures how long the stages of one optimizer run take.
package observ

import (
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Phase records the duration and metadata of one stage.
type Phase struct {
	Name  string
	Start time.Time
	Dur   time.Duration
	Note  string
}

// Timer tracks the execution time of multiple stages.
type Timer struct {
	phases []Phase
}

// NewTimer creates a new empty Timer.
func NewTimer() *Timer { return &Timer{phases: make([]Phase, 0, 8)} }

// Begin starts a new phase and returns its index.
func (t *Timer) Begin(name string) int {
	t.phases = append(t.phases, Phase{Name: name, Start: time.Now()})
	return len(t.phases) - 1
}

// End finishes a phase by its index.
func (t *Timer) End(idx int, note string) {
	if idx < 0 || idx >= len(t.phases) {
		return
	}
	p := &t.phases[idx]
	p.Dur = time.Since(p.Start)
	p.Note = note
}

// Summary renders the report with English number formatting.
func (t *Timer) Summary() string {
	return t.Report().Format(message.NewPrinter(language.English))
}

// PhaseReport представляет сжатую информацию о фазе таймера для сериализации.
type PhaseReport struct {
	Name       string  `json:"name"`
	DurationMS float64 `json:"duration_ms"`
	Note       string  `json:"note,omitempty"`
}

// Report описывает агрегированные данные таймера.
type Report struct {
	TotalMS float64       `json:"total_ms"`
	Phases  []PhaseReport `json:"phases"`
}

// Report формирует срез фаз и общую длительность в миллисекундах.
func (t *Timer) Report() Report {
	if len(t.phases) == 0 {
		return Report{}
	}
	report := Report{
		Phases: make([]PhaseReport, len(t.phases)),
	}
	var total time.Duration
	for i, phase := range t.phases {
		total += phase.Dur
		report.Phases[i] = PhaseReport{
			Name:       phase.Name,
			DurationMS: durationToMillis(phase.Dur),
			Note:       phase.Note,
		}
	}
	report.TotalMS = durationToMillis(total)
	return report
}

// Format renders one line per phase and a total through p, so counts in
// notes and large durations get locale grouping.
func (r Report) Format(p *message.Printer) string {
	var b strings.Builder
	b.WriteString("timings:\n")
	for _, ph := range r.Phases {
		b.WriteString(p.Sprintf("  %-20s %10.2f ms", ph.Name, ph.DurationMS))
		if ph.Note != "" {
			b.WriteString("  // " + ph.Note)
		}
		b.WriteByte('\n')
	}
	b.WriteString(p.Sprintf("  %-20s %10.2f ms\n", "total", r.TotalMS))
	return b.String()
}

// Merge appends the phases of other, prefixing their names.
func (r *Report) Merge(prefix string, other Report) {
	for _, ph := range other.Phases {
		if prefix != "" {
			ph.Name = prefix + ph.Name
		}
		r.Phases = append(r.Phases, ph)
	}
	r.TotalMS += other.TotalMS
}

func durationToMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
