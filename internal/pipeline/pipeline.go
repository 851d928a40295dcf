// Package pipeline runs the optimizer passes over one listing or a batch of them.
package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"ilocopt/internal/cache"
	"ilocopt/internal/cfg"
	"ilocopt/internal/emit"
	"ilocopt/internal/iloc"
	"ilocopt/internal/lvn"
	"ilocopt/internal/observ"
	"ilocopt/internal/parser"
	"ilocopt/internal/source"
	"ilocopt/internal/trace"
	"ilocopt/internal/unroll"
)

// Options carry the per-pass settings.
type Options struct {
	LVN    lvn.Options
	Unroll unroll.Options
}

// fingerprint lists every option that changes the output, for cache keys.
func (o Options) fingerprint() []string {
	u := o.Unroll
	if u.Factor <= 0 {
		u.Factor = unroll.DefaultFactor
	}
	if u.MaxBodyBlocks <= 0 {
		u.MaxBodyBlocks = unroll.DefaultMaxBodyBlocks
	}
	return []string{
		"strict=" + strconv.FormatBool(o.LVN.StrictOperandOrder),
		"sr=" + strconv.FormatBool(o.LVN.StrengthReduce),
		"factor=" + strconv.Itoa(u.Factor),
		"maxbody=" + strconv.Itoa(u.MaxBodyBlocks),
	}
}

// Request configures one file.
type Request struct {
	Path     string
	Passes   []Pass
	Options  Options
	Cache    *cache.Cache // nil disables caching
	Progress ProgressSink
}

// Result captures what a run produced.
type Result struct {
	Program iloc.Program // empty on a cache hit
	Output  string       // emitted text
	Cached  bool

	LVN     lvn.Stats
	Loops   []unroll.Outcome
	Reasons []string // one per detected loop; filled on cache hits too

	Timings Timings
	Report  observ.Report
}

// Optimize applies passes to prog in order. Every pass rebuilds the CFG of
// the program it receives.
func Optimize(ctx context.Context, prog iloc.Program, passes []Pass, opts Options) (Result, error) {
	res := Result{Program: prog}
	if err := Validate(passes); err != nil {
		return res, err
	}
	timer := observ.NewTimer()
	if err := optimize(ctx, &res, passes, opts, timer, nil, ""); err != nil {
		return res, err
	}
	res.Report = timer.Report()
	recordTimings(&res, res.Report)
	return res, nil
}

func optimize(ctx context.Context, res *Result, passes []Pass, opts Options, timer *observ.Timer, sink ProgressSink, file string) error {
	tracer := trace.FromContext(ctx)
	parent := trace.SpanFrom(ctx)

	for _, p := range passes {
		if err := ctx.Err(); err != nil {
			return err
		}
		stage := passStage(p)
		emitStage(sink, file, stage, StatusWorking, nil, 0)
		start := time.Now()
		idx := timer.Begin(string(stage))
		span := trace.Begin(tracer, trace.ScopePass, p.String(), parent)

		c, err := cfg.Build(res.Program)
		if err != nil {
			span.End(err.Error())
			timer.End(idx, "failed")
			err = fmt.Errorf("%s: %w", p, err)
			emitStage(sink, file, stage, StatusError, err, 0)
			return err
		}

		var note string
		switch p {
		case PassVN:
			o := opts.LVN
			o.Span = span
			prog, stats := lvn.Run(res.Program, c, o)
			res.Program = prog
			res.LVN.Add(stats)
			note = fmt.Sprintf("%d removed, %d copied, %d memoized", stats.Removed, stats.Copied, stats.Memoized)
			span.WithExtra("removed", strconv.Itoa(stats.Removed)).
				WithExtra("copied", strconv.Itoa(stats.Copied))
		case PassUnroll:
			o := opts.Unroll
			o.Span = span
			prog, outcomes := unroll.Run(res.Program, c, o)
			res.Program = prog
			res.Loops = append(res.Loops, outcomes...)
			unrolled := 0
			for _, oc := range outcomes {
				res.Reasons = append(res.Reasons, oc.Reason.String())
				if oc.Reason == unroll.Eligible {
					unrolled++
				}
			}
			note = fmt.Sprintf("%d of %d loops unrolled", unrolled, len(outcomes))
			span.WithExtra("loops", strconv.Itoa(len(outcomes))).
				WithExtra("unrolled", strconv.Itoa(unrolled))
		}
		span.End("")
		timer.End(idx, note)
		emitStage(sink, file, stage, StatusWorking, nil, time.Since(start))
	}
	return nil
}

// Run loads req.Path, parses it, applies the passes and emits the result.
// A *parser.SyntaxError is returned when the listing does not parse.
func Run(ctx context.Context, req *Request) (Result, error) {
	var res Result
	if ctx == nil {
		ctx = context.Background()
	}
	if req == nil {
		return res, fmt.Errorf("missing request")
	}
	if err := Validate(req.Passes); err != nil {
		return res, err
	}
	sink, file := req.Progress, req.Path
	tracer := trace.FromContext(ctx)
	root := trace.Begin(tracer, trace.ScopeRun, "optimize", trace.SpanFrom(ctx)).
		WithExtra("file", file).
		WithExtra("passes", Chain(req.Passes))
	defer root.End("")
	ctx = trace.WithSpan(ctx, root)

	timer := observ.NewTimer()
	emitStage(sink, file, StageParse, StatusWorking, nil, 0)
	idx := timer.Begin(string(StageParse))
	fs := source.NewFileSet()
	id, err := fs.Load(req.Path)
	if err != nil {
		timer.End(idx, "failed")
		emitStage(sink, file, StageParse, StatusError, err, 0)
		return res, err
	}
	src := fs.Get(id).Content

	var key cache.Digest
	if req.Cache != nil {
		key = cache.Key(src, append([]string{Chain(req.Passes)}, req.Options.fingerprint()...)...)
		entry, ok, cerr := req.Cache.Get(key)
		if cerr == nil && ok {
			timer.End(idx, "cache hit")
			res = fromEntry(entry)
			res.Report = timer.Report()
			recordTimings(&res, res.Report)
			emitStage(sink, file, StageEmit, StatusCached, nil, 0)
			return res, nil
		}
	}

	prog, err := parser.Parse(fs, id, parser.Options{})
	if err != nil {
		timer.End(idx, "failed")
		emitStage(sink, file, StageParse, StatusError, err, 0)
		return res, err
	}
	timer.End(idx, fmt.Sprintf("%d instructions", prog.Len()))
	res.Program = prog

	if err := optimize(ctx, &res, req.Passes, req.Options, timer, sink, file); err != nil {
		return res, err
	}

	emitStage(sink, file, StageEmit, StatusWorking, nil, 0)
	idx = timer.Begin(string(StageEmit))
	res.Output = emit.String(res.Program)
	timer.End(idx, "")

	if req.Cache != nil {
		// a failed write only costs the next run a recompute
		_ = req.Cache.Put(key, toEntry(&res, req.Passes))
	}
	res.Report = timer.Report()
	recordTimings(&res, res.Report)
	emitStage(sink, file, StageEmit, StatusDone, nil, 0)
	return res, nil
}

func passStage(p Pass) Stage {
	switch p {
	case PassVN:
		return StageVN
	case PassUnroll:
		return StageUnroll
	}
	return Stage(p.String())
}

func toEntry(res *Result, passes []Pass) *cache.Entry {
	names := make([]string, len(passes))
	for i, p := range passes {
		names[i] = p.String()
	}
	return &cache.Entry{
		Output:      res.Output,
		Passes:      names,
		Removed:     res.LVN.Removed,
		Copied:      res.LVN.Copied,
		Memoized:    res.LVN.Memoized,
		LoopReasons: res.Reasons,
		Stored:      time.Now(),
	}
}

func fromEntry(e *cache.Entry) Result {
	return Result{
		Output:  e.Output,
		Cached:  true,
		LVN:     lvn.Stats{Removed: e.Removed, Copied: e.Copied, Memoized: e.Memoized},
		Reasons: e.LoopReasons,
	}
}

func recordTimings(res *Result, report observ.Report) {
	for _, phase := range report.Phases {
		res.Timings.Set(Stage(phase.Name), durationFromMillis(phase.DurationMS))
	}
}

func durationFromMillis(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}

func emitStage(sink ProgressSink, file string, stage Stage, status Status, err error, elapsed time.Duration) {
	if sink == nil {
		return
	}
	sink.OnEvent(Event{File: file, Stage: stage, Status: status, Err: err, Elapsed: elapsed})
}
