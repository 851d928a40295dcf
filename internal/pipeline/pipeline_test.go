package pipeline_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ilocopt/internal/cache"
	"ilocopt/internal/emit"
	"ilocopt/internal/parser"
	"ilocopt/internal/pipeline"
	"ilocopt/internal/trace"
	"ilocopt/internal/unroll"
)

const loopSrc = `	loadI 0 => r1
	loadI 10 => r10
	loadI 4 => r20
	add r10, r20 => r21
	add r20, r10 => r22
	cmp_LT r1, r10 => r2
	cbr r2 -> L, EXIT
L:	addI r1, 1 => r1
	cmp_LT r1, r10 => r2
	cbr r2 -> L, EXIT
EXIT:	write r1
	write r22
`

func writeListing(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(src), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		passes []pipeline.Pass
		want   string
	}{
		{"empty", nil, ""},
		{"vn then unroll", []pipeline.Pass{pipeline.PassVN, pipeline.PassUnroll}, ""},
		{"twice", []pipeline.Pass{pipeline.PassVN, pipeline.PassVN}, "-v given more than once"},
		{"motion", []pipeline.Pass{pipeline.PassUnroll, pipeline.PassMotion}, "-i: code motion not implemented"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := pipeline.Validate(tt.passes)
			if tt.want == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || err.Error() != tt.want {
				t.Fatalf("err = %v, want %q", err, tt.want)
			}
		})
	}
	if err := pipeline.Validate([]pipeline.Pass{pipeline.PassMotion}); !errors.Is(err, pipeline.ErrUnsupportedPass) {
		t.Errorf("motion error does not wrap ErrUnsupportedPass: %v", err)
	}
}

func TestPassFlags(t *testing.T) {
	for _, c := range []byte("vui") {
		p, ok := pipeline.PassForFlag(c)
		if !ok || p.Flag() != "-"+string(c) {
			t.Errorf("PassForFlag(%c) = %v, %v", c, p, ok)
		}
	}
	if _, ok := pipeline.PassForFlag('x'); ok {
		t.Errorf("unexpected pass for -x")
	}
	if got := pipeline.Chain([]pipeline.Pass{pipeline.PassUnroll, pipeline.PassVN}); got != "uv" {
		t.Errorf("Chain = %q", got)
	}
}

func TestOptimizeChain(t *testing.T) {
	prog, err := parser.ParseSource("loop.i", loopSrc)
	if err != nil {
		t.Fatal(err)
	}
	res, err := pipeline.Optimize(context.Background(), prog,
		[]pipeline.Pass{pipeline.PassVN, pipeline.PassUnroll}, pipeline.Options{})
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if res.LVN.Copied == 0 {
		t.Errorf("value numbering found nothing: %+v", res.LVN)
	}
	if len(res.Loops) != 1 || res.Loops[0].Reason != unroll.Eligible {
		t.Fatalf("loops = %+v", res.Loops)
	}
	if len(res.Reasons) != 1 || res.Reasons[0] != "eligible" {
		t.Errorf("reasons = %v", res.Reasons)
	}
	for _, stage := range []pipeline.Stage{pipeline.StageVN, pipeline.StageUnroll} {
		if !res.Timings.Has(stage) {
			t.Errorf("no timing for %s", stage)
		}
	}
	if !strings.Contains(emit.String(res.Program), "i2i r21 => r22") {
		t.Errorf("redundant add not replaced:\n%s", emit.String(res.Program))
	}
}

func TestRunEmitsAndReports(t *testing.T) {
	dir := t.TempDir()
	path := writeListing(t, dir, "loop.i", loopSrc)
	sink := &pipeline.RecordingSink{}
	ring := trace.NewRingTracer(256, trace.LevelBlock)
	ctx := trace.WithTracer(context.Background(), ring)

	res, err := pipeline.Run(ctx, &pipeline.Request{
		Path:     path,
		Passes:   []pipeline.Pass{pipeline.PassUnroll},
		Progress: sink,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Output != emit.String(res.Program) || !strings.HasSuffix(res.Output, "\thalt\n") {
		t.Errorf("output does not match the program")
	}

	events := sink.Events()
	if len(events) == 0 || events[len(events)-1].Status != pipeline.StatusDone {
		t.Fatalf("last event not done: %+v", events)
	}
	for _, ev := range events {
		if ev.File != path {
			t.Errorf("event for %q", ev.File)
		}
	}

	var sawPass, sawLoop bool
	for _, ev := range ring.Snapshot() {
		switch {
		case ev.Kind == trace.KindSpanEnd && ev.Name == "unroll":
			sawPass = ev.Extra["unrolled"] == "1"
		case ev.Kind == trace.KindPoint && ev.Pass == "unroll" && ev.Name == "loop":
			sawLoop = ev.Extra["reason"] == "eligible"
		}
	}
	if !sawPass || !sawLoop {
		t.Errorf("trace lacks pass span or loop point (pass=%v loop=%v)", sawPass, sawLoop)
	}
}

func TestRunFailures(t *testing.T) {
	dir := t.TempDir()

	_, err := pipeline.Run(context.Background(), &pipeline.Request{Path: filepath.Join(dir, "missing.i")})
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file: %v", err)
	}

	bad := writeListing(t, dir, "bad.i", "\tadd r1 => r2\n\tjump r3\n")
	_, err = pipeline.Run(context.Background(), &pipeline.Request{Path: bad})
	var syn *parser.SyntaxError
	if !errors.As(err, &syn) || syn.Count == 0 {
		t.Fatalf("bad listing: %v", err)
	}

	good := writeListing(t, dir, "good.i", loopSrc)
	_, err = pipeline.Run(context.Background(), &pipeline.Request{
		Path:   good,
		Passes: []pipeline.Pass{pipeline.PassMotion},
	})
	if !errors.Is(err, pipeline.ErrUnsupportedPass) {
		t.Errorf("motion: %v", err)
	}
}

func TestRunUsesCache(t *testing.T) {
	dir := t.TempDir()
	c, err := cache.Open(filepath.Join(dir, "cache"), "ilocopt")
	if err != nil {
		t.Fatal(err)
	}
	path := writeListing(t, dir, "loop.i", loopSrc)
	req := &pipeline.Request{
		Path:   path,
		Passes: []pipeline.Pass{pipeline.PassVN, pipeline.PassUnroll},
		Cache:  c,
	}
	first, err := pipeline.Run(context.Background(), req)
	if err != nil || first.Cached {
		t.Fatalf("first run: cached=%v err=%v", first.Cached, err)
	}
	second, err := pipeline.Run(context.Background(), req)
	if err != nil || !second.Cached {
		t.Fatalf("second run: cached=%v err=%v", second.Cached, err)
	}
	if second.Output != first.Output || second.LVN.Copied != first.LVN.Copied {
		t.Errorf("cached result differs")
	}
	if len(second.Reasons) != 1 || second.Reasons[0] != "eligible" {
		t.Errorf("cached reasons = %v", second.Reasons)
	}

	// another chain is another key
	req.Passes = []pipeline.Pass{pipeline.PassUnroll}
	third, err := pipeline.Run(context.Background(), req)
	if err != nil || third.Cached {
		t.Fatalf("other chain: cached=%v err=%v", third.Cached, err)
	}
}

func TestRunBatch(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writeListing(t, dir, "a.i", loopSrc),
		writeListing(t, dir, "b.i", "\tjump\n"),
		writeListing(t, dir, "c.i", "\tloadI 1 => r1\n\twrite r1\n"),
	}
	sink := &pipeline.RecordingSink{}
	items, err := pipeline.RunBatch(context.Background(), &pipeline.BatchRequest{
		Paths:    paths,
		Passes:   []pipeline.Pass{pipeline.PassVN},
		Jobs:     2,
		Progress: sink,
	})
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("items = %d", len(items))
	}
	for i, it := range items {
		if it.Path != paths[i] {
			t.Errorf("item %d is %s", i, it.Path)
		}
	}
	if items[0].Err != nil || items[2].Err != nil {
		t.Errorf("good files failed: %v, %v", items[0].Err, items[2].Err)
	}
	if items[1].Err == nil {
		t.Errorf("broken file passed")
	}
	if items[2].Result.Output != "\tloadI 1 => r1\n\twrite r1\n\thalt\n" {
		t.Errorf("c.i output = %q", items[2].Result.Output)
	}

	queued := 0
	for _, ev := range sink.Events() {
		if ev.Status == pipeline.StatusQueued {
			queued++
		}
	}
	if queued != 3 {
		t.Errorf("queued events = %d, want 3", queued)
	}
}

func TestRunBatchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	path := writeListing(t, t.TempDir(), "a.i", loopSrc)
	_, err := pipeline.RunBatch(ctx, &pipeline.BatchRequest{Paths: []string{path, path}})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v", err)
	}
}
