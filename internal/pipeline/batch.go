package pipeline

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"ilocopt/internal/cache"
)

// BatchItem is the outcome for one file of a batch.
type BatchItem struct {
	Path   string
	Result Result
	Err    error
}

// BatchRequest shares passes, options and cache across files.
type BatchRequest struct {
	Paths    []string
	Passes   []Pass
	Options  Options
	Jobs     int // <= 0 means GOMAXPROCS
	Progress ProgressSink
	Cache    *cache.Cache // shared; safe for concurrent use
}

// RunBatch optimizes every path in parallel. Per-file failures are reported
// in the items; the returned error is only set when ctx is cancelled.
func RunBatch(ctx context.Context, req *BatchRequest) ([]BatchItem, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := Validate(req.Passes); err != nil {
		return nil, err
	}
	items := make([]BatchItem, len(req.Paths))
	if len(req.Paths) == 0 {
		return items, nil
	}
	for _, path := range req.Paths {
		emitStage(req.Progress, path, StageParse, StatusQueued, nil, 0)
	}

	jobs := req.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(req.Paths)))

	for i, path := range req.Paths {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			fileReq := Request{
				Path:     path,
				Passes:   req.Passes,
				Options:  req.Options,
				Cache:    req.Cache,
				Progress: req.Progress,
			}
			res, err := Run(gctx, &fileReq)
			// индекс i уникален, мьютекс не нужен
			items[i] = BatchItem{Path: path, Result: res, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return items, err
	}
	return items, nil
}
