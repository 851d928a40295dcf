package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"ilocopt/internal/pipeline"
	"ilocopt/internal/ui"
)

type batchOutcome struct {
	items []pipeline.BatchItem
	err   error
}

func newBatchCmd(passes *passList) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch [flags] FILE...",
		Short: "Optimize many listings in parallel",
		Long: `batch applies the pass flags to every FILE and writes each result next to
its input as NAME.opt.i, or into --out when given.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, passes.passes, args)
		},
	}
	cmd.Flags().IntP("jobs", "j", 0, "files optimized at once (0 = GOMAXPROCS)")
	cmd.Flags().String("out", "", "directory for the results")
	cmd.Flags().String("ui", "auto", "progress display (auto|on|off)")
	return cmd
}

func runBatch(cmd *cobra.Command, passes []pipeline.Pass, paths []string) error {
	if err := pipeline.Validate(passes); err != nil {
		return err
	}
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return err
	}
	outDir, err := cmd.Flags().GetString("out")
	if err != nil {
		return err
	}
	uiValue, err := cmd.Flags().GetString("ui")
	if err != nil {
		return err
	}
	progressUI, err := autoSwitch("ui", uiValue)
	if err != nil {
		return err
	}

	// один конфиг на весь пакет: ищем от первого файла
	settings, err := loadSettings(cmd, filepath.Dir(paths[0]))
	if err != nil {
		return err
	}
	store, err := openCache(settings)
	if err != nil {
		return err
	}
	if outDir != "" {
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return err
		}
	}

	return withSession(cmd, settings, func(ctx context.Context) error {
		req := &pipeline.BatchRequest{
			Paths:   paths,
			Passes:  passes,
			Options: pipelineOptions(settings),
			Jobs:    jobs,
			Cache:   store,
		}
		quiet, _ := cmd.Flags().GetBool("quiet")

		var items []pipeline.BatchItem
		var runErr error
		switch {
		case progressUI && !quiet:
			items, runErr = runBatchWithUI(ctx, cmd.OutOrStdout(), "ilocopt "+pipeline.Chain(passes), req)
		default:
			if !quiet {
				req.Progress = ui.NewPlainSink(cmd.ErrOrStderr())
			}
			items, runErr = pipeline.RunBatch(ctx, req)
		}
		if runErr != nil {
			return runErr
		}
		return writeBatch(cmd, items, outDir)
	})
}

func runBatchWithUI(ctx context.Context, out io.Writer, title string, req *pipeline.BatchRequest) ([]pipeline.BatchItem, error) {
	events := make(chan pipeline.Event, 256)
	outcomeCh := make(chan batchOutcome, 1)

	go func() {
		reqCopy := *req
		reqCopy.Progress = pipeline.ChannelSink{Ch: events}
		items, err := pipeline.RunBatch(ctx, &reqCopy)
		outcomeCh <- batchOutcome{items: items, err: err}
		close(events)
	}()

	uiErr := ui.Run(title, req.Paths, events, out)
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.items, uiErr
	}
	return outcome.items, outcome.err
}

// writeBatch stores every successful result and fails when any file failed.
func writeBatch(cmd *cobra.Command, items []pipeline.BatchItem, outDir string) error {
	var total pipeline.Timings
	failed := 0
	for _, item := range items {
		if item.Err != nil {
			failed++
			continue
		}
		dst := outputPath(item.Path, outDir)
		if err := os.WriteFile(dst, []byte(item.Result.Output), 0o644); err != nil {
			return err
		}
		total.Add(item.Result.Timings)
	}
	if show, _ := cmd.Flags().GetBool("timings"); show {
		printStageTimings(cmd.ErrOrStderr(), total)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(items))
	}
	return nil
}

// outputPath maps dir/prog.i to dir/prog.opt.i, or to outDir/prog.opt.i.
func outputPath(path, outDir string) string {
	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base)) + ".opt.i"
	if outDir == "" {
		return filepath.Join(filepath.Dir(path), name)
	}
	return filepath.Join(outDir, name)
}
