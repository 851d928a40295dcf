package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"ilocopt/internal/cfg"
	"ilocopt/internal/emit"
	"ilocopt/internal/graph"
	"ilocopt/internal/pipeline"
)

func newCFGCmd(passes *passList) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cfg [flags] FILE",
		Short: "Print basic blocks, graph edges and loops of a listing",
		Long: `cfg parses FILE, applies any pass flags given and prints the blocks of the
result with their successors, followed by the loops found by back-edge search.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCFG(cmd, passes.passes, args[0])
		},
	}
	cmd.Flags().Bool("code", false, "print each block's instructions")
	return cmd
}

func runCFG(cmd *cobra.Command, passes []pipeline.Pass, path string) error {
	if err := pipeline.Validate(passes); err != nil {
		return err
	}
	settings, err := loadSettings(cmd, filepath.Dir(path))
	if err != nil {
		return err
	}
	code, err := cmd.Flags().GetBool("code")
	if err != nil {
		return err
	}
	return withSession(cmd, settings, func(ctx context.Context) error {
		res, err := pipeline.Run(ctx, &pipeline.Request{
			Path:    path,
			Passes:  passes,
			Options: pipelineOptions(settings),
		})
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		c, err := cfg.Build(res.Program)
		if err != nil {
			return err
		}
		g := graph.FromCFG(res.Program, c)
		return emit.Graph(cmd.OutOrStdout(), res.Program, c, g, g.FindLoops(), emit.DumpOptions{Code: code})
	})
}
