package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"ilocopt/internal/iloc"
	"ilocopt/internal/interp"
	"ilocopt/internal/pipeline"
)

func newRunCmd(passes *passList) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [flags] FILE",
		Short: "Optimize a listing and execute it",
		Long: `run applies the pass flags to FILE, executes the result and prints what it
writes. With --check the unoptimized listing is executed as well and the two
runs must agree on output, memory and the registers of the original.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExec(cmd, passes.passes, args[0])
		},
	}
	cmd.Flags().Int64Slice("input", nil, "values consumed by read and cread, in order")
	cmd.Flags().Int("max-steps", interp.DefaultMaxSteps, "abort after this many instructions")
	cmd.Flags().Bool("check", false, "compare against the unoptimized listing")
	return cmd
}

func runExec(cmd *cobra.Command, passes []pipeline.Pass, path string) error {
	if err := pipeline.Validate(passes); err != nil {
		return err
	}
	settings, err := loadSettings(cmd, filepath.Dir(path))
	if err != nil {
		return err
	}
	input, err := cmd.Flags().GetInt64Slice("input")
	if err != nil {
		return err
	}
	maxSteps, err := cmd.Flags().GetInt("max-steps")
	if err != nil {
		return err
	}
	check, err := cmd.Flags().GetBool("check")
	if err != nil {
		return err
	}

	return withSession(cmd, settings, func(ctx context.Context) error {
		orig, err := pipeline.Run(ctx, &pipeline.Request{Path: path})
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		opt, err := pipeline.Optimize(ctx, orig.Program.Clone(), passes, pipelineOptions(settings))
		if err != nil {
			return err
		}
		opts := interp.Options{Input: input, MaxSteps: maxSteps}
		got, err := interp.Run(opt.Program, opts)
		if err != nil {
			return fmt.Errorf("optimized program: %w", err)
		}
		if len(got.Output) > 0 {
			if _, err := fmt.Fprintln(cmd.OutOrStdout(), strings.Join(got.Output, "\n")); err != nil {
				return err
			}
		}
		if !check {
			return nil
		}
		want, err := interp.Run(orig.Program, opts)
		if err != nil {
			return fmt.Errorf("original program: %w", err)
		}
		if err := interp.Diff(want, got, iloc.MaxReg(orig.Program.Insts)); err != nil {
			return fmt.Errorf("optimized program disagrees: %w", err)
		}
		if quiet, _ := cmd.Flags().GetBool("quiet"); !quiet {
			fmt.Fprintf(cmd.ErrOrStderr(), "check: ok (%d steps before, %d after)\n", want.Steps, got.Steps)
		}
		return nil
	})
}
