package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/spf13/cobra"

	"ilocopt/internal/cfg"
	"ilocopt/internal/diag"
	"ilocopt/internal/parser"
	"ilocopt/internal/pipeline"
)

const maxPasses = 3

// runOptimize implements `ilocopt [-v] [-u] [-i] FILE`. Mistakes in the
// invocation, unreadable files and syntax errors are reported on stdout and
// still exit with status 0.
func runOptimize(cmd *cobra.Command, passes []pipeline.Pass, args []string) error {
	out := cmd.OutOrStdout()
	if len(passes) == 0 || len(passes) > maxPasses || len(args) != 1 {
		return errUsage
	}
	if err := pipeline.Validate(passes); err != nil {
		if errors.Is(err, pipeline.ErrUnsupportedPass) {
			fmt.Fprintf(out, "%s\n", err)
			return nil
		}
		return errUsage
	}
	path := args[0]
	if len(path) == 2 && path[0] == '-' {
		return errUsage
	}

	settings, err := loadSettings(cmd, filepath.Dir(path))
	if err != nil {
		return err
	}
	store, err := openCache(settings)
	if err != nil {
		return err
	}

	return withSession(cmd, settings, func(ctx context.Context) error {
		res, err := pipeline.Run(ctx, &pipeline.Request{
			Path:    path,
			Passes:  passes,
			Options: pipelineOptions(settings),
			Cache:   store,
		})
		if err != nil {
			return reportRunError(cmd, path, err)
		}
		if _, err := fmt.Fprint(out, res.Output); err != nil {
			return err
		}
		return printTimings(cmd, &res)
	})
}

// reportRunError prints the messages a failed run ends with. Only failures
// that are not about the input itself are returned.
func reportRunError(cmd *cobra.Command, path string, err error) error {
	out := cmd.OutOrStdout()
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		fmt.Fprintf(out, "Cannot open file '%s'.\n", path)
		return nil
	}
	var syntaxErr *parser.SyntaxError
	if errors.As(err, &syntaxErr) {
		printDiagnostics(cmd, syntaxErr)
		fmt.Fprintf(out, "%s\n", syntaxErr.Error())
		return nil
	}
	var labelErr *cfg.UnresolvedLabelError
	if errors.As(err, &labelErr) {
		fmt.Fprintf(out, "Undefined label '%s' on line %d.\n", labelErr.Name, labelErr.Line+1)
		return nil
	}
	return err
}

// printDiagnostics lists the parse errors on stderr unless --quiet is set.
func printDiagnostics(cmd *cobra.Command, err *parser.SyntaxError) {
	if quiet, _ := cmd.Flags().GetBool("quiet"); quiet {
		return
	}
	if text := diag.FormatShort(err.Diagnostics, err.Files, false); text != "" {
		fmt.Fprintln(cmd.ErrOrStderr(), text)
	}
}
