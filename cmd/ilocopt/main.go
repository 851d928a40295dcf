package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"ilocopt/internal/version"
)

// errUsage asks execute to print the usage text and exit with status 0.
var errUsage = errors.New("usage")

const usageText = "Incorrect input format.\n" +
	"./opt [-v][-u][-i] file.i\n" +
	"-v: value numbering\n" +
	"-u: loop unrolling\n" +
	"-i: loop-invariant code motion\n"

var errorPrefix = color.New(color.FgRed, color.Bold)

// newRootCmd builds the command tree. Pass flags are registered first so the
// -v shorthand belongs to value numbering and not to --version.
func newRootCmd() *cobra.Command {
	passes := &passList{}
	root := &cobra.Command{
		Use:   "ilocopt [-v] [-u] [-i] FILE",
		Short: "ILOC optimizer",
		Long: `ilocopt reads an ILOC listing, applies the requested passes in the
order given and prints the result to stdout.`,
		Args:          cobra.ArbitraryArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOptimize(cmd, passes.passes, args)
		},
	}
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		if cmd == cmd.Root() {
			return errUsage
		}
		return err
	})

	pf := root.PersistentFlags()
	passes.register(pf)

	// Глобальные флаги
	pf.String("config", "", "path to "+configFileName()+" (default: search from the input directory)")
	pf.Int("unroll-factor", 0, "loop body copies per unrolled iteration (overrides config)")
	pf.Int("max-body-blocks", 0, "largest loop body considered for unrolling (overrides config)")
	pf.Bool("strict-order", false, "value numbering keys commutative operands in written order")
	pf.Bool("strength-reduce", false, "value numbering rewrites multI by 0 or a power of two (divI is kept)")
	pf.Bool("cache", false, "reuse results from the on-disk output cache")
	pf.String("cache-dir", "", "cache directory (default: $XDG_CACHE_HOME/ilocopt)")
	pf.String("color", "auto", "colorize output (auto|on|off)")
	pf.Bool("quiet", false, "suppress non-essential output")
	pf.Bool("timings", false, "show timing information")

	pf.String("trace", "", "trace output file (\"-\" for stderr)")
	pf.String("trace-level", "", "trace level (off|run|pass|loop|block)")
	pf.String("trace-mode", "", "trace storage mode (stream|ring|both)")
	pf.Int("trace-ring-size", 4096, "ring buffer capacity")
	pf.Duration("trace-heartbeat", 0, "heartbeat interval (0 = disabled)")

	pf.String("cpuprofile", "", "write CPU profile to file")
	pf.String("memprofile", "", "write heap profile to file")
	pf.String("runtime-trace", "", "write runtime execution trace to file")

	root.Version = version.Version
	root.AddCommand(newCFGCmd(passes))
	root.AddCommand(newRunCmd(passes))
	root.AddCommand(newBatchCmd(passes))
	root.AddCommand(newVersionCmd())
	return root
}

// main executes the root command and exits with its status.
func main() {
	os.Exit(execute(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// execute runs the CLI with args and returns the process exit status.
// Usage mistakes on the root command print the usage text to stdout and succeed.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.ExecuteContext(ctx)
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage):
		fmt.Fprint(stdout, usageText)
		return 0
	default:
		fmt.Fprintf(stderr, "%s %v\n", errorPrefix.Sprint("error:"), err)
		return 1
	}
}

// isTerminal проверяет, является ли файл терминалом
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// autoSwitch resolves an auto|on|off flag value; auto means stdout is a
// terminal.
func autoSwitch(flag, value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "on":
		return true, nil
	case "off":
		return false, nil
	case "", "auto":
		return isTerminal(os.Stdout), nil
	}
	return false, fmt.Errorf("invalid --%s value %q (expected auto|on|off)", flag, value)
}

// applyColor sets color.NoColor from --color.
func applyColor(cmd *cobra.Command) error {
	mode, err := cmd.Flags().GetString("color")
	if err != nil {
		return err
	}
	on, err := autoSwitch("color", mode)
	if err != nil {
		return err
	}
	color.NoColor = !on
	return nil
}
