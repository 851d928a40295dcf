package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"ilocopt/internal/pipeline"
)

// printTimings writes the phase report of res to stderr when --timings is set.
func printTimings(cmd *cobra.Command, res *pipeline.Result) error {
	show, err := cmd.Flags().GetBool("timings")
	if err != nil || !show {
		return err
	}
	out := cmd.ErrOrStderr()
	p := message.NewPrinter(userLanguage())
	if _, err := io.WriteString(out, res.Report.Format(p)); err != nil {
		return err
	}
	if res.Cached {
		_, err = fmt.Fprintln(out, "  (cached)")
		return err
	}
	for _, reason := range res.Reasons {
		if _, err := fmt.Fprintf(out, "  loop: %s\n", reason); err != nil {
			return err
		}
	}
	return nil
}

func printStageTimings(out io.Writer, timings pipeline.Timings) {
	if out == nil {
		return
	}
	p := message.NewPrinter(userLanguage())
	for _, stage := range []pipeline.Stage{pipeline.StageParse, pipeline.StageVN, pipeline.StageUnroll, pipeline.StageEmit} {
		if !timings.Has(stage) {
			continue
		}
		if _, err := p.Fprintf(out, "%s %.1f ms\n", stage, toMillis(timings.Duration(stage))); err != nil {
			panic(err)
		}
	}
}

// userLanguage picks the message locale from LC_ALL or LANG ("de_DE.UTF-8").
func userLanguage() language.Tag {
	for _, env := range []string{"LC_ALL", "LANG"} {
		v := os.Getenv(env)
		if v == "" || v == "C" || v == "POSIX" {
			continue
		}
		if i := strings.IndexAny(v, ".@"); i >= 0 {
			v = v[:i]
		}
		if tag, err := language.Parse(strings.ReplaceAll(v, "_", "-")); err == nil {
			return tag
		}
	}
	return language.English
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
