package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"ilocopt/internal/config"
	"ilocopt/internal/prof"
)

func setupProfiling(cmd *cobra.Command) (func(), error) {
	flags := cmd.Root().PersistentFlags()
	cpu, _ := flags.GetString("cpuprofile")
	mem, _ := flags.GetString("memprofile")
	rt, _ := flags.GetString("runtime-trace")

	session, err := prof.Start(prof.Config{CPU: cpu, Mem: mem, Trace: rt})
	if err != nil {
		return nil, err
	}
	return func() {
		if err := session.Stop(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "profile: %v\n", err)
		}
	}, nil
}

// withSession applies --color, starts profiling and tracing around fn and
// tears them down afterwards.
func withSession(cmd *cobra.Command, settings config.Config, fn func(ctx context.Context) error) error {
	if err := applyColor(cmd); err != nil {
		return err
	}
	if cmd.Context() == nil {
		cmd.SetContext(context.Background())
	}
	stopProf, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	defer stopProf()

	stopTrace, err := setupTracing(cmd, settings.Trace)
	if err != nil {
		return err
	}
	defer stopTrace()

	return fn(cmd.Context())
}
