package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ilocopt/internal/cache"
	"ilocopt/internal/config"
	"ilocopt/internal/pipeline"
)

func configFileName() string { return config.FileName }

// loadSettings finds the configuration for files under startDir and applies
// the flags the user set explicitly on top of it.
func loadSettings(cmd *cobra.Command, startDir string) (config.Config, error) {
	flags := cmd.Flags()
	path, err := flags.GetString("config")
	if err != nil {
		return config.Config{}, err
	}
	var cfg config.Config
	if path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.Discover(startDir)
	}
	if err != nil {
		return config.Config{}, err
	}

	if flags.Changed("unroll-factor") {
		n, _ := flags.GetInt("unroll-factor")
		if n < 1 {
			return config.Config{}, fmt.Errorf("--unroll-factor must be at least 1, got %d", n)
		}
		cfg.Unroll.Factor = n
	}
	if flags.Changed("max-body-blocks") {
		n, _ := flags.GetInt("max-body-blocks")
		if n < 1 {
			return config.Config{}, fmt.Errorf("--max-body-blocks must be at least 1, got %d", n)
		}
		cfg.Unroll.MaxBodyBlocks = n
	}
	if flags.Changed("strict-order") {
		cfg.LVN.StrictOrder, _ = flags.GetBool("strict-order")
	}
	if flags.Changed("strength-reduce") {
		cfg.LVN.StrengthReduce, _ = flags.GetBool("strength-reduce")
	}
	if flags.Changed("cache") {
		cfg.Cache.Enabled, _ = flags.GetBool("cache")
	}
	if flags.Changed("cache-dir") {
		cfg.Cache.Dir, _ = flags.GetString("cache-dir")
		cfg.Cache.Enabled = true
	}
	if flags.Changed("trace-level") {
		cfg.Trace.Level, _ = flags.GetString("trace-level")
	}
	if flags.Changed("trace-mode") {
		cfg.Trace.Mode, _ = flags.GetString("trace-mode")
	}
	if flags.Changed("trace") {
		cfg.Trace.Output, _ = flags.GetString("trace")
		// --trace alone means "show me something"
		if !flags.Changed("trace-level") && cfg.Trace.Level == "off" {
			cfg.Trace.Level = "pass"
		}
	}
	return cfg, nil
}

func pipelineOptions(cfg config.Config) pipeline.Options {
	return pipeline.Options{LVN: cfg.LVNOptions(), Unroll: cfg.UnrollOptions()}
}

// openCache returns nil when caching is off.
func openCache(cfg config.Config) (*cache.Cache, error) {
	if !cfg.Cache.Enabled {
		return nil, nil
	}
	c, err := cache.Open(cfg.Cache.Dir, "ilocopt")
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	return c, nil
}
