// Package config loads ilocopt.toml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"ilocopt/internal/lvn"
	"ilocopt/internal/trace"
	"ilocopt/internal/unroll"
)

// FileName is the name looked up by Find.
const FileName = "ilocopt.toml"

// Config mirrors ilocopt.toml.
type Config struct {
	Unroll UnrollConfig `toml:"unroll"`
	LVN    LVNConfig    `toml:"lvn"`
	Trace  TraceConfig  `toml:"trace"`
	Cache  CacheConfig  `toml:"cache"`

	// Path is the file the values came from; empty for defaults.
	Path string `toml:"-"`
}

type UnrollConfig struct {
	Factor        int `toml:"factor"`
	MaxBodyBlocks int `toml:"max_body_blocks"`
}

type LVNConfig struct {
	StrictOrder    bool `toml:"strict_order"`
	StrengthReduce bool `toml:"strength_reduce"`
}

type TraceConfig struct {
	Level  string `toml:"level"`
	Mode   string `toml:"mode"`
	Output string `toml:"output"`
}

type CacheConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

// Default returns the values used when no file is found.
func Default() Config {
	return Config{
		Unroll: UnrollConfig{
			Factor:        unroll.DefaultFactor,
			MaxBodyBlocks: unroll.DefaultMaxBodyBlocks,
		},
		Trace: TraceConfig{Level: "off", Mode: "ring", Output: "-"},
	}
}

// Find walks up from startDir to locate ilocopt.toml.
func Find(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Load decodes path over the defaults and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if meta.IsDefined("unroll", "factor") && cfg.Unroll.Factor < 1 {
		return Config{}, fmt.Errorf("%s: [unroll].factor must be at least 1", path)
	}
	if meta.IsDefined("unroll", "max_body_blocks") && cfg.Unroll.MaxBodyBlocks < 1 {
		return Config{}, fmt.Errorf("%s: [unroll].max_body_blocks must be at least 1", path)
	}
	if meta.IsDefined("cache", "dir") && strings.TrimSpace(cfg.Cache.Dir) == "" {
		return Config{}, fmt.Errorf("%s: [cache].dir is empty", path)
	}
	if _, err := trace.ParseLevel(cfg.Trace.Level); err != nil {
		return Config{}, fmt.Errorf("%s: [trace].level: %w", path, err)
	}
	if _, err := trace.ParseMode(cfg.Trace.Mode); err != nil {
		return Config{}, fmt.Errorf("%s: [trace].mode: %w", path, err)
	}
	if cfg.Cache.Dir != "" && !filepath.IsAbs(cfg.Cache.Dir) {
		cfg.Cache.Dir = filepath.Join(filepath.Dir(path), cfg.Cache.Dir)
	}
	cfg.Path = path
	return cfg, nil
}

// Discover loads the nearest ilocopt.toml above startDir, or the defaults
// when there is none.
func Discover(startDir string) (Config, error) {
	path, ok, err := Find(startDir)
	if err != nil {
		return Config{}, err
	}
	if !ok {
		return Default(), nil
	}
	return Load(path)
}

// LVNOptions converts the [lvn] section.
func (c Config) LVNOptions() lvn.Options {
	return lvn.Options{
		StrictOperandOrder: c.LVN.StrictOrder,
		StrengthReduce:     c.LVN.StrengthReduce,
	}
}

// UnrollOptions converts the [unroll] section.
func (c Config) UnrollOptions() unroll.Options {
	return unroll.Options{
		Factor:        c.Unroll.Factor,
		MaxBodyBlocks: c.Unroll.MaxBodyBlocks,
	}
}
