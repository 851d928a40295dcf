package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ilocopt/internal/config"
	"ilocopt/internal/unroll"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestDiscoverWalksUp(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, config.FileName), `
[unroll]
factor = 8

[lvn]
strict_order = true

[cache]
enabled = true
dir = "cache"
`)
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.Discover(nested)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if cfg.Unroll.Factor != 8 {
		t.Errorf("factor = %d, want 8", cfg.Unroll.Factor)
	}
	if cfg.Unroll.MaxBodyBlocks != unroll.DefaultMaxBodyBlocks {
		t.Errorf("max_body_blocks = %d, want default", cfg.Unroll.MaxBodyBlocks)
	}
	if !cfg.LVNOptions().StrictOperandOrder {
		t.Errorf("strict_order not applied")
	}
	if want := filepath.Join(root, "cache"); cfg.Cache.Dir != want {
		t.Errorf("cache dir = %q, want %q", cfg.Cache.Dir, want)
	}
	if cfg.Path == "" {
		t.Errorf("Path not recorded")
	}
}

func TestDiscoverDefaults(t *testing.T) {
	cfg, err := config.Discover(t.TempDir())
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	// a file further up the real filesystem would make this flaky
	if cfg.Path != "" {
		t.Skipf("found %s above the temp dir", cfg.Path)
	}
	if cfg.UnrollOptions().Factor != unroll.DefaultFactor || cfg.Trace.Level != "off" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"bad toml", "[unroll\n", "failed to parse TOML"},
		{"zero factor", "[unroll]\nfactor = 0\n", "factor must be at least 1"},
		{"unknown key", "[lvn]\nfold = true\n", "unknown keys: lvn.fold"},
		{"bad level", "[trace]\nlevel = \"loud\"\n", "[trace].level"},
		{"bad mode", "[trace]\nmode = \"file\"\n", "[trace].mode"},
		{"empty dir", "[cache]\ndir = \" \"\n", "[cache].dir is empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), config.FileName)
			writeFile(t, path, tt.content)
			_, err := config.Load(path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want %q", err, tt.want)
			}
		})
	}
}
