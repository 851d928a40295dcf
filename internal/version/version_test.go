package version

import (
	"testing"

	"github.com/fatih/color"
)

func TestColoredPlain(t *testing.T) {
	origVersion, origNoColor := Version, color.NoColor
	t.Cleanup(func() {
		Version, color.NoColor = origVersion, origNoColor
	})
	color.NoColor = true

	tests := []struct {
		version string
		want    string
	}{
		{"0.1.0-dev", "0.1.0-dev"},
		{"1.2.3", "1.2.3"},
		{"1.0.0-rc.1+build.123", "1.0.0-rc.1+build.123"},
		{"nightly", "nightly"},
		{"  ", "dev"},
	}
	for _, tt := range tests {
		Version = tt.version
		if got := Colored(); got != tt.want {
			t.Errorf("Colored() with %q = %q, want %q", tt.version, got, tt.want)
		}
	}
}

func TestColoredAddsEscapes(t *testing.T) {
	origVersion, origNoColor := Version, color.NoColor
	t.Cleanup(func() {
		Version, color.NoColor = origVersion, origNoColor
	})
	color.NoColor = false
	Version = "1.2.3"
	if got := Colored(); got == "1.2.3" {
		t.Errorf("expected colored output, got %q", got)
	}
}
