package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

const loopSrc = `	loadI 0 => r1
	loadI 10 => r10
	loadI 4 => r20
	add r10, r20 => r21
	add r20, r10 => r22
	cmp_LT r1, r10 => r2
	cbr r2 -> L, EXIT
L:	addI r1, 1 => r1
	cmp_LT r1, r10 => r2
	cbr r2 -> L, EXIT
EXIT:	write r1
	write r22
`

func writeListing(t *testing.T, name, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(src), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func runCLI(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code = execute(context.Background(), append([]string{"--color=off"}, args...), &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestInvocationMistakesPrintUsage(t *testing.T) {
	prog := writeListing(t, "prog.i", loopSrc)
	tests := []struct {
		name string
		args []string
	}{
		{"nothing", nil},
		{"file only", []string{prog}},
		{"flag only", []string{"-v"}},
		{"unknown flag", []string{"-x", prog}},
		{"two files", []string{"-v", prog, prog}},
		{"repeated flag", []string{"-v", "-v", prog}},
		{"dash file", []string{"-u", "--", "-q"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, stdout, _ := runCLI(t, tt.args...)
			if code != 0 {
				t.Fatalf("exit %d, want 0", code)
			}
			if stdout != usageText {
				t.Fatalf("stdout = %q, want usage", stdout)
			}
		})
	}
}

func TestInputProblemsExitZero(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.i")
	bad := writeListing(t, "bad.i", "\tadd r1 => r2\n")
	dangling := writeListing(t, "dangling.i", "\tloadI 1 => r1\n\tbr -> NOWHERE\n")
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"motion", []string{"-v", "-i", bad}, "-i: code motion not implemented\n"},
		{"missing", []string{"-v", missing}, "Cannot open file '" + missing + "'.\n"},
		{"syntax", []string{"-v", bad}, "Parse stopped with 1 error(s).\n"},
		{"undefined label", []string{"-v", dangling}, "Undefined label 'NOWHERE' on line 2.\n"},
		{"undefined label unroll", []string{"-u", dangling}, "Undefined label 'NOWHERE' on line 2.\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, stdout, _ := runCLI(t, tt.args...)
			if code != 0 {
				t.Fatalf("exit %d, want 0", code)
			}
			if stdout != tt.want {
				t.Fatalf("stdout = %q, want %q", stdout, tt.want)
			}
		})
	}
}

func TestOptimizePrintsListing(t *testing.T) {
	prog := writeListing(t, "prog.i", loopSrc)

	code, stdout, stderr := runCLI(t, "-v", prog)
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	if !strings.Contains(stdout, "i2i r21 => r22") {
		t.Errorf("value numbering missing from output:\n%s", stdout)
	}
	if !strings.HasSuffix(stdout, "\thalt\n") {
		t.Errorf("output does not end in halt:\n%s", stdout)
	}

	_, unrolled, _ := runCLI(t, "-v", "-u", prog)
	if !strings.Contains(unrolled, "LX0:") {
		t.Errorf("loop was not unrolled:\n%s", unrolled)
	}
}

func TestPassOrderIsKept(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"-v", "-u"}, "vu"},
		{[]string{"-u", "-v"}, "uv"},
		{[]string{"-uv"}, "uv"},
		{[]string{"--unroll", "--vn", "-i"}, "uvi"},
		{[]string{"-v", "-v"}, "vv"},
		{[]string{"--vn=false", "-u"}, "u"},
	}
	for _, tt := range tests {
		var list passList
		fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
		list.register(fs)
		if err := fs.Parse(tt.args); err != nil {
			t.Fatalf("%v: %v", tt.args, err)
		}
		var got strings.Builder
		for _, p := range list.passes {
			got.WriteString(strings.TrimPrefix(p.Flag(), "-"))
		}
		if got.String() != tt.want {
			t.Errorf("%v: passes %q, want %q", tt.args, got.String(), tt.want)
		}
	}
}

func TestRunCheck(t *testing.T) {
	prog := writeListing(t, "prog.i", loopSrc)
	code, stdout, stderr := runCLI(t, "run", "--check", "-v", "-u", prog)
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	if stdout != "10\n14\n" {
		t.Errorf("stdout = %q, want program output", stdout)
	}
	if !strings.Contains(stderr, "check: ok") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestCFGDump(t *testing.T) {
	prog := writeListing(t, "prog.i", loopSrc)
	code, stdout, stderr := runCLI(t, "cfg", prog)
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	if !strings.HasPrefix(stdout, "blocks=3 ") {
		t.Errorf("unexpected dump:\n%s", stdout)
	}
}

func TestBatchWritesResults(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for _, name := range []string{"a.i", "b.i"} {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(loopSrc), 0o600); err != nil {
			t.Fatal(err)
		}
		paths = append(paths, p)
	}
	out := filepath.Join(dir, "out")
	args := append([]string{"batch", "-v", "--ui=off", "--quiet", "--out", out}, paths...)
	code, _, stderr := runCLI(t, args...)
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	for _, name := range []string{"a.opt.i", "b.opt.i"} {
		data, err := os.ReadFile(filepath.Join(out, name))
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(data), "i2i r21 => r22") {
			t.Errorf("%s not optimized:\n%s", name, data)
		}
	}

	bad := filepath.Join(dir, "bad.i")
	if err := os.WriteFile(bad, []byte("\tadd r1 => r2\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	code, _, stderr = runCLI(t, "batch", "-v", "--ui=off", "--quiet", paths[0], bad)
	if code != 1 || !strings.Contains(stderr, "1 of 2 files failed") {
		t.Errorf("exit %d, stderr %q", code, stderr)
	}
}

func TestOutputPath(t *testing.T) {
	if got := outputPath("x/prog.i", ""); got != filepath.Join("x", "prog.opt.i") {
		t.Errorf("outputPath = %q", got)
	}
	if got := outputPath("x/prog.i", "o"); got != filepath.Join("o", "prog.opt.i") {
		t.Errorf("outputPath = %q", got)
	}
}

func TestConfigAndFlags(t *testing.T) {
	prog := writeListing(t, "prog.i", loopSrc)
	cfgPath := filepath.Join(filepath.Dir(prog), configFileName())
	if err := os.WriteFile(cfgPath, []byte("[unroll]\nfactor = 0\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	code, _, stderr := runCLI(t, "-u", prog)
	if code != 1 || !strings.Contains(stderr, "factor must be at least 1") {
		t.Errorf("exit %d, stderr %q", code, stderr)
	}

	code, _, stderr = runCLI(t, "-u", "--unroll-factor=0", "--config", filepath.Join(t.TempDir(), "none.toml"), prog)
	if code != 1 {
		t.Errorf("exit %d, stderr %q", code, stderr)
	}
}

func TestVersionJSON(t *testing.T) {
	code, stdout, _ := runCLI(t, "version", "--format", "json", "--full")
	if code != 0 {
		t.Fatalf("exit %d", code)
	}
	var payload versionPayload
	if err := json.Unmarshal([]byte(stdout), &payload); err != nil {
		t.Fatalf("bad json %q: %v", stdout, err)
	}
	if payload.Tool != "ilocopt" || payload.GitCommit != "unknown" {
		t.Errorf("payload = %+v", payload)
	}
}
