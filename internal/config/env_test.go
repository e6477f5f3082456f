// ABOUTME: Tests for environment flag overrides
// ABOUTME: Checks precedence between command line, environment and .env files
package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
)

func TestEnvName(t *testing.T) {
	tests := []struct {
		prefix string
		flag   string
		want   string
	}{
		{"AUDIOSTREAM", "port", "AUDIOSTREAM_PORT"},
		{"AUDIOSTREAM", "max-buffer-seconds", "AUDIOSTREAM_MAX_BUFFER_SECONDS"},
		{"", "no-mdns", "NO_MDNS"},
	}

	for _, tt := range tests {
		if got := EnvName(tt.prefix, tt.flag); got != tt.want {
			t.Errorf("EnvName(%q, %q) = %q, want %q", tt.prefix, tt.flag, got, tt.want)
		}
	}
}

func newFlags() (*flag.FlagSet, *int, *string, *bool) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	port := fs.Int("port", 8928, "")
	name := fs.String("name", "default", "")
	debug := fs.Bool("debug", false, "")
	return fs, port, name, debug
}

func TestApplyEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	content := "ASTEST_PORT=9000\nASTEST_NAME=from-file\nASTEST_DEBUG=true\n"
	if err := os.WriteFile(envFile, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ASTEST_NAME", "from-env")

	fs, port, name, debug := newFlags()
	if err := fs.Parse([]string{"-port", "7000"}); err != nil {
		t.Fatal(err)
	}
	if err := ApplyEnv(fs, "ASTEST", envFile); err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}

	if *port != 7000 {
		t.Errorf("command line must win: port = %d", *port)
	}
	if *name != "from-env" {
		t.Errorf("environment must beat .env: name = %q", *name)
	}
	if !*debug {
		t.Error("debug should come from .env")
	}
}

func TestApplyEnvMissingFile(t *testing.T) {
	fs, port, _, _ := newFlags()
	if err := fs.Parse(nil); err != nil {
		t.Fatal(err)
	}
	if err := ApplyEnv(fs, "ASTEST", filepath.Join(t.TempDir(), "missing.env"), ""); err != nil {
		t.Fatalf("missing file should be skipped: %v", err)
	}
	if *port != 8928 {
		t.Errorf("port = %d, want default", *port)
	}
}

func TestApplyEnvInvalidValue(t *testing.T) {
	t.Setenv("ASTEST_PORT", "not-a-number")

	fs, _, _, _ := newFlags()
	if err := fs.Parse(nil); err != nil {
		t.Fatal(err)
	}
	if err := ApplyEnv(fs, "ASTEST"); err == nil {
		t.Fatal("expected error for invalid ASTEST_PORT")
	}
}
