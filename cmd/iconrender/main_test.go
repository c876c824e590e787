package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRun_SimRender(t *testing.T) {
	dir := t.TempDir()
	code := run([]string{"iconrender", "render",
		"--engine", "sim", "--sim-scene", "Main", "--output", dir, "--no-summary", "--ico"})
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	for _, name := range []string{"Main_16px.png", "Main_256px.png", "Main.ico", "blender_render.log"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
}

func TestRun_BootstrapErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no output dir", []string{"iconrender", "render", "--engine", "sim"}},
		{"bad engine", []string{"iconrender", "render", "--engine", "cycles", "--output", t.TempDir()}},
		{"two blend files", []string{"iconrender", "render", "--engine", "sim", "--output", t.TempDir(), "a.blend", "b.blend"}},
		{"history without ledger", []string{"iconrender", "history"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ICONRENDER_OUTPUT_DIR", "")
			t.Setenv("ICONRENDER_HISTORY", "")
			if code := run(tt.args); code != 1 {
				t.Errorf("exit code = %d, want 1", code)
			}
		})
	}
}

func TestRun_History(t *testing.T) {
	dir := t.TempDir()
	ledger := filepath.Join(dir, "history.db")
	if code := run([]string{"iconrender", "render",
		"--engine", "sim", "--output", dir, "--history", ledger, "--no-summary"}); code != 0 {
		t.Fatalf("render exit code = %d", code)
	}
	if code := run([]string{"iconrender", "history", "--history", ledger, "--limit", "4"}); code != 0 {
		t.Errorf("history exit code = %d, want 0", code)
	}
}

func TestRun_ShortVerboseAndVersion(t *testing.T) {
	dir := t.TempDir()
	if code := run([]string{"iconrender", "-v", "render",
		"--engine", "sim", "--sim-scene", "Main", "--output", dir, "--no-summary"}); code != 0 {
		t.Fatalf("-v render exit code = %d, want 0", code)
	}
	if code := run([]string{"iconrender", "--version"}); code != 0 {
		t.Errorf("--version exit code = %d, want 0", code)
	}
}
