package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/backmassage/iconrender/internal/config"
)

var stamp = `\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2} `

// captured returns a logger writing to buffers.
func captured(t *testing.T, cfg config.Config) (*Logger, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var out, errOut bytes.Buffer
	l, err := New(&cfg, &out, &errOut)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { l.Close() })
	return l, &out, &errOut
}

func matchLines(t *testing.T, name, got string, want ...string) {
	t.Helper()
	lines := strings.Split(strings.TrimSuffix(got, "\n"), "\n")
	if got == "" {
		lines = nil
	}
	if len(lines) != len(want) {
		t.Fatalf("%s has %d lines, want %d:\n%s", name, len(lines), len(want), got)
	}
	for i, w := range want {
		re := regexp.MustCompile("^" + stamp + regexp.QuoteMeta(w) + "$")
		if !re.MatchString(lines[i]) {
			t.Errorf("%s line %d = %q, want %q", name, i, lines[i], w)
		}
	}
}

func TestLogger_Levels(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.ColorMode = config.ColorNever
	l, out, errOut := captured(t, cfg)

	l.Info("scene %s", "Main")
	l.Render("Main_16px")
	l.Success("done")
	l.Warn("careful")
	l.Debug("hidden")
	l.Error("boom")

	matchLines(t, "stdout", out.String(),
		"[INFO] scene Main", "[RENDER] Main_16px", "[SUCCESS] done", "[WARN] careful")
	matchLines(t, "stderr", errOut.String(), "[ERROR] boom")
}

func TestLogger_VerboseShowsDebug(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.ColorMode = config.ColorNever
	cfg.Verbose = true
	l, out, _ := captured(t, cfg)
	if !l.Verbose() {
		t.Fatal("Verbose() = false")
	}
	l.Debug("shown %d", 1)
	matchLines(t, "stdout", out.String(), "[DEBUG] shown 1")
}

func TestLogger_FileHasNoEscapes(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.ColorMode = config.ColorAlways
	cfg.LogFile = filepath.Join(t.TempDir(), "logs", "iconrender.log")
	l, out, _ := captured(t, cfg)

	l.Warn("to file")
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}
	if err := l.Close(); err != nil {
		t.Errorf("second Close() = %v", err)
	}
	l.Info("console only")

	if !strings.Contains(out.String(), "\033[1;93m[WARN]\033[0m to file") {
		t.Errorf("console line not colored: %q", out.String())
	}
	b, _ := os.ReadFile(cfg.LogFile)
	matchLines(t, "log file", string(b), "[WARN] to file")
}

func TestLogger_FileAppends(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.ColorMode = config.ColorNever
	cfg.LogFile = filepath.Join(t.TempDir(), "iconrender.log")
	for i := 0; i < 2; i++ {
		l, _, _ := captured(t, cfg)
		l.Info("run %d", i)
		l.Close()
	}
	b, _ := os.ReadFile(cfg.LogFile)
	matchLines(t, "log file", string(b), "[INFO] run 0", "[INFO] run 1")
}

func TestLogger_Independent(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.ColorMode = config.ColorNever
	a, outA, _ := captured(t, cfg)
	_, outB, _ := captured(t, cfg)
	a.Info("only a")
	if outB.Len() != 0 {
		t.Errorf("second logger received %q", outB.String())
	}
	matchLines(t, "first logger", outA.String(), "[INFO] only a")
}

func TestLevel_String(t *testing.T) {
	if LevelSuccess.String() != "SUCCESS" || Level(42).String() != "LEVEL(42)" {
		t.Errorf("String() = %s, %s", LevelSuccess, Level(42))
	}
}
