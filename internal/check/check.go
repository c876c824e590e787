// Package check provides system diagnostics (the check command) and
// pre-run dependency validation (CheckDeps) for Blender, the .blend file,
// the output directory, and descriptor redirection.
package check

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/backmassage/iconrender/internal/config"
	"github.com/backmassage/iconrender/internal/engine/blender"
	"github.com/backmassage/iconrender/internal/stdio"
)

// Sentinel errors returned by CheckDeps.
var (
	ErrBlenderNotFound   = errors.New("blender not found")
	ErrBlendFileMissing  = errors.New("blend file not readable")
	ErrOutputNotWritable = errors.New("output directory not writable")
	ErrRedirectBroken    = errors.New("stdout redirection unavailable")
)

// Logger is the minimal logging interface needed by RunCheck.
// Defined here (rather than importing the logging package) so that check
// remains dependency-light and testable with a mock logger.
type Logger interface {
	Info(string, ...interface{})
	Success(string, ...interface{})
	Warn(string, ...interface{})
	Error(string, ...interface{})
	Debug(string, ...interface{})
}

// RunCheck prints the availability of everything a render needs. It is
// informational only and does not stop on failure.
func RunCheck(ctx context.Context, cfg *config.Config, log Logger) {
	log.Info("=== System Check ===")

	checkRedirect(log)
	if cfg.Engine == config.EngineSim {
		log.Info("Engine: sim (Blender checks skipped)")
	} else {
		checkBlender(ctx, cfg, log)
		checkBlendFile(cfg, log)
		if cfg.Blender.ComputeDevice != "" {
			log.Info("Compute device: %s", cfg.Blender.ComputeDevice)
		}
	}
	if cfg.OutputDir != "" {
		if err := checkWritable(cfg.OutputDir); err != nil {
			log.Error("Output directory: %v", err)
		} else {
			log.Success("Output directory writable: %s", cfg.OutputDir)
		}
	}
}

func checkRedirect(log Logger) {
	if err := trialRedirect(); err != nil {
		log.Error("Stdout redirection: %v", err)
		return
	}
	log.Success("Stdout redirection works")
}

// checkBlender verifies Blender is on PATH and logs its version string.
func checkBlender(ctx context.Context, cfg *config.Config, log Logger) {
	path, err := exec.LookPath(binary(cfg))
	if err != nil {
		log.Error("blender not found (%s)", binary(cfg))
		return
	}
	log.Debug("blender binary: %s", path)
	v, err := blender.Version(ctx, path)
	if err != nil {
		log.Warn("blender found but --version failed: %v", err)
		return
	}
	log.Success("%s", v)
}

func checkBlendFile(cfg *config.Config, log Logger) {
	if cfg.Blender.BlendFile == "" {
		log.Info("No .blend file given; Blender's startup file is rendered")
		return
	}
	if err := readable(cfg.Blender.BlendFile); err != nil {
		log.Error("Blend file: %v", err)
		return
	}
	log.Success("Blend file readable: %s", cfg.Blender.BlendFile)
}

// CheckDeps is the pre-run validation. Returns a sentinel error (wrapped
// with detail) on the first failure.
func CheckDeps(cfg *config.Config) error {
	if err := trialRedirect(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedirectBroken, err)
	}
	if cfg.Engine != config.EngineSim {
		if _, err := exec.LookPath(binary(cfg)); err != nil {
			return fmt.Errorf("%w: %s", ErrBlenderNotFound, binary(cfg))
		}
		if cfg.Blender.BlendFile != "" {
			if err := readable(cfg.Blender.BlendFile); err != nil {
				return fmt.Errorf("%w: %v", ErrBlendFileMissing, err)
			}
		}
	}
	if cfg.OutputDir != "" {
		if err := checkWritable(cfg.OutputDir); err != nil {
			return fmt.Errorf("%w: %v", ErrOutputNotWritable, err)
		}
	}
	return nil
}

// --- internal helpers ---

func binary(cfg *config.Config) string {
	if cfg.Blender.Binary == "" {
		return blender.DefaultBinary
	}
	return cfg.Blender.Binary
}

func readable(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	return f.Close()
}

// checkWritable creates dir if needed and writes a scratch file into it.
func checkWritable(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".iconrender-check-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

// trialRedirect redirects the write end of a scratch pipe into a scratch
// file, so the real stdout is never touched.
func trialRedirect() error {
	r, w, err := os.Pipe()
	if err != nil {
		return err
	}
	defer r.Close()
	defer w.Close()

	f, err := os.CreateTemp("", "iconrender-redirect-*")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())
	defer f.Close()

	const marker = "redirect-ok\n"
	if err := stdio.With(w, f, func() error {
		_, err := w.WriteString(marker)
		return err
	}); err != nil {
		return err
	}
	got, err := os.ReadFile(f.Name())
	if err != nil {
		return err
	}
	if string(got) != marker {
		return fmt.Errorf("captured %q, want %q", got, marker)
	}
	return nil
}

