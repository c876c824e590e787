package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/backmassage/iconrender/internal/attrs"
	"github.com/backmassage/iconrender/internal/config"
	"github.com/backmassage/iconrender/internal/display"
	"github.com/backmassage/iconrender/internal/engine"
	"github.com/backmassage/iconrender/internal/history"
	"github.com/backmassage/iconrender/internal/ico"
	"github.com/backmassage/iconrender/internal/jobs"
	"github.com/backmassage/iconrender/internal/logging"
	"github.com/backmassage/iconrender/internal/stdio"
)

// Run is the top-level batch entry point. It renders every scene of eng at
// every icon resolution, stopping at the first failure, and returns the
// aggregate stats with that failure.
func Run(ctx context.Context, cfg *config.Config, log *logging.Logger, eng engine.Engine, out io.Writer) (RunStats, error) {
	stats := RunStats{RunID: history.NewRunID()}
	start := time.Now()

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		log.Error("Cannot create output directory: %v", err)
		return stats, err
	}

	extra, err := cfg.RenderSet()
	if err != nil {
		reportFailure(log, err)
		return stats, err
	}

	runner := &jobs.Runner{
		Engine:    eng,
		OutputDir: cfg.OutputDir,
		Extra:     extra,
		OnScene: func(scene string) {
			fmt.Fprintln(out, "Scene", scene)
		},
		OnRestoreError: func(t jobs.Target, err error) {
			stats.RestoreFailures++
			log.Warn("%s: render settings not fully restored: %v", t, err)
		},
	}

	// Checked before the render log is opened so a bad configuration
	// leaves it untouched.
	targets, err := runner.Preflight(ctx)
	if err != nil {
		reportFailure(log, err)
		return stats, err
	}
	stats.Total = len(targets)

	logPath := filepath.Join(cfg.OutputDir, jobs.LogFileName)
	logFile, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		log.Error("Cannot open render log: %v", err)
		return stats, err
	}
	defer logFile.Close()
	runner.LogFile = logFile
	fmt.Fprintf(logFile, "=== iconrender run %s, %s, engine %s ===\n",
		stats.RunID, time.Now().Format(time.RFC3339), eng.Name())

	ledger := openLedger(ctx, cfg, log)
	defer ledger.Close()

	logBatchHeader(cfg, log, eng, runner, &stats, logPath)

	var rows []display.JobRow
	files := make(map[string][]string)
	var scenes []string
	var runErr error

	for res, err := range runner.Jobs(ctx, targets) {
		if err != nil {
			runErr = err
			var jerr *jobs.JobError
			if errors.As(err, &jerr) {
				stats.Current++
				stats.Failed++
				rows = append(rows, display.JobRow{Job: jerr.Target.Name(), Status: "failed", Size: -1})
				record(ctx, ledger, log, &stats, eng, jerr.Target, "", 0, err)
			}
			break
		}

		stats.Current++
		stats.Rendered++
		fmt.Fprintf(out, "IMAGE\t%s\n", res.File)

		size := int64(-1)
		if fi, err := os.Stat(res.File); err == nil {
			size = fi.Size()
			stats.TotalOutputBytes += size
		}
		rows = append(rows, display.JobRow{
			Job: res.Target.Name(), Status: "ok", Size: size, Elapsed: res.Elapsed, Path: res.File,
		})
		log.Render("%s rendered in %s", res.Target, display.FormatDuration(res.Elapsed))
		record(ctx, ledger, log, &stats, eng, res.Target, res.File, res.Elapsed, nil)

		if _, seen := files[res.Target.Scene]; !seen {
			scenes = append(scenes, res.Target.Scene)
		}
		files[res.Target.Scene] = append(files[res.Target.Scene], res.File)
	}

	if runErr != nil {
		reportFailure(log, runErr)
	} else if cfg.MakeIcon {
		packIcons(cfg, log, &stats, scenes, files)
	}

	stats.Elapsed = time.Since(start)
	if cfg.ShowSummary && len(rows) > 0 {
		fmt.Fprint(out, display.JobTable(rows))
	}
	logSummary(log, &stats)

	if runErr != nil {
		return stats, runErr
	}
	fmt.Fprintln(out, "batch job finished, exiting")
	return stats, nil
}

// reportFailure logs err according to the failure taxonomy.
func reportFailure(log *logging.Logger, err error) {
	switch {
	case errors.Is(err, attrs.ErrConfig):
		log.Error("Configuration error: %v", err)
	case errors.Is(err, stdio.ErrRestore):
		log.Error("Stdout could not be restored, stopping (fatal): %v", err)
	case errors.Is(err, stdio.ErrRedirect), errors.Is(err, stdio.ErrBusy), errors.Is(err, stdio.ErrUnsupported):
		log.Error("Redirection error: %v", err)
	case errors.Is(err, engine.ErrRender):
		log.Error("Render error: %v", err)
		var rerr *engine.RenderError
		if errors.As(err, &rerr) && len(rerr.Tail) > 0 {
			log.Error("Last renderer output:")
			for _, l := range rerr.Tail {
				log.Error("  %s", l)
			}
		}
	case errors.Is(err, context.Canceled):
		log.Warn("Interrupted")
	default:
		log.Error("%v", err)
	}
}

func openLedger(ctx context.Context, cfg *config.Config, log *logging.Logger) *history.Ledger {
	if cfg.HistoryPath == "" {
		return nil
	}
	l, err := history.Open(ctx, cfg.HistoryPath)
	if err != nil {
		log.Warn("History disabled: %v", err)
		return nil
	}
	return l
}

// record writes one job to the ledger. Ledger failures never stop a run.
func record(ctx context.Context, l *history.Ledger, log *logging.Logger, stats *RunStats,
	eng engine.Engine, t jobs.Target, file string, elapsed time.Duration, jobErr error) {
	if l == nil {
		return
	}
	e := history.Entry{
		RunID:      stats.RunID,
		Engine:     eng.Name(),
		Scene:      t.Scene,
		Resolution: t.Resolution,
		OutputPath: file,
		Status:     history.StatusOK,
		Duration:   elapsed,
	}
	if jobErr != nil {
		e.Status = history.StatusFailed
		e.Error = jobErr.Error()
	}
	// record even when the run was cancelled
	if err := l.Record(context.WithoutCancel(ctx), e); err != nil {
		log.Warn("History: %v", err)
	}
}

// packIcons writes <scene>.ico next to the renders of each scene.
func packIcons(cfg *config.Config, log *logging.Logger, stats *RunStats, scenes []string, files map[string][]string) {
	for _, scene := range scenes {
		paths := files[scene]
		if ext := filepath.Ext(paths[0]); !strings.EqualFold(ext, ".png") {
			log.Warn("%s: icons need PNG renders, got %q", scene, ext)
			continue
		}
		dst := filepath.Join(cfg.OutputDir, scene+".ico")
		if err := ico.WriteFile(dst, paths); err != nil {
			log.Warn("%s: %v", scene, err)
			continue
		}
		stats.Icons++
		log.Success("Icon: %s", dst)
	}
}

// --- Logging helpers ---

func logBatchHeader(cfg *config.Config, log *logging.Logger, eng engine.Engine, runner *jobs.Runner, stats *RunStats, logPath string) {
	log.Info("Run %s", stats.RunID)
	log.Info("Engine: %s", eng.Name())
	if cfg.Engine == config.EngineBlender {
		if cfg.Blender.BlendFile != "" {
			log.Info("Blend file: %s", cfg.Blender.BlendFile)
		}
		if cfg.Blender.ComputeDevice != "" {
			log.Info("Compute device: %s", cfg.Blender.ComputeDevice)
		}
	}
	for _, p := range runner.Extra {
		log.Info("Render setting: %s = %v", p.Name, p.Value)
	}
	log.Info("Jobs: %d (resolutions %v px)", stats.Total, jobs.Resolutions)
	log.Info("Render log: %s", logPath)
	if cfg.HistoryPath != "" {
		log.Debug("History: %s", cfg.HistoryPath)
	}
}

func logSummary(log *logging.Logger, stats *RunStats) {
	log.Info("==============================")
	log.Info("Done: %d rendered, %d failed, %d not started (%s)",
		stats.Rendered, stats.Failed, stats.Total-stats.Current, display.FormatDuration(stats.Elapsed))
	if stats.RestoreFailures > 0 {
		log.Warn("  Settings restore failures: %d", stats.RestoreFailures)
	}
	if stats.Icons > 0 {
		log.Info("  Icons written: %d", stats.Icons)
	}
	if stats.Complete() {
		log.Success("  Total output: %s", display.FormatBytes(stats.TotalOutputBytes))
	} else {
		log.Warn("  Total output: %s (incomplete)", display.FormatBytes(stats.TotalOutputBytes))
	}
}
