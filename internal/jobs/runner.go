package jobs

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"os"
	"time"

	"github.com/backmassage/iconrender/internal/attrs"
	"github.com/backmassage/iconrender/internal/engine"
	"github.com/backmassage/iconrender/internal/stdio"
)

// Result is a finished job.
type Result struct {
	Target  Target
	Path    string // absolute, without extension
	File    string // Path plus the extension the engine appended
	Elapsed time.Duration
}

// JobError ties a failure to the job that produced it.
type JobError struct {
	Target Target
	Err    error
}

func (e *JobError) Error() string { return fmt.Sprintf("job %s: %v", e.Target, e.Err) }

func (e *JobError) Unwrap() error { return e.Err }

// Runner renders the job matrix for one engine session.
type Runner struct {
	Engine    engine.Engine
	OutputDir string

	// LogFile receives the captured standard output of every job.
	LogFile *os.File

	// Resolutions defaults to the package Resolutions.
	Resolutions []int

	// Extra attributes applied to every job after the render settings.
	Extra attrs.Set

	// Stream is the descriptor to capture. Defaults to os.Stdout.
	Stream *os.File

	// Flushers are drained before each swap of Stream.
	Flushers []stdio.Flusher

	// OnScene is called before the first job of each scene, outside the
	// redirect scope.
	OnScene func(scene string)

	// OnRestoreError receives attribute restore failures. They do not stop
	// the batch. When nil, they are returned as the job's error instead.
	OnRestoreError func(Target, error)

	redirect func(stream, target *os.File, fn func() error, flushers ...stdio.Flusher) error
}

func (r *Runner) resolutions() []int {
	if len(r.Resolutions) == 0 {
		return Resolutions
	}
	return r.Resolutions
}

func (r *Runner) stream() *os.File {
	if r.Stream == nil {
		return os.Stdout
	}
	return r.Stream
}

func (r *Runner) with(fn func() error) error {
	if r.redirect != nil {
		return r.redirect(r.stream(), r.LogFile, fn, r.Flushers...)
	}
	return stdio.With(r.stream(), r.LogFile, fn, r.Flushers...)
}

func (r *Runner) set(t Target, path string) attrs.Set {
	set := RenderSet(t, path)
	return append(set, r.Extra...)
}

// Targets enumerates the engine's scenes and returns the job matrix.
func (r *Runner) Targets(ctx context.Context) ([]Target, error) {
	scenes, err := r.Engine.Scenes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list scenes: %w", err)
	}
	return Matrix(scenes, r.resolutions()), nil
}

// Preflight checks, without writing anything, that every scene exposes
// every attribute the jobs will override. It fails with an error matching
// attrs.ErrConfig before any render happens.
func (r *Runner) Preflight(ctx context.Context) ([]Target, error) {
	targets, err := r.Targets(ctx)
	if err != nil {
		return nil, err
	}
	checked := make(map[string]bool)
	for _, t := range targets {
		if checked[t.Scene] {
			continue
		}
		checked[t.Scene] = true
		settings, err := r.Engine.Settings(t.Scene)
		if err != nil {
			return nil, &JobError{Target: t, Err: fmt.Errorf("%w: %w", attrs.ErrConfig, err)}
		}
		path, err := OutputPath(r.OutputDir, t)
		if err != nil {
			return nil, &JobError{Target: t, Err: err}
		}
		if err := attrs.Check(settings, r.set(t, path)); err != nil {
			return nil, &JobError{Target: t, Err: err}
		}
	}
	return targets, nil
}

// All preflights the engine and returns the lazy job sequence over the
// whole matrix. See Jobs.
func (r *Runner) All(ctx context.Context) iter.Seq2[Result, error] {
	return func(yield func(Result, error) bool) {
		if r.LogFile == nil {
			yield(Result{}, errNoLogFile)
			return
		}
		targets, err := r.Preflight(ctx)
		if err != nil {
			yield(Result{}, err)
			return
		}
		r.Jobs(ctx, targets)(yield)
	}
}

var errNoLogFile = errors.New("jobs: no log file")

// Jobs returns the lazy job sequence over targets, which should come from
// Preflight. Each pull renders one target and yields its Result. The first
// failure is yielded as the final element.
func (r *Runner) Jobs(ctx context.Context, targets []Target) iter.Seq2[Result, error] {
	return func(yield func(Result, error) bool) {
		if r.LogFile == nil {
			yield(Result{}, errNoLogFile)
			return
		}
		scene := ""
		for i, t := range targets {
			if err := ctx.Err(); err != nil {
				yield(Result{}, err)
				return
			}
			if i == 0 || t.Scene != scene {
				scene = t.Scene
				if r.OnScene != nil {
					r.OnScene(scene)
				}
			}
			res, err := r.Render(ctx, t)
			if err != nil {
				yield(Result{Target: t}, &JobError{Target: t, Err: err})
				return
			}
			if !yield(res, nil) {
				return
			}
		}
	}
}

// Render runs a single job: override, redirect, render, restore.
func (r *Runner) Render(ctx context.Context, t Target) (Result, error) {
	path, err := OutputPath(r.OutputDir, t)
	if err != nil {
		return Result{}, err
	}
	settings, err := r.Engine.Settings(t.Scene)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", attrs.ErrConfig, err)
	}

	var report func(error)
	if r.OnRestoreError != nil {
		report = func(err error) { r.OnRestoreError(t, err) }
	}

	start := time.Now()
	var ext string
	err = attrs.With(settings, r.set(t, path), func() error {
		err := r.with(func() error {
			fmt.Fprintf(r.stream(), "Rendering %s\n", t)
			return r.Engine.Render(ctx, engine.StillRequest(t.Scene))
		})
		if err != nil {
			return err
		}
		// read while the job's overrides are still applied
		ext = extension(settings)
		return nil
	}, report)
	if err != nil {
		return Result{}, err
	}
	return Result{Target: t, Path: path, File: path + ext, Elapsed: time.Since(start)}, nil
}

// extension is the suffix the engine appended for the scene's output
// format. use_file_extension is always on while rendering.
func extension(settings attrs.Target) string {
	v, err := settings.Get(engine.AttrFileFormat)
	if err != nil {
		return ""
	}
	format, _ := v.Str()
	return engine.Extension(format)
}
