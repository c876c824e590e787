package blender

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/backmassage/iconrender/internal/attrs"
	"github.com/backmassage/iconrender/internal/engine"
)

// DefaultBinary is looked up on PATH when Options.Binary is empty.
const DefaultBinary = "blender"

// Options configures how Blender is started.
type Options struct {
	Binary         string
	BlendFile      string // empty opens Blender's startup file
	ComputeDevice  string // one of the Device constants; empty or NONE keeps the scene setting
	FactoryStartup bool
}

func (o Options) binary() string {
	if o.Binary == "" {
		return DefaultBinary
	}
	return o.Binary
}

// Engine is an engine.Engine backed by a Blender binary.
type Engine struct {
	opts     Options
	info     *QueryResult
	order    []string
	settings map[string]*attrs.Record
}

// Open queries Blender for its scenes and returns an engine whose settings
// start out as Blender reported them.
func Open(ctx context.Context, opts Options) (*Engine, error) {
	if !ValidDevice(opts.ComputeDevice) {
		return nil, fmt.Errorf("blender: unknown compute device %q", opts.ComputeDevice)
	}
	info, err := Query(ctx, opts)
	if err != nil {
		return nil, err
	}
	return newEngine(opts, info), nil
}

func newEngine(opts Options, info *QueryResult) *Engine {
	e := &Engine{
		opts:     opts,
		info:     info,
		settings: make(map[string]*attrs.Record, len(info.Scenes)),
	}
	for _, s := range info.Scenes {
		e.order = append(e.order, s.Name)
		rec := attrs.NewRecord(s.Settings)
		constrain(rec)
		e.settings[s.Name] = rec
	}
	return e
}

func (e *Engine) Name() string { return "blender " + e.info.Version }

// Version is the Blender version string reported by the query.
func (e *Engine) Version() string { return e.info.Version }

// RenderEngine returns the render engine (CYCLES, BLENDER_EEVEE, ...) of scene.
func (e *Engine) RenderEngine(scene string) string {
	for _, s := range e.info.Scenes {
		if s.Name == scene {
			return s.RenderEngine
		}
	}
	return ""
}

func (e *Engine) Scenes(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append([]string(nil), e.order...), nil
}

func (e *Engine) Settings(scene string) (attrs.Target, error) {
	rec, ok := e.settings[scene]
	if !ok {
		return nil, fmt.Errorf("%w %q", engine.ErrUnknownScene, scene)
	}
	return rec, nil
}

// Render starts Blender, applies the scene's current Go-side settings, and
// renders req. It blocks until Blender exits.
func (e *Engine) Render(ctx context.Context, req engine.Request) error {
	rec, ok := e.settings[req.Scene]
	if !ok {
		return &engine.RenderError{Scene: req.Scene, Err: fmt.Errorf("%w %q", engine.ErrUnknownScene, req.Scene)}
	}

	args := RenderArgs(e.opts, req, rec.Values())
	res := execute(ctx, e.opts.binary(), args)
	if res.Err == nil {
		return nil
	}
	return &engine.RenderError{
		Scene: req.Scene,
		Cause: Classify(res.Stderr),
		Tail:  tail(res.Stderr, 20),
		Err:   res.Err,
	}
}

// Version runs "blender --version" and returns the first line.
func Version(ctx context.Context, binary string) (string, error) {
	if binary == "" {
		binary = DefaultBinary
	}
	out, err := exec.CommandContext(ctx, binary, "--version").Output()
	if err != nil {
		return "", err
	}
	first := strings.TrimSpace(string(out))
	if idx := strings.Index(first, "\n"); idx > 0 {
		first = first[:idx]
	}
	return first, nil
}
