// Package sim is an in-process stand-in for a real renderer. It keeps
// Blender-shaped render settings per scene, prints Blender-style progress
// to standard output, and writes a solid-colour PNG at the configured
// output path.
//
// It backs the --engine sim dry-run mode and the job tests.
package sim

import (
	"context"
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"

	"github.com/backmassage/iconrender/internal/attrs"
	"github.com/backmassage/iconrender/internal/engine"
)

// Call records one Render invocation and the settings it observed.
type Call struct {
	Request  engine.Request
	Settings attrs.Set
}

// Engine is a simulated renderer. The zero value has no scenes; use New.
type Engine struct {
	mu       sync.Mutex
	scenes   []string
	settings map[string]*attrs.Record
	failures map[string]error
	calls    []Call
}

// DefaultSettings mirrors a fresh Blender scene.
func DefaultSettings() attrs.Set {
	return attrs.Set{
		{Name: engine.AttrResolutionX, Value: attrs.Int(1920)},
		{Name: engine.AttrResolutionY, Value: attrs.Int(1080)},
		{Name: engine.AttrResolutionPercent, Value: attrs.Int(100)},
		{Name: engine.AttrFilepath, Value: attrs.String("/tmp/")},
		{Name: engine.AttrUseFileExtension, Value: attrs.Bool(true)},
		{Name: engine.AttrFileFormat, Value: attrs.String("PNG")},
	}
}

// New returns an engine with the given scenes, each with DefaultSettings.
func New(scenes ...string) *Engine {
	e := &Engine{
		settings: make(map[string]*attrs.Record, len(scenes)),
		failures: make(map[string]error),
	}
	for _, s := range scenes {
		e.scenes = append(e.scenes, s)
		e.settings[s] = attrs.NewRecord(DefaultSettings())
		e.settings[s].ReadOnly(engine.AttrFileFormat)
	}
	return e
}

func (e *Engine) Name() string { return "sim" }

func (e *Engine) Scenes(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.scenes...), nil
}

func (e *Engine) Settings(scene string) (attrs.Target, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	rec, ok := e.settings[scene]
	if !ok {
		return nil, fmt.Errorf("%w %q", engine.ErrUnknownScene, scene)
	}
	return rec, nil
}

// AllowFormats makes file_format writable on scene. The simulator still
// writes PNG data whatever the format, under the format's extension.
func (e *Engine) AllowFormats(scene string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	rec, ok := e.settings[scene]
	if !ok {
		return fmt.Errorf("%w %q", engine.ErrUnknownScene, scene)
	}
	rec.Writable(engine.AttrFileFormat)
	return nil
}

// FailOn makes the render of scene at the given horizontal resolution fail
// with err.
func (e *Engine) FailOn(scene string, resolution int, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failures[failKey(scene, resolution)] = err
}

// Calls returns the render invocations so far.
func (e *Engine) Calls() []Call {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Call(nil), e.calls...)
}

func failKey(scene string, resolution int) string {
	return fmt.Sprintf("%s@%d", scene, resolution)
}

func (e *Engine) Render(ctx context.Context, req engine.Request) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mu.Lock()
	rec, ok := e.settings[req.Scene]
	e.mu.Unlock()
	if !ok {
		return &engine.RenderError{Scene: req.Scene, Err: fmt.Errorf("%w %q", engine.ErrUnknownScene, req.Scene)}
	}

	s := rec.Values()
	e.mu.Lock()
	e.calls = append(e.calls, Call{Request: req, Settings: s})
	e.mu.Unlock()

	resX := intAttr(s, engine.AttrResolutionX)
	resY := intAttr(s, engine.AttrResolutionY)
	pct := intAttr(s, engine.AttrResolutionPercent)
	w, h := resX*pct/100, resY*pct/100

	fmt.Printf("Fra:1 Mem:0.01M | Scene %s | Rendering %dx%d\n", req.Scene, w, h)

	e.mu.Lock()
	ferr := e.failures[failKey(req.Scene, resX)]
	e.mu.Unlock()
	if ferr != nil {
		fmt.Printf("Error: %v\n", ferr)
		return &engine.RenderError{Scene: req.Scene, Cause: "injected", Err: ferr}
	}

	if req.Animation || !req.WriteStill {
		fmt.Println("Fra:1 | Finished (not written)")
		return nil
	}

	path, _ := s.Lookup(engine.AttrFilepath)
	out, _ := path.Str()
	if use, _ := s.Lookup(engine.AttrUseFileExtension); use.Equal(attrs.Bool(true)) {
		format, _ := s.Lookup(engine.AttrFileFormat)
		f, _ := format.Str()
		out += engine.Extension(f)
	}
	if err := writePNG(out, req.Scene, w, h); err != nil {
		fmt.Printf("Error: %v\n", err)
		return &engine.RenderError{Scene: req.Scene, Cause: "write failed", Err: err}
	}
	fmt.Printf("Saved: '%s'\n", out)
	fmt.Println(" Time: 00:00.01 (Saving: 00:00.00)")
	return nil
}

func intAttr(s attrs.Set, name string) int {
	v, _ := s.Lookup(name)
	n, _ := v.Int()
	return int(n)
}

func writePNG(path, scene string, w, h int) error {
	if w <= 0 || h <= 0 {
		return fmt.Errorf("invalid frame size %dx%d", w, h)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	c := sceneColor(scene)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func sceneColor(scene string) color.NRGBA {
	h := fnv.New32a()
	h.Write([]byte(scene))
	sum := h.Sum32()
	return color.NRGBA{R: uint8(sum), G: uint8(sum >> 8), B: uint8(sum >> 16), A: 0xff}
}
