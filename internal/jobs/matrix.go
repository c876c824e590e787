package jobs

import (
	"fmt"
	"path/filepath"
	"slices"

	"github.com/backmassage/iconrender/internal/attrs"
	"github.com/backmassage/iconrender/internal/engine"
)

// Resolutions is the default square icon size list, in pixels.
var Resolutions = []int{16, 32, 48, 256}

// LogFileName is the per-run log written under the output directory.
const LogFileName = "blender_render.log"

// Target is one job: a scene rendered at one square resolution.
type Target struct {
	Scene      string
	Resolution int
}

// Name is the output base name, <scene>_<resolution>px.
func (t Target) Name() string {
	return fmt.Sprintf("%s_%dpx", t.Scene, t.Resolution)
}

func (t Target) String() string { return t.Name() }

// Matrix enumerates scenes in the given order, each nested by resolution in
// ascending order. Duplicate resolutions are dropped.
func Matrix(scenes []string, resolutions []int) []Target {
	res := slices.Clone(resolutions)
	slices.Sort(res)
	res = slices.Compact(res)

	out := make([]Target, 0, len(scenes)*len(res))
	for _, s := range scenes {
		for _, r := range res {
			out = append(out, Target{Scene: s, Resolution: r})
		}
	}
	return out
}

// OutputPath is the absolute output path for t, without extension. The
// engine appends the format's extension.
func OutputPath(outdir string, t Target) (string, error) {
	p, err := filepath.Abs(filepath.Join(outdir, t.Name()))
	if err != nil {
		return "", fmt.Errorf("output path for %s: %w", t, err)
	}
	return p, nil
}

// RenderSet is the attribute override applied to a scene for t.
func RenderSet(t Target, path string) attrs.Set {
	return attrs.Set{
		{Name: engine.AttrResolutionX, Value: attrs.Int(t.Resolution)},
		{Name: engine.AttrResolutionY, Value: attrs.Int(t.Resolution)},
		{Name: engine.AttrResolutionPercent, Value: attrs.Float(100)},
		{Name: engine.AttrUseFileExtension, Value: attrs.Bool(true)},
		{Name: engine.AttrFilepath, Value: attrs.String(path)},
	}
}
