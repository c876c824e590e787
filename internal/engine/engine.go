// Package engine defines the boundary to the external renderer: scene
// enumeration, per-scene render settings, and the render call itself.
//
// Implementations live in subpackages: blender drives a Blender binary in
// background mode and sim renders placeholder images in-process.
package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/backmassage/iconrender/internal/attrs"
)

// Render setting attribute names understood by every engine.
const (
	AttrResolutionX       = "resolution_x"
	AttrResolutionY       = "resolution_y"
	AttrResolutionPercent = "resolution_percentage"
	AttrFilepath          = "filepath"
	AttrUseFileExtension  = "use_file_extension"
	AttrFileFormat        = "file_format"
)

// SettingNames lists the render settings in the order engines apply them.
var SettingNames = []string{
	AttrResolutionX,
	AttrResolutionY,
	AttrResolutionPercent,
	AttrFilepath,
	AttrUseFileExtension,
	AttrFileFormat,
}

var (
	ErrUnknownScene = errors.New("engine: unknown scene")
	ErrRender       = errors.New("engine: render failed")
)

// Request is one render invocation. Layer "" renders all layers.
type Request struct {
	Scene       string
	Animation   bool
	WriteStill  bool
	UseViewport bool
	Layer       string
}

// StillRequest is the request used for every job: one still frame written
// to the scene's configured output path, no viewport.
func StillRequest(scene string) Request {
	return Request{Scene: scene, Animation: false, WriteStill: true, UseViewport: false, Layer: ""}
}

// Engine is a renderer driven through its automation surface.
type Engine interface {
	// Name identifies the engine in logs.
	Name() string

	// Scenes returns the scene identifiers in the engine's own order.
	Scenes(ctx context.Context) ([]string, error)

	// Settings returns the mutable render configuration of scene.
	Settings(scene string) (attrs.Target, error)

	// Render blocks until the request completes. Diagnostics go to the
	// process's standard output.
	Render(ctx context.Context, req Request) error
}

// RenderError describes a failed render call.
type RenderError struct {
	Scene string
	Cause string // short classification, may be empty
	Tail  []string
	Err   error
}

func (e *RenderError) Error() string {
	msg := fmt.Sprintf("engine: render %q failed", e.Scene)
	if e.Cause != "" {
		msg += " (" + e.Cause + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RenderError) Unwrap() error { return e.Err }

func (e *RenderError) Is(target error) bool { return target == ErrRender }

// extensions maps image file formats to the extension engines append when
// use_file_extension is set.
var extensions = map[string]string{
	"PNG":                 ".png",
	"JPEG":                ".jpg",
	"JPEG2000":            ".jp2",
	"BMP":                 ".bmp",
	"TARGA":               ".tga",
	"TARGA_RAW":           ".tga",
	"TIFF":                ".tif",
	"OPEN_EXR":            ".exr",
	"OPEN_EXR_MULTILAYER": ".exr",
	"HDR":                 ".hdr",
	"WEBP":                ".webp",
}

// Extension returns the file extension for an image format, or "" when
// the format is unknown.
func Extension(format string) string {
	return extensions[format]
}
