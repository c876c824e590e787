package blender

import (
	"fmt"
	"slices"

	"github.com/backmassage/iconrender/internal/attrs"
	"github.com/backmassage/iconrender/internal/engine"
)

// FileFormats are the still-image formats Blender accepts for
// image_settings.file_format.
var FileFormats = []string{
	"BMP", "IRIS", "PNG", "JPEG", "JPEG2000", "TARGA", "TARGA_RAW",
	"CINEON", "DPX", "OPEN_EXR_MULTILAYER", "OPEN_EXR", "HDR", "TIFF", "WEBP",
}

// constrain mirrors Blender's own limits on the known render settings, so
// values it would reject fail when they are applied instead of inside the
// render script. Settings outside this list are checked by kind only.
func constrain(rec *attrs.Record) {
	rec.Constrain(engine.AttrResolutionX, intRange(4, 65536))
	rec.Constrain(engine.AttrResolutionY, intRange(4, 65536))
	rec.Constrain(engine.AttrResolutionPercent, intRange(1, 32767))
	rec.Constrain(engine.AttrFileFormat, oneOf(FileFormats))
}

func intRange(lo, hi int64) func(attrs.Value) error {
	return func(v attrs.Value) error {
		n, ok := v.Int()
		if !ok {
			f, _ := v.Float()
			n = int64(f)
		}
		if n < lo || n > hi {
			return fmt.Errorf("%v outside %d..%d", v, lo, hi)
		}
		return nil
	}
}

func oneOf(allowed []string) func(attrs.Value) error {
	return func(v attrs.Value) error {
		s, _ := v.Str()
		if !slices.Contains(allowed, s) {
			return fmt.Errorf("%v is not one of %v", v, allowed)
		}
		return nil
	}
}
