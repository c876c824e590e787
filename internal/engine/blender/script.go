package blender

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/backmassage/iconrender/internal/attrs"
	"github.com/backmassage/iconrender/internal/engine"
)

// Compute devices accepted by Cycles. DeviceNone leaves the scene's own
// device setting alone.
const (
	DeviceNone   = "NONE"
	DeviceCUDA   = "CUDA"
	DeviceOptiX  = "OPTIX"
	DeviceHIP    = "HIP"
	DeviceMetal  = "METAL"
	DeviceOneAPI = "ONEAPI"
)

// Devices lists the device constants.
var Devices = []string{DeviceNone, DeviceCUDA, DeviceOptiX, DeviceHIP, DeviceMetal, DeviceOneAPI}

// ValidDevice reports whether d is one of Devices or empty.
func ValidDevice(d string) bool {
	return d == "" || slices.Contains(Devices, d)
}

// baseArgs is the shared argument skeleton for every Blender invocation.
// The binary itself is not included.
func baseArgs(opts Options) []string {
	args := make([]string, 0, 8)
	args = append(args, "--background")
	if opts.FactoryStartup {
		args = append(args, "--factory-startup")
	}
	if opts.BlendFile != "" {
		args = append(args, opts.BlendFile)
	}
	// Blender exits 0 after a Python exception unless told otherwise.
	args = append(args, "--python-exit-code", "1")
	return args
}

// RenderArgs builds the full argument list (without the binary) for one
// render request using the given scene settings.
func RenderArgs(opts Options, req engine.Request, settings attrs.Set) []string {
	args := baseArgs(opts)
	return append(args, "--python-expr", RenderScript(req, settings, opts.ComputeDevice))
}

// RenderScript generates the Python expression that applies settings to
// the requested scene and renders it.
func RenderScript(req engine.Request, settings attrs.Set, device string) string {
	var b strings.Builder
	b.WriteString("import bpy\n")
	fmt.Fprintf(&b, "scene = bpy.data.scenes[%s]\n", pyString(req.Scene))

	if device != "" && device != DeviceNone {
		b.WriteString("if 'cycles' in bpy.context.preferences.addons:\n")
		b.WriteString("    prefs = bpy.context.preferences.addons['cycles'].preferences\n")
		fmt.Fprintf(&b, "    prefs.compute_device_type = %s\n", pyString(device))
		b.WriteString("    prefs.get_devices()\n")
		b.WriteString("    for d in prefs.devices:\n")
		b.WriteString("        d.use = True\n")
		b.WriteString("    scene.cycles.device = 'GPU'\n")
	}

	for _, p := range settings {
		fmt.Fprintf(&b, "%s = %s\n", settingPath(p.Name), pyLiteral(p.Value))
	}

	fmt.Fprintf(&b,
		"bpy.ops.render.render(animation=%s, write_still=%s, use_viewport=%s, layer=%s, scene=scene.name)\n",
		pyBool(req.Animation), pyBool(req.WriteStill), pyBool(req.UseViewport), pyString(req.Layer),
	)
	return b.String()
}

// settingPath maps an attribute name to its Python attribute path.
func settingPath(name string) string {
	if name == engine.AttrFileFormat {
		return "scene.render.image_settings.file_format"
	}
	return "scene.render." + name
}

// pyLiteral formats v as a Python literal.
func pyLiteral(v attrs.Value) string {
	switch v.Kind() {
	case attrs.KindInt:
		n, _ := v.Int()
		return strconv.FormatInt(n, 10)
	case attrs.KindFloat:
		f, _ := v.Float()
		s := strconv.FormatFloat(f, 'f', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		return s
	case attrs.KindBool:
		b, _ := v.Bool()
		return pyBool(b)
	case attrs.KindString:
		s, _ := v.Str()
		return pyString(s)
	}
	return "None"
}

func pyBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

// pyString quotes s as a Python string literal. Go's quoting uses only
// escapes that Python also understands (\n, \t, \\, \", \xNN, \uNNNN,
// \UNNNNNNNN).
func pyString(s string) string {
	return strconv.Quote(s)
}
