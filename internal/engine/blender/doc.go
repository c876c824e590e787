// Package blender drives a Blender binary in background mode.
//
// Scene names and their current render settings are read once with a
// JSON-printing Python expression (see Query). Attribute overrides are held
// on the Go side per scene and written into the generated render script, so
// each render starts a fresh Blender process that applies exactly the
// settings the caller configured and renders one still frame.
//
// The Go-side records enforce Blender's limits for the settings this tool
// knows (resolution ranges, image file formats; see FileFormats). Any other
// setting is checked by kind only, so a value Blender rejects there fails
// the render with a Python error rather than as a configuration error.
//
// The child inherits this process's standard output, so when descriptor 1
// is redirected Blender's console output lands in the redirect target.
// Standard error is captured for failure classification and also copied to
// standard output.
package blender
