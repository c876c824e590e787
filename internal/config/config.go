// Package config holds runtime configuration: defaults, the optional YAML
// file, environment overrides, CLI flags, and validation.
//
// Precedence, lowest first: DefaultConfig, YAML file, ICONRENDER_*
// environment variables, command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/backmassage/iconrender/internal/attrs"
	"github.com/backmassage/iconrender/internal/engine"
	"github.com/backmassage/iconrender/internal/engine/blender"
)

// --- Enum types for validated string fields ---

// EngineKind selects the renderer backend.
type EngineKind string

const (
	EngineBlender EngineKind = "blender" // Drive a Blender binary (default).
	EngineSim     EngineKind = "sim"     // In-process simulator for dry runs.
)

// ColorMode controls ANSI color output.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"   // Enable colors when stdout is a TTY (default).
	ColorAlways ColorMode = "always" // Force colors on.
	ColorNever  ColorMode = "never"  // Disable colors entirely.
)

// BlenderConfig describes how Blender is started.
type BlenderConfig struct {
	Binary         string `yaml:"binary"`          // Default: "blender" on PATH.
	BlendFile      string `yaml:"blend_file"`      // Empty renders Blender's startup file.
	ComputeDevice  string `yaml:"compute_device"`  // Cycles GPU backend; empty keeps the scene setting.
	FactoryStartup bool   `yaml:"factory_startup"` // Ignore user preferences and add-ons.
}

// Config holds all runtime settings. It is populated by [DefaultConfig],
// then [LoadFile], [ApplyEnv] and [Apply] before being passed (by pointer)
// to packages that need it.
type Config struct {
	// Paths.
	OutputDir string `yaml:"output_dir"`

	// Renderer.
	Engine    EngineKind    `yaml:"engine"`     // Default: "blender".
	Blender   BlenderConfig `yaml:"blender"`
	SimScenes []string      `yaml:"sim_scenes"` // Scenes offered by the sim engine.

	// RenderSettings are extra scene render attributes applied to every
	// job, e.g. film_transparent: true.
	RenderSettings map[string]any `yaml:"render_settings"`

	// Outputs.
	MakeIcon    bool   `yaml:"make_icon"` // Pack each scene's renders into <scene>.ico.
	HistoryPath string `yaml:"history"`   // Optional SQLite job ledger.

	// Display and logging.
	Verbose     bool      `yaml:"verbose"`
	ShowSummary bool      `yaml:"show_summary"` // Default: true.
	ColorMode   ColorMode `yaml:"color"`        // Default: "auto".
	LogFile     string    `yaml:"log_file"`     // Optional application log path.
	CheckOnly   bool      `yaml:"-"`            // Set by the check command.
}

// DefaultConfig returns a Config with all defaults applied.
func DefaultConfig() Config {
	return Config{
		Engine:      EngineBlender,
		Blender:     BlenderConfig{Binary: "blender"},
		SimScenes:   []string{"Scene"},
		ShowSummary: true,
		ColorMode:   ColorAuto,
	}
}

// LoadFile merges the YAML file at path into cfg. Keys absent from the file
// keep their current value.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	return nil
}

// ApplyEnv applies ICONRENDER_* environment overrides using getenv (usually
// os.Getenv).
func ApplyEnv(cfg *Config, getenv func(string) string) error {
	if v := getenv("ICONRENDER_OUTPUT_DIR"); v != "" {
		cfg.OutputDir = v
	}
	if v := getenv("ICONRENDER_ENGINE"); v != "" {
		cfg.Engine = EngineKind(strings.ToLower(v))
	}
	if v := getenv("ICONRENDER_BLENDER"); v != "" {
		cfg.Blender.Binary = v
	}
	if v := getenv("ICONRENDER_BLEND_FILE"); v != "" {
		cfg.Blender.BlendFile = v
	}
	if v := getenv("ICONRENDER_DEVICE"); v != "" {
		cfg.Blender.ComputeDevice = strings.ToUpper(v)
	}
	if v := getenv("ICONRENDER_HISTORY"); v != "" {
		cfg.HistoryPath = v
	}
	if v := getenv("ICONRENDER_LOG"); v != "" {
		cfg.LogFile = v
	}
	if v := getenv("ICONRENDER_VERBOSE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("ICONRENDER_VERBOSE: %w", err)
		}
		cfg.Verbose = b
	}
	if v := getenv("ICONRENDER_COLOR"); v != "" {
		cfg.ColorMode = ColorMode(strings.ToLower(v))
	}
	return nil
}

// NormalizeDirArg strips trailing slashes from a directory path.
// The filesystem root "/" is returned unchanged so we don't produce an empty string.
func NormalizeDirArg(path string) string {
	if path == "/" {
		return "/"
	}
	return strings.TrimRight(path, "/")
}

// Validate checks enum fields. When not in CheckOnly mode, it also requires
// an output directory.
func (c *Config) Validate() error {
	switch c.Engine {
	case EngineBlender, EngineSim:
		// valid
	default:
		return errors.New("invalid engine (use 'blender' or 'sim')")
	}

	switch c.ColorMode {
	case ColorAuto, ColorAlways, ColorNever:
		// valid
	default:
		return errors.New("invalid color mode (use 'auto', 'always' or 'never')")
	}

	if !blender.ValidDevice(c.Blender.ComputeDevice) {
		return fmt.Errorf("invalid compute device %q (use one of %s)",
			c.Blender.ComputeDevice, strings.Join(blender.Devices, ", "))
	}

	if _, err := c.RenderSet(); err != nil {
		return err
	}

	if c.Engine == EngineSim && len(c.SimScenes) == 0 {
		return errors.New("sim engine needs at least one scene")
	}

	if c.CheckOnly {
		return nil
	}
	if c.OutputDir == "" {
		return errors.New("need an output directory")
	}
	c.OutputDir = NormalizeDirArg(c.OutputDir)
	return nil
}

// jobSettings are written by every job and cannot be set by the user.
var jobSettings = []string{
	engine.AttrResolutionX,
	engine.AttrResolutionY,
	engine.AttrResolutionPercent,
	engine.AttrUseFileExtension,
	engine.AttrFilepath,
}

// RenderSet returns RenderSettings as an attribute set sorted by name.
// Errors match attrs.ErrConfig.
func (c *Config) RenderSet() (attrs.Set, error) {
	names := make([]string, 0, len(c.RenderSettings))
	for name := range c.RenderSettings {
		names = append(names, name)
	}
	sort.Strings(names)

	set := make(attrs.Set, 0, len(names))
	for _, name := range names {
		if slices.Contains(jobSettings, name) {
			return nil, fmt.Errorf("%w: render setting %s is set by every job", attrs.ErrConfig, name)
		}
		v, err := attrs.FromAny(c.RenderSettings[name])
		if err != nil {
			return nil, fmt.Errorf("%w: render setting %s: %w", attrs.ErrConfig, name, err)
		}
		set = append(set, attrs.Pair{Name: name, Value: v})
	}
	return set, nil
}

// ParseSetting splits a "name=value" flag argument. The value is read as a
// YAML scalar, so 64 is an int, 0.5 a float, true a bool and PNG a string.
func ParseSetting(arg string) (string, any, error) {
	name, raw, ok := strings.Cut(arg, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return "", nil, fmt.Errorf("render setting %q: want name=value", arg)
	}
	var v any
	if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
		return "", nil, fmt.Errorf("render setting %s: %w", name, err)
	}
	if v == nil {
		return "", nil, fmt.Errorf("render setting %s: empty value", name)
	}
	return name, v, nil
}
