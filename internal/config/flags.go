package config

// This file maps command-line flags onto Config. Flags are applied last, so
// only flags the user actually passed override the file and environment.

import (
	"fmt"
	"strings"

	"github.com/urfave/cli"

	"github.com/backmassage/iconrender/internal/engine/blender"
)

// Version is shown by --version; override at build time with
// -ldflags "-X github.com/backmassage/iconrender/internal/config.Version=...".
var Version = "0.3.0-dev"

// GlobalFlags are accepted before any command.
func GlobalFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:   "config",
			Usage:  "YAML configuration file",
			EnvVar: "ICONRENDER_CONFIG",
		},
		cli.BoolFlag{
			Name:  "verbose, v",
			Usage: "verbose output",
		},
		cli.BoolFlag{
			Name:  "color",
			Usage: "force colored logs",
		},
		cli.BoolFlag{
			Name:  "no-color",
			Usage: "disable colored logs",
		},
		cli.StringFlag{
			Name:  "log, l",
			Usage: "append application logs to `FILE`",
		},
	}
}

// EngineFlags select and configure the renderer. Shared by every command
// that talks to an engine.
func EngineFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:  "engine, e",
			Usage: "renderer backend: blender | sim",
		},
		cli.StringFlag{
			Name:  "blender, b",
			Usage: "path to the Blender `BINARY`",
		},
		cli.StringFlag{
			Name:  "device",
			Usage: "Cycles compute device: " + strings.Join(blender.Devices, " | "),
		},
		cli.BoolFlag{
			Name:  "factory-startup",
			Usage: "start Blender without user preferences",
		},
		cli.StringSliceFlag{
			Name:  "sim-scene",
			Value: &cli.StringSlice{},
			Usage: "scene offered by the sim engine (repeatable)",
		},
	}
}

// RenderFlags are specific to the render command.
func RenderFlags() []cli.Flag {
	return append(EngineFlags(),
		cli.StringFlag{
			Name:  "output, o",
			Usage: "output `DIR` for images and blender_render.log",
		},
		cli.StringSliceFlag{
			Name:  "set, s",
			Value: &cli.StringSlice{},
			Usage: "extra render setting `NAME=VALUE` for every job (repeatable)",
		},
		cli.BoolFlag{
			Name:  "ico",
			Usage: "also pack each scene's images into <scene>.ico",
		},
		cli.StringFlag{
			Name:  "history",
			Usage: "record jobs in the SQLite ledger at `PATH`",
		},
		cli.BoolFlag{
			Name:  "no-summary",
			Usage: "do not print the job summary table",
		},
	)
}

// Apply copies the flags that were set on c into cfg. The first positional
// argument, when present, is the .blend file.
func Apply(c *cli.Context, cfg *Config) error {
	if c.GlobalBool("verbose") || c.Bool("verbose") {
		cfg.Verbose = true
	}
	if c.GlobalBool("no-color") {
		cfg.ColorMode = ColorNever
	} else if c.GlobalBool("color") {
		cfg.ColorMode = ColorAlways
	}
	if v := c.GlobalString("log"); v != "" {
		cfg.LogFile = v
	}

	if v := c.String("engine"); v != "" {
		cfg.Engine = EngineKind(strings.ToLower(v))
	}
	if v := c.String("blender"); v != "" {
		cfg.Blender.Binary = v
	}
	if v := c.String("device"); v != "" {
		cfg.Blender.ComputeDevice = strings.ToUpper(v)
	}
	if c.Bool("factory-startup") {
		cfg.Blender.FactoryStartup = true
	}
	if s := c.StringSlice("sim-scene"); len(s) > 0 {
		cfg.SimScenes = s
	}

	if v := c.String("output"); v != "" {
		cfg.OutputDir = v
	}
	for _, arg := range c.StringSlice("set") {
		name, v, err := ParseSetting(arg)
		if err != nil {
			return err
		}
		if cfg.RenderSettings == nil {
			cfg.RenderSettings = make(map[string]any)
		}
		cfg.RenderSettings[name] = v
	}
	if c.Bool("ico") {
		cfg.MakeIcon = true
	}
	if v := c.String("history"); v != "" {
		cfg.HistoryPath = v
	}
	if c.Bool("no-summary") {
		cfg.ShowSummary = false
	}

	switch c.NArg() {
	case 0:
	case 1:
		cfg.Blender.BlendFile = c.Args().First()
	default:
		return fmt.Errorf("expected at most one .blend file, got %d arguments", c.NArg())
	}
	return nil
}
