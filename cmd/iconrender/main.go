// Command iconrender renders every scene of a .blend file at the standard
// icon sizes (16, 32, 48 and 256 px), capturing the renderer's console
// output in blender_render.log inside the output directory.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli"

	"github.com/backmassage/iconrender/internal/check"
	"github.com/backmassage/iconrender/internal/config"
	"github.com/backmassage/iconrender/internal/display"
	"github.com/backmassage/iconrender/internal/engine"
	"github.com/backmassage/iconrender/internal/engine/blender"
	"github.com/backmassage/iconrender/internal/engine/sim"
	"github.com/backmassage/iconrender/internal/history"
	"github.com/backmassage/iconrender/internal/jobs"
	"github.com/backmassage/iconrender/internal/logging"
	"github.com/backmassage/iconrender/internal/pipeline"
)

func main() {
	os.Exit(run(os.Args))
}

// run returns the process exit code. Command actions report their own
// failures through the logger and set code; errors returned from app.Run
// are bootstrap errors (bad flags, bad config) and go straight to stderr.
func run(args []string) int {
	code := 0
	// -v is --verbose here.
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "iconrender"
	app.Usage = "render every scene of a .blend file at icon sizes"
	app.Version = config.Version
	app.Flags = config.GlobalFlags()
	app.Commands = []cli.Command{
		{
			Name:      "render",
			Usage:     fmt.Sprintf("render each scene at %v px", jobs.Resolutions),
			ArgsUsage: "[file.blend]",
			Flags:     config.RenderFlags(),
			Action:    func(c *cli.Context) error { return cmdRender(c, &code) },
		},
		{
			Name:      "scenes",
			Usage:     "list scenes and their current render settings",
			ArgsUsage: "[file.blend]",
			Flags:     config.EngineFlags(),
			Action:    func(c *cli.Context) error { return cmdScenes(c, &code) },
		},
		{
			Name:      "check",
			Usage:     "check Blender, the .blend file, the output directory and redirection",
			ArgsUsage: "[file.blend]",
			Flags: append(config.EngineFlags(), cli.StringFlag{
				Name:  "output, o",
				Usage: "output `DIR` to test for writability",
			}),
			Action: func(c *cli.Context) error { return cmdCheck(c, &code) },
		},
		{
			Name:  "history",
			Usage: "show recently recorded jobs",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "history",
					Usage: "SQLite ledger at `PATH`",
				},
				cli.IntFlag{
					Name:  "limit, n",
					Value: 20,
					Usage: "number of entries to show",
				},
			},
			Action: func(c *cli.Context) error { return cmdHistory(c, &code) },
		},
	}

	if err := app.Run(args); err != nil {
		fmt.Fprintf(os.Stderr, "iconrender: %v\n", err)
		return 1
	}
	return code
}

// loadConfig layers defaults, the YAML file, ICONRENDER_* variables and
// flags, in that order, then validates the result.
func loadConfig(c *cli.Context, checkOnly bool) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if path := c.GlobalString("config"); path != "" {
		if err := config.LoadFile(path, &cfg); err != nil {
			return nil, err
		}
	}
	if err := config.ApplyEnv(&cfg, os.Getenv); err != nil {
		return nil, err
	}
	if err := config.Apply(c, &cfg); err != nil {
		return nil, err
	}
	cfg.CheckOnly = checkOnly
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setup loads the configuration and opens the logger. The banner is printed
// once the logger exists.
func setup(c *cli.Context, checkOnly bool) (*config.Config, *logging.Logger, error) {
	cfg, err := loadConfig(c, checkOnly)
	if err != nil {
		return nil, nil, err
	}
	log, err := logging.NewLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	display.PrintBanner(os.Stdout)
	return cfg, log, nil
}

func openEngine(ctx context.Context, cfg *config.Config) (engine.Engine, error) {
	if cfg.Engine == config.EngineSim {
		return sim.New(cfg.SimScenes...), nil
	}
	return blender.Open(ctx, blender.Options{
		Binary:         cfg.Blender.Binary,
		BlendFile:      cfg.Blender.BlendFile,
		ComputeDevice:  cfg.Blender.ComputeDevice,
		FactoryStartup: cfg.Blender.FactoryStartup,
	})
}

// signalContext is cancelled on SIGINT or SIGTERM. The batch stops before
// the next job; the job in flight finishes and is restored normally. Nothing
// is logged from the handler because stdout may be redirected at that moment.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

func cmdRender(c *cli.Context, code *int) error {
	cfg, log, err := setup(c, false)
	if err != nil {
		return err
	}
	defer log.Close()

	if err := check.CheckDeps(cfg); err != nil {
		log.Error("%v", err)
		*code = 1
		return nil
	}

	ctx, cancel := signalContext()
	defer cancel()

	eng, err := openEngine(ctx, cfg)
	if err != nil {
		log.Error("Cannot open engine: %v", err)
		*code = 1
		return nil
	}

	if _, err := pipeline.Run(ctx, cfg, log, eng, os.Stdout); err != nil {
		*code = 1
	}
	return nil
}

func cmdScenes(c *cli.Context, code *int) error {
	cfg, log, err := setup(c, true)
	if err != nil {
		return err
	}
	defer log.Close()

	ctx, cancel := signalContext()
	defer cancel()

	eng, err := openEngine(ctx, cfg)
	if err != nil {
		log.Error("Cannot open engine: %v", err)
		*code = 1
		return nil
	}
	if err := pipeline.Inspect(ctx, cfg, log, eng, os.Stdout); err != nil {
		log.Error("%v", err)
		*code = 1
	}
	return nil
}

func cmdCheck(c *cli.Context, code *int) error {
	cfg, log, err := setup(c, true)
	if err != nil {
		return err
	}
	defer log.Close()

	ctx, cancel := signalContext()
	defer cancel()

	check.RunCheck(ctx, cfg, log)
	if err := check.CheckDeps(cfg); err != nil {
		*code = 1
	}
	return nil
}

func cmdHistory(c *cli.Context, code *int) error {
	cfg, err := loadConfig(c, true)
	if err != nil {
		return err
	}
	if cfg.HistoryPath == "" {
		return fmt.Errorf("no ledger configured: pass --history or set ICONRENDER_HISTORY")
	}

	ctx, cancel := signalContext()
	defer cancel()

	ledger, err := history.Open(ctx, cfg.HistoryPath)
	if err != nil {
		return err
	}
	defer ledger.Close()

	entries, err := ledger.Recent(ctx, c.Int("limit"))
	if err != nil {
		*code = 1
		fmt.Fprintf(os.Stderr, "iconrender: %v\n", err)
		return nil
	}
	rows := make([]display.HistoryRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, display.HistoryRow{
			When:    e.CreatedAt,
			RunID:   e.RunID,
			Job:     jobs.Target{Scene: e.Scene, Resolution: e.Resolution}.Name(),
			Status:  e.Status,
			Elapsed: e.Duration,
			Error:   e.Error,
		})
	}
	fmt.Print(display.HistoryTable(rows))
	return nil
}
