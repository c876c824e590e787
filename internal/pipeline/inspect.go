package pipeline

import (
	"context"
	"fmt"
	"io"

	"github.com/backmassage/iconrender/internal/config"
	"github.com/backmassage/iconrender/internal/display"
	"github.com/backmassage/iconrender/internal/engine"
	"github.com/backmassage/iconrender/internal/jobs"
	"github.com/backmassage/iconrender/internal/logging"
)

// renderEngineNamer is implemented by engines that know each scene's render
// engine (CYCLES, BLENDER_EEVEE, ...).
type renderEngineNamer interface {
	RenderEngine(scene string) string
}

// Inspect prints every scene with its current render settings and the
// number of jobs a render would run. Nothing is written or rendered.
func Inspect(ctx context.Context, cfg *config.Config, log *logging.Logger, eng engine.Engine, out io.Writer) error {
	scenes, err := eng.Scenes(ctx)
	if err != nil {
		log.Error("Cannot list scenes: %v", err)
		return err
	}
	if len(scenes) == 0 {
		log.Warn("No scenes found")
		return nil
	}

	namer, _ := eng.(renderEngineNamer)
	rows := make([]display.SceneRow, 0, len(scenes))
	for _, s := range scenes {
		row := display.SceneRow{Scene: s}
		if namer != nil {
			row.Engine = namer.RenderEngine(s)
		}
		target, err := eng.Settings(s)
		if err != nil {
			log.Warn("%s: %v", s, err)
			rows = append(rows, row)
			continue
		}
		for _, name := range engine.SettingNames {
			v, err := target.Get(name)
			if err != nil {
				log.Debug("%s: %s unavailable: %v", s, name, err)
				continue
			}
			row.Settings = append(row.Settings, [2]string{name, v.String()})
		}
		rows = append(rows, row)
	}

	fmt.Fprint(out, display.SceneTable(rows))
	n := len(jobs.Matrix(scenes, jobs.Resolutions))
	log.Info("%d scenes, %d jobs at %v px (engine %s)", len(scenes), n, jobs.Resolutions, eng.Name())
	if cfg.OutputDir != "" {
		log.Info("Output directory: %s", cfg.OutputDir)
	}
	return nil
}
