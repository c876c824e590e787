package blender

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/backmassage/iconrender/internal/attrs"
	"github.com/backmassage/iconrender/internal/engine"
)

// queryMarker prefixes the single JSON line printed by the query script so
// it can be picked out of Blender's startup chatter.
const queryMarker = "@@ICONRENDER "

// ErrNoQueryOutput is returned when Blender exits without printing the
// query line, typically because the .blend file could not be loaded.
var ErrNoQueryOutput = errors.New("blender: query produced no output")

const queryScript = `import bpy, json
def settings(s):
    r = s.render
    return {
        "resolution_x": r.resolution_x,
        "resolution_y": r.resolution_y,
        "resolution_percentage": r.resolution_percentage,
        "filepath": r.filepath,
        "use_file_extension": r.use_file_extension,
        "file_format": r.image_settings.file_format,
    }
print("` + queryMarker + `" + json.dumps({
    "version": bpy.app.version_string,
    "scenes": [{"name": s.name, "engine": s.render.engine, "settings": settings(s)} for s in bpy.data.scenes],
}))
`

// SceneInfo is one scene as reported by Blender.
type SceneInfo struct {
	Name         string
	RenderEngine string // e.g. CYCLES, BLENDER_EEVEE
	Settings     attrs.Set
}

// QueryResult is the parsed query output.
type QueryResult struct {
	Version string
	Scenes  []SceneInfo
}

// Query runs Blender once to list scenes and their render settings.
func Query(ctx context.Context, opts Options) (*QueryResult, error) {
	args := baseArgs(opts)
	args = append(args, "--python-expr", queryScript)

	cmd := exec.CommandContext(ctx, opts.binary(), args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("blender query %s: %w%s", opts.BlendFile, err, stderrSuffix(stderr.String()))
	}
	return ParseQuery(out)
}

// ParseQuery extracts the marked JSON line from Blender's stdout.
// Exported for testing without a real Blender binary.
func ParseQuery(out []byte) (*QueryResult, error) {
	sc := bufio.NewScanner(bytes.NewReader(out))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if idx := strings.Index(line, queryMarker); idx >= 0 {
			return parseQueryJSON([]byte(line[idx+len(queryMarker):]))
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read blender output: %w", err)
	}
	return nil, ErrNoQueryOutput
}

// --- query JSON wire types ---

type queryOutput struct {
	Version string       `json:"version"`
	Scenes  []queryScene `json:"scenes"`
}

type queryScene struct {
	Name     string         `json:"name"`
	Engine   string         `json:"engine"`
	Settings map[string]any `json:"settings"`
}

func parseQueryJSON(data []byte) (*QueryResult, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw queryOutput
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("parse blender query JSON: %w", err)
	}

	res := &QueryResult{Version: raw.Version}
	for _, s := range raw.Scenes {
		info := SceneInfo{Name: s.Name, RenderEngine: s.Engine}
		// keep the engine's canonical attribute order, not map order
		for _, name := range engine.SettingNames {
			x, ok := s.Settings[name]
			if !ok {
				continue
			}
			v, err := attrs.FromAny(x)
			if err != nil {
				return nil, fmt.Errorf("scene %q attribute %s: %w", s.Name, name, err)
			}
			info.Settings = append(info.Settings, attrs.Pair{Name: name, Value: v})
		}
		res.Scenes = append(res.Scenes, info)
	}
	return res, nil
}

func stderrSuffix(stderr string) string {
	lines := tail(stderr, 3)
	if len(lines) == 0 {
		return ""
	}
	return " (" + strings.Join(lines, "; ") + ")"
}
