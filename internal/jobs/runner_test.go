package jobs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/backmassage/iconrender/internal/attrs"
	"github.com/backmassage/iconrender/internal/engine"
	"github.com/backmassage/iconrender/internal/engine/sim"
	"github.com/backmassage/iconrender/internal/stdio"
)

// These tests redirect the real descriptor 1 and must not run in parallel.

func openLog(t *testing.T, dir string) *os.File {
	t.Helper()
	f, err := os.OpenFile(filepath.Join(dir, LogFileName), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func logSize(t *testing.T, dir string) int64 {
	t.Helper()
	fi, err := os.Stat(filepath.Join(dir, LogFileName))
	if err != nil {
		t.Fatal(err)
	}
	return fi.Size()
}

func assertDefaults(t *testing.T, e *sim.Engine, scene string) {
	t.Helper()
	target, err := e.Settings(scene)
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range sim.DefaultSettings() {
		got, err := target.Get(p.Name)
		if err != nil {
			t.Fatal(err)
		}
		if !got.Equal(p.Value) {
			t.Errorf("%s %s = %v after run, want %v", scene, p.Name, got, p.Value)
		}
	}
}

func TestAll_YieldsEveryTargetInOrder(t *testing.T) {
	dir := t.TempDir()
	e := sim.New("Main", "Alt")
	var scenes []string
	r := &Runner{
		Engine:    e,
		OutputDir: dir,
		LogFile:   openLog(t, dir),
		OnScene:   func(s string) { scenes = append(scenes, s) },
	}

	var got []string
	for res, err := range r.All(context.Background()) {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.File != res.Path+".png" {
			t.Errorf("File = %q, want %q", res.File, res.Path+".png")
		}
		got = append(got, res.Path)
	}

	var want []string
	for _, s := range []string{"Main", "Alt"} {
		for _, n := range []int{16, 32, 48, 256} {
			want = append(want, filepath.Join(dir, fmt.Sprintf("%s_%dpx", s, n)))
		}
	}
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Fatalf("paths:\n%s\nwant:\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
	for _, p := range got {
		if _, err := os.Stat(p + ".png"); err != nil {
			t.Errorf("missing output: %v", err)
		}
	}
	if strings.Join(scenes, ",") != "Main,Alt" {
		t.Errorf("OnScene calls = %v", scenes)
	}

	assertDefaults(t, e, "Main")
	assertDefaults(t, e, "Alt")
	if stdio.Busy(os.Stdout) {
		t.Error("stdout still redirected")
	}

	data, err := os.ReadFile(filepath.Join(dir, LogFileName))
	if err != nil {
		t.Fatal(err)
	}
	log := string(data)
	for _, want := range []string{"Rendering Main_16px", "Rendering Alt_256px", "Saved: '" + filepath.Join(dir, "Alt_256px.png") + "'"} {
		if !strings.Contains(log, want) {
			t.Errorf("log missing %q", want)
		}
	}
}

func TestAll_RenderSeesOverrides(t *testing.T) {
	dir := t.TempDir()
	e := sim.New("Main")
	r := &Runner{Engine: e, OutputDir: dir, LogFile: openLog(t, dir), Resolutions: []int{48}}
	for _, err := range r.All(context.Background()) {
		if err != nil {
			t.Fatal(err)
		}
	}

	calls := e.Calls()
	if len(calls) != 1 {
		t.Fatalf("calls = %d", len(calls))
	}
	c := calls[0]
	if c.Request != engine.StillRequest("Main") {
		t.Errorf("request = %+v", c.Request)
	}
	for name, want := range map[string]attrs.Value{
		engine.AttrResolutionX:       attrs.Int(48),
		engine.AttrResolutionY:       attrs.Int(48),
		engine.AttrResolutionPercent: attrs.Int(100),
		engine.AttrFilepath:          attrs.String(filepath.Join(dir, "Main_48px")),
	} {
		if got, _ := c.Settings.Lookup(name); !got.Equal(want) {
			t.Errorf("%s during render = %v, want %v", name, got, want)
		}
	}
}

func TestAll_RenderFailureStopsBatch(t *testing.T) {
	dir := t.TempDir()
	e := sim.New("Main", "Alt")
	errBoom := errors.New("CUDA error: out of memory")
	e.FailOn("Main", 48, errBoom)
	r := &Runner{Engine: e, OutputDir: dir, LogFile: openLog(t, dir)}

	var paths []string
	var final error
	for res, err := range r.All(context.Background()) {
		if err != nil {
			final = err
			if stdio.Busy(os.Stdout) {
				t.Error("stdout still redirected when the error was yielded")
			}
			continue
		}
		paths = append(paths, filepath.Base(res.Path))
	}

	if strings.Join(paths, ",") != "Main_16px,Main_32px" {
		t.Errorf("paths before failure = %v", paths)
	}
	if !errors.Is(final, engine.ErrRender) || !errors.Is(final, errBoom) {
		t.Fatalf("final error = %v, want render error", final)
	}
	var jerr *JobError
	if !errors.As(final, &jerr) || jerr.Target.Name() != "Main_48px" {
		t.Errorf("JobError = %+v", jerr)
	}
	if len(e.Calls()) != 3 {
		t.Errorf("render calls = %d, want 3", len(e.Calls()))
	}
	assertDefaults(t, e, "Main")

	for _, p := range []string{"Main_16px.png", "Main_32px.png"} {
		if _, err := os.Stat(filepath.Join(dir, p)); err != nil {
			t.Errorf("artifact from before the failure removed: %v", err)
		}
	}
}

func TestAll_UnknownAttributeIsConfigError(t *testing.T) {
	dir := t.TempDir()
	e := sim.New("Main")
	r := &Runner{
		Engine:    e,
		OutputDir: dir,
		LogFile:   openLog(t, dir),
		Extra:     attrs.Set{{Name: "film_transparent", Value: attrs.Bool(true)}},
	}

	var results int
	var final error
	for _, err := range r.All(context.Background()) {
		if err != nil {
			final = err
			continue
		}
		results++
	}
	if !errors.Is(final, attrs.ErrConfig) {
		t.Fatalf("error = %v, want configuration error", final)
	}
	if results != 0 || len(e.Calls()) != 0 {
		t.Errorf("results = %d, calls = %d, want none", results, len(e.Calls()))
	}
	if n := logSize(t, dir); n != 0 {
		t.Errorf("log size = %d, want untouched", n)
	}
}

func TestAll_RejectedValueIsConfigError(t *testing.T) {
	dir := t.TempDir()
	e := sim.New("Main")
	r := &Runner{
		Engine:    e,
		OutputDir: dir,
		LogFile:   openLog(t, dir),
		Extra:     attrs.Set{{Name: engine.AttrFileFormat, Value: attrs.String("JPEG")}},
	}
	var final error
	for _, err := range r.All(context.Background()) {
		final = err
	}
	if !errors.Is(final, attrs.ErrConfig) {
		t.Fatalf("error = %v, want configuration error", final)
	}
	if len(e.Calls()) != 0 {
		t.Error("render ran despite rejected override")
	}
	assertDefaults(t, e, "Main")
}

func TestAll_LogAppendsAcrossRuns(t *testing.T) {
	dir := t.TempDir()
	e := sim.New("Main")
	var sizes []int64
	for run := 0; run < 2; run++ {
		r := &Runner{Engine: e, OutputDir: dir, LogFile: openLog(t, dir), Resolutions: []int{16}}
		for _, err := range r.All(context.Background()) {
			if err != nil {
				t.Fatal(err)
			}
		}
		sizes = append(sizes, logSize(t, dir))
	}
	if sizes[0] == 0 || sizes[1] <= sizes[0] {
		t.Errorf("log sizes = %v, want strictly increasing", sizes)
	}
}

func TestAll_BreakStopsRendering(t *testing.T) {
	dir := t.TempDir()
	e := sim.New("Main")
	r := &Runner{Engine: e, OutputDir: dir, LogFile: openLog(t, dir)}
	for _, err := range r.All(context.Background()) {
		if err != nil {
			t.Fatal(err)
		}
		break
	}
	if len(e.Calls()) != 1 {
		t.Errorf("render calls = %d, want 1", len(e.Calls()))
	}
	if _, err := os.Stat(filepath.Join(dir, "Main_16px.png")); err != nil {
		t.Errorf("first artifact missing: %v", err)
	}
}

func TestAll_CancelledContext(t *testing.T) {
	dir := t.TempDir()
	e := sim.New("Main")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := &Runner{Engine: e, OutputDir: dir, LogFile: openLog(t, dir)}
	var final error
	for _, err := range r.All(ctx) {
		final = err
	}
	if !errors.Is(final, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", final)
	}
	if len(e.Calls()) != 0 {
		t.Error("render ran after cancellation")
	}
}

// failingRestore rejects writes back to the filepath attribute after the
// override has been applied.
type failingRestore struct {
	attrs.Target
	writes int
}

func (f *failingRestore) Set(name string, v attrs.Value) error {
	f.writes++
	if name == engine.AttrFilepath && f.writes > 5 {
		return errors.New("read-only while rendering")
	}
	return f.Target.Set(name, v)
}

type restoreFailEngine struct {
	*sim.Engine
}

func (e restoreFailEngine) Settings(scene string) (attrs.Target, error) {
	t, err := e.Engine.Settings(scene)
	if err != nil {
		return nil, err
	}
	return &failingRestore{Target: t}, nil
}

func TestAll_RestoreFailureReportedAndBatchContinues(t *testing.T) {
	dir := t.TempDir()
	e := restoreFailEngine{sim.New("Main")}
	var reported []string
	r := &Runner{
		Engine:      e,
		OutputDir:   dir,
		LogFile:     openLog(t, dir),
		Resolutions: []int{16, 32},
		OnRestoreError: func(target Target, err error) {
			if !errors.Is(err, attrs.ErrRestore) {
				t.Errorf("reported error = %v, want ErrRestore", err)
			}
			reported = append(reported, target.Name())
		},
	}

	var results int
	for _, err := range r.All(context.Background()) {
		if err != nil {
			t.Fatalf("restore failure should not stop the batch: %v", err)
		}
		results++
	}
	if results != 2 {
		t.Errorf("results = %d, want 2", results)
	}
	if strings.Join(reported, ",") != "Main_16px,Main_32px" {
		t.Errorf("reported = %v", reported)
	}
}

func TestAll_NoLogFile(t *testing.T) {
	r := &Runner{Engine: sim.New("Main"), OutputDir: t.TempDir()}
	for _, err := range r.All(context.Background()) {
		if err == nil {
			t.Fatal("expected an error without a log file")
		}
	}
}

func TestAll_FileUsesOverriddenFormat(t *testing.T) {
	dir := t.TempDir()
	e := sim.New("Main")
	if err := e.AllowFormats("Main"); err != nil {
		t.Fatal(err)
	}
	r := &Runner{
		Engine:      e,
		OutputDir:   dir,
		LogFile:     openLog(t, dir),
		Resolutions: []int{16},
		Extra:       attrs.Set{{Name: engine.AttrFileFormat, Value: attrs.String("JPEG")}},
	}

	var files []string
	for res, err := range r.All(context.Background()) {
		if err != nil {
			t.Fatal(err)
		}
		files = append(files, res.File)
	}
	want := filepath.Join(dir, "Main_16px.jpg")
	if len(files) != 1 || files[0] != want {
		t.Fatalf("files = %v, want [%s]", files, want)
	}
	if _, err := os.Stat(want); err != nil {
		t.Errorf("rendered file: %v", err)
	}
	assertDefaults(t, e, "Main")
}

func TestAll_StdoutRestoreFailureIsFatal(t *testing.T) {
	dir := t.TempDir()
	e := sim.New("Main")
	errStuck := fmt.Errorf("%w: dup2 saved fd onto fd 1: bad file descriptor", stdio.ErrRestore)
	var reported int
	r := &Runner{
		Engine:         e,
		OutputDir:      dir,
		LogFile:        openLog(t, dir),
		OnRestoreError: func(Target, error) { reported++ },
		redirect: func(_, _ *os.File, fn func() error, _ ...stdio.Flusher) error {
			return errors.Join(fn(), errStuck)
		},
	}

	var results int
	var final error
	for _, err := range r.All(context.Background()) {
		if err != nil {
			final = err
			continue
		}
		results++
	}
	if results != 0 || len(e.Calls()) != 1 {
		t.Errorf("results = %d, calls = %d, want the batch to stop after one render", results, len(e.Calls()))
	}
	if !errors.Is(final, stdio.ErrRestore) {
		t.Fatalf("final error = %v, want stdio.ErrRestore", final)
	}
	var jerr *JobError
	if !errors.As(final, &jerr) || jerr.Target.Name() != "Main_16px" {
		t.Errorf("JobError = %+v", jerr)
	}
	if reported != 0 {
		t.Errorf("stdout restore failure went to OnRestoreError (%d calls)", reported)
	}
	assertDefaults(t, e, "Main")
}

// countingEngine counts scene enumerations.
type countingEngine struct {
	*sim.Engine
	scenes int
}

func (e *countingEngine) Scenes(ctx context.Context) ([]string, error) {
	e.scenes++
	return e.Engine.Scenes(ctx)
}

func TestJobs_UsesGivenTargets(t *testing.T) {
	dir := t.TempDir()
	e := &countingEngine{Engine: sim.New("Main", "Alt")}
	r := &Runner{Engine: e, OutputDir: dir, LogFile: openLog(t, dir)}

	targets, err := r.Preflight(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for res, err := range r.Jobs(context.Background(), targets[:2]) {
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, res.Target.Name())
	}
	if strings.Join(got, ",") != "Main_16px,Main_32px" {
		t.Errorf("jobs = %v", got)
	}
	if e.scenes != 1 {
		t.Errorf("scenes enumerated %d times, want 1", e.scenes)
	}
}
