// Package logging provides the leveled, optionally colored application
// logger with an optional append-mode file sink, built on go-logging.
//
// Log lines go to the process's standard output (ERROR to standard error)
// at call time. Callers must not log while standard output is redirected
// into a render log.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	gologging "github.com/op/go-logging"

	"github.com/backmassage/iconrender/internal/config"
	"github.com/backmassage/iconrender/internal/term"
)

const (
	appModule    = "iconrender"
	renderModule = "render" // per-job progress, tagged RENDER
	timeLayout   = "2006-01-02 15:04:05"
)

// Level is a log severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelRender
	LevelSuccess
	LevelWarn
	LevelError
)

var levels = [...]struct {
	tag   string
	style term.Style
	level gologging.Level
}{
	LevelDebug:   {"DEBUG", term.Cyan, gologging.DEBUG},
	LevelInfo:    {"INFO", term.Blue, gologging.INFO},
	LevelRender:  {"RENDER", term.Magenta, gologging.INFO},
	LevelSuccess: {"SUCCESS", term.Green, gologging.NOTICE},
	LevelWarn:    {"WARN", term.Yellow, gologging.WARNING},
	LevelError:   {"ERROR", term.Red, gologging.ERROR},
}

func (l Level) String() string {
	if l < 0 || int(l) >= len(levels) {
		return fmt.Sprintf("LEVEL(%d)", int(l))
	}
	return levels[l].tag
}

// levelOf maps a go-logging record back to the level it was logged at.
func levelOf(r *gologging.Record) Level {
	switch r.Level {
	case gologging.DEBUG:
		return LevelDebug
	case gologging.INFO:
		if r.Module == renderModule {
			return LevelRender
		}
		return LevelInfo
	case gologging.NOTICE:
		return LevelSuccess
	case gologging.WARNING:
		return LevelWarn
	}
	return LevelError
}

// lineFormatter writes "<time> [TAG] message". Only the console variant
// paints the tag.
type lineFormatter struct {
	color bool
}

func (f lineFormatter) Format(calldepth int, r *gologging.Record, w io.Writer) error {
	lvl := levelOf(r)
	tag := "[" + lvl.String() + "]"
	if f.color {
		tag = term.Paint(levels[lvl].style, tag)
	}
	_, err := fmt.Fprintf(w, "%s %s %s", r.Time.Format(timeLayout), tag, r.Message())
	return err
}

// consoleBackend sends ERROR and above to errOut, the rest to out.
type consoleBackend struct {
	out, errOut gologging.Backend
}

func (b consoleBackend) Log(level gologging.Level, calldepth int, r *gologging.Record) error {
	if level <= gologging.ERROR {
		return b.errOut.Log(level, calldepth+1, r)
	}
	return b.out.Log(level, calldepth+1, r)
}

func formatted(w io.Writer, color bool) gologging.Backend {
	return gologging.NewBackendFormatter(gologging.NewLogBackend(w, "", 0), lineFormatter{color: color})
}

// Logger is the application logger. The file sink never receives escape
// sequences.
type Logger struct {
	mu      sync.Mutex
	verbose bool
	app     *gologging.Logger
	render  *gologging.Logger
	console gologging.Backend
	file    *os.File
}

// NewLogger configures terminal colors from cfg and logs to the process's
// standard streams. See New.
func NewLogger(cfg *config.Config) (*Logger, error) {
	return New(cfg, os.Stdout, os.Stderr)
}

// New returns a logger writing console lines to stdout and errors to
// stderr. When cfg.LogFile is set it is opened for appending; Close
// releases it.
func New(cfg *config.Config, stdout, stderr io.Writer) (*Logger, error) {
	term.Configure(cfg.ColorMode)
	l := &Logger{
		verbose: cfg.Verbose,
		app:     gologging.MustGetLogger(appModule),
		render:  gologging.MustGetLogger(renderModule),
		console: consoleBackend{out: formatted(stdout, true), errOut: formatted(stderr, true)},
	}
	if cfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
			return nil, fmt.Errorf("log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		l.file = f
	}
	l.attach()
	return l, nil
}

// attach points both module loggers at the console and, when open, the
// file. Callers hold l.mu or own l exclusively.
func (l *Logger) attach() {
	backends := []gologging.Backend{l.console}
	if l.file != nil {
		backends = append(backends, formatted(l.file, false))
	}
	leveled := gologging.MultiLogger(backends...)
	if l.verbose {
		leveled.SetLevel(gologging.DEBUG, "")
	} else {
		leveled.SetLevel(gologging.INFO, "")
	}
	l.app.SetBackend(leveled)
	l.render.SetBackend(leveled)
}

// Close closes the log file if one was opened. Later lines go to the
// console only. Safe to call twice.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	l.attach()
	return err
}

// Verbose reports whether DEBUG lines are printed.
func (l *Logger) Verbose() bool { return l.verbose }

// Log writes one line at lvl. DEBUG is dropped unless the logger is verbose.
func (l *Logger) Log(lvl Level, format string, args ...interface{}) {
	if lvl == LevelDebug && !l.verbose {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	switch lvl {
	case LevelDebug:
		l.app.Debugf(format, args...)
	case LevelInfo:
		l.app.Infof(format, args...)
	case LevelRender:
		l.render.Infof(format, args...)
	case LevelSuccess:
		l.app.Noticef(format, args...)
	case LevelWarn:
		l.app.Warningf(format, args...)
	default:
		l.app.Errorf(format, args...)
	}
}

func (l *Logger) Debug(format string, args ...interface{}) {
	l.Log(LevelDebug, format, args...)
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.Log(LevelInfo, format, args...)
}

// Render marks per-job progress.
func (l *Logger) Render(format string, args ...interface{}) {
	l.Log(LevelRender, format, args...)
}

func (l *Logger) Success(format string, args ...interface{}) {
	l.Log(LevelSuccess, format, args...)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	l.Log(LevelWarn, format, args...)
}

// Error writes to standard error.
func (l *Logger) Error(format string, args ...interface{}) {
	l.Log(LevelError, format, args...)
}
