// Package term decides whether console output is colored and paints text
// with ANSI styles.
//
// The decision is made once at startup by [Configure]. Until then, and
// whenever colors are off, [Paint] returns its input unchanged.
package term

import (
	"os"
	"strings"
	"sync/atomic"

	"github.com/mattn/go-isatty"

	"github.com/backmassage/iconrender/internal/config"
)

// Style is an ANSI select-graphic-rendition prefix.
type Style string

// Bold bright foreground styles.
const (
	Red     Style = "\033[1;91m"
	Green   Style = "\033[1;92m"
	Yellow  Style = "\033[1;93m"
	Blue    Style = "\033[1;94m"
	Magenta Style = "\033[1;95m"
	Cyan    Style = "\033[1;96m"
)

const reset = "\033[0m"

var enabled atomic.Bool

// Configure turns colors on or off for the whole process. Called from
// [logging.NewLogger].
func Configure(mode config.ColorMode) {
	enabled.Store(resolve(mode, os.Getenv, os.Stdout))
}

// Enabled reports whether [Paint] currently emits escape sequences.
func Enabled() bool { return enabled.Load() }

// Paint wraps text in s and a reset when colors are enabled.
func Paint(s Style, text string) string {
	if !enabled.Load() || s == "" {
		return text
	}
	return string(s) + text + reset
}

// resolve applies the mode. In auto mode, colors need a terminal on out,
// an unset NO_COLOR (https://no-color.org) and a TERM other than "dumb".
func resolve(mode config.ColorMode, getenv func(string) string, out *os.File) bool {
	switch mode {
	case config.ColorAlways:
		return true
	case config.ColorNever:
		return false
	}
	if getenv("NO_COLOR") != "" || strings.EqualFold(getenv("TERM"), "dumb") {
		return false
	}
	return IsTerminal(out)
}

// IsTerminal reports whether f is attached to a terminal, including Cygwin
// and MSYS pseudo-terminals.
func IsTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
