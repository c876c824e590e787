package blender

import (
	"regexp"
	"strings"
)

// Pre-compiled patterns for classifying Blender output after a failed
// render. Checked in order by Classify; the first match wins.
var (
	rePython = regexp.MustCompile(
		`Traceback \(most recent call last\)|Error: Python:|KeyError: 'bpy_collection\[key\]: key`)

	reMissingFile = regexp.MustCompile(
		`(?i)cannot read file|no such file or directory|unable to open|file format is not supported`)

	reGPU = regexp.MustCompile(
		`(?i)CUDA error|OptiX error|HIP error|Metal error|out of memory|no compatible GPUs found`)

	reWriteFailed = regexp.MustCompile(
		`(?i)error: cannot write|couldn't write image|unable to save|permission denied`)
)

// Failure causes returned by Classify.
const (
	CausePython      = "python error"
	CauseMissingFile = "missing file"
	CauseGPU         = "gpu error"
	CauseWriteFailed = "write failed"
)

// Classify returns a short cause for a failed run's output, or "" when no
// known pattern matches.
func Classify(output string) string {
	switch {
	case rePython.MatchString(output):
		return CausePython
	case reMissingFile.MatchString(output):
		return CauseMissingFile
	case reGPU.MatchString(output):
		return CauseGPU
	case reWriteFailed.MatchString(output):
		return CauseWriteFailed
	}
	return ""
}

// tail returns at most n trailing non-empty lines of s.
func tail(s string, n int) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], "\r")
	}
	return lines
}
