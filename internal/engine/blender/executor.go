package blender

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
)

// ExecResult holds the outcome of a single Blender invocation.
type ExecResult struct {
	Stderr string
	Err    error
}

// execute runs Blender with stdout attached to this process's descriptor 1
// (whatever it currently points at). Stderr is captured and also copied to
// stdout so it ends up next to the rest of the render output.
//
// A started render runs to completion; ctx is only checked before starting.
func execute(ctx context.Context, binary string, args []string) ExecResult {
	if err := ctx.Err(); err != nil {
		return ExecResult{Err: err}
	}
	cmd := exec.Command(binary, args...)
	cmd.Stdout = os.Stdout

	var stderrBuf bytes.Buffer
	cmd.Stderr = io.MultiWriter(&stderrBuf, os.Stdout)

	err := cmd.Run()
	return ExecResult{
		Stderr: stderrBuf.String(),
		Err:    err,
	}
}
