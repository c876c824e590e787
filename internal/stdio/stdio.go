// Package stdio redirects a process-wide standard stream into a file at the
// file-descriptor level.
//
// Redirecting os.Stdout as a Go variable only affects Go code that reads the
// variable. Swapping the descriptor itself (dup2) also captures writes from
// C libraries and from child processes that inherit descriptor 1, which is
// what an external renderer needs.
//
// A descriptor can have at most one live redirection. Redirect rejects a
// second acquisition with ErrBusy until the first Handle is restored.
package stdio

import (
	"errors"
	"fmt"
	"os"
	"sync"
)

var (
	// ErrRedirect reports that the stream could not be duplicated or
	// replaced. The stream still points at its original destination.
	ErrRedirect = errors.New("stdio: redirect failed")

	// ErrRestore reports that the original destination could not be put
	// back. The stream state is unknown and the process should stop.
	ErrRestore = errors.New("stdio: restore failed")

	// ErrBusy is returned when the stream is already redirected.
	ErrBusy = errors.New("stdio: stream already redirected")

	// ErrUnsupported is returned on platforms without dup2.
	ErrUnsupported = errors.New("stdio: descriptor redirection not supported on this platform")
)

// Flusher is a buffered writer layered over the stream, such as a
// *bufio.Writer wrapping os.Stdout. Flushers are drained before the
// descriptor is swapped in either direction.
type Flusher interface {
	Flush() error
}

// guard tracks which descriptors currently have a live Handle.
var guard = struct {
	sync.Mutex
	fds map[int]bool
}{fds: make(map[int]bool)}

func claim(fd int) error {
	guard.Lock()
	defer guard.Unlock()
	if guard.fds[fd] {
		return fmt.Errorf("%w (fd %d)", ErrBusy, fd)
	}
	guard.fds[fd] = true
	return nil
}

func release(fd int) {
	guard.Lock()
	defer guard.Unlock()
	delete(guard.fds, fd)
}

// Busy reports whether stream currently has a live redirection.
func Busy(stream *os.File) bool {
	guard.Lock()
	defer guard.Unlock()
	return guard.fds[int(stream.Fd())]
}

// Handle owns the duplicate of the stream's original descriptor.
type Handle struct {
	stream   *os.File
	fd       int
	saved    int
	flushers []Flusher
	restored bool
}

// Redirect points stream's descriptor at target's open file description
// until Restore is called on the returned Handle.
func Redirect(stream, target *os.File, flushers ...Flusher) (*Handle, error) {
	if stream == nil || target == nil {
		return nil, fmt.Errorf("%w: nil file", ErrRedirect)
	}
	fd := int(stream.Fd())
	if err := claim(fd); err != nil {
		return nil, err
	}

	flush(stream, flushers)

	saved, err := dupCloexec(fd)
	if err != nil {
		release(fd)
		return nil, fmt.Errorf("%w: dup fd %d: %w", ErrRedirect, fd, err)
	}
	if err := dupOnto(int(target.Fd()), fd); err != nil {
		_ = closeFd(saved)
		release(fd)
		return nil, fmt.Errorf("%w: dup2 %s onto fd %d: %w", ErrRedirect, target.Name(), fd, err)
	}

	return &Handle{stream: stream, fd: fd, saved: saved, flushers: flushers}, nil
}

// Restore flushes pending output into the redirect target, points the
// stream back at its original destination, and releases the duplicate.
// Calling it again is a no-op.
//
// If the descriptor cannot be put back the guard stays claimed, since the
// stream is still attached to the target.
func (h *Handle) Restore() error {
	if h == nil || h.restored {
		return nil
	}
	h.restored = true

	flush(h.stream, h.flushers)

	if err := dupOnto(h.saved, h.fd); err != nil {
		return fmt.Errorf("%w: dup2 saved fd %d onto fd %d: %w", ErrRestore, h.saved, h.fd, err)
	}
	release(h.fd)
	if err := closeFd(h.saved); err != nil {
		return fmt.Errorf("%w: close saved fd %d: %w", ErrRestore, h.saved, err)
	}
	return nil
}

// With redirects stream into target for the duration of fn. The stream is
// restored whether fn returns normally, returns an error, or panics. When
// both fn and the restore fail, fn's error comes first in the joined error.
func With(stream, target *os.File, fn func() error, flushers ...Flusher) error {
	h, err := Redirect(stream, target, flushers...)
	if err != nil {
		return err
	}
	return h.run(fn)
}

// run calls fn and then restores h, joining fn's error before the restore
// error.
func (h *Handle) run(fn func() error) (err error) {
	defer func() {
		if rerr := h.Restore(); rerr != nil {
			err = errors.Join(err, rerr)
		}
	}()
	return fn()
}

// Stdout is With for os.Stdout.
func Stdout(target *os.File, fn func() error, flushers ...Flusher) error {
	return With(os.Stdout, target, fn, flushers...)
}

// flush drains user-space buffers and pushes the kernel's view of the
// stream to its current destination. Sync fails on pipes and terminals,
// which have nothing to sync, so its error is ignored.
func flush(stream *os.File, flushers []Flusher) {
	for _, f := range flushers {
		_ = f.Flush()
	}
	_ = stream.Sync()
}
