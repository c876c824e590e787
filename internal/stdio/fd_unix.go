//go:build unix

package stdio

import "golang.org/x/sys/unix"

// dupCloexec duplicates fd so that child processes started while the
// redirection is live do not inherit the saved original.
func dupCloexec(fd int) (int, error) {
	return unix.FcntlInt(uintptr(fd), unix.F_DUPFD_CLOEXEC, 0)
}

func closeFd(fd int) error {
	return unix.Close(fd)
}
