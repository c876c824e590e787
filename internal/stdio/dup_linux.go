//go:build linux

package stdio

import "golang.org/x/sys/unix"

// dupOnto makes newfd refer to oldfd's open file description. linux/arm64
// has no dup2 syscall, so dup3 is used on every linux architecture.
func dupOnto(oldfd, newfd int) error {
	return unix.Dup3(oldfd, newfd, 0)
}
