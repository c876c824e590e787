//go:build !unix

package stdio

func dupCloexec(int) (int, error) { return -1, ErrUnsupported }

func dupOnto(int, int) error { return ErrUnsupported }

func closeFd(int) error { return ErrUnsupported }
