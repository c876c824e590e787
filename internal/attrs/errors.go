package attrs

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors. ConfigError matches ErrConfig and RestoreError matches
// ErrRestore under errors.Is.
var (
	ErrConfig        = errors.New("attrs: configuration error")
	ErrRestore       = errors.New("attrs: restore failed")
	ErrUnknownAttr   = errors.New("unknown attribute")
	ErrKindMismatch  = errors.New("attribute kind mismatch")
	ErrDuplicateAttr = errors.New("duplicate attribute")
)

// ConfigError reports an attribute that could not be read or overridden.
type ConfigError struct {
	Attr  string
	Value Value // zero when the read failed
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Value.IsValid() {
		return fmt.Sprintf("attrs: cannot set %s = %s: %v", e.Attr, e.Value, e.Err)
	}
	return fmt.Sprintf("attrs: cannot read %s: %v", e.Attr, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

func (e *ConfigError) Is(target error) bool { return target == ErrConfig }

// RestoreError lists the attributes whose saved value could not be written
// back. The target is left diverged for exactly these attributes.
type RestoreError struct {
	Attrs []string
	Err   error // joined per-attribute failures
}

func (e *RestoreError) Error() string {
	return fmt.Sprintf("attrs: restore failed for %s: %v", strings.Join(e.Attrs, ", "), e.Err)
}

func (e *RestoreError) Unwrap() error { return e.Err }

func (e *RestoreError) Is(target error) bool { return target == ErrRestore }
