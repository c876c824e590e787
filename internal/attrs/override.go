package attrs

import (
	"errors"
	"fmt"
)

// Target is a mutable object with named, readable, writable attributes.
type Target interface {
	Get(name string) (Value, error)
	Set(name string, v Value) error
}

// Validator is implemented by targets that can tell whether a write would
// be accepted without performing it.
type Validator interface {
	Validate(name string, v Value) error
}

// Pair is one attribute assignment.
type Pair struct {
	Name  string
	Value Value
}

// Set is an ordered list of assignments.
type Set []Pair

// Names returns the attribute names in order.
func (s Set) Names() []string {
	names := make([]string, len(s))
	for i, p := range s {
		names[i] = p.Name
	}
	return names
}

// Lookup returns the value assigned to name.
func (s Set) Lookup(name string) (Value, bool) {
	for _, p := range s {
		if p.Name == name {
			return p.Value, true
		}
	}
	return Value{}, false
}

func (s Set) validate() error {
	seen := make(map[string]bool, len(s))
	for _, p := range s {
		if seen[p.Name] {
			return &ConfigError{Attr: p.Name, Value: p.Value, Err: ErrDuplicateAttr}
		}
		if !p.Value.IsValid() {
			return &ConfigError{Attr: p.Name, Err: fmt.Errorf("%w: invalid value", ErrKindMismatch)}
		}
		seen[p.Name] = true
	}
	return nil
}

// Snapshot holds the prior values of exactly the attributes of one Set.
type Snapshot struct {
	target   Target
	saved    Set
	restored bool
}

// Values returns the saved values in override order.
func (s *Snapshot) Values() Set {
	out := make(Set, len(s.saved))
	copy(out, s.saved)
	return out
}

// Override reads every attribute named in set, then writes the new values.
// If any read or write fails, attributes already written are put back and a
// *ConfigError is returned; the target is then unchanged (barring a failing
// rollback, which is joined into the error).
func Override(target Target, set Set) (*Snapshot, error) {
	if err := set.validate(); err != nil {
		return nil, err
	}

	snap := &Snapshot{target: target, saved: make(Set, 0, len(set))}
	for _, p := range set {
		prev, err := target.Get(p.Name)
		if err != nil {
			return nil, &ConfigError{Attr: p.Name, Err: err}
		}
		snap.saved = append(snap.saved, Pair{Name: p.Name, Value: prev})
	}

	for i, p := range set {
		if err := target.Set(p.Name, p.Value); err != nil {
			cerr := &ConfigError{Attr: p.Name, Value: p.Value, Err: err}
			partial := &Snapshot{target: target, saved: snap.saved[:i]}
			if rerr := partial.Restore(); rerr != nil {
				return nil, errors.Join(cerr, rerr)
			}
			return nil, cerr
		}
	}
	return snap, nil
}

// Restore writes the saved values back in override order. Every attribute
// is attempted even if an earlier one fails. Calling Restore again is a
// no-op.
func (s *Snapshot) Restore() error {
	if s == nil || s.restored {
		return nil
	}
	s.restored = true

	var failed []string
	var errs []error
	for _, p := range s.saved {
		if err := s.target.Set(p.Name, p.Value); err != nil {
			failed = append(failed, p.Name)
			errs = append(errs, fmt.Errorf("%s: %w", p.Name, err))
		}
	}
	if len(errs) > 0 {
		return &RestoreError{Attrs: failed, Err: errors.Join(errs...)}
	}
	return nil
}

// Check verifies that every attribute in set can be read from target,
// without writing anything. When target is a Validator the new values are
// validated too.
func Check(target Target, set Set) error {
	if err := set.validate(); err != nil {
		return err
	}
	v, _ := target.(Validator)
	for _, p := range set {
		if _, err := target.Get(p.Name); err != nil {
			return &ConfigError{Attr: p.Name, Err: err}
		}
		if v == nil {
			continue
		}
		if err := v.Validate(p.Name, p.Value); err != nil {
			return &ConfigError{Attr: p.Name, Value: p.Value, Err: err}
		}
	}
	return nil
}

// With applies set to target, runs fn, and restores the snapshot whatever
// fn does. An override failure is returned before fn runs.
//
// A restore failure is passed to report when it is non-nil and is not
// returned, so the caller can carry on with the next job. With a nil report
// it is returned instead, joined after fn's error.
func With(target Target, set Set, fn func() error, report func(error)) (err error) {
	snap, err := Override(target, set)
	if err != nil {
		return err
	}
	defer func() {
		rerr := snap.Restore()
		if rerr == nil {
			return
		}
		if report != nil {
			report(rerr)
			return
		}
		err = errors.Join(err, rerr)
	}()
	return fn()
}
