package attrs

import (
	"fmt"
	"sync"
)

// Record is an in-memory Target with a fixed schema: the attribute names
// and kinds are taken from the initial values. Writes to unknown names fail
// with ErrUnknownAttr and writes of another kind are coerced or rejected.
type Record struct {
	mu          sync.Mutex
	order       []string
	values      map[string]Value
	locked      map[string]bool
	constraints map[string]func(Value) error
}

// NewRecord builds a Record from initial values in order.
func NewRecord(initial Set) *Record {
	r := &Record{
		values:      make(map[string]Value, len(initial)),
		locked:      map[string]bool{},
		constraints: map[string]func(Value) error{},
	}
	for _, p := range initial {
		if _, dup := r.values[p.Name]; !dup {
			r.order = append(r.order, p.Name)
		}
		r.values[p.Name] = p.Value
	}
	return r
}

// ReadOnly marks names as readable but not writable.
func (r *Record) ReadOnly(names ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range names {
		r.locked[n] = true
	}
}

// Writable undoes ReadOnly for names.
func (r *Record) Writable(names ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range names {
		delete(r.locked, n)
	}
}

// Constrain runs check on every value written to name, after coercion to
// the attribute's kind.
func (r *Record) Constrain(name string, check func(Value) error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.constraints[name] = check
}

func (r *Record) Get(name string) (Value, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.values[name]
	if !ok {
		return Value{}, fmt.Errorf("%w %q", ErrUnknownAttr, name)
	}
	return v, nil
}

func (r *Record) Set(name string, v Value) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cv, err := r.accept(name, v)
	if err != nil {
		return err
	}
	r.values[name] = cv
	return nil
}

// Validate reports the error Set would return, without writing.
func (r *Record) Validate(name string, v Value) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := r.accept(name, v)
	return err
}

func (r *Record) accept(name string, v Value) (Value, error) {
	cur, ok := r.values[name]
	if !ok {
		return Value{}, fmt.Errorf("%w %q", ErrUnknownAttr, name)
	}
	if r.locked[name] {
		return Value{}, fmt.Errorf("attribute %q is read-only", name)
	}
	cv, err := Coerce(v, cur.Kind())
	if err != nil {
		return Value{}, fmt.Errorf("%s: %w", name, err)
	}
	if check := r.constraints[name]; check != nil {
		if err := check(cv); err != nil {
			return Value{}, fmt.Errorf("%s: %w", name, err)
		}
	}
	return cv, nil
}

// Values returns a copy of all attributes in schema order.
func (r *Record) Values() Set {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(Set, 0, len(r.order))
	for _, n := range r.order {
		out = append(out, Pair{Name: n, Value: r.values[n]})
	}
	return out
}
