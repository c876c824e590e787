package attrs

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Kind identifies which member of the Value union is populated.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindInt
	KindFloat
	KindBool
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	default:
		return "invalid"
	}
}

// Value is an int, float, bool, or string attribute value. The zero Value is
// invalid.
type Value struct {
	kind Kind
	i    int64
	f    float64
	b    bool
	s    string
}

func Int(v int) Value { return Value{kind: KindInt, i: int64(v)} }
func Float(v float64) Value { return Value{kind: KindFloat, f: v} }
func Bool(v bool) Value { return Value{kind: KindBool, b: v} }
func String(v string) Value { return Value{kind: KindString, s: v} }
func (v Value) Kind() Kind { return v.kind }
func (v Value) IsValid() bool { return v.kind != KindInvalid }

// Int returns the integer member. ok is false for any other kind.
func (v Value) Int() (n int64, ok bool) {
	return v.i, v.kind == KindInt
}

// Float returns the float member. Integers are widened; ok is false for
// booleans and strings.
func (v Value) Float() (f float64, ok bool) {
	switch v.kind {
	case KindFloat:
		return v.f, true
	case KindInt:
		return float64(v.i), true
	}
	return 0, false
}

func (v Value) Bool() (b bool, ok bool) {
	return v.b, v.kind == KindBool
}

func (v Value) Str() (s string, ok bool) {
	return v.s, v.kind == KindString
}

// Equal reports whether both values have the same kind and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindBool:
		return v.b == o.b
	case KindString:
		return v.s == o.s
	}
	return true
}

// String formats the value for log output. Strings are quoted.
func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindString:
		return strconv.Quote(v.s)
	}
	return "<invalid>"
}

// FromAny converts a decoded YAML or JSON scalar into a Value. JSON numbers
// decoded with UseNumber keep their int/float distinction.
func FromAny(x any) (Value, error) {
	switch t := x.(type) {
	case Value:
		return t, nil
	case int:
		return Int(t), nil
	case int64:
		if t > math.MaxInt || t < math.MinInt {
			return Value{}, fmt.Errorf("integer %d out of range", t)
		}
		return Int(int(t)), nil
	case float64:
		return Float(t), nil
	case float32:
		return Float(float64(t)), nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return FromAny(n)
		}
		f, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("invalid number %q: %w", t.String(), err)
		}
		return Float(f), nil
	}
	return Value{}, fmt.Errorf("unsupported attribute type %T", x)
}

// Coerce converts v to kind where the conversion is lossless: ints widen to
// floats and integral floats narrow to ints. Any other mismatch is an error.
func Coerce(v Value, kind Kind) (Value, error) {
	if v.kind == kind {
		return v, nil
	}
	switch {
	case kind == KindFloat && v.kind == KindInt:
		return Float(float64(v.i)), nil
	case kind == KindInt && v.kind == KindFloat:
		if v.f == math.Trunc(v.f) && v.f >= math.MinInt32 && v.f <= math.MaxInt32 {
			return Int(int(v.f)), nil
		}
		return Value{}, fmt.Errorf("%w: %s is not integral", ErrKindMismatch, v)
	}
	return Value{}, fmt.Errorf("%w: have %s, want %s", ErrKindMismatch, v.kind, kind)
}
