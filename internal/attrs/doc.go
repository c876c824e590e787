// Package attrs overrides named properties on a mutable engine object and
// restores them afterwards.
//
// Values are a small tagged union ([Value]) because the render settings of
// an engine scene mix integers, floats, booleans, and strings. A [Set] is an
// ordered list of name/value pairs; the order is used both when applying the
// new values and when writing the [Snapshot] back, so attributes that depend
// on one another are always touched in the same sequence.
//
// The scoped form is [With]: the snapshot is restored on every exit path of
// the protected function, including a returned error and a panic.
package attrs
