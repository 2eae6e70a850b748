// Package optional models a value that may be absent without resorting to
// pointers. A Value is either Some(v) or None; absence is explicit and cannot
// be confused with a zero value.
package optional

import "fmt"

// Value holds a T that may or may not be present.
// The zero Value is None.
type Value[T any] struct {
	value   T
	present bool
}

// Some returns a Value containing v.
func Some[T any](v T) Value[T] {
	return Value[T]{value: v, present: true}
}

// None returns an empty Value.
func None[T any]() Value[T] {
	return Value[T]{}
}

// Get returns the contained value and whether it is present.
func (o Value[T]) Get() (T, bool) {
	return o.value, o.present
}

// GetOrElse returns the contained value, or fallback when empty.
func (o Value[T]) GetOrElse(fallback T) T {
	if o.present {
		return o.value
	}

	return fallback
}

// Present reports whether a value is contained.
func (o Value[T]) Present() bool {
	return o.present
}

// Absent reports whether the Value is empty.
func (o Value[T]) Absent() bool {
	return !o.present
}

// String renders as "Some(v)" or "None".
func (o Value[T]) String() string {
	if o.present {
		return fmt.Sprintf("Some(%v)", o.value)
	}

	return "None"
}
