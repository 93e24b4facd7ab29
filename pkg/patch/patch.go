// Package patch implements tri-state fields for sparse partial updates.
// A Field distinguishes three JSON states the API contract cares about:
// absent (leave the stored value untouched), explicit null (clear it), and
// a concrete value (replace it).
package patch

import (
	"bytes"
	"encoding/json"
)

// Field is a tri-state optional value for use in update/create DTOs.
// The zero Field means "absent from the payload".
type Field[T any] struct {
	set   bool
	null  bool
	value T
}

// Value constructs a present Field holding v. Mostly used by tests.
func Value[T any](v T) Field[T] { return Field[T]{set: true, value: v} }

// Null constructs an explicit-null Field. Mostly used by tests.
func Null[T any]() Field[T] { return Field[T]{set: true, null: true} }

// Set reports whether the field appeared in the payload at all.
func (f Field[T]) Set() bool { return f.set }

// IsNull reports whether the field was an explicit JSON null.
func (f Field[T]) IsNull() bool { return f.set && f.null }

// Get returns the value and whether a concrete (non-null) value is present.
func (f Field[T]) Get() (T, bool) {
	if !f.set || f.null {
		var zero T
		return zero, false
	}
	return f.value, true
}

func (f *Field[T]) UnmarshalJSON(data []byte) error {
	f.set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		f.null = true
		return nil
	}
	return json.Unmarshal(data, &f.value)
}

func (f Field[T]) MarshalJSON() ([]byte, error) {
	if !f.set || f.null {
		return []byte("null"), nil
	}
	return json.Marshal(f.value)
}
