package event

import "encoding/json"

// Field is an optional patch value distinguishing three states:
// absent (not part of the patch), present-but-null (explicitly clear the
// column), and present-with-value.
//
// The zero Field is absent. JSON encoding maps the states onto the usual
// wire shapes: an absent Field is omitted entirely (via omitzero), a null
// Field encodes as JSON null, and a set Field encodes its value.
type Field[T any] struct {
	present bool
	null    bool
	value   T
}

// Set returns a Field carrying the given value.
func Set[T any](v T) Field[T] {
	return Field[T]{present: true, value: v}
}

// Null returns a Field that is present but explicitly null.
func Null[T any]() Field[T] {
	return Field[T]{present: true, null: true}
}

// Present reports whether the field is part of the patch at all.
func (f Field[T]) Present() bool {
	return f.present
}

// IsNull reports whether the field is present and explicitly null.
func (f Field[T]) IsNull() bool {
	return f.present && f.null
}

// Get returns the value and whether the field is present with a non-null
// value.
func (f Field[T]) Get() (T, bool) {
	if !f.present || f.null {
		var zero T
		return zero, false
	}
	return f.value, true
}

// IsZero reports whether the field is absent. It exists so struct tags can
// use omitzero to drop absent fields from the encoded patch.
func (f Field[T]) IsZero() bool {
	return !f.present
}

// MarshalJSON implements json.Marshaler.
// Absent fields marshal as null too; callers must tag fields with omitzero
// so absent fields never reach the encoder.
func (f Field[T]) MarshalJSON() ([]byte, error) {
	if !f.present || f.null {
		return []byte("null"), nil
	}
	return json.Marshal(f.value)
}

// UnmarshalJSON implements json.Unmarshaler. A field that is missing from
// the document is never passed here, so any call marks the field present.
func (f *Field[T]) UnmarshalJSON(data []byte) error {
	f.present = true
	if string(data) == "null" {
		f.null = true
		var zero T
		f.value = zero
		return nil
	}
	f.null = false
	return json.Unmarshal(data, &f.value)
}
