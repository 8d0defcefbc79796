// Package patch models partial-update payloads.
//
// A Field distinguishes three states that a plain pointer cannot:
// absent (the key was not in the request body), null (the key was present
// with a JSON null), and set (the key carried a value). Update payloads are
// structs of Fields decoded with encoding/json; only keys that appear in the
// body are touched.
package patch

import (
	"bytes"
	"encoding/json"
	"reflect"
	"sort"
	"strings"

	"github.com/dalemusser/phonebook/internal/app/system/apperr"
)

// Field is a tri-state optional value.
type Field[T any] struct {
	present bool
	null    bool
	value   T
}

// Set returns a Field holding v.
func Set[T any](v T) Field[T] { return Field[T]{present: true, value: v} }

// Null returns a Field that is present and explicitly null.
func Null[T any]() Field[T] { return Field[T]{present: true, null: true} }

// Present reports whether the key appeared in the payload.
func (f Field[T]) Present() bool { return f.present }

// IsNull reports whether the key appeared with a null value.
func (f Field[T]) IsNull() bool { return f.present && f.null }

// HasValue reports whether the key appeared with a non-null value.
func (f Field[T]) HasValue() bool { return f.present && !f.null }

// Value returns the carried value and whether there is one.
func (f Field[T]) Value() (T, bool) {
	return f.value, f.HasValue()
}

// Ptr returns nil for null or absent, and a pointer to the value otherwise.
func (f Field[T]) Ptr() *T {
	if !f.HasValue() {
		return nil
	}
	v := f.value
	return &v
}

// UnmarshalJSON is only invoked when the key exists in the object, which is
// what makes absent distinguishable from null.
func (f *Field[T]) UnmarshalJSON(b []byte) error {
	f.present = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		f.null = true
		var zero T
		f.value = zero
		return nil
	}
	f.null = false
	return json.Unmarshal(b, &f.value)
}

// MarshalJSON renders null for absent or null fields.
func (f Field[T]) MarshalJSON() ([]byte, error) {
	if !f.HasValue() {
		return []byte("null"), nil
	}
	return json.Marshal(f.value)
}

// Setter collects the $set document of a partial update.
// Null fields are stored as BSON null so every document keeps the same keys.
type Setter map[string]any

// Apply records f under key when present. A null Field stores nil.
func Apply[T any](s Setter, key string, f Field[T]) {
	if !f.present {
		return
	}
	if f.null {
		s[key] = nil
		return
	}
	s[key] = f.value
}

// Assign applies a present, non-null f to dst and records it under key.
// Callers reject null for required fields with NotNull beforehand.
func Assign[T any](s Setter, key string, f Field[T], dst *T) {
	if !f.HasValue() {
		return
	}
	*dst = f.value
	s[key] = f.value
}

// AssignPtr applies f to a nullable dst: null clears it, a value replaces it.
func AssignPtr[T any](s Setter, key string, f Field[T], dst **T) {
	if !f.present {
		return
	}
	if f.null {
		*dst = nil
		s[key] = nil
		return
	}
	v := f.value
	*dst = &v
	s[key] = v
}

// Empty reports whether nothing was recorded.
func (s Setter) Empty() bool { return len(s) == 0 }

// Keys lists the recorded keys in sorted order.
func (s Setter) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// NotNull rejects an explicit null for a field that must always carry a value.
func NotNull[T any](name string, f Field[T]) error {
	if f.IsNull() {
		return apperr.Validation("%s cannot be null", name)
	}
	return nil
}

type presenter interface{ Present() bool }

// Present lists the json names of the Fields present in the patch struct p,
// in declaration order. Non-Field members are ignored.
func Present(p any) []string {
	v := reflect.Indirect(reflect.ValueOf(p))
	if v.Kind() != reflect.Struct {
		return nil
	}
	var out []string
	for i := 0; i < v.NumField(); i++ {
		if !v.Type().Field(i).IsExported() {
			continue
		}
		f, ok := v.Field(i).Interface().(presenter)
		if !ok || !f.Present() {
			continue
		}
		name, _, _ := strings.Cut(v.Type().Field(i).Tag.Get("json"), ",")
		if name == "" {
			name = v.Type().Field(i).Name
		}
		out = append(out, name)
	}
	return out
}
