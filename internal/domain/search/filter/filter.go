package filter

import (
	"encoding/json"
	"fmt"
	"maps"
	"reflect"
	"slices"
)

// Inputs maps retriever input fields to values (e.g. category, min_price, smart_filter).
// The zero value is an empty, usable set. Inputs is immutable; setters return a copy.
type Inputs struct {
	values map[string]any
}

// NewInputs builds an Inputs set, dropping empty values.
func NewInputs(values map[string]any) Inputs {
	in := Inputs{}
	for k, v := range values {
		in = in.Set(k, v)
	}
	return in
}

// Set returns a copy with field set to value.
// nil, "", and empty slices remove the field instead.
func (in Inputs) Set(field string, value any) Inputs {
	if field == "" {
		return in
	}
	if isEmpty(value) {
		return in.Remove(field)
	}
	next := maps.Clone(in.values)
	if next == nil {
		next = make(map[string]any, 1)
	}
	next[field] = value
	return Inputs{values: next}
}

// Remove returns a copy without field.
func (in Inputs) Remove(field string) Inputs {
	if _, ok := in.values[field]; !ok {
		return in
	}
	next := maps.Clone(in.values)
	delete(next, field)
	return Inputs{values: next}
}

// Clear returns an empty set.
func (in Inputs) Clear() Inputs { return Inputs{} }

// Get returns the value of a field.
func (in Inputs) Get(field string) (any, bool) {
	v, ok := in.values[field]
	return v, ok
}

// Len returns the number of active fields.
func (in Inputs) Len() int { return len(in.values) }

// IsEmpty reports whether no filter is active.
func (in Inputs) IsEmpty() bool { return len(in.values) == 0 }

// Fields returns the active field names in sorted order.
func (in Inputs) Fields() []string {
	return slices.Sorted(maps.Keys(in.values))
}

// Map returns a copy of the values.
func (in Inputs) Map() map[string]any { return maps.Clone(in.values) }

// Canonical returns a deterministic serialization (sorted keys), "" when empty.
func (in Inputs) Canonical() (string, error) {
	if in.IsEmpty() {
		return "", nil
	}
	// encoding/json sorts map keys
	b, err := json.Marshal(in.values)
	if err != nil {
		return "", fmt.Errorf("serialize filters: %w", err)
	}
	return string(b), nil
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return s == ""
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface, reflect.Map:
		return rv.IsNil()
	default:
		return false
	}
}
