package filter

import "testing"

func TestSet_RemovesEmptyValues(t *testing.T) {
	in := NewInputs(map[string]any{"category": "shoes", "domain": "example.com"})

	tests := []struct {
		name  string
		value any
	}{
		{"nil", nil},
		{"empty string", ""},
		{"empty slice", []string{}},
		{"nil map", map[string]any(nil)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := in.Set("category", tc.value)
			if _, ok := got.Get("category"); ok {
				t.Fatalf("category should be removed for %v", tc.value)
			}
			if got.Len() != 1 {
				t.Errorf("Len() = %d, want 1", got.Len())
			}
		})
	}
}

func TestSet_IsCopyOnWrite(t *testing.T) {
	a := NewInputs(nil).Set("category", "shoes")
	b := a.Set("min_price", 10)
	if a.Len() != 1 {
		t.Fatalf("original mutated: Len() = %d", a.Len())
	}
	if b.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", b.Len())
	}
	if c := b.Remove("category"); c.Len() != 1 || b.Len() != 2 {
		t.Fatalf("Remove mutated original")
	}
	if !b.Clear().IsEmpty() {
		t.Error("Clear() should be empty")
	}
}

func TestCanonical_SortedAndStable(t *testing.T) {
	a := NewInputs(map[string]any{"b": 1, "a": []string{"x", "y"}, "c": "z"})
	b := NewInputs(map[string]any{"c": "z", "a": []string{"x", "y"}, "b": 1})

	ca, err := a.Canonical()
	if err != nil {
		t.Fatalf("canonical: %v", err)
	}
	cb, _ := b.Canonical()
	if ca != cb {
		t.Fatalf("canonical differs: %s vs %s", ca, cb)
	}
	want := `{"a":["x","y"],"b":1,"c":"z"}`
	if ca != want {
		t.Errorf("Canonical() = %s, want %s", ca, want)
	}
	if s, _ := NewInputs(nil).Canonical(); s != "" {
		t.Errorf("empty Canonical() = %q", s)
	}
}

func TestFields_Sorted(t *testing.T) {
	in := NewInputs(map[string]any{"z": 1, "a": 2, "m": 3})
	got := in.Fields()
	want := []string{"a", "m", "z"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Fields() = %v, want %v", got, want)
		}
	}
}
