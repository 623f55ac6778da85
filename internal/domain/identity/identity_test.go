package identity

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		raw    string
		kind   Kind
		secret bool
		value  string
	}{
		{"ret_sk_abc123", SecretKey, true, "ret_sk_abc123"},
		{"  ret_sk_abc123\n", SecretKey, true, "ret_sk_abc123"},
		{"my-site-search", PublicSlug, false, "my-site-search"},
		{"sk_proj_abc", PublicSlug, false, "sk_proj_abc"},
		{"", PublicSlug, false, ""},
	}
	for _, tc := range tests {
		id := Parse(tc.raw)
		if id.Kind() != tc.kind {
			t.Errorf("Parse(%q).Kind() = %v, want %v", tc.raw, id.Kind(), tc.kind)
		}
		if id.IsSecret() != tc.secret {
			t.Errorf("Parse(%q).IsSecret() = %v, want %v", tc.raw, id.IsSecret(), tc.secret)
		}
		if id.Value() != tc.value {
			t.Errorf("Parse(%q).Value() = %q, want %q", tc.raw, id.Value(), tc.value)
		}
	}
}

func TestString_MasksSecret(t *testing.T) {
	id := Parse("ret_sk_abcdefghijkl")
	if got := id.String(); got != "ret_sk_abcd****" {
		t.Errorf("String() = %q", got)
	}
	if got := Parse("ret_sk_a").String(); got != "ret_sk_****" {
		t.Errorf("short String() = %q", got)
	}
	if got := Parse("public-slug").String(); got != "public-slug" {
		t.Errorf("slug String() = %q", got)
	}
}
