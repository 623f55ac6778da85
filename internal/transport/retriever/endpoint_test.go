package retriever

import (
	"errors"
	"testing"

	"github.com/mixpeek/searchkit/internal/domain"
	"github.com/mixpeek/searchkit/internal/domain/identity"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name      string
		key       string
		slug      string
		baseURL   string
		wantURL   string
		wantKey   string
		wantError bool
	}{
		{
			name:    "public slug default base",
			key:     "my-docs",
			wantURL: "https://api.mixpeek.com/v1/public/retrievers/my-docs/execute",
		},
		{
			name:    "public slug is escaped",
			key:     "docs search/v2",
			wantURL: "https://api.mixpeek.com/v1/public/retrievers/docs%20search%2Fv2/execute",
		},
		{
			name:    "secret key generic endpoint",
			key:     "ret_sk_abc123",
			wantURL: "https://api.mixpeek.com/v1/public/retrievers/execute",
			wantKey: "ret_sk_abc123",
		},
		{
			name:    "secret key with slug",
			key:     "ret_sk_abc123",
			slug:    "catalog",
			wantURL: "https://api.mixpeek.com/v1/public/retrievers/catalog/execute",
			wantKey: "ret_sk_abc123",
		},
		{
			name:    "slug ignored for public identity",
			key:     "my-docs",
			slug:    "other",
			wantURL: "https://api.mixpeek.com/v1/public/retrievers/my-docs/execute",
		},
		{
			name:    "trailing slashes stripped",
			key:     "my-docs",
			baseURL: "http://localhost:8080///",
			wantURL: "http://localhost:8080/v1/public/retrievers/my-docs/execute",
		},
		{
			name:    "base url with path prefix",
			key:     "ret_sk_x",
			baseURL: "https://proxy.example.com/mixpeek/",
			wantURL: "https://proxy.example.com/mixpeek/v1/public/retrievers/execute",
			wantKey: "ret_sk_x",
		},
		{name: "empty key", key: "  ", wantError: true},
		{name: "no scheme", key: "k", baseURL: "api.example.com", wantError: true},
		{name: "ftp scheme", key: "k", baseURL: "ftp://example.com", wantError: true},
		{name: "no host", key: "k", baseURL: "http://", wantError: true},
		{name: "query string", key: "k", baseURL: "https://example.com?x=1", wantError: true},
		{name: "unparseable", key: "k", baseURL: "http://[::1", wantError: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			target, err := Resolve(identity.Parse(tc.key), tc.slug, tc.baseURL)
			if tc.wantError {
				if !errors.Is(err, domain.ErrInvalidConfig) {
					t.Fatalf("expected ErrInvalidConfig, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if target.URL != tc.wantURL {
				t.Errorf("url: got %q, want %q", target.URL, tc.wantURL)
			}
			if got := target.Header.Get(HeaderAPIKey); got != tc.wantKey {
				t.Errorf("api key header: got %q, want %q", got, tc.wantKey)
			}
			if ct := target.Header.Get("Content-Type"); ct != "application/json" {
				t.Errorf("content type: got %q", ct)
			}
		})
	}
}
