package retriever

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/mixpeek/searchkit/internal/domain"
	"github.com/mixpeek/searchkit/internal/domain/identity"
)

// DefaultBaseURL is the public retriever API.
const DefaultBaseURL = "https://api.mixpeek.com"

// HeaderAPIKey carries a secret credential.
const HeaderAPIKey = "X-Public-API-Key"

const (
	executePath     = "/v1/public/retrievers/execute"
	slugExecutePath = "/v1/public/retrievers/%s/execute"
)

// Target is a resolved execute endpoint.
type Target struct {
	URL    string
	Header http.Header
}

// Resolve derives the execute URL and auth header for id.
// A secret credential goes in HeaderAPIKey and addresses the generic endpoint,
// or the slug-qualified one when slug is set. Any other identity is a public
// slug embedded in the path with no header. An empty baseURL means DefaultBaseURL.
func Resolve(id identity.Identity, slug, baseURL string) (Target, error) {
	if id.IsZero() {
		return Target{}, fmt.Errorf("%w: project key is required", domain.ErrInvalidConfig)
	}
	base, err := normalizeBaseURL(baseURL)
	if err != nil {
		return Target{}, err
	}

	header := http.Header{}
	header.Set("Content-Type", "application/json")

	slug = strings.TrimSpace(slug)
	if id.IsSecret() {
		header.Set(HeaderAPIKey, id.Value())
		if slug == "" {
			return Target{URL: base + executePath, Header: header}, nil
		}
		return Target{URL: base + fmt.Sprintf(slugExecutePath, url.PathEscape(slug)), Header: header}, nil
	}
	return Target{URL: base + fmt.Sprintf(slugExecutePath, url.PathEscape(id.Value())), Header: header}, nil
}

func normalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = DefaultBaseURL
	}
	raw = strings.TrimRight(raw, "/")
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: base url: %w", domain.ErrInvalidConfig, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: base url %q must be http or https", domain.ErrInvalidConfig, raw)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: base url %q has no host", domain.ErrInvalidConfig, raw)
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return "", fmt.Errorf("%w: base url %q must not carry a query or fragment", domain.ErrInvalidConfig, raw)
	}
	return raw, nil
}
