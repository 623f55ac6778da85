package chi

import (
	"net/http"

	"github.com/mixpeek/searchkit/internal/transport/retriever"
)

// exemptPaths are routes that bypass authentication (health, metrics).
var exemptPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

// APIKeyMiddleware validates the X-Public-API-Key header.
// The key-addressed execute route requires a key; slug routes accept an
// anonymous caller but reject an unknown key.
// If apiKeys is empty, authentication is disabled (pass-through).
func APIKeyMiddleware(apiKeys []string) func(http.Handler) http.Handler {
	validKeys := make(map[string]struct{}, len(apiKeys))
	for _, k := range apiKeys {
		if k != "" {
			validKeys[k] = struct{}{}
		}
	}

	return func(next http.Handler) http.Handler {
		// Auth disabled: pass everything through
		if len(validKeys) == 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Exempt paths
			if _, ok := exemptPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			key := r.Header.Get(retriever.HeaderAPIKey)
			if key == "" {
				if r.URL.Path == ExecutePath {
					writeError(w, http.StatusUnauthorized, codeUnauthorized, "missing "+retriever.HeaderAPIKey+" header")
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			if _, ok := validKeys[key]; !ok {
				writeError(w, http.StatusUnauthorized, codeUnauthorized, "invalid api key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
