package resultcache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/mixpeek/searchkit/internal/domain/search/outcome"
)

// Entry is a finalized outcome plus the time it was stored.
type Entry struct {
	Outcome  outcome.Outcome `json:"outcome"`
	StoredAt time.Time       `json:"stored_at"`
}

// staleAt reports whether the entry is older than ttl at now.
func (e Entry) staleAt(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.StoredAt) > ttl
}

// Key derives the backend key for a request signature.
// Signatures embed the caller identity, so backends only ever see the digest.
func Key(signature string) string {
	h := sha256.Sum256([]byte(signature))
	return hex.EncodeToString(h[:])
}
