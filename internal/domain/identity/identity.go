// Package identity classifies the token an application uses to reach a retriever.
package identity

import "strings"

// SecretPrefix tags a secret retriever credential.
const SecretPrefix = "ret_sk_"

// Kind is the authentication strategy implied by an identity.
type Kind int

// Identity kinds.
const (
	PublicSlug Kind = iota
	SecretKey
)

func (k Kind) String() string {
	if k == SecretKey {
		return "secret_key"
	}
	return "public_slug"
}

// Identity is an immutable, classified project key.
type Identity struct {
	value string
	kind  Kind
}

// Parse classifies a raw project key. Surrounding whitespace is ignored.
func Parse(raw string) Identity {
	v := strings.TrimSpace(raw)
	k := PublicSlug
	if strings.HasPrefix(v, SecretPrefix) {
		k = SecretKey
	}
	return Identity{value: v, kind: k}
}

// Value returns the raw token.
func (i Identity) Value() string { return i.value }

// Kind returns the classification.
func (i Identity) Kind() Kind { return i.kind }

// IsSecret reports whether the identity must travel in an auth header.
func (i Identity) IsSecret() bool { return i.kind == SecretKey }

// IsZero reports whether no token was supplied.
func (i Identity) IsZero() bool { return i.value == "" }

// String never reveals secret material.
func (i Identity) String() string {
	if i.kind == SecretKey {
		if len(i.value) <= len(SecretPrefix)+4 {
			return SecretPrefix + "****"
		}
		return i.value[:len(SecretPrefix)+4] + "****"
	}
	return i.value
}
