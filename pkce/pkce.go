// Package pkce implements the S256 Proof Key for Code Exchange helpers used on
// both sides of the gateway: towards the upstream identity providers and when
// verifying downstream clients at the token endpoint.
package pkce

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
)

// Method is the only challenge method the gateway emits or accepts.
const Method = "S256"

// verifierBytes gives a 43 character verifier once base64url encoded.
const verifierBytes = 32

// Pair holds a verifier and the challenge derived from it.
type Pair struct {
	Verifier  string
	Challenge string
}

// GenerateVerifier returns a fresh high-entropy code verifier.
func GenerateVerifier() (string, error) {
	b := make([]byte, verifierBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("[pkce GenerateVerifier] failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// DeriveChallenge creates the S256 code challenge for a verifier.
func DeriveChallenge(verifier string) string {
	hash := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}

// New generates a verifier and its challenge.
func New() (Pair, error) {
	verifier, err := GenerateVerifier()
	if err != nil {
		return Pair{}, err
	}
	return Pair{Verifier: verifier, Challenge: DeriveChallenge(verifier)}, nil
}

// Verify reports whether verifier hashes to challenge.
func Verify(verifier, challenge string) bool {
	if verifier == "" || challenge == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(DeriveChallenge(verifier)), []byte(challenge)) == 1
}
