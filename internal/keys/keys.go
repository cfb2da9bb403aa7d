// Package keys derives the independent keys the gateway needs from the single
// COOKIE_ENCRYPTION_KEY secret.
package keys

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// MinSecretLength is the shortest secret accepted.
const MinSecretLength = 32

const (
	purposeApprovalHash  = "mcp-gateway approval-cookie hmac"
	purposeApprovalBlock = "mcp-gateway approval-cookie aes"
	purposeState         = "mcp-gateway state hs256"
)

// Set holds one key per purpose.
type Set struct {
	ApprovalHash  []byte // 64 bytes, HMAC-SHA256
	ApprovalBlock []byte // 32 bytes, AES-256
	State         []byte // 32 bytes, HS256
}

// FromSecret derives a Set from secret.
func FromSecret(secret []byte) (*Set, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("[keys FromSecret] secret must be at least %d bytes, got %d", MinSecretLength, len(secret))
	}
	approvalHash, err := Derive(secret, purposeApprovalHash, 64)
	if err != nil {
		return nil, err
	}
	approvalBlock, err := Derive(secret, purposeApprovalBlock, 32)
	if err != nil {
		return nil, err
	}
	state, err := Derive(secret, purposeState, 32)
	if err != nil {
		return nil, err
	}
	return &Set{ApprovalHash: approvalHash, ApprovalBlock: approvalBlock, State: state}, nil
}

// Derive expands secret into n bytes bound to purpose.
func Derive(secret []byte, purpose string, n int) ([]byte, error) {
	out := make([]byte, n)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(purpose)), out); err != nil {
		return nil, fmt.Errorf("[keys Derive] %s: %w", purpose, err)
	}
	return out, nil
}
