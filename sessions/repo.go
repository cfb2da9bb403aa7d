package sessions

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

var ErrGrantNotFound = errors.New("grant not found")

// Repo stores grants under opaque keys with a time to live. Implementations
// must make Take atomic so a code can be redeemed once.
type Repo interface {
	Put(ctx context.Context, key string, grant *Grant, ttl time.Duration) error
	Get(ctx context.Context, key string) (*Grant, error)
	Take(ctx context.Context, key string) (*Grant, error)
	Delete(ctx context.Context, key string) error
}

const (
	codePrefix  = "code:"
	tokenPrefix = "token:"
)

// storageKey never stores the raw credential.
func storageKey(prefix, secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return prefix + hex.EncodeToString(sum[:])
}
