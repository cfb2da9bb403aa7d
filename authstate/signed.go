package authstate

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	gwerrors "github.com/jrsteele09/mcp-auth-gateway/internal/errors"
	"github.com/jrsteele09/mcp-auth-gateway/oauthmodel"
)

// DefaultTTL bounds how long a user may spend at the identity provider.
const DefaultTTL = 10 * time.Minute

const stateAudience = "authorization-state"

type stateClaims struct {
	Request      oauthmodel.AuthorizationRequest `json:"req"`
	CodeVerifier string                          `json:"cv,omitempty"`
	Provider     string                          `json:"prov,omitempty"`
	jwt.RegisteredClaims
}

// SignedCodec encodes the payload as an HS256 JWT so a tampered or replayed
// state is rejected at the callback.
type SignedCodec struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

var _ Codec = (*SignedCodec)(nil)

func NewSignedCodec(key []byte, ttl time.Duration) (*SignedCodec, error) {
	if len(key) < 32 {
		return nil, fmt.Errorf("[authstate NewSignedCodec] key must be at least 32 bytes, got %d", len(key))
	}
	if ttl == 0 {
		ttl = DefaultTTL
	}
	return &SignedCodec{key: key, ttl: ttl, now: time.Now}, nil
}

func (c *SignedCodec) Encode(p Payload) (string, error) {
	now := c.now()
	claims := stateClaims{
		Request:      p.Request,
		CodeVerifier: p.CodeVerifier,
		Provider:     p.Provider,
		RegisteredClaims: jwt.RegisteredClaims{
			Audience:  jwt.ClaimStrings{stateAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("[authstate SignedCodec.Encode] %w", err)
	}
	return signed, nil
}

func (c *SignedCodec) Decode(state string) (*Payload, error) {
	if state == "" {
		return nil, gwerrors.Wrapf(gwerrors.ErrMalformedState, "empty state")
	}
	claims := &stateClaims{}
	_, err := jwt.ParseWithClaims(state, claims, func(*jwt.Token) (interface{}, error) {
		return c.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(stateAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", gwerrors.ErrMalformedState, err)
	}
	p := &Payload{Request: claims.Request, CodeVerifier: claims.CodeVerifier, Provider: claims.Provider}
	if err := p.Request.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", gwerrors.ErrMalformedState, err)
	}
	return p, nil
}
