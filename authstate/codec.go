// Package authstate carries the downstream authorization request and the
// upstream PKCE verifier through the identity provider round-trip inside the
// OAuth state parameter.
package authstate

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	gwerrors "github.com/jrsteele09/mcp-auth-gateway/internal/errors"
	"github.com/jrsteele09/mcp-auth-gateway/oauthmodel"
)

// Payload is what travels in state.
type Payload struct {
	Request      oauthmodel.AuthorizationRequest `json:"oauthReqInfo"`
	CodeVerifier string                          `json:"codeVerifier,omitempty"`
	Provider     string                          `json:"provider,omitempty"`
	// Consent is the dialog's anti-forgery token, set only on dialog state.
	Consent string `json:"consent,omitempty"`
}

// Codec turns a Payload into an opaque URL-safe string and back. Decode errors
// wrap errors.ErrMalformedState.
type Codec interface {
	Encode(p Payload) (string, error)
	Decode(state string) (*Payload, error)
}

// Base64Codec is base64url(JSON) without integrity protection.
type Base64Codec struct{}

var _ Codec = Base64Codec{}

func (Base64Codec) Encode(p Payload) (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("[authstate Encode] %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func (Base64Codec) Decode(state string) (*Payload, error) {
	if state == "" {
		return nil, gwerrors.Wrapf(gwerrors.ErrMalformedState, "empty state")
	}
	b, err := base64.RawURLEncoding.DecodeString(state)
	if err != nil {
		// Older clients pad or use the standard alphabet.
		if b, err = base64.StdEncoding.DecodeString(state); err != nil {
			return nil, fmt.Errorf("%w: not base64", gwerrors.ErrMalformedState)
		}
	}
	var p Payload
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("%w: not a state document", gwerrors.ErrMalformedState)
	}
	if err := p.Request.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", gwerrors.ErrMalformedState, err)
	}
	return &p, nil
}
