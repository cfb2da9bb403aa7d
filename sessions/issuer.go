package sessions

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/mcp-auth-gateway/clients"
	gwerrors "github.com/jrsteele09/mcp-auth-gateway/internal/errors"
	"github.com/jrsteele09/mcp-auth-gateway/oauthmodel"
	"github.com/jrsteele09/mcp-auth-gateway/pkce"
	"github.com/jrsteele09/mcp-auth-gateway/providers"
	"github.com/rs/zerolog/log"
)

const credentialBytes = 32

// Issuer mints and redeems the gateway's own codes and access tokens.
type Issuer struct {
	repo     Repo
	codeTTL  time.Duration
	tokenTTL time.Duration
	now      func() time.Time
}

func NewIssuer(repo Repo, codeTTL, tokenTTL time.Duration) *Issuer {
	return &Issuer{repo: repo, codeTTL: codeTTL, tokenTTL: tokenTTL, now: time.Now}
}

// CompleteAuthorization binds identity to the client's request and returns
// the URL the browser is sent back to, carrying a single-use code and the
// client's own state.
func (i *Issuer) CompleteAuthorization(ctx context.Context, identity *providers.Identity, req oauthmodel.AuthorizationRequest, grantedScope string) (string, error) {
	if identity == nil {
		return "", fmt.Errorf("[Issuer CompleteAuthorization] nil identity")
	}
	if err := req.Validate(); err != nil {
		return "", err
	}
	redirect, err := url.Parse(req.RedirectURI)
	if err != nil || req.RedirectURI == "" {
		return "", gwerrors.Wrapf(gwerrors.ErrInvalidRedirectURI, "[Issuer CompleteAuthorization] %q", req.RedirectURI)
	}

	code, err := newCredential()
	if err != nil {
		return "", err
	}

	now := i.now()
	grant := &Grant{
		ID:                  uuid.New().String(),
		ClientID:            req.ClientID,
		RedirectURI:         req.RedirectURI,
		Scope:               grantedScope,
		Resource:            req.Resource,
		CodeChallenge:       req.CodeChallenge,
		CodeChallengeMethod: string(req.CodeChallengeMethod),
		Identity:            *identity,
		CreatedAt:           now,
		ExpiresAt:           now.Add(i.codeTTL),
	}
	if err := i.repo.Put(ctx, storageKey(codePrefix, code), grant, i.codeTTL); err != nil {
		return "", fmt.Errorf("[Issuer CompleteAuthorization] failed to store grant: %w", err)
	}

	log.Info().
		Str("grant_id", grant.ID).
		Str("client_id", grant.ClientID).
		Str("provider", string(identity.Provider)).
		Str("login", identity.Login).
		Msg("authorization completed")

	q := redirect.Query()
	q.Set("code", code)
	if req.State != "" {
		q.Set("state", req.State)
	}
	redirect.RawQuery = q.Encode()
	return redirect.String(), nil
}

// Exchange redeems an authorization code. The client must already be
// authenticated by the caller.
func (i *Issuer) Exchange(ctx context.Context, tr oauthmodel.TokenRequest, client *clients.Client) (*oauthmodel.TokenResponse, error) {
	if tr.GrantType != oauthmodel.AuthorizationCodeGrant {
		return nil, gwerrors.Wrapf(gwerrors.ErrUnsupported, "grant_type %q", tr.GrantType)
	}
	if tr.Code == "" {
		return nil, gwerrors.Wrapf(gwerrors.ErrInvalidRequest, "missing code")
	}

	grant, err := i.repo.Take(ctx, storageKey(codePrefix, tr.Code))
	if err != nil {
		return nil, gwerrors.Wrapf(gwerrors.ErrInvalidGrant, "unknown or used code")
	}
	if grant.ClientID != client.ID {
		return nil, gwerrors.Wrapf(gwerrors.ErrInvalidGrant, "code was issued to another client")
	}
	if grant.RedirectURI != "" && tr.RedirectURI != grant.RedirectURI {
		return nil, gwerrors.Wrapf(gwerrors.ErrInvalidGrant, "redirect_uri mismatch")
	}
	if grant.CodeChallenge != "" {
		if !pkce.Verify(tr.CodeVerifier, grant.CodeChallenge) {
			return nil, gwerrors.Wrapf(gwerrors.ErrInvalidGrant, "code_verifier does not match")
		}
	} else if tr.CodeVerifier != "" {
		return nil, gwerrors.Wrapf(gwerrors.ErrInvalidGrant, "code_verifier without code_challenge")
	}

	token, err := newCredential()
	if err != nil {
		return nil, err
	}
	now := i.now()
	grant.CreatedAt = now
	grant.ExpiresAt = now.Add(i.tokenTTL)
	if err := i.repo.Put(ctx, storageKey(tokenPrefix, token), grant, i.tokenTTL); err != nil {
		return nil, fmt.Errorf("[Issuer Exchange] failed to store token: %w", err)
	}

	return &oauthmodel.TokenResponse{
		AccessToken: token,
		TokenType:   oauthmodel.TokenTypeBearer,
		ExpiresIn:   int(i.tokenTTL.Seconds()),
		Scope:       grant.Scope,
	}, nil
}

// Authenticate resolves a bearer token to its grant.
func (i *Issuer) Authenticate(ctx context.Context, token string) (*Grant, error) {
	if token == "" {
		return nil, gwerrors.ErrInvalidToken
	}
	grant, err := i.repo.Get(ctx, storageKey(tokenPrefix, token))
	if err != nil {
		return nil, gwerrors.ErrInvalidToken
	}
	if !grant.ExpiresAt.IsZero() && i.now().After(grant.ExpiresAt) {
		return nil, gwerrors.ErrTokenExpired
	}
	return grant, nil
}

// Revoke invalidates an access token. Unknown tokens are not an error.
func (i *Issuer) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return i.repo.Delete(ctx, storageKey(tokenPrefix, token))
}

func newCredential() (string, error) {
	b := make([]byte, credentialBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("[sessions newCredential] %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Redact keeps enough of a credential to correlate log lines.
func Redact(token string) string {
	if len(token) <= 8 {
		return "[redacted]"
	}
	return token[:6] + "..."
}
