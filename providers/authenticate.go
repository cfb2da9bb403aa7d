package providers

import (
	"context"

	gwerrors "github.com/jrsteele09/mcp-auth-gateway/internal/errors"
)

// Authenticate runs the provider-independent callback sequence: exchange the
// code with the PKCE verifier, verify the id_token when there is one, fetch
// the profile and normalize it. Each step runs only if the previous one
// succeeded.
func Authenticate(ctx context.Context, a Adapter, code, verifier string) (*Identity, error) {
	if code == "" {
		return nil, gwerrors.New(gwerrors.KindMalformedRequest, string(a.Name()), "callback", gwerrors.ErrMissingCode)
	}

	token, err := a.ExchangeToken(ctx, code, verifier)
	if err != nil {
		return nil, err
	}

	var claims *IDClaims
	if v, ok := a.(IDTokenVerifier); ok {
		if claims, err = v.VerifyIDToken(ctx, token); err != nil {
			return nil, err
		}
	}

	profile, err := a.FetchUserInfo(ctx, token.AccessToken)
	if err != nil {
		return nil, err
	}

	identity, err := a.NormalizeIdentity(token, profile)
	if err != nil {
		return nil, err
	}

	if claims != nil {
		identity.Subject = firstNonEmpty(claims.Subject, identity.Subject)
		identity.Email = firstNonEmpty(identity.Email, claims.Email)
		if identity.EmailVerified == nil {
			identity.EmailVerified = claims.EmailVerified
		}
	}
	return identity, nil
}
