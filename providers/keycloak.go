package providers

import (
	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

func NewKeycloak(cfg Config, redirectURL string, opts ...Option) Adapter {
	realm := trimSlash(cfg.BaseURL) + "/realms/" + cfg.Realm
	base := realm + "/protocol/openid-connect"
	a := newAdapter(Keycloak, cfg, redirectURL,
		oauth2.Endpoint{AuthURL: base + "/auth", TokenURL: base + "/token"},
		[]string{oidc.ScopeOpenID, "profile", "email"},
		base+"/userinfo",
		normalizeKeycloak,
		opts,
	)
	a.oidc = &oidcSettings{
		issuerURL: firstNonEmpty(cfg.IssuerURL, realm),
		jwksURL:   firstNonEmpty(cfg.JWKSURL, base+"/certs"),
	}
	return a
}

func normalizeKeycloak(p Profile) (*Identity, error) {
	sub := p.String("sub")
	email := p.String("email")
	login := firstNonEmpty(p.String("preferred_username"), emailLocalPart(email), sub, "unknown")
	return &Identity{
		Login:         login,
		Name:          firstNonEmpty(p.String("name"), login),
		Email:         email,
		EmailVerified: p.Bool("email_verified"),
		Subject:       sub,
		Groups:        p.Strings("groups"),
	}, nil
}
