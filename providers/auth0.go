package providers

import (
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

func NewAuth0(cfg Config, redirectURL string, opts ...Option) Adapter {
	base := "https://" + trimSlash(strings.TrimPrefix(cfg.Domain, "https://"))
	a := newAdapter(Auth0, cfg, redirectURL,
		oauth2.Endpoint{AuthURL: base + "/authorize", TokenURL: base + "/oauth/token"},
		[]string{oidc.ScopeOpenID, "profile", "email"},
		base+"/userinfo",
		normalizeAuth0,
		opts,
	)
	if cfg.Audience != "" {
		a.authParams = []oauth2.AuthCodeOption{oauth2.SetAuthURLParam("audience", cfg.Audience)}
	}
	a.oidc = &oidcSettings{
		issuerURL: firstNonEmpty(cfg.IssuerURL, base+"/"),
		jwksURL:   firstNonEmpty(cfg.JWKSURL, base+"/.well-known/jwks.json"),
	}
	return a
}

// normalizeAuth0 derives the login from nickname, then the email local part,
// then the id after the connection prefix in sub ("github|123" gives "123").
func normalizeAuth0(p Profile) (*Identity, error) {
	sub := p.String("sub")
	subID := ""
	if i := strings.Index(sub, "|"); i >= 0 {
		subID = sub[i+1:]
	}
	email := p.String("email")
	login := firstNonEmpty(p.String("nickname"), emailLocalPart(email), subID, "unknown")
	return &Identity{
		Login:         login,
		Name:          firstNonEmpty(p.String("name"), login),
		Email:         email,
		EmailVerified: p.Bool("email_verified"),
		Subject:       sub,
		Picture:       p.String("picture"),
	}, nil
}
