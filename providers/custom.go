package providers

import "golang.org/x/oauth2"

// NewCustom returns the adapter for a generic OAuth 2.1 server. The gateway
// registers there as a public client: PKCE only, no client secret.
func NewCustom(cfg Config, redirectURL string, opts ...Option) Adapter {
	base := trimSlash(cfg.BaseURL)
	cfg.ClientSecret = ""
	return newAdapter(Custom, cfg, redirectURL,
		oauth2.Endpoint{AuthURL: base + "/authorize", TokenURL: base + "/token"},
		[]string{"read", "write"},
		base+"/userinfo",
		normalizeCustom,
		opts,
	)
}

func normalizeCustom(p Profile) (*Identity, error) {
	userID := p.String("user_id")
	login := firstNonEmpty(p.String("username"), userID, "demo_user")
	return &Identity{
		Login:   login,
		Name:    firstNonEmpty(p.String("name"), login),
		Email:   p.String("email"),
		Subject: firstNonEmpty(p.String("sub"), userID),
		Groups:  p.Strings("groups"),
	}, nil
}
