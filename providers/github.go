package providers

import (
	"errors"

	"golang.org/x/oauth2"
)

const (
	githubAuthURL     = "https://github.com/login/oauth/authorize"
	githubTokenURL    = "https://github.com/login/oauth/access_token"
	githubUserInfoURL = "https://api.github.com/user"
)

// NewGitHub returns the GitHub OAuth App adapter. GitHub issues no id_token,
// so the identity comes from the REST user endpoint.
func NewGitHub(cfg Config, redirectURL string, opts ...Option) Adapter {
	a := newAdapter(GitHub, cfg, redirectURL,
		oauth2.Endpoint{AuthURL: githubAuthURL, TokenURL: githubTokenURL},
		[]string{"read:user"},
		githubUserInfoURL,
		normalizeGitHub,
		opts,
	)
	a.authParams = []oauth2.AuthCodeOption{oauth2.SetAuthURLParam("allow_signup", "true")}
	return a
}

func normalizeGitHub(p Profile) (*Identity, error) {
	login := p.String("login")
	if login == "" {
		return nil, errors.New("github profile has no login")
	}
	return &Identity{
		Login:   login,
		Name:    firstNonEmpty(p.String("name"), login),
		Email:   p.String("email"),
		Subject: p.String("id"),
		Picture: p.String("avatar_url"),
	}, nil
}
