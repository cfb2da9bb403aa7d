package providers

import (
	"errors"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

const (
	googleAuthURL     = "https://accounts.google.com/o/oauth2/v2/auth"
	googleTokenURL    = "https://oauth2.googleapis.com/token"
	googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
	googleIssuer      = "https://accounts.google.com"
	googleJWKSURL     = "https://www.googleapis.com/oauth2/v3/certs"

	// GmailSendScope is requested in addition when the mail tool sends through Gmail.
	GmailSendScope = "https://www.googleapis.com/auth/gmail.send"
)

func NewGoogle(cfg Config, redirectURL string, opts ...Option) Adapter {
	a := newAdapter(Google, cfg, redirectURL,
		oauth2.Endpoint{AuthURL: googleAuthURL, TokenURL: googleTokenURL},
		[]string{oidc.ScopeOpenID, "profile", "email"},
		googleUserInfoURL,
		normalizeGoogle,
		opts,
	)
	a.authParams = []oauth2.AuthCodeOption{oauth2.SetAuthURLParam("access_type", "online")}
	a.oidc = &oidcSettings{
		issuerURL: firstNonEmpty(cfg.IssuerURL, googleIssuer),
		jwksURL:   firstNonEmpty(cfg.JWKSURL, googleJWKSURL),
	}
	return a
}

// Google has no username; the login is the email local part.
func normalizeGoogle(p Profile) (*Identity, error) {
	email := p.String("email")
	login := emailLocalPart(email)
	if login == "" {
		return nil, errors.New("google profile has no email")
	}
	return &Identity{
		Login:         login,
		Name:          firstNonEmpty(p.String("name"), login),
		Email:         email,
		EmailVerified: p.Bool("verified_email"),
		Subject:       p.String("id"),
		Picture:       p.String("picture"),
	}, nil
}
