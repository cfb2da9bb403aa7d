// Package providers adapts the supported upstream identity providers to one
// capability interface so the authorization and callback flows are written once.
package providers

import (
	"context"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
)

// Name identifies a provider and doubles as its route segment.
type Name string

const (
	GitHub   Name = "github"
	Google   Name = "google"
	Auth0    Name = "auth0"
	Keycloak Name = "keycloak"
	Custom   Name = "custom"
)

// Order is the fixed order providers are enumerated and displayed in.
var Order = []Name{GitHub, Google, Auth0, Keycloak, Custom}

// ParseName returns the provider for a route segment.
func ParseName(s string) (Name, bool) {
	for _, n := range Order {
		if string(n) == s {
			return n, true
		}
	}
	return "", false
}

// DisplayName is used on the selection and approval pages.
func (n Name) DisplayName() string {
	switch n {
	case GitHub:
		return "GitHub"
	case Google:
		return "Google"
	case Auth0:
		return "Auth0"
	case Keycloak:
		return "Keycloak"
	case Custom:
		return "OAuth 2.1 Server"
	}
	return string(n)
}

// Config is the per-request snapshot of one provider's settings.
type Config struct {
	ClientID     string
	ClientSecret string

	Domain   string // Auth0 tenant domain
	BaseURL  string // Keycloak server URL or custom server URL
	Realm    string // Keycloak realm
	Audience string // Auth0 API audience

	ExtraScopes []string

	// Endpoint overrides. Empty means the provider's default.
	AuthURL     string
	TokenURL    string
	UserInfoURL string
	IssuerURL   string
	JWKSURL     string
}

// Complete reports whether cfg has the fields name needs to be offered.
func (c Config) Complete(name Name) bool {
	if c.ClientID == "" {
		return false
	}
	switch name {
	case GitHub, Google:
		return true
	case Auth0:
		return c.Domain != ""
	case Keycloak:
		return c.BaseURL != "" && c.Realm != ""
	case Custom:
		return c.BaseURL != ""
	}
	return false
}

// ConfigSource yields provider settings. Implementations are expected to read
// the current environment on every call.
type ConfigSource interface {
	ProviderConfig(name Name) (Config, bool)
}

// Configured lists the providers with a complete config, in Order.
func Configured(src ConfigSource) []Name {
	var names []Name
	for _, n := range Order {
		if cfg, ok := src.ProviderConfig(n); ok && cfg.Complete(n) {
			names = append(names, n)
		}
	}
	return names
}

// Identity is the provider-independent result of a successful login.
type Identity struct {
	Provider      Name   `json:"provider"`
	Login         string `json:"login"`
	Name          string `json:"name,omitempty"`
	Email         string `json:"email,omitempty"`
	EmailVerified *bool  `json:"emailVerified,omitempty"`
	Subject       string `json:"sub,omitempty"`
	Picture       string `json:"picture,omitempty"`
	// Groups are the upstream group claims, when the provider sends any.
	Groups []string `json:"groups,omitempty"`
	// AccessToken is the upstream token, kept so tools can call the provider's API.
	AccessToken string `json:"accessToken,omitempty"`
}

// Adapter is the capability set every provider offers.
type Adapter interface {
	Name() Name
	// AuthorizeURL returns the upstream authorize URL for the given state and S256 challenge.
	AuthorizeURL(state, challenge string) string
	ExchangeToken(ctx context.Context, code, verifier string) (*oauth2.Token, error)
	FetchUserInfo(ctx context.Context, accessToken string) (Profile, error)
	NormalizeIdentity(token *oauth2.Token, profile Profile) (*Identity, error)
}

// IDTokenVerifier is implemented by adapters that can check an OIDC id_token.
// A nil result with a nil error means there was nothing to verify.
type IDTokenVerifier interface {
	VerifyIDToken(ctx context.Context, token *oauth2.Token) (*IDClaims, error)
}

// IDClaims are the verified id_token claims merged into the Identity.
type IDClaims struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified *bool  `json:"email_verified"`
	Name          string `json:"name"`
}

// New builds the adapter for name. redirectURL is the gateway's callback for it.
func New(name Name, cfg Config, redirectURL string, opts ...Option) (Adapter, error) {
	switch name {
	case GitHub:
		return NewGitHub(cfg, redirectURL, opts...), nil
	case Google:
		return NewGoogle(cfg, redirectURL, opts...), nil
	case Auth0:
		return NewAuth0(cfg, redirectURL, opts...), nil
	case Keycloak:
		return NewKeycloak(cfg, redirectURL, opts...), nil
	case Custom:
		return NewCustom(cfg, redirectURL, opts...), nil
	}
	return nil, ErrUnknownProvider
}

// Option customises an adapter.
type Option func(*adapter)

// WithHTTPClient sets the client used for every upstream call.
func WithHTTPClient(c *http.Client) Option {
	return func(a *adapter) {
		if c != nil {
			a.httpClient = c
		}
	}
}

// WithObserver registers a callback invoked after every upstream call.
func WithObserver(o Observer) Option {
	return func(a *adapter) { a.observer = o }
}

// WithIDTokenVerification toggles id_token checks for OIDC providers.
func WithIDTokenVerification(enabled bool) Option {
	return func(a *adapter) { a.verifyIDToken = enabled }
}

func trimSlash(s string) string {
	return strings.TrimRight(s, "/")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
