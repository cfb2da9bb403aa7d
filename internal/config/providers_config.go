package config

import (
	"os"
	"strings"

	"github.com/jrsteele09/mcp-auth-gateway/providers"
)

type ProvidersConfig interface {
	providers.ConfigSource
}

// Providers reads provider settings from the environment on every call, so a
// changed variable takes effect on the next request.
type Providers struct {
	// Getenv defaults to os.Getenv.
	Getenv func(string) string
}

var _ ProvidersConfig = Providers{}

func (p Providers) ProviderConfig(name providers.Name) (providers.Config, bool) {
	env := p.Getenv
	if env == nil {
		env = os.Getenv
	}
	get := func(key string) string { return strings.TrimSpace(env(key)) }

	var cfg providers.Config
	switch name {
	case providers.GitHub:
		cfg = providers.Config{
			ClientID:     get("GITHUB_CLIENT_ID"),
			ClientSecret: get("GITHUB_CLIENT_SECRET"),
		}
	case providers.Google:
		cfg = providers.Config{
			ClientID:     get("GOOGLE_CLIENT_ID"),
			ClientSecret: get("GOOGLE_CLIENT_SECRET"),
		}
		// The mail tool is enabled by its SMTP host.
		if get(smtpHostVar) != "" {
			cfg.ExtraScopes = []string{providers.GmailSendScope}
		}
	case providers.Auth0:
		cfg = providers.Config{
			Domain:       get("AUTH0_DOMAIN"),
			ClientID:     get("AUTH0_CLIENT_ID"),
			ClientSecret: get("AUTH0_CLIENT_SECRET"),
			Audience:     get("AUTH0_AUDIENCE"),
		}
	case providers.Keycloak:
		cfg = providers.Config{
			BaseURL:      get("KEYCLOAK_URL"),
			Realm:        get("KEYCLOAK_REALM"),
			ClientID:     get("KEYCLOAK_CLIENT_ID"),
			ClientSecret: get("KEYCLOAK_CLIENT_SECRET"),
		}
	case providers.Custom:
		cfg = providers.Config{
			BaseURL:  get("CUSTOM_OAUTH_URL"),
			ClientID: get("CUSTOM_OAUTH_CLIENT_ID"),
		}
	default:
		return providers.Config{}, false
	}
	return cfg, cfg.Complete(name)
}
