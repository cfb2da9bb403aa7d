package config_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/mcp-auth-gateway/internal/config"
	"github.com/jrsteele09/mcp-auth-gateway/providers"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestProviders_ResolvedPerCall(t *testing.T) {
	env := map[string]string{}
	src := config.Providers{Getenv: envMap(env)}

	require.Empty(t, providers.Configured(src))

	env["GITHUB_CLIENT_ID"] = "gh-id"
	require.Equal(t, []providers.Name{providers.GitHub}, providers.Configured(src))

	env["KEYCLOAK_URL"] = "https://kc.example.com"
	env["KEYCLOAK_CLIENT_ID"] = "kc-id"
	require.Equal(t, []providers.Name{providers.GitHub}, providers.Configured(src), "keycloak needs a realm")

	env["KEYCLOAK_REALM"] = "mcp"
	require.Equal(t, []providers.Name{providers.GitHub, providers.Keycloak}, providers.Configured(src))

	delete(env, "GITHUB_CLIENT_ID")
	require.Equal(t, []providers.Name{providers.Keycloak}, providers.Configured(src))
}

func TestProviders_Fields(t *testing.T) {
	src := config.Providers{Getenv: envMap(map[string]string{
		"AUTH0_DOMAIN":           "tenant.auth0.com",
		"AUTH0_CLIENT_ID":        "a0",
		"AUTH0_CLIENT_SECRET":    "a0-secret",
		"AUTH0_AUDIENCE":         "https://api",
		"GOOGLE_CLIENT_ID":       "gg",
		"SMTP_HOST":              "smtp.example.com",
		"CUSTOM_OAUTH_URL":       "https://oauth.example.com",
		"CUSTOM_OAUTH_CLIENT_ID": "public",
	})}

	auth0, ok := src.ProviderConfig(providers.Auth0)
	require.True(t, ok)
	require.Equal(t, "tenant.auth0.com", auth0.Domain)
	require.Equal(t, "a0-secret", auth0.ClientSecret)
	require.Equal(t, "https://api", auth0.Audience)

	google, ok := src.ProviderConfig(providers.Google)
	require.True(t, ok)
	require.Equal(t, []string{providers.GmailSendScope}, google.ExtraScopes)

	custom, ok := src.ProviderConfig(providers.Custom)
	require.True(t, ok)
	require.Empty(t, custom.ClientSecret)

	_, ok = src.ProviderConfig(providers.GitHub)
	require.False(t, ok)
}

func TestProviders_GmailScopeFollowsMailTool(t *testing.T) {
	env := map[string]string{"GOOGLE_CLIENT_ID": "gg"}
	src := config.Providers{Getenv: envMap(env)}

	google, ok := src.ProviderConfig(providers.Google)
	require.True(t, ok)
	require.Empty(t, google.ExtraScopes, "mail tool disabled")

	env["SMTP_HOST"] = "smtp.example.com"
	google, ok = src.ProviderConfig(providers.Google)
	require.True(t, ok)
	require.Equal(t, []string{providers.GmailSendScope}, google.ExtraScopes)
}

func TestEnvVars_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("BASE_URL", "https://mcp.example.com/")
	c := config.New()

	require.Equal(t, ":8080", c.GetPort())
	require.Equal(t, "https://mcp.example.com", c.GetBaseURL())
	require.Equal(t, config.StoreMemory, c.GetSessionStore())
}

func TestEnvVars_BaseURLHasNoDefault(t *testing.T) {
	t.Setenv("BASE_URL", "")
	require.Empty(t, config.New().GetBaseURL())
}

func TestEnvVars_PortAlreadyPrefixed(t *testing.T) {
	t.Setenv("PORT", ":9000")
	require.Equal(t, ":9000", config.New().GetPort())
}

func TestGetDuration(t *testing.T) {
	t.Setenv("X_TIMEOUT", "15")
	require.Equal(t, 15*time.Second, config.GetDuration("X_TIMEOUT", time.Second))

	t.Setenv("X_TIMEOUT", "250ms")
	require.Equal(t, 250*time.Millisecond, config.GetDuration("X_TIMEOUT", time.Second))

	t.Setenv("X_TIMEOUT", "soon")
	require.Equal(t, time.Second, config.GetDuration("X_TIMEOUT", time.Second))
}

func TestTools_AllowedUsernames(t *testing.T) {
	t.Setenv("ALLOWED_USERNAMES", "alice, bob,,")
	require.Equal(t, []string{"alice", "bob"}, config.New().GetAllowedUsernames())
}
