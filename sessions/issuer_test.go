package sessions_test

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/jrsteele09/mcp-auth-gateway/clients"
	gwerrors "github.com/jrsteele09/mcp-auth-gateway/internal/errors"
	"github.com/jrsteele09/mcp-auth-gateway/oauthmodel"
	"github.com/jrsteele09/mcp-auth-gateway/pkce"
	"github.com/jrsteele09/mcp-auth-gateway/providers"
	"github.com/jrsteele09/mcp-auth-gateway/sessions"
	"github.com/stretchr/testify/require"
)

const (
	testClientID    = "test-client-1"
	testRedirectURI = "http://localhost:3000/callback"
	testState       = "random-state-value"
)

type testFixture struct {
	issuer   *sessions.Issuer
	client   *clients.Client
	pair     pkce.Pair
	identity *providers.Identity
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	pair, err := pkce.New()
	require.NoError(t, err)
	return &testFixture{
		issuer:   sessions.NewIssuer(sessions.NewMemoryRepo(), time.Minute, time.Hour),
		client:   &clients.Client{ID: testClientID, Type: clients.ClientTypePublic, RedirectURIs: []string{testRedirectURI}},
		pair:     pair,
		identity: &providers.Identity{Provider: providers.GitHub, Login: "octocat", Name: "Octo", AccessToken: "gho_x"},
	}
}

func (f *testFixture) request() oauthmodel.AuthorizationRequest {
	return oauthmodel.AuthorizationRequest{
		ResponseType:        oauthmodel.CodeResponseType,
		ClientID:            testClientID,
		RedirectURI:         testRedirectURI,
		Scope:               "read write",
		State:               testState,
		CodeChallenge:       f.pair.Challenge,
		CodeChallengeMethod: oauthmodel.CodeMethodTypeS256,
	}
}

// authorize completes an authorization and returns the issued code.
func (f *testFixture) authorize(t *testing.T) string {
	t.Helper()
	redirect, err := f.issuer.CompleteAuthorization(context.Background(), f.identity, f.request(), "read write")
	require.NoError(t, err)

	u, err := url.Parse(redirect)
	require.NoError(t, err)
	require.Equal(t, "localhost:3000", u.Host)
	require.Equal(t, "/callback", u.Path)
	require.Equal(t, testState, u.Query().Get("state"))
	code := u.Query().Get("code")
	require.NotEmpty(t, code)
	return code
}

func (f *testFixture) tokenRequest(code string) oauthmodel.TokenRequest {
	return oauthmodel.TokenRequest{
		GrantType:    oauthmodel.AuthorizationCodeGrant,
		ClientID:     testClientID,
		Code:         code,
		RedirectURI:  testRedirectURI,
		CodeVerifier: f.pair.Verifier,
	}
}

func TestExchange_Success(t *testing.T) {
	f := setupTestFixture(t)
	code := f.authorize(t)

	resp, err := f.issuer.Exchange(context.Background(), f.tokenRequest(code), f.client)
	require.NoError(t, err)
	require.NotEmpty(t, resp.AccessToken)
	require.Equal(t, "Bearer", resp.TokenType)
	require.Equal(t, 3600, resp.ExpiresIn)
	require.Equal(t, "read write", resp.Scope)

	grant, err := f.issuer.Authenticate(context.Background(), resp.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "octocat", grant.Identity.Login)
	require.Equal(t, providers.GitHub, grant.Identity.Provider)
	require.Equal(t, testClientID, grant.ClientID)
}

func TestExchange_CodeIsSingleUse(t *testing.T) {
	f := setupTestFixture(t)
	code := f.authorize(t)

	_, err := f.issuer.Exchange(context.Background(), f.tokenRequest(code), f.client)
	require.NoError(t, err)

	_, err = f.issuer.Exchange(context.Background(), f.tokenRequest(code), f.client)
	require.ErrorIs(t, err, gwerrors.ErrInvalidGrant)
}

func TestExchange_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(tr *oauthmodel.TokenRequest, c *clients.Client)
		want   error
	}{
		{"wrong verifier", func(tr *oauthmodel.TokenRequest, _ *clients.Client) { tr.CodeVerifier = "not-the-verifier" }, gwerrors.ErrInvalidGrant},
		{"missing verifier", func(tr *oauthmodel.TokenRequest, _ *clients.Client) { tr.CodeVerifier = "" }, gwerrors.ErrInvalidGrant},
		{"other client", func(_ *oauthmodel.TokenRequest, c *clients.Client) { c.ID = "someone-else" }, gwerrors.ErrInvalidGrant},
		{"redirect mismatch", func(tr *oauthmodel.TokenRequest, _ *clients.Client) { tr.RedirectURI = "http://localhost:3000/other" }, gwerrors.ErrInvalidGrant},
		{"unknown code", func(tr *oauthmodel.TokenRequest, _ *clients.Client) { tr.Code = "made-up" }, gwerrors.ErrInvalidGrant},
		{"grant type", func(tr *oauthmodel.TokenRequest, _ *clients.Client) { tr.GrantType = "client_credentials" }, gwerrors.ErrUnsupported},
		{"no code", func(tr *oauthmodel.TokenRequest, _ *clients.Client) { tr.Code = "" }, gwerrors.ErrInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupTestFixture(t)
			code := f.authorize(t)
			tr := f.tokenRequest(code)
			client := *f.client
			tt.mutate(&tr, &client)

			_, err := f.issuer.Exchange(context.Background(), tr, &client)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCompleteAuthorization_NoClientState(t *testing.T) {
	f := setupTestFixture(t)
	req := f.request()
	req.State = ""

	redirect, err := f.issuer.CompleteAuthorization(context.Background(), f.identity, req, "")
	require.NoError(t, err)
	u, err := url.Parse(redirect)
	require.NoError(t, err)
	_, hasState := u.Query()["state"]
	require.False(t, hasState)
}

func TestCompleteAuthorization_PreservesRedirectQuery(t *testing.T) {
	f := setupTestFixture(t)
	req := f.request()
	req.RedirectURI = "http://localhost:3000/callback?tenant=a"

	redirect, err := f.issuer.CompleteAuthorization(context.Background(), f.identity, req, "")
	require.NoError(t, err)
	u, err := url.Parse(redirect)
	require.NoError(t, err)
	require.Equal(t, "a", u.Query().Get("tenant"))
	require.NotEmpty(t, u.Query().Get("code"))
}

func TestCompleteAuthorization_RequiresClientID(t *testing.T) {
	f := setupTestFixture(t)
	req := f.request()
	req.ClientID = ""

	_, err := f.issuer.CompleteAuthorization(context.Background(), f.identity, req, "")
	require.ErrorIs(t, err, gwerrors.ErrMissingClientID)
}

func TestAuthenticate_UnknownAndRevoked(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.issuer.Authenticate(context.Background(), "nope")
	require.ErrorIs(t, err, gwerrors.ErrInvalidToken)

	code := f.authorize(t)
	resp, err := f.issuer.Exchange(context.Background(), f.tokenRequest(code), f.client)
	require.NoError(t, err)

	require.NoError(t, f.issuer.Revoke(context.Background(), resp.AccessToken))
	_, err = f.issuer.Authenticate(context.Background(), resp.AccessToken)
	require.ErrorIs(t, err, gwerrors.ErrInvalidToken)
}

func TestExchange_ConfidentialClientWithoutPKCE(t *testing.T) {
	f := setupTestFixture(t)
	req := f.request()
	req.CodeChallenge = ""
	req.CodeChallengeMethod = ""

	redirect, err := f.issuer.CompleteAuthorization(context.Background(), f.identity, req, "read")
	require.NoError(t, err)
	u, err := url.Parse(redirect)
	require.NoError(t, err)

	tr := f.tokenRequest(u.Query().Get("code"))
	tr.CodeVerifier = ""
	resp, err := f.issuer.Exchange(context.Background(), tr, f.client)
	require.NoError(t, err)
	require.Equal(t, "read", resp.Scope)
}

func TestRedact(t *testing.T) {
	require.Equal(t, "[redacted]", sessions.Redact(""))
	require.Equal(t, "[redacted]", sessions.Redact("short"))
	require.Equal(t, "abcdef...", sessions.Redact("abcdefghijklmnop"))
}
