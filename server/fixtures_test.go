package server_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/mcp-auth-gateway/approval"
	"github.com/jrsteele09/mcp-auth-gateway/authstate"
	"github.com/jrsteele09/mcp-auth-gateway/clients"
	"github.com/jrsteele09/mcp-auth-gateway/internal/config"
	"github.com/jrsteele09/mcp-auth-gateway/internal/keys"
	"github.com/jrsteele09/mcp-auth-gateway/internal/metrics"
	"github.com/jrsteele09/mcp-auth-gateway/pkce"
	"github.com/jrsteele09/mcp-auth-gateway/providers"
	"github.com/jrsteele09/mcp-auth-gateway/server"
	"github.com/jrsteele09/mcp-auth-gateway/sessions"
	"github.com/jrsteele09/mcp-auth-gateway/tools"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/require"
)

const (
	testBaseURL     = "https://gateway.example.com"
	testClientID    = "client-1"
	testClientName  = "Test Desktop Client"
	testRedirectURI = "http://localhost:3000/callback"
	testClientState = "client-state-123"
)

// staticProviders is an injected provider configuration.
type staticProviders map[providers.Name]providers.Config

func (s staticProviders) ProviderConfig(name providers.Name) (providers.Config, bool) {
	cfg, ok := s[name]
	return cfg, ok && cfg.Complete(name)
}

// fakeUpstream plays the identity provider's token and userinfo endpoints.
type fakeUpstream struct {
	server *httptest.Server

	mu          sync.Mutex
	tokenCalls  int
	userCalls   int
	tokenForm   url.Values
	tokenStatus int
	userBody    string
}

func newFakeUpstream(t *testing.T) *fakeUpstream {
	t.Helper()
	f := &fakeUpstream{
		tokenStatus: http.StatusOK,
		userBody:    `{"login":"octocat","name":"The Octocat","email":"octo@example.com","id":1}`,
	}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		switch r.URL.Path {
		case "/token":
			f.tokenCalls++
			_ = r.ParseForm()
			f.tokenForm = r.PostForm
			w.Header().Set("Content-Type", "application/json")
			if f.tokenStatus != http.StatusOK {
				w.WriteHeader(f.tokenStatus)
				_, _ = io.WriteString(w, `{"error":"bad_verification_code"}`)
				return
			}
			_, _ = io.WriteString(w, `{"access_token":"gho_upstream","token_type":"bearer","scope":"read:user"}`)
		case "/user":
			f.userCalls++
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, f.userBody)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeUpstream) config() providers.Config {
	return providers.Config{
		ClientID:     "upstream-client",
		ClientSecret: "upstream-secret",
		AuthURL:      f.server.URL + "/authorize",
		TokenURL:     f.server.URL + "/token",
		UserInfoURL:  f.server.URL + "/user",
	}
}

func (f *fakeUpstream) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tokenCalls, f.userCalls
}

type fakeWeb struct{}

func (fakeWeb) Search(context.Context, string, int) ([]tools.SearchResult, error) {
	return []tools.SearchResult{{Title: "Go", URL: "https://go.dev"}}, nil
}

type testFixture struct {
	server    *server.Server
	upstream  *fakeUpstream
	clients   *clients.InMemoryRepo
	pair      pkce.Pair
	toolCalls map[string][]bool
	mu        sync.Mutex
}

func setupTestFixture(t *testing.T, names ...providers.Name) *testFixture {
	t.Helper()
	t.Setenv("BASE_URL", testBaseURL)
	t.Setenv("ENV", "TEST")

	f := &testFixture{upstream: newFakeUpstream(t), clients: clients.NewInMemoryRepo(), toolCalls: map[string][]bool{}}

	src := staticProviders{}
	for _, n := range names {
		src[n] = f.upstream.config()
	}

	require.NoError(t, f.clients.Upsert(&clients.Client{
		ID:           testClientID,
		Name:         testClientName,
		Type:         clients.ClientTypePublic,
		RedirectURIs: []string{testRedirectURI},
	}))

	keySet, err := keys.FromSecret([]byte("a-test-cookie-secret-that-is-long-enough"))
	require.NoError(t, err)
	approvals, err := approval.New(keySet.ApprovalHash, keySet.ApprovalBlock)
	require.NoError(t, err)
	codec, err := authstate.NewSignedCodec(keySet.State, authstate.DefaultTTL)
	require.NoError(t, err)

	mcp := mcpserver.NewMCPServer("test", "1.0.0", mcpserver.WithToolCapabilities(false))
	tools.New(tools.NewAllowList(), tools.WithWebSearch(fakeWeb{}), tools.WithCallObserver(func(tool string, ok bool) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.toolCalls[tool] = append(f.toolCalls[tool], ok)
	})).Register(mcp)

	f.server, err = server.New(config.New(), server.Deps{
		Clients:         f.clients,
		Approvals:       approvals,
		State:           codec,
		Issuer:          sessions.NewIssuer(sessions.NewMemoryRepo(), time.Minute, time.Hour),
		Providers:       src,
		ProviderOptions: []providers.Option{providers.WithHTTPClient(f.upstream.server.Client())},
		MCP:             mcp,
		Metrics:         metrics.New(),
	})
	require.NoError(t, err)

	f.pair, err = pkce.New()
	require.NoError(t, err)
	return f
}

// authorizeQuery is a complete downstream authorization request.
func (f *testFixture) authorizeQuery() string {
	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", testClientID)
	q.Set("redirect_uri", testRedirectURI)
	q.Set("scope", "read write")
	q.Set("state", testClientState)
	q.Set("code_challenge", f.pair.Challenge)
	q.Set("code_challenge_method", "S256")
	return q.Encode()
}

func (f *testFixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func (f *testFixture) get(target string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return f.do(req)
}

func (f *testFixture) postForm(target string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	return f.do(formRequest(target, form, cookies...))
}

func formRequest(target string, form url.Values, cookies ...*http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req
}

func responseCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// showDialog renders the approval dialog and returns its state field and the
// consent cookie the browser was given with it.
func (f *testFixture) showDialog(t *testing.T, provider providers.Name) (string, *http.Cookie) {
	t.Helper()
	rec := f.get("/" + string(provider) + "/authorize?" + f.authorizeQuery())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	m := hiddenState.FindStringSubmatch(rec.Body.String())
	require.Len(t, m, 2, "dialog has no state field")
	consent := responseCookie(rec, approval.ConsentCookieName)
	require.NotNil(t, consent, "consent cookie not set")
	return m[1], consent
}

var hiddenState = regexp.MustCompile(`name="state" value="([^"]+)"`)

// approve renders the dialog, submits it from the same browser and returns
// the upstream redirect and the approval cookie.
func (f *testFixture) approve(t *testing.T, provider providers.Name) (*url.URL, *http.Cookie) {
	t.Helper()
	state, consent := f.showDialog(t, provider)

	rec := f.postForm("/"+string(provider)+"/authorize", url.Values{"state": {state}}, consent)
	require.Equal(t, http.StatusFound, rec.Code, rec.Body.String())
	upstream, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)

	cookie := responseCookie(rec, approval.CookieName)
	require.NotNil(t, cookie, "approval cookie not set")
	return upstream, cookie
}
