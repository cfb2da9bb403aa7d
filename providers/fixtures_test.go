package providers_test

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/mcp-auth-gateway/providers"
	"github.com/stretchr/testify/require"
)

const (
	testClientID     = "gateway-client"
	testClientSecret = "gateway-secret"
	testCode         = "upstream-code"
	testVerifier     = "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	testAccessToken  = "upstream-access-token"
	testRedirectURL  = "https://gateway.example.com/github/callback"
	testKeyID        = "test-key"
)

// fakeUpstream is a provider with token, userinfo and JWKS endpoints.
type fakeUpstream struct {
	t      *testing.T
	server *httptest.Server

	mu            sync.Mutex
	tokenCalls    int
	userCalls     int
	lastTokenForm url.Values
	lastUserAuth  string
	lastUserAgent string

	tokenStatus int
	tokenBody   string
	tokenDelay  time.Duration
	userStatus  int
	userBody    string

	signingKey *rsa.PrivateKey
}

func newFakeUpstream(t *testing.T) *fakeUpstream {
	t.Helper()
	f := &fakeUpstream{
		t:           t,
		tokenStatus: http.StatusOK,
		tokenBody:   `{"access_token":"` + testAccessToken + `","token_type":"bearer"}`,
		userStatus:  http.StatusOK,
		userBody:    `{"login":"octocat","name":"The Octocat","email":"octo@example.com","id":583231}`,
	}
	f.server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeUpstream) serve(w http.ResponseWriter, r *http.Request) {
	switch {
	case strings.HasSuffix(r.URL.Path, "/token"):
		require.NoError(f.t, r.ParseForm())
		f.mu.Lock()
		f.tokenCalls++
		f.lastTokenForm = r.PostForm
		status, body, delay := f.tokenStatus, f.tokenBody, f.tokenDelay
		f.mu.Unlock()
		if delay > 0 {
			time.Sleep(delay)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	case strings.HasSuffix(r.URL.Path, "/userinfo"):
		f.mu.Lock()
		f.userCalls++
		f.lastUserAuth = r.Header.Get("Authorization")
		f.lastUserAgent = r.Header.Get("User-Agent")
		status, body := f.userStatus, f.userBody
		f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	case strings.HasSuffix(r.URL.Path, "/certs"):
		f.serveJWKS(w)
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeUpstream) serveJWKS(w http.ResponseWriter) {
	pub := f.key().PublicKey
	jwks := map[string]any{
		"keys": []map[string]string{{
			"kty": "RSA",
			"kid": testKeyID,
			"alg": "RS256",
			"use": "sig",
			"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		}},
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(jwks)
}

func (f *fakeUpstream) key() *rsa.PrivateKey {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.signingKey == nil {
		k, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(f.t, err)
		f.signingKey = k
	}
	return f.signingKey
}

func (f *fakeUpstream) signIDToken(claims jwt.MapClaims) string {
	f.t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = testKeyID
	signed, err := token.SignedString(f.key())
	require.NoError(f.t, err)
	return signed
}

func (f *fakeUpstream) setToken(status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokenStatus, f.tokenBody = status, body
}

func (f *fakeUpstream) setUser(status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.userStatus, f.userBody = status, body
}

func (f *fakeUpstream) calls() (token, user int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tokenCalls, f.userCalls
}

func (f *fakeUpstream) tokenForm() url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastTokenForm
}

// overrides points a provider config at the fake upstream.
func (f *fakeUpstream) overrides(cfg providers.Config) providers.Config {
	cfg.AuthURL = f.server.URL + "/authorize"
	cfg.TokenURL = f.server.URL + "/token"
	cfg.UserInfoURL = f.server.URL + "/userinfo"
	return cfg
}

func (f *fakeUpstream) userHeaders() (authorization, userAgent string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastUserAuth, f.lastUserAgent
}
