package approval_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jrsteele09/mcp-auth-gateway/approval"
	"github.com/stretchr/testify/require"
)

var (
	hashKey  = []byte("0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef")
	blockKey = []byte("abcdef0123456789abcdef0123456789")
)

func newStore(t *testing.T, key []byte) *approval.Store {
	t.Helper()
	s, err := approval.New(key, blockKey, approval.WithSecure(false))
	require.NoError(t, err)
	return s
}

func requestWith(cookies ...*http.Cookie) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/github/authorize", nil)
	for _, c := range cookies {
		r.AddCookie(c)
	}
	return r
}

func TestIsApproved_NoCookie(t *testing.T) {
	s := newStore(t, hashKey)
	require.False(t, s.IsApproved(requestWith(), "client-a"))
}

func TestRecordApproval_ApprovesOnlyThatClient(t *testing.T) {
	s := newStore(t, hashKey)

	cookie, err := s.RecordApproval(requestWith(), "client-a")
	require.NoError(t, err)
	require.Equal(t, approval.CookieName, cookie.Name)
	require.True(t, cookie.HttpOnly)
	require.Equal(t, approval.DefaultMaxAge, cookie.MaxAge)

	r := requestWith(cookie)
	require.True(t, s.IsApproved(r, "client-a"))
	require.False(t, s.IsApproved(r, "client-b"))
	require.False(t, s.IsApproved(r, ""))
}

func TestRecordApproval_MergesExisting(t *testing.T) {
	s := newStore(t, hashKey)

	first, err := s.RecordApproval(requestWith(), "client-a")
	require.NoError(t, err)
	second, err := s.RecordApproval(requestWith(first), "client-b")
	require.NoError(t, err)

	r := requestWith(second)
	require.True(t, s.IsApproved(r, "client-a"))
	require.True(t, s.IsApproved(r, "client-b"))
}

func TestIsApproved_TamperedCookie(t *testing.T) {
	s := newStore(t, hashKey)

	cookie, err := s.RecordApproval(requestWith(), "client-a")
	require.NoError(t, err)

	tampered := *cookie
	last := tampered.Value[len(tampered.Value)-1]
	replacement := "A"
	if last == 'A' {
		replacement = "B"
	}
	tampered.Value = tampered.Value[:len(tampered.Value)-1] + replacement
	require.False(t, s.IsApproved(requestWith(&tampered), "client-a"))

	garbage := &http.Cookie{Name: approval.CookieName, Value: strings.Repeat("x", 40)}
	require.False(t, s.IsApproved(requestWith(garbage), "client-a"))
}

func TestIsApproved_DifferentSecret(t *testing.T) {
	issuer := newStore(t, hashKey)
	other := newStore(t, []byte(strings.Repeat("z", 64)))

	cookie, err := issuer.RecordApproval(requestWith(), "client-a")
	require.NoError(t, err)
	require.False(t, other.IsApproved(requestWith(cookie), "client-a"))
}

func TestNew_ShortKey(t *testing.T) {
	_, err := approval.New([]byte("short"), nil)
	require.Error(t, err)
}

func TestConsent_BoundToIssuingBrowser(t *testing.T) {
	s := newStore(t, hashKey)

	token, cookie, err := s.NewConsent()
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.True(t, cookie.HttpOnly)
	require.Equal(t, http.SameSiteStrictMode, cookie.SameSite)

	require.True(t, s.CheckConsent(requestWith(cookie), token))
	require.False(t, s.CheckConsent(requestWith(), token), "no cookie")
	require.False(t, s.CheckConsent(requestWith(cookie), ""), "no token")

	other, otherCookie, err := s.NewConsent()
	require.NoError(t, err)
	require.NotEqual(t, token, other)
	require.False(t, s.CheckConsent(requestWith(otherCookie), token), "another browser's cookie")

	require.Equal(t, -1, s.ClearConsent().MaxAge)
}
