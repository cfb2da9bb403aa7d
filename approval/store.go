// Package approval remembers, in a signed browser cookie, which downstream
// clients the user has already approved so the consent dialog is shown once
// per client.
package approval

import (
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"net/http"
	"slices"

	"github.com/gorilla/securecookie"
)

const (
	// CookieName is the name of the approval cookie.
	CookieName = "mcp-approved-clients"
	// DefaultMaxAge is 30 days.
	DefaultMaxAge = 30 * 24 * 60 * 60
	// ConsentCookieName binds a consent dialog to the browser it was shown to.
	ConsentCookieName = "mcp-consent"
	// ConsentMaxAge is how long the dialog can stay open, in seconds.
	ConsentMaxAge = 10 * 60
	// MinHashKeyLength is the shortest accepted MAC key.
	MinHashKeyLength = 32

	// maxClients keeps the cookie under the browser size limit.
	maxClients = 50

	consentTokenBytes = 32
)

type approvedClients struct {
	Clients []string `json:"clients"`
}

// Store reads and writes the approval cookie. The zero value is not usable.
type Store struct {
	codec  *securecookie.SecureCookie
	name   string
	maxAge int
	secure bool
}

type Option func(*Store)

func WithCookieName(name string) Option {
	return func(s *Store) { s.name = name }
}

func WithMaxAge(seconds int) Option {
	return func(s *Store) { s.maxAge = seconds }
}

// WithSecure sets the Secure attribute on issued cookies.
func WithSecure(secure bool) Option {
	return func(s *Store) { s.secure = secure }
}

// New creates a Store. blockKey may be nil, in which case the cookie is signed
// but not encrypted.
func New(hashKey, blockKey []byte, opts ...Option) (*Store, error) {
	if len(hashKey) < MinHashKeyLength {
		return nil, fmt.Errorf("[approval New] hash key must be at least %d bytes", MinHashKeyLength)
	}
	s := &Store{name: CookieName, maxAge: DefaultMaxAge, secure: true}
	for _, opt := range opts {
		opt(s)
	}
	s.codec = securecookie.New(hashKey, blockKey).MaxAge(s.maxAge)
	s.codec.SetSerializer(securecookie.JSONEncoder{})
	return s, nil
}

// IsApproved reports whether the request carries a valid approval for clientID.
// A missing, expired, tampered or undecodable cookie means not approved.
func (s *Store) IsApproved(r *http.Request, clientID string) bool {
	if clientID == "" {
		return false
	}
	return slices.Contains(s.approved(r), clientID)
}

// RecordApproval returns a cookie approving clientID in addition to whatever
// the request's valid cookie already approves. The caller sets it on the response.
func (s *Store) RecordApproval(r *http.Request, clientID string) (*http.Cookie, error) {
	if clientID == "" {
		return nil, fmt.Errorf("[approval RecordApproval] empty client id")
	}
	list := slices.DeleteFunc(s.approved(r), func(id string) bool { return id == clientID })
	list = append(list, clientID)
	if len(list) > maxClients {
		list = list[len(list)-maxClients:]
	}

	encoded, err := s.codec.Encode(s.name, approvedClients{Clients: list})
	if err != nil {
		return nil, fmt.Errorf("[approval RecordApproval] failed to encode cookie: %w", err)
	}
	return &http.Cookie{
		Name:     s.name,
		Value:    encoded,
		Path:     "/",
		MaxAge:   s.maxAge,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	}, nil
}

func (s *Store) approved(r *http.Request) []string {
	c, err := r.Cookie(s.name)
	if err != nil || c.Value == "" {
		return nil
	}
	var v approvedClients
	if err := s.codec.Decode(s.name, c.Value, &v); err != nil {
		return nil
	}
	return v.Clients
}

// NewConsent returns a random token for a consent dialog and the cookie that
// must be set alongside it. The token is embedded in the dialog's form and
// CheckConsent later requires both to match.
func (s *Store) NewConsent() (string, *http.Cookie, error) {
	raw := securecookie.GenerateRandomKey(consentTokenBytes)
	if raw == nil {
		return "", nil, fmt.Errorf("[approval NewConsent] failed to generate token")
	}
	token := base64.RawURLEncoding.EncodeToString(raw)
	return token, &http.Cookie{
		Name:     ConsentCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   ConsentMaxAge,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteStrictMode,
	}, nil
}

// CheckConsent reports whether the request carries the consent cookie issued
// together with token.
func (s *Store) CheckConsent(r *http.Request, token string) bool {
	if token == "" {
		return false
	}
	c, err := r.Cookie(ConsentCookieName)
	if err != nil || c.Value == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(c.Value), []byte(token)) == 1
}

// ClearConsent expires the consent cookie once the dialog was submitted.
func (s *Store) ClearConsent() *http.Cookie {
	return &http.Cookie{
		Name:     ConsentCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteStrictMode,
	}
}
