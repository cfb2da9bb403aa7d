package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	gwerrors "github.com/jrsteele09/mcp-auth-gateway/internal/errors"
	"github.com/jrsteele09/mcp-auth-gateway/internal/utils"
	"github.com/jrsteele09/mcp-auth-gateway/pkce"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// DefaultTimeout bounds every upstream call when no client is supplied.
const DefaultTimeout = 10 * time.Second

const (
	userAgent        = "mcp-auth-gateway"
	maxUserInfoBytes = 1 << 20
	maxLoggedBody    = 256

	opTokenExchange = "token exchange"
	opUserInfo      = "userinfo"
	opIDToken       = "id_token verification"
)

var ErrUnknownProvider = gwerrors.ErrUnknownProvider

// Observer receives the outcome of each upstream call.
type Observer func(provider Name, op string, elapsed time.Duration, err error)

type oidcSettings struct {
	issuerURL string
	jwksURL   string
}

type normalizer func(p Profile) (*Identity, error)

// adapter is the single implementation behind every provider. Providers
// differ only in endpoints, scopes, authorize extras and normalization.
type adapter struct {
	name          Name
	oauth         *oauth2.Config
	userInfoURL   string
	authParams    []oauth2.AuthCodeOption
	normalize     normalizer
	oidc          *oidcSettings
	verifyIDToken bool
	httpClient    *http.Client
	observer      Observer
}

var (
	_ Adapter         = (*adapter)(nil)
	_ IDTokenVerifier = (*adapter)(nil)
)

func newAdapter(name Name, cfg Config, redirectURL string, endpoint oauth2.Endpoint, scopes []string, userInfoURL string, normalize normalizer, opts []Option) *adapter {
	if cfg.AuthURL != "" {
		endpoint.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}
	// Credentials always travel in the body; auto-detection would retry a
	// rejected exchange with the other style.
	endpoint.AuthStyle = oauth2.AuthStyleInParams

	a := &adapter{
		name: name,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     endpoint,
			RedirectURL:  redirectURL,
			Scopes:       append(scopes, cfg.ExtraScopes...),
		},
		userInfoURL:   firstNonEmpty(cfg.UserInfoURL, userInfoURL),
		normalize:     normalize,
		verifyIDToken: true,
		httpClient:    &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *adapter) Name() Name {
	return a.name
}

func (a *adapter) AuthorizeURL(state, challenge string) string {
	opts := append([]oauth2.AuthCodeOption{
		oauth2.SetAuthURLParam("code_challenge", challenge),
		oauth2.SetAuthURLParam("code_challenge_method", pkce.Method),
	}, a.authParams...)
	return a.oauth.AuthCodeURL(state, opts...)
}

func (a *adapter) ExchangeToken(ctx context.Context, code, verifier string) (tok *oauth2.Token, err error) {
	defer a.observe(opTokenExchange, time.Now(), &err)

	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)
	tok, err = a.oauth.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, a.classifyExchangeError(err)
	}
	if tok.AccessToken == "" {
		return nil, gwerrors.New(gwerrors.KindMissingToken, string(a.name), opTokenExchange, gwerrors.ErrMissingToken)
	}
	return tok, nil
}

func (a *adapter) FetchUserInfo(ctx context.Context, accessToken string) (profile Profile, err error) {
	defer a.observe(opUserInfo, time.Now(), &err)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.userInfoURL, nil)
	if err != nil {
		return nil, gwerrors.New(gwerrors.KindInternal, string(a.name), opUserInfo, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, gwerrors.New(gwerrors.KindConnectivityFailure, string(a.name), opUserInfo, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxUserInfoBytes))
	if err != nil {
		return nil, gwerrors.New(gwerrors.KindConnectivityFailure, string(a.name), opUserInfo, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Warn().
			Str("provider", string(a.name)).
			Int("status", resp.StatusCode).
			Str("body", truncate(body)).
			Msg("userinfo request rejected")
		e := gwerrors.New(gwerrors.KindUpstreamRejected, string(a.name), opUserInfo, gwerrors.ErrUpstreamStatus)
		e.Status = resp.StatusCode
		return nil, e
	}

	profile, err = decodeProfile(body)
	if err != nil {
		return nil, gwerrors.New(gwerrors.KindUpstreamRejected, string(a.name), opUserInfo, fmt.Errorf("%w: %w", gwerrors.ErrUpstreamResponse, err))
	}
	return profile, nil
}

func (a *adapter) NormalizeIdentity(token *oauth2.Token, profile Profile) (*Identity, error) {
	if profile == nil {
		return nil, gwerrors.New(gwerrors.KindUpstreamRejected, string(a.name), opUserInfo, gwerrors.ErrUpstreamResponse)
	}
	identity, err := a.normalize(profile)
	if err != nil {
		return nil, gwerrors.New(gwerrors.KindUpstreamRejected, string(a.name), opUserInfo, err)
	}
	identity.Provider = a.name
	if token != nil {
		identity.AccessToken = token.AccessToken
	}
	return identity, nil
}

// VerifyIDToken checks the id_token returned with the access token when the
// provider is an OIDC issuer. Providers without an id_token are skipped.
func (a *adapter) VerifyIDToken(ctx context.Context, token *oauth2.Token) (claims *IDClaims, err error) {
	if a.oidc == nil || !a.verifyIDToken || token == nil {
		return nil, nil
	}
	raw, _ := token.Extra("id_token").(string)
	if raw == "" {
		return nil, nil
	}
	defer a.observe(opIDToken, time.Now(), &err)

	ctx = oidc.ClientContext(ctx, a.httpClient)
	provider := (&oidc.ProviderConfig{
		IssuerURL:   a.oidc.issuerURL,
		AuthURL:     a.oauth.Endpoint.AuthURL,
		TokenURL:    a.oauth.Endpoint.TokenURL,
		UserInfoURL: a.userInfoURL,
		JWKSURL:     a.oidc.jwksURL,
	}).NewProvider(ctx)
	idToken, err := provider.Verifier(&oidc.Config{ClientID: a.oauth.ClientID}).Verify(ctx, raw)
	if err != nil {
		return nil, gwerrors.New(gwerrors.KindUpstreamRejected, string(a.name), opIDToken, fmt.Errorf("%w: %w", gwerrors.ErrInvalidIDToken, err))
	}
	claims = &IDClaims{}
	if err := idToken.Claims(claims); err != nil {
		return nil, gwerrors.New(gwerrors.KindUpstreamRejected, string(a.name), opIDToken, fmt.Errorf("%w: %w", gwerrors.ErrInvalidIDToken, err))
	}
	claims.Subject = idToken.Subject
	return claims, nil
}

func (a *adapter) classifyExchangeError(err error) error {
	name := string(a.name)

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		status := 0
		if retrieveErr.Response != nil {
			status = retrieveErr.Response.StatusCode
		}
		log.Warn().
			Str("provider", name).
			Int("status", status).
			Str("error_code", retrieveErr.ErrorCode).
			Str("body", truncate(retrieveErr.Body)).
			Msg("token exchange rejected")
		e := gwerrors.New(gwerrors.KindUpstreamRejected, name, opTokenExchange, gwerrors.ErrUpstreamStatus)
		e.Status = status
		return e
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return gwerrors.New(gwerrors.KindConnectivityFailure, name, opTokenExchange, err)
	}

	if strings.Contains(err.Error(), "missing access_token") {
		return gwerrors.New(gwerrors.KindMissingToken, name, opTokenExchange, gwerrors.ErrMissingToken)
	}

	return gwerrors.New(gwerrors.KindUpstreamRejected, name, opTokenExchange, fmt.Errorf("%w: %w", gwerrors.ErrUpstreamResponse, err))
}

func (a *adapter) observe(op string, start time.Time, err *error) {
	if a.observer != nil {
		a.observer(a.name, op, time.Since(start), *err)
	}
}

func truncate(body []byte) string {
	body = bytes.TrimSpace(body)
	if len(body) > maxLoggedBody {
		return string(body[:maxLoggedBody]) + "..."
	}
	return string(body)
}

// Profile is a decoded userinfo document.
type Profile map[string]any

func decodeProfile(body []byte) (Profile, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var p Profile
	if err := dec.Decode(&p); err != nil {
		return nil, err
	}
	if p == nil {
		return nil, errors.New("empty userinfo document")
	}
	return p, nil
}

// String returns the value at key as a string. Numbers are formatted.
func (p Profile) String(key string) string {
	switch v := p[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	case float64:
		return fmt.Sprintf("%v", v)
	}
	return ""
}

// Bool returns the value at key when it is a boolean.
func (p Profile) Bool(key string) *bool {
	switch v := p[key].(type) {
	case bool:
		return utils.Ptr(v)
	case string:
		if strings.EqualFold(v, "true") || strings.EqualFold(v, "false") {
			return utils.Ptr(strings.EqualFold(v, "true"))
		}
	}
	return nil
}

// Strings returns the string members of an array claim such as groups.
func (p Profile) Strings(key string) []string {
	return utils.ToStringSlice(p[key])
}

func emailLocalPart(email string) string {
	if i := strings.Index(email, "@"); i > 0 {
		return email[:i]
	}
	return ""
}
