package server

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/jrsteele09/mcp-auth-gateway/authstate"
	"github.com/jrsteele09/mcp-auth-gateway/clients"
	gwerrors "github.com/jrsteele09/mcp-auth-gateway/internal/errors"
	"github.com/jrsteele09/mcp-auth-gateway/internal/metrics"
	"github.com/jrsteele09/mcp-auth-gateway/oauthmodel"
	"github.com/jrsteele09/mcp-auth-gateway/pkce"
	"github.com/jrsteele09/mcp-auth-gateway/providers"
	"github.com/rs/zerolog/log"
)

const routerLabel = "router"

type providerOption struct {
	Name        string
	DisplayName string
	URL         string
}

// ProviderRouter handles GET /authorize. It never talks to a provider, it
// only decides which provider specific /authorize the browser goes to next.
func (s *Server) ProviderRouter() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := oauthmodel.ParseAuthorizationRequest(r.URL.Query()); err != nil {
			s.metrics.Authorize(routerLabel, metrics.OutcomeError)
			writeError(w, r, err)
			return
		}

		configured := providers.Configured(s.providers)
		switch len(configured) {
		case 0:
			s.metrics.Authorize(routerLabel, metrics.OutcomeError)
			writeError(w, r, gwerrors.ErrNoProviders)
		case 1:
			s.metrics.Authorize(routerLabel, metrics.OutcomeRedirect)
			http.Redirect(w, r, withRawQuery(providerAuthorizePath(string(configured[0])), r.URL.RawQuery), http.StatusFound)
		default:
			s.metrics.Authorize(routerLabel, metrics.OutcomeSelect)
			options := make([]providerOption, 0, len(configured))
			for _, name := range configured {
				options = append(options, providerOption{
					Name:        string(name),
					DisplayName: name.DisplayName(),
					URL:         withRawQuery(providerAuthorizePath(string(name)), r.URL.RawQuery),
				})
			}
			renderTemplate(w, "select_provider.html", map[string]any{
				"AppName":   s.config.GetAppName(),
				"Providers": options,
			})
		}
	}
}

// ProviderAuthorizeGet handles GET /{provider}/authorize. A client the
// browser already approved goes straight upstream, anything else gets the
// approval dialog.
func (s *Server) ProviderAuthorizeGet() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name, err := s.providerFromPath(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		req, err := oauthmodel.ParseAuthorizationRequest(r.URL.Query())
		if err != nil {
			s.metrics.Authorize(string(name), metrics.OutcomeError)
			writeError(w, r, err)
			return
		}
		client, ok := s.checkClient(w, r, req)
		if !ok {
			s.metrics.Authorize(string(name), metrics.OutcomeError)
			return
		}

		if s.approvals.IsApproved(r, req.ClientID) {
			s.redirectUpstream(w, r, name, *req)
			return
		}

		consent, consentCookie, err := s.approvals.NewConsent()
		if err != nil {
			writeError(w, r, err)
			return
		}
		dialogState, err := s.state.Encode(authstate.Payload{Request: *req, Provider: string(name), Consent: consent})
		if err != nil {
			writeError(w, r, err)
			return
		}
		http.SetCookie(w, consentCookie)
		s.metrics.Authorize(string(name), metrics.OutcomeDialog)
		renderTemplate(w, "approve.html", map[string]any{
			"AppName":      s.config.GetAppName(),
			"ProviderName": name.DisplayName(),
			"ClientName":   client.DisplayName(),
			"ClientID":     client.ID,
			"ClientURI":    client.URI,
			"RedirectURI":  req.RedirectURI,
			"Scopes":       req.Scopes(),
			"Action":       providerAuthorizePath(string(name)),
			"State":        dialogState,
			"CancelURL":    accessDeniedURL(*req),
		})
	}
}

// ProviderAuthorizePost handles the approval dialog submission.
func (s *Server) ProviderAuthorizePost() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name, err := s.providerFromPath(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if err := r.ParseForm(); err != nil {
			writeError(w, r, gwerrors.Wrapf(gwerrors.ErrInvalidRequest, "form: %v", err))
			return
		}
		payload, err := s.state.Decode(r.PostFormValue("state"))
		if err != nil {
			s.metrics.Authorize(string(name), metrics.OutcomeError)
			writeError(w, r, err)
			return
		}
		if payload.Provider != string(name) {
			s.metrics.Authorize(string(name), metrics.OutcomeError)
			writeError(w, r, fmt.Errorf("%w: issued for provider %q", gwerrors.ErrMalformedState, payload.Provider))
			return
		}
		if err := s.checkConsent(r, payload); err != nil {
			s.metrics.Authorize(string(name), metrics.OutcomeError)
			writeError(w, r, err)
			return
		}
		if _, ok := s.checkClient(w, r, &payload.Request); !ok {
			s.metrics.Authorize(string(name), metrics.OutcomeError)
			return
		}

		cookie, err := s.approvals.RecordApproval(r, payload.Request.ClientID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		http.SetCookie(w, s.approvals.ClearConsent())
		http.SetCookie(w, cookie)
		log.Info().
			Str("request_id", requestID(r)).
			Str("client_id", payload.Request.ClientID).
			Str("provider", string(name)).
			Msg("client approved")

		s.redirectUpstream(w, r, name, payload.Request)
	}
}

// checkConsent makes sure the dialog submission comes from the same browser,
// and the same site, that was shown the dialog.
func (s *Server) checkConsent(r *http.Request, payload *authstate.Payload) error {
	if r.Header.Get("Sec-Fetch-Site") == "cross-site" {
		return gwerrors.Wrapf(gwerrors.ErrForbidden, "cross-site consent submission")
	}
	if origin := r.Header.Get("Origin"); origin != "" && origin != originOf(s.baseURL(r)) {
		return gwerrors.Wrapf(gwerrors.ErrForbidden, "consent submitted from origin %q", origin)
	}
	if !s.approvals.CheckConsent(r, payload.Consent) {
		return gwerrors.Wrapf(gwerrors.ErrForbidden, "consent token does not match this browser")
	}
	return nil
}

// originOf reduces a base URL to scheme://host.
func originOf(base string) string {
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return base
	}
	return u.Scheme + "://" + u.Host
}

// redirectUpstream starts the provider round trip with a fresh PKCE pair.
func (s *Server) redirectUpstream(w http.ResponseWriter, r *http.Request, name providers.Name, req oauthmodel.AuthorizationRequest) {
	adapter, err := s.adapter(r, name)
	if err != nil {
		s.metrics.Authorize(string(name), metrics.OutcomeError)
		writeError(w, r, err)
		return
	}
	pair, err := pkce.New()
	if err != nil {
		writeError(w, r, err)
		return
	}
	state, err := s.state.Encode(authstate.Payload{Request: req, CodeVerifier: pair.Verifier, Provider: string(name)})
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.metrics.Authorize(string(name), metrics.OutcomeRedirect)
	http.Redirect(w, r, adapter.AuthorizeURL(state, pair.Challenge), http.StatusFound)
}

// providerFromPath resolves {provider} to a configured provider.
func (s *Server) providerFromPath(r *http.Request) (providers.Name, error) {
	raw := r.PathValue("provider")
	name, ok := providers.ParseName(raw)
	if !ok {
		return "", gwerrors.Wrapf(gwerrors.ErrUnknownProvider, "%q", raw)
	}
	if _, ok := s.providers.ProviderConfig(name); !ok {
		return "", gwerrors.Wrapf(gwerrors.ErrProviderDisabled, "%s", name)
	}
	return name, nil
}

func (s *Server) adapter(r *http.Request, name providers.Name) (providers.Adapter, error) {
	cfg, ok := s.providers.ProviderConfig(name)
	if !ok {
		return nil, gwerrors.Wrapf(gwerrors.ErrProviderDisabled, "%s", name)
	}
	return providers.New(name, cfg, s.baseURL(r)+providerCallbackPath(string(name)), s.provOpts...)
}

// checkClient validates req against the client registry. On failure the
// response has been written.
func (s *Server) checkClient(w http.ResponseWriter, r *http.Request, req *oauthmodel.AuthorizationRequest) (*clients.Client, bool) {
	client, err := s.clients.Get(req.ClientID)
	if err != nil {
		if errors.Is(err, clients.ErrClientNotFound) {
			badRequest(w, r, "Invalid request: unknown client", err)
		} else {
			writeError(w, r, err)
		}
		return nil, false
	}
	if err := req.ValidateForClient(client); err != nil {
		badRequest(w, r, "Invalid request: "+err.Error(), err)
		return nil, false
	}
	return client, true
}

// accessDeniedURL sends the user back to the client when they decline.
func accessDeniedURL(req oauthmodel.AuthorizationRequest) string {
	u, err := url.Parse(req.RedirectURI)
	if err != nil {
		return "/"
	}
	q := u.Query()
	q.Set("error", "access_denied")
	if req.State != "" {
		q.Set("state", req.State)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func withRawQuery(path, rawQuery string) string {
	if rawQuery == "" {
		return path
	}
	return path + "?" + rawQuery
}
