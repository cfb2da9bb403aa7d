package server

import (
	"errors"
	"fmt"
	"net/http"

	gwerrors "github.com/jrsteele09/mcp-auth-gateway/internal/errors"
	"github.com/jrsteele09/mcp-auth-gateway/providers"
	"github.com/rs/zerolog/log"
)

// ProviderCallback handles GET /{provider}/callback. The path alone decides
// which provider answered.
func (s *Server) ProviderCallback() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name, err := s.providerFromPath(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		identity, redirect, err := s.completeCallback(w, r, name)
		s.metrics.Callback(string(name), err)
		if err != nil {
			if !errors.Is(err, errResponseWritten) {
				writeError(w, r, err)
			}
			return
		}

		log.Info().
			Str("request_id", requestID(r)).
			Str("provider", string(name)).
			Str("login", identity.Login).
			Msg("upstream login complete")
		http.Redirect(w, r, redirect, http.StatusFound)
	}
}

var errResponseWritten = errors.New("response written")

func (s *Server) completeCallback(w http.ResponseWriter, r *http.Request, name providers.Name) (*providers.Identity, string, error) {
	q := r.URL.Query()

	payload, err := s.state.Decode(q.Get("state"))
	if err != nil {
		return nil, "", err
	}
	if payload.Provider != "" && payload.Provider != string(name) {
		return nil, "", fmt.Errorf("%w: issued for provider %q", gwerrors.ErrMalformedState, payload.Provider)
	}

	if upstreamErr := q.Get("error"); upstreamErr != "" {
		log.Warn().
			Str("provider", string(name)).
			Str("error", upstreamErr).
			Str("error_description", q.Get("error_description")).
			Msg("provider returned an error")
		return nil, "", gwerrors.New(gwerrors.KindUpstreamRejected, string(name), "authorize", gwerrors.ErrUpstreamDenied)
	}

	// The request came back through the browser, check it again.
	if _, ok := s.checkClient(w, r, &payload.Request); !ok {
		return nil, "", errResponseWritten
	}

	adapter, err := s.adapter(r, name)
	if err != nil {
		return nil, "", err
	}
	identity, err := providers.Authenticate(r.Context(), adapter, q.Get("code"), payload.CodeVerifier)
	if err != nil {
		return nil, "", err
	}

	redirect, err := s.issuer.CompleteAuthorization(r.Context(), identity, payload.Request, payload.Request.Scope)
	if err != nil {
		return nil, "", err
	}
	return identity, redirect, nil
}
