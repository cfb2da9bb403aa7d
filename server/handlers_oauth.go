package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"slices"

	"github.com/jrsteele09/mcp-auth-gateway/clients"
	gwerrors "github.com/jrsteele09/mcp-auth-gateway/internal/errors"
	"github.com/jrsteele09/mcp-auth-gateway/oauthmodel"
	"github.com/rs/zerolog/log"
)

const maxRegistrationBytes = 64 << 10

// Token exchanges a gateway authorization code for an access token.
func (s *Server) Token() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			writeJSONError(w, "invalid_request", "Failed to parse form data", http.StatusBadRequest)
			return
		}
		tokenReq := oauthmodel.ParseTokenRequest(r.PostForm)
		if id, secret, ok := r.BasicAuth(); ok {
			tokenReq.ClientID, tokenReq.ClientSecret = id, secret
		}

		client, err := s.authenticateClient(tokenReq.ClientID, tokenReq.ClientSecret)
		if err != nil {
			s.metrics.TokenIssued(err)
			log.Warn().Err(err).Str("client_id", tokenReq.ClientID).Msg("token request client authentication failed")
			writeJSONError(w, "invalid_client", "Client authentication failed", http.StatusUnauthorized)
			return
		}

		tokenResponse, err := s.issuer.Exchange(r.Context(), tokenReq, client)
		s.metrics.TokenIssued(err)
		if err != nil {
			log.Warn().Err(err).Str("client_id", client.ID).Msg("token request rejected")
			code, status := tokenErrorCode(err)
			writeJSONError(w, code, tokenErrorDescription(err), status)
			return
		}

		writeJSON(w, http.StatusOK, tokenResponse)
	}
}

func (s *Server) authenticateClient(clientID, secret string) (*clients.Client, error) {
	if clientID == "" {
		return nil, gwerrors.ErrMissingClientID
	}
	client, err := s.clients.Get(clientID)
	if err != nil {
		return nil, gwerrors.Wrapf(gwerrors.ErrInvalidClient, "%s", clientID)
	}
	if !client.IsPublic() && !client.CheckSecret(secret) {
		return nil, gwerrors.ErrInvalidClientSecret
	}
	return client, nil
}

func tokenErrorCode(err error) (string, int) {
	switch {
	case errors.Is(err, gwerrors.ErrUnsupported):
		return "unsupported_grant_type", http.StatusBadRequest
	case errors.Is(err, gwerrors.ErrInvalidGrant):
		return "invalid_grant", http.StatusBadRequest
	case errors.Is(err, gwerrors.ErrInvalidRequest):
		return "invalid_request", http.StatusBadRequest
	}
	return "server_error", http.StatusInternalServerError
}

func tokenErrorDescription(err error) string {
	switch {
	case errors.Is(err, gwerrors.ErrUnsupported):
		return "Only authorization_code is supported"
	case errors.Is(err, gwerrors.ErrInvalidGrant):
		return "The authorization code is invalid, expired or was issued to another client"
	case errors.Is(err, gwerrors.ErrInvalidRequest):
		return "Missing code"
	}
	return "Internal server error"
}

// Register implements RFC 7591 dynamic client registration.
func (s *Server) Register() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req clients.RegistrationRequest
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRegistrationBytes))
		if err := dec.Decode(&req); err != nil {
			writeJSONError(w, "invalid_client_metadata", "Request body must be client metadata JSON", http.StatusBadRequest)
			return
		}

		resp, err := clients.Register(s.clients, req)
		if err != nil {
			if errors.Is(err, clients.ErrInvalidMetadata) {
				code := "invalid_client_metadata"
				if slices.ContainsFunc(req.RedirectURIs, func(uri string) bool { return clients.ValidateRedirectURI(uri) != nil }) {
					code = "invalid_redirect_uri"
				}
				writeJSONError(w, code, err.Error(), http.StatusBadRequest)
				return
			}
			log.Err(err).Msg("client registration failed")
			writeJSONError(w, "server_error", "Registration failed", http.StatusInternalServerError)
			return
		}

		log.Info().Str("client_id", resp.ClientID).Str("client_name", resp.ClientName).Msg("client registered")
		writeJSON(w, http.StatusCreated, resp)
	}
}

// Revoke implements RFC 7009 for gateway access tokens.
func (s *Server) Revoke() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			writeJSONError(w, "invalid_request", "Failed to parse form data", http.StatusBadRequest)
			return
		}
		token := r.PostFormValue("token")
		if token == "" {
			writeJSONError(w, "invalid_request", "token parameter is required", http.StatusBadRequest)
			return
		}
		if err := s.issuer.Revoke(r.Context(), token); err != nil {
			log.Err(err).Msg("token revocation failed")
			writeJSONError(w, "server_error", "Revocation failed", http.StatusInternalServerError)
			return
		}
		// Unknown tokens are not an error (RFC 7009 section 2.2).
		w.WriteHeader(http.StatusOK)
	}
}

// AuthorizationServerMetadata serves RFC 8414 metadata.
func (s *Server) AuthorizationServerMetadata() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		baseURL := s.baseURL(r)
		w.Header().Set("Cache-Control", "public, max-age=3600")
		writeJSON(w, http.StatusOK, map[string]any{
			"issuer":                                baseURL,
			"authorization_endpoint":                baseURL + RouteAuthorize,
			"token_endpoint":                        baseURL + RouteToken,
			"registration_endpoint":                 baseURL + RouteRegister,
			"revocation_endpoint":                   baseURL + RouteRevoke,
			"response_types_supported":              []string{string(oauthmodel.CodeResponseType)},
			"response_modes_supported":              []string{"query"},
			"grant_types_supported":                 []string{string(oauthmodel.AuthorizationCodeGrant)},
			"token_endpoint_auth_methods_supported": []string{clients.AuthMethodNone, clients.AuthMethodClientSecretPost, clients.AuthMethodClientSecretBasic},
			"code_challenge_methods_supported":      []string{string(oauthmodel.CodeMethodTypeS256)},
			"scopes_supported":                      []string{"read", "write"},
		})
	}
}

// ProtectedResourceMetadata serves RFC 9728 metadata for the tool endpoint.
func (s *Server) ProtectedResourceMetadata() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		baseURL := s.baseURL(r)
		w.Header().Set("Cache-Control", "public, max-age=3600")
		writeJSON(w, http.StatusOK, map[string]any{
			"resource":                 baseURL + RouteMCP,
			"authorization_servers":    []string{baseURL},
			"bearer_methods_supported": []string{"header"},
			"scopes_supported":         []string{"read", "write"},
			"resource_name":            s.config.GetAppName(),
		})
	}
}

func (s *Server) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
