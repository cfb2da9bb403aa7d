package server

import (
	"fmt"
	"net/http"
	"strings"

	gwerrors "github.com/jrsteele09/mcp-auth-gateway/internal/errors"
	"github.com/jrsteele09/mcp-auth-gateway/sessions"
	"github.com/jrsteele09/mcp-auth-gateway/tools"
	"github.com/rs/zerolog/log"
)

// RequireBearer validates a gateway access token and puts the caller's
// identity in the request context.
func (s *Server) RequireBearer(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			s.unauthorized(w, r, "", "Missing bearer token")
			return
		}

		grant, err := s.issuer.Authenticate(r.Context(), token)
		if err != nil {
			desc := "Invalid access token"
			if gwerrors.Is(err, gwerrors.ErrTokenExpired) {
				desc = "Access token expired"
			}
			log.Debug().Err(err).Str("request_id", requestID(r)).Str("token", sessions.Redact(token)).Msg("bearer rejected")
			s.unauthorized(w, r, "invalid_token", desc)
			return
		}

		identity := grant.Identity
		ctx := tools.WithIdentity(r.Context(), &identity)
		next(w, r.WithContext(ctx))
	}
}

func (s *Server) unauthorized(w http.ResponseWriter, r *http.Request, code, description string) {
	challenge := fmt.Sprintf(`Bearer resource_metadata="%s"`, s.baseURL(r)+RouteWellKnownProtectedResource)
	if code != "" {
		challenge += fmt.Sprintf(`, error="%s", error_description="%s"`, code, description)
	}
	w.Header().Set("WWW-Authenticate", challenge)
	if code == "" {
		code = "unauthorized"
	}
	writeJSONError(w, code, description, http.StatusUnauthorized)
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(authHeader, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
