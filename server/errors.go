package server

import (
	"encoding/json"
	"errors"
	"net/http"

	gwerrors "github.com/jrsteele09/mcp-auth-gateway/internal/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	contentTypeHTML = "text/html; charset=utf-8"
	contentTypeJSON = "application/json; charset=utf-8"
)

// writeError ends a browser facing request with a plain text diagnostic.
// The logged cause may carry detail the user never sees.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := gwerrors.HTTPStatus(err)
	var ev *zerolog.Event
	if status >= http.StatusInternalServerError {
		ev = log.Error()
	} else {
		ev = log.Warn()
	}
	ev = ev.Err(err).Str("request_id", requestID(r)).Str("path", r.URL.Path).Int("status", status)

	var ge *gwerrors.Error
	if errors.As(err, &ge) {
		ev = ev.Str("provider", ge.Provider).Str("op", ge.Op).Str("kind", ge.Kind.String())
		if ge.Status != 0 {
			ev = ev.Int("upstream_status", ge.Status)
		}
	}
	ev.Msg("request failed")

	http.Error(w, gwerrors.PublicMessage(err), status)
}

// badRequest is a 400 with a message that is safe to show as is.
func badRequest(w http.ResponseWriter, r *http.Request, msg string, err error) {
	log.Warn().Err(err).Str("request_id", requestID(r)).Str("path", r.URL.Path).Msg(msg)
	http.Error(w, msg, http.StatusBadRequest)
}

// writeJSONError writes an OAuth2 error response
func writeJSONError(w http.ResponseWriter, errorCode, description string, statusCode int) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":             errorCode,
		"error_description": description,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
