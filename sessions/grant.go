// Package sessions turns an upstream identity into gateway credentials: a
// single-use authorization code for the downstream client, then an opaque
// bearer token for the tool endpoint.
package sessions

import (
	"time"

	"github.com/jrsteele09/mcp-auth-gateway/providers"
)

// Grant is what a code or access token resolves to.
type Grant struct {
	ID                  string             `json:"id"`
	ClientID            string             `json:"clientId"`
	RedirectURI         string             `json:"redirectUri,omitempty"`
	Scope               string             `json:"scope,omitempty"`
	Resource            string             `json:"resource,omitempty"`
	CodeChallenge       string             `json:"codeChallenge,omitempty"`
	CodeChallengeMethod string             `json:"codeChallengeMethod,omitempty"`
	Identity            providers.Identity `json:"identity"`
	CreatedAt           time.Time          `json:"createdAt"`
	ExpiresAt           time.Time          `json:"expiresAt"`
}
