package oauthmodel

import (
	"net/url"
	"strings"

	"github.com/jrsteele09/mcp-auth-gateway/clients"
	gwerrors "github.com/jrsteele09/mcp-auth-gateway/internal/errors"
)

// s256ChallengeLength is the length of base64url(SHA-256(...)) without padding.
const s256ChallengeLength = 43

// AuthorizationRequest holds the downstream client's OAuth 2.1 authorization request.
// It is received as query parameters at /authorize and carried through the upstream
// provider round-trip inside the state parameter.
type AuthorizationRequest struct {
	// ResponseType specifies what the authorization endpoint should return.
	// Required: Yes
	// Example: "code" (only supported value)
	ResponseType ResponseType `json:"responseType,omitempty"`

	// ClientID identifies the application requesting authorization.
	// Required: Yes. A request without it is never trusted.
	// Validated against: clients.Client.ID in the registry
	ClientID string `json:"clientId"`

	// RedirectURI is where the gateway's authorization code will be sent.
	// Security: Must exactly match a registered URI to prevent open redirects
	RedirectURI string `json:"redirectUri,omitempty"`

	// Scope is the space separated list of permissions requested by the client.
	// Example: "read write"
	Scope string `json:"scope,omitempty"`

	// State is the client's opaque value, echoed back on the final redirect.
	State string `json:"state,omitempty"`

	// CodeChallenge is the client's PKCE challenge, checked at /token.
	// Required: Yes for public clients
	CodeChallenge string `json:"codeChallenge,omitempty"`

	// CodeChallengeMethod specifies how code_challenge was derived. Only S256.
	CodeChallengeMethod CodeMethodType `json:"codeChallengeMethod,omitempty"`

	// Resource is the RFC 8707 resource indicator, when the client sends one.
	Resource string `json:"resource,omitempty"`
}

// ParseAuthorizationRequest reads an authorization request from query values.
// The only structural requirement is a client_id.
func ParseAuthorizationRequest(q url.Values) (*AuthorizationRequest, error) {
	req := &AuthorizationRequest{
		ResponseType:        ResponseType(q.Get("response_type")),
		ClientID:            strings.TrimSpace(q.Get("client_id")),
		RedirectURI:         q.Get("redirect_uri"),
		Scope:               q.Get("scope"),
		State:               q.Get("state"),
		CodeChallenge:       q.Get("code_challenge"),
		CodeChallengeMethod: CodeMethodType(q.Get("code_challenge_method")),
		Resource:            q.Get("resource"),
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return req, nil
}

// Validate checks the structural invariant of a request.
func (r *AuthorizationRequest) Validate() error {
	if r == nil || r.ClientID == "" {
		return gwerrors.ErrMissingClientID
	}
	return nil
}

// Scopes splits Scope into its parts.
func (r *AuthorizationRequest) Scopes() []string {
	return strings.Fields(r.Scope)
}

// ValidateForClient checks the request against the registered client.
func (r *AuthorizationRequest) ValidateForClient(client *clients.Client) error {
	if !responseTypeValid(r.ResponseType) {
		return ErrInvalidResponseType
	}

	if !client.HasRedirectURI(r.RedirectURI) {
		return ErrInvalidRedirectUri
	}

	if strings.TrimSpace(r.CodeChallenge) == "" {
		if client.IsPublic() {
			return ErrMissingCodeChallenge
		}
		return nil
	}

	if r.CodeChallengeMethod != CodeMethodTypeS256 {
		return ErrInvalidCodeChallengeMethod
	}

	if len(r.CodeChallenge) != s256ChallengeLength {
		return ErrInvalidCodeChallenge
	}
	return nil
}

func responseTypeValid(responseType ResponseType) bool {
	if strings.TrimSpace(string(responseType)) == "" {
		return true
	}
	return responseType == CodeResponseType
}
