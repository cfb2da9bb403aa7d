package oauthmodel

import "net/url"

// TokenRequest holds parameters for the downstream token request.
// This represents the form body sent to the /token endpoint.
type TokenRequest struct {
	// GrantType must be "authorization_code".
	GrantType GrantType

	// ClientID identifies the client making the request.
	// Required: Yes
	ClientID string

	// ClientSecret is the secret credential for confidential clients.
	// Required: Yes for confidential clients, No for public clients
	// Security: Never log or expose this value
	ClientSecret string

	// Code is the authorization code the gateway issued after the upstream login.
	// Usage: Exchanged once, then becomes invalid
	Code string

	// RedirectURI must equal the redirect_uri of the authorization request.
	RedirectURI string

	// CodeVerifier is the PKCE code verifier that matches the code_challenge.
	// Validation: Server compares SHA256(code_verifier) with stored code_challenge
	CodeVerifier string
}

// ParseTokenRequest reads a token request from a parsed form.
func ParseTokenRequest(form url.Values) TokenRequest {
	return TokenRequest{
		GrantType:    GrantType(form.Get("grant_type")),
		ClientID:     form.Get("client_id"),
		ClientSecret: form.Get("client_secret"),
		Code:         form.Get("code"),
		RedirectURI:  form.Get("redirect_uri"),
		CodeVerifier: form.Get("code_verifier"),
	}
}
