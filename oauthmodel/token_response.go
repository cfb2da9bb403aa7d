package oauthmodel

// TokenResponse represents the response from the gateway's /token endpoint.
// This is the standard OAuth2 token endpoint response format as defined in RFC 6749.
type TokenResponse struct {
	// AccessToken is the opaque bearer token used to call the tool endpoint.
	// Usage: Include in Authorization header: "Bearer <access_token>"
	// Lifespan: config.OAuthConfig.GetAccessTokenExpiry
	AccessToken string `json:"access_token"`

	// TokenType indicates how to use the access token (always "Bearer").
	TokenType string `json:"token_type"`

	// ExpiresIn is the lifetime in seconds of the access token.
	ExpiresIn int `json:"expires_in,omitempty"`

	// Scope indicates the access token's granted permissions.
	// Example: "read write"
	Scope string `json:"scope,omitempty"`
}
