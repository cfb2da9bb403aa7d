package oauthmodel

// ResponseType represents the OAuth 2.1 response type.
// Determines what is returned from the authorization endpoint.
type ResponseType string

const (
	// CodeResponseType indicates the authorization code flow.
	// OAuth 2.1 removes the implicit grant, so this is the only value accepted.
	// Example: /authorize?response_type=code&client_id=...
	CodeResponseType ResponseType = "code"
)

// CodeMethodType represents the PKCE (Proof Key for Code Exchange) challenge method.
type CodeMethodType string

const (
	// CodeMethodTypeS256 indicates SHA-256 hashing is used for the code challenge.
	// Client sends: code_challenge = BASE64URL(SHA256(code_verifier))
	// Server validates: SHA256(provided code_verifier) == stored code_challenge
	// The "plain" method is not accepted.
	CodeMethodTypeS256 CodeMethodType = "S256"
)

// GrantType represents the OAuth 2.1 grant type used at the token endpoint.
type GrantType string

const (
	// AuthorizationCodeGrant exchanges a gateway-issued authorization code for an access token.
	// Token request includes: code, client_id, redirect_uri, code_verifier, client_secret (confidential only)
	AuthorizationCodeGrant GrantType = "authorization_code"
)

// TokenTypeBearer is the token_type of every access token the gateway issues.
const TokenTypeBearer = "Bearer"
