package clients

import (
	"crypto/subtle"
	"slices"
	"time"
)

type ClientType string

const (
	ClientTypeConfidential ClientType = "confidential" // Can keep secrets (server-side apps)
	ClientTypePublic       ClientType = "public"       // Cannot keep secrets (desktop, CLI and browser MCP clients)
)

// Client is a downstream application allowed to start an authorization flow.
type Client struct {
	ID           string     `json:"client_id"`
	Name         string     `json:"client_name,omitempty"`
	URI          string     `json:"client_uri,omitempty"`
	Type         ClientType `json:"-"`
	Secret       string     `json:"-"`
	RedirectURIs []string   `json:"redirect_uris"`
	CreatedAt    time.Time  `json:"-"`
}

// IsPublic returns true if the client is a public client
func (c *Client) IsPublic() bool {
	return c.Type == ClientTypePublic || c.Secret == ""
}

// HasRedirectURI reports whether uri is registered for the client. Matching is exact.
func (c *Client) HasRedirectURI(uri string) bool {
	if uri == "" {
		return false
	}
	return slices.Contains(c.RedirectURIs, uri)
}

// CheckSecret compares secret with the registered one in constant time.
func (c *Client) CheckSecret(secret string) bool {
	if c.IsPublic() {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(c.Secret), []byte(secret)) == 1
}

// DisplayName is what the approval dialog shows for the client.
func (c *Client) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.ID
}
