package clients

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Token endpoint authentication methods accepted at registration.
const (
	AuthMethodNone              = "none"
	AuthMethodClientSecretPost  = "client_secret_post"
	AuthMethodClientSecretBasic = "client_secret_basic"
)

// RegistrationRequest is the RFC 7591 client metadata accepted at /register.
type RegistrationRequest struct {
	RedirectURIs            []string `json:"redirect_uris"`
	ClientName              string   `json:"client_name,omitempty"`
	ClientURI               string   `json:"client_uri,omitempty"`
	TokenEndpointAuthMethod string   `json:"token_endpoint_auth_method,omitempty"`
	GrantTypes              []string `json:"grant_types,omitempty"`
	ResponseTypes           []string `json:"response_types,omitempty"`
	Scope                   string   `json:"scope,omitempty"`
}

// RegistrationResponse echoes the stored metadata plus the issued credentials.
type RegistrationResponse struct {
	ClientID                string   `json:"client_id"`
	ClientSecret            string   `json:"client_secret,omitempty"`
	ClientIDIssuedAt        int64    `json:"client_id_issued_at"`
	ClientSecretExpiresAt   int64    `json:"client_secret_expires_at"`
	RedirectURIs            []string `json:"redirect_uris"`
	ClientName              string   `json:"client_name,omitempty"`
	ClientURI               string   `json:"client_uri,omitempty"`
	TokenEndpointAuthMethod string   `json:"token_endpoint_auth_method"`
	GrantTypes              []string `json:"grant_types"`
	ResponseTypes           []string `json:"response_types"`
}

// Register validates the metadata, stores a new client and returns its credentials.
func Register(repo Repo, req RegistrationRequest) (*RegistrationResponse, error) {
	if len(req.RedirectURIs) == 0 {
		return nil, fmt.Errorf("%w: redirect_uris is required", ErrInvalidMetadata)
	}
	for _, uri := range req.RedirectURIs {
		if err := ValidateRedirectURI(uri); err != nil {
			return nil, err
		}
	}

	method := req.TokenEndpointAuthMethod
	if method == "" {
		method = AuthMethodNone
	}

	client := &Client{
		ID:           uuid.New().String(),
		Name:         strings.TrimSpace(req.ClientName),
		URI:          req.ClientURI,
		Type:         ClientTypePublic,
		RedirectURIs: req.RedirectURIs,
		CreatedAt:    time.Now(),
	}

	switch method {
	case AuthMethodNone:
	case AuthMethodClientSecretPost, AuthMethodClientSecretBasic:
		secret, err := generateSecret()
		if err != nil {
			return nil, err
		}
		client.Type = ClientTypeConfidential
		client.Secret = secret
	default:
		return nil, fmt.Errorf("%w: unsupported token_endpoint_auth_method %q", ErrInvalidMetadata, method)
	}

	if err := repo.Upsert(client); err != nil {
		return nil, fmt.Errorf("[clients Register] failed to store client: %w", err)
	}

	return &RegistrationResponse{
		ClientID:                client.ID,
		ClientSecret:            client.Secret,
		ClientIDIssuedAt:        client.CreatedAt.Unix(),
		RedirectURIs:            client.RedirectURIs,
		ClientName:              client.Name,
		ClientURI:               client.URI,
		TokenEndpointAuthMethod: method,
		GrantTypes:              []string{"authorization_code"},
		ResponseTypes:           []string{"code"},
	}, nil
}

// ValidateRedirectURI accepts absolute https URIs, loopback http URIs and
// private-use schemes used by native apps. Fragments are never allowed.
func ValidateRedirectURI(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return fmt.Errorf("%w: redirect_uri %q is not an absolute URI", ErrInvalidMetadata, raw)
	}
	if u.Fragment != "" {
		return fmt.Errorf("%w: redirect_uri %q must not contain a fragment", ErrInvalidMetadata, raw)
	}
	switch u.Scheme {
	case "https":
		if u.Host == "" {
			return fmt.Errorf("%w: redirect_uri %q has no host", ErrInvalidMetadata, raw)
		}
	case "http":
		host := u.Hostname()
		if host != "localhost" && host != "127.0.0.1" && host != "::1" {
			return fmt.Errorf("%w: http redirect_uri %q must use a loopback host", ErrInvalidMetadata, raw)
		}
	case "javascript", "data", "file":
		return fmt.Errorf("%w: redirect_uri scheme %q is not allowed", ErrInvalidMetadata, u.Scheme)
	}
	return nil
}

// ParseStaticClients reads the STATIC_CLIENTS format: entries separated by
// ";", each "id|redirect1,redirect2|name|secret" where name and secret are optional.
func ParseStaticClients(raw string) ([]*Client, error) {
	var result []*Client
	for _, entry := range strings.Split(raw, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, "|")
		if len(parts) < 2 || strings.TrimSpace(parts[0]) == "" {
			return nil, fmt.Errorf("%w: static client entry %q", ErrInvalidMetadata, entry)
		}
		c := &Client{
			ID:        strings.TrimSpace(parts[0]),
			Type:      ClientTypePublic,
			CreatedAt: time.Now(),
		}
		for _, uri := range strings.Split(parts[1], ",") {
			uri = strings.TrimSpace(uri)
			if uri == "" {
				continue
			}
			if err := ValidateRedirectURI(uri); err != nil {
				return nil, err
			}
			c.RedirectURIs = append(c.RedirectURIs, uri)
		}
		if len(parts) > 2 {
			c.Name = strings.TrimSpace(parts[2])
		}
		if len(parts) > 3 && strings.TrimSpace(parts[3]) != "" {
			c.Secret = strings.TrimSpace(parts[3])
			c.Type = ClientTypeConfidential
		}
		result = append(result, c)
	}
	return result, nil
}

func generateSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("[clients generateSecret] %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
