// Package tools exposes the gateway's backend integrations as MCP tools.
// Every call runs as the identity resolved from the caller's bearer token and
// is gated by an Authorizer.
package tools

import (
	"context"
	"strings"

	"github.com/jrsteele09/mcp-auth-gateway/providers"
)

type Capability string

const (
	CapabilityRead  Capability = "read"
	CapabilityWrite Capability = "write"
	CapabilityMail  Capability = "mail"
)

// Authorizer decides whether login may use a capability.
type Authorizer interface {
	IsAuthorized(login string, c Capability) bool
}

// AuthorizerFunc adapts a function to Authorizer.
type AuthorizerFunc func(login string, c Capability) bool

func (f AuthorizerFunc) IsAuthorized(login string, c Capability) bool {
	return f(login, c)
}

// ProviderAuthorizer is an Authorizer that can tell equal logins from
// different providers apart.
type ProviderAuthorizer interface {
	Authorizer
	IsAuthorizedFor(provider providers.Name, login string, c Capability) bool
}

// AllowList grants read to every authenticated login and everything else
// only to the listed logins. An entry is either "provider:login", matching
// that provider only, or a bare login matching any provider. Matching
// ignores case.
type AllowList struct {
	logins    map[string]struct{}
	qualified map[string]struct{}
}

var _ ProviderAuthorizer = (*AllowList)(nil)

func NewAllowList(entries ...string) *AllowList {
	a := &AllowList{logins: map[string]struct{}{}, qualified: map[string]struct{}{}}
	for _, e := range entries {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if p, login, ok := strings.Cut(e, ":"); ok {
			if name, known := providers.ParseName(p); known && login != "" {
				a.qualified[qualify(name, login)] = struct{}{}
			}
			continue
		}
		a.logins[e] = struct{}{}
	}
	return a
}

// IsAuthorized only consults bare entries since the provider is unknown.
func (a *AllowList) IsAuthorized(login string, c Capability) bool {
	if strings.TrimSpace(login) == "" {
		return false
	}
	if c == CapabilityRead {
		return true
	}
	_, ok := a.logins[strings.ToLower(login)]
	return ok
}

func (a *AllowList) IsAuthorizedFor(provider providers.Name, login string, c Capability) bool {
	if a.IsAuthorized(login, c) {
		return true
	}
	if strings.TrimSpace(login) == "" {
		return false
	}
	_, ok := a.qualified[qualify(provider, strings.ToLower(login))]
	return ok
}

func qualify(provider providers.Name, login string) string {
	return string(provider) + ":" + login
}

type identityKey struct{}

// WithIdentity returns a context carrying the caller's identity.
func WithIdentity(ctx context.Context, id *providers.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the caller's identity, or nil.
func IdentityFromContext(ctx context.Context) *providers.Identity {
	id, _ := ctx.Value(identityKey{}).(*providers.Identity)
	return id
}
