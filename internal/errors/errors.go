package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure so handlers can pick a status and a safe message
// without looking at provider specifics.
type Kind int

const (
	KindInternal Kind = iota
	// KindMalformedRequest covers bad or missing client input: no client_id,
	// undecodable state, missing code.
	KindMalformedRequest
	// KindNoProviderConfigured is returned when the environment enables no provider.
	KindNoProviderConfigured
	// KindUpstreamRejected is a non-2xx or unparseable upstream response.
	KindUpstreamRejected
	// KindConnectivityFailure is a transport error or timeout talking upstream.
	KindConnectivityFailure
	// KindMissingToken is a 2xx token response without an access token.
	KindMissingToken
	KindUnauthorized
	KindNotFound
	// KindForbidden is a request the browser did not legitimately make, such
	// as a cross-site consent submission.
	KindForbidden
)

func (k Kind) String() string {
	switch k {
	case KindMalformedRequest:
		return "malformed_request"
	case KindNoProviderConfigured:
		return "no_provider_configured"
	case KindUpstreamRejected:
		return "upstream_rejected"
	case KindConnectivityFailure:
		return "connectivity_failure"
	case KindMissingToken:
		return "missing_token"
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	default:
		return "internal"
	}
}

// Common error types for the gateway
var (
	// Request errors
	ErrMissingClientID  = errors.New("missing client_id")
	ErrMissingCode      = errors.New("missing authorization code")
	ErrMalformedState   = errors.New("malformed state")
	ErrInvalidRequest   = errors.New("invalid request")
	ErrUnknownProvider  = errors.New("unknown provider")
	ErrNoProviders      = errors.New("no OAuth providers configured")
	ErrProviderDisabled = errors.New("provider not configured")

	// Upstream errors
	ErrUpstreamStatus   = errors.New("upstream returned an error status")
	ErrUpstreamResponse = errors.New("upstream response could not be parsed")
	ErrUpstreamDenied   = errors.New("upstream denied the authorization")
	ErrMissingToken     = errors.New("upstream response missing access_token")
	ErrInvalidIDToken   = errors.New("invalid id_token")

	// Client errors
	ErrInvalidClient       = errors.New("invalid client")
	ErrInvalidClientSecret = errors.New("invalid client secret")
	ErrInvalidRedirectURI  = errors.New("invalid redirect URI")

	// Grant errors
	ErrInvalidGrant         = errors.New("invalid grant")
	ErrInvalidCodeChallenge = errors.New("invalid code challenge")
	ErrInvalidToken         = errors.New("invalid token")
	ErrTokenExpired         = errors.New("token expired")

	// General errors
	ErrNotFound    = errors.New("not found")
	ErrUnsupported = errors.New("unsupported operation")
	ErrForbidden   = errors.New("forbidden")
)

// Error carries a Kind along with where it happened. Status is the upstream
// HTTP status when there was one.
type Error struct {
	Kind     Kind
	Provider string
	Op       string
	Status   int
	Err      error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Provider != "" {
		msg = e.Provider + ": " + msg
	}
	if e.Op != "" {
		msg += " during " + e.Op
	}
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New returns a classified error.
func New(kind Kind, provider, op string, err error) *Error {
	return &Error{Kind: kind, Provider: provider, Op: op, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain. Unclassified
// errors that wrap one of the request sentinels are treated as malformed
// requests, everything else is internal.
func KindOf(err error) Kind {
	if err == nil {
		return KindInternal
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	switch {
	case errors.Is(err, ErrMissingClientID), errors.Is(err, ErrMissingCode),
		errors.Is(err, ErrMalformedState), errors.Is(err, ErrInvalidRequest):
		return KindMalformedRequest
	case errors.Is(err, ErrNoProviders):
		return KindNoProviderConfigured
	case errors.Is(err, ErrInvalidToken), errors.Is(err, ErrTokenExpired):
		return KindUnauthorized
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrUnknownProvider), errors.Is(err, ErrProviderDisabled):
		return KindNotFound
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	}
	return KindInternal
}

// HTTPStatus maps an error to the status returned to the browser or client.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindMalformedRequest:
		return http.StatusBadRequest
	case KindNoProviderConfigured:
		return http.StatusInternalServerError
	case KindUpstreamRejected, KindMissingToken:
		return http.StatusBadGateway
	case KindConnectivityFailure:
		return http.StatusGatewayTimeout
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage is the plain text diagnostic shown to the user. It never
// includes upstream bodies or token material.
func PublicMessage(err error) string {
	switch KindOf(err) {
	case KindMalformedRequest:
		switch {
		case errors.Is(err, ErrMissingClientID):
			return "Invalid request: missing client_id"
		case errors.Is(err, ErrMissingCode):
			return "Missing code"
		case errors.Is(err, ErrMalformedState):
			return "Invalid state"
		}
		return "Invalid request"
	case KindNoProviderConfigured:
		return "No OAuth providers configured. Check environment configuration."
	case KindUpstreamRejected:
		var e *Error
		if errors.As(err, &e) && e.Provider != "" {
			return "Failed to authenticate with " + e.Provider
		}
		return "Failed to authenticate with the identity provider"
	case KindConnectivityFailure:
		return "Could not reach the identity provider"
	case KindMissingToken:
		return "Missing access token"
	case KindUnauthorized:
		return "Unauthorized"
	case KindNotFound:
		return "Not found"
	case KindForbidden:
		return "Forbidden: the approval was not submitted from this browser"
	}
	return "Internal server error"
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
