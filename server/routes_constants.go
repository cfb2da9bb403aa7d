package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Provider router
	RouteAuthorize = "/authorize"

	// Per provider flow. {provider} is one of providers.Order.
	RouteProviderAuthorize = "/{provider}/authorize"
	RouteProviderCallback  = "/{provider}/callback"

	// Downstream OAuth endpoints
	RouteToken    = "/token"
	RouteRegister = "/register"
	RouteRevoke   = "/revoke"

	// Discovery
	RouteWellKnownAuthServer        = "/.well-known/oauth-authorization-server"
	RouteWellKnownProtectedResource = "/.well-known/oauth-protected-resource"

	// Tool endpoint
	RouteMCP = "/mcp"

	// Operations
	RouteHealth  = "/health"
	RouteMetrics = "/metrics"
)

func providerAuthorizePath(p string) string { return "/" + p + "/authorize" }
func providerCallbackPath(p string) string  { return "/" + p + "/callback" }
