package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/mcp-auth-gateway/approval"
	"github.com/jrsteele09/mcp-auth-gateway/authstate"
	"github.com/jrsteele09/mcp-auth-gateway/clients"
	"github.com/jrsteele09/mcp-auth-gateway/internal/config"
	"github.com/jrsteele09/mcp-auth-gateway/internal/metrics"
	"github.com/jrsteele09/mcp-auth-gateway/providers"
	"github.com/jrsteele09/mcp-auth-gateway/sessions"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog/log"
)

// Deps are the collaborators the gateway routes delegate to.
type Deps struct {
	Clients   clients.Repo
	Approvals *approval.Store
	State     authstate.Codec
	Issuer    *sessions.Issuer
	Providers providers.ConfigSource
	// ProviderOptions are applied to every adapter, e.g. the outbound client.
	ProviderOptions []providers.Option
	MCP             *mcpserver.MCPServer
	Metrics         *metrics.Metrics
}

type Server struct {
	env       string
	mux       *http.ServeMux
	routes    []string
	config    config.Config
	clients   clients.Repo
	approvals *approval.Store
	state     authstate.Codec
	issuer    *sessions.Issuer
	providers providers.ConfigSource
	provOpts  []providers.Option
	mcp       *mcpserver.MCPServer
	metrics   *metrics.Metrics
}

func New(cfg config.Config, deps Deps) (*Server, error) {
	switch {
	case deps.Clients == nil:
		return nil, fmt.Errorf("[Server New] client repository is required")
	case deps.Approvals == nil:
		return nil, fmt.Errorf("[Server New] approval store is required")
	case deps.Issuer == nil:
		return nil, fmt.Errorf("[Server New] session issuer is required")
	}

	s := &Server{
		env:       cfg.GetEnv(),
		mux:       http.NewServeMux(),
		config:    cfg,
		clients:   deps.Clients,
		approvals: deps.Approvals,
		state:     deps.State,
		issuer:    deps.Issuer,
		providers: deps.Providers,
		provOpts:  deps.ProviderOptions,
		mcp:       deps.MCP,
		metrics:   deps.Metrics,
	}
	if s.state == nil {
		s.state = authstate.Base64Codec{}
	}
	if s.providers == nil {
		s.providers = cfg
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		method, path, ok := strings.Cut(route, " ")
		if !ok {
			method, path = "*", route
		}
		log.Debug().Str("method", method).Str("path", path).Msg("route")
	}
}

// baseURL is the externally visible origin of the gateway. BASE_URL wins
// over the request's own host.
func (s *Server) baseURL(r *http.Request) string {
	if base := s.config.GetBaseURL(); base != "" {
		return base
	}
	return getScheme(r) + "://" + r.Host
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
