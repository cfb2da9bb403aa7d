package server

import (
	"context"
	"net/http"

	"github.com/jrsteele09/mcp-auth-gateway/tools"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// MCPHandler serves the streamable HTTP transport. RequireBearer has already
// resolved the caller.
func (s *Server) MCPHandler() http.HandlerFunc {
	h := mcpserver.NewStreamableHTTPServer(s.mcp,
		mcpserver.WithHTTPContextFunc(func(ctx context.Context, r *http.Request) context.Context {
			if id := tools.IdentityFromContext(r.Context()); id != nil {
				return tools.WithIdentity(ctx, id)
			}
			return ctx
		}),
	)
	return h.ServeHTTP
}
