package server

func (s *Server) initRoutes() {
	// Browser facing authorization flow
	s.RegisterRouteHandler("GET "+RouteAuthorize, ChainMiddleware(s.ProviderRouter(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+RouteProviderAuthorize, ChainMiddleware(s.ProviderAuthorizeGet(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("POST "+RouteProviderAuthorize, ChainMiddleware(s.ProviderAuthorizePost(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+RouteProviderCallback, ChainMiddleware(s.ProviderCallback(), s.HTMLMiddleWare()...))

	// OAuth API routes
	s.RegisterRouteHandler("POST "+RouteToken, ChainMiddleware(s.Token(), s.APIMiddleware(s.NoStoreMiddleware)...))
	s.RegisterRouteHandler("POST "+RouteRegister, ChainMiddleware(s.Register(), s.APIMiddleware(s.NoStoreMiddleware)...))
	s.RegisterRouteHandler("POST "+RouteRevoke, ChainMiddleware(s.Revoke(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteWellKnownAuthServer, ChainMiddleware(s.AuthorizationServerMetadata(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteWellKnownProtectedResource, ChainMiddleware(s.ProtectedResourceMetadata(), s.APIMiddleware()...))

	// Preflight for the cross origin API routes
	for _, route := range []string{RouteToken, RouteRegister, RouteRevoke, RouteWellKnownAuthServer, RouteWellKnownProtectedResource} {
		s.RegisterRouteHandler("OPTIONS "+route, ChainMiddleware(methodNotAllowed, s.APIMiddleware()...))
	}

	// Tools, bearer protected
	if s.mcp != nil {
		s.RegisterRouteHandler(RouteMCP, ChainMiddleware(s.MCPHandler(), s.APIMiddleware(s.RequireBearer)...))
	}

	s.RegisterRouteFunc("GET "+RouteHealth, s.Health())
	s.RegisterRouteHandler("GET "+RouteMetrics, s.metrics.Handler())
}
