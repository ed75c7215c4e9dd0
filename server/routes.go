package server

import (
	"net/http"

	"github.com/jrsteele09/go-vocab-client/guard"
)

func (s *Server) initRoutes() {
	s.RegisterRouteHandler("GET "+RouteHome, ChainMiddleware(s.IndexHandler(), s.HTMLMiddleWare(s.require(guard.Authenticated))...))

	// LOGIN
	s.RegisterRouteHandler("GET "+RouteLogin, ChainMiddleware(s.LoginPageHandler(), s.HTMLMiddleWare(s.require(guard.GuestOnly))...))
	s.RegisterRouteHandler("POST "+RouteLogin, ChainMiddleware(s.LoginSubmissionHandler(), s.FormMiddleware(s.require(guard.GuestOnly))...))
	s.RegisterRouteHandler("POST "+RouteLogout, ChainMiddleware(s.LogoutHandler(), s.FormMiddleware()...))

	// SIGNUP
	s.RegisterRouteHandler("GET "+RouteRegister, ChainMiddleware(s.RegisterPageHandler(), s.HTMLMiddleWare(s.require(guard.GuestOnly))...))
	s.RegisterRouteHandler("POST "+RouteRegister, ChainMiddleware(s.RegisterSubmissionHandler(), s.FormMiddleware(s.require(guard.GuestOnly))...))
	s.RegisterRouteHandler("GET "+RouteVerifyEmail, ChainMiddleware(s.VerifyEmailHandler(), s.HTMLMiddleWare()...))

	// GOOGLE
	s.RegisterRouteHandler("GET "+RouteGoogleAuth, ChainMiddleware(s.GoogleAuthHandler(), s.HTMLMiddleWare(s.require(guard.GuestOnly))...))
	s.RegisterRouteHandler("GET "+RouteOAuthSuccess, ChainMiddleware(s.OAuthSuccessHandler(), s.HTMLMiddleWare()...))

	// VOCABULARIES
	s.RegisterRouteHandler("GET "+RouteVocabularies, ChainMiddleware(s.VocabulariesHandler(), s.HTMLMiddleWare(s.require(guard.Authenticated))...))
	s.RegisterRouteHandler("GET "+RouteCategories, ChainMiddleware(s.CategoriesHandler(), s.HTMLMiddleWare(s.require(guard.Authenticated))...))

	// ADMIN
	s.RegisterRouteHandler("GET "+RouteAdmin, ChainMiddleware(s.AdminDashboardHandler(), s.HTMLMiddleWare(s.require(guard.Admin))...))

	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())
}

// require gates a route on the session state.
func (s *Server) require(access guard.Access) func(http.HandlerFunc) http.HandlerFunc {
	return s.paths.Middleware(s.services.Watcher, access)
}
