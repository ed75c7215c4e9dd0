// Package server is the local web console: a small HTML front end over the API
// client whose routes are gated on the shared session state.
package server

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-vocab-client/admin"
	"github.com/jrsteele09/go-vocab-client/auth"
	"github.com/jrsteele09/go-vocab-client/category"
	"github.com/jrsteele09/go-vocab-client/guard"
	"github.com/jrsteele09/go-vocab-client/internal/config"
	"github.com/jrsteele09/go-vocab-client/session"
	"github.com/jrsteele09/go-vocab-client/vocabulary"
)

// Services are the clients the console drives. Auth and Watcher are required.
type Services struct {
	Auth         *auth.Service
	Watcher      *session.Watcher
	Vocabularies *vocabulary.Client
	Categories   *category.Client
	Admin        *admin.Client
}

type Server struct {
	env      string // Environment (e.g., "DEV", "PROD")
	mux      *http.ServeMux
	routes   []string
	config   config.Config
	paths    guard.Paths
	services Services
}

func New(c config.Config, services Services) (*Server, error) {
	if services.Auth == nil || services.Watcher == nil {
		return nil, errors.New("[Server New] auth service and session watcher are required")
	}

	s := &Server{
		env:      c.GetEnv(),
		mux:      http.NewServeMux(),
		config:   c,
		paths:    guard.Paths{Login: c.GetLoginPath(), Home: c.GetHomePath()},
		services: services,
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

// Routes lists the registered patterns in registration order.
func (s *Server) Routes() []string {
	return append([]string(nil), s.routes...)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	log.Printf("[%-19s] %s\n", colouredMethod(method), path)
}

func colouredMethod(method string) string {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		return color + paddedMethod + ResetColor
	}
	return Gray + paddedMethod + ResetColor
}
