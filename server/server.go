package server

import (
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"github.com/datafab/collab-meet/cookies"
	"github.com/datafab/collab-meet/internal/config"
	"github.com/datafab/collab-meet/session"
)

type Server struct {
	env          string // Environment (e.g., "DEV", "PROD")
	mux          *http.ServeMux
	routes       []string
	config       config.Config
	provider     session.Provider
	views        *ViewManager
	cookieDomain string // resolved once at startup, consumed everywhere
}

func New(cfg config.Config, provider session.Provider) (*Server, error) {
	if provider == nil {
		return nil, errors.New("[Server New] auth provider is required")
	}

	cookieDomain, err := cookies.ResolveDomain(cfg.GetApexDomain(), cfg.IsProduction())
	if err != nil {
		return nil, errors.Wrap(err, "[Server New] failed to resolve cookie domain")
	}

	s := &Server{
		mux:          http.NewServeMux(),
		config:       cfg,
		provider:     provider,
		cookieDomain: cookieDomain,
		views:        NewViewManager(cfg.GetMeetScriptURL(), cfg.GetMeetDomain(), cfg.GetMeetRoomPrefix()),
	}
	s.env = cfg.GetEnv()

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

// newStore builds the per-request cookie store: the HTTP jar plus the
// resolved domain and the removal variants for this request's host.
func (s *Server) newStore(w http.ResponseWriter, r *http.Request) *cookies.Store {
	return cookies.NewStore(
		cookies.NewHTTPJar(w, r),
		s.cookieDomain,
		s.config.IsProduction(),
		cookies.WithHostname(hostOnly(r.Host)),
		cookies.WithApex(s.config.GetApexDomain()),
	)
}

// newBridge builds the per-request session bridge over the cookie store.
func (s *Server) newBridge(w http.ResponseWriter, r *http.Request) (*session.Bridge, *cookies.Store) {
	store := s.newStore(w, r)
	bridge, err := session.NewBridge(s.provider, store, s.config.GetAuthProjectRef())
	if err != nil {
		// Construction only fails on missing dependencies, which New validated.
		panic("server: bridge construction failed: " + err.Error())
	}
	return bridge, store
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
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	log.Printf("[%-19s] %s\n", displayMethod, path)
}

// hostOnly strips the port from a request host.
func hostOnly(host string) string {
	if idx := strings.Index(host, ":"); idx != -1 {
		return host[:idx]
	}
	return host
}

// getScheme determines the scheme (http/https) for building redirect URLs.
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
