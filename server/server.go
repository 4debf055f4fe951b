package server

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/teamcatalog/catalog-auth/internal/config"
	"github.com/teamcatalog/catalog-auth/security"
)

type Server struct {
	env       string
	mux       *http.ServeMux
	routes    []string
	config    config.Config
	encryptor *security.Encryptor
	tokens    security.TokenProvider
}

func New(config config.Config, encryptor *security.Encryptor, tokens security.TokenProvider) *Server {
	s := &Server{
		mux:       http.NewServeMux(),
		config:    config,
		encryptor: encryptor,
		tokens:    tokens,
	}
	s.env = config.GetEnv()

	s.initRoutes()
	s.logRoutes()

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("GET "+RouteLogin, ChainMiddleware(s.LoginHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteCallback, ChainMiddleware(s.CallbackHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteLogout, ChainMiddleware(s.LogoutHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteUserInfo, ChainMiddleware(s.UserInfoHandler(), s.APIMiddleware()...))

	s.RegisterRouteFunc("GET "+RouteIsAlive, s.probeHandler())
	s.RegisterRouteFunc("GET "+RouteIsReady, s.probeHandler())
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		log.Debug().Str("route", route).Msg("registered route")
	}
}

func (s *Server) probeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
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
