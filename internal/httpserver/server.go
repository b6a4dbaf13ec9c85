package httpserver

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"eportfolio/backend/internal/config"
	authusecase "eportfolio/backend/internal/usecase/auth"
	userusecase "eportfolio/backend/internal/usecase/user"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

// Server wraps the HTTP server lifecycle.
type Server struct {
	httpServer  *http.Server
	router      chi.Router
	registry    *prometheus.Registry
	metrics     *metrics
	logger      *slog.Logger
	authService *authusecase.Service
	userService *userusecase.Service
	addr        string
}

// NewServer constructs a new Server with configured dependencies.
func NewServer(cfg config.Config, authService *authusecase.Service, userService *userusecase.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	addr := cfg.HTTP.Port
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	registry := prometheus.NewRegistry()
	m := newMetrics(registry)

	router := chi.NewRouter()
	router.Use(
		withRecover(logger),
		withTracing(),
		withLogging(logger, m),
		withCORS(cfg.HTTP.AllowedOrigins),
	)

	srv := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      router,
			ReadTimeout:  cfg.HTTP.ReadTimeout,
			WriteTimeout: cfg.HTTP.WriteTimeout,
			IdleTimeout:  cfg.HTTP.IdleTimeout,
		},
		router:      router,
		registry:    registry,
		metrics:     m,
		logger:      logger,
		authService: authService,
		userService: userService,
		addr:        addr,
	}
	srv.registerRoutes()
	return srv
}

// Start listens on the configured address until Shutdown is called.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the fully wrapped handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the configured network address for the HTTP server.
func (s *Server) Addr() string {
	return s.addr
}
