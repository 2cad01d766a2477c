package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/maxldruck/printcalc/config"
	"github.com/maxldruck/printcalc/internal/handlers"
	"go.uber.org/zap"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	app        *App
	logger     *zap.Logger
}

// New constructs a Server with basic middleware and defaults.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Server, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	app, err := NewApp(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	router := NewRouter(app, cfg)

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		app:        app,
		logger:     logger,
	}, nil
}

// NewRouter builds the HTTP routes over app.
func NewRouter(app *App, cfg config.Config) *chi.Mux {
	authMiddleware := handlers.RequireAuth(cfg.JWTSecret, app.Accounts)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, app.Accounts, cfg.JWTSecret, cfg.TokenTTL)
	})

	router.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Route("/catalog", func(r chi.Router) {
			handlers.CatalogRouter(r, app.Catalog)
		})
		r.Route("/draft", func(r chi.Router) {
			handlers.DraftRouter(r, app.Projects)
		})
		r.Route("/projects", func(r chi.Router) {
			handlers.ProjectRouter(r, app.Projects, app.Quotes)
		})
		r.Route("/accounts", func(r chi.Router) {
			handlers.AccountRouter(r, app.Accounts)
		})
		r.Get("/stats", handlers.Stats(app.Projects))
	})
	return router
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("server listening", zap.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown stops accepting requests, waits for in-flight ones and closes
// the backends.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.app != nil {
		err = errors.Join(err, s.app.Close())
	}
	return err
}
