package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/MikeSquared-Agency/lazyswap/internal/conversation"
	"github.com/MikeSquared-Agency/lazyswap/internal/sideshift"
)

// Conversations is the part of the engine the HTTP transport needs.
type Conversations interface {
	Advance(ctx context.Context, id, text string) (conversation.Reply, error)
	Reset(ctx context.Context, id string) (conversation.Reply, error)
	Snapshot(ctx context.Context, id string) (conversation.State, bool, error)
}

// Exchange is the read-only passthrough to the exchange.
type Exchange interface {
	ListCoins(ctx context.Context) ([]sideshift.Coin, error)
	CheckPermissions(ctx context.Context, userIP string) (sideshift.Permissions, error)
	GetShift(ctx context.Context, id string) (sideshift.Shift, error)
}

type Deps struct {
	Conversations Conversations
	Exchange      Exchange
	Logger        *slog.Logger

	// Metrics serves /metrics when set.
	Metrics   http.Handler
	APIToken  string
	RateLimit RateLimit

	// TrustProxy takes the client address from X-Real-IP / X-Forwarded-For.
	// Enable only behind a proxy that sets those headers.
	TrustProxy bool

	// AllowedOrigins defaults to any origin.
	AllowedOrigins []string
}

type Server struct {
	router *chi.Mux
	port   int
	deps   Deps
	logger *slog.Logger
	http   *http.Server
}

func NewServer(port int, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	router := chi.NewRouter()
	router.Use(RequestID)
	if deps.TrustProxy {
		router.Use(middleware.RealIP)
	}
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	origins := deps.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         300,
	}))

	s := &Server{
		router: router,
		port:   port,
		deps:   deps,
		logger: logger,
	}

	router.Get("/health", s.health)
	if deps.Metrics != nil {
		router.Handle("/metrics", deps.Metrics)
	}

	limiter := NewRateLimiter(deps.RateLimit)
	router.Route("/api/v1", func(r chi.Router) {
		r.Use(BearerAuthMiddleware(deps.APIToken))
		r.Use(limiter.Middleware)

		r.Route("/conversations/{id}", func(r chi.Router) {
			r.Get("/", s.getConversation)
			r.Delete("/", s.resetConversation)
			r.Post("/messages", s.postMessage)
		})
		r.Get("/coins", s.listCoins)
		r.Get("/permissions", s.permissions)
		r.Get("/shifts/{id}", s.getShift)
	})

	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("API server starting", "addr", addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
