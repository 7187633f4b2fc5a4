package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/ramonehamilton/asi-engine/internal/asi/format"
	"github.com/ramonehamilton/asi-engine/internal/asi/scoring"
	"github.com/ramonehamilton/asi-engine/internal/store"
)

// requestIDHeader carries the correlation ID stamped on every request, for
// tying a client bug report back to the corresponding access log line.
const requestIDHeader = "X-Request-ID"

// requestIDMiddleware stamps each request with a UUID-based correlation ID,
// echoing a client-supplied one if present.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

// Server hosts the ASI REST API: a thin chi router with a middleware stack
// and a single domain handler wired in behind it.
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	cfg        *Config
}

// Config holds server listener and rate-limiting settings.
type Config struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	RateLimitPerSec int
	RateLimitBurst  int
}

// DefaultConfig returns sensible defaults for the ASI server.
func DefaultConfig() *Config {
	return &Config{
		Port:            8080,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    60 * time.Second,
		RateLimitPerSec: 10,
		RateLimitBurst:  20,
	}
}

// NewServer builds a Server with the given config, bigram store, scoring
// engine, and format registry.
func NewServer(cfg *Config, st store.BigramStore, engine *scoring.Engine, registry *format.Registry) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	s := &Server{
		router: chi.NewRouter(),
		cfg:    cfg,
	}

	s.setupMiddleware(cfg)
	s.setupRoutes(st, engine, registry)

	return s
}

func (s *Server) setupMiddleware(cfg *Config) {
	s.router.Use(requestIDMiddleware)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(cfg.WriteTimeout))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	s.router.Use(rateLimitMiddleware(cfg.RateLimitPerSec, cfg.RateLimitBurst))
}

// rateLimitMiddleware throttles requests with a shared token bucket,
// protecting the bigram store from pathological oversized deck submissions
// whose candidate-bigram set grows quadratically with deck size.
func rateLimitMiddleware(perSec, burst int) func(http.Handler) http.Handler {
	limiter := rate.NewLimiter(rate.Limit(perSec), burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) setupRoutes(st store.BigramStore, engine *scoring.Engine, registry *format.Registry) {
	handler := NewHandler(st, engine, registry)

	s.router.Get("/health", s.healthCheck)
	s.router.Post("/asi", handler.ServeHTTP)
}

func (s *Server) healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, `{"status":"ok"}`)
}

// Start starts the HTTP server in a background goroutine.
func (s *Server) Start() {
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.router,
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      s.cfg.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Printf("ASI server starting on port %d", s.cfg.Port)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("ASI server error: %v", err)
		}
	}()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	log.Println("Shutting down ASI server...")
	return s.httpServer.Shutdown(ctx)
}

// Port returns the port the server is configured to listen on.
func (s *Server) Port() int {
	return s.cfg.Port
}
