// Package api exposes ingestion, digests, feedback and profile management over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"NewsLens/internal/config"
	"NewsLens/internal/usecase"
)

const maxBodyBytes = 1 << 20

// Pinger reports backing-store health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the use cases served by the API.
type Deps struct {
	Catalog  *usecase.Catalog
	Ranking  *usecase.Ranking
	Feedback *usecase.Feedback
	Profiles *usecase.Profiles
	Topics   usecase.TopicResolver
	Health   Pinger
	Logger   *slog.Logger
}

// Server is the HTTP front of the ranking service.
type Server struct {
	deps   Deps
	cfg    config.ServerConfig
	logger *slog.Logger
}

// NewServer builds the API server.
func NewServer(deps Deps, cfg config.ServerConfig) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{deps: deps, cfg: cfg, logger: logger}
}

// Handler returns the routed handler tree.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(chimiddleware.Recoverer)
	if s.cfg.RateLimitRequests > 0 {
		window := s.cfg.RateLimitWindow
		if window <= 0 {
			window = time.Minute
		}
		r.Use(httprate.LimitByIP(s.cfg.RateLimitRequests, window))
	}

	r.Get("/healthz", s.health)
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/items", s.addItem)
	r.Get("/topics/resolve", s.resolveTopic)

	r.Route("/users/{userID}", func(r chi.Router) {
		r.Get("/digest", s.digest)
		r.Put("/feedback/{itemID}", s.vote)
		r.Delete("/feedback/{itemID}", s.undoVote)
		r.Get("/profile", s.getProfile)
		r.Put("/profile", s.setProfile)
		r.Delete("/profile", s.clearProfile)
		r.Put("/pause", s.setPaused)
		r.Put("/weights", s.setWeights)
	})

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	s.logger.Info("http server stopped")
	return nil
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		started := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(started),
			"request_id", chimiddleware.GetReqID(r.Context()),
		)
	})
}
