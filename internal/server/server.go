// Package server exposes recommendations and playlist sessions over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/heavenlydemon269/vibelist/playlist"
	"github.com/heavenlydemon269/vibelist/resource"
	"github.com/heavenlydemon269/vibelist/session"
)

// Config holds HTTP host settings.
type Config struct {
	// RateLimit is requests per minute per client IP. 0 disables it.
	RateLimit int
	// MaxCount caps Count in requests. Defaults to 100.
	MaxCount int
	// Controller bounds in-flight /v1 requests. Nil admits everything.
	Controller *resource.Controller
	// QueueTimeout is how long a request waits for the controller before
	// failing with 503. Zero waits as long as the client does.
	QueueTimeout time.Duration
	// Gatherer serves /metrics. Nil means prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
}

// Server routes HTTP requests to the recommender and the curator.
type Server struct {
	rec      playlist.Recommender
	curator  *playlist.Curator
	sessions session.Store
	cfg      Config
	logger   *slog.Logger
	locks    keyedMutex
}

// New creates a server.
func New(rec playlist.Recommender, curator *playlist.Curator, sessions session.Store, cfg Config) *Server {
	if cfg.MaxCount <= 0 {
		cfg.MaxCount = 100
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		rec:      rec,
		curator:  curator,
		sessions: sessions,
		cfg:      cfg,
		logger:   logger,
	}
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(s.logRequests)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.cfg.Gatherer, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		if s.cfg.RateLimit > 0 {
			r.Use(httprate.Limit(s.cfg.RateLimit, time.Minute,
				httprate.WithKeyFuncs(httprate.KeyByIP),
				httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
					respondError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests")
				}),
			))
		}
		r.Use(s.admit)

		r.Post("/recommend", s.handleRecommend)
		r.Post("/sessions", s.handleCreateSession)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleDeleteSession)
			r.Post("/refine", s.handleRefine)
			r.Delete("/tracks/{trackID}", s.handleRemoveTrack)
		})
	})

	return r
}

// admit bounds concurrent /v1 requests with the resource controller.
func (s *Server) admit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if s.cfg.QueueTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.cfg.QueueTimeout)
			defer cancel()
		}
		release, err := s.cfg.Controller.Acquire(ctx)
		if err != nil {
			respondError(w, http.StatusServiceUnavailable, "BUSY", "server is busy")
			return
		}
		defer release()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.DebugContext(r.Context(), "http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("elapsed", time.Since(start)),
			slog.String("request_id", chimiddleware.GetReqID(r.Context())),
		)
	})
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, addr string, h http.Handler, readTimeout, writeTimeout, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout,
		WriteTimeout:      writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
