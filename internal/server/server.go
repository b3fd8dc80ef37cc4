// Package server exposes the question-to-SQL flow over HTTP.
package server

//go:generate go run github.com/a-h/templ/cmd/templ@v0.3.977 generate

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"github.com/leapstack-labs/asksql/pkg/core"
	"github.com/leapstack-labs/asksql/pkg/pipeline"
	"github.com/leapstack-labs/asksql/pkg/schema"
	"golang.org/x/sync/errgroup"
)

// Service is what the server needs from the engine.
type Service interface {
	Validate(ctx context.Context, question, instructions string) (*core.Verdict, error)
	Revalidate(ctx context.Context, question, suggestion string) (*core.Verdict, error)
	AskWithProgress(ctx context.Context, question string, onFailure func(core.AttemptFailure)) (*pipeline.Outcome, error)
	Schema() *schema.Schema
	Questions() []string
}

// Config holds configuration for the HTTP server.
type Config struct {
	Service         Service
	Addr            string
	ShutdownTimeout time.Duration
	// SessionSecret signs review cookies. Empty generates a random key.
	SessionSecret []byte
	Logger        *slog.Logger
}

// Server serves the JSON API and the streaming query endpoint.
type Server struct {
	svc             Service
	addr            string
	shutdownTimeout time.Duration
	sessions        *sessions.CookieStore
	logger          *slog.Logger
}

// New creates a new server instance.
func New(cfg Config) (*Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	secret := cfg.SessionSecret
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("failed to generate session key: %w", err)
		}
		logger.Warn("no session secret configured; review sessions end when the server restarts")
	}

	store := sessions.NewCookieStore(secret)
	store.MaxAge(3600)
	store.Options.Path = "/"
	store.Options.HttpOnly = true
	store.Options.SameSite = http.SameSiteLaxMode

	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Server{
		svc:             cfg.Service,
		addr:            cfg.Addr,
		shutdownTimeout: timeout,
		sessions:        store,
		logger:          logger,
	}, nil
}

// Handler returns the router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		requestLogger(s.logger),
		middleware.Recoverer,
	)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/schema", s.handleSchema)
		r.Get("/examples", s.handleExamples)
		r.Post("/validate", s.handleValidate)
		r.Post("/query", s.handleQuery)
		r.Get("/query/stream", s.handleQueryStream)

		r.Route("/review", func(r chi.Router) {
			r.Post("/", s.handleReviewStart)
			r.Post("/suggest", s.handleReviewSuggest)
			r.Post("/confirm", s.handleReviewConfirm)
		})
	})

	return r
}

// Serve starts the server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("starting API server", slog.String("addr", s.addr))

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()

		s.logger.Debug("shutting down API server")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Info("request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Duration("elapsed", time.Since(start)),
				slog.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}
