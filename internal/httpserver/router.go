package httpserver

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"wca-openai-proxy/internal/handlers"
	"wca-openai-proxy/internal/metrics"
	"wca-openai-proxy/internal/middleware"
)

// Options carries the per-request limits applied by the middleware chain.
type Options struct {
	RequestTimeout time.Duration
	MaxBodyBytes   int64
}

func SetupRouter(r *chi.Mux, baseLogger *zap.Logger, opts Options, chat *handlers.ChatHandler, info *handlers.InfoHandler) {
	r.Use(metrics.Middleware)

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)

	r.Use(middleware.LoggingContext(baseLogger))
	r.Use(middleware.Recoverer())
	if opts.RequestTimeout > 0 {
		r.Use(middleware.Timeout(opts.RequestTimeout))
	}
	r.Use(middleware.MaxBodySize(opts.MaxBodyBytes))

	r.Route("/v1", func(r chi.Router) {
		r.Post("/chat/completions", chat.ChatCompletion)
		r.Post("/completions", chat.Completion)
		r.Get("/models", info.Models)
		r.Get("/health", info.Health)
	})

	r.Get("/health", info.Health)
	r.Handle("/metrics", metrics.Handler())
}
