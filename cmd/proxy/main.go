package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"wca-openai-proxy/internal/adapter"
	"wca-openai-proxy/internal/config"
	"wca-openai-proxy/internal/handlers"
	"wca-openai-proxy/internal/httpserver"
	"wca-openai-proxy/internal/metrics"
	"wca-openai-proxy/internal/tokencache"
	"wca-openai-proxy/internal/wca"
	"wca-openai-proxy/pkg/logging"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatalf("proxy exited with error: %v", err)
	}
}

func run() (err error) {
	// ----- Config -----
	// Loaded first so ENV and LOG_LEVEL from .env reach the logger.
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// ----- Logger -----
	logger, err := logging.New(cfg.LoggingOptions())
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	// ----- Metrics -----
	metrics.Register()
	if err := cfg.RequireAPIKey(); err != nil {
		logger.Error("missing credential", zap.Error(err))
		return err
	}

	logger.Info("loaded config",
		zap.String("addr", cfg.Addr()),
		zap.String("wca_url", cfg.WCABaseURL),
		zap.String("iam_url", cfg.IAMURL),
		zap.String("model", cfg.ModelID),
		zap.String("token_cache", cfg.TokenCache),
		zap.Int("chunk_size", cfg.ChunkSize),
		zap.Duration("chunk_delay", cfg.ChunkDelay),
		zap.Duration("backend_timeout", cfg.BackendTimeout),
		zap.Bool("soft_start", cfg.SoftStart),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ----- Token cache -----
	cache, err := tokencache.New(ctx, tokencache.Config{
		Backend:   cfg.TokenCache,
		RedisAddr: cfg.RedisAddr,
		Prefix:    "wca-proxy",
	})
	if err != nil {
		return err
	}
	var closers []io.Closer
	if c, ok := cache.(io.Closer); ok {
		closers = append(closers, c)
	}
	defer func() {
		for _, c := range closers {
			err = multierr.Append(err, c.Close())
		}
	}()

	// ----- Backend client -----
	var backend handlers.Backend = unavailableBackend{}
	if cfg.HasAPIKey() {
		client, err := wca.NewClient(wca.Config{
			URL:            cfg.WCABaseURL,
			IAMURL:         cfg.IAMURL,
			APIKey:         cfg.APIKey,
			Timeout:        cfg.BackendTimeout,
			AttachmentRoot: cfg.AttachmentRoot,
			TokenCache:     cache,
		}, logger)
		if err != nil {
			return err
		}
		closers = append(closers, client)
		backend = client
	} else {
		logger.Warn("starting without IAM_APIKEY; completion requests will fail")
	}

	// ----- Handlers -----
	completions := adapter.New(adapter.Config{
		Model:      cfg.ModelID,
		ChunkSize:  cfg.ChunkSize,
		ChunkDelay: cfg.ChunkDelay,
	})
	chatHandler := handlers.NewChatHandler(backend, completions)
	infoHandler := handlers.NewInfoHandler(cfg.ModelID, cfg.Version, cfg.HasAPIKey())

	// ----- Router + middleware -----
	r := chi.NewRouter()
	httpserver.SetupRouter(r, logger, httpserver.Options{
		RequestTimeout: cfg.RequestTimeout,
		MaxBodyBytes:   cfg.MaxBodyBytes,
	}, chatHandler, infoHandler)

	// ----- HTTP server -----
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Must outlast the backend call plus the paced stream.
		WriteTimeout: cfg.RequestTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("starting proxy",
		zap.String("addr", srv.Addr),
		zap.String("version", cfg.Version),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", zap.Error(err))
		return err
	}

	logger.Info("server shutdown complete")
	return nil
}

// unavailableBackend stands in for the WCA client when the proxy was started
// without a credential.
type unavailableBackend struct{}

func (unavailableBackend) Submit(context.Context, string, []string) (string, error) {
	return "", config.ErrMissingAPIKey
}

