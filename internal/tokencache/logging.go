package tokencache

import (
	"context"
	"io"
	"time"

	"go.uber.org/zap"

	"wca-openai-proxy/internal/metrics"
	"wca-openai-proxy/pkg/logging"
)

// LoggingCache wraps a Cache with logging + metrics. Values are never
// logged.
type LoggingCache struct {
	inner Cache
}

func NewLoggingCache(inner Cache) *LoggingCache {
	return &LoggingCache{inner: inner}
}

func (c *LoggingCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	start := time.Now()
	value, ok, err := c.inner.Get(ctx, key)
	latencyMs := float64(time.Since(start).Microseconds()) / 1000.0

	result := "miss"
	if err != nil {
		result = "error"
	} else if ok {
		result = "hit"
		metrics.TokenCacheHitsTotal.Inc()
	}

	fields := append(keyFields(key),
		zap.String("cache_result", result), // hit | miss | error
		zap.Float64("latency_ms", latencyMs),
	)

	logger := logging.L(ctx)
	if err != nil {
		logger.Warn("token_cache_get", append(fields, zap.Error(err))...)
	} else {
		logger.Debug("token_cache_get", fields...)
	}

	return value, ok, err
}

func (c *LoggingCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	start := time.Now()
	err := c.inner.Set(ctx, key, value, ttl)
	latencyMs := float64(time.Since(start).Microseconds()) / 1000.0

	fields := append(keyFields(key),
		zap.Duration("ttl", ttl),
		zap.Float64("latency_ms", latencyMs),
	)

	logger := logging.L(ctx)
	if err != nil {
		logger.Warn("token_cache_set", append(fields, zap.Error(err))...)
	} else {
		logger.Debug("token_cache_set", fields...)
	}

	return err
}

// Close closes the wrapped cache if it holds resources.
func (c *LoggingCache) Close() error {
	if closer, ok := c.inner.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func keyFields(key string) []zap.Field {
	fields := []zap.Field{zap.String("cache_tier", "iam_token")}
	if parts, ok := parseKey(key); ok {
		fields = append(fields,
			zap.String("key_hash", parts.keyHash),
			zap.String("endpoint_hash", parts.endpointHash),
		)
	}
	return fields
}
