package tokencache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Config struct {
	Backend   string // "memory", "redis" or "none"
	RedisAddr string
	Prefix    string
}

// New builds the configured cache, wrapped with logging and metrics. For
// Redis it pings once so a misconfigured address fails at startup. The
// returned cache implements io.Closer when it holds resources.
func New(ctx context.Context, cfg Config) (Cache, error) {
	switch cfg.Backend {
	case "redis":
		rc := NewRedisCache(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}), cfg.Prefix)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := rc.Ping(pingCtx); err != nil {
			_ = rc.Close()
			return nil, fmt.Errorf("redis connection failed: %w", err)
		}
		return NewLoggingCache(rc), nil
	case "none":
		return Nop{}, nil
	case "memory", "":
		return NewLoggingCache(NewMemoryCache(time.Minute)), nil
	default:
		return nil, fmt.Errorf("unknown token cache backend %q", cfg.Backend)
	}
}
