// Package tokencache stores short-lived IAM bearer tokens so concurrent
// requests (and, with Redis, several proxy replicas) share one token until
// it nears expiry. Completions themselves are never cached.
package tokencache

import (
	"context"
	"time"
)

// Cache is the interface used by the token source.
// Implemented by the in-memory cache (single process) and Redis (shared).
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Nop never stores anything, so every lookup is a miss.
type Nop struct{}

func (Nop) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

func (Nop) Set(context.Context, string, []byte, time.Duration) error { return nil }
