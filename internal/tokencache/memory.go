package tokencache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryCache is a process-local Cache with per-entry TTL.
type MemoryCache struct {
	mu      sync.RWMutex
	items   map[string]memoryEntry
	now     func() time.Time
	stop    chan struct{}
	stopped sync.Once
}

// NewMemoryCache starts a janitor that drops expired tokens every
// cleanupInterval (one minute when non-positive). Call Close to stop it.
func NewMemoryCache(cleanupInterval time.Duration) *MemoryCache {
	if cleanupInterval <= 0 {
		cleanupInterval = time.Minute
	}

	c := &MemoryCache{
		items: make(map[string]memoryEntry),
		now:   time.Now,
		stop:  make(chan struct{}),
	}
	go c.janitor(cleanupInterval)
	return c
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	entry, ok := c.items[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}

	now := c.now()
	if !now.Before(entry.expiresAt) {
		c.mu.Lock()
		if e, exists := c.items[key]; exists && !now.Before(e.expiresAt) {
			delete(c.items, key)
		}
		c.mu.Unlock()
		return nil, false, nil
	}

	return entry.value, true, nil
}

// Set stores value for ttl. A non-positive ttl removes the key.
func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		c.mu.Lock()
		delete(c.items, key)
		c.mu.Unlock()
		return nil
	}

	// Copy to decouple from caller's buffer
	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)

	c.mu.Lock()
	c.items[key] = memoryEntry{
		value:     valueCopy,
		expiresAt: c.now().Add(ttl),
	}
	c.mu.Unlock()

	return nil
}

func (c *MemoryCache) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := c.now()
			c.mu.Lock()
			for k, v := range c.items {
				if !now.Before(v.expiresAt) {
					delete(c.items, k)
				}
			}
			c.mu.Unlock()
		case <-c.stop:
			return
		}
	}
}

// Close stops the janitor goroutine.
func (c *MemoryCache) Close() error {
	c.stopped.Do(func() {
		close(c.stop)
	})
	return nil
}

// size returns the number of stored entries, expired or not.
func (c *MemoryCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
