package commandqueue

import (
	"context"
	"sync"
	"time"
)

// dedupCache remembers request ids for a bounded time
type dedupCache struct {
	seen   map[string]time.Time
	ttl    time.Duration
	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// newDedupCache creates a new deduplication cache
func newDedupCache(ctx context.Context, ttl time.Duration) *dedupCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	ctx, cancel := context.WithCancel(ctx)
	cache := &dedupCache{
		seen:   make(map[string]time.Time),
		ttl:    ttl,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	// Start cleanup goroutine
	go cache.cleanup(ctx)

	return cache
}

// Stop ends the cleanup goroutine
func (dc *dedupCache) Stop() {
	dc.cancel()
}

// Mark records requestID and reports whether it was already seen within the TTL
func (dc *dedupCache) Mark(requestID string) bool {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	now := time.Now()
	if at, ok := dc.seen[requestID]; ok && now.Sub(at) <= dc.ttl {
		return true
	}
	dc.seen[requestID] = now
	return false
}

// cleanup periodically removes expired entries
func (dc *dedupCache) cleanup(ctx context.Context) {
	defer close(dc.done)

	interval := min(dc.ttl, time.Minute)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			dc.mu.Lock()
			now := time.Now()
			for requestID, at := range dc.seen {
				if now.Sub(at) > dc.ttl {
					delete(dc.seen, requestID)
				}
			}
			dc.mu.Unlock()
		}
	}
}
