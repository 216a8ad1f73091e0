// Package replaycache remembers request nonces for their validity window so
// a captured device request cannot be replayed.
package replaycache

import (
	"context"
	"errors"
	"sync"
	"time"

	"vendtrustd/internal/domain"
)

type memoryCache struct {
	mu      sync.Mutex
	now     func() time.Time
	seen    map[string]time.Time
	maxKeys int
}

type MemoryCacheConfig struct {
	Now     func() time.Time
	MaxKeys int
}

func NewMemoryCache(cfg MemoryCacheConfig) domain.ReplayCache {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.MaxKeys <= 0 {
		cfg.MaxKeys = 100000
	}
	return &memoryCache{
		now:     cfg.Now,
		seen:    make(map[string]time.Time),
		maxKeys: cfg.MaxKeys,
	}
}

func (m *memoryCache) Remember(_ context.Context, machineID, nonce string, ttl time.Duration) (bool, error) {
	key := machineID + ":" + nonce
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	if expiry, ok := m.seen[key]; ok {
		if now.Before(expiry) {
			return false, nil
		}
		delete(m.seen, key)
	}
	if len(m.seen) >= m.maxKeys {
		m.gc(now)
	}
	if len(m.seen) >= m.maxKeys {
		return false, errors.New("replay cache capacity exceeded")
	}
	m.seen[key] = now.Add(ttl)
	return true, nil
}

func (m *memoryCache) gc(now time.Time) {
	for key, expiry := range m.seen {
		if !now.Before(expiry) {
			delete(m.seen, key)
		}
	}
}
