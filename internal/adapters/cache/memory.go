package cache

import (
	"context"
	"sync"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M46-collaboration-settlement-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M46-collaboration-settlement-service/internal/ports"
)

type memoryEntry struct {
	breakdown domain.Breakdown
	expiresAt time.Time
}

// MemoryBreakdownCache is used when REDIS_URL is unset.
type MemoryBreakdownCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	nowFn   func() time.Time
}

func NewMemoryBreakdownCache() *MemoryBreakdownCache {
	return &MemoryBreakdownCache{
		entries: map[string]memoryEntry{},
		nowFn:   func() time.Time { return time.Now().UTC() },
	}
}

func (c *MemoryBreakdownCache) Get(_ context.Context, collaborationID string) (domain.Breakdown, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[collaborationID]
	if !ok || (!e.expiresAt.IsZero() && c.nowFn().After(e.expiresAt)) {
		return domain.Breakdown{}, false, nil
	}
	return e.breakdown, true, nil
}

func (c *MemoryBreakdownCache) Set(_ context.Context, b domain.Breakdown, ttl time.Duration) error {
	if b.CollaborationID == "" {
		return domain.ErrInvalidInput
	}
	e := memoryEntry{breakdown: b}
	if ttl > 0 {
		e.expiresAt = c.nowFn().Add(ttl)
	}
	c.mu.Lock()
	c.entries[b.CollaborationID] = e
	c.mu.Unlock()
	return nil
}

var _ ports.BreakdownCache = (*MemoryBreakdownCache)(nil)
