// Package idempotency guards external post-run actions so that a replayed
// trigger does not send the same email twice.
package idempotency

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

var ErrEmptyKey = errors.New("idempotency key is empty")

const (
	defaultKeyPrefix = "ai-suite:action:"
	defaultTTL       = 24 * time.Hour
)

// Guard claims keys for a bounded time. Claim reports false when the key is
// already held.
type Guard interface {
	Claim(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

var (
	_ Guard = (*MemoryGuard)(nil)
	_ Guard = (*UpstashGuard)(nil)
)

// MemoryGuard is a process-local Guard.
type MemoryGuard struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	until map[string]time.Time
}

func NewMemoryGuard(ttl time.Duration) *MemoryGuard {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &MemoryGuard{
		ttl:   ttl,
		now:   time.Now,
		until: map[string]time.Time{},
	}
}

func (g *MemoryGuard) Claim(_ context.Context, key string) (bool, error) {
	if strings.TrimSpace(key) == "" {
		return false, ErrEmptyKey
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if exp, ok := g.until[key]; ok && now.Before(exp) {
		return false, nil
	}
	g.until[key] = now.Add(g.ttl)
	return true, nil
}

func (g *MemoryGuard) Release(_ context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.until, key)
	return nil
}
