package summarycache

import (
	"context"
	"sync"
	"time"

	"github.com/yanqian/transcript2minutes/internal/domain/inference"
)

type cachedEntry struct {
	payload   inference.CachedSummary
	expiresAt time.Time
}

// MemoryStore is an in-memory summary cache for tests/dev.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]cachedEntry
}

// NewMemoryStore constructs a store backed by process memory.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]cachedEntry)}
}

// Get implements inference.Cache.
func (s *MemoryStore) Get(_ context.Context, key string) (inference.CachedSummary, bool, error) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return inference.CachedSummary{}, false, nil
	}
	if hasExpired(entry.expiresAt) {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return inference.CachedSummary{}, false, nil
	}
	return entry.payload, true, nil
}

// Put caches the entry with optional TTL.
func (s *MemoryStore) Put(_ context.Context, key string, entry inference.CachedSummary, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp := time.Time{}
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	s.entries[key] = cachedEntry{payload: entry, expiresAt: exp}
	return nil
}

func hasExpired(ts time.Time) bool {
	if ts.IsZero() {
		return false
	}
	return ts.Before(time.Now())
}

var _ inference.Cache = (*MemoryStore)(nil)
