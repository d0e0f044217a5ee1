package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps counters in process. It only limits a single instance
// and is meant for local development and tests.
type MemoryStore struct {
	mu      sync.Mutex
	counts  map[string]int64
	expires map[string]time.Time
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		counts:  make(map[string]int64),
		expires: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (m *MemoryStore) get(key string) int64 {
	if exp, ok := m.expires[key]; ok && !m.now().Before(exp) {
		delete(m.counts, key)
		delete(m.expires, key)
		return 0
	}
	return m.counts[key]
}

func (m *MemoryStore) Incr(_ context.Context, currKey, prevKey string, ttl time.Duration) (int64, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.get(currKey) + 1
	m.counts[currKey] = n
	m.expires[currKey] = m.now().Add(ttl)
	return n, m.get(prevKey), nil
}

func (m *MemoryStore) Decr(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n := m.get(key); n > 0 {
		m.counts[key] = n - 1
	}
	return nil
}
