// Package cache provides the shared key/value store backing the navigation
// menu cache and its version counter. The in-memory store serves a single
// process; the Redis store lets multiple worker processes share one cache and
// one version sequence.
package cache

import (
	"context"
	"sync"
	"time"
)

// Store is the cache backend contract. Incr exists alongside the usual
// get/set because menu invalidation works by bumping a shared counter rather
// than deleting entries.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Delete(ctx context.Context, key string)
	Incr(ctx context.Context, key string) int64
	Counter(ctx context.Context, key string) int64
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryStore is a thread-safe in-memory Store with lazy expiration.
type MemoryStore struct {
	mu       sync.RWMutex
	entries  map[string]*memoryEntry
	counters map[string]int64
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries:  make(map[string]*memoryEntry),
		counters: make(map[string]int64),
	}
}

// Get retrieves a value from the store. Performs lazy expiration: deletes the
// entry and returns a miss if it has expired.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return nil, false
	}
	return entry.data, true
}

// Set stores a value with the given TTL. A zero TTL means no expiry.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	expires := time.Now().Add(ttl)
	if ttl == 0 {
		expires = time.Now().AddDate(100, 0, 0)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = &memoryEntry{data: value, expiresAt: expires}
}

// Delete removes a single entry.
func (s *MemoryStore) Delete(_ context.Context, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

// Incr atomically increments a named counter and returns the new value.
func (s *MemoryStore) Incr(_ context.Context, key string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[key]++
	return s.counters[key]
}

// Counter reads a named counter without incrementing it. Unknown counters
// read as zero.
func (s *MemoryStore) Counter(_ context.Context, key string) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.counters[key]
}

// StartCleanup runs a background goroutine that periodically removes expired
// entries. It stops when the context is cancelled.
func (s *MemoryStore) StartCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.mu.Lock()
				now := time.Now()
				for k, v := range s.entries {
					if now.After(v.expiresAt) {
						delete(s.entries, k)
					}
				}
				s.mu.Unlock()
			}
		}
	}()
}
