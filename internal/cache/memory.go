package cache

import (
	"context"
	"path"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

const defaultMemoryTTL = 5 * time.Minute

type memoryEntry struct {
	value     interface{}
	expiresAt time.Time
}

// MemoryCache is the in-process L1 tier. Expired entries are dropped lazily
// on read and by Cleanup, which RunJanitor calls periodically.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	clock   clockwork.Clock
}

func NewMemoryCache() *MemoryCache {
	return NewMemoryCacheWithClock(clockwork.NewRealClock())
}

func NewMemoryCacheWithClock(clock clockwork.Clock) *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		clock:   clock,
	}
}

func (m *MemoryCache) Set(key string, value interface{}, ttl time.Duration) {
	if ttl <= 0 {
		ttl = defaultMemoryTTL
	}

	m.mu.Lock()
	m.entries[key] = memoryEntry{value: value, expiresAt: m.clock.Now().Add(ttl)}
	m.mu.Unlock()
}

// SetNX stores value only if key is absent or expired.
func (m *MemoryCache) SetNX(key string, value interface{}, ttl time.Duration) bool {
	if ttl <= 0 {
		ttl = defaultMemoryTTL
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	if entry, ok := m.entries[key]; ok && now.Before(entry.expiresAt) {
		return false
	}
	m.entries[key] = memoryEntry{value: value, expiresAt: now.Add(ttl)}
	return true
}

func (m *MemoryCache) Get(key string) (interface{}, bool) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if !m.clock.Now().Before(entry.expiresAt) {
		m.Delete(key)
		return nil, false
	}
	return entry.value, true
}

func (m *MemoryCache) Delete(key string) {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
}

// DeletePattern removes keys matching a glob such as "progress:*".
func (m *MemoryCache) DeletePattern(pattern string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key := range m.entries {
		if ok, _ := path.Match(pattern, key); ok {
			delete(m.entries, key)
		}
	}
}

// Cleanup drops every expired entry and returns how many were removed.
func (m *MemoryCache) Cleanup() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	removed := 0
	for key, entry := range m.entries {
		if !now.Before(entry.expiresAt) {
			delete(m.entries, key)
			removed++
		}
	}
	return removed
}

// RunJanitor calls Cleanup every interval until ctx is done.
func (m *MemoryCache) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := m.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			m.Cleanup()
		}
	}
}

func (m *MemoryCache) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *MemoryCache) Stats() map[string]interface{} {
	return map[string]interface{}{
		"entries": m.Len(),
	}
}
