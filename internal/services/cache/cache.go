// Package cache holds short-lived copies of rendered read responses.
package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultTTL applies when Set is called without one
const DefaultTTL = 30 * time.Second

// Cache stores opaque values by key
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Clear drops every entry. Writers call it after the store changes.
	Clear(ctx context.Context) error
}

// Stats counts cache traffic
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Size      int64
	MaxSize   int64
}

type entry struct {
	value  []byte
	expiry time.Time
	size   int64
}

// MemoryCache is a size bounded in-process Cache
type MemoryCache struct {
	mu       sync.RWMutex
	items    map[string]*entry
	maxBytes int64
	size     int64

	hits, misses, evictions atomic.Int64

	now    func() time.Time
	stopCh chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
}

// NewMemoryCache creates a cache holding at most maxSizeMB megabytes. A
// non-positive size means unbounded.
func NewMemoryCache(maxSizeMB int64) *MemoryCache {
	mc := &MemoryCache{
		items:    make(map[string]*entry),
		maxBytes: maxSizeMB * 1024 * 1024,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}

	mc.wg.Add(1)
	go mc.sweep(time.Minute)

	return mc
}

// Get returns a live entry
func (mc *MemoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	mc.mu.RLock()
	e, ok := mc.items[key]
	mc.mu.RUnlock()

	if !ok || mc.now().After(e.expiry) {
		mc.misses.Add(1)
		return nil, false
	}
	mc.hits.Add(1)
	return e.value, true
}

// Set stores value for ttl, evicting expired and then arbitrary entries
// when the size budget is exceeded
func (mc *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	e := &entry{value: value, expiry: mc.now().Add(ttl), size: int64(len(key) + len(value))}

	mc.mu.Lock()
	defer mc.mu.Unlock()

	if old, ok := mc.items[key]; ok {
		mc.size -= old.size
		delete(mc.items, key)
	}
	if mc.maxBytes > 0 {
		if e.size > mc.maxBytes {
			return nil
		}
		mc.makeRoomLocked(e.size)
	}
	mc.items[key] = e
	mc.size += e.size
	return nil
}

// Clear drops every entry
func (mc *MemoryCache) Clear(context.Context) error {
	mc.mu.Lock()
	mc.items = make(map[string]*entry)
	mc.size = 0
	mc.mu.Unlock()
	return nil
}

// Stats returns a snapshot of the counters
func (mc *MemoryCache) Stats() Stats {
	mc.mu.RLock()
	size := mc.size
	mc.mu.RUnlock()
	return Stats{
		Hits:      mc.hits.Load(),
		Misses:    mc.misses.Load(),
		Evictions: mc.evictions.Load(),
		Size:      size,
		MaxSize:   mc.maxBytes,
	}
}

// Stop ends the background sweep. It is safe to call more than once.
func (mc *MemoryCache) Stop() {
	mc.once.Do(func() { close(mc.stopCh) })
	mc.wg.Wait()
}

func (mc *MemoryCache) sweep(every time.Duration) {
	defer mc.wg.Done()
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			mc.mu.Lock()
			mc.removeExpiredLocked()
			mc.mu.Unlock()
		case <-mc.stopCh:
			return
		}
	}
}

func (mc *MemoryCache) removeExpiredLocked() {
	now := mc.now()
	for key, e := range mc.items {
		if now.After(e.expiry) {
			delete(mc.items, key)
			mc.size -= e.size
			mc.evictions.Add(1)
		}
	}
}

func (mc *MemoryCache) makeRoomLocked(needed int64) {
	if mc.size+needed <= mc.maxBytes {
		return
	}
	mc.removeExpiredLocked()
	for key, e := range mc.items {
		if mc.size+needed <= mc.maxBytes {
			return
		}
		delete(mc.items, key)
		mc.size -= e.size
		mc.evictions.Add(1)
	}
}
