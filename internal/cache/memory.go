package cache

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache is an in-process Cache used when no Redis server is configured.
type MemoryCache struct {
	store *gocache.Cache
	stop  chan struct{}
	done  chan struct{}
	once  sync.Once
}

// NewMemoryCache creates a MemoryCache whose expired entries are purged every
// cleanupInterval until Close is called. A non-positive interval starts no
// purge goroutine; expired entries are then dropped lazily on read.
func NewMemoryCache(cleanupInterval time.Duration) *MemoryCache {
	c := &MemoryCache{store: gocache.New(gocache.NoExpiration, 0)}
	if cleanupInterval > 0 {
		c.stop = make(chan struct{})
		c.done = make(chan struct{})
		go c.purge(cleanupInterval)
	}
	return c
}

func (c *MemoryCache) purge(interval time.Duration) {
	defer close(c.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.store.DeleteExpired()
		case <-c.stop:
			return
		}
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	v, found := c.store.Get(key)
	if !found {
		return nil, false
	}
	data, ok := v.([]byte)
	return data, ok
}

func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	c.store.Set(key, stored, ttl)
}

func (c *MemoryCache) Delete(_ context.Context, key string) {
	c.store.Delete(key)
}

// Len reports the number of entries, expired ones included until purged.
func (c *MemoryCache) Len() int {
	return c.store.ItemCount()
}

// Close stops the purge goroutine and waits for it to exit. It is safe to
// call more than once.
func (c *MemoryCache) Close() error {
	if c.stop == nil {
		return nil
	}
	c.once.Do(func() { close(c.stop) })
	<-c.done
	return nil
}
