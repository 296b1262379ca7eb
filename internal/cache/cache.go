// Package cache provides the key → (value, expiry) store shared by the
// category resolver, the channel enricher and the search result cache.
//
// Two tiers: L1 is an in-process map, L2 is an optional Redis instance so
// several API replicas can share channel lookups instead of each paying quota
// for them. Values are stored as JSON so both tiers hold the same bytes.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// NoExpiry marks entries that live for the lifetime of the process.
const NoExpiry time.Duration = 0

// Store is the cache contract the services depend on.
// Go Pattern: Define interfaces where they're used. Services accept a Store,
// so tests can hand them a plain Tiered cache with a fake clock.
type Store interface {
	Get(ctx context.Context, key string, dest any) bool
	Set(ctx context.Context, key string, value any, ttl time.Duration)
	Delete(ctx context.Context, key string)
}

// Options configures a Tiered cache.
type Options struct {
	RedisURL        string        // empty disables L2
	MaxEntries      int           // L1 bound; 0 means unbounded
	CleanupInterval time.Duration // 0 disables the background sweep
	Now             func() time.Time
}

// Tiered implements Store with an L1 map and an optional Redis L2.
type Tiered struct {
	mu         sync.Mutex
	entries    map[string]entry
	rdb        *redis.Client
	maxEntries int
	now        func() time.Time
	done       chan struct{}
	closeOnce  sync.Once
}

type entry struct {
	data      []byte
	expiresAt time.Time // zero means no expiry
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// New builds a Tiered cache. An unreachable Redis only disables L2.
func New(opts Options) *Tiered {
	c := &Tiered{
		entries:    make(map[string]entry),
		maxEntries: opts.MaxEntries,
		now:        opts.Now,
		done:       make(chan struct{}),
	}
	if c.now == nil {
		c.now = time.Now
	}

	if opts.RedisURL != "" {
		redisOpts, err := redis.ParseURL(opts.RedisURL)
		if err != nil {
			log.Printf("⚠️  Cache: invalid REDIS_URL, L2 disabled: %v", err)
		} else {
			rdb := redis.NewClient(redisOpts)
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			if err := rdb.Ping(ctx).Err(); err != nil {
				log.Printf("⚠️  Cache: redis unreachable, L2 disabled: %v", err)
				rdb.Close()
			} else {
				c.rdb = rdb
				log.Printf("✅ Cache: L2 redis connected (%s)", redisOpts.Addr)
			}
		}
	}

	if opts.CleanupInterval > 0 {
		go c.cleanupLoop(opts.CleanupInterval)
	}
	return c
}

// Key builds a deterministic cache key from parts.
func Key(namespace string, parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return fmt.Sprintf("pf:%s:%x", namespace, sum[:12])
}

// Get decodes the cached value for key into dest. L1 is checked first; an L2
// hit is copied back into L1.
func (c *Tiered) Get(ctx context.Context, key string, dest any) bool {
	c.mu.Lock()
	e, ok := c.entries[key]
	if ok && e.expired(c.now()) {
		delete(c.entries, key)
		ok = false
	}
	c.mu.Unlock()

	if ok {
		return json.Unmarshal(e.data, dest) == nil
	}

	if c.rdb == nil {
		return false
	}
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	if json.Unmarshal(data, dest) != nil {
		return false
	}

	// Redis owns the remaining TTL; mirror it so L1 never outlives L2.
	var expiresAt time.Time
	if ttl, err := c.rdb.TTL(ctx, key).Result(); err == nil && ttl > 0 {
		expiresAt = c.now().Add(ttl)
	}
	c.store(key, entry{data: data, expiresAt: expiresAt})
	return true
}

// Set stores value in both tiers. A ttl of NoExpiry keeps it until deleted.
func (c *Tiered) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		log.Printf("⚠️  Cache: cannot encode value for %s: %v", key, err)
		return
	}

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = c.now().Add(ttl)
	}
	c.store(key, entry{data: data, expiresAt: expiresAt})

	if c.rdb != nil {
		if err := c.rdb.Set(ctx, key, data, ttl).Err(); err != nil {
			log.Printf("⚠️  Cache: L2 set failed for %s: %v", key, err)
		}
	}
}

// Delete removes key from both tiers.
func (c *Tiered) Delete(ctx context.Context, key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()

	if c.rdb != nil {
		if err := c.rdb.Del(ctx, key).Err(); err != nil {
			log.Printf("⚠️  Cache: L2 delete failed for %s: %v", key, err)
		}
	}
}

// Len returns the number of L1 entries, expired ones included.
func (c *Tiered) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Distributed reports whether the Redis tier is active.
func (c *Tiered) Distributed() bool {
	return c.rdb != nil
}

// Close stops the sweep goroutine and releases the Redis client.
func (c *Tiered) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		if c.rdb != nil {
			err = c.rdb.Close()
		}
	})
	return err
}

func (c *Tiered) store(key string, e entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		c.evictLocked()
	}
	c.entries[key] = e
}

// evictLocked drops expired entries, then the entry closest to expiry.
// Entries without expiry are evicted last.
func (c *Tiered) evictLocked() {
	now := c.now()
	for k, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, k)
		}
	}
	if len(c.entries) < c.maxEntries {
		return
	}

	var victim string
	var soonest time.Time
	for k, e := range c.entries {
		if e.expiresAt.IsZero() {
			if victim == "" {
				victim = k
			}
			continue
		}
		if soonest.IsZero() || e.expiresAt.Before(soonest) {
			victim, soonest = k, e.expiresAt
		}
	}
	delete(c.entries, victim)
}

func (c *Tiered) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.mu.Lock()
			now := c.now()
			for k, e := range c.entries {
				if e.expired(now) {
					delete(c.entries, k)
				}
			}
			c.mu.Unlock()
		}
	}
}
