// cache_test.go exercises the L1 tier: TTL expiry, no-expiry entries and eviction.
package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock lets tests move time forward without sleeping.
type fakeClock struct{ t time.Time }

func (f *fakeClock) Now() time.Time          { return f.t }
func (f *fakeClock) Advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestCache(maxEntries int) (*Tiered, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	return New(Options{MaxEntries: maxEntries, Now: clock.Now}), clock
}

func TestTieredGetSet(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(0)

	c.Set(ctx, "k", map[string]string{"10": "Music"}, time.Hour)

	var got map[string]string
	require.True(t, c.Get(ctx, "k", &got))
	assert.Equal(t, "Music", got["10"])

	var missing map[string]string
	assert.False(t, c.Get(ctx, "absent", &missing))
}

func TestTieredExpiry(t *testing.T) {
	ctx := context.Background()
	c, clock := newTestCache(0)

	c.Set(ctx, "ttl", 42, time.Hour)
	c.Set(ctx, "forever", 7, NoExpiry)

	clock.Advance(59 * time.Minute)
	var n int
	assert.True(t, c.Get(ctx, "ttl", &n), "entry should survive before its TTL")

	clock.Advance(time.Minute)
	assert.False(t, c.Get(ctx, "ttl", &n), "entry should expire exactly at its TTL")

	clock.Advance(24 * 365 * time.Hour)
	require.True(t, c.Get(ctx, "forever", &n))
	assert.Equal(t, 7, n)
}

func TestTieredDelete(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(0)

	c.Set(ctx, "k", "v", time.Hour)
	c.Delete(ctx, "k")

	var s string
	assert.False(t, c.Get(ctx, "k", &s))
	assert.Equal(t, 0, c.Len())
}

func TestTieredEviction(t *testing.T) {
	ctx := context.Background()
	c, clock := newTestCache(2)

	c.Set(ctx, "pinned", 1, NoExpiry)
	c.Set(ctx, "short", 2, time.Minute)
	clock.Advance(time.Second)
	c.Set(ctx, "new", 3, time.Hour)

	assert.Equal(t, 2, c.Len())
	var n int
	assert.True(t, c.Get(ctx, "pinned", &n), "no-expiry entries are evicted last")
	assert.False(t, c.Get(ctx, "short", &n), "entry closest to expiry is evicted first")
	assert.True(t, c.Get(ctx, "new", &n))
}

func TestTieredOverwriteDoesNotEvict(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(2)

	c.Set(ctx, "a", 1, time.Hour)
	c.Set(ctx, "b", 2, time.Hour)
	c.Set(ctx, "a", 3, time.Hour)

	var n int
	assert.True(t, c.Get(ctx, "b", &n))
	require.True(t, c.Get(ctx, "a", &n))
	assert.Equal(t, 3, n)
}

func TestKey(t *testing.T) {
	a := Key("channels", "US", "UC1,UC2")
	b := Key("channels", "US", "UC1,UC2")
	c := Key("channels", "GB", "UC1,UC2")
	d := Key("categories", "US", "UC1,UC2")

	assert.Equal(t, a, b, "keys must be deterministic")
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, a, d, "namespace is part of the key")
	assert.Contains(t, a, "pf:channels:")
}

func TestNewWithBadRedisURLFallsBackToL1(t *testing.T) {
	c := New(Options{RedisURL: "not a url"})
	defer c.Close()

	assert.False(t, c.Distributed())
	c.Set(context.Background(), "k", "v", time.Minute)
	var s string
	assert.True(t, c.Get(context.Background(), "k", &s))
}
