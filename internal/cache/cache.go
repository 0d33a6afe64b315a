// Package cache provides a TTL cache for embeddings keyed by a hash of the input text.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// DefaultTTL is the cache entry lifetime used when none is configured.
const DefaultTTL = 24 * time.Hour

// Store is the backing key/value store for cache entries. Implementations
// must treat entries as immutable: Put overwrites wholesale.
type Store interface {
	GetEntry(ctx context.Context, key string) (embedding []float32, createdAt time.Time, ok bool, err error)
	PutEntry(ctx context.Context, key string, embedding []float32, createdAt time.Time) error
	DeleteEntry(ctx context.Context, key string) error
}

// Cache wraps a Store with TTL expiry and text-hash key derivation.
// Entries older than the TTL are treated as absent and lazily deleted on read.
type Cache struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates a cache over store. A non-positive ttl falls back to DefaultTTL.
func New(store Store, ttl time.Duration, opts ...Option) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{store: store, ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key derives the cache key for text: hex SHA-256. Callers pass sanitized
// text so that the same content always maps to the same key.
func Key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached embedding for text, or ok=false if no entry exists,
// the entry has expired, or the store fails. Store failures are deliberately
// folded into a miss: the caller re-fetches from the provider either way.
func (c *Cache) Get(ctx context.Context, text string) ([]float32, bool) {
	key := Key(text)
	emb, createdAt, ok, err := c.store.GetEntry(ctx, key)
	if err != nil || !ok {
		return nil, false
	}
	if c.now().Sub(createdAt) >= c.ttl {
		_ = c.store.DeleteEntry(ctx, key)
		return nil, false
	}
	return emb, true
}

// Put stores the embedding for text, overwriting any existing entry and
// resetting its age.
func (c *Cache) Put(ctx context.Context, text string, embedding []float32) error {
	return c.store.PutEntry(ctx, Key(text), embedding, c.now())
}
