package embedding

import (
	"context"

	"github.com/relicta/semrank/internal/cache"
)

// CachedEmbedder layers a TTL cache over an Embedder. Both indexing and query
// embedding go through the same instance, so identical text shares one cache
// entry regardless of which path requested it first.
type CachedEmbedder struct {
	inner Embedder
	cache *cache.Cache
}

// NewCachedEmbedder wraps inner with c.
func NewCachedEmbedder(inner Embedder, c *cache.Cache) *CachedEmbedder {
	return &CachedEmbedder{inner: inner, cache: c}
}

// Embed returns the cached embedding for text when fresh, otherwise fetches
// from the inner embedder and caches the result. A cache write failure is not
// fatal; the fetched embedding is still returned.
func (e *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if vec, ok := e.cache.Get(ctx, text); ok {
		return vec, nil
	}
	vec, err := e.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	_ = e.cache.Put(ctx, text, vec)
	return vec, nil
}

// Dimensions returns the inner embedder's dimension.
func (e *CachedEmbedder) Dimensions() int {
	return e.inner.Dimensions()
}

// Close closes the inner embedder.
func (e *CachedEmbedder) Close() error {
	return e.inner.Close()
}
