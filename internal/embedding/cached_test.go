package embedding

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/relicta/semrank/internal/cache"
)

func TestCachedEmbedder_hitSkipsProvider(t *testing.T) {
	ctx := context.Background()
	mock := NewMockEmbedder(4)
	e := NewCachedEmbedder(mock, cache.New(cache.NewMemoryStore(), time.Hour))

	a, err := e.Embed(ctx, "hello")
	if err != nil {
		t.Fatal(err)
	}
	b, err := e.Embed(ctx, "hello")
	if err != nil {
		t.Fatal(err)
	}
	if mock.Calls != 1 {
		t.Errorf("provider calls: got %d, want 1 (second call should hit cache)", mock.Calls)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatal("cached embedding differs from original")
		}
	}
}

func TestCachedEmbedder_expiredEntryRefetches(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	c := cache.New(cache.NewMemoryStore(), time.Hour, cache.WithClock(func() time.Time { return now }))
	mock := NewMockEmbedder(4)
	e := NewCachedEmbedder(mock, c)

	if _, err := e.Embed(ctx, "hello"); err != nil {
		t.Fatal(err)
	}
	now = now.Add(2 * time.Hour)
	if _, err := e.Embed(ctx, "hello"); err != nil {
		t.Fatal(err)
	}
	if mock.Calls != 2 {
		t.Errorf("provider calls: got %d, want 2 after TTL expiry", mock.Calls)
	}
}

func TestCachedEmbedder_providerFailurePropagates(t *testing.T) {
	ctx := context.Background()
	mock := NewMockEmbedder(4)
	mock.Fail = ErrProviderUnavailable
	e := NewCachedEmbedder(mock, cache.New(cache.NewMemoryStore(), time.Hour))

	if _, err := e.Embed(ctx, "hello"); !errors.Is(err, ErrProviderUnavailable) {
		t.Errorf("got %v, want ErrProviderUnavailable", err)
	}
}
