// Package embedding provides text embedding via a remote provider API.
package embedding

import (
	"context"
	"errors"
)

// ErrProviderUnavailable indicates a transport-level failure reaching the
// embedding provider (connection refused, DNS failure, timeout).
var ErrProviderUnavailable = errors.New("embedding: provider unavailable")

// ErrInvalidResponse indicates the provider answered but the response was not
// a success carrying a non-empty embedding vector.
var ErrInvalidResponse = errors.New("embedding: invalid provider response")

// Embedder produces vector embeddings for text. Implementations return a
// definite error for every failure; no failure escapes the boundary as a panic.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
	Close() error
}
