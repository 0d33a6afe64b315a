package embedding

import (
	"context"
	"hash/fnv"
	"math"

	"github.com/relicta/semrank/pkg/utils"
)

// MockEmbedder is a deterministic embedder for tests. It returns a fixed-dimension
// unit vector derived from the text hash so that the same text always gets the
// same embedding.
type MockEmbedder struct {
	dimensions int
	// Fixed, when non-nil, maps exact texts to canned vectors.
	Fixed map[string][]float32
	// Fail, when set, makes every Embed call return this error.
	Fail error
	// Calls counts Embed invocations that reached the mock (i.e. cache misses).
	Calls int
}

// NewMockEmbedder returns an embedder producing deterministic embeddings of the given dimensions.
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = 1536
	}
	return &MockEmbedder{dimensions: dimensions}
}

// Embed returns the canned vector for text if one is fixed, otherwise a
// deterministic hash-derived embedding.
func (e *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.Calls++
	if e.Fail != nil {
		return nil, e.Fail
	}
	if v, ok := e.Fixed[text]; ok {
		return v, nil
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(text))
	seed := int(h.Sum32() % 10000)
	emb := make([]float32, e.dimensions)
	for i := 0; i < e.dimensions; i++ {
		emb[i] = float32(math.Sin(float64(seed*(i+1)))*0.1 + 0.01)
	}
	utils.NormalizeL2(emb)
	return emb, nil
}

// Dimensions returns the embedding dimension.
func (e *MockEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op for MockEmbedder.
func (e *MockEmbedder) Close() error {
	return nil
}
