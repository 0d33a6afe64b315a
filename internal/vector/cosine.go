// Package vector provides cosine similarity scoring between embeddings.
package vector

import (
	"errors"
	"math"
)

// ErrDimensionMismatch is returned when two vectors of different length are
// compared. Embeddings are only comparable when produced by the same model,
// so a mismatch indicates stale data; callers exclude the pair rather than
// abort the ranking pass.
var ErrDimensionMismatch = errors.New("vector: dimension mismatch")

// ErrZeroVector is returned when either vector has zero magnitude, for which
// cosine similarity is undefined. Callers treat the pair as similarity 0 and
// exclude it from results.
var ErrZeroVector = errors.New("vector: zero magnitude")

// Cosine returns the cosine similarity of a and b in [-1, 1]:
// dot(a,b) / (|a| * |b|).
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) || len(a) == 0 {
		return 0, ErrDimensionMismatch
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0, ErrZeroVector
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), nil
}
