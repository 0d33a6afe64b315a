// Package ranking orders candidate items by cosine similarity to a query embedding.
package ranking

import (
	"sort"

	"github.com/relicta/semrank/internal/vector"
)

// Candidate is an item eligible for ranking: an ID and its stored embedding.
type Candidate struct {
	ID        string
	Embedding []float32
}

// Scored is a ranked hit.
type Scored struct {
	ID    string
	Score float64
}

// Rank scores every candidate against query, keeps those with similarity at
// or above threshold (inclusive), and returns them ordered by score
// descending. Pairs the scorer rejects (dimension mismatch, zero magnitude)
// are excluded rather than failing the pass. The sort is stable: candidates
// with equal scores keep their input order, so the result is deterministic
// for a given candidate enumeration.
func Rank(query []float32, candidates []Candidate, threshold float64) []Scored {
	scored := make([]Scored, 0, len(candidates))
	for _, c := range candidates {
		score, err := vector.Cosine(query, c.Embedding)
		if err != nil {
			continue
		}
		if score >= threshold {
			scored = append(scored, Scored{ID: c.ID, Score: score})
		}
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	return scored
}
