// Package keyword provides the default keyword ranking, used when the
// semantic path is unavailable.
package keyword

import "context"

// Result is a keyword search hit.
type Result struct {
	ID    string
	Score float64
}

// Index is the keyword index over item titles and bodies. Search returns at
// most limit hits along with the total match count, which may exceed limit.
type Index interface {
	Index(ctx context.Context, id string, title, body string) error
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, query string, limit int) ([]*Result, int, error)
	Close() error
}
