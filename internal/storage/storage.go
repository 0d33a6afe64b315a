// Package storage defines the persistence interface for items and their embeddings.
package storage

import (
	"context"

	"github.com/relicta/semrank/internal/models"
)

// VectorRecord pairs an item ID with its stored embedding.
type VectorRecord struct {
	ItemID    string
	Embedding []float32
}

// Storage persists items, per-item embeddings, and cached embeddings.
type Storage interface {
	// Item operations
	CreateItem(ctx context.Context, item *models.Item) error
	GetItem(ctx context.Context, id string) (*models.Item, error)
	UpdateItem(ctx context.Context, item *models.Item) error
	DeleteItem(ctx context.Context, id string) error
	ListItems(ctx context.Context, offset, limit int) ([]*models.Item, error)

	// Item vector operations. A vector is written only after a successful
	// embedding fetch and overwritten whenever the item's text changes.
	SetItemVector(ctx context.Context, itemID string, embedding []float32) error
	GetItemVector(ctx context.Context, itemID string) ([]float32, bool, error)
	DeleteItemVector(ctx context.Context, itemID string) error

	// ListPublishedVectors returns the stored vectors of currently published
	// items, ordered by item creation time descending then ID. Vectors of
	// unpublished items are left in place but never returned here.
	ListPublishedVectors(ctx context.Context) ([]*VectorRecord, error)

	// ListPublishedMissingVector returns up to limit published items that
	// have no stored vector, optionally filtered by content type. Used by
	// the administrative backfill.
	ListPublishedMissingVector(ctx context.Context, contentType string, limit int) ([]*models.Item, error)

	// Stats
	CountItems(ctx context.Context) (int64, error)
	CountVectors(ctx context.Context) (int64, error)

	Close() error
}
