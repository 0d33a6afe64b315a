// Package indexer embeds published items and keeps their stored vectors and
// the keyword index current.
package indexer

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/relicta/semrank/internal/embedding"
	"github.com/relicta/semrank/internal/keyword"
	"github.com/relicta/semrank/internal/models"
	"github.com/relicta/semrank/internal/storage"
	"github.com/relicta/semrank/pkg/utils"
)

// Indexer stores items and embeds them on publish.
type Indexer struct {
	storage      storage.Storage
	embedder     embedding.Embedder
	keywordIndex keyword.Index
	logger       *zap.Logger // optional; when set, logs indexing events
}

// Option configures an Indexer.
type Option func(*Indexer)

// WithLogger sets a logger for indexing events (embed failures, skips).
func WithLogger(l *zap.Logger) Option {
	return func(idx *Indexer) { idx.logger = l }
}

// New creates an indexer. The embedder is expected to be the cached one so
// that re-indexing unchanged text does not hit the provider again.
func New(store storage.Storage, embedder embedding.Embedder, keywordIndex keyword.Index, opts ...Option) *Indexer {
	idx := &Indexer{
		storage:      store,
		embedder:     embedder,
		keywordIndex: keywordIndex,
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// EmbeddableText derives the text embedded for an item: sanitized title and
// body joined by a space. Query embedding uses the same sanitation, so cache
// keys line up across both paths.
func EmbeddableText(title, body string) string {
	return utils.Sanitize(title + " " + body)
}

// Upsert creates or updates an item and, for a real publish event, triggers
// embedding. Revision snapshots are stored without touching indices.
func (idx *Indexer) Upsert(ctx context.Context, input *models.ItemInput) (*models.Item, error) {
	if input.ID == "" {
		input.ID = uuid.New().String()
	}
	item := &models.Item{
		ID:          input.ID,
		Title:       input.Title,
		Body:        input.Body,
		ContentType: input.ContentType,
		Status:      input.Status,
	}

	if existing, err := idx.storage.GetItem(ctx, item.ID); err == nil {
		item.CreatedAt = existing.CreatedAt
		// An update that omits status keeps the stored one, so editing a
		// published item without restating "published" does not demote it.
		if item.Status == "" {
			item.Status = existing.Status
		}
		if err := idx.storage.UpdateItem(ctx, item); err != nil {
			return nil, fmt.Errorf("failed to update item: %w", err)
		}
	} else {
		if item.Status == "" {
			item.Status = models.StatusDraft
		}
		if err := idx.storage.CreateItem(ctx, item); err != nil {
			return nil, fmt.Errorf("failed to store item: %w", err)
		}
	}

	if input.Revision {
		if idx.logger != nil {
			idx.logger.Debug("skipping revision snapshot", zap.String("id", item.ID))
		}
		return item, nil
	}
	if err := idx.Index(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// Index embeds a published item and persists its vector. A non-published item
// is not embedded and is removed from the keyword index, since an earlier
// publish may have placed it there. An embedding failure is logged and
// swallowed: the item stays without a vector and is excluded from ranking
// until the next attempt (edit or backfill). The keyword index is updated
// regardless, so the fallback ranking still sees the item.
func (idx *Indexer) Index(ctx context.Context, item *models.Item) error {
	if !item.Published() {
		if err := idx.keywordIndex.Delete(ctx, item.ID); err != nil {
			return fmt.Errorf("failed to remove keywords: %w", err)
		}
		if idx.logger != nil {
			idx.logger.Debug("skipping non-published item", zap.String("id", item.ID), zap.String("status", item.Status))
		}
		return nil
	}

	if err := idx.keywordIndex.Index(ctx, item.ID, item.Title, item.Body); err != nil {
		return fmt.Errorf("failed to index keywords: %w", err)
	}

	text := EmbeddableText(item.Title, item.Body)
	vec, err := idx.embedder.Embed(ctx, text)
	if err != nil {
		if idx.logger != nil {
			idx.logger.Warn("embedding failed, item left without vector",
				zap.String("id", item.ID), zap.Error(err))
		}
		return nil
	}
	if err := idx.storage.SetItemVector(ctx, item.ID, vec); err != nil {
		return fmt.Errorf("failed to store item vector: %w", err)
	}
	if idx.logger != nil {
		idx.logger.Debug("item embedded", zap.String("id", item.ID), zap.Int("dimensions", len(vec)))
	}
	return nil
}

// Backfill indexes up to limit published items that lack a vector, optionally
// filtered by content type. Returns the number of items that gained a vector.
// Individual embed failures do not stop the sweep.
func (idx *Indexer) Backfill(ctx context.Context, contentType string, limit int) (int, error) {
	items, err := idx.storage.ListPublishedMissingVector(ctx, contentType, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to list items missing vectors: %w", err)
	}
	n := 0
	for _, item := range items {
		if err := idx.Index(ctx, item); err != nil {
			return n, err
		}
		if _, ok, err := idx.storage.GetItemVector(ctx, item.ID); err == nil && ok {
			n++
		}
	}
	if idx.logger != nil {
		idx.logger.Info("backfill complete", zap.Int("candidates", len(items)), zap.Int("embedded", n))
	}
	return n, nil
}

// Delete removes an item from storage, its vector, and the keyword index.
func (idx *Indexer) Delete(ctx context.Context, id string) error {
	if err := idx.keywordIndex.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete from keyword index: %w", err)
	}
	if err := idx.storage.DeleteItem(ctx, id); err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	return nil
}
