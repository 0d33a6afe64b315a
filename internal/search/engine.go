// Package search runs semantic search with a keyword fallback.
package search

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/relicta/semrank/internal/config"
	"github.com/relicta/semrank/internal/embedding"
	"github.com/relicta/semrank/internal/indexer"
	"github.com/relicta/semrank/internal/keyword"
	"github.com/relicta/semrank/internal/models"
	"github.com/relicta/semrank/internal/ranking"
	"github.com/relicta/semrank/internal/storage"
)

// Engine ranks published items by similarity to the query. When the query
// embedding cannot be obtained, it degrades to the default keyword ranking
// instead of surfacing an error to the searcher.
type Engine struct {
	storage      storage.Storage
	embedder     embedding.Embedder
	keywordIndex keyword.Index
	config       *config.SearchConfig
	logger       *zap.Logger
}

// NewEngine creates a search engine with the given dependencies. The embedder
// should be the same cached instance the indexer uses, so query text and item
// text share one cache. logger may be nil.
func NewEngine(
	store storage.Storage,
	embedder embedding.Embedder,
	keywordIndex keyword.Index,
	cfg *config.SearchConfig,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		storage:      store,
		embedder:     embedder,
		keywordIndex: keywordIndex,
		config:       cfg,
		logger:       logger,
	}
}

// Search validates the query and returns ranked results.
//
// A response with Mode "semantic" and NoMatches true means ranking ran and
// nothing cleared the threshold; the caller renders "no matches". Mode
// "keyword_fallback" means the semantic path was unavailable and default
// keyword ordering was substituted.
func (e *Engine) Search(ctx context.Context, query *models.SearchQuery) (*models.SearchResponse, error) {
	startTime := time.Now()
	if err := query.Validate(e.config.DefaultLimit, e.config.MaxLimit); err != nil {
		return nil, err
	}
	threshold := e.config.SimilarityThreshold
	if query.Threshold != nil {
		threshold = *query.Threshold
	}

	text := indexer.EmbeddableText(query.Query, "")
	queryVec, err := e.embedder.Embed(ctx, text)
	if err != nil {
		if e.logger != nil {
			e.logger.Warn("query embedding unavailable, falling back to keyword ranking",
				zap.String("query", query.Query), zap.Error(err))
		}
		return e.keywordFallback(ctx, query, startTime)
	}

	candidates, err := e.storage.ListPublishedVectors(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load candidate vectors: %w", err)
	}
	rankInput := make([]ranking.Candidate, len(candidates))
	for i, rec := range candidates {
		rankInput[i] = ranking.Candidate{ID: rec.ItemID, Embedding: rec.Embedding}
	}
	scored := ranking.Rank(queryVec, rankInput, threshold)

	response := &models.SearchResponse{
		Results:   []*models.SearchResult{},
		Total:     len(scored),
		Query:     query.Query,
		Mode:      models.ModeSemantic,
		NoMatches: len(scored) == 0,
	}
	e.fillPage(ctx, response, scoredPage(scored, query.Offset, query.Limit), query.Offset)
	response.QueryTime = time.Since(startTime).Milliseconds()
	return response, nil
}

// keywordFallback runs the default keyword ranking. An empty fallback result
// is not marked NoMatches: that flag is reserved for the semantic path.
func (e *Engine) keywordFallback(ctx context.Context, query *models.SearchQuery, startTime time.Time) (*models.SearchResponse, error) {
	hits, total, err := e.keywordIndex.Search(ctx, query.Query, query.Offset+query.Limit)
	if err != nil {
		return nil, fmt.Errorf("keyword fallback failed: %w", err)
	}
	scored := make([]ranking.Scored, len(hits))
	for i, h := range hits {
		scored[i] = ranking.Scored{ID: h.ID, Score: h.Score}
	}
	response := &models.SearchResponse{
		Results: []*models.SearchResult{},
		Total:   total,
		Query:   query.Query,
		Mode:    models.ModeKeywordFallback,
	}
	e.fillPage(ctx, response, scoredPage(scored, query.Offset, query.Limit), query.Offset)
	response.QueryTime = time.Since(startTime).Milliseconds()
	return response, nil
}

// scoredPage slices scored to the requested window.
func scoredPage(scored []ranking.Scored, offset, limit int) []ranking.Scored {
	start := offset
	end := offset + limit
	if start > len(scored) {
		start = len(scored)
	}
	if end > len(scored) {
		end = len(scored)
	}
	return scored[start:end]
}

// fillPage resolves scored IDs to items, preserving rank order. Items that
// disappeared or were demoted between ranking and fetch are skipped.
func (e *Engine) fillPage(ctx context.Context, response *models.SearchResponse, page []ranking.Scored, offset int) {
	for i, s := range page {
		item, err := e.storage.GetItem(ctx, s.ID)
		if err != nil {
			if e.logger != nil {
				e.logger.Debug("ranked item missing from storage", zap.String("id", s.ID), zap.Error(err))
			}
			continue
		}
		// Only published items are eligible; a hit may be stale if the item
		// was demoted after it entered an index.
		if !item.Published() {
			if e.logger != nil {
				e.logger.Debug("skipping non-published hit", zap.String("id", s.ID), zap.String("status", item.Status))
			}
			continue
		}
		response.Results = append(response.Results, &models.SearchResult{
			Item:  item,
			Score: s.Score,
			Rank:  offset + i + 1,
		})
	}
}
