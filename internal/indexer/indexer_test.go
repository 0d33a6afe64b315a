package indexer

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/relicta/semrank/internal/cache"
	"github.com/relicta/semrank/internal/embedding"
	"github.com/relicta/semrank/internal/keyword"
	"github.com/relicta/semrank/internal/models"
	"github.com/relicta/semrank/internal/storage"
)

type fixture struct {
	store *storage.SQLiteStorage
	mock  *embedding.MockEmbedder
	kw    keyword.Index
	idx   *Indexer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewSQLiteStorage(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })

	kw, err := keyword.NewBleveIndex(filepath.Join(dir, "bleve"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = kw.Close() })

	mock := embedding.NewMockEmbedder(8)
	cached := embedding.NewCachedEmbedder(mock, cache.New(store, time.Hour))
	return &fixture{
		store: store,
		mock:  mock,
		kw:    kw,
		idx:   New(store, cached, kw),
	}
}

func TestIndexer_publishStoresVector(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item, err := f.idx.Upsert(ctx, &models.ItemInput{
		Title:  "Quantum",
		Body:   "qubits and gates",
		Status: models.StatusPublished,
	})
	if err != nil {
		t.Fatal(err)
	}
	if item.ID == "" {
		t.Fatal("ID should be assigned")
	}
	vec, ok, err := f.store.GetItemVector(ctx, item.ID)
	if err != nil || !ok {
		t.Fatalf("vector: ok=%v err=%v", ok, err)
	}
	if len(vec) != 8 {
		t.Errorf("vector length: got %d", len(vec))
	}
}

func TestIndexer_draftNotEmbedded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item, err := f.idx.Upsert(ctx, &models.ItemInput{Body: "draft text"})
	if err != nil {
		t.Fatal(err)
	}
	if item.Status != models.StatusDraft {
		t.Errorf("default status: got %s", item.Status)
	}
	if _, ok, _ := f.store.GetItemVector(ctx, item.ID); ok {
		t.Error("draft item should not receive a vector")
	}
	if f.mock.Calls != 0 {
		t.Errorf("provider calls: got %d, want 0", f.mock.Calls)
	}
}

func TestIndexer_revisionSkipped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item, err := f.idx.Upsert(ctx, &models.ItemInput{
		Body:     "revision body",
		Status:   models.StatusPublished,
		Revision: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := f.store.GetItemVector(ctx, item.ID); ok {
		t.Error("revision snapshot should not be embedded")
	}
}

func TestIndexer_reindexIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	input := &models.ItemInput{ID: "a", Title: "T", Body: "unchanged", Status: models.StatusPublished}
	if _, err := f.idx.Upsert(ctx, input); err != nil {
		t.Fatal(err)
	}
	first, _, _ := f.store.GetItemVector(ctx, "a")

	if _, err := f.idx.Upsert(ctx, input); err != nil {
		t.Fatal(err)
	}
	second, _, _ := f.store.GetItemVector(ctx, "a")

	if f.mock.Calls != 1 {
		t.Errorf("provider calls: got %d, want 1 (unchanged text should hit cache)", f.mock.Calls)
	}
	if len(first) != len(second) {
		t.Fatal("vector changed across idempotent re-index")
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatal("vector changed across idempotent re-index")
		}
	}
}

func TestIndexer_editedTextReembedded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.idx.Upsert(ctx, &models.ItemInput{ID: "a", Body: "first", Status: models.StatusPublished}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.idx.Upsert(ctx, &models.ItemInput{ID: "a", Body: "second", Status: models.StatusPublished}); err != nil {
		t.Fatal(err)
	}
	if f.mock.Calls != 2 {
		t.Errorf("provider calls: got %d, want 2 (edit must re-embed)", f.mock.Calls)
	}
}

func TestIndexer_embedFailureSilentSkip(t *testing.T) {
	f := newFixture(t)
	f.mock.Fail = embedding.ErrProviderUnavailable
	ctx := context.Background()

	item, err := f.idx.Upsert(ctx, &models.ItemInput{Body: "text", Status: models.StatusPublished})
	if err != nil {
		t.Fatalf("embed failure must not surface from the publish path: %v", err)
	}
	if _, ok, _ := f.store.GetItemVector(ctx, item.ID); ok {
		t.Error("failed embed should leave the item without a vector")
	}
}

func TestIndexer_unpublishLeavesVectorInPlace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.idx.Upsert(ctx, &models.ItemInput{ID: "a", Body: "text", Status: models.StatusPublished}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.idx.Upsert(ctx, &models.ItemInput{ID: "a", Body: "text", Status: models.StatusDraft}); err != nil {
		t.Fatal(err)
	}
	// The stale vector stays stored but is filtered from ranking candidates.
	if _, ok, _ := f.store.GetItemVector(ctx, "a"); !ok {
		t.Error("unpublish should not delete the stored vector")
	}
	records, err := f.store.ListPublishedVectors(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 0 {
		t.Errorf("unpublished item must not appear among candidates: %+v", records)
	}
}

func TestIndexer_unpublishRemovesKeywordEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.idx.Upsert(ctx, &models.ItemInput{
		ID: "a", Title: "quantum computing", Body: "introduction to qubits", Status: models.StatusPublished,
	}); err != nil {
		t.Fatal(err)
	}
	hits, _, err := f.kw.Search(ctx, "quantum", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 {
		t.Fatalf("published item should be keyword-searchable, got %d hits", len(hits))
	}

	if _, err := f.idx.Upsert(ctx, &models.ItemInput{
		ID: "a", Title: "quantum computing", Body: "introduction to qubits", Status: models.StatusDraft,
	}); err != nil {
		t.Fatal(err)
	}
	hits, _, err = f.kw.Search(ctx, "quantum", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 0 {
		t.Errorf("demoted item must leave the keyword index, got %+v", hits)
	}
}

func TestIndexer_updateWithoutStatusKeepsPublished(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.idx.Upsert(ctx, &models.ItemInput{
		ID: "a", Body: "original text", Status: models.StatusPublished,
	}); err != nil {
		t.Fatal(err)
	}
	item, err := f.idx.Upsert(ctx, &models.ItemInput{ID: "a", Body: "edited text"})
	if err != nil {
		t.Fatal(err)
	}
	if item.Status != models.StatusPublished {
		t.Errorf("status after update without status: got %s, want published", item.Status)
	}
	records, err := f.store.ListPublishedVectors(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Errorf("item should remain a ranking candidate, got %d records", len(records))
	}
}

func TestIndexer_Backfill(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Published without vectors (created while the provider was failing).
	f.mock.Fail = embedding.ErrProviderUnavailable
	for _, id := range []string{"a", "b", "c"} {
		if _, err := f.idx.Upsert(ctx, &models.ItemInput{ID: id, Body: "body " + id, Status: models.StatusPublished}); err != nil {
			t.Fatal(err)
		}
	}
	f.mock.Fail = nil

	n, err := f.idx.Backfill(ctx, "", 2)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("backfill count: got %d, want 2 (cap applies)", n)
	}
	n, err = f.idx.Backfill(ctx, "", 50)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("second backfill: got %d, want the 1 remaining item", n)
	}
}

func TestIndexer_Delete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.idx.Upsert(ctx, &models.ItemInput{ID: "a", Body: "text", Status: models.StatusPublished}); err != nil {
		t.Fatal(err)
	}
	if err := f.idx.Delete(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.store.GetItem(ctx, "a"); err == nil {
		t.Error("item should be gone")
	}
	if _, ok, _ := f.store.GetItemVector(ctx, "a"); ok {
		t.Error("vector should be gone with the item")
	}
}
