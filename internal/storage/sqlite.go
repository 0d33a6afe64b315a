package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/relicta/semrank/internal/models"
)

// SQLiteStorage implements Storage using SQLite. It also implements
// cache.Store, so the embedding cache survives restarts alongside the items.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS items (
		id TEXT PRIMARY KEY,
		title TEXT,
		body TEXT NOT NULL,
		content_type TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'draft',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_items_status ON items(status);
	CREATE INDEX IF NOT EXISTS idx_items_created_at ON items(created_at);

	CREATE TABLE IF NOT EXISTS item_vectors (
		item_id TEXT PRIMARY KEY,
		embedding TEXT NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS embedding_cache (
		key TEXT PRIMARY KEY,
		embedding TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);
	`
	_, err := db.Exec(schema)
	return err
}

// CreateItem inserts an item.
func (s *SQLiteStorage) CreateItem(ctx context.Context, item *models.Item) error {
	now := time.Now()
	item.CreatedAt = now
	item.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO items (id, title, body, content_type, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.Title, item.Body, item.ContentType, item.Status, item.CreatedAt, item.UpdatedAt,
	)
	return err
}

// GetItem returns an item by ID.
func (s *SQLiteStorage) GetItem(ctx context.Context, id string) (*models.Item, error) {
	var item models.Item
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, body, content_type, status, created_at, updated_at
		 FROM items WHERE id = ?`, id,
	).Scan(&item.ID, &item.Title, &item.Body, &item.ContentType, &item.Status, &item.CreatedAt, &item.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("item not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateItem updates an existing item.
func (s *SQLiteStorage) UpdateItem(ctx context.Context, item *models.Item) error {
	item.UpdatedAt = time.Now()

	result, err := s.db.ExecContext(ctx,
		`UPDATE items SET title = ?, body = ?, content_type = ?, status = ?, updated_at = ?
		 WHERE id = ?`,
		item.Title, item.Body, item.ContentType, item.Status, item.UpdatedAt, item.ID,
	)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("item not found: %s", item.ID)
	}
	return nil
}

// DeleteItem removes an item and its vector.
func (s *SQLiteStorage) DeleteItem(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM item_vectors WHERE item_id = ?`, id); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	return err
}

// ListItems returns items with offset and limit, newest first.
func (s *SQLiteStorage) ListItems(ctx context.Context, offset, limit int) ([]*models.Item, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, body, content_type, status, created_at, updated_at
		 FROM items ORDER BY created_at DESC, id LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanItems(rows)
}

// SetItemVector stores or overwrites the embedding for an item.
func (s *SQLiteStorage) SetItemVector(ctx context.Context, itemID string, embedding []float32) error {
	data, err := json.Marshal(embedding)
	if err != nil {
		return fmt.Errorf("failed to marshal embedding: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO item_vectors (item_id, embedding, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(item_id) DO UPDATE SET embedding = excluded.embedding, updated_at = excluded.updated_at`,
		itemID, string(data), time.Now(),
	)
	return err
}

// GetItemVector returns the stored embedding for an item, or ok=false when none exists.
func (s *SQLiteStorage) GetItemVector(ctx context.Context, itemID string) ([]float32, bool, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT embedding FROM item_vectors WHERE item_id = ?`, itemID,
	).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var embedding []float32
	if err := json.Unmarshal([]byte(data), &embedding); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal embedding: %w", err)
	}
	return embedding, true, nil
}

// DeleteItemVector removes the stored embedding for an item.
func (s *SQLiteStorage) DeleteItemVector(ctx context.Context, itemID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM item_vectors WHERE item_id = ?`, itemID)
	return err
}

// ListPublishedVectors returns vectors of published items, newest item first.
// Stale vectors of unpublished items are filtered here, not deleted.
func (s *SQLiteStorage) ListPublishedVectors(ctx context.Context) ([]*VectorRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT v.item_id, v.embedding
		 FROM item_vectors v
		 JOIN items i ON i.id = v.item_id
		 WHERE i.status = ?
		 ORDER BY i.created_at DESC, i.id`,
		models.StatusPublished,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*VectorRecord
	for rows.Next() {
		var rec VectorRecord
		var data string
		if err := rows.Scan(&rec.ItemID, &data); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(data), &rec.Embedding); err != nil {
			return nil, fmt.Errorf("failed to unmarshal embedding for %s: %w", rec.ItemID, err)
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}

// ListPublishedMissingVector returns up to limit published items without a stored vector.
func (s *SQLiteStorage) ListPublishedMissingVector(ctx context.Context, contentType string, limit int) ([]*models.Item, error) {
	query := `SELECT i.id, i.title, i.body, i.content_type, i.status, i.created_at, i.updated_at
		 FROM items i
		 LEFT JOIN item_vectors v ON v.item_id = i.id
		 WHERE i.status = ? AND v.item_id IS NULL`
	args := []interface{}{models.StatusPublished}
	if contentType != "" {
		query += ` AND i.content_type = ?`
		args = append(args, contentType)
	}
	query += ` ORDER BY i.created_at DESC, i.id LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanItems(rows)
}

func scanItems(rows *sql.Rows) ([]*models.Item, error) {
	var items []*models.Item
	for rows.Next() {
		var item models.Item
		if err := rows.Scan(&item.ID, &item.Title, &item.Body, &item.ContentType, &item.Status, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, &item)
	}
	return items, rows.Err()
}

// CountItems returns the total number of items.
func (s *SQLiteStorage) CountItems(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`).Scan(&count)
	return count, err
}

// CountVectors returns the number of stored item vectors.
func (s *SQLiteStorage) CountVectors(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM item_vectors`).Scan(&count)
	return count, err
}

// GetEntry implements cache.Store.
func (s *SQLiteStorage) GetEntry(ctx context.Context, key string) ([]float32, time.Time, bool, error) {
	var data string
	var createdAt time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT embedding, created_at FROM embedding_cache WHERE key = ?`, key,
	).Scan(&data, &createdAt)
	if err == sql.ErrNoRows {
		return nil, time.Time{}, false, nil
	}
	if err != nil {
		return nil, time.Time{}, false, err
	}
	var embedding []float32
	if err := json.Unmarshal([]byte(data), &embedding); err != nil {
		return nil, time.Time{}, false, fmt.Errorf("failed to unmarshal cached embedding: %w", err)
	}
	return embedding, createdAt, true, nil
}

// PutEntry implements cache.Store, overwriting any entry under the same key.
func (s *SQLiteStorage) PutEntry(ctx context.Context, key string, embedding []float32, createdAt time.Time) error {
	data, err := json.Marshal(embedding)
	if err != nil {
		return fmt.Errorf("failed to marshal embedding: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO embedding_cache (key, embedding, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET embedding = excluded.embedding, created_at = excluded.created_at`,
		key, string(data), createdAt,
	)
	return err
}

// DeleteEntry implements cache.Store.
func (s *SQLiteStorage) DeleteEntry(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM embedding_cache WHERE key = ?`, key)
	return err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
