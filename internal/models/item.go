// Package models defines core data structures for content items, queries, and search results.
package models

import "time"

// Item statuses. Only published items are embedded and eligible for ranking.
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

// Item represents a stored content item.
type Item struct {
	ID          string    `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Body        string    `json:"body" db:"body"`
	ContentType string    `json:"content_type,omitempty" db:"content_type"`
	Status      string    `json:"status" db:"status"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Published reports whether the item is in published state.
func (i *Item) Published() bool {
	return i.Status == StatusPublished
}

// ItemInput is the input for creating or updating an item. Revision marks the
// change as a draft/revision snapshot; revisions are stored but never
// re-embedded.
type ItemInput struct {
	ID          string `json:"id,omitempty"`
	Title       string `json:"title,omitempty"`
	Body        string `json:"body"`
	ContentType string `json:"content_type,omitempty"`
	// Status, when empty, defaults to draft on create and is inherited from
	// the stored item on update.
	Status   string `json:"status,omitempty"`
	Revision bool   `json:"revision,omitempty"`
}
