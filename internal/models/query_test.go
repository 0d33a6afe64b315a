package models

import "testing"

func TestSearchQuery_Validate(t *testing.T) {
	t.Run("empty query rejected", func(t *testing.T) {
		q := &SearchQuery{}
		if err := q.Validate(10, 100); err == nil {
			t.Error("expected error for empty query")
		}
	})

	t.Run("defaults applied", func(t *testing.T) {
		q := &SearchQuery{Query: "hello", Offset: -5}
		if err := q.Validate(10, 100); err != nil {
			t.Fatal(err)
		}
		if q.Limit != 10 {
			t.Errorf("limit: got %d, want 10", q.Limit)
		}
		if q.Offset != 0 {
			t.Errorf("offset: got %d, want 0", q.Offset)
		}
	})

	t.Run("limit capped", func(t *testing.T) {
		q := &SearchQuery{Query: "hello", Limit: 500}
		if err := q.Validate(10, 100); err != nil {
			t.Fatal(err)
		}
		if q.Limit != 100 {
			t.Errorf("limit: got %d, want 100", q.Limit)
		}
	})

	t.Run("threshold range checked", func(t *testing.T) {
		bad := 1.2
		q := &SearchQuery{Query: "hello", Threshold: &bad}
		if err := q.Validate(10, 100); err == nil {
			t.Error("expected error for threshold > 1")
		}
		ok := 0.5
		q = &SearchQuery{Query: "hello", Threshold: &ok}
		if err := q.Validate(10, 100); err != nil {
			t.Errorf("valid threshold rejected: %v", err)
		}
	})
}
