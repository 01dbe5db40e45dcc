package docstore

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupGormStore(t *testing.T) *GormStore {
	t.Helper()

	dsn := fmt.Sprintf("file:docstore-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	store, err := NewGormStore(gdb)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestGormStore_SetGetRoundTrip(t *testing.T) {
	store := setupGormStore(t)
	ctx := context.Background()

	created := time.Date(2024, 3, 1, 10, 30, 0, 123456789, time.UTC)
	doc := Document{
		"title":        "Hello",
		"is_published": true,
		"views":        42,
		"ratio":        0.5,
		"created_at":   created,
		"categories":   []string{"c1", "c2"},
		"author":       map[string]any{"id": "u1", "username": "ann"},
	}

	if err := store.Set(ctx, "posts", "p1", doc); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, err := store.Get(ctx, "posts", "p1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if got["title"] != "Hello" {
		t.Errorf("title = %v, want Hello", got["title"])
	}
	if got["is_published"] != true {
		t.Errorf("is_published = %v, want true", got["is_published"])
	}
	if got["views"] != int64(42) {
		t.Errorf("views = %#v, want int64(42)", got["views"])
	}
	if got["ratio"] != 0.5 {
		t.Errorf("ratio = %#v, want 0.5", got["ratio"])
	}
	ts, ok := got["created_at"].(time.Time)
	if !ok || !ts.Equal(created) {
		t.Errorf("created_at = %#v, want %v", got["created_at"], created)
	}
	cats, ok := got["categories"].([]any)
	if !ok || len(cats) != 2 || cats[0] != "c1" || cats[1] != "c2" {
		t.Errorf("categories = %#v", got["categories"])
	}
	author, ok := got["author"].(map[string]any)
	if !ok || author["username"] != "ann" {
		t.Errorf("author = %#v", got["author"])
	}
}

func TestGormStore_GetMissing(t *testing.T) {
	store := setupGormStore(t)

	_, err := store.Get(context.Background(), "posts", "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGormStore_SetReplaces(t *testing.T) {
	store := setupGormStore(t)
	ctx := context.Background()

	if err := store.Set(ctx, "categories", "c1", Document{"name": "Go", "description": "lang"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Set(ctx, "categories", "c1", Document{"name": "Golang"}); err != nil {
		t.Fatalf("replace: %v", err)
	}

	got, err := store.Get(ctx, "categories", "c1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got["name"] != "Golang" {
		t.Errorf("name = %v, want Golang", got["name"])
	}
	if _, ok := got["description"]; ok {
		t.Errorf("description should be gone after replace, got %v", got["description"])
	}
}

func TestGormStore_UpdateMergesFields(t *testing.T) {
	store := setupGormStore(t)
	ctx := context.Background()

	if err := store.Set(ctx, "posts", "p1", Document{"title": "Old", "content": "body"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Update(ctx, "posts", "p1", Document{"title": "New"}); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := store.Get(ctx, "posts", "p1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got["title"] != "New" {
		t.Errorf("title = %v, want New", got["title"])
	}
	if got["content"] != "body" {
		t.Errorf("content = %v, want body", got["content"])
	}
}

func TestGormStore_UpdateMissing(t *testing.T) {
	store := setupGormStore(t)

	err := store.Update(context.Background(), "posts", "nope", Document{"title": "x"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGormStore_UpdateRejectsBadField(t *testing.T) {
	store := setupGormStore(t)

	err := store.Update(context.Background(), "posts", "p1", Document{"a.b": "x"})
	if !errors.Is(err, ErrInvalidField) {
		t.Fatalf("expected ErrInvalidField, got %v", err)
	}
}

func TestGormStore_Delete(t *testing.T) {
	store := setupGormStore(t)
	ctx := context.Background()

	if err := store.Set(ctx, "posts", "p1", Document{"title": "x"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Delete(ctx, "posts", "p1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, "posts", "p1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.Delete(ctx, "posts", "p1"); err != nil {
		t.Fatalf("deleting a missing document should succeed, got %v", err)
	}
}

func TestGormStore_QueryFiltersAndOrders(t *testing.T) {
	store := setupGormStore(t)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	seed := []struct {
		id        string
		published bool
		cats      []string
		offset    time.Duration
	}{
		{"a", true, []string{"go"}, 1 * time.Hour},
		{"b", false, []string{"go", "db"}, 2 * time.Hour},
		{"c", true, []string{"db"}, 3 * time.Hour},
		{"d", true, []string{"go"}, 4 * time.Hour},
	}
	for _, s := range seed {
		doc := Document{
			"is_published": s.published,
			"categories":   s.cats,
			"timestamp":    base.Add(s.offset),
		}
		if err := store.Set(ctx, "posts", s.id, doc); err != nil {
			t.Fatalf("seed %s: %v", s.id, err)
		}
	}
	if err := store.Set(ctx, "other", "x", Document{"is_published": true}); err != nil {
		t.Fatalf("seed other collection: %v", err)
	}

	tests := []struct {
		name  string
		query Query
		want  []string
	}{
		{
			name:  "all newest first",
			query: Query{Collection: "posts", OrderBy: "timestamp", Direction: Descending},
			want:  []string{"d", "c", "b", "a"},
		},
		{
			name:  "ascending",
			query: Query{Collection: "posts", OrderBy: "timestamp", Direction: Ascending},
			want:  []string{"a", "b", "c", "d"},
		},
		{
			name:  "published only",
			query: Query{Collection: "posts", OrderBy: "timestamp", Direction: Descending}.Where("is_published", true),
			want:  []string{"d", "c", "a"},
		},
		{
			name:  "array contains",
			query: Query{Collection: "posts", OrderBy: "timestamp", Direction: Descending}.WhereArrayContains("categories", "go"),
			want:  []string{"d", "b", "a"},
		},
		{
			name: "combined with limit",
			query: Query{Collection: "posts", OrderBy: "timestamp", Direction: Descending, Limit: 1}.
				Where("is_published", true).
				WhereArrayContains("categories", "db"),
			want: []string{"c"},
		},
		{
			name:  "limit",
			query: Query{Collection: "posts", OrderBy: "timestamp", Direction: Descending, Limit: 2},
			want:  []string{"d", "c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.Query(ctx, tt.query)
			if err != nil {
				t.Fatalf("query: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d results, got %d", len(tt.want), len(got))
			}
			for i, id := range tt.want {
				if got[i].ID != id {
					t.Fatalf("result %d = %s, want %s", i, got[i].ID, id)
				}
			}
		})
	}
}

func TestGormStore_QueryOrdersLegacyNumericTimestamps(t *testing.T) {
	store := setupGormStore(t)
	ctx := context.Background()

	if err := store.Set(ctx, "posts", "old", Document{"timestamp": int64(1000)}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := store.Set(ctx, "posts", "older", Document{"timestamp": int64(10)}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	got, err := store.Query(ctx, Query{Collection: "posts", OrderBy: "timestamp", Direction: Descending})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 2 || got[0].ID != "old" || got[1].ID != "older" {
		t.Fatalf("unexpected order: %+v", got)
	}
}

func TestGormStore_QueryRejectsInvalidFields(t *testing.T) {
	store := setupGormStore(t)

	_, err := store.Query(context.Background(), Query{Collection: "posts", OrderBy: "timestamp'); DROP TABLE documents; --"})
	if !errors.Is(err, ErrInvalidField) {
		t.Fatalf("expected ErrInvalidField, got %v", err)
	}

	_, err = store.Query(context.Background(), Query{})
	if !errors.Is(err, ErrInvalidQuery) {
		t.Fatalf("expected ErrInvalidQuery, got %v", err)
	}
}
