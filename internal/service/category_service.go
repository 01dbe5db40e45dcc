package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/quillpress/internal/db"
	"github.com/quillpress/internal/docstore"
)

var (
	ErrCategoryNotFound     = errors.New("category not found")
	ErrCategoryInUse        = errors.New("category is referenced by posts")
	ErrCategoryNameRequired = errors.New("category name is required")
	ErrNilCategory          = errors.New("category is nil")
)

// CategoryService wraps category related operations.
type CategoryService struct {
	store docstore.Store
}

// NewCategoryService creates a CategoryService instance.
func NewCategoryService(store docstore.Store) *CategoryService {
	return &CategoryService{store: store}
}

// Create inserts a category under a fresh id.
func (s *CategoryService) Create(ctx context.Context, name, description string) (*db.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrCategoryNameRequired
	}

	category := db.Category{
		ID:          uuid.NewString(),
		Name:        name,
		Description: strings.TrimSpace(description),
	}
	if err := s.store.Set(ctx, db.CollectionCategories, category.ID, category.ToDocument()); err != nil {
		log.Error().Err(err).Str("category", name).Msg("create category failed")
		return nil, fmt.Errorf("create category: %w: %w", ErrStoreFailure, err)
	}
	return &category, nil
}

func (s *CategoryService) Get(ctx context.Context, id string) (*db.Category, error) {
	doc, err := s.store.Get(ctx, db.CollectionCategories, id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrCategoryNotFound
		}
		log.Error().Err(err).Str("category_id", id).Msg("get category failed")
		return nil, fmt.Errorf("get category: %w: %w", ErrStoreFailure, err)
	}
	category := db.CategoryFromDocument(id, doc)
	return &category, nil
}

// List returns every category in store order. Store failures yield an
// empty list.
func (s *CategoryService) List(ctx context.Context) []db.Category {
	snapshots, err := s.store.Query(ctx, docstore.Query{Collection: db.CollectionCategories})
	if err != nil {
		log.Error().Err(err).Msg("list categories failed")
		return []db.Category{}
	}

	categories := make([]db.Category, 0, len(snapshots))
	for _, snap := range snapshots {
		categories = append(categories, db.CategoryFromDocument(snap.ID, snap.Data))
	}
	return categories
}

// Delete removes a category unless some post still references it.
//
// The reference check is a single existence query limited to one match and
// relies on the store evaluating array-contains over every post.
func (s *CategoryService) Delete(ctx context.Context, category *db.Category) error {
	if category == nil {
		return ErrNilCategory
	}

	q := docstore.Query{Collection: db.CollectionPosts, Limit: 1}.
		WhereArrayContains(db.PostFieldCategories, category.ID)
	refs, err := s.store.Query(ctx, q)
	if err != nil {
		log.Error().Err(err).Str("category_id", category.ID).Msg("category reference check failed")
		return fmt.Errorf("delete category: %w: %w", ErrStoreFailure, err)
	}
	if len(refs) > 0 {
		return ErrCategoryInUse
	}

	if err := s.store.Delete(ctx, db.CollectionCategories, category.ID); err != nil {
		log.Error().Err(err).Str("category_id", category.ID).Msg("delete category failed")
		return fmt.Errorf("delete category: %w: %w", ErrStoreFailure, err)
	}
	return nil
}
