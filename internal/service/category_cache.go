package service

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/quillpress/internal/db"
)

// UnknownCategoryName is shown for ids with no matching category.
const UnknownCategoryName = "Unknown"

type categoryGetter interface {
	Get(ctx context.Context, id string) (*db.Category, error)
}

// CategoryNameCache 缓存分类 id 到名称的映射，进程内只构造一次并注入给使用方。
// 条目懒加载，永不过期。
type CategoryNameCache struct {
	categories categoryGetter

	mu    sync.RWMutex
	names map[string]string
	group singleflight.Group
}

func NewCategoryNameCache(categories categoryGetter) *CategoryNameCache {
	return &CategoryNameCache{
		categories: categories,
		names:      make(map[string]string),
	}
}

// Name resolves id to a display name. Missing categories resolve to
// UnknownCategoryName and stay cached; lookups that fail on the store are
// retried on the next call.
func (c *CategoryNameCache) Name(ctx context.Context, id string) string {
	c.mu.RLock()
	name, ok := c.names[id]
	c.mu.RUnlock()
	if ok {
		return name
	}

	v, _, _ := c.group.Do(id, func() (any, error) {
		c.mu.RLock()
		name, ok := c.names[id]
		c.mu.RUnlock()
		if ok {
			return name, nil
		}

		category, err := c.categories.Get(ctx, id)
		switch {
		case err == nil:
			name = category.Name
		case errors.Is(err, ErrCategoryNotFound):
			name = UnknownCategoryName
		default:
			log.Warn().Err(err).Str("category_id", id).Msg("category name lookup failed")
			return UnknownCategoryName, nil
		}

		c.mu.Lock()
		c.names[id] = name
		c.mu.Unlock()
		return name, nil
	})
	return v.(string)
}

// Names resolves several ids, preserving order.
func (c *CategoryNameCache) Names(ctx context.Context, ids []string) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = c.Name(ctx, id)
	}
	return out
}

// Len reports how many ids are cached.
func (c *CategoryNameCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.names)
}
