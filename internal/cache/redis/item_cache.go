package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/fixedmarket/internal/domain"
)

const itemTTL = 5 * time.Minute

// ItemCache implements domain.ItemCache with JSON-serialized Item values.
// The store remains the source of truth; every lifecycle write invalidates
// the cached entry.
//
// Key schema:
//
//	cache:item:{id} - JSON-encoded Item
type ItemCache struct {
	rdb *redis.Client
}

// NewItemCache creates an ItemCache backed by the given Client.
func NewItemCache(c *Client) *ItemCache {
	return &ItemCache{rdb: c.Underlying()}
}

func itemCacheKey(id int64) string {
	return "cache:item:" + strconv.FormatInt(id, 10)
}

// Set stores an Item with the cache TTL.
func (ic *ItemCache) Set(ctx context.Context, item domain.Item) error {
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("redis: marshal item %d: %w", item.ID, err)
	}
	if err := ic.rdb.Set(ctx, itemCacheKey(item.ID), data, itemTTL).Err(); err != nil {
		return fmt.Errorf("redis: set item %d: %w", item.ID, err)
	}
	return nil
}

// Get retrieves an Item by id. It returns domain.ErrNotFound on a miss.
func (ic *ItemCache) Get(ctx context.Context, id int64) (domain.Item, error) {
	data, err := ic.rdb.Get(ctx, itemCacheKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Item{}, domain.ErrNotFound
		}
		return domain.Item{}, fmt.Errorf("redis: get item %d: %w", id, err)
	}

	var item domain.Item
	if err := json.Unmarshal(data, &item); err != nil {
		return domain.Item{}, fmt.Errorf("redis: unmarshal item %d: %w", id, err)
	}
	return item, nil
}

// Invalidate removes the cached entry for id.
func (ic *ItemCache) Invalidate(ctx context.Context, id int64) error {
	if err := ic.rdb.Del(ctx, itemCacheKey(id)).Err(); err != nil {
		return fmt.Errorf("redis: invalidate item %d: %w", id, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.ItemCache = (*ItemCache)(nil)
