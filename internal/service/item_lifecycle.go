// Package service implements the business logic of the fixed-price
// marketplace: the item lifecycle state machine and its authorization and
// timing guards.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/fixedmarket/internal/domain"
)

// DefaultRetention is how long a touched entry is guaranteed to survive in
// the store after each successful operation.
const DefaultRetention = 30 * 24 * time.Hour

// ItemLifecycle is the transactional core of the marketplace. Every public
// operation is a single invocation: auth check, read, validate, write,
// extend retention. Read-modify-write sections are serialized behind an
// in-process mutex because the store offers no transaction of its own;
// see the package tests for the invariants this protects.
type ItemLifecycle struct {
	store     domain.KVStore
	clock     domain.Clock
	gate      domain.AuthGate
	cache     domain.ItemCache
	bus       domain.EventBus
	retention time.Duration
	logger    *slog.Logger

	mu sync.Mutex
}

// Option customizes an ItemLifecycle.
type Option func(*ItemLifecycle)

// WithItemCache attaches a read-through cache consulted by ViewItem and
// invalidated on every write.
func WithItemCache(cache domain.ItemCache) Option {
	return func(l *ItemLifecycle) { l.cache = cache }
}

// WithEventBus attaches a bus that receives one event per committed
// transition.
func WithEventBus(bus domain.EventBus) Option {
	return func(l *ItemLifecycle) { l.bus = bus }
}

// WithRetention overrides the retention horizon applied by ExtendLifetime
// after each successful operation.
func WithRetention(d time.Duration) Option {
	return func(l *ItemLifecycle) { l.retention = d }
}

// NewItemLifecycle creates the lifecycle core over the given collaborators.
func NewItemLifecycle(
	store domain.KVStore,
	clock domain.Clock,
	gate domain.AuthGate,
	logger *slog.Logger,
	opts ...Option,
) *ItemLifecycle {
	l := &ItemLifecycle{
		store:     store,
		clock:     clock,
		gate:      gate,
		retention: DefaultRetention,
		logger:    logger.With(slog.String("component", "item_lifecycle")),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// ListItem creates a new fixed-price listing for seller and returns the
// assigned item id. Ids are strictly increasing starting at 1.
func (l *ItemLifecycle) ListItem(
	ctx context.Context,
	seller domain.Identity,
	price int64,
	description string,
	durationSeconds int64,
) (int64, error) {
	if err := l.gate.Require(ctx, seller); err != nil {
		return 0, fmt.Errorf("item_lifecycle: list: %w", err)
	}
	if price <= 0 {
		return 0, fmt.Errorf("item_lifecycle: list: %w", domain.ErrInvalidPrice)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	counter, err := l.readCounter(ctx)
	if err != nil {
		return 0, fmt.Errorf("item_lifecycle: list: read counter: %w", err)
	}
	itemID := counter + 1

	now := l.clock.Now()
	item := domain.Item{
		ID:          itemID,
		Seller:      seller,
		Price:       price,
		Description: description,
		Status:      domain.ItemStatusListed,
		Buyer:       nil,
		ListTime:    now,
		ExpiryTime:  now + durationSeconds,
	}

	if err := l.putItem(ctx, item); err != nil {
		return 0, fmt.Errorf("item_lifecycle: list: %w", err)
	}
	if err := l.writeCounter(ctx, itemID); err != nil {
		return 0, fmt.Errorf("item_lifecycle: list: write counter: %w", err)
	}
	if err := l.appendSellerIndex(ctx, seller, itemID); err != nil {
		return 0, fmt.Errorf("item_lifecycle: list: %w", err)
	}
	l.extend(ctx,
		domain.ItemKey(itemID),
		domain.ItemCounterKey(),
		domain.SellerItemsKey(seller),
	)

	l.publish(ctx, domain.EventItemListed, item, now)
	l.logger.InfoContext(ctx, "item listed",
		slog.Int64("item_id", itemID),
		slog.String("seller", string(seller)),
		slog.Int64("price", price),
		slog.Int64("expiry_time", item.ExpiryTime),
	)
	return itemID, nil
}

// BuyItem purchases the listed item at its fixed price. A purchase attempt
// on an expired listing reaps it: the item is persisted as unlisted before
// the call fails with ErrExpired. No payment settlement happens here.
func (l *ItemLifecycle) BuyItem(ctx context.Context, itemID int64, buyer domain.Identity) (bool, error) {
	if err := l.gate.Require(ctx, buyer); err != nil {
		return false, fmt.Errorf("item_lifecycle: buy %d: %w", itemID, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	item, err := l.getItem(ctx, itemID)
	if err != nil {
		return false, fmt.Errorf("item_lifecycle: buy %d: %w", itemID, err)
	}
	if item.Status != domain.ItemStatusListed {
		return false, fmt.Errorf("item_lifecycle: buy %d: %w", itemID, domain.ErrNotAvailable)
	}

	now := l.clock.Now()
	if item.Expired(now) {
		// Lazy reaping: commit the unlisted transition, then fail.
		item.Status = domain.ItemStatusUnlisted
		if err := l.putItem(ctx, item); err != nil {
			return false, fmt.Errorf("item_lifecycle: buy %d: reap expired: %w", itemID, err)
		}
		l.publish(ctx, domain.EventItemExpired, item, now)
		l.logger.InfoContext(ctx, "expired listing reaped",
			slog.Int64("item_id", itemID),
			slog.Int64("expiry_time", item.ExpiryTime),
			slog.Int64("now", now),
		)
		return false, fmt.Errorf("item_lifecycle: buy %d: %w", itemID, domain.ErrExpired)
	}

	if buyer == item.Seller {
		return false, fmt.Errorf("item_lifecycle: buy %d: %w", itemID, domain.ErrSelfTrade)
	}

	item.Status = domain.ItemStatusSold
	item.Buyer = &buyer
	if err := l.putItem(ctx, item); err != nil {
		return false, fmt.Errorf("item_lifecycle: buy %d: %w", itemID, err)
	}
	l.extend(ctx, domain.ItemKey(itemID))

	// Actual token transfer would happen here in a settling marketplace;
	// settlement is out of scope.
	l.publish(ctx, domain.EventItemSold, item, now)
	l.logger.InfoContext(ctx, "item sold",
		slog.Int64("item_id", itemID),
		slog.String("buyer", string(buyer)),
	)
	return true, nil
}

// UnlistItem withdraws a listing. Only the original seller may unlist, and
// only while the item is still listed. No expiry check: a seller may
// withdraw an expired-but-not-yet-reaped listing.
func (l *ItemLifecycle) UnlistItem(ctx context.Context, itemID int64, seller domain.Identity) (bool, error) {
	if err := l.gate.Require(ctx, seller); err != nil {
		return false, fmt.Errorf("item_lifecycle: unlist %d: %w", itemID, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	item, err := l.getItem(ctx, itemID)
	if err != nil {
		return false, fmt.Errorf("item_lifecycle: unlist %d: %w", itemID, err)
	}
	if item.Seller != seller {
		return false, fmt.Errorf("item_lifecycle: unlist %d: %w", itemID, domain.ErrNotOwner)
	}
	if item.Status != domain.ItemStatusListed {
		return false, fmt.Errorf("item_lifecycle: unlist %d: %w", itemID, domain.ErrNotAvailable)
	}

	item.Status = domain.ItemStatusUnlisted
	if err := l.putItem(ctx, item); err != nil {
		return false, fmt.Errorf("item_lifecycle: unlist %d: %w", itemID, err)
	}
	l.extend(ctx, domain.ItemKey(itemID))

	l.publish(ctx, domain.EventItemUnlisted, item, l.clock.Now())
	l.logger.InfoContext(ctx, "item unlisted",
		slog.Int64("item_id", itemID),
		slog.String("seller", string(seller)),
	)
	return true, nil
}

// ViewItem returns the item record. Read-only, no authorization, no side
// effects beyond cache back-fill.
func (l *ItemLifecycle) ViewItem(ctx context.Context, itemID int64) (domain.Item, error) {
	if l.cache != nil {
		if item, err := l.cache.Get(ctx, itemID); err == nil {
			return item, nil
		}
	}

	item, err := l.getItem(ctx, itemID)
	if err != nil {
		return domain.Item{}, fmt.Errorf("item_lifecycle: view %d: %w", itemID, err)
	}

	if l.cache != nil {
		if cacheErr := l.cache.Set(ctx, item); cacheErr != nil {
			l.logger.WarnContext(ctx, "cache set failed",
				slog.Int64("item_id", itemID),
				slog.String("error", cacheErr.Error()),
			)
		}
	}
	return item, nil
}

// ListBySeller returns every item the given seller has ever listed, in
// listing order, hydrated from the store.
func (l *ItemLifecycle) ListBySeller(ctx context.Context, seller domain.Identity) ([]domain.Item, error) {
	ids, err := l.readSellerIndex(ctx, seller)
	if err != nil {
		return nil, fmt.Errorf("item_lifecycle: list by seller: %w", err)
	}

	items := make([]domain.Item, 0, len(ids))
	for _, id := range ids {
		item, err := l.getItem(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				// Entry aged out of the store; the index outlives it.
				continue
			}
			return nil, fmt.Errorf("item_lifecycle: list by seller: item %d: %w", id, err)
		}
		items = append(items, item)
	}
	return items, nil
}

// --- storage codec helpers ---

func (l *ItemLifecycle) getItem(ctx context.Context, id int64) (domain.Item, error) {
	data, err := l.store.Get(ctx, domain.ItemKey(id))
	if err != nil {
		return domain.Item{}, err
	}
	var item domain.Item
	if err := json.Unmarshal(data, &item); err != nil {
		return domain.Item{}, fmt.Errorf("decode item %d: %w", id, err)
	}
	return item, nil
}

func (l *ItemLifecycle) putItem(ctx context.Context, item domain.Item) error {
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("encode item %d: %w", item.ID, err)
	}
	if err := l.store.Set(ctx, domain.ItemKey(item.ID), data); err != nil {
		return err
	}
	if l.cache != nil {
		if cacheErr := l.cache.Invalidate(ctx, item.ID); cacheErr != nil {
			l.logger.WarnContext(ctx, "cache invalidate failed",
				slog.Int64("item_id", item.ID),
				slog.String("error", cacheErr.Error()),
			)
			// Non-fatal: the cache entry expires on its own TTL.
		}
	}
	return nil
}

func (l *ItemLifecycle) readCounter(ctx context.Context) (int64, error) {
	data, err := l.store.Get(ctx, domain.ItemCounterKey())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("decode counter %q: %w", data, err)
	}
	return n, nil
}

func (l *ItemLifecycle) writeCounter(ctx context.Context, value int64) error {
	return l.store.Set(ctx, domain.ItemCounterKey(), []byte(strconv.FormatInt(value, 10)))
}

func (l *ItemLifecycle) readSellerIndex(ctx context.Context, seller domain.Identity) ([]int64, error) {
	data, err := l.store.Get(ctx, domain.SellerItemsKey(seller))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var ids []int64
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("decode seller index: %w", err)
	}
	return ids, nil
}

func (l *ItemLifecycle) appendSellerIndex(ctx context.Context, seller domain.Identity, id int64) error {
	ids, err := l.readSellerIndex(ctx, seller)
	if err != nil {
		return fmt.Errorf("read seller index: %w", err)
	}
	ids = append(ids, id)
	data, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("encode seller index: %w", err)
	}
	return l.store.Set(ctx, domain.SellerItemsKey(seller), data)
}

// extend pushes out the retention horizon of the given keys. Retention is
// orthogonal to the lifecycle; failures are logged, not surfaced.
func (l *ItemLifecycle) extend(ctx context.Context, keys ...domain.StorageKey) {
	for _, key := range keys {
		if err := l.store.ExtendLifetime(ctx, key, l.retention); err != nil {
			l.logger.WarnContext(ctx, "extend lifetime failed",
				slog.String("key", key.Encode()),
				slog.String("error", err.Error()),
			)
		}
	}
}

func (l *ItemLifecycle) publish(ctx context.Context, kind domain.EventKind, item domain.Item, at int64) {
	if l.bus == nil {
		return
	}
	event := domain.ItemEvent{
		ID:     uuid.New().String(),
		Kind:   kind,
		ItemID: item.ID,
		Item:   item,
		At:     at,
	}
	if err := l.bus.Publish(ctx, event); err != nil {
		l.logger.WarnContext(ctx, "event publish failed",
			slog.String("kind", string(kind)),
			slog.Int64("item_id", item.ID),
			slog.String("error", err.Error()),
		)
	}
}
