package domain

import (
	"context"
	"io"
	"time"
)

// KVStore is the durable keyed store consumed by the lifecycle core. Values
// are opaque bytes; the key space of key.go is the entire durable footprint.
type KVStore interface {
	// Get returns the value stored under key, or ErrNotFound when the slot
	// is empty.
	Get(ctx context.Context, key StorageKey) ([]byte, error)
	// Set writes value under key, overwriting any previous value.
	Set(ctx context.Context, key StorageKey, value []byte) error
	// ExtendLifetime pushes out the retention horizon of the entry under
	// key so it is not archived or evicted before ttl elapses. It is a
	// no-op for entries that do not exist.
	ExtendLifetime(ctx context.Context, key StorageKey, ttl time.Duration) error
}

// Clock supplies ledger time in unix seconds. Injected so tests can drive
// expiry deterministically.
type Clock interface {
	Now() int64
}

// AuthGate verifies that the current invocation is authorized to act as the
// given identity. It must be consulted before any state read or write gated
// by that identity.
type AuthGate interface {
	// Require returns ErrUnauthorized when the caller has not proven
	// control of id.
	Require(ctx context.Context, id Identity) error
}

// ItemCache is a read-through cache over Item records.
type ItemCache interface {
	Get(ctx context.Context, id int64) (Item, error)
	Set(ctx context.Context, item Item) error
	Invalidate(ctx context.Context, id int64) error
}

// EventBus publishes lifecycle events to interested subscribers.
type EventBus interface {
	Publish(ctx context.Context, event ItemEvent) error
	// Subscribe returns a channel of raw event payloads for the given
	// channel names and a cancel function that releases the subscription.
	Subscribe(ctx context.Context, channels ...string) (<-chan []byte, func(), error)
}

// RateLimiter enforces request quotas keyed by an arbitrary string.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// BlobWriter uploads opaque objects to blob storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// Archiver snapshots terminal items to blob storage ahead of their
// retention horizon. It never mutates lifecycle state.
type Archiver interface {
	ArchiveTerminalItems(ctx context.Context, now time.Time) (int64, error)
}
