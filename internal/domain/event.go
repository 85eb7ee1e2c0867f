package domain

// EventKind names a lifecycle transition carried on the event bus.
type EventKind string

const (
	EventItemListed   EventKind = "item_listed"
	EventItemSold     EventKind = "item_sold"
	EventItemUnlisted EventKind = "item_unlisted"
	// EventItemExpired is published when a failed purchase attempt reaps
	// an expired listing.
	EventItemExpired EventKind = "item_expired"
)

// ItemEvent is a single lifecycle transition broadcast to subscribers.
type ItemEvent struct {
	ID     string    `json:"id"` // unique event id
	Kind   EventKind `json:"kind"`
	ItemID int64     `json:"item_id"`
	Item   Item      `json:"item"`
	At     int64     `json:"at"` // ledger time, unix seconds
}
