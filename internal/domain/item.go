package domain

// Identity is a checksummed secp256k1 address string identifying a market
// participant. Normalization happens at the transport boundary; the core
// compares identities verbatim.
type Identity string

// ItemStatus represents the lifecycle state of a listed item.
type ItemStatus string

const (
	ItemStatusListed   ItemStatus = "listed"
	ItemStatusSold     ItemStatus = "sold"
	ItemStatusUnlisted ItemStatus = "unlisted"
)

// Item is a fixed-price marketplace listing. Status only ever advances
// forward: listed -> sold or listed -> unlisted, never back.
type Item struct {
	ID          int64      `json:"id"`
	Seller      Identity   `json:"seller"`
	Price       int64      `json:"price"`
	Description string     `json:"description"`
	Status      ItemStatus `json:"status"`
	Buyer       *Identity  `json:"buyer,omitempty"`
	ListTime    int64      `json:"list_time"`   // unix seconds
	ExpiryTime  int64      `json:"expiry_time"` // unix seconds
}

// Terminal reports whether the item has left the listed state. Sold and
// unlisted items never transition again.
func (i Item) Terminal() bool {
	return i.Status == ItemStatusSold || i.Status == ItemStatusUnlisted
}

// Expired reports whether the listing expiry has passed at the given ledger
// time. An expired item may still carry status listed until it is reaped by
// a failed purchase attempt.
func (i Item) Expired(now int64) bool {
	return now > i.ExpiryTime
}
