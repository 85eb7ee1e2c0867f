package domain

import (
	"fmt"
	"strconv"
)

// KeyKind discriminates the storage key space.
type KeyKind string

const (
	// KeyKindItem addresses a single Item record by id.
	KeyKindItem KeyKind = "item"
	// KeyKindItemCounter addresses the last-assigned item id.
	KeyKindItemCounter KeyKind = "item_counter"
	// KeyKindSellerItems addresses the per-seller index of item ids.
	KeyKindSellerItems KeyKind = "seller_items"
)

// StorageKey is a discriminated key carrying an optional payload. Two keys
// with equal kind and payload encode to the same storage slot, so the
// encoding is the identity of the stored entry.
type StorageKey struct {
	Kind     KeyKind
	ItemID   int64    // set for KeyKindItem
	Identity Identity // set for KeyKindSellerItems
}

// ItemKey returns the key for the Item record with the given id.
func ItemKey(id int64) StorageKey {
	return StorageKey{Kind: KeyKindItem, ItemID: id}
}

// ItemCounterKey returns the key for the monotonic item id counter.
func ItemCounterKey() StorageKey {
	return StorageKey{Kind: KeyKindItemCounter}
}

// SellerItemsKey returns the key for the given seller's item id index.
func SellerItemsKey(seller Identity) StorageKey {
	return StorageKey{Kind: KeyKindSellerItems, Identity: seller}
}

// Encode renders the key as its deterministic storage slot string.
func (k StorageKey) Encode() string {
	switch k.Kind {
	case KeyKindItem:
		return string(KeyKindItem) + ":" + strconv.FormatInt(k.ItemID, 10)
	case KeyKindSellerItems:
		return string(KeyKindSellerItems) + ":" + string(k.Identity)
	default:
		return string(k.Kind)
	}
}

// String implements fmt.Stringer for log output.
func (k StorageKey) String() string {
	return k.Encode()
}

var _ fmt.Stringer = StorageKey{}
