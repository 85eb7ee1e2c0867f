package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStorageKeyEncode(t *testing.T) {
	tests := []struct {
		name string
		key  StorageKey
		want string
	}{
		{"item", ItemKey(1), "item:1"},
		{"item large id", ItemKey(9007199254740993), "item:9007199254740993"},
		{"counter", ItemCounterKey(), "item_counter"},
		{"seller items", SellerItemsKey("0xabc"), "seller_items:0xabc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.key.Encode())
			assert.Equal(t, tt.want, tt.key.String())
		})
	}
}

func TestStorageKeyKindsNeverCollide(t *testing.T) {
	// The discriminator keeps an item record, the counter, and a seller
	// index apart even with adversarial payloads.
	seen := map[string]StorageKey{}
	keys := []StorageKey{
		ItemKey(1),
		ItemKey(11),
		ItemCounterKey(),
		SellerItemsKey("1"),
		SellerItemsKey("item:1"),
		SellerItemsKey("item_counter"),
	}
	for _, key := range keys {
		slot := key.Encode()
		prev, dup := seen[slot]
		assert.False(t, dup, "key %v collides with %v on slot %q", key, prev, slot)
		seen[slot] = key
	}
}

func TestItemExpiry(t *testing.T) {
	item := Item{ExpiryTime: 100}
	assert.False(t, item.Expired(99))
	assert.False(t, item.Expired(100), "expiry boundary is inclusive")
	assert.True(t, item.Expired(101))
}

func TestItemTerminal(t *testing.T) {
	assert.False(t, Item{Status: ItemStatusListed}.Terminal())
	assert.True(t, Item{Status: ItemStatusSold}.Terminal())
	assert.True(t, Item{Status: ItemStatusUnlisted}.Terminal())
}
