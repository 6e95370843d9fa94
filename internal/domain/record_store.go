package domain

import (
	"context"
	"strings"
)

// Key layout of the durable record store. Every key is namespaced by kind
// and store so one prefix scan loads one store's slice.
const (
	storeKeyPrefix    = "store:"
	productKeyPrefix  = "product:"
	categoryKeyPrefix = "category:"
)

func StoreKey(storeID string) string {
	return storeKeyPrefix + storeID
}

func ProductKey(storeID, productID string) string {
	return productKeyPrefix + storeID + ":" + productID
}

func CategoryKey(storeID, categoryID string) string {
	return categoryKeyPrefix + storeID + ":" + categoryID
}

func StoreKeysPrefix() string {
	return storeKeyPrefix
}

func ProductKeysPrefix(storeID string) string {
	return productKeyPrefix + storeID + ":"
}

func CategoryKeysPrefix(storeID string) string {
	return categoryKeyPrefix + storeID + ":"
}

// ParseRecordKey derives the change type and owning store from a record
// key. ok is false for keys outside the catalog namespace.
func ParseRecordKey(key string) (changeType ChangeType, storeID string, ok bool) {
	switch {
	case strings.HasPrefix(key, storeKeyPrefix):
		return ChangeTypeStore, strings.TrimPrefix(key, storeKeyPrefix), true
	case strings.HasPrefix(key, productKeyPrefix):
		rest := strings.TrimPrefix(key, productKeyPrefix)
		id, _, found := strings.Cut(rest, ":")
		if !found {
			return "", "", false
		}
		return ChangeTypeProduct, id, true
	case strings.HasPrefix(key, categoryKeyPrefix):
		rest := strings.TrimPrefix(key, categoryKeyPrefix)
		id, _, found := strings.Cut(rest, ":")
		if !found {
			return "", "", false
		}
		return ChangeTypeCategory, id, true
	}
	return "", "", false
}

type RecordOp string

const (
	RecordOpSet    RecordOp = "set"
	RecordOpRemove RecordOp = "remove"
)

// RecordEvent is the record store's native change notification. The store
// delivers events only to contexts other than the one that wrote.
type RecordEvent struct {
	Key    string   `json:"key"`
	Op     RecordOp `json:"op"`
	Origin string   `json:"origin"`
}

// RecordStore is the durable key->JSON store shared by every context.
// Get returns (nil, nil) for a missing key. Writes are whole-value
// replacements; there are no partial patches.
type RecordStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)

	// Watch streams change events produced by other contexts. The channel
	// closes when ctx is done or the store shuts down.
	Watch(ctx context.Context) (<-chan RecordEvent, error)
}
