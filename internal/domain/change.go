package domain

import "time"

type ChangeType string

const (
	ChangeTypeStore         ChangeType = "store"
	ChangeTypeProduct       ChangeType = "product"
	ChangeTypeCategory      ChangeType = "category"
	ChangeTypeCustomization ChangeType = "customization"
)

// ChangeNotification is the ephemeral cross-context signal that some part
// of a store's catalog changed. It is never persisted.
type ChangeNotification struct {
	Type            ChangeType `json:"type"`
	StoreID         string     `json:"storeId"`
	OriginContextID string     `json:"originContextId"`
	Timestamp       time.Time  `json:"timestamp"`
}

// EnvelopeType tags a cross-context message. The set is closed: the bus
// ignores every envelope whose type it does not know.
type EnvelopeType string

const (
	EnvelopeStoreUpdated         EnvelopeType = "STORE_UPDATED"
	EnvelopeCustomizationUpdated EnvelopeType = "STORE_CUSTOMIZATION_UPDATED"
	EnvelopeProductCreated       EnvelopeType = "PRODUCT_CREATED"
	EnvelopeProductUpdated       EnvelopeType = "PRODUCT_UPDATED"
	EnvelopeProductDeleted       EnvelopeType = "PRODUCT_DELETED"
	EnvelopeCategoryCreated      EnvelopeType = "CATEGORY_CREATED"
	EnvelopeCategoryUpdated      EnvelopeType = "CATEGORY_UPDATED"
	EnvelopeCategoryDeleted      EnvelopeType = "CATEGORY_DELETED"
)

// Envelope is the wire form of a cross-context message. Payload is only
// trusted after the type tag is recognized.
type Envelope struct {
	Type    EnvelopeType       `json:"type"`
	Payload ChangeNotification `json:"payload"`
}

// ChangeTypeOf maps an envelope type to the catalog change it announces.
// The second return is false for unknown envelope types.
func ChangeTypeOf(t EnvelopeType) (ChangeType, bool) {
	switch t {
	case EnvelopeStoreUpdated:
		return ChangeTypeStore, true
	case EnvelopeCustomizationUpdated:
		return ChangeTypeCustomization, true
	case EnvelopeProductCreated, EnvelopeProductUpdated, EnvelopeProductDeleted:
		return ChangeTypeProduct, true
	case EnvelopeCategoryCreated, EnvelopeCategoryUpdated, EnvelopeCategoryDeleted:
		return ChangeTypeCategory, true
	}
	return "", false
}

// EnvelopeTypeOf is the inverse direction used by the publishing side.
func EnvelopeTypeOf(t ChangeType) EnvelopeType {
	switch t {
	case ChangeTypeCustomization:
		return EnvelopeCustomizationUpdated
	case ChangeTypeProduct:
		return EnvelopeProductUpdated
	case ChangeTypeCategory:
		return EnvelopeCategoryUpdated
	default:
		return EnvelopeStoreUpdated
	}
}
