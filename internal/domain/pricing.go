package domain

import "math"

// OrderTotal is a pure derived value. All amounts are in minor currency
// units so intermediate arithmetic never passes through float rounding;
// conversion to a 2-decimal figure happens only at presentation.
type OrderTotal struct {
	Subtotal     int64 `json:"subtotal"`
	TaxAmount    int64 `json:"taxAmount"`
	ShippingCost int64 `json:"shippingCost"`
	Total        int64 `json:"total"`
}

// StaleCartLine marks a line whose product no longer exists or is no longer
// active. The line contributed zero to the total but stays in cart state so
// the UI can prompt cleanup.
type StaleCartLine struct {
	ProductID string `json:"productId"`
	VariantID string `json:"variantId,omitempty"`
	Reason    string `json:"reason"`
}

const (
	StaleReasonMissing  = "product_missing"
	StaleReasonInactive = "product_inactive"
)

// ToMinorUnits converts a major-unit amount (e.g. 19.99) to minor units
// (1999). This is the single place a float price is rounded.
func ToMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// ToMajorUnits converts minor units back to a 2-decimal major amount for
// presentation.
func ToMajorUnits(amount int64) float64 {
	return float64(amount) / 100
}
