package domain

// CartLine is one entry of a context-local cart. A line exists only with
// quantity >= 1; reaching zero removes it.
type CartLine struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	VariantID string `json:"variantId,omitempty"`
}

// SameItem reports whether two lines refer to the same product+variant and
// therefore merge into one line.
func (l CartLine) SameItem(other CartLine) bool {
	return l.ProductID == other.ProductID && l.VariantID == other.VariantID
}
