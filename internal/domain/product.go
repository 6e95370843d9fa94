package domain

import "time"

type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "active"
	ProductStatusInactive ProductStatus = "inactive"
	ProductStatusDraft    ProductStatus = "draft"
)

type Product struct {
	ID          string        `json:"id"`
	StoreID     string        `json:"storeId"`
	Name        string        `json:"name"`
	Price       float64       `json:"price"`
	SalePrice   *float64      `json:"salePrice,omitempty"`
	Category    string        `json:"category"`
	Stock       int           `json:"stock"`
	Status      ProductStatus `json:"status"`
	Featured    bool          `json:"featured"`
	Rating      float64       `json:"rating"`
	ReviewCount int           `json:"reviewCount"`
	CreatedAt   time.Time     `json:"createdAt"`
}

// EffectivePrice is the sale price when one is set, the regular price
// otherwise.
func (p *Product) EffectivePrice() float64 {
	if p.SalePrice != nil {
		return *p.SalePrice
	}
	return p.Price
}

func (p *Product) IsActive() bool {
	return p.Status == ProductStatusActive
}

type Category struct {
	ID          string `json:"id"`
	StoreID     string `json:"storeId"`
	Name        string `json:"name"`
	Description string `json:"description"`
}
