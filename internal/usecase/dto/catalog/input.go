package catalogdto

import "github.com/abdalwely/stor-sub001/internal/domain"

type CreateStoreInput struct {
	Subdomain     string
	Name          string
	OwnerID       string
	Customization domain.Customization
	Settings      domain.StoreSettings
}

type CreateProductInput struct {
	StoreID   string
	Name      string
	Price     float64
	SalePrice *float64
	Category  string
	Stock     int
	Status    domain.ProductStatus
	Featured  bool
}

type CreateCategoryInput struct {
	StoreID     string
	Name        string
	Description string
}
