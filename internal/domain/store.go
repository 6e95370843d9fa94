package domain

import (
	"strings"
	"time"
)

type StoreStatus string

const (
	StoreStatusActive    StoreStatus = "active"
	StoreStatusSuspended StoreStatus = "suspended"
	StoreStatusPending   StoreStatus = "pending"
)

// StoreIDPrefix is the convention every store ID starts with, which lets
// the resolver tell an ID-shaped identifier apart from a subdomain.
const StoreIDPrefix = "store_"

type StoreRecord struct {
	ID            string        `json:"id"`
	Subdomain     string        `json:"subdomain"`
	Name          string        `json:"name"`
	OwnerID       string        `json:"ownerId"`
	Customization Customization `json:"customization"`
	Settings      StoreSettings `json:"settings"`
	Status        StoreStatus   `json:"status"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

func (s *StoreRecord) IsActive() bool {
	return s.Status == StoreStatusActive
}

// HasStoreIDPrefix reports whether identifier follows the store-ID naming
// convention rather than being a subdomain.
func HasStoreIDPrefix(identifier string) bool {
	return strings.HasPrefix(identifier, StoreIDPrefix)
}

type Customization struct {
	Colors   map[string]string `json:"colors"`
	Fonts    map[string]string `json:"fonts"`
	Layout   string            `json:"layout"`
	Homepage string            `json:"homepage"`
}

type StoreSettings struct {
	Currency string          `json:"currency"`
	Shipping ShippingSettings `json:"shipping"`
	Payment  PaymentSettings  `json:"payment"`
	Taxes    TaxSettings      `json:"taxes"`
}

type ShippingSettings struct {
	Enabled               bool           `json:"enabled"`
	DefaultCost           float64        `json:"defaultCost"`
	FreeShippingThreshold float64        `json:"freeShippingThreshold"`
	Zones                 []ShippingZone `json:"zones"`
}

type ShippingZone struct {
	ID            string   `json:"id"`
	Cities        []string `json:"cities"`
	Cost          float64  `json:"cost"`
	EstimatedDays int      `json:"estimatedDays"`
}

// ZoneForCity returns the first zone listing city, or nil when no zone
// matches. City comparison is case-insensitive.
func (s ShippingSettings) ZoneForCity(city string) *ShippingZone {
	if city == "" {
		return nil
	}
	for i := range s.Zones {
		for _, c := range s.Zones[i].Cities {
			if strings.EqualFold(c, city) {
				return &s.Zones[i]
			}
		}
	}
	return nil
}

type PaymentSettings struct {
	CashOnDelivery bool `json:"cashOnDelivery"`
	BankTransfer   bool `json:"bankTransfer"`
	CreditCard     bool `json:"creditCard"`
}

type TaxSettings struct {
	Enabled        bool    `json:"enabled"`
	Rate           float64 `json:"rate"`
	IncludeInPrice bool    `json:"includeInPrice"`
}
