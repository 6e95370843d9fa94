package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestZoneForCity(t *testing.T) {
	shipping := ShippingSettings{
		Enabled:     true,
		DefaultCost: 15,
		Zones: []ShippingZone{
			{ID: "central", Cities: []string{"Riyadh", "Kharj"}, Cost: 10},
			{ID: "south", Cities: []string{"Abha"}, Cost: 25},
		},
	}

	zone := shipping.ZoneForCity("riyadh")
	if assert.NotNil(t, zone, "city match is case-insensitive") {
		assert.Equal(t, "central", zone.ID)
	}

	assert.Nil(t, shipping.ZoneForCity("Dammam"), "unlisted city falls back to default cost")
	assert.Nil(t, shipping.ZoneForCity(""))
}

func TestHasStoreIDPrefix(t *testing.T) {
	assert.True(t, HasStoreIDPrefix("store_abc123"))
	assert.False(t, HasStoreIDPrefix("abc123"))
	assert.False(t, HasStoreIDPrefix(""))
}

func TestMinorUnitConversions(t *testing.T) {
	assert.Equal(t, int64(1999), ToMinorUnits(19.99))
	assert.Equal(t, int64(18000), ToMinorUnits(180))
	assert.Equal(t, int64(10), ToMinorUnits(0.1), "float artifacts round away")
	assert.Equal(t, 19.99, ToMajorUnits(1999))
}

func TestEffectivePrice(t *testing.T) {
	sale := 75.0
	p := Product{Price: 100, SalePrice: &sale}
	assert.Equal(t, 75.0, p.EffectivePrice())

	p.SalePrice = nil
	assert.Equal(t, 100.0, p.EffectivePrice())
}

func TestCartLineSameItem(t *testing.T) {
	a := CartLine{ProductID: "p1", VariantID: "red"}
	assert.True(t, a.SameItem(CartLine{ProductID: "p1", VariantID: "red", Quantity: 3}))
	assert.False(t, a.SameItem(CartLine{ProductID: "p1", VariantID: "blue"}))
	assert.False(t, a.SameItem(CartLine{ProductID: "p2", VariantID: "red"}))
}
