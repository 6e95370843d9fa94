package usecase

import (
	"math"

	"github.com/abdalwely/stor-sub001/internal/domain"
	"github.com/abdalwely/stor-sub001/internal/infrastructure/metrics"
)

// PricingOptions carries checkout-stage knowledge. DestinationCity is empty
// on cart views, where zone costs are not known yet and the default cost
// applies; this mirrors the cart/checkout split of the storefront.
type PricingOptions struct {
	DestinationCity string
}

type PricingEngineUsecase interface {
	ComputeTotal(lines []domain.CartLine, products []*domain.Product, settings domain.StoreSettings, opts PricingOptions) (domain.OrderTotal, []domain.StaleCartLine)
}

// DefaultPricingEngine computes order totals as a pure function of cart
// lines and store settings. Identical inputs always produce identical
// output; every checkout surface shares this one implementation.
type DefaultPricingEngine struct {
	metrics *metrics.CatalogMetrics
}

func NewDefaultPricingEngine(m *metrics.CatalogMetrics) *DefaultPricingEngine {
	return &DefaultPricingEngine{metrics: m}
}

// ComputeTotal runs the fixed step order: subtotal, tax, shipping, total.
// All arithmetic is in minor currency units. A line whose product is gone
// or inactive contributes zero and is reported stale; it is never dropped
// from cart state here.
func (e *DefaultPricingEngine) ComputeTotal(
	lines []domain.CartLine,
	products []*domain.Product,
	settings domain.StoreSettings,
	opts PricingOptions,
) (domain.OrderTotal, []domain.StaleCartLine) {
	byID := make(map[string]*domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	var subtotal int64
	var stale []domain.StaleCartLine
	for _, line := range lines {
		product, ok := byID[line.ProductID]
		if !ok {
			stale = append(stale, domain.StaleCartLine{
				ProductID: line.ProductID,
				VariantID: line.VariantID,
				Reason:    domain.StaleReasonMissing,
			})
			e.recordStale(domain.StaleReasonMissing)
			continue
		}
		if !product.IsActive() {
			stale = append(stale, domain.StaleCartLine{
				ProductID: line.ProductID,
				VariantID: line.VariantID,
				Reason:    domain.StaleReasonInactive,
			})
			e.recordStale(domain.StaleReasonInactive)
			continue
		}
		subtotal += domain.ToMinorUnits(product.EffectivePrice()) * int64(line.Quantity)
	}

	var taxAmount int64
	if settings.Taxes.Enabled {
		taxAmount = int64(math.Round(float64(subtotal) * settings.Taxes.Rate / 100))
	}

	shippingCost := e.shippingCost(subtotal, settings.Shipping, opts.DestinationCity)

	total := domain.OrderTotal{
		Subtotal:     subtotal,
		TaxAmount:    taxAmount,
		ShippingCost: shippingCost,
		Total:        subtotal + taxAmount + shippingCost,
	}
	if e.metrics != nil {
		e.metrics.RecordTotalComputed(settings.Currency)
	}
	return total, stale
}

func (e *DefaultPricingEngine) shippingCost(subtotal int64, shipping domain.ShippingSettings, city string) int64 {
	if !shipping.Enabled {
		return 0
	}

	cost := domain.ToMinorUnits(shipping.DefaultCost)
	if zone := shipping.ZoneForCity(city); zone != nil {
		cost = domain.ToMinorUnits(zone.Cost)
	}

	// Free-shipping boundary is inclusive.
	if shipping.FreeShippingThreshold > 0 && subtotal >= domain.ToMinorUnits(shipping.FreeShippingThreshold) {
		return 0
	}
	return cost
}

func (e *DefaultPricingEngine) recordStale(reason string) {
	if e.metrics != nil {
		e.metrics.RecordStaleCartLine(reason)
	}
}
