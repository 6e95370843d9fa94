package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// CatalogMetrics covers the catalog cache, the sync bus, the resolver and
// the pricing engine.
type CatalogMetrics struct {
	// Cache
	HydrationsTotal         prometheus.CounterVec
	HydrationDuration       prometheus.HistogramVec
	HydrationKeyErrors      prometheus.CounterVec
	CacheReadsTotal         prometheus.CounterVec
	CacheInvalidationsTotal prometheus.CounterVec

	// Sync bus
	ChangeNotificationsTotal prometheus.CounterVec
	EnvelopesIgnoredTotal    prometheus.CounterVec
	DebouncedReloadsTotal    prometheus.CounterVec

	// Resolver
	ResolverLookupsTotal prometheus.CounterVec
	ResolverWaitDuration prometheus.HistogramVec

	// Pricing
	TotalsComputedTotal prometheus.CounterVec
	StaleCartLinesTotal prometheus.CounterVec
}

func NewCatalogMetrics() *CatalogMetrics {
	return &CatalogMetrics{
		HydrationsTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_hydrations_total",
				Help: "Number of full slice re-hydrations from the record store",
			},
			[]string{"store_id", "trigger"},
		),

		HydrationDuration: *promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "catalog_hydration_duration_seconds",
				Help:    "Time spent rebuilding one store slice",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
			},
			[]string{"store_id"},
		),

		HydrationKeyErrors: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_hydration_key_errors_total",
				Help: "Record keys skipped during hydration (malformed JSON or read error)",
			},
			[]string{"store_id", "kind"},
		),

		CacheReadsTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_cache_reads_total",
				Help: "Cache reads by view and freshness",
			},
			[]string{"view", "result"},
		),

		CacheInvalidationsTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_cache_invalidations_total",
				Help: "Slices marked stale",
			},
			[]string{"store_id"},
		),

		ChangeNotificationsTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_change_notifications_total",
				Help: "Inbound change notifications by channel and change type",
			},
			[]string{"channel", "type"},
		),

		EnvelopesIgnoredTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_envelopes_ignored_total",
				Help: "Cross-context envelopes dropped at the boundary",
			},
			[]string{"reason"},
		),

		DebouncedReloadsTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_debounced_reloads_total",
				Help: "Debounce windows that elapsed and triggered hydration",
			},
			[]string{"store_id"},
		),

		ResolverLookupsTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "store_resolver_lookups_total",
				Help: "Store resolutions by matching strategy and outcome",
			},
			[]string{"strategy", "outcome"},
		),

		ResolverWaitDuration: *promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "store_resolver_wait_duration_seconds",
				Help:    "Time spent in the bounded cold-start wait",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 8),
			},
			[]string{"outcome"},
		),

		TotalsComputedTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "order_totals_computed_total",
				Help: "Order totals computed by the pricing engine",
			},
			[]string{"currency"},
		),

		StaleCartLinesTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stale_cart_lines_total",
				Help: "Cart lines flagged stale during total computation",
			},
			[]string{"reason"},
		),
	}
}

func (m *CatalogMetrics) RecordHydration(storeID, trigger string, durationSeconds float64) {
	m.HydrationsTotal.WithLabelValues(storeID, trigger).Inc()
	m.HydrationDuration.WithLabelValues(storeID).Observe(durationSeconds)
}

func (m *CatalogMetrics) RecordHydrationKeyError(storeID, kind string) {
	m.HydrationKeyErrors.WithLabelValues(storeID, kind).Inc()
}

func (m *CatalogMetrics) RecordCacheRead(view, result string) {
	m.CacheReadsTotal.WithLabelValues(view, result).Inc()
}

func (m *CatalogMetrics) RecordInvalidation(storeID string) {
	m.CacheInvalidationsTotal.WithLabelValues(storeID).Inc()
}

func (m *CatalogMetrics) RecordChangeNotification(channel, changeType string) {
	m.ChangeNotificationsTotal.WithLabelValues(channel, changeType).Inc()
}

func (m *CatalogMetrics) RecordEnvelopeIgnored(reason string) {
	m.EnvelopesIgnoredTotal.WithLabelValues(reason).Inc()
}

func (m *CatalogMetrics) RecordDebouncedReload(storeID string) {
	m.DebouncedReloadsTotal.WithLabelValues(storeID).Inc()
}

func (m *CatalogMetrics) RecordResolverLookup(strategy, outcome string) {
	m.ResolverLookupsTotal.WithLabelValues(strategy, outcome).Inc()
}

func (m *CatalogMetrics) RecordResolverWait(outcome string, durationSeconds float64) {
	m.ResolverWaitDuration.WithLabelValues(outcome).Observe(durationSeconds)
}

func (m *CatalogMetrics) RecordTotalComputed(currency string) {
	m.TotalsComputedTotal.WithLabelValues(currency).Inc()
}

func (m *CatalogMetrics) RecordStaleCartLine(reason string) {
	m.StaleCartLinesTotal.WithLabelValues(reason).Inc()
}
