package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/abdalwely/stor-sub001/internal/domain"
	"github.com/abdalwely/stor-sub001/internal/infrastructure/metrics"
)

type StoreResolverUsecase interface {
	Resolve(ctx context.Context, identifier string) (*domain.StoreRecord, error)
}

// DefaultStoreResolver maps a URL fragment to a store record through a
// deterministic fallback chain: exact subdomain, store ID, substring, then
// a bounded cold-start wait before giving up. A not-found result is
// terminal for the caller.
type DefaultStoreResolver struct {
	cache   *DefaultCatalogCache
	clock   Clock
	metrics *metrics.CatalogMetrics
	logger  *slog.Logger

	// Cold-start wait bounds.
	waitBound    time.Duration
	pollInterval time.Duration
}

func NewDefaultStoreResolver(
	cache *DefaultCatalogCache,
	clock Clock,
	m *metrics.CatalogMetrics,
	logger *slog.Logger,
	waitBound, pollInterval time.Duration,
) *DefaultStoreResolver {
	if clock == nil {
		clock = NewSystemClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if waitBound <= 0 {
		waitBound = 5 * time.Second
	}
	if pollInterval <= 0 {
		pollInterval = 200 * time.Millisecond
	}
	return &DefaultStoreResolver{
		cache:        cache,
		clock:        clock,
		metrics:      m,
		logger:       logger,
		waitBound:    waitBound,
		pollInterval: pollInterval,
	}
}

func (r *DefaultStoreResolver) Resolve(ctx context.Context, identifier string) (*domain.StoreRecord, error) {
	identifier = strings.ToLower(strings.TrimSpace(identifier))
	if identifier == "" {
		return nil, fmt.Errorf("identifier is required")
	}

	stores := r.cache.Stores()
	if store, strategy := r.match(stores, identifier); store != nil {
		r.record(strategy, "found")
		return store, nil
	}

	if len(stores) > 0 {
		// Data is loaded and nothing matched: terminal.
		r.record("none", "not_found")
		return nil, domain.ErrStoreNotFound
	}

	// Empty cache is indistinguishable from "data not hydrated yet", so
	// poll the record store for a bounded window before declaring defeat.
	store, err := r.waitForStore(ctx, identifier)
	if err != nil {
		return nil, err
	}
	return store, nil
}

func (r *DefaultStoreResolver) waitForStore(ctx context.Context, identifier string) (*domain.StoreRecord, error) {
	started := r.clock.Now()
	deadline := started.Add(r.waitBound)

	for {
		if err := r.cache.RefreshIndex(ctx); err != nil {
			r.logger.Warn("store index refresh failed during cold-start wait", "error", err)
		}

		stores := r.cache.Stores()
		if store, strategy := r.match(stores, identifier); store != nil {
			r.record(strategy, "found_after_wait")
			r.recordWait("found", started)
			return store, nil
		}
		if len(stores) > 0 {
			// Data arrived and still no match: stop early, terminal.
			r.record("none", "not_found")
			r.recordWait("not_found", started)
			return nil, domain.ErrStoreNotFound
		}

		if !r.clock.Now().Add(r.pollInterval).Before(deadline) {
			r.record("none", "not_found")
			r.recordWait("timeout", started)
			return nil, domain.ErrStoreNotFound
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-r.clock.After(r.pollInterval):
		}
	}
}

// match runs the fallback chain over the store index, stopping at the
// first matching step.
func (r *DefaultStoreResolver) match(stores []*domain.StoreRecord, identifier string) (*domain.StoreRecord, string) {
	// 1. Exact subdomain.
	for _, s := range stores {
		if strings.ToLower(s.Subdomain) == identifier {
			return s, "subdomain"
		}
	}

	// 2. Identifier shaped like a store ID.
	if domain.HasStoreIDPrefix(identifier) {
		for _, s := range stores {
			if strings.ToLower(s.ID) == identifier {
				return s, "id"
			}
		}
	}

	// 3. Substring either direction, most recently updated wins. Best
	// effort for truncated or mistyped links; with unrelated stores
	// sharing a substring this can route to the wrong store, so multiple
	// candidates are logged rather than silently collapsed.
	var candidates []*domain.StoreRecord
	for _, s := range stores {
		sub := strings.ToLower(s.Subdomain)
		if sub == "" {
			continue
		}
		if strings.Contains(sub, identifier) || strings.Contains(identifier, sub) {
			candidates = append(candidates, s)
		}
	}
	if len(candidates) == 0 {
		return nil, ""
	}
	best := candidates[0]
	for _, s := range candidates[1:] {
		if s.UpdatedAt.After(best.UpdatedAt) {
			best = s
		}
	}
	if len(candidates) > 1 {
		r.logger.Warn("ambiguous substring match, picking most recently updated",
			"identifier", identifier, "candidates", len(candidates), "picked", best.ID)
	}
	return best, "substring"
}

func (r *DefaultStoreResolver) record(strategy, outcome string) {
	if r.metrics != nil {
		r.metrics.RecordResolverLookup(strategy, outcome)
	}
}

func (r *DefaultStoreResolver) recordWait(outcome string, started time.Time) {
	if r.metrics != nil {
		r.metrics.RecordResolverWait(outcome, r.clock.Now().Sub(started).Seconds())
	}
}
