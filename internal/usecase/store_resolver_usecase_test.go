package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdalwely/stor-sub001/internal/domain"
	"github.com/abdalwely/stor-sub001/internal/infrastructure/memory"
)

func newTestResolver(cache *DefaultCatalogCache, clock Clock) *DefaultStoreResolver {
	return NewDefaultStoreResolver(cache, clock, nil, nil, time.Second, 200*time.Millisecond)
}

func resolverFixture(t *testing.T, stores ...*domain.StoreRecord) (*DefaultStoreResolver, *fakeClock) {
	t.Helper()
	hub := memory.NewHub()
	seeder := hub.Context("ctx-seed")
	for _, s := range stores {
		seedJSON(t, seeder, domain.StoreKey(s.ID), s)
	}
	clock := newFakeClock()
	cache := NewDefaultCatalogCache(hub.Context("ctx-test"), "ctx-test", clock, nil, nil)
	require.NoError(t, cache.RefreshIndex(context.Background()))
	return newTestResolver(cache, clock), clock
}

func TestResolver_ExactSubdomainBeatsSubstring(t *testing.T) {
	now := time.Now().UTC()
	resolver, _ := resolverFixture(t,
		testStoreRecord("store_1", "foo", now),
		testStoreRecord("store_2", "foobar", now.Add(time.Hour)),
	)

	store, err := resolver.Resolve(context.Background(), "foo")
	require.NoError(t, err)
	assert.Equal(t, "store_1", store.ID, "exact subdomain wins even when a newer substring candidate exists")
}

func TestResolver_MatchesStoreID(t *testing.T) {
	resolver, _ := resolverFixture(t, testStoreRecord("store_abc123", "myshop", time.Now().UTC()))

	store, err := resolver.Resolve(context.Background(), "store_abc123")
	require.NoError(t, err)
	assert.Equal(t, "store_abc123", store.ID)
}

func TestResolver_IdentifierIsCaseInsensitive(t *testing.T) {
	resolver, _ := resolverFixture(t, testStoreRecord("store_1", "foo", time.Now().UTC()))

	store, err := resolver.Resolve(context.Background(), "  FOO ")
	require.NoError(t, err)
	assert.Equal(t, "store_1", store.ID)
}

func TestResolver_SubstringPrefersMostRecentlyUpdated(t *testing.T) {
	now := time.Now().UTC()
	resolver, _ := resolverFixture(t,
		testStoreRecord("store_1", "fashion-house", now),
		testStoreRecord("store_2", "fashion-hub", now.Add(time.Hour)),
	)

	store, err := resolver.Resolve(context.Background(), "fashion")
	require.NoError(t, err)
	assert.Equal(t, "store_2", store.ID)
}

func TestResolver_SubstringMatchesTruncatedIdentifier(t *testing.T) {
	resolver, _ := resolverFixture(t, testStoreRecord("store_1", "shop", time.Now().UTC()))

	// Identifier longer than the subdomain still matches.
	store, err := resolver.Resolve(context.Background(), "shop-staging")
	require.NoError(t, err)
	assert.Equal(t, "store_1", store.ID)
}

func TestResolver_NoMatchWithLoadedIndexIsTerminal(t *testing.T) {
	resolver, clock := resolverFixture(t, testStoreRecord("store_1", "foo", time.Now().UTC()))

	_, err := resolver.Resolve(context.Background(), "zzz")
	assert.ErrorIs(t, err, domain.ErrStoreNotFound)
	assert.Zero(t, clock.waiting(), "terminal miss must not enter the cold-start wait")
}

func TestResolver_ColdStartWaitFindsLateStore(t *testing.T) {
	hub := memory.NewHub()
	clock := newFakeClock()
	cache := NewDefaultCatalogCache(hub.Context("ctx-test"), "ctx-test", clock, nil, nil)
	resolver := newTestResolver(cache, clock)

	type result struct {
		store *domain.StoreRecord
		err   error
	}
	done := make(chan result, 1)
	go func() {
		store, err := resolver.Resolve(context.Background(), "foo")
		done <- result{store, err}
	}()

	// The first refresh finds nothing, so the resolver arms a poll timer.
	require.Eventually(t, func() bool { return clock.waiting() == 1 },
		time.Second, time.Millisecond)

	seedJSON(t, hub.Context("ctx-seed"), domain.StoreKey("store_1"),
		testStoreRecord("store_1", "foo", time.Now().UTC()))
	clock.Advance(200 * time.Millisecond)

	select {
	case r := <-done:
		require.NoError(t, r.err)
		assert.Equal(t, "store_1", r.store.ID)
	case <-time.After(time.Second):
		t.Fatal("resolver did not return after the store appeared")
	}
}

func TestResolver_ColdStartWaitTimesOut(t *testing.T) {
	hub := memory.NewHub()
	clock := newFakeClock()
	cache := NewDefaultCatalogCache(hub.Context("ctx-test"), "ctx-test", clock, nil, nil)
	resolver := newTestResolver(cache, clock)

	done := make(chan error, 1)
	go func() {
		_, err := resolver.Resolve(context.Background(), "foo")
		done <- err
	}()

	// Pump the clock until the wait bound is exhausted.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		for {
			select {
			case <-stop:
				return
			default:
			}
			if clock.waiting() > 0 {
				clock.Advance(200 * time.Millisecond)
			}
			time.Sleep(time.Millisecond)
		}
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, domain.ErrStoreNotFound)
	case <-time.After(2 * time.Second):
		t.Fatal("resolver did not time out")
	}
}

func TestResolver_ColdStartWaitHonorsContextCancel(t *testing.T) {
	hub := memory.NewHub()
	clock := newFakeClock()
	cache := NewDefaultCatalogCache(hub.Context("ctx-test"), "ctx-test", clock, nil, nil)
	resolver := newTestResolver(cache, clock)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := resolver.Resolve(ctx, "foo")
		done <- err
	}()

	require.Eventually(t, func() bool { return clock.waiting() == 1 },
		time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("resolver did not observe cancellation")
	}
}

func TestResolver_EmptyIdentifierRejected(t *testing.T) {
	resolver, _ := resolverFixture(t)
	_, err := resolver.Resolve(context.Background(), "   ")
	assert.Error(t, err)
}
