package usecase

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdalwely/stor-sub001/internal/domain"
	"github.com/abdalwely/stor-sub001/internal/infrastructure/memory"
	catalogdto "github.com/abdalwely/stor-sub001/internal/usecase/dto/catalog"
)

// countingStore counts full product-slice loads; each hydration lists the
// store's product keys exactly once.
type countingStore struct {
	domain.RecordStore

	mu           sync.Mutex
	productLists int
}

func (s *countingStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	if strings.HasPrefix(prefix, "product:") {
		s.mu.Lock()
		s.productLists++
		s.mu.Unlock()
	}
	return s.RecordStore.Keys(ctx, prefix)
}

func (s *countingStore) hydrations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.productLists
}

type fakePublisher struct {
	mu       sync.Mutex
	messages []domain.Message
}

func (p *fakePublisher) Publish(topic string, msgs ...domain.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, msgs...)
	return nil
}

func (p *fakePublisher) published() []domain.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.Message(nil), p.messages...)
}

type fakeSubscriber struct {
	ch chan domain.Message
}

func (s *fakeSubscriber) Subscribe(topic, groupID string) (<-chan domain.Message, error) {
	return s.ch, nil
}

func newTestBus(cache *DefaultCatalogCache, store domain.RecordStore, sub domain.SubscriberPort, clock Clock) *DefaultSyncBus {
	return NewDefaultSyncBus(cache, store, nil, sub, SyncBusConfig{
		ContextID: cache.ContextID(),
		Topic:     "catalog-changes",
		Window:    500 * time.Millisecond,
	}, clock, nil, nil)
}

func TestSyncBus_DebounceCollapsesBurst(t *testing.T) {
	hub := memory.NewHub()
	writer := hub.Context("ctx-writer")
	seedJSON(t, writer, domain.StoreKey("store_1"), testStoreRecord("store_1", "foo", time.Now().UTC()))

	clock := newFakeClock()
	counting := &countingStore{RecordStore: hub.Context("ctx-test")}
	cache := NewDefaultCatalogCache(counting, "ctx-test", clock, nil, nil)
	bus := newTestBus(cache, counting, nil, clock)

	var dispatched []domain.ChangeNotification
	var mu sync.Mutex
	bus.Subscribe(func(n domain.ChangeNotification) {
		mu.Lock()
		dispatched = append(dispatched, n)
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, bus.Start(ctx))
	defer bus.Close()

	// A burst of writes from another context.
	for i := 0; i < 5; i++ {
		seedJSON(t, writer, domain.ProductKey("store_1", "p"+string(rune('a'+i))),
			activeProduct("p"+string(rune('a'+i)), 10, 5))
	}

	require.Eventually(t, func() bool { return bus.AbsorbedNotifications() == 5 },
		time.Second, time.Millisecond, "every burst notification reaches the window")
	require.Eventually(t, func() bool { return clock.waiting() == 1 },
		time.Second, time.Millisecond)
	assert.Zero(t, counting.hydrations(), "no hydration while the window is open")

	clock.Advance(500 * time.Millisecond)

	require.Eventually(t, func() bool { return counting.hydrations() == 1 },
		time.Second, time.Millisecond, "one burst, one hydration")
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, dispatched, 1)
	assert.Equal(t, "store_1", dispatched[0].StoreID)
}

func TestSyncBus_OwnWritesDoNotFeedBack(t *testing.T) {
	hub := memory.NewHub()
	clock := newFakeClock()
	store := hub.Context("ctx-test")
	cache := NewDefaultCatalogCache(store, "ctx-test", clock, nil, nil)
	bus := newTestBus(cache, store, nil, clock)
	cache.AttachNotifier(bus)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, bus.Start(ctx))
	defer bus.Close()

	created, err := cache.CreateStore(ctx, &catalogdto.CreateStoreInput{Subdomain: "foo", Name: "Foo"})
	require.NoError(t, err)
	_, err = cache.CreateProduct(ctx, &catalogdto.CreateProductInput{
		StoreID: created.ID, Name: "Widget", Price: 10, Stock: 1,
	})
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, bus.AbsorbedNotifications(), "originating context must not see its own writes")
	assert.Zero(t, clock.waiting())
}

func TestSyncBus_PublishWrapsNotificationInEnvelope(t *testing.T) {
	hub := memory.NewHub()
	clock := newFakeClock()
	store := hub.Context("ctx-test")
	cache := NewDefaultCatalogCache(store, "ctx-test", clock, nil, nil)
	pub := &fakePublisher{}
	bus := NewDefaultSyncBus(cache, store, pub, nil, SyncBusConfig{
		ContextID: "ctx-test",
		Topic:     "catalog-changes",
	}, clock, nil, nil)

	err := bus.Publish(domain.ChangeNotification{
		Type:            domain.ChangeTypeProduct,
		StoreID:         "store_1",
		OriginContextID: "ctx-test",
	})
	require.NoError(t, err)

	msgs := pub.published()
	require.Len(t, msgs, 1)
	assert.Equal(t, "store_1", string(msgs[0].Key))

	var envelope domain.Envelope
	require.NoError(t, json.Unmarshal(msgs[0].Value, &envelope))
	assert.Equal(t, domain.EnvelopeProductUpdated, envelope.Type)
	assert.Equal(t, "ctx-test", envelope.Payload.OriginContextID)
}

func TestSyncBus_EnvelopeFiltering(t *testing.T) {
	hub := memory.NewHub()
	writer := hub.Context("ctx-writer")
	seedJSON(t, writer, domain.StoreKey("store_1"), testStoreRecord("store_1", "foo", time.Now().UTC()))
	seedJSON(t, writer, domain.ProductKey("store_1", "p1"), activeProduct("p1", 10, 5))

	clock := newFakeClock()
	counting := &countingStore{RecordStore: hub.Context("ctx-test")}
	cache := NewDefaultCatalogCache(counting, "ctx-test", clock, nil, nil)
	sub := &fakeSubscriber{ch: make(chan domain.Message, 16)}
	bus := newTestBus(cache, counting, sub, clock)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, bus.Start(ctx))
	defer bus.Close()

	mustEnvelope := func(envelopeType domain.EnvelopeType, origin, storeID string) []byte {
		raw, err := json.Marshal(domain.Envelope{
			Type: envelopeType,
			Payload: domain.ChangeNotification{
				Type:            domain.ChangeTypeProduct,
				StoreID:         storeID,
				OriginContextID: origin,
			},
		})
		require.NoError(t, err)
		return raw
	}

	// None of these may reach the debounce window.
	sub.ch <- domain.Message{Value: []byte("{broken")}
	sub.ch <- domain.Message{Value: mustEnvelope("SOMETHING_ELSE", "ctx-other", "store_1")}
	sub.ch <- domain.Message{Value: mustEnvelope(domain.EnvelopeProductUpdated, "ctx-test", "store_1")}
	sub.ch <- domain.Message{Value: mustEnvelope(domain.EnvelopeProductUpdated, "ctx-other", "")}

	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, bus.AbsorbedNotifications(), "malformed, unknown, self, and storeless envelopes are dropped")

	// A well-formed foreign envelope gets through.
	sub.ch <- domain.Message{Value: mustEnvelope(domain.EnvelopeProductUpdated, "ctx-other", "store_1")}

	require.Eventually(t, func() bool { return bus.AbsorbedNotifications() == 1 },
		time.Second, time.Millisecond)
	clock.Advance(500 * time.Millisecond)
	require.Eventually(t, func() bool { return counting.hydrations() == 1 },
		time.Second, time.Millisecond)
}

func TestSyncBus_TwoContextsConverge(t *testing.T) {
	hub := memory.NewHub()

	clockA := newFakeClock()
	storeA := hub.Context("ctx-a")
	cacheA := NewDefaultCatalogCache(storeA, "ctx-a", clockA, nil, nil)
	busA := newTestBus(cacheA, storeA, nil, clockA)
	cacheA.AttachNotifier(busA)

	clockB := newFakeClock()
	storeB := &countingStore{RecordStore: hub.Context("ctx-b")}
	cacheB := NewDefaultCatalogCache(storeB, "ctx-b", clockB, nil, nil)
	busB := newTestBus(cacheB, storeB, nil, clockB)
	cacheB.AttachNotifier(busB)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, busA.Start(ctx))
	defer busA.Close()
	require.NoError(t, busB.Start(ctx))
	defer busB.Close()

	store, err := cacheA.CreateStore(ctx, &catalogdto.CreateStoreInput{Subdomain: "foo", Name: "Foo"})
	require.NoError(t, err)
	_, err = cacheA.CreateProduct(ctx, &catalogdto.CreateProductInput{
		StoreID: store.ID, Name: "Widget", Price: 10, Stock: 1, Status: domain.ProductStatusActive,
	})
	require.NoError(t, err)

	// Context B sees the writes through the record store watch; one
	// debounce window later its slice is current.
	require.Eventually(t, func() bool { return busB.AbsorbedNotifications() == 2 },
		time.Second, time.Millisecond)
	clockB.Advance(500 * time.Millisecond)
	require.Eventually(t, func() bool { return storeB.hydrations() == 1 },
		time.Second, time.Millisecond, "bus hydrates the second context once")

	// The slice is already fresh, so this read is a cache hit.
	snapshot, err := cacheB.Get(ctx, store.ID, MerchantView)
	require.NoError(t, err)
	require.Len(t, snapshot.Products, 1)
	assert.Equal(t, 1, storeB.hydrations(), "read after convergence is served from cache")

	assert.Zero(t, busA.AbsorbedNotifications(), "originator stays quiet")
}
