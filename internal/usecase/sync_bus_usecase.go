package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/abdalwely/stor-sub001/internal/domain"
	"github.com/abdalwely/stor-sub001/internal/infrastructure/metrics"
)

type SyncBusUsecase interface {
	Publish(n domain.ChangeNotification) error
	Subscribe(handler func(domain.ChangeNotification))
	Start(ctx context.Context) error
	Close()
}

// DefaultSyncBus fans catalog change notifications between contexts and
// collapses bursts into a single re-hydration per store.
//
// Two inbound channels feed it: the record store's watch stream (which the
// store delivers only to non-originating contexts) and the cross-context
// envelope channel (filtered here by origin context ID and a closed type
// set). Both reset one debounce timer; only when the window elapses with
// no further notifications does hydration run, once per pending store.
type DefaultSyncBus struct {
	cache     *DefaultCatalogCache
	store     domain.RecordStore
	publisher domain.PublisherPort
	subscriber domain.SubscriberPort
	contextID string
	topic     string
	groupID   string
	window    time.Duration
	clock     Clock
	metrics   *metrics.CatalogMetrics
	logger    *slog.Logger

	mu       sync.Mutex
	handlers []func(domain.ChangeNotification)

	incoming  chan domain.ChangeNotification
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	// Notifications the debounce loop has taken in so far. Lets callers
	// (and tests) observe that a burst reached the timer before the
	// window is advanced.
	absorbed atomic.Int64
}

type SyncBusConfig struct {
	ContextID string
	Topic     string
	GroupID   string
	Window    time.Duration
}

func NewDefaultSyncBus(
	cache *DefaultCatalogCache,
	store domain.RecordStore,
	publisher domain.PublisherPort,
	subscriber domain.SubscriberPort,
	cfg SyncBusConfig,
	clock Clock,
	m *metrics.CatalogMetrics,
	logger *slog.Logger,
) *DefaultSyncBus {
	if clock == nil {
		clock = NewSystemClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	window := cfg.Window
	if window <= 0 {
		window = 500 * time.Millisecond
	}
	return &DefaultSyncBus{
		cache:      cache,
		store:      store,
		publisher:  publisher,
		subscriber: subscriber,
		contextID:  cfg.ContextID,
		topic:      cfg.Topic,
		groupID:    cfg.GroupID,
		window:     window,
		clock:      clock,
		metrics:    m,
		logger:     logger,
		incoming:   make(chan domain.ChangeNotification, 64),
		done:       make(chan struct{}),
	}
}

// Publish announces a local mutation to other contexts. The record store's
// own watch channel already propagates the write to same-origin contexts,
// so only the cross-context envelope is sent here. The originating context
// never re-hydrates from its own writes.
func (b *DefaultSyncBus) Publish(n domain.ChangeNotification) error {
	if b.publisher == nil {
		return nil
	}
	envelope := domain.Envelope{
		Type:    domain.EnvelopeTypeOf(n.Type),
		Payload: n,
	}
	value, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}
	return b.publisher.Publish(b.topic, domain.Message{
		Key:   []byte(n.StoreID),
		Value: value,
	})
}

// Subscribe registers a handler invoked after a debounced re-hydration,
// once per affected store.
func (b *DefaultSyncBus) Subscribe(handler func(domain.ChangeNotification)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, handler)
}

// Start launches the watch pumps and the debounce loop. A cold (empty or
// unreadable) record store is not an error here; the resolver's bounded
// wait covers that case.
func (b *DefaultSyncBus) Start(ctx context.Context) error {
	events, err := b.store.Watch(ctx)
	if err != nil {
		return fmt.Errorf("failed to watch record store: %w", err)
	}
	b.wg.Add(1)
	go b.pumpRecordEvents(events)

	if b.subscriber != nil {
		msgs, err := b.subscriber.Subscribe(b.topic, b.groupID)
		if err != nil {
			return fmt.Errorf("failed to subscribe to change topic: %w", err)
		}
		b.wg.Add(1)
		go b.pumpEnvelopes(msgs)
	}

	b.wg.Add(1)
	go b.run(ctx)
	return nil
}

func (b *DefaultSyncBus) Close() {
	b.closeOnce.Do(func() {
		close(b.done)
	})
	b.wg.Wait()
}

func (b *DefaultSyncBus) pumpRecordEvents(events <-chan domain.RecordEvent) {
	defer b.wg.Done()
	for {
		select {
		case <-b.done:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			changeType, storeID, known := domain.ParseRecordKey(ev.Key)
			if !known {
				continue
			}
			b.recordNotification("record_store", changeType)
			b.enqueue(domain.ChangeNotification{
				Type:            changeType,
				StoreID:         storeID,
				OriginContextID: ev.Origin,
				Timestamp:       b.clock.Now(),
			})
		}
	}
}

func (b *DefaultSyncBus) pumpEnvelopes(msgs <-chan domain.Message) {
	defer b.wg.Done()
	for {
		select {
		case <-b.done:
			return
		case m, ok := <-msgs:
			if !ok {
				return
			}
			n, ok := b.decodeEnvelope(m.Value)
			if !ok {
				continue
			}
			b.recordNotification("envelope", n.Type)
			b.enqueue(n)
		}
	}
}

// decodeEnvelope validates a cross-context message at the boundary:
// unknown type tags and the context's own messages are dropped.
func (b *DefaultSyncBus) decodeEnvelope(value []byte) (domain.ChangeNotification, bool) {
	var envelope domain.Envelope
	if err := json.Unmarshal(value, &envelope); err != nil {
		b.recordIgnored("malformed")
		return domain.ChangeNotification{}, false
	}
	changeType, known := domain.ChangeTypeOf(envelope.Type)
	if !known {
		b.recordIgnored("unknown_type")
		return domain.ChangeNotification{}, false
	}
	n := envelope.Payload
	if n.OriginContextID == b.contextID {
		b.recordIgnored("self")
		return domain.ChangeNotification{}, false
	}
	if n.StoreID == "" {
		b.recordIgnored("missing_store_id")
		return domain.ChangeNotification{}, false
	}
	n.Type = changeType
	return n, true
}

// AbsorbedNotifications reports how many change notifications have entered
// the current or past debounce windows.
func (b *DefaultSyncBus) AbsorbedNotifications() int64 {
	return b.absorbed.Load()
}

func (b *DefaultSyncBus) enqueue(n domain.ChangeNotification) {
	select {
	case b.incoming <- n:
	case <-b.done:
	}
}

func (b *DefaultSyncBus) run(ctx context.Context) {
	defer b.wg.Done()

	var timer Timer
	var timerC <-chan time.Time
	pending := make(map[string]domain.ChangeNotification)

	for {
		select {
		case <-ctx.Done():
			return
		case <-b.done:
			return
		case n := <-b.incoming:
			pending[n.StoreID] = n
			b.absorbed.Add(1)
			if timer == nil {
				timer = b.clock.NewTimer(b.window)
				timerC = timer.C()
				continue
			}
			// Reset, not stack: drain a fire that raced the reset so the
			// fresh window is honored.
			if !timer.Stop() {
				select {
				case <-timerC:
				default:
				}
			}
			timer.Reset(b.window)
		case <-timerC:
			timer = nil
			timerC = nil
			b.flush(ctx, pending)
			pending = make(map[string]domain.ChangeNotification)
		}
	}
}

func (b *DefaultSyncBus) flush(ctx context.Context, pending map[string]domain.ChangeNotification) {
	for storeID, n := range pending {
		if err := b.cache.Hydrate(ctx, storeID); err != nil {
			// A store deleted elsewhere hydrates to not-found; that is the
			// converged state, not a failure.
			if !errors.Is(err, domain.ErrStoreNotFound) {
				b.logger.Warn("debounced hydration failed", "store_id", storeID, "error", err)
				continue
			}
		}
		if b.metrics != nil {
			b.metrics.RecordDebouncedReload(storeID)
		}
		b.dispatch(n)
	}
}

func (b *DefaultSyncBus) dispatch(n domain.ChangeNotification) {
	b.mu.Lock()
	handlers := append(([]func(domain.ChangeNotification))(nil), b.handlers...)
	b.mu.Unlock()
	for _, h := range handlers {
		h(n)
	}
}

func (b *DefaultSyncBus) recordNotification(channel string, changeType domain.ChangeType) {
	if b.metrics != nil {
		b.metrics.RecordChangeNotification(channel, string(changeType))
	}
}

func (b *DefaultSyncBus) recordIgnored(reason string) {
	if b.metrics != nil {
		b.metrics.RecordEnvelopeIgnored(reason)
	}
}
