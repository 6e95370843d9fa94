package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/abdalwely/stor-sub001/internal/domain"
)

// Hub is an in-process durable record store shared by several contexts.
// Each context gets its own view via Context; writes through one view are
// announced to every other view's watch channel, never back to the writer.
// Used in tests and when no database DSN is configured.
type Hub struct {
	mu       sync.RWMutex
	values   map[string][]byte
	watchers []*watcher
}

type watcher struct {
	contextID string
	ch        chan domain.RecordEvent
	closed    bool
}

func NewHub() *Hub {
	return &Hub{values: make(map[string][]byte)}
}

// Context returns this context's view of the shared store.
func (h *Hub) Context(contextID string) *Store {
	return &Store{hub: h, contextID: contextID}
}

func (h *Hub) get(key string) []byte {
	h.mu.RLock()
	defer h.mu.RUnlock()
	v, ok := h.values[key]
	if !ok {
		return nil
	}
	return append([]byte(nil), v...)
}

func (h *Hub) set(key string, value []byte, origin string) {
	h.mu.Lock()
	h.values[key] = append([]byte(nil), value...)
	h.mu.Unlock()
	h.broadcast(domain.RecordEvent{Key: key, Op: domain.RecordOpSet, Origin: origin})
}

func (h *Hub) remove(key string, origin string) {
	h.mu.Lock()
	_, existed := h.values[key]
	delete(h.values, key)
	h.mu.Unlock()
	if existed {
		h.broadcast(domain.RecordEvent{Key: key, Op: domain.RecordOpRemove, Origin: origin})
	}
}

func (h *Hub) keys(prefix string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var keys []string
	for k := range h.values {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// broadcast delivers to every watcher except the originating context. A
// slow watcher drops events rather than blocking writers.
func (h *Hub) broadcast(ev domain.RecordEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, w := range h.watchers {
		if w.closed || w.contextID == ev.Origin {
			continue
		}
		select {
		case w.ch <- ev:
		default:
		}
	}
}

func (h *Hub) watch(ctx context.Context, contextID string) <-chan domain.RecordEvent {
	w := &watcher{contextID: contextID, ch: make(chan domain.RecordEvent, 128)}
	h.mu.Lock()
	h.watchers = append(h.watchers, w)
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		w.closed = true
		for i, cur := range h.watchers {
			if cur == w {
				h.watchers = append(h.watchers[:i], h.watchers[i+1:]...)
				break
			}
		}
		h.mu.Unlock()
		close(w.ch)
	}()

	return w.ch
}

// Store is one context's handle on the hub, implementing
// domain.RecordStore.
type Store struct {
	hub       *Hub
	contextID string
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	return s.hub.get(key), nil
}

func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.hub.set(key, value, s.contextID)
	return nil
}

func (s *Store) Remove(_ context.Context, key string) error {
	s.hub.remove(key, s.contextID)
	return nil
}

func (s *Store) Keys(_ context.Context, prefix string) ([]string, error) {
	return s.hub.keys(prefix), nil
}

func (s *Store) Watch(ctx context.Context) (<-chan domain.RecordEvent, error) {
	return s.hub.watch(ctx, s.contextID), nil
}
