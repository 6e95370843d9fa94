package postgres

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/abdalwely/stor-sub001/internal/domain"
	"github.com/abdalwely/stor-sub001/internal/infrastructure/postgres/repository"
)

// RecordListener turns Postgres LISTEN/NOTIFY into the record store's
// watch channel. Events written by this listener's own context are dropped
// here, so the originating context never observes its own change.
type RecordListener struct {
	dsn       string
	contextID string
	logger    *slog.Logger
}

func NewRecordListener(dsn, contextID string, logger *slog.Logger) *RecordListener {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecordListener{dsn: dsn, contextID: contextID, logger: logger}
}

func (l *RecordListener) Watch(ctx context.Context) (<-chan domain.RecordEvent, error) {
	listener := pq.NewListener(l.dsn, time.Second, time.Minute, func(event pq.ListenerEventType, err error) {
		if err != nil {
			l.logger.Warn("record listener connection event", "event", int(event), "error", err)
		}
	})
	if err := listener.Listen(repository.NotifyChannel); err != nil {
		listener.Close()
		return nil, err
	}

	out := make(chan domain.RecordEvent, 128)
	go func() {
		defer close(out)
		defer listener.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case n, ok := <-listener.Notify:
				if !ok {
					return
				}
				if n == nil {
					// Reconnect marker from lib/pq; nothing to deliver.
					continue
				}
				var ev domain.RecordEvent
				if err := json.Unmarshal([]byte(n.Extra), &ev); err != nil {
					l.logger.Warn("malformed record event payload", "error", err)
					continue
				}
				if ev.Origin == l.contextID {
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
