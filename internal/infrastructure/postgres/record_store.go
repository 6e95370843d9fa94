package postgres

import (
	"context"
	"log/slog"

	"gorm.io/gorm"

	"github.com/abdalwely/stor-sub001/internal/domain"
	"github.com/abdalwely/stor-sub001/internal/infrastructure/postgres/repository"
)

// RecordStore combines the gorm-backed repository with the LISTEN/NOTIFY
// watcher into one domain.RecordStore.
type RecordStore struct {
	*repository.RecordRepository
	listener *RecordListener
}

func NewRecordStore(db *gorm.DB, dsn, contextID string, logger *slog.Logger) *RecordStore {
	return &RecordStore{
		RecordRepository: repository.NewRecordRepository(db, contextID),
		listener:         NewRecordListener(dsn, contextID, logger),
	}
}

func (s *RecordStore) Watch(ctx context.Context) (<-chan domain.RecordEvent, error) {
	return s.listener.Watch(ctx)
}
