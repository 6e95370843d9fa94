package logger

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// CatalogChangeEvent is one row of the record store's change log: which
// context changed what, when. Notifications themselves stay ephemeral;
// this log is the only durable trace.
type CatalogChangeEvent struct {
	ID         uint `gorm:"primaryKey"`
	ChangeType string
	StoreID    string `gorm:"index:idx_change_events_store"`
	ContextID  string
	Timestamp  time.Time
}

func (CatalogChangeEvent) TableName() string {
	return "catalog_change_events"
}

type ChangeEventLogger interface {
	LogChange(ctx context.Context, event CatalogChangeEvent) error
}

type PGChangeEventLogger struct {
	db *gorm.DB
}

func NewPGChangeEventLogger(db *gorm.DB) *PGChangeEventLogger {
	db.AutoMigrate(&CatalogChangeEvent{})
	return &PGChangeEventLogger{db: db}
}

func (l *PGChangeEventLogger) LogChange(ctx context.Context, event CatalogChangeEvent) error {
	return l.db.WithContext(ctx).Create(&event).Error
}
