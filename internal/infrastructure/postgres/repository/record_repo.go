package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/abdalwely/stor-sub001/internal/domain"
	"github.com/abdalwely/stor-sub001/internal/infrastructure/postgres/models"
)

// NotifyChannel is the Postgres NOTIFY channel every record write announces
// itself on. Listeners drop events carrying their own context ID, which is
// what keeps a context from re-hydrating after its own writes.
const NotifyChannel = "catalog_record_changes"

type RecordRepository struct {
	db        *gorm.DB
	contextID string
}

func NewRecordRepository(db *gorm.DB, contextID string) *RecordRepository {
	return &RecordRepository{db: db, contextID: contextID}
}

func (r *RecordRepository) Get(ctx context.Context, key string) ([]byte, error) {
	var model models.RecordModel
	if err := r.db.WithContext(ctx).First(&model, "key = ?", key).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return model.Value, nil
}

func (r *RecordRepository) Set(ctx context.Context, key string, value []byte) error {
	model := models.RecordModel{
		Key:             key,
		Value:           value,
		OriginContextID: r.contextID,
		UpdatedAt:       time.Now(),
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			UpdateAll: true,
		}).Create(&model).Error
		if err != nil {
			return err
		}
		return r.notify(tx, key, domain.RecordOpSet)
	})
}

func (r *RecordRepository) Remove(ctx context.Context, key string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.RecordModel{}, "key = ?", key)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Removing a key that was never written is a no-op, not an
			// announcement.
			return nil
		}
		return r.notify(tx, key, domain.RecordOpRemove)
	})
}

func (r *RecordRepository) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := r.db.WithContext(ctx).
		Model(&models.RecordModel{}).
		Where("key LIKE ?", prefix+"%").
		Order("key").
		Pluck("key", &keys).Error
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// notify rides the write's transaction so the event is published exactly
// when the write commits.
func (r *RecordRepository) notify(tx *gorm.DB, key string, op domain.RecordOp) error {
	payload, err := json.Marshal(domain.RecordEvent{
		Key:    key,
		Op:     op,
		Origin: r.contextID,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal record event: %w", err)
	}
	return tx.Exec("SELECT pg_notify(?, ?)", NotifyChannel, string(payload)).Error
}
