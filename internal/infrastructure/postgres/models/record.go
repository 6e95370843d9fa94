package models

import "time"

// RecordModel is one durable key->JSON record. Writes are whole-value
// replacements keyed by the primary key, so concurrent writers cannot
// interleave partial state.
type RecordModel struct {
	Key             string    `gorm:"primaryKey"`
	Value           []byte    `gorm:"type:jsonb;not null"`
	OriginContextID string    `gorm:"index:idx_records_origin"`
	UpdatedAt       time.Time
}

func (RecordModel) TableName() string {
	return "records"
}
