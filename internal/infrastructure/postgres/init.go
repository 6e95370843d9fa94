package postgres

import (
	"log"

	"github.com/abdalwely/stor-sub001/internal/config"
	"github.com/abdalwely/stor-sub001/internal/infrastructure/postgres/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func MustInitDB(cfg *config.CatalogConfig) *gorm.DB {
	dsn := cfg.RecordDB.Dsn
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to init db: %v\n", err.Error())
	}

	db.AutoMigrate(&models.RecordModel{})

	return db
}
