package cache

import (
	"context"
	"errors"
	"fmt"

	"royale-audit/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SQLBackend stores entries in the cache_entries table (sqlite or mysql).
type SQLBackend struct {
	db *gorm.DB
}

// NewSQLBackend migrates the cache table and returns a backend on db.
func NewSQLBackend(db *gorm.DB) (*SQLBackend, error) {
	if err := db.AutoMigrate(&model.CacheEntry{}); err != nil {
		return nil, fmt.Errorf("migrate cache table: %w", err)
	}
	return &SQLBackend{db: db}, nil
}

func (b *SQLBackend) Load(ctx context.Context, dataset string) (Entry, error) {
	var row model.CacheEntry
	err := b.db.WithContext(ctx).Where("dataset = ?", dataset).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Entry{}, ErrNotStored
	}
	if err != nil {
		return Entry{}, fmt.Errorf("query %s: %w", dataset, err)
	}
	return Entry{Dataset: row.Dataset, Payload: row.Payload, WrittenAt: row.WrittenAt}, nil
}

func (b *SQLBackend) Save(ctx context.Context, e Entry) error {
	row := model.CacheEntry{Dataset: e.Dataset, Payload: e.Payload, WrittenAt: e.WrittenAt}
	err := b.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "dataset"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "written_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("upsert %s: %w", e.Dataset, err)
	}
	return nil
}

func (b *SQLBackend) Close() error {
	sqlDB, err := b.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
