package persistence

import (
	"context"

	"github.com/erp/exchange/internal/domain/exchange"
	"github.com/erp/exchange/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormSyncLogRepository implements exchange.SyncLogRepository using GORM
type GormSyncLogRepository struct {
	db *gorm.DB
}

// NewGormSyncLogRepository creates a new GormSyncLogRepository
func NewGormSyncLogRepository(db *gorm.DB) *GormSyncLogRepository {
	return &GormSyncLogRepository{db: db}
}

// Save inserts or updates an entry
func (r *GormSyncLogRepository) Save(ctx context.Context, entry *exchange.SyncLogEntry) error {
	return r.db.WithContext(ctx).Save(models.SyncLogModelFromDomain(entry)).Error
}

// Recent returns the latest entries, newest first
func (r *GormSyncLogRepository) Recent(ctx context.Context, limit int) ([]exchange.SyncLogEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []models.SyncLogModel
	if err := r.db.WithContext(ctx).
		Order("started_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	entries := make([]exchange.SyncLogEntry, len(rows))
	for i := range rows {
		entries[i] = rows[i].ToDomain()
	}
	return entries, nil
}

var _ exchange.SyncLogRepository = (*GormSyncLogRepository)(nil)
