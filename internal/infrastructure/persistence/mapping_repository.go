package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/exchange/internal/domain/exchange"
	"github.com/erp/exchange/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormMappingRepository implements exchange.MappingStore using GORM
type GormMappingRepository struct {
	db *gorm.DB
}

// NewGormMappingRepository creates a new GormMappingRepository
func NewGormMappingRepository(db *gorm.DB) *GormMappingRepository {
	return &GormMappingRepository{db: db}
}

// WithTx returns a new repository instance with the given transaction
func (r *GormMappingRepository) WithTx(tx *gorm.DB) *GormMappingRepository {
	return &GormMappingRepository{db: tx}
}

// ---------------------------------------------------------------------------
// MappingReader implementation
// ---------------------------------------------------------------------------

// ResolveGUID returns the local id mapped to (guid, entityType)
func (r *GormMappingRepository) ResolveGUID(ctx context.Context, guid string, entityType exchange.EntityType) (uuid.UUID, error) {
	var model models.IDMappingModel
	if err := r.db.WithContext(ctx).
		Where("guid = ? AND entity_type = ?", guid, entityType).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, exchange.ErrMappingNotFound
		}
		return uuid.Nil, err
	}
	return model.LocalID, nil
}

// CountByType counts the mappings of one entity type
func (r *GormMappingRepository) CountByType(ctx context.Context, entityType exchange.EntityType) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.IDMappingModel{}).
		Where("entity_type = ?", entityType).
		Count(&count).Error
	return count, err
}

// FindByLocalID returns the mapping pointing at a local entity.
func (r *GormMappingRepository) FindByLocalID(ctx context.Context, localID uuid.UUID, entityTypes ...exchange.EntityType) (*exchange.IDMapping, error) {
	query := r.db.WithContext(ctx).Where("local_id = ?", localID)
	if len(entityTypes) > 0 {
		query = query.Where("entity_type IN ?", entityTypes)
	}
	var model models.IDMappingModel
	if err := query.Order("updated_at DESC").First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, exchange.ErrMappingNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ---------------------------------------------------------------------------
// MappingWriter implementation
// ---------------------------------------------------------------------------

// MapGUID creates or replaces the mapping for (guid, entityType)
func (r *GormMappingRepository) MapGUID(ctx context.Context, guid string, entityType exchange.EntityType, localID uuid.UUID) error {
	mapping, err := exchange.NewIDMapping(guid, entityType, localID)
	if err != nil {
		return err
	}
	model := models.IDMappingModelFromDomain(mapping)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "guid"}, {Name: "entity_type"}},
			DoUpdates: clause.Assignments(map[string]any{
				"local_id":   localID,
				"updated_at": time.Now(),
			}),
		}).
		Create(model).Error
}

var _ exchange.MappingStore = (*GormMappingRepository)(nil)
