package models

import (
	"time"

	"github.com/erp/exchange/internal/domain/exchange"
	"github.com/google/uuid"
)

// IDMappingModel is the persistence model for exchange.IDMapping.
type IDMappingModel struct {
	ID         uuid.UUID           `gorm:"type:uuid;primary_key"`
	GUID       string              `gorm:"column:guid;type:varchar(255);not null;uniqueIndex:idx_id_mapping_guid_type,priority:1"`
	EntityType exchange.EntityType `gorm:"type:varchar(20);not null;uniqueIndex:idx_id_mapping_guid_type,priority:2;index:idx_id_mapping_local,priority:2"`
	LocalID    uuid.UUID           `gorm:"type:uuid;not null;index:idx_id_mapping_local,priority:1"`
	CreatedAt  time.Time           `gorm:"not null"`
	UpdatedAt  time.Time           `gorm:"not null"`
}

// TableName returns the table name for GORM
func (IDMappingModel) TableName() string {
	return "id_mappings"
}

// ToDomain converts the persistence model to a domain IDMapping.
func (m *IDMappingModel) ToDomain() *exchange.IDMapping {
	return &exchange.IDMapping{
		GUID:      m.GUID,
		Type:      m.EntityType,
		LocalID:   m.LocalID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// IDMappingModelFromDomain creates a new persistence model from a domain IDMapping.
func IDMappingModelFromDomain(mapping *exchange.IDMapping) *IDMappingModel {
	return &IDMappingModel{
		ID:         uuid.New(),
		GUID:       mapping.GUID,
		EntityType: mapping.Type,
		LocalID:    mapping.LocalID,
		CreatedAt:  mapping.CreatedAt,
		UpdatedAt:  mapping.UpdatedAt,
	}
}
