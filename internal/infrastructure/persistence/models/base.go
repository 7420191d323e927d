package models

import (
	"time"

	"github.com/google/uuid"
)

// BaseModel provides common persistence fields for all models.
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// NewBaseModel returns a BaseModel with a fresh id
func NewBaseModel() BaseModel {
	return BaseModel{ID: uuid.New()}
}

// AllModels lists every model, in dependency order, for AutoMigrate in tests.
func AllModels() []any {
	return []any{
		&CategoryModel{},
		&ProductModel{},
		&ProductCategoryModel{},
		&AttributeModel{},
		&ProductAttributeModel{},
		&ProductAttributeOptionModel{},
		&ProductImageModel{},
		&IDMappingModel{},
		&CustomerModel{},
		&OrderModel{},
		&OrderItemModel{},
		&SyncLogModel{},
	}
}
