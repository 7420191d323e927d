package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductKind is the local product type.
type ProductKind string

const (
	ProductKindSimple    ProductKind = "simple"
	ProductKindVariable  ProductKind = "variable"
	ProductKindVariation ProductKind = "variation"
)

// ProductStatus is the local publication status.
type ProductStatus string

const (
	ProductStatusActive  ProductStatus = "active"
	ProductStatusDeleted ProductStatus = "deleted"
)

// StockStatus is derived from the published stock.
type StockStatus string

const (
	StockInStock    StockStatus = "instock"
	StockOutOfStock StockStatus = "outofstock"
)

// StockStatusFor returns the stock status for quantity
func StockStatusFor(quantity decimal.Decimal) StockStatus {
	if quantity.IsPositive() {
		return StockInStock
	}
	return StockOutOfStock
}

// CategoryModel is a node of the local category tree.
type CategoryModel struct {
	BaseModel
	Name        string     `gorm:"type:varchar(255);not null"`
	Description string     `gorm:"type:text"`
	ParentID    *uuid.UUID `gorm:"type:uuid;index"`
}

// TableName returns the table name for GORM
func (CategoryModel) TableName() string {
	return "categories"
}

// ProductModel stores base products and their variations. Variations carry
// ParentID and the kind "variation".
type ProductModel struct {
	BaseModel
	ParentID     *uuid.UUID       `gorm:"type:uuid;index"`
	Kind         ProductKind      `gorm:"type:varchar(20);not null;default:'simple'"`
	Name         string           `gorm:"type:varchar(255);not null"`
	Description  string           `gorm:"type:text"`
	SKU          string           `gorm:"type:varchar(100);index"`
	Barcode      string           `gorm:"type:varchar(100)"`
	Manufacturer string           `gorm:"type:varchar(255)"`
	Unit         string           `gorm:"type:varchar(20)"`
	Weight       *float64         `gorm:"type:decimal(12,3)"`
	Price        *decimal.Decimal `gorm:"type:decimal(18,4)"`
	Currency     string           `gorm:"type:varchar(10)"`
	Stock        *decimal.Decimal `gorm:"type:decimal(18,4)"`
	StockStatus  StockStatus      `gorm:"type:varchar(20);not null;default:'outofstock'"`
	Status       ProductStatus    `gorm:"type:varchar(20);not null;default:'active';index"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ProductCategoryModel links a product to a category.
type ProductCategoryModel struct {
	ProductID  uuid.UUID `gorm:"type:uuid;primaryKey"`
	CategoryID uuid.UUID `gorm:"type:uuid;primaryKey;index"`
}

// TableName returns the table name for GORM
func (ProductCategoryModel) TableName() string {
	return "product_categories"
}

// AttributeModel is a global product attribute schema entry.
type AttributeModel struct {
	BaseModel
	Taxonomy string `gorm:"type:varchar(200);not null;uniqueIndex"`
	Label    string `gorm:"type:varchar(255);not null"`
}

// TableName returns the table name for GORM
func (AttributeModel) TableName() string {
	return "attributes"
}

// ProductAttributeModel is an attribute value set on a product or variation.
// On a variable product with Variation set, the allowed options live in
// product_attribute_options.
type ProductAttributeModel struct {
	ProductID uuid.UUID `gorm:"type:uuid;primaryKey"`
	Taxonomy  string    `gorm:"type:varchar(200);primaryKey"`
	Label     string    `gorm:"type:varchar(255)"`
	Value     string    `gorm:"type:text"`
	Variation bool      `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (ProductAttributeModel) TableName() string {
	return "product_attributes"
}

// ProductAttributeOptionModel is one allowed option of a variation attribute.
type ProductAttributeOptionModel struct {
	ProductID uuid.UUID `gorm:"type:uuid;primaryKey"`
	Taxonomy  string    `gorm:"type:varchar(200);primaryKey"`
	Option    string    `gorm:"column:option_value;type:varchar(255);primaryKey"`
	Position  int       `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (ProductAttributeOptionModel) TableName() string {
	return "product_attribute_options"
}

// ProductImageModel is an image attached to a product.
type ProductImageModel struct {
	BaseModel
	ProductID  uuid.UUID `gorm:"type:uuid;not null;index"`
	SourcePath string    `gorm:"type:varchar(500);not null"`
	StorageKey string    `gorm:"type:varchar(500);not null"`
	URL        string    `gorm:"type:varchar(1000)"`
	Featured   bool      `gorm:"not null;default:false"`
	Position   int       `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (ProductImageModel) TableName() string {
	return "product_images"
}
