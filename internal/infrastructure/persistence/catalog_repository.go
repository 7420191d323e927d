package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/exchange/internal/domain/exchange"
	"github.com/erp/exchange/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormCatalogRepository implements exchange.CatalogStore using GORM
type GormCatalogRepository struct {
	db *gorm.DB
}

// NewGormCatalogRepository creates a new GormCatalogRepository
func NewGormCatalogRepository(db *gorm.DB) *GormCatalogRepository {
	return &GormCatalogRepository{db: db}
}

// WithTx returns a new repository instance with the given transaction
func (r *GormCatalogRepository) WithTx(tx *gorm.DB) *GormCatalogRepository {
	return &GormCatalogRepository{db: tx}
}

// ---------------------------------------------------------------------------
// Categories
// ---------------------------------------------------------------------------

// UpsertCategory creates or updates a category. A known id whose row is gone
// is recreated under the same id.
func (r *GormCatalogRepository) UpsertCategory(ctx context.Context, id uuid.UUID, in exchange.CategoryInput) (uuid.UUID, error) {
	db := r.db.WithContext(ctx)

	var model models.CategoryModel
	exists, err := r.load(db, &model, id)
	if err != nil {
		return uuid.Nil, err
	}
	if !exists {
		model = models.CategoryModel{BaseModel: newBase(id)}
	}

	model.Name = in.Name
	model.Description = in.Description
	model.ParentID = in.ParentID
	if model.ParentID != nil && *model.ParentID == model.ID {
		model.ParentID = nil
	}

	if exists {
		err = db.Save(&model).Error
	} else {
		err = db.Create(&model).Error
	}
	if err != nil {
		return uuid.Nil, err
	}
	return model.ID, nil
}

// FindCategory loads a category by id
func (r *GormCatalogRepository) FindCategory(ctx context.Context, id uuid.UUID) (*models.CategoryModel, error) {
	var model models.CategoryModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, exchange.ErrMappingNotFound
		}
		return nil, err
	}
	return &model, nil
}

// ---------------------------------------------------------------------------
// Products and variations
// ---------------------------------------------------------------------------

// UpsertProduct creates or updates a base product with its category links,
// attributes and offer fields in one transaction. A product is never turned
// back from variable into simple.
func (r *GormCatalogRepository) UpsertProduct(ctx context.Context, id uuid.UUID, in exchange.ProductInput) (uuid.UUID, error) {
	var productID uuid.UUID
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model models.ProductModel
		exists, err := r.load(tx, &model, id)
		if err != nil {
			return err
		}
		if !exists {
			model = models.ProductModel{BaseModel: newBase(id), Kind: models.ProductKindSimple}
		}

		model.Name = in.Name
		model.Description = in.Description
		model.Unit = in.Unit
		if in.SKU != "" {
			model.SKU = in.SKU
		}
		if in.Barcode != "" {
			model.Barcode = in.Barcode
		}
		if in.Manufacturer != "" {
			model.Manufacturer = in.Manufacturer
		}
		if in.Weight != nil {
			model.Weight = in.Weight
		}
		if in.Variable {
			model.Kind = models.ProductKindVariable
		}
		model.Status = models.ProductStatusActive
		applyOffer(&model, in.Offer)

		if exists {
			err = tx.Save(&model).Error
		} else {
			err = tx.Create(&model).Error
		}
		if err != nil {
			return err
		}

		if in.CategoryIDs != nil {
			if err := replaceCategories(tx, model.ID, in.CategoryIDs); err != nil {
				return err
			}
		}
		if err := setAttributes(tx, model.ID, in.Attributes); err != nil {
			return err
		}
		productID = model.ID
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	return productID, nil
}

// UpsertVariation creates or updates a variation of parentID
func (r *GormCatalogRepository) UpsertVariation(ctx context.Context, id uuid.UUID, parentID uuid.UUID, in exchange.VariationInput) (uuid.UUID, error) {
	var variationID uuid.UUID
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model models.ProductModel
		exists, err := r.load(tx, &model, id)
		if err != nil {
			return err
		}
		if !exists {
			model = models.ProductModel{BaseModel: newBase(id)}
		}

		model.Kind = models.ProductKindVariation
		model.ParentID = &parentID
		model.Name = in.Name
		model.Status = models.ProductStatusActive
		if in.SKU != "" {
			model.SKU = in.SKU
		}
		if in.Barcode != "" {
			model.Barcode = in.Barcode
		}
		applyOffer(&model, in.Offer)

		if exists {
			err = tx.Save(&model).Error
		} else {
			err = tx.Create(&model).Error
		}
		if err != nil {
			return err
		}
		if err := setAttributes(tx, model.ID, in.Attributes); err != nil {
			return err
		}
		variationID = model.ID
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	return variationID, nil
}

// FindProduct loads a product or variation by id
func (r *GormCatalogRepository) FindProduct(ctx context.Context, id uuid.UUID) (*models.ProductModel, error) {
	var model models.ProductModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, exchange.ErrMappingNotFound
		}
		return nil, err
	}
	return &model, nil
}

// IsVariable reports whether the product accepts variations
func (r *GormCatalogRepository) IsVariable(ctx context.Context, productID uuid.UUID) (bool, error) {
	var model models.ProductModel
	if err := r.db.WithContext(ctx).Select("id", "kind").First(&model, "id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, fmt.Errorf("%w: %s", exchange.ErrParentNotFound, productID)
		}
		return false, err
	}
	return model.Kind == models.ProductKindVariable, nil
}

// SKUTaken reports whether sku belongs to a product other than except
func (r *GormCatalogRepository) SKUTaken(ctx context.Context, sku string, except uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ProductModel{}).
		Where("sku = ? AND id <> ?", sku, except).
		Count(&count).Error
	return count > 0, err
}

// UpdateOffer writes only the price and stock fields of a product or variation
func (r *GormCatalogRepository) UpdateOffer(ctx context.Context, id uuid.UUID, update exchange.OfferUpdate) error {
	updates := offerColumns(update)
	if len(updates) == 0 {
		return nil
	}
	result := r.db.WithContext(ctx).
		Model(&models.ProductModel{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: product %s", exchange.ErrMappingNotFound, id)
	}
	return nil
}

// SoftDelete marks a product and its variations deleted
func (r *GormCatalogRepository) SoftDelete(ctx context.Context, productID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.ProductModel{}).
		Where("id = ? OR parent_id = ?", productID, productID).
		Update("status", models.ProductStatusDeleted).Error
}

// ProductCategoryIDs returns the categories a product is linked to
func (r *GormCatalogRepository) ProductCategoryIDs(ctx context.Context, productID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.ProductCategoryModel{}).
		Where("product_id = ?", productID).
		Order("category_id").
		Pluck("category_id", &ids).Error
	return ids, err
}

// ---------------------------------------------------------------------------
// Attributes
// ---------------------------------------------------------------------------

// EnsureAttribute creates the attribute schema once; repeated calls are no-ops
func (r *GormCatalogRepository) EnsureAttribute(ctx context.Context, taxonomy, label string) error {
	model := &models.AttributeModel{BaseModel: models.NewBaseModel(), Taxonomy: taxonomy, Label: label}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "taxonomy"}},
			DoNothing: true,
		}).
		Create(model).Error
}

// AddVariationOptions unions options into the product's variation attribute,
// keeping the order in which options were first seen.
func (r *GormCatalogRepository) AddVariationOptions(ctx context.Context, productID uuid.UUID, taxonomy string, options []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		attr := &models.ProductAttributeModel{ProductID: productID, Taxonomy: taxonomy, Variation: true}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "product_id"}, {Name: "taxonomy"}},
			DoUpdates: clause.Assignments(map[string]any{"variation": true}),
		}).Create(attr).Error; err != nil {
			return err
		}

		existing, err := variationOptions(tx, productID, taxonomy)
		if err != nil {
			return err
		}
		seen := make(map[string]struct{}, len(existing))
		for _, o := range existing {
			seen[o] = struct{}{}
		}
		position := len(existing)
		for _, option := range options {
			if option == "" {
				continue
			}
			if _, ok := seen[option]; ok {
				continue
			}
			seen[option] = struct{}{}
			row := &models.ProductAttributeOptionModel{
				ProductID: productID,
				Taxonomy:  taxonomy,
				Option:    option,
				Position:  position,
			}
			if err := tx.Create(row).Error; err != nil {
				return err
			}
			position++
		}
		return nil
	})
}

// VariationOptions returns the options of a variation attribute in order
func (r *GormCatalogRepository) VariationOptions(ctx context.Context, productID uuid.UUID, taxonomy string) ([]string, error) {
	return variationOptions(r.db.WithContext(ctx), productID, taxonomy)
}

// ProductAttributes returns the attribute values set on a product
func (r *GormCatalogRepository) ProductAttributes(ctx context.Context, productID uuid.UUID) ([]models.ProductAttributeModel, error) {
	var rows []models.ProductAttributeModel
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("taxonomy").
		Find(&rows).Error
	return rows, err
}

// ---------------------------------------------------------------------------
// Images
// ---------------------------------------------------------------------------

// AttachImages replaces the product's images; the featured one comes first
func (r *GormCatalogRepository) AttachImages(ctx context.Context, productID uuid.UUID, images []exchange.ProductImage) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", productID).Delete(&models.ProductImageModel{}).Error; err != nil {
			return err
		}
		for i, img := range images {
			row := &models.ProductImageModel{
				BaseModel:  models.NewBaseModel(),
				ProductID:  productID,
				SourcePath: img.SourcePath,
				StorageKey: img.Key,
				URL:        img.URL,
				Featured:   img.Featured,
				Position:   i,
			}
			if err := tx.Create(row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// ImageSources returns the images attached to a product in display order
func (r *GormCatalogRepository) ImageSources(ctx context.Context, productID uuid.UUID) ([]exchange.ProductImage, error) {
	var rows []models.ProductImageModel
	if err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("position ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	images := make([]exchange.ProductImage, len(rows))
	for i, row := range rows {
		images[i] = exchange.ProductImage{
			SourcePath: row.SourcePath,
			Key:        row.StorageKey,
			URL:        row.URL,
			Featured:   row.Featured,
		}
	}
	return images, nil
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

// load fills dest with the row for id. A nil id or a missing row reports
// false without error.
func (r *GormCatalogRepository) load(db *gorm.DB, dest any, id uuid.UUID) (bool, error) {
	if id == uuid.Nil {
		return false, nil
	}
	if err := db.First(dest, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func newBase(id uuid.UUID) models.BaseModel {
	if id == uuid.Nil {
		return models.NewBaseModel()
	}
	return models.BaseModel{ID: id}
}

func applyOffer(model *models.ProductModel, offer *exchange.OfferUpdate) {
	if offer == nil {
		return
	}
	if offer.Price != nil {
		price := *offer.Price
		model.Price = &price
		model.Currency = offer.Currency
	}
	if offer.Stock != nil {
		stock := *offer.Stock
		model.Stock = &stock
		model.StockStatus = models.StockStatusFor(stock)
	}
}

func offerColumns(update exchange.OfferUpdate) map[string]any {
	columns := make(map[string]any)
	if update.Price != nil {
		columns["price"] = *update.Price
		columns["currency"] = update.Currency
	}
	if update.Stock != nil {
		columns["stock"] = *update.Stock
		columns["stock_status"] = models.StockStatusFor(*update.Stock)
	}
	return columns
}

func replaceCategories(tx *gorm.DB, productID uuid.UUID, categoryIDs []uuid.UUID) error {
	if err := tx.Where("product_id = ?", productID).Delete(&models.ProductCategoryModel{}).Error; err != nil {
		return err
	}
	seen := make(map[uuid.UUID]struct{}, len(categoryIDs))
	links := make([]models.ProductCategoryModel, 0, len(categoryIDs))
	for _, id := range categoryIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		links = append(links, models.ProductCategoryModel{ProductID: productID, CategoryID: id})
	}
	if len(links) == 0 {
		return nil
	}
	return tx.Create(&links).Error
}

func setAttributes(tx *gorm.DB, productID uuid.UUID, attrs []exchange.AttributeAssignment) error {
	for _, a := range attrs {
		row := &models.ProductAttributeModel{
			ProductID: productID,
			Taxonomy:  a.Taxonomy,
			Label:     a.Label,
			Value:     a.Value,
			Variation: a.Variation,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "product_id"}, {Name: "taxonomy"}},
			DoUpdates: clause.AssignmentColumns([]string{"label", "value", "variation"}),
		}).Create(row).Error; err != nil {
			return err
		}
	}
	return nil
}

func variationOptions(db *gorm.DB, productID uuid.UUID, taxonomy string) ([]string, error) {
	var options []string
	err := db.Model(&models.ProductAttributeOptionModel{}).
		Where("product_id = ? AND taxonomy = ?", productID, taxonomy).
		Order("position ASC").
		Pluck("option_value", &options).Error
	return options, err
}

var _ exchange.CatalogStore = (*GormCatalogRepository)(nil)
