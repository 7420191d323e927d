package persistence

import (
	"context"
	"testing"

	"github.com/erp/exchange/internal/domain/exchange"
	"github.com/erp/exchange/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decimalPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestGormCatalogRepository_UpsertCategory(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormCatalogRepository(db.DB)
	ctx := context.Background()

	rootID, err := repo.UpsertCategory(ctx, uuid.Nil, exchange.CategoryInput{GUID: "root", Name: "Одежда"})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, rootID)

	childID, err := repo.UpsertCategory(ctx, uuid.Nil, exchange.CategoryInput{GUID: "child", Name: "Футболки", ParentID: &rootID})
	require.NoError(t, err)

	t.Run("stores the parent", func(t *testing.T) {
		child, err := repo.FindCategory(ctx, childID)
		require.NoError(t, err)
		require.NotNil(t, child.ParentID)
		assert.Equal(t, rootID, *child.ParentID)
	})

	t.Run("updates in place", func(t *testing.T) {
		id, err := repo.UpsertCategory(ctx, childID, exchange.CategoryInput{Name: "Майки", Description: "Летние"})
		require.NoError(t, err)
		assert.Equal(t, childID, id)

		child, err := repo.FindCategory(ctx, childID)
		require.NoError(t, err)
		assert.Equal(t, "Майки", child.Name)
		assert.Equal(t, "Летние", child.Description)
		assert.Nil(t, child.ParentID)
	})

	t.Run("self parent becomes root", func(t *testing.T) {
		_, err := repo.UpsertCategory(ctx, rootID, exchange.CategoryInput{Name: "Одежда", ParentID: &rootID})
		require.NoError(t, err)

		root, err := repo.FindCategory(ctx, rootID)
		require.NoError(t, err)
		assert.Nil(t, root.ParentID)
	})

	t.Run("recreates a vanished row under the same id", func(t *testing.T) {
		ghost := uuid.New()
		id, err := repo.UpsertCategory(ctx, ghost, exchange.CategoryInput{Name: "Обувь"})
		require.NoError(t, err)
		assert.Equal(t, ghost, id)
	})
}

func TestGormCatalogRepository_UpsertProduct(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormCatalogRepository(db.DB)
	ctx := context.Background()

	catA, err := repo.UpsertCategory(ctx, uuid.Nil, exchange.CategoryInput{Name: "A"})
	require.NoError(t, err)
	catB, err := repo.UpsertCategory(ctx, uuid.Nil, exchange.CategoryInput{Name: "B"})
	require.NoError(t, err)

	weight := 0.25
	id, err := repo.UpsertProduct(ctx, uuid.Nil, exchange.ProductInput{
		GUID:        "prod-1",
		Name:        "Футболка",
		SKU:         "TS-001",
		Unit:        "шт",
		Weight:      &weight,
		CategoryIDs: []uuid.UUID{catA, catA},
		Attributes: []exchange.AttributeAssignment{
			{Taxonomy: "pa_cvet", Label: "Цвет", Value: "Белый"},
		},
		Offer: &exchange.OfferUpdate{Price: decimalPtr("100"), Currency: "RUB", Stock: decimalPtr("8")},
	})
	require.NoError(t, err)

	t.Run("creates the product with links and offer", func(t *testing.T) {
		p, err := repo.FindProduct(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "Футболка", p.Name)
		assert.Equal(t, "TS-001", p.SKU)
		assert.Equal(t, models.ProductKindSimple, p.Kind)
		assert.Equal(t, models.ProductStatusActive, p.Status)
		require.NotNil(t, p.Price)
		assert.True(t, p.Price.Equal(decimal.NewFromInt(100)))
		require.NotNil(t, p.Stock)
		assert.True(t, p.Stock.Equal(decimal.NewFromInt(8)))
		assert.Equal(t, models.StockInStock, p.StockStatus)
		require.NotNil(t, p.Weight)
		assert.InDelta(t, 0.25, *p.Weight, 0.0001)

		cats, err := repo.ProductCategoryIDs(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{catA}, cats)

		attrs, err := repo.ProductAttributes(ctx, id)
		require.NoError(t, err)
		require.Len(t, attrs, 1)
		assert.Equal(t, "Белый", attrs[0].Value)
	})

	t.Run("update keeps sku and links when not given", func(t *testing.T) {
		_, err := repo.UpsertProduct(ctx, id, exchange.ProductInput{Name: "Футболка белая", Unit: "шт"})
		require.NoError(t, err)

		p, err := repo.FindProduct(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "Футболка белая", p.Name)
		assert.Equal(t, "TS-001", p.SKU)
		require.NotNil(t, p.Price)

		cats, err := repo.ProductCategoryIDs(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{catA}, cats)
	})

	t.Run("empty category list clears links", func(t *testing.T) {
		_, err := repo.UpsertProduct(ctx, id, exchange.ProductInput{Name: "Футболка", CategoryIDs: []uuid.UUID{}})
		require.NoError(t, err)

		cats, err := repo.ProductCategoryIDs(ctx, id)
		require.NoError(t, err)
		assert.Empty(t, cats)

		_, err = repo.UpsertProduct(ctx, id, exchange.ProductInput{Name: "Футболка", CategoryIDs: []uuid.UUID{catB}})
		require.NoError(t, err)
		cats, err = repo.ProductCategoryIDs(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{catB}, cats)
	})

	t.Run("variable is never downgraded", func(t *testing.T) {
		_, err := repo.UpsertProduct(ctx, id, exchange.ProductInput{Name: "Футболка", Variable: true})
		require.NoError(t, err)
		_, err = repo.UpsertProduct(ctx, id, exchange.ProductInput{Name: "Футболка"})
		require.NoError(t, err)

		variable, err := repo.IsVariable(ctx, id)
		require.NoError(t, err)
		assert.True(t, variable)
	})

	t.Run("sku taken by another product", func(t *testing.T) {
		taken, err := repo.SKUTaken(ctx, "TS-001", uuid.New())
		require.NoError(t, err)
		assert.True(t, taken)

		taken, err = repo.SKUTaken(ctx, "TS-001", id)
		require.NoError(t, err)
		assert.False(t, taken)
	})
}

func TestGormCatalogRepository_Variations(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormCatalogRepository(db.DB)
	ctx := context.Background()

	parentID, err := repo.UpsertProduct(ctx, uuid.Nil, exchange.ProductInput{Name: "Футболка", Variable: true})
	require.NoError(t, err)

	varID, err := repo.UpsertVariation(ctx, uuid.Nil, parentID, exchange.VariationInput{
		GUID: "prod-1#s",
		Name: "Футболка S",
		SKU:  "TS-001-S",
		Attributes: []exchange.AttributeAssignment{
			{Taxonomy: "pa_razmer", Label: "Размер", Value: "S", Variation: true},
		},
		Offer: &exchange.OfferUpdate{Stock: decimalPtr("0")},
	})
	require.NoError(t, err)

	v, err := repo.FindProduct(ctx, varID)
	require.NoError(t, err)
	assert.Equal(t, models.ProductKindVariation, v.Kind)
	require.NotNil(t, v.ParentID)
	assert.Equal(t, parentID, *v.ParentID)
	assert.Equal(t, models.StockOutOfStock, v.StockStatus)

	variable, err := repo.IsVariable(ctx, varID)
	require.NoError(t, err)
	assert.False(t, variable)

	_, err = repo.IsVariable(ctx, uuid.New())
	assert.ErrorIs(t, err, exchange.ErrParentNotFound)

	t.Run("options are unioned in first-seen order", func(t *testing.T) {
		require.NoError(t, repo.AddVariationOptions(ctx, parentID, "pa_razmer", []string{"S", "L"}))
		require.NoError(t, repo.AddVariationOptions(ctx, parentID, "pa_razmer", []string{"M", "S", ""}))

		options, err := repo.VariationOptions(ctx, parentID, "pa_razmer")
		require.NoError(t, err)
		assert.Equal(t, []string{"S", "L", "M"}, options)

		attrs, err := repo.ProductAttributes(ctx, parentID)
		require.NoError(t, err)
		require.Len(t, attrs, 1)
		assert.True(t, attrs[0].Variation)
	})

	t.Run("soft delete covers variations", func(t *testing.T) {
		require.NoError(t, repo.SoftDelete(ctx, parentID))

		p, err := repo.FindProduct(ctx, parentID)
		require.NoError(t, err)
		assert.Equal(t, models.ProductStatusDeleted, p.Status)

		v, err := repo.FindProduct(ctx, varID)
		require.NoError(t, err)
		assert.Equal(t, models.ProductStatusDeleted, v.Status)
	})
}

func TestGormCatalogRepository_Attributes(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormCatalogRepository(db.DB)
	ctx := context.Background()

	require.NoError(t, repo.EnsureAttribute(ctx, "pa_razmer", "Размер"))
	require.NoError(t, repo.EnsureAttribute(ctx, "pa_razmer", "Другое имя"))

	var rows []models.AttributeModel
	require.NoError(t, db.DB.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, "Размер", rows[0].Label)
}

func TestGormCatalogRepository_UpdateOffer(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormCatalogRepository(db.DB)
	ctx := context.Background()

	id, err := repo.UpsertProduct(ctx, uuid.Nil, exchange.ProductInput{Name: "Футболка"})
	require.NoError(t, err)

	t.Run("price only", func(t *testing.T) {
		require.NoError(t, repo.UpdateOffer(ctx, id, exchange.OfferUpdate{Price: decimalPtr("99.50"), Currency: "RUB"}))

		p, err := repo.FindProduct(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, p.Price)
		assert.True(t, p.Price.Equal(decimal.RequireFromString("99.5")))
		assert.Nil(t, p.Stock)
	})

	t.Run("stock only", func(t *testing.T) {
		require.NoError(t, repo.UpdateOffer(ctx, id, exchange.OfferUpdate{Stock: decimalPtr("3")}))

		p, err := repo.FindProduct(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, p.Stock)
		assert.True(t, p.Stock.Equal(decimal.NewFromInt(3)))
		assert.True(t, p.Price.Equal(decimal.RequireFromString("99.5")))
		assert.Equal(t, models.StockInStock, p.StockStatus)
	})

	t.Run("empty update is a no-op", func(t *testing.T) {
		assert.NoError(t, repo.UpdateOffer(ctx, uuid.New(), exchange.OfferUpdate{}))
	})

	t.Run("unknown product", func(t *testing.T) {
		err := repo.UpdateOffer(ctx, uuid.New(), exchange.OfferUpdate{Stock: decimalPtr("1")})
		assert.ErrorIs(t, err, exchange.ErrMappingNotFound)
	})
}

func TestGormCatalogRepository_Images(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormCatalogRepository(db.DB)
	ctx := context.Background()

	id, err := repo.UpsertProduct(ctx, uuid.Nil, exchange.ProductInput{Name: "Футболка"})
	require.NoError(t, err)

	images := []exchange.ProductImage{
		{SourcePath: "import_files/a.jpg", Key: "products/a.jpg", URL: "https://cdn/a.jpg", Featured: true},
		{SourcePath: "import_files/b.jpg", Key: "products/b.jpg", URL: "https://cdn/b.jpg"},
	}
	require.NoError(t, repo.AttachImages(ctx, id, images))

	got, err := repo.ImageSources(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, images, got)

	require.NoError(t, repo.AttachImages(ctx, id, images[1:]))
	got, err = repo.ImageSources(ctx, id)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "import_files/b.jpg", got[0].SourcePath)
}
