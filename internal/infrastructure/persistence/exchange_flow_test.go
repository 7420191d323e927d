package persistence

import (
	"context"
	"testing"

	appexchange "github.com/erp/exchange/internal/application/exchange"
	"github.com/erp/exchange/internal/domain/exchange"
	"github.com/erp/exchange/internal/infrastructure/commerceml"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const flowCatalog = `<?xml version="1.0" encoding="UTF-8"?>
<КоммерческаяИнформация ВерсияСхемы="2.10">
  <Классификатор>
    <Ид>cls</Ид>
    <Группы>
      <Группа>
        <Ид>cat-root</Ид>
        <Наименование>Одежда</Наименование>
        <Группы>
          <Группа>
            <Ид>cat-child</Ид>
            <Наименование>Футболки</Наименование>
          </Группа>
        </Группы>
      </Группа>
    </Группы>
  </Классификатор>
  <Каталог>
    <Ид>cat</Ид>
    <Товары>
      <Товар>
        <Ид>prod-1</Ид>
        <Артикул>TS-001</Артикул>
        <Наименование>Футболка белая</Наименование>
        <Группы><Ид>cat-child</Ид></Группы>
      </Товар>
    </Товары>
  </Каталог>
</КоммерческаяИнформация>`

const flowOffers = `<?xml version="1.0" encoding="UTF-8"?>
<КоммерческаяИнформация ВерсияСхемы="2.10">
  <ПакетПредложений>
    <ТипыЦен>
      <ТипЦены><Ид>p-retail</Ид><Наименование>Розничная</Наименование><Валюта>RUB</Валюта></ТипЦены>
    </ТипыЦен>
    <Предложения>
      <Предложение>
        <Ид>prod-1</Ид>
        <Цены>
          <Цена><ИдТипаЦены>p-retail</ИдТипаЦены><ЦенаЗаЕдиницу>100</ЦенаЗаЕдиницу></Цена>
        </Цены>
        <Склад ИдСклада="A" КоличествоНаСкладе="3"/>
        <Склад ИдСклада="B" КоличествоНаСкладе="5"/>
      </Предложение>
      <Предложение>
        <Ид>prod-unknown</Ид>
        <Количество>1</Количество>
      </Предложение>
    </Предложения>
  </ПакетПредложений>
</КоммерческаяИнформация>`

func TestCatalogImportFlow(t *testing.T) {
	db := setupTestDB(t)
	stores := db.Stores()
	ctx := context.Background()
	logger := zaptest.NewLogger(t)

	parser := commerceml.NewParser(commerceml.WithParserLogger(logger))
	reconciler := appexchange.NewReconciler(stores.Mappings, stores.Catalog, appexchange.WithReconcilerLogger(logger))

	doc, err := parser.ParseCatalog([]byte(flowCatalog))
	require.NoError(t, err)

	catStats := reconciler.ReconcileCategories(ctx, doc.Categories)
	assert.Equal(t, 2, catStats.Created)
	prodStats := reconciler.ReconcileProducts(ctx, doc.Products, nil)
	assert.Equal(t, 1, prodStats.Created)
	assert.Empty(t, prodStats.Errors)

	count, err := stores.Mappings.CountByType(ctx, exchange.EntityCategory)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	count, err = stores.Mappings.CountByType(ctx, exchange.EntityProduct)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	childID, err := stores.Mappings.ResolveGUID(ctx, "cat-child", exchange.EntityCategory)
	require.NoError(t, err)
	productID, err := stores.Mappings.ResolveGUID(ctx, "prod-1", exchange.EntityProduct)
	require.NoError(t, err)

	cats, err := stores.Catalog.ProductCategoryIDs(ctx, productID)
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, childID, cats[0])

	t.Run("second import updates", func(t *testing.T) {
		again := reconciler.ReconcileProducts(ctx, doc.Products, nil)
		assert.Equal(t, 1, again.Updated)
		assert.Equal(t, 0, again.Created)
	})

	t.Run("offers update price and stock", func(t *testing.T) {
		offers, err := parser.ParseOffers([]byte(flowOffers))
		require.NoError(t, err)

		stats := reconciler.ReconcileOffers(ctx, offers.Offers)
		assert.Equal(t, 1, stats.Updated)
		assert.Equal(t, 1, stats.NotFound)

		p, err := stores.Catalog.FindProduct(ctx, productID)
		require.NoError(t, err)
		require.NotNil(t, p.Price)
		assert.True(t, p.Price.Equal(decimal.NewFromInt(100)))
		require.NotNil(t, p.Stock)
		assert.True(t, p.Stock.Equal(decimal.NewFromInt(8)))
	})
}
