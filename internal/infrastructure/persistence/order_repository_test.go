package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/erp/exchange/internal/domain/exchange"
	"github.com/erp/exchange/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type orderFixture struct {
	repo       *GormOrderRepository
	registered models.OrderModel
	guest      models.OrderModel
	productID  uuid.UUID
}

func newOrderFixture(t *testing.T) (*orderFixture, *gorm.DB) {
	t.Helper()
	db := setupTestDB(t)
	ctx := context.Background()

	productID := uuid.New()
	require.NoError(t, NewGormMappingRepository(db.DB).MapGUID(ctx, "prod-1", exchange.EntityProduct, productID))

	customer := models.CustomerModel{
		BaseModel: models.NewBaseModel(),
		FirstName: "Иван",
		LastName:  "Петров",
		Email:     "ivan@example.com",
		Phone:     "+79990000000",
	}
	require.NoError(t, db.DB.Create(&customer).Error)

	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	registered := models.OrderModel{
		BaseModel:   models.BaseModel{ID: uuid.New(), CreatedAt: base, UpdatedAt: base},
		Number:      "1001",
		Status:      exchange.OrderProcessing,
		Currency:    "RUB",
		Total:       decimal.NewFromInt(200),
		CustomerID:  &customer.ID,
		BillingCity: "Москва",
		Items: []models.OrderItemModel{
			{ID: uuid.New(), ProductID: &productID, SKU: "TS-001", Name: "Футболка", Price: decimal.NewFromInt(100), Quantity: decimal.NewFromInt(2), Total: decimal.NewFromInt(200)},
			{ID: uuid.New(), Name: "Доставка", Price: decimal.Zero, Quantity: decimal.NewFromInt(1), Position: 1},
		},
	}
	guest := models.OrderModel{
		BaseModel:        models.BaseModel{ID: uuid.New(), CreatedAt: base.Add(time.Hour), UpdatedAt: base.Add(time.Hour)},
		Number:           "1002",
		Status:           exchange.OrderPending,
		Currency:         "RUB",
		Total:            decimal.NewFromInt(50),
		BillingFirstName: "Гость",
		BillingEmail:     "Guest@Example.com",
	}
	require.NoError(t, db.DB.Create(&registered).Error)
	require.NoError(t, db.DB.Create(&guest).Error)

	repo := NewGormOrderRepository(db.DB)
	repo.now = func() time.Time { return base.Add(24 * time.Hour) }

	return &orderFixture{repo: repo, registered: registered, guest: guest, productID: productID}, db.DB
}

func TestGormOrderRepository_OrdersPendingExport(t *testing.T) {
	f, db := newOrderFixture(t)
	ctx := context.Background()

	records, err := f.repo.OrdersPendingExport(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)

	reg := records[0]
	assert.Equal(t, f.registered.ID.String(), reg.LocalID)
	assert.Equal(t, "1001", reg.Number)
	assert.NotEmpty(t, reg.ExportGUID)
	assert.Equal(t, "Иван", reg.Customer.FirstName)
	assert.Equal(t, "ivan@example.com", reg.Customer.Email)
	assert.NotEmpty(t, reg.Customer.GUID)
	assert.Equal(t, "Москва", reg.Billing.City)
	require.Len(t, reg.Items, 2)
	assert.Equal(t, "prod-1", reg.Items[0].ProductGUID)
	assert.Equal(t, "prod-1", reg.Items[0].ExportID())
	assert.Empty(t, reg.Items[1].ProductGUID)
	assert.True(t, reg.Total.Equal(decimal.NewFromInt(200)))

	guest := records[1]
	assert.Equal(t, exchange.GuestCustomerGUID("guest@example.com"), guest.Customer.GUID)

	t.Run("identities are stable across exports", func(t *testing.T) {
		again, err := f.repo.OrdersPendingExport(ctx)
		require.NoError(t, err)
		require.Len(t, again, 2)
		assert.Equal(t, reg.ExportGUID, again[0].ExportGUID)
		assert.Equal(t, reg.Customer.GUID, again[0].Customer.GUID)

		var stored models.CustomerModel
		require.NoError(t, db.First(&stored, "id = ?", *f.registered.CustomerID).Error)
		assert.Equal(t, reg.Customer.GUID, stored.ExportGUID)
	})

	t.Run("exported orders leave the pending set", func(t *testing.T) {
		require.NoError(t, f.repo.MarkExported(ctx, []string{reg.LocalID}))

		pending, err := f.repo.OrdersPendingExport(ctx)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, "1002", pending[0].Number)

		order, err := f.repo.FindByID(ctx, f.registered.ID)
		require.NoError(t, err)
		assert.True(t, order.Exported)
		assert.False(t, order.NeedsUpdate)
		assert.NotNil(t, order.ExportedAt)
	})

	t.Run("status change re-queues an exported order", func(t *testing.T) {
		require.NoError(t, f.repo.SetStatus(ctx, f.registered.ID, exchange.OrderCompleted))

		pending, err := f.repo.OrdersPendingExport(ctx)
		require.NoError(t, err)
		assert.Len(t, pending, 2)

		order, err := f.repo.FindByID(ctx, f.registered.ID)
		require.NoError(t, err)
		assert.True(t, order.NeedsUpdate)
		assert.Equal(t, exchange.OrderCompleted, order.Status)
	})

	t.Run("invalid id", func(t *testing.T) {
		assert.Error(t, f.repo.MarkExported(ctx, []string{"42"}))
		assert.NoError(t, f.repo.MarkExported(ctx, nil))
	})
}

func TestGormOrderRepository_OrdersPendingExport_StatusFilter(t *testing.T) {
	f, db := newOrderFixture(t)
	ctx := context.Background()
	repo := NewGormOrderRepository(db, WithExportStatuses(exchange.OrderProcessing, exchange.OrderCompleted))

	records, err := repo.OrdersPendingExport(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "1001", records[0].Number)

	// the pending guest order becomes exportable once it is being processed
	require.NoError(t, f.repo.SetStatus(ctx, f.guest.ID, exchange.OrderProcessing))
	records, err = repo.OrdersPendingExport(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "1002", records[1].Number)
}

func TestGormOrderRepository_SetStatus_NotExported(t *testing.T) {
	f, _ := newOrderFixture(t)
	ctx := context.Background()

	require.NoError(t, f.repo.SetStatus(ctx, f.guest.ID, exchange.OrderOnHold))

	order, err := f.repo.FindByID(ctx, f.guest.ID)
	require.NoError(t, err)
	assert.Equal(t, exchange.OrderOnHold, order.Status)
	assert.False(t, order.NeedsUpdate)

	assert.ErrorIs(t, f.repo.SetStatus(ctx, uuid.New(), exchange.OrderOnHold), exchange.ErrOrderNotFound)
}

func TestGormOrderRepository_ApplyUpdate(t *testing.T) {
	f, _ := newOrderFixture(t)
	ctx := context.Background()

	records, err := f.repo.OrdersPendingExport(ctx)
	require.NoError(t, err)
	guid := records[0].ExportGUID

	t.Run("by export guid", func(t *testing.T) {
		err := f.repo.ApplyUpdate(ctx, exchange.OrderUpdate{
			ExportGUID:     guid,
			Status:         exchange.OrderCompleted,
			TrackingNumber: "TRACK-1",
		})
		require.NoError(t, err)

		order, err := f.repo.FindByID(ctx, f.registered.ID)
		require.NoError(t, err)
		assert.Equal(t, exchange.OrderCompleted, order.Status)
		assert.Equal(t, "TRACK-1", order.TrackingNumber)
		assert.Empty(t, order.DocumentNumber)
	})

	t.Run("falls back to number", func(t *testing.T) {
		err := f.repo.ApplyUpdate(ctx, exchange.OrderUpdate{
			ExportGUID:     "unknown-guid",
			Number:         "1002",
			DocumentNumber: "ЗК-77",
		})
		require.NoError(t, err)

		order, err := f.repo.FindByID(ctx, f.guest.ID)
		require.NoError(t, err)
		assert.Equal(t, "ЗК-77", order.DocumentNumber)
		assert.Equal(t, exchange.OrderPending, order.Status)
	})

	t.Run("unknown order", func(t *testing.T) {
		err := f.repo.ApplyUpdate(ctx, exchange.OrderUpdate{ExportGUID: "nope", Status: exchange.OrderCancelled})
		assert.ErrorIs(t, err, exchange.ErrOrderNotFound)
	})
}
