package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/exchange/internal/domain/exchange"
	"github.com/erp/exchange/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormOrderRepository implements exchange.OrderStore using GORM
type GormOrderRepository struct {
	db             *gorm.DB
	now            func() time.Time
	exportStatuses []exchange.OrderStatus
}

// OrderRepositoryOption configures a GormOrderRepository
type OrderRepositoryOption func(*GormOrderRepository)

// WithExportStatuses limits the export to orders in one of statuses.
// Without it every pending order is exported.
func WithExportStatuses(statuses ...exchange.OrderStatus) OrderRepositoryOption {
	return func(r *GormOrderRepository) {
		r.exportStatuses = statuses
	}
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB, opts ...OrderRepositoryOption) *GormOrderRepository {
	r := &GormOrderRepository{db: db, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// OrdersPendingExport returns orders never exported or changed since, oldest
// first, restricted to the export statuses when any are set. Missing export
// and customer GUIDs are generated and stored so that every later export
// reuses them.
func (r *GormOrderRepository) OrdersPendingExport(ctx context.Context) ([]exchange.OrderExportRecord, error) {
	db := r.db.WithContext(ctx)

	query := db.
		Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("position ASC") }).
		Preload("Customer").
		Where("exported = ? OR needs_update = ?", false, true)
	if len(r.exportStatuses) > 0 {
		query = query.Where("status IN ?", r.exportStatuses)
	}

	var orders []models.OrderModel
	if err := query.Order("created_at ASC").Find(&orders).Error; err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, nil
	}

	guids, err := r.productGUIDs(db, orders)
	if err != nil {
		return nil, err
	}

	records := make([]exchange.OrderExportRecord, 0, len(orders))
	for i := range orders {
		order := &orders[i]
		if err := r.ensureIdentity(db, order); err != nil {
			return nil, err
		}
		rec := order.ToExportRecord()
		rec.Customer = exportCustomer(order)
		for j := range rec.Items {
			item := order.Items[j]
			if item.ProductID != nil {
				rec.Items[j].ProductGUID = guids[*item.ProductID]
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

// MarkExported sets the exported flag on the given orders and clears any
// pending re-export.
func (r *GormOrderRepository) MarkExported(ctx context.Context, localIDs []string) error {
	if len(localIDs) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(localIDs))
	for _, s := range localIDs {
		id, err := uuid.Parse(s)
		if err != nil {
			return fmt.Errorf("invalid order id %q: %w", s, err)
		}
		ids = append(ids, id)
	}
	return r.db.WithContext(ctx).
		Model(&models.OrderModel{}).
		Where("id IN ?", ids).
		Updates(map[string]any{
			"exported":     true,
			"needs_update": false,
			"exported_at":  r.now(),
		}).Error
}

// ApplyUpdate applies an ERP order change. The order is looked up by its
// export GUID, then by number.
func (r *GormOrderRepository) ApplyUpdate(ctx context.Context, update exchange.OrderUpdate) error {
	db := r.db.WithContext(ctx)

	order, err := r.findForUpdate(db, update)
	if err != nil {
		return err
	}

	changes := make(map[string]any)
	if update.Status != "" {
		changes["status"] = update.Status
	}
	if update.TrackingNumber != "" {
		changes["tracking_number"] = update.TrackingNumber
	}
	if update.DocumentNumber != "" {
		changes["document_number"] = update.DocumentNumber
	}
	if len(changes) == 0 {
		return nil
	}
	return db.Model(order).Updates(changes).Error
}

// SetStatus changes an order status from the shop side. An order that was
// already exported is queued for export again.
func (r *GormOrderRepository) SetStatus(ctx context.Context, orderID uuid.UUID, status exchange.OrderStatus) error {
	db := r.db.WithContext(ctx)

	var order models.OrderModel
	if err := db.First(&order, "id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return exchange.ErrOrderNotFound
		}
		return err
	}
	if order.Status == status {
		return nil
	}
	changes := map[string]any{"status": status}
	if order.Exported {
		changes["needs_update"] = true
	}
	return db.Model(&order).Updates(changes).Error
}

// FindByID loads an order with its items
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.OrderModel, error) {
	var order models.OrderModel
	if err := r.db.WithContext(ctx).Preload("Items").First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, exchange.ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (r *GormOrderRepository) findForUpdate(db *gorm.DB, update exchange.OrderUpdate) (*models.OrderModel, error) {
	var order models.OrderModel
	if update.ExportGUID != "" {
		err := db.Where("export_guid = ?", update.ExportGUID).First(&order).Error
		if err == nil {
			return &order, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	if update.Number != "" {
		err := db.Where("number = ?", update.Number).First(&order).Error
		if err == nil {
			return &order, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	return nil, exchange.ErrOrderNotFound
}

func (r *GormOrderRepository) ensureIdentity(db *gorm.DB, order *models.OrderModel) error {
	if order.ExportGUID == "" {
		order.ExportGUID = uuid.NewString()
		if err := db.Model(order).UpdateColumn("export_guid", order.ExportGUID).Error; err != nil {
			return err
		}
	}
	if order.Customer != nil && order.Customer.ExportGUID == "" {
		order.Customer.ExportGUID = uuid.NewString()
		if err := db.Model(order.Customer).UpdateColumn("export_guid", order.Customer.ExportGUID).Error; err != nil {
			return err
		}
	}
	return nil
}

// productGUIDs resolves the foreign ids of every product in orders.
func (r *GormOrderRepository) productGUIDs(db *gorm.DB, orders []models.OrderModel) (map[uuid.UUID]string, error) {
	var ids []uuid.UUID
	for _, o := range orders {
		for _, item := range o.Items {
			if item.ProductID != nil {
				ids = append(ids, *item.ProductID)
			}
		}
	}
	guids := make(map[uuid.UUID]string, len(ids))
	if len(ids) == 0 {
		return guids, nil
	}
	var rows []models.IDMappingModel
	if err := db.
		Where("local_id IN ? AND entity_type IN ?", ids, []exchange.EntityType{exchange.EntityProduct, exchange.EntityVariation}).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		guids[row.LocalID] = row.GUID
	}
	return guids, nil
}

// exportCustomer builds the counterparty of an order. Billing fields win;
// a registered customer fills the gaps and supplies its stored GUID, a guest
// gets a GUID derived from the billing email.
func exportCustomer(order *models.OrderModel) exchange.Customer {
	c := exchange.Customer{
		FirstName: order.BillingFirstName,
		LastName:  order.BillingLastName,
		Company:   order.BillingCompany,
		Email:     order.BillingEmail,
		Phone:     order.BillingPhone,
	}
	if reg := order.Customer; reg != nil {
		c.GUID = reg.ExportGUID
		c.FirstName = firstNonEmpty(c.FirstName, reg.FirstName)
		c.LastName = firstNonEmpty(c.LastName, reg.LastName)
		c.Company = firstNonEmpty(c.Company, reg.Company)
		c.Email = firstNonEmpty(c.Email, reg.Email)
		c.Phone = firstNonEmpty(c.Phone, reg.Phone)
		return c
	}
	if c.Email != "" {
		c.GUID = exchange.GuestCustomerGUID(c.Email)
	} else {
		c.GUID = order.ExportGUID
	}
	return c
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

var _ exchange.OrderStore = (*GormOrderRepository)(nil)
