package models

import (
	"time"

	"github.com/erp/exchange/internal/domain/exchange"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CustomerModel is a registered shop customer.
type CustomerModel struct {
	BaseModel
	ExportGUID string `gorm:"type:varchar(64);index"`
	FirstName  string `gorm:"type:varchar(100)"`
	LastName   string `gorm:"type:varchar(100)"`
	Company    string `gorm:"type:varchar(255)"`
	Email      string `gorm:"type:varchar(255);index"`
	Phone      string `gorm:"type:varchar(50)"`
}

// TableName returns the table name for GORM
func (CustomerModel) TableName() string {
	return "customers"
}

// OrderModel is a shop order together with its exchange bookkeeping.
// ExportGUID is assigned on first export and never changes afterwards.
type OrderModel struct {
	BaseModel
	Number         string               `gorm:"type:varchar(50);not null;index"`
	Status         exchange.OrderStatus `gorm:"type:varchar(20);not null;default:'pending'"`
	Currency       string               `gorm:"type:varchar(10);not null;default:'RUB'"`
	Total          decimal.Decimal      `gorm:"type:decimal(18,2);not null;default:0"`
	ShippingTotal  decimal.Decimal      `gorm:"type:decimal(18,2);not null;default:0"`
	ShippingMethod string               `gorm:"type:varchar(255)"`
	PaymentMethod  string               `gorm:"type:varchar(255)"`
	PaidAt         *time.Time
	Comment        string         `gorm:"type:text"`
	CustomerID     *uuid.UUID     `gorm:"type:uuid;index"`
	Customer       *CustomerModel `gorm:"foreignKey:CustomerID"`

	BillingFirstName string `gorm:"type:varchar(100)"`
	BillingLastName  string `gorm:"type:varchar(100)"`
	BillingCompany   string `gorm:"type:varchar(255)"`
	BillingEmail     string `gorm:"type:varchar(255)"`
	BillingPhone     string `gorm:"type:varchar(50)"`
	BillingPostcode  string `gorm:"type:varchar(20)"`
	BillingCountry   string `gorm:"type:varchar(100)"`
	BillingState     string `gorm:"type:varchar(100)"`
	BillingCity      string `gorm:"type:varchar(100)"`
	BillingStreet    string `gorm:"type:varchar(500)"`

	ExportGUID     string `gorm:"type:varchar(64);index"`
	Exported       bool   `gorm:"not null;default:false;index:idx_order_export_pending,priority:1"`
	NeedsUpdate    bool   `gorm:"not null;default:false;index:idx_order_export_pending,priority:2"`
	ExportedAt     *time.Time
	TrackingNumber string `gorm:"type:varchar(100)"`
	DocumentNumber string `gorm:"type:varchar(100)"`

	Items []OrderItemModel `gorm:"foreignKey:OrderID"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// OrderItemModel is one line of an order.
type OrderItemModel struct {
	ID        uuid.UUID       `gorm:"type:uuid;primary_key"`
	OrderID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID *uuid.UUID      `gorm:"type:uuid"`
	SKU       string          `gorm:"type:varchar(100)"`
	Name      string          `gorm:"type:varchar(255);not null"`
	Price     decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	Quantity  decimal.Decimal `gorm:"type:decimal(18,3);not null;default:0"`
	Total     decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	Discount  decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	Position  int             `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (OrderItemModel) TableName() string {
	return "order_items"
}

// ToExportRecord converts the order to the exchange export view. The
// customer GUID and item GUIDs are resolved by the caller.
func (m *OrderModel) ToExportRecord() exchange.OrderExportRecord {
	rec := exchange.OrderExportRecord{
		LocalID:        m.ID.String(),
		ExportGUID:     m.ExportGUID,
		Number:         m.Number,
		CreatedAt:      m.CreatedAt,
		Currency:       m.Currency,
		Total:          m.Total,
		Comment:        m.Comment,
		Status:         m.Status,
		PaidAt:         m.PaidAt,
		PaymentMethod:  m.PaymentMethod,
		ShippingMethod: m.ShippingMethod,
		ShippingTotal:  m.ShippingTotal,
		Customer: exchange.Customer{
			FirstName: m.BillingFirstName,
			LastName:  m.BillingLastName,
			Company:   m.BillingCompany,
			Email:     m.BillingEmail,
			Phone:     m.BillingPhone,
		},
		Billing: exchange.Address{
			Postcode: m.BillingPostcode,
			Country:  m.BillingCountry,
			State:    m.BillingState,
			City:     m.BillingCity,
			Street:   m.BillingStreet,
		},
		Items: make([]exchange.OrderLine, 0, len(m.Items)),
	}
	for _, item := range m.Items {
		line := exchange.OrderLine{
			SKU:      item.SKU,
			Name:     item.Name,
			Price:    item.Price,
			Quantity: item.Quantity,
			Total:    item.Total,
			Discount: item.Discount,
		}
		if item.ProductID != nil {
			line.ProductLocalID = item.ProductID.String()
		}
		rec.Items = append(rec.Items, line)
	}
	return rec
}
