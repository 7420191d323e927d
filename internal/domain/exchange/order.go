package exchange

import (
	"crypto/md5"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is the local order status.
type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderOnHold     OrderStatus = "on-hold"
	OrderCompleted  OrderStatus = "completed"
	OrderCancelled  OrderStatus = "cancelled"
	OrderRefunded   OrderStatus = "refunded"
	OrderFailed     OrderStatus = "failed"
)

// outboundStatusLabels translates local statuses to the ERP labels.
var outboundStatusLabels = map[OrderStatus]string{
	OrderPending:    "Новый",
	OrderProcessing: "В обработке",
	OrderOnHold:     "На удержании",
	OrderCompleted:  "Выполнен",
	OrderCancelled:  "Отменен",
	OrderRefunded:   "Возврат",
	OrderFailed:     "Ошибка",
}

// inboundStatusLabels translates ERP labels back. It is the inverse of the
// outbound table plus labels the ERP sends but never receives.
var inboundStatusLabels = map[string]OrderStatus{
	"Новый":        OrderPending,
	"В обработке":  OrderProcessing,
	"На удержании": OrderOnHold,
	"Выполнен":     OrderCompleted,
	"Отменен":      OrderCancelled,
	"Возврат":      OrderRefunded,
	"Ошибка":       OrderFailed,
	"Отгружен":     OrderCompleted,
	"Оплачен":      OrderProcessing,
}

// StatusLabel returns the ERP label for status, or the status itself when
// the table has no entry.
func StatusLabel(status OrderStatus) string {
	if label, ok := outboundStatusLabels[status]; ok {
		return label
	}
	return string(status)
}

// StatusFromLabel returns the local status for an ERP label.
func StatusFromLabel(label string) (OrderStatus, bool) {
	status, ok := inboundStatusLabels[strings.TrimSpace(label)]
	return status, ok
}

// Address holds the billing address fields sent to the ERP.
type Address struct {
	Postcode string
	Country  string
	State    string
	City     string
	Street   string
}

// Customer is the counterparty of an exported order.
type Customer struct {
	GUID      string
	FirstName string
	LastName  string
	Company   string
	Email     string
	Phone     string
}

// DisplayName returns the company name, or the person's full name.
func (c Customer) DisplayName() string {
	if c.Company != "" {
		return c.Company
	}
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// FullName returns the person's full name
func (c Customer) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// guestNamespace scopes deterministic guest GUIDs.
var guestNamespace = uuid.MustParse("6ba7b811-9dad-11d1-80b4-00c04fd430c8")

// GuestCustomerGUID derives a stable GUID for a guest from their email, so
// repeated guest orders map to one ERP counterparty.
func GuestCustomerGUID(email string) string {
	return uuid.NewHash(md5.New(), guestNamespace, []byte("guest_"+strings.ToLower(strings.TrimSpace(email))), 3).String()
}

// OrderLine is one line item of an exported order.
type OrderLine struct {
	ProductLocalID string
	ProductGUID    string
	SKU            string
	Name           string
	Price          decimal.Decimal
	Quantity       decimal.Decimal
	Total          decimal.Decimal
	Discount       decimal.Decimal
}

// ExportID returns the foreign product id if known, else the local id.
func (l OrderLine) ExportID() string {
	if l.ProductGUID != "" {
		return l.ProductGUID
	}
	return l.ProductLocalID
}

// OrderExportRecord is the normalized view of a local order sent to the ERP.
type OrderExportRecord struct {
	LocalID        string
	ExportGUID     string
	Number         string
	CreatedAt      time.Time
	Currency       string
	Total          decimal.Decimal
	Comment        string
	Status         OrderStatus
	PaidAt         *time.Time
	PaymentMethod  string
	ShippingMethod string
	ShippingTotal  decimal.Decimal
	Customer       Customer
	Billing        Address
	Items          []OrderLine
}

// OrderUpdate is an inbound order change from the ERP. Empty fields are
// left untouched.
type OrderUpdate struct {
	ExportGUID     string
	Number         string
	Status         OrderStatus
	TrackingNumber string
	DocumentNumber string
}

// HasChanges returns true if the update carries anything to apply
func (u OrderUpdate) HasChanges() bool {
	return u.Status != "" || u.TrackingNumber != "" || u.DocumentNumber != ""
}
