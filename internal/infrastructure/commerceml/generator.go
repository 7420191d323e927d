package commerceml

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/erp/exchange/internal/domain/exchange"
)

// Fixed literals of the outbound orders document.
const (
	operationOrder   = "Заказ товара"
	roleSeller       = "Продавец"
	roleBuyer        = "Покупатель"
	exchangeRate     = "1"
	unitName         = "шт"
	unitCode         = "796"
	unitFullName     = "Штука"
	discountName     = "Скидка"
	contactEmail     = "Почта"
	contactPhone     = "Телефон"
	dateLayout       = "2006-01-02"
	timeLayout       = "15:04:05"
	moneyPrecision   = 2
	quantityMaxScale = 3
)

// GenerateOrdersDocument serializes orders into a CommerceML orders
// document. The output depends only on its arguments.
func GenerateOrdersDocument(orders []exchange.OrderExportRecord, generatedAt time.Time) ([]byte, error) {
	doc := ordersDocumentOut{
		SchemaVersion: SchemaVersion,
		GeneratedAt:   generatedAt.Format(timestampLayout),
		Documents:     make([]orderDocumentOut, 0, len(orders)),
	}
	for _, o := range orders {
		doc.Documents = append(doc.Documents, buildOrderDocument(o))
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("failed to encode orders document: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode orders document: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func buildOrderDocument(o exchange.OrderExportRecord) orderDocumentOut {
	currency := o.Currency
	if currency == "" {
		currency = exchange.DefaultCurrency
	}

	paidDate := ""
	if o.PaidAt != nil {
		paidDate = o.PaidAt.Format(dateLayout)
	}

	return orderDocumentOut{
		ID:        o.ExportGUID,
		Number:    o.Number,
		Date:      o.CreatedAt.Format(dateLayout),
		Time:      o.CreatedAt.Format(timeLayout),
		Operation: operationOrder,
		Role:      roleSeller,
		Currency:  currency,
		Rate:      exchangeRate,
		Sum:       formatMoney(o.Total),
		Comment:   o.Comment,
		Requisites: []requisiteXML{
			{Name: requisiteOrderStatus, Value: exchange.StatusLabel(o.Status)},
			{Name: "Дата оплаты", Value: paidDate},
			{Name: "Способ оплаты", Value: o.PaymentMethod},
			{Name: "Способ доставки", Value: o.ShippingMethod},
			{Name: "Итого по доставке", Value: formatMoney(o.ShippingTotal)},
		},
		Counterparties: []counterpartyOut{buildCounterparty(o.Customer, o.Billing)},
		Items:          buildItems(o.Items),
	}
}

func buildCounterparty(c exchange.Customer, addr exchange.Address) counterpartyOut {
	cp := counterpartyOut{
		ID:       c.GUID,
		Name:     c.DisplayName(),
		Role:     roleBuyer,
		FullName: c.FullName(),
	}

	for _, f := range []addressFieldOut{
		{Type: "Почтовый индекс", Value: addr.Postcode},
		{Type: "Страна", Value: addr.Country},
		{Type: "Регион", Value: addr.State},
		{Type: "Город", Value: addr.City},
		{Type: "Улица", Value: addr.Street},
	} {
		if f.Value != "" {
			cp.Address.Fields = append(cp.Address.Fields, f)
		}
	}

	if c.Email != "" {
		cp.Contacts.Contacts = append(cp.Contacts.Contacts, contactOut{Type: contactEmail, Value: c.Email})
	}
	if c.Phone != "" {
		cp.Contacts.Contacts = append(cp.Contacts.Contacts, contactOut{Type: contactPhone, Value: c.Phone})
	}
	return cp
}

func buildItems(lines []exchange.OrderLine) []itemOut {
	items := make([]itemOut, 0, len(lines))
	for _, l := range lines {
		item := itemOut{
			ID:   l.ExportID(),
			SKU:  l.SKU,
			Name: l.Name,
			BaseUnit: baseUnitOut{
				Code:     unitCode,
				FullName: unitFullName,
				Value:    unitName,
			},
			UnitPrice: formatMoney(l.Price),
			Quantity:  formatQuantity(l.Quantity),
			Sum:       formatMoney(l.Total),
		}
		if !l.Discount.IsZero() {
			item.Discounts = &discountsOut{Discount: discountOut{
				Name:     discountName,
				Sum:      formatMoney(l.Discount),
				Included: "true",
			}}
		}
		items = append(items, item)
	}
	return items
}

func formatMoney(d decimal.Decimal) string {
	return d.StringFixed(moneyPrecision)
}

// formatQuantity drops trailing zeros so whole quantities stay integral.
func formatQuantity(d decimal.Decimal) string {
	return d.Round(quantityMaxScale).String()
}
