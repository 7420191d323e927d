package commerceml

import (
	"encoding/xml"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/exchange/internal/domain/exchange"
)

func sampleOrder() exchange.OrderExportRecord {
	paid := time.Date(2024, 5, 2, 9, 30, 0, 0, time.UTC)
	return exchange.OrderExportRecord{
		LocalID:        "101",
		ExportGUID:     "7f0c1b1e-8a4d-4c55-9d1e-0f3a2b6c7d8e",
		Number:         "101",
		CreatedAt:      time.Date(2024, 5, 1, 14, 5, 9, 0, time.UTC),
		Total:          decimal.RequireFromString("1450"),
		Comment:        "Позвонить заранее",
		Status:         exchange.OrderProcessing,
		PaidAt:         &paid,
		PaymentMethod:  "Карта",
		ShippingMethod: "Курьер",
		ShippingTotal:  decimal.RequireFromString("250"),
		Customer: exchange.Customer{
			GUID:      "cust-1",
			FirstName: "Иван",
			LastName:  "Петров",
			Email:     "ivan@example.com",
		},
		Billing: exchange.Address{City: "Москва", Street: "Тверская, 1"},
		Items: []exchange.OrderLine{
			{
				ProductLocalID: "55",
				ProductGUID:    "prod-1",
				SKU:            "TS-001",
				Name:           "Футболка",
				Price:          decimal.RequireFromString("600"),
				Quantity:       decimal.NewFromInt(2),
				Total:          decimal.RequireFromString("1100"),
				Discount:       decimal.RequireFromString("100"),
			},
			{
				ProductLocalID: "56",
				Name:           "Носки",
				Price:          decimal.RequireFromString("100"),
				Quantity:       decimal.NewFromInt(1),
				Total:          decimal.RequireFromString("100"),
			},
		},
	}
}

// generatedDocument mirrors the fields the ERP reads back.
type generatedDocument struct {
	XMLName       xml.Name `xml:"КоммерческаяИнформация"`
	SchemaVersion string   `xml:"ВерсияСхемы,attr"`
	GeneratedAt   string   `xml:"ДатаФормирования,attr"`
	Documents     []struct {
		ID         string         `xml:"Ид"`
		Date       string         `xml:"Дата"`
		Time       string         `xml:"Время"`
		Operation  string         `xml:"ХозОперация"`
		Rate       string         `xml:"Курс"`
		Currency   string         `xml:"Валюта"`
		Sum        string         `xml:"Сумма"`
		Requisites []requisiteXML `xml:"ЗначенияРеквизитов>ЗначениеРеквизита"`
		Customer   struct {
			ID       string            `xml:"Ид"`
			Name     string            `xml:"Наименование"`
			Address  []addressFieldOut `xml:"АдресРегистрации>АдресноеПоле"`
			Contacts []contactOut      `xml:"Контакты>Контакт"`
		} `xml:"Контрагенты>Контрагент"`
		Items []struct {
			ID       string `xml:"Ид"`
			Quantity string `xml:"Количество"`
			Unit     struct {
				Code string `xml:"Код,attr"`
				Name string `xml:",chardata"`
			} `xml:"БазоваяЕдиница"`
			Discount *struct {
				Sum      string `xml:"Сумма"`
				Included string `xml:"УчтеноВСумме"`
			} `xml:"Скидки>Скидка"`
		} `xml:"Товары>Товар"`
	} `xml:"Документ"`
}

func TestGenerateOrdersDocument(t *testing.T) {
	at := time.Date(2024, 5, 3, 8, 0, 0, 0, time.UTC)

	out, err := GenerateOrdersDocument([]exchange.OrderExportRecord{sampleOrder()}, at)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), `<?xml version="1.0" encoding="UTF-8"?>`))

	var doc generatedDocument
	require.NoError(t, xml.Unmarshal(out, &doc))

	assert.Equal(t, "2.10", doc.SchemaVersion)
	assert.Equal(t, "2024-05-03T08:00:00", doc.GeneratedAt)
	require.Len(t, doc.Documents, 1)

	d := doc.Documents[0]
	assert.Equal(t, "7f0c1b1e-8a4d-4c55-9d1e-0f3a2b6c7d8e", d.ID)
	assert.Equal(t, "2024-05-01", d.Date)
	assert.Equal(t, "14:05:09", d.Time)
	assert.Equal(t, "Заказ товара", d.Operation)
	assert.Equal(t, "1", d.Rate)
	assert.Equal(t, "RUB", d.Currency)
	assert.Equal(t, "1450.00", d.Sum)
	assert.Equal(t, []requisiteXML{
		{Name: "Статус заказа", Value: "В обработке"},
		{Name: "Дата оплаты", Value: "2024-05-02"},
		{Name: "Способ оплаты", Value: "Карта"},
		{Name: "Способ доставки", Value: "Курьер"},
		{Name: "Итого по доставке", Value: "250.00"},
	}, d.Requisites)

	t.Run("counterparty omits empty fields", func(t *testing.T) {
		assert.Equal(t, "cust-1", d.Customer.ID)
		assert.Equal(t, "Иван Петров", d.Customer.Name)
		assert.Equal(t, []addressFieldOut{
			{Type: "Город", Value: "Москва"},
			{Type: "Улица", Value: "Тверская, 1"},
		}, d.Customer.Address)
		assert.Equal(t, []contactOut{{Type: "Почта", Value: "ivan@example.com"}}, d.Customer.Contacts)
	})

	t.Run("items", func(t *testing.T) {
		require.Len(t, d.Items, 2)
		assert.Equal(t, "prod-1", d.Items[0].ID)
		assert.Equal(t, "2", d.Items[0].Quantity)
		assert.Equal(t, "796", d.Items[0].Unit.Code)
		assert.Equal(t, "шт", d.Items[0].Unit.Name)
		require.NotNil(t, d.Items[0].Discount)
		assert.Equal(t, "100.00", d.Items[0].Discount.Sum)
		assert.Equal(t, "true", d.Items[0].Discount.Included)

		assert.Equal(t, "56", d.Items[1].ID)
		assert.Nil(t, d.Items[1].Discount)
	})
}

func TestGenerateOrdersDocument_Deterministic(t *testing.T) {
	at := time.Date(2024, 5, 3, 8, 0, 0, 0, time.UTC)
	orders := []exchange.OrderExportRecord{sampleOrder(), sampleOrder()}

	a, err := GenerateOrdersDocument(orders, at)
	require.NoError(t, err)
	b, err := GenerateOrdersDocument(orders, at)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Contains(t, string(a), "\n  <Документ>\n    <Ид>")
}

func TestGenerateOrdersDocument_Empty(t *testing.T) {
	out, err := GenerateOrdersDocument(nil, time.Date(2024, 5, 3, 8, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	var doc generatedDocument
	require.NoError(t, xml.Unmarshal(out, &doc))
	assert.Empty(t, doc.Documents)
}

func TestGenerateOrdersDocument_UnknownStatusVerbatim(t *testing.T) {
	order := sampleOrder()
	order.Status = "awaiting-pickup"
	order.Customer.Company = "ООО Ромашка"

	out, err := GenerateOrdersDocument([]exchange.OrderExportRecord{order}, time.Now())
	require.NoError(t, err)
	assert.Contains(t, string(out), "<Значение>awaiting-pickup</Значение>")
	assert.Contains(t, string(out), "<Наименование>ООО Ромашка</Наименование>")
	assert.Contains(t, string(out), "<ПолноеНаименование>Иван Петров</ПолноеНаименование>")
}
