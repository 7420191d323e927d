package commerceml

import "encoding/xml"

// Element names shared by every document kind.
const (
	rootElement     = "КоммерческаяИнформация"
	SchemaVersion   = "2.10"
	timestampLayout = "2006-01-02T15:04:05"
)

// ---------------------------------------------------------------------------
// Inbound documents
// ---------------------------------------------------------------------------

type documentXML struct {
	XMLName       xml.Name          `xml:"КоммерческаяИнформация"`
	SchemaVersion string            `xml:"ВерсияСхемы,attr"`
	Classifier    *classifierXML    `xml:"Классификатор"`
	Catalog       *catalogXML       `xml:"Каталог"`
	OffersPackage *offersPackageXML `xml:"ПакетПредложений"`
	Documents     []orderXML        `xml:"Документ"`
	Containers    []containerXML    `xml:"Контейнер"`
}

// containerXML wraps documents in schema 2.10 exports.
type containerXML struct {
	Documents []orderXML `xml:"Документ"`
}

type classifierXML struct {
	ID         string        `xml:"Ид"`
	Name       string        `xml:"Наименование"`
	Groups     []groupXML    `xml:"Группы>Группа"`
	Properties []propertyXML `xml:"Свойства>Свойство"`
}

type groupXML struct {
	ID          string     `xml:"Ид"`
	Name        string     `xml:"Наименование"`
	Description string     `xml:"Описание"`
	Groups      []groupXML `xml:"Группы>Группа"`
}

type propertyXML struct {
	ID        string               `xml:"Ид"`
	Name      string               `xml:"Наименование"`
	ValueType string               `xml:"ТипЗначений"`
	Values    []dictionaryEntryXML `xml:"ВариантыЗначений>Справочник"`
}

type dictionaryEntryXML struct {
	ID    string `xml:"ИдЗначения"`
	Value string `xml:"Значение"`
}

type catalogXML struct {
	ID           string       `xml:"Ид"`
	ClassifierID string       `xml:"ИдКлассификатора"`
	Name         string       `xml:"Наименование"`
	OnlyChanges  string       `xml:"СодержитТолькоИзменения,attr"`
	Products     []productXML `xml:"Товары>Товар"`
}

type productXML struct {
	ID             string             `xml:"Ид"`
	SKU            string             `xml:"Артикул"`
	Name           string             `xml:"Наименование"`
	Description    string             `xml:"Описание"`
	Barcode        string             `xml:"Штрихкод"`
	BaseUnit       string             `xml:"БазоваяЕдиница"`
	Status         string             `xml:"Статус"`
	GroupIDs       []string           `xml:"Группы>Ид"`
	Images         []string           `xml:"Картинка"`
	PropertyValues []propertyValueXML `xml:"ЗначенияСвойств>ЗначенияСвойства"`
	Requisites     []requisiteXML     `xml:"ЗначенияРеквизитов>ЗначениеРеквизита"`
}

type propertyValueXML struct {
	ID     string   `xml:"Ид"`
	Values []string `xml:"Значение"`
}

type requisiteXML struct {
	Name  string `xml:"Наименование"`
	Value string `xml:"Значение"`
}

type offersPackageXML struct {
	ID         string         `xml:"Ид"`
	Name       string         `xml:"Наименование"`
	CatalogID  string         `xml:"ИдКаталога"`
	PriceTypes []priceTypeXML `xml:"ТипыЦен>ТипЦены"`
	Warehouses []warehouseXML `xml:"Склады>Склад"`
	Offers     []offerXML     `xml:"Предложения>Предложение"`
}

type priceTypeXML struct {
	ID       string `xml:"Ид"`
	Name     string `xml:"Наименование"`
	Currency string `xml:"Валюта"`
}

type warehouseXML struct {
	ID   string `xml:"Ид"`
	Name string `xml:"Наименование"`
}

type offerXML struct {
	ID              string              `xml:"Ид"`
	SKU             string              `xml:"Артикул"`
	Name            string              `xml:"Наименование"`
	Prices          []priceXML          `xml:"Цены>Цена"`
	Quantity        string              `xml:"Количество"`
	Stocks          []warehouseStockXML `xml:"Склад"`
	Remains         []remainXML         `xml:"Остатки>Остаток"`
	Characteristics []characteristicXML `xml:"ХарактеристикиТовара>ХарактеристикаТовара"`
}

type priceXML struct {
	TypeID   string `xml:"ИдТипаЦены"`
	PerUnit  string `xml:"ЦенаЗаЕдиницу"`
	Currency string `xml:"Валюта"`
	Unit     string `xml:"Единица"`
}

type warehouseStockXML struct {
	WarehouseID string `xml:"ИдСклада,attr"`
	Quantity    string `xml:"КоличествоНаСкладе,attr"`
}

// remainXML is the 2.08+ stock layout: Остатки/Остаток/Склад{Ид, Количество}.
type remainXML struct {
	Warehouse *struct {
		ID       string `xml:"Ид"`
		Quantity string `xml:"Количество"`
	} `xml:"Склад"`
	Quantity string `xml:"Количество"`
}

type characteristicXML struct {
	ID    string `xml:"Ид"`
	Name  string `xml:"Наименование"`
	Value string `xml:"Значение"`
}

type orderXML struct {
	ID         string         `xml:"Ид"`
	Number     string         `xml:"Номер"`
	Requisites []requisiteXML `xml:"ЗначенияРеквизитов>ЗначениеРеквизита"`
}

// ---------------------------------------------------------------------------
// Outbound orders document
// ---------------------------------------------------------------------------

type ordersDocumentOut struct {
	XMLName       xml.Name           `xml:"КоммерческаяИнформация"`
	SchemaVersion string             `xml:"ВерсияСхемы,attr"`
	GeneratedAt   string             `xml:"ДатаФормирования,attr"`
	Documents     []orderDocumentOut `xml:"Документ"`
}

type orderDocumentOut struct {
	ID             string            `xml:"Ид"`
	Number         string            `xml:"Номер"`
	Date           string            `xml:"Дата"`
	Time           string            `xml:"Время"`
	Operation      string            `xml:"ХозОперация"`
	Role           string            `xml:"Роль"`
	Currency       string            `xml:"Валюта"`
	Rate           string            `xml:"Курс"`
	Sum            string            `xml:"Сумма"`
	Comment        string            `xml:"Комментарий"`
	Requisites     []requisiteXML    `xml:"ЗначенияРеквизитов>ЗначениеРеквизита"`
	Counterparties []counterpartyOut `xml:"Контрагенты>Контрагент"`
	Items          []itemOut         `xml:"Товары>Товар"`
}

type counterpartyOut struct {
	ID       string      `xml:"Ид"`
	Name     string      `xml:"Наименование"`
	Role     string      `xml:"Роль"`
	FullName string      `xml:"ПолноеНаименование"`
	Address  addressOut  `xml:"АдресРегистрации"`
	Contacts contactsOut `xml:"Контакты"`
}

type addressOut struct {
	Fields []addressFieldOut `xml:"АдресноеПоле"`
}

type addressFieldOut struct {
	Type  string `xml:"Тип"`
	Value string `xml:"Значение"`
}

type contactsOut struct {
	Contacts []contactOut `xml:"Контакт"`
}

type contactOut struct {
	Type  string `xml:"Тип"`
	Value string `xml:"Значение"`
}

type itemOut struct {
	ID        string        `xml:"Ид"`
	SKU       string        `xml:"Артикул"`
	Name      string        `xml:"Наименование"`
	BaseUnit  baseUnitOut   `xml:"БазоваяЕдиница"`
	UnitPrice string        `xml:"ЦенаЗаЕдиницу"`
	Quantity  string        `xml:"Количество"`
	Sum       string        `xml:"Сумма"`
	Discounts *discountsOut `xml:"Скидки,omitempty"`
}

type baseUnitOut struct {
	Code     string `xml:"Код,attr"`
	FullName string `xml:"НаименованиеПолное,attr"`
	Value    string `xml:",chardata"`
}

type discountsOut struct {
	Discount discountOut `xml:"Скидка"`
}

type discountOut struct {
	Name     string `xml:"Наименование"`
	Sum      string `xml:"Сумма"`
	Included string `xml:"УчтеноВСумме"`
}
