package commerceml

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/erp/exchange/internal/domain/exchange"
)

// Requisite names mapped onto product fields. Other requisites are dropped.
const (
	requisiteWeight       = "Вес"
	requisiteProductType  = "ТипНоменклатуры"
	requisiteDeletionMark = "ПометкаУдаления"
	requisiteManufacturer = "Производитель"

	statusDeleted = "Удален"
)

// CatalogDocument is the content of a catalog document (import.xml).
type CatalogDocument struct {
	ClassifierID string
	CatalogID    string
	OnlyChanges  bool
	Categories   []exchange.Category
	Properties   []exchange.Property
	Products     []exchange.Product
}

// OffersDocument is the content of an offers package (offers.xml).
type OffersDocument struct {
	PackageID  string
	CatalogID  string
	PriceTypes []exchange.PriceType
	Warehouses []exchange.Warehouse
	Offers     []exchange.Offer
}

// ParserOption configures a Parser
type ParserOption func(*Parser)

// WithParserLogger sets the logger used for parse diagnostics
func WithParserLogger(logger *zap.Logger) ParserOption {
	return func(p *Parser) {
		p.logger = logger
	}
}

// WithDescriptionCleaning toggles HTML cleaning of product descriptions
func WithDescriptionCleaning(enabled bool) ParserOption {
	return func(p *Parser) {
		p.cleanDescriptions = enabled
	}
}

// Parser turns CommerceML documents into exchange records. It holds no
// per-document state and is safe for concurrent use.
type Parser struct {
	logger            *zap.Logger
	cleanDescriptions bool
}

// NewParser creates a parser
func NewParser(opts ...ParserOption) *Parser {
	p := &Parser{
		logger:            zap.NewNop(),
		cleanDescriptions: true,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ParseCatalog parses a catalog document into categories, properties and
// products. Duplicate ids keep their first position and the last content.
func (p *Parser) ParseCatalog(data []byte) (*CatalogDocument, error) {
	doc, err := decodeDocument(data)
	if err != nil {
		return nil, err
	}

	result := &CatalogDocument{}
	properties := make(map[string]exchange.Property)

	if doc.Classifier != nil {
		result.ClassifierID = strings.TrimSpace(doc.Classifier.ID)
		cats := newOrderedSet[exchange.Category]()
		collectCategories(doc.Classifier.Groups, "", cats)
		result.Categories = cats.values()

		props := newOrderedSet[exchange.Property]()
		for _, px := range doc.Classifier.Properties {
			prop := parseProperty(px)
			props.put(prop.ID, prop)
			properties[prop.ID] = prop
		}
		result.Properties = props.values()
	}

	if doc.Catalog != nil {
		result.CatalogID = strings.TrimSpace(doc.Catalog.ID)
		result.OnlyChanges = strings.EqualFold(strings.TrimSpace(doc.Catalog.OnlyChanges), "true")
		products := newOrderedSet[exchange.Product]()
		for _, px := range doc.Catalog.Products {
			product := p.parseProduct(px, properties)
			if product.ID == "" {
				p.logger.Warn("Skipping product without id", zap.String("name", product.Name))
				continue
			}
			products.put(product.ID, product)
		}
		result.Products = products.values()
	}

	p.logger.Debug("Catalog document parsed",
		zap.Int("categories", len(result.Categories)),
		zap.Int("properties", len(result.Properties)),
		zap.Int("products", len(result.Products)),
	)
	return result, nil
}

// ParseOffers parses an offers package into price types, warehouses and
// offers. Price types and warehouses are resolved against this document only.
func (p *Parser) ParseOffers(data []byte) (*OffersDocument, error) {
	doc, err := decodeDocument(data)
	if err != nil {
		return nil, err
	}

	result := &OffersDocument{}
	pkg := doc.OffersPackage
	if pkg == nil {
		return result, nil
	}
	result.PackageID = strings.TrimSpace(pkg.ID)
	result.CatalogID = strings.TrimSpace(pkg.CatalogID)

	priceTypes := make(map[string]exchange.PriceType, len(pkg.PriceTypes))
	for _, ptx := range pkg.PriceTypes {
		pt := exchange.PriceType{
			ID:       strings.TrimSpace(ptx.ID),
			Name:     strings.TrimSpace(ptx.Name),
			Currency: orDefault(ptx.Currency, exchange.DefaultCurrency),
		}
		if _, seen := priceTypes[pt.ID]; !seen {
			result.PriceTypes = append(result.PriceTypes, pt)
		}
		priceTypes[pt.ID] = pt
	}

	for _, wx := range pkg.Warehouses {
		result.Warehouses = append(result.Warehouses, exchange.Warehouse{
			ID:   strings.TrimSpace(wx.ID),
			Name: strings.TrimSpace(wx.Name),
		})
	}

	offers := newOrderedSet[exchange.Offer]()
	for _, ox := range pkg.Offers {
		offer := p.parseOffer(ox, priceTypes)
		if offer.ID == "" {
			p.logger.Warn("Skipping offer without id", zap.String("name", offer.Name))
			continue
		}
		offers.put(offer.ID, offer)
	}
	result.Offers = offers.values()

	p.logger.Debug("Offers document parsed",
		zap.Int("price_types", len(result.PriceTypes)),
		zap.Int("warehouses", len(result.Warehouses)),
		zap.Int("offers", len(result.Offers)),
	)
	return result, nil
}

// ---------------------------------------------------------------------------
// Decoding helpers
// ---------------------------------------------------------------------------

func decodeDocument(data []byte) (*documentXML, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty document", exchange.ErrMalformedDocument)
	}

	normalized, err := NormalizeEncoding(data)
	if err != nil {
		return nil, err
	}

	dec := xml.NewDecoder(bytes.NewReader(normalized))
	dec.CharsetReader = charsetReader

	var doc documentXML
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", exchange.ErrMalformedDocument, err)
	}

	// Anything after the root element must still be well formed.
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", exchange.ErrMalformedDocument, err)
		}
		if _, ok := tok.(xml.StartElement); ok {
			return nil, fmt.Errorf("%w: multiple root elements", exchange.ErrMalformedDocument)
		}
	}

	return &doc, nil
}

func collectCategories(groups []groupXML, parentID string, out *orderedSet[exchange.Category]) {
	for _, g := range groups {
		id := strings.TrimSpace(g.ID)
		if id == "" {
			continue
		}
		out.put(id, exchange.Category{
			ID:          id,
			Name:        strings.TrimSpace(g.Name),
			ParentID:    parentID,
			Description: strings.TrimSpace(g.Description),
		})
		collectCategories(g.Groups, id, out)
	}
}

func parseProperty(px propertyXML) exchange.Property {
	prop := exchange.Property{
		ID:        strings.TrimSpace(px.ID),
		Name:      strings.TrimSpace(px.Name),
		ValueType: orDefault(px.ValueType, exchange.DefaultPropertyType),
		Values:    make(map[string]string, len(px.Values)),
	}
	for _, v := range px.Values {
		prop.Values[strings.TrimSpace(v.ID)] = strings.TrimSpace(v.Value)
	}
	return prop
}

func (p *Parser) parseProduct(px productXML, properties map[string]exchange.Property) exchange.Product {
	product := exchange.NewProduct(strings.TrimSpace(px.ID))
	product.SKU = strings.TrimSpace(px.SKU)
	product.Name = strings.TrimSpace(px.Name)
	product.Barcode = strings.TrimSpace(px.Barcode)
	product.Unit = orDefault(px.BaseUnit, exchange.DefaultUnit)

	product.Description = strings.TrimSpace(px.Description)
	if p.cleanDescriptions {
		product.Description = CleanDescription(px.Description)
	}

	for _, gid := range px.GroupIDs {
		if gid = strings.TrimSpace(gid); gid != "" {
			product.CategoryIDs = append(product.CategoryIDs, gid)
		}
	}
	for _, img := range px.Images {
		if img = strings.TrimSpace(img); img != "" {
			product.ImagePaths = append(product.ImagePaths, img)
		}
	}

	for _, pv := range px.PropertyValues {
		propID := strings.TrimSpace(pv.ID)
		value := firstNonEmpty(pv.Values)
		if propID == "" || value == "" {
			continue
		}
		name := propID
		if prop, ok := properties[propID]; ok {
			value = prop.Resolve(value)
			if prop.Name != "" {
				name = prop.Name
			}
		}
		product.Attributes[propID] = exchange.AttributeValue{Name: name, Value: value}
	}

	for _, req := range px.Requisites {
		value := strings.TrimSpace(req.Value)
		switch strings.TrimSpace(req.Name) {
		case requisiteWeight:
			if w, ok := parseNumber(value); ok {
				f := w.InexactFloat64()
				product.Weight = &f
			}
		case requisiteProductType:
			product.ProductType = value
		case requisiteDeletionMark:
			if strings.EqualFold(value, "true") || value == "1" {
				product.Status = exchange.ProductDeleted
			}
		case requisiteManufacturer:
			product.Manufacturer = value
		}
	}

	if strings.TrimSpace(px.Status) == statusDeleted {
		product.Status = exchange.ProductDeleted
	}

	return product
}

func (p *Parser) parseOffer(ox offerXML, priceTypes map[string]exchange.PriceType) exchange.Offer {
	offer := exchange.NewOffer(strings.TrimSpace(ox.ID))
	offer.SKU = strings.TrimSpace(ox.SKU)
	offer.Name = strings.TrimSpace(ox.Name)

	for _, px := range ox.Prices {
		amount, ok := parseNumber(px.PerUnit)
		if !ok {
			p.logger.Warn("Skipping price with invalid amount",
				zap.String("offer_id", offer.ID),
				zap.String("value", px.PerUnit),
			)
			continue
		}
		typeID := strings.TrimSpace(px.TypeID)
		pt := priceTypes[typeID]
		currency := strings.TrimSpace(px.Currency)
		if currency == "" {
			currency = orDefault(pt.Currency, exchange.DefaultCurrency)
		}
		offer.Prices = append(offer.Prices, exchange.Price{
			TypeID:   typeID,
			TypeName: pt.Name,
			Amount:   amount,
			Currency: currency,
			Unit:     strings.TrimSpace(px.Unit),
		})
	}

	breakdown := false
	for _, st := range ox.Stocks {
		qty, _ := parseNumber(st.Quantity)
		addStock(&offer, strings.TrimSpace(st.WarehouseID), qty)
		breakdown = true
	}
	for _, r := range ox.Remains {
		if r.Warehouse == nil {
			continue
		}
		qty, _ := parseNumber(r.Warehouse.Quantity)
		addStock(&offer, strings.TrimSpace(r.Warehouse.ID), qty)
		breakdown = true
	}

	if breakdown {
		total := decimal.Zero
		for _, qty := range offer.StockByWarehouse {
			total = total.Add(qty)
		}
		offer.TotalStock = total
	} else if qty, ok := parseNumber(ox.Quantity); ok {
		offer.TotalStock = qty
	} else {
		for _, r := range ox.Remains {
			if q, ok := parseNumber(r.Quantity); ok {
				offer.TotalStock = offer.TotalStock.Add(q)
			}
		}
	}

	for _, cx := range ox.Characteristics {
		offer.Characteristics = append(offer.Characteristics, exchange.Characteristic{
			ID:    strings.TrimSpace(cx.ID),
			Name:  strings.TrimSpace(cx.Name),
			Value: strings.TrimSpace(cx.Value),
		})
	}

	return offer
}

func addStock(offer *exchange.Offer, warehouseID string, qty decimal.Decimal) {
	offer.StockByWarehouse[warehouseID] = offer.StockByWarehouse[warehouseID].Add(qty)
}

// parseNumber accepts both decimal separators and grouping spaces.
func parseNumber(s string) (decimal.Decimal, bool) {
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\u00a0', '\t':
			return -1
		case ',':
			return '.'
		}
		return r
	}, s)
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return def
}

func firstNonEmpty(values []string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// orderedSet keeps insertion order while letting later puts replace content.
type orderedSet[T any] struct {
	index map[string]int
	items []T
}

func newOrderedSet[T any]() *orderedSet[T] {
	return &orderedSet[T]{index: make(map[string]int)}
}

func (s *orderedSet[T]) put(key string, item T) {
	if i, ok := s.index[key]; ok {
		s.items[i] = item
		return
	}
	s.index[key] = len(s.items)
	s.items = append(s.items, item)
}

func (s *orderedSet[T]) values() []T {
	return s.items
}
