package exchange

import (
	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when neither the price nor its type declares one.
const DefaultCurrency = "RUB"

// DefaultPriceType is the price type name selected when none is configured.
const DefaultPriceType = "Розничная"

// PriceType is an entry of the offers package price type table.
type PriceType struct {
	ID       string
	Name     string
	Currency string
}

// Warehouse is an entry of the offers package warehouse table.
type Warehouse struct {
	ID   string
	Name string
}

// Price is one price of an offer, with its type already resolved against
// the price type table of the same document.
type Price struct {
	TypeID   string
	TypeName string
	Amount   decimal.Decimal
	Currency string
	Unit     string
}

// Characteristic is a variation-defining attribute value (size, color).
type Characteristic struct {
	ID    string
	Name  string
	Value string
}

// Offer carries price and stock data for a product or variation.
type Offer struct {
	ID               string
	IsVariation      bool
	ParentID         string
	SKU              string
	Name             string
	Prices           []Price
	StockByWarehouse map[string]decimal.Decimal
	TotalStock       decimal.Decimal
	Characteristics  []Characteristic
}

// NewOffer creates an offer with its variation fields derived from id.
func NewOffer(id string) Offer {
	parent, isVariation := SplitVariationID(id)
	return Offer{
		ID:               id,
		IsVariation:      isVariation,
		ParentID:         parent,
		StockByWarehouse: make(map[string]decimal.Decimal),
	}
}

// StockFor returns the stock to publish. With an empty warehouse, or an offer
// that carries no per-warehouse breakdown, the total is used; otherwise only
// the named warehouse counts.
func (o Offer) StockFor(warehouseID string) decimal.Decimal {
	if warehouseID == "" || len(o.StockByWarehouse) == 0 {
		return o.TotalStock
	}
	return o.StockByWarehouse[warehouseID]
}

// InStock returns true if the stock to publish is positive
func (o Offer) InStock(warehouseID string) bool {
	return o.StockFor(warehouseID).IsPositive()
}

// SelectPrice picks the price whose type name equals configured. When nothing
// matches, or configured is empty, the first price in document order wins.
// ok is false only when the offer has no prices at all.
func SelectPrice(prices []Price, configured string) (Price, bool) {
	if len(prices) == 0 {
		return Price{}, false
	}
	if configured != "" {
		for _, p := range prices {
			if p.TypeName == configured {
				return p, true
			}
		}
	}
	return prices[0], true
}

// IndexOffers returns offers keyed by their foreign id. Later duplicates win.
func IndexOffers(offers []Offer) map[string]Offer {
	idx := make(map[string]Offer, len(offers))
	for _, o := range offers {
		idx[o.ID] = o
	}
	return idx
}
