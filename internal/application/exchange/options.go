package exchange

import (
	"github.com/erp/exchange/internal/domain/exchange"
)

// SyncOptions selects which parts of the catalog an import writes.
type SyncOptions struct {
	SyncCategories bool
	SyncAttributes bool
	SyncPrices     bool
	SyncStock      bool
	SyncImages     bool
	// PriceType is the price type name to publish; the first price of an
	// offer is used when it is missing.
	PriceType string
	// Warehouse restricts stock to one warehouse, by id or name. Empty means
	// the total over all warehouses.
	Warehouse string
}

// DefaultSyncOptions returns options with every part enabled.
func DefaultSyncOptions() SyncOptions {
	return SyncOptions{
		SyncCategories: true,
		SyncAttributes: true,
		SyncPrices:     true,
		SyncStock:      true,
		SyncImages:     true,
		PriceType:      exchange.DefaultPriceType,
	}
}

// resolveWarehouse maps a configured warehouse name to its id using the
// warehouse table of an offers document. Unknown values are kept as ids.
func resolveWarehouse(configured string, warehouses []exchange.Warehouse) string {
	if configured == "" {
		return ""
	}
	for _, w := range warehouses {
		if w.ID == configured {
			return w.ID
		}
	}
	for _, w := range warehouses {
		if w.Name == configured {
			return w.ID
		}
	}
	return configured
}
