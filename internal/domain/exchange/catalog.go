package exchange

import (
	"maps"
	"slices"
	"strings"
)

// VariationSeparator splits a variation id into "<parent>#<suffix>".
const VariationSeparator = "#"

// DefaultUnit is the base unit assumed when a product declares none.
const DefaultUnit = "шт"

// DefaultPropertyType is the value type assumed when a property declares none.
const DefaultPropertyType = "Строка"

// ProductStatus is the lifecycle flag carried by a catalog product.
type ProductStatus string

const (
	ProductActive  ProductStatus = "active"
	ProductDeleted ProductStatus = "deleted"
)

// SplitVariationID splits a foreign product id at the first separator.
// The split is lexical only: the parent is not required to exist.
func SplitVariationID(id string) (parentID string, isVariation bool) {
	idx := strings.Index(id, VariationSeparator)
	if idx < 0 {
		return "", false
	}
	return id[:idx], true
}

// Category is a node of the foreign classifier tree. ParentID is empty for
// root categories.
type Category struct {
	ID          string
	Name        string
	ParentID    string
	Description string
}

// IsRoot returns true for categories without a parent
func (c Category) IsRoot() bool {
	return c.ParentID == ""
}

// Property describes a product property from the classifier. Values maps
// foreign value ids to display strings for enumerated properties.
type Property struct {
	ID        string
	Name      string
	ValueType string
	Values    map[string]string
}

// Resolve returns the display string for value if it is a dictionary key,
// otherwise the value itself.
func (p Property) Resolve(value string) string {
	if display, ok := p.Values[value]; ok {
		return display
	}
	return value
}

// AttributeValue is a resolved property value attached to a product.
type AttributeValue struct {
	Name  string
	Value string
}

// Product is a catalog item or, when IsVariation is set, one variation of a
// base product identified by ParentID.
type Product struct {
	ID           string
	IsVariation  bool
	ParentID     string
	SKU          string
	Name         string
	Description  string
	Barcode      string
	Unit         string
	CategoryIDs  []string
	ImagePaths   []string
	Attributes   map[string]AttributeValue
	Weight       *float64
	Manufacturer string
	ProductType  string
	Status       ProductStatus
}

// NewProduct creates a product with its variation fields derived from id.
func NewProduct(id string) Product {
	parent, isVariation := SplitVariationID(id)
	return Product{
		ID:          id,
		IsVariation: isVariation,
		ParentID:    parent,
		Unit:        DefaultUnit,
		Attributes:  make(map[string]AttributeValue),
		Status:      ProductActive,
	}
}

// IsDeleted returns true when the ERP marked the product for deletion
func (p Product) IsDeleted() bool {
	return p.Status == ProductDeleted
}

// AttributeIDs returns the attribute keys in a stable order.
func (p Product) AttributeIDs() []string {
	return slices.Sorted(maps.Keys(p.Attributes))
}

// PartitionProducts splits products into base products and variations,
// preserving document order within each group.
func PartitionProducts(products []Product) (bases, variations []Product) {
	for _, p := range products {
		if p.IsVariation {
			variations = append(variations, p)
		} else {
			bases = append(bases, p)
		}
	}
	return bases, variations
}

// VariationParents returns the set of parent ids referenced by variations.
// A base product is variable exactly when it appears in this set.
func VariationParents(ids ...[]string) map[string]struct{} {
	parents := make(map[string]struct{})
	for _, group := range ids {
		for _, id := range group {
			if parent, ok := SplitVariationID(id); ok && parent != "" {
				parents[parent] = struct{}{}
			}
		}
	}
	return parents
}
