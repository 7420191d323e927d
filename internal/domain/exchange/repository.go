package exchange

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Mapping store
// ---------------------------------------------------------------------------

// MappingReader resolves foreign GUIDs to local ids.
type MappingReader interface {
	// ResolveGUID returns ErrMappingNotFound when the pair is unknown.
	ResolveGUID(ctx context.Context, guid string, entityType EntityType) (uuid.UUID, error)
	CountByType(ctx context.Context, entityType EntityType) (int64, error)
}

// MappingWriter records foreign GUID mappings.
type MappingWriter interface {
	// MapGUID creates or replaces the mapping for (guid, entityType).
	MapGUID(ctx context.Context, guid string, entityType EntityType, localID uuid.UUID) error
}

// MappingStore is the durable GUID bridge between exchange runs.
type MappingStore interface {
	MappingReader
	MappingWriter
}

// ---------------------------------------------------------------------------
// Catalog store
// ---------------------------------------------------------------------------

// CategoryInput is the data written for one category. A nil ParentID puts
// the category at the root.
type CategoryInput struct {
	GUID        string
	Name        string
	Description string
	ParentID    *uuid.UUID
}

// AttributeAssignment sets one attribute value on a product or variation.
type AttributeAssignment struct {
	Taxonomy  string
	Label     string
	Value     string
	Variation bool
}

// OfferUpdate carries the price and stock fields of an offer. Nil fields are
// left untouched.
type OfferUpdate struct {
	Price    *decimal.Decimal
	Currency string
	Stock    *decimal.Decimal
}

// IsEmpty returns true if there is nothing to write
func (u OfferUpdate) IsEmpty() bool {
	return u.Price == nil && u.Stock == nil
}

// ProductInput is the data written for one base product. Nil slices leave
// the stored links untouched; an empty SKU keeps the stored SKU.
type ProductInput struct {
	GUID         string
	Name         string
	Description  string
	SKU          string
	Barcode      string
	Manufacturer string
	Unit         string
	Weight       *float64
	Variable     bool
	CategoryIDs  []uuid.UUID
	Attributes   []AttributeAssignment
	Offer        *OfferUpdate
}

// VariationInput is the data written for one variation.
type VariationInput struct {
	GUID       string
	Name       string
	SKU        string
	Barcode    string
	Attributes []AttributeAssignment
	Offer      *OfferUpdate
}

// ProductImage is an image attached to a product, keyed by the path the ERP
// uploaded it under.
type ProductImage struct {
	SourcePath string
	Key        string
	URL        string
	Featured   bool
}

// CatalogStore is the local product catalog. Upserts create the entity when
// the given id is uuid.Nil and return the id that was written.
type CatalogStore interface {
	UpsertCategory(ctx context.Context, id uuid.UUID, in CategoryInput) (uuid.UUID, error)
	UpsertProduct(ctx context.Context, id uuid.UUID, in ProductInput) (uuid.UUID, error)
	UpsertVariation(ctx context.Context, id uuid.UUID, parentID uuid.UUID, in VariationInput) (uuid.UUID, error)

	// IsVariable reports whether the product accepts variations.
	IsVariable(ctx context.Context, productID uuid.UUID) (bool, error)
	// SKUTaken reports whether sku belongs to a product other than except.
	SKUTaken(ctx context.Context, sku string, except uuid.UUID) (bool, error)

	// EnsureAttribute creates the attribute schema once; repeated calls are no-ops.
	EnsureAttribute(ctx context.Context, taxonomy, label string) error
	// AddVariationOptions unions options into the product's variation attribute.
	AddVariationOptions(ctx context.Context, productID uuid.UUID, taxonomy string, options []string) error

	UpdateOffer(ctx context.Context, id uuid.UUID, update OfferUpdate) error
	SoftDelete(ctx context.Context, productID uuid.UUID) error
	// AttachImages replaces the product's images; the featured one comes first.
	AttachImages(ctx context.Context, productID uuid.UUID, images []ProductImage) error
	ImageSources(ctx context.Context, productID uuid.UUID) ([]ProductImage, error)
}

// ---------------------------------------------------------------------------
// Order store
// ---------------------------------------------------------------------------

// OrderStore is the local order book as seen by the exchange.
type OrderStore interface {
	// OrdersPendingExport returns orders never exported or changed since.
	OrdersPendingExport(ctx context.Context) ([]OrderExportRecord, error)
	MarkExported(ctx context.Context, localIDs []string) error
	// ApplyUpdate returns ErrOrderNotFound for an unknown export GUID.
	ApplyUpdate(ctx context.Context, update OrderUpdate) error
}

// ---------------------------------------------------------------------------
// Session and file storage
// ---------------------------------------------------------------------------

// SessionStore persists exchange sessions between requests.
type SessionStore interface {
	Save(ctx context.Context, session *ExchangeSession) error
	// Get returns ErrSessionNotFound for an unknown id.
	Get(ctx context.Context, id string) (*ExchangeSession, error)
	Delete(ctx context.Context, id string) error
}

// Spool holds files uploaded in chunks until they are imported. Paths are
// relative to the exchange directory.
type Spool interface {
	Append(path string, r io.Reader) (int64, error)
	ReadFile(path string) ([]byte, error)
	Open(path string) (io.ReadCloser, error)
	Exists(path string) bool
	Head(path string, n int) ([]byte, error)
	Remove(path string) error
	CleanupOlderThan(age time.Duration, now time.Time) (int, error)
}

// MediaRef is where a stored media object can be fetched.
type MediaRef struct {
	Key string
	URL string
}

// MediaStore keeps product images.
type MediaStore interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) (MediaRef, error)
}

// DocumentArchive keeps a copy of each imported document.
type DocumentArchive interface {
	Archive(ctx context.Context, name string, body []byte) error
}

// SyncLogRepository stores the exchange run history.
type SyncLogRepository interface {
	Save(ctx context.Context, entry *SyncLogEntry) error
	Recent(ctx context.Context, limit int) ([]SyncLogEntry, error)
}
