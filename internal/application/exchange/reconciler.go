package exchange

import (
	"context"
	"errors"
	"mime"
	"path"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/erp/exchange/internal/domain/exchange"
)

// Batch names reported to the observer.
const (
	BatchCategories = "categories"
	BatchProducts   = "products"
	BatchOffers     = "offers"
)

// ReconcileObserver is notified after every reconciliation batch.
type ReconcileObserver interface {
	ObserveBatch(ctx context.Context, batch string, stats exchange.Stats, elapsed time.Duration)
}

// ReconcilerOption configures a Reconciler
type ReconcilerOption func(*Reconciler)

// WithReconcilerLogger sets the logger
func WithReconcilerLogger(logger *zap.Logger) ReconcilerOption {
	return func(r *Reconciler) {
		r.logger = logger
	}
}

// WithSyncOptions sets the sync options
func WithSyncOptions(opts SyncOptions) ReconcilerOption {
	return func(r *Reconciler) {
		r.opts = opts
	}
}

// WithMedia enables image sync: images are read from the spool and stored
// in media.
func WithMedia(media exchange.MediaStore, spool exchange.Spool) ReconcilerOption {
	return func(r *Reconciler) {
		r.media = media
		r.spool = spool
	}
}

// WithObserver sets the batch observer
func WithObserver(observer ReconcileObserver) ReconcilerOption {
	return func(r *Reconciler) {
		r.observer = observer
	}
}

// WithReconcilerClock overrides the time source
func WithReconcilerClock(now func() time.Time) ReconcilerOption {
	return func(r *Reconciler) {
		r.now = now
	}
}

// Reconciler applies parsed CommerceML entities to the local catalog,
// keeping the foreign GUID mappings up to date.
type Reconciler struct {
	mappings exchange.MappingStore
	catalog  exchange.CatalogStore
	media    exchange.MediaStore
	spool    exchange.Spool
	observer ReconcileObserver
	opts     SyncOptions
	logger   *zap.Logger
	now      func() time.Time
}

// NewReconciler creates a new Reconciler
func NewReconciler(mappings exchange.MappingStore, catalog exchange.CatalogStore, opts ...ReconcilerOption) *Reconciler {
	r := &Reconciler{
		mappings: mappings,
		catalog:  catalog,
		opts:     DefaultSyncOptions(),
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Options returns the sync options in effect
func (r *Reconciler) Options() SyncOptions {
	return r.opts
}

// ForWarehouses returns a copy of the reconciler whose configured warehouse
// is resolved against the warehouse table of one offers document.
func (r *Reconciler) ForWarehouses(warehouses []exchange.Warehouse) *Reconciler {
	c := *r
	c.opts.Warehouse = resolveWarehouse(r.opts.Warehouse, warehouses)
	return &c
}

// ---------------------------------------------------------------------------
// Categories
// ---------------------------------------------------------------------------

// SortCategories orders categories so that a parent present in the batch
// comes before its children. Each pass places every category whose parent is
// absent from the batch or already placed. Passes stop after 2N rounds or
// when a pass makes no progress; whatever is left (cycles) is appended in
// input order. Every input category appears exactly once.
func SortCategories(categories []exchange.Category) []exchange.Category {
	inBatch := make(map[string]struct{}, len(categories))
	for _, c := range categories {
		inBatch[c.ID] = struct{}{}
	}

	sorted := make([]exchange.Category, 0, len(categories))
	placed := make(map[string]struct{}, len(categories))
	remaining := categories
	for round := 0; len(remaining) > 0 && round < 2*len(categories); round++ {
		var next []exchange.Category
		for _, c := range remaining {
			_, parentInBatch := inBatch[c.ParentID]
			_, parentPlaced := placed[c.ParentID]
			if c.IsRoot() || c.ParentID == c.ID || !parentInBatch || parentPlaced {
				sorted = append(sorted, c)
				placed[c.ID] = struct{}{}
				continue
			}
			next = append(next, c)
		}
		if len(next) == len(remaining) {
			break
		}
		remaining = next
	}
	return append(sorted, remaining...)
}

// ReconcileCategories creates or updates categories, parents first. A parent
// that cannot be resolved puts the category at the root.
func (r *Reconciler) ReconcileCategories(ctx context.Context, categories []exchange.Category) exchange.Stats {
	start := r.now()
	var stats exchange.Stats
	if !r.opts.SyncCategories {
		stats.Skipped = len(categories)
		return r.finish(ctx, BatchCategories, stats, start)
	}

	for _, c := range SortCategories(categories) {
		created, err := r.reconcileCategory(ctx, c)
		if err != nil {
			r.logger.Error("Failed to reconcile category",
				zap.String("guid", c.ID), zap.String("name", c.Name), zap.Error(err))
			stats.AddError(c.ID, err)
			continue
		}
		if created {
			stats.Created++
		} else {
			stats.Updated++
		}
	}
	return r.finish(ctx, BatchCategories, stats, start)
}

func (r *Reconciler) reconcileCategory(ctx context.Context, c exchange.Category) (bool, error) {
	if c.ID == "" {
		return false, exchange.ErrInvalidGUID
	}
	localID, found, err := r.lookup(ctx, c.ID, exchange.EntityCategory)
	if err != nil {
		return false, err
	}

	in := exchange.CategoryInput{
		GUID:        c.ID,
		Name:        c.Name,
		Description: c.Description,
	}
	if !c.IsRoot() && c.ParentID != c.ID {
		parentID, ok, err := r.lookup(ctx, c.ParentID, exchange.EntityCategory)
		if err != nil {
			return false, err
		}
		if ok {
			in.ParentID = &parentID
		} else {
			r.logger.Warn("Parent category not found, creating at root",
				zap.String("guid", c.ID), zap.String("parent_guid", c.ParentID))
		}
	}

	id, err := r.catalog.UpsertCategory(ctx, localID, in)
	if err != nil {
		return false, err
	}
	if err := r.mappings.MapGUID(ctx, c.ID, exchange.EntityCategory, id); err != nil {
		return false, err
	}
	return !found, nil
}

// ---------------------------------------------------------------------------
// Products
// ---------------------------------------------------------------------------

// ReconcileProducts writes base products first and variations second, so a
// variation always finds its parent if the parent is in the same batch.
// offers may be nil; when an offer with the product's id is present its
// price and stock are written together with the product.
func (r *Reconciler) ReconcileProducts(ctx context.Context, products []exchange.Product, offers map[string]exchange.Offer) exchange.Stats {
	start := r.now()
	var stats exchange.Stats

	bases, variations := exchange.PartitionProducts(products)
	variationIDs := make([]string, 0, len(variations))
	for _, v := range variations {
		variationIDs = append(variationIDs, v.ID)
	}
	variable := exchange.VariationParents(variationIDs)
	attrs := newAttributeRegistry(r.catalog)

	for _, p := range bases {
		_, isVariable := variable[p.ID]
		outcome, err := r.reconcileProduct(ctx, p, offers, isVariable, attrs)
		if err != nil {
			r.logger.Error("Failed to reconcile product",
				zap.String("guid", p.ID), zap.String("name", p.Name), zap.Error(err))
			stats.AddError(p.ID, err)
			continue
		}
		outcome.count(&stats)
	}

	for _, v := range variations {
		outcome, err := r.reconcileVariation(ctx, v, offers, attrs)
		if err != nil {
			r.logger.Error("Failed to reconcile variation",
				zap.String("guid", v.ID), zap.String("parent_guid", v.ParentID), zap.Error(err))
			stats.AddError(v.ID, err)
			continue
		}
		outcome.count(&stats)
	}

	return r.finish(ctx, BatchProducts, stats, start)
}

type outcome int

const (
	outcomeCreated outcome = iota
	outcomeUpdated
	outcomeSkipped
)

func (o outcome) count(stats *exchange.Stats) {
	switch o {
	case outcomeCreated:
		stats.Created++
	case outcomeUpdated:
		stats.Updated++
	case outcomeSkipped:
		stats.Skipped++
	}
}

func (r *Reconciler) reconcileProduct(ctx context.Context, p exchange.Product, offers map[string]exchange.Offer, variable bool, attrs *attributeRegistry) (outcome, error) {
	if p.ID == "" {
		return outcomeSkipped, exchange.ErrInvalidGUID
	}
	localID, found, err := r.lookup(ctx, p.ID, exchange.EntityProduct)
	if err != nil {
		return outcomeSkipped, err
	}

	if p.IsDeleted() {
		return r.softDelete(ctx, p.ID, localID, found)
	}

	in := exchange.ProductInput{
		GUID:         p.ID,
		Name:         p.Name,
		Description:  p.Description,
		Barcode:      p.Barcode,
		Manufacturer: p.Manufacturer,
		Unit:         p.Unit,
		Weight:       p.Weight,
		Variable:     variable,
	}
	if in.SKU, err = r.availableSKU(ctx, p.ID, p.SKU, localID); err != nil {
		return outcomeSkipped, err
	}
	if r.opts.SyncCategories {
		if in.CategoryIDs, err = r.resolveCategories(ctx, p); err != nil {
			return outcomeSkipped, err
		}
	}
	if r.opts.SyncAttributes {
		if in.Attributes, err = r.productAttributes(ctx, p, attrs); err != nil {
			return outcomeSkipped, err
		}
	}
	if offer, ok := offers[p.ID]; ok {
		in.Offer = r.offerUpdate(offer)
	}

	id, err := r.catalog.UpsertProduct(ctx, localID, in)
	if err != nil {
		return outcomeSkipped, err
	}
	if err := r.mappings.MapGUID(ctx, p.ID, exchange.EntityProduct, id); err != nil {
		return outcomeSkipped, err
	}

	if r.opts.SyncImages && len(p.ImagePaths) > 0 {
		if err := r.syncImages(ctx, id, p.ImagePaths); err != nil {
			r.logger.Warn("Failed to sync product images", zap.String("guid", p.ID), zap.Error(err))
		}
	}

	if found {
		return outcomeUpdated, nil
	}
	return outcomeCreated, nil
}

func (r *Reconciler) reconcileVariation(ctx context.Context, v exchange.Product, offers map[string]exchange.Offer, attrs *attributeRegistry) (outcome, error) {
	parentID, ok, err := r.lookup(ctx, v.ParentID, exchange.EntityProduct)
	if err != nil {
		return outcomeSkipped, err
	}
	if !ok {
		return outcomeSkipped, exchange.ErrParentNotFound
	}

	localID, found, err := r.lookup(ctx, v.ID, exchange.EntityVariation)
	if err != nil {
		return outcomeSkipped, err
	}
	if v.IsDeleted() {
		return r.softDelete(ctx, v.ID, localID, found)
	}

	isVariable, err := r.catalog.IsVariable(ctx, parentID)
	if err != nil {
		return outcomeSkipped, err
	}
	if !isVariable {
		return outcomeSkipped, exchange.ErrParentNotVariable
	}

	in := exchange.VariationInput{
		GUID:    v.ID,
		Name:    v.Name,
		Barcode: v.Barcode,
	}
	if in.SKU, err = r.availableSKU(ctx, v.ID, v.SKU, localID); err != nil {
		return outcomeSkipped, err
	}

	offer, hasOffer := offers[v.ID]
	if hasOffer {
		in.Offer = r.offerUpdate(offer)
	}
	var options *variationOptions
	if r.opts.SyncAttributes {
		if in.Attributes, options, err = r.variationAttributes(ctx, v, offer, attrs); err != nil {
			return outcomeSkipped, err
		}
	}

	id, err := r.catalog.UpsertVariation(ctx, localID, parentID, in)
	if err != nil {
		return outcomeSkipped, err
	}
	if err := r.mappings.MapGUID(ctx, v.ID, exchange.EntityVariation, id); err != nil {
		return outcomeSkipped, err
	}

	if options != nil {
		for _, taxonomy := range options.order {
			if err := r.catalog.AddVariationOptions(ctx, parentID, taxonomy, options.values[taxonomy]); err != nil {
				return outcomeSkipped, err
			}
		}
	}

	if found {
		return outcomeUpdated, nil
	}
	return outcomeCreated, nil
}

func (r *Reconciler) softDelete(ctx context.Context, guid string, localID uuid.UUID, found bool) (outcome, error) {
	if !found {
		r.logger.Debug("Deleted item was never imported", zap.String("guid", guid))
		return outcomeSkipped, nil
	}
	if err := r.catalog.SoftDelete(ctx, localID); err != nil {
		return outcomeSkipped, err
	}
	r.logger.Info("Product marked as deleted", zap.String("guid", guid), zap.String("local_id", localID.String()))
	return outcomeUpdated, nil
}

// availableSKU returns sku unless another product already uses it.
func (r *Reconciler) availableSKU(ctx context.Context, guid, sku string, localID uuid.UUID) (string, error) {
	if sku == "" {
		return "", nil
	}
	taken, err := r.catalog.SKUTaken(ctx, sku, localID)
	if err != nil {
		return "", err
	}
	if taken {
		r.logger.Warn("SKU already used by another product, keeping existing SKU",
			zap.String("guid", guid), zap.String("sku", sku))
		return "", nil
	}
	return sku, nil
}

// resolveCategories maps the product's category GUIDs; unmapped ones are
// skipped. Nil means leave the stored links untouched.
func (r *Reconciler) resolveCategories(ctx context.Context, p exchange.Product) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for _, guid := range p.CategoryIDs {
		id, ok, err := r.lookup(ctx, guid, exchange.EntityCategory)
		if err != nil {
			return nil, err
		}
		if !ok {
			r.logger.Warn("Product category not mapped",
				zap.String("guid", p.ID), zap.String("category_guid", guid))
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *Reconciler) productAttributes(ctx context.Context, p exchange.Product, attrs *attributeRegistry) ([]exchange.AttributeAssignment, error) {
	var out []exchange.AttributeAssignment
	for _, key := range p.AttributeIDs() {
		av := p.Attributes[key]
		label := av.Name
		if label == "" {
			label = key
		}
		taxonomy, err := attrs.ensure(ctx, label)
		if err != nil {
			return nil, err
		}
		if taxonomy == "" {
			continue
		}
		out = append(out, exchange.AttributeAssignment{
			Taxonomy: taxonomy,
			Label:    label,
			Value:    av.Value,
		})
	}
	return out, nil
}

// variationOptions collects option values per taxonomy in first-seen order.
type variationOptions struct {
	order  []string
	values map[string][]string
}

func (o *variationOptions) add(taxonomy, value string) {
	if _, ok := o.values[taxonomy]; !ok {
		o.order = append(o.order, taxonomy)
	}
	o.values[taxonomy] = append(o.values[taxonomy], value)
}

// variationAttributes builds the variation-defining attributes from the
// offer characteristics, falling back to the product's own properties.
func (r *Reconciler) variationAttributes(ctx context.Context, v exchange.Product, offer exchange.Offer, attrs *attributeRegistry) ([]exchange.AttributeAssignment, *variationOptions, error) {
	type pair struct{ label, value string }
	var pairs []pair
	for _, c := range offer.Characteristics {
		pairs = append(pairs, pair{c.Name, c.Value})
	}
	if len(pairs) == 0 {
		for _, key := range v.AttributeIDs() {
			av := v.Attributes[key]
			label := av.Name
			if label == "" {
				label = key
			}
			pairs = append(pairs, pair{label, av.Value})
		}
	}

	var out []exchange.AttributeAssignment
	options := &variationOptions{values: make(map[string][]string)}
	for _, pr := range pairs {
		if pr.label == "" || pr.value == "" {
			continue
		}
		taxonomy, err := attrs.ensure(ctx, pr.label)
		if err != nil {
			return nil, nil, err
		}
		if taxonomy == "" {
			continue
		}
		out = append(out, exchange.AttributeAssignment{
			Taxonomy:  taxonomy,
			Label:     pr.label,
			Value:     pr.value,
			Variation: true,
		})
		options.add(taxonomy, pr.value)
	}
	if len(options.order) == 0 {
		return out, nil, nil
	}
	return out, options, nil
}

// attributeRegistry creates each attribute schema at most once per batch.
type attributeRegistry struct {
	catalog exchange.CatalogStore
	known   map[string]bool
}

func newAttributeRegistry(catalog exchange.CatalogStore) *attributeRegistry {
	return &attributeRegistry{catalog: catalog, known: make(map[string]bool)}
}

// ensure returns the taxonomy for label, or "" if label has no usable slug.
func (a *attributeRegistry) ensure(ctx context.Context, label string) (string, error) {
	if exchange.Slugify(label) == "" {
		return "", nil
	}
	taxonomy := exchange.AttributeTaxonomy(label)
	if a.known[taxonomy] {
		return taxonomy, nil
	}
	if err := a.catalog.EnsureAttribute(ctx, taxonomy, label); err != nil {
		return "", err
	}
	a.known[taxonomy] = true
	return taxonomy, nil
}

// ---------------------------------------------------------------------------
// Offers
// ---------------------------------------------------------------------------

// ReconcileOffers writes price and stock of already imported products and
// variations. Offers for unknown items are counted as not found.
func (r *Reconciler) ReconcileOffers(ctx context.Context, offers []exchange.Offer) exchange.Stats {
	start := r.now()
	var stats exchange.Stats

	for _, o := range offers {
		if o.ID == "" {
			stats.AddError(o.ID, exchange.ErrInvalidGUID)
			continue
		}
		localID, found, err := r.lookupOfferTarget(ctx, o.ID)
		if err != nil {
			r.logger.Error("Failed to resolve offer", zap.String("guid", o.ID), zap.Error(err))
			stats.AddError(o.ID, err)
			continue
		}
		if !found {
			r.logger.Debug("Offer for unknown product", zap.String("guid", o.ID))
			stats.NotFound++
			stats.Skipped++
			continue
		}

		update := r.offerUpdate(o)
		if update == nil {
			stats.Skipped++
			continue
		}
		if err := r.catalog.UpdateOffer(ctx, localID, *update); err != nil {
			r.logger.Error("Failed to update offer", zap.String("guid", o.ID), zap.Error(err))
			stats.AddError(o.ID, err)
			continue
		}
		stats.Updated++
	}
	return r.finish(ctx, BatchOffers, stats, start)
}

func (r *Reconciler) lookupOfferTarget(ctx context.Context, guid string) (uuid.UUID, bool, error) {
	id, found, err := r.lookup(ctx, guid, exchange.EntityProduct)
	if err != nil || found {
		return id, found, err
	}
	return r.lookup(ctx, guid, exchange.EntityVariation)
}

// offerUpdate selects the configured price and stock of o. It returns nil
// when neither is enabled or available.
func (r *Reconciler) offerUpdate(o exchange.Offer) *exchange.OfferUpdate {
	var update exchange.OfferUpdate
	if r.opts.SyncPrices {
		if price, ok := exchange.SelectPrice(o.Prices, r.opts.PriceType); ok {
			amount := price.Amount
			update.Price = &amount
			update.Currency = price.Currency
		}
	}
	if r.opts.SyncStock {
		stock := o.StockFor(r.opts.Warehouse)
		update.Stock = &stock
	}
	if update.IsEmpty() {
		return nil
	}
	return &update
}

// ---------------------------------------------------------------------------
// Images
// ---------------------------------------------------------------------------

// syncImages uploads images the product does not have yet and attaches the
// full list with the first image featured.
func (r *Reconciler) syncImages(ctx context.Context, productID uuid.UUID, paths []string) error {
	if r.media == nil || r.spool == nil {
		return nil
	}
	existing, err := r.catalog.ImageSources(ctx, productID)
	if err != nil {
		return err
	}
	known := make(map[string]exchange.ProductImage, len(existing))
	for _, img := range existing {
		known[img.SourcePath] = img
	}

	var (
		images   []exchange.ProductImage
		uploaded int
		seen     = make(map[string]bool, len(paths))
	)
	for _, p := range paths {
		if seen[p] {
			continue
		}
		seen[p] = true
		if img, ok := known[p]; ok {
			img.Featured = false
			images = append(images, img)
			continue
		}
		img, err := r.uploadImage(ctx, productID, p)
		if err != nil {
			if errors.Is(err, exchange.ErrFileNotFound) {
				r.logger.Warn("Image file not uploaded by ERP", zap.String("path", p))
				continue
			}
			return err
		}
		images = append(images, img)
		uploaded++
	}
	if len(images) == 0 || (uploaded == 0 && sameImages(existing, images)) {
		return nil
	}
	images[0].Featured = true
	return r.catalog.AttachImages(ctx, productID, images)
}

func (r *Reconciler) uploadImage(ctx context.Context, productID uuid.UUID, sourcePath string) (exchange.ProductImage, error) {
	f, err := r.spool.Open(sourcePath)
	if err != nil {
		return exchange.ProductImage{}, err
	}
	defer f.Close()

	key := path.Join("products", productID.String(), path.Base(sourcePath))
	ref, err := r.media.Put(ctx, key, f, imageContentType(sourcePath))
	if err != nil {
		return exchange.ProductImage{}, err
	}
	return exchange.ProductImage{SourcePath: sourcePath, Key: ref.Key, URL: ref.URL}, nil
}

func sameImages(existing, images []exchange.ProductImage) bool {
	if len(existing) != len(images) {
		return false
	}
	for i := range existing {
		if existing[i].SourcePath != images[i].SourcePath {
			return false
		}
	}
	return true
}

func imageContentType(p string) string {
	if ct := mime.TypeByExtension(path.Ext(p)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// lookup resolves a mapping; found is false when none exists.
func (r *Reconciler) lookup(ctx context.Context, guid string, entityType exchange.EntityType) (uuid.UUID, bool, error) {
	id, err := r.mappings.ResolveGUID(ctx, guid, entityType)
	if errors.Is(err, exchange.ErrMappingNotFound) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, err
	}
	return id, true, nil
}

func (r *Reconciler) finish(ctx context.Context, batch string, stats exchange.Stats, start time.Time) exchange.Stats {
	elapsed := r.now().Sub(start)
	r.logger.Info("Batch reconciled",
		zap.String("batch", batch),
		zap.Int("created", stats.Created),
		zap.Int("updated", stats.Updated),
		zap.Int("failed", stats.Failed),
		zap.Int("skipped", stats.Skipped),
		zap.Int("not_found", stats.NotFound),
		zap.Duration("elapsed", elapsed),
	)
	if r.observer != nil {
		r.observer.ObserveBatch(ctx, batch, stats, elapsed)
	}
	return stats
}
