package exchange

import (
	"context"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/erp/exchange/internal/domain/exchange"
)

// ============================================================================
// In-memory stores
// ============================================================================

type memoryMappings struct {
	mu       sync.Mutex
	mappings map[exchange.EntityType]map[string]uuid.UUID
}

func newMemoryMappings() *memoryMappings {
	return &memoryMappings{mappings: make(map[exchange.EntityType]map[string]uuid.UUID)}
}

func (m *memoryMappings) ResolveGUID(_ context.Context, guid string, entityType exchange.EntityType) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.mappings[entityType][guid]
	if !ok {
		return uuid.Nil, exchange.ErrMappingNotFound
	}
	return id, nil
}

func (m *memoryMappings) CountByType(_ context.Context, entityType exchange.EntityType) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.mappings[entityType])), nil
}

func (m *memoryMappings) MapGUID(_ context.Context, guid string, entityType exchange.EntityType, localID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mappings[entityType] == nil {
		m.mappings[entityType] = make(map[string]uuid.UUID)
	}
	m.mappings[entityType][guid] = localID
	return nil
}

func (m *memoryMappings) set(guid string, entityType exchange.EntityType, id uuid.UUID) {
	_ = m.MapGUID(context.Background(), guid, entityType, id)
}

type storedVariation struct {
	parentID uuid.UUID
	input    exchange.VariationInput
}

type memoryCatalog struct {
	categories map[uuid.UUID]exchange.CategoryInput
	products   map[uuid.UUID]exchange.ProductInput
	variations map[uuid.UUID]storedVariation
	attributes map[string]string
	options    map[uuid.UUID]map[string][]string
	offers     map[uuid.UUID]exchange.OfferUpdate
	deleted    map[uuid.UUID]bool
	images     map[uuid.UUID][]exchange.ProductImage
}

func newMemoryCatalog() *memoryCatalog {
	return &memoryCatalog{
		categories: make(map[uuid.UUID]exchange.CategoryInput),
		products:   make(map[uuid.UUID]exchange.ProductInput),
		variations: make(map[uuid.UUID]storedVariation),
		attributes: make(map[string]string),
		options:    make(map[uuid.UUID]map[string][]string),
		offers:     make(map[uuid.UUID]exchange.OfferUpdate),
		deleted:    make(map[uuid.UUID]bool),
		images:     make(map[uuid.UUID][]exchange.ProductImage),
	}
}

func orNew(id uuid.UUID) uuid.UUID {
	if id == uuid.Nil {
		return uuid.New()
	}
	return id
}

func (c *memoryCatalog) UpsertCategory(_ context.Context, id uuid.UUID, in exchange.CategoryInput) (uuid.UUID, error) {
	id = orNew(id)
	c.categories[id] = in
	return id, nil
}

func (c *memoryCatalog) UpsertProduct(_ context.Context, id uuid.UUID, in exchange.ProductInput) (uuid.UUID, error) {
	id = orNew(id)
	c.products[id] = in
	if in.Offer != nil {
		c.offers[id] = *in.Offer
	}
	return id, nil
}

func (c *memoryCatalog) UpsertVariation(_ context.Context, id uuid.UUID, parentID uuid.UUID, in exchange.VariationInput) (uuid.UUID, error) {
	id = orNew(id)
	c.variations[id] = storedVariation{parentID: parentID, input: in}
	if in.Offer != nil {
		c.offers[id] = *in.Offer
	}
	return id, nil
}

func (c *memoryCatalog) IsVariable(_ context.Context, productID uuid.UUID) (bool, error) {
	return c.products[productID].Variable, nil
}

func (c *memoryCatalog) SKUTaken(_ context.Context, sku string, except uuid.UUID) (bool, error) {
	for id, p := range c.products {
		if id != except && p.SKU == sku {
			return true, nil
		}
	}
	return false, nil
}

func (c *memoryCatalog) EnsureAttribute(_ context.Context, taxonomy, label string) error {
	if _, ok := c.attributes[taxonomy]; !ok {
		c.attributes[taxonomy] = label
	}
	return nil
}

func (c *memoryCatalog) AddVariationOptions(_ context.Context, productID uuid.UUID, taxonomy string, options []string) error {
	if c.options[productID] == nil {
		c.options[productID] = make(map[string][]string)
	}
	for _, o := range options {
		if !slices.Contains(c.options[productID][taxonomy], o) {
			c.options[productID][taxonomy] = append(c.options[productID][taxonomy], o)
		}
	}
	return nil
}

func (c *memoryCatalog) UpdateOffer(_ context.Context, id uuid.UUID, update exchange.OfferUpdate) error {
	c.offers[id] = update
	return nil
}

func (c *memoryCatalog) SoftDelete(_ context.Context, productID uuid.UUID) error {
	c.deleted[productID] = true
	return nil
}

func (c *memoryCatalog) AttachImages(_ context.Context, productID uuid.UUID, images []exchange.ProductImage) error {
	c.images[productID] = images
	return nil
}

func (c *memoryCatalog) ImageSources(_ context.Context, productID uuid.UUID) ([]exchange.ProductImage, error) {
	return c.images[productID], nil
}

type memorySessions struct {
	sessions map[string]exchange.ExchangeSession
}

func newMemorySessions() *memorySessions {
	return &memorySessions{sessions: make(map[string]exchange.ExchangeSession)}
}

func (s *memorySessions) Save(_ context.Context, session *exchange.ExchangeSession) error {
	s.sessions[session.ID] = *session
	return nil
}

func (s *memorySessions) Get(_ context.Context, id string) (*exchange.ExchangeSession, error) {
	session, ok := s.sessions[id]
	if !ok {
		return nil, exchange.ErrSessionNotFound
	}
	return &session, nil
}

func (s *memorySessions) Delete(_ context.Context, id string) error {
	delete(s.sessions, id)
	return nil
}

// ============================================================================
// Mocks
// ============================================================================

// MockOrderStore is a mock implementation of exchange.OrderStore
type MockOrderStore struct {
	mock.Mock
}

func (m *MockOrderStore) OrdersPendingExport(ctx context.Context) ([]exchange.OrderExportRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]exchange.OrderExportRecord), args.Error(1)
}

func (m *MockOrderStore) MarkExported(ctx context.Context, localIDs []string) error {
	args := m.Called(ctx, localIDs)
	return args.Error(0)
}

func (m *MockOrderStore) ApplyUpdate(ctx context.Context, update exchange.OrderUpdate) error {
	args := m.Called(ctx, update)
	return args.Error(0)
}

// MockMediaStore is a mock implementation of exchange.MediaStore
type MockMediaStore struct {
	mock.Mock
}

func (m *MockMediaStore) Put(ctx context.Context, key string, body io.Reader, contentType string) (exchange.MediaRef, error) {
	args := m.Called(ctx, key, body, contentType)
	return args.Get(0).(exchange.MediaRef), args.Error(1)
}

// MockSyncLogRepository is a mock implementation of exchange.SyncLogRepository
type MockSyncLogRepository struct {
	mock.Mock
}

func (m *MockSyncLogRepository) Save(ctx context.Context, entry *exchange.SyncLogEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockSyncLogRepository) Recent(ctx context.Context, limit int) ([]exchange.SyncLogEntry, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]exchange.SyncLogEntry), args.Error(1)
}

// MockDocumentArchive is a mock implementation of exchange.DocumentArchive
type MockDocumentArchive struct {
	mock.Mock
}

func (m *MockDocumentArchive) Archive(ctx context.Context, name string, body []byte) error {
	args := m.Called(ctx, name, body)
	return args.Error(0)
}

// MockReconcileObserver is a mock implementation of ReconcileObserver
type MockReconcileObserver struct {
	mock.Mock
}

func (m *MockReconcileObserver) ObserveBatch(ctx context.Context, batch string, stats exchange.Stats, elapsed time.Duration) {
	m.Called(ctx, batch, stats, elapsed)
}

// ============================================================================
// Auth fakes
// ============================================================================

type staticVerifier struct {
	username, password string
}

func (v staticVerifier) Required() bool { return v.username != "" }

func (v staticVerifier) Verify(username, password string) bool {
	return username == v.username && password == v.password
}

// plainTokens uses the session id as its token.
type plainTokens struct{}

func (plainTokens) Issue(session *exchange.ExchangeSession) (string, error) {
	return "tok-" + session.ID, nil
}

func (plainTokens) Parse(token string) (string, error) {
	if len(token) < 4 || token[:4] != "tok-" {
		return "", exchange.ErrAuthenticationFailed
	}
	return token[4:], nil
}
