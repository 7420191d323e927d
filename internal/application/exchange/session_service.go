package exchange

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/erp/exchange/internal/domain/exchange"
	"github.com/erp/exchange/internal/infrastructure/commerceml"
	"github.com/erp/exchange/internal/infrastructure/telemetry"
)

// Canonical names of the files an ERP uploads for a catalog exchange.
const (
	CatalogFileName = "import.xml"
	OffersFileName  = "offers.xml"
	ordersMarker    = "orders"
)

// Credentials are the HTTP Basic credentials of a request.
type Credentials struct {
	Username string
	Password string
}

// CredentialVerifier checks exchange credentials.
type CredentialVerifier interface {
	// Required reports whether credentials are configured at all.
	Required() bool
	Verify(username, password string) bool
}

// TokenIssuer turns sessions into opaque tokens and back.
type TokenIssuer interface {
	Issue(session *exchange.ExchangeSession) (string, error)
	// Parse returns the session id carried by token.
	Parse(token string) (string, error)
}

// SessionConfig holds the exchange protocol settings.
type SessionConfig struct {
	SessionTTL       time.Duration
	Retention        time.Duration
	Limits           Limits
	ArchiveDocuments bool
}

// DefaultSessionConfig returns the protocol defaults
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		SessionTTL: 30 * time.Minute,
		Retention:  time.Hour,
		Limits: Limits{
			UploadMax:   64 << 20,
			PostMax:     64 << 20,
			MemoryLimit: 256 << 20,
		},
	}
}

// AuthResult is a freshly issued session and its token.
type AuthResult struct {
	Session *exchange.ExchangeSession
	Token   string
}

// InitParams are the protocol parameters reported on init.
type InitParams struct {
	Zip       bool
	FileLimit int64
}

// ChunkResult describes a received chunk. Stats is set when the chunk
// completed an order update document that was processed.
type ChunkResult struct {
	Filename string
	Written  int64
	Stats    *exchange.Stats
}

// CommitResult describes an imported file.
type CommitResult struct {
	Filename string
	Document commerceml.DocumentKind
	Stats    exchange.Stats
}

// SessionServiceOption configures a SessionService
type SessionServiceOption func(*SessionService)

// WithSessionLogger sets the logger
func WithSessionLogger(logger *zap.Logger) SessionServiceOption {
	return func(s *SessionService) {
		s.logger = logger
	}
}

// WithSyncLog records every import and export in repo
func WithSyncLog(repo exchange.SyncLogRepository) SessionServiceOption {
	return func(s *SessionService) {
		s.syncLog = repo
	}
}

// WithDocumentArchive keeps a copy of each imported document
func WithDocumentArchive(archive exchange.DocumentArchive) SessionServiceOption {
	return func(s *SessionService) {
		s.archive = archive
	}
}

// WithSessionClock overrides the time source
func WithSessionClock(now func() time.Time) SessionServiceOption {
	return func(s *SessionService) {
		s.now = now
	}
}

// SessionService drives the exchange handshake: authenticate, init, upload
// chunks, import, and the order query/confirm cycle.
type SessionService struct {
	verifier   CredentialVerifier
	tokens     TokenIssuer
	sessions   exchange.SessionStore
	spool      exchange.Spool
	parser     *commerceml.Parser
	reconciler *Reconciler
	orders     *OrderExchange
	syncLog    exchange.SyncLogRepository
	archive    exchange.DocumentArchive
	cfg        SessionConfig
	logger     *zap.Logger
	now        func() time.Time
}

// NewSessionService creates a new SessionService
func NewSessionService(
	verifier CredentialVerifier,
	tokens TokenIssuer,
	sessions exchange.SessionStore,
	spool exchange.Spool,
	parser *commerceml.Parser,
	reconciler *Reconciler,
	orders *OrderExchange,
	cfg SessionConfig,
	opts ...SessionServiceOption,
) *SessionService {
	s := &SessionService{
		verifier:   verifier,
		tokens:     tokens,
		sessions:   sessions,
		spool:      spool,
		parser:     parser,
		reconciler: reconciler,
		orders:     orders,
		cfg:        cfg,
		logger:     zap.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CredentialsRequired reports whether requests must carry credentials
func (s *SessionService) CredentialsRequired() bool {
	return s.verifier.Required()
}

// VerifyCredentials checks creds without issuing a session. It passes when
// no credentials are configured.
func (s *SessionService) VerifyCredentials(creds Credentials) bool {
	if !s.verifier.Required() {
		return true
	}
	return s.verifier.Verify(creds.Username, creds.Password)
}

// ---------------------------------------------------------------------------
// Session lifecycle
// ---------------------------------------------------------------------------

// Authenticate verifies creds and issues a new session for kind.
func (s *SessionService) Authenticate(ctx context.Context, creds Credentials, kind exchange.ExchangeKind) (*AuthResult, error) {
	if !kind.IsValid() {
		return nil, exchange.ErrUnknownExchangeType
	}
	if !s.VerifyCredentials(creds) {
		s.logger.Warn("Exchange authentication failed", zap.String("username", creds.Username))
		return nil, exchange.ErrAuthenticationFailed
	}

	session, err := exchange.NewExchangeSession(kind, s.cfg.SessionTTL, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	token, err := s.tokens.Issue(session)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Exchange session started",
		zap.String("session_id", session.ID), zap.String("type", string(kind)))
	return &AuthResult{Session: session, Token: token}, nil
}

// Validate returns the session behind token, checking expiry and that it was
// opened for the requested exchange type. An empty
// token yields a transient session that is never stored: the ERP may skip
// checkauth when the exchange is not password protected, and otherwise each
// request is still authorized by its Basic credentials.
func (s *SessionService) Validate(ctx context.Context, token string, kind exchange.ExchangeKind) (*exchange.ExchangeSession, error) {
	now := s.now()
	if token == "" {
		return &exchange.ExchangeSession{
			Kind:      kind,
			State:     exchange.StateAuthenticated,
			CreatedAt: now,
			ExpiresAt: now.Add(s.cfg.SessionTTL),
		}, nil
	}

	id, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	session, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.IsExpired(now) {
		if err := s.sessions.Delete(ctx, id); err != nil {
			s.logger.Warn("Failed to delete expired session", zap.String("session_id", id), zap.Error(err))
		}
		return nil, exchange.ErrSessionExpired
	}
	if kind.IsValid() && session.Kind != kind {
		return nil, exchange.ErrSessionKindMismatch.WithDetail("%s session used for %s", session.Kind, kind)
	}
	return session, nil
}

// advance moves session to next and persists it. Expired sessions are
// removed from the store.
func (s *SessionService) advance(ctx context.Context, session *exchange.ExchangeSession, next exchange.SessionState) error {
	if err := session.Advance(next, s.now()); err != nil {
		if errors.Is(err, exchange.ErrSessionExpired) && session.ID != "" {
			_ = s.sessions.Delete(ctx, session.ID)
		}
		return err
	}
	if session.ID == "" {
		return nil
	}
	return s.sessions.Save(ctx, session)
}

// fail puts a stored session into the error state.
func (s *SessionService) fail(ctx context.Context, session *exchange.ExchangeSession) {
	if session.ID == "" {
		return
	}
	if err := s.advance(ctx, session, exchange.StateError); err != nil {
		s.logger.Warn("Failed to record session error", zap.String("session_id", session.ID), zap.Error(err))
	}
}

// Initialize starts a transfer: stale files are removed from the spool and
// the protocol parameters are returned.
func (s *SessionService) Initialize(ctx context.Context, session *exchange.ExchangeSession) (InitParams, error) {
	if err := s.advance(ctx, session, exchange.StateInitialized); err != nil {
		return InitParams{}, err
	}

	removed, err := s.spool.CleanupOlderThan(s.cfg.Retention, s.now())
	if err != nil {
		s.logger.Warn("Failed to clean exchange directory", zap.Error(err))
	}

	params := InitParams{Zip: false, FileLimit: s.cfg.Limits.FileLimit()}
	s.logger.Info("Exchange initialized",
		zap.String("type", string(session.Kind)),
		zap.Int64("file_limit", params.FileLimit),
		zap.Int("stale_files_removed", removed),
	)
	return params, nil
}

// ReceiveChunk appends body to filename in the spool. On a sale exchange a
// file named like an orders document is processed as soon as it arrives.
func (s *SessionService) ReceiveChunk(ctx context.Context, session *exchange.ExchangeSession, filename string, body io.Reader) (*ChunkResult, error) {
	if strings.TrimSpace(filename) == "" {
		return nil, exchange.ErrFilenameRequired
	}
	br := bufio.NewReader(body)
	if _, err := br.Peek(1); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, exchange.ErrEmptyPayload
		}
		return nil, err
	}
	if err := s.advance(ctx, session, exchange.StateReceiving); err != nil {
		return nil, err
	}

	written, err := s.spool.Append(filename, br)
	if err != nil {
		s.fail(ctx, session)
		return nil, err
	}
	s.logger.Info("File chunk received", zap.String("filename", filename), zap.Int64("bytes", written))

	result := &ChunkResult{Filename: filename, Written: written}
	if session.Kind == exchange.KindSale && strings.Contains(strings.ToLower(filename), ordersMarker) {
		stats, err := s.processOrderFile(ctx, filename)
		if err != nil {
			s.fail(ctx, session)
			return nil, err
		}
		result.Stats = stats
	}
	return result, nil
}

// processOrderFile applies the accumulated orders file. A document that does
// not parse yet is kept for the next chunk and reported as nil stats; the
// file is removed only once its updates have been applied.
func (s *SessionService) processOrderFile(ctx context.Context, filename string) (*exchange.Stats, error) {
	data, err := s.spool.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	entry := exchange.NewSyncLogEntry(exchange.SyncOrders, exchange.DirectionImport, s.now())
	stats, err := s.orders.ApplyUpdates(ctx, data)
	if errors.Is(err, exchange.ErrMalformedDocument) {
		s.logger.Info("Orders file incomplete, waiting for more data",
			zap.String("filename", filename), zap.Int("bytes", len(data)), zap.Error(err))
		return nil, nil
	}
	s.finishLog(ctx, entry, stats, err)
	if err != nil {
		return nil, err
	}

	s.archiveDocument(ctx, filename, data)
	if err := s.spool.Remove(filename); err != nil {
		s.logger.Warn("Failed to remove processed order file", zap.String("filename", filename), zap.Error(err))
	}
	return &stats, nil
}

// ---------------------------------------------------------------------------
// Catalog import
// ---------------------------------------------------------------------------

// Commit imports an uploaded file. Without a filename the canonical catalog
// file is preferred over the offers file.
func (s *SessionService) Commit(ctx context.Context, session *exchange.ExchangeSession, filename string) (_ *CommitResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "SessionService", "Commit")
	defer func() { telemetry.EndSpan(span, err) }()

	if err := session.Check(exchange.StateCommitted, s.now()); err != nil {
		if errors.Is(err, exchange.ErrSessionExpired) && session.ID != "" {
			_ = s.sessions.Delete(ctx, session.ID)
		}
		return nil, err
	}
	name, err := s.selectImportFile(filename)
	if err != nil {
		return nil, err
	}
	kind, err := s.classify(name)
	if err != nil {
		return nil, err
	}
	data, err := s.spool.ReadFile(name)
	if err != nil {
		return nil, err
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrFilename, name,
		telemetry.SpanAttrDocument, kind.String(),
		telemetry.SpanAttrSessionID, session.ID,
	)
	s.logger.Info("Importing exchange file",
		zap.String("filename", name), zap.String("document", kind.String()), zap.Int("bytes", len(data)))

	var stats exchange.Stats
	switch kind {
	case commerceml.DocumentCatalog:
		stats, err = s.importCatalog(ctx, data)
	case commerceml.DocumentOffers:
		stats, err = s.importOffers(ctx, data)
	case commerceml.DocumentOrders:
		stats, err = s.ReceiveOrderUpdates(ctx, data)
	default:
		err = exchange.ErrUnknownDocument.WithDetail("%s", name)
	}
	if err != nil {
		s.logger.Error("Import failed", zap.String("filename", name), zap.Error(err))
		s.fail(ctx, session)
		return nil, err
	}
	if err := s.advance(ctx, session, exchange.StateCommitted); err != nil {
		return nil, err
	}
	s.archiveDocument(ctx, name, data)

	s.logger.Info("Import completed", zap.String("filename", name), zap.String("stats", stats.String()))
	return &CommitResult{Filename: name, Document: kind, Stats: stats}, nil
}

func (s *SessionService) selectImportFile(filename string) (string, error) {
	if filename = strings.TrimSpace(filename); filename != "" {
		if !s.spool.Exists(filename) {
			return "", exchange.ErrFileNotFound.WithDetail("%s", filename)
		}
		return filename, nil
	}
	for _, name := range []string{CatalogFileName, OffersFileName} {
		if s.spool.Exists(name) {
			return name, nil
		}
	}
	return "", exchange.ErrNoFilesToImport
}

// classify names the document kind by file name, sniffing the content when
// the name is not conclusive.
func (s *SessionService) classify(name string) (commerceml.DocumentKind, error) {
	if kind := commerceml.KindFromFilename(name); kind != commerceml.DocumentUnknown {
		return kind, nil
	}
	head, err := s.spool.Head(name, commerceml.SniffLength)
	if err != nil {
		return commerceml.DocumentUnknown, err
	}
	return commerceml.DetectDocumentKind(head), nil
}

func (s *SessionService) importCatalog(ctx context.Context, data []byte) (exchange.Stats, error) {
	entry := exchange.NewSyncLogEntry(exchange.SyncCatalog, exchange.DirectionImport, s.now())
	doc, err := s.parser.ParseCatalog(data)
	if err != nil {
		s.finishLog(ctx, entry, exchange.Stats{}, err)
		return exchange.Stats{}, err
	}

	stats := s.reconciler.ReconcileCategories(ctx, doc.Categories)
	stats.Merge(s.reconciler.ReconcileProducts(ctx, doc.Products, nil))
	s.finishLog(ctx, entry, stats, nil)
	return stats, nil
}

func (s *SessionService) importOffers(ctx context.Context, data []byte) (exchange.Stats, error) {
	entry := exchange.NewSyncLogEntry(exchange.SyncOffers, exchange.DirectionImport, s.now())
	doc, err := s.parser.ParseOffers(data)
	if err != nil {
		s.finishLog(ctx, entry, exchange.Stats{}, err)
		return exchange.Stats{}, err
	}

	stats := s.reconciler.ForWarehouses(doc.Warehouses).ReconcileOffers(ctx, doc.Offers)
	s.finishLog(ctx, entry, stats, nil)
	return stats, nil
}

// ---------------------------------------------------------------------------
// Order exchange
// ---------------------------------------------------------------------------

// Query returns the document of orders awaiting export.
func (s *SessionService) Query(ctx context.Context, session *exchange.ExchangeSession) (_ []byte, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "SessionService", "Query")
	defer func() { telemetry.EndSpan(span, err) }()

	if err := s.advance(ctx, session, exchange.StateCommitted); err != nil {
		return nil, err
	}
	entry := exchange.NewSyncLogEntry(exchange.SyncOrders, exchange.DirectionExport, s.now())
	data, ids, err := s.orders.ExportPending(ctx, s.now())
	if err != nil {
		s.finishLog(ctx, entry, exchange.Stats{}, err)
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrOrderCount, len(ids))
	s.finishLog(ctx, entry, exchange.Stats{Updated: len(ids)}, nil)
	return data, nil
}

// ConfirmExported marks the orders of the last query as exported.
func (s *SessionService) ConfirmExported(ctx context.Context, session *exchange.ExchangeSession) (int, error) {
	if err := s.advance(ctx, session, exchange.StateCommitted); err != nil {
		return 0, err
	}
	return s.orders.ConfirmExported(ctx)
}

// ReceiveOrderUpdates applies an inbound order update document.
func (s *SessionService) ReceiveOrderUpdates(ctx context.Context, data []byte) (exchange.Stats, error) {
	entry := exchange.NewSyncLogEntry(exchange.SyncOrders, exchange.DirectionImport, s.now())
	stats, err := s.orders.ApplyUpdates(ctx, data)
	s.finishLog(ctx, entry, stats, err)
	return stats, err
}

// RecentSyncs returns the latest sync log entries, newest first.
func (s *SessionService) RecentSyncs(ctx context.Context, limit int) ([]exchange.SyncLogEntry, error) {
	if s.syncLog == nil {
		return nil, nil
	}
	return s.syncLog.Recent(ctx, limit)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (s *SessionService) finishLog(ctx context.Context, entry *exchange.SyncLogEntry, stats exchange.Stats, err error) {
	if s.syncLog == nil {
		return
	}
	if err != nil {
		entry.Fail(err, s.now())
	} else {
		entry.Complete(stats, s.now())
	}
	if err := s.syncLog.Save(ctx, entry); err != nil {
		s.logger.Warn("Failed to save sync log", zap.String("sync_type", string(entry.SyncType)), zap.Error(err))
	}
}

func (s *SessionService) archiveDocument(ctx context.Context, name string, data []byte) {
	if s.archive == nil || !s.cfg.ArchiveDocuments {
		return
	}
	if err := s.archive.Archive(ctx, name, data); err != nil {
		s.logger.Warn("Failed to archive exchange document", zap.String("filename", name), zap.Error(err))
	}
}
