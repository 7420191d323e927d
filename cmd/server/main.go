package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appexchange "github.com/erp/exchange/internal/application/exchange"
	"github.com/erp/exchange/internal/domain/exchange"
	"github.com/erp/exchange/internal/infrastructure/auth"
	"github.com/erp/exchange/internal/infrastructure/cache"
	"github.com/erp/exchange/internal/infrastructure/commerceml"
	"github.com/erp/exchange/internal/infrastructure/config"
	"github.com/erp/exchange/internal/infrastructure/logger"
	"github.com/erp/exchange/internal/infrastructure/migration"
	"github.com/erp/exchange/internal/infrastructure/persistence"
	"github.com/erp/exchange/internal/infrastructure/spool"
	"github.com/erp/exchange/internal/infrastructure/storage"
	"github.com/erp/exchange/internal/infrastructure/telemetry"
	"github.com/erp/exchange/internal/interfaces/http/handler"
	"github.com/erp/exchange/internal/interfaces/http/middleware"
	"github.com/erp/exchange/internal/interfaces/http/router"
	"github.com/erp/exchange/migrations"
)

//go:generate swag init -d ../../ -g cmd/server/main.go -o ../../docs --outputTypes go

//	@title			CommerceML Exchange API
//	@version		1.0
//	@description	Service endpoints of the 1C CommerceML exchange. The exchange
//	@description	protocol itself is plain text and is not described here.

//	@BasePath	/

//	@securityDefinitions.basic	BasicAuth

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting CommerceML exchange",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", telemetry.ServiceVersion),
	)

	ctx := context.Background()

	// ---------------------------------------------------------------------
	// Telemetry
	// ---------------------------------------------------------------------

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer shutdown(log, "tracer provider", tracerProvider.Shutdown)

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer shutdown(log, "meter provider", meterProvider.Shutdown)

	loggerProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	defer shutdown(log, "logger provider", loggerProvider.Shutdown)
	log = loggerProvider.Bridge(log, logger.ParseLevel(cfg.Log.Level))

	exchangeMetrics, err := telemetry.NewExchangeMetrics(meterProvider)
	if err != nil {
		log.Fatal("Failed to register exchange metrics", zap.Error(err))
	}

	// ---------------------------------------------------------------------
	// Persistence
	// ---------------------------------------------------------------------

	db, err := persistence.NewDatabase(&cfg.Database,
		persistence.WithGormLogger(logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))),
		persistence.WithRegistration(telemetry.DBTracing(telemetry.DBTracingConfig{
			Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
			LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
			SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
			DBName:          cfg.Database.DBName,
		}, log)),
	)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	if cfg.Database.MigrateOnStart {
		if err := migrateUp(db, log); err != nil {
			log.Fatal("Failed to apply migrations", zap.Error(err))
		}
	}
	stores := db.Stores(persistence.WithExportStatuses(exportStatuses(cfg.Sync.OrderStatuses)...))

	sessions, err := cache.NewSessionStoreFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(cfg.App.Env != "production"),
	).CreateStore()
	if err != nil {
		log.Fatal("Failed to create session store", zap.Error(err))
	}
	defer func() {
		if err := sessions.Close(); err != nil {
			log.Error("Error closing session store", zap.Error(err))
		}
	}()

	// ---------------------------------------------------------------------
	// Exchange services
	// ---------------------------------------------------------------------

	sessionCfg, err := sessionConfig(cfg.Exchange, cfg.HTTP.MaxBodySize)
	if err != nil {
		log.Fatal("Invalid exchange configuration", zap.Error(err))
	}

	tokens, err := auth.NewSessionTokenService(cfg.Exchange.TokenSecret, auth.WithIssuer(cfg.App.Name))
	if err != nil {
		log.Fatal("Failed to create session token service", zap.Error(err))
	}
	if cfg.Exchange.TokenSecret == "" {
		log.Warn("exchange.token_secret is empty, sessions will not survive a restart")
	}
	credentials := auth.NewStaticCredentials(cfg.Exchange.Username, cfg.Exchange.Password)
	if !credentials.Required() {
		log.Warn("Exchange endpoint is not password protected")
	}

	uploads, err := spool.NewOnDisk(cfg.Exchange.SpoolDir, spool.WithLogger(log))
	if err != nil {
		log.Fatal("Failed to prepare exchange directory", zap.Error(err))
	}

	parser := commerceml.NewParser(commerceml.WithParserLogger(log))
	reconcilerOpts := []appexchange.ReconcilerOption{
		appexchange.WithReconcilerLogger(log),
		appexchange.WithSyncOptions(syncOptions(cfg.Sync)),
		appexchange.WithObserver(exchangeMetrics),
	}
	sessionOpts := []appexchange.SessionServiceOption{
		appexchange.WithSessionLogger(log),
		appexchange.WithSyncLog(stores.SyncLog),
	}

	if cfg.Storage.Enabled() {
		objects, err := storage.NewS3Storage(&cfg.Storage, storage.WithLogger(log))
		if err != nil {
			log.Fatal("Failed to create object storage", zap.Error(err))
		}
		bucketCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		err = objects.EnsureBucket(bucketCtx)
		cancel()
		if err != nil {
			log.Fatal("Failed to prepare storage bucket", zap.Error(err))
		}
		reconcilerOpts = append(reconcilerOpts, appexchange.WithMedia(objects, uploads))
		sessionOpts = append(sessionOpts, appexchange.WithDocumentArchive(objects))
		log.Info("Object storage enabled", zap.String("bucket", objects.Bucket()))
	} else {
		log.Info("Object storage not configured, product images are skipped")
	}

	reconciler := appexchange.NewReconciler(stores.Mappings, stores.Catalog, reconcilerOpts...)
	orders := appexchange.NewOrderExchange(stores.Orders, parser, log)
	sessionService := appexchange.NewSessionService(
		credentials, tokens, sessions, uploads, parser, reconciler, orders, sessionCfg, sessionOpts...,
	)

	// ---------------------------------------------------------------------
	// HTTP
	// ---------------------------------------------------------------------

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Middleware order: request id first so every later log line and span
	// carries it; recovery wraps everything after the logger.
	engine.Use(
		middleware.RequestID(),
		middleware.Tracing(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     cfg.Telemetry.Enabled,
		}),
		middleware.SpanEnricher(),
		middleware.SpanErrorMarker(),
		logger.GinMiddleware(log),
		logger.Recovery(log),
	)

	exchangeHandler := handler.NewExchangeHandler(sessionService,
		handler.WithCookieName(cfg.Exchange.CookieName),
		handler.WithUploadRecorder(exchangeMetrics),
	)
	systemHandler := handler.NewSystemHandler(cfg.App.Name, telemetry.ServiceVersion, db, sessionService)

	r := router.NewRouter(engine, router.WithLogger(log))
	r.RegisterRoot(router.HealthRoutes(systemHandler)).
		RegisterRoot(router.ExchangeRoutes(cfg.Exchange.Path, exchangeHandler,
			middleware.NoCache(),
			middleware.Metrics(exchangeMetrics),
			middleware.BasicAuth(credentials),
			middleware.BodyLimit(cfg.HTTP.MaxBodySize),
		)).
		Register(router.SystemRoutes(systemHandler,
			middleware.SwaggerProtection(middleware.SwaggerConfig{
				Enabled:    cfg.Swagger.Enabled,
				AllowedIPs: cfg.Swagger.AllowedIPs,
			}),
			middleware.BasicAuth(credentials),
		))
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting",
			zap.String("addr", srv.Addr),
			zap.String("exchange_path", cfg.Exchange.Path),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// migrateUp applies the embedded migrations.
func migrateUp(db *persistence.Database, log *zap.Logger) error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	m, err := migration.New(sqlDB, migration.EmbeddedSource(migrations.FS), log)
	if err != nil {
		return err
	}
	// The migrator shares the pool; closing it would close the database.
	return m.Up()
}

// exportStatuses converts the configured order statuses, skipping blanks.
func exportStatuses(names []string) []exchange.OrderStatus {
	var out []exchange.OrderStatus
	for _, name := range names {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, exchange.OrderStatus(name))
		}
	}
	return out
}

// sessionConfig converts the exchange settings, parsing the size limits.
// maxBody is the HTTP body cap; it bounds post_max so file_limit never
// invites a chunk the server would reject.
func sessionConfig(c config.ExchangeConfig, maxBody int64) (appexchange.SessionConfig, error) {
	sc := appexchange.DefaultSessionConfig()
	if c.SessionTTL > 0 {
		sc.SessionTTL = c.SessionTTL
	}
	if c.Retention > 0 {
		sc.Retention = c.Retention
	}
	sc.ArchiveDocuments = c.ArchiveDocuments

	for _, lim := range []struct {
		name  string
		value string
		dst   *int64
	}{
		{"exchange.upload_max", c.UploadMax, &sc.Limits.UploadMax},
		{"exchange.post_max", c.PostMax, &sc.Limits.PostMax},
		{"exchange.memory_limit", c.MemoryLimit, &sc.Limits.MemoryLimit},
	} {
		if lim.value == "" {
			continue
		}
		n, err := appexchange.ParseSize(lim.value)
		if err != nil {
			return appexchange.SessionConfig{}, fmt.Errorf("%s: %w", lim.name, err)
		}
		*lim.dst = n
	}
	if maxBody > 0 && (sc.Limits.PostMax <= 0 || maxBody < sc.Limits.PostMax) {
		sc.Limits.PostMax = maxBody
	}
	return sc, nil
}

// syncOptions converts the catalog sync switches.
func syncOptions(c config.SyncConfig) appexchange.SyncOptions {
	opts := appexchange.SyncOptions{
		SyncCategories: c.Categories,
		SyncAttributes: c.Attributes,
		SyncPrices:     c.Prices,
		SyncStock:      c.Stock,
		SyncImages:     c.Images,
		PriceType:      c.PriceType,
		Warehouse:      c.Warehouse,
	}
	if opts.PriceType == "" {
		opts.PriceType = exchange.DefaultPriceType
	}
	return opts
}

func shutdown(log *zap.Logger, name string, fn func(context.Context) error) {
	if err := fn(context.Background()); err != nil {
		log.Error("Error shutting down "+name, zap.Error(err))
	}
}
