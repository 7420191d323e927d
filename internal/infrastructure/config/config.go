package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Exchange  ExchangeConfig
	Sync      SyncConfig
	Storage   StorageConfig
	Swagger   SwaggerConfig
	Telemetry TelemetryConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int  // in minutes
	ConnMaxIdleTime int  // in minutes
	MigrateOnStart  bool // apply embedded migrations when the server starts
}

// RedisConfig holds Redis connection settings. An empty host keeps
// exchange sessions in process memory.
type RedisConfig struct {
	Host      string
	Port      int
	Password  string
	DB        int
	KeyPrefix string
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	MaxBodySize    int64
	TrustedProxies []string
}

// ExchangeConfig holds the ERP exchange endpoint settings
type ExchangeConfig struct {
	Path string
	// Username and Password protect the endpoint; an empty username turns
	// authentication off. Password may be a bcrypt hash.
	Username         string
	Password         string
	SessionTTL       time.Duration
	Retention        time.Duration // age after which uploaded files are removed on init
	SpoolDir         string
	UploadMax        string // size strings such as "64M"; "-1" is unlimited
	PostMax          string
	MemoryLimit      string
	CookieName       string
	TokenSecret      string
	ArchiveDocuments bool
}

// SyncConfig selects what a catalog import writes
type SyncConfig struct {
	Categories bool
	Attributes bool
	Prices     bool
	Stock      bool
	Images     bool
	PriceType  string
	Warehouse  string // id or name; empty means all warehouses
	// OrderStatuses limits which orders the sale query exports; empty
	// exports every unexported order.
	OrderStatuses []string
}

// StorageConfig holds S3-compatible object storage settings. An empty
// bucket disables image upload and document archiving.
type StorageConfig struct {
	Bucket            string
	AccessKey         string
	SecretKey         string
	Region            string
	Endpoint          string
	UsePathStyle      bool
	UseSSL            bool
	PublicURL         string // base URL for media links; presigned URLs are used when empty
	PresignExpiration time.Duration
	ArchivePrefix     string
	MediaPrefix       string
}

// SwaggerConfig controls the API documentation endpoint
type SwaggerConfig struct {
	Enabled    bool
	AllowedIPs []string // IPs or CIDR ranges; empty allows all
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
	MetricsEnabled    bool
	MetricsInterval   time.Duration
	LogsEnabled       bool
	// Database tracing options
	DBTraceEnabled    bool          // Enable database query tracing (otelgorm)
	DBLogFullSQL      bool          // Log full SQL statements (dev only)
	DBSlowQueryThresh time.Duration // Slow query threshold for warnings
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with EXCH_ prefix (e.g., EXCH_EXCHANGE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/cmlexchange")

	// Switches that are on unless explicitly turned off.
	v.SetDefault("database.migrate_on_start", true)
	v.SetDefault("sync.categories", true)
	v.SetDefault("sync.attributes", true)
	v.SetDefault("sync.prices", true)
	v.SetDefault("sync.stock", true)
	v.SetDefault("sync.images", true)
	v.SetDefault("sync.order_statuses", []string{"processing", "completed"})
	v.SetDefault("storage.use_ssl", true)
	v.SetDefault("swagger.enabled", true)
	v.SetDefault("telemetry.metrics_enabled", true)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("EXCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
			MigrateOnStart:  v.GetBool("database.migrate_on_start"),
		},
		Redis: RedisConfig{
			Host:      v.GetString("redis.host"),
			Port:      v.GetInt("redis.port"),
			Password:  v.GetString("redis.password"),
			DB:        v.GetInt("redis.db"),
			KeyPrefix: v.GetString("redis.key_prefix"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:    v.GetDuration("http.read_timeout"),
			WriteTimeout:   v.GetDuration("http.write_timeout"),
			IdleTimeout:    v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes: v.GetInt("http.max_header_bytes"),
			MaxBodySize:    v.GetInt64("http.max_body_size"),
			TrustedProxies: v.GetStringSlice("http.trusted_proxies"),
		},
		Exchange: ExchangeConfig{
			Path:             v.GetString("exchange.path"),
			Username:         v.GetString("exchange.username"),
			Password:         v.GetString("exchange.password"),
			SessionTTL:       v.GetDuration("exchange.session_ttl"),
			Retention:        v.GetDuration("exchange.retention"),
			SpoolDir:         v.GetString("exchange.spool_dir"),
			UploadMax:        v.GetString("exchange.upload_max"),
			PostMax:          v.GetString("exchange.post_max"),
			MemoryLimit:      v.GetString("exchange.memory_limit"),
			CookieName:       v.GetString("exchange.cookie_name"),
			TokenSecret:      v.GetString("exchange.token_secret"),
			ArchiveDocuments: v.GetBool("exchange.archive_documents"),
		},
		Sync: SyncConfig{
			Categories:    v.GetBool("sync.categories"),
			Attributes:    v.GetBool("sync.attributes"),
			Prices:        v.GetBool("sync.prices"),
			Stock:         v.GetBool("sync.stock"),
			Images:        v.GetBool("sync.images"),
			PriceType:     v.GetString("sync.price_type"),
			Warehouse:     v.GetString("sync.warehouse"),
			OrderStatuses: v.GetStringSlice("sync.order_statuses"),
		},
		Storage: StorageConfig{
			Bucket:            v.GetString("storage.bucket"),
			AccessKey:         v.GetString("storage.access_key"),
			SecretKey:         v.GetString("storage.secret_key"),
			Region:            v.GetString("storage.region"),
			Endpoint:          v.GetString("storage.endpoint"),
			UsePathStyle:      v.GetBool("storage.use_path_style"),
			UseSSL:            v.GetBool("storage.use_ssl"),
			PublicURL:         v.GetString("storage.public_url"),
			PresignExpiration: v.GetDuration("storage.presign_expiration"),
			ArchivePrefix:     v.GetString("storage.archive_prefix"),
			MediaPrefix:       v.GetString("storage.media_prefix"),
		},
		Swagger: SwaggerConfig{
			Enabled:    v.GetBool("swagger.enabled"),
			AllowedIPs: v.GetStringSlice("swagger.allowed_ips"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			MetricsEnabled:    v.GetBool("telemetry.metrics_enabled"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:      v.GetBool("telemetry.db_log_full_sql"),
			DBSlowQueryThresh: v.GetDuration("telemetry.db_slow_query_threshold"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "cml-exchange"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "exchange"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 2
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = "exchange:session:"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 60 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 5 * time.Minute // imports run inside the request
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 100 << 20 // largest file_limit reported on init
	}
	if cfg.Exchange.Path == "" {
		cfg.Exchange.Path = "/1c-exchange"
	}
	if cfg.Exchange.SessionTTL == 0 {
		cfg.Exchange.SessionTTL = 30 * time.Minute
	}
	if cfg.Exchange.Retention == 0 {
		cfg.Exchange.Retention = time.Hour
	}
	if cfg.Exchange.SpoolDir == "" {
		cfg.Exchange.SpoolDir = "./var/exchange"
	}
	if cfg.Exchange.UploadMax == "" {
		cfg.Exchange.UploadMax = "64M"
	}
	if cfg.Exchange.PostMax == "" {
		cfg.Exchange.PostMax = "64M"
	}
	if cfg.Exchange.MemoryLimit == "" {
		cfg.Exchange.MemoryLimit = "256M"
	}
	if cfg.Exchange.CookieName == "" {
		cfg.Exchange.CookieName = "PHPSESSID"
	}
	if cfg.Sync.PriceType == "" {
		cfg.Sync.PriceType = "Розничная"
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}
	if cfg.Storage.PresignExpiration == 0 {
		cfg.Storage.PresignExpiration = 7 * 24 * time.Hour
	}
	if cfg.Storage.ArchivePrefix == "" {
		cfg.Storage.ArchivePrefix = "exchange/archive"
	}
	if cfg.Storage.MediaPrefix == "" {
		cfg.Storage.MediaPrefix = "media"
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317" // Default gRPC endpoint
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Telemetry.MetricsInterval == 0 {
		cfg.Telemetry.MetricsInterval = 60 * time.Second
	}
	if cfg.Telemetry.DBSlowQueryThresh == 0 {
		cfg.Telemetry.DBSlowQueryThresh = 200 * time.Millisecond
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if !strings.HasPrefix(c.Exchange.Path, "/") {
		return fmt.Errorf("exchange.path must start with '/', got %q", c.Exchange.Path)
	}
	if c.Exchange.SessionTTL < 0 || c.Exchange.Retention < 0 {
		return fmt.Errorf("exchange.session_ttl and exchange.retention cannot be negative")
	}
	if c.Exchange.Password != "" && c.Exchange.Username == "" {
		return fmt.Errorf("exchange.password is set but exchange.username is empty")
	}

	if c.App.Env == "production" {
		if c.Exchange.Username == "" {
			return fmt.Errorf("exchange.username is required in production")
		}
		if len(c.Exchange.TokenSecret) < 32 {
			return fmt.Errorf("exchange.token_secret must be at least 32 characters in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Telemetry.DBLogFullSQL {
			return fmt.Errorf("telemetry.db_log_full_sql must be false in production to prevent sensitive data exposure in traces")
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Addr returns the Redis address, or "" when Redis is not configured
func (r *RedisConfig) Addr() string {
	if r.Host == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// Enabled returns true if object storage is configured
func (s *StorageConfig) Enabled() bool {
	return s.Bucket != ""
}
