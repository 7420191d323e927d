package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "cml-exchange", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "exchange", cfg.Database.DBName)
		assert.Equal(t, 10, cfg.Database.MaxOpenConns)
		assert.Equal(t, 2, cfg.Database.MaxIdleConns)
		assert.True(t, cfg.Database.MigrateOnStart)

		assert.Equal(t, "/1c-exchange", cfg.Exchange.Path)
		assert.Equal(t, 30*time.Minute, cfg.Exchange.SessionTTL)
		assert.Equal(t, time.Hour, cfg.Exchange.Retention)
		assert.Equal(t, "PHPSESSID", cfg.Exchange.CookieName)
		assert.Equal(t, "64M", cfg.Exchange.UploadMax)
		assert.Empty(t, cfg.Exchange.Username)

		assert.True(t, cfg.Sync.Categories)
		assert.True(t, cfg.Sync.Attributes)
		assert.True(t, cfg.Sync.Prices)
		assert.True(t, cfg.Sync.Stock)
		assert.True(t, cfg.Sync.Images)
		assert.Equal(t, "Розничная", cfg.Sync.PriceType)
		assert.Empty(t, cfg.Sync.Warehouse)
		assert.Equal(t, []string{"processing", "completed"}, cfg.Sync.OrderStatuses)
		assert.True(t, cfg.Swagger.Enabled)
		assert.Empty(t, cfg.Swagger.AllowedIPs)

		assert.False(t, cfg.Storage.Enabled())
		assert.Empty(t, cfg.Redis.Addr())
		assert.Equal(t, "cml-exchange", cfg.Telemetry.ServiceName)
	})

	t.Run("loads values from environment variables with EXCH prefix", func(t *testing.T) {
		t.Setenv("EXCH_APP_PORT", "9000")
		t.Setenv("EXCH_DATABASE_HOST", "testdb.local")
		t.Setenv("EXCH_DATABASE_PORT", "5433")
		t.Setenv("EXCH_EXCHANGE_PATH", "/exchange/1c")
		t.Setenv("EXCH_EXCHANGE_USERNAME", "erp")
		t.Setenv("EXCH_EXCHANGE_PASSWORD", "secret")
		t.Setenv("EXCH_EXCHANGE_SESSION_TTL", "10m")
		t.Setenv("EXCH_SYNC_IMAGES", "false")
		t.Setenv("EXCH_SYNC_WAREHOUSE", "Основной склад")
		t.Setenv("EXCH_SYNC_ORDER_STATUSES", "new processing")
		t.Setenv("EXCH_REDIS_HOST", "redis.local")
		t.Setenv("EXCH_STORAGE_BUCKET", "media")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, "testdb.local", cfg.Database.Host)
		assert.Equal(t, 5433, cfg.Database.Port)
		assert.Equal(t, "/exchange/1c", cfg.Exchange.Path)
		assert.Equal(t, "erp", cfg.Exchange.Username)
		assert.Equal(t, "secret", cfg.Exchange.Password)
		assert.Equal(t, 10*time.Minute, cfg.Exchange.SessionTTL)
		assert.False(t, cfg.Sync.Images)
		assert.True(t, cfg.Sync.Prices)
		assert.Equal(t, "Основной склад", cfg.Sync.Warehouse)
		assert.Equal(t, []string{"new", "processing"}, cfg.Sync.OrderStatuses)
		assert.Equal(t, "redis.local:6379", cfg.Redis.Addr())
		assert.True(t, cfg.Storage.Enabled())
	})

	t.Run("validates MaxIdleConns cannot exceed MaxOpenConns", func(t *testing.T) {
		t.Setenv("EXCH_DATABASE_MAX_OPEN_CONNS", "10")
		t.Setenv("EXCH_DATABASE_MAX_IDLE_CONNS", "20")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot exceed")
	})

	t.Run("validates exchange path", func(t *testing.T) {
		t.Setenv("EXCH_EXCHANGE_PATH", "1c-exchange")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "exchange.path must start with '/'")
	})

	t.Run("password without username", func(t *testing.T) {
		t.Setenv("EXCH_EXCHANGE_PASSWORD", "secret")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "exchange.username is empty")
	})

	t.Run("validates sampling ratio", func(t *testing.T) {
		t.Setenv("EXCH_TELEMETRY_SAMPLING_RATIO", "1.5")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sampling_ratio")
	})
}

func TestLoad_ProductionValidation(t *testing.T) {
	setValidProductionBase := func(t *testing.T) {
		t.Setenv("EXCH_APP_ENV", "production")
		t.Setenv("EXCH_EXCHANGE_USERNAME", "erp")
		t.Setenv("EXCH_EXCHANGE_PASSWORD", "$2a$10$abcdefghijklmnopqrstuv")
		t.Setenv("EXCH_EXCHANGE_TOKEN_SECRET", "this-is-a-very-secure-token-secret-32chars")
		t.Setenv("EXCH_DATABASE_PASSWORD", "secure-password")
	}

	t.Run("passes validation with valid production config", func(t *testing.T) {
		setValidProductionBase(t)

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "production", cfg.App.Env)
	})

	t.Run("requires exchange credentials in production", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("EXCH_EXCHANGE_USERNAME", "")
		t.Setenv("EXCH_EXCHANGE_PASSWORD", "")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "exchange.username is required in production")
	})

	t.Run("requires long token secret in production", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("EXCH_EXCHANGE_TOKEN_SECRET", "short")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "token_secret must be at least 32 characters")
	})

	t.Run("requires database.password in production", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("EXCH_DATABASE_PASSWORD", "")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.password is required in production")
	})

	t.Run("rejects full SQL logging in production", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("EXCH_TELEMETRY_DB_LOG_FULL_SQL", "true")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "db_log_full_sql")
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Run("generates valid DSN", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "testuser",
			Password: "testpass",
			DBName:   "testdb",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		assert.Contains(t, dsn, "localhost:5432")
		assert.Contains(t, dsn, "testuser")
		assert.Contains(t, dsn, "testdb")
		assert.Contains(t, dsn, "sslmode=disable")
	})

	t.Run("escapes special characters in password", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "user",
			Password: "pass@word#123",
			DBName:   "db",
			SSLMode:  "disable",
		}

		assert.Contains(t, cfg.DSN(), "pass%40word%23123")
	})
}
