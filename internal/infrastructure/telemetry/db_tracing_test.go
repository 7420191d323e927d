package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type tracedRow struct {
	ID   uint `gorm:"primaryKey"`
	Name string
}

func openTracedDB(t *testing.T, register func(*gorm.DB) error) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&tracedRow{}))
	require.NoError(t, register(db))
	return db
}

func useRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	return recorder
}

func TestDBTracing_Disabled(t *testing.T) {
	recorder := useRecorder(t)
	db := openTracedDB(t, DBTracing(DBTracingConfig{Enabled: false}, zap.NewNop()))

	require.NoError(t, db.Create(&tracedRow{Name: "a"}).Error)
	assert.Empty(t, recorder.Ended())
}

func TestDBTracing_RecordsSpans(t *testing.T) {
	recorder := useRecorder(t)
	db := openTracedDB(t, DBTracing(DBTracingConfig{Enabled: true, DBName: "exchange"}, zap.NewNop()))

	require.NoError(t, db.Create(&tracedRow{Name: "a"}).Error)
	var rows []tracedRow
	require.NoError(t, db.Find(&rows).Error)

	assert.GreaterOrEqual(t, len(recorder.Ended()), 2)
}

func TestDBTracing_FlagsSlowQueries(t *testing.T) {
	useRecorder(t)
	core, logs := observer.New(zapcore.WarnLevel)
	db := openTracedDB(t, DBTracing(DBTracingConfig{
		Enabled:         true,
		SlowQueryThresh: time.Nanosecond,
	}, zap.New(core)))

	var rows []tracedRow
	require.NoError(t, db.Find(&rows).Error)

	slow := logs.FilterMessage("Slow database query").All()
	require.NotEmpty(t, slow)
	assert.Equal(t, "traced_rows", slow[0].ContextMap()["table"])
}
