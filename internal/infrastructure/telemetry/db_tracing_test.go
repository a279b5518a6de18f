package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type tracedRow struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"size:100"`
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&tracedRow{}))
	return db
}

func TestDBTracingPlugin_Disabled(t *testing.T) {
	db := setupTestDB(t)
	p, err := NewDBTracingPlugin(DefaultDBTracingConfig(), nil, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, p.Register(db))
	assert.Nil(t, db.Callback().Query().Get("artisan:end_query"))
}

func TestDBTracingPlugin_RecordsSpansAndDurations(t *testing.T) {
	recorder := useSpanRecorder(t)
	provider, reader := newTestMeter(t)
	db := setupTestDB(t)

	cfg := DefaultDBTracingConfig()
	cfg.Enabled = true
	cfg.SlowQueryThresh = time.Nanosecond
	p, err := NewDBTracingPlugin(cfg, provider.Meter("test"), nil)
	require.NoError(t, err)
	require.NoError(t, p.Register(db))

	ctx, parent := otel.Tracer("test").Start(context.Background(), "request")
	require.NoError(t, db.WithContext(ctx).Create(&tracedRow{Name: "kiln"}).Error)
	var rows []tracedRow
	require.NoError(t, db.WithContext(ctx).Find(&rows).Error)
	parent.End()

	var slow int
	for _, s := range recorder.Ended() {
		for _, a := range s.Attributes() {
			if a.Key == "db.slow_query" && a.Value.AsBool() {
				slow++
			}
		}
	}
	assert.GreaterOrEqual(t, slow, 2)
	assert.GreaterOrEqual(t, histogramCount(collect(t, reader), "artisan_db_query_duration_seconds"), uint64(2))
}
