package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

var _ gormlogger.Interface = (*GormLogger)(nil)

func newObservedGorm(level gormlogger.LogLevel, opts ...GormLoggerOption) (*GormLogger, *observer.ObservedLogs) {
	core, recorded := observer.New(zapcore.DebugLevel)
	return NewGormLogger(zap.New(core), level, opts...), recorded
}

func TestGormLogger_Trace(t *testing.T) {
	sqlFn := func() (string, int64) { return "UPDATE products SET quantity = quantity - 1", 1 }

	tests := []struct {
		name      string
		level     gormlogger.LogLevel
		begin     time.Time
		err       error
		wantMsg   string
		wantLevel zapcore.Level
		wantNone  bool
	}{
		{
			name:      "failed statement logs at error",
			level:     gormlogger.Warn,
			begin:     time.Now(),
			err:       errors.New("deadlock detected"),
			wantMsg:   "sql failed",
			wantLevel: zapcore.ErrorLevel,
		},
		{
			name:     "record not found is ignored",
			level:    gormlogger.Warn,
			begin:    time.Now(),
			err:      gormlogger.ErrRecordNotFound,
			wantNone: true,
		},
		{
			name:      "slow statement logs at warn",
			level:     gormlogger.Warn,
			begin:     time.Now().Add(-time.Second),
			wantMsg:   "slow sql",
			wantLevel: zapcore.WarnLevel,
		},
		{
			name:      "fast statement logs at debug in info mode",
			level:     gormlogger.Info,
			begin:     time.Now(),
			wantMsg:   "sql",
			wantLevel: zapcore.DebugLevel,
		},
		{
			name:     "silent mode logs nothing",
			level:    gormlogger.Silent,
			begin:    time.Now(),
			err:      errors.New("boom"),
			wantNone: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gl, recorded := newObservedGorm(tt.level)
			gl.Trace(context.Background(), tt.begin, sqlFn, tt.err)

			if tt.wantNone {
				assert.Equal(t, 0, recorded.Len())
				return
			}
			require.Equal(t, 1, recorded.Len())
			entry := recorded.All()[0]
			assert.Equal(t, tt.wantMsg, entry.Message)
			assert.Equal(t, tt.wantLevel, entry.Level)
		})
	}
}

func TestGormLogger_TraceCarriesRequestID(t *testing.T) {
	gl, recorded := newObservedGorm(gormlogger.Info)
	ctx := context.WithValue(context.Background(), RequestIDKey, "req-42")

	gl.Trace(ctx, time.Now(), func() (string, int64) { return "SELECT 1", 1 }, nil)

	require.Equal(t, 1, recorded.Len())
	assert.Equal(t, "req-42", recorded.All()[0].ContextMap()["request_id"])
}

func TestGormLogger_TraceCarriesUserAndError(t *testing.T) {
	gl, recorded := newObservedGorm(gormlogger.Warn)
	ctx := context.WithValue(context.Background(), UserIDKey, "user-7")

	gl.Trace(ctx, time.Now(), func() (string, int64) { return "SELECT 1", 0 }, errors.New("conn reset"))

	require.Equal(t, 1, recorded.Len())
	fields := recorded.All()[0].ContextMap()
	assert.Equal(t, "user-7", fields["user_id"])
	assert.Equal(t, "conn reset", fields["error"])
}

func TestGormLogger_RecordNotFoundOptIn(t *testing.T) {
	gl, recorded := newObservedGorm(gormlogger.Warn, WithRecordNotFound(true))
	gl.Trace(context.Background(), time.Now(), func() (string, int64) { return "SELECT 1", 0 }, gormlogger.ErrRecordNotFound)
	assert.Equal(t, 1, recorded.Len())
}

func TestGormLogger_ParamsFilter(t *testing.T) {
	const stmt = `UPDATE "vendors" SET "bank_account_ref"=$1`

	gl, _ := newObservedGorm(gormlogger.Info)
	sql, params := gl.ParamsFilter(context.Background(), stmt, "acct_123")
	assert.Equal(t, stmt, sql)
	assert.Equal(t, []any{"acct_123"}, params)

	hidden, _ := newObservedGorm(gormlogger.Info, WithHiddenParams(true))
	sql, params = hidden.ParamsFilter(context.Background(), stmt, "acct_123")
	assert.Equal(t, stmt, sql)
	assert.Nil(t, params)
}

func TestGormLogger_LogModeCopies(t *testing.T) {
	gl, _ := newObservedGorm(gormlogger.Info, WithSlowThreshold(time.Second))
	warn, ok := gl.LogMode(gormlogger.Warn).(*GormLogger)
	require.True(t, ok)

	assert.Equal(t, gormlogger.Info, gl.level)
	assert.Equal(t, gormlogger.Warn, warn.level)
	assert.Equal(t, time.Second, warn.slow)
}

func TestGormLogger_Printf(t *testing.T) {
	gl, recorded := newObservedGorm(gormlogger.Warn)
	gl.Info(context.Background(), "migrated %d tables", 4)
	gl.Warn(context.Background(), "slow pool: %s", "orders")

	require.Equal(t, 1, recorded.Len())
	assert.Equal(t, "slow pool: orders", recorded.All()[0].Message)
}

func TestMapGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, MapGormLogLevel("silent"))
	assert.Equal(t, gormlogger.Error, MapGormLogLevel("error"))
	assert.Equal(t, gormlogger.Info, MapGormLogLevel("debug"))
	assert.Equal(t, gormlogger.Info, MapGormLogLevel(" INFO "))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("anything"))
}
