package logger

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

const defaultSlowQuery = 200 * time.Millisecond

// GormLogger writes GORM statements to zap, tagged with the request and user
// that issued them.
type GormLogger struct {
	zl         *zap.Logger
	level      gormlogger.LogLevel
	slow       time.Duration
	logMissing bool
	hideParams bool
}

// GormLoggerOption configures a GormLogger
type GormLoggerOption func(*GormLogger)

// WithSlowThreshold sets the duration above which a statement is logged as slow.
// Zero disables slow statement logging.
func WithSlowThreshold(threshold time.Duration) GormLoggerOption {
	return func(l *GormLogger) { l.slow = threshold }
}

// WithRecordNotFound makes gorm.ErrRecordNotFound log as an error. Repositories
// translate it to a domain not-found, so it is quiet by default.
func WithRecordNotFound(logIt bool) GormLoggerOption {
	return func(l *GormLogger) { l.logMissing = logIt }
}

// WithHiddenParams logs statements with placeholders instead of bound values.
// Bank references and password hashes then never reach the log.
func WithHiddenParams(hide bool) GormLoggerOption {
	return func(l *GormLogger) { l.hideParams = hide }
}

// NewGormLogger creates a GORM logger on top of base
func NewGormLogger(base *zap.Logger, level gormlogger.LogLevel, opts ...GormLoggerOption) *GormLogger {
	l := &GormLogger{zl: base.Named("gorm"), level: level, slow: defaultSlowQuery}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LogMode implements gormlogger.Interface
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

// ParamsFilter is picked up by GORM when explaining SQL for Trace
func (l *GormLogger) ParamsFilter(_ context.Context, sql string, params ...any) (string, []any) {
	if l.hideParams {
		return sql, nil
	}
	return sql, params
}

func (l *GormLogger) Info(_ context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Info {
		l.zl.Sugar().Infof(msg, data...)
	}
}

func (l *GormLogger) Warn(_ context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Warn {
		l.zl.Sugar().Warnf(msg, data...)
	}
}

func (l *GormLogger) Error(_ context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Error {
		l.zl.Sugar().Errorf(msg, data...)
	}
}

// Trace implements gormlogger.Interface
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)

	var (
		msg   string
		write func(string, ...zap.Field)
	)
	switch {
	case err != nil && l.level >= gormlogger.Error:
		if !l.logMissing && errors.Is(err, gormlogger.ErrRecordNotFound) {
			return
		}
		msg, write = "sql failed", l.zl.Error
	case l.slow > 0 && elapsed > l.slow && l.level >= gormlogger.Warn:
		msg, write = "slow sql", l.zl.Warn
	case l.level >= gormlogger.Info:
		msg, write = "sql", l.zl.Debug
	default:
		return
	}

	sql, rows := fc()
	fields := append(statementFields(ctx),
		zap.String("sql", sql),
		zap.Int64("rows", rows),
		zap.Duration("elapsed", elapsed),
	)
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	if msg == "slow sql" {
		fields = append(fields, zap.Duration("threshold", l.slow))
	}
	write(msg, fields...)
}

func statementFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 7)
	if id := GetRequestID(ctx); id != "" {
		fields = append(fields, zap.String("request_id", id))
	}
	if id := GetUserID(ctx); id != "" {
		fields = append(fields, zap.String("user_id", id))
	}
	if id := GetTraceID(ctx); id != "" {
		fields = append(fields, zap.String("trace_id", id))
	}
	return fields
}

var gormLevels = map[string]gormlogger.LogLevel{
	"silent": gormlogger.Silent,
	"error":  gormlogger.Error,
	"warn":   gormlogger.Warn,
	"info":   gormlogger.Info,
	"debug":  gormlogger.Info,
}

// MapGormLogLevel converts an application log level to a GORM level, falling
// back to warn
func MapGormLogLevel(level string) gormlogger.LogLevel {
	if l, ok := gormLevels[strings.ToLower(strings.TrimSpace(level))]; ok {
		return l
	}
	return gormlogger.Warn
}
