package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig controls the GORM instrumentation
type DBTracingConfig struct {
	Enabled         bool
	LogFullSQL      bool // include bind variables in span statements
	SlowQueryThresh time.Duration
	DBName          string
}

// DefaultDBTracingConfig returns a disabled, variable-free configuration
func DefaultDBTracingConfig() DBTracingConfig {
	return DBTracingConfig{
		SlowQueryThresh: 200 * time.Millisecond,
		DBName:          "artisanmarket",
	}
}

type queryStartKey struct{}

// DBTracingPlugin registers otelgorm plus callbacks that flag slow queries on
// the active span and, when a meter is given, record query durations.
type DBTracingPlugin struct {
	config   DBTracingConfig
	logger   *zap.Logger
	duration *Histogram
}

// NewDBTracingPlugin builds the plugin. meter may be nil.
func NewDBTracingPlugin(cfg DBTracingConfig, meter metric.Meter, logger *zap.Logger) (*DBTracingPlugin, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SlowQueryThresh <= 0 {
		cfg.SlowQueryThresh = DefaultDBTracingConfig().SlowQueryThresh
	}
	p := &DBTracingPlugin{config: cfg, logger: logger}
	if meter != nil {
		h, err := NewHistogram(meter, "artisan_db_query_duration_seconds", "Database query duration", "s", DBDurationBuckets...)
		if err != nil {
			return nil, err
		}
		p.duration = h
	}
	return p, nil
}

// Register installs the instrumentation on db. It is a no-op when disabled.
func (p *DBTracingPlugin) Register(db *gorm.DB) error {
	if !p.config.Enabled {
		p.logger.Debug("Database tracing disabled")
		return nil
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(p.config.DBName)}
	if !p.config.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	cb := db.Callback()
	err := errors.Join(
		cb.Create().Before("gorm:create").Register("artisan:start_create", p.before),
		cb.Query().Before("gorm:query").Register("artisan:start_query", p.before),
		cb.Update().Before("gorm:update").Register("artisan:start_update", p.before),
		cb.Delete().Before("gorm:delete").Register("artisan:start_delete", p.before),
		cb.Row().Before("gorm:row").Register("artisan:start_row", p.before),
		cb.Raw().Before("gorm:raw").Register("artisan:start_raw", p.before),
		cb.Create().After("gorm:create").Before("otel:after:create").Register("artisan:end_create", p.afterFor("create")),
		cb.Query().After("gorm:query").Before("otel:after:select").Register("artisan:end_query", p.afterFor("select")),
		cb.Update().After("gorm:update").Before("otel:after:update").Register("artisan:end_update", p.afterFor("update")),
		cb.Delete().After("gorm:delete").Before("otel:after:delete").Register("artisan:end_delete", p.afterFor("delete")),
		cb.Row().After("gorm:row").Before("otel:after:row").Register("artisan:end_row", p.afterFor("select")),
		cb.Raw().After("gorm:raw").Before("otel:after:raw").Register("artisan:end_raw", p.afterFor("raw")),
	)
	if err != nil {
		return err
	}

	p.logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", p.config.LogFullSQL),
		zap.Duration("slow_query_threshold", p.config.SlowQueryThresh),
	)
	return nil
}

func (p *DBTracingPlugin) before(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = context.WithValue(db.Statement.Context, queryStartKey{}, time.Now())
	}
}

func (p *DBTracingPlugin) afterFor(operation string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		ctx := db.Statement.Context
		if ctx == nil {
			return
		}
		start, ok := ctx.Value(queryStartKey{}).(time.Time)
		if !ok {
			return
		}
		elapsed := time.Since(start)

		if p.duration != nil {
			p.duration.RecordDuration(ctx, elapsed,
				AttrDBOperation.String(operation),
				AttrDBTable.String(db.Statement.Table),
			)
		}

		span := trace.SpanFromContext(ctx)
		if !span.IsRecording() {
			return
		}
		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
		if db.Statement.Table != "" {
			span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
		}
		if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Error, db.Error.Error())
			span.RecordError(db.Error)
		}
		if elapsed > p.config.SlowQueryThresh {
			span.SetAttributes(
				attribute.Bool("db.slow_query", true),
				attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
			)
			span.AddEvent("slow_query", trace.WithAttributes(
				attribute.Int64("threshold_ms", p.config.SlowQueryThresh.Milliseconds()),
			))
		}
	}
}
