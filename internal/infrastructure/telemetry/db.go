package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig holds database tracing configuration.
type DBTracingConfig struct {
	Enabled         bool
	LogFullSQL      bool
	SlowQueryThresh time.Duration
	DBSystem        string
}

type queryStartKey struct{}

// InstrumentDB registers otelgorm plus slow query marking on db.
func InstrumentDB(db *gorm.DB, cfg DBTracingConfig, logger *zap.Logger) error {
	if !cfg.Enabled {
		logger.Debug("Database tracing disabled, skipping otelgorm registration")
		return nil
	}
	if cfg.SlowQueryThresh <= 0 {
		cfg.SlowQueryThresh = 200 * time.Millisecond
	}
	if cfg.DBSystem == "" {
		cfg.DBSystem = "postgresql"
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(cfg.DBSystem)}
	if !cfg.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return fmt.Errorf("register otelgorm: %w", err)
	}

	before := func(tx *gorm.DB) {
		if tx.Statement.Context != nil {
			tx.Statement.Context = context.WithValue(tx.Statement.Context, queryStartKey{}, time.Now())
		}
	}
	after := slowQueryCallback(cfg.SlowQueryThresh)

	cb := db.Callback()
	registrations := []struct {
		name string
		fn   func() error
	}{
		{"create", func() error { return cb.Create().Before("gorm:create").Register("fx_timing:before_create", before) }},
		{"query", func() error { return cb.Query().Before("gorm:query").Register("fx_timing:before_query", before) }},
		{"update", func() error { return cb.Update().Before("gorm:update").Register("fx_timing:before_update", before) }},
		{"delete", func() error { return cb.Delete().Before("gorm:delete").Register("fx_timing:before_delete", before) }},
		{"row", func() error { return cb.Row().Before("gorm:row").Register("fx_timing:before_row", before) }},
		{"raw", func() error { return cb.Raw().Before("gorm:raw").Register("fx_timing:before_raw", before) }},
		{"create", func() error { return cb.Create().After("gorm:create").Register("fx_timing:after_create", after) }},
		{"query", func() error { return cb.Query().After("gorm:query").Register("fx_timing:after_query", after) }},
		{"update", func() error { return cb.Update().After("gorm:update").Register("fx_timing:after_update", after) }},
		{"delete", func() error { return cb.Delete().After("gorm:delete").Register("fx_timing:after_delete", after) }},
		{"row", func() error { return cb.Row().After("gorm:row").Register("fx_timing:after_row", after) }},
		{"raw", func() error { return cb.Raw().After("gorm:raw").Register("fx_timing:after_raw", after) }},
	}
	for _, r := range registrations {
		if err := r.fn(); err != nil {
			return fmt.Errorf("register %s timing callback: %w", r.name, err)
		}
	}

	logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", cfg.LogFullSQL),
		zap.Duration("slow_query_threshold", cfg.SlowQueryThresh),
		zap.String("db_system", cfg.DBSystem),
	)
	return nil
}

func slowQueryCallback(threshold time.Duration) func(*gorm.DB) {
	return func(tx *gorm.DB) {
		ctx := tx.Statement.Context
		if ctx == nil {
			return
		}
		span := trace.SpanFromContext(ctx)
		if !span.IsRecording() {
			return
		}
		if tx.Statement.RowsAffected >= 0 {
			span.SetAttributes(attribute.Int64("db.rows_affected", tx.Statement.RowsAffected))
		}
		if tx.Statement.Table != "" {
			span.SetAttributes(attribute.String("db.sql.table", tx.Statement.Table))
		}
		if tx.Error != nil && !errors.Is(tx.Error, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Error, tx.Error.Error())
			span.RecordError(tx.Error)
		}
		start, ok := ctx.Value(queryStartKey{}).(time.Time)
		if !ok {
			return
		}
		if elapsed := time.Since(start); elapsed > threshold {
			span.SetAttributes(
				attribute.Bool("db.slow_query", true),
				attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
			)
			span.AddEvent("slow_query_warning", trace.WithAttributes(
				attribute.Int64("duration_ms", elapsed.Milliseconds()),
				attribute.Int64("threshold_ms", threshold.Milliseconds()),
			))
		}
	}
}

// RegisterDBPoolMetrics exports connection pool statistics as observable gauges
func RegisterDBPoolMetrics(meter metric.Meter, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql.DB: %w", err)
	}
	conns, err := meter.Int64ObservableGauge("db.pool.connections",
		metric.WithDescription("Database connections by state"),
		metric.WithUnit("{connection}"))
	if err != nil {
		return err
	}
	waits, err := meter.Int64ObservableCounter("db.pool.wait_count",
		metric.WithDescription("Total connections waited for"),
		metric.WithUnit("{wait}"))
	if err != nil {
		return err
	}
	_, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		stats := sqlDB.Stats()
		o.ObserveInt64(conns, int64(stats.InUse), metric.WithAttributes(attribute.String("db.pool.state", "in_use")))
		o.ObserveInt64(conns, int64(stats.Idle), metric.WithAttributes(attribute.String("db.pool.state", "idle")))
		o.ObserveInt64(conns, int64(stats.MaxOpenConnections), metric.WithAttributes(attribute.String("db.pool.state", "max")))
		o.ObserveInt64(waits, stats.WaitCount)
		return nil
	}, conns, waits)
	return err
}
