package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig holds configuration for database tracing
type DBTracingConfig struct {
	Enabled         bool
	LogFullSQL      bool          // include query variables; dev only
	SlowQueryThresh time.Duration // default 200ms
	DBSystem        string        // default "postgresql"
}

// DefaultDBTracingConfig returns the disabled default
func DefaultDBTracingConfig() DBTracingConfig {
	return DBTracingConfig{
		SlowQueryThresh: 200 * time.Millisecond,
		DBSystem:        "postgresql",
	}
}

type queryStartKey struct{}

// RegisterDBTracing installs otelgorm and a callback pair that flags slow
// statements and records errors on the statement span. Row-lock waits
// show up here as slow SELECT ... FOR UPDATE spans.
func RegisterDBTracing(db *gorm.DB, cfg DBTracingConfig, logger *zap.Logger) error {
	if !cfg.Enabled {
		logger.Debug("Database tracing disabled")
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
		return err
	}

	before := func(tx *gorm.DB) {
		if tx.Statement.Context != nil {
			tx.Statement.Context = context.WithValue(tx.Statement.Context, queryStartKey{}, time.Now())
		}
	}
	after := func(tx *gorm.DB) { annotateStatement(tx, cfg.SlowQueryThresh) }

	cb := db.Callback()
	steps := []struct {
		op     string
		before func(string) error
		after  func(string) error
	}{
		{"create",
			func(n string) error { return cb.Create().Before("gorm:create").Register(n, before) },
			func(n string) error { return cb.Create().After("gorm:create").Register(n, after) }},
		{"query",
			func(n string) error { return cb.Query().Before("gorm:query").Register(n, before) },
			func(n string) error { return cb.Query().After("gorm:query").Register(n, after) }},
		{"update",
			func(n string) error { return cb.Update().Before("gorm:update").Register(n, before) },
			func(n string) error { return cb.Update().After("gorm:update").Register(n, after) }},
		{"delete",
			func(n string) error { return cb.Delete().Before("gorm:delete").Register(n, before) },
			func(n string) error { return cb.Delete().After("gorm:delete").Register(n, after) }},
		{"row",
			func(n string) error { return cb.Row().Before("gorm:row").Register(n, before) },
			func(n string) error { return cb.Row().After("gorm:row").Register(n, after) }},
		{"raw",
			func(n string) error { return cb.Raw().Before("gorm:raw").Register(n, before) },
			func(n string) error { return cb.Raw().After("gorm:raw").Register(n, after) }},
	}
	for _, s := range steps {
		if err := s.before("otel_timing:before_" + s.op); err != nil {
			return err
		}
		if err := s.after("otel_timing:after_" + s.op); err != nil {
			return err
		}
	}

	logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", cfg.LogFullSQL),
		zap.Duration("slow_query_threshold", cfg.SlowQueryThresh))
	return nil
}

func annotateStatement(tx *gorm.DB, slow time.Duration) {
	ctx := tx.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	if tx.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", tx.Statement.Table))
	}
	span.SetAttributes(attribute.Int64("db.rows_affected", tx.Statement.RowsAffected))
	if tx.Error != nil && !errors.Is(tx.Error, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Error, tx.Error.Error())
		span.RecordError(tx.Error)
	}
	if start, ok := ctx.Value(queryStartKey{}).(time.Time); ok {
		if elapsed := time.Since(start); elapsed > slow {
			span.SetAttributes(
				attribute.Bool("db.slow_query", true),
				attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
			)
		}
	}
}
