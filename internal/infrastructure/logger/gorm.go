package logger

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

// GormLogger routes gorm's statement log through zap
type GormLogger struct {
	logger        *zap.Logger
	level         gormlogger.LogLevel
	slowThreshold time.Duration
}

// NewGormLogger creates a gorm logger. Statements slower than
// slowThreshold are logged at warn; zero disables slow logging.
func NewGormLogger(zapLogger *zap.Logger, level gormlogger.LogLevel, slowThreshold time.Duration) *GormLogger {
	return &GormLogger{
		logger:        zapLogger.Named("gorm"),
		level:         level,
		slowThreshold: slowThreshold,
	}
}

// LogMode implements gormlogger.Interface
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cp := *l
	cp.level = level
	return &cp
}

// Info implements gormlogger.Interface
func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Info {
		Enrich(ctx, l.logger).Sugar().Infof(msg, data...)
	}
}

// Warn implements gormlogger.Interface
func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Warn {
		Enrich(ctx, l.logger).Sugar().Warnf(msg, data...)
	}
}

// Error implements gormlogger.Interface
func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Error {
		Enrich(ctx, l.logger).Sugar().Errorf(msg, data...)
	}
}

// Trace implements gormlogger.Interface. Record-not-found is never logged
// since lookups miss routinely during imports.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	sql, rows := fc()
	fields := []zap.Field{
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
		zap.String("sql", sql),
	}
	log := Enrich(ctx, l.logger)

	switch {
	case err != nil && l.level >= gormlogger.Error && !errors.Is(err, gormlogger.ErrRecordNotFound):
		log.Error("SQL Error", append(fields, zap.Error(err))...)
	case l.slowThreshold > 0 && elapsed > l.slowThreshold && l.level >= gormlogger.Warn:
		log.Warn("Slow SQL", append(fields, zap.Duration("threshold", l.slowThreshold))...)
	case l.level >= gormlogger.Info:
		log.Debug("SQL Query", fields...)
	}
}

// MapGormLogLevel maps the application log level to a gorm level
func MapGormLogLevel(level string) gormlogger.LogLevel {
	switch level {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info", "debug":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}
