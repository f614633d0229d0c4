package persistence

import (
	"context"
	"errors"
	"time"

	"flightsync-service/pkg/logger"

	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// GormLogger routes gorm's statement log into the application logger.
// Statements slower than slowThreshold are logged as warnings, failures as
// errors, everything else at debug.
type GormLogger struct {
	log           logger.Logger
	slowThreshold time.Duration
	level         gormLogger.LogLevel
}

// NewGormLogger creates a gorm logger on top of log
func NewGormLogger(log logger.Logger, slowThreshold time.Duration) *GormLogger {
	return &GormLogger{
		log:           log.With("component", "gorm"),
		slowThreshold: slowThreshold,
		level:         gormLogger.Warn,
	}
}

// LogMode returns a copy with the given level
func (l *GormLogger) LogMode(level gormLogger.LogLevel) gormLogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= gormLogger.Info {
		l.log.Info(msg, "data", data)
	}
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= gormLogger.Warn {
		l.log.Warn(msg, "data", data)
	}
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= gormLogger.Error {
		l.log.Error(msg, "data", data)
	}
}

// Trace is called once per executed statement
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormLogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.level >= gormLogger.Error:
		sql, rows := fc()
		l.log.Error("SQL failed", "error", err, "elapsed", elapsed, "rows", rows, "sql", sql)
	case l.slowThreshold > 0 && elapsed > l.slowThreshold && l.level >= gormLogger.Warn:
		sql, rows := fc()
		l.log.Warn("Slow SQL", "elapsed", elapsed, "rows", rows, "sql", sql)
	case l.level >= gormLogger.Info:
		sql, rows := fc()
		l.log.Debug("SQL", "elapsed", elapsed, "rows", rows, "sql", sql)
	}
}
