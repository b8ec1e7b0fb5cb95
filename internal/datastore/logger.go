// Package datastore logging infrastructure for database operations
package datastore

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/tphakala/dirmigrate/internal/logging"
	"gorm.io/gorm/logger"
)

// Package-level logger for datastore operations
var (
	datastoreLogger   *slog.Logger
	datastoreLevelVar = new(slog.LevelVar) // Dynamic level control
	loggerCloseFunc   func() error
	loggerOnce        sync.Once

	// defaultLogPath follows the project convention of a "logs/" directory
	// for all log files.
	defaultLogPath = "logs/datastore.log"
)

// getLogger returns the datastore logger, initializing it on first use. When
// the file logger cannot be created it falls back to the service logger so
// store operations never fail on logging.
func getLogger() *slog.Logger {
	loggerOnce.Do(func() {
		datastoreLevelVar.Set(slog.LevelInfo)
		var err error
		datastoreLogger, loggerCloseFunc, err = logging.NewFileLogger(defaultLogPath, "datastore", datastoreLevelVar)
		if err != nil {
			datastoreLogger = logging.ForService("datastore")
			loggerCloseFunc = func() error { return nil }
		}
	})
	return datastoreLogger
}

// CloseLogger closes the datastore logger
func CloseLogger() error {
	if loggerCloseFunc != nil {
		return loggerCloseFunc()
	}
	return nil
}

// SetLogLevel sets the log level for the datastore logger
func SetLogLevel(level slog.Level) {
	datastoreLevelVar.Set(level)
}

// gormSlogAdapter bridges GORM's logger interface to the package slog logger.
type gormSlogAdapter struct {
	slowThreshold time.Duration
	logLevel      logger.LogLevel
}

// createGormLogger returns a GORM logger writing through the datastore logger.
func createGormLogger() logger.Interface {
	return &gormSlogAdapter{
		slowThreshold: 200 * time.Millisecond,
		logLevel:      logger.Warn,
	}
}

// LogMode implements logger.Interface
func (l *gormSlogAdapter) LogMode(level logger.LogLevel) logger.Interface {
	newLogger := *l
	newLogger.logLevel = level
	return &newLogger
}

func (l *gormSlogAdapter) Info(ctx context.Context, msg string, data ...any) {
	if l.logLevel >= logger.Info {
		getLogger().Info(msg, "data", data)
	}
}

func (l *gormSlogAdapter) Warn(ctx context.Context, msg string, data ...any) {
	if l.logLevel >= logger.Warn {
		getLogger().Warn(msg, "data", data)
	}
}

func (l *gormSlogAdapter) Error(ctx context.Context, msg string, data ...any) {
	if l.logLevel >= logger.Error {
		getLogger().Error(msg, "data", data)
	}
}

// Trace logs SQL statements, slow queries are promoted to warnings.
func (l *gormSlogAdapter) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.logLevel <= logger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()

	switch {
	case err != nil && l.logLevel >= logger.Error:
		getLogger().Error("query failed", "error", err, "sql", sql, "rows", rows, "elapsed", elapsed)
	case elapsed > l.slowThreshold && l.logLevel >= logger.Warn:
		getLogger().Warn("slow query", "sql", sql, "rows", rows, "elapsed", elapsed)
	case l.logLevel >= logger.Info:
		getLogger().Debug("query", "sql", sql, "rows", rows, "elapsed", elapsed)
	}
}
