package datastore

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/astralabs/astra-go/internal/logging"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DefaultSlowQueryThreshold defines the duration after which a query is
// considered slow and logged at warn level.
const DefaultSlowQueryThreshold = 1 * time.Second

func getLogger() *slog.Logger {
	if l := logging.ForService("datastore"); l != nil {
		return l
	}
	return slog.Default()
}

// createGormLogger configures and returns a new GORM logger instance.
func createGormLogger(debug bool) gormlogger.Interface {
	level := gormlogger.Warn
	if debug {
		level = gormlogger.Info
	}
	return gormlogger.Default.LogMode(level)
}

// performAutoMigration runs GORM auto-migration for all entities and logs the outcome.
func performAutoMigration(db *gorm.DB, debug bool, dbType, connectionInfo string) error {
	if err := db.AutoMigrate(&ContentEvent{}, &AnalyticsRecord{}, &ThreatIndicator{}); err != nil {
		return fmt.Errorf("failed to auto-migrate %s database: %w", dbType, err)
	}

	if debug {
		getLogger().Debug("Database connection established",
			"type", dbType,
			"connection", connectionInfo)
	}
	return nil
}
