package datastore

import (
	"fmt"
	"path/filepath"

	"github.com/astralabs/astra-go/internal/conf"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// SQLiteStore implements Interface for SQLite
type SQLiteStore struct {
	DataStore
	Settings *conf.Settings
}

func validateSQLiteConfig(settings *conf.Settings) error {
	if settings.Output.SQLite.Path == "" {
		return fmt.Errorf("sqlite database path is not set")
	}
	return nil
}

// Open sets up the SQLite database connection and runs auto-migration.
func (store *SQLiteStore) Open() error {
	if err := validateSQLiteConfig(store.Settings); err != nil {
		return err
	}

	// ":memory:" is a driver-level pseudo path, not a file. Every new pool
	// connection to a plain ":memory:" DSN opens its own empty database, so
	// the in-memory case uses a shared-cache DSN and a single pooled
	// connection to keep concurrent writers on the schema-bearing connection.
	absolutePath := store.Settings.Output.SQLite.Path
	inMemory := absolutePath == ":memory:"
	if inMemory {
		absolutePath = "file::memory:?cache=shared"
	} else {
		var err error
		absolutePath, err = filepath.Abs(absolutePath)
		if err != nil {
			return fmt.Errorf("failed to resolve SQLite path: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(absolutePath), &gorm.Config{
		Logger: createGormLogger(store.Settings.Debug),
	})
	if err != nil {
		return fmt.Errorf("failed to open SQLite database: %w", err)
	}

	if inMemory {
		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("failed to access SQLite connection pool: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	store.DB = db
	return performAutoMigration(db, store.Settings.Debug, "SQLite", absolutePath)
}

// Close is a no-op for SQLite, connections are managed by the driver pool.
func (store *SQLiteStore) Close() error {
	return nil
}
