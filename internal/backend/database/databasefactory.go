package database

import (
	"fmt"
	"log/slog"
	"time"
)

// NewDatabase creates the session store for the configured type. ttl is only
// used by backends that expire keys on their own.
func NewDatabase(databaseType, connectionString string, ttl time.Duration) (database DatabaseService, err error) {
	switch databaseType {
	case "", "memory":
		database = NewMemoryDatabase()
	case "sqlite":
		database, err = NewSQLiteDatabase(connectionString)
		if err != nil {
			return nil, err
		}
	case "redis":
		database, err = NewRedisDatabase(connectionString, ttl)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", databaseType)
	}

	// Ensure the schema exists (idempotent), important for in-memory SQLite
	slog.Info("initializing session store", "type", databaseType)
	if err = database.CreateDatabase(); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("failed to create database: %w", err)
	}

	return database, nil
}
