// Package database persists a history of computed estimates in SQLite,
// powering the stats endpoint and offline calibration of the scoring
// tables.
package database

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the SQLite handle.
type DB struct {
	*sql.DB
}

// Open opens (creating if needed) the history database at path. Use
// ":memory:" for tests.
func Open(path string) (*DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	sqlDB, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite serializes writes anyway; one writer connection avoids
	// SQLITE_BUSY churn.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	db := &DB{DB: sqlDB}
	if err := db.migrate(); err != nil {
		sqlDB.Close()
		return nil, err
	}

	slog.Info("Estimate history database ready", "path", path)
	return db, nil
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS estimates (
		id TEXT PRIMARY KEY,
		created_at TIMESTAMP NOT NULL,
		estimator TEXT NOT NULL,
		category TEXT NOT NULL,
		sub_category TEXT,
		price_min INTEGER,
		price_med INTEGER,
		price_max INTEGER,
		delay_days INTEGER,
		score REAL
	);
	CREATE INDEX IF NOT EXISTS idx_estimates_estimator ON estimates(estimator);
	CREATE INDEX IF NOT EXISTS idx_estimates_created_at ON estimates(created_at);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	return nil
}
