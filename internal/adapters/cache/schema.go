package cache

import (
	"database/sql"
	"errors"
	"fmt"
)

// Initialize the SQLite arc-cost cache schema.
func InitSqliteSchema(db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createArcCacheQuery := `
	CREATE TABLE IF NOT EXISTS arc_cost_cache (
        fingerprint TEXT NOT NULL,
        seq INTEGER NOT NULL,
        vehicle TEXT NOT NULL,
        from_node TEXT NOT NULL,
        to_node TEXT NOT NULL,
        dist_km REAL NOT NULL,
        time_h REAL NOT NULL,
        cost REAL NOT NULL,
        allowed INTEGER NOT NULL,
        PRIMARY KEY (fingerprint, vehicle, from_node, to_node)
    );
	`

	createIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_arc_cost_cache_fingerprint_seq
    ON arc_cost_cache(fingerprint, seq);
	`

	statements := []string{
		createArcCacheQuery,
		createIndexQuery,
	}

	for i, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

// Initialize the Postgres arc-cost cache schema.
func InitPostgresSchema(db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createArcCacheQuery := `
	CREATE TABLE IF NOT EXISTS arc_cost_cache (
        fingerprint TEXT NOT NULL,
        seq INTEGER NOT NULL,
        vehicle TEXT NOT NULL,
        from_node TEXT NOT NULL,
        to_node TEXT NOT NULL,
        dist_km DOUBLE PRECISION NOT NULL,
        time_h DOUBLE PRECISION NOT NULL,
        cost DOUBLE PRECISION NOT NULL,
        allowed BOOLEAN NOT NULL,
        PRIMARY KEY (fingerprint, vehicle, from_node, to_node)
    );
	`

	createIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_arc_cost_cache_fingerprint_seq
    ON arc_cost_cache(fingerprint, seq);
	`

	statements := []string{
		createArcCacheQuery,
		createIndexQuery,
	}

	for i, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}
