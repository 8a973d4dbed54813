package cache

import (
	"context"
	"database/sql"
	"errors"
	"fleet-routing-pipeline/internal/domain"
	"fmt"
)

// SQLite backed cache for precomputed arc-cost tables. Rows are keyed
// by the instance fingerprint computed at ingestion; the fingerprint
// captures every input that influences arc costs, so a hit can be
// replayed verbatim.
type SqliteArcCache struct {
	DB *sql.DB
}

func NewSqliteArcCache(db *sql.DB) *SqliteArcCache {
	return &SqliteArcCache{DB: db}
}

// Fetch the cached arc-cost table for one instance fingerprint.
// An unknown fingerprint returns an empty table, not an error.
func (s *SqliteArcCache) GetMany(ctx context.Context, fingerprint string) ([]domain.ArcCost, error) {
	if s.DB == nil {
		return nil, errors.New("arc cache: db is nil")
	}

	if fingerprint == "" {
		return nil, errors.New("get arc cache: fingerprint must not be empty")
	}

	// seq preserves the precomputer's row order, so a cache hit replays
	// the exact table a rebuild would produce.
	q := `
	SELECT vehicle, from_node, to_node, dist_km, time_h, cost, allowed
    FROM arc_cost_cache
    WHERE fingerprint = ?
    ORDER BY seq;
	`

	rows, err := s.DB.QueryContext(ctx, q, fingerprint)
	if err != nil {
		return nil, fmt.Errorf("get arc cache: query arc_cost_cache table: %w", err)
	}
	defer rows.Close()

	var out []domain.ArcCost
	for rows.Next() {
		var a domain.ArcCost
		var allowed int
		if err := rows.Scan(&a.Vehicle, &a.From, &a.To, &a.DistKm, &a.TimeH, &a.Cost, &allowed); err != nil {
			return nil, fmt.Errorf("get arc cache: scan rows: %w", err)
		}
		a.Allowed = allowed != 0
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get arc cache: row iteration: %w", err)
	}

	return out, nil
}

// Store one instance fingerprint's arc-cost table.
func (s *SqliteArcCache) PutMany(ctx context.Context, fingerprint string, arcs []domain.ArcCost) error {
	if s.DB == nil {
		return errors.New("arc cache: db is nil")
	}

	if fingerprint == "" {
		return errors.New("insert arc cache: fingerprint must not be empty")
	}

	if len(arcs) == 0 {
		return nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert arc cache: db begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT OR REPLACE INTO arc_cost_cache (
        fingerprint,
        seq,
        vehicle,
        from_node,
        to_node,
        dist_km,
        time_h,
        cost,
        allowed
    )
    VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("insert arc cache: db prepare: %w", err)
	}
	defer stmt.Close()

	for i, a := range arcs {
		if a.Vehicle == "" || a.From == "" || a.To == "" {
			return fmt.Errorf("insert arc cache: empty key field at row %d", i+1)
		}

		allowed := 0
		if a.Allowed {
			allowed = 1
		}
		if _, err := stmt.ExecContext(ctx, fingerprint, i, a.Vehicle, a.From, a.To, a.DistKm, a.TimeH, a.Cost, allowed); err != nil {
			return fmt.Errorf("insert arc cache arc=%q: %w", a.Key().ID(), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("insert arc cache commit: %w", err)
	}

	return nil
}
