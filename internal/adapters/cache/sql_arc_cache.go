package cache

import (
	"context"
	"database/sql"
	"errors"
	"fleet-routing-pipeline/internal/domain"
	"fleet-routing-pipeline/internal/platform/obs"
	"fmt"
)

// SQLArcCache is a SQL-backed (Postgres) cache for precomputed
// arc-cost tables, for deployments that share one cache across hosts.
type SQLArcCache struct {
	DB *sql.DB
}

func NewSQLArcCache(db *sql.DB) *SQLArcCache {
	return &SQLArcCache{DB: db}
}

// Fetch the cached arc-cost table for one instance fingerprint.
func (s *SQLArcCache) GetMany(ctx context.Context, fingerprint string) (_ []domain.ArcCost, err error) {
	defer obs.Time(ctx, "arcs.cache.GetMany")(&err)

	if s.DB == nil {
		return nil, errors.New("arc cache: db is nil")
	}

	if fingerprint == "" {
		return nil, errors.New("get arc cache: fingerprint must not be empty")
	}

	q := `
	SELECT vehicle, from_node, to_node, dist_km, time_h, cost, allowed
    FROM arc_cost_cache
    WHERE fingerprint = $1
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
		if err := rows.Scan(&a.Vehicle, &a.From, &a.To, &a.DistKm, &a.TimeH, &a.Cost, &a.Allowed); err != nil {
			return nil, fmt.Errorf("get arc cache: scan rows: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get arc cache: row iteration: %w", err)
	}

	return out, nil
}

// Store one instance fingerprint's arc-cost table.
func (s *SQLArcCache) PutMany(ctx context.Context, fingerprint string, arcs []domain.ArcCost) error {
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
	INSERT INTO arc_cost_cache (fingerprint, seq, vehicle, from_node, to_node, dist_km, time_h, cost, allowed)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (fingerprint, vehicle, from_node, to_node) DO UPDATE
	SET seq = EXCLUDED.seq,
		dist_km = EXCLUDED.dist_km,
		time_h = EXCLUDED.time_h,
		cost = EXCLUDED.cost,
		allowed = EXCLUDED.allowed;
	`)
	if err != nil {
		return fmt.Errorf("insert arc cache: db prepare: %w", err)
	}
	defer stmt.Close()

	for i, a := range arcs {
		if a.Vehicle == "" || a.From == "" || a.To == "" {
			return fmt.Errorf("insert arc cache: empty key field at row %d", i+1)
		}

		if _, err := stmt.ExecContext(ctx, fingerprint, i, a.Vehicle, a.From, a.To, a.DistKm, a.TimeH, a.Cost, a.Allowed); err != nil {
			return fmt.Errorf("insert arc cache arc=%q: %w", a.Key().ID(), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("insert arc cache commit: %w", err)
	}

	return nil
}
