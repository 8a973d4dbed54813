package ports

import (
	"context"
	"fleet-routing-pipeline/internal/domain"
)

// Port: a boundary for persisting precomputed arc costs between runs.
// Rows are keyed by the instance fingerprint; a fingerprint hit returns
// the exact table the precomputer would rebuild.
type ArcCostCache interface {
	// Fetch all cached arc costs for one instance fingerprint.
	// A miss returns an empty slice, not an error.
	GetMany(ctx context.Context, fingerprint string) ([]domain.ArcCost, error)
	// Store the arc-cost table for one instance fingerprint.
	PutMany(ctx context.Context, fingerprint string, arcs []domain.ArcCost) error
}
