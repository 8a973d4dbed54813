package ports

import "fleet-routing-pipeline/internal/domain"

// Port: a boundary for loading one run's full input snapshot.
type InstanceRepository interface {
	// Load and normalize all input files into a single instance.
	LoadInstance() (*domain.Instance, error)
}
