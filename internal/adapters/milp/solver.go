package milp

import (
	"context"
	"fleet-routing-pipeline/internal/domain"
	"fleet-routing-pipeline/internal/platform/obs"
	"fleet-routing-pipeline/internal/ports"
	"fmt"
	"log"

	"github.com/nextmv-io/sdk/mip"
)

// Solver runs routing instances through the nextmv mip layer, trying
// each configured backend provider in order until one constructs.
// Construction fails for providers missing from the local toolchain,
// so the list doubles as a preference order.
type Solver struct {
	Providers []string
}

func NewSolver(providers []string) *Solver {
	return &Solver{Providers: providers}
}

func (s *Solver) Solve(ctx context.Context, inst *domain.Instance, arcs []domain.ArcCost, req ports.SolveRequest) (_ ports.Solution, err error) {
	defer obs.Time(ctx, "milp.solve")(&err)

	f := newFormulation(inst, domain.NewArcTable(arcs), req)

	backend, provider, err := s.newBackend(f.m)
	if err != nil {
		return ports.Solution{}, err
	}

	opts := mip.NewSolveOptions()
	if req.TimeLimit > 0 {
		if err := opts.SetMaximumDuration(req.TimeLimit); err != nil {
			return ports.Solution{}, fmt.Errorf("milp: set time limit: %w", err)
		}
	}
	if err := opts.SetMIPGapRelative(req.MIPGap); err != nil {
		return ports.Solution{}, fmt.Errorf("milp: set mip gap: %w", err)
	}
	opts.SetVerbosity(mip.Off)

	sol, err := backend.Solve(opts)
	if err != nil {
		return ports.Solution{}, fmt.Errorf("milp: solve with %s: %w", provider, err)
	}
	if sol == nil || !sol.HasValues() {
		return ports.Solution{}, fmt.Errorf("milp: %s terminated without an incumbent: %w", provider, ports.ErrNoSolution)
	}
	return f.extract(sol, provider, req.FlowEpsilon), nil
}

// newBackend walks the provider list and returns the first solver that
// constructs, together with its name.
func (s *Solver) newBackend(m mip.Model) (mip.Solver, string, error) {
	for _, name := range s.Providers {
		backend, err := mip.NewSolver(mip.SolverProvider(name), m)
		if err != nil {
			log.Printf("solver backend %q unavailable: %v", name, err)
			continue
		}
		return backend, name, nil
	}
	return nil, "", fmt.Errorf("milp: tried %d providers: %w", len(s.Providers), ports.ErrNoSolver)
}
