package services

import (
	"context"
	"errors"
	"fleet-routing-pipeline/internal/domain"
	"fleet-routing-pipeline/internal/ports"
)

// DiagnoseScenario is one relaxation of the full model, used to probe
// which constraint family makes an instance infeasible.
type DiagnoseScenario struct {
	Label               string
	RelaxCenterCapacity bool
	RelaxAccess         bool
	RelaxLimits         bool
}

// DiagnoseScenarios is the fixed relaxation ladder: the full model
// first, then each constraint family dropped alone, then all of them.
// The first scenario that turns feasible names the binding family.
func DiagnoseScenarios() []DiagnoseScenario {
	return []DiagnoseScenario{
		{Label: "full model"},
		{Label: "without center capacity", RelaxCenterCapacity: true},
		{Label: "without access restrictions", RelaxAccess: true},
		{Label: "without range and duty limits", RelaxLimits: true},
		{Label: "without capacity, access or limits", RelaxCenterCapacity: true, RelaxAccess: true, RelaxLimits: true},
	}
}

// DiagnoseResult records one scenario's outcome. Err carries solve
// failures other than plain infeasibility.
type DiagnoseResult struct {
	Scenario  string
	Status    ports.SolveStatus
	Objective float64
	Err       error
}

// RunDiagnose re-solves the instance once per relaxation scenario.
// Infeasibility is a result, not an error; an unavailable solver
// backend aborts the whole ladder.
func RunDiagnose(ctx context.Context, solver ports.RouteSolver, inst *domain.Instance, arcs []domain.ArcCost, req ports.SolveRequest) ([]DiagnoseResult, error) {
	scenarios := DiagnoseScenarios()
	out := make([]DiagnoseResult, 0, len(scenarios))
	for _, sc := range scenarios {
		r := req
		r.RelaxCenterCapacity = r.RelaxCenterCapacity || sc.RelaxCenterCapacity
		r.RelaxAccess = r.RelaxAccess || sc.RelaxAccess
		r.RelaxLimits = r.RelaxLimits || sc.RelaxLimits

		sol, err := solver.Solve(ctx, inst, arcs, r)
		if errors.Is(err, ports.ErrNoSolver) {
			return nil, err
		}

		res := DiagnoseResult{Scenario: sc.Label}
		switch {
		case err == nil:
			res.Status = sol.Status
			res.Objective = sol.Objective
		case errors.Is(err, ports.ErrNoSolution):
			res.Status = ports.StatusInfeasible
		default:
			res.Status = ports.StatusInfeasible
			res.Err = err
		}
		out = append(out, res)
	}
	return out, nil
}
