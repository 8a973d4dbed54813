package ports

import (
	"context"
	"errors"
	"fleet-routing-pipeline/internal/domain"
	"time"
)

// ErrNoSolver signals that no solver backend could be constructed.
// Callers may skip export instead of failing the run.
var ErrNoSolver = errors.New("no solver backend available")

// ErrNoSolution signals that the solver terminated without a usable
// incumbent (infeasible model or failed solve).
var ErrNoSolution = errors.New("no solution found")

// SolveStatus is the termination status reported for a solve.
type SolveStatus string

const (
	// StatusOptimal: the solver proved optimality.
	StatusOptimal SolveStatus = "optimal"
	// StatusFeasible: the time limit was reached with an incumbent
	// feasible solution; the values are usable but unproven.
	StatusFeasible SolveStatus = "feasible"
	// StatusInfeasible: no feasible solution exists or none was found.
	StatusInfeasible SolveStatus = "infeasible"
)

// SolveRequest carries the options of one solve call.
// The Relax flags drop named constraint groups; they exist for the
// diagnose mode that probes which group makes an instance infeasible.
type SolveRequest struct {
	TimeLimit   time.Duration
	MIPGap      float64 // relative MIP gap, 0 means prove optimality
	FlowEpsilon float64 // flows at or below this are dropped as noise

	RelaxCenterCapacity bool // drop center capacity and global supply cover
	RelaxAccess         bool // drop urban access restrictions
	RelaxLimits         bool // drop range and duty-hour limits
}

// Solution is the solver-neutral result of one solve: the selected arcs,
// flows and auxiliary variable values, already thresholded.
type Solution struct {
	Status    SolveStatus
	Provider  string // backend that produced the values
	Objective float64
	Runtime   time.Duration

	SelectedArcs []domain.VehicleArc
	Flows        []domain.ArcFlow
	Supplies     map[string]float64 // center id -> dispatched supply
	Active       map[string]bool    // vehicle id -> activation
	Assignments  map[string]string  // vehicle id -> assigned center
}

// Port: a boundary for solving one routing instance against a
// precomputed arc-cost table.
type RouteSolver interface {
	Solve(ctx context.Context, inst *domain.Instance, arcs []domain.ArcCost, req SolveRequest) (Solution, error)
}
