package services

import (
	"context"
	"errors"
	"fleet-routing-pipeline/internal/domain"
	"fleet-routing-pipeline/internal/platform/obs"
	"fleet-routing-pipeline/internal/ports"
	"fmt"
	"log"

	"github.com/google/uuid"
)

// Pipeline wires one run of the optimization flow: ingest, arc-cost
// precompute, solve, export, verification. Fields are the ports chosen
// by the composition root; ArcCache and Fallback may be nil.
type Pipeline struct {
	Instances    ports.InstanceRepository
	ArcCache     ports.ArcCostCache
	Solver       ports.RouteSolver
	Fallback     ports.RouteSolver
	Tables       ports.TableWriter
	Verification ports.TableWriter
}

// RunSummary is the per-run record written next to the output tables.
type RunSummary struct {
	RunID     string  `json:"run_id"`
	Status    string  `json:"status"`
	Provider  string  `json:"provider,omitempty"`
	Objective float64 `json:"objective"`
	SolverMs  int64   `json:"solver_runtime_ms"`

	Centers  int  `json:"centers"`
	Clients  int  `json:"clients"`
	Vehicles int  `json:"vehicles"`
	ArcRows  int  `json:"arc_rows"`
	CacheHit bool `json:"arc_cache_hit"`

	SelectedArcs int `json:"selected_arcs"`
	Flows        int `json:"flows"`
	Routes       int `json:"routes"`
}

// statusNoSolver marks a run that ingested and priced fine but had no
// solver backend to hand the model to. The run is not an error; the
// input mirrors and arc table are still written.
const statusNoSolver = "no_solver"

// Run executes the full flow once. Solver unavailability degrades to a
// summary with status no_solver; every other failure aborts the run.
func (p *Pipeline) Run(ctx context.Context, req ports.SolveRequest) (*RunSummary, error) {
	runID := uuid.NewString()
	ctx = obs.WithRunID(ctx, runID)
	summary := &RunSummary{RunID: runID}

	inst, arcs, hit, err := p.prepare(ctx)
	if err != nil {
		return nil, err
	}
	summary.Centers = len(inst.Centers)
	summary.Clients = len(inst.Clients)
	summary.Vehicles = len(inst.Vehicles)
	summary.ArcRows = len(arcs)
	summary.CacheHit = hit

	if err := p.writeInputTables(ctx, inst, arcs); err != nil {
		return nil, err
	}

	sol, err := p.solve(ctx, inst, arcs, req)
	switch {
	case errors.Is(err, ports.ErrNoSolver):
		log.Printf("run_id=%s no solver backend available, skipping export: %v", runID, err)
		summary.Status = statusNoSolver
		return summary, nil
	case err != nil:
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	summary.Status = string(sol.Status)
	summary.Provider = sol.Provider
	summary.Objective = sol.Objective
	summary.SolverMs = sol.Runtime.Milliseconds()

	selected := JoinSelectedArcs(sol, domain.NewArcTable(arcs))
	if err := p.export(ctx, inst, sol, selected, summary); err != nil {
		return nil, err
	}
	if err := p.verify(ctx, inst, selected, summary); err != nil {
		return nil, err
	}
	return summary, nil
}

// Diagnose loads the instance and re-solves it under each relaxation
// scenario, reporting per-scenario outcomes instead of exporting
// tables. The arc-cost cache participates exactly as in a normal run.
func (p *Pipeline) Diagnose(ctx context.Context, req ports.SolveRequest) ([]DiagnoseResult, error) {
	ctx = obs.WithRunID(ctx, uuid.NewString())
	inst, arcs, _, err := p.prepare(ctx)
	if err != nil {
		return nil, err
	}
	return RunDiagnose(ctx, p.Solver, inst, arcs, req)
}

// prepare loads the instance and obtains its priced arc table, from the
// cache when the fingerprint matches a previous run. Cache failures are
// logged and recomputed around, never fatal.
func (p *Pipeline) prepare(ctx context.Context) (_ *domain.Instance, _ []domain.ArcCost, hit bool, err error) {
	defer obs.Time(ctx, "prepare")(&err)

	inst, err := p.Instances.LoadInstance()
	if err != nil {
		return nil, nil, false, fmt.Errorf("pipeline: %w", err)
	}

	fingerprint := inst.Fingerprint()
	if p.ArcCache != nil {
		cached, cerr := p.ArcCache.GetMany(ctx, fingerprint)
		if cerr != nil {
			log.Printf("arc cache read failed, recomputing: %v", cerr)
		} else if len(cached) > 0 {
			return inst, cached, true, nil
		}
	}

	arcs := BuildArcCosts(inst)
	if p.ArcCache != nil {
		if cerr := p.ArcCache.PutMany(ctx, fingerprint, arcs); cerr != nil {
			log.Printf("arc cache write failed: %v", cerr)
		}
	}
	return inst, arcs, false, nil
}

// writeInputTables mirrors the ingested nodes and the priced arc table
// into the output directory before solving, so a failed or skipped
// solve still leaves the inputs inspectable.
func (p *Pipeline) writeInputTables(ctx context.Context, inst *domain.Instance, arcs []domain.ArcCost) (err error) {
	defer obs.Time(ctx, "write_inputs")(&err)

	if err := WriteNodeMirrors(p.Tables, inst); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	if err := WriteArcCacheTable(p.Tables, arcs); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	return nil
}

// solve hands the instance to the primary solver, falling back to the
// configured secondary when no backend constructs.
func (p *Pipeline) solve(ctx context.Context, inst *domain.Instance, arcs []domain.ArcCost, req ports.SolveRequest) (ports.Solution, error) {
	sol, err := p.Solver.Solve(ctx, inst, arcs, req)
	if err == nil || !errors.Is(err, ports.ErrNoSolver) || p.Fallback == nil {
		return sol, err
	}

	log.Printf("falling back to exhaustive search: %v", err)
	sol, ferr := p.Fallback.Solve(ctx, inst, arcs, req)
	if ferr != nil {
		if errors.Is(ferr, ErrInstanceTooLarge) {
			return ports.Solution{}, fmt.Errorf("pipeline: fallback refused (%v): %w", ferr, ports.ErrNoSolver)
		}
		return ports.Solution{}, ferr
	}
	return sol, nil
}

func (p *Pipeline) export(ctx context.Context, inst *domain.Instance, sol ports.Solution, selected []domain.ArcCost, summary *RunSummary) (err error) {
	defer obs.Time(ctx, "export")(&err)

	if err := WriteSolutionTables(p.Tables, inst, sol, selected); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	summary.SelectedArcs = len(selected)
	summary.Flows = len(sol.Flows)

	for _, finding := range AuditSupply(inst, sol) {
		log.Printf("supply audit: %s", finding)
	}
	return nil
}

func (p *Pipeline) verify(ctx context.Context, inst *domain.Instance, selected []domain.ArcCost, summary *RunSummary) (err error) {
	defer obs.Time(ctx, "verify")(&err)

	traces := TraceRoutes(inst, selected)
	for _, tr := range traces {
		if tr.Outcome != domain.WalkComplete {
			log.Printf("route for vehicle %s did not close cleanly: outcome=%s sequence=%v",
				tr.VehicleID, tr.Outcome, tr.Sequence)
		}
	}

	rows := BuildVerificationRows(traces)
	if err := WriteVerificationTable(p.Verification, "route_verification", rows, false); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	timed := BuildTimedVerificationRows(inst, traces, selected)
	if err := WriteVerificationTable(p.Verification, "route_verification_timed", timed, true); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	summary.Routes = len(rows)
	return nil
}
