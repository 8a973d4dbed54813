package services

import (
	"context"
	"errors"
	"fleet-routing-pipeline/internal/domain"
	"fleet-routing-pipeline/internal/ports"
	"fmt"
	"time"
)

// ErrInstanceTooLarge signals that the brute-force search space exceeds
// the configured bound and the exhaustive solver refuses to run.
var ErrInstanceTooLarge = errors.New("instance too large for exhaustive search")

// feasEps is the numeric slack applied to capacity, range and duty
// checks, mirroring solver tolerances.
const feasEps = 1e-9

// defaultMaxClients bounds the exhaustive search when no explicit limit
// is configured. Groupings grow as vehicles^clients.
const defaultMaxClients = 8

// ExhaustiveSolver finds the cost-optimal plan by enumerating every
// client-to-vehicle grouping, every depot choice and every visit order.
// It serves as the solver-free fallback for small instances and as the
// semantic reference the optimization model is checked against.
type ExhaustiveSolver struct {
	MaxClients int
	MaxStates  int
}

func NewExhaustiveSolver(maxClients int) *ExhaustiveSolver {
	if maxClients <= 0 {
		maxClients = defaultMaxClients
	}
	return &ExhaustiveSolver{MaxClients: maxClients, MaxStates: 1 << 20}
}

// tourPlan is the best closed tour found for one (vehicle, center)
// combination within a grouping.
type tourPlan struct {
	ok     bool
	cost   float64
	distKm float64
	timeH  float64
	order  []string
}

// candidate is one fully priced grouping: which vehicle serves which
// clients, from which center, in which order.
type candidate struct {
	total  float64
	routes []plannedRoute
}

type plannedRoute struct {
	vehicle domain.Vehicle
	center  string
	order   []string
	demand  float64
}

func (s *ExhaustiveSolver) Solve(ctx context.Context, inst *domain.Instance, arcs []domain.ArcCost, req ports.SolveRequest) (ports.Solution, error) {
	start := time.Now()
	table := domain.NewArcTable(arcs)

	n := len(inst.Clients)
	k := len(inst.Vehicles)
	if n > s.MaxClients {
		return ports.Solution{}, fmt.Errorf("exhaustive: %d clients exceed limit %d: %w", n, s.MaxClients, ErrInstanceTooLarge)
	}
	if boundedPow(k, n, s.MaxStates) > s.MaxStates {
		return ports.Solution{}, fmt.Errorf("exhaustive: %d vehicles over %d clients exceed %d groupings: %w", k, n, s.MaxStates, ErrInstanceTooLarge)
	}
	if boundedPow(len(inst.Centers), k, s.MaxStates) > s.MaxStates {
		return ports.Solution{}, fmt.Errorf("exhaustive: %d centers over %d vehicles exceed %d depot choices: %w", len(inst.Centers), k, s.MaxStates, ErrInstanceTooLarge)
	}
	if n > 0 && k == 0 {
		return ports.Solution{}, fmt.Errorf("exhaustive: no vehicles for %d clients: %w", n, ports.ErrNoSolution)
	}

	var best *candidate
	assign := make([]int, n)
	for {
		if err := ctx.Err(); err != nil {
			return ports.Solution{}, fmt.Errorf("exhaustive: %w", err)
		}
		if c := s.evaluateGrouping(inst, table, req, assign); c != nil {
			if best == nil || c.total < best.total {
				best = c
			}
		}
		if !advance(assign, k) {
			break
		}
	}

	if best == nil {
		return ports.Solution{}, fmt.Errorf("exhaustive: no feasible assignment: %w", ports.ErrNoSolution)
	}
	return buildSolution(inst, table, *best, req.FlowEpsilon, time.Since(start)), nil
}

// advance increments a base-k counter; false means the counter wrapped.
func advance(counter []int, base int) bool {
	for i := range counter {
		counter[i]++
		if counter[i] < base {
			return true
		}
		counter[i] = 0
	}
	return false
}

func boundedPow(base, exp, limit int) int {
	out := 1
	for i := 0; i < exp; i++ {
		out *= base
		if out > limit {
			return limit + 1
		}
	}
	return out
}

// evaluateGrouping prices one client-to-vehicle grouping: per-vehicle
// capacity first, then the best (center, order) per used vehicle, then
// the joint depot choice under center capacities. Returns nil when the
// grouping admits no feasible plan.
func (s *ExhaustiveSolver) evaluateGrouping(inst *domain.Instance, table *domain.ArcTable, req ports.SolveRequest, assign []int) *candidate {
	k := len(inst.Vehicles)
	groups := make([][]string, k)
	demands := make([]float64, k)
	for ci, vi := range assign {
		client := inst.Clients[ci]
		groups[vi] = append(groups[vi], client.ID)
		demands[vi] += client.Demand
	}

	var used []int
	for vi, v := range inst.Vehicles {
		if len(groups[vi]) == 0 {
			continue
		}
		if demands[vi] > v.Capacity+feasEps {
			return nil
		}
		used = append(used, vi)
	}

	// Best closed tour per (used vehicle, center); a grouping dies when
	// some used vehicle has no feasible depot at all.
	plans := make([][]tourPlan, len(used))
	for ui, vi := range used {
		v := inst.Vehicles[vi]
		plans[ui] = make([]tourPlan, len(inst.Centers))
		anyOK := false
		for ci, c := range inst.Centers {
			plans[ui][ci] = bestTour(inst, table, req, v, c.ID, groups[vi])
			anyOK = anyOK || plans[ui][ci].ok
		}
		if !anyOK {
			return nil
		}
	}

	// Joint depot choice: enumerate center vectors over the used
	// vehicles and keep the cheapest one satisfying center capacities.
	var best *candidate
	choice := make([]int, len(used))
	for {
		if c := priceChoice(inst, req, used, groups, demands, plans, choice); c != nil {
			if best == nil || c.total < best.total {
				best = c
			}
		}
		if !advance(choice, len(inst.Centers)) {
			break
		}
	}
	return best
}

func priceChoice(inst *domain.Instance, req ports.SolveRequest, used []int, groups [][]string, demands []float64, plans [][]tourPlan, choice []int) *candidate {
	dispatched := make(map[string]float64, len(inst.Centers))
	total := 0.0
	routes := make([]plannedRoute, 0, len(used))
	for ui, vi := range used {
		plan := plans[ui][choice[ui]]
		if !plan.ok {
			return nil
		}
		v := inst.Vehicles[vi]
		center := inst.Centers[choice[ui]].ID
		dispatched[center] += demands[vi]
		total += plan.cost + v.FixedCost
		routes = append(routes, plannedRoute{
			vehicle: v,
			center:  center,
			order:   plan.order,
			demand:  demands[vi],
		})
	}
	if !req.RelaxCenterCapacity {
		for _, c := range inst.Centers {
			if dispatched[c.ID] > c.Capacity+feasEps {
				return nil
			}
		}
	}
	return &candidate{total: total, routes: routes}
}

// bestTour finds the cheapest visit order for one vehicle serving a
// client set out of one center, honoring access, range and duty limits.
func bestTour(inst *domain.Instance, table *domain.ArcTable, req ports.SolveRequest, v domain.Vehicle, center string, clients []string) tourPlan {
	if !req.RelaxAccess {
		if !inst.Access.Allowed(center, v.ID) {
			return tourPlan{}
		}
		for _, id := range clients {
			if !inst.Access.Allowed(id, v.ID) {
				return tourPlan{}
			}
		}
	}

	best := tourPlan{}
	order := make([]string, len(clients))
	copy(order, clients)
	permute(order, func(perm []string) {
		var cost, dist, timeH float64
		prev := center
		for _, id := range perm {
			row := table.Padded(v.ID, prev, id)
			cost += row.Cost
			dist += row.DistKm
			timeH += row.TimeH
			prev = id
		}
		row := table.Padded(v.ID, prev, center)
		cost += row.Cost
		dist += row.DistKm
		timeH += row.TimeH

		if !req.RelaxLimits {
			if dist > v.RangeKm+feasEps || timeH > v.MaxDutyHours+feasEps {
				return
			}
		}
		if !best.ok || cost < best.cost {
			best = tourPlan{
				ok:     true,
				cost:   cost,
				distKm: dist,
				timeH:  timeH,
				order:  append([]string(nil), perm...),
			}
		}
	})
	return best
}

// permute visits every ordering of items in place; visit must copy the
// slice if it retains it.
func permute(items []string, visit func([]string)) {
	var rec func(k int)
	rec = func(k int) {
		if k == len(items) {
			visit(items)
			return
		}
		for i := k; i < len(items); i++ {
			items[k], items[i] = items[i], items[k]
			rec(k + 1)
			items[k], items[i] = items[i], items[k]
		}
	}
	rec(0)
}

// buildSolution renders the winning grouping in the solver-neutral
// shape: selected arcs per tour, decreasing flows behind each delivery
// and the dispatched supply per center.
func buildSolution(inst *domain.Instance, table *domain.ArcTable, best candidate, eps float64, elapsed time.Duration) ports.Solution {
	out := ports.Solution{
		Status:      ports.StatusOptimal,
		Provider:    "exhaustive",
		Objective:   best.total,
		Runtime:     elapsed,
		Supplies:    make(map[string]float64, len(inst.Centers)),
		Active:      make(map[string]bool, len(inst.Vehicles)),
		Assignments: make(map[string]string, len(best.routes)),
	}
	for _, c := range inst.Centers {
		out.Supplies[c.ID] = 0
	}
	for _, v := range inst.Vehicles {
		out.Active[v.ID] = false
	}

	for _, r := range best.routes {
		out.Supplies[r.center] += r.demand
		out.Active[r.vehicle.ID] = true
		out.Assignments[r.vehicle.ID] = r.center

		seq := make([]string, 0, len(r.order)+2)
		seq = append(seq, r.center)
		seq = append(seq, r.order...)
		seq = append(seq, r.center)

		load := r.demand
		for i := 1; i < len(seq); i++ {
			from, to := seq[i-1], seq[i]
			out.SelectedArcs = append(out.SelectedArcs, domain.VehicleArc{
				Vehicle: r.vehicle.ID, From: from, To: to,
			})
			if load > eps {
				out.Flows = append(out.Flows, domain.ArcFlow{
					Vehicle: r.vehicle.ID, From: from, To: to, Flow: load,
				})
			}
			if node, ok := inst.Node(to); ok && !node.IsCenter() {
				load -= node.Demand
			}
		}
	}
	return out
}
