package services

import (
	"fleet-routing-pipeline/internal/domain"
	"sort"
)

// walkSlack is how many steps beyond the successor count a walk may take
// before it is cut off. Solver output is untrusted here; a malformed
// successor map must never hang the walk.
const walkSlack = 5

// TraceRoutes rebuilds one route per vehicle from the selected-arc rows,
// independently of the solver that produced them. Vehicles come out in
// lexical order.
func TraceRoutes(inst *domain.Instance, selected []domain.ArcCost) []domain.RouteTrace {
	byVehicle := make(map[string][]domain.ArcCost)
	for _, a := range selected {
		byVehicle[a.Vehicle] = append(byVehicle[a.Vehicle], a)
	}
	order := make([]string, 0, len(byVehicle))
	for v := range byVehicle {
		order = append(order, v)
	}
	sort.Strings(order)

	traces := make([]domain.RouteTrace, 0, len(order))
	for _, v := range order {
		traces = append(traces, traceVehicle(inst, v, byVehicle[v]))
	}
	return traces
}

// traceVehicle walks one vehicle's successor map from its depot until
// the tour closes, a node repeats, or the step bound trips. Totals are
// summed over all of the vehicle's rows, not over the walked path, so
// they stay honest even when the walk cannot cover every row.
func traceVehicle(inst *domain.Instance, vehicleID string, arcs []domain.ArcCost) domain.RouteTrace {
	succ := make(map[string]string, len(arcs))
	hasPred := make(map[string]bool, len(arcs))
	var origins []string
	for _, a := range arcs {
		if _, ok := succ[a.From]; !ok {
			origins = append(origins, a.From)
		}
		succ[a.From] = a.To
		hasPred[a.To] = true
	}

	trace := domain.RouteTrace{VehicleID: vehicleID, Outcome: domain.WalkTruncated}
	for _, a := range arcs {
		trace.TotalDistKm += a.DistKm
		trace.TotalTimeH += a.TimeH
		trace.TotalCost += a.Cost
	}

	start := pickDepot(inst, origins, hasPred)
	if start == "" {
		return trace
	}
	trace.DepotID = start
	trace.Sequence = []string{start}

	visited := map[string]bool{start: true}
	current := start
	maxSteps := len(succ) + walkSlack
	for step := 0; step < maxSteps; step++ {
		next, ok := succ[current]
		if !ok {
			break
		}
		trace.Sequence = append(trace.Sequence, next)
		if next == start {
			trace.Outcome = domain.WalkComplete
			break
		}
		if visited[next] {
			trace.Outcome = domain.WalkCycle
			break
		}
		visited[next] = true
		current = next
	}

	for _, id := range trace.Sequence {
		node, ok := inst.Node(id)
		if !ok || node.IsCenter() {
			continue
		}
		trace.Clients = append(trace.Clients, id)
		trace.Demands = append(trace.Demands, node.Demand)
	}
	return trace
}

// pickDepot chooses where the walk starts: a center with an outgoing
// arc and no incoming one (the true start when a tour brushes several
// centers), then the first center with an outgoing arc, then the
// instance's first center.
func pickDepot(inst *domain.Instance, origins []string, hasPred map[string]bool) string {
	var centers []string
	for _, id := range origins {
		if inst.IsCenter(id) {
			centers = append(centers, id)
		}
	}
	var free []string
	for _, id := range centers {
		if !hasPred[id] {
			free = append(free, id)
		}
	}
	sort.Strings(free)
	if len(free) > 0 {
		return free[0]
	}
	if len(centers) > 0 {
		return centers[0]
	}
	if len(inst.Centers) > 0 {
		return inst.Centers[0].ID
	}
	return ""
}
