package services

import (
	"fleet-routing-pipeline/internal/domain"
	"fleet-routing-pipeline/internal/ports"
	"fmt"
	"math"
	"strconv"
)

// auditEps is the tolerance for the post-export supply audit.
const auditEps = 1e-6

// CenterKPI summarizes one depot's dispatched supply.
type CenterKPI struct {
	Center      string
	Supply      float64
	Capacity    float64
	Utilization float64 // zero when capacity is not positive
}

// VehicleKPI summarizes one vehicle's use of its selected arcs.
type VehicleKPI struct {
	Vehicle       string
	Active        bool
	DistanceKm    float64
	TimeH         float64
	Cost          float64
	LoadDelivered float64 // positive net flow into client nodes
	Capacity      float64
}

// JoinSelectedArcs resolves each selected arc against the cost table so
// exported rows carry distance, time and cost next to the key. Arcs the
// table does not know price at the prohibitive defaults, which makes
// them stand out in the output instead of vanishing.
func JoinSelectedArcs(sol ports.Solution, table *domain.ArcTable) []domain.ArcCost {
	out := make([]domain.ArcCost, 0, len(sol.SelectedArcs))
	for _, k := range sol.SelectedArcs {
		out = append(out, table.Padded(k.Vehicle, k.From, k.To))
	}
	return out
}

// CenterKPIs derives per-depot supply and utilization, one row per
// center in instance order.
func CenterKPIs(inst *domain.Instance, sol ports.Solution) []CenterKPI {
	out := make([]CenterKPI, 0, len(inst.Centers))
	for _, c := range inst.Centers {
		supply := sol.Supplies[c.ID]
		var util float64
		if c.Capacity > 0 {
			util = supply / c.Capacity
		}
		out = append(out, CenterKPI{
			Center:      c.ID,
			Supply:      supply,
			Capacity:    c.Capacity,
			Utilization: util,
		})
	}
	return out
}

// VehicleKPIs derives per-vehicle totals from the joined selected arcs
// and the flows. Delivered load is the positive net inflow per client,
// summed over the vehicle's clients.
func VehicleKPIs(inst *domain.Instance, sol ports.Solution, selected []domain.ArcCost) []VehicleKPI {
	index := make(map[string]int, len(inst.Vehicles))
	out := make([]VehicleKPI, 0, len(inst.Vehicles))
	for i, v := range inst.Vehicles {
		index[v.ID] = i
		out = append(out, VehicleKPI{
			Vehicle:  v.ID,
			Active:   sol.Active[v.ID],
			Capacity: v.Capacity,
		})
	}

	for _, a := range selected {
		i, ok := index[a.Vehicle]
		if !ok {
			continue
		}
		out[i].DistanceKm += a.DistKm
		out[i].TimeH += a.TimeH
		out[i].Cost += a.Cost
	}

	net := make(map[string]map[string]float64) // vehicle -> client -> net inflow
	for _, f := range sol.Flows {
		if _, ok := index[f.Vehicle]; !ok {
			continue
		}
		if net[f.Vehicle] == nil {
			net[f.Vehicle] = make(map[string]float64)
		}
		if node, ok := inst.Node(f.To); ok && !node.IsCenter() {
			net[f.Vehicle][f.To] += f.Flow
		}
		if node, ok := inst.Node(f.From); ok && !node.IsCenter() {
			net[f.Vehicle][f.From] -= f.Flow
		}
	}
	for vehicle, clients := range net {
		for _, inflow := range clients {
			if inflow > 0 {
				out[index[vehicle]].LoadDelivered += inflow
			}
		}
	}
	return out
}

// AuditSupply checks the solved supplies against total demand and the
// center capacities. Findings are reported, not fatal; an empty slice
// means the audit passed.
func AuditSupply(inst *domain.Instance, sol ports.Solution) []string {
	var findings []string

	var supplyTotal float64
	for _, c := range inst.Centers {
		supplyTotal += sol.Supplies[c.ID]
	}
	demandTotal := inst.TotalDemand()
	if math.Abs(supplyTotal-demandTotal) > auditEps {
		findings = append(findings, fmt.Sprintf(
			"total supply %.6f does not match total demand %.6f", supplyTotal, demandTotal))
	}
	for _, c := range inst.Centers {
		if supply := sol.Supplies[c.ID]; supply > c.Capacity+auditEps {
			findings = append(findings, fmt.Sprintf(
				"center %s dispatches %.6f above capacity %.6f", c.ID, supply, c.Capacity))
		}
	}
	return findings
}

// WriteSolutionTables writes the four solution tables: selected arcs,
// flows, center KPIs and vehicle KPIs. Empty solutions still produce
// header-only files so downstream readers find the expected columns.
func WriteSolutionTables(w ports.TableWriter, inst *domain.Instance, sol ports.Solution, selected []domain.ArcCost) error {
	arcRows := make([][]string, 0, len(selected))
	for _, a := range selected {
		arcRows = append(arcRows, []string{
			a.Vehicle, a.From, a.To,
			formatFloat(a.DistKm), formatFloat(a.TimeH), formatFloat(a.Cost),
		})
	}
	if err := w.WriteTable("selected_arcs",
		[]string{"vehicle", "from", "to", "dist_km", "time_h", "cost"}, arcRows); err != nil {
		return err
	}

	flowRows := make([][]string, 0, len(sol.Flows))
	for _, f := range sol.Flows {
		flowRows = append(flowRows, []string{
			f.Vehicle, f.From, f.To, formatFloat(f.Flow),
		})
	}
	if err := w.WriteTable("flows",
		[]string{"vehicle", "from", "to", "flow"}, flowRows); err != nil {
		return err
	}

	centerRows := make([][]string, 0, len(inst.Centers))
	for _, k := range CenterKPIs(inst, sol) {
		centerRows = append(centerRows, []string{
			k.Center, formatFloat(k.Supply), formatFloat(k.Capacity), formatFloat(k.Utilization),
		})
	}
	if err := w.WriteTable("center_kpis",
		[]string{"center", "supply", "capacity", "utilization"}, centerRows); err != nil {
		return err
	}

	vehicleRows := make([][]string, 0, len(inst.Vehicles))
	for _, k := range VehicleKPIs(inst, sol, selected) {
		active := "0"
		if k.Active {
			active = "1"
		}
		vehicleRows = append(vehicleRows, []string{
			k.Vehicle, active,
			formatFloat(k.DistanceKm), formatFloat(k.TimeH), formatFloat(k.Cost),
			formatFloat(k.LoadDelivered), formatFloat(k.Capacity),
		})
	}
	return w.WriteTable("vehicle_kpis",
		[]string{"vehicle", "active", "distance_km", "time_h", "cost", "load_delivered", "capacity"}, vehicleRows)
}

// WriteArcCacheTable mirrors the priced arc table next to the solution
// tables. The column names match the ingestion schema, so the file can
// be fed back in as a prebuilt arc table.
func WriteArcCacheTable(w ports.TableWriter, arcs []domain.ArcCost) error {
	rows := make([][]string, 0, len(arcs))
	for _, a := range arcs {
		allowed := "0"
		if a.Allowed {
			allowed = "1"
		}
		rows = append(rows, []string{
			a.Vehicle, a.From, a.To,
			formatFloat(a.DistKm), formatFloat(a.TimeH), formatFloat(a.Cost), allowed,
		})
	}
	return w.WriteTable("arcs_cache",
		[]string{"vehicle", "from", "to", "dist_km", "time_h", "cost", "allowed_pair"}, rows)
}

// WriteNodeMirrors copies the ingested node tables into the output
// directory so reporting reads a single place.
func WriteNodeMirrors(w ports.TableWriter, inst *domain.Instance) error {
	centerRows := make([][]string, 0, len(inst.Centers))
	for _, n := range inst.Centers {
		centerRows = append(centerRows, []string{
			n.ID, n.Name, formatFloat(n.Lat), formatFloat(n.Lon), formatFloat(n.Capacity),
		})
	}
	if err := w.WriteTable("nodes_centers",
		[]string{"id", "name", "lat", "lon", "capacity"}, centerRows); err != nil {
		return err
	}

	clientRows := make([][]string, 0, len(inst.Clients))
	for _, n := range inst.Clients {
		clientRows = append(clientRows, []string{
			n.ID, n.Name, formatFloat(n.Lat), formatFloat(n.Lon), formatFloat(n.Demand),
		})
	}
	return w.WriteTable("nodes_clients",
		[]string{"id", "name", "lat", "lon", "demand"}, clientRows)
}

// formatFloat renders numeric cells with the shortest decimal form that
// round-trips, avoiding scientific notation in small values.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
