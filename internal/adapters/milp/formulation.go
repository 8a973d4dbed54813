package milp

import (
	"fleet-routing-pipeline/internal/domain"
	"fleet-routing-pipeline/internal/ports"

	"github.com/nextmv-io/sdk/mip"
	"github.com/nextmv-io/sdk/model"
)

// pairing is one (center, vehicle) assignment slot, usable as a
// multimap index.
type pairing struct {
	Center  string
	Vehicle string
}

func (p pairing) ID() string { return p.Center + "|" + p.Vehicle }

// unit wraps a bare id so it can index a variable multimap.
type unit string

func (u unit) ID() string { return string(u) }

// formulation is the assembled mixed-integer model for one instance,
// kept together with the variable maps needed to read a solution back
// out. Variables exist for every vehicle and every ordered node pair;
// arcs missing from the cost table price at prohibitive defaults, so
// the optimizer never picks them while the model stays total.
type formulation struct {
	m     mip.Model
	inst  *domain.Instance
	table *domain.ArcTable

	arcs     []domain.VehicleArc
	pairs    []pairing
	centers  []unit
	vehicles []unit

	arcsByVehicle map[string][]domain.VehicleArc
	arcsInto      map[string][]domain.VehicleArc // key vehicle|node
	arcsOutOf     map[string][]domain.VehicleArc // key vehicle|node

	x model.MultiMap[mip.Bool, domain.VehicleArc]
	y model.MultiMap[mip.Float, domain.VehicleArc]
	z model.MultiMap[mip.Bool, pairing]
	s model.MultiMap[mip.Float, unit]
	u model.MultiMap[mip.Bool, unit]
}

func newFormulation(inst *domain.Instance, table *domain.ArcTable, req ports.SolveRequest) *formulation {
	f := &formulation{
		m:             mip.NewModel(),
		inst:          inst,
		table:         table,
		arcsByVehicle: make(map[string][]domain.VehicleArc, len(inst.Vehicles)),
		arcsInto:      make(map[string][]domain.VehicleArc),
		arcsOutOf:     make(map[string][]domain.VehicleArc),
	}

	nodes := inst.Nodes()
	for _, v := range inst.Vehicles {
		f.vehicles = append(f.vehicles, unit(v.ID))
		for _, from := range nodes {
			for _, to := range nodes {
				if from.ID == to.ID {
					continue
				}
				a := domain.VehicleArc{Vehicle: v.ID, From: from.ID, To: to.ID}
				f.arcs = append(f.arcs, a)
				f.arcsByVehicle[v.ID] = append(f.arcsByVehicle[v.ID], a)
				f.arcsInto[v.ID+"|"+to.ID] = append(f.arcsInto[v.ID+"|"+to.ID], a)
				f.arcsOutOf[v.ID+"|"+from.ID] = append(f.arcsOutOf[v.ID+"|"+from.ID], a)
			}
		}
	}
	for _, c := range inst.Centers {
		f.centers = append(f.centers, unit(c.ID))
		for _, v := range inst.Vehicles {
			f.pairs = append(f.pairs, pairing{Center: c.ID, Vehicle: v.ID})
		}
	}

	f.x = model.NewMultiMap(
		func(...domain.VehicleArc) mip.Bool {
			return f.m.NewBool()
		}, f.arcs)
	f.y = model.NewMultiMap(
		func(a ...domain.VehicleArc) mip.Float {
			v, _ := inst.Vehicle(a[0].Vehicle)
			return f.m.NewFloat(0, v.Capacity)
		}, f.arcs)
	f.z = model.NewMultiMap(
		func(...pairing) mip.Bool {
			return f.m.NewBool()
		}, f.pairs)

	// Supply variables stay loosely bounded; the capacity cap is a
	// separate constraint so diagnose runs can drop it.
	supplyBound := inst.TotalDemand()
	for _, v := range inst.Vehicles {
		supplyBound += v.Capacity
	}
	f.s = model.NewMultiMap(
		func(...unit) mip.Float {
			return f.m.NewFloat(0, supplyBound)
		}, f.centers)
	f.u = model.NewMultiMap(
		func(...unit) mip.Bool {
			return f.m.NewBool()
		}, f.vehicles)

	f.buildObjective()
	f.buildRouting()
	f.buildFlow()
	if !req.RelaxCenterCapacity {
		f.buildCenterCapacity()
	}
	if !req.RelaxAccess {
		f.buildAccess()
	}
	if !req.RelaxLimits {
		f.buildLimits()
	}
	return f
}

// cost returns the priced row for an arc, prohibitive when absent.
func (f *formulation) cost(a domain.VehicleArc) domain.ArcCost {
	return f.table.Padded(a.Vehicle, a.From, a.To)
}

// buildObjective minimizes traversal cost plus per-vehicle fixed cost.
func (f *formulation) buildObjective() {
	obj := f.m.Objective()
	obj.SetMinimize()
	for _, a := range f.arcs {
		obj.NewTerm(f.cost(a).Cost, f.x.Get(a))
	}
	for _, v := range f.inst.Vehicles {
		obj.NewTerm(v.FixedCost, f.u.Get(unit(v.ID)))
	}
}

// buildRouting adds degree, continuity and depot-assignment structure:
// each client is entered and left exactly once across the fleet, every
// vehicle's tour is continuous, and an active vehicle starts and ends
// at exactly one assigned center.
func (f *formulation) buildRouting() {
	for _, client := range f.inst.Clients {
		visitIn := f.m.NewConstraint(mip.Equal, 1)
		visitOut := f.m.NewConstraint(mip.Equal, 1)
		for _, v := range f.inst.Vehicles {
			for _, a := range f.arcsInto[v.ID+"|"+client.ID] {
				visitIn.NewTerm(1, f.x.Get(a))
			}
			for _, a := range f.arcsOutOf[v.ID+"|"+client.ID] {
				visitOut.NewTerm(1, f.x.Get(a))
			}
		}
	}

	for _, v := range f.inst.Vehicles {
		for _, client := range f.inst.Clients {
			continuity := f.m.NewConstraint(mip.Equal, 0)
			for _, a := range f.arcsInto[v.ID+"|"+client.ID] {
				continuity.NewTerm(1, f.x.Get(a))
			}
			for _, a := range f.arcsOutOf[v.ID+"|"+client.ID] {
				continuity.NewTerm(-1, f.x.Get(a))
			}
		}

		for _, c := range f.inst.Centers {
			p := pairing{Center: c.ID, Vehicle: v.ID}
			start := f.m.NewConstraint(mip.Equal, 0)
			for _, a := range f.arcsOutOf[v.ID+"|"+c.ID] {
				start.NewTerm(1, f.x.Get(a))
			}
			start.NewTerm(-1, f.z.Get(p))

			end := f.m.NewConstraint(mip.Equal, 0)
			for _, a := range f.arcsInto[v.ID+"|"+c.ID] {
				end.NewTerm(1, f.x.Get(a))
			}
			end.NewTerm(-1, f.z.Get(p))
		}

		oneCenter := f.m.NewConstraint(mip.Equal, 0)
		for _, c := range f.inst.Centers {
			oneCenter.NewTerm(1, f.z.Get(pairing{Center: c.ID, Vehicle: v.ID}))
		}
		oneCenter.NewTerm(-1, f.u.Get(unit(v.ID)))
	}
}

// buildFlow links loads to selected arcs and conserves them: flow may
// only ride selected arcs, each client absorbs exactly its demand, each
// center's net outflow equals its dispatched supply, and total supply
// covers total demand.
func (f *formulation) buildFlow() {
	for _, a := range f.arcs {
		v, _ := f.inst.Vehicle(a.Vehicle)
		link := f.m.NewConstraint(mip.LessThanOrEqual, 0)
		link.NewTerm(1, f.y.Get(a))
		link.NewTerm(-v.Capacity, f.x.Get(a))
	}

	for _, client := range f.inst.Clients {
		balance := f.m.NewConstraint(mip.Equal, client.Demand)
		for _, v := range f.inst.Vehicles {
			for _, a := range f.arcsInto[v.ID+"|"+client.ID] {
				balance.NewTerm(1, f.y.Get(a))
			}
			for _, a := range f.arcsOutOf[v.ID+"|"+client.ID] {
				balance.NewTerm(-1, f.y.Get(a))
			}
		}
	}

	for _, c := range f.inst.Centers {
		outflow := f.m.NewConstraint(mip.Equal, 0)
		for _, v := range f.inst.Vehicles {
			for _, a := range f.arcsOutOf[v.ID+"|"+c.ID] {
				outflow.NewTerm(1, f.y.Get(a))
			}
			for _, a := range f.arcsInto[v.ID+"|"+c.ID] {
				outflow.NewTerm(-1, f.y.Get(a))
			}
		}
		outflow.NewTerm(-1, f.s.Get(unit(c.ID)))
	}

	cover := f.m.NewConstraint(mip.Equal, f.inst.TotalDemand())
	for _, c := range f.inst.Centers {
		cover.NewTerm(1, f.s.Get(unit(c.ID)))
	}
}

// buildCenterCapacity caps each center's dispatched supply.
func (f *formulation) buildCenterCapacity() {
	for _, c := range f.inst.Centers {
		limit := f.m.NewConstraint(mip.LessThanOrEqual, c.Capacity)
		limit.NewTerm(1, f.s.Get(unit(c.ID)))
	}
}

// buildAccess forbids arcs whose endpoints deny the vehicle. Only
// denied combinations get a constraint; absence means allowed.
func (f *formulation) buildAccess() {
	for _, a := range f.arcs {
		if f.inst.Access.Allowed(a.From, a.Vehicle) && f.inst.Access.Allowed(a.To, a.Vehicle) {
			continue
		}
		deny := f.m.NewConstraint(mip.LessThanOrEqual, 0)
		deny.NewTerm(1, f.x.Get(a))
	}
}

// buildLimits bounds each vehicle's total distance by its range and its
// total travel time by its duty hours, both switched by activation.
func (f *formulation) buildLimits() {
	for _, v := range f.inst.Vehicles {
		rangeKm := f.m.NewConstraint(mip.LessThanOrEqual, 0)
		duty := f.m.NewConstraint(mip.LessThanOrEqual, 0)
		for _, a := range f.arcsByVehicle[v.ID] {
			row := f.cost(a)
			rangeKm.NewTerm(row.DistKm, f.x.Get(a))
			duty.NewTerm(row.TimeH, f.x.Get(a))
		}
		rangeKm.NewTerm(-v.RangeKm, f.u.Get(unit(v.ID)))
		duty.NewTerm(-v.MaxDutyHours, f.u.Get(unit(v.ID)))
	}
}

// extract reads variable values out of a solved model into the
// solver-neutral solution shape. Booleans threshold at 0.5; flows at
// or below eps are dropped as numeric noise.
func (f *formulation) extract(sol mip.Solution, provider string, eps float64) ports.Solution {
	out := ports.Solution{
		Provider:    provider,
		Objective:   sol.ObjectiveValue(),
		Runtime:     sol.RunTime(),
		Supplies:    make(map[string]float64, len(f.centers)),
		Active:      make(map[string]bool, len(f.vehicles)),
		Assignments: make(map[string]string),
	}
	if sol.IsOptimal() {
		out.Status = ports.StatusOptimal
	} else {
		out.Status = ports.StatusFeasible
	}

	for _, a := range f.arcs {
		if sol.Value(f.x.Get(a)) > 0.5 {
			out.SelectedArcs = append(out.SelectedArcs, a)
		}
		if flow := sol.Value(f.y.Get(a)); flow > eps {
			out.Flows = append(out.Flows, domain.ArcFlow{
				Vehicle: a.Vehicle,
				From:    a.From,
				To:      a.To,
				Flow:    flow,
			})
		}
	}
	for _, c := range f.centers {
		out.Supplies[string(c)] = sol.Value(f.s.Get(c))
	}
	for _, v := range f.vehicles {
		out.Active[string(v)] = sol.Value(f.u.Get(v)) > 0.5
	}
	for _, p := range f.pairs {
		if sol.Value(f.z.Get(p)) > 0.5 {
			out.Assignments[p.Vehicle] = p.Center
		}
	}
	return out
}
