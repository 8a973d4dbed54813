package services

import (
	"fleet-routing-pipeline/internal/domain"
	"math"
	"reflect"
	"testing"
)

func traceInstance(t *testing.T) *domain.Instance {
	t.Helper()
	centers := []domain.Node{
		{ID: "C1", Name: "Center 1", Lat: 0, Lon: 0, Kind: domain.KindCenter, Capacity: 100},
		{ID: "C2", Name: "Center 2", Lat: 2, Lon: 2, Kind: domain.KindCenter, Capacity: 80},
	}
	clients := []domain.Node{
		{ID: "A", Name: "Client A", Lat: 0, Lon: 1, Kind: domain.KindClient, Demand: 30},
		{ID: "B", Name: "Client B", Lat: 1, Lon: 0, Kind: domain.KindClient, Demand: 20},
		{ID: "D", Name: "Client D", Lat: 2, Lon: 0, Kind: domain.KindClient, Demand: 10},
	}
	vehicles := []domain.Vehicle{
		{ID: "V1", Capacity: 100, SpeedKph: 25, FuelEffKmPerL: 10, RangeKm: 1000, MaxDutyHours: 24},
		{ID: "V2", Capacity: 50, SpeedKph: 25, FuelEffKmPerL: 10, RangeKm: 1000, MaxDutyHours: 24},
	}
	params := domain.GlobalParams{DetourAlpha: 1, EarthRadiusKm: 6371, RouteStartHour: 8}
	return domain.NewInstance(centers, clients, vehicles, nil, params)
}

func arcRow(vehicle, from, to string, dist, timeH, cost float64) domain.ArcCost {
	return domain.ArcCost{Vehicle: vehicle, From: from, To: to, DistKm: dist, TimeH: timeH, Cost: cost, Allowed: true}
}

func TestTraceRoutesClosedTour(t *testing.T) {
	inst := traceInstance(t)
	selected := []domain.ArcCost{
		arcRow("V1", "C1", "A", 10, 0.5, 100),
		arcRow("V1", "A", "B", 5, 0.25, 50),
		arcRow("V1", "B", "C1", 8, 0.4, 80),
	}

	traces := TraceRoutes(inst, selected)
	if len(traces) != 1 {
		t.Fatalf("got %d traces, want 1", len(traces))
	}
	tr := traces[0]
	if tr.Outcome != domain.WalkComplete {
		t.Fatalf("outcome = %s, want complete", tr.Outcome)
	}
	if tr.DepotID != "C1" {
		t.Errorf("depot = %q, want C1", tr.DepotID)
	}
	if want := []string{"C1", "A", "B", "C1"}; !reflect.DeepEqual(tr.Sequence, want) {
		t.Errorf("sequence = %v, want %v", tr.Sequence, want)
	}
	if want := []string{"A", "B"}; !reflect.DeepEqual(tr.Clients, want) {
		t.Errorf("clients = %v, want %v", tr.Clients, want)
	}
	if want := []float64{30, 20}; !reflect.DeepEqual(tr.Demands, want) {
		t.Errorf("demands = %v, want %v", tr.Demands, want)
	}
	if tr.TotalDistKm != 23 || tr.TotalCost != 230 {
		t.Errorf("totals = (%v, %v), want (23, 230)", tr.TotalDistKm, tr.TotalCost)
	}
	if math.Abs(tr.TotalTimeH-1.15) > 1e-9 {
		t.Errorf("total time = %v, want 1.15", tr.TotalTimeH)
	}
	if tr.ServedDemand() != 50 {
		t.Errorf("served demand = %v, want 50", tr.ServedDemand())
	}
}

func TestTraceRoutesSortsVehicles(t *testing.T) {
	inst := traceInstance(t)
	selected := []domain.ArcCost{
		arcRow("V2", "C2", "D", 3, 0.1, 30),
		arcRow("V2", "D", "C2", 3, 0.1, 30),
		arcRow("V1", "C1", "A", 10, 0.5, 100),
		arcRow("V1", "A", "C1", 10, 0.5, 100),
	}
	traces := TraceRoutes(inst, selected)
	if len(traces) != 2 {
		t.Fatalf("got %d traces, want 2", len(traces))
	}
	if traces[0].VehicleID != "V1" || traces[1].VehicleID != "V2" {
		t.Fatalf("vehicle order = [%s, %s], want [V1, V2]", traces[0].VehicleID, traces[1].VehicleID)
	}
}

func TestTraceRoutesDanglingNodeTruncates(t *testing.T) {
	inst := traceInstance(t)
	traces := TraceRoutes(inst, []domain.ArcCost{arcRow("V1", "C1", "A", 10, 0.5, 100)})
	tr := traces[0]
	if tr.Outcome != domain.WalkTruncated {
		t.Fatalf("outcome = %s, want truncated", tr.Outcome)
	}
	if want := []string{"C1", "A"}; !reflect.DeepEqual(tr.Sequence, want) {
		t.Errorf("sequence = %v, want %v", tr.Sequence, want)
	}
	if want := []string{"A"}; !reflect.DeepEqual(tr.Clients, want) {
		t.Errorf("clients = %v, want %v", tr.Clients, want)
	}
}

func TestTraceRoutesCycleGuardTerminates(t *testing.T) {
	inst := traceInstance(t)
	selected := []domain.ArcCost{
		arcRow("V1", "C1", "A", 1, 0.1, 10),
		arcRow("V1", "A", "B", 1, 0.1, 10),
		arcRow("V1", "B", "D", 1, 0.1, 10),
		arcRow("V1", "D", "B", 1, 0.1, 10),
	}
	traces := TraceRoutes(inst, selected)
	tr := traces[0]
	if tr.Outcome != domain.WalkCycle {
		t.Fatalf("outcome = %s, want cycle", tr.Outcome)
	}
	if want := []string{"C1", "A", "B", "D", "B"}; !reflect.DeepEqual(tr.Sequence, want) {
		t.Errorf("sequence = %v, want %v", tr.Sequence, want)
	}
}

func TestTraceRoutesDetachedCycleFallsBackToFirstCenter(t *testing.T) {
	inst := traceInstance(t)
	// No center appears in the arcs at all; the walk starts at the
	// instance's first center and immediately truncates.
	selected := []domain.ArcCost{
		arcRow("V1", "A", "B", 1, 0.1, 10),
		arcRow("V1", "B", "A", 1, 0.1, 10),
	}
	traces := TraceRoutes(inst, selected)
	tr := traces[0]
	if tr.Outcome != domain.WalkTruncated {
		t.Fatalf("outcome = %s, want truncated", tr.Outcome)
	}
	if want := []string{"C1"}; !reflect.DeepEqual(tr.Sequence, want) {
		t.Errorf("sequence = %v, want %v", tr.Sequence, want)
	}
	if len(tr.Clients) != 0 {
		t.Errorf("clients = %v, want none", tr.Clients)
	}
	if tr.TotalCost != 20 {
		t.Errorf("total cost = %v, want 20 (summed from rows, not the walk)", tr.TotalCost)
	}
}

func TestTraceRoutesPrefersUnenteredCenter(t *testing.T) {
	inst := traceInstance(t)
	// Two disjoint fragments for one vehicle: both centers originate an
	// arc and neither is entered, so the walk starts at the lexically
	// first one.
	selected := []domain.ArcCost{
		arcRow("V1", "C2", "B", 1, 0.1, 10),
		arcRow("V1", "C1", "A", 1, 0.1, 10),
	}
	tr := TraceRoutes(inst, selected)[0]
	if tr.DepotID != "C1" {
		t.Fatalf("depot = %q, want C1", tr.DepotID)
	}
	if want := []string{"C1", "A"}; !reflect.DeepEqual(tr.Sequence, want) {
		t.Errorf("sequence = %v, want %v", tr.Sequence, want)
	}
}

func TestTraceRoutesTourThroughSecondCenter(t *testing.T) {
	inst := traceInstance(t)
	// A tour that brushes both centers: every center has a predecessor,
	// so the walk starts at the first center seen in the arc rows.
	selected := []domain.ArcCost{
		arcRow("V1", "C2", "B", 1, 0.1, 10),
		arcRow("V1", "B", "C1", 1, 0.1, 10),
		arcRow("V1", "C1", "A", 1, 0.1, 10),
		arcRow("V1", "A", "C2", 1, 0.1, 10),
	}
	tr := TraceRoutes(inst, selected)[0]
	if tr.DepotID != "C2" {
		t.Fatalf("depot = %q, want C2", tr.DepotID)
	}
	if tr.Outcome != domain.WalkComplete {
		t.Fatalf("outcome = %s, want complete", tr.Outcome)
	}
	if want := []string{"C2", "B", "C1", "A", "C2"}; !reflect.DeepEqual(tr.Sequence, want) {
		t.Errorf("sequence = %v, want %v", tr.Sequence, want)
	}
}

func TestTraceRoutesTotalsComeFromAllRows(t *testing.T) {
	inst := traceInstance(t)
	selected := []domain.ArcCost{
		arcRow("V1", "C1", "A", 10, 0.5, 100),
		arcRow("V1", "A", "C1", 10, 0.5, 100),
		// Stray fragment the walk never reaches.
		arcRow("V1", "D", "B", 7, 0.3, 70),
	}
	tr := TraceRoutes(inst, selected)[0]
	if tr.Outcome != domain.WalkComplete {
		t.Fatalf("outcome = %s, want complete", tr.Outcome)
	}
	if want := []string{"C1", "A", "C1"}; !reflect.DeepEqual(tr.Sequence, want) {
		t.Errorf("sequence = %v, want %v", tr.Sequence, want)
	}
	if tr.TotalDistKm != 27 || tr.TotalCost != 270 {
		t.Errorf("totals = (%v, %v), want (27, 270) including the stray row", tr.TotalDistKm, tr.TotalCost)
	}
}
