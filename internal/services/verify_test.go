package services

import (
	"fleet-routing-pipeline/internal/domain"
	"math"
	"reflect"
	"testing"
)

func TestBuildVerificationRows(t *testing.T) {
	trace := domain.RouteTrace{
		VehicleID:   "V1",
		DepotID:     "C1",
		Sequence:    []string{"C1", "A", "B", "C1"},
		Outcome:     domain.WalkComplete,
		Clients:     []string{"A", "B"},
		Demands:     []float64{30, 20},
		TotalDistKm: 23,
		TotalTimeH:  1.15,
		TotalCost:   230,
	}

	rows := BuildVerificationRows([]domain.RouteTrace{trace})
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	r := rows[0]
	if r.VehicleID != "V1" || r.DepotID != "C1" {
		t.Errorf("ids = (%q, %q), want (V1, C1)", r.VehicleID, r.DepotID)
	}
	if r.InitialLoad != 50 {
		t.Errorf("initial load = %v, want 50 (sum of served demands)", r.InitialLoad)
	}
	if r.RouteSequence != "C1-A-B-C1" {
		t.Errorf("route sequence = %q, want C1-A-B-C1", r.RouteSequence)
	}
	if r.ClientsServed != 2 {
		t.Errorf("clients served = %d, want 2", r.ClientsServed)
	}
	if r.DemandsSatisfied != "30-20" {
		t.Errorf("demands = %q, want 30-20", r.DemandsSatisfied)
	}
	if math.Abs(r.TotalTimeMin-69) > 1e-9 {
		t.Errorf("total time = %v minutes, want 69", r.TotalTimeMin)
	}
	if r.FuelCost != 230 {
		t.Errorf("fuel cost = %v, want 230", r.FuelCost)
	}
}

func TestJoinDemandsIntegerAndFractional(t *testing.T) {
	got := joinDemands([]float64{30, 20.5, 2})
	if got != "30-20.5-2" {
		t.Fatalf("joinDemands = %q, want 30-20.5-2", got)
	}
	if got := joinDemands(nil); got != "" {
		t.Fatalf("joinDemands(nil) = %q, want empty", got)
	}
}

func TestHHMMFormatsAndWraps(t *testing.T) {
	cases := []struct {
		hours float64
		want  string
	}{
		{8, "08:00"},
		{8.5, "08:30"},
		{12.25, "12:15"},
		{23.99, "23:59"},
		{25.5, "01:30"},
	}
	for _, c := range cases {
		if got := hhmm(c.hours); got != c.want {
			t.Errorf("hhmm(%v) = %q, want %q", c.hours, got, c.want)
		}
	}
}

func TestBuildTimedVerificationRows(t *testing.T) {
	inst := traceInstance(t)
	selected := []domain.ArcCost{
		arcRow("V1", "C1", "A", 10, 0.5, 100),
		arcRow("V1", "A", "B", 5, 0.25, 50),
		arcRow("V1", "B", "C1", 8, 0.4, 80),
		// Center-to-center hop: V2 reaches no client and is skipped in
		// the timed table.
		arcRow("V2", "C1", "C2", 3, 0.1, 30),
	}
	traces := TraceRoutes(inst, selected)
	if len(traces) != 2 {
		t.Fatalf("got %d traces, want 2", len(traces))
	}

	rows := BuildTimedVerificationRows(inst, traces, selected)
	if len(rows) != 1 {
		t.Fatalf("got %d timed rows, want 1 (clientless vehicle skipped)", len(rows))
	}
	if rows[0].VehicleID != "V1" {
		t.Fatalf("timed row vehicle = %q, want V1", rows[0].VehicleID)
	}
	// Departure 08:00, 0.5h to A, 0.25h more to B.
	if rows[0].ArrivalTimes != "08:30-08:45" {
		t.Errorf("arrival times = %q, want 08:30-08:45", rows[0].ArrivalTimes)
	}

	plain := BuildVerificationRows(traces)
	if len(plain) != 2 {
		t.Fatalf("got %d plain rows, want 2 (clientless vehicle kept)", len(plain))
	}
}

func TestWriteVerificationTableColumns(t *testing.T) {
	w := newMemTables()
	rows := []VerificationRow{{
		VehicleID:        "V1",
		DepotID:          "C1",
		InitialLoad:      50,
		RouteSequence:    "C1-A-B-C1",
		ClientsServed:    2,
		DemandsSatisfied: "30-20",
		ArrivalTimes:     "08:30-08:45",
		TotalDistance:    23,
		TotalTimeMin:     69,
		FuelCost:         230,
	}}

	if err := WriteVerificationTable(w, "route_verification", rows, false); err != nil {
		t.Fatalf("write plain table: %v", err)
	}
	wantHeader := []string{
		"VehicleId", "DepotId", "InitialLoad", "RouteSequence",
		"ClientsServed", "DemandsSatisfied", "TotalDistance", "TotalTime", "FuelCost",
	}
	if !reflect.DeepEqual(w.headers["route_verification"], wantHeader) {
		t.Errorf("plain header = %v, want %v", w.headers["route_verification"], wantHeader)
	}
	wantRow := []string{"V1", "C1", "50", "C1-A-B-C1", "2", "30-20", "23", "69", "230"}
	if !reflect.DeepEqual(w.rows["route_verification"][0], wantRow) {
		t.Errorf("plain row = %v, want %v", w.rows["route_verification"][0], wantRow)
	}

	if err := WriteVerificationTable(w, "route_verification_timed", rows, true); err != nil {
		t.Fatalf("write timed table: %v", err)
	}
	wantTimedHeader := []string{
		"VehicleId", "DepotId", "InitialLoad", "RouteSequence",
		"ClientsServed", "DemandsSatisfied", "ArrivalTimes", "TotalDistance", "TotalTime", "FuelCost",
	}
	if !reflect.DeepEqual(w.headers["route_verification_timed"], wantTimedHeader) {
		t.Errorf("timed header = %v, want %v", w.headers["route_verification_timed"], wantTimedHeader)
	}
	wantTimedRow := []string{"V1", "C1", "50", "C1-A-B-C1", "2", "30-20", "08:30-08:45", "23", "69", "230"}
	if !reflect.DeepEqual(w.rows["route_verification_timed"][0], wantTimedRow) {
		t.Errorf("timed row = %v, want %v", w.rows["route_verification_timed"][0], wantTimedRow)
	}
}

func TestWriteVerificationTableEmptyRowsHeaderOnly(t *testing.T) {
	w := newMemTables()
	if err := WriteVerificationTable(w, "route_verification", nil, false); err != nil {
		t.Fatalf("write empty table: %v", err)
	}
	if len(w.headers["route_verification"]) == 0 {
		t.Fatalf("header missing for empty table")
	}
	if len(w.rows["route_verification"]) != 0 {
		t.Fatalf("got %d rows, want 0", len(w.rows["route_verification"]))
	}
}
