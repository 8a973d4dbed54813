package domain

import "testing"

func testInstance() *Instance {
	centers := []Node{
		{ID: "C1", Name: "North Hub", Lat: 19.45, Lon: -99.15, Kind: KindCenter, Capacity: 100},
	}
	clients := []Node{
		{ID: "A", Name: "Client A", Lat: 19.40, Lon: -99.10, Kind: KindClient, Demand: 30},
		{ID: "B", Name: "Client B", Lat: 19.42, Lon: -99.20, Kind: KindClient, Demand: 20},
	}
	vehicles := []Vehicle{
		{ID: "V1", Capacity: 100, SpeedKph: 25, FuelEffKmPerL: 10, FuelPricePerL: 12, RangeKm: 200, MaxDutyHours: 8},
	}
	params := GlobalParams{DetourAlpha: 1.25, EarthRadiusKm: 6371, FuelPricePerL: 12, RouteStartHour: 8}
	return NewInstance(centers, clients, vehicles, AccessMatrix{}, params)
}

func TestAccessMatrixDefaultsToAllowed(t *testing.T) {
	access := AccessMatrix{}

	if !access.Allowed("A", "V1") {
		t.Errorf("missing pair should default to allowed")
	}

	access.Deny("A", "V1")
	if access.Allowed("A", "V1") {
		t.Errorf("denied pair reported as allowed")
	}
	if !access.Allowed("A", "V2") {
		t.Errorf("deny for V1 must not affect V2")
	}
	if !access.Allowed("B", "V1") {
		t.Errorf("deny at node A must not affect node B")
	}
}

func TestInstanceLookups(t *testing.T) {
	inst := testInstance()

	if !inst.IsCenter("C1") {
		t.Errorf("C1 should be a center")
	}
	if inst.IsCenter("A") {
		t.Errorf("A should not be a center")
	}
	if inst.IsCenter("missing") {
		t.Errorf("unknown node should not be a center")
	}

	if got := inst.TotalDemand(); got != 50 {
		t.Errorf("TotalDemand = %v, want 50", got)
	}

	if _, ok := inst.Vehicle("V1"); !ok {
		t.Fatalf("vehicle V1 not found")
	}
	if _, ok := inst.Vehicle("V9"); ok {
		t.Fatalf("vehicle V9 should not exist")
	}

	nodes := inst.Nodes()
	if len(nodes) != 3 {
		t.Fatalf("Nodes() returned %d nodes, want 3", len(nodes))
	}
	if nodes[0].ID != "C1" {
		t.Errorf("centers must come first, got %q", nodes[0].ID)
	}
}

func TestFingerprintStability(t *testing.T) {
	a := testInstance()
	b := testInstance()

	if a.Fingerprint() != b.Fingerprint() {
		t.Fatalf("identical instances produced different fingerprints")
	}

	// Coordinates influence arc costs, so the fingerprint must change.
	moved := testInstance()
	moved.Clients[0].Lat += 0.01
	shifted := NewInstance(moved.Centers, moved.Clients, moved.Vehicles, moved.Access, moved.Params)
	if shifted.Fingerprint() == a.Fingerprint() {
		t.Errorf("moving a client did not change the fingerprint")
	}

	// Access denials influence the allowed flag on cached rows.
	restricted := testInstance()
	restricted.Access.Deny("A", "V1")
	if restricted.Fingerprint() == a.Fingerprint() {
		t.Errorf("denying access did not change the fingerprint")
	}
}
