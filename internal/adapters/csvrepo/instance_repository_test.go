package csvrepo

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeInputs(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

func TestLoadInstanceCanonicalColumns(t *testing.T) {
	dir := writeInputs(t, map[string]string{
		"nodes_centers.csv": "id,name,lat,lon,capacity\nC1,North Hub,19.45,-99.15,100\n",
		"nodes_clients.csv": "id,name,lat,lon,demand\nA,Client A,19.40,-99.10,30\nB,Client B,19.42,-99.20,20\n",
		"vehicles.csv":      "id,q,fixed_cost,range_km,max_duty_hours,speed_kph,fuel_eff_kmpl,cost_per_km,cost_per_hour\nV1,100,50,200,8,25,10,1.5,20\n",
		"access.csv":        "node,vehicle,allowed\nA,V1,1\nB,V1,0\n",
		"global.json":       `{"alpha_detour": 1.4, "earth_radius_km": 6371.0, "fuel_price_per_liter": 13.5}`,
	})

	inst, err := NewInstanceRepository(dir).LoadInstance()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(inst.Centers) != 1 || len(inst.Clients) != 2 || len(inst.Vehicles) != 1 {
		t.Fatalf("got %d centers, %d clients, %d vehicles", len(inst.Centers), len(inst.Clients), len(inst.Vehicles))
	}

	v := inst.Vehicles[0]
	if v.Capacity != 100 || v.FixedCost != 50 || v.RangeKm != 200 || v.MaxDutyHours != 8 {
		t.Errorf("vehicle parsed wrong: %+v", v)
	}
	if v.FuelPricePerL != 13.5 {
		t.Errorf("fuel price should fall back to global.json value, got %v", v.FuelPricePerL)
	}

	if inst.Params.DetourAlpha != 1.4 {
		t.Errorf("DetourAlpha = %v, want 1.4", inst.Params.DetourAlpha)
	}
	if inst.Params.RouteStartHour != 8.0 {
		t.Errorf("RouteStartHour should default to 8.0, got %v", inst.Params.RouteStartHour)
	}

	if inst.Access.Allowed("B", "V1") {
		t.Errorf("access.csv denies B for V1")
	}
	if !inst.Access.Allowed("A", "V1") {
		t.Errorf("A is explicitly allowed for V1")
	}
	if !inst.Access.Allowed("C1", "V1") {
		t.Errorf("pairs absent from access.csv default to allowed")
	}
}

func TestLoadInstanceAliasColumns(t *testing.T) {
	// Legacy producers use q/cap/R/Tmax style headers.
	dir := writeInputs(t, map[string]string{
		"nodes_centers.csv": "id,lat,lon,cap\nC1,19.45,-99.15,100\n",
		"nodes_clients.csv": "id,lat,lon,q\nA,19.40,-99.10,30\n",
		"vehicles.csv":      "id,Q,f_fixed,R,Tmax,speed_kmph,km_per_l,w_time\nV1,80,10,150,6,30,8,25\n",
	})

	inst, err := NewInstanceRepository(dir).LoadInstance()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if inst.Centers[0].Capacity != 100 {
		t.Errorf("cap alias not resolved, got %v", inst.Centers[0].Capacity)
	}
	if inst.Clients[0].Demand != 30 {
		t.Errorf("q alias not resolved, got %v", inst.Clients[0].Demand)
	}
	v := inst.Vehicles[0]
	if v.Capacity != 80 || v.FixedCost != 10 || v.RangeKm != 150 || v.MaxDutyHours != 6 {
		t.Errorf("vehicle aliases not resolved: %+v", v)
	}
	if v.SpeedKph != 30 || v.FuelEffKmPerL != 8 || v.CostPerHour != 25 {
		t.Errorf("vehicle cost aliases not resolved: %+v", v)
	}
	// Missing optional file and columns fall back to defaults.
	if v.CostPerKm != 0 {
		t.Errorf("missing cost_per_km should default to 0, got %v", v.CostPerKm)
	}
	if v.FuelPricePerL != 12.0 {
		t.Errorf("missing global.json should leave the 12.0 default, got %v", v.FuelPricePerL)
	}
}

func TestLoadInstanceMissingRequiredColumn(t *testing.T) {
	dir := writeInputs(t, map[string]string{
		"nodes_centers.csv": "id,lat,lon,capacity\nC1,19.45,-99.15,100\n",
		"nodes_clients.csv": "id,lat,lon\nA,19.40,-99.10\n", // no demand column
		"vehicles.csv":      "id,Q,speed_kph,fuel_eff_kmpl\nV1,80,30,8\n",
	})

	_, err := NewInstanceRepository(dir).LoadInstance()
	if err == nil {
		t.Fatalf("expected schema error for missing demand column")
	}

	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("error should be a SchemaError, got %T: %v", err, err)
	}
	if schemaErr.Column != "demand" {
		t.Errorf("SchemaError.Column = %q, want demand", schemaErr.Column)
	}
	if schemaErr.File != "nodes_clients.csv" {
		t.Errorf("SchemaError.File = %q, want nodes_clients.csv", schemaErr.File)
	}
}

func TestLoadInstanceRejectsBadRows(t *testing.T) {
	base := map[string]string{
		"nodes_centers.csv": "id,lat,lon,capacity\nC1,19.45,-99.15,100\n",
		"nodes_clients.csv": "id,lat,lon,demand\nA,19.40,-99.10,30\n",
		"vehicles.csv":      "id,Q,speed_kph,fuel_eff_kmpl\nV1,80,30,8\n",
	}

	cases := []struct {
		name string
		file string
		body string
	}{
		{"negative demand", "nodes_clients.csv", "id,lat,lon,demand\nA,19.40,-99.10,-5\n"},
		{"garbage latitude", "nodes_clients.csv", "id,lat,lon,demand\nA,north,-99.10,5\n"},
		{"duplicate node id", "nodes_clients.csv", "id,lat,lon,demand\nC1,19.40,-99.10,5\n"},
		{"duplicate vehicle id", "vehicles.csv", "id,Q,speed_kph,fuel_eff_kmpl\nV1,80,30,8\nV1,90,25,9\n"},
		{"empty vehicle id", "vehicles.csv", "id,Q,speed_kph,fuel_eff_kmpl\n,80,30,8\n"},
	}

	for _, tc := range cases {
		files := map[string]string{}
		for k, v := range base {
			files[k] = v
		}
		files[tc.file] = tc.body
		dir := writeInputs(t, files)

		if _, err := NewInstanceRepository(dir).LoadInstance(); err == nil {
			t.Errorf("%s: expected error, got none", tc.name)
		}
	}
}

func TestLoadArcTable(t *testing.T) {
	dir := writeInputs(t, map[string]string{
		"arcs.csv": "vehicle,from,to,dist_km,time_h,cost,allowed_pair\nV1,C1,A,10.5,0.42,126.0,1\nV1,A,C1,10.5,0.42,126.0,0\n",
	})

	arcs, err := LoadArcTable(filepath.Join(dir, "arcs.csv"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(arcs) != 2 {
		t.Fatalf("got %d arcs, want 2", len(arcs))
	}
	if arcs[0].Vehicle != "V1" || arcs[0].From != "C1" || arcs[0].To != "A" {
		t.Errorf("first arc key wrong: %+v", arcs[0])
	}
	if arcs[0].DistKm != 10.5 || arcs[0].TimeH != 0.42 || arcs[0].Cost != 126.0 {
		t.Errorf("first arc values wrong: %+v", arcs[0])
	}
	if !arcs[0].Allowed || arcs[1].Allowed {
		t.Errorf("allowed_pair flags wrong: %v %v", arcs[0].Allowed, arcs[1].Allowed)
	}
}

func TestLoadArcTableLegacyHeaders(t *testing.T) {
	dir := writeInputs(t, map[string]string{
		"arcs.csv": "veh,i,j,distance_km,time_h,cost\nV1,C1,A,10.5,0.42,126.0\n",
	})

	arcs, err := LoadArcTable(filepath.Join(dir, "arcs.csv"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(arcs) != 1 {
		t.Fatalf("got %d arcs, want 1", len(arcs))
	}
	if !arcs[0].Allowed {
		t.Errorf("missing allowed_pair column should default to allowed")
	}
}
