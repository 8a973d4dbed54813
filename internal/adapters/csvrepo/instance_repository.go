package csvrepo

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fleet-routing-pipeline/internal/domain"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Vehicles without a declared range or duty limit get this permissive
// sentinel so the model stays well-posed.
const noLimit = 1e9

// CSV/JSON-backed implementation of the InstanceRepository port.
// All inputs live under one configured directory; there is no path
// probing across candidate locations.
type InstanceRepository struct {
	Dir string
}

func NewInstanceRepository(dir string) *InstanceRepository {
	return &InstanceRepository{Dir: dir}
}

// LoadInstance reads and normalizes every input file of one run:
// nodes_centers.csv, nodes_clients.csv, vehicles.csv, plus the optional
// access.csv and global.json.
func (r *InstanceRepository) LoadInstance() (*domain.Instance, error) {
	params, err := readGlobalParams(filepath.Join(r.Dir, "global.json"))
	if err != nil {
		return nil, fmt.Errorf("load instance: %w", err)
	}

	centers, err := readCenters(filepath.Join(r.Dir, "nodes_centers.csv"))
	if err != nil {
		return nil, fmt.Errorf("load instance: %w", err)
	}
	if len(centers) == 0 {
		return nil, fmt.Errorf("load instance: %q contains no centers", filepath.Join(r.Dir, "nodes_centers.csv"))
	}

	clients, err := readClients(filepath.Join(r.Dir, "nodes_clients.csv"))
	if err != nil {
		return nil, fmt.Errorf("load instance: %w", err)
	}

	vehicles, err := readVehicles(filepath.Join(r.Dir, "vehicles.csv"), params)
	if err != nil {
		return nil, fmt.Errorf("load instance: %w", err)
	}
	if len(vehicles) == 0 {
		return nil, fmt.Errorf("load instance: %q contains no vehicles", filepath.Join(r.Dir, "vehicles.csv"))
	}

	access, err := readAccess(filepath.Join(r.Dir, "access.csv"))
	if err != nil {
		return nil, fmt.Errorf("load instance: %w", err)
	}

	seen := make(map[string]struct{}, len(centers)+len(clients))
	for _, n := range append(append([]domain.Node{}, centers...), clients...) {
		if _, dup := seen[n.ID]; dup {
			return nil, fmt.Errorf("load instance: duplicate node id %q", n.ID)
		}
		seen[n.ID] = struct{}{}
	}

	return domain.NewInstance(centers, clients, vehicles, access, params), nil
}

func readCenters(path string) ([]domain.Node, error) {
	var centers []domain.Node
	err := forEachRow(path, centerColumns, func(get func(string) string, line int) error {
		id := get("id")
		if id == "" {
			return fmt.Errorf("read centers: empty id at %s line %d", path, line)
		}
		lat, err := parseFloat(path, line, "lat", get("lat"))
		if err != nil {
			return err
		}
		lon, err := parseFloat(path, line, "lon", get("lon"))
		if err != nil {
			return err
		}
		capacity, err := parseFloat(path, line, "capacity", get("capacity"))
		if err != nil {
			return err
		}
		if capacity < 0 {
			return fmt.Errorf("read centers: negative capacity for %q at %s line %d", id, path, line)
		}
		centers = append(centers, domain.Node{
			ID:       id,
			Name:     get("name"),
			Lat:      lat,
			Lon:      lon,
			Kind:     domain.KindCenter,
			Capacity: capacity,
		})
		return nil
	})
	return centers, err
}

func readClients(path string) ([]domain.Node, error) {
	var clients []domain.Node
	err := forEachRow(path, clientColumns, func(get func(string) string, line int) error {
		id := get("id")
		if id == "" {
			return fmt.Errorf("read clients: empty id at %s line %d", path, line)
		}
		lat, err := parseFloat(path, line, "lat", get("lat"))
		if err != nil {
			return err
		}
		lon, err := parseFloat(path, line, "lon", get("lon"))
		if err != nil {
			return err
		}
		demand, err := parseFloat(path, line, "demand", get("demand"))
		if err != nil {
			return err
		}
		if demand < 0 {
			return fmt.Errorf("read clients: negative demand for %q at %s line %d", id, path, line)
		}
		clients = append(clients, domain.Node{
			ID:     id,
			Name:   get("name"),
			Lat:    lat,
			Lon:    lon,
			Kind:   domain.KindClient,
			Demand: demand,
		})
		return nil
	})
	return clients, err
}

func readVehicles(path string, params domain.GlobalParams) ([]domain.Vehicle, error) {
	var vehicles []domain.Vehicle
	seen := map[string]struct{}{}
	err := forEachRow(path, vehicleColumns, func(get func(string) string, line int) error {
		id := get("id")
		if id == "" {
			return fmt.Errorf("read vehicles: empty id at %s line %d", path, line)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("read vehicles: duplicate vehicle id %q at %s line %d", id, path, line)
		}
		seen[id] = struct{}{}

		capacity, err := parseFloat(path, line, "capacity", get("capacity"))
		if err != nil {
			return err
		}
		speed, err := parseFloat(path, line, "speed_kph", get("speed_kph"))
		if err != nil {
			return err
		}
		eff, err := parseFloat(path, line, "fuel_eff_kmpl", get("fuel_eff_kmpl"))
		if err != nil {
			return err
		}

		// Optional cost coefficients default to safe values instead of
		// failing: the model stays well-posed without them.
		fixed, err := parseOptionalFloat(path, line, "fixed_cost", get("fixed_cost"), 0)
		if err != nil {
			return err
		}
		rangeKm, err := parseOptionalFloat(path, line, "range_km", get("range_km"), noLimit)
		if err != nil {
			return err
		}
		duty, err := parseOptionalFloat(path, line, "max_duty_hours", get("max_duty_hours"), noLimit)
		if err != nil {
			return err
		}
		fuelPrice, err := parseOptionalFloat(path, line, "fuel_price_per_l", get("fuel_price_per_l"), params.FuelPricePerL)
		if err != nil {
			return err
		}
		costKm, err := parseOptionalFloat(path, line, "cost_per_km", get("cost_per_km"), 0)
		if err != nil {
			return err
		}
		costHour, err := parseOptionalFloat(path, line, "cost_per_hour", get("cost_per_hour"), 0)
		if err != nil {
			return err
		}

		vehicles = append(vehicles, domain.Vehicle{
			ID:            id,
			Capacity:      capacity,
			FixedCost:     fixed,
			RangeKm:       rangeKm,
			MaxDutyHours:  duty,
			SpeedKph:      speed,
			FuelEffKmPerL: eff,
			FuelPricePerL: fuelPrice,
			CostPerKm:     costKm,
			CostPerHour:   costHour,
		})
		return nil
	})
	return vehicles, err
}

// readAccess loads the optional access restrictions. A missing file
// means every vehicle may visit every node.
func readAccess(path string) (domain.AccessMatrix, error) {
	access := domain.AccessMatrix{}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return access, nil
	}

	err := forEachRow(path, accessColumns, func(get func(string) string, line int) error {
		node := get("node")
		vehicle := get("vehicle")
		if node == "" || vehicle == "" {
			return fmt.Errorf("read access: empty node or vehicle at %s line %d", path, line)
		}
		allowed, err := strconv.ParseBool(get("allowed"))
		if err != nil {
			return fmt.Errorf("read access: parse allowed=%q at %s line %d: %w", get("allowed"), path, line, err)
		}
		// Only denials are recorded; absent pairs default to allowed.
		if !allowed {
			access.Deny(node, vehicle)
		}
		return nil
	})
	return access, err
}

func readGlobalParams(path string) (domain.GlobalParams, error) {
	params := domain.GlobalParams{
		DetourAlpha:    1.25,
		EarthRadiusKm:  6371.0,
		FuelPricePerL:  12.0,
		RouteStartHour: 8.0,
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return params, nil
	}
	if err != nil {
		return params, fmt.Errorf("read global params: %w", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return params, fmt.Errorf("read global params: parse %q: %w", path, err)
	}

	params.DetourAlpha = pickFloat(raw, params.DetourAlpha, "alpha_detour", "detour_alpha")
	params.EarthRadiusKm = pickFloat(raw, params.EarthRadiusKm, "earth_radius_km")
	params.FuelPricePerL = pickFloat(raw, params.FuelPricePerL, "fuel_price_per_liter", "fuel_price_per_l", "fuel_price")
	params.RouteStartHour = pickFloat(raw, params.RouteStartHour, "route_start_hour", "start_hour")
	return params, nil
}

// LoadArcTable reads an arc table (arcs_cache.csv or selected_arcs.csv)
// back into memory. Used by the verification tool to rebuild routes from
// a previous run without re-solving.
func LoadArcTable(path string) ([]domain.ArcCost, error) {
	var arcs []domain.ArcCost
	err := forEachRow(path, arcColumns, func(get func(string) string, line int) error {
		vehicle, from, to := get("vehicle"), get("from"), get("to")
		if vehicle == "" || from == "" || to == "" {
			return fmt.Errorf("read arcs: empty key field at %s line %d", path, line)
		}
		dist, err := parseFloat(path, line, "dist_km", get("dist_km"))
		if err != nil {
			return err
		}
		timeH, err := parseFloat(path, line, "time_h", get("time_h"))
		if err != nil {
			return err
		}
		cost, err := parseFloat(path, line, "cost", get("cost"))
		if err != nil {
			return err
		}
		allowed := true
		if raw := get("allowed_pair"); raw != "" {
			allowed, err = strconv.ParseBool(raw)
			if err != nil {
				return fmt.Errorf("read arcs: parse allowed_pair=%q at %s line %d: %w", raw, path, line, err)
			}
		}
		arcs = append(arcs, domain.ArcCost{
			Vehicle: vehicle,
			From:    from,
			To:      to,
			DistKm:  dist,
			TimeH:   timeH,
			Cost:    cost,
			Allowed: allowed,
		})
		return nil
	})
	return arcs, err
}

// forEachRow streams one CSV file through the column resolver and a
// per-row callback. The callback's get function returns trimmed cell
// values by logical field name, empty string when the column is absent.
func forEachRow(path string, columns []column, fn func(get func(string) string, line int) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %q: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return fmt.Errorf("read header of %q: %w", path, err)
	}
	cols, err := resolveColumns(filepath.Base(path), header, columns)
	if err != nil {
		return err
	}

	line := 1
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read %q line %d: %w", path, line+1, err)
		}
		line++

		get := func(field string) string {
			i, ok := cols[field]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}
		if err := fn(get, line); err != nil {
			return err
		}
	}
	return nil
}

func parseFloat(file string, line int, field, raw string) (float64, error) {
	if raw == "" {
		return 0, fmt.Errorf("parse %s: empty %q at line %d", file, field, line)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %s=%q at line %d: %w", file, field, raw, line, err)
	}
	return v, nil
}

func parseOptionalFloat(file string, line int, field, raw string, fallback float64) (float64, error) {
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %s=%q at line %d: %w", file, field, raw, line, err)
	}
	return v, nil
}

func pickFloat(raw map[string]any, fallback float64, keys ...string) float64 {
	for _, k := range keys {
		if v, ok := raw[k]; ok {
			if f, ok := v.(float64); ok {
				return f
			}
		}
	}
	return fallback
}
