package csvrepo

import (
	"fmt"
	"strings"
)

// SchemaError reports a structurally required column missing from an
// input file. Schema errors halt the pipeline; there are no silent
// defaults for required columns.
type SchemaError struct {
	File   string
	Column string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("input schema: file %q is missing required column %q", e.File, e.Column)
}

// column maps one logical field to its recognized header spellings.
// Input files come from several producers that never agreed on names,
// so each field carries the full list of alternates seen in the wild.
type column struct {
	field    string
	aliases  []string
	required bool
}

var centerColumns = []column{
	{field: "id", aliases: []string{"id", "node_id"}, required: true},
	{field: "name", aliases: []string{"name"}},
	{field: "lat", aliases: []string{"lat", "latitude"}, required: true},
	{field: "lon", aliases: []string{"lon", "lng", "longitude"}, required: true},
	{field: "capacity", aliases: []string{"capacity", "cap", "cap_c"}, required: true},
}

var clientColumns = []column{
	{field: "id", aliases: []string{"id", "node_id"}, required: true},
	{field: "name", aliases: []string{"name"}},
	{field: "lat", aliases: []string{"lat", "latitude"}, required: true},
	{field: "lon", aliases: []string{"lon", "lng", "longitude"}, required: true},
	{field: "demand", aliases: []string{"demand", "q"}, required: true},
}

var vehicleColumns = []column{
	{field: "id", aliases: []string{"id", "vehicle_id"}, required: true},
	{field: "capacity", aliases: []string{"q", "capacity"}, required: true},
	{field: "fixed_cost", aliases: []string{"fixed_cost", "f_fixed"}},
	{field: "range_km", aliases: []string{"range_km", "rango_util_km", "r", "range"}},
	{field: "max_duty_hours", aliases: []string{"max_duty_hours", "jornada_max_h", "tmax"}},
	{field: "speed_kph", aliases: []string{"speed_kph", "speed_kmph", "speed"}, required: true},
	{field: "fuel_eff_kmpl", aliases: []string{"fuel_eff_kmpl", "km_per_l", "eff"}, required: true},
	{field: "fuel_price_per_l", aliases: []string{"fuel_price_per_l", "fuel_price"}},
	{field: "cost_per_km", aliases: []string{"cost_per_km", "dep_per_km", "c_km"}},
	{field: "cost_per_hour", aliases: []string{"cost_per_hour", "cost_hour", "hourly_cost", "w_time"}},
}

var accessColumns = []column{
	{field: "node", aliases: []string{"node", "node_id"}, required: true},
	{field: "vehicle", aliases: []string{"vehicle", "veh_id", "veh"}, required: true},
	{field: "allowed", aliases: []string{"allowed"}, required: true},
}

var arcColumns = []column{
	{field: "vehicle", aliases: []string{"vehicle", "veh"}, required: true},
	{field: "from", aliases: []string{"from", "i"}, required: true},
	{field: "to", aliases: []string{"to", "j"}, required: true},
	{field: "dist_km", aliases: []string{"dist_km", "distance_km", "dist"}, required: true},
	{field: "time_h", aliases: []string{"time_h", "time"}, required: true},
	{field: "cost", aliases: []string{"cost"}, required: true},
	{field: "allowed_pair", aliases: []string{"allowed_pair"}},
}

// resolveColumns matches a CSV header against the column specs and
// returns logical field -> column index. Matching is case-insensitive.
// A missing required field yields a SchemaError naming the canonical
// column and the file it was expected in.
func resolveColumns(file string, header []string, columns []column) (map[string]int, error) {
	normalized := make([]string, len(header))
	for i, h := range header {
		normalized[i] = strings.ToLower(strings.TrimSpace(h))
	}

	out := make(map[string]int, len(columns))
	for _, col := range columns {
		found := false
		for _, alias := range col.aliases {
			for i, h := range normalized {
				if h == alias {
					out[col.field] = i
					found = true
					break
				}
			}
			if found {
				break
			}
		}
		if !found && col.required {
			return nil, &SchemaError{File: file, Column: col.field}
		}
	}
	return out, nil
}
