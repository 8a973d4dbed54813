package services

import (
	"fleet-routing-pipeline/internal/domain"
	"fleet-routing-pipeline/internal/ports"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// VerificationRow is one vehicle's line in a route-verification table.
// InitialLoad is the total demand served on the route, which is the
// load the vehicle leaves the depot with. TotalTimeMin is the route
// duration in minutes.
type VerificationRow struct {
	VehicleID        string
	DepotID          string
	InitialLoad      float64
	RouteSequence    string
	ClientsServed    int
	DemandsSatisfied string
	ArrivalTimes     string // timed table only
	TotalDistance    float64
	TotalTimeMin     float64
	FuelCost         float64
}

var verificationHeader = []string{
	"VehicleId", "DepotId", "InitialLoad", "RouteSequence",
	"ClientsServed", "DemandsSatisfied", "TotalDistance", "TotalTime", "FuelCost",
}

var timedVerificationHeader = []string{
	"VehicleId", "DepotId", "InitialLoad", "RouteSequence",
	"ClientsServed", "DemandsSatisfied", "ArrivalTimes", "TotalDistance", "TotalTime", "FuelCost",
}

// BuildVerificationRows renders one row per reconstructed route.
func BuildVerificationRows(traces []domain.RouteTrace) []VerificationRow {
	rows := make([]VerificationRow, 0, len(traces))
	for _, tr := range traces {
		rows = append(rows, buildRow(tr))
	}
	return rows
}

// BuildTimedVerificationRows adds a wall-clock arrival stamp per client
// visit, accumulated along the walked sequence from the instance's
// route start hour. Vehicles whose walk reached no client are skipped.
func BuildTimedVerificationRows(inst *domain.Instance, traces []domain.RouteTrace, selected []domain.ArcCost) []VerificationRow {
	table := domain.NewArcTable(selected)
	rows := make([]VerificationRow, 0, len(traces))
	for _, tr := range traces {
		if len(tr.Clients) == 0 {
			continue
		}
		row := buildRow(tr)
		row.ArrivalTimes = arrivalTimes(inst, tr, table)
		rows = append(rows, row)
	}
	return rows
}

func buildRow(tr domain.RouteTrace) VerificationRow {
	return VerificationRow{
		VehicleID:        tr.VehicleID,
		DepotID:          tr.DepotID,
		InitialLoad:      tr.ServedDemand(),
		RouteSequence:    strings.Join(tr.Sequence, "-"),
		ClientsServed:    len(tr.Clients),
		DemandsSatisfied: joinDemands(tr.Demands),
		TotalDistance:    tr.TotalDistKm,
		TotalTimeMin:     tr.TotalTimeH * 60,
		FuelCost:         tr.TotalCost,
	}
}

// WriteVerificationTable writes one verification table; timed selects
// the variant with the ArrivalTimes column.
func WriteVerificationTable(w ports.TableWriter, name string, rows []VerificationRow, timed bool) error {
	header := verificationHeader
	if timed {
		header = timedVerificationHeader
	}
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		cells := []string{
			r.VehicleID,
			r.DepotID,
			formatFloat(r.InitialLoad),
			r.RouteSequence,
			strconv.Itoa(r.ClientsServed),
			r.DemandsSatisfied,
		}
		if timed {
			cells = append(cells, r.ArrivalTimes)
		}
		cells = append(cells,
			formatFloat(r.TotalDistance),
			formatFloat(r.TotalTimeMin),
			formatFloat(r.FuelCost),
		)
		out = append(out, cells)
	}
	return w.WriteTable(name, header, out)
}

// arrivalTimes walks the traced sequence and stamps the clock at each
// client, advancing by the arc travel times of the vehicle.
func arrivalTimes(inst *domain.Instance, tr domain.RouteTrace, arcs *domain.ArcTable) string {
	clock := inst.Params.RouteStartHour
	var stamps []string
	for i := 1; i < len(tr.Sequence); i++ {
		from, to := tr.Sequence[i-1], tr.Sequence[i]
		if row, ok := arcs.Get(tr.VehicleID, from, to); ok {
			clock += row.TimeH
		}
		if node, ok := inst.Node(to); ok && !node.IsCenter() {
			stamps = append(stamps, hhmm(clock))
		}
	}
	return strings.Join(stamps, "-")
}

// hhmm renders fractional hours as a zero-padded HH:MM clock reading,
// wrapping past midnight.
func hhmm(hours float64) string {
	total := int(math.Round(hours * 60))
	return fmt.Sprintf("%02d:%02d", (total/60)%24, total%60)
}

// joinDemands renders served demands dash-joined, writing integral
// quantities without a decimal point.
func joinDemands(demands []float64) string {
	parts := make([]string, len(demands))
	for i, d := range demands {
		if math.Abs(d-math.Round(d)) < 1e-6 {
			parts[i] = strconv.Itoa(int(math.Round(d)))
		} else {
			parts[i] = strconv.FormatFloat(d, 'f', -1, 64)
		}
	}
	return strings.Join(parts, "-")
}
