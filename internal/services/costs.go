package services

import (
	"fleet-routing-pipeline/internal/domain"
	"math"
)

// Guards against zero or negative operating parameters in vehicle rows.
const minRate = 1e-6

// Haversine returns the great-circle distance in km between two points.
func Haversine(lat1, lon1, lat2, lon2, radiusKm float64) float64 {
	const degToRad = math.Pi / 180
	phi1 := lat1 * degToRad
	phi2 := lat2 * degToRad
	dPhi := (lat2 - lat1) * degToRad
	dLambda := (lon2 - lon1) * degToRad

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	return 2 * radiusKm * math.Asin(math.Sqrt(a))
}

// BuildArcCosts computes the full per-vehicle arc-cost table for an
// instance. Distances are haversine kilometers scaled by the detour
// factor, travel time follows from the vehicle speed, and the monetary
// cost is fuel plus per-km and per-hour operating rates. The Allowed
// flag is false when either endpoint denies the vehicle.
//
// Rows come out in a deterministic order: origin nodes and destination
// nodes in instance order (centers before clients), vehicles in input
// order. Two runs over the same instance produce identical tables.
func BuildArcCosts(inst *domain.Instance) []domain.ArcCost {
	nodes := inst.Nodes()
	arcs := make([]domain.ArcCost, 0, len(nodes)*(len(nodes)-1)*len(inst.Vehicles))

	for _, from := range nodes {
		for _, to := range nodes {
			if from.ID == to.ID {
				continue
			}
			dist := inst.Params.DetourAlpha * Haversine(from.Lat, from.Lon, to.Lat, to.Lon, inst.Params.EarthRadiusKm)
			for _, v := range inst.Vehicles {
				timeH := dist / math.Max(v.SpeedKph, minRate)
				fuel := dist / math.Max(v.FuelEffKmPerL, minRate) * v.FuelPricePerL
				cost := fuel + v.CostPerKm*dist + v.CostPerHour*timeH
				arcs = append(arcs, domain.ArcCost{
					Vehicle: v.ID,
					From:    from.ID,
					To:      to.ID,
					DistKm:  dist,
					TimeH:   timeH,
					Cost:    cost,
					Allowed: inst.Access.Allowed(from.ID, v.ID) && inst.Access.Allowed(to.ID, v.ID),
				})
			}
		}
	}
	return arcs
}
