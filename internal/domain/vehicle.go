package domain

// Represents a delivery vehicle and its cost profile.
// A vehicle may be assigned to at most one center per solve; inactive
// vehicles contribute neither arcs nor fixed cost to a solution.
type Vehicle struct {
	ID        string
	Capacity  float64 // max load Q
	FixedCost float64 // one-time activation cost

	RangeKm      float64 // maximum usable distance per route
	MaxDutyHours float64 // maximum route duration

	SpeedKph      float64
	FuelEffKmPerL float64
	FuelPricePerL float64
	CostPerKm     float64
	CostPerHour   float64
}
