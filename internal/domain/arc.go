package domain

// VehicleArc identifies a directed arc travelled by a specific vehicle.
// Arc parameters differ per vehicle, so the vehicle id is part of the key.
type VehicleArc struct {
	Vehicle string
	From    string
	To      string
}

// ID renders the arc key as one string. Node and vehicle ids never
// contain '|' in practice, so the encoding stays unambiguous.
func (a VehicleArc) ID() string {
	return a.Vehicle + "|" + a.From + "|" + a.To
}

// ArcCost is one row of the precomputed arc-cost table: the distance,
// travel time and monetary cost of a vehicle traversing a directed arc.
// Allowed records whether both endpoints permit the vehicle; it is
// informational (the optimization model enforces access itself).
type ArcCost struct {
	Vehicle string
	From    string
	To      string
	DistKm  float64
	TimeH   float64
	Cost    float64
	Allowed bool
}

func (a ArcCost) Key() VehicleArc {
	return VehicleArc{Vehicle: a.Vehicle, From: a.From, To: a.To}
}

// ArcFlow is the load carried by a vehicle across one selected arc.
type ArcFlow struct {
	Vehicle string
	From    string
	To      string
	Flow    float64
}

// Prohibitive parameters assigned to arcs absent from the cost table.
// They keep the optimization model well-posed while making missing arcs
// unattractive enough that no sane solution selects them.
const (
	MissingArcCost = 1e9
	MissingArcTime = 1e6
	MissingArcDist = 1e6
)

// ArcTable indexes an arc-cost table by (vehicle, from, to).
type ArcTable struct {
	rows map[VehicleArc]ArcCost
}

func NewArcTable(arcs []ArcCost) *ArcTable {
	t := &ArcTable{rows: make(map[VehicleArc]ArcCost, len(arcs))}
	for _, a := range arcs {
		t.rows[a.Key()] = a
	}
	return t
}

// Get returns the exact row for an arc, if present.
func (t *ArcTable) Get(vehicle, from, to string) (ArcCost, bool) {
	a, ok := t.rows[VehicleArc{Vehicle: vehicle, From: from, To: to}]
	return a, ok
}

// Padded returns the row for an arc, substituting prohibitive defaults
// when the table has no entry.
func (t *ArcTable) Padded(vehicle, from, to string) ArcCost {
	if a, ok := t.Get(vehicle, from, to); ok {
		return a
	}
	return ArcCost{
		Vehicle: vehicle,
		From:    from,
		To:      to,
		DistKm:  MissingArcDist,
		TimeH:   MissingArcTime,
		Cost:    MissingArcCost,
		Allowed: true,
	}
}

func (t *ArcTable) Len() int { return len(t.rows) }
