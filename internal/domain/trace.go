package domain

// WalkOutcome classifies how a successor-map walk ended.
type WalkOutcome string

const (
	// WalkComplete: the walk returned to its starting depot.
	WalkComplete WalkOutcome = "complete"
	// WalkTruncated: a node with no outgoing arc was reached.
	WalkTruncated WalkOutcome = "truncated"
	// WalkCycle: a node was revisited before the tour closed.
	WalkCycle WalkOutcome = "cycle"
)

// RouteTrace is the reconstructed route of one vehicle, derived purely
// from its selected arcs. Totals are summed from the selected-arc rows,
// never recomputed from the node sequence, so they stay consistent with
// the solver output even when the walk is truncated.
type RouteTrace struct {
	VehicleID string
	DepotID   string
	Sequence  []string
	Outcome   WalkOutcome

	Clients []string  // non-center sequence entries, in visit order
	Demands []float64 // demand per visited client, same order

	TotalDistKm float64
	TotalTimeH  float64
	TotalCost   float64
}

// ServedDemand sums the demands of the clients on the route.
func (t RouteTrace) ServedDemand() float64 {
	var total float64
	for _, d := range t.Demands {
		total += d
	}
	return total
}
