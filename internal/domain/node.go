package domain

// NodeKind distinguishes distribution centers from client stops.
type NodeKind string

const (
	KindCenter NodeKind = "center"
	KindClient NodeKind = "client"
)

// Represents a single location in the routing network.
// Centers carry a capacity (maximum total supply dispatchable from that
// depot); clients carry a demand (quantity to be delivered exactly once).
type Node struct {
	ID   string
	Name string
	Lat  float64
	Lon  float64
	Kind NodeKind

	// Capacity is meaningful for centers only.
	Capacity float64
	// Demand is meaningful for clients only.
	Demand float64
}

func (n Node) IsCenter() bool { return n.Kind == KindCenter }
