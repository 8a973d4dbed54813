package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// GlobalParams are the run-wide model parameters read from global.json.
type GlobalParams struct {
	DetourAlpha    float64 // great-circle distances are scaled by this factor
	EarthRadiusKm  float64
	FuelPricePerL  float64 // fallback fuel price for vehicles without one
	RouteStartHour float64 // time-of-day at which routes depart, in hours
}

// AccessMatrix restricts which vehicles may visit which nodes.
// Pairs absent from the matrix default to allowed.
type AccessMatrix map[string]map[string]bool

// Allowed reports whether a vehicle may visit a node.
func (a AccessMatrix) Allowed(node, vehicle string) bool {
	byVehicle, ok := a[node]
	if !ok {
		return true
	}
	allowed, ok := byVehicle[vehicle]
	if !ok {
		return true
	}
	return allowed
}

// Deny records that a vehicle may not visit a node.
func (a AccessMatrix) Deny(node, vehicle string) {
	if a[node] == nil {
		a[node] = map[string]bool{}
	}
	a[node][vehicle] = false
}

// Instance is the full read-only input of one optimization run: centers,
// clients, vehicles, access permissions and global parameters. It is
// constructed once by ingestion and shared by reference downstream.
type Instance struct {
	Centers  []Node
	Clients  []Node
	Vehicles []Vehicle
	Access   AccessMatrix
	Params   GlobalParams

	nodeByID    map[string]Node
	vehicleByID map[string]Vehicle
}

// NewInstance builds an instance and its lookup indexes.
func NewInstance(centers, clients []Node, vehicles []Vehicle, access AccessMatrix, params GlobalParams) *Instance {
	inst := &Instance{
		Centers:     centers,
		Clients:     clients,
		Vehicles:    vehicles,
		Access:      access,
		Params:      params,
		nodeByID:    make(map[string]Node, len(centers)+len(clients)),
		vehicleByID: make(map[string]Vehicle, len(vehicles)),
	}
	if inst.Access == nil {
		inst.Access = AccessMatrix{}
	}
	for _, n := range centers {
		inst.nodeByID[n.ID] = n
	}
	for _, n := range clients {
		inst.nodeByID[n.ID] = n
	}
	for _, v := range vehicles {
		inst.vehicleByID[v.ID] = v
	}
	return inst
}

// Nodes returns all nodes, centers first, in input order.
func (inst *Instance) Nodes() []Node {
	out := make([]Node, 0, len(inst.Centers)+len(inst.Clients))
	out = append(out, inst.Centers...)
	out = append(out, inst.Clients...)
	return out
}

func (inst *Instance) Node(id string) (Node, bool) {
	n, ok := inst.nodeByID[id]
	return n, ok
}

func (inst *Instance) Vehicle(id string) (Vehicle, bool) {
	v, ok := inst.vehicleByID[id]
	return v, ok
}

// IsCenter reports whether the id names a center node.
func (inst *Instance) IsCenter(id string) bool {
	n, ok := inst.nodeByID[id]
	return ok && n.IsCenter()
}

// TotalDemand sums all client demands.
func (inst *Instance) TotalDemand() float64 {
	var total float64
	for _, c := range inst.Clients {
		total += c.Demand
	}
	return total
}

// Fingerprint returns a stable hash of every input that influences the
// arc-cost table: node coordinates, vehicle cost profiles, global cost
// parameters and the access matrix. Two instances with equal fingerprints
// produce byte-identical arc costs, so the hash doubles as the cache key.
func (inst *Instance) Fingerprint() string {
	var b strings.Builder

	writeNodes := func(nodes []Node) {
		sorted := make([]Node, len(nodes))
		copy(sorted, nodes)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
		for _, n := range sorted {
			fmt.Fprintf(&b, "%s|%.9f|%.9f\n", n.ID, n.Lat, n.Lon)
		}
	}

	fmt.Fprintf(&b, "params|%.9f|%.9f|%.9f\n",
		inst.Params.DetourAlpha, inst.Params.EarthRadiusKm, inst.Params.FuelPricePerL)
	writeNodes(inst.Centers)
	writeNodes(inst.Clients)

	vehicles := make([]Vehicle, len(inst.Vehicles))
	copy(vehicles, inst.Vehicles)
	sort.Slice(vehicles, func(i, j int) bool { return vehicles[i].ID < vehicles[j].ID })
	for _, v := range vehicles {
		fmt.Fprintf(&b, "%s|%.9f|%.9f|%.9f|%.9f|%.9f\n",
			v.ID, v.SpeedKph, v.FuelEffKmPerL, v.FuelPricePerL, v.CostPerKm, v.CostPerHour)
	}

	denied := make([]string, 0)
	for node, byVehicle := range inst.Access {
		for vehicle, allowed := range byVehicle {
			if !allowed {
				denied = append(denied, node+"|"+vehicle)
			}
		}
	}
	sort.Strings(denied)
	for _, d := range denied {
		fmt.Fprintf(&b, "deny|%s\n", d)
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
