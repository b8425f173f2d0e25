package circuit

import (
	"math"

	"neurite/internal/model"
)

// NoIndex marks an absent arena reference (the root's parent slot).
const NoIndex = -1

// Point is a position in micrometers.
type Point struct {
	X, Y, Z float64
}

// Dist returns the Euclidean distance between two points.
func Dist(a, b Point) float64 {
	dx, dy, dz := a.X-b.X, a.Y-b.Y, a.Z-b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Node is one compartment in the arena. Parent and Children are arena
// indices, never pointers, so the tree can be copied and grown without
// aliasing concerns. A node represents the segment from P0 (parent end)
// to P1 (own end); the root's segment is degenerate.
type Node struct {
	ID     int // source SWC id; shared by sub-compartments split from one segment
	Kind   model.Kind
	P0, P1 Point
	Radius float64 // µm

	Parent   int
	Children []int

	Length float64 // µm, distance P0 to P1
	Diam   float64 // µm

	// Membrane state, live only while a dynamics engine drives the circuit.
	V     float64 // mV
	GateM float64
	GateH float64
	GateN float64
}

// Circuit is one fully isolated, simulatable cell. It owns its arena of
// compartments exclusively; nothing is shared between circuits, so any
// number of them can be simulated concurrently without locking.
type Circuit struct {
	nodes []Node
	byID  map[int]int

	clock       float64 // ms, advanced by the dynamics engine
	membrane    model.Membrane
	discretized bool
}

// Size returns the number of compartments.
func (c *Circuit) Size() int {
	return len(c.nodes)
}

// Node returns the compartment at arena index i. The pointer stays valid
// until the circuit is discretized, which rebuilds the arena.
func (c *Circuit) Node(i int) *Node {
	return &c.nodes[i]
}

// Root returns the root compartment (arena index 0, conventionally the soma).
func (c *Circuit) Root() *Node {
	return &c.nodes[0]
}

// IndexOf resolves a source SWC id to its arena index. After discretization
// a split segment maps to the sub-compartment closest to the original child
// endpoint.
func (c *Circuit) IndexOf(id int) (int, bool) {
	i, ok := c.byID[id]
	return i, ok
}

// Clock returns the circuit's local simulation time in milliseconds.
func (c *Circuit) Clock() float64 {
	return c.clock
}

// AdvanceClock moves the local clock forward by dt milliseconds.
func (c *Circuit) AdvanceClock(dt float64) {
	c.clock += dt
}

// ResetClock rewinds the local clock so a fresh engine can reuse the circuit.
func (c *Circuit) ResetClock() {
	c.clock = 0
}

// Membrane returns the membrane constants recorded at discretization time.
func (c *Circuit) Membrane() model.Membrane {
	return c.membrane
}

// Discretized reports whether the d-lambda pass ran on this circuit.
func (c *Circuit) Discretized() bool {
	return c.discretized
}

// TotalLength returns the summed compartment length in micrometers.
func (c *Circuit) TotalLength() float64 {
	total := 0.0
	for i := range c.nodes {
		total += c.nodes[i].Length
	}
	return total
}

// Replace swaps in a rebuilt arena. Used by the discretizer, which produces
// a new tree rather than patching indices in place.
func (c *Circuit) Replace(nodes []Node, byID map[int]int, membrane model.Membrane) {
	c.nodes = nodes
	c.byID = byID
	c.membrane = membrane
	c.discretized = true
}

// Normalize returns the circuit as records renumbered sequentially from 1 in
// arena order (parents precede children), the root written with parent -1.
// This is the payload for swc.WriteProcessed.
func (c *Circuit) Normalize() []model.Record {
	records := make([]model.Record, 0, len(c.nodes))
	for i := range c.nodes {
		n := &c.nodes[i]
		parent := model.NoParent
		if n.Parent != NoIndex {
			parent = n.Parent + 1
		}
		records = append(records, model.Record{
			ID:       i + 1,
			Kind:     n.Kind,
			RawKind:  int(n.Kind),
			X:        n.P1.X,
			Y:        n.P1.Y,
			Z:        n.P1.Z,
			Radius:   n.Radius,
			ParentID: parent,
		})
	}
	return records
}
