package circuit

import (
	"errors"
	"sort"

	"neurite/internal/model"
)

// repairedRadius replaces a zero radius when repair is requested, matching
// the convention used by common SWC pipelines.
const repairedRadius = 1.0

// BuildOptions tunes construction. The zero value is the strictly
// geometry-preserving mode.
type BuildOptions struct {
	// RepairZeroRadius patches zero radii to 1 µm so the circuit survives
	// discretization. The warning is still emitted, flagged as repaired.
	RepairZeroRadius bool
}

// Build validates the record set and materializes one Circuit per root.
// Multiple disconnected trees in one file intentionally yield multiple
// circuits. Zero-radius records are collected as warnings, never errors;
// every structural violation aborts with a typed error.
func Build(records []model.Record) ([]*Circuit, []Warning, error) {
	return BuildWith(records, BuildOptions{})
}

// BuildWith is Build with explicit options.
func BuildWith(records []model.Record, opts BuildOptions) ([]*Circuit, []Warning, error) {
	if len(records) == 0 {
		return nil, nil, errors.New("circuit: no records")
	}

	byID := make(map[int]model.Record, len(records))
	for _, rec := range records {
		if _, seen := byID[rec.ID]; seen {
			return nil, nil, &DuplicateIDError{ID: rec.ID}
		}
		byID[rec.ID] = rec
	}

	var roots []int
	children := make(map[int][]int, len(records))
	for _, rec := range records {
		if rec.Root() {
			roots = append(roots, rec.ID)
			continue
		}
		if _, ok := byID[rec.ParentID]; !ok {
			return nil, nil, &DanglingParentError{ID: rec.ID, ParentID: rec.ParentID}
		}
		children[rec.ParentID] = append(children[rec.ParentID], rec.ID)
	}

	// BFS from every root gives the topological order: a record is emitted
	// only after its parent. Whatever stays unvisited afterwards sits on a
	// parent cycle, since dangling parents are already ruled out.
	visited := make(map[int]bool, len(records))
	var circuits []*Circuit
	var warnings []Warning
	for _, rootID := range roots {
		c := buildOne(rootID, byID, children, visited, opts, &warnings)
		circuits = append(circuits, c)
	}

	if len(visited) != len(records) {
		var cyclic []int
		for _, rec := range records {
			if !visited[rec.ID] {
				cyclic = append(cyclic, rec.ID)
			}
		}
		sort.Ints(cyclic)
		return nil, nil, &CycleError{IDs: cyclic}
	}
	return circuits, warnings, nil
}

func buildOne(
	rootID int,
	byID map[int]model.Record,
	children map[int][]int,
	visited map[int]bool,
	opts BuildOptions,
	warnings *[]Warning,
) *Circuit {
	c := &Circuit{byID: make(map[int]int)}

	queue := []int{rootID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if visited[id] {
			continue
		}
		visited[id] = true

		rec := byID[id]
		radius := rec.Radius
		if radius == 0 {
			repaired := opts.RepairZeroRadius
			*warnings = append(*warnings, Warning{
				Code:     WarnZeroRadius,
				ID:       rec.ID,
				Kind:     rec.Kind.String(),
				Repaired: repaired,
			})
			if repaired {
				radius = repairedRadius
			}
		}

		own := Point{X: rec.X, Y: rec.Y, Z: rec.Z}
		parentIdx := NoIndex
		p0 := own
		if !rec.Root() {
			parentIdx = c.byID[rec.ParentID]
			parent := &c.nodes[parentIdx]
			p0 = parent.P1
		}

		idx := len(c.nodes)
		c.nodes = append(c.nodes, Node{
			ID:     rec.ID,
			Kind:   rec.Kind,
			P0:     p0,
			P1:     own,
			Radius: radius,
			Parent: parentIdx,
			Length: Dist(p0, own),
			Diam:   2 * radius,
		})
		c.byID[rec.ID] = idx
		if parentIdx != NoIndex {
			c.nodes[parentIdx].Children = append(c.nodes[parentIdx].Children, idx)
		}

		queue = append(queue, children[id]...)
	}

	return c
}
