package circuit

import "fmt"

// DuplicateIDError reports an SWC id appearing more than once in one file.
type DuplicateIDError struct {
	ID int
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("circuit: duplicate record id %d", e.ID)
}

// DanglingParentError reports a record whose parent id is absent.
type DanglingParentError struct {
	ID       int
	ParentID int
}

func (e *DanglingParentError) Error() string {
	return fmt.Sprintf("circuit: record %d references missing parent %d", e.ID, e.ParentID)
}

// CycleError reports records unreachable from any root, which means their
// parent chain loops back on itself.
type CycleError struct {
	IDs []int
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("circuit: cycle detected among records %v", e.IDs)
}

// WarnZeroRadius is the only non-fatal structural condition. It is collected
// and returned next to the built circuits, never raised as an error.
const WarnZeroRadius = "zero_radius"

// Warning is a non-fatal condition observed while building.
type Warning struct {
	Code     string
	ID       int
	Kind     string
	Repaired bool
}

func (w Warning) String() string {
	s := fmt.Sprintf("%s: record %d (%s)", w.Code, w.ID, w.Kind)
	if w.Repaired {
		s += " [radius repaired]"
	}
	return s
}
