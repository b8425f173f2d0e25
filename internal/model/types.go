package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// Kind is an SWC structure identifier following the CNIC convention.
type Kind int

const (
	KindUndefined      Kind = 0
	KindSoma           Kind = 1
	KindAxon           Kind = 2
	KindBasalDendrite  Kind = 3
	KindApicalDendrite Kind = 4
	KindForkPoint      Kind = 5
	KindEndPoint       Kind = 6
	KindCustom         Kind = 7
)

// KindFromCode maps a raw SWC structure code to a Kind. Codes outside the
// fixed convention are tolerated as KindCustom so vendor extensions survive
// parsing; the raw code stays available on the Record.
func KindFromCode(code int) Kind {
	if code >= 0 && code <= 6 {
		return Kind(code)
	}
	return KindCustom
}

func (k Kind) String() string {
	switch k {
	case KindUndefined:
		return "undefined"
	case KindSoma:
		return "soma"
	case KindAxon:
		return "axon"
	case KindBasalDendrite:
		return "basal_dendrite"
	case KindApicalDendrite:
		return "apical_dendrite"
	case KindForkPoint:
		return "fork_point"
	case KindEndPoint:
		return "end_point"
	default:
		return "custom"
	}
}

// NoParent is the SWC parent id marking a root record.
const NoParent = -1

// Record is one parsed SWC line. Immutable once parsed; positions and
// radius are in micrometers.
type Record struct {
	ID       int     `json:"id"`
	Kind     Kind    `json:"kind"`
	RawKind  int     `json:"raw_kind"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Z        float64 `json:"z"`
	Radius   float64 `json:"radius"`
	ParentID int     `json:"parent_id"`
}

// Root reports whether the record declares no parent.
func (r Record) Root() bool {
	return r.ParentID == NoParent
}

// Membrane holds the passive membrane constants: specific axial resistance
// Ra in ohm*cm and specific membrane capacitance Cm in uF/cm^2.
type Membrane struct {
	Ra float64 `json:"ra"`
	Cm float64 `json:"cm"`
}

// MorphologySummary describes a built morphology for persistence.
type MorphologySummary struct {
	VersionedRecord
	Name          string         `json:"name"`
	RecordCount   int            `json:"record_count"`
	CircuitCount  int            `json:"circuit_count"`
	KindCounts    map[string]int `json:"kind_counts"`
	ZeroRadiusIDs []int          `json:"zero_radius_ids,omitempty"`
}

// RunRecord describes one completed or halted simulation run.
type RunRecord struct {
	VersionedRecord
	ID           string  `json:"id"`
	Morphology   string  `json:"morphology"`
	CreatedAtUTC string  `json:"created_at_utc"`
	Dt           float64 `json:"dt"`
	Duration     float64 `json:"duration"`
	Compartments int     `json:"compartments"`
	Steps        int     `json:"steps"`
	Completed    bool    `json:"completed"`
	Diverged     bool    `json:"diverged"`
}

// TraceRecord is the sampled voltage time series for one compartment.
type TraceRecord struct {
	VersionedRecord
	RunID         string    `json:"run_id"`
	CompartmentID int       `json:"compartment_id"`
	Times         []float64 `json:"times"`
	Voltages      []float64 `json:"voltages"`
}
