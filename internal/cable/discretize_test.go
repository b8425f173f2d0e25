package cable

import (
	"errors"
	"math"
	"testing"

	"neurite/internal/circuit"
	"neurite/internal/model"
)

func buildChain(t *testing.T, records []model.Record) *circuit.Circuit {
	t.Helper()
	circuits, _, err := circuit.Build(records)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(circuits) != 1 {
		t.Fatalf("expected 1 circuit, got %d", len(circuits))
	}
	return circuits[0]
}

func TestLambdaDefaults(t *testing.T) {
	p := DefaultParams()
	// d=4 um at Ra=35.4, Cm=1, f=100: lambda = 1e5*sqrt(4/(4*pi*100*1*35.4)).
	want := 1e5 * math.Sqrt(4/(4*math.Pi*100*35.4))
	got := Lambda(4, p)
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("lambda: got %v, want %v", got, want)
	}
	if got <= 0 || math.IsNaN(got) || math.IsInf(got, 0) {
		t.Fatalf("lambda must be positive finite, got %v", got)
	}
}

func TestLambdaGrowsWithDiameter(t *testing.T) {
	p := DefaultParams()
	if Lambda(1, p) >= Lambda(4, p) {
		t.Fatal("lambda must increase with diameter")
	}
}

func TestCompartmentCount(t *testing.T) {
	p := DefaultParams()
	// Short fat segment fits in one compartment.
	n, err := CompartmentCount(10, 4, p)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("10 um at d=4 should be a single compartment, got %d", n)
	}

	// Long thin segment must split: ceil(L / (0.1 * lambda)).
	lambda := Lambda(1, p)
	want := int(math.Ceil(1000 / (0.1 * lambda)))
	n, err = CompartmentCount(1000, 1, p)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != want {
		t.Fatalf("expected %d compartments, got %d", want, n)
	}
	if n < 2 {
		t.Fatalf("1000 um at d=1 must split, got %d", n)
	}
}

func TestCompartmentCountZeroDiameter(t *testing.T) {
	_, err := CompartmentCount(10, 0, DefaultParams())
	var geo *InvalidGeometryError
	if !errors.As(err, &geo) {
		t.Fatalf("expected *InvalidGeometryError, got %v", err)
	}
}

func TestDiscretizeSplitsLongSegment(t *testing.T) {
	c := buildChain(t, []model.Record{
		{ID: 1, Kind: model.KindSoma, Radius: 5, ParentID: model.NoParent},
		{ID: 2, Kind: model.KindAxon, X: 1000, Radius: 0.5, ParentID: 1},
	})
	p := DefaultParams()
	want, err := CompartmentCount(1000, 1, p)
	if err != nil {
		t.Fatalf("count: %v", err)
	}

	if err := Discretize(c, p); err != nil {
		t.Fatalf("discretize: %v", err)
	}
	if !c.Discretized() {
		t.Fatal("circuit should be marked discretized")
	}
	if c.Size() != 1+want {
		t.Fatalf("expected %d compartments, got %d", 1+want, c.Size())
	}

	// The chain is linear, each link hanging off the previous one, and the
	// sub-compartment lengths sum back to the segment length.
	total := 0.0
	for i := 1; i < c.Size(); i++ {
		n := c.Node(i)
		if n.Parent != i-1 {
			t.Fatalf("node %d parent %d, expected linear chain", i, n.Parent)
		}
		if len(n.Children) > 1 {
			t.Fatalf("node %d has %d children, split must not fan out", i, len(n.Children))
		}
		if n.ID != 2 {
			t.Fatalf("sub-compartment should keep source id 2, got %d", n.ID)
		}
		total += n.Length
	}
	if math.Abs(total-1000) > 1e-9 {
		t.Fatalf("sub-compartment lengths sum to %v, want 1000", total)
	}

	// The source id resolves to the far end of the chain.
	idx, ok := c.IndexOf(2)
	if !ok || idx != c.Size()-1 {
		t.Fatalf("IndexOf(2) = %d, %v; want last index %d", idx, ok, c.Size()-1)
	}
}

func TestDiscretizeShortSegmentsUnchanged(t *testing.T) {
	c := buildChain(t, []model.Record{
		{ID: 1, Kind: model.KindSoma, Radius: 5, ParentID: model.NoParent},
		{ID: 2, Kind: model.KindBasalDendrite, X: 10, Radius: 2, ParentID: 1},
	})
	if err := Discretize(c, DefaultParams()); err != nil {
		t.Fatalf("discretize: %v", err)
	}
	if c.Size() != 2 {
		t.Fatalf("short segment must stay whole, got %d compartments", c.Size())
	}
	if c.Membrane().Ra != 35.4 || c.Membrane().Cm != 1 {
		t.Fatalf("membrane constants not recorded: %+v", c.Membrane())
	}
}

func TestDiscretizeZeroDiameterAborts(t *testing.T) {
	c := buildChain(t, []model.Record{
		{ID: 1, Kind: model.KindSoma, Radius: 5, ParentID: model.NoParent},
		{ID: 2, Kind: model.KindEndPoint, X: 10, ParentID: 1},
	})
	sizeBefore := c.Size()

	err := Discretize(c, DefaultParams())
	var geo *InvalidGeometryError
	if !errors.As(err, &geo) {
		t.Fatalf("expected *InvalidGeometryError, got %v", err)
	}
	if geo.NodeID != 2 {
		t.Fatalf("expected node id 2, got %d", geo.NodeID)
	}

	// All or nothing: the failed pass leaves the circuit untouched.
	if c.Discretized() || c.Size() != sizeBefore {
		t.Fatal("failed discretization must leave the circuit untouched")
	}
}

func TestDiscretizeZeroRadiusRootAborts(t *testing.T) {
	// An unrepaired zero-radius soma builds with only a warning; the
	// discretizer is where its geometry must be rejected, not later in the
	// dynamics engine.
	records := []model.Record{
		{ID: 1, Kind: model.KindSoma, ParentID: model.NoParent},
		{ID: 2, Kind: model.KindBasalDendrite, X: 10, Radius: 2, ParentID: 1},
	}
	circuits, warnings, err := circuit.Build(records)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(warnings) != 1 || warnings[0].ID != 1 {
		t.Fatalf("expected a zero-radius warning for the root, got %v", warnings)
	}
	c := circuits[0]

	err = Discretize(c, DefaultParams())
	var geo *InvalidGeometryError
	if !errors.As(err, &geo) {
		t.Fatalf("expected *InvalidGeometryError for the root, got %v", err)
	}
	if geo.NodeID != 1 {
		t.Fatalf("expected node id 1, got %d", geo.NodeID)
	}
	if c.Discretized() {
		t.Fatal("failed discretization must leave the circuit untouched")
	}
}

func TestParamsValidation(t *testing.T) {
	c := buildChain(t, []model.Record{
		{ID: 1, Kind: model.KindSoma, Radius: 5, ParentID: model.NoParent},
	})
	bad := DefaultParams()
	bad.DLambda = 0
	if err := Discretize(c, bad); err == nil {
		t.Fatal("expected validation error for d_lambda = 0")
	}
}
