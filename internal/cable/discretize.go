package cable

import (
	"errors"
	"fmt"
	"math"

	"neurite/internal/circuit"
	"neurite/internal/model"
)

// Params drives the d-lambda rule. Defaults follow the values NEURON and
// Jaxley document as reasonable for most models.
type Params struct {
	Membrane model.Membrane
	Freq     float64 // Hz, frequency the length constant is evaluated at
	DLambda  float64 // target compartment length as a fraction of lambda
}

// DefaultParams returns Ra=35.4 ohm*cm, Cm=1 uF/cm^2, f=100 Hz, d_lambda=0.1.
func DefaultParams() Params {
	return Params{
		Membrane: model.Membrane{Ra: 35.4, Cm: 1.0},
		Freq:     100.0,
		DLambda:  0.1,
	}
}

func (p Params) validate() error {
	switch {
	case p.Membrane.Ra <= 0:
		return fmt.Errorf("cable: axial resistance must be positive, got %g", p.Membrane.Ra)
	case p.Membrane.Cm <= 0:
		return fmt.Errorf("cable: membrane capacitance must be positive, got %g", p.Membrane.Cm)
	case p.Freq <= 0:
		return fmt.Errorf("cable: frequency must be positive, got %g", p.Freq)
	case p.DLambda <= 0:
		return fmt.Errorf("cable: d_lambda must be positive, got %g", p.DLambda)
	}
	return nil
}

// InvalidGeometryError reports a segment the d-lambda rule cannot size.
// Discretization is all or nothing for a circuit, so one bad segment aborts
// the whole pass with the tree untouched.
type InvalidGeometryError struct {
	NodeID int
	Diam   float64
}

func (e *InvalidGeometryError) Error() string {
	return fmt.Sprintf("cable: segment %d: cannot discretize with diameter %g um", e.NodeID, e.Diam)
}

// Lambda returns the AC length constant in micrometers for a cylinder of
// diameter diam (um): 1e5 * sqrt(diam / (4*pi*f*Cm*Ra)). The 1e5 folds the
// unit conversions so inputs stay in their conventional units.
func Lambda(diam float64, p Params) float64 {
	return 1e5 * math.Sqrt(diam/(4*math.Pi*p.Freq*p.Membrane.Cm*p.Membrane.Ra))
}

// CompartmentCount applies the d-lambda rule to a segment of physical
// length and diameter in micrometers: n = ceil(L / (d_lambda * lambda)),
// never below one.
func CompartmentCount(length, diam float64, p Params) (int, error) {
	if diam <= 0 {
		return 0, &InvalidGeometryError{Diam: diam}
	}
	lambda := Lambda(diam, p)
	if lambda <= 0 || math.IsNaN(lambda) || math.IsInf(lambda, 0) {
		return 0, &InvalidGeometryError{Diam: diam}
	}
	n := int(math.Ceil(length / (p.DLambda * lambda)))
	if n < 1 {
		n = 1
	}
	return n, nil
}

// Discretize replaces every geometric segment of c with a linear chain of
// electrical compartments sized by the d-lambda rule. Sub-compartments
// interpolate the original endpoints, inherit diameter and kind, and split
// length evenly, so the chain's total length equals the segment's. The
// circuit is rebuilt only after every segment sizes cleanly.
func Discretize(c *circuit.Circuit, p Params) error {
	if err := p.validate(); err != nil {
		return err
	}

	var nodes []circuit.Node
	byID := make(map[int]int, c.Size())
	newIndex := make([]int, c.Size())

	for i := 0; i < c.Size(); i++ {
		old := c.Node(i)
		if old.Parent == circuit.NoIndex {
			// The root is not sized by the rule, but it still has to carry a
			// usable diameter for the membrane equations downstream.
			if old.Diam <= 0 {
				return &InvalidGeometryError{NodeID: old.ID, Diam: old.Diam}
			}
			idx := len(nodes)
			root := *old
			root.Children = nil
			nodes = append(nodes, root)
			byID[old.ID] = idx
			newIndex[i] = idx
			continue
		}

		n, err := CompartmentCount(old.Length, old.Diam, p)
		if err != nil {
			var geo *InvalidGeometryError
			if errors.As(err, &geo) {
				geo.NodeID = old.ID
			}
			return err
		}

		prev := newIndex[old.Parent]
		for k := 1; k <= n; k++ {
			t0 := float64(k-1) / float64(n)
			t1 := float64(k) / float64(n)
			idx := len(nodes)
			nodes = append(nodes, circuit.Node{
				ID:     old.ID,
				Kind:   old.Kind,
				P0:     lerp(old.P0, old.P1, t0),
				P1:     lerp(old.P0, old.P1, t1),
				Radius: old.Radius,
				Parent: prev,
				Length: old.Length / float64(n),
				Diam:   old.Diam,
			})
			nodes[prev].Children = append(nodes[prev].Children, idx)
			prev = idx
		}
		byID[old.ID] = prev
		newIndex[i] = prev
	}

	c.Replace(nodes, byID, p.Membrane)
	return nil
}

func lerp(a, b circuit.Point, t float64) circuit.Point {
	return circuit.Point{
		X: a.X + (b.X-a.X)*t,
		Y: a.Y + (b.Y-a.Y)*t,
		Z: a.Z + (b.Z-a.Z)*t,
	}
}
