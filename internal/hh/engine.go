package hh

import (
	"context"
	"fmt"
	"math"

	"neurite/internal/circuit"
)

// State tracks the engine lifecycle. There is no way back from
// StateCompleted; a new run needs a fresh engine on a reset circuit.
type State int

const (
	StateUnstarted State = iota
	StateRunning
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateUnstarted:
		return "unstarted"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Stimulus returns the injected current in nA for a compartment (arena
// index) at simulation time t in ms.
type Stimulus func(compartment int, t float64) float64

// Method selects the integration scheme for gating and voltage.
type Method int

const (
	// MethodExponential advances gating variables by their exact
	// exponential relaxation toward steady state, which stays stable for
	// the stiff gating kinetics, and the voltage by a guarded forward step.
	MethodExponential Method = iota
	// MethodEuler uses forward Euler for both. Kept for cross-checking
	// against reference traces; the stability guard applies equally.
	MethodEuler
)

// Config is the caller-supplied simulation surface. Nothing is read from
// the environment.
type Config struct {
	Dt       float64 // ms
	Duration float64 // ms
	Stimulus Stimulus
	Method   Method

	// Channel applies to every compartment. Zero value means the canonical
	// Hodgkin-Huxley squid channel.
	Channel *Channel

	// InitV is the initial membrane voltage in mV. Nil starts at the
	// channel's leak reversal, which is the passive equilibrium.
	InitV *float64

	// SampleEvery records a trace sample every k steps; 0 means every step.
	SampleEvery int

	// RecordGating adds m, h, n to each trace sample.
	RecordGating bool

	// StabilityMargin scales the admissible fraction of the computed step
	// bound; 0 means 1.0.
	StabilityMargin float64
}

// IntegrationInstabilityError rejects an unsafe step size before any stepping happens.
type IntegrationInstabilityError struct {
	Dt    float64
	Bound float64
}

func (e *IntegrationInstabilityError) Error() string {
	return fmt.Sprintf("hh: dt %g ms exceeds stability bound %g ms", e.Dt, e.Bound)
}

// DivergenceError reports a numerical blow-up mid-run. The engine halts;
// other circuits' engines are unaffected.
type DivergenceError struct {
	Compartment int
	Step        int
	Time        float64
}

func (e *DivergenceError) Error() string {
	return fmt.Sprintf("hh: non-finite voltage in compartment %d at step %d (t=%g ms)", e.Compartment, e.Step, e.Time)
}

// Sample is one recorded instant of the whole circuit.
type Sample struct {
	T float64
	V []float64
	M []float64
	H []float64
	N []float64
}

// Trace is the recorded time series for a run.
type Trace struct {
	Samples []Sample
}

// Series extracts the (time, voltage) pair sequence for one compartment.
func (tr *Trace) Series(compartment int) (times, volts []float64) {
	times = make([]float64, 0, len(tr.Samples))
	volts = make([]float64, 0, len(tr.Samples))
	for _, s := range tr.Samples {
		if compartment < 0 || compartment >= len(s.V) {
			continue
		}
		times = append(times, s.T)
		volts = append(volts, s.V[compartment])
	}
	return times, volts
}

// Engine advances one circuit's membrane state. It owns no shared state:
// engines for different circuits never alias, so they can run on separate
// goroutines without locks. Within a circuit each step is a sequential
// pass reading neighbor voltages saved before the step.
type Engine struct {
	c   *circuit.Circuit
	cfg Config
	ch  Channel

	area  []float64 // cm^2, membrane area per compartment
	halfR []float64 // kOhm, axial resistance from compartment center to its parent-side end

	state   State
	step    int
	steps   int
	failure error
	vPrev   []float64
	trace   Trace
}

// NewEngine validates the configuration against the circuit and prepares
// the initial state: voltage at InitV, gating at its steady state for that
// voltage. The stability guard runs here, before any stepping.
func NewEngine(c *circuit.Circuit, cfg Config) (*Engine, error) {
	if c == nil || c.Size() == 0 {
		return nil, fmt.Errorf("hh: empty circuit")
	}
	if !c.Discretized() {
		return nil, fmt.Errorf("hh: circuit is not discretized")
	}
	if cfg.Dt <= 0 {
		return nil, fmt.Errorf("hh: dt must be positive, got %g", cfg.Dt)
	}
	if cfg.Duration < cfg.Dt {
		return nil, fmt.Errorf("hh: duration %g ms is shorter than dt %g ms", cfg.Duration, cfg.Dt)
	}

	ch := DefaultChannel()
	if cfg.Channel != nil {
		ch = *cfg.Channel
	}

	e := &Engine{
		c:     c,
		cfg:   cfg,
		ch:    ch,
		steps: int(math.Round(cfg.Duration / cfg.Dt)),
		vPrev: make([]float64, c.Size()),
	}
	if err := e.computeGeometry(); err != nil {
		return nil, err
	}
	if bound := e.stabilityBound(); cfg.Dt > bound {
		return nil, &IntegrationInstabilityError{Dt: cfg.Dt, Bound: bound}
	}

	v0 := ch.EL
	if cfg.InitV != nil {
		v0 = *cfg.InitV
	}
	for i := 0; i < c.Size(); i++ {
		n := c.Node(i)
		n.V = v0
		n.GateM = SteadyState(AlphaM(v0), BetaM(v0))
		n.GateH = SteadyState(AlphaH(v0), BetaH(v0))
		n.GateN = SteadyState(AlphaN(v0), BetaN(v0))
	}
	e.record()
	return e, nil
}

const (
	umToCm   = 1e-4
	um2ToCm2 = 1e-8
)

func (e *Engine) computeGeometry() error {
	size := e.c.Size()
	e.area = make([]float64, size)
	e.halfR = make([]float64, size)
	ra := e.c.Membrane().Ra

	for i := 0; i < size; i++ {
		n := e.c.Node(i)
		if n.Diam <= 0 {
			return fmt.Errorf("hh: compartment %d has non-positive diameter", i)
		}
		if n.Parent == circuit.NoIndex {
			// The root is a degenerate segment; treat the soma as a sphere
			// of its own diameter.
			e.area[i] = math.Pi * n.Diam * n.Diam * um2ToCm2
			e.halfR[i] = 0
			continue
		}
		if n.Length <= 0 {
			return fmt.Errorf("hh: compartment %d has zero length", i)
		}
		e.area[i] = math.Pi * n.Diam * n.Length * um2ToCm2

		radiusCm := n.Diam / 2 * umToCm
		halfLenCm := n.Length / 2 * umToCm
		// Ohm, then kOhm so that mV/kOhm yields uA directly.
		e.halfR[i] = ra * halfLenCm / (math.Pi * radiusCm * radiusCm) / 1000
	}
	return nil
}

// coupleR returns the axial resistance in kOhm between the centers of a
// compartment and its parent.
func (e *Engine) coupleR(child int) float64 {
	parent := e.c.Node(child).Parent
	return e.halfR[child] + e.halfR[parent]
}

// stabilityBound returns the largest dt in ms the forward voltage step is
// trusted with: the smallest membrane time constant across compartments,
// counting full ionic conductance and axial coupling, scaled by the
// configured margin.
func (e *Engine) stabilityBound() float64 {
	cm := e.c.Membrane().Cm
	bound := math.Inf(1)
	for i := 0; i < e.c.Size(); i++ {
		n := e.c.Node(i)
		gIon := e.ch.GNa + e.ch.GK + e.ch.GL // mS/cm^2, worst case fully open
		gAx := 0.0                           // mS
		if n.Parent != circuit.NoIndex {
			gAx += 1 / e.coupleR(i)
		}
		for _, child := range n.Children {
			gAx += 1 / e.coupleR(child)
		}
		tau := cm / (gIon + gAx/e.area[i])
		if tau < bound {
			bound = tau
		}
	}
	margin := e.cfg.StabilityMargin
	if margin <= 0 {
		margin = 1.0
	}
	return bound * margin
}

// Step advances the simulation by at most n steps and returns how many ran.
// It is re-entrant: callers interleave Step calls across circuits however
// they like. A divergence halts this engine permanently and is returned on
// every subsequent call.
func (e *Engine) Step(n int) (int, error) {
	if e.failure != nil {
		return 0, e.failure
	}
	if e.state == StateCompleted || n <= 0 {
		return 0, nil
	}
	e.state = StateRunning

	done := 0
	for done < n && e.step < e.steps {
		if err := e.stepOnce(); err != nil {
			e.failure = err
			return done, err
		}
		done++
	}
	if e.step >= e.steps {
		e.state = StateCompleted
	}
	return done, nil
}

// Run steps to completion, checking ctx between batches.
func (e *Engine) Run(ctx context.Context) error {
	const batch = 256
	for e.state != StateCompleted {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := e.Step(batch); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) stepOnce() error {
	c := e.c
	dt := e.cfg.Dt
	cm := c.Membrane().Cm
	t := c.Clock()

	// Neighbor voltages must come from before the step, so the whole
	// pre-step vector is snapshotted first.
	for i := 0; i < c.Size(); i++ {
		e.vPrev[i] = c.Node(i).V
	}

	for i := 0; i < c.Size(); i++ {
		n := c.Node(i)
		v := e.vPrev[i]

		m, h, g := n.GateM, n.GateH, n.GateN
		if e.ch.Active() {
			m = e.advanceGate(m, AlphaM(v), BetaM(v), dt)
			h = e.advanceGate(h, AlphaH(v), BetaH(v), dt)
			g = e.advanceGate(g, AlphaN(v), BetaN(v), dt)
		}

		ionic := e.ch.Ionic(v, m, h, g) // uA/cm^2

		axial := 0.0 // uA, positive into the compartment
		if n.Parent != circuit.NoIndex {
			axial += (e.vPrev[n.Parent] - v) / e.coupleR(i)
		}
		for _, child := range n.Children {
			axial += (e.vPrev[child] - v) / e.coupleR(child)
		}

		inject := 0.0
		if e.cfg.Stimulus != nil {
			inject = e.cfg.Stimulus(i, t) / 1000 // nA -> uA
		}

		dvdt := (-ionic + (axial+inject)/e.area[i]) / cm // mV/ms
		n.V = v + dt*dvdt
		n.GateM, n.GateH, n.GateN = m, h, g
	}

	e.step++
	c.AdvanceClock(dt)

	for i := 0; i < c.Size(); i++ {
		if v := c.Node(i).V; math.IsNaN(v) || math.IsInf(v, 0) {
			return &DivergenceError{Compartment: i, Step: e.step, Time: c.Clock()}
		}
	}

	every := e.cfg.SampleEvery
	if every <= 0 {
		every = 1
	}
	if e.step%every == 0 || e.step == e.steps {
		e.record()
	}
	return nil
}

func (e *Engine) advanceGate(x, alpha, beta, dt float64) float64 {
	switch e.cfg.Method {
	case MethodEuler:
		return x + dt*(alpha*(1-x)-beta*x)
	default:
		inf := SteadyState(alpha, beta)
		tau := TimeConstant(alpha, beta)
		return inf + (x-inf)*math.Exp(-dt/tau)
	}
}

func (e *Engine) record() {
	c := e.c
	s := Sample{T: c.Clock(), V: make([]float64, c.Size())}
	if e.cfg.RecordGating {
		s.M = make([]float64, c.Size())
		s.H = make([]float64, c.Size())
		s.N = make([]float64, c.Size())
	}
	for i := 0; i < c.Size(); i++ {
		n := c.Node(i)
		s.V[i] = n.V
		if e.cfg.RecordGating {
			s.M[i] = n.GateM
			s.H[i] = n.GateH
			s.N[i] = n.GateN
		}
	}
	e.trace.Samples = append(e.trace.Samples, s)
}

// State returns the lifecycle state.
func (e *Engine) State() State {
	return e.state
}

// StepsDone returns how many steps have run.
func (e *Engine) StepsDone() int {
	return e.step
}

// TotalSteps returns the configured step count.
func (e *Engine) TotalSteps() int {
	return e.steps
}

// Diverged reports whether the run halted on a numerical blow-up.
func (e *Engine) Diverged() bool {
	_, ok := e.failure.(*DivergenceError)
	return ok
}

// Trace returns the recorded samples. The engine keeps ownership; callers
// copy if they outlive it.
func (e *Engine) Trace() *Trace {
	return &e.trace
}
