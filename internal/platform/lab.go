package platform

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"neurite/internal/circuit"
	"neurite/internal/hh"
	"neurite/internal/model"
	"neurite/internal/storage"
)

// Command controls a running simulation from outside.
type Command int

const (
	CommandPause Command = iota
	CommandContinue
	CommandStop
)

// Config wires the lab's collaborators.
type Config struct {
	Store   storage.Store
	Logger  *zap.Logger
	Workers int
}

// RunConfig is one simulation request. The circuit must be discretized and
// is owned by this run for its duration; nothing else may touch it.
type RunConfig struct {
	RunID      string
	Morphology string
	Circuit    *circuit.Circuit
	Engine     hh.Config
	Control    chan Command
}

// RunResult reports one finished (or halted) simulation. Err carries a
// per-run failure such as divergence; it never aborts sibling runs.
type RunResult struct {
	RunID     string
	Steps     int
	Completed bool
	Diverged  bool
	Trace     *hh.Trace
	Err       error
}

// Lab owns a store and drives simulations over isolated circuits. Circuits
// share no state by construction, so the lab runs any number of them on
// parallel workers without locking anything but its own bookkeeping.
type Lab struct {
	store   storage.Store
	logger  *zap.Logger
	workers int

	mu      sync.RWMutex
	started bool
	runs    map[string]chan Command
}

// stepBatch is how many steps run between control-channel polls.
const stepBatch = 512

func NewLab(cfg Config) *Lab {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	return &Lab{
		store:   cfg.Store,
		logger:  logger,
		workers: workers,
		runs:    make(map[string]chan Command),
	}
}

func (l *Lab) Init(ctx context.Context) error {
	if l.store == nil {
		return fmt.Errorf("store is required")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.started {
		return nil
	}
	if err := l.store.Init(ctx); err != nil {
		return err
	}
	l.started = true
	return nil
}

func (l *Lab) Reset(ctx context.Context) error {
	if resetter, ok := l.store.(storage.Resetter); ok {
		if err := resetter.Reset(ctx); err != nil {
			return err
		}
	}
	return l.Init(ctx)
}

func (l *Lab) Started() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.started
}

// Store exposes the underlying store for read-side queries.
func (l *Lab) Store() storage.Store {
	return l.store
}

// SaveMorphology persists a build summary for later inspection.
func (l *Lab) SaveMorphology(ctx context.Context, summary model.MorphologySummary) error {
	if !l.Started() {
		return fmt.Errorf("lab is not initialized")
	}
	summary.VersionedRecord = storage.Stamp()
	return l.store.SaveMorphology(ctx, summary)
}

// Simulate runs one circuit to completion (or until stopped, cancelled, or
// diverged), persists the run record and voltage traces, and returns the
// result. It is safe to call concurrently with other Simulate calls as long
// as each call owns its circuit.
func (l *Lab) Simulate(ctx context.Context, cfg RunConfig) (RunResult, error) {
	if !l.Started() {
		return RunResult{}, fmt.Errorf("lab is not initialized")
	}
	if cfg.Circuit == nil {
		return RunResult{}, fmt.Errorf("circuit is required")
	}
	runID := cfg.RunID
	if runID == "" {
		return RunResult{}, fmt.Errorf("run id is required")
	}

	engine, err := hh.NewEngine(cfg.Circuit, cfg.Engine)
	if err != nil {
		return RunResult{}, err
	}

	control := cfg.Control
	if control == nil {
		control = make(chan Command, 16)
	}
	if err := l.registerRun(runID, control); err != nil {
		return RunResult{}, err
	}
	defer l.unregisterRun(runID)

	l.logger.Info("simulation started",
		zap.String("run_id", runID),
		zap.Int("compartments", cfg.Circuit.Size()),
		zap.Int("steps", engine.TotalSteps()),
	)

	result := l.drive(ctx, engine, control, runID)
	result.Trace = engine.Trace()

	if persistErr := l.persist(ctx, cfg, engine, result); persistErr != nil {
		return result, persistErr
	}
	if result.Err != nil {
		l.logger.Warn("simulation halted",
			zap.String("run_id", runID),
			zap.Int("steps", result.Steps),
			zap.Error(result.Err),
		)
	} else {
		l.logger.Info("simulation finished",
			zap.String("run_id", runID),
			zap.Int("steps", result.Steps),
			zap.Bool("completed", result.Completed),
		)
	}
	return result, nil
}

// SimulateAll drives the requests over a bounded worker pool. Per-run
// failures land in each RunResult; the returned error only reports setup
// problems such as duplicate run ids.
func (l *Lab) SimulateAll(ctx context.Context, cfgs []RunConfig) ([]RunResult, error) {
	if !l.Started() {
		return nil, fmt.Errorf("lab is not initialized")
	}

	results := make([]RunResult, len(cfgs))
	sem := make(chan struct{}, l.workers)
	var wg sync.WaitGroup
	for i := range cfgs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			res, err := l.Simulate(ctx, cfgs[i])
			if err != nil && res.Err == nil {
				res.Err = err
			}
			res.RunID = cfgs[i].RunID
			results[i] = res
		}(i)
	}
	wg.Wait()
	return results, nil
}

func (l *Lab) drive(ctx context.Context, engine *hh.Engine, control chan Command, runID string) RunResult {
	result := RunResult{RunID: runID}
	paused := false
	for engine.State() != hh.StateCompleted {
		if err := ctx.Err(); err != nil {
			result.Err = err
			break
		}

		if paused {
			select {
			case cmd := <-control:
				switch cmd {
				case CommandContinue:
					paused = false
				case CommandStop:
					result.Steps = engine.StepsDone()
					return result
				}
			case <-ctx.Done():
				result.Err = ctx.Err()
				result.Steps = engine.StepsDone()
				return result
			}
			continue
		}

		select {
		case cmd := <-control:
			switch cmd {
			case CommandPause:
				paused = true
				continue
			case CommandStop:
				result.Steps = engine.StepsDone()
				return result
			}
		default:
		}

		if _, err := engine.Step(stepBatch); err != nil {
			result.Err = err
			break
		}
	}
	result.Steps = engine.StepsDone()
	result.Completed = engine.State() == hh.StateCompleted
	result.Diverged = engine.Diverged()
	return result
}

func (l *Lab) persist(ctx context.Context, cfg RunConfig, engine *hh.Engine, result RunResult) error {
	run := model.RunRecord{
		VersionedRecord: storage.Stamp(),
		ID:              cfg.RunID,
		Morphology:      cfg.Morphology,
		CreatedAtUTC:    time.Now().UTC().Format(time.RFC3339),
		Dt:              cfg.Engine.Dt,
		Duration:        cfg.Engine.Duration,
		Compartments:    cfg.Circuit.Size(),
		Steps:           result.Steps,
		Completed:       result.Completed,
		Diverged:        result.Diverged,
	}
	if err := l.store.SaveRun(ctx, run); err != nil {
		return err
	}

	traces := make([]model.TraceRecord, 0, cfg.Circuit.Size())
	for i := 0; i < cfg.Circuit.Size(); i++ {
		times, volts := result.Trace.Series(i)
		traces = append(traces, model.TraceRecord{
			VersionedRecord: storage.Stamp(),
			RunID:           cfg.RunID,
			CompartmentID:   i,
			Times:           times,
			Voltages:        volts,
		})
	}
	return l.store.SaveTraces(ctx, cfg.RunID, traces)
}

func (l *Lab) PauseRun(runID string) error {
	return l.sendCommand(runID, CommandPause)
}

func (l *Lab) ContinueRun(runID string) error {
	return l.sendCommand(runID, CommandContinue)
}

func (l *Lab) StopRun(runID string) error {
	return l.sendCommand(runID, CommandStop)
}

func (l *Lab) registerRun(runID string, control chan Command) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.runs[runID]; exists {
		return fmt.Errorf("run already active: %s", runID)
	}
	l.runs[runID] = control
	return nil
}

func (l *Lab) unregisterRun(runID string) {
	l.mu.Lock()
	delete(l.runs, runID)
	l.mu.Unlock()
}

func (l *Lab) sendCommand(runID string, cmd Command) error {
	l.mu.RLock()
	control, ok := l.runs[runID]
	l.mu.RUnlock()
	if !ok {
		return fmt.Errorf("run not active: %s", runID)
	}
	select {
	case control <- cmd:
		return nil
	default:
		return fmt.Errorf("run control channel is full: %s", runID)
	}
}

// ActiveRuns lists currently registered run ids.
func (l *Lab) ActiveRuns() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	ids := make([]string, 0, len(l.runs))
	for id := range l.runs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
