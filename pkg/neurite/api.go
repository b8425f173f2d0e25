// Package neurite is the public facade over the morphology pipeline:
// parse SWC, build circuits, discretize by the d-lambda rule, simulate
// Hodgkin-Huxley dynamics, and query persisted traces.
package neurite

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"neurite/internal/cable"
	"neurite/internal/circuit"
	"neurite/internal/model"
	"neurite/internal/platform"
	"neurite/internal/profile"
	"neurite/internal/storage"
	"neurite/internal/swc"
)

type Options struct {
	StoreKind string
	DBPath    string
	Logger    *zap.Logger
	Workers   int
}

type Client struct {
	store storage.Store
	lab   *platform.Lab
}

func NewClient(ctx context.Context, opts Options) (*Client, error) {
	store, err := storage.NewStore(opts.StoreKind, opts.DBPath)
	if err != nil {
		return nil, err
	}
	lab := platform.NewLab(platform.Config{
		Store:   store,
		Logger:  opts.Logger,
		Workers: opts.Workers,
	})
	if err := lab.Init(ctx); err != nil {
		_ = storage.CloseIfSupported(store)
		return nil, err
	}
	return &Client{store: store, lab: lab}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

// Lab exposes the orchestrator for run control (pause/continue/stop).
func (c *Client) Lab() *platform.Lab {
	return c.lab
}

// CircuitInfo summarizes one built circuit.
type CircuitInfo struct {
	RootID       int
	Compartments int
	TotalLength  float64
}

// MorphologyInfo summarizes a parsed and built morphology file.
type MorphologyInfo struct {
	Name       string
	Records    int
	KindCounts map[string]int
	Circuits   []CircuitInfo
	Warnings   []string
}

// Inspect parses and builds a morphology without simulating, persists the
// summary, and reports structure and warnings.
func (c *Client) Inspect(ctx context.Context, path string, strict bool) (MorphologyInfo, error) {
	name, circuits, warnings, counts, err := c.loadAndBuild(path, strict, false)
	if err != nil {
		return MorphologyInfo{}, err
	}

	info := MorphologyInfo{
		Name:       name,
		KindCounts: counts,
		Warnings:   warningStrings(warnings),
	}
	for _, circ := range circuits {
		info.Records += circ.Size()
		info.Circuits = append(info.Circuits, CircuitInfo{
			RootID:       circ.Root().ID,
			Compartments: circ.Size(),
			TotalLength:  circ.TotalLength(),
		})
	}

	if err := c.lab.SaveMorphology(ctx, buildSummary(name, circuits, warnings, counts)); err != nil {
		return MorphologyInfo{}, err
	}
	return info, nil
}

// SimulateRequest drives the full pipeline for one morphology file. Each
// circuit in the file becomes its own isolated run.
type SimulateRequest struct {
	Path    string
	Name    string
	RunID   string
	Strict  bool
	Profile profile.Profile
}

// RunItem reports one circuit's run within a simulate request.
type RunItem struct {
	RunID        string
	Compartments int
	Steps        int
	Completed    bool
	Diverged     bool
	Err          string
}

// SimulateSummary is what a simulate request produced.
type SimulateSummary struct {
	Name     string
	Warnings []string
	Runs     []RunItem
}

func (c *Client) Simulate(ctx context.Context, req SimulateRequest) (SimulateSummary, error) {
	if err := req.Profile.Validate(); err != nil {
		return SimulateSummary{}, err
	}

	name, circuits, warnings, counts, err := c.loadAndBuild(req.Path, req.Strict, req.Profile.RepairZeroRadius)
	if err != nil {
		return SimulateSummary{}, err
	}
	if req.Name != "" {
		name = req.Name
	}

	params := req.Profile.CableParams()
	for _, circ := range circuits {
		if err := cable.Discretize(circ, params); err != nil {
			return SimulateSummary{}, err
		}
	}

	engineCfg, err := req.Profile.EngineConfig()
	if err != nil {
		return SimulateSummary{}, err
	}

	runID := req.RunID
	if runID == "" {
		runID = name
	}
	cfgs := make([]platform.RunConfig, 0, len(circuits))
	for i, circ := range circuits {
		id := runID
		if len(circuits) > 1 {
			id = fmt.Sprintf("%s-%d", runID, i)
		}
		cfgs = append(cfgs, platform.RunConfig{
			RunID:      id,
			Morphology: name,
			Circuit:    circ,
			Engine:     engineCfg,
		})
	}

	if err := c.lab.SaveMorphology(ctx, buildSummary(name, circuits, warnings, counts)); err != nil {
		return SimulateSummary{}, err
	}

	results, err := c.lab.SimulateAll(ctx, cfgs)
	if err != nil {
		return SimulateSummary{}, err
	}

	summary := SimulateSummary{Name: name, Warnings: warningStrings(warnings)}
	for _, res := range results {
		item := RunItem{
			RunID:        res.RunID,
			Steps:        res.Steps,
			Completed:    res.Completed,
			Diverged:     res.Diverged,
			Compartments: compartmentsOf(res, cfgs),
		}
		if res.Err != nil {
			item.Err = res.Err.Error()
		}
		summary.Runs = append(summary.Runs, item)
	}
	return summary, nil
}

// RunInfo mirrors a persisted run record.
type RunInfo struct {
	RunID        string
	Morphology   string
	CreatedAtUTC string
	Dt           float64
	Duration     float64
	Compartments int
	Steps        int
	Completed    bool
	Diverged     bool
}

func (c *Client) Runs(ctx context.Context) ([]RunInfo, error) {
	runs, err := c.store.ListRuns(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]RunInfo, 0, len(runs))
	for _, run := range runs {
		out = append(out, RunInfo{
			RunID:        run.ID,
			Morphology:   run.Morphology,
			CreatedAtUTC: run.CreatedAtUTC,
			Dt:           run.Dt,
			Duration:     run.Duration,
			Compartments: run.Compartments,
			Steps:        run.Steps,
			Completed:    run.Completed,
			Diverged:     run.Diverged,
		})
	}
	return out, nil
}

// Trace returns the persisted voltage series for one compartment of a run.
func (c *Client) Trace(ctx context.Context, runID string, compartment int) (times, volts []float64, err error) {
	traces, ok, err := c.store.GetTraces(ctx, runID)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, fmt.Errorf("no traces for run %s", runID)
	}
	for _, tr := range traces {
		if tr.CompartmentID == compartment {
			return tr.Times, tr.Voltages, nil
		}
	}
	return nil, nil, fmt.Errorf("run %s has no compartment %d", runID, compartment)
}

// ExportProcessed writes the normalized form of a morphology file:
// comments stripped, records renumbered sequentially in topological order.
func (c *Client) ExportProcessed(path, outPath string, strict bool) error {
	_, circuits, _, _, err := c.loadAndBuild(path, strict, false)
	if err != nil {
		return err
	}
	var records []model.Record
	offset := 0
	for _, circ := range circuits {
		for _, rec := range circ.Normalize() {
			rec.ID += offset
			if rec.ParentID != model.NoParent {
				rec.ParentID += offset
			}
			records = append(records, rec)
		}
		offset += circ.Size()
	}
	return swc.WriteProcessedFile(outPath, records)
}

func (c *Client) loadAndBuild(path string, strict, repair bool) (
	name string,
	circuits []*circuit.Circuit,
	warnings []circuit.Warning,
	counts map[string]int,
	err error,
) {
	records, err := swc.ParseFile(path, swc.Options{Strict: strict})
	if err != nil {
		return "", nil, nil, nil, err
	}
	circuits, warnings, err = circuit.BuildWith(records, circuit.BuildOptions{RepairZeroRadius: repair})
	if err != nil {
		return "", nil, nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return name, circuits, warnings, swc.CountKinds(records), nil
}

func buildSummary(name string, circuits []*circuit.Circuit, warnings []circuit.Warning, counts map[string]int) model.MorphologySummary {
	summary := model.MorphologySummary{
		Name:         name,
		CircuitCount: len(circuits),
		KindCounts:   counts,
	}
	for _, circ := range circuits {
		summary.RecordCount += circ.Size()
	}
	for _, w := range warnings {
		if w.Code == circuit.WarnZeroRadius {
			summary.ZeroRadiusIDs = append(summary.ZeroRadiusIDs, w.ID)
		}
	}
	return summary
}

func warningStrings(warnings []circuit.Warning) []string {
	out := make([]string, 0, len(warnings))
	for _, w := range warnings {
		out = append(out, w.String())
	}
	return out
}

func compartmentsOf(res platform.RunResult, cfgs []platform.RunConfig) int {
	for _, cfg := range cfgs {
		if cfg.RunID == res.RunID {
			return cfg.Circuit.Size()
		}
	}
	return 0
}
