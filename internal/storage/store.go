package storage

import (
	"context"

	"neurite/internal/model"
)

// Store persists built morphologies, simulation runs, and voltage traces.
type Store interface {
	Init(ctx context.Context) error
	SaveMorphology(ctx context.Context, summary model.MorphologySummary) error
	GetMorphology(ctx context.Context, name string) (model.MorphologySummary, bool, error)
	SaveRun(ctx context.Context, run model.RunRecord) error
	GetRun(ctx context.Context, id string) (model.RunRecord, bool, error)
	ListRuns(ctx context.Context) ([]model.RunRecord, error)
	SaveTraces(ctx context.Context, runID string, traces []model.TraceRecord) error
	GetTraces(ctx context.Context, runID string) ([]model.TraceRecord, bool, error)
}

// Resetter is implemented by stores that can drop all persisted state.
type Resetter interface {
	Reset(ctx context.Context) error
}
