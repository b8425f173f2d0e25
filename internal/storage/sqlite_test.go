//go:build sqlite

package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neurite/internal/model"
)

func newSQLiteTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s := NewSQLiteStore(filepath.Join(t.TempDir(), "neurite.db"))
	require.NoError(t, s.Init(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStoreRequiresPath(t *testing.T) {
	s := NewSQLiteStore("")
	require.Error(t, s.Init(context.Background()))
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteTestStore(t)

	summary := model.MorphologySummary{
		VersionedRecord: Stamp(),
		Name:            "ball-and-stick",
		RecordCount:     2,
		CircuitCount:    1,
		KindCounts:      map[string]int{"soma": 1, "basal_dendrite": 1},
	}
	require.NoError(t, s.SaveMorphology(ctx, summary))

	got, ok, err := s.GetMorphology(ctx, "ball-and-stick")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, summary, got)

	run := model.RunRecord{
		VersionedRecord: Stamp(),
		ID:              "run-1",
		Morphology:      "ball-and-stick",
		CreatedAtUTC:    "2026-08-26T12:00:00Z",
		Dt:              0.0001,
		Duration:        5,
		Compartments:    2,
		Steps:           50000,
		Completed:       true,
	}
	require.NoError(t, s.SaveRun(ctx, run))

	gotRun, ok, err := s.GetRun(ctx, "run-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, run, gotRun)

	traces := []model.TraceRecord{
		{VersionedRecord: Stamp(), RunID: "run-1", CompartmentID: 0, Times: []float64{0}, Voltages: []float64{-65}},
		{VersionedRecord: Stamp(), RunID: "run-1", CompartmentID: 1, Times: []float64{0}, Voltages: []float64{-65}},
	}
	require.NoError(t, s.SaveTraces(ctx, "run-1", traces))

	gotTraces, ok, err := s.GetTraces(ctx, "run-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, traces, gotTraces)
}

func TestSQLiteStoreUpsert(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteTestStore(t)

	run := model.RunRecord{VersionedRecord: Stamp(), ID: "run-1", CreatedAtUTC: "2026-08-26T12:00:00Z"}
	require.NoError(t, s.SaveRun(ctx, run))
	run.Steps = 99
	require.NoError(t, s.SaveRun(ctx, run))

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 99, runs[0].Steps)
}

func TestSQLiteStoreReset(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteTestStore(t)

	require.NoError(t, s.SaveRun(ctx, model.RunRecord{VersionedRecord: Stamp(), ID: "run-1", CreatedAtUTC: "x"}))
	require.NoError(t, s.Reset(ctx))

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	assert.Empty(t, runs)
}
