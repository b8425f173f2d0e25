package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neurite/internal/model"
)

func newTestStore(t *testing.T) *MemoryStore {
	t.Helper()
	s := NewMemoryStore()
	require.NoError(t, s.Init(context.Background()))
	return s
}

func TestMemoryStoreMorphologyRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	summary := model.MorphologySummary{
		VersionedRecord: Stamp(),
		Name:            "pyramidal",
		RecordCount:     42,
		CircuitCount:    1,
		KindCounts:      map[string]int{"soma": 1, "basal_dendrite": 41},
	}
	require.NoError(t, s.SaveMorphology(ctx, summary))

	got, ok, err := s.GetMorphology(ctx, "pyramidal")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, summary, got)

	_, ok, err = s.GetMorphology(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStoreListRunsOrdering(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	runs := []model.RunRecord{
		{VersionedRecord: Stamp(), ID: "b", CreatedAtUTC: "2026-08-26T10:00:00Z"},
		{VersionedRecord: Stamp(), ID: "a", CreatedAtUTC: "2026-08-26T10:00:00Z"},
		{VersionedRecord: Stamp(), ID: "c", CreatedAtUTC: "2026-08-26T09:00:00Z"},
	}
	for _, r := range runs {
		require.NoError(t, s.SaveRun(ctx, r))
	}

	listed, err := s.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 3)
	// Oldest first, id breaking ties.
	assert.Equal(t, "c", listed[0].ID)
	assert.Equal(t, "a", listed[1].ID)
	assert.Equal(t, "b", listed[2].ID)
}

func TestMemoryStoreTracesAreCopied(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	traces := []model.TraceRecord{
		{VersionedRecord: Stamp(), RunID: "r1", CompartmentID: 0, Times: []float64{0, 1}, Voltages: []float64{-65, -64}},
	}
	require.NoError(t, s.SaveTraces(ctx, "r1", traces))

	traces[0].CompartmentID = 99
	got, ok, err := s.GetTraces(ctx, "r1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 0, got[0].CompartmentID, "stored traces must not alias the caller's slice")

	_, ok, err = s.GetTraces(ctx, "nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStoreReset(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.SaveRun(ctx, model.RunRecord{VersionedRecord: Stamp(), ID: "r1"}))
	require.NoError(t, s.Reset(ctx))

	_, ok, err := s.GetRun(ctx, "r1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCodecVersionGuard(t *testing.T) {
	run := model.RunRecord{VersionedRecord: Stamp(), ID: "r1", Steps: 100}
	data, err := EncodeRun(run)
	require.NoError(t, err)

	decoded, err := DecodeRun(data)
	require.NoError(t, err)
	assert.Equal(t, run, decoded)

	// Records written by a future schema are rejected, not misread.
	future := run
	future.SchemaVersion = CurrentSchemaVersion + 1
	data, err = EncodeRun(future)
	require.NoError(t, err)
	_, err = DecodeRun(data)
	assert.ErrorIs(t, err, ErrVersionMismatch)
}
