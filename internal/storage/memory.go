package storage

import (
	"context"
	"sort"
	"sync"

	"neurite/internal/model"
)

type MemoryStore struct {
	mu           sync.RWMutex
	initialized  bool
	morphologies map[string]model.MorphologySummary
	runs         map[string]model.RunRecord
	traces       map[string][]model.TraceRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.morphologies = make(map[string]model.MorphologySummary)
	s.runs = make(map[string]model.RunRecord)
	s.traces = make(map[string][]model.TraceRecord)
	return nil
}

func (s *MemoryStore) Reset(ctx context.Context) error {
	return s.Init(ctx)
}

func (s *MemoryStore) SaveMorphology(_ context.Context, summary model.MorphologySummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.morphologies[summary.Name] = summary
	return nil
}

func (s *MemoryStore) GetMorphology(_ context.Context, name string) (model.MorphologySummary, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary, ok := s.morphologies[name]
	return summary, ok, nil
}

func (s *MemoryStore) SaveRun(_ context.Context, run model.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs[run.ID] = run
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, id string) (model.RunRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	return run, ok, nil
}

func (s *MemoryStore) ListRuns(_ context.Context) ([]model.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]model.RunRecord, 0, len(s.runs))
	for _, run := range s.runs {
		runs = append(runs, run)
	}
	sort.Slice(runs, func(i, j int) bool {
		if runs[i].CreatedAtUTC != runs[j].CreatedAtUTC {
			return runs[i].CreatedAtUTC < runs[j].CreatedAtUTC
		}
		return runs[i].ID < runs[j].ID
	})
	return runs, nil
}

func (s *MemoryStore) SaveTraces(_ context.Context, runID string, traces []model.TraceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make([]model.TraceRecord, len(traces))
	copy(copied, traces)
	s.traces[runID] = copied
	return nil
}

func (s *MemoryStore) GetTraces(_ context.Context, runID string) ([]model.TraceRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	traces, ok := s.traces[runID]
	if !ok {
		return nil, false, nil
	}
	copied := make([]model.TraceRecord, len(traces))
	copy(copied, traces)
	return copied, true, nil
}
