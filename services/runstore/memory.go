package runstore

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-process Store used in tests and in run-once mode
// where no Redis is available
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*RunRecord
}

// NewMemoryStore creates a new in-memory run store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*RunRecord)}
}

// CreateRun persists a new run in the queued state
func (s *MemoryStore) CreateRun(_ context.Context, record *RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	record.Status = StatusQueued
	record.CreatedAt = now
	record.UpdatedAt = now
	clone := *record
	s.records[record.ID] = &clone
	return nil
}

// MarkRunning transitions a run to running
func (s *MemoryStore) MarkRunning(_ context.Context, id string) error {
	return s.update(id, func(record *RunRecord) {
		record.Status = StatusRunning
	})
}

// MarkSucceeded transitions a run to succeeded with its artifacts
func (s *MemoryStore) MarkSucceeded(_ context.Context, id string, artifacts Artifacts) error {
	return s.update(id, func(record *RunRecord) {
		record.Status = StatusSucceeded
		record.Artifacts = artifacts
		record.Error = ""
	})
}

// MarkFailed transitions a run to failed with an error message
func (s *MemoryStore) MarkFailed(_ context.Context, id string, errMsg string) error {
	return s.update(id, func(record *RunRecord) {
		record.Status = StatusFailed
		record.Error = errMsg
	})
}

// GetRun retrieves a run by id
func (s *MemoryStore) GetRun(_ context.Context, id string) (*RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *record
	return &clone, nil
}

// ListRuns returns the most recent runs, newest first
func (s *MemoryStore) ListRuns(_ context.Context, limit int) ([]*RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]*RunRecord, 0, len(s.records))
	for _, record := range s.records {
		clone := *record
		records = append(records, &clone)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	if len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// Close is a no-op for the memory store
func (s *MemoryStore) Close() error {
	return nil
}

func (s *MemoryStore) update(id string, apply func(*RunRecord)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[id]
	if !ok {
		return ErrNotFound
	}
	apply(record)
	record.UpdatedAt = time.Now().UTC()
	return nil
}
