package store

import (
	"context"
	"sync"
)

// MemoryStatus keeps job status in process. Used when Redis is disabled.
type MemoryStatus struct {
	mu   sync.RWMutex
	jobs map[string]Status
}

func NewMemoryStatus() *MemoryStatus {
	return &MemoryStatus{jobs: make(map[string]Status)}
}

func (m *MemoryStatus) Set(_ context.Context, jobID string, st Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	// HSet semantics: an empty result does not erase a stored one.
	if prev, ok := m.jobs[jobID]; ok && len(st.Result) == 0 {
		st.Result = prev.Result
	}
	m.jobs[jobID] = st
	return nil
}

func (m *MemoryStatus) Get(_ context.Context, jobID string) (Status, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.jobs[jobID]
	return st, ok, nil
}
