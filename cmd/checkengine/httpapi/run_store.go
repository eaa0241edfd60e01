package httpapi

import (
	"sync"

	"github.com/checkrun-dev/engine/internal/observer"
	"github.com/checkrun-dev/engine/pkg/models"
)

// runHandle tracks one submitted run's lifecycle for GET /runs/:id and
// GET /runs/:id/events.
type runHandle struct {
	mu     sync.RWMutex
	id     string
	status string // "running" | "completed" | "failed"
	result *models.AnalysisResult
	errMsg string
	hub    *observer.WebSocketHub
}

func (h *runHandle) snapshot() (status string, result *models.AnalysisResult, errMsg string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.status, h.result, h.errMsg
}

func (h *runHandle) finish(result *models.AnalysisResult, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err != nil {
		h.status = "failed"
		h.errMsg = err.Error()
		return
	}
	h.status = "completed"
	h.result = result
}

// runStore is an in-process registry of in-flight and completed runs.
// A real deployment would back this with internal/storage instead of
// memory; this demo server keeps runs only as long as it stays
// up, matching pkg/journal's own in-memory-by-default posture.
type runStore struct {
	mu   sync.RWMutex
	runs map[string]*runHandle
}

func newRunStore() *runStore {
	return &runStore{runs: make(map[string]*runHandle)}
}

func (s *runStore) create(id string, hub *observer.WebSocketHub) *runHandle {
	h := &runHandle{id: id, status: "running", hub: hub}
	s.mu.Lock()
	s.runs[id] = h
	s.mu.Unlock()
	return h
}

func (s *runStore) get(id string) (*runHandle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.runs[id]
	return h, ok
}

func (s *runStore) stopAll() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, h := range s.runs {
		if h.hub != nil {
			h.hub.Stop()
		}
	}
}
