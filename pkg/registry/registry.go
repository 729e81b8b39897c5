// Package registry tracks which pipelines this server instance is
// currently supervising.
package registry

import (
	"sync"

	"github.com/google/uuid"
)

// SupervisorRegistry is the process-wide set of in-flight pipeline ids.
//
// A pipeline id is in the set iff a live supervision task for it exists
// in this process: insert before spawning, remove at task exit. The lock
// is held only for insert/remove/contains; no I/O under the lock.
type SupervisorRegistry struct {
	mu       sync.RWMutex
	inFlight map[uuid.UUID]struct{}
}

func New() *SupervisorRegistry {
	return &SupervisorRegistry{inFlight: map[uuid.UUID]struct{}{}}
}

// Add records the pipeline as supervised. It reports false when the
// pipeline was already in the set, so two callers cannot both spawn.
func (r *SupervisorRegistry) Add(pipelineID uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.inFlight[pipelineID]; ok {
		return false
	}
	r.inFlight[pipelineID] = struct{}{}
	return true
}

func (r *SupervisorRegistry) Remove(pipelineID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.inFlight, pipelineID)
}

func (r *SupervisorRegistry) Contains(pipelineID uuid.UUID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.inFlight[pipelineID]
	return ok
}

func (r *SupervisorRegistry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.inFlight)
}
