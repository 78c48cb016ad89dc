// Package registry implements the Job Registry (spec §4.5): an
// in-memory map from job ID to its active timer, serving as the single
// source of truth for "what is currently scheduled". All mutation goes
// through a single-writer path so register/unregister never race with
// a concurrent snapshot.
package registry

import "sync"

// Timer is the minimal shape the registry needs from whatever timer
// primitive the Lifecycle Orchestrator uses to drive a job's next
// firing (a *time.Timer, in production).
type Timer interface {
	Stop() bool
}

// entry pairs a job's active timer with the cron expression it was
// armed against, so callers can detect drift between the expression
// the registry last registered and any newer value on hand.
type entry struct {
	timer      Timer
	expression string
}

// Registry is the single authoritative map of job ID to active timer.
// All exported methods are safe for concurrent use; Register always
// stops and replaces any prior timer for the same job ID so a job is
// never armed twice.
type Registry struct {
	mu      sync.Mutex
	entries map[string]entry
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// Register arms timer for jobID, stopping and discarding any
// previously registered timer for the same job first. This makes
// Register idempotent under reschedule: callers never need to check
// Has before calling it.
func (r *Registry) Register(jobID, expression string, timer Timer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.entries[jobID]; ok {
		prev.timer.Stop()
	}
	r.entries[jobID] = entry{timer: timer, expression: expression}
}

// Unregister stops and removes jobID's timer, if any. Safe to call on
// an unregistered job ID.
func (r *Registry) Unregister(jobID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[jobID]; ok {
		e.timer.Stop()
		delete(r.entries, jobID)
	}
}

// Has reports whether jobID currently has an active timer.
func (r *Registry) Has(jobID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[jobID]
	return ok
}

// Expression returns the cron expression jobID was last registered
// with, and whether it is currently registered at all.
func (r *Registry) Expression(jobID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[jobID]
	return e.expression, ok
}

// Snapshot returns the set of currently registered job IDs. The slice
// is a copy; mutating it has no effect on the registry.
func (r *Registry) Snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	return ids
}

// Len returns the number of currently registered jobs.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// StopAll stops every registered timer and clears the registry, used
// during graceful shutdown.
func (r *Registry) StopAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		e.timer.Stop()
	}
	r.entries = make(map[string]entry)
}
