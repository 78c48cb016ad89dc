// Package memory provides an in-memory ExecutionStore used by tests;
// cmd/schedulerd always uses the Postgres store.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/cronforge/scheduler/internal/domain"
)

// Store is a mutex-guarded in-memory implementation of store.ExecutionStore.
type Store struct {
	mu         sync.Mutex
	jobs       map[string]domain.Job
	executions map[string]domain.Execution
	changes    []domain.ScheduleChange
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		jobs:       make(map[string]domain.Job),
		executions: make(map[string]domain.Execution),
	}
}

func (s *Store) ListEnabledJobs(ctx context.Context) ([]domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		if j.Enabled {
			out = append(out, j)
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].ID < out[k].ID })
	return out, nil
}

func (s *Store) GetJob(ctx context.Context, jobID string) (domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[jobID]
	if !ok {
		return domain.Job{}, &domain.NotFoundError{Kind: "job", ID: jobID}
	}
	return j, nil
}

func (s *Store) CreateJob(ctx context.Context, job domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
	return nil
}

func (s *Store) UpdateJob(ctx context.Context, job domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; !ok {
		return &domain.NotFoundError{Kind: "job", ID: job.ID}
	}
	s.jobs[job.ID] = job
	return nil
}

func (s *Store) DeleteJob(ctx context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[jobID]; !ok {
		return &domain.NotFoundError{Kind: "job", ID: jobID}
	}
	delete(s.jobs, jobID)
	return nil
}

func (s *Store) CreateExecution(ctx context.Context, exec domain.Execution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.executions[exec.ID] = exec
	return nil
}

// TerminalUpdate applies both writes under the same lock, matching the
// single-transaction guarantee the pg backend provides with a real
// database transaction.
func (s *Store) TerminalUpdate(ctx context.Context, exec domain.Execution, job domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; !ok {
		return &domain.NotFoundError{Kind: "job", ID: job.ID}
	}
	s.executions[exec.ID] = exec
	s.jobs[job.ID] = job
	return nil
}

func (s *Store) AppendScheduleChange(ctx context.Context, change domain.ScheduleChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.changes = append(s.changes, change)
	return nil
}

func (s *Store) RecentExecutions(ctx context.Context, jobID string, limit int) ([]domain.Execution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	matched := make([]domain.Execution, 0)
	for _, e := range s.executions {
		if e.JobID == jobID {
			matched = append(matched, e)
		}
	}
	sort.Slice(matched, func(i, k int) bool {
		return matched[i].StartedAt.After(matched[k].StartedAt)
	})
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}
