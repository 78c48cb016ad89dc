// Package store defines the narrow Execution Store interface (spec §4.3):
// durable persistence of jobs, executions, and schedule-change records
// behind an interface the core consumes without knowing the backing
// engine. This mirrors the teacher's store.CronStore / store.AgentStore
// shape — a small interface in the store package, with swappable
// backends underneath (internal/store/pg, internal/store/memory).
package store

import (
	"context"

	"github.com/cronforge/scheduler/internal/domain"
)

// StoreError wraps a backing-store failure. Per spec §7, terminal
// writes that fail leave the Execution in RUNNING and the Job's
// lifecycleStatus indeterminate; callers log and let the next firing
// converge state rather than panicking.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return "store: " + e.Op + ": " + e.Err.Error() }
func (e *StoreError) Unwrap() error { return e.Err }

// ExecutionStore is the narrow transactional interface the core consumes.
// Every operation is atomic; TerminalUpdate is the store's only
// cross-entity write (Execution + Job in one transaction).
type ExecutionStore interface {
	// ListEnabledJobs returns every job with enabled=true, used at boot
	// to rehydrate the Job Registry.
	ListEnabledJobs(ctx context.Context) ([]domain.Job, error)

	// GetJob fetches a single job by identifier. Returns *domain.NotFoundError
	// if absent.
	GetJob(ctx context.Context, jobID string) (domain.Job, error)

	// CreateJob persists a new job row.
	CreateJob(ctx context.Context, job domain.Job) error

	// UpdateJob mutates an existing job row in place.
	UpdateJob(ctx context.Context, job domain.Job) error

	// DeleteJob removes a job row.
	DeleteJob(ctx context.Context, jobID string) error

	// CreateExecution inserts a new Execution row in RUNNING state.
	CreateExecution(ctx context.Context, exec domain.Execution) error

	// TerminalUpdate atomically updates exec to its terminal state and
	// the parent job's lifecycleStatus + nextFireAt. This is the core's
	// only cross-entity write (spec §4.3, §4.7).
	TerminalUpdate(ctx context.Context, exec domain.Execution, job domain.Job) error

	// AppendScheduleChange writes an immutable audit row.
	AppendScheduleChange(ctx context.Context, change domain.ScheduleChange) error

	// RecentExecutions returns the last limit executions for a job
	// (limit up to 100), ordered by startedAt descending.
	RecentExecutions(ctx context.Context, jobID string, limit int) ([]domain.Execution, error)
}

// maxRecentExecutions caps RecentExecutions per spec §4.3/§4.8.
const maxRecentExecutions = 100

// ClampRecentLimit bounds a requested limit to the store's allowed range.
func ClampRecentLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > maxRecentExecutions {
		return maxRecentExecutions
	}
	return limit
}
