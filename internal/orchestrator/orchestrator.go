// Package orchestrator implements the Lifecycle Orchestrator (spec
// §4.9): it rehydrates enabled jobs at boot, arms and re-arms each job's
// timer against the Job Registry, and applies external commands
// (job created/updated/deleted/enabled/disabled, manual trigger) by
// mutating the registry and store in lock-step. It also owns graceful
// shutdown: stop arming new firings, let in-flight ones drain.
//
// Grounded on the teacher's internal/cron.Service: the same
// load-then-runLoop boot shape and AddJob/RemoveJob/EnableJob external
// command surface, generalized from a single global ticker to one
// independently armed timer per job (needed once each job carries its
// own cron expression and timezone rather than sharing one service-wide
// tick).
package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"github.com/cronforge/scheduler/internal/cronclock"
	"github.com/cronforge/scheduler/internal/domain"
	"github.com/cronforge/scheduler/internal/events"
	"github.com/cronforge/scheduler/internal/execdriver"
	"github.com/cronforge/scheduler/internal/registry"
	"github.com/cronforge/scheduler/internal/store"
	"github.com/cronforge/scheduler/internal/workerpool"
)

// Orchestrator wires the Clock & Cron Evaluator, Job Registry, Worker
// Pool, and Execution Driver into the running system.
type Orchestrator struct {
	store     store.ExecutionStore
	evaluator *cronclock.Evaluator
	clock     cronclock.Clock
	registry  *registry.Registry
	pool      *workerpool.Pool
	driver    *execdriver.Driver
	publisher *events.Publisher
}

// New assembles an Orchestrator from its collaborators.
func New(
	st store.ExecutionStore,
	ev *cronclock.Evaluator,
	clk cronclock.Clock,
	reg *registry.Registry,
	pool *workerpool.Pool,
	driver *execdriver.Driver,
	pub *events.Publisher,
) *Orchestrator {
	return &Orchestrator{
		store:     st,
		evaluator: ev,
		clock:     clk,
		registry:  reg,
		pool:      pool,
		driver:    driver,
		publisher: pub,
	}
}

// Boot rehydrates every enabled job from the store and arms its timer.
// Called once at process startup.
func (o *Orchestrator) Boot(ctx context.Context) error {
	jobs, err := o.store.ListEnabledJobs(ctx)
	if err != nil {
		return err
	}
	for _, job := range jobs {
		if err := o.arm(job); err != nil {
			slog.Warn("orchestrator: failed to arm job at boot", "job_id", job.ID, "error", err)
			continue
		}
	}
	slog.Info("orchestrator booted", "armed_jobs", o.registry.Len())
	return nil
}

// arm computes job's next firing and registers a timer that, when it
// fires, submits the job to the worker pool and re-arms itself.
func (o *Orchestrator) arm(job domain.Job) error {
	next, err := o.evaluator.Next(job.CronExpression, job.Timezone, o.clock.Now())
	if err != nil {
		return err
	}
	delay := next.Sub(o.clock.Now())
	if delay < 0 {
		delay = 0
	}

	var timer *time.Timer
	timer = time.AfterFunc(delay, func() { o.onTimerFire(job.ID) })
	o.registry.Register(job.ID, job.CronExpression, timer)
	return nil
}

// onTimerFire runs when a job's armed timer elapses: it submits the
// firing to the worker pool (scheduled priority, not manual) and,
// regardless of outcome, re-arms the job's timer for its next firing.
func (o *Orchestrator) onTimerFire(jobID string) {
	ctx := context.Background()
	job, err := o.store.GetJob(ctx, jobID)
	if err != nil {
		slog.Warn("orchestrator: job vanished before firing", "job_id", jobID, "error", err)
		return
	}
	if !job.Enabled {
		return
	}

	submitErr := o.pool.Submit(ctx, false, func() {
		if err := o.driver.Fire(ctx, job); err != nil {
			slog.Warn("orchestrator: execution driver failed", "job_id", jobID, "error", err)
		}
	})
	if submitErr != nil {
		slog.Warn("orchestrator: failed to submit firing", "job_id", jobID, "error", submitErr)
	}

	if err := o.arm(job); err != nil {
		slog.Warn("orchestrator: failed to re-arm job", "job_id", jobID, "error", err)
	}
}

// OnJobCreated persists a new job and arms its timer if enabled.
func (o *Orchestrator) OnJobCreated(ctx context.Context, job domain.Job) error {
	if err := job.Validate(); err != nil {
		return err
	}
	if err := o.store.CreateJob(ctx, job); err != nil {
		return err
	}
	if job.Enabled {
		if err := o.arm(job); err != nil {
			return err
		}
	}
	o.publisher.Publish(events.Event{Type: events.JobCreated, JobID: job.ID, At: o.clock.Now()})
	return nil
}

// OnJobUpdated persists an updated job and re-arms (or disarms) its
// timer to reflect the new schedule/enabled state.
func (o *Orchestrator) OnJobUpdated(ctx context.Context, job domain.Job) error {
	if err := job.Validate(); err != nil {
		return err
	}
	if err := o.store.UpdateJob(ctx, job); err != nil {
		return err
	}
	o.registry.Unregister(job.ID)
	if job.Enabled {
		if err := o.arm(job); err != nil {
			return err
		}
	}
	o.publisher.Publish(events.Event{Type: events.JobUpdated, JobID: job.ID, At: o.clock.Now()})
	return nil
}

// OnJobDeleted disarms and removes a job permanently.
func (o *Orchestrator) OnJobDeleted(ctx context.Context, jobID string) error {
	o.registry.Unregister(jobID)
	if err := o.store.DeleteJob(ctx, jobID); err != nil {
		return err
	}
	o.publisher.Publish(events.Event{Type: events.JobDeleted, JobID: jobID, At: o.clock.Now()})
	return nil
}

// OnJobEnabled arms a previously disabled job.
func (o *Orchestrator) OnJobEnabled(ctx context.Context, jobID string) error {
	job, err := o.store.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	job.Enabled = true
	job.UpdatedAt = o.clock.Now()
	if err := o.store.UpdateJob(ctx, job); err != nil {
		return err
	}
	if err := o.arm(job); err != nil {
		return err
	}
	o.publisher.Publish(events.Event{Type: events.JobUpdated, JobID: jobID, At: job.UpdatedAt})
	return nil
}

// OnJobDisabled disarms a job without deleting it.
func (o *Orchestrator) OnJobDisabled(ctx context.Context, jobID string) error {
	job, err := o.store.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	job.Enabled = false
	job.UpdatedAt = o.clock.Now()
	if err := o.store.UpdateJob(ctx, job); err != nil {
		return err
	}
	o.registry.Unregister(jobID)
	o.publisher.Publish(events.Event{Type: events.JobUpdated, JobID: jobID, At: job.UpdatedAt})
	return nil
}

// TriggerManual fires jobID outside its normal schedule. When force is
// false, it only runs if the job is currently due (nextFireAt has
// passed); mode "force"/"due" per the teacher's RunJob(jobID, force).
// Manual triggers are submitted at high priority so they jump ahead of
// scheduled firings already waiting for a worker pool slot.
func (o *Orchestrator) TriggerManual(ctx context.Context, jobID string, force bool) (ran bool, reason string, err error) {
	job, err := o.store.GetJob(ctx, jobID)
	if err != nil {
		return false, "", err
	}

	if !force {
		now := o.clock.Now()
		if job.NextFireAt == nil || job.NextFireAt.After(now) {
			return false, "not-due", nil
		}
	}

	if err := o.pool.Submit(ctx, true, func() {
		if err := o.driver.Fire(context.Background(), job); err != nil {
			slog.Warn("orchestrator: manual trigger execution failed", "job_id", jobID, "error", err)
		}
	}); err != nil {
		return false, "", err
	}
	return true, "", nil
}

// Rearm re-syncs job's armed timer against the registry after some
// other component (the rescheduling controller) has already written the
// job's new schedule to the store. It only touches the registry — the
// caller owns the store write and its own event — so unlike
// OnJobUpdated it never calls UpdateJob or publishes.
func (o *Orchestrator) Rearm(job domain.Job) error {
	o.registry.Unregister(job.ID)
	if !job.Enabled {
		return nil
	}
	return o.arm(job)
}

// Shutdown stops arming new firings and waits, up to ctx's deadline,
// for in-flight executions to drain.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.registry.StopAll()
	return o.pool.Shutdown(ctx)
}
