// Package rescheduler implements the Rescheduling Controller (spec
// §4.8): an hourly sweep that evaluates each enabled job's recent
// execution history against an ordered set of rules and, where a rule
// matches, rewrites the job's cron expression or disables it outright.
//
// Grounded on the teacher's internal/cron ticker-driven runLoop shape
// (internal/cron/service.go), generalized from "is this job due" to "has
// this job's recent history earned a schedule change", with an LRU
// metrics cache (hashicorp/golang-lru/v2) standing in for the teacher's
// unbounded in-memory run log.
package rescheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cronforge/scheduler/internal/domain"
	"github.com/cronforge/scheduler/internal/events"
	"github.com/cronforge/scheduler/internal/store"
)

// DefaultInterval is the spec's hourly sweep cadence.
const DefaultInterval = time.Hour

// DefaultBatchSize bounds how many jobs are evaluated concurrently per
// sweep.
const DefaultBatchSize = 50

// Config controls the controller's cadence and concurrency.
type Config struct {
	Interval  time.Duration
	BatchSize int
	// Enabled is the process-wide toggle; when false, Run still ticks
	// but every sweep is a no-op. Exists so operators can disable
	// automatic rescheduling without restarting the daemon.
	Enabled bool
}

// DefaultConfig returns the spec's recommended defaults, enabled.
func DefaultConfig() Config {
	return Config{Interval: DefaultInterval, BatchSize: DefaultBatchSize, Enabled: true}
}

// registrySyncer is the narrow capability Controller needs from the
// Lifecycle Orchestrator: re-syncing a job's armed timer against the Job
// Registry after the controller itself has already written the job's
// new schedule or enabled state to the store. Kept as a package-local
// interface (rather than importing orchestrator directly) so rescheduler
// stays a leaf package, matching execdriver's invoker pattern.
type registrySyncer interface {
	Rearm(job domain.Job) error
}

// Controller runs the periodic sweep.
type Controller struct {
	store     store.ExecutionStore
	publisher *events.Publisher
	orch      registrySyncer
	cfg       Config
	cache     *metricsCache

	mu      sync.Mutex
	enabled bool
}

// New assembles a Controller.
func New(st store.ExecutionStore, pub *events.Publisher, orch registrySyncer, cfg Config) *Controller {
	return &Controller{
		store:     st,
		publisher: pub,
		orch:      orch,
		cfg:       cfg,
		cache:     newMetricsCache(),
		enabled:   cfg.Enabled,
	}
}

// SetEnabled flips the process-wide toggle at runtime.
func (c *Controller) SetEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = enabled
}

func (c *Controller) isEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// Run blocks, sweeping every cfg.Interval until ctx is cancelled.
func (c *Controller) Run(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !c.isEnabled() {
				continue
			}
			if err := c.Sweep(ctx); err != nil {
				slog.Warn("rescheduler sweep failed", "error", err)
			}
		}
	}
}

// Sweep evaluates every enabled job once, applying at most
// cfg.BatchSize in flight at a time.
func (c *Controller) Sweep(ctx context.Context) error {
	c.cache.purge()

	jobs, err := c.store.ListEnabledJobs(ctx)
	if err != nil {
		return err
	}

	batchSize := c.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	sem := make(chan struct{}, batchSize)
	var wg sync.WaitGroup

	for _, job := range jobs {
		job := job
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			if err := c.evaluateJob(ctx, job); err != nil {
				slog.Warn("rescheduler: evaluate job failed", "job_id", job.ID, "error", err)
			}
		}()
	}
	wg.Wait()
	return nil
}

func (c *Controller) evaluateJob(ctx context.Context, job domain.Job) error {
	var metrics Metrics
	if cached, ok := c.cache.get(job.ID); ok {
		metrics = cached
	} else {
		m, err := computeMetrics(ctx, c.store, job.ID, job.PerAttemptTimeout)
		if err != nil {
			return err
		}
		metrics = m
		c.cache.put(job.ID, m)
	}

	decision := evaluate(job.CronExpression, job.PerAttemptTimeout, metrics)
	if !decision.Changed {
		return nil
	}

	old := job.CronExpression
	if decision.Disable {
		job.Enabled = false
	} else {
		job.CronExpression = decision.NewExpr
	}
	job.UpdatedAt = time.Now()

	if err := c.store.UpdateJob(ctx, job); err != nil {
		return err
	}
	c.cache.invalidate(job.ID)

	if c.orch != nil {
		if err := c.orch.Rearm(job); err != nil {
			slog.Warn("rescheduler: failed to re-arm job after schedule change", "job_id", job.ID, "error", err)
		}
	}

	if old != job.CronExpression {
		change := domain.ScheduleChange{
			ID:            uuid.NewString(),
			JobID:         job.ID,
			OldExpression: old,
			NewExpression: job.CronExpression,
			Reason:        decision.Reason,
			ChangedAt:     job.UpdatedAt,
		}
		if err := c.store.AppendScheduleChange(ctx, change); err != nil {
			return err
		}
		c.publisher.Publish(events.Event{
			Type: events.ScheduleChanged, JobID: job.ID, At: job.UpdatedAt, Detail: change,
		})
		return nil
	}

	// Disable-only decisions leave the cron expression unchanged, so
	// there's no schedule to record — just notify that the job itself
	// changed.
	c.publisher.Publish(events.Event{
		Type: events.JobUpdated, JobID: job.ID, At: job.UpdatedAt, Detail: job,
	})
	return nil
}
