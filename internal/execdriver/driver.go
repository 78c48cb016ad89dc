// Package execdriver implements the Execution Driver (spec §4.7): it
// turns one due firing into a persisted Execution, retries failed
// attempts with exponential backoff up to the job's retry budget, and
// atomically finalizes the Execution and Job state when the attempt
// sequence ends.
//
// Grounded on the teacher's internal/cron.Service.RunJob /
// ExecuteWithRetry: the same "execute, update state, record run log"
// shape, generalized from a single-try agent callback into a
// bounded-retry HTTP invocation with a strict status-code success
// policy.
package execdriver

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/cronforge/scheduler/internal/cronclock"
	"github.com/cronforge/scheduler/internal/domain"
	"github.com/cronforge/scheduler/internal/events"
	"github.com/cronforge/scheduler/internal/httpinvoke"
	"github.com/cronforge/scheduler/internal/observability"
	"github.com/cronforge/scheduler/internal/store"
)

// backoffBaseMs and backoffCapMs define the deterministic, jitter-free
// retry delay: min(1000 * 2^(attempt-1), 60000) milliseconds. Unlike the
// teacher's backoffWithJitter, the Execution Driver never randomizes the
// delay — two drivers given the same attempt number always wait the
// same amount, which the rescheduling controller's timeout accounting
// depends on.
const (
	backoffBaseMs = 1000
	backoffCapMs  = 60000
)

// backoffDelay returns the deterministic retry delay before the given
// attempt number's retry (attempt is 1-indexed: the delay before the
// 2nd attempt uses attempt=1).
func backoffDelay(attempt int) time.Duration {
	ms := int64(backoffBaseMs) << uint(attempt-1)
	if ms > backoffCapMs || ms <= 0 {
		ms = backoffCapMs
	}
	return time.Duration(ms) * time.Millisecond
}

// isSuccessStatus implements the strict success policy resolved in
// spec §9's open question: a response is a success only if its status
// code falls in [200, 400).
func isSuccessStatus(code int) bool {
	return code >= 200 && code < 400
}

// invoker is the narrow capability Driver needs from httpinvoke.Invoker,
// kept as an interface so tests can substitute a fake transport.
type invoker interface {
	Invoke(ctx context.Context, req httpinvoke.Request, deadline time.Duration) (*httpinvoke.Response, error)
}

// Driver fires one job invocation through to a terminal Execution.
type Driver struct {
	store     store.ExecutionStore
	invoker   invoker
	publisher *events.Publisher
	clock     cronclock.Clock
	runLog    *RunLog
	tracer    *observability.Provider
}

// New assembles a Driver from its collaborators. tracer may be nil, in
// which case every span call is a no-op (see observability.Provider).
func New(st store.ExecutionStore, inv invoker, pub *events.Publisher, clk cronclock.Clock, tracer *observability.Provider) *Driver {
	return &Driver{
		store:     st,
		invoker:   inv,
		publisher: pub,
		clock:     clk,
		runLog:    NewRunLog(200),
		tracer:    tracer,
	}
}

// RunLog exposes the in-memory run history accelerator.
func (d *Driver) RunLog() *RunLog { return d.runLog }

// Fire executes job once, retrying up to job.RetryBudget attempts with
// deterministic backoff, and writes the terminal Execution + Job update
// atomically. It returns a non-nil error only for failures in the
// surrounding machinery (store writes); a failed HTTP outcome is not an
// error — it is recorded as a FAILED Execution.
func (d *Driver) Fire(ctx context.Context, job domain.Job) error {
	startedAt := d.clock.Now()
	execID := uuid.NewString()

	ctx, execSpan := d.tracer.StartExecutionSpan(ctx, job, execID)
	defer execSpan.End()

	exec := domain.Execution{
		ID:            execID,
		JobID:         job.ID,
		StartedAt:     startedAt,
		Status:        domain.ExecutionRunning,
		AttemptNumber: 1,
	}
	if err := d.store.CreateExecution(ctx, exec); err != nil {
		return err
	}
	d.publisher.Publish(events.Event{
		Type: events.ExecutionStarted, JobID: job.ID, ExecutionID: execID, At: startedAt,
	})

	var resp *httpinvoke.Response
	var callErr error
	attempt := 1

	for {
		attemptStart := d.clock.Now()
		attemptCtx, attemptSpan := d.tracer.StartAttemptSpan(ctx, attempt)
		resp, callErr = d.invoker.Invoke(attemptCtx, httpinvoke.Request{
			Method:  string(job.Method),
			URL:     job.TargetURL,
			Headers: job.Headers,
			Query:   job.Query,
			Body:    job.Body,
		}, job.PerAttemptTimeout)

		statusCode := 0
		if resp != nil {
			statusCode = resp.StatusCode
		}
		observability.RecordOutcome(attemptSpan, statusCode, d.clock.Now().Sub(attemptStart).Milliseconds(), callErr)
		attemptSpan.End()

		succeeded := callErr == nil && isSuccessStatus(resp.StatusCode)
		if succeeded || attempt >= job.RetryBudget {
			break
		}

		if !sleepCancellable(ctx, backoffDelay(attempt)) {
			callErr = ctx.Err()
			break
		}
		attempt++
	}

	completedAt := d.clock.Now()
	exec.CompletedAt = &completedAt
	exec.AttemptNumber = attempt
	exec.DurationMs = completedAt.Sub(startedAt).Milliseconds()

	entry := RunLogEntry{
		ExecutionID: execID,
		JobID:       job.ID,
		StartedAt:   startedAt,
		DurationMs:  exec.DurationMs,
	}

	if callErr == nil && isSuccessStatus(resp.StatusCode) {
		exec.Status = domain.ExecutionSuccess
		exec.ResponseStatusCode = &resp.StatusCode
		exec.ResponseBody = filterBody(resp.Body)
		entry.Status = "success"
		entry.StatusCode = resp.StatusCode
	} else {
		exec.Status = domain.ExecutionFailed
		if resp != nil {
			exec.ResponseStatusCode = &resp.StatusCode
			exec.ResponseBody = filterBody(resp.Body)
			entry.StatusCode = resp.StatusCode
		}
		if callErr != nil {
			msg := callErr.Error()
			exec.ErrorMessage = &msg
			entry.Error = msg
		}
		entry.Status = "failed"
	}

	job.LastFiredAt = &startedAt
	job.UpdatedAt = completedAt
	if next, err := cronclock.New().Next(job.CronExpression, job.Timezone, completedAt); err == nil {
		job.NextFireAt = &next
	}
	if exec.Status == domain.ExecutionSuccess {
		job.LifecycleStatus = domain.LifecycleSuccess
	} else {
		job.LifecycleStatus = domain.LifecycleFailed
	}

	if err := d.store.TerminalUpdate(ctx, exec, job); err != nil {
		return err
	}

	finalStatusCode := 0
	if exec.ResponseStatusCode != nil {
		finalStatusCode = *exec.ResponseStatusCode
	}
	observability.RecordOutcome(execSpan, finalStatusCode, exec.DurationMs, callErr)

	d.runLog.Append(entry)
	d.publisher.Publish(events.Event{
		Type: events.ExecutionComplete, JobID: job.ID, ExecutionID: execID, At: completedAt, Detail: exec,
	})
	return nil
}

// sleepCancellable blocks for d or until ctx is done, whichever comes
// first, returning false if ctx ended the wait early.
func sleepCancellable(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
