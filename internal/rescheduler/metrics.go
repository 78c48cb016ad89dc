package rescheduler

import (
	"context"
	"time"

	"github.com/cronforge/scheduler/internal/domain"
	"github.com/cronforge/scheduler/internal/store"
)

// Metrics summarizes a job's recent execution history, the input every
// rescheduling rule evaluates against.
type Metrics struct {
	JobID                  string
	SampleSize             int
	SuccessRate            float64
	FailureRate            float64
	AverageExecutionTimeMs float64
	RecentFailures         int
	RecentTimeouts         int
}

// sampleWindow bounds how many recent executions feed a metrics
// computation, matching the store's RecentExecutions cap.
const sampleWindow = 100

// recentWindow is how many of the most recent executions recentFailures
// and recentTimeouts are drawn from.
const recentWindow = 10

// computeMetrics loads the job's recent execution history and reduces
// it to a Metrics snapshot. perAttemptTimeout is the job's own
// per-attempt ceiling, used to classify a recent execution as a timeout.
func computeMetrics(ctx context.Context, st store.ExecutionStore, jobID string, perAttemptTimeout time.Duration) (Metrics, error) {
	execs, err := st.RecentExecutions(ctx, jobID, sampleWindow)
	if err != nil {
		return Metrics{}, err
	}

	n := len(execs)
	m := Metrics{JobID: jobID, SampleSize: n}
	if n == 0 {
		m.SuccessRate = 1
		m.FailureRate = 0
		return m, nil
	}

	var successes, failures int
	var totalMs int64
	for _, e := range execs {
		totalMs += e.DurationMs
		switch e.Status {
		case domain.ExecutionSuccess:
			successes++
		case domain.ExecutionFailed:
			failures++
		}
	}
	m.SuccessRate = float64(successes) / float64(n)
	m.FailureRate = float64(failures) / float64(n)
	m.AverageExecutionTimeMs = float64(totalMs) / float64(n)

	// execs is ordered most-recent-first (store.RecentExecutions sorts
	// by startedAt descending), so the first recentWindow entries are
	// exactly "the 10 most recent".
	recentN := n
	if recentN > recentWindow {
		recentN = recentWindow
	}
	timeoutMs := perAttemptTimeout.Milliseconds()
	for _, e := range execs[:recentN] {
		if e.Status == domain.ExecutionFailed {
			m.RecentFailures++
		}
		if e.DurationMs >= timeoutMs {
			m.RecentTimeouts++
		}
	}
	return m, nil
}
