package domain

import "time"

// ExecutionStatus is the terminal or in-flight state of one firing.
type ExecutionStatus string

const (
	ExecutionRunning ExecutionStatus = "RUNNING"
	ExecutionSuccess ExecutionStatus = "SUCCESS"
	ExecutionFailed  ExecutionStatus = "FAILED"
)

// Execution is one firing of a Job.
type Execution struct {
	ID    string
	JobID string

	StartedAt   time.Time
	CompletedAt *time.Time
	Status      ExecutionStatus

	ResponseStatusCode *int
	ResponseBody       *string // nil when omitted or HTML-filtered
	ErrorMessage        *string

	DurationMs    int64
	AttemptNumber int // 1..retryBudget
}

// IsTerminal reports whether the execution has reached SUCCESS or FAILED.
func (e *Execution) IsTerminal() bool {
	return e.Status == ExecutionSuccess || e.Status == ExecutionFailed
}
