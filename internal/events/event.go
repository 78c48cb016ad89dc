// Package events implements the Event Publisher (spec §4.4): a
// fire-and-forget notification bus for job.created/updated/deleted,
// execution.started/completed, and schedule.changed. Publishing never
// blocks the caller and never fails the operation that triggered it;
// subscriber errors are logged and swallowed.
//
// Grounded on the teacher's internal/bus.MessageBus Subscribe/Broadcast
// shape, narrowed to a single broadcast-only topic (the teacher's
// inbound/outbound channel routing has no equivalent here — the
// scheduler has one direction of events, not two).
package events

import "time"

// Type enumerates the event kinds the scheduler core emits.
type Type string

const (
	JobCreated        Type = "job.created"
	JobUpdated        Type = "job.updated"
	JobDeleted        Type = "job.deleted"
	ExecutionStarted  Type = "execution.started"
	ExecutionComplete Type = "execution.completed"
	ScheduleChanged   Type = "schedule.changed"
)

// Event is the payload broadcast to every subscriber. JobID and
// ExecutionID are populated according to Type; fields that don't apply
// to a given Type are left zero.
type Event struct {
	Type        Type
	JobID       string
	ExecutionID string
	At          time.Time
	Detail      any
}
