package events

import "log/slog"

// LogHandler returns a Handler that records every event at debug level,
// the default subscriber wired in by cmd/schedulerd so events are
// observable without a dedicated sink configured.
func LogHandler(logger *slog.Logger) Handler {
	return func(ev Event) {
		logger.Debug("event",
			"type", string(ev.Type),
			"job_id", ev.JobID,
			"execution_id", ev.ExecutionID,
		)
	}
}
