package cronclock

import (
	"fmt"
	"time"

	"github.com/adhocore/gronx"
)

// CronParseError reports a malformed cron expression or unknown IANA
// timezone. Returned as a structured value; evaluation never panics.
type CronParseError struct {
	Expression string
	Timezone   string
	Err        error
}

func (e *CronParseError) Error() string {
	if e.Timezone != "" {
		return fmt.Sprintf("cron: invalid expression %q or timezone %q: %v", e.Expression, e.Timezone, e.Err)
	}
	return fmt.Sprintf("cron: invalid expression %q: %v", e.Expression, e.Err)
}

func (e *CronParseError) Unwrap() error { return e.Err }

// ValidationResult is the outcome of Validate: either ok with the first
// two firings after the reference instant, or a structured error.
type ValidationResult struct {
	OK           bool
	FirstFiring  time.Time
	SecondFiring time.Time
}

// Evaluator parses standard 5-field cron expressions (minute, hour,
// day-of-month, month, day-of-week) and computes firing instants. It is
// pure: callers always supply "now" so the scheduler's timer math stays
// deterministic under test.
type Evaluator struct {
	gx gronx.Gronx
}

// New returns a ready-to-use Evaluator.
func New() *Evaluator {
	return &Evaluator{gx: gronx.New()}
}

// Validate checks that expression parses as a 5-field cron schedule and
// that timezone is a known IANA name, then returns the first two firings
// strictly after the reference instant "now". It never panics; malformed
// input comes back as a *CronParseError.
func (ev *Evaluator) Validate(expression, timezone string, now time.Time) (ValidationResult, error) {
	if !ev.gx.IsValid(expression) {
		return ValidationResult{}, &CronParseError{Expression: expression, Err: fmt.Errorf("malformed cron expression")}
	}

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return ValidationResult{}, &CronParseError{Expression: expression, Timezone: timezone, Err: err}
	}

	ref := now.In(loc)
	first, err := gronx.NextTickAfter(expression, ref, false)
	if err != nil {
		return ValidationResult{}, &CronParseError{Expression: expression, Err: err}
	}
	second, err := gronx.NextTickAfter(expression, first, false)
	if err != nil {
		return ValidationResult{}, &CronParseError{Expression: expression, Err: err}
	}

	return ValidationResult{OK: true, FirstFiring: first, SecondFiring: second}, nil
}

// Next computes the next firing instant of expression, interpreted in
// timezone, strictly after afterInstant. Deterministic: the same inputs
// always produce the same output.
func (ev *Evaluator) Next(expression, timezone string, afterInstant time.Time) (time.Time, error) {
	if !ev.gx.IsValid(expression) {
		return time.Time{}, &CronParseError{Expression: expression, Err: fmt.Errorf("malformed cron expression")}
	}

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return time.Time{}, &CronParseError{Expression: expression, Timezone: timezone, Err: err}
	}

	ref := afterInstant.In(loc)
	next, err := gronx.NextTickAfter(expression, ref, false)
	if err != nil {
		return time.Time{}, &CronParseError{Expression: expression, Err: err}
	}
	return next, nil
}
