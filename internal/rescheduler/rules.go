package rescheduler

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Thresholds governing the rule cascade (spec §4.8's literal rule
// table).
const (
	keepSuccessRate      = 0.95
	keepMinSample        = 20
	backOffFailureRate   = 0.50
	backOffMinSample     = 10
	reduceTimeoutCount   = 3
	reduceMinSample      = 10
	deCongestTimeoutFrac = 0.8
	deCongestMinSample   = 10
	disableStreakCount   = 3
)

// Decision is what one rule evaluation produced for a job.
type Decision struct {
	RuleName string
	NewExpr  string // unchanged from input if no rewrite happened
	Disable  bool
	Reason   string // spec §12 AutoReasonPrefix-tagged reason, empty if no change
	Changed  bool
}

// evaluate runs the rule cascade in priority order (spec §4.8: 1 highest
// through 5 lowest) and returns the first rule that matches, so a job
// meeting both a back-off and a disable condition in the same sweep
// still gets the higher-priority back-off response.
func evaluate(expr string, perAttemptTimeout time.Duration, m Metrics) Decision {
	if d, ok := ruleKeepOnSuccess(expr, m); ok {
		return d
	}
	if d, ok := ruleBackOffOnFailure(expr, m); ok {
		return d
	}
	if d, ok := ruleReduceOnTimeouts(expr, m); ok {
		return d
	}
	if d, ok := ruleDeCongestOnSlow(expr, perAttemptTimeout, m); ok {
		return d
	}
	if d, ok := ruleDisableOnStreak(m); ok {
		return d
	}
	return Decision{RuleName: "no-rule-matched"}
}

// ruleKeepOnSuccess: successRate >= 0.95 and N >= 20. No-op.
func ruleKeepOnSuccess(expr string, m Metrics) (Decision, bool) {
	if m.SampleSize < keepMinSample || m.SuccessRate < keepSuccessRate {
		return Decision{}, false
	}
	return Decision{RuleName: "keep-on-success", NewExpr: expr}, true
}

// ruleBackOffOnFailure: failureRate > 0.50 and N >= 10. Extend by 2x.
func ruleBackOffOnFailure(expr string, m Metrics) (Decision, bool) {
	if m.SampleSize < backOffMinSample || m.FailureRate <= backOffFailureRate {
		return Decision{}, false
	}
	newExpr, rewritten := rewriteInterval(expr, 2.0)
	if !rewritten {
		return Decision{}, false
	}
	return Decision{
		RuleName: "back-off-on-failure",
		NewExpr:  newExpr,
		Changed:  true,
		Reason:   fmt.Sprintf("%sback-off-on-failure rate=%.2f", AutoReasonPrefix, m.FailureRate),
	}, true
}

// ruleReduceOnTimeouts: recentTimeouts >= 3 and N >= 10. Extend by 1.5x.
func ruleReduceOnTimeouts(expr string, m Metrics) (Decision, bool) {
	if m.SampleSize < reduceMinSample || m.RecentTimeouts < reduceTimeoutCount {
		return Decision{}, false
	}
	newExpr, rewritten := rewriteInterval(expr, 1.5)
	if !rewritten {
		return Decision{}, false
	}
	return Decision{
		RuleName: "reduce-on-timeouts",
		NewExpr:  newExpr,
		Changed:  true,
		Reason:   fmt.Sprintf("%sreduce-on-timeouts count=%d", AutoReasonPrefix, m.RecentTimeouts),
	}, true
}

// ruleDeCongestOnSlow: averageExecutionTimeMs > 0.8 * perAttemptTimeout
// and N >= 10. Extend by 1.2x.
func ruleDeCongestOnSlow(expr string, perAttemptTimeout time.Duration, m Metrics) (Decision, bool) {
	threshold := deCongestTimeoutFrac * float64(perAttemptTimeout.Milliseconds())
	if m.SampleSize < deCongestMinSample || m.AverageExecutionTimeMs <= threshold {
		return Decision{}, false
	}
	newExpr, rewritten := rewriteInterval(expr, 1.2)
	if !rewritten {
		return Decision{}, false
	}
	return Decision{
		RuleName: "de-congest-on-slow",
		NewExpr:  newExpr,
		Changed:  true,
		Reason:   fmt.Sprintf("%sde-congest-on-slow avg_ms=%.0f", AutoReasonPrefix, m.AverageExecutionTimeMs),
	}, true
}

// ruleDisableOnStreak: recentFailures >= 3. Disable the job outright.
func ruleDisableOnStreak(m Metrics) (Decision, bool) {
	if m.RecentFailures < disableStreakCount {
		return Decision{}, false
	}
	return Decision{
		RuleName: "disable-on-streak",
		Disable:  true,
		Changed:  true,
		Reason:   fmt.Sprintf("%sdisable-on-streak streak=%d", AutoReasonPrefix, m.RecentFailures),
	}, true
}

// AutoReasonPrefix tags a ScheduleChange as controller-generated rather
// than operator-initiated, mirroring domain.AutoReasonPrefix so callers
// can filter audit history either way.
const AutoReasonPrefix = "auto:"

// rewriteInterval rewrites a 5-field cron expression's minute field
// (field 0) by factor, per spec §4.8: a numeric minute m becomes
// floor(max(1, m*factor)); a "*/s" step form becomes "*/floor(max(1,
// s*factor))". Any other minute field (a list, a range, or "*") is left
// untouched and rewritten reports false.
func rewriteInterval(expr string, factor float64) (string, bool) {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return expr, false
	}
	minuteField := fields[0]

	if strings.HasPrefix(minuteField, "*/") {
		step, err := strconv.Atoi(strings.TrimPrefix(minuteField, "*/"))
		if err != nil || step <= 0 {
			return expr, false
		}
		fields[0] = fmt.Sprintf("*/%d", scaleMinuteField(step, factor))
		return strings.Join(fields, " "), true
	}

	if minute, err := strconv.Atoi(minuteField); err == nil {
		fields[0] = strconv.Itoa(scaleMinuteField(minute, factor))
		return strings.Join(fields, " "), true
	}

	return expr, false
}

// scaleMinuteField applies spec §4.8's floor(max(1, v*factor)) formula,
// clamped to a valid minute field value of at most 59.
func scaleMinuteField(v int, factor float64) int {
	scaled := int(math.Floor(math.Max(1, float64(v)*factor)))
	if scaled > 59 {
		scaled = 59
	}
	return scaled
}
