package rescheduler

import (
	"testing"
	"time"
)

func TestRewriteInterval_DoublesStepExpression(t *testing.T) {
	newExpr, ok := rewriteInterval("*/5 * * * *", 2.0)
	if !ok {
		t.Fatal("expected rewrite to apply")
	}
	if newExpr != "*/10 * * * *" {
		t.Errorf("got %q, want */10 * * * *", newExpr)
	}
}

func TestRewriteInterval_ClampsAt59(t *testing.T) {
	newExpr, ok := rewriteInterval("*/50 * * * *", 2.0)
	if !ok {
		t.Fatal("expected rewrite to apply")
	}
	if newExpr != "*/59 * * * *" {
		t.Errorf("got %q, want */59 * * * *", newExpr)
	}
}

func TestRewriteInterval_RewritesNumericMinuteField(t *testing.T) {
	newExpr, ok := rewriteInterval("5 * * * *", 2.0)
	if !ok {
		t.Fatal("expected rewrite to apply")
	}
	if newExpr != "10 * * * *" {
		t.Errorf("got %q, want 10 * * * *", newExpr)
	}
}

func TestRewriteInterval_NumericMinuteFieldFloorsAndFloorsAtOne(t *testing.T) {
	newExpr, ok := rewriteInterval("1 * * * *", 1.2)
	if !ok {
		t.Fatal("expected rewrite to apply")
	}
	// floor(max(1, 1*1.2)) = floor(1.2) = 1
	if newExpr != "1 * * * *" {
		t.Errorf("got %q, want 1 * * * *", newExpr)
	}
}

func TestRewriteInterval_NonStepExpressionUnchanged(t *testing.T) {
	_, ok := rewriteInterval("0,30 9 * * 1-5", 2.0)
	if ok {
		t.Error("expected no rewrite for a fixed minute-list expression")
	}
}

func TestEvaluate_KeepsOnHighSuccessRate(t *testing.T) {
	m := Metrics{SampleSize: 20, SuccessRate: 0.95, FailureRate: 0.05}
	d := evaluate("*/5 * * * *", 30*time.Second, m)
	if d.RuleName != "keep-on-success" || d.Changed {
		t.Errorf("expected keep-on-success with no change, got %+v", d)
	}
}

func TestEvaluate_KeepOnSuccessRequiresMinimumSample(t *testing.T) {
	// successRate qualifies but N < 20, so no rule should match.
	m := Metrics{SampleSize: 10, SuccessRate: 1.0, FailureRate: 0}
	d := evaluate("*/5 * * * *", 30*time.Second, m)
	if d.Changed {
		t.Errorf("expected no change below keep-on-success's minimum sample, got %+v", d)
	}
}

func TestEvaluate_BacksOffOnHighFailureRate(t *testing.T) {
	m := Metrics{SampleSize: 20, SuccessRate: 0.2, FailureRate: 0.8}
	d := evaluate("*/5 * * * *", 30*time.Second, m)
	if d.RuleName != "back-off-on-failure" || d.NewExpr != "*/10 * * * *" {
		t.Errorf("unexpected decision: %+v", d)
	}
}

func TestEvaluate_BackOffRequiresStrictlyGreaterThanHalf(t *testing.T) {
	// failureRate == 0.50 exactly must not trigger back-off (spec uses
	// a strict >), and with recentFailures below the disable threshold
	// nothing else should fire either.
	m := Metrics{SampleSize: 20, SuccessRate: 0.5, FailureRate: 0.5, RecentFailures: 0}
	d := evaluate("*/5 * * * *", 30*time.Second, m)
	if d.Changed {
		t.Errorf("expected no change at exactly 0.50 failure rate, got %+v", d)
	}
}

func TestEvaluate_ReducesOnTimeoutHeavyHistory(t *testing.T) {
	m := Metrics{SampleSize: 10, FailureRate: 0.4, RecentFailures: 4, RecentTimeouts: 4}
	d := evaluate("*/5 * * * *", 30*time.Second, m)
	if d.RuleName != "reduce-on-timeouts" {
		t.Errorf("expected reduce-on-timeouts, got %+v", d)
	}
}

func TestEvaluate_DeCongestsOnSlowAverageRelativeToJobTimeout(t *testing.T) {
	perAttemptTimeout := 10 * time.Second
	m := Metrics{SampleSize: 10, FailureRate: 0, AverageExecutionTimeMs: 9000, RecentTimeouts: 0}
	d := evaluate("*/5 * * * *", perAttemptTimeout, m)
	if d.RuleName != "de-congest-on-slow" {
		t.Errorf("expected de-congest-on-slow, got %+v", d)
	}
}

func TestEvaluate_BackOffWinsOverDisableOnStreakWhenBothMatch(t *testing.T) {
	// Both the back-off (priority 2) and disable-on-streak (priority 5)
	// conditions hold; the higher-priority rule must win (spec §8).
	m := Metrics{SampleSize: 12, FailureRate: 1.0, RecentFailures: 10, RecentTimeouts: 0}
	d := evaluate("*/5 * * * *", 30*time.Second, m)
	if d.RuleName != "back-off-on-failure" || d.Disable {
		t.Errorf("expected back-off-on-failure to win over disable-on-streak, got %+v", d)
	}
}

func TestEvaluate_DisablesOnRecentFailureStreak(t *testing.T) {
	// Overall failure rate stays at the back-off boundary (not >0.50),
	// so only disable-on-streak's recentFailures>=3 condition can fire.
	m := Metrics{SampleSize: 20, FailureRate: 0.5, RecentFailures: 10, RecentTimeouts: 0}
	d := evaluate("*/5 * * * *", 30*time.Second, m)
	if d.RuleName != "disable-on-streak" || !d.Disable {
		t.Errorf("expected disable-on-streak, got %+v", d)
	}
}

func TestEvaluate_NoRuleMatchesBelowAllThresholds(t *testing.T) {
	m := Metrics{SampleSize: 1, FailureRate: 1.0, RecentFailures: 1}
	d := evaluate("*/5 * * * *", 30*time.Second, m)
	if d.Changed {
		t.Errorf("expected no change below every rule's threshold, got %+v", d)
	}
}
