package cronclock

import (
	"testing"
	"time"
)

func mustUTC(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestValidate_ValidExpression(t *testing.T) {
	ev := New()
	now := mustUTC("2026-07-29T10:00:00Z")

	res, err := ev.Validate("*/5 * * * *", "UTC", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.OK {
		t.Fatal("expected OK=true")
	}
	if !res.FirstFiring.After(now) {
		t.Errorf("first firing %v must be after now %v", res.FirstFiring, now)
	}
	if !res.SecondFiring.After(res.FirstFiring) {
		t.Errorf("second firing %v must be after first %v", res.SecondFiring, res.FirstFiring)
	}
}

func TestValidate_MalformedExpression(t *testing.T) {
	ev := New()
	now := mustUTC("2026-07-29T10:00:00Z")

	_, err := ev.Validate("not a cron expr", "UTC", now)
	if err == nil {
		t.Fatal("expected error for malformed expression")
	}
	var parseErr *CronParseError
	if !asCronParseError(err, &parseErr) {
		t.Fatalf("expected *CronParseError, got %T", err)
	}
}

func TestValidate_UnknownTimezone(t *testing.T) {
	ev := New()
	now := mustUTC("2026-07-29T10:00:00Z")

	_, err := ev.Validate("0 * * * *", "Not/AZone", now)
	if err == nil {
		t.Fatal("expected error for unknown timezone")
	}
}

func TestNext_Deterministic(t *testing.T) {
	ev := New()
	after := mustUTC("2026-07-29T10:00:00Z")

	n1, err := ev.Next("*/5 * * * *", "UTC", after)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	n2, err := ev.Next("*/5 * * * *", "UTC", after)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !n1.Equal(n2) {
		t.Errorf("Next should be deterministic: %v != %v", n1, n2)
	}
	if !n1.After(after) {
		t.Errorf("next firing %v must be strictly after %v", n1, after)
	}
}

func asCronParseError(err error, target **CronParseError) bool {
	if ce, ok := err.(*CronParseError); ok {
		*target = ce
		return true
	}
	return false
}
