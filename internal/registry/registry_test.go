package registry

import "testing"

type fakeTimer struct{ stopped bool }

func (f *fakeTimer) Stop() bool {
	f.stopped = true
	return true
}

func TestRegister_ReplacesPriorTimer(t *testing.T) {
	r := New()
	first := &fakeTimer{}
	second := &fakeTimer{}

	r.Register("job-1", "*/5 * * * *", first)
	r.Register("job-1", "0 * * * *", second)

	if !first.stopped {
		t.Error("expected the first timer to be stopped on replace")
	}
	if second.stopped {
		t.Error("the replacement timer should not be stopped")
	}
	expr, ok := r.Expression("job-1")
	if !ok || expr != "0 * * * *" {
		t.Errorf("expected registered expression to be updated, got %q ok=%v", expr, ok)
	}
	if r.Len() != 1 {
		t.Errorf("expected exactly one registered job, got %d", r.Len())
	}
}

func TestUnregister_StopsAndRemoves(t *testing.T) {
	r := New()
	timer := &fakeTimer{}
	r.Register("job-1", "* * * * *", timer)

	r.Unregister("job-1")

	if !timer.stopped {
		t.Error("expected timer to be stopped")
	}
	if r.Has("job-1") {
		t.Error("expected job to be unregistered")
	}
}

func TestUnregister_UnknownJobIsNoop(t *testing.T) {
	r := New()
	r.Unregister("does-not-exist") // must not panic
}

func TestSnapshot_ReturnsAllRegisteredIDs(t *testing.T) {
	r := New()
	r.Register("job-1", "* * * * *", &fakeTimer{})
	r.Register("job-2", "* * * * *", &fakeTimer{})

	ids := r.Snapshot()
	if len(ids) != 2 {
		t.Fatalf("expected 2 ids, got %d", len(ids))
	}
}

func TestStopAll_StopsEveryTimerAndClears(t *testing.T) {
	r := New()
	t1, t2 := &fakeTimer{}, &fakeTimer{}
	r.Register("job-1", "* * * * *", t1)
	r.Register("job-2", "* * * * *", t2)

	r.StopAll()

	if !t1.stopped || !t2.stopped {
		t.Error("expected all timers to be stopped")
	}
	if r.Len() != 0 {
		t.Errorf("expected registry to be empty after StopAll, got %d", r.Len())
	}
}
