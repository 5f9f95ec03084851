package sched

import (
	"testing"

	"sulphate/internal/units"
)

type trace struct {
	fired []string
	times []units.Time
}

func record(name string) Event[*trace] {
	return EventFunc[*trace](func(q *Queue[*trace], tr *trace) {
		tr.fired = append(tr.fired, name)
		tr.times = append(tr.times, q.Now())
	})
}

func TestQueueFiresInTimeThenSubmissionOrder(t *testing.T) {
	q := NewQueue[*trace](0)
	tr := &trace{}

	q.EnqueueAbsolute(record("late"), 3)
	q.EnqueueAbsolute(record("first-at-1"), 1)
	q.EnqueueAbsolute(record("second-at-1"), 1)
	q.EnqueueRelative(record("relative"), 2)

	fired := q.InvokeUntil(tr, 10)
	if fired != 4 {
		t.Fatalf("expected 4 events, fired %d", fired)
	}
	want := []string{"first-at-1", "second-at-1", "relative", "late"}
	for i := range want {
		if tr.fired[i] != want[i] {
			t.Fatalf("fire order: got %v want %v", tr.fired, want)
		}
	}
	if tr.times[2] != 2 || tr.times[3] != 3 {
		t.Fatalf("events observed wrong times: %v", tr.times)
	}
	if q.Now() != 10 {
		t.Fatalf("expected clock advanced to 10, got %v", q.Now())
	}
}

func TestQueueInvokeUntilIncludesChainedEvents(t *testing.T) {
	q := NewQueue[*trace](0)
	tr := &trace{}
	q.EnqueueAbsolute(EventFunc[*trace](func(q *Queue[*trace], tr *trace) {
		tr.fired = append(tr.fired, "parent")
		q.EnqueueRelative(record("child-now"), 0)
		q.EnqueueRelative(record("child-later"), 5)
	}), 1)

	if fired := q.InvokeUntil(tr, 2); fired != 2 {
		t.Fatalf("expected parent and immediate child, fired %d (%v)", fired, tr.fired)
	}
	if q.Len() != 1 {
		t.Fatalf("expected the later child to stay pending, got %d", q.Len())
	}
	if next, ok := q.Next(); !ok || next != 6 {
		t.Fatalf("expected next event at 6, got %v (ok=%v)", next, ok)
	}
}

func TestQueueClampsPastEvents(t *testing.T) {
	q := NewQueue[*trace](5)
	tr := &trace{}
	q.EnqueueAbsolute(record("past"), 1)
	if next, _ := q.Next(); next != 5 {
		t.Fatalf("past events should be due now, got %v", next)
	}
	q.InvokeNext(tr)
	if tr.times[0] != 5 {
		t.Fatalf("time must not run backwards, got %v", tr.times[0])
	}
}

func TestQueueAdvanceRefusesToSkipEvents(t *testing.T) {
	q := NewQueue[*trace](0)
	q.EnqueueAbsolute(record("pending"), 2)
	if q.Advance(3) {
		t.Fatalf("advance past a pending event should fail")
	}
	if !q.Advance(2) || q.Now() != 2 {
		t.Fatalf("advance up to the pending event should succeed, now=%v", q.Now())
	}
	if q.Submitted() != 1 || q.Fired() != 0 {
		t.Fatalf("unexpected counters submitted=%d fired=%d", q.Submitted(), q.Fired())
	}
}
