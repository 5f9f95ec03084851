// Package sched implements the time-ordered event queue that drives the
// simulation. Events due at the same time fire in submission order.
package sched

import (
	"container/heap"

	"sulphate/internal/units"
)

// Event is a unit of work fired at a scheduled simulation time. W is the
// state the event mutates.
type Event[W any] interface {
	Invoke(queue *Queue[W], world W)
}

// EventFunc adapts a function into an Event.
type EventFunc[W any] func(queue *Queue[W], world W)

// Invoke calls f.
func (f EventFunc[W]) Invoke(queue *Queue[W], world W) {
	if f == nil {
		return
	}
	f(queue, world)
}

type scheduled[W any] struct {
	at    units.Time
	seq   uint64
	event Event[W]
}

type pending[W any] []scheduled[W]

func (p pending[W]) Len() int { return len(p) }

func (p pending[W]) Less(i, j int) bool {
	if p[i].at != p[j].at {
		return p[i].at < p[j].at
	}
	return p[i].seq < p[j].seq
}

func (p pending[W]) Swap(i, j int) { p[i], p[j] = p[j], p[i] }

func (p *pending[W]) Push(x any) { *p = append(*p, x.(scheduled[W])) }

func (p *pending[W]) Pop() any {
	old := *p
	n := len(old)
	item := old[n-1]
	old[n-1] = scheduled[W]{}
	*p = old[:n-1]
	return item
}

// Queue orders events by time. It is not safe for concurrent use; one
// goroutine owns it.
type Queue[W any] struct {
	now     units.Time
	nextSeq uint64
	events  pending[W]
	fired   uint64
}

// NewQueue constructs a queue whose clock starts at initial.
func NewQueue[W any](initial units.Time) *Queue[W] {
	return &Queue[W]{now: initial}
}

// Now returns the time of the event being fired, or the time the queue was
// last advanced to.
func (q *Queue[W]) Now() units.Time {
	return q.now
}

// EnqueueAbsolute schedules event at t. Times in the past fire at Now.
func (q *Queue[W]) EnqueueAbsolute(event Event[W], t units.Time) {
	if event == nil {
		return
	}
	if t < q.now {
		t = q.now
	}
	heap.Push(&q.events, scheduled[W]{at: t, seq: q.nextSeq, event: event})
	q.nextSeq++
}

// EnqueueRelative schedules event d after Now.
func (q *Queue[W]) EnqueueRelative(event Event[W], d units.Duration) {
	q.EnqueueAbsolute(event, q.now.Add(d))
}

// Len reports the number of pending events.
func (q *Queue[W]) Len() int {
	return len(q.events)
}

// Submitted reports how many events have ever been enqueued.
func (q *Queue[W]) Submitted() uint64 {
	return q.nextSeq
}

// Fired reports how many events have been invoked.
func (q *Queue[W]) Fired() uint64 {
	return q.fired
}

// Next returns the time of the earliest pending event.
func (q *Queue[W]) Next() (units.Time, bool) {
	if len(q.events) == 0 {
		return 0, false
	}
	return q.events[0].at, true
}

// InvokeNext fires the earliest pending event, advancing Now to its time.
func (q *Queue[W]) InvokeNext(world W) bool {
	if len(q.events) == 0 {
		return false
	}
	item := heap.Pop(&q.events).(scheduled[W])
	q.now = item.at
	q.fired++
	item.event.Invoke(q, world)
	return true
}

// InvokeUntil fires every event due at or before t, including events those
// events schedule, then advances Now to t. It returns the number fired.
func (q *Queue[W]) InvokeUntil(world W, t units.Time) int {
	count := 0
	for {
		next, ok := q.Next()
		if !ok || next > t {
			break
		}
		q.InvokeNext(world)
		count++
	}
	if q.now < t {
		q.now = t
	}
	return count
}

// Advance moves Now forward to t without firing anything. It refuses to
// skip over pending events.
func (q *Queue[W]) Advance(t units.Time) bool {
	if next, ok := q.Next(); ok && next < t {
		return false
	}
	if t > q.now {
		q.now = t
	}
	return true
}
