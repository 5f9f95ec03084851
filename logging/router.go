package logging

import (
	"context"
	"errors"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

type Clock interface {
	Now() time.Time
}

type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time {
	return f()
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

type Sink interface {
	Write(Event) error
	Close(context.Context) error
}

type NamedSink struct {
	Name string
	Sink Sink
}

// Router accepts events from the simulation goroutine without blocking and
// fans them out to one worker goroutine per sink.
type Router struct {
	queue       chan Event
	sinks       []*sinkWorker
	clock       Clock
	fallback    *log.Logger
	minSeverity Severity
	stop        chan struct{}
	closed      atomic.Bool
	wg          sync.WaitGroup

	eventsTotal  atomic.Uint64
	droppedTotal atomic.Uint64
}

type SinkStats struct {
	Name    string `json:"name"`
	Written uint64 `json:"written"`
	Failed  uint64 `json:"failed"`
	Dropped uint64 `json:"dropped"`
}

type RouterStats struct {
	EventsTotal  uint64      `json:"eventsTotal"`
	DroppedTotal uint64      `json:"droppedTotal"`
	Sinks        []SinkStats `json:"sinks,omitempty"`
}

// NewRouter starts a router delivering events to the named sinks that cfg
// enables. Sinks not listed in cfg.EnabledSinks are ignored; an empty list
// enables every sink given.
func NewRouter(cfg Config, clock Clock, fallback *log.Logger, namedSinks []NamedSink) (*Router, error) {
	if clock == nil {
		clock = SystemClock{}
	}
	if fallback == nil {
		fallback = log.New(os.Stderr, "[logging] ", log.LstdFlags)
	}
	r := &Router{
		queue:       make(chan Event, cfg.queueSize()),
		clock:       clock,
		fallback:    fallback,
		minSeverity: cfg.MinimumSeverity,
		stop:        make(chan struct{}),
	}
	for _, named := range namedSinks {
		if named.Name == "" {
			return nil, errors.New("logging: sink registered without a name")
		}
		if named.Sink == nil || !cfg.Enables(named.Name) {
			continue
		}
		r.sinks = append(r.sinks, &sinkWorker{
			name:     named.Name,
			sink:     named.Sink,
			events:   make(chan Event, cfg.sinkBacklog()),
			fallback: fallback,
		})
	}

	r.wg.Add(1 + len(r.sinks))
	go r.dispatch()
	for _, worker := range r.sinks {
		worker := worker
		go func() {
			defer r.wg.Done()
			worker.run()
		}()
	}
	return r, nil
}

func (r *Router) dispatch() {
	defer r.wg.Done()
	defer func() {
		for _, worker := range r.sinks {
			close(worker.events)
		}
	}()
	for {
		select {
		case event := <-r.queue:
			r.forward(event)
		case <-r.stop:
			for {
				select {
				case event := <-r.queue:
					r.forward(event)
				default:
					return
				}
			}
		}
	}
}

func (r *Router) forward(event Event) {
	if event.Severity < r.minSeverity {
		return
	}
	if event.Time.IsZero() {
		event.Time = r.clock.Now()
	}
	r.eventsTotal.Add(1)
	for _, worker := range r.sinks {
		worker.enqueue(event)
	}
}

func (r *Router) Publish(_ context.Context, event Event) {
	if r == nil || event.Type == "" || r.closed.Load() {
		return
	}
	select {
	case r.queue <- event:
	default:
		// Warn on powers of two so a stalled router does not flood stderr.
		if total := r.droppedTotal.Add(1); total&(total-1) == 0 {
			r.fallback.Printf("router backlog full, dropped %d events (last type=%s simTime=%g)", total, event.Type, event.SimTime)
		}
	}
}

// Close stops accepting events, flushes what is queued and closes every
// sink. Events published concurrently with Close may be lost.
func (r *Router) Close(ctx context.Context) error {
	if r == nil || !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(r.stop)
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	var errs []error
	for _, worker := range r.sinks {
		if err := worker.sink.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Router) Stats() RouterStats {
	stats := RouterStats{
		EventsTotal:  r.eventsTotal.Load(),
		DroppedTotal: r.droppedTotal.Load(),
	}
	for _, worker := range r.sinks {
		stats.Sinks = append(stats.Sinks, SinkStats{
			Name:    worker.name,
			Written: worker.written.Load(),
			Failed:  worker.failed.Load(),
			Dropped: worker.dropped.Load(),
		})
	}
	return stats
}

func (r *Router) Sink(name string) Sink {
	for _, worker := range r.sinks {
		if worker.name == name {
			return worker.sink
		}
	}
	return nil
}

type sinkWorker struct {
	name     string
	sink     Sink
	events   chan Event
	fallback *log.Logger

	written atomic.Uint64
	failed  atomic.Uint64
	dropped atomic.Uint64
}

func (w *sinkWorker) enqueue(event Event) {
	select {
	case w.events <- cloneForFields(event):
	default:
		if total := w.dropped.Add(1); total&(total-1) == 0 {
			w.fallback.Printf("sink %s backlog full, dropped %d events", w.name, total)
		}
	}
}

// run writes until the router closes the channel. A failing sink keeps
// receiving events; failures are counted and logged on powers of two.
func (w *sinkWorker) run() {
	for event := range w.events {
		if err := w.sink.Write(event); err != nil {
			if total := w.failed.Add(1); total&(total-1) == 0 {
				w.fallback.Printf("sink %s failed %d times, last: %v", w.name, total, err)
			}
			continue
		}
		w.written.Add(1)
	}
}
