// Package progress delivers harvest events to whoever is watching: logs,
// metrics, a terminal, a GUI.
package progress

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/amosWeiskopf/corpusmith/internal/models"
)

// Sink receives progress events. Implementations must be safe for
// concurrent use; jobs for different seeds report in parallel.
type Sink interface {
	Report(models.Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(models.Event)

// Report calls fn(e).
func (fn SinkFunc) Report(e models.Event) { fn(e) }

// Nop discards every event.
var Nop Sink = SinkFunc(func(models.Event) {})

type multi []Sink

// Multi fans every event out to all sinks in order. Nil sinks are skipped.
func Multi(sinks ...Sink) Sink {
	var m multi
	for _, s := range sinks {
		if s != nil {
			m = append(m, s)
		}
	}
	return m
}

func (m multi) Report(e models.Event) {
	for _, s := range m {
		s.Report(e)
	}
}

type safe struct {
	sink   Sink
	logger *zap.Logger
}

// Safe shields the caller from a sink that panics. The panic is logged
// and the event is lost.
func Safe(sink Sink, logger *zap.Logger) Sink {
	if sink == nil {
		return Nop
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &safe{sink: sink, logger: logger}
}

func (s *safe) Report(e models.Event) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("progress sink panicked", zap.Any("panic", r), zap.String("kind", string(e.Kind)))
		}
	}()
	s.sink.Report(e)
}

// Async funnels events from any number of goroutines through a single
// writer goroutine. Report never blocks: when the buffer is full the event
// is dropped and counted.
type Async struct {
	sink    Sink
	events  chan models.Event
	done    chan struct{}
	dropped atomic.Int64

	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

// NewAsync starts the writer goroutine. Call Close to flush and stop it.
// A panic in sink is logged to logger and costs only that event; the
// writer keeps delivering the rest.
func NewAsync(sink Sink, buffer int, logger *zap.Logger) *Async {
	if buffer <= 0 {
		buffer = 256
	}
	a := &Async{
		sink:   Safe(sink, logger),
		events: make(chan models.Event, buffer),
		done:   make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *Async) run() {
	defer close(a.done)
	for e := range a.events {
		a.sink.Report(e)
	}
}

// Report queues e for delivery.
func (a *Async) Report(e models.Event) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		a.dropped.Add(1)
		return
	}
	select {
	case a.events <- e:
	default:
		a.dropped.Add(1)
	}
}

// Dropped is the number of events lost to a full buffer or a closed funnel.
func (a *Async) Dropped() int64 {
	return a.dropped.Load()
}

// Close delivers the queued events and stops the writer.
func (a *Async) Close() {
	a.closeOnce.Do(func() {
		a.mu.Lock()
		a.closed = true
		close(a.events)
		a.mu.Unlock()
	})
	<-a.done
}
