package core

import "sync"

// Observer consumes lifecycle events emitted by the kernel. Emit must be
// cheap and must never panic into the caller; for observers that do real work
// (exporters, sinks) wrap them with NewAsyncObserver so slowness and failures
// stay out of the run's critical path.
type Observer interface {
	Emit(ev Event)
}

// NopObserver discards all events. Useful default when telemetry is disabled.
type NopObserver struct{}

// Emit implements Observer.
func (NopObserver) Emit(Event) {}

// ObserverFunc adapts a plain function to the Observer interface.
type ObserverFunc func(ev Event)

// Emit implements Observer.
func (f ObserverFunc) Emit(ev Event) { f(ev) }

// AsyncObserver decouples a delegate observer from the emitting goroutine via
// a buffered channel and a single worker. Emit never blocks: when the buffer
// is full the event is dropped rather than stalling the run. Panics in the
// delegate are swallowed by the worker.
type AsyncObserver struct {
	delegate Observer
	ch       chan Event
	done     chan struct{}
	once     sync.Once
}

// NewAsyncObserver wraps delegate with an asynchronous buffer of the given
// size (minimum 1) and starts the delivery worker.
func NewAsyncObserver(delegate Observer, buffer int) *AsyncObserver {
	if buffer < 1 {
		buffer = 1
	}
	o := &AsyncObserver{
		delegate: delegate,
		ch:       make(chan Event, buffer),
		done:     make(chan struct{}),
	}
	go o.deliver()
	return o
}

func (o *AsyncObserver) deliver() {
	defer close(o.done)
	for ev := range o.ch {
		o.emitOne(ev)
	}
}

func (o *AsyncObserver) emitOne(ev Event) {
	defer func() { _ = recover() }()
	o.delegate.Emit(ev)
}

// Emit implements Observer. Non-blocking; drops when the buffer is full.
func (o *AsyncObserver) Emit(ev Event) {
	defer func() { _ = recover() }() // emit after Close is a no-op
	select {
	case o.ch <- ev:
	default:
	}
}

// Close stops accepting events and waits for buffered ones to be delivered.
func (o *AsyncObserver) Close() {
	o.once.Do(func() { close(o.ch) })
	<-o.done
}
