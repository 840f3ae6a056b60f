package testutil

import (
	"sync"

	"github.com/hupe1980/agentkernel/core"
)

// RecordingObserver captures every emitted event for later assertions.
// Safe for concurrent use.
type RecordingObserver struct {
	mu     sync.Mutex
	events []core.Event
}

// NewRecordingObserver creates an empty recorder.
func NewRecordingObserver() *RecordingObserver {
	return &RecordingObserver{}
}

// Emit implements core.Observer.
func (o *RecordingObserver) Emit(ev core.Event) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.events = append(o.events, ev)
}

// Events returns a snapshot of everything recorded so far.
func (o *RecordingObserver) Events() []core.Event {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]core.Event, len(o.events))
	copy(out, o.events)

	return out
}

// EventsOf returns all recorded events matching the filter.
func (o *RecordingObserver) EventsOf(match func(core.Event) bool) []core.Event {
	var out []core.Event

	for _, ev := range o.Events() {
		if match(ev) {
			out = append(out, ev)
		}
	}

	return out
}

// Count returns the number of recorded events.
func (o *RecordingObserver) Count() int {
	o.mu.Lock()
	defer o.mu.Unlock()

	return len(o.events)
}
