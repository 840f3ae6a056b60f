package core

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingObserver struct {
	mu     sync.Mutex
	events []Event
}

func (o *countingObserver) Emit(ev Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, ev)
}

func (o *countingObserver) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.events)
}

func TestAsyncObserver_DeliversInOrder(t *testing.T) {
	delegate := &countingObserver{}
	async := NewAsyncObserver(delegate, 16)

	async.Emit(KernelStartEvent{RunID: "r1", Time: time.Now()})
	async.Emit(TurnCompleteEvent{RunID: "r1", Turn: 1})
	async.Emit(KernelEndEvent{RunID: "r1", Reason: ReasonNoToolCalls, Time: time.Now()})

	async.Close()

	require.Equal(t, 3, delegate.count())

	_, ok := delegate.events[0].(KernelStartEvent)
	assert.True(t, ok)
	_, ok = delegate.events[2].(KernelEndEvent)
	assert.True(t, ok)
}

func TestAsyncObserver_SwallowsDelegatePanic(t *testing.T) {
	async := NewAsyncObserver(ObserverFunc(func(Event) { panic("observer bug") }), 4)

	async.Emit(TurnCompleteEvent{Turn: 1})
	async.Close() // must not propagate the panic
}

func TestAsyncObserver_EmitAfterCloseIsNoOp(t *testing.T) {
	delegate := &countingObserver{}
	async := NewAsyncObserver(delegate, 4)

	async.Close()
	async.Emit(TurnCompleteEvent{Turn: 1})
	async.Close() // idempotent

	assert.Equal(t, 0, delegate.count())
}

func TestObserverFunc(t *testing.T) {
	var got Event

	obs := ObserverFunc(func(ev Event) { got = ev })
	obs.Emit(KernelStartEvent{RunID: "r1"})

	start, ok := got.(KernelStartEvent)
	require.True(t, ok)
	assert.Equal(t, "r1", start.RunID)
}

func TestNopObserver(t *testing.T) {
	NopObserver{}.Emit(KernelEndEvent{})
}
