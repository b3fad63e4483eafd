// Package eventbus implements the append-only event emitter the
// orchestrator's state-transition writeback uses: Emit queues a
// state-transition event, ProcessEvents returns the pending events to
// the caller, and CleanEvents drops whatever is still pending.
package eventbus

import (
	"context"
	"log"
	"sync"
	"time"
)

// RuleStateEvent is a single "rule became supported/unsupported" event
// sourced from the pipeline's state-transition writeback.
type RuleStateEvent struct {
	Source    string // always "internal" for events this subsystem emits
	Object    string // always "lld_rule"
	RuleID    string
	Timestamp time.Time
	State     string // "normal" or "not_supported"
}

// Emitter is a non-blocking, buffered-channel event bus. Emit never
// blocks the caller; a full buffer drops the event with a warning log,
// matching the pipeline's best-effort event delivery contract.
type Emitter struct {
	buffer chan RuleStateEvent
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	pending []RuleStateEvent
}

// NewEmitter creates an emitter with the given buffer capacity.
func NewEmitter(bufferSize int) *Emitter {
	ctx, cancel := context.WithCancel(context.Background())
	return &Emitter{
		buffer: make(chan RuleStateEvent, bufferSize),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins the background worker that moves buffered events onto
// the pending list consumed by ProcessEvents.
func (e *Emitter) Start() {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		for {
			select {
			case ev := <-e.buffer:
				e.mu.Lock()
				e.pending = append(e.pending, ev)
				e.mu.Unlock()
			case <-e.ctx.Done():
				e.drainBuffer()
				return
			}
		}
	}()
}

// Emit queues a rule state-transition event for async delivery.
func (e *Emitter) Emit(ruleID, state string) {
	ev := RuleStateEvent{
		Source:    "internal",
		Object:    "lld_rule",
		RuleID:    ruleID,
		Timestamp: time.Now(),
		State:     state,
	}

	select {
	case e.buffer <- ev:
	default:
		log.Printf("eventbus: buffer full, dropping state event for rule %s", ruleID)
	}
}

// ProcessEvents returns the events the background worker has moved onto
// the pending list since the last call and clears that list. An event
// still in the channel is not included; it is returned by a later call.
// Orchestrator writeback calls this right after Emit.
func (e *Emitter) ProcessEvents() []RuleStateEvent {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := e.pending
	e.pending = nil
	return out
}

// CleanEvents drops any events still pending. Orchestrator writeback
// calls it right after ProcessEvents so pending events cannot accumulate
// across invocations.
func (e *Emitter) CleanEvents() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pending = nil
}

// Stop gracefully shuts down the emitter, draining the buffer.
func (e *Emitter) Stop() {
	e.cancel()
	e.wg.Wait()
}

func (e *Emitter) drainBuffer() {
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev := <-e.buffer:
			e.mu.Lock()
			e.pending = append(e.pending, ev)
			e.mu.Unlock()
		case <-timeout:
			return
		default:
			return
		}
	}
}
