// Package streaming implements cooperative, bounded-concurrency
// message processing: a bounded queue, a semaphore-gated concurrency
// limiter, per-message timeouts, and a resumable checkpoint.
package streaming

import (
	"context"
	"sync"
	"time"

	"github.com/edicraft/edipipe/edierrors"
	"github.com/edicraft/edipipe/edilog"
	"golang.org/x/sync/semaphore"
)

// Message is one unit submitted to a StreamProcessor.
type Message struct {
	Index       int
	Data        []byte
	Processed   bool
	Error       error
	ProcessedAt *time.Time
}

// Checkpoint is a monotonic resume marker: position advances through
// processed message indices, byte_offset is carried by the caller,
// and processed_count + failed_count accounts for everything that has
// left the in-flight set.
type Checkpoint struct {
	Position       int
	ByteOffset     int64
	ProcessedCount int
	FailedCount    int
	Timestamp      time.Time
}

// Stats accumulates run-wide counters. DroppedDueToTimeout is tracked
// as its own field, distinct from Failed, so that received = succeeded
// + failed + in_flight_at_end + dropped_due_to_timeout holds exactly.
type Stats struct {
	Received            int
	Succeeded           int
	Failed              int
	InFlight            int
	DroppedDueToTimeout int
}

// Processor owns a bounded message queue, a concurrency permit count,
// and a shared Checkpoint.
type Processor struct {
	queue           chan Message
	sem             *semaphore.Weighted
	maxConcurrency  int64
	channelCapacity int
	messageTimeout  time.Duration

	mu         sync.Mutex
	checkpoint Checkpoint
	stats      Stats
	logger     edilog.Logger
}

// New creates a Processor with the given queue capacity, concurrency
// permit count, and per-message timeout.
func New(channelBufferSize int, maxConcurrency int64, messageTimeout time.Duration) *Processor {
	return &Processor{
		queue:           make(chan Message, channelBufferSize),
		sem:             semaphore.NewWeighted(maxConcurrency),
		maxConcurrency:  maxConcurrency,
		channelCapacity: channelBufferSize,
		messageTimeout:  messageTimeout,
		logger:          edilog.NopLogger{},
	}
}

// Submit pushes msg into the queue. It returns a StreamingError if the
// queue is already at capacity rather than blocking.
func (p *Processor) Submit(msg Message) error {
	select {
	case p.queue <- msg:
		p.mu.Lock()
		p.stats.Received++
		p.stats.InFlight++
		p.mu.Unlock()
		return nil
	default:
		p.logger.Warn("streaming: submit rejected, queue at capacity", "index", msg.Index)
		return &edierrors.StreamingError{Details: "queue at capacity"}
	}
}

// HasBackpressure reports whether the queue is at or above half its
// configured capacity.
func (p *Processor) HasBackpressure() bool {
	return len(p.queue)*2 >= p.channelCapacity
}

// ProcessSingle acquires a concurrency permit, pops one message from
// the queue (ok=false if the queue is empty), runs f(data) under the
// configured per-message timeout, and updates stats and the
// checkpoint. A timeout counts as a dropped-due-to-timeout outcome,
// not a propagated error.
func (p *Processor) ProcessSingle(ctx context.Context, f func(context.Context, []byte) error) (bool, error) {
	var msg Message
	select {
	case msg = <-p.queue:
	default:
		return false, nil
	}

	if err := p.sem.Acquire(ctx, 1); err != nil {
		return false, &edierrors.StreamingError{Details: "semaphore closed", Cause: err}
	}
	defer p.sem.Release(1)

	callCtx := ctx
	var cancel context.CancelFunc
	if p.messageTimeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, p.messageTimeout)
		defer cancel()
	}

	err := f(callCtx, msg.Data)
	now := time.Now()
	msg.ProcessedAt = &now

	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats.InFlight--

	switch {
	case err == nil:
		msg.Processed = true
		p.stats.Succeeded++
		p.checkpoint.ProcessedCount++
	case callCtx.Err() == context.DeadlineExceeded:
		p.stats.DroppedDueToTimeout++
		p.logger.Debug("streaming: message dropped on timeout", "index", msg.Index)
	default:
		msg.Error = err
		p.stats.Failed++
		p.checkpoint.FailedCount++
	}

	if msg.Index > p.checkpoint.Position {
		p.checkpoint.Position = msg.Index
	}
	p.checkpoint.Timestamp = now

	return true, nil
}

// GetCheckpoint returns the current Checkpoint.
func (p *Processor) GetCheckpoint() Checkpoint {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.checkpoint
}

// SetCheckpoint restores cp, for resuming a previously-interrupted run.
func (p *Processor) SetCheckpoint(cp Checkpoint) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.checkpoint = cp
}

// GetStats returns a snapshot of the run-wide counters.
func (p *Processor) GetStats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}
