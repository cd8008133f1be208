// Package batch implements a bounded, deadline-aware batch of items
// with explicit per-item status tracking and a retry budget.
package batch

import (
	"time"

	"github.com/edicraft/edipipe/edierrors"
	"github.com/google/uuid"
)

// Status is the explicit lifecycle state of one BatchItem.
type Status int

const (
	Pending Status = iota
	Processing
	Success
	Failed
	Retrying
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Processing:
		return "processing"
	case Success:
		return "success"
	case Failed:
		return "failed"
	case Retrying:
		return "retrying"
	default:
		return "unknown"
	}
}

// Item is one unit of work carried in a Batch.
type Item[T any] struct {
	ID       string
	Data     T
	Status   Status
	Error    error
	Position int
}

// Result is the outcome of finalizing a Batch: items partitioned by
// terminal status, plus summary statistics.
type Result[T any] struct {
	Successful     []Item[T]
	Retry          []Item[T]
	Failed         []Item[T]
	ProcessingTime time.Duration
	ProcessedCount int
	SuccessRate    float64
}

// Batch is a bounded, insertion-ordered collection of Items with a
// soft deadline and a retry budget. Add refuses once the batch is
// full; Should Flush is the full-or-deadline-passed gate the caller
// polls to decide when to finalize.
type Batch[T any] struct {
	maxSize     int
	maxDuration time.Duration
	maxRetries  int
	retryCount  int

	items     []Item[T]
	startedAt time.Time
}

// New creates a Batch bounded by maxSize items, flushed no later than
// maxDuration after the first Add, and allowing up to maxRetries
// retry passes.
func New[T any](maxSize int, maxDuration time.Duration, maxRetries int) *Batch[T] {
	return &Batch[T]{maxSize: maxSize, maxDuration: maxDuration, maxRetries: maxRetries}
}

// Len reports the current item count.
func (b *Batch[T]) Len() int { return len(b.items) }

// Full reports whether the batch has reached maxSize.
func (b *Batch[T]) Full() bool { return len(b.items) >= b.maxSize }

// Add appends data as a new Pending item. It returns (false, nil),
// not an error, when the batch is already full — fullness is a
// signal to flush, not a failure.
func (b *Batch[T]) Add(data T) (bool, error) {
	if b.Full() {
		return false, nil
	}
	if len(b.items) == 0 {
		b.startedAt = time.Now()
	}
	b.items = append(b.items, Item[T]{
		ID:       uuid.NewString(),
		Data:     data,
		Status:   Pending,
		Position: len(b.items),
	})
	return true, nil
}

// ShouldFlush reports whether the batch is full or its deadline has
// passed since the first Add.
func (b *Batch[T]) ShouldFlush() bool {
	if b.Full() {
		return true
	}
	if b.startedAt.IsZero() {
		return false
	}
	return time.Since(b.startedAt) >= b.maxDuration
}

// MarkSuccess transitions the item at position to Success.
func (b *Batch[T]) MarkSuccess(position int) error {
	item, err := b.itemAt(position)
	if err != nil {
		return err
	}
	item.Status = Success
	item.Error = nil
	return nil
}

// MarkFailed transitions the item at position to Failed, recording
// cause. If the batch's own retry budget is not yet exhausted, the
// item instead transitions to Retrying so a later pass can retry it.
func (b *Batch[T]) MarkFailed(position int, cause error) error {
	item, err := b.itemAt(position)
	if err != nil {
		return err
	}
	item.Error = cause
	if b.retryCount < b.maxRetries {
		item.Status = Retrying
		return nil
	}
	item.Status = Failed
	return nil
}

// BumpRetryCount increments the batch-wide retry counter, consumed
// against maxRetries — retry accounting is per-batch, not per-item.
func (b *Batch[T]) BumpRetryCount() { b.retryCount++ }

func (b *Batch[T]) itemAt(position int) (*Item[T], error) {
	for i := range b.items {
		if b.items[i].Position == position {
			return &b.items[i], nil
		}
	}
	return nil, &edierrors.BatchError{Details: "no item at the given position"}
}

// IntoResult finalizes the batch: items partition into Successful,
// Retry (items still Pending/Processing/Retrying), and Failed
// (stable within each bucket, preserving insertion order), and
// summary statistics are computed.
func (b *Batch[T]) IntoResult() Result[T] {
	result := Result[T]{ProcessingTime: time.Since(b.startedAt), ProcessedCount: len(b.items)}

	for _, item := range b.items {
		switch item.Status {
		case Success:
			result.Successful = append(result.Successful, item)
		case Failed:
			result.Failed = append(result.Failed, item)
		default:
			result.Retry = append(result.Retry, item)
		}
	}

	if len(b.items) > 0 {
		result.SuccessRate = float64(len(result.Successful)) / float64(len(b.items))
	}

	return result
}

// FailAll marks every item still short of a terminal state as Failed
// with cause, short-circuiting the batch under a FailAll acceptance
// policy.
func (b *Batch[T]) FailAll(cause error) {
	for i := range b.items {
		if b.items[i].Status != Success {
			b.items[i].Status = Failed
			b.items[i].Error = cause
		}
	}
}
