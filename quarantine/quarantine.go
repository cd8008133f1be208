// Package quarantine holds messages the pipeline could not complete,
// bounded by capacity, with explicit retry and sweep operations.
package quarantine

import (
	"sort"
	"sync"
	"time"

	"github.com/edicraft/edipipe/edierrors"
	"github.com/edicraft/edipipe/edilog"
	"github.com/google/uuid"
)

// Reason classifies why a message was quarantined.
type Reason int

const (
	ValidationFailed Reason = iota
	ProcessingError
)

func (r Reason) String() string {
	switch r {
	case ValidationFailed:
		return "ValidationFailed"
	case ProcessingError:
		return "ProcessingError"
	default:
		return "Unknown"
	}
}

// Entry is one quarantined message, keyed by ID in its owning Store.
type Entry[T any] struct {
	ID            string
	Data          T
	ErrorContext  string
	Reason        Reason
	QuarantinedAt time.Time
	LastRetryAt   *time.Time
	RetryCount    int
	Resolved      bool
	SourceID      string
}

// Store is a thread-safe, capacity-bounded collection of quarantined
// messages. It never exceeds maxSize; Cleanup sweeps entries older
// than a caller-supplied max age.
type Store[T any] struct {
	mu         sync.Mutex
	maxSize    int
	maxRetries int
	entries    map[string]*Entry[T]
	logger     edilog.Logger
}

// NewStore creates a Store bounded by maxSize entries, allowing up to
// maxRetries retry attempts per entry.
func NewStore[T any](maxSize, maxRetries int) *Store[T] {
	return &Store[T]{
		maxSize:    maxSize,
		maxRetries: maxRetries,
		entries:    make(map[string]*Entry[T]),
		logger:     edilog.NopLogger{},
	}
}

// Len reports the current entry count.
func (s *Store[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Insert quarantines data under a new ID, refusing once the store is
// at maxSize.
func (s *Store[T]) Insert(data T, reason Reason, errorContext, sourceID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) >= s.maxSize {
		s.logger.Warn("quarantine: store full", "max_size", s.maxSize, "source_id", sourceID)
		return "", &edierrors.QuarantineError{Details: "quarantine store full"}
	}

	id := uuid.NewString()
	s.entries[id] = &Entry[T]{
		ID:            id,
		Data:          data,
		ErrorContext:  errorContext,
		Reason:        reason,
		QuarantinedAt: time.Now(),
		SourceID:      sourceID,
	}
	return id, nil
}

// Get returns the entry with the given id.
func (s *Store[T]) Get(id string) (*Entry[T], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok {
		return nil, &edierrors.QuarantineError{Details: "no entry with id " + id}
	}
	return entry, nil
}

// Remove marks the entry resolved and deletes it from the store,
// representing a successful reprocessing outcome.
func (s *Store[T]) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok {
		return &edierrors.QuarantineError{Details: "no entry with id " + id}
	}
	entry.Resolved = true
	delete(s.entries, id)
	return nil
}

// Retry extracts the entry's data for reprocessing, bumping its
// RetryCount. It errors once RetryCount has reached maxRetries.
func (s *Store[T]) Retry(id string) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero T
	entry, ok := s.entries[id]
	if !ok {
		return zero, &edierrors.QuarantineError{Details: "no entry with id " + id}
	}
	if entry.RetryCount >= s.maxRetries {
		s.logger.Warn("quarantine: max retries exceeded", "id", id, "retry_count", entry.RetryCount)
		return zero, &edierrors.QuarantineError{Details: "max retries exceeded"}
	}

	now := time.Now()
	entry.RetryCount++
	entry.LastRetryAt = &now
	return entry.Data, nil
}

// Entries returns every unresolved entry, oldest first, for listing
// and inspection (the CLI's "quarantine list").
func (s *Store[T]) Entries() []*Entry[T] {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Entry[T], 0, len(s.entries))
	for _, entry := range s.entries {
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].QuarantinedAt.Before(out[j].QuarantinedAt)
	})
	return out
}

// Cleanup removes entries older than maxAge, returning the count
// removed.
func (s *Store[T]) Cleanup(maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for id, entry := range s.entries {
		if entry.QuarantinedAt.Before(cutoff) {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}
