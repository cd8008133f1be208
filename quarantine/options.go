package quarantine

import (
	"fmt"

	"github.com/edicraft/edipipe/edilog"
)

// Option configures a Store built via NewStoreWithOptions.
type Option func(*config) error

type config struct {
	maxSize    int
	maxRetries int
	logger     edilog.Logger
}

// NewStoreWithOptions builds a Store from functional options. Unset
// fields default to a capacity of 1000 entries, 3 retry attempts, and
// a no-op logger.
func NewStoreWithOptions[T any](opts ...Option) (*Store[T], error) {
	cfg := &config{
		maxSize:    1000,
		maxRetries: 3,
		logger:     edilog.NopLogger{},
	}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	s := NewStore[T](cfg.maxSize, cfg.maxRetries)
	s.logger = cfg.logger
	return s, nil
}

// WithMaxSize sets the store's entry capacity.
func WithMaxSize(n int) Option {
	return func(cfg *config) error {
		if n <= 0 {
			return fmt.Errorf("quarantine: max size must be positive")
		}
		cfg.maxSize = n
		return nil
	}
}

// WithMaxRetries sets the number of retry attempts allowed per entry.
func WithMaxRetries(n int) Option {
	return func(cfg *config) error {
		if n < 0 {
			return fmt.Errorf("quarantine: max retries must not be negative")
		}
		cfg.maxRetries = n
		return nil
	}
}

// WithLogger sets a structured logger for capacity and retry
// diagnostics. By default, no logging is performed.
func WithLogger(l edilog.Logger) Option {
	return func(cfg *config) error {
		if l == nil {
			l = edilog.NopLogger{}
		}
		cfg.logger = l
		return nil
	}
}
