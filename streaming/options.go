package streaming

import (
	"fmt"
	"time"

	"github.com/edicraft/edipipe/edilog"
)

// Option configures a Processor built via NewWithOptions.
type Option func(*config) error

type config struct {
	channelBufferSize int
	maxConcurrency    int64
	messageTimeout    time.Duration
	logger            edilog.Logger
}

// NewWithOptions builds a Processor from functional options. Unset
// fields default to a buffer of 16, concurrency of 4, a 30s message
// timeout, and a no-op logger.
func NewWithOptions(opts ...Option) (*Processor, error) {
	cfg := &config{
		channelBufferSize: 16,
		maxConcurrency:    4,
		messageTimeout:    30 * time.Second,
		logger:            edilog.NopLogger{},
	}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	p := New(cfg.channelBufferSize, cfg.maxConcurrency, cfg.messageTimeout)
	p.logger = cfg.logger
	return p, nil
}

// WithChannelBufferSize sets the bounded queue's capacity.
func WithChannelBufferSize(n int) Option {
	return func(cfg *config) error {
		if n <= 0 {
			return fmt.Errorf("streaming: channel buffer size must be positive")
		}
		cfg.channelBufferSize = n
		return nil
	}
}

// WithMaxConcurrency sets the number of concurrency permits.
func WithMaxConcurrency(n int64) Option {
	return func(cfg *config) error {
		if n <= 0 {
			return fmt.Errorf("streaming: max concurrency must be positive")
		}
		cfg.maxConcurrency = n
		return nil
	}
}

// WithMessageTimeout sets the per-message hard timeout.
func WithMessageTimeout(d time.Duration) Option {
	return func(cfg *config) error {
		cfg.messageTimeout = d
		return nil
	}
}

// WithLogger sets a structured logger for backpressure and timeout
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
