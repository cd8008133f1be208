package pipeline

import (
	"fmt"
	"time"

	"github.com/edicraft/edipipe/edilog"
	"github.com/edicraft/edipipe/mapping"
	"github.com/edicraft/edipipe/schema"
	"github.com/edicraft/edipipe/validation"
)

// Option configures a Pipeline built via NewWithOptions.
type Option func(*Config) error

// NewWithOptions builds a Pipeline from functional options layered
// over DefaultConfig.
func NewWithOptions(opts ...Option) (*Pipeline, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}
	return New(cfg), nil
}

// WithAcceptancePolicy sets the per-message/per-file acceptance policy.
func WithAcceptancePolicy(policy AcceptancePolicy) Option {
	return func(cfg *Config) error {
		cfg.AcceptancePolicy = policy
		return nil
	}
}

// WithStrictness sets the validation strictness gradient.
func WithStrictness(s validation.Strictness) Option {
	return func(cfg *Config) error {
		cfg.Strictness = s
		return nil
	}
}

// WithMaxFileSize sets the preflight file-size ceiling, in bytes.
func WithMaxFileSize(n int64) Option {
	return func(cfg *Config) error {
		if n <= 0 {
			return fmt.Errorf("pipeline: max file size must be positive")
		}
		cfg.MaxFileSize = n
		return nil
	}
}

// WithOutputFormat sets the renderer applied to processed messages.
func WithOutputFormat(format OutputFormat) Option {
	return func(cfg *Config) error {
		cfg.OutputFormat = format
		return nil
	}
}

// WithStreaming enables or disables the streaming execution style.
// It is silently downgraded to sequential per-file whenever a
// validator or mapper collaborator is injected.
func WithStreaming(enabled bool) Option {
	return func(cfg *Config) error {
		cfg.Streaming = enabled
		return nil
	}
}

// WithConcurrency sets the streaming concurrency permit count and
// channel buffer size.
func WithConcurrency(maxConcurrency int64, channelBufferSize int) Option {
	return func(cfg *Config) error {
		if maxConcurrency <= 0 {
			return fmt.Errorf("pipeline: max concurrency must be positive")
		}
		if channelBufferSize <= 0 {
			return fmt.Errorf("pipeline: channel buffer size must be positive")
		}
		cfg.MaxConcurrency = maxConcurrency
		cfg.ChannelBufferSize = channelBufferSize
		return nil
	}
}

// WithMessageTimeout sets the per-message hard timeout used in streaming mode.
func WithMessageTimeout(d time.Duration) Option {
	return func(cfg *Config) error {
		cfg.MessageTimeout = d
		return nil
	}
}

// WithBatchRetries sets the batch-of-files retry budget and soft deadline.
func WithBatchRetries(maxRetries int, maxDuration time.Duration) Option {
	return func(cfg *Config) error {
		if maxRetries < 0 {
			return fmt.Errorf("pipeline: max retries must not be negative")
		}
		cfg.BatchMaxRetries = maxRetries
		cfg.BatchMaxDuration = maxDuration
		return nil
	}
}

// WithSchema enables schema-driven validation in the built-in path
// (used when no Validator collaborator is injected).
func WithSchema(sch *schema.Schema) Option {
	return func(cfg *Config) error {
		cfg.Schema = sch
		return nil
	}
}

// WithMapping enables DSL-driven mapping in the built-in path (used
// when no Mapper collaborator is injected).
func WithMapping(m *mapping.Mapping) Option {
	return func(cfg *Config) error {
		cfg.Mapping = m
		return nil
	}
}

// WithValidator injects a Validator collaborator, superseding the
// built-in schema-driven validation path.
func WithValidator(v Validator) Option {
	return func(cfg *Config) error {
		cfg.Validator = v
		return nil
	}
}

// WithMapper injects a Mapper collaborator, superseding the built-in
// DSL-driven mapping path.
func WithMapper(m Mapper) Option {
	return func(cfg *Config) error {
		cfg.Mapper = m
		return nil
	}
}

// WithLogger sets a structured logger for streaming-downgrade
// warnings, per-file diagnostics, and quarantine-insert failures.
func WithLogger(l edilog.Logger) Option {
	return func(cfg *Config) error {
		if l == nil {
			l = edilog.NopLogger{}
		}
		cfg.Logger = l
		return nil
	}
}

// WithValidateBeforeProcessing toggles whether validation runs at all.
func WithValidateBeforeProcessing(enabled bool) Option {
	return func(cfg *Config) error {
		cfg.ValidateBeforeProcessing = enabled
		return nil
	}
}

// WithEnableMapping toggles whether mapping runs at all.
func WithEnableMapping(enabled bool) Option {
	return func(cfg *Config) error {
		cfg.EnableMapping = enabled
		return nil
	}
}
