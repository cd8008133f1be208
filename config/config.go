// Package config loads a top-level run configuration (policy,
// strictness, paths, batch tuning) from YAML or JSON and translates it
// into the functional-options slices each collaborating package's
// constructor takes. It is a thin adapter, not a parallel abstraction
// layer: every field maps onto exactly one pipeline.Option.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"go.yaml.in/yaml/v4"

	"github.com/edicraft/edipipe/mapping"
	"github.com/edicraft/edipipe/pipeline"
	"github.com/edicraft/edipipe/schema"
	"github.com/edicraft/edipipe/validation"
)

// RunConfig is the declarative shape of a run: everything a CLI
// invocation needs that isn't better expressed as a flag. Dual
// yaml/json tags mirror mapping.Mapping's convention so the same
// struct round-trips through either codec.
type RunConfig struct {
	Policy       string `yaml:"policy" json:"policy"`
	Strictness   string `yaml:"strictness" json:"strictness"`
	OutputFormat string `yaml:"output_format" json:"output_format"`

	Streaming         bool  `yaml:"streaming" json:"streaming"`
	MaxConcurrency    int64 `yaml:"max_concurrency" json:"max_concurrency"`
	ChannelBufferSize int   `yaml:"channel_buffer_size" json:"channel_buffer_size"`

	MaxFileSize int64 `yaml:"max_file_size" json:"max_file_size"`

	BatchMaxRetries  int    `yaml:"batch_max_retries" json:"batch_max_retries"`
	BatchMaxDuration string `yaml:"batch_max_duration" json:"batch_max_duration"`

	SchemaDir   string `yaml:"schema_dir" json:"schema_dir"`
	SchemaName  string `yaml:"schema_name" json:"schema_name"`
	SchemaVer   string `yaml:"schema_version" json:"schema_version"`
	MappingFile string `yaml:"mapping_file" json:"mapping_file"`

	ValidateBeforeProcessing *bool `yaml:"validate_before_processing" json:"validate_before_processing"`
	EnableMapping            *bool `yaml:"enable_mapping" json:"enable_mapping"`
}

// Load reads path and parses it as RunConfig. The extension
// (".json" vs anything else, defaulting to YAML) selects the codec,
// the same convention schema.Loader and mapping.Load use.
func Load(path string) (*RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	var cfg RunConfig
	if strings.HasSuffix(path, ".json") {
		err = json.Unmarshal(data, &cfg)
	} else {
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}
	return &cfg, nil
}

func parsePolicy(s string) (pipeline.AcceptancePolicy, error) {
	switch strings.ToLower(s) {
	case "", "failall", "fail-all":
		return pipeline.FailAll, nil
	case "acceptall", "accept-all":
		return pipeline.AcceptAll, nil
	case "quarantine":
		return pipeline.Quarantine, nil
	default:
		return 0, fmt.Errorf("config: unknown acceptance policy %q", s)
	}
}

// ParseStrictness maps a run configuration's strictness name onto the
// validation.Strictness it selects. Exported so the CLI's standalone
// validate command can share this mapping instead of redefining it.
func ParseStrictness(s string) (validation.Strictness, error) {
	switch strings.ToLower(s) {
	case "", "moderate":
		return validation.Moderate, nil
	case "strict":
		return validation.Strict, nil
	case "lenient":
		return validation.Lenient, nil
	default:
		return 0, fmt.Errorf("config: unknown strictness %q", s)
	}
}

func parseOutputFormat(s string) (pipeline.OutputFormat, error) {
	switch strings.ToLower(s) {
	case "", "edifact":
		return pipeline.Edifact, nil
	case "json":
		return pipeline.Json, nil
	case "csv":
		return pipeline.Csv, nil
	case "xml":
		return pipeline.Xml, nil
	default:
		return 0, fmt.Errorf("config: unknown output format %q", s)
	}
}

// PipelineOptions translates cfg into the pipeline.Option slice that
// reproduces it, loading the referenced schema and mapping files along
// the way. Zero-valued concurrency/batch fields are left at
// pipeline.DefaultConfig's values rather than forced to zero.
func (cfg *RunConfig) PipelineOptions() ([]pipeline.Option, error) {
	var opts []pipeline.Option

	policy, err := parsePolicy(cfg.Policy)
	if err != nil {
		return nil, err
	}
	opts = append(opts, pipeline.WithAcceptancePolicy(policy))

	strictness, err := ParseStrictness(cfg.Strictness)
	if err != nil {
		return nil, err
	}
	opts = append(opts, pipeline.WithStrictness(strictness))

	format, err := parseOutputFormat(cfg.OutputFormat)
	if err != nil {
		return nil, err
	}
	opts = append(opts, pipeline.WithOutputFormat(format))

	opts = append(opts, pipeline.WithStreaming(cfg.Streaming))

	if cfg.MaxConcurrency > 0 || cfg.ChannelBufferSize > 0 {
		maxConcurrency := cfg.MaxConcurrency
		if maxConcurrency <= 0 {
			maxConcurrency = pipeline.DefaultConfig().MaxConcurrency
		}
		bufferSize := cfg.ChannelBufferSize
		if bufferSize <= 0 {
			bufferSize = pipeline.DefaultConfig().ChannelBufferSize
		}
		opts = append(opts, pipeline.WithConcurrency(maxConcurrency, bufferSize))
	}

	if cfg.MaxFileSize > 0 {
		opts = append(opts, pipeline.WithMaxFileSize(cfg.MaxFileSize))
	}

	if cfg.BatchMaxDuration != "" || cfg.BatchMaxRetries > 0 {
		var maxDuration time.Duration
		if cfg.BatchMaxDuration != "" {
			maxDuration, err = time.ParseDuration(cfg.BatchMaxDuration)
			if err != nil {
				return nil, fmt.Errorf("config: invalid batch_max_duration %q: %w", cfg.BatchMaxDuration, err)
			}
		} else {
			maxDuration = pipeline.DefaultConfig().BatchMaxDuration
		}
		opts = append(opts, pipeline.WithBatchRetries(cfg.BatchMaxRetries, maxDuration))
	}

	if cfg.SchemaName != "" {
		loader := schema.NewLoader(cfg.SchemaDir)
		sch, err := loader.Load(cfg.SchemaName, cfg.SchemaVer)
		if err != nil {
			return nil, err
		}
		opts = append(opts, pipeline.WithSchema(sch))
	}

	if cfg.MappingFile != "" {
		data, err := os.ReadFile(cfg.MappingFile)
		if err != nil {
			return nil, fmt.Errorf("config: failed to read mapping file %s: %w", cfg.MappingFile, err)
		}
		m, err := mapping.Load(cfg.MappingFile, data)
		if err != nil {
			return nil, err
		}
		opts = append(opts, pipeline.WithMapping(m))
	}

	if cfg.ValidateBeforeProcessing != nil {
		opts = append(opts, pipeline.WithValidateBeforeProcessing(*cfg.ValidateBeforeProcessing))
	}
	if cfg.EnableMapping != nil {
		opts = append(opts, pipeline.WithEnableMapping(*cfg.EnableMapping))
	}

	return opts, nil
}
