// Package pipeline orchestrates EDI file processing: parsing, the
// accept/fail/quarantine policy, optional validation and mapping
// collaborators, output rendering, and run-wide statistics.
package pipeline

import (
	"fmt"
	"os"
	"time"

	"github.com/edicraft/edipipe/batch"
	"github.com/edicraft/edipipe/edierrors"
	"github.com/edicraft/edipipe/edifact"
	"github.com/edicraft/edipipe/edilog"
	"github.com/edicraft/edipipe/ir"
	"github.com/edicraft/edipipe/mapping"
	"github.com/edicraft/edipipe/quarantine"
	"github.com/edicraft/edipipe/schema"
	"github.com/edicraft/edipipe/validation"
)

// AcceptancePolicy governs how a pipeline reacts to a failing message
// or file.
type AcceptancePolicy int

const (
	// FailAll stops the file on the first failing message, and stops
	// the batch on the first failing file.
	FailAll AcceptancePolicy = iota
	// AcceptAll reports failures but keeps processing; batches always
	// succeed under this policy.
	AcceptAll
	// Quarantine routes failing messages to the quarantine store and
	// keeps processing; the file is flagged quarantined.
	Quarantine
)

func (p AcceptancePolicy) String() string {
	switch p {
	case FailAll:
		return "FailAll"
	case AcceptAll:
		return "AcceptAll"
	case Quarantine:
		return "Quarantine"
	default:
		return "Unknown"
	}
}

// OutputFormat selects the renderer applied to a processed document.
type OutputFormat int

const (
	Edifact OutputFormat = iota
	Json
	Csv
	Xml
)

func (f OutputFormat) String() string {
	switch f {
	case Edifact:
		return "Edifact"
	case Json:
		return "Json"
	case Csv:
		return "Csv"
	case Xml:
		return "Xml"
	default:
		return "Unknown"
	}
}

// Validator is the pluggable validation collaborator. The built-in
// path (used when none is injected) runs a schema-driven
// validation.Engine, falling back to a bare empty-document check when
// no schema is configured.
type Validator interface {
	Validate(doc *ir.Document) (*validation.Report, error)
}

// Mapper is the pluggable mapping collaborator. The built-in path
// (used when none is injected) runs a mapping.Mapping through a
// mapping.Runtime.
type Mapper interface {
	Map(doc *ir.Document) (*ir.Document, error)
}

// Config configures a Pipeline.
type Config struct {
	AcceptancePolicy        AcceptancePolicy
	Strictness              validation.Strictness
	MaxFileSize             int64
	ValidateBeforeProcessing bool
	EnableMapping           bool
	OutputFormat            OutputFormat
	Streaming               bool
	MaxConcurrency          int64
	ChannelBufferSize       int
	MessageTimeout          time.Duration
	BatchMaxRetries         int
	BatchMaxDuration        time.Duration
	Schema                  *schema.Schema
	Mapping                 *mapping.Mapping
	Validator               Validator
	Mapper                  Mapper
	Logger                  edilog.Logger
}

// DefaultConfig returns a Config with the same defaults the reference
// implementation ships: moderate strictness, FailAll policy, a
// 100MiB file-size ceiling, validation and mapping both on,
// sequential processing, and Edifact output.
func DefaultConfig() Config {
	return Config{
		AcceptancePolicy:         FailAll,
		Strictness:               validation.Moderate,
		MaxFileSize:              100 * 1024 * 1024,
		ValidateBeforeProcessing: true,
		EnableMapping:            true,
		OutputFormat:             Edifact,
		Streaming:                false,
		MaxConcurrency:           4,
		ChannelBufferSize:        16,
		MessageTimeout:           30 * time.Second,
		BatchMaxRetries:          2,
		BatchMaxDuration:         30 * time.Second,
		Logger:                   edilog.NopLogger{},
	}
}

// Stats accumulates run-wide counters across every ProcessFile call.
type Stats struct {
	FilesProcessed     int
	FilesSuccessful    int
	FilesFailed        int
	FilesQuarantined   int
	MessagesProcessed  int
	MessagesSuccessful int
	MessagesFailed     int
	ValidationErrors   int
	BytesProcessed     int64
	TotalProcessingTime time.Duration
	StartedAt          *time.Time
}

// Metrics are derived, point-in-time rates computed from Stats.
type Metrics struct {
	FilesPerSecond    float64
	MessagesPerSecond float64
	AvgFileTimeMs     float64
	ErrorRate         float64
	ThroughputMbps    float64
}

// FileResult is the outcome of processing a single file.
type FileResult struct {
	Path         string
	Success      bool
	Error        string
	MessageCount int
	SuccessCount int
	FailureCount int
	Duration     time.Duration
	Quarantined  bool
	// Outputs holds the rendered payload for every successfully
	// processed message, in document order.
	Outputs [][]byte
}

// BatchResult is the outcome of processing a batch of files.
type BatchResult struct {
	FileResults      []FileResult
	TotalFiles       int
	SuccessfulFiles  int
	FailedFiles      int
	QuarantinedFiles int
	TotalDuration    time.Duration
	BatchSuccess     bool
}

// Pipeline is the main orchestrator. It is not safe for concurrent
// use by multiple goroutines calling ProcessFile/ProcessBatch at
// once — a Document and its IR are single-owner, moved rather than
// shared, per message.
type Pipeline struct {
	config     Config
	quarantine *quarantine.Store[[]byte]
	mapper     *mapping.Runtime
	stats      Stats
	running    bool
	metrics    *otelMetrics
}

// New creates a Pipeline from cfg.
func New(cfg Config) *Pipeline {
	if cfg.Logger == nil {
		cfg.Logger = edilog.NopLogger{}
	}
	return &Pipeline{
		config:     cfg,
		quarantine: quarantine.NewStore[[]byte](10000, 3),
		mapper:     mapping.NewRuntime(nil),
		metrics:    newOtelMetrics(),
	}
}

// WithDefaults creates a Pipeline with DefaultConfig.
func WithDefaults() *Pipeline {
	return New(DefaultConfig())
}

// Start marks the pipeline running and records the start time if this
// is the first call.
func (p *Pipeline) Start() {
	p.running = true
	if p.stats.StartedAt == nil {
		now := time.Now()
		p.stats.StartedAt = &now
	}
}

// Stop marks the pipeline not running.
func (p *Pipeline) Stop() { p.running = false }

// IsRunning reports whether Start has been called without a matching Stop.
func (p *Pipeline) IsRunning() bool { return p.running }

// Stats returns a snapshot of the run-wide counters.
func (p *Pipeline) Stats() Stats { return p.stats }

// ResetStats zeroes the run-wide counters.
func (p *Pipeline) ResetStats() { p.stats = Stats{} }

// Config returns the pipeline's configuration.
func (p *Pipeline) Config() Config { return p.config }

// Quarantine returns the pipeline's quarantine store.
func (p *Pipeline) Quarantine() *quarantine.Store[[]byte] { return p.quarantine }

// Metrics computes derived, point-in-time rates from the current Stats.
func (p *Pipeline) Metrics() Metrics {
	elapsed := p.stats.TotalProcessingTime
	if p.stats.StartedAt != nil {
		if since := time.Since(*p.stats.StartedAt); since > 0 {
			elapsed = since
		}
	}
	elapsedSecs := elapsed.Seconds()

	var bytesPerSecond float64
	if elapsedSecs > 0 {
		bytesPerSecond = float64(p.stats.BytesProcessed) / elapsedSecs
	}

	m := Metrics{}
	if elapsedSecs > 0 {
		m.FilesPerSecond = float64(p.stats.FilesProcessed) / elapsedSecs
		m.MessagesPerSecond = float64(p.stats.MessagesProcessed) / elapsedSecs
	}
	if p.stats.FilesProcessed > 0 {
		m.AvgFileTimeMs = float64(p.stats.TotalProcessingTime.Milliseconds()) / float64(p.stats.FilesProcessed)
		m.ErrorRate = (float64(p.stats.FilesFailed) / float64(p.stats.FilesProcessed)) * 100.0
	}
	m.ThroughputMbps = bytesPerSecond * 8.0 / 1_000_000.0
	return m
}

// ProcessFile reads and processes a single file under the pipeline's
// configured policy.
func (p *Pipeline) ProcessFile(path string) (FileResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileResult{}, &edierrors.PipelineError{FilePath: path, Details: "file not found", Cause: err}
	}
	if info.Size() > p.config.MaxFileSize {
		return FileResult{}, &edierrors.PipelineError{
			FilePath: path,
			Details:  fmt.Sprintf("file too large: %d bytes (max %d bytes)", info.Size(), p.config.MaxFileSize),
		}
	}

	if p.stats.StartedAt == nil {
		p.Start()
	}
	start := time.Now()

	content, err := os.ReadFile(path)
	if err != nil {
		return FileResult{}, &edierrors.PipelineError{FilePath: path, Details: "cannot read file", Cause: err}
	}

	summary, procErr := p.processContent(content, path)
	duration := time.Since(start)

	p.stats.FilesProcessed++
	p.stats.BytesProcessed += int64(len(content))
	p.stats.TotalProcessingTime += duration
	p.metrics.recordFile(duration, int64(len(content)))

	if procErr != nil {
		p.stats.FilesFailed++
		if p.config.AcceptancePolicy == Quarantine {
			if _, qerr := p.quarantine.Insert(content, quarantine.ProcessingError, procErr.Error(), path); qerr != nil {
				p.config.Logger.Warn("pipeline: quarantine insert failed", "path", path, "error", qerr)
			} else {
				p.stats.FilesQuarantined++
				p.metrics.recordQuarantined(1)
			}
		}
		return FileResult{}, procErr
	}

	if summary.messageCount == 0 && p.config.AcceptancePolicy == Quarantine {
		msg := summary.fileError
		if msg == "" {
			msg = "no messages were parsed from file"
		}
		if _, qerr := p.quarantine.Insert(content, quarantine.ProcessingError, msg, path); qerr == nil {
			summary.quarantined = true
			p.metrics.recordQuarantined(1)
		}
	}

	p.stats.MessagesProcessed += summary.messageCount
	p.stats.MessagesSuccessful += summary.successCount
	p.stats.MessagesFailed += summary.failureCount
	p.stats.ValidationErrors += summary.validationFailures
	p.metrics.recordMessages(summary.successCount, summary.failureCount)

	if summary.quarantined {
		p.stats.FilesQuarantined++
	}

	if summary.fatalError != "" {
		p.stats.FilesFailed++
		return FileResult{}, &edierrors.PipelineError{FilePath: path, Details: summary.fatalError}
	}

	success := true
	errMsg := ""
	switch {
	case summary.messageCount == 0:
		success = false
		errMsg = summary.fileError
		if errMsg == "" {
			errMsg = "no messages were parsed from file"
		}
	case p.config.AcceptancePolicy == FailAll && summary.failureCount > 0:
		success = false
		errMsg = summary.fileError
	}

	if success {
		p.stats.FilesSuccessful++
	} else {
		p.stats.FilesFailed++
	}

	return FileResult{
		Path:         path,
		Success:      success,
		Error:        errMsg,
		MessageCount: summary.messageCount,
		SuccessCount: summary.successCount,
		FailureCount: summary.failureCount,
		Duration:     duration,
		Quarantined:  summary.quarantined,
		Outputs:      summary.outputs,
	}, nil
}

type fileSummary struct {
	messageCount       int
	successCount       int
	failureCount       int
	validationFailures int
	quarantined        bool
	outputs            [][]byte
	fileError          string
	fatalError         string
}

func (p *Pipeline) processContent(content []byte, path string) (fileSummary, error) {
	docs, err := edifact.NewParser(content).ParseAll()
	if err != nil {
		return fileSummary{}, &edierrors.PipelineError{FilePath: path, Details: "failed to parse", Cause: err}
	}

	if len(docs) == 0 {
		summary := fileSummary{fileError: "no messages were parsed from file"}
		if p.config.AcceptancePolicy == FailAll {
			summary.fatalError = summary.fileError
		}
		return summary, nil
	}

	cfg := p.messageConfig()
	stopOnFailure := p.config.AcceptancePolicy == FailAll

	var outcomes []messageOutcome
	if p.config.Streaming && p.config.Validator == nil && p.config.Mapper == nil {
		outcomes, err = p.processDocumentsStreaming(cfg, docs, stopOnFailure)
		if err != nil {
			return fileSummary{}, &edierrors.PipelineError{FilePath: path, Details: "streaming processing failed", Cause: err}
		}
	} else {
		if p.config.Streaming {
			p.config.Logger.Warn("pipeline: streaming requested but validator/mapper injected, falling back to sequential", "path", path)
		}
		outcomes = p.processDocumentsSequential(cfg, docs, stopOnFailure)
	}

	summary := fileSummary{messageCount: len(outcomes)}
	for _, outcome := range outcomes {
		if outcome.success {
			summary.successCount++
			summary.outputs = append(summary.outputs, outcome.output)
			continue
		}

		summary.failureCount++
		summary.validationFailures += outcome.validationFailures
		if summary.fileError == "" {
			summary.fileError = outcome.errMsg
		}

		switch p.config.AcceptancePolicy {
		case AcceptAll:
		case FailAll:
			summary.fatalError = outcome.errMsg
		case Quarantine:
			id := fmt.Sprintf("%s:%s", path, outcome.messageID)
			reason := outcome.quarantineReason
			errMsg := outcome.errMsg
			if errMsg == "" {
				errMsg = "message failed without detailed error"
			}
			if _, qerr := p.quarantine.Insert(outcome.quarantinePayload, reason, errMsg, id); qerr != nil {
				p.config.Logger.Warn("pipeline: quarantine insert failed", "id", id, "error", qerr)
			} else {
				summary.quarantined = true
				p.metrics.recordQuarantined(1)
			}
		}

		if summary.fatalError != "" {
			break
		}
	}

	return summary, nil
}

func (p *Pipeline) messageConfig() messageProcessingConfig {
	return messageProcessingConfig{
		validateBeforeProcessing: p.config.ValidateBeforeProcessing,
		enableMapping:            p.config.EnableMapping,
		strictness:               p.config.Strictness,
		outputFormat:             p.config.OutputFormat,
		schema:                   p.config.Schema,
		mappingDSL:               p.config.Mapping,
		runtime:                  p.mapper,
		validator:                p.config.Validator,
		mapper:                   p.config.Mapper,
	}
}

// ProcessWithValidation processes path with an explicit validator
// collaborator for this call only.
func (p *Pipeline) ProcessWithValidation(path string, v Validator) (FileResult, error) {
	prior := p.config.Validator
	p.config.Validator = v
	defer func() { p.config.Validator = prior }()
	return p.ProcessFile(path)
}

// ProcessWithMapping processes path with an explicit mapper
// collaborator for this call only.
func (p *Pipeline) ProcessWithMapping(path string, m Mapper) (FileResult, error) {
	prior := p.config.Mapper
	p.config.Mapper = m
	defer func() { p.config.Mapper = prior }()
	return p.ProcessFile(path)
}

// ProcessBatch processes every path in sequence, applying
// BatchMaxRetries to each failing file and stopping the whole batch
// as soon as a file fails under FailAll.
func (p *Pipeline) ProcessBatch(paths []string) (BatchResult, error) {
	start := time.Now()
	b := batch.New[string](len(paths), p.config.BatchMaxDuration, p.config.BatchMaxRetries)
	for _, path := range paths {
		if _, err := b.Add(path); err != nil {
			return BatchResult{}, err
		}
	}

	var results []FileResult
	stopProcessing := false
	maxAttempts := p.config.BatchMaxRetries + 1
	// BatchMaxDuration is a soft deadline for retries: once it has
	// passed, a failing file is not attempted again. Zero disables it.
	canRetry := func(attempt int) bool {
		if attempt >= maxAttempts {
			return false
		}
		return p.config.BatchMaxDuration <= 0 || time.Since(start) < p.config.BatchMaxDuration
	}

	for i := 0; i < len(paths) && !stopProcessing; i++ {
		path := paths[i]
		var result FileResult
		var lastErr error

		for attempt := 1; attempt <= maxAttempts; attempt++ {
			result, lastErr = p.ProcessFile(path)
			if lastErr != nil {
				if canRetry(attempt) {
					p.config.Logger.Warn("pipeline: retrying file after processing error", "path", path, "attempt", attempt, "error", lastErr)
					continue
				}
				result = FileResult{Path: path, Success: false, Error: lastErr.Error()}
				if p.config.AcceptancePolicy == FailAll {
					stopProcessing = true
				}
				break
			}

			if !result.Success && canRetry(attempt) {
				p.config.Logger.Warn("pipeline: retrying file after policy-level failure", "path", path, "attempt", attempt)
				continue
			}

			if p.config.AcceptancePolicy == FailAll && !result.Success {
				stopProcessing = true
			}
			break
		}

		results = append(results, result)
	}

	successfulFiles, failedFiles, quarantinedFiles := 0, 0, 0
	for _, r := range results {
		if r.Success {
			successfulFiles++
		} else {
			failedFiles++
		}
		if r.Quarantined {
			quarantinedFiles++
		}
	}

	batchSuccess := true
	if p.config.AcceptancePolicy == FailAll {
		batchSuccess = failedFiles == 0
	}

	return BatchResult{
		FileResults:      results,
		TotalFiles:       len(paths),
		SuccessfulFiles:  successfulFiles,
		FailedFiles:      failedFiles,
		QuarantinedFiles: quarantinedFiles,
		TotalDuration:    time.Since(start),
		BatchSuccess:     batchSuccess,
	}, nil
}
