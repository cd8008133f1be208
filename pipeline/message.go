package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/edicraft/edipipe/internal/severity"
	"github.com/edicraft/edipipe/ir"
	"github.com/edicraft/edipipe/mapping"
	"github.com/edicraft/edipipe/quarantine"
	"github.com/edicraft/edipipe/schema"
	"github.com/edicraft/edipipe/streaming"
	"github.com/edicraft/edipipe/validation"
)

type messageProcessingConfig struct {
	validateBeforeProcessing bool
	enableMapping            bool
	strictness               validation.Strictness
	outputFormat             OutputFormat
	schema                   *schema.Schema
	mappingDSL               *mapping.Mapping
	runtime                  *mapping.Runtime
	validator                Validator
	mapper                   Mapper
}

type messageOutcome struct {
	messageID           string
	success             bool
	errMsg              string
	validationFailures  int
	quarantineReason    quarantine.Reason
	quarantinePayload   []byte
	output              []byte
}

func (p *Pipeline) processDocumentsSequential(cfg messageProcessingConfig, docs []*ir.Document, stopOnFailure bool) []messageOutcome {
	outcomes := make([]messageOutcome, 0, len(docs))
	for i, doc := range docs {
		outcome := processSingleMessage(cfg, i, doc)
		outcomes = append(outcomes, outcome)
		if !outcome.success && stopOnFailure {
			break
		}
	}
	return outcomes
}

// processDocumentsStreaming drives the per-message logic through a
// streaming.Processor: every document is submitted up front (the
// queue is sized to hold them all so Submit never blocks on
// backpressure), then dispatched to worker goroutines bounded by
// max_concurrency, each popping one message and running
// processSingleMessage under the processor's per-message timeout.
// Used only when no validator/mapper collaborator is injected — see
// processContent's downgrade-to-sequential branch.
func (p *Pipeline) processDocumentsStreaming(cfg messageProcessingConfig, docs []*ir.Document, stopOnFailure bool) ([]messageOutcome, error) {
	maxConcurrency := p.config.MaxConcurrency
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	bufferSize := len(docs)
	if bufferSize < 1 {
		bufferSize = 1
	}

	proc := streaming.New(bufferSize, maxConcurrency, p.config.MessageTimeout)
	for i := range docs {
		if err := proc.Submit(streaming.Message{Index: i, Data: []byte(strconv.Itoa(i))}); err != nil {
			return nil, err
		}
	}

	outcomes := make([]messageOutcome, len(docs))
	var mu sync.Mutex
	var wg sync.WaitGroup
	var aborted bool

	workers := int(maxConcurrency)
	if workers > len(docs) {
		workers = len(docs)
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				mu.Lock()
				stop := aborted
				mu.Unlock()
				if stop {
					return
				}

				popped, err := proc.ProcessSingle(context.Background(), func(ctx context.Context, data []byte) error {
					idx, convErr := strconv.Atoi(string(data))
					if convErr != nil {
						return convErr
					}
					outcome := processSingleMessage(cfg, idx, docs[idx])
					mu.Lock()
					outcomes[idx] = outcome
					if !outcome.success && stopOnFailure {
						aborted = true
					}
					mu.Unlock()
					return nil
				})
				if err != nil || !popped {
					return
				}
			}
		}()
	}
	wg.Wait()

	if aborted {
		attempted := make([]messageOutcome, 0, len(outcomes))
		for _, o := range outcomes {
			if o.messageID != "" {
				attempted = append(attempted, o)
			}
		}
		return attempted, nil
	}

	return outcomes, nil
}

func processSingleMessage(cfg messageProcessingConfig, index int, doc *ir.Document) messageOutcome {
	messageID := documentMessageID(doc, index)

	payload, err := canonicalJSON(doc)
	if err != nil {
		return messageOutcome{
			messageID:        messageID,
			errMsg:           fmt.Sprintf("failed to serialize document: %v", err),
			quarantineReason: quarantine.ProcessingError,
		}
	}

	report, err := runValidation(cfg, doc)
	if err != nil {
		return messageOutcome{
			messageID:         messageID,
			errMsg:            err.Error(),
			validationFailures: 1,
			quarantineReason:  quarantine.ValidationFailed,
			quarantinePayload: payload,
		}
	}

	if report != nil {
		failures := 0
		var firstMsg string
		for _, issue := range report.Issues {
			if cfg.strictness.Fails(issue.Severity) {
				failures++
				if firstMsg == "" {
					firstMsg = issue.Message
				}
			}
		}
		if failures > 0 {
			if firstMsg == "" {
				firstMsg = "validation failed"
			}
			return messageOutcome{
				messageID:          messageID,
				errMsg:             firstMsg,
				validationFailures: failures,
				quarantineReason:   quarantine.ValidationFailed,
				quarantinePayload:  payload,
			}
		}
	}

	renderDoc := doc
	if cfg.enableMapping {
		mapped, err := runMapping(cfg, doc)
		if err != nil {
			return messageOutcome{
				messageID:         messageID,
				errMsg:            fmt.Sprintf("mapping failed: %v", err),
				quarantineReason:  quarantine.ProcessingError,
				quarantinePayload: payload,
			}
		}
		if mapped != nil {
			renderDoc = mapped
		}
	}

	output, err := renderOutput(cfg.outputFormat, renderDoc)
	if err != nil {
		return messageOutcome{
			messageID:         messageID,
			errMsg:            err.Error(),
			quarantineReason:  quarantine.ProcessingError,
			quarantinePayload: payload,
		}
	}

	return messageOutcome{messageID: messageID, success: true, output: output}
}

func runValidation(cfg messageProcessingConfig, doc *ir.Document) (*validation.Report, error) {
	if !cfg.validateBeforeProcessing {
		return nil, nil
	}

	if cfg.validator != nil {
		return cfg.validator.Validate(doc)
	}

	if cfg.schema != nil {
		engine := validation.NewEngine(cfg.schema, cfg.strictness)
		return engine.Validate(doc), nil
	}

	report := &validation.Report{Valid: true}
	if doc == nil || doc.Root == nil || len(doc.Root.Children) == 0 {
		report.Issues = append(report.Issues, validation.Issue{
			Path:     "/MESSAGE",
			Severity: severity.SeverityError,
			Code:     "empty_document",
			Message:  "document has no segment content",
		})
		report.Valid = false
	}
	return report, nil
}

func runMapping(cfg messageProcessingConfig, doc *ir.Document) (*ir.Document, error) {
	if cfg.mapper != nil {
		return cfg.mapper.Map(doc)
	}
	if cfg.mappingDSL == nil {
		return nil, nil
	}
	target, err := cfg.runtime.Execute(cfg.mappingDSL, doc.Root)
	if err != nil {
		return nil, err
	}
	return &ir.Document{Root: target, Metadata: doc.Metadata}, nil
}

func documentMessageID(doc *ir.Document, index int) string {
	if doc != nil && len(doc.Metadata.MessageRefs) > 0 && doc.Metadata.MessageRefs[0] != "" {
		return doc.Metadata.MessageRefs[0]
	}
	return fmt.Sprintf("message-%d", index+1)
}
