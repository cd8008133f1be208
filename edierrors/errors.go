// Package edierrors provides structured error types for edipipe.
//
// These error types enable programmatic error handling via errors.Is()
// and errors.As(), letting callers distinguish between categories of
// failure and implement the right recovery for each.
//
// # Usage with errors.As
//
//	_, err := edifact.NewParser(data).ParseAll()
//	if err != nil {
//	    var parseErr *edierrors.ParseError
//	    if errors.As(err, &parseErr) {
//	        log.Printf("parse failure at %d:%d", parseErr.Line, parseErr.Column)
//	    }
//	}
package edierrors

import (
	"errors"
	"fmt"
)

// Sentinel errors for use with errors.Is(). These allow quick
// category checks without a type assertion.
var (
	// ErrParse indicates a lexical or structural EDIFACT/CSV parse failure.
	ErrParse = errors.New("parse error")

	// ErrSchema indicates a schema shape, inheritance, or cache failure.
	ErrSchema = errors.New("schema error")

	// ErrValidation indicates a document failed one or more validation rules.
	ErrValidation = errors.New("validation error")

	// ErrMapping indicates a mapping runtime failure.
	ErrMapping = errors.New("mapping error")

	// ErrExtension indicates a mapping extension lifecycle failure.
	ErrExtension = errors.New("extension error")

	// ErrBatch indicates a batch capacity or lookup failure.
	ErrBatch = errors.New("batch error")

	// ErrStreaming indicates backpressure, timeout, or closure in the stream processor.
	ErrStreaming = errors.New("streaming error")

	// ErrQuarantine indicates a quarantine store capacity or lookup failure.
	ErrQuarantine = errors.New("quarantine error")

	// ErrPipeline indicates an orchestration failure with file context.
	ErrPipeline = errors.New("pipeline error")

	// ErrStore indicates a database connection, schema, transaction, or query failure.
	ErrStore = errors.New("store error")
)

// ParseError represents a lexical or structural parse failure, EDIFACT or CSV.
type ParseError struct {
	Line    int
	Column  int
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	msg := "parse error"
	if e.Line > 0 {
		msg += fmt.Sprintf(" at line %d", e.Line)
		if e.Column > 0 {
			msg += fmt.Sprintf(", column %d", e.Column)
		}
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error { return e.Cause }

func (e *ParseError) Is(target error) bool { return target == ErrParse }

// SchemaError represents a schema-shape, missing-parent, or circular-inheritance failure.
type SchemaError struct {
	Details string
	Cause   error
}

func (e *SchemaError) Error() string {
	msg := "schema error"
	if e.Details != "" {
		msg += ": " + e.Details
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *SchemaError) Unwrap() error { return e.Cause }

func (e *SchemaError) Is(target error) bool { return target == ErrSchema }

// ValidationError represents a single validation issue, collected rather than returned.
type ValidationError struct {
	Path     string
	Line     int
	Severity string
	Code     string
	Message  string
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("validation %s", e.Severity)
	if e.Path != "" {
		msg += " at " + e.Path
	}
	if e.Line > 0 {
		msg += fmt.Sprintf(" (line %d)", e.Line)
	}
	if e.Code != "" {
		msg += " [" + e.Code + "]"
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// MappingError represents a mapping runtime failure: bad path, missing
// extension, or a transform that could not execute.
type MappingError struct {
	Details string
	Cause   error
}

func (e *MappingError) Error() string {
	msg := "mapping error"
	if e.Details != "" {
		msg += ": " + e.Details
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *MappingError) Unwrap() error { return e.Cause }

func (e *MappingError) Is(target error) bool { return target == ErrMapping }

// ExtensionError represents a failure in an extension's init/cleanup lifecycle.
type ExtensionError struct {
	Name    string
	Details string
	Cause   error
}

func (e *ExtensionError) Error() string {
	msg := "extension error"
	if e.Name != "" {
		msg += " (" + e.Name + ")"
	}
	if e.Details != "" {
		msg += ": " + e.Details
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *ExtensionError) Unwrap() error { return e.Cause }

func (e *ExtensionError) Is(target error) bool { return target == ErrExtension }

// BatchError represents a batch capacity overrun or unknown item id.
type BatchError struct {
	Details string
}

func (e *BatchError) Error() string { return "batch error: " + e.Details }

func (e *BatchError) Is(target error) bool { return target == ErrBatch }

// StreamingError represents backpressure, a per-message timeout, or
// closure of the stream processor.
type StreamingError struct {
	Details string
	Cause   error
}

func (e *StreamingError) Error() string {
	msg := "streaming error: " + e.Details
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *StreamingError) Unwrap() error { return e.Cause }

func (e *StreamingError) Is(target error) bool { return target == ErrStreaming }

// QuarantineError represents a quarantine store capacity overrun or a
// reference to an entry that does not exist.
type QuarantineError struct {
	Details string
}

func (e *QuarantineError) Error() string { return "quarantine error: " + e.Details }

func (e *QuarantineError) Is(target error) bool { return target == ErrQuarantine }

// PipelineError is an orchestration-level wrapper that carries the
// originating file path alongside the underlying cause.
type PipelineError struct {
	FilePath string
	Details  string
	Cause    error
}

func (e *PipelineError) Error() string {
	msg := "pipeline error"
	if e.FilePath != "" {
		msg += " (" + e.FilePath + ")"
	}
	if e.Details != "" {
		msg += ": " + e.Details
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *PipelineError) Unwrap() error { return e.Cause }

func (e *PipelineError) Is(target error) bool { return target == ErrPipeline }

// StoreError represents a database connection, schema-application,
// transaction, or query failure.
type StoreError struct {
	Details string
	Cause   error
}

func (e *StoreError) Error() string {
	msg := "store error"
	if e.Details != "" {
		msg += ": " + e.Details
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *StoreError) Unwrap() error { return e.Cause }

func (e *StoreError) Is(target error) bool { return target == ErrStore }
