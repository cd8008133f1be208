package edierrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseErrorIs(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", &ParseError{Line: 3, Column: 7, Message: "unexpected byte"})

	assert.True(t, errors.Is(err, ErrParse))
	assert.False(t, errors.Is(err, ErrSchema))

	var pe *ParseError
	assert.True(t, errors.As(err, &pe))
	assert.Equal(t, 3, pe.Line)
	assert.Contains(t, pe.Error(), "line 3, column 7")
}

func TestSchemaErrorIs(t *testing.T) {
	err := &SchemaError{Details: "Circular dependency"}
	assert.True(t, errors.Is(err, ErrSchema))
	assert.Contains(t, err.Error(), "Circular dependency")
}

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{Path: "UNH/BGM", Severity: "Error", Code: "NULL_VALUE", Message: "required element has null value"}
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Contains(t, err.Error(), "UNH/BGM")
	assert.Contains(t, err.Error(), "NULL_VALUE")
}

func TestMappingErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := &MappingError{Details: "missing extension", Cause: cause}
	assert.True(t, errors.Is(err, ErrMapping))
	assert.ErrorIs(t, err, cause)
}

func TestBatchAndStreamingAndQuarantineErrors(t *testing.T) {
	assert.True(t, errors.Is(&BatchError{Details: "batch is full"}, ErrBatch))
	assert.True(t, errors.Is(&StreamingError{Details: "channel buffer full"}, ErrStreaming))
	assert.True(t, errors.Is(&QuarantineError{Details: "quarantine store full"}, ErrQuarantine))
}

func TestPipelineErrorCarriesFileContext(t *testing.T) {
	err := &PipelineError{FilePath: "orders.edi", Details: "file exceeds max_file_size", Cause: &ParseError{Message: "n/a"}}
	assert.True(t, errors.Is(err, ErrPipeline))
	assert.Contains(t, err.Error(), "orders.edi")
}
