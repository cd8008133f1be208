package pipeline

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/edicraft/edipipe/ir"
	"github.com/edicraft/edipipe/validation"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const ordersTwoLines = "UNA:+.? '" +
	"UNB+UNOC:3+SENDER+RECEIVER+200101:1200+1'" +
	"UNH+1+ORDERS:D:96A:UN'BGM+220+PO123+9'LIN+1++1:EN'QTY+21:10'LIN+2++2:EN'QTY+21:5'UNT+7+1'" +
	"UNZ+1+1'"

const emptyMessage = "UNH+1+ORDERS:D:96A:UN'UNT+1+1'"

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.edi")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestProcessFileDefaultConfigSucceeds(t *testing.T) {
	path := writeTemp(t, ordersTwoLines)

	p := WithDefaults()
	result, err := p.ProcessFile(path)
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 1, result.MessageCount)
	assert.Equal(t, 1, result.SuccessCount)
	assert.Equal(t, 0, result.FailureCount)
	require.Len(t, result.Outputs, 1)
	assert.Contains(t, string(result.Outputs[0]), "BGM+220+PO123+9'")

	stats := p.Stats()
	assert.Equal(t, 1, stats.FilesProcessed)
	assert.Equal(t, 1, stats.FilesSuccessful)
	assert.Equal(t, 1, stats.MessagesSuccessful)
}

func TestProcessFileFailsPreflightOnMissingFile(t *testing.T) {
	p := WithDefaults()
	_, err := p.ProcessFile(filepath.Join(t.TempDir(), "missing.edi"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file not found")
}

func TestProcessFileFailsPreflightOnOversizedFile(t *testing.T) {
	path := writeTemp(t, ordersTwoLines)

	cfg, err := NewWithOptions(WithMaxFileSize(4))
	require.NoError(t, err)

	_, err = cfg.ProcessFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file too large")
}

func TestProcessFileQuarantinesEmptyDocumentUnderQuarantinePolicy(t *testing.T) {
	path := writeTemp(t, emptyMessage)

	p, err := NewWithOptions(WithAcceptancePolicy(Quarantine))
	require.NoError(t, err)

	result, procErr := p.ProcessFile(path)
	require.NoError(t, procErr)

	assert.True(t, result.Success)
	assert.Equal(t, 1, result.MessageCount)
	assert.Equal(t, 1, result.FailureCount)
	assert.True(t, result.Quarantined)
	assert.Equal(t, 1, p.Quarantine().Len())
}

func TestProcessFileFailAllStopsOnFirstFailingMessage(t *testing.T) {
	path := writeTemp(t, emptyMessage+ordersTwoLines)

	p, err := NewWithOptions(WithAcceptancePolicy(FailAll))
	require.NoError(t, err)

	_, procErr := p.ProcessFile(path)
	require.Error(t, procErr)
	assert.Contains(t, procErr.Error(), "no segment content")
}

func TestProcessFileAcceptAllReportsButContinues(t *testing.T) {
	path := writeTemp(t, emptyMessage+ordersTwoLines)

	p, err := NewWithOptions(WithAcceptancePolicy(AcceptAll))
	require.NoError(t, err)

	result, procErr := p.ProcessFile(path)
	require.NoError(t, procErr)

	assert.True(t, result.Success)
	assert.Equal(t, 2, result.MessageCount)
	assert.Equal(t, 1, result.SuccessCount)
	assert.Equal(t, 1, result.FailureCount)
}

func TestProcessFileRendersCSV(t *testing.T) {
	path := writeTemp(t, ordersTwoLines)

	p, err := NewWithOptions(WithOutputFormat(Csv), WithEnableMapping(false))
	require.NoError(t, err)

	result, procErr := p.ProcessFile(path)
	require.NoError(t, procErr)
	require.Len(t, result.Outputs, 1)

	out := string(result.Outputs[0])
	assert.True(t, strings.HasPrefix(out, "name,node_type,value\n"))
	assert.Contains(t, out, "BGM")
}

func TestProcessFileRendersXML(t *testing.T) {
	path := writeTemp(t, ordersTwoLines)

	p, err := NewWithOptions(WithOutputFormat(Xml), WithEnableMapping(false))
	require.NoError(t, err)

	result, procErr := p.ProcessFile(path)
	require.NoError(t, procErr)
	require.Len(t, result.Outputs, 1)

	out := string(result.Outputs[0])
	assert.True(t, strings.HasPrefix(out, "<document>"))
	assert.True(t, strings.HasSuffix(out, "</document>"))
}

func TestProcessFileRendersJSON(t *testing.T) {
	path := writeTemp(t, ordersTwoLines)

	p, err := NewWithOptions(WithOutputFormat(Json), WithEnableMapping(false))
	require.NoError(t, err)

	result, procErr := p.ProcessFile(path)
	require.NoError(t, procErr)
	require.Len(t, result.Outputs, 1)
	assert.Contains(t, string(result.Outputs[0]), `"doc_type": "ORDERS"`)
}

type fakeValidator struct{ calls int }

func (f *fakeValidator) Validate(doc *ir.Document) (*validation.Report, error) {
	f.calls++
	return &validation.Report{Valid: true}, nil
}

func TestStreamingDowngradesToSequentialWhenValidatorInjected(t *testing.T) {
	path := writeTemp(t, ordersTwoLines)

	v := &fakeValidator{}
	p, err := NewWithOptions(WithStreaming(true), WithValidator(v), WithEnableMapping(false))
	require.NoError(t, err)

	result, procErr := p.ProcessFile(path)
	require.NoError(t, procErr)

	assert.True(t, result.Success)
	assert.Equal(t, 1, v.calls)
}

func TestStreamingProcessesAllMessages(t *testing.T) {
	body := strings.Repeat(ordersTwoLines, 5)
	path := writeTemp(t, body)

	p, err := NewWithOptions(WithStreaming(true), WithConcurrency(3, 8))
	require.NoError(t, err)

	result, procErr := p.ProcessFile(path)
	require.NoError(t, procErr)

	assert.True(t, result.Success)
	assert.Equal(t, 5, result.MessageCount)
	assert.Equal(t, 5, result.SuccessCount)
	assert.Len(t, result.Outputs, 5)
}

func TestProcessBatchStopsOnFailAllWhenFileMissing(t *testing.T) {
	goodPath := writeTemp(t, ordersTwoLines)
	missingPath := filepath.Join(t.TempDir(), "missing.edi")

	p, err := NewWithOptions(WithAcceptancePolicy(FailAll), WithBatchRetries(0, 0))
	require.NoError(t, err)

	result, batchErr := p.ProcessBatch([]string{missingPath, goodPath})
	require.NoError(t, batchErr)

	assert.False(t, result.BatchSuccess)
	require.Len(t, result.FileResults, 1)
	assert.False(t, result.FileResults[0].Success)
}

func TestProcessBatchAcceptAllProcessesEveryFile(t *testing.T) {
	goodPath := writeTemp(t, ordersTwoLines)
	missingPath := filepath.Join(t.TempDir(), "missing.edi")

	p, err := NewWithOptions(WithAcceptancePolicy(AcceptAll), WithBatchRetries(0, 0))
	require.NoError(t, err)

	result, batchErr := p.ProcessBatch([]string{missingPath, goodPath})
	require.NoError(t, batchErr)

	assert.True(t, result.BatchSuccess)
	require.Len(t, result.FileResults, 2)
	assert.False(t, result.FileResults[0].Success)
	assert.True(t, result.FileResults[1].Success)
}

func TestMetricsComputeDerivedRates(t *testing.T) {
	path := writeTemp(t, ordersTwoLines)

	p := WithDefaults()
	_, err := p.ProcessFile(path)
	require.NoError(t, err)

	m := p.Metrics()
	assert.GreaterOrEqual(t, m.FilesPerSecond, 0.0)
	assert.Equal(t, 0.0, m.ErrorRate)
}
