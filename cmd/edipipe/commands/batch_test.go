package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupBatchFlagsDefaults(t *testing.T) {
	_, flags := SetupBatchFlags()
	assert.Equal(t, "FailAll", flags.Policy)
	assert.Equal(t, 2, flags.MaxRetries)
	assert.Equal(t, "*", flags.Glob)
}

func TestHandleBatchNoArgs(t *testing.T) {
	code, err := HandleBatch([]string{})
	assert.Error(t, err)
	assert.Equal(t, 1, code)
}

func TestHandleBatchProcessesEveryMatchingFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.edi"), []byte(ordersFixture), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.edi"), []byte(ordersFixture), 0o600))

	code, err := HandleBatch([]string{"--glob", "*.edi", dir})
	require.NoError(t, err)
	assert.Equal(t, 0, code)
}

func TestHandleBatchNoMatchesFails(t *testing.T) {
	dir := t.TempDir()
	code, err := HandleBatch([]string{"--glob", "*.nope", dir})
	assert.Error(t, err)
	assert.Equal(t, 1, code)
}

func TestHandleBatchFailAllStopsOnMissingMessage(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty.edi"), []byte("UNH+1+ORDERS:D:96A:UN'UNT+1+1'"), 0o600))

	code, err := HandleBatch([]string{"--glob", "*.edi", dir})
	require.NoError(t, err)
	assert.Equal(t, 1, code)
}
