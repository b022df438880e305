package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesConsoleAndFile(t *testing.T) {
	var console bytes.Buffer
	file := filepath.Join(t.TempDir(), "logs", "pos.log")

	logger, closeFn, err := New(Options{Level: "info", File: file, Console: &console})
	require.NoError(t, err)

	logger.Info().Str("txn_id", "TXN20250101120000").Msg("checkout committed")
	logger.Debug().Msg("hidden")
	require.NoError(t, closeFn())

	assert.Contains(t, console.String(), "checkout committed")
	assert.NotContains(t, console.String(), "hidden")

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"txn_id":"TXN20250101120000"`)
}

func TestVerboseForcesDebug(t *testing.T) {
	var console bytes.Buffer
	logger, _, err := New(Options{Level: "error", Verbose: true, Console: &console})
	require.NoError(t, err)

	assert.Equal(t, zerolog.DebugLevel, logger.GetLevel())
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, zerolog.WarnLevel, lvl)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}
