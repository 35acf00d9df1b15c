package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWriterFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewWriter(&buf, "warn", false)
	require.NoError(t, err)
	l.Info().Msg("hidden")
	l.Warn().Str("chunk", "(1,2)").Msg("shown")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec))
	assert.Equal(t, "shown", rec["message"])
	assert.Equal(t, "(1,2)", rec["chunk"])
	assert.Equal(t, "warn", rec["level"])
}

func TestEmptyLevelIsInfo(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewWriter(&buf, "", false)
	require.NoError(t, err)
	l.Debug().Msg("hidden")
	assert.Zero(t, buf.Len())
	l.Info().Msg("shown")
	assert.NotZero(t, buf.Len())
}

func TestBadLevel(t *testing.T) {
	_, err := NewWriter(&bytes.Buffer{}, "loud", false)
	assert.Error(t, err)
}
