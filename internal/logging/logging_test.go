package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "info", "json", false)

	logger.Debug().Msg("hidden")
	logger.Info().Str("file", "report.pdf").Msg("parsed")

	var event map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &event))
	assert.Equal(t, "parsed", event["message"])
	assert.Equal(t, "report.pdf", event["file"])
}

func TestNewVerbose(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "error", "json", true)
	logger.Debug().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestNewUnknownLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "loud", "console", false)
	logger.Debug().Msg("hidden")
	logger.Info().Msg("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}
