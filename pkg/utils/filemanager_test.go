package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimestampedName(t *testing.T) {
	ts := time.Date(2024, 1, 15, 14, 30, 22, 123_456_789, time.UTC)

	assert.Equal(t, "2024-01-15T14-30-22-123Z", Timestamp(ts))
	assert.Equal(t, "import-results_2024-01-15T14-30-22-123Z_dry-run.json",
		TimestampedName("import-results", ModeTag(false), ".json", ts))
	assert.Equal(t, "import-failures_2024-01-15T14-30-22-123Z_full-send.json",
		TimestampedName("import-failures", ModeTag(true), ".json", ts))
	assert.Equal(t, "immunization-proposals_2024-01-15T14-30-22-123Z.json",
		TimestampedName("immunization-proposals", "", ".json", ts))
}

func TestTimestampIsUTC(t *testing.T) {
	loc := time.FixedZone("EST", -5*60*60)
	ts := time.Date(2024, 1, 15, 9, 0, 0, 0, loc)
	assert.Equal(t, "2024-01-15T14-00-00-000Z", Timestamp(ts))
}

func TestWriteAndReadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.json")

	in := map[string]any{"runId": "abc", "count": 3}
	require.NoError(t, WriteJSON(path, in))
	assert.True(t, FileExists(path))

	var out map[string]any
	require.NoError(t, ReadJSON(path, &out))
	assert.Equal(t, "abc", out["runId"])
	assert.Equal(t, float64(3), out["count"])
}

func TestWriteErrorLog(t *testing.T) {
	dir := t.TempDir()

	path, err := WriteErrorLog(nil, dir)
	require.NoError(t, err)
	assert.Empty(t, path)

	path, err = WriteErrorLog([]ErrorLogEntry{{
		Timestamp:    time.Now(),
		Subject:      "client Doe, John",
		ErrorType:    "create",
		ErrorMessage: "GraphQL error: bad input",
		FieldName:    "email",
	}}, dir)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Total Errors: 1")
	assert.Contains(t, string(data), "client Doe, John")
	assert.Contains(t, string(data), "Field:      email")
}

func TestWriteSummaryLog(t *testing.T) {
	start := time.Date(2024, 1, 15, 14, 30, 0, 0, time.UTC)
	summary := ProcessingSummary{
		Command:     "import-csv",
		RunID:       "run-1",
		Mode:        TagDryRun,
		InputFile:   "records.csv",
		StartTime:   start,
		EndTime:     start.Add(2 * time.Second),
		Stats:       []Stat{{Label: "Created", Value: 4}, {Label: "Failed", Value: 1}},
		OutputFiles: []string{"outputs/import-results.json"},
		Failures:    []ErrorLogEntry{{Subject: "patient Buddy", ErrorMessage: "boom"}},
	}

	path, err := WriteSummaryLog(summary, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "processing_summary_2024-01-15T14-30-00-000Z.txt", filepath.Base(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "import-csv")
	assert.Contains(t, text, "Created:")
	assert.Contains(t, text, "Duration:   2s")
	assert.Contains(t, text, "patient Buddy")
}
