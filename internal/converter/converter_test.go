package converter

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/john-osullivan/vetspire-import/internal/csvparser"
	"github.com/john-osullivan/vetspire-import/internal/xlsxparser"
	"github.com/john-osullivan/vetspire-import/pkg/utils"
)

type stubExtractor struct {
	text string
	err  error
}

func (s stubExtractor) ExtractText(context.Context, string) (string, error) {
	return s.text, s.err
}

const sampleReport = `Client Patient Export
patientId
123
patientName
Buddy
patientSexSpay
MI
patientDOB
13/45/2008
clientFirstName
John
clientLastName
Doe
clientEmailjohn.doe@example.com
patientStatus
Home
patientId
124
patientSpecies
Feline`

func TestConverterRun(t *testing.T) {
	dir := t.TempDir()
	c := New("report.pdf", stubExtractor{text: sampleReport}, Options{OutputDir: dir, WriteWorkbook: true, DumpLines: true}, zerolog.Nop())

	result := c.Run(context.Background())
	require.NoError(t, result.Error)
	require.True(t, result.Success)

	require.Len(t, result.Records, 1)
	assert.Equal(t, "john.doe@example.com", result.Records[0].ClientEmail)
	assert.Equal(t, 1, result.Stats.RecordsParsed)
	assert.Equal(t, 1, result.Stats.RecordsDropped)

	require.Len(t, result.Warnings, 1)
	assert.Equal(t, "patientDOB", result.Warnings[0].Field)

	assert.Contains(t, result.OutputFile, "client-patient-records_")
	fromCSV, err := csvparser.Parse(result.OutputFile)
	require.NoError(t, err)
	assert.Equal(t, result.Records, fromCSV)

	fromXLSX, err := xlsxparser.ParseRecords(result.WorkbookFile)
	require.NoError(t, err)
	assert.Equal(t, result.Records, fromXLSX)

	var lines []string
	require.NoError(t, utils.ReadJSON(result.LinesFile, &lines))
	assert.Contains(t, lines, "clientEmail")
	assert.Contains(t, lines, "john.doe@example.com")
}

func TestConverterExtractionFailure(t *testing.T) {
	dir := t.TempDir()
	c := New("broken.pdf", stubExtractor{err: errors.New("not a PDF")}, Options{OutputDir: dir}, zerolog.Nop())

	result := c.Run(context.Background())
	assert.False(t, result.Success)
	require.Error(t, result.Error)
	assert.True(t, strings.Contains(result.Error.Error(), "not a PDF"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
