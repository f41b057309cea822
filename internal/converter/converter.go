// =============================================================================
// Vetspire Import - Converter Module
// =============================================================================
//
// This module contains the PDF conversion pipeline. It turns one legacy
// client/patient report into the intermediate CSV that import-csv reads.
//
// CONVERSION PIPELINE:
//   1. Extract the text of the PDF
//   2. Normalize the text into lines and repair glued keys
//   3. Parse the key/value records
//   4. Check the records for values that will not transform cleanly
//   5. Write the CSV (and optionally a review workbook and the line dump)
//
// The CSV is the review point: an operator may correct it in a spreadsheet
// before anything is sent to the API.
//
// =============================================================================

package converter

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/john-osullivan/vetspire-import/internal/csvparser"
	"github.com/john-osullivan/vetspire-import/internal/pdftext"
	"github.com/john-osullivan/vetspire-import/internal/recordparser"
	"github.com/john-osullivan/vetspire-import/internal/types"
	"github.com/john-osullivan/vetspire-import/internal/validation"
	"github.com/john-osullivan/vetspire-import/internal/xlsxparser"
	"github.com/john-osullivan/vetspire-import/pkg/utils"
)

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result represents the outcome of converting a single PDF.
type Result struct {
	// FilePath is the path to the input PDF.
	FilePath string

	// OutputFile is the path to the generated CSV.
	// This is empty if processing failed.
	OutputFile string

	// WorkbookFile and LinesFile are set when those outputs were requested.
	WorkbookFile string
	LinesFile    string

	// Success indicates whether the processing was successful.
	Success bool

	// Error contains the error if processing failed.
	Error error

	// Records are the parsed records, in report order.
	Records []types.ClientPatientRecord

	// Warnings lists values that will not survive transformation intact.
	Warnings []Warning

	// StartTime is when the run began.
	StartTime time.Time

	// Stats contains processing statistics.
	Stats ProcessingStats
}

// Warning is a field warning on the record with PatientID.
type Warning struct {
	PatientID string
	*validation.ValidationError
}

// ProcessingStats contains statistics about the processing.
type ProcessingStats struct {
	// LinesScanned is the number of normalized lines walked by the parser.
	LinesScanned int

	// RecordsParsed is the number of complete records written.
	RecordsParsed int

	// RecordsDropped is the number of records without patient id or name.
	RecordsDropped int

	// MissingValues is the number of keys that had no value.
	MissingValues int

	// ProcessingTime is the time taken to process the file.
	ProcessingTime time.Duration
}

// =============================================================================
// CONVERTER STRUCTURE
// =============================================================================

// Options controls the outputs of a conversion.
type Options struct {
	// OutputDir receives every output file.
	OutputDir string

	// WriteWorkbook also writes the records as an XLSX review workbook.
	WriteWorkbook bool

	// DumpLines writes the repaired line list as JSON.
	DumpLines bool
}

// Converter handles the conversion of a single PDF.
type Converter struct {
	pdfPath   string
	extractor pdftext.TextExtractor
	opts      Options
	logger    zerolog.Logger
	now       func() time.Time
}

// New creates a new Converter instance.
//
// PARAMETERS:
//   - pdfPath: The path to the legacy client/patient PDF.
//   - extractor: The text extraction backend.
//   - opts: Output options.
//   - logger: The run logger.
func New(pdfPath string, extractor pdftext.TextExtractor, opts Options, logger zerolog.Logger) *Converter {
	return &Converter{
		pdfPath:   pdfPath,
		extractor: extractor,
		opts:      opts,
		logger:    logger.With().Str("component", "converter").Str("file", filepath.Base(pdfPath)).Logger(),
		now:       time.Now,
	}
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// Run executes the conversion pipeline for the file.
func (c *Converter) Run(ctx context.Context) Result {
	startTime := c.now()
	result := Result{
		FilePath:  c.pdfPath,
		Success:   false,
		StartTime: startTime,
	}

	// =========================================================================
	// STEP 1: EXTRACT TEXT
	// =========================================================================

	c.logger.Info().Msg("extracting text")

	text, err := c.extractor.ExtractText(ctx, c.pdfPath)
	if err != nil {
		result.Error = fmt.Errorf("failed to extract text: %w", err)
		return result
	}

	// =========================================================================
	// STEP 2: NORMALIZE LINES
	// =========================================================================
	// Trim and drop blank lines, then split lines where a key was glued to
	// the following text.

	lines := recordparser.PrepareLines(text)
	c.logger.Debug().Int("lines", len(lines)).Msg("normalized lines")

	// =========================================================================
	// STEP 3: PARSE RECORDS
	// =========================================================================

	records, stats := recordparser.ParseLines(lines)
	result.Records = records
	result.Stats = ProcessingStats{
		LinesScanned:   stats.LinesScanned,
		RecordsParsed:  stats.RecordsEmitted,
		RecordsDropped: stats.RecordsDropped,
		MissingValues:  stats.MissingValues,
	}

	c.logger.Info().
		Int("records", stats.RecordsEmitted).
		Int("dropped", stats.RecordsDropped).
		Int("missing_values", stats.MissingValues).
		Msg("parsed records")

	// =========================================================================
	// STEP 4: CHECK VALUES
	// =========================================================================

	for _, rec := range records {
		for _, w := range validation.RecordWarnings(rec) {
			result.Warnings = append(result.Warnings, Warning{PatientID: rec.PatientID, ValidationError: w})
			c.logger.Debug().Str("patient_id", rec.PatientID).Msg(w.Error())
		}
	}

	// =========================================================================
	// STEP 5: WRITE OUTPUTS
	// =========================================================================

	if err := utils.EnsureDir(c.opts.OutputDir); err != nil {
		result.Error = err
		return result
	}

	csvPath := filepath.Join(c.opts.OutputDir, utils.TimestampedName("client-patient-records", "", ".csv", startTime))
	if err := csvparser.Write(csvPath, records); err != nil {
		result.Error = err
		return result
	}
	result.OutputFile = csvPath

	if c.opts.WriteWorkbook {
		xlsxPath := filepath.Join(c.opts.OutputDir, utils.TimestampedName("client-patient-records", "", ".xlsx", startTime))
		if err := xlsxparser.WriteRecords(xlsxPath, records); err != nil {
			result.Error = err
			return result
		}
		result.WorkbookFile = xlsxPath
	}

	if c.opts.DumpLines {
		linesPath := filepath.Join(c.opts.OutputDir, utils.TimestampedName("normalized-lines", "", ".json", startTime))
		if err := utils.WriteJSON(linesPath, lines); err != nil {
			result.Error = err
			return result
		}
		result.LinesFile = linesPath
	}

	result.Success = true
	result.Stats.ProcessingTime = c.now().Sub(startTime)

	c.logger.Info().Str("output", csvPath).Dur("duration", result.Stats.ProcessingTime).Msg("conversion complete")

	return result
}
