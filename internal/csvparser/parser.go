// =============================================================================
// Vetspire Import - Client/Patient CSV Module
// =============================================================================
//
// This module reads and writes the intermediate CSV that sits between the
// PDF conversion and the import. The CSV columns are the legacy record keys
// (patientId, patientName, ... patientStatus), so an operator can review or
// correct the parsed records in a spreadsheet before importing them.
//
// FEATURES:
//   - Header check: every record key must be present as a column
//   - Struct mapping through gocsv, driven by the csv tags on
//     types.ClientPatientRecord
//   - UTF-8 byte order marks written by spreadsheet tools are ignored
//
// =============================================================================

package csvparser

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/john-osullivan/vetspire-import/internal/types"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads a client/patient CSV file.
//
// PARAMETERS:
//   - filePath: The path to the CSV file.
//
// RETURNS:
//   - The records in file order.
//   - An error if the file cannot be read, a record column is missing, or a
//     row cannot be decoded. Row errors name the data row (1-based).
func Parse(filePath string) ([]types.ClientPatientRecord, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	return ParseBytes(data)
}

// ParseBytes parses CSV content. See Parse.
func ParseBytes(data []byte) ([]types.ClientPatientRecord, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	header, err := csv.NewReader(bytes.NewReader(data)).Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	if missing := MissingColumns(header); len(missing) > 0 {
		return nil, fmt.Errorf("CSV is missing record columns: %s", strings.Join(missing, ", "))
	}

	var records []types.ClientPatientRecord
	if err := gocsv.UnmarshalBytes(data, &records); err != nil {
		return nil, fmt.Errorf("invalid CSV row: %w", err)
	}

	for i := range records {
		for _, key := range types.RecordKeys {
			records[i].Set(key, strings.TrimSpace(records[i].Get(key)))
		}
	}

	return records, nil
}

// MissingColumns returns the record keys absent from header, in catalog
// order.
func MissingColumns(header []string) []string {
	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[strings.TrimSpace(h)] = true
	}

	var missing []string
	for _, key := range types.RecordKeys {
		if !present[key] {
			missing = append(missing, key)
		}
	}
	return missing
}

// =============================================================================
// WRITER FUNCTIONS
// =============================================================================

// Write stores records as CSV at filePath, one column per record key in
// catalog order.
func Write(filePath string, records []types.ClientPatientRecord) error {
	f, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create CSV: %w", err)
	}
	defer f.Close()

	if records == nil {
		records = []types.ClientPatientRecord{}
	}
	if err := gocsv.MarshalFile(&records, f); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}
	return f.Sync()
}
