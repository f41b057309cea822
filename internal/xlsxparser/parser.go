// =============================================================================
// Vetspire Import - XLSX Review Workbooks
// =============================================================================
//
// Operators review parsed data in a spreadsheet before anything is sent to
// the API. This module writes those review workbooks and reads a corrected
// client/patient workbook back for import.
//
// WORKBOOKS:
//   - Records  : one row per ClientPatientRecord, one column per record key.
//                Accepted by import-csv in place of a CSV file.
//   - Vaccines : one row per parsed VaccineDeliveryRow.
//
// LAYOUT:
//   Row 1 holds the headers (bold, frozen); data starts on row 2. Columns
//   are located by header text, so reordering columns in a spreadsheet tool
//   is harmless.
//
// =============================================================================

package xlsxparser

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/john-osullivan/vetspire-import/internal/csvparser"
	"github.com/john-osullivan/vetspire-import/internal/types"
)

// Sheet names.
const (
	RecordsSheet  = "Records"
	VaccinesSheet = "Vaccines"
)

// VaccineColumns are the headers of the Vaccines sheet.
var VaccineColumns = []string{
	"dateGiven", "dateDue", "patientName", "clientGivenName", "clientFamilyName",
	"description", "lotNumber", "manufacturer", "expiryDate",
}

// =============================================================================
// READING
// =============================================================================

// ParseRecords reads client/patient records from the first sheet of an XLSX
// workbook.
//
// RETURNS:
//   - The records in row order. Blank rows are skipped.
//   - An error if the workbook cannot be opened or a record column is
//     missing from the header row.
func ParseRecords(path string) ([]types.ClientPatientRecord, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("workbook has no header row")
	}

	header := rows[0]
	if missing := csvparser.MissingColumns(header); len(missing) > 0 {
		return nil, fmt.Errorf("workbook is missing record columns: %s", strings.Join(missing, ", "))
	}

	var records []types.ClientPatientRecord
	for _, row := range rows[1:] {
		if isRowEmpty(row) {
			continue
		}
		var rec types.ClientPatientRecord
		for col, key := range header {
			if col < len(row) {
				rec.Set(strings.TrimSpace(key), strings.TrimSpace(row[col]))
			}
		}
		records = append(records, rec)
	}

	return records, nil
}

// isRowEmpty checks if all cells in a row are empty.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// =============================================================================
// WRITING
// =============================================================================

// WriteRecords writes a Records workbook to path.
func WriteRecords(path string, records []types.ClientPatientRecord) error {
	data := make([][]string, len(records))
	for i := range records {
		row := make([]string, len(types.RecordKeys))
		for j, key := range types.RecordKeys {
			row[j] = records[i].Get(key)
		}
		data[i] = row
	}
	return writeSheet(path, RecordsSheet, types.RecordKeys, data)
}

// WriteVaccineRows writes a Vaccines workbook to path.
func WriteVaccineRows(path string, rows []types.VaccineDeliveryRow) error {
	data := make([][]string, len(rows))
	for i, r := range rows {
		data[i] = []string{
			r.DateGiven, r.DateDue, r.PatientName, r.ClientGivenName, r.ClientFamilyName,
			r.Description, r.LotNumber, r.Manufacturer, r.ExpiryDate,
		}
	}
	return writeSheet(path, VaccinesSheet, VaccineColumns, data)
}

// writeSheet creates a single-sheet workbook with a bold, frozen header row.
func writeSheet(path, sheet string, header []string, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	if err := f.SetSheetRow(sheet, "A1", toCells(header)); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, toCells(row)); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	if err := f.SetRowStyle(sheet, 1, 1, bold); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}
	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze header: %w", err)
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

// toCells converts strings to the []interface{} excelize expects. Cells are
// written as text so ids with leading zeros survive.
func toCells(values []string) *[]interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return &cells
}
