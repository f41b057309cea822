// =============================================================================
// Vetspire Import - Convert Command
// =============================================================================
//
// This file defines the 'convert-pdf' command, the first migration step. It
// runs the converter pipeline on a legacy client/patient report.
//
// COMMAND USAGE:
//   vetspire-import convert-pdf <report.pdf> [flags]
//
// FLAGS:
//   --output      : Directory for the generated files (default: output_dir)
//   --xlsx        : Also write the records as a review workbook
//   --dump-lines  : Also write the normalized lines as JSON
//
// =============================================================================

package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/john-osullivan/vetspire-import/internal/converter"
	"github.com/john-osullivan/vetspire-import/internal/pdftext"
	"github.com/john-osullivan/vetspire-import/pkg/utils"
)

var (
	convertOutput    string
	convertWorkbook  bool
	convertDumpLines bool
)

// convertCmd represents the 'convert-pdf' command.
var convertCmd = &cobra.Command{
	Use:   "convert-pdf <report.pdf>",
	Short: "Convert a legacy client/patient PDF report into a CSV",
	Long: `convert-pdf extracts the text of a legacy client/patient report, rebuilds
one record per patient and writes them to client-patient-records_<ts>.csv.

Records without a patient id or name are dropped. Values that will not
transform cleanly (dates, emails, sex codes) are listed as warnings so the
CSV can be corrected before import-csv.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConvert(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().StringVarP(&convertOutput, "output", "o", "", "Directory for the generated files")
	convertCmd.Flags().BoolVar(&convertWorkbook, "xlsx", false, "Also write an XLSX review workbook")
	convertCmd.Flags().BoolVar(&convertDumpLines, "dump-lines", false, "Also write the normalized lines as JSON")
}

func runConvert(cmd *cobra.Command, pdfPath string) error {
	fmt.Println("=== Vetspire Import: convert-pdf ===")

	extractor, err := pdftext.New(mainConfig.PDFBackend, mainConfig.RowTolerance)
	if err != nil {
		return err
	}

	conv := converter.New(pdfPath, extractor, converter.Options{
		OutputDir:     outputDir(convertOutput),
		WriteWorkbook: convertWorkbook,
		DumpLines:     convertDumpLines,
	}, logger)
	result := conv.Run(cmd.Context())
	if !result.Success {
		return fmt.Errorf("%s: %w", filepath.Base(pdfPath), result.Error)
	}

	fmt.Printf("  ✓ %s -> %s\n", filepath.Base(pdfPath), result.OutputFile)
	for _, w := range result.Warnings {
		fmt.Printf("  ! patient %s: %s\n", w.PatientID, w.Error())
	}

	fmt.Println("\n=== Conversion Complete ===")
	fmt.Printf("Lines scanned:   %d\n", result.Stats.LinesScanned)
	fmt.Printf("Records:         %d\n", result.Stats.RecordsParsed)
	fmt.Printf("Dropped:         %d\n", result.Stats.RecordsDropped)
	fmt.Printf("Missing values:  %d\n", result.Stats.MissingValues)
	fmt.Printf("Warnings:        %d\n", len(result.Warnings))
	fmt.Printf("Time elapsed:    %s\n", result.Stats.ProcessingTime)

	outputs := []string{result.OutputFile}
	for _, f := range []string{result.WorkbookFile, result.LinesFile} {
		if f != "" {
			outputs = append(outputs, f)
		}
	}

	warnings := make([]utils.ErrorLogEntry, 0, len(result.Warnings))
	for _, w := range result.Warnings {
		warnings = append(warnings, utils.ErrorLogEntry{
			Timestamp:    result.StartTime,
			Subject:      fmt.Sprintf("patient %s", w.PatientID),
			ErrorType:    w.Severity,
			ErrorMessage: w.Message,
			FieldName:    w.Field,
			FieldValue:   w.Value,
		})
	}

	writeSummary(outputDir(convertOutput), utils.ProcessingSummary{
		Command:   "convert-pdf",
		RunID:     uuid.NewString(),
		InputFile: pdfPath,
		StartTime: result.StartTime,
		EndTime:   result.StartTime.Add(result.Stats.ProcessingTime),
		Stats: []utils.Stat{
			{Label: "Lines scanned", Value: result.Stats.LinesScanned},
			{Label: "Records", Value: result.Stats.RecordsParsed},
			{Label: "Dropped", Value: result.Stats.RecordsDropped},
			{Label: "Missing values", Value: result.Stats.MissingValues},
			{Label: "Warnings", Value: len(result.Warnings)},
		},
		OutputFiles: outputs,
		Failures:    warnings,
	})

	return nil
}
