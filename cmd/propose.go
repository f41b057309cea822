// =============================================================================
// Vetspire Import - Propose Command
// =============================================================================
//
// This file defines the 'propose-immunizations' command. It reads a legacy
// vaccine delivery report and writes immunization drafts for review.
//
// COMMAND USAGE:
//   vetspire-import propose-immunizations <vaccines.pdf> [flags]
//
// FLAGS:
//   --structured  : Read table columns from positioned text
//   --fetch       : Fetch patients to attribute rows (default true)
//   --dump-rows   : Also write the parsed rows as JSON and XLSX
//   --output      : Directory for the generated files (default: output_dir)
//
// STRATEGIES:
//   text        : walk the linearized text and split each row by its tokens
//   structured  : slice rows by the column positions of the table header;
//                 falls back to the text strategy when no row is found
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/john-osullivan/vetspire-import/internal/immunization"
	"github.com/john-osullivan/vetspire-import/internal/pdftext"
	"github.com/john-osullivan/vetspire-import/internal/types"
	"github.com/john-osullivan/vetspire-import/internal/vaccine"
	"github.com/john-osullivan/vetspire-import/internal/xlsxparser"
	"github.com/john-osullivan/vetspire-import/pkg/utils"
)

// Strategy names recorded in the proposals meta.
const (
	strategyText       = "text"
	strategyStructured = "structured"
)

var (
	proposeStructured bool
	proposeFetch      bool
	proposeDumpRows   bool
	proposeOutput     string
)

// proposeCmd represents the 'propose-immunizations' command.
var proposeCmd = &cobra.Command{
	Use:   "propose-immunizations <vaccines.pdf>",
	Short: "Build immunization proposals from a vaccine delivery report",
	Long: `propose-immunizations parses the vaccine delivery report, attributes each
row to an existing patient by patient and owner name, and writes
immunization-proposals_<ts>.json.

Rows without a matching patient are listed under "unmatched" with up to
three similar patient keys. Review the file, then run import-immunizations.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPropose(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(proposeCmd)

	proposeCmd.Flags().BoolVar(&proposeStructured, "structured", false, "Use positioned text to read table columns")
	proposeCmd.Flags().BoolVar(&proposeFetch, "fetch", true, "Fetch patients to attribute rows")
	proposeCmd.Flags().BoolVar(&proposeDumpRows, "dump-rows", false, "Also write the parsed rows as JSON and XLSX")
	proposeCmd.Flags().StringVarP(&proposeOutput, "output", "o", "", "Directory for the generated files")
}

func runPropose(cmd *cobra.Command, pdfPath string) error {
	startTime := time.Now()
	ctx := cmd.Context()
	dir := outputDir(proposeOutput)

	fmt.Println("=== Vetspire Import: propose-immunizations ===")

	// =========================================================================
	// STEP 1: PARSE ROWS
	// =========================================================================

	rows, strategy, err := vaccineRows(ctx, pdfPath)
	if err != nil {
		return err
	}
	fmt.Printf("Parsed %d vaccine row(s) with the %s strategy\n", len(rows), strategy)

	outputs := []string{}
	if proposeDumpRows {
		jsonPath := filepath.Join(dir, utils.TimestampedName("vaccine-rows", "", ".json", startTime))
		if err := utils.WriteJSON(jsonPath, rows); err != nil {
			return err
		}
		xlsxPath := filepath.Join(dir, utils.TimestampedName("vaccine-rows", "", ".xlsx", startTime))
		if err := xlsxparser.WriteVaccineRows(xlsxPath, rows); err != nil {
			return err
		}
		outputs = append(outputs, jsonPath, xlsxPath)
	}

	// =========================================================================
	// STEP 2: BUILD PATIENT LOOKUP
	// =========================================================================

	var lookup immunization.Lookup
	if proposeFetch {
		if err := env.RequireAPI(); err != nil {
			return fmt.Errorf("--fetch needs the API: %w", err)
		}
		patients, err := newAPIClient().FetchPatients(ctx)
		if err != nil {
			return fmt.Errorf("failed to fetch patients: %w", err)
		}
		lookup, err = immunization.BuildPatientLookup(patients)
		if err != nil {
			return err
		}
		fmt.Printf("Lookup built from %d patient(s), %d key(s)\n", len(patients), len(lookup))
	}

	// =========================================================================
	// STEP 3: PROPOSE
	// =========================================================================

	file := immunization.Propose(rows, lookup)
	file.Meta.Timestamp = startTime.UTC()
	file.Meta.SourcePDF = pdfPath
	file.Meta.Strategy = strategy
	file.Meta.LocationIDPresent = env.RealLocationID != ""
	file.Meta.ProviderIDPresent = env.ProviderID != ""

	proposalsPath := filepath.Join(dir, utils.TimestampedName("immunization-proposals", "", ".json", startTime))
	if err := utils.WriteJSON(proposalsPath, file); err != nil {
		return err
	}
	outputs = append(outputs, proposalsPath)

	// =========================================================================
	// STEP 4: REPORT
	// =========================================================================

	fmt.Println("\n=== Proposals Complete ===")
	fmt.Printf("Rows:            %d\n", file.Meta.TotalRows)
	fmt.Printf("Proposals:       %d\n", file.Meta.TotalProposals)
	fmt.Printf("Unmatched:       %d\n", file.Meta.TotalUnmatched)
	for _, u := range file.Unmatched {
		fmt.Printf("  ? %s %v\n", u.Key, u.Suggestions)
	}
	fmt.Printf("  → %s\n", proposalsPath)

	writeSummary(dir, utils.ProcessingSummary{
		Command:   "propose-immunizations",
		InputFile: pdfPath,
		StartTime: startTime,
		EndTime:   time.Now(),
		Stats: []utils.Stat{
			{Label: "Rows", Value: file.Meta.TotalRows},
			{Label: "Proposals", Value: file.Meta.TotalProposals},
			{Label: "Unmatched", Value: file.Meta.TotalUnmatched},
		},
		OutputFiles: outputs,
	})

	return nil
}

// vaccineRows extracts the report and runs the selected strategy.
func vaccineRows(ctx context.Context, pdfPath string) ([]types.VaccineDeliveryRow, string, error) {
	if proposeStructured {
		extractor := pdftext.NewLayoutExtractor(mainConfig.RowTolerance)
		pages, err := extractor.ExtractPositioned(ctx, pdfPath)
		if err != nil {
			return nil, "", fmt.Errorf("failed to extract positioned text: %w", err)
		}
		if rows := vaccine.ParsePositioned(pages, mainConfig.RowTolerance); len(rows) > 0 {
			return rows, strategyStructured, nil
		}
		logger.Warn().Msg("structured strategy found no rows; falling back to text")

		text, err := extractor.ExtractText(ctx, pdfPath)
		if err != nil {
			return nil, "", fmt.Errorf("failed to extract text: %w", err)
		}
		return vaccine.ParseText(text), strategyText, nil
	}

	extractor, err := pdftext.New(mainConfig.PDFBackend, mainConfig.RowTolerance)
	if err != nil {
		return nil, "", err
	}
	text, err := extractor.ExtractText(ctx, pdfPath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to extract text: %w", err)
	}
	return vaccine.ParseText(text), strategyText, nil
}
