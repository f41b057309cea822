// =============================================================================
// Vetspire Import - Import Command
// =============================================================================
//
// This file defines the 'import-csv' command. It reconciles the records of a
// reviewed client/patient CSV (or workbook) against Vetspire.
//
// COMMAND USAGE:
//   vetspire-import import-csv <records.csv|records.xlsx> [flags]
//
// FLAGS:
//   --limit          : Process only the first N records
//   --full-send      : Send the writes; without it the run is a dry run
//   --uptown         : Use REAL_LOCATION_ID instead of TEST_LOCATION_ID
//   --track-results  : Write the results and failures artifacts (default true)
//
// PROCESSING PIPELINE:
//   1. Read and check the records
//   2. Fetch the client/patient snapshot
//   3. Reconcile each record: client first, then its patient
//   4. Print the totals and write the summary
//
// =============================================================================

package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/john-osullivan/vetspire-import/internal/converter"
	"github.com/john-osullivan/vetspire-import/internal/reconcile"
)

var (
	importLimit        int
	importFullSend     bool
	importUptown       bool
	importTrackResults bool
)

// importCmd represents the 'import-csv' command.
var importCmd = &cobra.Command{
	Use:   "import-csv <records.csv>",
	Short: "Create or update clients and patients from a records CSV",
	Long: `import-csv reads the records written by convert-pdf (or a corrected
workbook) and reconciles each one against the clients and patients already
in Vetspire:

  - no match        -> create
  - match, equal    -> skip
  - match, differs  -> update

Clients are matched by historical id, then email, then name. Patients are
matched within their client by historical id, then name. A client that
cannot be created takes its patient with it.

Without --full-send nothing is sent: each write is logged and answered with
a placeholder record.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runImport(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().IntVar(&importLimit, "limit", 0, "Process only the first N records")
	importCmd.Flags().BoolVar(&importFullSend, "full-send", false, "Send the writes to Vetspire")
	importCmd.Flags().BoolVar(&importUptown, "uptown", false, "Attach clients to the real clinic location")
	importCmd.Flags().BoolVar(&importTrackResults, "track-results", true, "Write results and failures artifacts")
}

func runImport(cmd *cobra.Command, path string) error {
	startTime := time.Now()
	ctx := cmd.Context()

	// =========================================================================
	// STEP 1: READ RECORDS
	// =========================================================================

	fmt.Println("=== Vetspire Import: import-csv ===")

	records, err := readRecords(path)
	if err != nil {
		return err
	}
	records = limit(records, importLimit)
	fmt.Printf("Read %d record(s) from %s\n", len(records), path)

	api := newAPIClient()
	remote, err := newRemote(api, importFullSend)
	if err != nil {
		return err
	}

	locationID := env.LocationID(importUptown)
	if locationID == "" {
		logger.Warn().Bool("uptown", importUptown).Msg("no location id set; clients will have no primary location")
	}

	// =========================================================================
	// STEP 2: FETCH SNAPSHOT
	// =========================================================================

	snapshot, err := fetchSnapshot(ctx, api)
	if err != nil {
		return err
	}

	// =========================================================================
	// STEP 3: RECONCILE
	// =========================================================================

	engine := reconcile.NewEngine(remote, reconcile.Options{
		SendAPIRequests: importFullSend,
		Verbose:         verbose,
		TrackResults:    importTrackResults,
		OutputDir:       mainConfig.OutputDir,
		ProgressEvery:   mainConfig.ProgressEvery,
		Transform: converter.TransformOptions{
			LocationID:    locationID,
			DeceasedCodes: mainConfig.DeceasedStatusCodes,
			ImportedNote:  mainConfig.ImportedNote,
		},
	}, logger)

	result, runErr := engine.Reconcile(ctx, records, snapshot)

	// =========================================================================
	// STEP 4: REPORT
	// =========================================================================

	printResult("Import", result, time.Since(startTime))
	writeSummary(mainConfig.OutputDir, summaryFor("import-csv", path, result))

	return runErr
}
