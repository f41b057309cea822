// =============================================================================
// Vetspire Import - Immunize Command
// =============================================================================
//
// This file defines the 'import-immunizations' command. It creates the
// reviewed immunization drafts that patients do not already have.
//
// COMMAND USAGE:
//   vetspire-import import-immunizations <proposals.json> [flags]
//
// FLAGS:
//   --limit      : Process only the first N drafts
//   --full-send  : Send the writes; without it the run is a dry run
//
// Every immunization is attached to REAL_LOCATION_ID and PROVIDER_ID; the
// command stops before reading the proposals when either is missing.
// Results are always tracked.
//
// =============================================================================

package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/john-osullivan/vetspire-import/internal/immunization"
	"github.com/john-osullivan/vetspire-import/internal/reconcile"
	"github.com/john-osullivan/vetspire-import/internal/types"
)

var (
	immunizeLimit    int
	immunizeFullSend bool
)

// immunizeCmd represents the 'import-immunizations' command.
var immunizeCmd = &cobra.Command{
	Use:   "import-immunizations <proposals.json>",
	Short: "Create immunizations from a reviewed proposals file",
	Long: `import-immunizations reads a proposals file (the object written by
propose-immunizations or a bare array of drafts) and creates each draft
that is not already recorded on its patient.

A draft is skipped only when an existing immunization of the same patient
equals it exactly. There is no update path.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runImmunize(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(immunizeCmd)

	immunizeCmd.Flags().IntVar(&immunizeLimit, "limit", 0, "Process only the first N drafts")
	immunizeCmd.Flags().BoolVar(&immunizeFullSend, "full-send", false, "Send the writes to Vetspire")
}

func runImmunize(cmd *cobra.Command, path string) error {
	startTime := time.Now()
	ctx := cmd.Context()

	fmt.Println("=== Vetspire Import: import-immunizations ===")

	if err := env.RequireImmunizationIDs(); err != nil {
		return err
	}

	drafts, err := immunization.ReadProposals(path)
	if err != nil {
		return err
	}
	drafts = limit(drafts, immunizeLimit)
	fmt.Printf("Read %d draft(s) from %s\n", len(drafts), path)

	api := newAPIClient()
	remote, err := newRemote(api, immunizeFullSend)
	if err != nil {
		return err
	}

	var existing []types.Patient
	if api != nil {
		existing, err = api.FetchPatientsWithImmunizations(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Warn().Err(err).Int("fetched", len(existing)).Msg("immunization snapshot is incomplete")
		}
	} else {
		logger.Warn().Msg("VETSPIRE_API_KEY not set; every draft will be proposed for creation")
	}

	engine, err := reconcile.NewImmunizationEngine(remote, reconcile.ImmunizationOptions{
		LocationID:      env.RealLocationID,
		ProviderID:      env.ProviderID,
		SendAPIRequests: immunizeFullSend,
		Verbose:         verbose,
		TrackResults:    true,
		OutputDir:       mainConfig.OutputDir,
		ProgressEvery:   mainConfig.ProgressEvery,
	}, logger)
	if err != nil {
		return err
	}

	result, runErr := engine.Reconcile(ctx, drafts, existing)

	printResult("Immunization Import", result, time.Since(startTime))
	writeSummary(mainConfig.OutputDir, summaryFor("import-immunizations", path, result))

	return runErr
}
