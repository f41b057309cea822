// =============================================================================
// Vetspire Import - Locations Command
// =============================================================================
//
// COMMAND USAGE:
//   vetspire-import update-locations [flags]
//
// FLAGS:
//   --full-send  : Send the updates; without it the run is a dry run
//   --uptown     : Move clients to REAL_LOCATION_ID instead of TEST_LOCATION_ID
//
// Only clients carrying the import note are touched.
//
// =============================================================================

package cmd

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/john-osullivan/vetspire-import/internal/reconcile"
	"github.com/john-osullivan/vetspire-import/pkg/utils"
)

var (
	locationsFullSend bool
	locationsUptown   bool
)

// locationsCmd represents the 'update-locations' command.
var locationsCmd = &cobra.Command{
	Use:   "update-locations",
	Short: "Move imported clients to the selected location",
	Long: `update-locations fetches every client, keeps those whose notes carry the
import note, and sets their primary location to the selected one. Clients
already at that location are skipped.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLocations(cmd)
	},
}

func init() {
	rootCmd.AddCommand(locationsCmd)

	locationsCmd.Flags().BoolVar(&locationsFullSend, "full-send", false, "Send the updates to Vetspire")
	locationsCmd.Flags().BoolVar(&locationsUptown, "uptown", false, "Use the real clinic location")
}

func runLocations(cmd *cobra.Command) error {
	startTime := time.Now()
	ctx := cmd.Context()

	fmt.Println("=== Vetspire Import: update-locations ===")

	if err := env.RequireAPI(); err != nil {
		return err
	}
	api := newAPIClient()
	remote, err := newRemote(api, locationsFullSend)
	if err != nil {
		return err
	}

	clients, err := api.FetchClients(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch clients: %w", err)
	}
	fmt.Printf("Fetched %d client(s)\n", len(clients))

	locationID := env.LocationID(locationsUptown)
	update, err := reconcile.UpdateLocations(ctx, remote, clients, locationID, mainConfig.ImportedNote, logger)
	if err != nil {
		return err
	}

	mode := utils.ModeTag(locationsFullSend)
	fmt.Printf("\n=== Location Update Complete (%s) ===\n", mode)
	fmt.Printf("Updated:         %d\n", update.Updated)
	fmt.Printf("Skipped:         %d\n", update.Skipped)
	fmt.Printf("Failed:          %d\n", update.Failed)

	failures := make([]utils.ErrorLogEntry, 0, len(update.Errors))
	for _, e := range update.Errors {
		fmt.Printf("  ✗ client %s: %s\n", e.Subject, e.Error)
		failures = append(failures, utils.ErrorLogEntry{
			Timestamp:    e.Timestamp,
			Subject:      "client " + e.Subject,
			ErrorType:    e.Action,
			ErrorMessage: e.Error,
			FieldName:    "primaryLocationId",
			FieldValue:   locationID,
		})
	}

	writeSummary(mainConfig.OutputDir, utils.ProcessingSummary{
		Command:   "update-locations",
		RunID:     uuid.NewString(),
		Mode:      mode,
		StartTime: startTime,
		EndTime:   time.Now(),
		Stats: []utils.Stat{
			{Label: "Clients", Value: len(clients)},
			{Label: "Updated", Value: update.Updated},
			{Label: "Skipped", Value: update.Skipped},
			{Label: "Failed", Value: update.Failed},
		},
		Failures: failures,
	})

	return nil
}
