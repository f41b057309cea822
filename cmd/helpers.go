package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/john-osullivan/vetspire-import/internal/csvparser"
	"github.com/john-osullivan/vetspire-import/internal/reconcile"
	"github.com/john-osullivan/vetspire-import/internal/types"
	"github.com/john-osullivan/vetspire-import/internal/vetspire"
	"github.com/john-osullivan/vetspire-import/internal/xlsxparser"
	"github.com/john-osullivan/vetspire-import/pkg/utils"
)

// =============================================================================
// API ACCESS
// =============================================================================

// mutator is every write the commands issue. vetspire.Client sends them;
// vetspire.DryRun only logs them.
type mutator interface {
	reconcile.Remote
	reconcile.ImmunizationRemote
}

// newAPIClient returns the GraphQL client, or nil when no API key is set.
func newAPIClient() *vetspire.Client {
	if env.APIKey == "" {
		return nil
	}
	return vetspire.New(vetspire.Options{
		URL:      env.APIURL,
		APIKey:   env.APIKey,
		Timeout:  mainConfig.RequestTimeout,
		PageSize: mainConfig.PageSize,
		Limiter:  vetspire.NewRateLimiter(mainConfig.RateLimitInterval),
		Verbose:  verbose,
	}, logger)
}

// newRemote picks the write side of a run. A full send needs the API client.
func newRemote(api *vetspire.Client, fullSend bool) (mutator, error) {
	if !fullSend {
		return vetspire.NewDryRun(logger), nil
	}
	if api == nil {
		return nil, env.RequireAPI()
	}
	return api, nil
}

// fetchSnapshot reads the current clients and patients. Without an API
// client the snapshot is empty. A failed fetch is logged and the records
// fetched so far are used; only cancellation is returned.
func fetchSnapshot(ctx context.Context, api *vetspire.Client) (reconcile.Snapshot, error) {
	var snapshot reconcile.Snapshot
	if api == nil {
		logger.Warn().Msg("VETSPIRE_API_KEY not set; reconciling against an empty snapshot")
		return snapshot, nil
	}

	var err error
	snapshot.Clients, err = api.FetchClients(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return snapshot, ctx.Err()
		}
		logger.Warn().Err(err).Int("fetched", len(snapshot.Clients)).Msg("client snapshot is incomplete")
	}

	snapshot.Patients, err = api.FetchPatients(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return snapshot, ctx.Err()
		}
		logger.Warn().Err(err).Int("fetched", len(snapshot.Patients)).Msg("patient snapshot is incomplete")
	}

	fmt.Printf("Snapshot: %d client(s), %d patient(s)\n", len(snapshot.Clients), len(snapshot.Patients))
	return snapshot, nil
}

// =============================================================================
// INPUT FILES
// =============================================================================

// readRecords reads a client/patient CSV, or a review workbook when the file
// ends in .xlsx.
func readRecords(path string) ([]types.ClientPatientRecord, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return xlsxparser.ParseRecords(path)
	}
	return csvparser.Parse(path)
}

// limit returns the first n items, or all of them when n <= 0.
func limit[T any](items []T, n int) []T {
	if n > 0 && n < len(items) {
		return items[:n]
	}
	return items
}

// outputDir returns the --output flag value or the configured directory.
func outputDir(flag string) string {
	if flag != "" {
		return flag
	}
	return mainConfig.OutputDir
}

// =============================================================================
// REPORTING
// =============================================================================

// printResult prints the totals of a reconciliation run.
func printResult(title string, result *reconcile.Result, elapsed time.Duration) {
	fmt.Printf("\n=== %s Complete (%s) ===\n", title, result.Mode)
	for _, s := range result.Stats() {
		fmt.Printf("%-16s %d\n", s.Label+":", s.Value)
	}
	fmt.Printf("%-16s %s\n", "Time elapsed:", elapsed.Round(time.Millisecond))

	for _, entity := range []string{reconcile.EntityClient, reconcile.EntityPatient, reconcile.EntityImmunization, reconcile.EntityRecord} {
		c, ok := result.ByEntity[entity]
		if !ok {
			continue
		}
		fmt.Printf("  %-14s created %d, updated %d, skipped %d, failed %d\n",
			entity+":", c.Created, c.Updated, c.Skipped, c.Failed)
	}

	for _, f := range result.Failed {
		fmt.Printf("  ✗ %s %s (record %d): %s\n", f.Entity, f.Subject, f.Index+1, f.Error)
	}
	for _, path := range result.Artifacts {
		fmt.Printf("  → %s\n", path)
	}
}

// writeSummary writes the processing summary to dir and reports where it
// went. When the summary lists failures they are also written as an error
// log. Write failures are logged, not returned.
func writeSummary(dir string, summary utils.ProcessingSummary) {
	if len(summary.Failures) > 0 {
		if path, err := utils.WriteErrorLog(summary.Failures, dir); err != nil {
			logger.Error().Err(err).Msg("failed to write error log")
		} else {
			fmt.Printf("Error log written to %s\n", path)
		}
	}

	path, err := utils.WriteSummaryLog(summary, dir)
	if err != nil {
		logger.Error().Err(err).Msg("failed to write processing summary")
		return
	}
	fmt.Printf("Summary written to %s\n", path)
}

// summaryFor builds the processing summary of a reconciliation run.
func summaryFor(command, input string, result *reconcile.Result) utils.ProcessingSummary {
	return utils.ProcessingSummary{
		Command:     command,
		RunID:       result.RunID,
		Mode:        result.Mode,
		InputFile:   input,
		StartTime:   result.StartedAt,
		EndTime:     result.FinishedAt,
		Stats:       result.Stats(),
		OutputFiles: result.Artifacts,
		Failures:    result.ErrorLogEntries(),
	}
}
