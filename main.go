// =============================================================================
// Vetspire Import - Main Entry Point
// =============================================================================
//
// This is the main entry point for the legacy records migration CLI. It hands
// control to the cmd package, which defines every subcommand with Cobra.
//
// USAGE:
//   vetspire-import convert-pdf <report.pdf>            - PDF to client/patient CSV
//   vetspire-import import-csv <records.csv>            - Reconcile clients and patients
//   vetspire-import propose-immunizations <report.pdf>  - Build immunization proposals
//   vetspire-import import-immunizations <proposals>    - Reconcile immunizations
//   vetspire-import update-locations                    - Move imported clients to a location
//   vetspire-import version                             - Display the application version
//
// ARCHITECTURE:
//   - cmd/       : Cobra command definitions
//   - internal/  : parsing, transformation and reconciliation logic
//   - pkg/       : shared file utilities
//
// =============================================================================

package main

import (
	"github.com/john-osullivan/vetspire-import/cmd"
)

func main() {
	cmd.Execute()
}
