// =============================================================================
// Vetspire Import - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. Every migration step
// is a subcommand of it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (vetspire-import)
//   ├── convertCmd    (vetspire-import convert-pdf)
//   ├── importCmd     (vetspire-import import-csv)
//   ├── proposeCmd    (vetspire-import propose-immunizations)
//   ├── immunizeCmd   (vetspire-import import-immunizations)
//   ├── locationsCmd  (vetspire-import update-locations)
//   └── versionCmd    (vetspire-import version)
//
// CONFIGURATION:
//   Before any subcommand runs, the root command:
//   1. Loads config.yaml (--config)
//   2. Loads the environment (--env, then the process environment)
//   3. Builds the logger
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/john-osullivan/vetspire-import/internal/config"
	"github.com/john-osullivan/vetspire-import/internal/logging"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
var cfgFile string

// envFile holds the path to the .env file.
var envFile string

// verbose enables debug logging and request/response logging.
var verbose bool

// Loaded by the root command before a subcommand runs.
var (
	mainConfig *config.MainConfig
	env        *config.Env
	logger     zerolog.Logger
)

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "vetspire-import",
	Short: "Migrate legacy veterinary records into Vetspire",
	Long: `vetspire-import moves clients, patients and immunizations from a legacy
practice-management system into Vetspire.

The legacy system only exports PDF reports. The migration runs in steps,
each of which leaves a file an operator can review:

  1. convert-pdf            client/patient report -> CSV
  2. import-csv             CSV -> clients and patients
  3. propose-immunizations  vaccine delivery report -> proposals JSON
  4. import-immunizations   proposals JSON -> immunizations
  5. update-locations       move imported clients to the clinic location

Commands that write to Vetspire are dry runs unless --full-send is given.

Example Usage:
  vetspire-import convert-pdf clients.pdf --xlsx
  vetspire-import import-csv outputs/client-patient-records_....csv --limit 20
  vetspire-import import-csv records.csv --full-send --uptown`,

	SilenceUsage: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the root command. It is called by main.main().
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	// ==========================================================================
	// PERSISTENT FLAGS
	// ==========================================================================

	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the main configuration file (optional)",
	)

	rootCmd.PersistentFlags().StringVar(
		&envFile,
		"env",
		".env",
		"Path to the .env file with the API key and location/provider ids",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable debug logging, including API payloads",
	)
}

// initConfig loads the configuration, the environment and the logger.
func initConfig() error {
	var err error

	mainConfig, err = config.LoadMainConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load main config: %w", err)
	}

	env, err = config.LoadEnv(envFile)
	if err != nil {
		return fmt.Errorf("failed to load environment: %w", err)
	}

	logger = logging.New(os.Stderr, mainConfig.LogLevel, mainConfig.LogFormat, verbose)
	logger.Debug().Str("config", cfgFile).Str("output_dir", mainConfig.OutputDir).Msg("configuration loaded")

	return nil
}
