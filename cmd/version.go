// =============================================================================
// Vetspire Import - Version Command
// =============================================================================
//
// COMMAND USAGE:
//   vetspire-import version
//
// OUTPUT:
//   Vetspire Import
//   Version:    1.0.0
//   Build Date: 2024-01-01
//   Go Version: go1.24.0
//   API URL:    https://api.vetspire.com/graphql
//
// =============================================================================

package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// These variables are set at build time using ldflags:
//   go build -ldflags "-X 'github.com/john-osullivan/vetspire-import/cmd.Version=1.0.0'"

// Version is the application version.
var Version = "1.0.0"

// BuildDate is the date the application was built.
var BuildDate = "unknown"

// versionCmd represents the 'version' command.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display the application version",
	Long:  `Display the application version, build date, Go runtime version and the configured API endpoint.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("Vetspire Import")
		fmt.Printf("Version:    %s\n", Version)
		fmt.Printf("Build Date: %s\n", BuildDate)
		fmt.Printf("Go Version: %s\n", runtime.Version())
		if env != nil {
			fmt.Printf("API URL:    %s\n", env.APIURL)
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
