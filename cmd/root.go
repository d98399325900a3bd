// Package cmd holds the civicsync command line: the API server and offline
// exports.
package cmd

import (
	"github.com/apex/log"
	"github.com/spf13/cobra"

	"civicsync/config"
)

var (
	cfg      *config.Config
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "civicsync",
	Short: "Civic issue reporting backend",
	Long: `civicsync serves the civic issue API and the policy analytics dashboard.

Examples:
  civicsync serve                        # Run the API server
  civicsync export csv --out ./exports   # Write the current issues as CSV
  civicsync export report                # Generate a narrative report`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg = config.Load()
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}
		config.SetupLogger(cfg.LogLevel)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides LOG_LEVEL")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(exportCmd)
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		log.WithError(err).Error("civicsync failed")
		return 1
	}
	return 0
}
