// Package main provides the entry point for the application autopilot: the
// HTTP API server and one-shot CLI runs.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jonathan/apply-autopilot/internal/observability"
)

var (
	verbose bool
	logger  zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "autopilot",
	Short: "Job and internship application autopilot",
	Long:  "Autopilot logs in to job platforms, searches listings, and applies on your behalf, either as a REST API or as one-shot CLI runs.",
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger = observability.NewLogger(os.Stderr, verbose)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Print debug logs")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
