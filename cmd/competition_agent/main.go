// Package main provides the entry point for the competition radar CLI and trigger server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	configPath  string
	databaseURL string
	logLevel    string
	logFormat   string
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:   "competition_agent",
	Short: "Competition radar pipeline",
	Long: `Competition radar scrapes competition announcements from listing sites and social accounts,
re-hosts their posters, extracts structured details with LLM providers and broadcasts new
competitions to chat channels.

Configuration is read from a YAML file (--config or RADAR_CONFIG). Secrets come from the
environment. Command-line flags override both.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config (defaults to RADAR_CONFIG env var)")
	rootCmd.PersistentFlags().StringVar(&databaseURL, "db-url", "", "PostgreSQL connection URL (defaults to DATABASE_URL env var)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: text or json")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Print progress and per-record details")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
