package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Collect, admit, relocate and insert new competitions",
	Long: `Runs one ingestion: every configured source is scraped, candidates already known by URL or
description are dropped, posters are re-hosted and the remaining candidates are inserted as drafts.

Extraction is not performed; use "enrich" with the printed ids or "run" for both steps.`,
	Args: cobra.NoArgs,
	RunE: runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)
}

// signalContext cancels on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func runScrape(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx, stop := signalContext(cmd)
	defer stop()

	a, err := newApp(ctx, cmd, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	in, err := a.ingester(nil)
	if err != nil {
		return err
	}
	summary, err := in.Run(ctx)
	if summary != nil {
		a.printer.PrintIngestSummary(summary)
	}
	return err
}
