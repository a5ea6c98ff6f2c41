package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Scrape, then enrich and deliver the newly inserted records",
	Long: `Runs the whole pipeline in-process: ingestion followed by enrichment of the records it
inserted. When nothing new was inserted the enrichment step is skipped.`,
	Args: cobra.NoArgs,
	RunE: runPipelineCmd,
}

func init() {
	rootCmd.AddCommand(runCommand)
}

func runPipelineCmd(cmd *cobra.Command, _ []string) error {
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

	// Build both halves before scraping so a missing API key fails fast.
	in, err := a.ingester(nil)
	if err != nil {
		return err
	}
	e, err := a.enricher(ctx)
	if err != nil {
		return err
	}

	ingest, err := in.Run(ctx)
	if ingest != nil {
		a.printer.PrintIngestSummary(ingest)
	}
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}
	if len(ingest.NewRecordIDs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No new competitions, skipping enrichment.")
		return nil
	}

	enrich, err := e.Run(ctx, ingest.NewRecordIDs)
	if enrich != nil {
		a.printer.PrintEnrichSummary(enrich)
	}
	if err != nil {
		return fmt.Errorf("enrichment failed: %w", err)
	}
	return nil
}
