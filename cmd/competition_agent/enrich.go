package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/jonathan/competition-radar/internal/config"
)

var (
	enrichIDs       string
	enrichGroupSize int
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Extract details for stored records and deliver the eligible ones",
	Long: `Runs the extraction providers over the given record ids in small groups, writes the
recovered fields without overwriting existing values and then runs one delivery pass.`,
	Args: cobra.NoArgs,
	RunE: runEnrich,
}

func init() {
	enrichCmd.Flags().StringVar(&enrichIDs, "ids", "", "Comma-separated record ids to enrich (required)")
	enrichCmd.Flags().IntVar(&enrichGroupSize, "group-size", 0, "Records extracted concurrently per group (overrides config)")
	rootCmd.AddCommand(enrichCmd)
}

func runEnrich(cmd *cobra.Command, _ []string) error {
	ids, err := config.ParseIDs(enrichIDs)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return errors.New("--ids is required")
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if flagChanged(cmd, "group-size") && enrichGroupSize > 0 {
		cfg.Batch.GroupSize = enrichGroupSize
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	a, err := newApp(ctx, cmd, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	e, err := a.enricher(ctx)
	if err != nil {
		return err
	}
	summary, err := e.Run(ctx, ids)
	if summary != nil {
		a.printer.PrintEnrichSummary(summary)
	}
	return err
}
