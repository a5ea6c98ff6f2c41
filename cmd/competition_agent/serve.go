package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/competition-radar/internal/pipeline"
	"github.com/jonathan/competition-radar/internal/server"
)

var (
	serveAddr     string
	serveInterval time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the trigger server",
	Long: `Start an HTTP server that accepts scrape triggers and admitted-record events.
Records inserted by a scrape are enriched in the background. With --scrape-interval the
server also scrapes on its own schedule.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Address to listen on (overrides config)")
	serveCmd.Flags().DurationVar(&serveInterval, "scrape-interval", 0, "Scrape on this interval, 0 disables (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if flagChanged(cmd, "addr") {
		cfg.Server.Addr = serveAddr
	}
	if flagChanged(cmd, "scrape-interval") {
		cfg.Server.ScrapeInterval = serveInterval
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	a, err := newApp(ctx, cmd, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	bus := pipeline.NewBus(a.logger)
	e, err := a.enricher(ctx)
	if err != nil {
		return err
	}
	bus.Subscribe(e.HandleAdmitted)

	in, err := a.ingester(bus)
	if err != nil {
		return err
	}

	srv := server.New(server.Config{
		Addr:              cfg.Server.Addr,
		ScrapeInterval:    cfg.Server.ScrapeInterval,
		TriggersPerMinute: cfg.Server.TriggersPerMinute,
	}, in, bus, a.store, a.logger)

	return srv.Start(ctx)
}
