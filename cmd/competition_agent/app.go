package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/competition-radar/internal/batch"
	"github.com/jonathan/competition-radar/internal/collector"
	"github.com/jonathan/competition-radar/internal/config"
	"github.com/jonathan/competition-radar/internal/db"
	"github.com/jonathan/competition-radar/internal/delivery"
	"github.com/jonathan/competition-radar/internal/extraction"
	"github.com/jonathan/competition-radar/internal/llm"
	"github.com/jonathan/competition-radar/internal/observability"
	"github.com/jonathan/competition-radar/internal/pipeline"
	"github.com/jonathan/competition-radar/internal/relocation"
	"github.com/jonathan/competition-radar/internal/schemas"
	"github.com/jonathan/competition-radar/internal/sources"
	"github.com/jonathan/competition-radar/internal/types"
)

// loadConfig reads the config file, applies flag overrides and validates the result.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	applyFlagOverrides(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyFlagOverrides copies explicitly set persistent flags over the loaded config.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	if flagChanged(cmd, "db-url") {
		cfg.Database.URL = databaseURL
	}
	if flagChanged(cmd, "log-level") {
		cfg.Log.Level = logLevel
	}
	if flagChanged(cmd, "log-format") {
		cfg.Log.Format = logFormat
	}
	if verbose && !flagChanged(cmd, "log-level") {
		cfg.Log.Level = "debug"
	}
}

func flagChanged(cmd *cobra.Command, name string) bool {
	f := cmd.Flags().Lookup(name)
	return f != nil && f.Changed
}

// app owns the long-lived collaborators shared by every command.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *db.DB
	printer *observability.Printer
	out     io.Writer
	closers []func() error
}

// newApp builds the logger and connects to the database.
func newApp(ctx context.Context, cmd *cobra.Command, cfg *config.Config) (*app, error) {
	logger := observability.NewLogger(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)

	store, err := db.Connect(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &app{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		printer: observability.NewPrinter(cmd.OutOrStdout()),
		out:     cmd.OutOrStdout(),
	}, nil
}

// Close releases provider clients and the connection pool.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("failed to close client", "error", err)
		}
	}
	a.store.Close()
}

// progress prints stage progress when running verbosely.
func (a *app) progress() pipeline.ProgressCallback {
	if !verbose {
		return nil
	}
	return func(ev pipeline.ProgressEvent) {
		fmt.Fprintf(a.out, "[%s] %s\n", ev.Stage, ev.Message)
	}
}

// ingester builds collect, admit, relocate and insert. bus may be nil.
func (a *app) ingester(bus *pipeline.Bus) (*pipeline.Ingester, error) {
	deps := sources.Deps{Client: &http.Client{}, Logger: a.logger}
	adapters, err := sources.NewRegistry().BuildAll(a.cfg.SourceSpecs(), deps)
	if err != nil {
		return nil, fmt.Errorf("failed to build sources: %w", err)
	}

	bucket, err := relocation.NewS3Store(a.cfg.S3Config())
	if err != nil {
		return nil, fmt.Errorf("failed to create poster store: %w", err)
	}
	relocator := relocation.New(bucket, a.cfg.RelocationOptions(), a.logger)

	in := pipeline.NewIngester(collector.New(adapters, a.logger), a.store, relocator, a.store, bus, a.logger)
	in.OnProgress = a.progress()
	return in, nil
}

// gate builds the delivery gate over every configured channel.
func (a *app) gate() (*delivery.Gate, error) {
	loc, err := a.cfg.Location()
	if err != nil {
		return nil, err
	}

	var channels []delivery.Channel
	for _, gc := range a.cfg.GatewayConfigs() {
		channels = append(channels, delivery.NewGatewayChannel(gc, nil))
	}
	for _, tc := range a.cfg.TelegramConfigs() {
		ch, err := delivery.NewTelegramChannel(tc, nil)
		if err != nil {
			return nil, err
		}
		channels = append(channels, ch)
	}
	if len(channels) == 0 {
		a.logger.Warn("no delivery channels configured, nothing will be marked delivered")
	}
	return delivery.NewGate(a.store, channels, loc, a.logger), nil
}

// extractor builds the text, primary and fallback providers. The fallback is optional.
func (a *app) extractor(ctx context.Context) (*extraction.Orchestrator, error) {
	if a.cfg.Providers.Gemini.APIKey == "" {
		return nil, errors.New("GEMINI_API_KEY environment variable is required for extraction")
	}
	gemini, err := llm.NewGeminiClient(ctx, a.cfg.GeminiConfig(), a.cfg.Providers.Gemini.APIKey)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, gemini.Close)

	var fallback extraction.Provider
	if key := a.cfg.Providers.OpenAI.APIKey; key != "" {
		client, err := llm.NewClient(ctx, a.cfg.OpenAIConfig(), key)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		fallback = extraction.NewImageProvider(types.ProviderImageFallback, client)
	} else {
		a.logger.Info("OPENAI_API_KEY not set, fallback image provider disabled")
	}

	validator, err := schemas.NewCompetitionValidator()
	if err != nil {
		return nil, err
	}

	return extraction.NewOrchestrator(
		extraction.NewTextProvider(gemini),
		extraction.NewImageProvider(types.ProviderImagePrimary, gemini),
		fallback,
		validator,
		a.logger,
	), nil
}

// enricher builds batch extraction followed by the delivery gate.
func (a *app) enricher(ctx context.Context) (*pipeline.Enricher, error) {
	orchestrator, err := a.extractor(ctx)
	if err != nil {
		return nil, err
	}
	gate, err := a.gate()
	if err != nil {
		return nil, err
	}

	scheduler := batch.NewScheduler(orchestrator, a.store, gate, a.cfg.Batch.GroupSize, a.logger)
	if verbose {
		scheduler.OnResult = func(res types.ExtractionResult) {
			a.printer.PrintExtraction(&res)
		}
	}

	e := pipeline.NewEnricher(scheduler, a.store, a.logger)
	e.OnProgress = a.progress()
	return e, nil
}

// deliverer builds a standalone delivery pass.
func (a *app) deliverer() (*pipeline.Deliverer, error) {
	gate, err := a.gate()
	if err != nil {
		return nil, err
	}
	return pipeline.NewDeliverer(gate, a.store, a.logger), nil
}
