package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jonathan/competition-radar/internal/db"
	"github.com/jonathan/competition-radar/internal/observability"
	"github.com/jonathan/competition-radar/internal/types"
)

// Scheduler extracts a list of records and then runs delivery.
type Scheduler interface {
	Run(ctx context.Context, ids []int64) (*types.EnrichSummary, error)
}

// Gate delivers every eligible record.
type Gate interface {
	Run(ctx context.Context) (*types.Delivery, error)
}

// Enricher runs batch extraction followed by delivery for a set of admitted ids.
type Enricher struct {
	scheduler Scheduler
	runs      RunRecorder
	logger    *slog.Logger

	OnProgress ProgressCallback
}

// NewEnricher creates an enricher. runs may be nil.
func NewEnricher(scheduler Scheduler, runs RunRecorder, logger *slog.Logger) *Enricher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Enricher{scheduler: scheduler, runs: runs, logger: logger}
}

// Run enriches the given ids. An empty list is a no-op that records nothing.
func (e *Enricher) Run(ctx context.Context, ids []int64) (*types.EnrichSummary, error) {
	if len(ids) == 0 {
		return &types.EnrichSummary{}, nil
	}

	run := observability.NewRun(db.RunKindEnrich, e.logger)
	startRun(ctx, e.runs, run)

	run.Mark(StageExtract)
	summary, err := e.scheduler.Run(ctx, ids)
	if summary == nil {
		summary = &types.EnrichSummary{Requested: len(ids)}
	}
	summary.RunID = run.ID.String()
	run.Done(StageExtract, "extracted", summary.Extracted, "updated", summary.Updated)

	finishRun(ctx, e.runs, run, summary, err)
	if err != nil {
		return summary, err
	}

	emitProgress(e.OnProgress, run, StageDeliver,
		fmt.Sprintf("Delivered %d of %d records", summary.Delivery.Delivered, summary.Delivery.Selected), summary)
	run.Logger.Info("enrichment finished",
		"requested", summary.Requested, "extracted", summary.Extracted, "updated", summary.Updated,
		"delivered", summary.Delivery.Delivered, "errors", len(summary.Errors))
	return summary, nil
}

// HandleAdmitted is the bus subscriber that enriches freshly admitted records.
func (e *Enricher) HandleAdmitted(ctx context.Context, ev AdmittedEvent) {
	if _, err := e.Run(ctx, ev.IDs); err != nil {
		e.logger.Error("enrichment failed", "ingest_run_id", ev.RunID, "error", err)
	}
}

// Deliverer runs the delivery gate on its own.
type Deliverer struct {
	gate   Gate
	runs   RunRecorder
	logger *slog.Logger
}

// NewDeliverer creates a deliverer. runs may be nil.
func NewDeliverer(gate Gate, runs RunRecorder, logger *slog.Logger) *Deliverer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Deliverer{gate: gate, runs: runs, logger: logger}
}

// Run performs one delivery pass.
func (d *Deliverer) Run(ctx context.Context) (*types.Delivery, error) {
	run := observability.NewRun(db.RunKindDeliver, d.logger)
	startRun(ctx, d.runs, run)

	run.Mark(StageDeliver)
	res, err := d.gate.Run(ctx)
	if res == nil {
		res = &types.Delivery{}
	}
	run.Done(StageDeliver, "selected", res.Selected, "delivered", res.Delivered, "failed", res.Failed)

	finishRun(ctx, d.runs, run, res, err)
	return res, err
}
