package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jonathan/competition-radar/internal/admission"
	"github.com/jonathan/competition-radar/internal/collector"
	"github.com/jonathan/competition-radar/internal/db"
	"github.com/jonathan/competition-radar/internal/observability"
	"github.com/jonathan/competition-radar/internal/relocation"
	"github.com/jonathan/competition-radar/internal/types"
)

// Collector gathers candidates from every configured source.
type Collector interface {
	Collect(ctx context.Context) (*collector.Collection, error)
}

// Relocator re-hosts candidate media.
type Relocator interface {
	Relocate(ctx context.Context, items []types.CandidateItem) []relocation.Outcome
}

// DraftStore reads dedup keys and inserts draft records.
type DraftStore interface {
	ExistingKeys(ctx context.Context) ([]admission.KeyPair, error)
	InsertDrafts(ctx context.Context, records []types.Competition) ([]int64, error)
}

// Ingester runs collect, admit, relocate and insert.
type Ingester struct {
	collector Collector
	store     DraftStore
	relocator Relocator
	runs      RunRecorder
	bus       *Bus
	logger    *slog.Logger

	OnProgress ProgressCallback
}

// NewIngester creates an ingester. relocator, runs and bus may be nil.
func NewIngester(c Collector, store DraftStore, relocator Relocator, runs RunRecorder, bus *Bus, logger *slog.Logger) *Ingester {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingester{
		collector: c,
		store:     store,
		relocator: relocator,
		runs:      runs,
		bus:       bus,
		logger:    logger,
	}
}

// Run performs one ingestion. Only collector exhaustion and persistence failures are returned
// as errors; everything else is reported in the summary. When at least one record was inserted
// an AdmittedEvent is published.
func (in *Ingester) Run(ctx context.Context) (*types.IngestSummary, error) {
	return in.RunWithProgress(ctx, in.OnProgress)
}

// RunWithProgress is Run reporting to onProgress instead of OnProgress.
func (in *Ingester) RunWithProgress(ctx context.Context, onProgress ProgressCallback) (*types.IngestSummary, error) {
	run := observability.NewRun(db.RunKindIngest, in.logger)
	summary := &types.IngestSummary{RunID: run.ID.String()}

	startRun(ctx, in.runs, run)
	err := in.ingest(ctx, run, summary, onProgress)
	finishRun(ctx, in.runs, run, summary, err)
	if err != nil {
		return summary, err
	}

	run.Logger.Info("ingestion finished",
		"scraped", summary.Scraped, "admitted", summary.Admitted, "inserted", len(summary.NewRecordIDs),
		"relocated", summary.Relocated, "source_errors", len(summary.SourceErrors))

	if in.bus != nil && len(summary.NewRecordIDs) > 0 {
		in.bus.Publish(ctx, AdmittedEvent{RunID: summary.RunID, IDs: summary.NewRecordIDs})
	}
	return summary, nil
}

func (in *Ingester) ingest(ctx context.Context, run *observability.Run, summary *types.IngestSummary, onProgress ProgressCallback) error {
	run.Mark(StageCollect)
	col, err := in.collector.Collect(ctx)
	if col != nil {
		summary.Scraped = col.Total
		summary.SourceErrors = col.Errors
	}
	if err != nil {
		return fmt.Errorf("collect: %w", err)
	}
	run.Done(StageCollect, "items", summary.Scraped)
	emitProgress(onProgress, run, StageCollect, fmt.Sprintf("Collected %d candidates", summary.Scraped), col)

	run.Mark(StageAdmit)
	pairs, err := in.store.ExistingKeys(ctx)
	if err != nil {
		return err
	}
	decision := admission.Filter(col.Items, admission.NewKeys(pairs))
	summary.Admitted = len(decision.Admitted)
	summary.SkippedURL = decision.SkippedURL
	summary.SkippedDescription = decision.SkippedDescription
	summary.SkippedInBatch = decision.SkippedInBatch
	run.Done(StageAdmit, "admitted", summary.Admitted, "rejected", len(decision.Rejected))
	emitProgress(onProgress, run, StageAdmit,
		fmt.Sprintf("Admitted %d of %d candidates", summary.Admitted, summary.Scraped), nil)

	if len(decision.Admitted) == 0 {
		run.Logger.Info("nothing admitted, stopping")
		return nil
	}

	run.Mark(StageRelocate)
	drafts := in.relocate(ctx, decision.Admitted, summary)
	run.Done(StageRelocate, "relocated", summary.Relocated)
	emitProgress(onProgress, run, StageRelocate,
		fmt.Sprintf("Relocated %d of %d posters", summary.Relocated, len(drafts)), nil)

	run.Mark(StageInsert)
	ids, err := in.store.InsertDrafts(ctx, drafts)
	if err != nil {
		return err
	}
	summary.NewRecordIDs = ids
	run.Done(StageInsert, "inserted", len(ids))
	emitProgress(onProgress, run, StageInsert, fmt.Sprintf("Inserted %d drafts", len(ids)), ids)
	return nil
}

// relocate converts admitted candidates into drafts, substituting relocated poster URLs.
// Without a relocator the upstream media URL is kept.
func (in *Ingester) relocate(ctx context.Context, items []types.CandidateItem, summary *types.IngestSummary) []types.Competition {
	drafts := make([]types.Competition, 0, len(items))
	if in.relocator == nil {
		for _, item := range items {
			drafts = append(drafts, types.NewDraft(item, item.MediaURL))
		}
		return drafts
	}

	for _, out := range in.relocator.Relocate(ctx, items) {
		if out.Relocated {
			summary.Relocated++
		}
		if out.Err != nil {
			summary.Errors = append(summary.Errors, out.Err.Error())
		}
		drafts = append(drafts, types.NewDraft(out.Item, out.PosterURL))
	}
	return drafts
}
