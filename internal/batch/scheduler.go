// Package batch drives extraction over admitted records in small sequential groups and hands off
// to delivery once at the end.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jonathan/competition-radar/internal/extraction"
	"github.com/jonathan/competition-radar/internal/types"
)

// DefaultGroupSize keeps each group well inside the provider compute budget.
const DefaultGroupSize = 2

// Extractor runs extraction for one item.
type Extractor interface {
	Extract(ctx context.Context, in extraction.Input) types.ExtractionResult
}

// Store loads records and writes extracted fields. GetCompetition returns an error wrapping
// types.ErrNotFound for unknown ids.
type Store interface {
	GetCompetition(ctx context.Context, id int64) (*types.Competition, error)
	UpdateFields(ctx context.Context, id int64, fields types.Fields) error
}

// Gate delivers every eligible record.
type Gate interface {
	Run(ctx context.Context) (*types.Delivery, error)
}

// Scheduler processes record ids group by group.
type Scheduler struct {
	extractor Extractor
	store     Store
	gate      Gate
	groupSize int
	logger    *slog.Logger

	// OnResult, when set, observes every finished extraction.
	OnResult func(types.ExtractionResult)
}

// NewScheduler creates a scheduler. A non-positive group size uses DefaultGroupSize.
func NewScheduler(extractor Extractor, store Store, gate Gate, groupSize int, logger *slog.Logger) *Scheduler {
	if groupSize <= 0 {
		groupSize = DefaultGroupSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		extractor: extractor,
		store:     store,
		gate:      gate,
		groupSize: groupSize,
		logger:    logger.With("component", "batch"),
	}
}

// Groups splits ids into consecutive chunks of at most size, preserving order.
func Groups(ids []int64, size int) [][]int64 {
	if size <= 0 {
		size = DefaultGroupSize
	}
	var groups [][]int64
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		groups = append(groups, ids[start:end])
	}
	return groups
}

// Run extracts every id in order, persisting each result as soon as it is ready, then runs the
// delivery gate exactly once. Only store failures abort the run.
func (s *Scheduler) Run(ctx context.Context, ids []int64) (*types.EnrichSummary, error) {
	summary := &types.EnrichSummary{Requested: len(ids)}

	groups := Groups(ids, s.groupSize)
	for gi, group := range groups {
		s.logger.Info("processing group", "group", gi+1, "of", len(groups), "ids", group)
		for _, id := range group {
			if err := s.processOne(ctx, id, summary); err != nil {
				return summary, err
			}
		}
	}

	if s.gate == nil {
		return summary, nil
	}
	delivery, err := s.gate.Run(ctx)
	if delivery != nil {
		summary.Delivery = *delivery
	}
	if err != nil {
		return summary, fmt.Errorf("delivery: %w", err)
	}
	return summary, nil
}

func (s *Scheduler) processOne(ctx context.Context, id int64, summary *types.EnrichSummary) error {
	rec, err := s.store.GetCompetition(ctx, id)
	if errors.Is(err, types.ErrNotFound) {
		s.logger.Warn("record vanished before extraction", "record_id", id)
		summary.Errors = append(summary.Errors, fmt.Sprintf("record %d: not found", id))
		return nil
	}
	if err != nil {
		return err
	}

	res := s.extractor.Extract(ctx, extraction.Input{
		RecordID:  rec.ID,
		Text:      rec.Description,
		PosterURL: rec.PosterURL,
	})
	if s.OnResult != nil {
		s.OnResult(res)
	}
	if !res.Fields.IsEmpty() {
		summary.Extracted++
	}

	applied := rec.Apply(res.Fields)
	if len(applied) == 0 {
		s.logger.Debug("nothing to write", "record_id", id)
		return nil
	}
	if err := s.store.UpdateFields(ctx, id, res.Fields.Only(applied...)); err != nil {
		return err
	}
	summary.Updated++
	s.logger.Info("record updated", "record_id", id, "fields", applied)
	return nil
}
