// Package collector fans out to every configured source adapter and aggregates their results.
package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/competition-radar/internal/sources"
	"github.com/jonathan/competition-radar/internal/types"
)

// ErrAllSourcesFailed aborts a run: every source failed and nothing was collected.
var ErrAllSourcesFailed = errors.New("all sources failed")

// Collection is the aggregated outcome of one fan-out.
type Collection struct {
	Total  int
	Items  []types.CandidateItem
	Errors []types.SourceError
}

// Collector runs adapters concurrently and waits for all of them to settle.
type Collector struct {
	adapters []sources.Adapter
	logger   *slog.Logger
}

// New creates a collector over the given adapters.
func New(adapters []sources.Adapter, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{adapters: adapters, logger: logger.With("component", "collector")}
}

type outcome struct {
	items    []types.CandidateItem
	warnings []error
	err      error
	took     time.Duration
}

// Collect invokes every adapter. Items keep their per-source order and sources appear in
// configuration order. A failing source contributes zero items and one error entry.
// ErrAllSourcesFailed is returned only when every source failed.
func (c *Collector) Collect(ctx context.Context) (*Collection, error) {
	outcomes := make([]outcome, len(c.adapters))

	var g errgroup.Group
	for i, adapter := range c.adapters {
		g.Go(func() error {
			start := time.Now()
			res, err := safeFetch(ctx, adapter)
			outcomes[i] = outcome{err: err, took: time.Since(start)}
			if res != nil {
				outcomes[i].items = res.Items
				outcomes[i].warnings = res.Warnings
			}
			return nil
		})
	}
	_ = g.Wait()

	col := &Collection{}
	failed := 0
	for i, o := range outcomes {
		id := c.adapters[i].ID()
		if o.err != nil {
			failed++
			col.Errors = append(col.Errors, types.SourceError{Source: id, Message: o.err.Error()})
			c.logger.Error("source failed", "source", id, "category", "SourceFetchError", "error", o.err, "took", o.took)
			continue
		}
		for _, w := range o.warnings {
			col.Errors = append(col.Errors, types.SourceError{Source: id, Message: w.Error()})
		}
		for _, item := range o.items {
			if item.Origin == "" {
				item.Origin = c.adapters[i].Origin()
			}
			col.Items = append(col.Items, item)
		}
		c.logger.Info("source collected", "source", id, "items", len(o.items), "warnings", len(o.warnings), "took", o.took)
	}
	col.Total = len(col.Items)

	if len(c.adapters) > 0 && failed == len(c.adapters) {
		return col, ErrAllSourcesFailed
	}
	return col, nil
}

// safeFetch converts an adapter panic into a source error so siblings still settle.
func safeFetch(ctx context.Context, a sources.Adapter) (res *sources.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &sources.SourceFetchError{Source: a.ID(), Message: "adapter panicked", Cause: panicError{r}}
		}
	}()
	return a.Fetch(ctx)
}

type panicError struct{ v any }

func (p panicError) Error() string {
	return fmt.Sprint(p.v)
}
