package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/competition-radar/internal/types"
)

// Store selects deliverable records and marks them delivered.
type Store interface {
	SelectDeliverable(ctx context.Context, today time.Time) ([]types.Competition, error)
	MarkDelivered(ctx context.Context, id int64) error
}

// Gate sends every eligible record to all channels. A record counts as delivered only when every
// channel accepted it.
type Gate struct {
	store    Store
	channels []Channel
	loc      *time.Location
	now      func() time.Time
	logger   *slog.Logger
}

// NewGate creates a gate. loc decides what "today" means for deadlines; nil uses UTC.
func NewGate(store Store, channels []Channel, loc *time.Location, logger *slog.Logger) *Gate {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		store:    store,
		channels: channels,
		loc:      loc,
		now:      time.Now,
		logger:   logger.With("component", "delivery"),
	}
}

// Run delivers records one at a time. Channel failures leave the record for a later run; store
// failures abort.
func (g *Gate) Run(ctx context.Context) (*types.Delivery, error) {
	today := g.now().In(g.loc)
	records, err := g.store.SelectDeliverable(ctx, today)
	if err != nil {
		return nil, err
	}

	out := &types.Delivery{}
	for i := range records {
		rec := &records[i]
		if !rec.Eligible(today) {
			continue
		}
		out.Selected++
	}
	if len(g.channels) == 0 {
		g.logger.Warn("no delivery channels configured", "selected", out.Selected)
		return out, nil
	}

	for i := range records {
		rec := &records[i]
		if !rec.Eligible(today) {
			continue
		}

		if err := g.SendAll(ctx, NewMessage(rec)); err != nil {
			out.Failed++
			out.Errors = append(out.Errors, err.Error())
			g.logger.Warn("record left undelivered",
				"record_id", rec.ID, "category", "DeliveryError", "error", err)
			continue
		}
		if err := g.store.MarkDelivered(ctx, rec.ID); err != nil {
			return out, err
		}
		out.Delivered++
		g.logger.Info("record delivered", "record_id", rec.ID, "channels", len(g.channels))
	}

	return out, nil
}

// SendAll sends msg on every channel concurrently and waits for all of them. The returned error
// joins one DeliveryError per failed channel.
func (g *Gate) SendAll(ctx context.Context, msg Message) error {
	errs := make([]error, len(g.channels))

	var eg errgroup.Group
	for i, ch := range g.channels {
		eg.Go(func() error {
			if err := ch.Send(ctx, msg); err != nil {
				errs[i] = &DeliveryError{Channel: ch.Name(), RecordID: msg.RecordID, Cause: err}
			}
			return nil
		})
	}
	_ = eg.Wait()

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%d of %d channels failed: %w", countErrors(errs), len(g.channels), err)
	}
	return nil
}

func countErrors(errs []error) int {
	n := 0
	for _, err := range errs {
		if err != nil {
			n++
		}
	}
	return n
}
