package sources

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jonathan/competition-radar/internal/retry"
	"github.com/jonathan/competition-radar/internal/types"
)

// UntilNonEmpty retries an adapter with escalating delays until a fetch returns at least one
// candidate, or the policy's attempt cap is reached.
type UntilNonEmpty struct {
	inner  Adapter
	policy retry.Policy
	logger *slog.Logger
}

// NewUntilNonEmpty wraps an adapter.
func NewUntilNonEmpty(inner Adapter, policy retry.Policy, logger *slog.Logger) *UntilNonEmpty {
	if logger == nil {
		logger = slog.Default()
	}
	return &UntilNonEmpty{inner: inner, policy: policy, logger: logger.With("component", "sources", "source", inner.ID())}
}

// ID implements Adapter.
func (u *UntilNonEmpty) ID() string { return u.inner.ID() }

// Origin implements Adapter.
func (u *UntilNonEmpty) Origin() types.Origin { return u.inner.Origin() }

// Fetch implements Adapter. A source still empty after the attempt cap is reported as a
// SourceFetchError wrapping retry.ErrExhausted.
func (u *UntilNonEmpty) Fetch(ctx context.Context) (*Result, error) {
	var last *Result
	err := u.policy.DoUntil(ctx, func(ctx context.Context, attempt int) (bool, error) {
		res, err := u.inner.Fetch(ctx)
		if err != nil {
			u.logger.Warn("source attempt failed", "attempt", attempt, "category", "SourceFetchError", "error", err)
			return false, err
		}
		last = res
		if len(res.Items) == 0 {
			u.logger.Info("source returned no items", "attempt", attempt)
			return false, nil
		}
		return true, nil
	})

	switch {
	case err == nil:
		return last, nil
	case errors.Is(err, retry.ErrExhausted):
		return nil, &SourceFetchError{
			Source:  u.ID(),
			Message: fmt.Sprintf("no items after %d attempts", max(u.policy.MaxAttempts, 1)),
			Cause:   err,
		}
	default:
		return nil, err
	}
}
