package retry

import (
	"context"
	"errors"
	"fmt"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type classifiedErr struct{ retryable bool }

func (e classifiedErr) Error() string        { return "classified" }
func (e classifiedErr) RetryableError() bool { return e.retryable }

func fastPolicy(attempts int) Policy {
	return Policy{BaseDelay: time.Millisecond, Multiplier: 1.5, MaxDelay: 5 * time.Millisecond, MaxAttempts: attempts}
}

func TestPolicy_Delay(t *testing.T) {
	p := HTMLSourcePolicy()

	assert.Equal(t, 2*time.Second, p.Delay(1))
	assert.Equal(t, 3*time.Second, p.Delay(2))
	assert.Equal(t, 4500*time.Millisecond, p.Delay(3))
	assert.Equal(t, 60*time.Second, p.Delay(20), "delay is capped")
}

func TestPolicy_JitteredDelayStaysInBand(t *testing.T) {
	p := Policy{BaseDelay: 100 * time.Millisecond, Multiplier: 2, Jitter: 0.2, MaxAttempts: 3}

	for i := 0; i < 200; i++ {
		d := p.JitteredDelay(1)
		assert.GreaterOrEqual(t, d, 80*time.Millisecond)
		assert.LessOrEqual(t, d, 120*time.Millisecond)
	}
}

func TestPolicy_DoRetriesOnlyRetryable(t *testing.T) {
	t.Run("retryable errors consume the budget", func(t *testing.T) {
		calls := 0
		err := fastPolicy(3).Do(context.Background(), func(context.Context) error {
			calls++
			return classifiedErr{retryable: true}
		})
		require.Error(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("non-retryable errors stop immediately", func(t *testing.T) {
		calls := 0
		err := fastPolicy(5).Do(context.Background(), func(context.Context) error {
			calls++
			return classifiedErr{retryable: false}
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("succeeds after transient failure", func(t *testing.T) {
		calls := 0
		err := fastPolicy(5).Do(context.Background(), func(context.Context) error {
			calls++
			if calls < 2 {
				return syscall.ECONNRESET
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 2, calls)
	})
}

func TestPolicy_DoUntil(t *testing.T) {
	t.Run("retries until done", func(t *testing.T) {
		calls := 0
		err := fastPolicy(8).DoUntil(context.Background(), func(_ context.Context, attempt int) (bool, error) {
			calls++
			return attempt == 3, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("reports exhaustion when never done", func(t *testing.T) {
		err := fastPolicy(2).DoUntil(context.Background(), func(context.Context, int) (bool, error) {
			return false, nil
		})
		assert.ErrorIs(t, err, ErrExhausted)
	})

	t.Run("returns last error", func(t *testing.T) {
		err := fastPolicy(2).DoUntil(context.Background(), func(_ context.Context, attempt int) (bool, error) {
			return false, fmt.Errorf("attempt %d failed", attempt)
		})
		require.Error(t, err)
		assert.Equal(t, "attempt 2 failed", err.Error())
	})
}

type hintedErr struct{ wait time.Duration }

func (e hintedErr) Error() string             { return "throttled" }
func (e hintedErr) RetryableError() bool      { return true }
func (e hintedErr) RetryDelay() time.Duration { return e.wait }

func TestPolicy_NextDelayHonorsHint(t *testing.T) {
	p := Policy{BaseDelay: 10 * time.Millisecond, Multiplier: 2, MaxDelay: time.Second, MaxAttempts: 3}

	assert.Equal(t, 10*time.Millisecond, p.NextDelay(1, errors.New("plain")))
	assert.Equal(t, 500*time.Millisecond, p.NextDelay(1, hintedErr{wait: 500 * time.Millisecond}))
	assert.Equal(t, time.Second, p.NextDelay(1, hintedErr{wait: time.Hour}), "hint is capped by MaxDelay")
	assert.Equal(t, 20*time.Millisecond, p.NextDelay(2, hintedErr{wait: time.Millisecond}), "hint only raises the delay")
	assert.Equal(t, 500*time.Millisecond, p.NextDelay(1, fmt.Errorf("wrapped: %w", hintedErr{wait: 500 * time.Millisecond})))
}

func TestPolicy_DoWaitsForHint(t *testing.T) {
	p := Policy{BaseDelay: time.Millisecond, MaxDelay: time.Second, MaxAttempts: 2}
	calls := 0
	start := time.Now()
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		if calls == 1 {
			return hintedErr{wait: 100 * time.Millisecond}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}

func TestSleep_HonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Sleep(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"deadline", context.DeadlineExceeded, true},
		{"canceled", context.Canceled, false},
		{"connection reset", fmt.Errorf("read: %w", syscall.ECONNRESET), true},
		{"connection refused", syscall.ECONNREFUSED, true},
		{"classified retryable", fmt.Errorf("wrap: %w", classifiedErr{retryable: true}), true},
		{"classified permanent", classifiedErr{retryable: false}, false},
		{"plain", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestStatusRetryable(t *testing.T) {
	assert.True(t, StatusRetryable(429))
	assert.True(t, StatusRetryable(503))
	assert.False(t, StatusRetryable(404))
	assert.False(t, StatusRetryable(400))
}
