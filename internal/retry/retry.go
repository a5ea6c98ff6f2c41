// Package retry provides bounded retry policies with escalating, jittered delays.
package retry

import (
	"context"
	"errors"
	"io"
	"math"
	"math/rand/v2"
	"net"
	"net/http"
	"syscall"
	"time"
)

// ErrExhausted is returned by DoUntil when every attempt finished without error but never reported done.
var ErrExhausted = errors.New("retry attempts exhausted")

// Policy describes how often and how long to wait between attempts.
type Policy struct {
	BaseDelay   time.Duration `yaml:"base_delay"`
	Multiplier  float64       `yaml:"multiplier"`
	MaxDelay    time.Duration `yaml:"max_delay"`
	MaxAttempts int           `yaml:"max_attempts"`
	// Jitter is a symmetric fraction of the computed delay, e.g. 0.2 gives +/-20%.
	Jitter float64 `yaml:"jitter"`
}

// HTMLSourcePolicy retries a listing source until it yields items, escalating by 1.5x up to a minute.
func HTMLSourcePolicy() Policy {
	return Policy{
		BaseDelay:   2 * time.Second,
		Multiplier:  1.5,
		MaxDelay:    60 * time.Second,
		MaxAttempts: 8,
	}
}

// SocialAccountPolicy is the small fixed retry budget for one rate-limited account.
func SocialAccountPolicy() Policy {
	return Policy{
		BaseDelay:   3 * time.Second,
		Multiplier:  2,
		MaxDelay:    30 * time.Second,
		MaxAttempts: 3,
		Jitter:      0.3,
	}
}

// RelocationPolicy is used for image fetches during asset relocation.
func RelocationPolicy() Policy {
	return Policy{
		BaseDelay:   500 * time.Millisecond,
		Multiplier:  2,
		MaxDelay:    10 * time.Second,
		MaxAttempts: 3,
		Jitter:      0.25,
	}
}

func (p Policy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// Delay returns the wait after the given failed attempt (1-based), before jitter.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}
	d := float64(p.BaseDelay) * math.Pow(mult, float64(attempt-1))
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}
	return time.Duration(d)
}

// JitteredDelay applies symmetric jitter to Delay.
func (p Policy) JitteredDelay(attempt int) time.Duration {
	d := p.Delay(attempt)
	if p.Jitter <= 0 || d <= 0 {
		return d
	}
	spread := float64(d) * p.Jitter
	j := time.Duration(float64(d) + (rand.Float64()*2-1)*spread)
	if j < 0 {
		return 0
	}
	return j
}

// Do runs fn until it succeeds, returns a non-retryable error, or the attempt budget is spent.
// The last error is returned.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 1; attempt <= p.attempts(); attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if !IsRetryable(err) || attempt == p.attempts() {
			return err
		}
		if sleepErr := Sleep(ctx, p.NextDelay(attempt, err)); sleepErr != nil {
			return err
		}
	}
	return err
}

// Hinted is implemented by errors that carry a server-requested wait, such as Retry-After.
type Hinted interface {
	RetryDelay() time.Duration
}

// NextDelay is JitteredDelay raised to any wait hinted by err. The hint is still capped by
// MaxDelay when one is set.
func (p Policy) NextDelay(attempt int, err error) time.Duration {
	d := p.JitteredDelay(attempt)
	var hinted Hinted
	if !errors.As(err, &hinted) {
		return d
	}
	hint := hinted.RetryDelay()
	if p.MaxDelay > 0 && hint > p.MaxDelay {
		hint = p.MaxDelay
	}
	return max(d, hint)
}

// DoUntil runs fn until it reports done. Both errors and not-done results consume an attempt,
// regardless of error class. Returns the last error, or ErrExhausted when the final attempt
// succeeded without being done.
func (p Policy) DoUntil(ctx context.Context, fn func(ctx context.Context, attempt int) (bool, error)) error {
	var err error
	for attempt := 1; attempt <= p.attempts(); attempt++ {
		var done bool
		done, err = fn(ctx, attempt)
		if err == nil && done {
			return nil
		}
		if attempt == p.attempts() {
			break
		}
		if sleepErr := Sleep(ctx, p.NextDelay(attempt, err)); sleepErr != nil {
			if err == nil {
				return sleepErr
			}
			return err
		}
	}
	if err == nil {
		return ErrExhausted
	}
	return err
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Classified is implemented by errors that know whether they are worth retrying.
type Classified interface {
	RetryableError() bool
}

// IsRetryable classifies transient failures: timeouts, connection resets and refusals,
// truncated responses, and Classified errors that report themselves retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var classified Classified
	if errors.As(err, &classified) {
		return classified.RetryableError()
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.EOF)
}

// StatusRetryable reports whether an HTTP status warrants another attempt.
func StatusRetryable(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}
