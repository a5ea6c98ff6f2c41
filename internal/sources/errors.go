package sources

import (
	"fmt"
	"time"
)

// SourceFetchError is a listing-level failure. It is fatal to the source, never to the run.
type SourceFetchError struct {
	Source  string
	Message string
	Cause   error
}

func (e *SourceFetchError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("source %s: %s: %v", e.Source, e.Message, e.Cause)
	}
	return fmt.Sprintf("source %s: %s", e.Source, e.Message)
}

func (e *SourceFetchError) Unwrap() error {
	return e.Cause
}

// DetailFetchError is a failed detail-page enrichment for a single candidate.
// It degrades to an empty description.
type DetailFetchError struct {
	Source string
	URL    string
	Cause  error
}

func (e *DetailFetchError) Error() string {
	return fmt.Sprintf("source %s: detail page %s: %v", e.Source, e.URL, e.Cause)
}

func (e *DetailFetchError) Unwrap() error {
	return e.Cause
}

// RateLimitError reports upstream throttling for one account.
type RateLimitError struct {
	Source     string
	Account    string
	RetryAfter time.Duration
	Cause      error
}

func (e *RateLimitError) Error() string {
	msg := fmt.Sprintf("source %s: account %s rate limited", e.Source, e.Account)
	if e.RetryAfter > 0 {
		msg += fmt.Sprintf(" (retry after %s)", e.RetryAfter)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *RateLimitError) Unwrap() error {
	return e.Cause
}

// RetryableError reports that throttling is always worth another attempt.
func (e *RateLimitError) RetryableError() bool {
	return true
}

// RetryDelay passes the upstream Retry-After on to the retry policy.
func (e *RateLimitError) RetryDelay() time.Duration {
	return e.RetryAfter
}
