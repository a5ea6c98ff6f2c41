// Package relocation re-hosts upstream media so stored records do not depend on ephemeral URLs.
package relocation

import (
	"context"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/competition-radar/internal/fetch"
	"github.com/jonathan/competition-radar/internal/retry"
	"github.com/jonathan/competition-radar/internal/types"
)

const maxKeySlug = 60

// Options tune batching and retries.
type Options struct {
	BatchSize      int
	BatchPause     time.Duration
	RequestTimeout time.Duration
	Retry          retry.Policy
	Client         *http.Client
}

// DefaultOptions returns the standard relocation settings.
func DefaultOptions() Options {
	return Options{
		BatchSize:      5,
		BatchPause:     2 * time.Second,
		RequestTimeout: 15 * time.Second,
		Retry:          retry.RelocationPolicy(),
	}
}

// Outcome is the relocation result for one item.
type Outcome struct {
	Item      types.CandidateItem
	PosterURL string
	Relocated bool
	Err       error
}

// Relocator fetches media and stores it in a Store.
type Relocator struct {
	store  Store
	opts   Options
	now    func() time.Time
	logger *slog.Logger
}

// New creates a relocator.
func New(store Store, opts Options, logger *slog.Logger) *Relocator {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultOptions().BatchSize
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultOptions().RequestTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Relocator{store: store, opts: opts, now: time.Now, logger: logger.With("component", "relocation")}
}

// Relocate processes items in bounded batches with a pause between batches. Within a batch items
// are relocated concurrently. Outcomes are returned in input order; a failed item keeps its
// original URL.
func (r *Relocator) Relocate(ctx context.Context, items []types.CandidateItem) []Outcome {
	outcomes := make([]Outcome, len(items))

	for start := 0; start < len(items); start += r.opts.BatchSize {
		if start > 0 && r.opts.BatchPause > 0 {
			_ = retry.Sleep(ctx, r.opts.BatchPause)
		}
		end := min(start+r.opts.BatchSize, len(items))

		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				// distinct millisecond per item keeps keys unique within a run
				outcomes[i] = r.relocateOne(ctx, items[i], r.now().Add(time.Duration(i)*time.Millisecond))
				return nil
			})
		}
		_ = g.Wait()
	}

	return outcomes
}

func (r *Relocator) relocateOne(ctx context.Context, item types.CandidateItem, at time.Time) Outcome {
	out := Outcome{Item: item, PosterURL: item.MediaURL}

	var res *fetch.Result
	err := r.opts.Retry.Do(ctx, func(ctx context.Context) error {
		var err error
		res, err = fetch.URL(ctx, item.MediaURL, &fetch.Options{
			Timeout: r.opts.RequestTimeout,
			Client:  r.opts.Client,
			Headers: map[string]string{"Accept": "image/*"},
		})
		return err
	})
	if err != nil {
		out.Err = &RelocationError{URL: item.MediaURL, Message: "image fetch failed", Cause: err}
		r.logger.Warn("keeping original media url",
			"source_url", item.SourceURL, "media_url", item.MediaURL, "category", "RelocationError", "error", err)
		return out
	}

	key := ObjectKey(at, item)
	contentType := res.ContentType
	if !strings.HasPrefix(contentType, "image/") {
		contentType = "image/jpeg"
	}
	if err := r.store.Put(ctx, key, res.Body, contentType); err != nil {
		out.Err = &RelocationError{URL: item.MediaURL, Message: "upload failed", Cause: err}
		r.logger.Warn("keeping original media url",
			"source_url", item.SourceURL, "media_url", item.MediaURL, "category", "RelocationError", "error", err)
		return out
	}

	out.PosterURL = r.store.PublicURL(key)
	out.Relocated = true
	return out
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// ObjectKey builds "{unix-millis}-{slug}.jpg" where slug is the sanitized title, or the origin
// when the title is blank.
func ObjectKey(now time.Time, item types.CandidateItem) string {
	base := item.Title
	if strings.TrimSpace(base) == "" {
		base = string(item.Origin)
	}
	slug := strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(base), "-"), "-")
	if len(slug) > maxKeySlug {
		slug = strings.TrimRight(slug[:maxKeySlug], "-")
	}
	if slug == "" {
		slug = "poster"
	}
	return strconv.FormatInt(now.UnixMilli(), 10) + "-" + slug + ".jpg"
}
