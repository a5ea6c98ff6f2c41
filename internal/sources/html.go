package sources

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/competition-radar/internal/fetch"
	"github.com/jonathan/competition-radar/internal/types"
)

const defaultDetailConcurrency = 5

// HTMLAdapter scrapes a listing page and resolves one detail page per candidate.
type HTMLAdapter struct {
	id          string
	origin      types.Origin
	baseURL     string
	listingURL  string
	selectors   Selectors
	itemCap     int
	concurrency int
	listing     fetch.Renderer
	detail      fetch.Renderer
	logger      *slog.Logger
}

// NewHTMLAdapter builds an adapter from a spec. The spec's Preset selects the selector set.
func NewHTMLAdapter(spec Spec, deps Deps) (*HTMLAdapter, error) {
	selectors, ok := LookupPreset(spec.Preset)
	if !ok {
		return nil, fmt.Errorf("unknown html preset %q", spec.Preset)
	}
	if spec.ListingURL == "" {
		return nil, errors.New("listing_url is required")
	}

	origin := spec.Origin
	if origin == "" {
		origin = presetOrigins[spec.Preset]
	}
	baseURL := spec.BaseURL
	if baseURL == "" {
		baseURL = fetch.SiteRoot(spec.ListingURL)
	}

	opts := fetch.DefaultOptions()
	opts.Client = deps.Client
	if spec.Timeout > 0 {
		opts.Timeout = spec.Timeout
	}
	httpRenderer := &fetch.HTTPRenderer{Options: opts}

	listing := fetch.Renderer(httpRenderer)
	if spec.RenderWithBrowser {
		listing = deps.Renderer
		if listing == nil {
			listing = &fetch.BrowserRenderer{Timeout: spec.Timeout, WaitSelector: selectors.Container, Logger: deps.Logger}
		}
	}

	concurrency := spec.DetailConcurrency
	if concurrency <= 0 {
		concurrency = defaultDetailConcurrency
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &HTMLAdapter{
		id:          spec.ID,
		origin:      origin,
		baseURL:     baseURL,
		listingURL:  spec.ListingURL,
		selectors:   selectors,
		itemCap:     spec.ItemCap,
		concurrency: concurrency,
		listing:     listing,
		detail:      httpRenderer,
		logger:      logger.With("component", "sources", "source", spec.ID),
	}, nil
}

// ID implements Adapter.
func (a *HTMLAdapter) ID() string { return a.id }

// Origin implements Adapter.
func (a *HTMLAdapter) Origin() types.Origin { return a.origin }

// Fetch implements Adapter. A listing failure is source-fatal; detail failures only blank
// the affected candidate's description.
func (a *HTMLAdapter) Fetch(ctx context.Context) (*Result, error) {
	html, err := a.listing.Render(ctx, a.listingURL)
	if err != nil {
		return nil, &SourceFetchError{Source: a.id, Message: "listing fetch failed", Cause: err}
	}

	items, err := a.ParseListing(html)
	if err != nil {
		return nil, &SourceFetchError{Source: a.id, Message: "listing parse failed", Cause: err}
	}
	items = capItems(items, a.itemCap)

	warnings := a.resolveDetails(ctx, items)
	a.logger.Info("listing scraped", "items", len(items), "detail_failures", len(warnings))

	return &Result{Items: items}, nil
}

// ParseListing extracts candidates from listing HTML, in document order. Cards missing
// a link or an image are skipped.
func (a *HTMLAdapter) ParseListing(html string) ([]types.CandidateItem, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	var items []types.CandidateItem
	doc.Find(a.selectors.Container).Each(func(_ int, card *goquery.Selection) {
		href, ok := card.Find(a.selectors.Link).First().Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			a.logger.Debug("skipping card without link")
			return
		}
		img := imageURL(card.Find(a.selectors.Image).First(), a.selectors.ImageAttrs)
		if img == "" {
			a.logger.Debug("skipping card without image", "href", href)
			return
		}

		title := strings.TrimSpace(card.Find(a.selectors.Title).First().Text())
		items = append(items, types.CandidateItem{
			Title:     title,
			SourceURL: fetch.ResolveURL(a.baseURL, href),
			MediaURL:  fetch.ResolveURL(a.baseURL, img),
			Origin:    a.origin,
		})
	})

	return items, nil
}

// resolveDetails fills BodyText concurrently. Each goroutine writes only its own slot.
func (a *HTMLAdapter) resolveDetails(ctx context.Context, items []types.CandidateItem) []error {
	failures := make([]error, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i := range items {
		g.Go(func() error {
			text, err := a.fetchDetail(gctx, items[i].SourceURL)
			if err != nil {
				failures[i] = &DetailFetchError{Source: a.id, URL: items[i].SourceURL, Cause: err}
				a.logger.Warn("detail fetch failed",
					"source_url", items[i].SourceURL, "category", "DetailFetchError", "error", err)
				return nil
			}
			items[i].BodyText = text
			return nil
		})
	}
	_ = g.Wait()

	var out []error
	for _, err := range failures {
		if err != nil {
			out = append(out, err)
		}
	}
	return out
}

func (a *HTMLAdapter) fetchDetail(ctx context.Context, url string) (string, error) {
	html, err := a.detail.Render(ctx, url)
	if err != nil {
		return "", err
	}
	// Listings sometimes link to another known site's detail page.
	platform := fetch.DetectPlatform(url)
	if platform == fetch.PlatformUnknown || platform == fetch.PlatformInstagram {
		platform = a.selectors.Platform
	}
	return fetch.ExtractMainText(html,
		fetch.PlatformContentSelectors(platform),
		fetch.PlatformNoiseSelectors(platform)...)
}

func imageURL(sel *goquery.Selection, attrs []string) string {
	if sel.Length() == 0 {
		return ""
	}
	if len(attrs) == 0 {
		attrs = []string{"src"}
	}
	for _, attr := range attrs {
		if v, ok := sel.Attr(attr); ok && strings.TrimSpace(v) != "" && !strings.HasPrefix(v, "data:") {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
