package sources

import (
	"bytes"
	"cmp"
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/jonathan/competition-radar/internal/fetch"
	"github.com/jonathan/competition-radar/internal/types"
)

// FeedAdapter reads an RSS or Atom feed of competition announcements.
type FeedAdapter struct {
	id      string
	feedURL string
	itemCap int
	opts    *fetch.Options
	parser  *gofeed.Parser
	logger  *slog.Logger
}

// NewFeedAdapter builds a feed adapter. ListingURL is the feed location.
func NewFeedAdapter(spec Spec, deps Deps) (*FeedAdapter, error) {
	if spec.ListingURL == "" {
		return nil, errors.New("listing_url is required")
	}
	opts := fetch.DefaultOptions()
	opts.Client = deps.Client
	if spec.Timeout > 0 {
		opts.Timeout = spec.Timeout
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &FeedAdapter{
		id:      spec.ID,
		feedURL: spec.ListingURL,
		itemCap: spec.ItemCap,
		opts:    opts,
		parser:  gofeed.NewParser(),
		logger:  logger.With("component", "sources", "source", spec.ID),
	}, nil
}

// ID implements Adapter.
func (a *FeedAdapter) ID() string { return a.id }

// Origin implements Adapter.
func (a *FeedAdapter) Origin() types.Origin { return types.OriginFeed }

// Fetch implements Adapter.
func (a *FeedAdapter) Fetch(ctx context.Context) (*Result, error) {
	res, err := fetch.URL(ctx, a.feedURL, a.opts)
	if err != nil {
		return nil, &SourceFetchError{Source: a.id, Message: "feed fetch failed", Cause: err}
	}

	feed, err := a.parser.Parse(bytes.NewReader(res.Body))
	if err != nil {
		return nil, &SourceFetchError{Source: a.id, Message: "failed to parse feed", Cause: err}
	}

	var items []types.CandidateItem
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		candidate, ok := a.normalizeItem(feed.Link, item)
		if !ok {
			a.logger.Debug("skipping feed item without link or image", "title", item.Title)
			continue
		}
		items = append(items, candidate)
	}

	return &Result{Items: capItems(items, a.itemCap)}, nil
}

func (a *FeedAdapter) normalizeItem(base string, item *gofeed.Item) (types.CandidateItem, bool) {
	link := strings.TrimSpace(cmp.Or(item.Link, item.GUID))
	body := cmp.Or(item.Content, item.Description)
	media := feedImage(item, body)
	if link == "" || media == "" {
		return types.CandidateItem{}, false
	}
	if base == "" {
		base = link
	}
	return types.CandidateItem{
		Title:     strings.TrimSpace(item.Title),
		SourceURL: link,
		MediaURL:  fetch.ResolveURL(base, media),
		BodyText:  htmlToText(body),
		Origin:    types.OriginFeed,
	}, true
}

// feedImage prefers the item image, then an image enclosure, then the first <img> in the body.
func feedImage(item *gofeed.Item, body string) string {
	if item.Image != nil && strings.TrimSpace(item.Image.URL) != "" {
		return strings.TrimSpace(item.Image.URL)
	}
	for _, enc := range item.Enclosures {
		if enc != nil && strings.HasPrefix(enc.Type, "image/") && enc.URL != "" {
			return enc.URL
		}
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return ""
	}
	src, _ := doc.Find("img").First().Attr("src")
	return strings.TrimSpace(src)
}

func htmlToText(s string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return fetch.CleanWhitespace(doc.Text())
}
