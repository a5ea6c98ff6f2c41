// Package fetch - browser.go provides headless browser rendering for script-rendered listing pages.
package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/chromedp"
)

// Renderer returns the rendered HTML of a page.
type Renderer interface {
	Render(ctx context.Context, url string) (string, error)
}

// BrowserRenderer renders pages with headless Chrome.
// Requires Chrome/Chromium to be installed on the system.
type BrowserRenderer struct {
	Timeout time.Duration
	// WaitSelector is awaited before the HTML is captured; defaults to body.
	WaitSelector string
	Logger       *slog.Logger
}

// Render implements Renderer.
func (b *BrowserRenderer) Render(ctx context.Context, url string) (string, error) {
	timeout := b.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	wait := b.WaitSelector
	if wait == "" {
		wait = "body"
	}
	logger := b.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return WithBrowser(ctx, url, wait, timeout, logger)
}

// WithBrowser renders a page in a headless browser and returns the rendered HTML.
func WithBrowser(ctx context.Context, url, waitSelector string, timeout time.Duration, logger *slog.Logger) (string, error) {
	logger.Debug("starting headless browser", "url", url)

	allocCtx, cancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.UserAgent(DefaultUserAgent),
		)...,
	)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, timeout)
	defer cancel()

	var html string

	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady(waitSelector),
		// Listing cards are often injected after the first paint
		chromedp.Sleep(2*time.Second),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", &Error{URL: url, Message: "browser rendering failed", Cause: err, Retryable: true}
	}

	logger.Debug("rendered page", "url", url, "bytes", len(html))

	return html, nil
}

// HTTPRenderer is the plain HTTP Renderer.
type HTTPRenderer struct {
	Options *Options
}

// Render implements Renderer.
func (h *HTTPRenderer) Render(ctx context.Context, url string) (string, error) {
	result, err := URL(ctx, url, h.Options)
	if err != nil {
		return "", err
	}
	if result.HTML == "" {
		return "", fmt.Errorf("empty response from %s", url)
	}
	return result.HTML, nil
}
