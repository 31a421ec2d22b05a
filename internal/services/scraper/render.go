package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
)

// PageRenderer fetches a page and returns its final HTML
type PageRenderer interface {
	Render(ctx context.Context, pageURL string) (string, error)
}

// chromeRenderer drives headless Chrome so pages behind JavaScript
// bot checks render before parsing.
type chromeRenderer struct {
	userAgent string
	wait      time.Duration
	timeout   time.Duration
	logger    arbor.ILogger
}

func (r *chromeRenderer) Render(ctx context.Context, pageURL string) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(r.userAgent),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	runCtx, cancelRun := context.WithTimeout(browserCtx, r.timeout)
	defer cancelRun()

	r.logger.Debug().
		Str("url", pageURL).
		Dur("js_wait", r.wait).
		Msg("Rendering page with headless Chrome")

	var html string
	err := chromedp.Run(runCtx,
		chromedp.Navigate(pageURL),
		chromedp.Sleep(r.wait), // Let JavaScript challenges settle
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", fmt.Errorf("chromedp render failed: %w", err)
	}
	if html == "" {
		return "", fmt.Errorf("chromedp returned empty page for %s", pageURL)
	}
	return html, nil
}

// plainRenderer fetches without a browser for pages that do not need
// JavaScript.
type plainRenderer struct {
	client    *http.Client
	userAgent string
}

func (r *plainRenderer) Render(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: status %d", pageURL, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
