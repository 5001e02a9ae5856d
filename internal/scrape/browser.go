package scrape

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
)

var _ PageFetcher = (*BrowserFetcher)(nil)

// BrowserFetcher renders pages in headless Chrome. Used when the plain HTTP
// response lacks the script-rendered inventor list.
type BrowserFetcher struct {
	chromePath string
	userAgent  string
	timeout    time.Duration

	once        sync.Once
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

// NewBrowserFetcher creates a fetcher. An empty chromePath is auto-detected.
func NewBrowserFetcher(chromePath, userAgent string, timeout time.Duration) *BrowserFetcher {
	if chromePath == "" {
		chromePath = DetectChromePath()
	}
	return &BrowserFetcher{
		chromePath: chromePath,
		userAgent:  userAgent,
		timeout:    timeout,
	}
}

func (b *BrowserFetcher) allocator() context.Context {
	b.once.Do(func() {
		opts := []chromedp.ExecAllocatorOption{
			chromedp.NoSandbox,
			chromedp.DisableGPU,
			chromedp.Flag("disable-dev-shm-usage", true),
		}
		if b.userAgent != "" {
			opts = append(opts, chromedp.UserAgent(b.userAgent))
		}
		if b.chromePath != "" {
			opts = append(opts, chromedp.ExecPath(b.chromePath))
		}
		b.allocCtx, b.allocCancel = chromedp.NewExecAllocator(context.Background(), append(chromedp.DefaultExecAllocatorOptions[:], opts...)...)
	})
	return b.allocCtx
}

// FetchPage opens rawURL in a new tab and returns the rendered document
func (b *BrowserFetcher) FetchPage(ctx context.Context, rawURL string) (*Page, error) {
	tabCtx, tabCancel := chromedp.NewContext(b.allocator())
	defer tabCancel()

	timeoutCtx, cancel := context.WithTimeout(tabCtx, b.timeout)
	defer cancel()

	// Propagate caller cancellation into the tab
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var (
		doc      string
		finalURL string
	)
	if err := chromedp.Run(timeoutCtx,
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Location(&finalURL),
		chromedp.OuterHTML("html", &doc, chromedp.ByQuery),
	); err != nil {
		return nil, &RenderError{URL: rawURL, Err: err}
	}

	return &Page{HTML: doc, StatusCode: 200, FinalURL: finalURL}, nil
}

// Close shuts the browser down
func (b *BrowserFetcher) Close() {
	if b.allocCancel != nil {
		b.allocCancel()
	}
}

// DetectChromePath returns the first Chrome or Chromium binary found
func DetectChromePath() string {
	candidates := []string{
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/usr/bin/google-chrome",
		"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
