package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/vtrpza/crawled/pkg/types"
)

// navigatorOverrideScript hides the most common automation fingerprints. It
// is registered to run on every new document before page scripts execute.
const navigatorOverrideScript = `
(() => {
	if (navigator.webdriver) {
		Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
	}
	Object.defineProperty(navigator, 'plugins', {
		get: () => ({ length: 3,
			0: { name: 'Chrome PDF Plugin' },
			1: { name: 'Chrome PDF Viewer' },
			2: { name: 'Native Client' } })
	});
	Object.defineProperty(navigator, 'languages', {
		get: () => ['en-US', 'en']
	});
})();
`

// ChromedpOptions controls the headless browser capability.
type ChromedpOptions struct {
	ConcurrentSessions int
	DisableHeadless    bool
	MaxBodyBytes       int64
	Logger             *slog.Logger
}

// ChromedpFetcher runs headless Chrome sessions, applying the full resolved
// FetchConfig: user agent, viewport, navigator overrides, intent interaction
// scripts, behaviour simulation, and dwell delay. Session concurrency is
// bounded by a semaphore.
type ChromedpFetcher struct {
	opts      ChromedpOptions
	semaphore chan struct{}
	logger    *slog.Logger
}

// NewChromedpFetcher constructs a browser-backed fetcher with bounded
// concurrent sessions.
func NewChromedpFetcher(opts ChromedpOptions) *ChromedpFetcher {
	if opts.ConcurrentSessions <= 0 {
		opts.ConcurrentSessions = 2
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 6 * 1024 * 1024
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ChromedpFetcher{
		opts:      opts,
		semaphore: make(chan struct{}, opts.ConcurrentSessions),
		logger:    logger,
	}
}

// Fetch navigates to the URL inside a fresh browser context and captures the
// final DOM after all configured scripts and delays have run.
func (f *ChromedpFetcher) Fetch(parentCtx context.Context, rawURL string, cfg types.FetchConfig) (*types.Page, error) {
	if rawURL == "" {
		return nil, fmt.Errorf("fetch: empty url")
	}

	select {
	case f.semaphore <- struct{}{}:
		defer func() { <-f.semaphore }()
	case <-parentCtx.Done():
		return nil, parentCtx.Err()
	}

	timeout := cfg.PageTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(parentCtx, timeout)
	defer cancel()

	execOpts := []chromedp.ExecAllocatorOption{
		chromedp.Flag("headless", !f.opts.DisableHeadless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
	}
	if cfg.UserAgent != "" {
		execOpts = append(execOpts, chromedp.UserAgent(cfg.UserAgent))
	}
	if cfg.ViewportWidth > 0 && cfg.ViewportHeight > 0 {
		execOpts = append(execOpts,
			chromedp.WindowSize(cfg.ViewportWidth, cfg.ViewportHeight))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, execOpts...)
	defer allocCancel()

	chromeCtx, chromeCancel := chromedp.NewContext(allocCtx)
	defer chromeCancel()

	start := time.Now()
	var rendered string
	var finalURL string

	var actions []chromedp.Action
	if cfg.OverrideNavigator {
		// Registered pre-navigation so the override is in place before any
		// page script can probe navigator properties.
		actions = append(actions, chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(navigatorOverrideScript).Do(ctx)
			return err
		}))
	}
	actions = append(actions, chromedp.Navigate(rawURL))
	if cfg.InteractionScript != "" {
		actions = append(actions, evaluateScript(cfg.InteractionScript))
	}
	if cfg.BehaviorScript != "" {
		actions = append(actions, evaluateScript(cfg.BehaviorScript))
	}
	if cfg.DwellDelay > 0 {
		actions = append(actions, chromedp.Sleep(cfg.DwellDelay))
	}
	actions = append(actions,
		chromedp.OuterHTML("html", &rendered, chromedp.ByQuery),
		chromedp.Location(&finalURL),
	)

	if err := chromedp.Run(chromeCtx, actions...); err != nil {
		return nil, fmt.Errorf("chromedp run: %w", err)
	}

	if int64(len(rendered)) > f.opts.MaxBodyBytes {
		rendered = rendered[:f.opts.MaxBodyBytes]
	}
	if finalURL == "" {
		finalURL = rawURL
	}

	elapsed := time.Since(start)
	f.logger.Debug("browser fetch complete",
		"url", rawURL,
		"final_url", finalURL,
		"latency_ms", elapsed.Milliseconds(),
		"html_bytes", len(rendered),
	)

	return buildPage([]byte(rendered), rawURL, finalURL, 200, elapsed, cfg)
}

// evaluateScript runs an injected script and swallows its return value;
// injected behaviour scripts are fire-and-forget.
func evaluateScript(script string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		return chromedp.Evaluate(script, nil).Do(ctx)
	})
}
