package crawler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/vtrpza/crawled/internal/config"
	"github.com/vtrpza/crawled/pkg/types"
)

// canned fetcher returns fixed content per URL and records the configs it
// saw. Batch crawls call Fetch concurrently, so the record is mutex-guarded.
type cannedFetcher struct {
	mu      sync.Mutex
	content map[string]string
	configs []types.FetchConfig
}

func (f *cannedFetcher) Fetch(_ context.Context, url string, cfg types.FetchConfig) (*types.Page, error) {
	f.mu.Lock()
	f.configs = append(f.configs, cfg)
	f.mu.Unlock()

	content, ok := f.content[url]
	if !ok {
		return nil, errors.New("no route to host")
	}
	return &types.Page{
		URL:        url,
		FinalURL:   url,
		Content:    content,
		Links:      []string{url + "/next"},
		Metadata:   map[string]string{"title": "t"},
		StatusCode: 200,
	}, nil
}

func testEngine(t *testing.T, fetcher *cannedFetcher) *Engine {
	t.Helper()
	cfg := config.Default()
	cfg.Robots.Respect = false
	cfg.Politeness.PerDomainDelay = config.DurationFrom(0)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return newEngine(cfg, fetcher, nil, logger)
}

func TestCrawlSuccess(t *testing.T) {
	fetcher := &cannedFetcher{content: map[string]string{
		"https://example.com/blog/post": "A long article about growing tomatoes in small gardens.",
	}}
	engine := testEngine(t, fetcher)

	result := engine.Crawl(context.Background(), types.CrawlRequest{URL: "https://example.com/blog/post"})

	if result.Status != types.StatusSuccess {
		t.Fatalf("status = %q (%s)", result.Status, result.Error)
	}
	if result.Intent != types.IntentArticle {
		t.Fatalf("intent = %q, want article inferred from URL", result.Intent)
	}
	if len(result.StealthFeatures) == 0 {
		t.Fatal("default stealth level must report its features")
	}
	if result.Performance.LinksFound != 1 || result.Performance.ContentSize == 0 {
		t.Fatalf("performance = %+v", result.Performance)
	}
}

func TestCrawlInvalidURL(t *testing.T) {
	engine := testEngine(t, &cannedFetcher{})

	for _, raw := range []string{"", "ftp://example.com/x", "https://", "not a url"} {
		result := engine.Crawl(context.Background(), types.CrawlRequest{URL: raw})
		if result.Status != types.StatusError || result.Error == "" {
			t.Fatalf("Crawl(%q) = %+v, want error result", raw, result)
		}
	}
}

func TestCrawlHardErrorAfterRetries(t *testing.T) {
	fetcher := &cannedFetcher{content: map[string]string{}}
	engine := testEngine(t, fetcher)

	result := engine.Crawl(context.Background(), types.CrawlRequest{URL: "https://down.example.com/"})

	if result.Status != types.StatusError {
		t.Fatalf("status = %q", result.Status)
	}
	if len(fetcher.configs) != 2 {
		t.Fatalf("fetcher called %d times, want stealth try plus plain retry", len(fetcher.configs))
	}
}

func TestCrawlSoftBlockKeepsPartialContent(t *testing.T) {
	fetcher := &cannedFetcher{content: map[string]string{
		"https://example.com/": "Access denied. Please complete the security check to continue.",
	}}
	engine := testEngine(t, fetcher)

	result := engine.Crawl(context.Background(), types.CrawlRequest{URL: "https://example.com/"})

	if result.Status != types.StatusSoftBlock {
		t.Fatalf("status = %q", result.Status)
	}
	if result.Content == "" {
		t.Fatal("soft block must preserve the fetched content")
	}
	if result.Error == "" {
		t.Fatal("soft block must carry a reason")
	}
}

func TestCrawlExtractionQuery(t *testing.T) {
	fetcher := &cannedFetcher{content: map[string]string{
		"https://example.com/stats": "Annual report.\nRevenue: $12M\nHeadcount grew 40%",
	}}
	engine := testEngine(t, fetcher)

	result := engine.Crawl(context.Background(), types.CrawlRequest{
		URL:             "https://example.com/stats",
		Intent:          types.IntentData,
		ExtractionQuery: "revenue figures",
	})

	if result.Status != types.StatusSuccess {
		t.Fatalf("status = %q (%s)", result.Status, result.Error)
	}
	if !strings.Contains(result.Insight, "$12M") {
		t.Fatalf("insight = %q, want extracted revenue line", result.Insight)
	}
}

func TestCrawlExplicitIntentWins(t *testing.T) {
	fetcher := &cannedFetcher{content: map[string]string{
		"https://example.com/blog/post": "content here that is long enough",
	}}
	engine := testEngine(t, fetcher)

	result := engine.Crawl(context.Background(), types.CrawlRequest{
		URL:    "https://example.com/blog/post",
		Intent: types.IntentEcommerce,
	})
	if result.Intent != types.IntentEcommerce {
		t.Fatalf("intent = %q, explicit intent must not be reclassified", result.Intent)
	}
}

func TestCrawlStealthLevelShapesConfig(t *testing.T) {
	fetcher := &cannedFetcher{content: map[string]string{
		"https://example.com/": "plain page content with enough words to pass",
	}}
	engine := testEngine(t, fetcher)

	engine.Crawl(context.Background(), types.CrawlRequest{URL: "https://example.com/", StealthLevel: 5})
	cfg := fetcher.configs[0]
	if cfg.BehaviorScript == "" {
		t.Fatal("level 5 must inject the behavior script")
	}
	if !cfg.SimulateUser || !cfg.OverrideNavigator {
		t.Fatalf("level 5 config missing stealth flags: %+v", cfg)
	}
}

func TestCrawlBatchKeepsOrder(t *testing.T) {
	fetcher := &cannedFetcher{content: map[string]string{
		"https://example.com/a": "alpha content for the first page",
		"https://example.com/c": "gamma content for the third page",
	}}
	engine := testEngine(t, fetcher)

	requests := []types.CrawlRequest{
		{URL: "https://example.com/a"},
		{URL: "https://example.com/b"}, // unrouted, fails
		{URL: "https://example.com/c"},
	}
	results, err := engine.CrawlBatch(context.Background(), requests)
	if err != nil {
		t.Fatalf("CrawlBatch: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results", len(results))
	}
	for i, res := range results {
		if res.URL != requests[i].URL {
			t.Fatalf("results[%d] = %q, want %q", i, res.URL, requests[i].URL)
		}
	}
	if results[1].Status != types.StatusError {
		t.Fatalf("middle slot = %q, want error", results[1].Status)
	}
	if results[0].Status != types.StatusSuccess || results[2].Status != types.StatusSuccess {
		t.Fatal("healthy slots must succeed")
	}
}
