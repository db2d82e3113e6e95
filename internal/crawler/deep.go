package crawler

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/vtrpza/crawled/internal/config"
	"github.com/vtrpza/crawled/internal/scheduler"
	"github.com/vtrpza/crawled/internal/synthesis"
	"github.com/vtrpza/crawled/pkg/types"
)

// Hard ceilings on traversal budgets regardless of request values.
const (
	maxDeepPages = 50
	maxDeepDepth = 5
)

// crawlFunc crawls one page. The orchestrator is written against this
// signature so traversal logic can be tested without a live engine.
type crawlFunc func(ctx context.Context, req types.CrawlRequest) types.CrawlResult

// orchestrator drives a budgeted frontier traversal, collecting per-page
// results and insights, then hands the run to the synthesizer.
type orchestrator struct {
	crawl       crawlFunc
	synth       *synthesis.Synthesizer
	concurrency int
	defaults    deepDefaults
	logger      *slog.Logger
}

type deepDefaults struct {
	maxPages     int
	maxDepth     int
	strategy     string
	sameSiteOnly bool
}

func newOrchestrator(crawl crawlFunc, synth *synthesis.Synthesizer, cfg config.Config, logger *slog.Logger) *orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &orchestrator{
		crawl:       crawl,
		synth:       synth,
		concurrency: cfg.Scheduler.Concurrency,
		defaults: deepDefaults{
			maxPages:     cfg.DeepCrawl.MaxPages,
			maxDepth:     cfg.DeepCrawl.MaxDepth,
			strategy:     cfg.DeepCrawl.Strategy,
			sameSiteOnly: cfg.DeepCrawl.SameSiteOnly,
		},
		logger: logger,
	}
}

// run executes the deep crawl. Budgets are checked before a page is
// scheduled, so neither maxPages nor maxDepth is ever exceeded. When the
// whole traversal yields nothing, a single plain crawl of the seed is
// attempted and the result is marked as a fallback.
func (o *orchestrator) run(ctx context.Context, req types.DeepCrawlRequest) types.DeepCrawlResult {
	start := time.Now()

	maxPages, maxDepth, strategy := o.resolveBudgets(req)
	result := types.DeepCrawlResult{
		RunID:          newRunID(),
		CrawlType:      types.CrawlTypeDeep,
		Strategy:       strategy,
		SeedURL:        req.URL,
		PagesRequested: maxPages,
		MaxDepth:       maxDepth,
	}

	if err := validateURL(req.URL); err != nil {
		result.Status = types.StatusError
		result.Failures = append(result.Failures, types.PageFailure{URL: req.URL, Reason: err.Error()})
		result.Report = o.synth.Synthesize(ctx, result.RunID, nil, req.AIInstruction, req.AIEnabled)
		result.Elapsed = time.Since(start)
		return result
	}

	o.logger.Info("deep crawl started",
		"run_id", result.RunID,
		"seed", req.URL,
		"strategy", strategy,
		"max_pages", maxPages,
		"max_depth", maxDepth,
	)

	visited := newFootprint()
	fr := newFrontier(strategy)
	fr.push(frontierEntry{url: req.URL, depth: 0})
	sameSiteOnly := req.SameSiteOnly || o.defaults.sameSiteOnly

	var insights []types.PageInsight
	scheduled := 0

	for !fr.empty() && scheduled < maxPages && ctx.Err() == nil {
		var batch []frontierEntry
		if strategy == types.StrategyDFS {
			if e, ok := fr.pop(); ok {
				batch = []frontierEntry{e}
			}
		} else {
			batch = fr.popLevel()
		}

		// Enforce the page budget before scheduling.
		admitted := batch[:0]
		for _, entry := range batch {
			if scheduled >= maxPages {
				break
			}
			if !visited.admit(entry.url) {
				continue
			}
			admitted = append(admitted, entry)
			scheduled++
		}
		if len(admitted) == 0 {
			continue
		}

		pages := o.crawlEntries(ctx, admitted, req)
		for i, page := range pages {
			entry := admitted[i]
			result.Pages = append(result.Pages, page)

			if page.Status == types.StatusSuccess {
				insights = append(insights, pageInsight(page, entry.depth))
				result.PagesCrawled++
			} else {
				result.Failures = append(result.Failures, types.PageFailure{
					URL: entry.url, Depth: entry.depth, Reason: page.Error,
				})
			}

			if entry.depth < maxDepth {
				fr.push(o.childEntries(req.URL, page, entry.depth+1, sameSiteOnly)...)
			}
		}
	}

	if result.PagesCrawled == 0 {
		return o.fallback(ctx, req, result, start)
	}

	result.Status = types.StatusSuccess
	result.Insights = insights
	result.Report = o.synth.Synthesize(ctx, result.RunID, insights, req.AIInstruction, req.AIEnabled)
	result.Elapsed = time.Since(start)

	o.logger.Info("deep crawl finished",
		"run_id", result.RunID,
		"pages_crawled", result.PagesCrawled,
		"failures", len(result.Failures),
		"elapsed_ms", result.Elapsed.Milliseconds(),
	)
	return result
}

// crawlEntries fetches a slice of frontier entries, concurrently for BFS
// levels, and returns results aligned with the input order.
func (o *orchestrator) crawlEntries(ctx context.Context, entries []frontierEntry, req types.DeepCrawlRequest) []types.CrawlResult {
	requests := make([]types.CrawlRequest, len(entries))
	for i, entry := range entries {
		child := req.CrawlRequest
		child.URL = entry.url
		requests[i] = child
	}

	results, err := scheduler.RunBatch(ctx, requests, o.concurrency,
		func(ctx context.Context, r types.CrawlRequest) (types.CrawlResult, error) {
			return o.crawl(ctx, r), nil
		})
	if err != nil {
		// Cancelled mid-batch: unfilled slots become failures downstream.
		for i := range results {
			if results[i].URL == "" {
				results[i] = types.CrawlResult{
					Status: types.StatusError,
					URL:    requests[i].URL,
					Error:  err.Error(),
				}
			}
		}
	}
	return results
}

// childEntries filters a crawled page's links into frontier entries.
func (o *orchestrator) childEntries(seed string, page types.CrawlResult, depth int, sameSiteOnly bool) []frontierEntry {
	if len(page.Links) == 0 {
		return nil
	}
	seedHost := hostOf(seed)
	entries := make([]frontierEntry, 0, len(page.Links))
	for _, link := range page.Links {
		if sameSiteOnly && !strings.EqualFold(hostOf(link), seedHost) {
			continue
		}
		entries = append(entries, frontierEntry{url: link, depth: depth})
	}
	return entries
}

// fallback degrades a failed deep crawl to one plain single-page attempt.
func (o *orchestrator) fallback(ctx context.Context, req types.DeepCrawlRequest, result types.DeepCrawlResult, start time.Time) types.DeepCrawlResult {
	o.logger.Warn("deep crawl yielded no pages, falling back to single-page crawl",
		"run_id", result.RunID, "seed", req.URL)

	result.CrawlType = types.CrawlTypeFallback
	page := o.crawl(ctx, req.CrawlRequest)
	result.Pages = append(result.Pages, page)

	var insights []types.PageInsight
	if page.Status == types.StatusSuccess {
		result.Status = types.StatusSuccess
		result.PagesCrawled = 1
		insights = []types.PageInsight{pageInsight(page, 0)}
	} else {
		result.Status = types.StatusError
		result.Failures = append(result.Failures, types.PageFailure{URL: req.URL, Reason: page.Error})
	}

	result.Insights = insights
	result.Report = o.synth.Synthesize(ctx, result.RunID, insights, req.AIInstruction, req.AIEnabled)
	result.Elapsed = time.Since(start)
	return result
}

func (o *orchestrator) resolveBudgets(req types.DeepCrawlRequest) (pages, depth int, strategy string) {
	pages = req.MaxPages
	if pages <= 0 {
		pages = o.defaults.maxPages
	}
	if pages > maxDeepPages {
		pages = maxDeepPages
	}

	depth = req.MaxDepth
	if depth <= 0 {
		depth = o.defaults.maxDepth
	}
	if depth > maxDeepDepth {
		depth = maxDeepDepth
	}

	strategy = strings.ToLower(req.Strategy)
	if strategy != types.StrategyBFS && strategy != types.StrategyDFS {
		strategy = o.defaults.strategy
	}
	if strategy != types.StrategyBFS && strategy != types.StrategyDFS {
		strategy = types.StrategyBFS
	}
	return pages, depth, strategy
}

func pageInsight(page types.CrawlResult, depth int) types.PageInsight {
	return types.PageInsight{
		URL:           page.URL,
		Title:         page.Metadata["title"],
		Depth:         depth,
		ContentLength: len(page.Content),
		Insight:       page.Insight,
		LinksFound:    len(page.Links),
	}
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
