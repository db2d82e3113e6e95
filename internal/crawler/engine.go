// Package crawler wires classification, adaptive configuration, stealth
// fetching, and synthesis into the caller-facing crawl engine.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vtrpza/crawled/internal/adaptive"
	"github.com/vtrpza/crawled/internal/config"
	"github.com/vtrpza/crawled/internal/extract"
	"github.com/vtrpza/crawled/internal/fetch"
	"github.com/vtrpza/crawled/internal/fetchexec"
	"github.com/vtrpza/crawled/internal/intent"
	"github.com/vtrpza/crawled/internal/robots"
	"github.com/vtrpza/crawled/internal/scheduler"
	"github.com/vtrpza/crawled/internal/synthesis"
	"github.com/vtrpza/crawled/pkg/types"
)

// Engine executes single, batch, and deep crawls according to its
// configuration. Safe for concurrent use.
type Engine struct {
	cfg      config.Config
	executor *fetchexec.Executor
	robots   *robots.Agent
	limiter  *Limiter
	chain    *extract.Chain
	synth    *synthesis.Synthesizer
	logger   *slog.Logger
}

// NewEngine builds an engine from configuration, constructing the configured
// fetch capability.
func NewEngine(cfg config.Config, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var fetcher fetchexec.Fetcher
	var robotsClient *fetch.HTTPFetcher
	switch cfg.Fetcher.Engine {
	case "browser":
		fetcher = fetch.NewChromedpFetcher(fetch.ChromedpOptions{
			ConcurrentSessions: cfg.Fetcher.ConcurrentSessions,
			DisableHeadless:    cfg.Fetcher.DisableHeadless,
			MaxBodyBytes:       cfg.Fetcher.MaxBodyBytes,
			Logger:             logger,
		})
	case "http":
		httpFetcher, err := fetch.NewHTTPFetcher(fetch.HTTPOptions{
			Timeout:      cfg.Fetcher.RequestTimeout.Duration,
			MaxBodyBytes: cfg.Fetcher.MaxBodyBytes,
			ProxyURL:     cfg.Fetcher.ProxyURL,
			Headers:      cfg.Fetcher.Headers,
		})
		if err != nil {
			return nil, fmt.Errorf("http fetcher: %w", err)
		}
		fetcher = httpFetcher
		robotsClient = httpFetcher
	default:
		return nil, fmt.Errorf("unsupported fetcher engine %q", cfg.Fetcher.Engine)
	}

	return newEngine(cfg, fetcher, robotsClient, logger), nil
}

// newEngine assembles the engine around an already-built fetch capability.
func newEngine(cfg config.Config, fetcher fetchexec.Fetcher, robotsClient *fetch.HTTPFetcher, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}

	executor := fetchexec.NewExecutor(fetcher, fetchexec.Options{
		ChallengeMarkers: cfg.Detection.ChallengeMarkers,
		ContentMarkers:   cfg.Detection.ContentMarkers,
		PlainTimeout:     cfg.Detection.PlainRetryTimeout.Duration,
		Logger:           logger,
	})

	var extractors []extract.InsightExtractor
	if cfg.AI.Enabled {
		extractors = append(extractors, extract.NewOllamaExtractor(extract.OllamaOptions{
			BaseURL:     cfg.AI.BaseURL,
			Model:       cfg.AI.Model,
			Timeout:     cfg.AI.Timeout.Duration,
			Temperature: cfg.AI.Temperature,
			MaxTokens:   cfg.AI.MaxTokens,
			Logger:      logger,
		}))
	}
	extractors = append(extractors, extract.NewKeywordExtractor())
	chain := extract.NewChain(extractors...)

	limiter := NewLimiter(cfg.Politeness.PerDomainDelay.Duration, RateLimit{
		Requests: cfg.Politeness.RateLimit.Requests,
		Window:   cfg.Politeness.RateLimit.Window.Duration,
	})

	return &Engine{
		cfg:      cfg,
		executor: executor,
		robots:   robots.NewAgent(cfg.Robots, robotsClient.Client()),
		limiter:  limiter,
		chain:    chain,
		synth:    synthesis.New(chain, logger),
		logger:   logger,
	}
}

// Crawl executes a single request end to end: classify, synthesize config,
// fetch with fallback, extract. It always returns a result; failures are
// encoded in the result's status.
func (e *Engine) Crawl(ctx context.Context, req types.CrawlRequest) types.CrawlResult {
	start := time.Now()

	if err := validateURL(req.URL); err != nil {
		return types.CrawlResult{
			Status: types.StatusError,
			URL:    req.URL,
			Error:  err.Error(),
		}
	}

	reqIntent := req.Intent
	if !reqIntent.Valid() {
		reqIntent = intent.Classify(req.URL, req.ExtractionQuery+" "+req.AIInstruction)
	}

	level := req.StealthLevel
	if level == 0 {
		level = e.cfg.Stealth.DefaultLevel
	}
	fetchCfg := adaptive.Build(reqIntent, level, req.Options)

	if !e.robots.AllowedURL(ctx, req.URL) {
		e.logger.Debug("blocked by robots", "url", req.URL)
		return types.CrawlResult{
			Status:      types.StatusSkipped,
			URL:         req.URL,
			Intent:      reqIntent,
			Error:       "blocked by robots.txt",
			Performance: types.Performance{Duration: time.Since(start)},
		}
	}

	if err := e.limiter.WaitURL(ctx, req.URL); err != nil {
		return types.CrawlResult{
			Status: types.StatusError,
			URL:    req.URL,
			Intent: reqIntent,
			Error:  err.Error(),
		}
	}

	outcome := e.executor.Execute(ctx, req.URL, fetchCfg)
	result := types.CrawlResult{
		URL:             req.URL,
		Intent:          reqIntent,
		StealthFeatures: fetchCfg.StealthFeatures,
	}

	switch outcome.Status {
	case types.OutcomeHardError:
		result.Status = types.StatusError
		result.Error = outcome.Err.Error()
	case types.OutcomeSoftBlock:
		result.Status = types.StatusSoftBlock
		result.Error = outcome.Reason
		fillFromPage(&result, outcome.Page)
	case types.OutcomeSuccess:
		result.Status = types.StatusSuccess
		fillFromPage(&result, outcome.Page)
		result.Insight = e.extractInsight(ctx, reqIntent, outcome.Page.Content, req)
	}

	result.Performance.Duration = time.Since(start)
	e.logger.Info("crawl finished",
		"url", req.URL,
		"intent", string(reqIntent),
		"stealth_level", level,
		"status", result.Status,
		"fallback", outcome.UsedFallback,
		"duration_ms", result.Performance.Duration.Milliseconds(),
	)
	return result
}

// extractInsight resolves an extraction query deterministically, or runs the
// extractor chain when AI analysis was requested.
func (e *Engine) extractInsight(ctx context.Context, reqIntent types.Intent, content string, req types.CrawlRequest) string {
	if req.ExtractionQuery != "" {
		return extract.ProcessQuery(reqIntent, content, req.ExtractionQuery)
	}
	if !req.AIEnabled {
		return ""
	}
	insight, err := e.chain.Extract(ctx, reqIntent, content, req.AIInstruction)
	if err != nil {
		e.logger.Warn("insight extraction failed", "url", req.URL, "error", err)
		return ""
	}
	return insight
}

func fillFromPage(result *types.CrawlResult, page *types.Page) {
	if page == nil {
		return
	}
	result.Content = page.Content
	result.Links = page.Links
	result.Media = page.Media
	result.Metadata = page.Metadata
	result.Performance.ContentSize = len(page.Content)
	result.Performance.LinksFound = len(page.Links)
	result.Performance.MediaFound = page.Media.Total()
}

// CrawlBatch crawls several requests with bounded concurrency. Results come
// back in request order.
func (e *Engine) CrawlBatch(ctx context.Context, requests []types.CrawlRequest) ([]types.CrawlResult, error) {
	return scheduler.RunBatch(ctx, requests, e.cfg.Scheduler.Concurrency,
		func(ctx context.Context, req types.CrawlRequest) (types.CrawlResult, error) {
			return e.Crawl(ctx, req), nil
		})
}

// DeepCrawl runs a budgeted traversal from the request's seed URL.
func (e *Engine) DeepCrawl(ctx context.Context, req types.DeepCrawlRequest) types.DeepCrawlResult {
	orch := newOrchestrator(e.Crawl, e.synth, e.cfg, e.logger)
	return orch.run(ctx, req)
}

func validateURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return errors.New("empty url")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("url missing host")
	}
	return nil
}

func newRunID() string {
	return uuid.NewString()
}

// NewLogger builds the engine logger from logging configuration.
func NewLogger(cfg config.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Structured {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}
