package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/vtrpza/crawled/internal/config"
	"github.com/vtrpza/crawled/internal/crawler"
	"github.com/vtrpza/crawled/internal/synthesis"
	"github.com/vtrpza/crawled/pkg/types"
)

func main() {
	var (
		cfgPath     = flag.String("config", "", "path to YAML configuration (optional)")
		urls        = flag.String("url", "", "URL(s) to crawl, comma separated")
		deep        = flag.Bool("deep", false, "run a deep crawl from the first URL")
		strategy    = flag.String("strategy", "", "deep crawl strategy: bfs or dfs")
		maxPages    = flag.Int("max-pages", 0, "deep crawl page budget")
		maxDepth    = flag.Int("max-depth", 0, "deep crawl depth budget")
		intentFlag  = flag.String("intent", "", "force the content intent instead of classifying")
		stealth     = flag.Int("stealth", 0, "stealth level 1-5 (0 uses the configured default)")
		query       = flag.String("query", "", "extraction query applied to fetched content")
		ai          = flag.Bool("ai", false, "enable AI insight extraction")
		instruction = flag.String("instruction", "", "AI extraction instruction")
		report      = flag.String("report", "", "write a markdown report of a deep crawl to this file")
	)
	flag.Parse()

	if strings.TrimSpace(*urls) == "" {
		fmt.Fprintln(os.Stderr, "at least one -url is required")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *ai {
		cfg.AI.Enabled = true
	}

	logger := crawler.NewLogger(cfg.Logging)
	engine, err := crawler.NewEngine(*cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise engine: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	targets := splitURLs(*urls)
	base := types.CrawlRequest{
		Intent:          types.Intent(*intentFlag),
		StealthLevel:    *stealth,
		ExtractionQuery: *query,
		AIEnabled:       cfg.AI.Enabled,
		AIInstruction:   *instruction,
	}

	switch {
	case *deep:
		req := types.DeepCrawlRequest{
			CrawlRequest: base,
			Strategy:     *strategy,
			MaxPages:     *maxPages,
			MaxDepth:     *maxDepth,
		}
		req.URL = targets[0]
		result := engine.DeepCrawl(ctx, req)
		emit(result)
		if *report != "" {
			if err := writeReport(*report, &result); err != nil {
				fmt.Fprintf(os.Stderr, "failed to write report: %v\n", err)
				os.Exit(1)
			}
		}
		if result.Status != types.StatusSuccess {
			os.Exit(1)
		}

	case len(targets) > 1:
		requests := make([]types.CrawlRequest, len(targets))
		for i, u := range targets {
			req := base
			req.URL = u
			requests[i] = req
		}
		results, err := engine.CrawlBatch(ctx, requests)
		if err != nil {
			fmt.Fprintf(os.Stderr, "batch interrupted: %v\n", err)
			os.Exit(1)
		}
		emit(results)

	default:
		req := base
		req.URL = targets[0]
		result := engine.Crawl(ctx, req)
		emit(result)
		if result.Status == types.StatusError {
			os.Exit(1)
		}
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		cfg := config.Default()
		return &cfg, nil
	}
	return config.Load(path)
}

func splitURLs(raw string) []string {
	parts := strings.Split(raw, ",")
	urls := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			urls = append(urls, p)
		}
	}
	return urls
}

func emit(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "failed to encode output: %v\n", err)
	}
}

func writeReport(path string, result *types.DeepCrawlResult) error {
	fh, err := os.Create(path)
	if err != nil {
		return err
	}
	defer fh.Close()
	return synthesis.WriteMarkdown(fh, result)
}
