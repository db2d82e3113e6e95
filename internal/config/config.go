// Package config loads and validates the crawl engine configuration from
// YAML, layering file values over built-in defaults.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures everything needed to initialise the crawl engine.
type Config struct {
	Fetcher    FetcherConfig    `yaml:"fetcher"`
	Stealth    StealthConfig    `yaml:"stealth"`
	Detection  DetectionConfig  `yaml:"detection"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	DeepCrawl  DeepCrawlConfig  `yaml:"deep_crawl"`
	Politeness PolitenessConfig `yaml:"politeness"`
	Robots     RobotsConfig     `yaml:"robots"`
	AI         AIConfig         `yaml:"ai"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// FetcherConfig selects and tunes the fetch capability.
type FetcherConfig struct {
	// Engine is "browser" for headless Chrome or "http" for the plain client.
	Engine             string            `yaml:"engine"`
	RequestTimeout     Duration          `yaml:"request_timeout"`
	MaxBodyBytes       int64             `yaml:"max_body_bytes"`
	ProxyURL           string            `yaml:"proxy_url"`
	Headers            map[string]string `yaml:"headers"`
	ConcurrentSessions int               `yaml:"concurrent_sessions"`
	DisableHeadless    bool              `yaml:"disable_headless"`
}

// StealthConfig sets the default rung of the stealth ladder.
type StealthConfig struct {
	DefaultLevel int `yaml:"default_level"`
}

// DetectionConfig tunes soft-block classification. Both lists extend the
// built-in markers rather than replacing them.
type DetectionConfig struct {
	ChallengeMarkers  []string `yaml:"challenge_markers"`
	ContentMarkers    []string `yaml:"content_markers"`
	PlainRetryTimeout Duration `yaml:"plain_retry_timeout"`
}

// SchedulerConfig bounds batch concurrency.
type SchedulerConfig struct {
	Concurrency int `yaml:"concurrency"`
}

// DeepCrawlConfig sets default traversal budgets.
type DeepCrawlConfig struct {
	MaxPages     int    `yaml:"max_pages"`
	MaxDepth     int    `yaml:"max_depth"`
	Strategy     string `yaml:"strategy"`
	SameSiteOnly bool   `yaml:"same_site_only"`
}

// PolitenessConfig throttles per-host request pacing.
type PolitenessConfig struct {
	PerDomainDelay Duration        `yaml:"per_domain_delay"`
	RateLimit      RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig applies a token bucket per domain.
type RateLimitConfig struct {
	Requests int      `yaml:"requests"`
	Window   Duration `yaml:"window"`
}

// Enabled reports whether per-domain rate limiting is active.
func (r RateLimitConfig) Enabled() bool {
	return r.Requests > 0 && !r.Window.IsZero()
}

// RobotsConfig configures robots.txt handling.
type RobotsConfig struct {
	Respect   bool     `yaml:"respect"`
	Overrides []string `yaml:"overrides"`
	UserAgent string   `yaml:"user_agent"`
	CacheTTL  Duration `yaml:"cache_ttl"`
}

// AIConfig wires the local LLM used for insight extraction and synthesis.
type AIConfig struct {
	Enabled     bool     `yaml:"enabled"`
	BaseURL     string   `yaml:"base_url"`
	Model       string   `yaml:"model"`
	Timeout     Duration `yaml:"timeout"`
	Temperature float64  `yaml:"temperature"`
	MaxTokens   int      `yaml:"max_tokens"`
}

// LoggingConfig selects log verbosity and format.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Structured bool   `yaml:"structured"`
}

// Default returns a Config populated with sensible defaults.
func Default() Config {
	return Config{
		Fetcher: FetcherConfig{
			Engine:             "browser",
			RequestTimeout:     DurationFrom(20 * time.Second),
			MaxBodyBytes:       6 * 1024 * 1024,
			Headers:            map[string]string{},
			ConcurrentSessions: 2,
		},
		Stealth: StealthConfig{
			DefaultLevel: 2,
		},
		Detection: DetectionConfig{
			PlainRetryTimeout: DurationFrom(15 * time.Second),
		},
		Scheduler: SchedulerConfig{
			Concurrency: 3,
		},
		DeepCrawl: DeepCrawlConfig{
			MaxPages:     5,
			MaxDepth:     2,
			Strategy:     "bfs",
			SameSiteOnly: true,
		},
		Politeness: PolitenessConfig{
			PerDomainDelay: DurationFrom(250 * time.Millisecond),
		},
		Robots: RobotsConfig{
			Respect:   true,
			Overrides: []string{},
			UserAgent: "crawled-bot/1.0",
			CacheTTL:  DurationFrom(6 * time.Hour),
		},
		AI: AIConfig{
			Enabled:     false,
			BaseURL:     "http://localhost:11434",
			Model:       "llama3.2",
			Timeout:     DurationFrom(60 * time.Second),
			Temperature: 0.3,
			MaxTokens:   400,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Structured: true,
		},
	}
}

// Load reads, merges, and validates configuration from a YAML file.
func Load(path string) (*Config, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer fh.Close()
	return LoadFromReader(fh)
}

// LoadFromReader decodes configuration from an arbitrary reader.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	if err := decodeYAML(r, &cfg); err != nil {
		return nil, err
	}
	cfg.normalise()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func decodeYAML(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}

// Validate enforces required invariants for the engine configuration.
func (c Config) Validate() error {
	switch strings.ToLower(c.Fetcher.Engine) {
	case "browser", "http":
	default:
		return fmt.Errorf("fetcher.engine must be browser or http (got %q)", c.Fetcher.Engine)
	}
	if c.Fetcher.MaxBodyBytes <= 0 {
		return fmt.Errorf("fetcher.max_body_bytes must be > 0 (got %d)", c.Fetcher.MaxBodyBytes)
	}
	if c.Fetcher.ConcurrentSessions <= 0 {
		return fmt.Errorf("fetcher.concurrent_sessions must be > 0 (got %d)", c.Fetcher.ConcurrentSessions)
	}
	if c.Stealth.DefaultLevel < 1 || c.Stealth.DefaultLevel > 5 {
		return fmt.Errorf("stealth.default_level must be between 1 and 5 (got %d)", c.Stealth.DefaultLevel)
	}
	if c.Scheduler.Concurrency <= 0 {
		return fmt.Errorf("scheduler.concurrency must be > 0 (got %d)", c.Scheduler.Concurrency)
	}
	if c.DeepCrawl.MaxPages <= 0 {
		return fmt.Errorf("deep_crawl.max_pages must be > 0 (got %d)", c.DeepCrawl.MaxPages)
	}
	if c.DeepCrawl.MaxDepth < 0 {
		return fmt.Errorf("deep_crawl.max_depth must be >= 0 (got %d)", c.DeepCrawl.MaxDepth)
	}
	switch c.DeepCrawl.Strategy {
	case "bfs", "dfs":
	default:
		return fmt.Errorf("deep_crawl.strategy must be bfs or dfs (got %q)", c.DeepCrawl.Strategy)
	}
	if rl := c.Politeness.RateLimit; rl.Requests < 0 {
		return fmt.Errorf("politeness.rate_limit.requests must be >= 0 (got %d)", rl.Requests)
	}
	if c.Robots.Respect && strings.TrimSpace(c.Robots.UserAgent) == "" {
		return errors.New("robots.user_agent must be set when robots.respect is true")
	}
	if c.AI.Enabled {
		if strings.TrimSpace(c.AI.BaseURL) == "" {
			return errors.New("ai.base_url must be set when ai.enabled is true")
		}
		if strings.TrimSpace(c.AI.Model) == "" {
			return errors.New("ai.model must be set when ai.enabled is true")
		}
	}
	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unsupported log level %q", c.Logging.Level)
	}
	return nil
}

func (c *Config) normalise() {
	c.Fetcher.Engine = strings.ToLower(strings.TrimSpace(c.Fetcher.Engine))
	c.DeepCrawl.Strategy = strings.ToLower(strings.TrimSpace(c.DeepCrawl.Strategy))
	c.Robots.UserAgent = strings.TrimSpace(c.Robots.UserAgent)
	c.AI.BaseURL = strings.TrimSpace(c.AI.BaseURL)
	c.AI.Model = strings.TrimSpace(c.AI.Model)

	if len(c.Robots.Overrides) > 0 {
		c.Robots.Overrides = dedupeLower(c.Robots.Overrides)
	}
	c.Detection.ChallengeMarkers = dedupeLower(c.Detection.ChallengeMarkers)
	c.Detection.ContentMarkers = dedupeLower(c.Detection.ContentMarkers)
}

func dedupeLower(values []string) []string {
	if len(values) == 0 {
		return values
	}
	unique := make(map[string]struct{}, len(values))
	cleaned := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		if _, ok := unique[v]; ok {
			continue
		}
		unique[v] = struct{}{}
		cleaned = append(cleaned, v)
	}
	sort.Strings(cleaned)
	return cleaned
}
