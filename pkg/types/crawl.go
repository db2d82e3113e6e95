package types

import (
	"time"
)

// Intent is the inferred content category of a URL. It drives the adaptive
// configuration applied before fetching.
type Intent string

// Known intent categories. Classification always resolves to exactly one of
// these; unmatched input falls back to IntentGeneric.
const (
	IntentArticle   Intent = "article"
	IntentData      Intent = "data"
	IntentSocial    Intent = "social"
	IntentEcommerce Intent = "ecommerce"
	IntentDocs      Intent = "docs"
	IntentMedia     Intent = "media"
	IntentForm      Intent = "form"
	IntentSearch    Intent = "search"
	IntentGeneric   Intent = "generic"
)

// Valid reports whether the intent is one of the known categories.
func (i Intent) Valid() bool {
	switch i {
	case IntentArticle, IntentData, IntentSocial, IntentEcommerce,
		IntentDocs, IntentMedia, IntentForm, IntentSearch, IntentGeneric:
		return true
	}
	return false
}

// CrawlRequest models a single crawl submitted to the engine. The URL is
// expected to be a validated absolute HTTP(S) URL; validation happens
// upstream. A request is immutable after construction.
type CrawlRequest struct {
	URL             string
	Intent          Intent            // empty means infer from URL/query
	StealthLevel    int               // 1-5, 0 selects the configured default
	Options         map[string]string // whitelisted overrides, caller-owned
	ExtractionQuery string
	AIEnabled       bool
	AIInstruction   string
}

// UAProfile describes the generator profile used for user-agent synthesis at
// high stealth levels.
type UAProfile struct {
	Platform   string
	Browser    string
	DeviceType string
}

// StealthPolicy is one rung of the stealth ladder: a fully self-describing,
// immutable feature snapshot for a given level. Level k+1 carries a strict
// superset of level k's features.
type StealthPolicy struct {
	Level             int
	RotateUserAgent   bool
	UserAgents        []string
	SimulateUser      bool
	MeanDelay         time.Duration
	MaxDelayRange     time.Duration
	OverrideNavigator bool
	HandleChallenges  bool
	RemoveOverlays    bool
	PinSession        bool
	SessionID         string
	UAGenerator       *UAProfile
	BehaviorScript    string
	ScanFullPage      bool
	AdaptViewport     bool
	PageTimeout       time.Duration
	DwellDelay        time.Duration
}

// Features lists the names of every feature enabled by the policy. The list
// is used both for superset checks across levels and to report which stealth
// features a crawl actually applied.
func (p StealthPolicy) Features() []string {
	var features []string
	if p.RotateUserAgent {
		features = append(features, "user_agent_rotation")
	}
	if p.SimulateUser {
		features = append(features, "human_timing")
	}
	if p.OverrideNavigator {
		features = append(features, "navigator_override")
	}
	if p.HandleChallenges {
		features = append(features, "challenge_handling")
	}
	if p.RemoveOverlays {
		features = append(features, "overlay_removal")
	}
	if p.PinSession {
		features = append(features, "session_pinning")
	}
	if p.UAGenerator != nil {
		features = append(features, "user_agent_generator")
	}
	if p.BehaviorScript != "" {
		features = append(features, "behavior_script")
	}
	if p.ScanFullPage {
		features = append(features, "full_page_scan")
	}
	if p.AdaptViewport {
		features = append(features, "viewport_adaptation")
	}
	return features
}

// FetchConfig is the fully resolved configuration handed to the fetch
// capability: intent profile, stealth policy, and caller overrides merged in
// that precedence order. Built fresh per request, never mutated afterwards.
type FetchConfig struct {
	UserAgent         string
	UserAgents        []string
	PageTimeout       time.Duration
	DwellDelay        time.Duration
	MeanDelay         time.Duration
	MaxDelayRange     time.Duration
	SimulateUser      bool
	OverrideNavigator bool
	HandleChallenges  bool
	RemoveOverlays    bool
	ScanFullPage      bool
	AdaptViewport     bool
	SessionID         string
	ViewportWidth     int
	ViewportHeight    int

	// ExtractionMode is never empty on a synthesized config.
	ExtractionMode     string
	WordCountThreshold int

	InteractionScript string // intent-specific page interaction
	BehaviorScript    string // stealth behaviour simulation

	// StealthFeatures names the features carried over from the stealth
	// policy, echoed back on results.
	StealthFeatures []string
}

// Media groups media references discovered on a page.
type Media struct {
	Images []string `json:"images,omitempty"`
	Videos []string `json:"videos,omitempty"`
}

// Total counts every media reference.
func (m Media) Total() int {
	return len(m.Images) + len(m.Videos)
}

// Page is the raw product of a fetch capability invocation.
type Page struct {
	URL        string
	FinalURL   string
	Content    string
	Links      []string
	Media      Media
	Metadata   map[string]string
	StatusCode int
	Elapsed    time.Duration
}

// OutcomeStatus tags a FetchOutcome.
type OutcomeStatus string

const (
	// OutcomeSuccess means the fetch returned plausible page content.
	OutcomeSuccess OutcomeStatus = "success"
	// OutcomeSoftBlock means the fetch succeeded at the transport level but
	// the content looks like a bot-detection challenge page.
	OutcomeSoftBlock OutcomeStatus = "soft_block"
	// OutcomeHardError means the capability failed even after the plain
	// fallback retry.
	OutcomeHardError OutcomeStatus = "hard_error"
)

// FetchOutcome is the tagged result of the executor's fallback chain.
type FetchOutcome struct {
	Status       OutcomeStatus
	Page         *Page  // set on success and soft-block
	Reason       string // soft-block reason
	Err          error  // hard-error cause
	UsedFallback bool   // plain-config retry served the result
}

// CrawlResult statuses.
const (
	StatusSuccess   = "success"
	StatusSoftBlock = "soft_block"
	StatusError     = "error"
	StatusSkipped   = "skipped"
)

// Performance captures per-crawl timing and volume metrics.
type Performance struct {
	Duration    time.Duration `json:"duration"`
	ContentSize int           `json:"content_size"`
	LinksFound  int           `json:"links_found"`
	MediaFound  int           `json:"media_found"`
}

// CrawlResult is the caller-facing outcome of one request. Exactly one is
// produced per request, immutable once built. Partial information (for
// example on soft-block) is preserved rather than discarded.
type CrawlResult struct {
	Status          string            `json:"status"`
	URL             string            `json:"url"`
	Intent          Intent            `json:"intent,omitempty"`
	Content         string            `json:"content,omitempty"`
	Insight         string            `json:"insight,omitempty"`
	Links           []string          `json:"links,omitempty"`
	Media           Media             `json:"media,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	Performance     Performance       `json:"performance"`
	StealthFeatures []string          `json:"stealth_features,omitempty"`
	Error           string            `json:"error,omitempty"`
}

// PageInsight is the per-page extraction product of a deep crawl, consumed
// read-only by the synthesizer.
type PageInsight struct {
	URL           string `json:"url"`
	Title         string `json:"title,omitempty"`
	Depth         int    `json:"depth"`
	ContentLength int    `json:"content_length"`
	Insight       string `json:"insight,omitempty"`
	LinksFound    int    `json:"links_found"`
}

// SynthesisReport aggregates every PageInsight of one deep-crawl run. It is
// built once, after traversal finishes.
type SynthesisReport struct {
	RunID         string        `json:"run_id"`
	Summary       string        `json:"summary"`
	Pages         []PageInsight `json:"pages,omitempty"`
	PagesAnalyzed int           `json:"pages_analyzed"`
	// Complete is true only when every analyzed page yielded a non-empty
	// insight.
	Complete bool `json:"complete"`
	// AIGenerated marks a summary produced by the AI capability rather than
	// the deterministic fallback.
	AIGenerated bool `json:"ai_generated"`
}

// Deep crawl traversal strategies.
const (
	StrategyBFS = "bfs"
	StrategyDFS = "dfs"
)

// Crawl types reported on deep-crawl results.
const (
	CrawlTypeDeep     = "deep"
	CrawlTypeFallback = "fallback"
)

// DeepCrawlRequest extends a single-page request with traversal bounds. Both
// budgets are enforced before a page is scheduled, so neither is ever
// exceeded.
type DeepCrawlRequest struct {
	CrawlRequest
	Strategy     string // bfs (default) or dfs
	MaxPages     int
	MaxDepth     int
	SameSiteOnly bool
}

// PageFailure records a single page that failed during traversal without
// halting the crawl.
type PageFailure struct {
	URL    string `json:"url"`
	Depth  int    `json:"depth"`
	Reason string `json:"reason"`
}

// DeepCrawlResult is the aggregate outcome of a deep-crawl run, including
// partial successes. "7 of 10 pages succeeded" is always representable.
type DeepCrawlResult struct {
	RunID          string          `json:"run_id"`
	Status         string          `json:"status"`
	CrawlType      string          `json:"crawl_type"`
	Strategy       string          `json:"strategy"`
	SeedURL        string          `json:"seed_url"`
	PagesCrawled   int             `json:"pages_crawled"`
	PagesRequested int             `json:"pages_requested"`
	MaxDepth       int             `json:"max_depth"`
	Pages          []CrawlResult   `json:"pages,omitempty"`
	Insights       []PageInsight   `json:"insights,omitempty"`
	Failures       []PageFailure   `json:"failures,omitempty"`
	Report         SynthesisReport `json:"report"`
	Elapsed        time.Duration   `json:"elapsed"`
}
