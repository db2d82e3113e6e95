// Package fetchexec wraps the external fetch capability with a retry and
// fallback chain and classifies outcomes into success, soft-block, or hard
// error.
package fetchexec

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/vtrpza/crawled/pkg/types"
)

// Fetcher is the opaque page-fetching capability. Implementations may run a
// full browser or a bare HTTP client; the executor assumes nothing about the
// transport.
type Fetcher interface {
	Fetch(ctx context.Context, url string, cfg types.FetchConfig) (*types.Page, error)
}

// defaultChallengeMarkers flag content that looks like a bot-detection
// challenge page rather than real content.
var defaultChallengeMarkers = []string{
	"verify you are human",
	"i'm not a robot",
	"complete the captcha",
	"bot detection",
	"access denied",
	"suspicious activity",
	"security check",
	"verification required",
}

// defaultContentMarkers are terms whose presence suggests the page served
// real, domain-plausible content even if a challenge keyword also appears
// somewhere in it.
var defaultContentMarkers = []string{
	"product",
	"price",
	"add to cart",
	"article",
	"comments",
	"posted",
}

// Options tunes the executor. The marker lists are policy knobs: entries are
// layered on top of the built-in sets so a deployment can add domain-specific
// markers without losing the defaults.
type Options struct {
	ChallengeMarkers []string
	ContentMarkers   []string
	PlainTimeout     time.Duration
	Logger           *slog.Logger
}

// Executor runs the two-tier fetch fallback: a stealth-augmented attempt,
// then a single plain-config retry on capability failure.
type Executor struct {
	fetcher          Fetcher
	challengeMarkers []string
	contentMarkers   []string
	plainTimeout     time.Duration
	logger           *slog.Logger
}

// NewExecutor builds an executor around a fetch capability.
func NewExecutor(fetcher Fetcher, opts Options) *Executor {
	e := &Executor{
		fetcher:          fetcher,
		challengeMarkers: extendMarkers(defaultChallengeMarkers, opts.ChallengeMarkers),
		contentMarkers:   extendMarkers(defaultContentMarkers, opts.ContentMarkers),
		plainTimeout:     opts.PlainTimeout,
		logger:           opts.Logger,
	}
	if e.plainTimeout <= 0 {
		e.plainTimeout = 20 * time.Second
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// Execute invokes the capability with the full stealth-augmented config. On a
// capability-level failure it retries exactly once with a minimal plain
// config; a second failure yields a hard error. Successful fetches are then
// screened for soft-block content. The executor never retries soft-blocks:
// escalating stealth and resubmitting is a caller decision.
func (e *Executor) Execute(ctx context.Context, url string, cfg types.FetchConfig) types.FetchOutcome {
	page, err := e.fetcher.Fetch(ctx, url, cfg)
	usedFallback := false
	if err != nil {
		e.logger.Warn("stealth fetch failed, retrying with plain config", "url", url, "error", err)

		plain := e.plainConfig()
		retryPage, retryErr := e.fetcher.Fetch(ctx, url, plain)
		if retryErr != nil {
			return types.FetchOutcome{
				Status: types.OutcomeHardError,
				Err:    fmt.Errorf("fetch failed after plain fallback: %w (initial: %v)", retryErr, err),
			}
		}
		page = retryPage
		usedFallback = true
	}

	if reason, blocked := e.classifySoftBlock(page); blocked {
		e.logger.Debug("soft block detected", "url", url, "reason", reason)
		return types.FetchOutcome{
			Status:       types.OutcomeSoftBlock,
			Page:         page,
			Reason:       reason,
			UsedFallback: usedFallback,
		}
	}

	return types.FetchOutcome{
		Status:       types.OutcomeSuccess,
		Page:         page,
		UsedFallback: usedFallback,
	}
}

// extendMarkers layers extra markers on top of the built-in set, skipping
// duplicates.
func extendMarkers(defaults, extra []string) []string {
	if len(extra) == 0 {
		return defaults
	}
	markers := make([]string, 0, len(defaults)+len(extra))
	seen := make(map[string]struct{}, len(defaults)+len(extra))
	for _, m := range append(append([]string{}, defaults...), extra...) {
		if _, dup := seen[m]; dup {
			continue
		}
		seen[m] = struct{}{}
		markers = append(markers, m)
	}
	return markers
}

// plainConfig strips every stealth feature: no scripts, no simulated timing,
// default timeout. Used only for the one-shot fallback retry.
func (e *Executor) plainConfig() types.FetchConfig {
	return types.FetchConfig{
		ExtractionMode: "markdown",
		PageTimeout:    e.plainTimeout,
	}
}

// classifySoftBlock applies the content-sniffing heuristic: a page is a soft
// block when a challenge marker appears and no domain-plausible content
// marker does.
func (e *Executor) classifySoftBlock(page *types.Page) (string, bool) {
	if page == nil || page.Content == "" {
		return "", false
	}
	content := strings.ToLower(page.Content)

	matched := ""
	for _, marker := range e.challengeMarkers {
		if strings.Contains(content, marker) {
			matched = marker
			break
		}
	}
	if matched == "" {
		return "", false
	}

	for _, marker := range e.contentMarkers {
		if strings.Contains(content, marker) {
			// Real content mentioning a challenge phrase is not a block.
			return "", false
		}
	}

	return "challenge marker: " + matched, true
}
