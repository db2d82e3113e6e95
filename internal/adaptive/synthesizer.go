// Package adaptive builds the fully resolved fetch configuration for a
// request by merging the intent profile, the stealth policy, and caller
// overrides, in that precedence order.
package adaptive

import (
	"math/rand"
	"strconv"
	"time"

	"github.com/vtrpza/crawled/internal/stealth"
	"github.com/vtrpza/crawled/pkg/types"
)

const (
	defaultPageTimeout = 20 * time.Second
	maxPageTimeout     = 2 * time.Minute
	defaultViewportW   = 1920
	defaultViewportH   = 1080
)

// Build synthesizes a FetchConfig for the given intent and stealth level.
// Overrides are applied last; only whitelisted keys are honoured and unknown
// or unparsable entries are dropped silently. The returned config always has
// a non-empty extraction mode and a bounded page timeout. Pure builder, no
// side effects beyond the user-agent draw.
func Build(intent types.Intent, level int, overrides map[string]string) types.FetchConfig {
	cfg := types.FetchConfig{
		ExtractionMode: "markdown",
		PageTimeout:    defaultPageTimeout,
		ViewportWidth:  defaultViewportW,
		ViewportHeight: defaultViewportH,
	}

	applyProfile(&cfg, profileFor(intent))
	applyPolicy(&cfg, stealth.PolicyFor(level))
	applyOverrides(&cfg, overrides)

	if cfg.ExtractionMode == "" {
		cfg.ExtractionMode = "markdown"
	}
	if cfg.PageTimeout <= 0 {
		cfg.PageTimeout = defaultPageTimeout
	}
	if cfg.PageTimeout > maxPageTimeout {
		cfg.PageTimeout = maxPageTimeout
	}
	return cfg
}

func applyProfile(cfg *types.FetchConfig, p profile) {
	if p.ExtractionMode != "" {
		cfg.ExtractionMode = p.ExtractionMode
	}
	if p.WordCountThreshold > 0 {
		cfg.WordCountThreshold = p.WordCountThreshold
	}
	if p.DwellDelay > 0 {
		cfg.DwellDelay = p.DwellDelay
	}
	if p.RemoveOverlays {
		cfg.RemoveOverlays = true
	}
	if p.ScanFullPage {
		cfg.ScanFullPage = true
	}
	if p.InteractionScript != "" {
		cfg.InteractionScript = p.InteractionScript
	}
}

// applyPolicy layers the stealth snapshot over the intent profile. Boolean
// features only ever accrete: a policy never switches off something the
// profile enabled.
func applyPolicy(cfg *types.FetchConfig, p types.StealthPolicy) {
	if p.RotateUserAgent && len(p.UserAgents) > 0 {
		cfg.UserAgents = p.UserAgents
		cfg.UserAgent = p.UserAgents[rand.Intn(len(p.UserAgents))]
	}
	if p.SimulateUser {
		cfg.SimulateUser = true
	}
	if p.MeanDelay > 0 {
		cfg.MeanDelay = p.MeanDelay
	}
	if p.MaxDelayRange > 0 {
		cfg.MaxDelayRange = p.MaxDelayRange
	}
	if p.OverrideNavigator {
		cfg.OverrideNavigator = true
	}
	if p.HandleChallenges {
		cfg.HandleChallenges = true
	}
	if p.RemoveOverlays {
		cfg.RemoveOverlays = true
	}
	if p.PinSession {
		cfg.SessionID = p.SessionID
	}
	if p.BehaviorScript != "" {
		cfg.BehaviorScript = p.BehaviorScript
	}
	if p.ScanFullPage {
		cfg.ScanFullPage = true
	}
	if p.AdaptViewport {
		cfg.AdaptViewport = true
	}
	if p.PageTimeout > 0 {
		cfg.PageTimeout = p.PageTimeout
	}
	if p.DwellDelay > cfg.DwellDelay {
		cfg.DwellDelay = p.DwellDelay
	}
	cfg.StealthFeatures = p.Features()
}

// overrideAppliers whitelists the caller-tunable keys. Anything else in the
// options map is ignored.
var overrideAppliers = map[string]func(*types.FetchConfig, string){
	"user_agent": func(c *types.FetchConfig, v string) {
		if v != "" {
			c.UserAgent = v
		}
	},
	"page_timeout": func(c *types.FetchConfig, v string) {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.PageTimeout = d
		}
	},
	"dwell_delay": func(c *types.FetchConfig, v string) {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			c.DwellDelay = d
		}
	},
	"word_count_threshold": func(c *types.FetchConfig, v string) {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.WordCountThreshold = n
		}
	},
	"extraction_mode": func(c *types.FetchConfig, v string) {
		if v != "" {
			c.ExtractionMode = v
		}
	},
	"session_id": func(c *types.FetchConfig, v string) {
		c.SessionID = v
	},
	"viewport_width": func(c *types.FetchConfig, v string) {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.ViewportWidth = n
		}
	},
	"viewport_height": func(c *types.FetchConfig, v string) {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.ViewportHeight = n
		}
	},
	"simulate_user": func(c *types.FetchConfig, v string) {
		if b, err := strconv.ParseBool(v); err == nil {
			c.SimulateUser = b
		}
	},
	"scan_full_page": func(c *types.FetchConfig, v string) {
		if b, err := strconv.ParseBool(v); err == nil {
			c.ScanFullPage = b
		}
	},
	"remove_overlays": func(c *types.FetchConfig, v string) {
		if b, err := strconv.ParseBool(v); err == nil {
			c.RemoveOverlays = b
		}
	},
}

func applyOverrides(cfg *types.FetchConfig, overrides map[string]string) {
	for key, value := range overrides {
		if apply, ok := overrideAppliers[key]; ok {
			apply(cfg, value)
		}
	}
}
