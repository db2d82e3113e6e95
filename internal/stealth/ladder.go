// Package stealth defines the anti-detection policy ladder. Each level is an
// immutable, fully self-describing snapshot; escalating a level never removes
// a feature granted by a lower one.
package stealth

import (
	"fmt"
	"time"

	"github.com/vtrpza/crawled/pkg/types"
)

// MinLevel and MaxLevel bound the ladder. Out-of-range requests are clamped,
// never rejected.
const (
	MinLevel = 1
	MaxLevel = 5
)

// userAgents is the rotation pool used from level 1 upward. The pool mirrors
// current desktop and mobile browser shares.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:124.0) Gecko/20100101 Firefox/124.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:124.0) Gecko/20100101 Firefox/124.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Safari/605.1.15",
}

// ladder holds one policy snapshot per level, built once at init and treated
// as read-only afterwards. Safe for unsynchronized concurrent reads.
var ladder [MaxLevel + 1]types.StealthPolicy

func init() {
	for level := MinLevel; level <= MaxLevel; level++ {
		ladder[level] = buildPolicy(level)
	}
}

// buildPolicy accretes features cumulatively: every threshold a level passes
// contributes its features, so level k+1 is always a superset of level k.
func buildPolicy(level int) types.StealthPolicy {
	p := types.StealthPolicy{Level: level}

	// Level 1: user-agent rotation and a baseline dwell.
	p.RotateUserAgent = true
	p.UserAgents = userAgents
	p.PageTimeout = 20 * time.Second
	p.DwellDelay = 1500 * time.Millisecond

	if level >= 2 {
		// Human-timing simulation between in-page actions.
		p.SimulateUser = true
		p.MeanDelay = 1 * time.Second
		p.MaxDelayRange = 2 * time.Second
		p.PageTimeout = 30 * time.Second
		p.DwellDelay = 2 * time.Second
	}

	if level >= 3 {
		// Behavioural anti-detection: hide automation fingerprints and
		// auto-handle common challenge patterns.
		p.OverrideNavigator = true
		p.HandleChallenges = true
		p.RemoveOverlays = true
		p.MeanDelay = 2 * time.Second
		p.MaxDelayRange = 4 * time.Second
		p.PageTimeout = 35 * time.Second
		p.DwellDelay = 5 * time.Second
	}

	if level >= 4 {
		// Persistent session pinning plus generated user-agent profiles.
		p.PinSession = true
		p.SessionID = fmt.Sprintf("stealth-session-%d", level)
		p.UAGenerator = &types.UAProfile{
			Platform:   "windows",
			Browser:    "chrome",
			DeviceType: "desktop",
		}
		p.MeanDelay = 3500 * time.Millisecond
		p.MaxDelayRange = 7 * time.Second
		p.PageTimeout = 40 * time.Second
		p.DwellDelay = 7 * time.Second
	}

	if level >= 5 {
		// Full behavioural script, maximal delay ranges, viewport
		// adaptation. Timeouts keep growing with the expected dwell time.
		p.BehaviorScript = behaviorScript
		p.ScanFullPage = true
		p.AdaptViewport = true
		p.MeanDelay = 4500 * time.Millisecond
		p.MaxDelayRange = 9 * time.Second
		p.PageTimeout = 45 * time.Second
		p.DwellDelay = 8 * time.Second
	}

	return p
}

// Clamp forces a level into [MinLevel, MaxLevel].
func Clamp(level int) int {
	if level < MinLevel {
		return MinLevel
	}
	if level > MaxLevel {
		return MaxLevel
	}
	return level
}

// PolicyFor returns the policy snapshot for the given level. Out-of-range
// levels are clamped to the nearest bound.
func PolicyFor(level int) types.StealthPolicy {
	return ladder[Clamp(level)]
}
