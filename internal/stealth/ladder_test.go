package stealth

import (
	"testing"
)

func featureSet(level int) map[string]struct{} {
	set := make(map[string]struct{})
	for _, f := range PolicyFor(level).Features() {
		set[f] = struct{}{}
	}
	return set
}

// Every level's feature set must contain every feature of all lower levels.
func TestLadderCumulativeFeatures(t *testing.T) {
	for lower := MinLevel; lower < MaxLevel; lower++ {
		for higher := lower + 1; higher <= MaxLevel; higher++ {
			lowerSet := featureSet(lower)
			higherSet := featureSet(higher)
			for feature := range lowerSet {
				if _, ok := higherSet[feature]; !ok {
					t.Fatalf("level %d is missing feature %q granted at level %d", higher, feature, lower)
				}
			}
			if len(higherSet) <= len(lowerSet) {
				t.Fatalf("level %d feature set (%d) is not a strict superset of level %d (%d)",
					higher, len(higherSet), lower, len(lowerSet))
			}
		}
	}
}

func TestLadderFeatureAccretionOrder(t *testing.T) {
	cases := []struct {
		level   int
		feature string
	}{
		{1, "user_agent_rotation"},
		{2, "human_timing"},
		{3, "navigator_override"},
		{3, "challenge_handling"},
		{4, "session_pinning"},
		{4, "user_agent_generator"},
		{5, "behavior_script"},
		{5, "viewport_adaptation"},
	}
	for _, tc := range cases {
		set := featureSet(tc.level)
		if _, ok := set[tc.feature]; !ok {
			t.Errorf("level %d should carry %q", tc.level, tc.feature)
		}
		if tc.level > MinLevel {
			below := featureSet(tc.level - 1)
			if _, ok := below[tc.feature]; ok {
				t.Errorf("level %d should not yet carry %q", tc.level-1, tc.feature)
			}
		}
	}
}

// Higher levels dwell longer, so their page timeouts must not shrink.
func TestLadderTimeoutsGrow(t *testing.T) {
	for level := MinLevel + 1; level <= MaxLevel; level++ {
		prev := PolicyFor(level - 1)
		cur := PolicyFor(level)
		if cur.PageTimeout < prev.PageTimeout {
			t.Fatalf("level %d timeout %v shrank below level %d timeout %v",
				level, cur.PageTimeout, level-1, prev.PageTimeout)
		}
		if cur.DwellDelay < prev.DwellDelay {
			t.Fatalf("level %d dwell %v shrank below level %d dwell %v",
				level, cur.DwellDelay, level-1, prev.DwellDelay)
		}
	}
}

func TestPolicyForClampsOutOfRange(t *testing.T) {
	if got := PolicyFor(0); got.Level != MinLevel {
		t.Fatalf("PolicyFor(0) = level %d, want %d", got.Level, MinLevel)
	}
	if got := PolicyFor(-3); got.Level != MinLevel {
		t.Fatalf("PolicyFor(-3) = level %d, want %d", got.Level, MinLevel)
	}
	if got := PolicyFor(99); got.Level != MaxLevel {
		t.Fatalf("PolicyFor(99) = level %d, want %d", got.Level, MaxLevel)
	}
}

func TestEveryLevelHasTimeoutAndAgents(t *testing.T) {
	for level := MinLevel; level <= MaxLevel; level++ {
		p := PolicyFor(level)
		if p.PageTimeout <= 0 {
			t.Fatalf("level %d has no page timeout", level)
		}
		if !p.RotateUserAgent || len(p.UserAgents) == 0 {
			t.Fatalf("level %d lost user-agent rotation", level)
		}
	}
}
