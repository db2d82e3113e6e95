// Package synthesis aggregates per-page insights from a deep crawl into a
// single report, preferring AI-generated summaries with a deterministic
// template as fallback.
package synthesis

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/vtrpza/crawled/internal/extract"
	"github.com/vtrpza/crawled/pkg/types"
)

const (
	snippetLimit  = 5
	snippetLength = 200
)

// EmptySummary is the sentinel used when a run produced no analyzable pages.
const EmptySummary = "No pages yielded analyzable content."

// Synthesizer builds the final report of a deep-crawl run. The extractor is
// optional; without one every summary is deterministic.
type Synthesizer struct {
	extractor extract.InsightExtractor
	logger    *slog.Logger
}

// New constructs a Synthesizer. A nil logger falls back to slog.Default.
func New(extractor extract.InsightExtractor, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{extractor: extractor, logger: logger}
}

// Synthesize aggregates the run's insights. The report is complete only when
// every analyzed page carried a non-empty insight; runs with no insights at
// all get the empty sentinel and are never complete.
func (s *Synthesizer) Synthesize(ctx context.Context, runID string, insights []types.PageInsight, instruction string, aiEnabled bool) types.SynthesisReport {
	report := types.SynthesisReport{
		RunID:         runID,
		Pages:         insights,
		PagesAnalyzed: len(insights),
	}

	if len(insights) == 0 {
		report.Summary = EmptySummary
		return report
	}

	report.Complete = true
	for _, in := range insights {
		if strings.TrimSpace(in.Insight) == "" {
			report.Complete = false
			break
		}
	}

	if aiEnabled && s.extractor != nil {
		summary, err := s.aiSummary(ctx, insights, instruction)
		if err != nil {
			s.logger.Warn("ai synthesis failed, using deterministic summary",
				"run_id", runID, "error", err)
		} else if summary != "" {
			report.Summary = summary
			report.AIGenerated = true
			return report
		}
	}

	report.Summary = deterministicSummary(insights)
	return report
}

// aiSummary feeds the collected insights back through the extractor to get a
// cross-page narrative.
func (s *Synthesizer) aiSummary(ctx context.Context, insights []types.PageInsight, instruction string) (string, error) {
	var digest strings.Builder
	for i, in := range insights {
		if i == snippetLimit {
			break
		}
		fmt.Fprintf(&digest, "Page %d (%s, depth %d): %s\n", i+1, in.URL, in.Depth, truncate(in.Insight, snippetLength))
	}
	if instruction == "" {
		instruction = "Summarize the findings across these pages."
	}
	return s.extractor.Extract(ctx, types.IntentGeneric, digest.String(), instruction)
}

// deterministicSummary templates a summary from the strongest snippets.
func deterministicSummary(insights []types.PageInsight) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyzed %d pages.", len(insights))

	shown := 0
	for _, in := range insights {
		snippet := truncate(strings.TrimSpace(in.Insight), snippetLength)
		if snippet == "" {
			continue
		}
		fmt.Fprintf(&b, " [%s] %s", in.URL, snippet)
		shown++
		if shown == snippetLimit {
			break
		}
	}
	if shown == 0 {
		return fmt.Sprintf("Analyzed %d pages; none produced extractable insights.", len(insights))
	}
	return b.String()
}

// truncate limits a snippet to n runes; slicing on a rune boundary keeps
// multi-byte text valid UTF-8.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
