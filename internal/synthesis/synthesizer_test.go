package synthesis

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/vtrpza/crawled/pkg/types"
)

type stubExtractor struct {
	answer string
	err    error
	called bool
}

func (s *stubExtractor) Extract(_ context.Context, _ types.Intent, _, _ string) (string, error) {
	s.called = true
	return s.answer, s.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleInsights() []types.PageInsight {
	return []types.PageInsight{
		{URL: "https://example.com/", Title: "Home", Depth: 0, ContentLength: 900, Insight: "Overview of the product line.", LinksFound: 12},
		{URL: "https://example.com/pricing", Title: "Pricing", Depth: 1, ContentLength: 400, Insight: "Three pricing tiers, annual discount.", LinksFound: 4},
	}
}

func TestSynthesizeEmptyRun(t *testing.T) {
	report := New(nil, discardLogger()).Synthesize(context.Background(), "run-1", nil, "", false)

	if report.Summary != EmptySummary {
		t.Fatalf("summary = %q, want sentinel", report.Summary)
	}
	if report.Complete {
		t.Fatal("an empty run is never complete")
	}
	if report.PagesAnalyzed != 0 {
		t.Fatalf("pages analyzed = %d, want 0", report.PagesAnalyzed)
	}
}

func TestSynthesizeDeterministicSummary(t *testing.T) {
	report := New(nil, discardLogger()).Synthesize(context.Background(), "run-2", sampleInsights(), "", false)

	if report.AIGenerated {
		t.Fatal("summary must not be marked AI-generated")
	}
	if !report.Complete {
		t.Fatal("all insights non-empty, report should be complete")
	}
	if !strings.Contains(report.Summary, "Analyzed 2 pages") {
		t.Fatalf("summary = %q", report.Summary)
	}
	if !strings.Contains(report.Summary, "pricing tiers") {
		t.Fatalf("summary should quote page snippets, got %q", report.Summary)
	}
}

func TestSynthesizeAISummary(t *testing.T) {
	ex := &stubExtractor{answer: "The site sells software in three tiers."}
	report := New(ex, discardLogger()).Synthesize(context.Background(), "run-3", sampleInsights(), "what do they sell", true)

	if !ex.called {
		t.Fatal("extractor should have been invoked")
	}
	if !report.AIGenerated {
		t.Fatal("report should be marked AI-generated")
	}
	if report.Summary != "The site sells software in three tiers." {
		t.Fatalf("summary = %q", report.Summary)
	}
}

func TestSynthesizeAIFailureFallsBack(t *testing.T) {
	ex := &stubExtractor{err: errors.New("model offline")}
	report := New(ex, discardLogger()).Synthesize(context.Background(), "run-4", sampleInsights(), "", true)

	if report.AIGenerated {
		t.Fatal("failed AI call must not mark the summary AI-generated")
	}
	if !strings.Contains(report.Summary, "Analyzed 2 pages") {
		t.Fatalf("deterministic fallback missing, summary = %q", report.Summary)
	}
}

func TestSynthesizeAIDisabledSkipsExtractor(t *testing.T) {
	ex := &stubExtractor{answer: "should not be used"}
	report := New(ex, discardLogger()).Synthesize(context.Background(), "run-5", sampleInsights(), "", false)

	if ex.called {
		t.Fatal("extractor must not run when AI is disabled")
	}
	if report.AIGenerated {
		t.Fatal("summary must be deterministic")
	}
}

func TestSynthesizeIncompleteWhenInsightMissing(t *testing.T) {
	insights := sampleInsights()
	insights[1].Insight = ""
	report := New(nil, discardLogger()).Synthesize(context.Background(), "run-6", insights, "", false)

	if report.Complete {
		t.Fatal("a blank insight must mark the report incomplete")
	}
	if report.PagesAnalyzed != 2 {
		t.Fatalf("pages analyzed = %d, want 2", report.PagesAnalyzed)
	}
}

// Snippets drawn from multi-byte text must be cut on rune boundaries so
// report output stays valid UTF-8.
func TestSnippetTruncationKeepsValidUTF8(t *testing.T) {
	long := strings.Repeat("概", snippetLength+50)

	got := truncate(long, snippetLength)
	if !utf8.ValidString(got) {
		t.Fatal("truncate produced invalid UTF-8")
	}
	if n := utf8.RuneCountInString(got); n != snippetLength+3 {
		t.Fatalf("rune count = %d, want %d plus ellipsis", n, snippetLength)
	}

	short := shorten(long, 40)
	if !utf8.ValidString(short) {
		t.Fatal("shorten produced invalid UTF-8")
	}
	if n := utf8.RuneCountInString(short); n != 40 {
		t.Fatalf("rune count = %d, want 40", n)
	}
}

func TestWriteMarkdown(t *testing.T) {
	result := &types.DeepCrawlResult{
		RunID:          "run-7",
		Status:         types.StatusSuccess,
		CrawlType:      types.CrawlTypeDeep,
		Strategy:       types.StrategyBFS,
		SeedURL:        "https://example.com",
		PagesCrawled:   2,
		PagesRequested: 5,
		MaxDepth:       2,
		Failures:       []types.PageFailure{{URL: "https://example.com/broken", Depth: 1, Reason: "hard error"}},
		Report: types.SynthesisReport{
			RunID:   "run-7",
			Summary: "Two pages about pricing.",
			Pages:   sampleInsights(),
		},
	}

	var buf strings.Builder
	if err := WriteMarkdown(&buf, result); err != nil {
		t.Fatalf("WriteMarkdown: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"# Deep Crawl Report",
		"run-7",
		"2 of 5",
		"Two pages about pricing.",
		"https://example.com/pricing",
		"https://example.com/broken",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("markdown missing %q:\n%s", want, out)
		}
	}
}
