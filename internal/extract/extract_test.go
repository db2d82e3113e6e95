package extract

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/vtrpza/crawled/pkg/types"
)

const gardenArticle = `Growing tomatoes takes patience and good soil preparation over many weeks.

Watering schedules matter more than most beginners expect, especially in summer.

The best tomato price at local markets varies by season. Reviews of heirloom
varieties praise their flavor despite the higher cost.`

func TestKeywordExtractSummarize(t *testing.T) {
	got, err := NewKeywordExtractor().Extract(context.Background(), types.IntentArticle,
		gardenArticle, "Summarize the main points")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !strings.HasPrefix(got, "Summary:") {
		t.Fatalf("got %q, want a summary", got)
	}
	if !strings.Contains(got, "tomatoes") {
		t.Fatalf("summary should quote leading sentences, got %q", got)
	}
}

func TestKeywordExtractFind(t *testing.T) {
	got, err := NewKeywordExtractor().Extract(context.Background(), types.IntentGeneric,
		gardenArticle, "find watering advice")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !strings.Contains(got, "Watering") {
		t.Fatalf("got %q, want the watering sentence", got)
	}
}

func TestKeywordExtractAnalyze(t *testing.T) {
	got, err := NewKeywordExtractor().Extract(context.Background(), types.IntentGeneric,
		gardenArticle, "analyze this page")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !strings.Contains(got, "words") || !strings.Contains(got, "paragraphs") {
		t.Fatalf("analysis should report counts, got %q", got)
	}
}

func TestKeywordExtractEmptyContent(t *testing.T) {
	got, err := NewKeywordExtractor().Extract(context.Background(), types.IntentGeneric, "   ", "summarize")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != "" {
		t.Fatalf("empty content must yield empty insight, got %q", got)
	}
}

func TestProcessQueryDataIntent(t *testing.T) {
	content := "Quarterly revenue: $42.5M\nplain prose line without markers\n| region | total |\n| east | 10 |"
	got := ProcessQuery(types.IntentData, content, "quarterly revenue totals")
	if !strings.Contains(got, "$42.5M") {
		t.Fatalf("numeric line missing from %q", got)
	}
	if !strings.Contains(got, "| east | 10 |") {
		t.Fatalf("table line missing from %q", got)
	}
	if strings.Contains(got, "plain prose line") {
		t.Fatalf("irrelevant line leaked into %q", got)
	}
}

func TestProcessQueryArticleRanksParagraphs(t *testing.T) {
	got := ProcessQuery(types.IntentArticle, gardenArticle, "tomato price season")
	if got == "" {
		t.Fatal("expected ranked passages")
	}
	// The market paragraph matches the most query words and must come first.
	first := strings.SplitN(strings.SplitN(got, ":\n", 2)[1], "\n\n", 2)[0]
	if !strings.Contains(first, "markets") {
		t.Fatalf("best-scoring paragraph should lead, got %q", first)
	}
}

func TestProcessQueryEcommerce(t *testing.T) {
	content := "Deluxe trowel\nPrice: $19.99\nShips in two days"
	got := ProcessQuery(types.IntentEcommerce, content, "trowel")
	if !strings.Contains(got, "$19.99") {
		t.Fatalf("price line missing from %q", got)
	}
}

func TestProcessQueryNoMatchReturnsEmpty(t *testing.T) {
	if got := ProcessQuery(types.IntentGeneric, gardenArticle, "quantum chromodynamics"); got != "" {
		t.Fatalf("unmatched query must return empty, got %q", got)
	}
}

type failingExtractor struct{ err error }

func (f failingExtractor) Extract(context.Context, types.Intent, string, string) (string, error) {
	return "", f.err
}

func TestChainFallsThroughToNextExtractor(t *testing.T) {
	chain := NewChain(
		failingExtractor{err: errors.New("model offline")},
		NewKeywordExtractor(),
	)
	got, err := chain.Extract(context.Background(), types.IntentGeneric, gardenArticle, "summarize")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !strings.HasPrefix(got, "Summary:") {
		t.Fatalf("fallback extractor should have answered, got %q", got)
	}
}

func TestChainAllFailReturnsLastError(t *testing.T) {
	sentinel := errors.New("model offline")
	chain := NewChain(failingExtractor{err: sentinel})
	if _, err := chain.Extract(context.Background(), types.IntentGeneric, "content", "q"); !errors.Is(err, sentinel) {
		t.Fatalf("err = %v, want sentinel", err)
	}
}

func TestOllamaExtractorRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			w.WriteHeader(http.StatusOK)
		case "/api/chat":
			if r.Method != http.MethodPost {
				t.Errorf("method = %s", r.Method)
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"model":"llama3.2","message":{"role":"assistant","content":"The page is about gardening."},"done":true}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	ex := NewOllamaExtractor(OllamaOptions{BaseURL: srv.URL})
	if !ex.Available(context.Background()) {
		t.Fatal("server should report available")
	}
	got, err := ex.Extract(context.Background(), types.IntentArticle, gardenArticle, "summarize")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != "The page is about gardening." {
		t.Fatalf("got %q", got)
	}
}

func TestOllamaExtractorServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	ex := NewOllamaExtractor(OllamaOptions{BaseURL: srv.URL})
	if _, err := ex.Extract(context.Background(), types.IntentArticle, "content", "summarize"); err == nil {
		t.Fatal("want error on 500")
	}
}
