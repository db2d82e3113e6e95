package extract

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/vtrpza/crawled/pkg/types"
)

// KeywordExtractor is the deterministic fallback: it approximates an insight
// with keyword heuristics keyed on the instruction's verb. It never fails and
// never needs a network, so it terminates every extractor chain.
type KeywordExtractor struct{}

// NewKeywordExtractor returns the deterministic extractor.
func NewKeywordExtractor() *KeywordExtractor {
	return &KeywordExtractor{}
}

// Extract produces a heuristic insight. The instruction steers the shape:
// summarize-style instructions return leading sentences, extract-style ones
// return keyword-matched sentences, analyze-style ones return content
// statistics.
func (k *KeywordExtractor) Extract(_ context.Context, _ types.Intent, content, instruction string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", nil
	}

	sentences := splitSentences(content)
	lower := strings.ToLower(instruction)

	switch {
	case containsAny(lower, "summarize", "summary", "main points"):
		var picked []string
		for _, s := range sentences {
			if len(s) > 20 {
				picked = append(picked, s)
			}
			if len(picked) == 3 {
				break
			}
		}
		if len(picked) == 0 {
			picked = sentences[:min(len(sentences), 1)]
		}
		return "Summary: " + strings.Join(picked, " "), nil

	case containsAny(lower, "extract", "find", "identify"):
		words := significantWords(lower)
		var picked []string
		for _, s := range sentences {
			if matchCount(strings.ToLower(s), words) > 0 {
				picked = append(picked, s)
			}
			if len(picked) == 5 {
				break
			}
		}
		if len(picked) == 0 {
			return fmt.Sprintf("No content matched the instruction across %d sentences.", len(sentences)), nil
		}
		return "Extracted: " + strings.Join(picked, " "), nil

	case containsAny(lower, "analyze", "analysis", "insights"):
		wordCount := len(strings.Fields(content))
		paraCount := len(splitParagraphs(content))
		return fmt.Sprintf("Analysis: content contains %d words across %d paragraphs.", wordCount, paraCount), nil

	default:
		return fmt.Sprintf("Processed %d sentences of page content.", len(sentences)), nil
	}
}

// ProcessQuery resolves an extraction query against page content with
// intent-specific heuristics. It backs the extraction_query request field and
// is always deterministic.
func ProcessQuery(intent types.Intent, content, query string) string {
	content = strings.TrimSpace(content)
	if content == "" || strings.TrimSpace(query) == "" {
		return ""
	}
	switch intent {
	case types.IntentData:
		return extractDataElements(content, query)
	case types.IntentArticle:
		return extractArticleElements(content, query)
	case types.IntentEcommerce:
		return extractProductElements(content, query)
	default:
		return extractGeneric(content, query)
	}
}

// Data pages: keep lines that look tabular or numeric, plus lines matching
// at least two query words.
func extractDataElements(content, query string) string {
	words := significantWords(strings.ToLower(query))
	var relevant []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lineLower := strings.ToLower(line)
		if matchCount(lineLower, words) >= 2 || strings.ContainsAny(line, "|:$%") {
			relevant = append(relevant, line)
		}
		if len(relevant) == 15 {
			break
		}
	}
	if len(relevant) == 0 {
		return ""
	}
	return "Data matching " + strconvQuote(query) + ":\n" + strings.Join(relevant, "\n")
}

// Article pages: rank paragraphs by query-word overlap, keep the top three.
func extractArticleElements(content, query string) string {
	words := significantWords(strings.ToLower(query))
	type scored struct {
		score int
		text  string
	}
	var ranked []scored
	for _, para := range splitParagraphs(content) {
		if s := matchCount(strings.ToLower(para), words); s > 0 {
			ranked = append(ranked, scored{s, para})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	if len(ranked) > 3 {
		ranked = ranked[:3]
	}
	if len(ranked) == 0 {
		return ""
	}
	parts := make([]string, len(ranked))
	for i, r := range ranked {
		parts[i] = r.text
	}
	return "Passages matching " + strconvQuote(query) + ":\n" + strings.Join(parts, "\n\n")
}

var productTerms = []string{"price", "cost", "buy", "purchase", "discount", "sale", "review", "rating"}

// E-commerce pages: keep lines mentioning commerce terms or the query.
func extractProductElements(content, query string) string {
	words := significantWords(strings.ToLower(query))
	var relevant []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lineLower := strings.ToLower(line)
		if containsAny(lineLower, productTerms...) || matchCount(lineLower, words) > 0 {
			relevant = append(relevant, line)
		}
		if len(relevant) == 15 {
			break
		}
	}
	if len(relevant) == 0 {
		return ""
	}
	return "Product details matching " + strconvQuote(query) + ":\n" + strings.Join(relevant, "\n")
}

// Generic: sentences matching at least two query words.
func extractGeneric(content, query string) string {
	words := significantWords(strings.ToLower(query))
	var relevant []string
	for _, s := range splitSentences(content) {
		if matchCount(strings.ToLower(s), words) >= 2 {
			relevant = append(relevant, s)
		}
		if len(relevant) == 10 {
			break
		}
	}
	if len(relevant) == 0 {
		return ""
	}
	return "Content matching " + strconvQuote(query) + ":\n" + strings.Join(relevant, " ")
}

func splitSentences(content string) []string {
	raw := strings.Split(content, ".")
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s+".")
		}
	}
	return out
}

func splitParagraphs(content string) []string {
	raw := strings.Split(content, "\n\n")
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// significantWords drops short filler words so "find the best price" matches
// on "find", "best", "price".
func significantWords(s string) []string {
	var out []string
	for _, w := range strings.Fields(s) {
		if len(w) > 3 {
			out = append(out, w)
		}
	}
	return out
}

func matchCount(haystack string, words []string) int {
	n := 0
	for _, w := range words {
		if strings.Contains(haystack, w) {
			n++
		}
	}
	return n
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func strconvQuote(s string) string {
	return fmt.Sprintf("%q", s)
}
