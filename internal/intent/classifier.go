// Package intent maps URLs to content-intent categories used to pick
// adaptive fetch configurations.
package intent

import (
	"regexp"
	"strings"

	"github.com/vtrpza/crawled/pkg/types"
)

// rule binds one intent to the URL patterns that select it. Rule order is
// significant: the first matching rule wins, so more specific categories must
// stay ahead of broader ones (data in particular overlaps docs on /api/).
type rule struct {
	intent   types.Intent
	patterns []*regexp.Regexp
}

var rules = []rule{
	{types.IntentArticle, compileAll(
		`/(article|blog|post|news|story)/`,
		`medium\.com`, `substack\.com`, `dev\.to`,
		`/\d{4}/\d{2}/`, `wordpress\.com`,
	)},
	{types.IntentSocial, compileAll(
		`twitter\.com`, `instagram\.com`, `linkedin\.com`,
		`facebook\.com`, `tiktok\.com`, `reddit\.com`,
	)},
	{types.IntentEcommerce, compileAll(
		`amazon\.com`, `ebay\.com`, `shopify\.com`,
		`/product/`, `/shop/`, `/store/`, `\.shop`,
	)},
	{types.IntentDocs, compileAll(
		`/docs/`, `/documentation/`, `/api/`,
		`github\.io`, `readthedocs\.io`, `/wiki/`,
	)},
	{types.IntentMedia, compileAll(
		`youtube\.com`, `vimeo\.com`, `twitch\.tv`,
		`/gallery/`, `/photos/`, `/images/`,
	)},
	{types.IntentData, compileAll(
		`/data/`, `/dataset/`, `\.json`,
		`/table/`, `/dashboard/`, `/stats/`,
	)},
}

// Context keyword buckets applied only when no URL pattern matched.
var contextKeywords = []struct {
	intent types.Intent
	words  []string
}{
	{types.IntentArticle, []string{"article", "blog", "news", "story"}},
	{types.IntentEcommerce, []string{"shop", "buy", "product", "price"}},
	{types.IntentData, []string{"data", "table", "chart", "stats"}},
}

func compileAll(patterns ...string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		compiled = append(compiled, regexp.MustCompile(p))
	}
	return compiled
}

// Classify resolves the content intent for a URL, optionally refined by
// free-text context (typically the extraction query). It is a pure function
// of its inputs and never fails: unmatched input yields IntentGeneric.
func Classify(url, context string) types.Intent {
	lower := strings.ToLower(url)
	for _, r := range rules {
		for _, pattern := range r.patterns {
			if pattern.MatchString(lower) {
				return r.intent
			}
		}
	}

	if context != "" {
		ctx := strings.ToLower(context)
		for _, bucket := range contextKeywords {
			for _, word := range bucket.words {
				if strings.Contains(ctx, word) {
					return bucket.intent
				}
			}
		}
	}

	return types.IntentGeneric
}
