package fetch

import (
	"bytes"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/vtrpza/crawled/pkg/types"
)

const maxLinksPerPage = 200

// noiseSelectors are stripped before text extraction so navigation chrome and
// ad markup do not pollute the content.
var noiseSelectors = []string{
	"script", "style", "noscript", "nav", "iframe",
	"[class*='advert']", "[class*='ad-']", "[id*='ad']",
}

// blockTags mark elements whose text forms standalone content blocks.
var blockTags = map[string]struct{}{
	"p": {}, "h1": {}, "h2": {}, "h3": {}, "h4": {}, "h5": {}, "h6": {},
	"li": {}, "td": {}, "th": {}, "blockquote": {}, "pre": {}, "figcaption": {},
}

// buildPage converts raw fetched HTML into the capability-level Page:
// cleaned text content, absolute same-scheme links, media references, and
// basic metadata. Content blocks shorter than the configured word threshold
// are dropped, except headings, which always survive.
func buildPage(raw []byte, requestURL, finalURL string, status int, elapsed time.Duration, cfg types.FetchConfig) (*types.Page, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}

	base, err := url.Parse(finalURL)
	if err != nil || base.Host == "" {
		base, err = url.Parse(requestURL)
		if err != nil {
			return nil, err
		}
	}

	page := &types.Page{
		URL:        requestURL,
		FinalURL:   finalURL,
		StatusCode: status,
		Elapsed:    elapsed,
		Metadata:   extractMetadata(doc),
	}

	// Links and media are harvested from the intact document: navigation
	// links feed deep-crawl discovery and embeds count as media, even though
	// both live in elements the noise pass removes.
	page.Links = extractLinks(doc, base)
	page.Media = extractMedia(doc, base)

	for _, sel := range noiseSelectors {
		doc.Find(sel).Remove()
	}
	page.Content = extractContent(doc, cfg.WordCountThreshold)
	return page, nil
}

func extractMetadata(doc *goquery.Document) map[string]string {
	meta := make(map[string]string)
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		meta["title"] = title
	}
	if desc, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok {
		meta["description"] = strings.TrimSpace(desc)
	}
	if lang, ok := doc.Find("html").Attr("lang"); ok {
		meta["lang"] = lang
	}
	return meta
}

func extractContent(doc *goquery.Document, wordThreshold int) string {
	var blocks []string
	seen := make(map[string]struct{})

	doc.Find("body *").Each(func(_ int, s *goquery.Selection) {
		node := s.Get(0)
		if node == nil || node.Type != html.ElementNode {
			return
		}
		tag := node.Data
		if _, ok := blockTags[tag]; !ok {
			return
		}
		text := normalizeSpace(s.Text())
		if text == "" {
			return
		}
		heading := strings.HasPrefix(tag, "h")
		if !heading && wordThreshold > 0 && len(strings.Fields(text)) < wordThreshold {
			return
		}
		if _, dup := seen[text]; dup {
			return
		}
		seen[text] = struct{}{}
		blocks = append(blocks, text)
	})

	if len(blocks) == 0 {
		// Nothing block-shaped cleared the threshold; fall back to the
		// whole body text so short pages are not reported empty.
		return normalizeSpace(doc.Find("body").Text())
	}
	return strings.Join(blocks, "\n\n")
}

func extractLinks(doc *goquery.Document, base *url.URL) []string {
	seen := make(map[string]struct{})
	links := make([]string, 0, 32)

	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, ok := s.Attr("href")
		if !ok {
			return true
		}
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") {
			return true
		}
		u, err := base.Parse(href)
		if err != nil {
			return true
		}
		scheme := strings.ToLower(u.Scheme)
		if scheme != "http" && scheme != "https" {
			return true
		}
		u.Fragment = ""
		key := u.String()
		if _, dup := seen[key]; dup {
			return true
		}
		seen[key] = struct{}{}
		links = append(links, key)
		return len(links) < maxLinksPerPage
	})

	return links
}

func extractMedia(doc *goquery.Document, base *url.URL) types.Media {
	var media types.Media
	seen := make(map[string]struct{})

	add := func(raw string, videos bool) {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return
		}
		u, err := base.Parse(raw)
		if err != nil {
			return
		}
		key := u.String()
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		if videos {
			media.Videos = append(media.Videos, key)
		} else {
			media.Images = append(media.Images, key)
		}
	}

	doc.Find("img[src], img[data-src]").Each(func(_ int, s *goquery.Selection) {
		if src, ok := s.Attr("src"); ok && src != "" {
			add(src, false)
			return
		}
		if src, ok := s.Attr("data-src"); ok {
			add(src, false)
		}
	})
	doc.Find(`video[src], iframe[src*="youtube"], iframe[src*="vimeo"]`).Each(func(_ int, s *goquery.Selection) {
		if src, ok := s.Attr("src"); ok {
			add(src, true)
		}
	})

	return media
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
