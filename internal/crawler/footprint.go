package crawler

import (
	"net/url"
	"strings"
	"sync"
)

// footprint is the run-scoped visited set of a deep crawl. Keys are
// canonicalized so scheme case, default ports, and fragments never cause a
// page to be crawled twice.
type footprint struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func newFootprint() *footprint {
	return &footprint{seen: make(map[string]struct{})}
}

// admit records the URL and reports whether it was new. Unparseable URLs are
// rejected outright.
func (f *footprint) admit(raw string) bool {
	key := canonicalKey(raw)
	if key == "" {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.seen[key]; ok {
		return false
	}
	f.seen[key] = struct{}{}
	return true
}

func (f *footprint) size() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.seen)
}

func canonicalKey(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme == "" {
		scheme = "http"
	}
	host := strings.ToLower(u.Hostname())
	if port := u.Port(); port != "" && port != defaultPortForScheme(scheme) {
		host = host + ":" + port
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	key := scheme + "://" + host + path
	if q := u.RawQuery; q != "" {
		key += "?" + q
	}
	return key
}

func defaultPortForScheme(scheme string) string {
	switch scheme {
	case "http":
		return "80"
	case "https":
		return "443"
	default:
		return ""
	}
}
