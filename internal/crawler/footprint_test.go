package crawler

import "testing"

func TestFootprintAdmitOnce(t *testing.T) {
	fp := newFootprint()
	if !fp.admit("https://example.com/page") {
		t.Fatal("first visit must be admitted")
	}
	if fp.admit("https://example.com/page") {
		t.Fatal("second visit must be rejected")
	}
	if fp.size() != 1 {
		t.Fatalf("size = %d", fp.size())
	}
}

func TestFootprintCanonicalization(t *testing.T) {
	fp := newFootprint()
	fp.admit("https://Example.com/page")

	for _, variant := range []string{
		"https://example.com/page",
		"https://example.com:443/page",
		"HTTPS://EXAMPLE.COM/page",
		"https://example.com/page#section",
	} {
		if fp.admit(variant) {
			t.Fatalf("variant %q should hit the same key", variant)
		}
	}
}

func TestFootprintDistinguishesQueries(t *testing.T) {
	fp := newFootprint()
	fp.admit("https://example.com/search?q=a")
	if !fp.admit("https://example.com/search?q=b") {
		t.Fatal("different query strings are different pages")
	}
}

func TestFootprintRejectsGarbage(t *testing.T) {
	fp := newFootprint()
	if fp.admit("not a url") {
		t.Fatal("hostless input must be rejected")
	}
	if fp.admit("") {
		t.Fatal("empty input must be rejected")
	}
}

func TestFrontierBFSOrder(t *testing.T) {
	fr := newFrontier("bfs")
	fr.push(frontierEntry{url: "a", depth: 0})
	fr.push(frontierEntry{url: "b", depth: 1}, frontierEntry{url: "c", depth: 1})

	level := fr.popLevel()
	if len(level) != 1 || level[0].url != "a" {
		t.Fatalf("first level = %v", level)
	}
	level = fr.popLevel()
	if len(level) != 2 || level[0].url != "b" || level[1].url != "c" {
		t.Fatalf("second level = %v", level)
	}
	if !fr.empty() {
		t.Fatal("frontier should be drained")
	}
}

func TestFrontierDFSOrder(t *testing.T) {
	fr := newFrontier("dfs")
	fr.push(frontierEntry{url: "root", depth: 0})
	if e, _ := fr.pop(); e.url != "root" {
		t.Fatalf("pop = %q", e.url)
	}
	fr.push(frontierEntry{url: "a", depth: 1}, frontierEntry{url: "b", depth: 1})

	// Depth-first pops the first-discovered child first.
	e, ok := fr.pop()
	if !ok || e.url != "a" {
		t.Fatalf("pop = %q, want a", e.url)
	}
	fr.push(frontierEntry{url: "a1", depth: 2})
	if e, _ := fr.pop(); e.url != "a1" {
		t.Fatalf("pop = %q, want a1 before sibling b", e.url)
	}
	if e, _ := fr.pop(); e.url != "b" {
		t.Fatalf("pop = %q, want b", e.url)
	}
}
