package synthesis

import (
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"

	"github.com/vtrpza/crawled/pkg/types"
)

// WriteMarkdown renders a deep-crawl result as a shareable markdown report.
func WriteMarkdown(w io.Writer, result *types.DeepCrawlResult) error {
	md := markdown.NewMarkdown(w)

	md.H1("Deep Crawl Report")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Run ID", "`" + result.RunID + "`"},
			{"Seed URL", result.SeedURL},
			{"Strategy", result.Strategy},
			{"Crawl Type", result.CrawlType},
			{"Pages Crawled", strconv.Itoa(result.PagesCrawled) + " of " + strconv.Itoa(result.PagesRequested)},
			{"Max Depth", strconv.Itoa(result.MaxDepth)},
			{"Elapsed", result.Elapsed.Round(time.Millisecond).String()},
			{"Status", statusText(result)},
		},
	})
	md.PlainText("")

	md.H2("Summary")
	md.PlainText("")
	md.PlainText(result.Report.Summary)
	md.PlainText("")
	if result.Report.AIGenerated {
		md.Note("Summary generated by the AI extraction capability.")
	} else {
		md.Note("Summary generated deterministically.")
	}
	md.PlainText("")

	writeInsights(md, result.Report.Pages)
	writeFailures(md, result.Failures)

	return md.Build()
}

func statusText(result *types.DeepCrawlResult) string {
	switch {
	case result.Status == types.StatusError:
		return "Failed"
	case len(result.Failures) > 0:
		return "Partial"
	default:
		return "Complete"
	}
}

func writeInsights(md *markdown.Markdown, pages []types.PageInsight) {
	md.H2("Page Insights")
	md.PlainText("")
	if len(pages) == 0 {
		md.PlainText("No pages were analyzed.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(pages))
	for i, p := range pages {
		title := p.Title
		if title == "" {
			title = "-"
		}
		rows[i] = []string{
			shorten(p.URL, 60),
			shorten(title, 40),
			strconv.Itoa(p.Depth),
			strconv.Itoa(p.ContentLength),
			strconv.Itoa(p.LinksFound),
			shorten(p.Insight, 80),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"URL", "Title", "Depth", "Content", "Links", "Insight"},
		Rows:   rows,
	})
	md.PlainText("")
}

func writeFailures(md *markdown.Markdown, failures []types.PageFailure) {
	if len(failures) == 0 {
		return
	}
	md.H2("Failures")
	md.PlainText("")
	items := make([]string, len(failures))
	for i, f := range failures {
		items[i] = f.URL + " (depth " + strconv.Itoa(f.Depth) + "): " + f.Reason
	}
	md.BulletList(items...)
	md.PlainText("")
}

func shorten(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
