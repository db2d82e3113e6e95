package fetchexec

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/vtrpza/crawled/pkg/types"
)

type scriptedFetcher struct {
	calls   int
	configs []types.FetchConfig
	// fail[i] makes call i return an error.
	fail    map[int]bool
	content string
}

func (f *scriptedFetcher) Fetch(ctx context.Context, url string, cfg types.FetchConfig) (*types.Page, error) {
	call := f.calls
	f.calls++
	f.configs = append(f.configs, cfg)
	if f.fail[call] {
		return nil, errors.New("capability exploded")
	}
	content := f.content
	if content == "" {
		content = "an ordinary page about gardening"
	}
	return &types.Page{URL: url, Content: content, StatusCode: 200}, nil
}

func newTestExecutor(f Fetcher) *Executor {
	return NewExecutor(f, Options{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func stealthConfig() types.FetchConfig {
	return types.FetchConfig{
		ExtractionMode: "markdown",
		BehaviorScript: "/* stealth */",
		SimulateUser:   true,
	}
}

func TestExecuteSuccessFirstTry(t *testing.T) {
	fetcher := &scriptedFetcher{fail: map[int]bool{}}
	outcome := newTestExecutor(fetcher).Execute(context.Background(), "https://example.com", stealthConfig())

	if outcome.Status != types.OutcomeSuccess {
		t.Fatalf("status = %q, want success", outcome.Status)
	}
	if outcome.UsedFallback {
		t.Fatal("fallback should not have been used")
	}
	if fetcher.calls != 1 {
		t.Fatalf("capability called %d times, want 1", fetcher.calls)
	}
}

// First call throws, second (plain-config) call succeeds: the one-shot
// fallback retry must produce a success.
func TestExecuteFallbackRetry(t *testing.T) {
	fetcher := &scriptedFetcher{fail: map[int]bool{0: true}}
	outcome := newTestExecutor(fetcher).Execute(context.Background(), "https://example.com", stealthConfig())

	if outcome.Status != types.OutcomeSuccess {
		t.Fatalf("status = %q, want success via fallback", outcome.Status)
	}
	if !outcome.UsedFallback {
		t.Fatal("outcome should record the fallback")
	}
	if fetcher.calls != 2 {
		t.Fatalf("capability called %d times, want 2", fetcher.calls)
	}

	retry := fetcher.configs[1]
	if retry.BehaviorScript != "" || retry.SimulateUser {
		t.Fatal("fallback retry must use a plain config without stealth features")
	}
	if retry.PageTimeout <= 0 {
		t.Fatal("fallback retry must carry a default timeout")
	}
}

func TestExecuteHardErrorAfterBothFail(t *testing.T) {
	fetcher := &scriptedFetcher{fail: map[int]bool{0: true, 1: true}}
	outcome := newTestExecutor(fetcher).Execute(context.Background(), "https://example.com", stealthConfig())

	if outcome.Status != types.OutcomeHardError {
		t.Fatalf("status = %q, want hard_error", outcome.Status)
	}
	if outcome.Err == nil {
		t.Fatal("hard error must carry a cause")
	}
	if fetcher.calls != 2 {
		t.Fatalf("capability called %d times, want exactly 2 (no extra retries)", fetcher.calls)
	}
}

func TestExecuteSoftBlockClassification(t *testing.T) {
	fetcher := &scriptedFetcher{
		fail:    map[int]bool{},
		content: "Please verify you are human before continuing.",
	}
	outcome := newTestExecutor(fetcher).Execute(context.Background(), "https://example.com", stealthConfig())

	if outcome.Status != types.OutcomeSoftBlock {
		t.Fatalf("status = %q, want soft_block", outcome.Status)
	}
	if outcome.Reason == "" {
		t.Fatal("soft block must carry a reason")
	}
	if outcome.Page == nil {
		t.Fatal("soft block keeps the fetched page")
	}
}

// A challenge phrase inside real content (content markers present) is not a
// soft block.
func TestExecuteChallengePhraseInsideRealContent(t *testing.T) {
	fetcher := &scriptedFetcher{
		fail:    map[int]bool{},
		content: "This article explains how sites ask you to verify you are human. Comments (42).",
	}
	outcome := newTestExecutor(fetcher).Execute(context.Background(), "https://example.com", stealthConfig())

	if outcome.Status != types.OutcomeSuccess {
		t.Fatalf("status = %q, want success (content markers present)", outcome.Status)
	}
}

func TestExecuteCustomMarkers(t *testing.T) {
	fetcher := &scriptedFetcher{fail: map[int]bool{}, content: "zugriff verweigert"}
	exec := NewExecutor(fetcher, Options{
		ChallengeMarkers: []string{"zugriff verweigert"},
		ContentMarkers:   []string{"artikel"},
		Logger:           slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	outcome := exec.Execute(context.Background(), "https://example.de", stealthConfig())
	if outcome.Status != types.OutcomeSoftBlock {
		t.Fatalf("status = %q, want soft_block with custom markers", outcome.Status)
	}
}

// Custom marker lists extend the built-in sets rather than replacing them:
// a page matching a default challenge marker is still classified even when
// the executor was given extra markers.
func TestExecuteCustomMarkersExtendDefaults(t *testing.T) {
	fetcher := &scriptedFetcher{
		fail:    map[int]bool{},
		content: "Please verify you are human before continuing.",
	}
	exec := NewExecutor(fetcher, Options{
		ChallengeMarkers: []string{"zugriff verweigert"},
		ContentMarkers:   []string{"artikel"},
		Logger:           slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	outcome := exec.Execute(context.Background(), "https://example.com", stealthConfig())
	if outcome.Status != types.OutcomeSoftBlock {
		t.Fatalf("status = %q, want soft_block via built-in marker", outcome.Status)
	}
}
