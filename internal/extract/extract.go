// Package extract turns fetched page content into insights: either through a
// local LLM or through deterministic keyword heuristics when no model is
// reachable. Both paths produce plain-text insight strings; callers treat the
// two interchangeably.
package extract

import (
	"context"

	"github.com/vtrpza/crawled/pkg/types"
)

// InsightExtractor produces an insight for a page's content, guided by the
// request's intent and the caller's instruction.
type InsightExtractor interface {
	Extract(ctx context.Context, intent types.Intent, content, instruction string) (string, error)
}

// Chain tries extractors in order and returns the first non-empty insight.
// It is the standard wiring: an LLM extractor first, the keyword extractor
// as the always-available fallback.
type Chain struct {
	extractors []InsightExtractor
}

// NewChain builds an extractor chain. Nil entries are skipped.
func NewChain(extractors ...InsightExtractor) *Chain {
	c := &Chain{}
	for _, e := range extractors {
		if e != nil {
			c.extractors = append(c.extractors, e)
		}
	}
	return c
}

// Extract walks the chain. An extractor error or empty result moves on to the
// next link; only when every link fails does Extract return the last error.
func (c *Chain) Extract(ctx context.Context, intent types.Intent, content, instruction string) (string, error) {
	var lastErr error
	for _, e := range c.extractors {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		insight, err := e.Extract(ctx, intent, content, instruction)
		if err != nil {
			lastErr = err
			continue
		}
		if insight != "" {
			return insight, nil
		}
	}
	return "", lastErr
}
