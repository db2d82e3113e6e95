package crawler

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimit configures token-bucket throttling per host.
type RateLimit struct {
	Requests int
	Window   time.Duration
}

// Limiter enforces per-host politeness: a minimum gap between requests plus
// an optional token bucket. The delay applies on top of whatever human-timing
// dwell the stealth policy already injects.
type Limiter struct {
	delay       time.Duration
	rateCfg     RateLimit
	rateEnabled bool

	mu       sync.Mutex
	last     map[string]time.Time
	limiters map[string]*rate.Limiter
}

// NewLimiter creates a limiter; zero delay and an empty rate config make it
// a no-op.
func NewLimiter(delay time.Duration, rateCfg RateLimit) *Limiter {
	l := &Limiter{delay: delay}
	if delay > 0 {
		l.last = make(map[string]time.Time)
	}
	if rateCfg.Requests > 0 && rateCfg.Window > 0 {
		l.rateEnabled = true
		l.rateCfg = rateCfg
		l.limiters = make(map[string]*rate.Limiter)
		if l.last == nil {
			l.last = make(map[string]time.Time)
		}
	}
	return l
}

// WaitURL waits for the host of a raw URL. Unparseable URLs pass through;
// they fail later, at fetch time, with a better error.
func (l *Limiter) WaitURL(ctx context.Context, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return nil
	}
	return l.Wait(ctx, u.Hostname())
}

// Wait blocks until politeness constraints for the host are satisfied.
func (l *Limiter) Wait(ctx context.Context, host string) error {
	if l == nil || host == "" {
		return nil
	}
	if l.delay <= 0 && !l.rateEnabled {
		return nil
	}
	host = strings.ToLower(host)

	var sleep time.Duration
	var limiter *rate.Limiter
	now := time.Now()

	l.mu.Lock()
	if l.delay > 0 {
		if last, ok := l.last[host]; ok {
			if rest := last.Add(l.delay).Sub(now); rest > 0 {
				sleep = rest
			}
		}
	}
	if l.rateEnabled {
		limiter = l.ensureLimiterLocked(host)
	}
	l.mu.Unlock()

	if sleep > 0 {
		timer := time.NewTimer(sleep)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
	}

	l.mu.Lock()
	if l.last != nil {
		l.last[host] = time.Now()
	}
	l.mu.Unlock()
	return nil
}

func (l *Limiter) ensureLimiterLocked(host string) *rate.Limiter {
	if limiter, ok := l.limiters[host]; ok {
		return limiter
	}
	interval := l.rateCfg.Window / time.Duration(l.rateCfg.Requests)
	if interval <= 0 {
		interval = time.Millisecond
	}
	burst := l.rateCfg.Requests
	if burst <= 0 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Every(interval), burst)
	l.limiters[host] = limiter
	return limiter
}
