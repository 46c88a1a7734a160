package ratelimit

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/jobradar/internal/common"
)

// Limiter enforces a minimum interval between requests to the same host
// and bounds in-flight requests per host. The interval widens on
// throttling signals (429/503, Retry-After) and narrows back toward the
// base delay on success.
type Limiter struct {
	config common.RateLimitConfig
	logger arbor.ILogger

	mu    sync.Mutex // guards first-time host insertion only
	hosts map[string]*hostLimiter
}

// hostLimiter tracks rate limiting state for a single host.
type hostLimiter struct {
	mu          sync.Mutex
	delay       time.Duration
	lastRequest time.Time
	slots       chan struct{}
}

// Lease is a scoped grant for one request. Release must be called on
// every exit path.
type Lease struct {
	release func()
	once    sync.Once
}

// Release returns the concurrency slot to the host.
func (l *Lease) Release() {
	if l == nil {
		return
	}
	l.once.Do(l.release)
}

// New creates a limiter with the given configuration.
func New(config common.RateLimitConfig, logger arbor.ILogger) *Limiter {
	return &Limiter{
		config: config,
		logger: logger,
		hosts:  make(map[string]*hostLimiter),
	}
}

// hostFor returns the limiter for a host, creating it on first use
// under the global mutex (double-checked).
func (l *Limiter) hostFor(host string) *hostLimiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	hl, ok := l.hosts[host]
	if !ok {
		hl = &hostLimiter{
			delay: l.config.BaseDelay,
			slots: make(chan struct{}, l.config.MaxConcurrent),
		}
		l.hosts[host] = hl
	}
	return hl
}

// Acquire blocks until a concurrency slot is free and the per-host
// delay since the previous request has elapsed, then returns a lease.
func (l *Limiter) Acquire(ctx context.Context, rawURL string) (*Lease, error) {
	host := hostOf(rawURL)
	if host == "" {
		host = "_"
	}
	hl := l.hostFor(host)

	// Take a concurrency slot first, blocking if saturated.
	select {
	case hl.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	release := func() { <-hl.slots }

	hl.mu.Lock()
	wait := hl.delay - time.Since(hl.lastRequest)
	if wait > 0 {
		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			hl.mu.Unlock()
			release()
			return nil, ctx.Err()
		}
	}
	hl.lastRequest = time.Now()
	hl.mu.Unlock()

	return &Lease{release: release}, nil
}

// OnResponse feeds an HTTP status (and optional Retry-After header
// value) back into the per-host delay.
func (l *Limiter) OnResponse(rawURL string, status int, retryAfter string) {
	host := hostOf(rawURL)
	if host == "" {
		return
	}
	hl := l.hostFor(host)

	hl.mu.Lock()
	defer hl.mu.Unlock()

	switch {
	case status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable:
		next := time.Duration(float64(hl.delay) * l.config.BackoffMultiplier)
		if ra, ok := parseRetryAfter(retryAfter); ok {
			next = ra
		}
		if next > l.config.MaxDelay {
			next = l.config.MaxDelay
		}
		if next != hl.delay {
			l.logger.Debug().
				Str("host", host).
				Int("status", status).
				Dur("delay", next).
				Msg("Widening per-host delay after throttling signal")
		}
		hl.delay = next

	case status >= 200 && status < 300:
		if hl.delay <= l.config.BaseDelay {
			return
		}
		hl.delay = time.Duration(float64(hl.delay) * l.config.RecoveryFactor)
		// within 10% of base: discard the override entirely
		if float64(hl.delay) <= float64(l.config.BaseDelay)*1.1 {
			hl.delay = l.config.BaseDelay
		}
	}
}

// CurrentDelay returns the active delay for a host.
func (l *Limiter) CurrentDelay(rawURL string) time.Duration {
	host := hostOf(rawURL)
	l.mu.Lock()
	hl, ok := l.hosts[host]
	l.mu.Unlock()
	if !ok {
		return l.config.BaseDelay
	}
	hl.mu.Lock()
	defer hl.mu.Unlock()
	return hl.delay
}

// parseRetryAfter accepts integer seconds or an RFC 1123 date.
func parseRetryAfter(v string) (time.Duration, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second, true
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d, true
		}
		return 0, false
	}
	return 0, false
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}
