package fetch

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/jobradar/internal/common"
	"github.com/ternarybob/jobradar/internal/services/ratelimit"
)

const (
	maxAttempts    = 3
	initialBackoff = time.Second
	maxBackoff     = 10 * time.Second
	maxBodyBytes   = 10 << 20
)

// Fetcher is the plain-HTTP page loader. It shares one connection pool
// across all sites, feeds response statuses back into the per-host rate
// limiter, and lazily creates a second client without TLS verification
// when a site's certificate chain is broken.
type Fetcher struct {
	config  common.HTTPConfig
	limiter *ratelimit.Limiter
	global  *rate.Limiter // optional requests/sec ceiling across all hosts
	logger  arbor.ILogger

	client *http.Client

	insecureMu     sync.Mutex
	insecureClient *http.Client
}

// New creates a fetcher with a shared connection pool.
func New(config common.HTTPConfig, limiter *ratelimit.Limiter, logger arbor.ILogger) *Fetcher {
	transport := &http.Transport{
		MaxConnsPerHost:     0,
		MaxIdleConns:        config.MaxIdleConns,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
	}
	if config.MaxConnections > 0 {
		transport.MaxConnsPerHost = config.MaxConnections
	}

	var global *rate.Limiter
	if config.GlobalRateLimit > 0 {
		global = rate.NewLimiter(rate.Limit(config.GlobalRateLimit), 1)
	}

	return &Fetcher{
		config:  config,
		limiter: limiter,
		global:  global,
		logger:  logger,
		client: &http.Client{
			Transport: transport,
			Timeout:   config.RequestTimeout,
		},
	}
}

// insecure returns the TLS-verification-disabled client, creating it on
// first use only.
func (f *Fetcher) insecure() *http.Client {
	f.insecureMu.Lock()
	defer f.insecureMu.Unlock()

	if f.insecureClient == nil {
		transport := &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			MaxIdleConns:    f.config.MaxIdleConns,
			IdleConnTimeout: 90 * time.Second,
		}
		f.insecureClient = &http.Client{
			Transport: transport,
			Timeout:   f.config.RequestTimeout,
		}
	}
	return f.insecureClient
}

// Get fetches a URL body. 4xx/5xx responses return ("", nil); transient
// timeouts are retried with exponential backoff; TLS verification
// failures get one retry without verification; dead domains surface as
// ErrDomainUnreachable without retries.
func (f *Fetcher) Get(ctx context.Context, rawURL string) (string, error) {
	lease, err := f.limiter.Acquire(ctx, rawURL)
	if err != nil {
		return "", err
	}
	defer lease.Release()

	if f.global != nil {
		if err := f.global.Wait(ctx); err != nil {
			return "", err
		}
	}

	backoff := initialBackoff
	client := f.client
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		body, status, err := f.doGet(ctx, client, rawURL)
		if err == nil {
			if status >= 400 {
				f.logger.Debug().
					Str("url", rawURL).
					Int("status", status).
					Msg("Non-success status, returning empty body")
				return "", nil
			}
			return body, nil
		}

		if IsUnreachable(err) {
			return "", fmt.Errorf("%w: %s: %v", ErrDomainUnreachable, rawURL, err)
		}
		if isTLSError(err) && client == f.client {
			f.logger.Warn().
				Str("url", rawURL).
				Msg("TLS verification failed, retrying without verification")
			client = f.insecure()
			continue // TLS retry does not consume an attempt
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if !isTimeout(err) {
			return "", fmt.Errorf("fetch %s: %w", rawURL, err)
		}

		lastErr = err
		if attempt < maxAttempts {
			f.logger.Debug().
				Str("url", rawURL).
				Int("attempt", attempt).
				Dur("backoff", backoff).
				Err(err).
				Msg("Retrying after timeout")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}
	}
	return "", fmt.Errorf("fetch %s: %w", rawURL, lastErr)
}

// doGet performs one request and threads the response status back into
// the rate limiter.
func (f *Fetcher) doGet(ctx context.Context, client *http.Client, rawURL string) (string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("User-Agent", f.config.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := client.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	f.limiter.OnResponse(rawURL, resp.StatusCode, resp.Header.Get("Retry-After"))

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", resp.StatusCode, err
	}
	return string(body), resp.StatusCode, nil
}

// ProbeDomain fails fast on dead domains before any heavy browser work.
// Uses HEAD with a short timeout, falling back to GET for servers that
// reject HEAD.
func (f *Fetcher) ProbeDomain(ctx context.Context, rawURL string) error {
	probeCtx, cancel := context.WithTimeout(ctx, f.probeTimeout())
	defer cancel()

	status, err := f.probe(probeCtx, http.MethodHead, rawURL)
	if err == nil && status != http.StatusMethodNotAllowed && status < 500 {
		return nil
	}
	if IsUnreachable(err) {
		return fmt.Errorf("%w: %s", ErrDomainUnreachable, rawURL)
	}

	status, err = f.probe(probeCtx, http.MethodGet, rawURL)
	if err != nil {
		if IsUnreachable(err) {
			return fmt.Errorf("%w: %s", ErrDomainUnreachable, rawURL)
		}
		if probeCtx.Err() != nil {
			return fmt.Errorf("%w: %s: probe timed out", ErrDomainUnreachable, rawURL)
		}
		return fmt.Errorf("probe %s: %v", rawURL, err)
	}
	_ = status // any HTTP answer at all means the domain is alive
	return nil
}

func (f *Fetcher) probe(ctx context.Context, method, rawURL string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", f.config.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, err
	}
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	resp.Body.Close()
	return resp.StatusCode, nil
}

func (f *Fetcher) probeTimeout() time.Duration {
	if f.config.ProbeTimeout > 0 {
		return f.config.ProbeTimeout
	}
	return 8 * time.Second
}

// DetectRedirect follows redirects for a URL and reports the final URL
// plus whether it landed on a different registered domain (a signal of
// M&A or domain parking).
func (f *Fetcher) DetectRedirect(ctx context.Context, rawURL string) (string, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", false, err
	}
	req.Header.Set("User-Agent", f.config.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		if IsUnreachable(err) {
			return "", false, fmt.Errorf("%w: %s", ErrDomainUnreachable, rawURL)
		}
		return "", false, err
	}
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	resp.Body.Close()

	finalURL := resp.Request.URL.String()
	crossed := !common.SameRegistrableDomain(rawURL, finalURL)
	if crossed {
		f.logger.Info().
			Str("url", rawURL).
			Str("final_url", finalURL).
			Msg("Redirect crossed registered-domain boundary")
	}
	return finalURL, crossed, nil
}

func isTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded")
}

func isTLSError(err error) bool {
	var certErr *tls.CertificateVerificationError
	if errors.As(err, &certErr) {
		return true
	}
	var unknownAuth x509.UnknownAuthorityError
	var hostErr x509.HostnameError
	var invalidErr x509.CertificateInvalidError
	if errors.As(err, &unknownAuth) || errors.As(err, &hostErr) || errors.As(err, &invalidErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "certificate") || strings.Contains(msg, "tls handshake")
}
