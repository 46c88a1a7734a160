package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
)

// ErrFatal marks a non-retryable provider error. It bubbles up and
// fails the site scan without touching the cache.
var ErrFatal = errors.New("llm provider error")

// retryablePatterns identify transient provider failures worth backing
// off for; everything else is fatal.
var retryablePatterns = []string{
	"rate limit", "rate_limit", "overloaded", "service unavailable",
	"502", "503", "504", "bad gateway", "gateway timeout",
	"connection reset", "timeout", "deadline exceeded", "temporarily",
}

const (
	providerMaxAttempts    = 3
	providerInitialBackoff = 2 * time.Second
	providerMaxBackoff     = 16 * time.Second
)

func retryable(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, p := range retryablePatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// withProviderRetry runs a provider call with exponential backoff on
// transient failures. Hard errors come back wrapped in ErrFatal
// immediately.
func withProviderRetry(ctx context.Context, logger arbor.ILogger, call func(context.Context) (string, error)) (string, error) {
	backoff := providerInitialBackoff
	var lastErr error

	for attempt := 1; attempt <= providerMaxAttempts; attempt++ {
		text, err := call(ctx)
		if err == nil {
			return text, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if !retryable(err) {
			return "", errors.Join(ErrFatal, err)
		}

		lastErr = err
		if attempt < providerMaxAttempts {
			logger.Warn().
				Err(err).
				Int("attempt", attempt).
				Dur("backoff", backoff).
				Msg("Transient provider error, backing off")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
			backoff *= 2
			if backoff > providerMaxBackoff {
				backoff = providerMaxBackoff
			}
		}
	}
	return "", errors.Join(ErrFatal, lastErr)
}
