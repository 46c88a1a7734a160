package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/jobradar/internal/common"
	"github.com/ternarybob/jobradar/internal/services/ratelimit"
)

func testFetcher(t *testing.T) *Fetcher {
	t.Helper()
	cfg := common.HTTPConfig{
		RequestTimeout: 5 * time.Second,
		ProbeTimeout:   2 * time.Second,
		UserAgent:      "jobradar-test",
		MaxConnections: 10,
		MaxIdleConns:   5,
	}
	rl := ratelimit.New(common.RateLimitConfig{
		BaseDelay:         time.Millisecond,
		MaxDelay:          time.Second,
		MaxConcurrent:     4,
		BackoffMultiplier: 2.0,
		RecoveryFactor:    0.9,
	}, common.GetLogger())
	return New(cfg, rl, common.GetLogger())
}

func TestGetReturnsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>jobs</html>"))
	}))
	defer srv.Close()

	body, err := testFetcher(t).Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "<html>jobs</html>", body)
}

func TestGetNotFoundReturnsEmptyWithoutError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	body, err := testFetcher(t).Get(context.Background(), srv.URL+"/missing")
	require.NoError(t, err)
	assert.Empty(t, body)
}

func TestGetDeadDomainIsUnreachable(t *testing.T) {
	_, err := testFetcher(t).Get(context.Background(), "https://definitely-not-a-real-host.invalid/")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDomainUnreachable), "got %v", err)
}

func TestProbeDomainFallsBackToGet(t *testing.T) {
	var heads, gets int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodHead:
			atomic.AddInt32(&heads, 1)
			w.WriteHeader(http.StatusMethodNotAllowed)
		default:
			atomic.AddInt32(&gets, 1)
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	err := testFetcher(t).ProbeDomain(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&heads))
	assert.Equal(t, int32(1), atomic.LoadInt32(&gets))
}

func TestProbeDomainDeadHost(t *testing.T) {
	err := testFetcher(t).ProbeDomain(context.Background(), "https://definitely-not-a-real-host.invalid/")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDomainUnreachable))
}

func TestDetectRedirectSameHost(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			http.Redirect(w, r, srv.URL+"/careers", http.StatusFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	final, crossed, err := testFetcher(t).DetectRedirect(context.Background(), srv.URL+"/")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/careers", final)
	assert.False(t, crossed)
}

func TestRetryOnTimeoutThenSuccess(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			time.Sleep(500 * time.Millisecond)
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := testFetcher(t)
	f.client.Timeout = 200 * time.Millisecond

	body, err := f.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", body)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&calls), int32(2))
}

func TestMessageIsUnreachable(t *testing.T) {
	assert.True(t, MessageIsUnreachable("net::ERR_NAME_NOT_RESOLVED at https://x"))
	assert.True(t, MessageIsUnreachable("dial tcp: connection refused"))
	assert.False(t, MessageIsUnreachable("context deadline exceeded"))
}
