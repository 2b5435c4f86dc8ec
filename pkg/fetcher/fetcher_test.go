package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOptions() Options {
	opts := DefaultOptions()
	opts.Backoff = time.Millisecond
	opts.RequestsPerSecond = 0
	opts.FollowRobotsTxt = false
	opts.Timeout = 5 * time.Second
	return opts
}

func TestFetchRetriesTransientStatus(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<html><body><p>hello</p></body></html>"))
	}))
	defer server.Close()

	body, err := New(testOptions(), nil).Fetch(context.Background(), server.URL+"/page")
	require.NoError(t, err)
	assert.Contains(t, string(body), "hello")
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestFetchGivesUpAfterMaxRetries(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	opts := testOptions()
	opts.MaxRetries = 2
	_, err := New(opts, nil).Fetch(context.Background(), server.URL)
	assert.ErrorIs(t, err, ErrTransient)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestFetchDoesNotRetryClientErrors(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.NotFound(w, r)
	}))
	defer server.Close()

	_, err := New(testOptions(), nil).Fetch(context.Background(), server.URL+"/missing")
	assert.ErrorIs(t, err, ErrStatus)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestFetchRetryCodesAreConfigurable(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	opts := testOptions()
	opts.RetryStatusCodes = []int{http.StatusTooManyRequests}
	_, err := New(opts, nil).Fetch(context.Background(), server.URL)
	assert.ErrorIs(t, err, ErrStatus)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestFetchRejectsNonHTML(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.4"))
	}))
	defer server.Close()

	_, err := New(testOptions(), nil).Fetch(context.Background(), server.URL+"/doc")
	assert.ErrorIs(t, err, ErrNotHTML)
}

func TestFetchRespectsRobotsTxt(t *testing.T) {
	var robotsHits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/robots.txt":
			atomic.AddInt32(&robotsHits, 1)
			w.Header().Set("Content-Type", "text/plain")
			w.Write([]byte("User-agent: *\nDisallow: /private/\n"))
		default:
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte("<html><body>ok</body></html>"))
		}
	}))
	defer server.Close()

	opts := testOptions()
	opts.FollowRobotsTxt = true
	f := New(opts, nil)

	_, err := f.Fetch(context.Background(), server.URL+"/private/page")
	assert.ErrorIs(t, err, ErrDisallowed)

	body, err := f.Fetch(context.Background(), server.URL+"/public/page")
	require.NoError(t, err)
	assert.Contains(t, string(body), "ok")
	assert.Equal(t, int32(1), atomic.LoadInt32(&robotsHits))
}

func TestRobotsTxtNotLostToCancelledCaller(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/robots.txt":
			w.Header().Set("Content-Type", "text/plain")
			w.Write([]byte("User-agent: *\nDisallow: /private/\n"))
		default:
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte("<html><body>ok</body></html>"))
		}
	}))
	defer server.Close()

	opts := testOptions()
	opts.FollowRobotsTxt = true
	f := New(opts, nil)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.Fetch(cancelled, server.URL+"/public/page")
	require.Error(t, err)

	_, err = f.Fetch(context.Background(), server.URL+"/private/page")
	assert.ErrorIs(t, err, ErrDisallowed)
}

func TestFetchRateLimitsPerHost(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html></html>"))
	}))
	defer server.Close()

	opts := testOptions()
	opts.RequestsPerSecond = 10
	opts.Burst = 1
	f := New(opts, nil)

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := f.Fetch(context.Background(), server.URL)
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
}

func TestFetchHonoursCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	opts := testOptions()
	opts.Backoff = time.Hour
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := New(opts, nil).Fetch(ctx, server.URL)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestIsWebpageMIME(t *testing.T) {
	assert.True(t, isWebpageMIME("text/html; charset=utf-8"))
	assert.True(t, isWebpageMIME("application/xhtml+xml"))
	assert.True(t, isWebpageMIME(""))
	assert.False(t, isWebpageMIME("image/png"))
}
