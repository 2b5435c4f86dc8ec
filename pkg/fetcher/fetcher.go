// Package fetcher is the HTTP transport of the harvester: polite, retrying
// GETs of HTML pages.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"
)

var (
	// ErrTransient is returned once every retry of a retryable failure
	// has been used up.
	ErrTransient = errors.New("transient fetch failure")
	// ErrStatus is returned for non-retryable HTTP status codes.
	ErrStatus = errors.New("unexpected status")
	// ErrDisallowed is returned when robots.txt forbids the URL.
	ErrDisallowed = errors.New("disallowed by robots.txt")
	// ErrNotHTML is returned when the response is not a web page.
	ErrNotHTML = errors.New("not an html page")
)

// Options configures the transport.
type Options struct {
	UserAgent         string
	Timeout           time.Duration
	MaxRetries        int
	RetryStatusCodes  []int
	Backoff           time.Duration
	RequestsPerSecond float64
	Burst             int
	FollowRobotsTxt   bool
	MaxBodyBytes      int64
}

// DefaultOptions mirrors a one request per second per host crawl.
func DefaultOptions() Options {
	return Options{
		UserAgent:         "corpusmith/1.0 (+https://github.com/amosWeiskopf/corpusmith)",
		Timeout:           15 * time.Second,
		MaxRetries:        3,
		RetryStatusCodes:  []int{http.StatusTooManyRequests, 500, 502, 503, 504},
		Backoff:           100 * time.Millisecond,
		RequestsPerSecond: 1,
		Burst:             1,
		FollowRobotsTxt:   true,
		MaxBodyBytes:      10 * 1024 * 1024,
	}
}

// Fetcher performs GET requests with per-host rate limiting, bounded
// retries on transient failures and optional robots.txt checks. It is safe
// for concurrent use.
type Fetcher struct {
	client *http.Client
	opts   Options
	robots *robotsCache
	logger *zap.Logger

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// New creates a Fetcher. A nil logger discards output.
func New(opts Options, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        50,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     30 * time.Second,
	}
	client := &http.Client{Transport: transport, Timeout: opts.Timeout, Jar: jar}

	f := &Fetcher{
		client:   client,
		opts:     opts,
		logger:   logger,
		limiters: make(map[string]*rate.Limiter),
	}
	if opts.FollowRobotsTxt {
		f.robots = newRobotsCache(client, opts.UserAgent)
	}
	return f
}

func (f *Fetcher) limiter(host string) *rate.Limiter {
	f.mu.Lock()
	defer f.mu.Unlock()

	l, ok := f.limiters[host]
	if !ok {
		limit := rate.Inf
		if f.opts.RequestsPerSecond > 0 {
			limit = rate.Limit(f.opts.RequestsPerSecond)
		}
		l = rate.NewLimiter(limit, f.opts.Burst)
		f.limiters[host] = l
	}
	return l
}

// Fetch returns the body of the HTML page at pageURL.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) ([]byte, error) {
	u, err := url.Parse(pageURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("%w: invalid url %q", ErrStatus, pageURL)
	}
	if f.robots != nil && !f.robots.allowed(ctx, u) {
		return nil, fmt.Errorf("%w: %s", ErrDisallowed, pageURL)
	}

	limiter := f.limiter(strings.ToLower(u.Host))
	var lastErr error
	for attempt := 0; attempt <= f.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := f.opts.Backoff * time.Duration(1<<(attempt-1))
			f.logger.Debug("retrying fetch",
				zap.String("url", pageURL),
				zap.Int("attempt", attempt+1),
				zap.Duration("delay", delay),
				zap.Error(lastErr))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}
		if err := limiter.Wait(ctx); err != nil {
			return nil, err
		}

		body, retry, err := f.do(ctx, pageURL)
		if err == nil {
			return body, nil
		}
		if !retry {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%w: %s after %d attempts: %v", ErrTransient, pageURL, f.opts.MaxRetries+1, lastErr)
}

// do performs one attempt. retry reports whether the failure is worth
// another try.
func (f *Fetcher) do(ctx context.Context, pageURL string) (body []byte, retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrStatus, err)
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		return nil, true, err
	}
	defer resp.Body.Close()

	if slices.Contains(f.opts.RetryStatusCodes, resp.StatusCode) {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
		return nil, true, fmt.Errorf("status %d", resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, false, fmt.Errorf("%w %d for %s", ErrStatus, resp.StatusCode, pageURL)
	}
	if !isWebpageMIME(resp.Header.Get("Content-Type")) {
		return nil, false, fmt.Errorf("%w: %s is %q", ErrNotHTML, pageURL, resp.Header.Get("Content-Type"))
	}

	reader := io.Reader(resp.Body)
	if f.opts.MaxBodyBytes > 0 {
		reader = io.LimitReader(resp.Body, f.opts.MaxBodyBytes)
	}
	body, err = io.ReadAll(reader)
	if err != nil {
		return nil, true, fmt.Errorf("read body: %w", err)
	}
	return body, false, nil
}

func isWebpageMIME(contentType string) bool {
	if contentType == "" {
		return true
	}
	mimeType := strings.TrimSpace(strings.Split(strings.ToLower(contentType), ";")[0])
	webpageMIMEs := []string{"text/html", "application/xhtml+xml", "application/xhtml", "text/plain"}
	return slices.Contains(webpageMIMEs, mimeType)
}
