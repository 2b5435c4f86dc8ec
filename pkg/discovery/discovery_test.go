package discovery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amosWeiskopf/corpusmith/pkg/extractor"
	"github.com/amosWeiskopf/corpusmith/pkg/fetcher"
)

// site serves pages keyed by path; unknown paths are 404s.
func site(t *testing.T, pages map[string]string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func newDiscoverer(opts Options) *Discoverer {
	fopts := fetcher.DefaultOptions()
	fopts.RequestsPerSecond = 0
	fopts.FollowRobotsTxt = false
	fopts.MaxRetries = 0
	return New(fetcher.New(fopts, nil), extractor.New(), opts, nil)
}

func TestDiscoverSeedsReturnsAllDistinctLinks(t *testing.T) {
	server := site(t, map[string]string{
		"/": `<html><body>
			<a href="/a">A</a>
			<a href="/b">B</a>
			<a href="/a#again">A again</a>
			<a href="https://writer.example.org/">C</a>
			<a href="mailto:x@example.com">mail</a>
			<a href="#top">top</a>
		</body></html>`,
	})

	// one page only: the outbound link must not be fetched
	seeds, err := newDiscoverer(Options{MaxPages: 1}).DiscoverSeeds(context.Background(), server.URL+"/", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{
		server.URL + "/a",
		server.URL + "/b",
		"https://writer.example.org/",
	}, seeds)
}

func TestDiscoverSeedsStopsAtMax(t *testing.T) {
	server := site(t, map[string]string{
		"/": `<a href="/1">1</a><a href="/2">2</a><a href="/3">3</a><a href="/4">4</a>`,
	})
	seeds, err := newDiscoverer(Options{}).DiscoverSeeds(context.Background(), server.URL, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{server.URL + "/1", server.URL + "/2"}, seeds)
}

func TestDiscoverSeedsWalksBreadthFirst(t *testing.T) {
	server := site(t, map[string]string{
		"/":       `<a href="/hub">hub</a>`,
		"/hub":    `<a href="/deep-1">d1</a><a href="/deep-2">d2</a>`,
		"/deep-1": `<a href="/">home</a>`,
	})
	seeds, err := newDiscoverer(Options{}).DiscoverSeeds(context.Background(), server.URL+"/", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{server.URL + "/hub", server.URL + "/deep-1", server.URL + "/deep-2"}, seeds)
}

func TestDiscoverSeedsPattern(t *testing.T) {
	server := site(t, map[string]string{
		"/":        `<a href="/@alice">alice</a><a href="/explore">explore</a>`,
		"/explore": `<a href="/@bob">bob</a><a href="/about">about</a>`,
	})
	opts := Options{Pattern: regexp.MustCompile(`/@`)}
	seeds, err := newDiscoverer(opts).DiscoverSeeds(context.Background(), server.URL, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{server.URL + "/@alice", server.URL + "/@bob"}, seeds)
}

func TestDiscoverSeedsNoLinks(t *testing.T) {
	server := site(t, map[string]string{"/": `<p>nothing to see</p>`})
	seeds, err := newDiscoverer(Options{}).DiscoverSeeds(context.Background(), server.URL, 10)
	require.NoError(t, err)
	assert.Empty(t, seeds)
}

type flakyFetcher struct {
	pages map[string]string
	fails map[string]bool
	calls []string
}

func (f *flakyFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	f.calls = append(f.calls, url)
	if f.fails[url] {
		return nil, errors.New("connection reset")
	}
	body, ok := f.pages[url]
	if !ok {
		return nil, fmt.Errorf("no page %s", url)
	}
	return []byte(body), nil
}

func TestDiscoverSeedsSurvivesPageFailures(t *testing.T) {
	f := &flakyFetcher{
		pages: map[string]string{
			"https://hub.example/":   `<a href="https://hub.example/broken">x</a><a href="https://hub.example/ok">y</a>`,
			"https://hub.example/ok": `<a href="https://w.example/">w</a>`,
		},
		fails: map[string]bool{"https://hub.example/broken": true},
	}
	d := New(f, extractor.New(), Options{}, nil)
	seeds, err := d.DiscoverSeeds(context.Background(), "https://hub.example/", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://hub.example/broken", "https://hub.example/ok", "https://w.example/"}, seeds)
	assert.Contains(t, f.calls, "https://hub.example/ok")
}

func TestDiscoverSeedsPageBudget(t *testing.T) {
	f := &flakyFetcher{pages: map[string]string{
		"https://hub.example/":  `<a href="https://hub.example/1">1</a>`,
		"https://hub.example/1": `<a href="https://hub.example/2">2</a>`,
		"https://hub.example/2": `<a href="https://hub.example/3">3</a>`,
	}}
	d := New(f, extractor.New(), Options{MaxPages: 2}, nil)
	seeds, err := d.DiscoverSeeds(context.Background(), "https://hub.example/", 10)
	require.NoError(t, err)
	assert.Len(t, f.calls, 2)
	assert.Equal(t, []string{"https://hub.example/1", "https://hub.example/2"}, seeds)
}

func TestDiscoverSeedsInvalidRequest(t *testing.T) {
	d := New(&flakyFetcher{}, extractor.New(), Options{}, nil)
	_, err := d.DiscoverSeeds(context.Background(), "https://hub.example/", 0)
	assert.ErrorIs(t, err, ErrInvalidRequest)
	_, err = d.DiscoverSeeds(context.Background(), "not a url", 5)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestDiscoverSeedsCancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()
	d := New(&flakyFetcher{}, extractor.New(), Options{}, nil)
	_, err := d.DiscoverSeeds(ctx, "https://hub.example/", 5)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
