// Package discovery finds seed URLs with a small breadth-first crawl.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"go.uber.org/zap"

	"github.com/amosWeiskopf/corpusmith/pkg/frontier"
	"github.com/amosWeiskopf/corpusmith/pkg/utils"
)

// ErrInvalidRequest is returned for unusable arguments.
var ErrInvalidRequest = errors.New("invalid seed discovery request")

// Fetcher downloads a page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// LinkExtractor lists the absolute links of a page.
type LinkExtractor interface {
	ExtractLinks(body []byte, baseURL string) []string
}

// Options bounds the discovery crawl.
type Options struct {
	// MaxPages caps the number of pages fetched; zero means no cap beyond
	// the seed target.
	MaxPages int
	// Pattern, when set, must match a link for it to count as a seed.
	// Non-matching links are still followed.
	Pattern *regexp.Regexp
}

// Discoverer collects distinct outbound links starting from one page.
type Discoverer struct {
	fetcher Fetcher
	links   LinkExtractor
	opts    Options
	logger  *zap.Logger
}

// New creates a Discoverer. A nil logger discards output.
func New(fetcher Fetcher, links LinkExtractor, opts Options, logger *zap.Logger) *Discoverer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Discoverer{fetcher: fetcher, links: links, opts: opts, logger: logger}
}

// DiscoverSeeds crawls breadth-first from startURL until maxSeeds distinct
// links are collected, the page budget is spent or there is nothing left
// to visit. Pages that fail to load are logged and skipped. An empty result
// is not an error; callers fall back to startURL themselves.
func (d *Discoverer) DiscoverSeeds(ctx context.Context, startURL string, maxSeeds int) ([]string, error) {
	if maxSeeds <= 0 {
		return nil, fmt.Errorf("%w: max seeds must be positive, got %d", ErrInvalidRequest, maxSeeds)
	}
	start, ok := utils.NormalizeURL(startURL)
	if !ok {
		return nil, fmt.Errorf("%w: start url %q is not an http(s) url", ErrInvalidRequest, startURL)
	}

	var (
		seeds  []string
		isSeed = make(map[string]bool)
		fr     *frontier.Frontier
	)
	fr = frontier.New(func() bool {
		if len(seeds) >= maxSeeds {
			return false
		}
		return d.opts.MaxPages <= 0 || fr.Visited()+fr.Len() < d.opts.MaxPages
	})
	fr.Enqueue(start)

	for len(seeds) < maxSeeds {
		if err := ctx.Err(); err != nil {
			return seeds, err
		}
		page, ok := fr.Dequeue()
		if !ok {
			break
		}
		body, err := d.fetcher.Fetch(ctx, page)
		if err != nil {
			if ctx.Err() != nil {
				return seeds, ctx.Err()
			}
			d.logger.Warn("seed discovery skipped page", zap.String("url", page), zap.Error(err))
			continue
		}

		for _, link := range d.links.ExtractLinks(body, page) {
			if link == start {
				continue
			}
			if len(seeds) < maxSeeds && !isSeed[link] && d.matches(link) {
				isSeed[link] = true
				seeds = append(seeds, link)
			}
			fr.Enqueue(link)
		}
		d.logger.Debug("seed discovery page done",
			zap.String("url", page),
			zap.Int("seeds", len(seeds)),
			zap.Int("queued", fr.Len()))
	}
	return seeds, nil
}

func (d *Discoverer) matches(link string) bool {
	return d.opts.Pattern == nil || d.opts.Pattern.MatchString(link)
}
