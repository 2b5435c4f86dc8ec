// Package harvest runs crawl jobs: one per seed, each feeding its pages
// through extraction, language classification and the corpus policy.
package harvest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/amosWeiskopf/corpusmith/internal/models"
	"github.com/amosWeiskopf/corpusmith/pkg/corpus"
	"github.com/amosWeiskopf/corpusmith/pkg/progress"
	"github.com/amosWeiskopf/corpusmith/pkg/utils"
)

// Deps are the collaborators a Coordinator drives. Seeds is only needed
// for HarvestFromSeedSearch.
type Deps struct {
	Fetcher    Fetcher
	Extractor  Extractor
	Classifier Classifier
	Store      *corpus.Store
	Seeds      SeedFinder
	Logger     *zap.Logger
}

// Coordinator dispatches crawl jobs. Jobs for different seeds run in
// parallel up to Options.MaxConcurrentJobs; each job owns its frontier and
// counters.
type Coordinator struct {
	deps   Deps
	opts   Options
	logger *zap.Logger
}

// New validates deps and opts and returns a Coordinator.
func New(deps Deps, opts Options) (*Coordinator, error) {
	switch {
	case deps.Fetcher == nil:
		return nil, fmt.Errorf("%w: fetcher is required", ErrInvalidRequest)
	case deps.Extractor == nil:
		return nil, fmt.Errorf("%w: extractor is required", ErrInvalidRequest)
	case deps.Classifier == nil:
		return nil, fmt.Errorf("%w: classifier is required", ErrInvalidRequest)
	case deps.Store == nil:
		return nil, fmt.Errorf("%w: corpus store is required", ErrInvalidRequest)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{deps: deps, opts: opts, logger: logger}, nil
}

// HarvestFromURLs runs one job per distinct valid URL in urls. Invalid
// entries are logged and skipped; if none is left ErrInvalidRequest is
// returned. A failing job never stops the others: its error is recorded
// in its JobResult. When ctx is cancelled the partial result is returned
// together with ctx.Err().
func (c *Coordinator) HarvestFromURLs(ctx context.Context, urls []string, sink progress.Sink) (*models.RunResult, error) {
	seeds := c.normalizeSeeds(urls)
	if len(seeds) == 0 {
		return nil, fmt.Errorf("%w: no valid seed urls", ErrInvalidRequest)
	}
	return c.run(ctx, seeds, progress.Safe(sink, c.logger))
}

// HarvestFromSeedSearch discovers up to maxSeeds seeds from startURL and
// harvests them. When discovery finds nothing, startURL itself becomes the
// only seed.
func (c *Coordinator) HarvestFromSeedSearch(ctx context.Context, startURL string, maxSeeds int, sink progress.Sink) (*models.RunResult, error) {
	if maxSeeds <= 0 {
		return nil, fmt.Errorf("%w: max seeds must be positive, got %d", ErrInvalidRequest, maxSeeds)
	}
	start, ok := utils.NormalizeURL(startURL)
	if !ok {
		return nil, fmt.Errorf("%w: start url %q is not an http(s) url", ErrInvalidRequest, startURL)
	}
	if c.deps.Seeds == nil {
		return nil, fmt.Errorf("%w: no seed finder configured", ErrInvalidRequest)
	}
	sink = progress.Safe(sink, c.logger)

	seeds, err := c.deps.Seeds.DiscoverSeeds(ctx, start, maxSeeds)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("seed discovery: %w", err)
	}
	sink.Report(models.Event{Kind: models.EventSeedsFound, Seed: start, SeedsFound: len(seeds), At: time.Now()})

	if len(seeds) == 0 {
		c.logger.Warn("no seeds found, harvesting start url", zap.String("url", start))
		seeds = []string{start}
	}
	return c.run(ctx, seeds, sink)
}

func (c *Coordinator) normalizeSeeds(urls []string) []string {
	seen := make(map[string]bool)
	var seeds []string
	for _, raw := range urls {
		u, ok := utils.NormalizeURL(raw)
		if !ok {
			c.logger.Warn("ignoring invalid seed url", zap.String("url", raw))
			continue
		}
		if seen[u] {
			continue
		}
		seen[u] = true
		seeds = append(seeds, u)
	}
	return seeds
}

func (c *Coordinator) run(ctx context.Context, seeds []string, sink progress.Sink) (*models.RunResult, error) {
	result := &models.RunResult{
		Seeds:     seeds,
		Jobs:      make([]models.JobResult, len(seeds)),
		StartedAt: time.Now(),
	}
	c.logger.Info("harvest started", zap.Int("seeds", len(seeds)), zap.Int("concurrency", c.opts.MaxConcurrentJobs))

	sem := make(chan struct{}, c.opts.MaxConcurrentJobs)
	var wg sync.WaitGroup
	for i, seed := range seeds {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, seed string) {
			defer func() {
				<-sem
				wg.Done()
			}()
			result.Jobs[i] = newCrawlJob(seed, c, sink).run(ctx)
		}(i, seed)
	}
	wg.Wait()

	result.Duration = time.Since(result.StartedAt)
	c.logger.Info("harvest finished",
		zap.Int("jobs", len(result.Jobs)),
		zap.Int("files_stored", result.TotalStored()),
		zap.Duration("duration", result.Duration))

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

