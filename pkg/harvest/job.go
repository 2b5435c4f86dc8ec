package harvest

import (
	"context"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"

	"github.com/amosWeiskopf/corpusmith/internal/models"
	"github.com/amosWeiskopf/corpusmith/pkg/corpus"
	"github.com/amosWeiskopf/corpusmith/pkg/frontier"
	"github.com/amosWeiskopf/corpusmith/pkg/progress"
	"github.com/amosWeiskopf/corpusmith/pkg/utils"
)

// crawlJob is the state of one seed's crawl. It is owned by the goroutine
// running it; only fetching fans out to workers.
type crawlJob struct {
	id       string
	seed     string
	site     string
	opts     Options
	deps     Deps
	logger   *zap.Logger
	sink     progress.Sink
	corpus   *corpus.SeedCorpus
	frontier *frontier.Frontier
	result   models.JobResult
}

// page is what a worker hands back for one URL.
type page struct {
	url   string
	doc   models.HarvestedDocument
	links []string
	err   error
}

func newCrawlJob(seed string, c *Coordinator, sink progress.Sink) *crawlJob {
	id := uuid.NewString()
	return &crawlJob{
		id:     id,
		seed:   seed,
		site:   siteOf(seed),
		opts:   c.opts,
		deps:   c.deps,
		logger: c.logger.With(zap.String("job_id", id), zap.String("seed", seed)),
		sink:   sink,
		result: models.JobResult{JobID: id, Seed: seed},
	}
}

// siteOf returns the registrable domain of rawURL, or its host when the
// public suffix list has no answer (IP addresses, localhost).
func siteOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	if site, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		return site
	}
	return host
}

func (j *crawlJob) event(kind models.EventKind) models.Event {
	e := models.Event{
		Kind:        kind,
		JobID:       j.id,
		Seed:        j.seed,
		URLsVisited: j.result.URLsVisited,
		At:          time.Now(),
	}
	if j.corpus != nil {
		e.FilesStored = j.corpus.Stored()
		e.HighQualityCount = j.corpus.HighQuality()
	}
	return e
}

// run crawls until the frontier drains, the high quality target is met or
// ctx is cancelled.
func (j *crawlJob) run(ctx context.Context) models.JobResult {
	started := time.Now()
	j.sink.Report(j.event(models.EventJobStarted))
	defer func() {
		j.result.Duration = time.Since(started)
		done := j.event(models.EventJobDone)
		done.Err = j.result.Err
		j.sink.Report(done)
	}()

	sc, err := j.deps.Store.Open(j.seed, j.opts.Limits, j.opts.Resume)
	if err != nil {
		j.logger.Error("cannot open seed corpus", zap.Error(err))
		j.result.Err = err.Error()
		return j.result
	}
	j.corpus = sc
	j.result.SeedKey = sc.SeedKey()

	// High quality counts restart at zero for every job, so the frontier
	// budget only looks at this seed's yield.
	j.frontier = frontier.New(func() bool {
		if j.corpus.TargetReached() {
			return false
		}
		return j.opts.MaxPagesPerJob <= 0 || j.frontier.Visited()+j.frontier.Len() < j.opts.MaxPagesPerJob
	})
	j.frontier.Enqueue(j.seed)

	for {
		if ctx.Err() != nil {
			j.result.Cancelled = true
			break
		}
		if j.corpus.TargetReached() {
			j.logger.Info("high quality target reached", zap.Int("high_quality", j.corpus.HighQuality()))
			break
		}
		batch := j.nextBatch()
		if len(batch) == 0 {
			break
		}
		for _, p := range j.fetchAll(ctx, batch) {
			if p.err != nil && ctx.Err() != nil {
				j.result.Cancelled = true
				continue
			}
			j.result.URLsVisited++
			if p.err != nil {
				j.fetchFailed(p)
				continue
			}
			j.decide(p)
			j.follow(p)
		}
	}

	j.result.FilesStored = j.corpus.Stored()
	j.result.HighQuality = j.corpus.HighQuality()
	return j.result
}

func (j *crawlJob) nextBatch() []string {
	var batch []string
	for len(batch) < j.opts.WorkersPerJob {
		u, ok := j.frontier.Dequeue()
		if !ok {
			break
		}
		batch = append(batch, u)
	}
	return batch
}

// fetchAll fetches, extracts and classifies batch concurrently. Results
// keep the order of batch so decisions stay in dequeue order.
func (j *crawlJob) fetchAll(ctx context.Context, batch []string) []page {
	pages := make([]page, len(batch))
	var wg sync.WaitGroup
	for i, u := range batch {
		wg.Add(1)
		go func(i int, u string) {
			defer wg.Done()
			pages[i] = j.load(ctx, u)
		}(i, u)
	}
	wg.Wait()
	return pages
}

func (j *crawlJob) load(ctx context.Context, pageURL string) page {
	body, err := j.deps.Fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return page{url: pageURL, err: err}
	}
	text := j.deps.Extractor.ExtractText(body)
	return page{
		url: pageURL,
		doc: models.HarvestedDocument{
			Text:      text,
			WordCount: utils.CountWords(text),
			Language:  j.deps.Classifier.Classify(utils.Sample(text, j.opts.SampleChars)),
			SourceURL: pageURL,
		},
		links: j.deps.Extractor.ExtractLinks(body, pageURL),
	}
}

func (j *crawlJob) fetchFailed(p page) {
	j.result.FetchErrors++
	j.logger.Debug("fetch failed", zap.String("url", p.url), zap.Error(p.err))
	e := j.event(models.EventFetchError)
	e.URL = p.url
	e.Err = p.err.Error()
	j.sink.Report(e)
}

func (j *crawlJob) decide(p page) {
	out, err := j.corpus.Offer(p.doc)
	switch out.Decision {
	case corpus.Rejected:
		j.result.Rejected++
	case corpus.Dropped:
		j.result.Dropped++
	case corpus.Replaced:
		j.result.Evicted++
	case corpus.Failed:
		j.result.StoreErrors++
		j.logger.Warn("document not stored", zap.String("url", p.url), zap.Error(err))
	}

	e := j.event(models.EventDocument)
	e.URL = p.url
	e.Decision = string(out.Decision)
	e.LastLanguage = p.doc.Language
	e.LastWordCount = p.doc.WordCount
	if out.Decision == corpus.Stored || out.Decision == corpus.Replaced {
		e.LastFilename = filepath.Base(j.corpus.Path(out.File))
	}
	if err != nil {
		e.Err = err.Error()
	}
	j.sink.Report(e)
}

func (j *crawlJob) follow(p page) {
	enqueued := 0
	for _, link := range p.links {
		if j.opts.SameSiteOnly && siteOf(link) != j.site {
			continue
		}
		if j.frontier.Enqueue(link) {
			enqueued++
		}
	}
	e := j.event(models.EventLinks)
	e.URL = p.url
	e.URLsEnqueued = enqueued
	j.sink.Report(e)
}
