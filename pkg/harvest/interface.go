package harvest

import (
	"context"
	"errors"
	"fmt"

	"github.com/amosWeiskopf/corpusmith/pkg/corpus"
)

// ErrInvalidRequest is returned when a harvest is submitted with unusable
// arguments or options. Nothing has been crawled when it is returned.
var ErrInvalidRequest = errors.New("invalid harvest request")

// Fetcher downloads the HTML of a page. Retries and politeness are its
// business; any error means "skip this page".
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Extractor turns HTML into prose and outgoing links.
type Extractor interface {
	ExtractText(body []byte) string
	ExtractLinks(body []byte, baseURL string) []string
}

// Classifier labels a text sample with a language code.
type Classifier interface {
	Classify(sample string) string
}

// SeedFinder discovers seed URLs from a start page.
type SeedFinder interface {
	DiscoverSeeds(ctx context.Context, startURL string, maxSeeds int) ([]string, error)
}

// Options controls a harvest run.
type Options struct {
	Limits            corpus.Limits
	MaxConcurrentJobs int
	WorkersPerJob     int
	// SameSiteOnly restricts link following to the seed's registrable
	// domain (eTLD+1).
	SameSiteOnly bool
	// MaxPagesPerJob caps the URLs a job may enqueue; zero means no cap.
	MaxPagesPerJob int
	// SampleChars is how much of a document the classifier sees.
	SampleChars int
	// Resume adopts the files a seed already has on disk.
	Resume bool
}

// DefaultOptions returns the stock harvest options.
func DefaultOptions() Options {
	return Options{
		Limits:            corpus.DefaultLimits(),
		MaxConcurrentJobs: 2,
		WorkersPerJob:     4,
		SameSiteOnly:      true,
		SampleChars:       500,
	}
}

// Validate rejects option values that cannot run.
func (o Options) Validate() error {
	if err := o.Limits.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	switch {
	case o.MaxConcurrentJobs <= 0:
		return fmt.Errorf("%w: max concurrent jobs must be positive", ErrInvalidRequest)
	case o.WorkersPerJob <= 0:
		return fmt.Errorf("%w: workers per job must be positive", ErrInvalidRequest)
	case o.MaxPagesPerJob < 0:
		return fmt.Errorf("%w: max pages per job must not be negative", ErrInvalidRequest)
	case o.SampleChars <= 0:
		return fmt.Errorf("%w: sample chars must be positive", ErrInvalidRequest)
	}
	return nil
}
