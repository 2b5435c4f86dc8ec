package corpus

import (
	"errors"
	"fmt"

	"github.com/amosWeiskopf/corpusmith/internal/models"
)

// Limits are the quotas applied to a single seed.
type Limits struct {
	MinWords         int
	MaxWords         int
	HighQualityWords int
	MaxFilesPerSeed  int
	MaxHighQuality   int
}

// DefaultLimits returns the stock quotas.
func DefaultLimits() Limits {
	return Limits{
		MinWords:         50,
		MaxWords:         2000,
		HighQualityWords: 200,
		MaxFilesPerSeed:  500,
		MaxHighQuality:   100,
	}
}

// ErrInvalidLimits is returned by Limits.Validate.
var ErrInvalidLimits = errors.New("invalid corpus limits")

// Validate checks that the quotas are usable.
func (l Limits) Validate() error {
	switch {
	case l.MinWords < 0:
		return fmt.Errorf("%w: min words must not be negative", ErrInvalidLimits)
	case l.MaxWords < l.MinWords:
		return fmt.Errorf("%w: max words %d below min words %d", ErrInvalidLimits, l.MaxWords, l.MinWords)
	case l.HighQualityWords < l.MinWords || l.HighQualityWords > l.MaxWords:
		return fmt.Errorf("%w: high quality threshold %d outside [%d, %d]", ErrInvalidLimits, l.HighQualityWords, l.MinWords, l.MaxWords)
	case l.MaxFilesPerSeed <= 0:
		return fmt.Errorf("%w: max files per seed must be positive", ErrInvalidLimits)
	case l.MaxHighQuality <= 0:
		return fmt.Errorf("%w: max high quality must be positive", ErrInvalidLimits)
	}
	return nil
}

// Decision is what the policy did with a document. Rejected documents
// failed the word count bounds or arrived after the high quality target
// closed the low quality path. Dropped documents were acceptable but there
// was no room for them. Failed means the filesystem refused a write or
// delete.
type Decision string

const (
	Rejected Decision = "rejected"
	Dropped  Decision = "dropped"
	Stored   Decision = "stored"
	Replaced Decision = "replaced"
	Failed   Decision = "failed"
)

// Outcome describes one policy decision.
type Outcome struct {
	Decision Decision
	Reason   string
	File     models.StoredFile
	Evicted  *models.StoredFile
}

// SeedCorpus is the bookkeeping of one crawl job: the files it owns and
// its counters. It belongs to exactly one job and is not safe for
// concurrent use; cross-job safety comes from the Store.
type SeedCorpus struct {
	store       *Store
	seedKey     string
	limits      Limits
	files       []models.StoredFile
	highQuality int
}

// Open starts the bookkeeping for seedURL. With resume set, files already
// on disk for the seed are adopted and count toward the per-seed cap.
func (s *Store) Open(seedURL string, limits Limits, resume bool) (*SeedCorpus, error) {
	if err := limits.Validate(); err != nil {
		return nil, err
	}
	c := &SeedCorpus{
		store:   s,
		seedKey: SeedKey(seedURL),
		limits:  limits,
	}
	if resume {
		files, err := s.SeedFiles(seedURL)
		if err != nil {
			return nil, err
		}
		c.files = files
	}
	return c, nil
}

// SeedKey returns the sanitized seed identifier.
func (c *SeedCorpus) SeedKey() string { return c.seedKey }

// Stored is the number of files currently held for the seed.
func (c *SeedCorpus) Stored() int { return len(c.files) }

// HighQuality is the number of high quality candidates seen by this job.
func (c *SeedCorpus) HighQuality() int { return c.highQuality }

// TargetReached reports whether the high quality target has been met.
func (c *SeedCorpus) TargetReached() bool { return c.highQuality >= c.limits.MaxHighQuality }

// Files returns a copy of the stored file set.
func (c *SeedCorpus) Files() []models.StoredFile {
	out := make([]models.StoredFile, len(c.files))
	copy(out, c.files)
	return out
}

// Path returns the location of f in the underlying store.
func (c *SeedCorpus) Path(f models.StoredFile) string { return c.store.Path(f) }

// Offer runs the acceptance policy for doc. A non-nil error always comes
// with a Failed outcome and leaves the bookkeeping unchanged.
func (c *SeedCorpus) Offer(doc models.HarvestedDocument) (Outcome, error) {
	w := doc.WordCount
	if w < c.limits.MinWords {
		return Outcome{Decision: Rejected, Reason: "too short"}, nil
	}
	if w > c.limits.MaxWords {
		return Outcome{Decision: Rejected, Reason: "too long"}, nil
	}

	if w >= c.limits.HighQualityWords {
		reached := c.TargetReached()
		if !reached {
			c.highQuality++
		}
		if len(c.files) < c.limits.MaxFilesPerSeed {
			return c.keep(doc)
		}
		if reached {
			return Outcome{Decision: Dropped, Reason: "seed at capacity and high quality target reached"}, nil
		}
		return c.replace(doc)
	}

	if len(c.files) >= c.limits.MaxFilesPerSeed {
		return Outcome{Decision: Dropped, Reason: "seed at capacity"}, nil
	}
	if c.TargetReached() {
		return Outcome{Decision: Rejected, Reason: "high quality target reached"}, nil
	}
	return c.keep(doc)
}

func (c *SeedCorpus) write(doc models.HarvestedDocument) (models.StoredFile, error) {
	return c.store.Write(LanguageKey(doc.Language), c.seedKey, URLSlug(doc.SourceURL), doc.Text, doc.WordCount)
}

func (c *SeedCorpus) keep(doc models.HarvestedDocument) (Outcome, error) {
	f, err := c.write(doc)
	if err != nil {
		return Outcome{Decision: Failed, Reason: "write failed"}, err
	}
	c.files = append(c.files, f)
	return Outcome{Decision: Stored, File: f}, nil
}

// replace evicts the smallest stored file when it is below the high
// quality threshold. Ties go to the lowest sequence number.
func (c *SeedCorpus) replace(doc models.HarvestedDocument) (Outcome, error) {
	idx := c.smallest()
	if idx < 0 || c.files[idx].WordCount >= c.limits.HighQualityWords {
		return Outcome{Decision: Dropped, Reason: "no low quality file to evict"}, nil
	}
	victim := c.files[idx]

	f, err := c.write(doc)
	if err != nil {
		return Outcome{Decision: Failed, Reason: "write failed"}, err
	}
	if err := c.store.Remove(victim); err != nil {
		if rbErr := c.store.Remove(f); rbErr != nil {
			err = errors.Join(err, rbErr)
		}
		return Outcome{Decision: Failed, Reason: "evict failed"}, err
	}
	c.files[idx] = f
	return Outcome{Decision: Replaced, File: f, Evicted: &victim}, nil
}

func (c *SeedCorpus) smallest() int {
	idx := -1
	for i, f := range c.files {
		if idx < 0 {
			idx = i
			continue
		}
		best := c.files[idx]
		switch {
		case f.WordCount < best.WordCount:
			idx = i
		case f.WordCount == best.WordCount && f.Sequence < best.Sequence:
			idx = i
		case f.WordCount == best.WordCount && f.Sequence == best.Sequence && f.Language < best.Language:
			idx = i
		}
	}
	return idx
}
