package models

import "time"

// HarvestedDocument is the text of one fetched page after extraction and
// language classification. It only lives until the corpus has decided on it.
type HarvestedDocument struct {
	Text      string `json:"text"`
	WordCount int    `json:"word_count"`
	Language  string `json:"language"`
	SourceURL string `json:"source_url"`
}

// StoredFile identifies one document on disk. The tuple
// (Language, SeedKey, URLSlug, Sequence) determines the filename.
type StoredFile struct {
	Language  string `json:"language"`
	SeedKey   string `json:"seed_key"`
	URLSlug   string `json:"url_slug"`
	Sequence  int    `json:"sequence"`
	WordCount int    `json:"word_count"`
}

// EventKind tells a progress sink what happened.
type EventKind string

const (
	EventSeedsFound EventKind = "seeds_found"
	EventJobStarted EventKind = "job_started"
	EventDocument   EventKind = "document"
	EventLinks      EventKind = "links"
	EventFetchError EventKind = "fetch_error"
	EventJobDone    EventKind = "job_done"
)

// Event is a progress notification. Only the fields relevant to Kind are set.
type Event struct {
	Kind             EventKind `json:"kind"`
	JobID            string    `json:"job_id,omitempty"`
	Seed             string    `json:"seed,omitempty"`
	URL              string    `json:"url,omitempty"`
	SeedsFound       int       `json:"seeds_found,omitempty"`
	URLsVisited      int       `json:"urls_visited,omitempty"`
	URLsEnqueued     int       `json:"urls_enqueued,omitempty"`
	FilesStored      int       `json:"files_stored,omitempty"`
	HighQualityCount int       `json:"high_quality_count,omitempty"`
	Decision         string    `json:"decision,omitempty"`
	LastLanguage     string    `json:"last_language,omitempty"`
	LastFilename     string    `json:"last_filename,omitempty"`
	LastWordCount    int       `json:"last_word_count,omitempty"`
	Err              string    `json:"error,omitempty"`
	At               time.Time `json:"at"`
}

// JobResult is the outcome of one crawl job.
type JobResult struct {
	JobID       string        `json:"job_id"`
	Seed        string        `json:"seed"`
	SeedKey     string        `json:"seed_key"`
	URLsVisited int           `json:"urls_visited"`
	FilesStored int           `json:"files_stored"`
	HighQuality int           `json:"high_quality"`
	Evicted     int           `json:"evicted"`
	Rejected    int           `json:"rejected"`
	Dropped     int           `json:"dropped"`
	FetchErrors int           `json:"fetch_errors"`
	StoreErrors int           `json:"store_errors"`
	Cancelled   bool          `json:"cancelled"`
	Err         string        `json:"error,omitempty"`
	Duration    time.Duration `json:"duration"`
}

// RunResult collects the job results of one harvest run, in seed order.
type RunResult struct {
	Seeds     []string      `json:"seeds"`
	Jobs      []JobResult   `json:"jobs"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// TotalStored sums FilesStored across jobs.
func (r *RunResult) TotalStored() int {
	total := 0
	for _, j := range r.Jobs {
		total += j.FilesStored
	}
	return total
}

// CorpusReport is an inventory of a corpus root.
type CorpusReport struct {
	Root             string          `json:"root"`
	GeneratedAt      time.Time       `json:"generated_at"`
	HighQualityWords int             `json:"high_quality_words"`
	Languages        []LanguageStats `json:"languages"`
	Seeds            []SeedStats     `json:"seeds,omitempty"`
	Totals           FileStats       `json:"totals"`
}

// FileStats summarizes a set of stored files.
type FileStats struct {
	Files       int `json:"files"`
	Words       int `json:"words"`
	MinWords    int `json:"min_words"`
	MaxWords    int `json:"max_words"`
	HighQuality int `json:"high_quality"`
}

// Add folds one file with the given word count into s.
func (s *FileStats) Add(words, highQualityWords int) {
	if s.Files == 0 || words < s.MinWords {
		s.MinWords = words
	}
	if words > s.MaxWords {
		s.MaxWords = words
	}
	s.Files++
	s.Words += words
	if words >= highQualityWords {
		s.HighQuality++
	}
}

// LanguageStats is the inventory of one language directory.
type LanguageStats struct {
	Language string `json:"language"`
	FileStats
}

// SeedStats is the inventory of one seed across all languages.
type SeedStats struct {
	Seed      string         `json:"seed"`
	SeedKey   string         `json:"seed_key"`
	Languages map[string]int `json:"languages"`
	FileStats
}
