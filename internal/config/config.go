package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/amosWeiskopf/corpusmith/pkg/corpus"
	"github.com/amosWeiskopf/corpusmith/pkg/discovery"
	"github.com/amosWeiskopf/corpusmith/pkg/fetcher"
	"github.com/amosWeiskopf/corpusmith/pkg/harvest"
)

// ErrInvalid is wrapped by every error returned from Validate.
var ErrInvalid = errors.New("invalid configuration")

// Config holds all application configuration
type Config struct {
	// Crawler configuration
	Crawler CrawlerConfig `mapstructure:"crawler"`

	// Corpus quotas and layout
	Corpus CorpusConfig `mapstructure:"corpus"`

	// HTTP transport
	Fetcher FetcherConfig `mapstructure:"fetcher"`

	// Seed discovery
	Discovery DiscoveryConfig `mapstructure:"discovery"`

	// Logging configuration
	Logging LoggingConfig `mapstructure:"logging"`

	// Metrics endpoint
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// CrawlerConfig holds crawl job scheduling
type CrawlerConfig struct {
	MaxConcurrentJobs int  `mapstructure:"max_concurrent_jobs"`
	WorkersPerJob     int  `mapstructure:"workers_per_job"`
	SameSiteOnly      bool `mapstructure:"same_site_only"`
	MaxPagesPerJob    int  `mapstructure:"max_pages_per_job"`
}

// CorpusConfig holds the on-disk corpus settings
type CorpusConfig struct {
	Root             string  `mapstructure:"root"`
	MaxFilesPerSeed  int     `mapstructure:"max_files_per_seed"`
	MaxHighQuality   int     `mapstructure:"max_high_quality"`
	MinWords         int     `mapstructure:"min_words"`
	MaxWords         int     `mapstructure:"max_words"`
	HighQualityWords int     `mapstructure:"high_quality_words"`
	SampleChars      int     `mapstructure:"sample_chars"`
	MinConfidence    float64 `mapstructure:"min_confidence"`
	Resume           bool    `mapstructure:"resume"`
}

// FetcherConfig holds HTTP transport configuration
type FetcherConfig struct {
	UserAgent         string        `mapstructure:"user_agent"`
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxRetries        int           `mapstructure:"max_retries"`
	RetryStatusCodes  []int         `mapstructure:"retry_status_codes"`
	Backoff           time.Duration `mapstructure:"backoff"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	FollowRobotsTxt   bool          `mapstructure:"follow_robots_txt"`
	MaxBodyBytes      int64         `mapstructure:"max_body_bytes"`
}

// DiscoveryConfig holds seed discovery configuration
type DiscoveryConfig struct {
	MaxSeeds int    `mapstructure:"max_seeds"`
	MaxPages int    `mapstructure:"max_pages"`
	Pattern  string `mapstructure:"pattern"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "console"
}

// MetricsConfig holds the Prometheus listener address; empty disables it.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// Load loads configuration from file and environment. An explicit
// configPath must exist; otherwise config.yaml is looked up in the usual
// places and its absence is not an error.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("$HOME/.corpusmith")
	}

	setDefaults(v)

	// CORPUSMITH_CORPUS_ROOT overrides corpus.root
	v.SetEnvPrefix("CORPUSMITH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// Config file not found is not an error, we'll use defaults and env
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Crawler defaults
	v.SetDefault("crawler.max_concurrent_jobs", 2)
	v.SetDefault("crawler.workers_per_job", 4)
	v.SetDefault("crawler.same_site_only", true)
	v.SetDefault("crawler.max_pages_per_job", 0)

	// Corpus defaults
	limits := corpus.DefaultLimits()
	v.SetDefault("corpus.root", "output/language")
	v.SetDefault("corpus.max_files_per_seed", limits.MaxFilesPerSeed)
	v.SetDefault("corpus.max_high_quality", limits.MaxHighQuality)
	v.SetDefault("corpus.min_words", limits.MinWords)
	v.SetDefault("corpus.max_words", limits.MaxWords)
	v.SetDefault("corpus.high_quality_words", limits.HighQualityWords)
	v.SetDefault("corpus.sample_chars", 500)
	v.SetDefault("corpus.min_confidence", 0.0)
	v.SetDefault("corpus.resume", false)

	// Fetcher defaults
	f := fetcher.DefaultOptions()
	v.SetDefault("fetcher.user_agent", f.UserAgent)
	v.SetDefault("fetcher.timeout", f.Timeout)
	v.SetDefault("fetcher.max_retries", f.MaxRetries)
	v.SetDefault("fetcher.retry_status_codes", f.RetryStatusCodes)
	v.SetDefault("fetcher.backoff", f.Backoff)
	v.SetDefault("fetcher.requests_per_second", f.RequestsPerSecond)
	v.SetDefault("fetcher.burst", f.Burst)
	v.SetDefault("fetcher.follow_robots_txt", f.FollowRobotsTxt)
	v.SetDefault("fetcher.max_body_bytes", f.MaxBodyBytes)

	// Discovery defaults
	v.SetDefault("discovery.max_seeds", 10)
	v.SetDefault("discovery.max_pages", 50)
	v.SetDefault("discovery.pattern", "")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("metrics.addr", "")
}

// Validate rejects values that would make a harvest misbehave. Nothing is
// silently replaced with a default.
func (c *Config) Validate() error {
	if c.Corpus.Root == "" {
		return fmt.Errorf("%w: corpus.root must be set", ErrInvalid)
	}
	if err := c.HarvestOptions().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if c.Corpus.MinConfidence < 0 || c.Corpus.MinConfidence > 1 {
		return fmt.Errorf("%w: corpus.min_confidence must be within [0, 1]", ErrInvalid)
	}
	if c.Fetcher.MaxRetries < 0 {
		return fmt.Errorf("%w: fetcher.max_retries must not be negative", ErrInvalid)
	}
	if c.Fetcher.Timeout <= 0 {
		return fmt.Errorf("%w: fetcher.timeout must be positive", ErrInvalid)
	}
	if c.Fetcher.RequestsPerSecond < 0 {
		return fmt.Errorf("%w: fetcher.requests_per_second must not be negative", ErrInvalid)
	}
	for _, code := range c.Fetcher.RetryStatusCodes {
		if code < 100 || code > 599 {
			return fmt.Errorf("%w: fetcher.retry_status_codes has invalid status %d", ErrInvalid, code)
		}
	}
	if c.Discovery.MaxSeeds <= 0 {
		return fmt.Errorf("%w: discovery.max_seeds must be positive", ErrInvalid)
	}
	if c.Discovery.MaxPages < 0 {
		return fmt.Errorf("%w: discovery.max_pages must not be negative", ErrInvalid)
	}
	if _, err := c.DiscoveryOptions(); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("%w: logging.format must be json or console, got %q", ErrInvalid, c.Logging.Format)
	}
	return nil
}

// Limits returns the per-seed corpus quotas.
func (c *Config) Limits() corpus.Limits {
	return corpus.Limits{
		MinWords:         c.Corpus.MinWords,
		MaxWords:         c.Corpus.MaxWords,
		HighQualityWords: c.Corpus.HighQualityWords,
		MaxFilesPerSeed:  c.Corpus.MaxFilesPerSeed,
		MaxHighQuality:   c.Corpus.MaxHighQuality,
	}
}

// HarvestOptions returns the coordinator options.
func (c *Config) HarvestOptions() harvest.Options {
	return harvest.Options{
		Limits:            c.Limits(),
		MaxConcurrentJobs: c.Crawler.MaxConcurrentJobs,
		WorkersPerJob:     c.Crawler.WorkersPerJob,
		SameSiteOnly:      c.Crawler.SameSiteOnly,
		MaxPagesPerJob:    c.Crawler.MaxPagesPerJob,
		SampleChars:       c.Corpus.SampleChars,
		Resume:            c.Corpus.Resume,
	}
}

// FetcherOptions returns the transport options.
func (c *Config) FetcherOptions() fetcher.Options {
	return fetcher.Options{
		UserAgent:         c.Fetcher.UserAgent,
		Timeout:           c.Fetcher.Timeout,
		MaxRetries:        c.Fetcher.MaxRetries,
		RetryStatusCodes:  c.Fetcher.RetryStatusCodes,
		Backoff:           c.Fetcher.Backoff,
		RequestsPerSecond: c.Fetcher.RequestsPerSecond,
		Burst:             c.Fetcher.Burst,
		FollowRobotsTxt:   c.Fetcher.FollowRobotsTxt,
		MaxBodyBytes:      c.Fetcher.MaxBodyBytes,
	}
}

// DiscoveryOptions returns the seed discovery options, compiling the seed
// pattern if one is set.
func (c *Config) DiscoveryOptions() (discovery.Options, error) {
	opts := discovery.Options{MaxPages: c.Discovery.MaxPages}
	if c.Discovery.Pattern != "" {
		re, err := regexp.Compile(c.Discovery.Pattern)
		if err != nil {
			return opts, fmt.Errorf("%w: discovery.pattern: %v", ErrInvalid, err)
		}
		opts.Pattern = re
	}
	return opts, nil
}
