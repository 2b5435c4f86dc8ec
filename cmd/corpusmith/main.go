package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/amosWeiskopf/corpusmith/internal/config"
	"github.com/amosWeiskopf/corpusmith/internal/logger"
	"github.com/amosWeiskopf/corpusmith/internal/models"
	"github.com/amosWeiskopf/corpusmith/pkg/classifier"
	"github.com/amosWeiskopf/corpusmith/pkg/corpus"
	"github.com/amosWeiskopf/corpusmith/pkg/discovery"
	"github.com/amosWeiskopf/corpusmith/pkg/extractor"
	"github.com/amosWeiskopf/corpusmith/pkg/fetcher"
	"github.com/amosWeiskopf/corpusmith/pkg/harvest"
	"github.com/amosWeiskopf/corpusmith/pkg/progress"
	"github.com/amosWeiskopf/corpusmith/pkg/reporter"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "corpusmith",
	Short: "CorpusMith - multilingual web text corpus harvester",
	Long: `CorpusMith crawls outward from seed URLs, extracts the prose of every page,
labels it with a language and keeps a bounded, quality-ranked set of text
files per seed under <corpus root>/<language>/.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage:  true,
	SilenceErrors: true,
}

var harvestCmd = &cobra.Command{
	Use:   "harvest [URL...]",
	Short: "Harvest text from one or more seed URLs",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		run, err := a.coordinator.HarvestFromURLs(ctx, args, a.sink)
		return a.finish(cmd, run, err)
	},
}

var discoverCmd = &cobra.Command{
	Use:   "discover [URL]",
	Short: "Find seeds linked from a start page and harvest them",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		maxSeeds := a.cfg.Discovery.MaxSeeds
		if listOnly, _ := cmd.Flags().GetBool("list-only"); listOnly {
			seeds, err := a.seeds.DiscoverSeeds(ctx, args[0], maxSeeds)
			if err != nil {
				return err
			}
			for _, s := range seeds {
				fmt.Fprintln(cmd.OutOrStdout(), s)
			}
			return nil
		}

		run, err := a.coordinator.HarvestFromSeedSearch(ctx, args[0], maxSeeds, a.sink)
		return a.finish(cmd, run, err)
	},
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarize the corpus on disk",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		format, _ := cmd.Flags().GetString("format")
		output, _ := cmd.Flags().GetString("output")
		seeds, _ := cmd.Flags().GetStringSlice("seed")

		r := reporter.New(corpus.NewStore(cfg.Corpus.Root), cfg.Corpus.HighQualityWords)
		report, err := r.GenerateReport(seeds, format)
		if err != nil {
			return fmt.Errorf("report generation failed: %w", err)
		}

		if output != "" {
			if err := os.WriteFile(output, []byte(report), 0o644); err != nil {
				return fmt.Errorf("failed to write report: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Report saved to %s\n", output)
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), report)
		return nil
	},
}

func init() {
	// Harvest command flags
	harvestCmd.Flags().Bool("resume", false, "Adopt files already on disk for each seed")
	harvestCmd.Flags().Int("jobs", 0, "Seeds crawled in parallel")
	harvestCmd.Flags().Int("workers", 0, "Concurrent fetches per seed")
	harvestCmd.Flags().Int("max-pages", 0, "Maximum pages enqueued per seed (0 = unbounded)")

	// Discover command flags
	discoverCmd.Flags().Int("max-seeds", 0, "Number of seeds to discover")
	discoverCmd.Flags().String("pattern", "", "Regular expression a link must match to become a seed")
	discoverCmd.Flags().Bool("list-only", false, "Print the discovered seeds without harvesting")
	discoverCmd.Flags().Bool("resume", false, "Adopt files already on disk for each seed")

	// Report command flags
	reportCmd.Flags().String("format", "table", "Report format ("+strings.Join(reporter.Formats, ", ")+")")
	reportCmd.Flags().String("output", "", "Output file for report")
	reportCmd.Flags().StringSlice("seed", nil, "Seed URL to break down (repeatable)")

	rootCmd.AddCommand(harvestCmd)
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(reportCmd)

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "Config file path")
	rootCmd.PersistentFlags().String("corpus-root", "", "Corpus root directory")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("metrics-addr", "", "Serve Prometheus metrics on this address")
}

// loadConfig reads the config file and applies command line overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("corpus-root") {
		cfg.Corpus.Root, _ = flags.GetString("corpus-root")
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("metrics-addr") {
		cfg.Metrics.Addr, _ = flags.GetString("metrics-addr")
	}
	if flags.Changed("resume") {
		cfg.Corpus.Resume, _ = flags.GetBool("resume")
	}
	if flags.Changed("jobs") {
		cfg.Crawler.MaxConcurrentJobs, _ = flags.GetInt("jobs")
	}
	if flags.Changed("workers") {
		cfg.Crawler.WorkersPerJob, _ = flags.GetInt("workers")
	}
	if flags.Changed("max-pages") {
		cfg.Crawler.MaxPagesPerJob, _ = flags.GetInt("max-pages")
	}
	if flags.Changed("max-seeds") {
		cfg.Discovery.MaxSeeds, _ = flags.GetInt("max-seeds")
	}
	if flags.Changed("pattern") {
		cfg.Discovery.Pattern, _ = flags.GetString("pattern")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// app is the wired harvester for one command invocation.
type app struct {
	cfg         *config.Config
	log         *zap.Logger
	seeds       *discovery.Discoverer
	coordinator *harvest.Coordinator
	async       *progress.Async
	sink        progress.Sink
	metrics     *http.Server
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.Logging)
	if err != nil {
		return nil, err
	}

	discoveryOpts, err := cfg.DiscoveryOptions()
	if err != nil {
		return nil, err
	}
	f := fetcher.New(cfg.FetcherOptions(), log.Named("fetcher"))
	x := extractor.New()
	seeds := discovery.New(f, x, discoveryOpts, log.Named("discovery"))

	coordinator, err := harvest.New(harvest.Deps{
		Fetcher:    f,
		Extractor:  x,
		Classifier: classifier.New(cfg.Corpus.MinConfidence),
		Store:      corpus.NewStore(cfg.Corpus.Root),
		Seeds:      seeds,
		Logger:     log.Named("harvest"),
	}, cfg.HarvestOptions())
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	async := progress.NewAsync(progress.Multi(
		progress.NewLogSink(log.Named("progress")),
		progress.NewMetricsSink(registry),
	), 1024, log.Named("progress"))

	a := &app{
		cfg:         cfg,
		log:         log,
		seeds:       seeds,
		coordinator: coordinator,
		async:       async,
		sink:        async,
	}
	if cfg.Metrics.Addr != "" {
		a.serveMetrics(registry)
	}
	return a, nil
}

func (a *app) serveMetrics(registry *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	a.metrics = &http.Server{
		Addr:              a.cfg.Metrics.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		a.log.Info("serving metrics", zap.String("addr", a.cfg.Metrics.Addr))
		if err := a.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("metrics server failed", zap.Error(err))
		}
	}()
}

// finish flushes progress and prints the run summary.
func (a *app) finish(cmd *cobra.Command, run *models.RunResult, err error) error {
	a.async.Close()
	if dropped := a.async.Dropped(); dropped > 0 {
		a.log.Warn("progress events dropped", zap.Int64("dropped", dropped))
	}
	if run != nil {
		progress.RenderSummary(cmd.OutOrStdout(), run)
	}
	if errors.Is(err, context.Canceled) {
		a.log.Warn("harvest interrupted")
		return nil
	}
	return err
}

func (a *app) close() {
	a.async.Close()
	if a.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		a.metrics.Shutdown(ctx)
	}
	a.log.Sync()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
